// Package api is the typed client of the admin backend's REST endpoints.
// Every call goes through the gateway, so authorization, error reporting and
// session teardown behave the same for every resource.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jmcleod/adconsole/gateway"
)

// Resource endpoints live under this prefix; auth does not.
const v1 = "/v1"

// Client groups the resource services.
type Client struct {
	gw *gateway.Gateway

	Auth        *AuthService
	Advertisers *AdvertiserService
	Campaigns   *CampaignService
	Creatives   *CreativeService
	Reports     *ReportService
	Users       *UserService
}

// NewClient returns a client that sends through gw.
func NewClient(gw *gateway.Gateway) *Client {
	return &Client{
		gw:          gw,
		Auth:        &AuthService{gw: gw},
		Advertisers: &AdvertiserService{gw: gw},
		Campaigns:   &CampaignService{gw: gw},
		Creatives:   &CreativeService{gw: gw},
		Reports:     &ReportService{gw: gw},
		Users:       &UserService{gw: gw},
	}
}

// Gateway returns the underlying gateway.
func (c *Client) Gateway() *gateway.Gateway {
	return c.gw
}

func itemPath(collection string, id int64, sub ...string) string {
	p := v1 + "/" + collection + "/" + strconv.FormatInt(id, 10)
	for _, s := range sub {
		p += "/" + s
	}
	return p
}

func list[T any](ctx context.Context, gw *gateway.Gateway, path string, params ListParams) (*Page[T], error) {
	var page Page[T]
	if err := gw.Get(ctx, path, params.query(), &page); err != nil {
		return nil, err
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return &page, nil
}

// unwrap decodes the object stored under key of a wrapped detail response
// such as {"campaign": {...}}.
func unwrap[T any](raw map[string]json.RawMessage, key string) (*T, error) {
	body, ok := raw[key]
	if !ok {
		return nil, fmt.Errorf("response missing %q", key)
	}
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}
	return &v, nil
}

func getOne[T any](ctx context.Context, gw *gateway.Gateway, path string, query url.Values, key string) (*T, error) {
	var raw map[string]json.RawMessage
	if err := gw.Get(ctx, path, query, &raw); err != nil {
		return nil, err
	}
	return unwrap[T](raw, key)
}

func postOne[T any](ctx context.Context, gw *gateway.Gateway, path string, body any, key string) (*T, error) {
	var raw map[string]json.RawMessage
	if err := gw.Post(ctx, path, body, &raw); err != nil {
		return nil, err
	}
	return unwrap[T](raw, key)
}

func putOne[T any](ctx context.Context, gw *gateway.Gateway, path string, body any, key string) (*T, error) {
	var raw map[string]json.RawMessage
	if err := gw.Put(ctx, path, body, &raw); err != nil {
		return nil, err
	}
	return unwrap[T](raw, key)
}
