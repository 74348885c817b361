package api

import (
	"context"
	"encoding/json"
	"io"

	"github.com/jmcleod/adconsole/gateway"
)

// CreativeService manages creatives.
type CreativeService struct {
	gw *gateway.Gateway
}

func (s *CreativeService) List(ctx context.Context, params ListParams) (*Page[Creative], error) {
	return list[Creative](ctx, s.gw, v1+"/creatives", params)
}

func (s *CreativeService) Get(ctx context.Context, id int64) (*Creative, error) {
	return getOne[Creative](ctx, s.gw, itemPath("creatives", id), nil, "creative")
}

func (s *CreativeService) Create(ctx context.Context, c *Creative) (*Creative, error) {
	return postOne[Creative](ctx, s.gw, v1+"/creatives", c, "creative")
}

func (s *CreativeService) Update(ctx context.Context, id int64, fields map[string]any) (*Creative, error) {
	return putOne[Creative](ctx, s.gw, itemPath("creatives", id), fields, "creative")
}

// UploadContent replaces the creative's asset file.
func (s *CreativeService) UploadContent(ctx context.Context, id int64, name string, r io.Reader) (*Creative, error) {
	var raw map[string]json.RawMessage
	err := s.gw.Upload(ctx, itemPath("creatives", id, "upload"), &gateway.Multipart{FileName: name, File: r}, &raw)
	if err != nil {
		return nil, err
	}
	return unwrap[Creative](raw, "creative")
}

// Review approves or rejects a pending creative.
func (s *CreativeService) Review(ctx context.Context, id int64, decision StatusChange) (*Creative, error) {
	return putOne[Creative](ctx, s.gw, itemPath("creatives", id, "review"), decision, "creative")
}
