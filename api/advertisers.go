package api

import (
	"context"
	"encoding/json"
	"io"

	"github.com/jmcleod/adconsole/gateway"
)

// AdvertiserService manages advertisers.
type AdvertiserService struct {
	gw *gateway.Gateway
}

func (s *AdvertiserService) List(ctx context.Context, params ListParams) (*Page[Advertiser], error) {
	return list[Advertiser](ctx, s.gw, v1+"/advertisers", params)
}

func (s *AdvertiserService) Get(ctx context.Context, id int64) (*Advertiser, error) {
	return getOne[Advertiser](ctx, s.gw, itemPath("advertisers", id), nil, "advertiser")
}

func (s *AdvertiserService) Create(ctx context.Context, a *Advertiser) (*Advertiser, error) {
	return postOne[Advertiser](ctx, s.gw, v1+"/advertisers", a, "advertiser")
}

func (s *AdvertiserService) Update(ctx context.Context, id int64, fields map[string]any) (*Advertiser, error) {
	return putOne[Advertiser](ctx, s.gw, itemPath("advertisers", id), fields, "advertiser")
}

// ChangeStatus approves, rejects or suspends an advertiser.
func (s *AdvertiserService) ChangeStatus(ctx context.Context, id int64, change StatusChange) (*Advertiser, error) {
	return putOne[Advertiser](ctx, s.gw, itemPath("advertisers", id, "status"), change, "advertiser")
}

// UploadFile attaches a qualification document of the given type.
func (s *AdvertiserService) UploadFile(ctx context.Context, id int64, name string, r io.Reader, fileType string) (*QualificationFile, error) {
	var raw map[string]json.RawMessage
	err := s.gw.Upload(ctx, itemPath("advertisers", id, "upload"), &gateway.Multipart{
		Fields:   map[string]string{"file_type": fileType},
		FileName: name,
		File:     r,
	}, &raw)
	if err != nil {
		return nil, err
	}
	return unwrap[QualificationFile](raw, "file")
}

func (s *AdvertiserService) Deposit(ctx context.Context, id int64, tx Transaction) (*BalanceResult, error) {
	var out BalanceResult
	if err := s.gw.Post(ctx, itemPath("advertisers", id, "deposit"), tx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *AdvertiserService) Withdraw(ctx context.Context, id int64, tx Transaction) (*BalanceResult, error) {
	var out BalanceResult
	if err := s.gw.Post(ctx, itemPath("advertisers", id, "withdraw"), tx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
