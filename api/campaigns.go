package api

import (
	"context"
	"net/url"

	"github.com/jmcleod/adconsole/gateway"
)

// CampaignService manages campaigns.
type CampaignService struct {
	gw *gateway.Gateway
}

func (s *CampaignService) List(ctx context.Context, params ListParams) (*Page[Campaign], error) {
	return list[Campaign](ctx, s.gw, v1+"/campaigns", params)
}

func (s *CampaignService) Get(ctx context.Context, id int64) (*Campaign, error) {
	return getOne[Campaign](ctx, s.gw, itemPath("campaigns", id), nil, "campaign")
}

func (s *CampaignService) Create(ctx context.Context, c *Campaign) (*Campaign, error) {
	return postOne[Campaign](ctx, s.gw, v1+"/campaigns", c, "campaign")
}

func (s *CampaignService) Update(ctx context.Context, id int64, fields map[string]any) (*Campaign, error) {
	return putOne[Campaign](ctx, s.gw, itemPath("campaigns", id), fields, "campaign")
}

func (s *CampaignService) ChangeStatus(ctx context.Context, id int64, status string) (*Campaign, error) {
	return putOne[Campaign](ctx, s.gw, itemPath("campaigns", id, "status"), StatusChange{Status: status}, "campaign")
}

// Statistics returns delivery metrics for a campaign. Typical query keys are
// start_date, end_date and granularity.
func (s *CampaignService) Statistics(ctx context.Context, id int64, query url.Values) (*Statistics, error) {
	var out Statistics
	if err := s.gw.Get(ctx, itemPath("campaigns", id, "statistics"), query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
