package api

import (
	"context"
	"net/url"

	"github.com/jmcleod/adconsole/gateway"
)

// ReportService runs reports and report jobs.
type ReportService struct {
	gw *gateway.Gateway
}

// Performance returns the standard performance report.
func (s *ReportService) Performance(ctx context.Context, query url.Values) (*Statistics, error) {
	var out Statistics
	if err := s.gw.Get(ctx, v1+"/reports/performance", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Custom returns a report over caller-chosen dimensions and metrics.
func (s *ReportService) Custom(ctx context.Context, query url.Values) (*Statistics, error) {
	var out Statistics
	if err := s.gw.Get(ctx, v1+"/reports/custom", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ReportService) CreateJob(ctx context.Context, req ReportJobRequest) (*ReportJob, error) {
	return postOne[ReportJob](ctx, s.gw, v1+"/reports/jobs", req, "report")
}

func (s *ReportService) GetJob(ctx context.Context, id int64) (*ReportJob, error) {
	return getOne[ReportJob](ctx, s.gw, itemPath("reports/jobs", id), nil, "report")
}

func (s *ReportService) ListJobs(ctx context.Context, params ListParams) (*Page[ReportJob], error) {
	return list[ReportJob](ctx, s.gw, v1+"/reports/jobs", params)
}
