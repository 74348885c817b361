package gateway

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/jmcleod/adconsole/gateway"

// metricsCollector records call outcomes.
type metricsCollector struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newMetricsCollector(mp metric.MeterProvider) (*metricsCollector, error) {
	meter := mp.Meter(meterName)
	requests, err := meter.Int64Counter("adconsole.gateway.requests",
		metric.WithDescription("Backend calls by outcome."),
	)
	if err != nil {
		return nil, fmt.Errorf("create request counter: %w", err)
	}
	duration, err := meter.Float64Histogram("adconsole.gateway.duration",
		metric.WithDescription("Backend call latency."),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}
	return &metricsCollector{requests: requests, duration: duration}, nil
}

func outcomeOf(kind ErrorKind) string {
	if kind == "" {
		return "ok"
	}
	return string(kind)
}

func (m *metricsCollector) record(ctx context.Context, method string, kind ErrorKind, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("outcome", outcomeOf(kind)),
		attribute.String("method", method),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}
