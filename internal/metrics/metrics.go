// Package metrics exports the service's OpenTelemetry instruments in the
// Prometheus text format.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/0xc0d3d00d/klinechart"

type Metrics struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	requests      metric.Int64Counter
	stageDuration metric.Float64Histogram
	retries       metric.Int64Counter
}

// New creates a meter provider backed by its own Prometheus registry, so
// several instances can live in one process.
func New() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(meterName)

	m := &Metrics{registry: registry, provider: provider}
	m.requests, err = meter.Int64Counter("klinechart_requests",
		metric.WithDescription("HTTP requests by response status."),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	m.stageDuration, err = meter.Float64Histogram("klinechart_stage_duration",
		metric.WithDescription("Duration of each chart pipeline stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, err
	}
	m.retries, err = meter.Int64Counter("klinechart_provider_retries",
		metric.WithDescription("Market data fetches retried after a rate limit."),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) RecordRequest(ctx context.Context, status int) {
	m.requests.Add(ctx, 1, metric.WithAttributes(attribute.Int("status", status)))
}

func (m *Metrics) ObserveStage(ctx context.Context, stage string, d time.Duration) {
	m.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

func (m *Metrics) RecordRetry(ctx context.Context, provider string) {
	m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
