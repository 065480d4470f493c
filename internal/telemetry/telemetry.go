package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const meterName = "github.com/shaibs3/geoadmin"

// Telemetry holds the meter used by the service and the registry that
// backs the /metrics endpoint
type Telemetry struct {
	Meter    metric.Meter
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider
}

// NewTelemetry creates an OpenTelemetry meter exported through a private
// Prometheus registry
func NewTelemetry(logger *zap.Logger) (*Telemetry, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	logger.Named("telemetry").Info("telemetry initialized")

	return &Telemetry{
		Meter:    provider.Meter(meterName),
		registry: registry,
		provider: provider,
	}, nil
}

// MeterOrNoop returns the meter of t, or a no-op meter when t is nil
func MeterOrNoop(t *Telemetry) metric.Meter {
	if t == nil || t.Meter == nil {
		return noop.NewMeterProvider().Meter(meterName)
	}
	return t.Meter
}

// Shutdown flushes and stops the meter provider
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}

// Handler serves the registry in the Prometheus exposition format
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}
