package observability

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
)

// noopProvider is returned when metrics export is disabled.
type noopProvider struct {
	meterProvider metric.MeterProvider
}

func newNoopProvider() *noopProvider {
	return &noopProvider{meterProvider: metricnoop.NewMeterProvider()}
}

func (n *noopProvider) MeterProvider() metric.MeterProvider {
	return n.meterProvider
}

func (n *noopProvider) Shutdown(_ context.Context) error {
	return nil
}

func (n *noopProvider) ForceFlush(_ context.Context) error {
	return nil
}
