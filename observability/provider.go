// Package observability exports the cache and connection pool metrics recorded
// through the global OpenTelemetry meter.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"

	"github.com/gaborage/redisbridge/logger"
)

// Provider manages the lifecycle of the meter provider.
type Provider interface {
	MeterProvider() metric.MeterProvider

	// Shutdown flushes pending data and stops exporting. Call it once during
	// application shutdown.
	Shutdown(ctx context.Context) error

	ForceFlush(ctx context.Context) error
}

// Option customizes NewProvider.
type Option func(*options)

type options struct {
	reader sdkmetric.Reader
	writer io.Writer
}

// WithReader replaces the periodic exporter with r. Tests pass a ManualReader.
func WithReader(r sdkmetric.Reader) Option {
	return func(o *options) { o.reader = r }
}

// WithWriter redirects the stdout exporter.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.writer = w }
}

type provider struct {
	config        Config
	log           logger.Logger
	meterProvider *sdkmetric.MeterProvider
	mu            sync.Mutex
}

// NewProvider builds a meter provider from cfg and installs it as the global one.
// When cfg is disabled it returns a no-op provider and leaves the global untouched.
// cfg is not modified; defaults are applied to a copy.
func NewProvider(cfg *Config, log logger.Logger, opts ...Option) (Provider, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	safeCfg := *cfg
	safeCfg.ApplyDefaults()
	if err := safeCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	if !safeCfg.Enabled {
		log.Debug().Msg("Observability disabled, metrics are not exported")
		return newNoopProvider(), nil
	}

	p := &provider{config: safeCfg, log: log}
	if err := p.initMeterProvider(o); err != nil {
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}

	otel.SetMeterProvider(p.meterProvider)

	log.Info().
		Str("service", safeCfg.Service.Name).
		Str("endpoint", safeCfg.Metrics.Endpoint).
		Str("protocol", safeCfg.Metrics.Protocol).
		Str("temporality", safeCfg.Metrics.Temporality).
		Dur("interval", safeCfg.Metrics.Interval).
		Msg("Metrics export enabled")

	return p, nil
}

// MustNewProvider is NewProvider that panics on error.
func MustNewProvider(cfg *Config, log logger.Logger, opts ...Option) Provider {
	p, err := NewProvider(cfg, log, opts...)
	if err != nil {
		panic(fmt.Errorf("failed to create observability provider: %w", err))
	}
	return p
}

func (p *provider) createResource() (*resource.Resource, error) {
	custom, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(p.config.Service.Name),
			semconv.ServiceVersion(p.config.Service.Version),
			semconv.DeploymentEnvironmentName(p.config.Environment),
		),
	)
	if err != nil {
		return nil, err
	}
	return resource.Merge(resource.Default(), custom)
}

func (p *provider) MeterProvider() metric.MeterProvider {
	if p.meterProvider == nil {
		return metricnoop.NewMeterProvider()
	}
	return p.meterProvider
}

func (p *provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.meterProvider == nil {
		return nil
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil && !errors.Is(err, sdkmetric.ErrReaderShutdown) {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}

func (p *provider) ForceFlush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.meterProvider == nil {
		return nil
	}
	if err := p.meterProvider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("failed to flush meter provider: %w", err)
	}
	return nil
}
