package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	exponentialMaxSize  = 160
	exponentialMaxScale = 20
)

func (p *provider) initMeterProvider(o options) error {
	res, err := p.createResource()
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	reader := o.reader
	if reader == nil {
		exporter, err := p.createMetricExporter(o)
		if err != nil {
			return fmt.Errorf("failed to create metric exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(
			exporter,
			sdkmetric.WithInterval(p.config.Metrics.Interval),
			sdkmetric.WithTimeout(p.config.Metrics.ExportTimeout),
		)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	return nil
}

func (p *provider) createMetricExporter(o options) (sdkmetric.Exporter, error) {
	m := p.config.Metrics

	if m.Endpoint == EndpointStdout {
		opts := []stdoutmetric.Option{
			stdoutmetric.WithPrettyPrint(),
			stdoutmetric.WithTemporalitySelector(temporalitySelector(m.Temporality)),
			stdoutmetric.WithAggregationSelector(aggregationSelector(m.HistogramAggregation)),
		}
		if o.writer != nil {
			opts = append(opts, stdoutmetric.WithWriter(o.writer))
		}
		return stdoutmetric.New(opts...)
	}

	p.log.Debug().
		Str("endpoint", m.Endpoint).
		Str("protocol", m.Protocol).
		Bool("insecure", m.Insecure).
		Int("headers", len(m.Headers)).
		Msg("Creating OTLP metric exporter")

	switch m.Protocol {
	case ProtocolHTTP:
		return p.createOTLPHTTPMetricExporter()
	case ProtocolGRPC:
		return p.createOTLPGRPCMetricExporter()
	default:
		return nil, fmt.Errorf("metrics protocol '%s': %w", m.Protocol, ErrInvalidProtocol)
	}
}

func (p *provider) createOTLPHTTPMetricExporter() (sdkmetric.Exporter, error) {
	m := p.config.Metrics
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpointURL(m.Endpoint),
		otlpmetrichttp.WithTemporalitySelector(temporalitySelector(m.Temporality)),
		otlpmetrichttp.WithAggregationSelector(aggregationSelector(m.HistogramAggregation)),
	}
	if m.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(m.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(m.Headers))
	}
	if m.Compression == CompressionGzip {
		opts = append(opts, otlpmetrichttp.WithCompression(otlpmetrichttp.GzipCompression))
	} else {
		opts = append(opts, otlpmetrichttp.WithCompression(otlpmetrichttp.NoCompression))
	}

	return otlpmetrichttp.New(context.Background(), opts...)
}

func (p *provider) createOTLPGRPCMetricExporter() (sdkmetric.Exporter, error) {
	m := p.config.Metrics
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(m.Endpoint),
		otlpmetricgrpc.WithTemporalitySelector(temporalitySelector(m.Temporality)),
		otlpmetricgrpc.WithAggregationSelector(aggregationSelector(m.HistogramAggregation)),
	}
	if m.Insecure {
		opts = append(opts, otlpmetricgrpc.WithTLSCredentials(insecure.NewCredentials()))
	}
	if len(m.Headers) > 0 {
		opts = append(opts, otlpmetricgrpc.WithHeaders(m.Headers))
	}
	if m.Compression == CompressionGzip {
		opts = append(opts, otlpmetricgrpc.WithCompressor(CompressionGzip))
	}

	return otlpmetricgrpc.New(context.Background(), opts...)
}

// temporalitySelector maps the configured temporality onto instrument kinds.
// Up-down counters stay cumulative under delta: pool connection counts are
// levels, not increments.
func temporalitySelector(temporality string) sdkmetric.TemporalitySelector {
	if temporality != TemporalityDelta {
		return sdkmetric.DefaultTemporalitySelector
	}
	return func(kind sdkmetric.InstrumentKind) metricdata.Temporality {
		switch kind {
		case sdkmetric.InstrumentKindUpDownCounter, sdkmetric.InstrumentKindObservableUpDownCounter:
			return metricdata.CumulativeTemporality
		default:
			return metricdata.DeltaTemporality
		}
	}
}

func aggregationSelector(aggregation string) sdkmetric.AggregationSelector {
	if aggregation != HistogramAggregationExponential {
		return sdkmetric.DefaultAggregationSelector
	}
	return func(kind sdkmetric.InstrumentKind) sdkmetric.Aggregation {
		if kind == sdkmetric.InstrumentKindHistogram {
			return sdkmetric.AggregationBase2ExponentialHistogram{
				MaxSize:  exponentialMaxSize,
				MaxScale: exponentialMaxScale,
			}
		}
		return sdkmetric.DefaultAggregationSelector(kind)
	}
}
