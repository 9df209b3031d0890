package observability

import (
	"maps"
	"strings"
	"time"
)

const (
	// EndpointStdout writes metrics to the process output instead of a collector.
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	CompressionGzip = "gzip"
	CompressionNone = "none"

	// TemporalityDelta reports the change since the last export.
	TemporalityDelta = "delta"

	// TemporalityCumulative reports the total since the instrument was created.
	TemporalityCumulative = "cumulative"

	HistogramAggregationExponential = "exponential"
	HistogramAggregationExplicit    = "explicit"

	// EnvironmentDevelopment is the environment assumed when none is configured.
	EnvironmentDevelopment = "development"

	defaultInterval          = 10 * time.Second
	defaultDevExportTimeout  = 10 * time.Second
	defaultProdExportTimeout = 60 * time.Second
)

// Config controls metric export for cache and pool instruments.
// Keys are read from the "observability" section of the application config.
type Config struct {
	// Enabled switches export on. When false the provider is a no-op and
	// instruments record into the void.
	Enabled bool `koanf:"enabled"`

	Service ServiceConfig `koanf:"service"`

	// Environment becomes the deployment.environment.name resource attribute.
	Environment string `koanf:"environment"`

	Metrics MetricsConfig `koanf:"metrics"`
}

// ServiceConfig identifies the process in exported resources.
type ServiceConfig struct {
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
}

// MetricsConfig defines where and how metrics are exported.
type MetricsConfig struct {
	// Endpoint is "stdout" or an OTLP collector address. HTTP endpoints carry a
	// scheme ("http://collector:4318"); gRPC endpoints are "host:port".
	Endpoint string `koanf:"endpoint"`

	// Protocol is "http" or "grpc". Ignored for stdout.
	Protocol string `koanf:"protocol"`

	// Insecure disables TLS towards the collector.
	Insecure bool `koanf:"insecure"`

	Headers map[string]string `koanf:"headers"`

	// Compression is "gzip" or "none".
	Compression string `koanf:"compression"`

	// Temporality is "delta" or "cumulative".
	Temporality string `koanf:"temporality"`

	// HistogramAggregation is "exponential" or "explicit".
	HistogramAggregation string `koanf:"histogramaggregation"`

	// Interval between periodic exports.
	Interval time.Duration `koanf:"interval"`

	// ExportTimeout bounds a single export.
	ExportTimeout time.Duration `koanf:"exporttimeout"`
}

// ApplyDefaults fills unset fields. It is called by NewProvider on a copy.
func (c *Config) ApplyDefaults() {
	if c.Service.Version == "" {
		c.Service.Version = "unknown"
	}
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}

	m := &c.Metrics
	if m.Endpoint == "" {
		m.Endpoint = EndpointStdout
	}
	if m.Protocol == "" {
		m.Protocol = ProtocolHTTP
	}
	if m.Endpoint == EndpointStdout {
		m.Insecure = true
	}
	if m.Compression == "" {
		m.Compression = CompressionGzip
	}
	if m.Temporality == "" {
		m.Temporality = TemporalityCumulative
	}
	if m.HistogramAggregation == "" {
		m.HistogramAggregation = HistogramAggregationExplicit
	}
	if m.Interval == 0 {
		m.Interval = defaultInterval
	}
	if m.ExportTimeout == 0 {
		if c.Environment == EnvironmentDevelopment || m.Endpoint == EndpointStdout {
			m.ExportTimeout = defaultDevExportTimeout
		} else {
			m.ExportTimeout = defaultProdExportTimeout
		}
	}
	m.Headers = cloneHeaderMap(m.Headers)
}

// Validate checks the configuration. A disabled config is always valid.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.Service.Name == "" {
		return ErrMissingServiceName
	}

	m := c.Metrics
	if err := oneOf(m.Compression, ErrInvalidCompression, CompressionGzip, CompressionNone); err != nil {
		return err
	}
	if err := oneOf(m.Temporality, ErrInvalidTemporality, TemporalityDelta, TemporalityCumulative); err != nil {
		return err
	}
	if err := oneOf(m.HistogramAggregation, ErrInvalidHistogramAggregation,
		HistogramAggregationExponential, HistogramAggregationExplicit); err != nil {
		return err
	}
	if m.Interval < 0 || m.ExportTimeout < 0 {
		return ErrInvalidInterval
	}

	if m.Endpoint == EndpointStdout || m.Endpoint == "" {
		return nil
	}
	protocol := m.Protocol
	if protocol == "" {
		protocol = ProtocolHTTP
	}
	if protocol != ProtocolHTTP && protocol != ProtocolGRPC {
		return ErrInvalidProtocol
	}
	return validateEndpointFormat(m.Endpoint, protocol)
}

// oneOf accepts empty values; ApplyDefaults fills them in.
func oneOf(value string, err error, allowed ...string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return err
}

func validateEndpointFormat(endpoint, protocol string) error {
	hasScheme := strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
	if protocol == ProtocolGRPC && hasScheme {
		return ErrInvalidEndpointFormat
	}
	if protocol == ProtocolHTTP && !hasScheme {
		return ErrInvalidEndpointFormat
	}
	return nil
}

func cloneHeaderMap(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	clone := make(map[string]string, len(headers))
	maps.Copy(clone, headers)
	return clone
}
