package observability

import "errors"

// ErrNilConfig is returned when Validate is called on a nil Config pointer.
var ErrNilConfig = errors.New("observability: config is nil")

// ErrMissingServiceName is returned when observability is enabled but no service name is configured.
var ErrMissingServiceName = errors.New("observability: service name is required when observability is enabled")

// ErrInvalidProtocol is returned when the metrics protocol is not "http" or "grpc".
var ErrInvalidProtocol = errors.New("observability: protocol must be either 'http' or 'grpc'")

// ErrInvalidEndpointFormat is returned when the endpoint format doesn't match the protocol.
// gRPC endpoints take "host:port"; HTTP endpoints need an http:// or https:// scheme.
var ErrInvalidEndpointFormat = errors.New("observability: invalid endpoint format for protocol")

// ErrInvalidCompression is returned when the compression value is not "gzip" or "none".
var ErrInvalidCompression = errors.New("observability: compression must be either 'gzip' or 'none'")

// ErrInvalidTemporality is returned when the temporality value is not "delta" or "cumulative".
var ErrInvalidTemporality = errors.New("observability: temporality must be either 'delta' or 'cumulative'")

// ErrInvalidHistogramAggregation is returned when the histogram aggregation is not "exponential" or "explicit".
var ErrInvalidHistogramAggregation = errors.New("observability: histogram aggregation must be either 'exponential' or 'explicit'")

// ErrInvalidInterval is returned when the export interval or timeout is negative.
var ErrInvalidInterval = errors.New("observability: metric interval and export timeout must not be negative")
