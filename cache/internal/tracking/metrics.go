// Package tracking records cache operation and connection pool metrics on the
// global OpenTelemetry meter provider.
package tracking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/gaborage/redisbridge/cache"
	"github.com/gaborage/redisbridge/logger"
)

const meterName = "redisbridge/cache"

// Instrument names follow the OpenTelemetry database client conventions.
const (
	metricOperationDuration = "db.client.operation.duration"
	metricHits              = "cache.hit"
	metricMisses            = "cache.miss"

	metricPoolConnections = "db.client.connection.count"
	metricPoolIdle        = "db.client.connection.idle"
	metricPoolTimeouts    = "db.client.connection.timeouts"
	metricPoolHits        = "db.client.connection.hits"
	metricPoolMisses      = "db.client.connection.misses"
)

const (
	attrDBSystem     = "db.system.name"
	attrDBOperation  = "db.operation.name"
	attrTopologyMode = "redis.topology.mode"
	attrErrorType    = "error.type"
	attrHit          = "cache.hit"
)

// Operation names reported in db.operation.name.
const (
	OpGet           = "get"
	OpSet           = "set"
	OpDelete        = "delete"
	OpGetOrSet      = "getorset"
	OpCompareAndSet = "cas"
	OpHealth        = "ping"
)

type instruments struct {
	provider metric.MeterProvider
	meter    metric.Meter
	duration metric.Float64Histogram
	hits     metric.Int64Counter
	misses   metric.Int64Counter
}

var (
	mu      sync.Mutex
	current *instruments
)

// load returns the instruments of the global provider, rebuilding them when the
// provider has been replaced since the last call.
func load() *instruments {
	mp := otel.GetMeterProvider()

	mu.Lock()
	defer mu.Unlock()
	if current == nil || current.provider != mp {
		current = newInstruments(mp)
	}
	return current
}

func newInstruments(mp metric.MeterProvider) *instruments {
	m := mp.Meter(meterName)
	in := &instruments{provider: mp, meter: m}

	var err error
	if in.duration, err = m.Float64Histogram(metricOperationDuration,
		metric.WithDescription("Duration of Redis operations"),
		metric.WithUnit("s"),
	); err != nil {
		otel.Handle(err)
		in.duration = noop.Float64Histogram{}
	}
	if in.hits, err = m.Int64Counter(metricHits,
		metric.WithDescription("Number of cache hits"),
		metric.WithUnit("{hit}"),
	); err != nil {
		otel.Handle(err)
		in.hits = noop.Int64Counter{}
	}
	if in.misses, err = m.Int64Counter(metricMisses,
		metric.WithDescription("Number of cache misses"),
		metric.WithUnit("{miss}"),
	); err != nil {
		otel.Handle(err)
		in.misses = noop.Int64Counter{}
	}
	return in
}

// RecordCacheOperation records one finished operation. hit only matters for lookups
// (get and getorset), which also feed the hit and miss counters. A context
// prepared with logger.WithRedisCounter accumulates the command count and latency.
func RecordCacheOperation(ctx context.Context, op string, d time.Duration, hit bool, err error, mode string) {
	logger.IncrementRedisCounter(ctx)
	logger.AddRedisElapsed(ctx, d.Nanoseconds())

	lookup := op == OpGet || op == OpGetOrSet

	attrs := make([]attribute.KeyValue, 0, 5)
	attrs = append(attrs,
		attribute.String(attrDBSystem, "redis"),
		attribute.String(attrDBOperation, op),
	)
	if mode != "" {
		attrs = append(attrs, attribute.String(attrTopologyMode, mode))
	}
	if lookup {
		attrs = append(attrs, attribute.Bool(attrHit, hit))
	}
	if err != nil {
		attrs = append(attrs, attribute.String(attrErrorType, classifyError(err)))
	}
	opt := metric.WithAttributeSet(attribute.NewSet(attrs...))

	in := load()
	in.duration.Record(ctx, d.Seconds(), opt)

	switch {
	case !lookup:
	case hit:
		in.hits.Add(ctx, 1, opt)
	default:
		in.misses.Add(ctx, 1, opt)
	}
}

// classifyError maps err to a low-cardinality error.type value.
func classifyError(err error) string {
	if err == nil {
		return ""
	}

	var (
		connErr  *cache.ConnectionError
		codecErr *cache.CodecError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, cache.ErrClosed):
		return "closed"
	case errors.Is(err, cache.ErrNotFound):
		return "not_found"
	case errors.As(err, &connErr):
		return "connection_error"
	case errors.As(err, &codecErr):
		return "codec_error"
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection"):
		return "connection_error"
	case strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "closed"):
		return "closed"
	case strings.Contains(msg, "not found"):
		return "not_found"
	}
	return "error"
}

// PoolStats is a snapshot of the connection pools behind one handle,
// summed over every client the handle owns.
type PoolStats struct {
	TotalConns uint32
	IdleConns  uint32
	Timeouts   uint32
	Hits       uint32
	Misses     uint32
}

// RegisterPoolMetrics reports stats on every collection cycle until the returned
// function is called.
func RegisterPoolMetrics(stats func() PoolStats, mode string) (unregister func()) {
	unregister = func() {}
	if stats == nil {
		return unregister
	}

	m := load().meter
	conns, errConns := m.Int64ObservableUpDownCounter(metricPoolConnections,
		metric.WithDescription("Open connections across the pools of the handle"),
		metric.WithUnit("{connection}"))
	idle, errIdle := m.Int64ObservableUpDownCounter(metricPoolIdle,
		metric.WithDescription("Idle connections across the pools of the handle"),
		metric.WithUnit("{connection}"))
	timeouts, errTimeouts := m.Int64ObservableCounter(metricPoolTimeouts,
		metric.WithDescription("Connection waits that timed out"))
	hits, errHits := m.Int64ObservableCounter(metricPoolHits,
		metric.WithDescription("Free connections found in the pool"))
	misses, errMisses := m.Int64ObservableCounter(metricPoolMisses,
		metric.WithDescription("Connection requests that found no free connection"))
	if err := errors.Join(errConns, errIdle, errTimeouts, errHits, errMisses); err != nil {
		otel.Handle(err)
		return unregister
	}

	attrs := []attribute.KeyValue{attribute.String(attrDBSystem, "redis")}
	if mode != "" {
		attrs = append(attrs, attribute.String(attrTopologyMode, mode))
	}
	opt := metric.WithAttributeSet(attribute.NewSet(attrs...))

	reg, err := m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := stats()
		o.ObserveInt64(conns, int64(s.TotalConns), opt)
		o.ObserveInt64(idle, int64(s.IdleConns), opt)
		o.ObserveInt64(timeouts, int64(s.Timeouts), opt)
		o.ObserveInt64(hits, int64(s.Hits), opt)
		o.ObserveInt64(misses, int64(s.Misses), opt)
		return nil
	}, conns, idle, timeouts, hits, misses)
	if err != nil {
		otel.Handle(err)
		return unregister
	}

	return func() {
		if err := reg.Unregister(); err != nil {
			otel.Handle(err)
		}
	}
}
