// Package app wires the Redis bridge together: it resolves the configured
// topology, opens the shared connection handle, and exposes the cache client,
// the default template and the distributed locker built on top of it.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gaborage/redisbridge/cache"
	"github.com/gaborage/redisbridge/cache/redis"
	"github.com/gaborage/redisbridge/config"
	"github.com/gaborage/redisbridge/lock"
	"github.com/gaborage/redisbridge/logger"
	"github.com/gaborage/redisbridge/observability"
	"github.com/gaborage/redisbridge/topology"
)

// App owns the Redis handle and everything built on it. Close releases it.
type App struct {
	cfg      *config.Config
	client   *topology.ClientConfig
	logger   logger.Logger
	handle   *redis.Handle
	cache    *redis.Client
	template *cache.Template[any]
	locker   *lock.Locker
	metrics  observability.Provider

	closeOnce sync.Once
	closeErr  error
}

// Option customizes New.
type Option func(*settings)

type settings struct {
	metricOptions []observability.Option
}

// WithMetricOptions forwards opts to the metrics provider.
func WithMetricOptions(opts ...observability.Option) Option {
	return func(s *settings) { s.metricOptions = append(s.metricOptions, opts...) }
}

// New resolves cfg.Redisson, starts metrics export, connects, and builds the cache
// client, template and locker. Nothing is left open when an error is returned.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, cache.NewConfigError("config", "configuration is required", nil)
	}

	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}

	clientCfg, err := topology.Resolve(cfg.Redisson)
	if err != nil {
		return nil, err
	}

	// Installed before Connect so pool instruments register on the exporting provider.
	metrics, err := observability.NewProvider(&cfg.Observability, log, s.metricOptions...)
	if err != nil {
		return nil, err
	}
	shutdownMetrics := func() error {
		return observability.Shutdown(metrics, observability.DefaultShutdownTimeout)
	}

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Env).
		Str("mode", clientCfg.Mode.String()).
		Str("codec", clientCfg.CodecName).
		Msg("Starting redis bridge")

	h, err := redis.Connect(ctx, clientCfg, log)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to connect to redis: %w", err), shutdownMetrics())
	}

	c, err := redis.NewClient(h, log)
	if err != nil {
		return nil, errors.Join(err, h.Close(), shutdownMetrics())
	}

	locker, err := lock.New(h, log)
	if err != nil {
		return nil, errors.Join(err, c.Close(), h.Close(), shutdownMetrics())
	}

	return &App{
		cfg:      cfg,
		client:   clientCfg,
		logger:   log,
		handle:   h,
		cache:    c,
		template: cache.NewTemplate[any](c, clientCfg.KeyCodec, clientCfg.Codec),
		locker:   locker,
		metrics:  metrics,
	}, nil
}

// NewTemplate builds a typed template over a's cache client using the configured codecs.
func NewTemplate[V any](a *App) *cache.Template[V] {
	return cache.NewTemplate[V](a.cache, a.client.KeyCodec, a.client.Codec)
}

// Config returns the loaded application configuration.
func (a *App) Config() *config.Config { return a.cfg }

// ClientConfig returns the resolved topology.
func (a *App) ClientConfig() *topology.ClientConfig { return a.client }

// Handle returns the shared connection handle.
func (a *App) Handle() *redis.Handle { return a.handle }

// Cache returns the raw byte-oriented cache client.
func (a *App) Cache() cache.Cache { return a.cache }

// Template returns the default template: configured key codec, configured value codec.
func (a *App) Template() *cache.Template[any] { return a.template }

// Locker returns the distributed locker.
func (a *App) Locker() *lock.Locker { return a.locker }

// Metrics returns the metrics provider; a no-op one when export is disabled.
func (a *App) Metrics() observability.Provider { return a.metrics }

// Close detaches the cache client, closes the handle and flushes metrics. Later
// calls return the result of the first.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.logger.Info().Str("mode", a.client.Mode.String()).Msg("Shutting down redis bridge")
		a.closeErr = errors.Join(
			a.cache.Close(),
			a.handle.Close(),
			observability.Shutdown(a.metrics, observability.DefaultShutdownTimeout),
		)
	})
	return a.closeErr
}
