package app

import (
	"context"
	"errors"
	"time"

	"github.com/gaborage/redisbridge/cache"
)

const (
	healthyStatus   = "healthy"
	unhealthyStatus = "unhealthy"
	closedStatus    = "closed"

	defaultHealthTimeout = 2 * time.Second
)

// HealthStatus captures the outcome of a readiness probe.
type HealthStatus struct {
	Name    string
	Status  string
	Details map[string]any
	Err     error
}

// HealthProbe exposes a uniform interface for readiness probes.
type HealthProbe interface {
	Run(ctx context.Context) HealthStatus
}

type healthProbeFunc struct {
	name string
	fn   func(ctx context.Context) (string, map[string]any, error)
}

func (h healthProbeFunc) Run(ctx context.Context) HealthStatus {
	status, details, err := h.fn(ctx)
	if details == nil {
		details = map[string]any{}
	}
	return HealthStatus{
		Name:    h.name,
		Status:  status,
		Details: details,
		Err:     err,
	}
}

// redisHealthProbe pings every node of the handle and reports pool statistics.
func redisHealthProbe(c cache.Cache, mode string) HealthProbe {
	return healthProbeFunc{
		name: "redis",
		fn: func(ctx context.Context) (string, map[string]any, error) {
			details := map[string]any{"mode": mode}

			if _, hasDeadline := ctx.Deadline(); !hasDeadline {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, defaultHealthTimeout)
				defer cancel()
			}

			if err := c.Health(ctx); err != nil {
				if errors.Is(err, cache.ErrClosed) {
					return closedStatus, details, err
				}
				return unhealthyStatus, details, err
			}

			stats, err := c.Stats()
			if err == nil {
				for k, v := range stats {
					if k == "redis_info" {
						continue
					}
					details[k] = v
				}
			}
			return healthyStatus, details, nil
		},
	}
}

// Health probes the Redis topology.
func (a *App) Health(ctx context.Context) HealthStatus {
	return redisHealthProbe(a.cache, a.client.Mode.String()).Run(ctx)
}
