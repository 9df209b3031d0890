package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gaborage/redisbridge/cache"
	"github.com/gaborage/redisbridge/cache/internal/tracking"
	"github.com/gaborage/redisbridge/logger"
	"github.com/gaborage/redisbridge/topology"
)

const defaultPingTimeout = 5 * time.Second

// Connect builds the go-redis client for cfg and verifies that every node answers
// PING within pingTimeout. It does not retry: any failure is returned as a
// *cache.ConnectionError and every connection opened so far is closed.
func Connect(ctx context.Context, cfg *topology.ClientConfig, log logger.Logger) (*Handle, error) {
	if cfg == nil {
		return nil, cache.NewConfigError("redisson", "client configuration is required", nil)
	}

	dial, err := dialerFor(cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout(&cfg.Server))
	defer cancel()

	addrs := joinAddresses(cfg.Addresses())
	log.Info().
		Str("mode", cfg.Mode.String()).
		Str("addresses", addrs).
		Msg("Connecting to Redis")

	start := time.Now()
	h, err := build(pingCtx, cfg, dial)
	if err == nil {
		err = ping(pingCtx, h)
		if err != nil {
			_ = closeAll(h.clients)
		}
	}
	if err != nil {
		log.Error().
			Err(err).
			Str("mode", cfg.Mode.String()).
			Str("addresses", addrs).
			Msg("Failed to connect to Redis")
		return nil, err
	}

	h.unregister = tracking.RegisterPoolMetrics(h.poolStats, cfg.Mode.String())
	if cfg.Mode == topology.Replicated && cfg.Replicated.ScanInterval > 0 {
		h.monitorReplicated(cfg.Replicated.ScanInterval, log)
	}

	log.Info().
		Str("mode", cfg.Mode.String()).
		Int("clients", len(h.clients)).
		Dur("elapsed", time.Since(start)).
		Msg("Connected to Redis")
	return h, nil
}

func dialerFor(cfg *topology.ClientConfig) (dialFunc, error) {
	if !tlsEnabled(cfg) {
		return newDialer(&cfg.Server, nil), nil
	}
	tlsCfg, err := buildTLSConfig(&cfg.Server.TLS)
	if err != nil {
		return nil, err
	}
	return newDialer(&cfg.Server, tlsCfg), nil
}

func pingTimeout(s *topology.ServerConfig) time.Duration {
	if s.PingTimeout > 0 {
		return s.PingTimeout
	}
	return defaultPingTimeout
}

// build creates the clients of one topology. Only replicated mode talks to the
// servers here, to find the master.
func build(ctx context.Context, cfg *topology.ClientConfig, dial dialFunc) (*Handle, error) {
	switch cfg.Mode {
	case topology.Single:
		s := cfg.Single
		c := redis.NewClient(nodeOptions(cfg, s.Address, s.Database, s.ConnectionPool, dial))
		return newHandle(cfg, &routing{writer: c}, nil), nil

	case topology.Cluster:
		return newHandle(cfg, &routing{writer: redis.NewClusterClient(clusterOptions(cfg, dial))}, nil), nil

	case topology.Sentinel:
		opts := failoverOptions(cfg, dial)
		if sentinelRoutesReads(cfg.Sentinel) {
			return newHandle(cfg, &routing{writer: redis.NewFailoverClusterClient(opts)}, nil), nil
		}
		return newHandle(cfg, &routing{writer: redis.NewFailoverClient(opts)}, nil), nil

	case topology.MasterSlave:
		ms := cfg.MasterSlave
		return buildStatic(cfg, &ms.NodeSettings, ms.Master, ms.Slaves, ms.Database, dial), nil

	case topology.Replicated:
		r := cfg.Replicated
		master, replicas, err := discoverMaster(ctx, cfg, dial)
		if err != nil {
			return nil, err
		}
		return buildStatic(cfg, &r.NodeSettings, master, replicas, r.Database, dial), nil

	default:
		return nil, cache.NewConfigError("redisson.mode", fmt.Sprintf("unsupported mode %q", cfg.Mode), nil)
	}
}

// buildStatic creates one client per node of a topology whose master is known.
func buildStatic(cfg *topology.ClientConfig, ns *topology.NodeSettings, master topology.Address,
	replicas []topology.Address, db int, dial dialFunc) *Handle {
	nodes := map[string]*redis.Client{
		master.HostPort(): redis.NewClient(nodeOptions(cfg, master, db, ns.MasterPool, dial)),
	}
	replicaAddrs := make([]string, 0, len(replicas))
	for _, r := range replicas {
		key := r.HostPort()
		if _, dup := nodes[key]; dup {
			continue
		}
		nodes[key] = redis.NewClient(nodeOptions(cfg, r, db, ns.SlavePool, dial))
		replicaAddrs = append(replicaAddrs, key)
	}
	return newHandle(cfg, staticRouting(ns, nodes, master.HostPort(), replicaAddrs), nodes)
}

// ping checks every client of the handle.
func ping(ctx context.Context, h *Handle) error {
	writer := h.Client()
	if err := writer.Ping(ctx).Err(); err != nil {
		return cache.NewConnectionError("ping", joinAddresses(h.cfg.Addresses()), err)
	}
	for addr, c := range h.nodes {
		if redis.UniversalClient(c) == writer {
			continue
		}
		if err := c.Ping(ctx).Err(); err != nil {
			return cache.NewConnectionError("ping", addr, err)
		}
	}
	return nil
}

func joinAddresses(addrs []topology.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, ",")
}
