package redis

import (
	"context"
	"math"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gaborage/redisbridge/topology"
)

// dialFunc matches the Dialer hook of every go-redis options type.
type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// maxRetries maps retryAttempts onto go-redis MaxRetries.
// Unset keeps the library default, zero disables retries.
func maxRetries(s *topology.ServerConfig) int {
	if s.RetryAttempts == nil {
		return 0
	}
	if *s.RetryAttempts == 0 {
		return -1
	}
	return *s.RetryAttempts
}

// failingTimeoutSeconds rounds the failed replica reconnection interval up to whole seconds.
func failingTimeoutSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// nodeOptions builds options for one directly addressed node.
func nodeOptions(cfg *topology.ClientConfig, addr topology.Address, db int, pool topology.PoolConfig, dial dialFunc) *redis.Options {
	s := &cfg.Server
	return &redis.Options{
		Addr:            addr.HostPort(),
		ClientName:      s.ClientName,
		Dialer:          dial,
		Username:        s.Username,
		Password:        s.Password,
		DB:              db,
		MaxRetries:      maxRetries(s),
		MinRetryBackoff: s.RetryInterval,
		MaxRetryBackoff: s.RetryInterval,
		DialTimeout:     s.ConnectTimeout,
		ReadTimeout:     s.Timeout,
		WriteTimeout:    s.Timeout,
		PoolSize:        pool.Size,
		MinIdleConns:    pool.MinIdle,
		ConnMaxIdleTime: s.IdleConnectionTimeout,
	}
}

// clusterOptions builds options for a Redis Cluster. go-redis sizes pools per node,
// so the larger of the master and slave pool settings applies to every node.
func clusterOptions(cfg *topology.ClientConfig, dial dialFunc) *redis.ClusterOptions {
	s := &cfg.Server
	c := cfg.Cluster

	addrs := make([]string, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		addrs = append(addrs, n.HostPort())
	}

	opts := &redis.ClusterOptions{
		Addrs:                 addrs,
		ClientName:            s.ClientName,
		Dialer:                dial,
		Username:              s.Username,
		Password:              s.Password,
		MaxRetries:            maxRetries(s),
		MinRetryBackoff:       s.RetryInterval,
		MaxRetryBackoff:       s.RetryInterval,
		DialTimeout:           s.ConnectTimeout,
		ReadTimeout:           s.Timeout,
		WriteTimeout:          s.Timeout,
		PoolSize:              max(c.MasterPool.Size, c.SlavePool.Size),
		MinIdleConns:          max(c.MasterPool.MinIdle, c.SlavePool.MinIdle),
		ConnMaxIdleTime:       s.IdleConnectionTimeout,
		FailingTimeoutSeconds: failingTimeoutSeconds(c.FailedSlaveReconnectionInterval),
	}

	switch c.ReadMode {
	case topology.ReadSlave:
		opts.ReadOnly = true
	case topology.ReadMasterSlave:
		opts.ReadOnly = true
		opts.RouteRandomly = true
	}
	return opts
}

// failoverOptions builds options for a Sentinel-supervised master.
func failoverOptions(cfg *topology.ClientConfig, dial dialFunc) *redis.FailoverOptions {
	s := &cfg.Server
	c := cfg.Sentinel

	addrs := make([]string, 0, len(c.Sentinels))
	for _, n := range c.Sentinels {
		addrs = append(addrs, n.HostPort())
	}

	opts := &redis.FailoverOptions{
		MasterName:            c.MasterName,
		SentinelAddrs:         addrs,
		ClientName:            s.ClientName,
		Dialer:                dial,
		Username:              s.Username,
		Password:              s.Password,
		DB:                    c.Database,
		MaxRetries:            maxRetries(s),
		MinRetryBackoff:       s.RetryInterval,
		MaxRetryBackoff:       s.RetryInterval,
		DialTimeout:           s.ConnectTimeout,
		ReadTimeout:           s.Timeout,
		WriteTimeout:          s.Timeout,
		PoolSize:              max(c.MasterPool.Size, c.SlavePool.Size),
		MinIdleConns:          max(c.MasterPool.MinIdle, c.SlavePool.MinIdle),
		ConnMaxIdleTime:       s.IdleConnectionTimeout,
		FailingTimeoutSeconds: failingTimeoutSeconds(c.FailedSlaveReconnectionInterval),
	}

	switch c.ReadMode {
	case topology.ReadSlave:
		opts.ReplicaOnly = true
	case topology.ReadMasterSlave:
		opts.RouteRandomly = true
	}
	return opts
}

// sentinelRoutesReads reports whether reads must be spread over replicas, which
// needs the cluster flavour of the failover client.
func sentinelRoutesReads(c *topology.SentinelConfig) bool {
	return c.ReadMode == topology.ReadSlave || c.ReadMode == topology.ReadMasterSlave
}
