package redis

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/gaborage/redisbridge/balancer"
	"github.com/gaborage/redisbridge/cache"
	"github.com/gaborage/redisbridge/cache/internal/tracking"
	"github.com/gaborage/redisbridge/topology"
)

// Handle is the connected client shared by every cache and lock user.
// It is safe for concurrent use and is released exactly once by Close.
type Handle struct {
	cfg   *topology.ClientConfig
	route atomic.Pointer[routing]

	// Populated for masterslave and replicated topologies only.
	nodes    map[string]*redis.Client
	balancer balancer.LoadBalancer

	clients    []redis.UniversalClient
	unregister func()
	closed     atomic.Bool

	// Set while a replicated topology is being monitored.
	stopMonitor context.CancelFunc
	monitorDone chan struct{}
}

// routing is the current write target and read set. A replicated handle swaps it
// when another node takes over the master role.
type routing struct {
	writer    redis.UniversalClient
	master    string // host:port of writer when it is one of nodes
	readAddrs []string
}

// staticRouting routes writes to nodes[master] and reads according to the read mode.
func staticRouting(ns *topology.NodeSettings, nodes map[string]*redis.Client, master string, replicas []string) *routing {
	var readAddrs []string
	switch ns.ReadMode {
	case topology.ReadSlave:
		readAddrs = replicas
	case topology.ReadMasterSlave:
		readAddrs = append([]string{master}, replicas...)
	}
	return &routing{writer: nodes[master], master: master, readAddrs: readAddrs}
}

// newHandle assembles a handle around route. nodes maps host:port to the client of
// each directly addressed node.
func newHandle(cfg *topology.ClientConfig, route *routing, nodes map[string]*redis.Client) *Handle {
	h := &Handle{
		cfg:   cfg,
		nodes: nodes,
	}
	h.route.Store(route)
	if ns := cfg.Nodes(); ns != nil {
		h.balancer = ns.LoadBalancer
	}

	h.clients = append(h.clients, route.writer)
	for _, c := range nodes {
		if redis.UniversalClient(c) != route.writer {
			h.clients = append(h.clients, c)
		}
	}
	return h
}

// Mode returns the topology the handle is connected to.
func (h *Handle) Mode() topology.Mode {
	return h.cfg.Mode
}

// Config returns the resolved configuration the handle was built from.
func (h *Handle) Config() *topology.ClientConfig {
	return h.cfg
}

// Client returns the client that serves writes. In cluster and sentinel topologies
// it also routes reads according to the configured read mode.
func (h *Handle) Client() redis.UniversalClient {
	return h.route.Load().writer
}

// Reader returns the client that should serve the next read.
// SLAVE selects a replica through the load balancer, MASTER_SLAVE balances over the
// master and its replicas, anything else reads from the master.
func (h *Handle) Reader() redis.UniversalClient {
	r := h.route.Load()
	if len(r.readAddrs) == 0 || h.balancer == nil {
		return r.writer
	}
	if c, ok := h.nodes[h.balancer.Select(r.readAddrs)]; ok {
		return c
	}
	return r.writer
}

// poolStats sums the pool statistics of every client behind the handle.
func (h *Handle) poolStats() tracking.PoolStats {
	var out tracking.PoolStats
	for _, c := range h.clients {
		s := c.PoolStats()
		if s == nil {
			continue
		}
		out.TotalConns += s.TotalConns
		out.IdleConns += s.IdleConns
		out.Timeouts += s.Timeouts
		out.Hits += s.Hits
		out.Misses += s.Misses
	}
	return out
}

// Closed reports whether Close has been called.
func (h *Handle) Closed() bool {
	return h.closed.Load()
}

// Close releases every connection of the handle.
// The first call closes the clients; later calls return cache.ErrClosed.
func (h *Handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return cache.ErrClosed
	}
	if h.stopMonitor != nil {
		h.stopMonitor()
		<-h.monitorDone
	}
	if h.unregister != nil {
		h.unregister()
	}
	return closeAll(h.clients)
}

func closeAll(clients []redis.UniversalClient) error {
	var errs []error
	for _, c := range clients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
