package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gaborage/redisbridge/cache"
	"github.com/gaborage/redisbridge/logger"
	"github.com/gaborage/redisbridge/topology"
)

const roleMaster = "master"

var (
	errNoMaster        = errors.New("no node reports the master role")
	errMultipleMasters = errors.New("more than one node reports the master role")
	errUnexpectedRole  = errors.New("unexpected ROLE reply")
)

// probeRole returns the replication role reported by a node.
// Tests replace it because miniredis does not implement ROLE.
var probeRole = func(ctx context.Context, c *redis.Client) (string, error) {
	reply, err := c.Do(ctx, "ROLE").Slice()
	if err != nil {
		return "", err
	}
	if len(reply) == 0 {
		return "", errUnexpectedRole
	}
	role, ok := reply[0].(string)
	if !ok {
		return "", errUnexpectedRole
	}
	return strings.ToLower(role), nil
}

// discoverMaster asks every node of a replicated topology for its role using a
// short-lived single connection client. Exactly one master is required.
func discoverMaster(ctx context.Context, cfg *topology.ClientConfig, dial dialFunc) (topology.Address, []topology.Address, error) {
	r := cfg.Replicated

	var masters, replicas []topology.Address
	for _, addr := range r.Nodes {
		opts := nodeOptions(cfg, addr, r.Database, topology.PoolConfig{Size: 1}, dial)
		probe := redis.NewClient(opts)
		role, err := probeRole(ctx, probe)
		_ = probe.Close()
		if err != nil {
			return topology.Address{}, nil, cache.NewConnectionError("role", addr.String(), err)
		}

		if role == roleMaster {
			masters = append(masters, addr)
		} else {
			replicas = append(replicas, addr)
		}
	}

	switch len(masters) {
	case 1:
		return masters[0], replicas, nil
	case 0:
		return topology.Address{}, nil, cache.NewConnectionError("role", joinAddresses(r.Nodes), errNoMaster)
	default:
		return topology.Address{}, nil, cache.NewConnectionError("role", joinAddresses(masters),
			fmt.Errorf("%w: %d found", errMultipleMasters, len(masters)))
	}
}

// monitorReplicated re-probes the node roles every interval until the handle is
// closed. When another node has taken over the master role, writes and reads move
// to it. A failed scan keeps the current routing.
func (h *Handle) monitorReplicated(interval time.Duration, log logger.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	h.stopMonitor = cancel
	h.monitorDone = make(chan struct{})

	go func() {
		defer close(h.monitorDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			scanCtx, scanCancel := context.WithTimeout(ctx, pingTimeout(&h.cfg.Server))
			previous, err := h.rescanReplicated(scanCtx)
			scanCancel()
			switch {
			case ctx.Err() != nil:
				return
			case err != nil:
				log.Warn().Err(err).Msg("Replicated role scan failed, keeping current master")
			case previous != "":
				log.Warn().
					Str("previous", previous).
					Str("master", h.route.Load().master).
					Msg("Replicated master changed")
			}
		}
	}()
}

// rescanReplicated asks every node for its role over the handle's own clients and
// swaps the routing when the master moved. It returns the previous master address
// when a swap happened.
func (h *Handle) rescanReplicated(ctx context.Context) (string, error) {
	r := h.cfg.Replicated

	var master string
	replicas := make([]string, 0, len(h.nodes))
	seen := make(map[string]bool, len(r.Nodes))
	for _, addr := range r.Nodes {
		key := addr.HostPort()
		c, ok := h.nodes[key]
		if !ok || seen[key] {
			continue
		}
		seen[key] = true

		role, err := probeRole(ctx, c)
		if err != nil {
			return "", cache.NewConnectionError("role", addr.String(), err)
		}
		if role != roleMaster {
			replicas = append(replicas, key)
			continue
		}
		if master != "" {
			return "", cache.NewConnectionError("role", master+","+key,
				fmt.Errorf("%w: 2 or more found", errMultipleMasters))
		}
		master = key
	}
	if master == "" {
		return "", cache.NewConnectionError("role", joinAddresses(r.Nodes), errNoMaster)
	}

	current := h.route.Load()
	if current.master == master {
		return "", nil
	}
	h.route.Store(staticRouting(&r.NodeSettings, h.nodes, master, replicas))
	return current.master, nil
}
