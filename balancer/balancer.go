// Package balancer provides client-side load balancers that pick which replica serves
// a read. Balancers are resolved by identifier through a static registry so property
// files can name them as strings.
package balancer

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Built-in load balancer identifiers.
const (
	RoundRobin = "roundrobin"
	Random     = "random"
)

// ErrUnknownLoadBalancer is returned by Lookup when no balancer is registered under an identifier.
var ErrUnknownLoadBalancer = errors.New("balancer: unknown identifier")

// LoadBalancer selects one node among equivalent candidates.
// Implementations must be safe for concurrent use.
type LoadBalancer interface {
	// Name returns the canonical registry identifier.
	Name() string
	// Select returns one element of candidates, or "" when candidates is empty.
	Select(candidates []string) string
}

// Factory creates a load balancer. Each call returns an independent instance so
// stateful balancers do not share position across handles.
type Factory func() LoadBalancer

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a factory under name and any aliases (case-insensitive).
func Register(name string, factory Factory, aliases ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry[normalize(name)] = factory
	for _, alias := range aliases {
		registry[normalize(alias)] = factory
	}
}

// Lookup resolves a balancer identifier. Class-style names such as
// "org.redisson.connection.balancer.RoundRobinLoadBalancer" only resolve when
// registered as aliases.
func Lookup(name string) (LoadBalancer, error) {
	key := normalize(name)
	if key == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrUnknownLoadBalancer)
	}

	registryMu.RLock()
	defer registryMu.RUnlock()

	if factory, ok := registry[key]; ok {
		return factory(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLoadBalancer, name)
}

// Names returns all registered identifiers, including aliases, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// RoundRobinBalancer cycles through candidates in order.
type RoundRobinBalancer struct {
	next atomic.Uint64
}

// NewRoundRobin creates a round-robin balancer starting at the first candidate.
func NewRoundRobin() *RoundRobinBalancer {
	return &RoundRobinBalancer{}
}

// Name implements LoadBalancer.
func (b *RoundRobinBalancer) Name() string { return RoundRobin }

// Select implements LoadBalancer.
func (b *RoundRobinBalancer) Select(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	n := b.next.Add(1) - 1
	return candidates[n%uint64(len(candidates))]
}

// RandomBalancer picks a uniformly random candidate.
type RandomBalancer struct{}

// NewRandom creates a random balancer.
func NewRandom() *RandomBalancer {
	return &RandomBalancer{}
}

// Name implements LoadBalancer.
func (b *RandomBalancer) Name() string { return Random }

// Select implements LoadBalancer.
func (b *RandomBalancer) Select(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	return candidates[rand.IntN(len(candidates))]
}

//nolint:gochecknoinits // Built-in balancers are registered at package load time
func init() {
	Register(RoundRobin, func() LoadBalancer { return NewRoundRobin() },
		"RoundRobinLoadBalancer", "org.redisson.connection.balancer.RoundRobinLoadBalancer", "round-robin")
	Register(Random, func() LoadBalancer { return NewRandom() },
		"RandomLoadBalancer", "org.redisson.connection.balancer.RandomLoadBalancer")
}
