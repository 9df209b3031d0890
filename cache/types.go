// Package cache provides the vendor-agnostic cache interface, the typed Template
// layered on top of it, and the error types shared by topology resolution and the
// Redis client.
package cache

import (
	"context"
	"time"
)

// Cache is the byte-level contract the Template and the lock package build on.
// Implementations are safe for concurrent use.
//
// A ttl of zero stores the value without expiry. A negative ttl is rejected with
// ErrInvalidTTL before any command is sent.
//
//	c, err := redis.NewClient(handle, log)
//	if err != nil {
//		return err
//	}
//	if err := c.Set(ctx, "session:42", payload, 30*time.Minute); err != nil {
//		return err
//	}
//	ok, err := c.CompareAndSet(ctx, "session:42", payload, updated, 30*time.Minute)
type Cache interface {
	// Get returns ErrNotFound for a missing or expired key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set overwrites any existing value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete succeeds when the key does not exist.
	Delete(ctx context.Context, key string) error

	// GetOrSet stores value only when key is absent, in a single round trip.
	// It returns whatever is stored afterwards and whether this call wrote it.
	GetOrSet(ctx context.Context, key string, value []byte, ttl time.Duration) (stored []byte, wasSet bool, err error)

	// CompareAndSet replaces the value of key with newValue when it currently holds
	// expected. A nil expected means the key must not exist. A non-nil empty
	// expected matches a key holding an empty value. A lost race is reported as
	// false with a nil error.
	CompareAndSet(ctx context.Context, key string, expected, newValue []byte, ttl time.Duration) (bool, error)

	// Health pings the topology.
	Health(ctx context.Context) error

	// Stats reports server info, the topology mode and pool counters.
	Stats() (map[string]any, error)

	// Close detaches the cache. Shared connections are owned by whoever created them.
	Close() error
}
