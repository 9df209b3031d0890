package testing

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gaborage/redisbridge/cache"
)

// Operation names accepted by WithFailure and OperationCount.
const (
	OpGet           = "Get"
	OpSet           = "Set"
	OpDelete        = "Delete"
	OpGetOrSet      = "GetOrSet"
	OpCompareAndSet = "CompareAndSet"
	OpHealth        = "Health"
	OpStats         = "Stats"
	OpClose         = "Close"
)

// MockCache is an in-memory, thread-safe cache.Cache that records every call.
type MockCache struct {
	mu       sync.Mutex
	entries  map[string]entry
	failures map[string]error
	calls    map[string]int64
	closed   bool
	now      func() time.Time
}

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiration
}

// NewMockCache creates an empty MockCache.
func NewMockCache() *MockCache {
	return &MockCache{
		entries:  make(map[string]entry),
		failures: make(map[string]error),
		calls:    make(map[string]int64),
		now:      time.Now,
	}
}

// WithFailure makes every call of op return err.
func (m *MockCache) WithFailure(op string, err error) *MockCache {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = err
	return m
}

// WithClock replaces the time source used for expiration.
func (m *MockCache) WithClock(now func() time.Time) *MockCache {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
	return m
}

// begin records the call and returns the configured failure, if any. Callers hold m.mu.
func (m *MockCache) begin(ctx context.Context, op string) error {
	m.calls[op]++
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.closed {
		return cache.ErrClosed
	}
	return m.failures[op]
}

func (m *MockCache) lookup(key string) ([]byte, bool) {
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}
	return e.value, true
}

func (m *MockCache) store(key string, value []byte, ttl time.Duration) {
	e := entry{value: bytes.Clone(value)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
}

// Get implements cache.Cache.
func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, OpGet); err != nil {
		return nil, err
	}
	value, ok := m.lookup(key)
	if !ok {
		return nil, cache.ErrNotFound
	}
	return bytes.Clone(value), nil
}

// Set implements cache.Cache. A zero ttl stores the value without expiration.
func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, OpSet); err != nil {
		return err
	}
	if ttl < 0 {
		return cache.ErrInvalidTTL
	}
	m.store(key, value, ttl)
	return nil
}

// Delete implements cache.Cache.
func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, OpDelete); err != nil {
		return err
	}
	delete(m.entries, key)
	return nil
}

// GetOrSet implements cache.Cache.
func (m *MockCache) GetOrSet(ctx context.Context, key string, value []byte, ttl time.Duration) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, OpGetOrSet); err != nil {
		return nil, false, err
	}
	if ttl < 0 {
		return nil, false, cache.ErrInvalidTTL
	}
	if existing, ok := m.lookup(key); ok {
		return bytes.Clone(existing), false, nil
	}
	m.store(key, value, ttl)
	return bytes.Clone(value), true, nil
}

// CompareAndSet implements cache.Cache. A nil expectedValue sets only when the key is absent.
func (m *MockCache) CompareAndSet(ctx context.Context, key string, expectedValue, newValue []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, OpCompareAndSet); err != nil {
		return false, err
	}
	if ttl < 0 {
		return false, cache.ErrInvalidTTL
	}

	current, ok := m.lookup(key)
	switch {
	case expectedValue == nil && ok:
		return false, nil
	case expectedValue != nil && (!ok || !bytes.Equal(current, expectedValue)):
		return false, nil
	}
	m.store(key, newValue, ttl)
	return true, nil
}

// Health implements cache.Cache.
func (m *MockCache) Health(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.begin(ctx, OpHealth)
}

// Stats implements cache.Cache.
func (m *MockCache) Stats() (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(context.Background(), OpStats); err != nil {
		return nil, err
	}
	return map[string]any{
		"entry_count": len(m.entries),
		"get_calls":   m.calls[OpGet],
		"set_calls":   m.calls[OpSet],
	}, nil
}

// Close implements cache.Cache. A second Close returns cache.ErrClosed.
func (m *MockCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls[OpClose]++
	if err := m.failures[OpClose]; err != nil {
		return err
	}
	if m.closed {
		return cache.ErrClosed
	}
	m.closed = true
	m.entries = make(map[string]entry)
	return nil
}

// OperationCount returns how many times op was called.
func (m *MockCache) OperationCount(op string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Raw returns the stored bytes for key without touching call counters.
func (m *MockCache) Raw(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.lookup(key)
	return bytes.Clone(value), ok
}

// Keys returns the live keys in sorted order.
func (m *MockCache) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		if _, ok := m.lookup(key); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// IsClosed reports whether Close succeeded.
func (m *MockCache) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ cache.Cache = (*MockCache)(nil)
