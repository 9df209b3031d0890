package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gaborage/redisbridge/cache"
	"github.com/gaborage/redisbridge/cache/internal/tracking"
	"github.com/gaborage/redisbridge/logger"
)

// compareAndSetSource swaps KEYS[1] to ARGV[3]. With ARGV[1] == "1" the key must be
// absent, otherwise it must hold ARGV[2]. ARGV[4] is the TTL in ms, 0 for none.
const compareAndSetSource = `
local current = redis.call('GET', KEYS[1])
local matches
if ARGV[1] == "1" then
	matches = (current == false)
else
	matches = (current == ARGV[2])
end
if not matches then
	return 0
end
local ttl = tonumber(ARGV[4])
if ttl > 0 then
	redis.call('SET', KEYS[1], ARGV[3], 'PX', ttl)
else
	redis.call('SET', KEYS[1], ARGV[3])
end
return 1
`

var compareAndSetScript = redis.NewScript(compareAndSetSource)

const statsTimeout = 3 * time.Second

var _ cache.Cache = (*Client)(nil)

// Client is the byte-oriented cache over a shared Handle. Reads follow the handle's
// read routing; writes and scripts always go to the master.
type Client struct {
	handle *Handle
	log    logger.Logger
	mode   string
	closed atomic.Bool
}

// NewClient creates a cache client over an open handle.
// The handle stays owned by the caller; closing the client does not close it.
func NewClient(h *Handle, log logger.Logger) (*Client, error) {
	if h == nil {
		return nil, cache.NewConfigError("handle", "redis handle is required", nil)
	}
	if h.Closed() {
		return nil, cache.ErrClosed
	}
	return &Client{handle: h, log: log, mode: h.Mode().String()}, nil
}

func (c *Client) unavailable() bool {
	return c.closed.Load() || c.handle.Closed()
}

// guard rejects calls on a closed client and negative TTLs.
func (c *Client) guard(ttl time.Duration) error {
	if c.unavailable() {
		return cache.ErrClosed
	}
	if ttl < 0 {
		return cache.ErrInvalidTTL
	}
	return nil
}

func (c *Client) record(ctx context.Context, op string, start time.Time, hit bool, err error) {
	tracking.RecordCacheOperation(ctx, op, time.Since(start), hit, err, c.mode)
}

// Get returns the value stored at key, or cache.ErrNotFound.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if err := c.guard(0); err != nil {
		return nil, err
	}

	start := time.Now()
	value, err := c.handle.Reader().Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		c.record(ctx, tracking.OpGet, start, false, nil)
		return nil, cache.ErrNotFound
	case err != nil:
		c.record(ctx, tracking.OpGet, start, false, err)
		return nil, cache.NewOperationError("get", key, err)
	}
	c.record(ctx, tracking.OpGet, start, true, nil)
	return value, nil
}

// Set stores value at key. A zero ttl keeps the key until it is deleted.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.guard(ttl); err != nil {
		return err
	}

	start := time.Now()
	err := c.handle.Client().Set(ctx, key, value, ttl).Err()
	c.record(ctx, tracking.OpSet, start, false, err)
	if err != nil {
		return cache.NewOperationError("set", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.guard(0); err != nil {
		return err
	}

	start := time.Now()
	err := c.handle.Client().Del(ctx, key).Err()
	c.record(ctx, tracking.OpDelete, start, false, err)
	if err != nil {
		return cache.NewOperationError("delete", key, err)
	}
	return nil
}

// GetOrSet stores value when key is absent and returns whatever key holds afterwards.
// wasSet is true when this call stored value. It is a single SET NX GET round trip.
func (c *Client) GetOrSet(ctx context.Context, key string, value []byte, ttl time.Duration) (storedValue []byte, wasSet bool, err error) {
	if err := c.guard(ttl); err != nil {
		return nil, false, err
	}

	start := time.Now()
	previous, err := c.handle.Client().SetArgs(ctx, key, value, redis.SetArgs{
		Mode: "NX",
		Get:  true,
		TTL:  ttl,
	}).Result()

	switch {
	case errors.Is(err, redis.Nil):
		c.record(ctx, tracking.OpGetOrSet, start, false, nil)
		return value, true, nil
	case err != nil:
		c.record(ctx, tracking.OpGetOrSet, start, false, err)
		return nil, false, cache.NewOperationError("getorset", key, err)
	}
	c.record(ctx, tracking.OpGetOrSet, start, true, nil)
	return []byte(previous), false, nil
}

// CompareAndSet replaces the value at key with newValue if it currently equals
// expectedValue. A nil expectedValue means the key must not exist, while a non-nil
// empty one matches a stored empty value.
// With useScriptCache the script runs through EVALSHA, loading it on a miss.
func (c *Client) CompareAndSet(ctx context.Context, key string, expectedValue, newValue []byte, ttl time.Duration) (bool, error) {
	if err := c.guard(ttl); err != nil {
		return false, err
	}

	keys := []string{key}
	absent := "0"
	if expectedValue == nil {
		absent = "1"
	}
	args := []any{absent, string(expectedValue), newValue, ttl.Milliseconds()}

	start := time.Now()
	var cmd *redis.Cmd
	if c.handle.Config().Global.UseScriptCache {
		cmd = compareAndSetScript.Run(ctx, c.handle.Client(), keys, args...)
	} else {
		cmd = c.handle.Client().Eval(ctx, compareAndSetSource, keys, args...)
	}
	swapped, err := cmd.Int()
	c.record(ctx, tracking.OpCompareAndSet, start, false, err)
	if err != nil {
		return false, cache.NewOperationError("cas", key, err)
	}
	return swapped == 1, nil
}

// Health pings the master.
func (c *Client) Health(ctx context.Context) error {
	if err := c.guard(0); err != nil {
		return err
	}

	start := time.Now()
	err := c.handle.Client().Ping(ctx).Err()
	c.record(ctx, tracking.OpHealth, start, false, err)
	if err != nil {
		return cache.NewConnectionError("ping", joinAddresses(c.handle.Config().Addresses()), err)
	}
	return nil
}

// Stats reports INFO from the master together with the pool counters of every
// client behind the handle.
func (c *Client) Stats() (map[string]any, error) {
	if err := c.guard(0); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()

	info, err := c.handle.Client().Info(ctx).Result()
	if err != nil {
		return nil, cache.NewOperationError("stats", "INFO", err)
	}

	pool := c.handle.poolStats()
	return map[string]any{
		"redis_info":       info,
		"topology_mode":    c.mode,
		"pool_hits":        pool.Hits,
		"pool_misses":      pool.Misses,
		"pool_timeouts":    pool.Timeouts,
		"pool_total_conns": pool.TotalConns,
		"pool_idle_conns":  pool.IdleConns,
	}, nil
}

// Close detaches the client from its handle, which stays open for other users.
// Calling Close again returns cache.ErrClosed.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return cache.ErrClosed
	}
	c.log.Debug().Str("mode", c.mode).Msg("Redis cache client closed")
	return nil
}
