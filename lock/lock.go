// Package lock provides distributed locks over a shared Redis handle.
//
// Locks are leased for the configured lock watchdog timeout and renewed in the
// background at a third of the lease for as long as they are held, so a crashed
// holder releases its locks once the lease runs out.
package lock

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	redsyncredis "github.com/go-redsync/redsync/v4/redis"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"

	"github.com/gaborage/redisbridge/cache"
	"github.com/gaborage/redisbridge/cache/redis"
	"github.com/gaborage/redisbridge/logger"
)

const (
	// DefaultLease applies when lockWatchdogTimeout is not configured.
	DefaultLease = 30 * time.Second

	minRenewInterval = 10 * time.Millisecond
	releaseTimeout   = 5 * time.Second
)

var (
	// ErrNotAcquired is returned when a lock is held elsewhere or the context ended first.
	ErrNotAcquired = errors.New("lock: not acquired")

	// ErrNotHeld is returned when releasing a lock that was already released or lost.
	ErrNotHeld = errors.New("lock: not held")
)

// Locker creates distributed locks on the master of a Redis handle.
type Locker struct {
	rs     *redsync.Redsync
	handle *redis.Handle
	lease  time.Duration
	log    logger.Logger
}

// New creates a Locker over h. The lease comes from the handle's lockWatchdogTimeout.
func New(h *redis.Handle, log logger.Logger) (*Locker, error) {
	if h == nil {
		return nil, cache.NewConfigError("handle", "redis handle is required", nil)
	}

	lease := h.Config().Global.LockWatchdogTimeout
	if lease <= 0 {
		lease = DefaultLease
	}

	return &Locker{
		rs:     redsync.New(masterPool{h}),
		handle: h,
		lease:  lease,
		log:    log,
	}, nil
}

// masterPool hands redsync the handle's current master, which changes when a
// replicated topology fails over.
type masterPool struct {
	h *redis.Handle
}

func (p masterPool) Get(ctx context.Context) (redsyncredis.Conn, error) {
	return goredis.NewPool(p.h.Client()).Get(ctx)
}

// Lease returns the lease applied to every lock.
func (l *Locker) Lease() time.Duration {
	return l.lease
}

// Acquire blocks until the lock is obtained or ctx is done.
func (l *Locker) Acquire(ctx context.Context, name string) (*Lock, error) {
	return l.acquire(ctx, name, math.MaxInt32)
}

// TryAcquire makes a single attempt and returns ErrNotAcquired when the lock is taken.
func (l *Locker) TryAcquire(ctx context.Context, name string) (*Lock, error) {
	return l.acquire(ctx, name, 1)
}

func (l *Locker) acquire(ctx context.Context, name string, tries int) (*Lock, error) {
	if l.handle.Closed() {
		return nil, cache.ErrClosed
	}

	m := l.rs.NewMutex(name,
		redsync.WithExpiry(l.lease),
		redsync.WithTries(tries),
	)
	if err := m.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, name, err)
	}

	renewCtx, cancel := context.WithCancel(context.Background())
	lk := &Lock{
		mutex:  m,
		name:   name,
		lease:  l.lease,
		log:    l.log,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go lk.renew(renewCtx)

	l.log.Debug().Str("lock", name).Dur("lease", l.lease).Msg("Lock acquired")
	return lk, nil
}

// Lock is a held distributed lock. Release it exactly once.
type Lock struct {
	mu     sync.Mutex
	mutex  *redsync.Mutex
	name   string
	lease  time.Duration
	log    logger.Logger
	lost   bool
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Name returns the lock key.
func (lk *Lock) Name() string {
	return lk.name
}

// Until returns when the current lease ends unless it is renewed.
func (lk *Lock) Until() time.Time {
	lk.mu.Lock()
	defer lk.mu.Unlock()
	return lk.mutex.Until()
}

// Held reports whether the lock is still held by this process.
func (lk *Lock) Held() bool {
	lk.mu.Lock()
	defer lk.mu.Unlock()
	return !lk.lost && !lk.released()
}

func (lk *Lock) released() bool {
	select {
	case <-lk.done:
		return true
	default:
		return false
	}
}

// renew extends the lease at a third of its length until the lock is released or lost.
func (lk *Lock) renew(ctx context.Context) {
	interval := max(lk.lease/3, minRenewInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			extendCtx, cancel := context.WithTimeout(ctx, interval)
			lk.mu.Lock()
			ok, err := lk.mutex.ExtendContext(extendCtx)
			if !ok && ctx.Err() == nil {
				lk.lost = true
			}
			lk.mu.Unlock()
			cancel()

			if !ok {
				if ctx.Err() == nil {
					lk.log.Warn().Err(err).Str("lock", lk.name).Msg("Lock lease could not be renewed")
				}
				return
			}
		}
	}
}

// Release stops renewal and deletes the lock if this process still owns it.
// Releasing twice, or after the lease was lost, returns ErrNotHeld.
func (lk *Lock) Release(ctx context.Context) error {
	first := false
	lk.once.Do(func() {
		first = true
		lk.cancel()
		close(lk.done)
	})
	if !first {
		return ErrNotHeld
	}

	ctx, cancel := context.WithTimeout(ctx, releaseTimeout)
	defer cancel()

	lk.mu.Lock()
	ok, err := lk.mutex.UnlockContext(ctx)
	lk.mu.Unlock()

	if !ok {
		if err == nil || errors.Is(err, redsync.ErrLockAlreadyExpired) {
			return fmt.Errorf("%w: %s", ErrNotHeld, lk.name)
		}
		return fmt.Errorf("%w: %s: %w", ErrNotHeld, lk.name, err)
	}

	lk.log.Debug().Str("lock", lk.name).Msg("Lock released")
	return nil
}
