package logger

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
)

type contextKey string

const (
	redisCounterKey contextKey = "redis_command_counter"
	redisElapsedKey contextKey = "redis_elapsed_nanos"
	severityHookKey contextKey = "severity_hook"
)

// WithRedisCounter returns a context that counts Redis commands and their total
// latency. Cache operations executed with the returned context update both.
func WithRedisCounter(ctx context.Context) context.Context {
	counter := int64(0)
	elapsed := int64(0)
	ctx = context.WithValue(ctx, redisCounterKey, &counter)
	ctx = context.WithValue(ctx, redisElapsedKey, &elapsed)
	return ctx
}

// IncrementRedisCounter increments the command counter in ctx, if any.
func IncrementRedisCounter(ctx context.Context) {
	if ctx == nil {
		return
	}
	if counter, ok := ctx.Value(redisCounterKey).(*int64); ok && counter != nil {
		atomic.AddInt64(counter, 1)
	}
}

// GetRedisCounter returns the number of commands recorded in ctx.
func GetRedisCounter(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if counter, ok := ctx.Value(redisCounterKey).(*int64); ok && counter != nil {
		return atomic.LoadInt64(counter)
	}
	return 0
}

// AddRedisElapsed adds nanos to the elapsed time tracked in ctx, if any.
func AddRedisElapsed(ctx context.Context, nanos int64) {
	if ctx == nil {
		return
	}
	if elapsed, ok := ctx.Value(redisElapsedKey).(*int64); ok && elapsed != nil {
		atomic.AddInt64(elapsed, nanos)
	}
}

// GetRedisElapsed returns the total Redis time in nanoseconds tracked in ctx.
func GetRedisElapsed(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if elapsed, ok := ctx.Value(redisElapsedKey).(*int64); ok && elapsed != nil {
		return atomic.LoadInt64(elapsed)
	}
	return 0
}

// WithSeverityHook attaches a callback that fires for every WARN or higher entry
// logged through a logger bound to the returned context.
func WithSeverityHook(ctx context.Context, hook func(zerolog.Level)) context.Context {
	if ctx == nil || hook == nil {
		return ctx
	}
	return context.WithValue(ctx, severityHookKey, hook)
}

func severityHookFromContext(ctx context.Context) func(zerolog.Level) {
	if ctx == nil {
		return nil
	}
	if hook, ok := ctx.Value(severityHookKey).(func(zerolog.Level)); ok {
		return hook
	}
	return nil
}
