package logger

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRedisCounter(t *testing.T) {
	ctx := WithRedisCounter(context.Background())
	assert.Zero(t, GetRedisCounter(ctx))
	assert.Zero(t, GetRedisElapsed(ctx))

	IncrementRedisCounter(ctx)
	IncrementRedisCounter(ctx)
	AddRedisElapsed(ctx, 1_500_000)
	AddRedisElapsed(ctx, 500_000)

	assert.Equal(t, int64(2), GetRedisCounter(ctx))
	assert.Equal(t, int64(2_000_000), GetRedisElapsed(ctx))
}

func TestRedisCounterWithoutInitialization(t *testing.T) {
	ctx := context.Background()

	IncrementRedisCounter(ctx)
	AddRedisElapsed(ctx, 1000)

	assert.Zero(t, GetRedisCounter(ctx))
	assert.Zero(t, GetRedisElapsed(ctx))

	//nolint:staticcheck // nil contexts are tolerated
	assert.Zero(t, GetRedisCounter(nil))
}

func TestRedisCounterConcurrent(t *testing.T) {
	ctx := WithRedisCounter(context.Background())

	const goroutines, perGoroutine = 10, 100
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perGoroutine {
				IncrementRedisCounter(ctx)
				AddRedisElapsed(ctx, 10)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(goroutines*perGoroutine), GetRedisCounter(ctx))
	assert.Equal(t, int64(goroutines*perGoroutine*10), GetRedisElapsed(ctx))
}

type foreignKey string

func TestContextKeysDoNotCollide(t *testing.T) {
	ctx := context.WithValue(context.Background(), foreignKey("redis_command_counter"), "foreign")
	ctx = WithRedisCounter(ctx)
	IncrementRedisCounter(ctx)

	assert.Equal(t, "foreign", ctx.Value(foreignKey("redis_command_counter")))
	assert.Equal(t, int64(1), GetRedisCounter(ctx))
}

func TestWithSeverityHook(t *testing.T) {
	assert.Nil(t, severityHookFromContext(context.Background()))

	base := context.Background()
	assert.Equal(t, base, WithSeverityHook(base, nil))

	called := false
	ctx := WithSeverityHook(base, func(zerolog.Level) { called = true })
	hook := severityHookFromContext(ctx)
	if assert.NotNil(t, hook) {
		hook(zerolog.ErrorLevel)
	}
	assert.True(t, called)
}
