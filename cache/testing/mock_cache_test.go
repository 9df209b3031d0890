package testing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/redisbridge/cache"
)

func TestMockCacheBasicOperations(t *testing.T) {
	ctx := context.Background()
	mock := NewMockCache()

	require.NoError(t, mock.Set(ctx, "user:1", []byte("alice"), time.Minute))
	AssertValue(t, mock, "user:1", []byte("alice"))
	AssertCacheMiss(t, mock, "user:2")

	require.NoError(t, mock.Delete(ctx, "user:1"))
	AssertKeyNotExists(t, mock, "user:1")
	require.NoError(t, mock.Delete(ctx, "user:1"), "delete is idempotent")

	assert.ErrorIs(t, mock.Set(ctx, "k", []byte("v"), -time.Second), cache.ErrInvalidTTL)
	AssertOperationCount(t, mock, OpGet, 2)
	AssertOperationCount(t, mock, OpSet, 2)
	AssertOperationCount(t, mock, OpDelete, 2)
}

func TestMockCacheExpiration(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock := NewMockCache().WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, mock.Set(ctx, "short", []byte("x"), time.Second))
	require.NoError(t, mock.Set(ctx, "forever", []byte("y"), 0))
	assert.Equal(t, []string{"forever", "short"}, mock.Keys())

	now = now.Add(2 * time.Second)
	AssertCacheMiss(t, mock, "short")
	AssertCacheHit(t, mock, "forever")
}

func TestMockCacheGetOrSetAndCAS(t *testing.T) {
	ctx := context.Background()
	mock := NewMockCache()

	stored, wasSet, err := mock.GetOrSet(ctx, "job", []byte("first"), time.Minute)
	require.NoError(t, err)
	assert.True(t, wasSet)
	assert.Equal(t, []byte("first"), stored)

	stored, wasSet, err = mock.GetOrSet(ctx, "job", []byte("second"), time.Minute)
	require.NoError(t, err)
	assert.False(t, wasSet)
	assert.Equal(t, []byte("first"), stored)

	ok, err := mock.CompareAndSet(ctx, "lock", nil, []byte("w1"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mock.CompareAndSet(ctx, "lock", nil, []byte("w2"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = mock.CompareAndSet(ctx, "lock", []byte("w2"), []byte("w3"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = mock.CompareAndSet(ctx, "lock", []byte("w1"), []byte("w3"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	AssertValue(t, mock, "lock", []byte("w3"))

	require.NoError(t, mock.Set(ctx, "empty", []byte{}, 0))
	ok, err = mock.CompareAndSet(ctx, "empty", nil, []byte("w1"), 0)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = mock.CompareAndSet(ctx, "empty", []byte{}, []byte("w1"), 0)
	require.NoError(t, err)
	assert.True(t, ok)
	AssertValue(t, mock, "empty", []byte("w1"))
}

func TestMockCacheFailuresAndClose(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection reset")
	mock := NewMockCache().WithFailure(OpGet, boom)

	_, err := mock.Get(ctx, "k")
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.Health(ctx))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, mock.Set(canceled, "k", nil, 0), context.Canceled)

	require.NoError(t, mock.Close())
	assert.True(t, mock.IsClosed())
	assert.ErrorIs(t, mock.Close(), cache.ErrClosed)
	assert.ErrorIs(t, mock.Delete(ctx, "k"), cache.ErrClosed)
	_, err = mock.Stats()
	assert.ErrorIs(t, err, cache.ErrClosed)
}
