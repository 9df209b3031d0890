package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/redisbridge/cache"
	cachetesting "github.com/gaborage/redisbridge/cache/testing"
)

func TestHealthHealthy(t *testing.T) {
	a, _ := newTestApp(t)

	status := a.Health(context.Background())
	require.NoError(t, status.Err)
	assert.Equal(t, "redis", status.Name)
	assert.Equal(t, healthyStatus, status.Status)
	assert.Equal(t, "single", status.Details["mode"])
	assert.NotContains(t, status.Details, "redis_info")
}

func TestHealthServerDown(t *testing.T) {
	a, mr := newTestApp(t)
	mr.Close()

	status := a.Health(context.Background())
	assert.Equal(t, unhealthyStatus, status.Status)

	var connErr *cache.ConnectionError
	assert.ErrorAs(t, status.Err, &connErr)
}

func TestHealthClosed(t *testing.T) {
	a, _ := newTestApp(t)
	require.NoError(t, a.Close())

	status := a.Health(context.Background())
	assert.Equal(t, closedStatus, status.Status)
	assert.ErrorIs(t, status.Err, cache.ErrClosed)
}

func TestRedisHealthProbeWithMock(t *testing.T) {
	t.Run("failing", func(t *testing.T) {
		mock := cachetesting.NewMockCache().WithFailure(cachetesting.OpHealth, errors.New("boom"))

		status := redisHealthProbe(mock, "cluster").Run(context.Background())
		assert.Equal(t, unhealthyStatus, status.Status)
		assert.Equal(t, "cluster", status.Details["mode"])
		assert.EqualError(t, status.Err, "boom")
	})

	t.Run("stats_error_is_not_fatal", func(t *testing.T) {
		mock := cachetesting.NewMockCache().WithFailure(cachetesting.OpStats, errors.New("no info"))

		status := redisHealthProbe(mock, "sentinel").Run(context.Background())
		assert.NoError(t, status.Err)
		assert.Equal(t, healthyStatus, status.Status)
		assert.Equal(t, map[string]any{"mode": "sentinel"}, status.Details)
	})

	t.Run("stats_merged", func(t *testing.T) {
		mock := cachetesting.NewMockCache()

		status := redisHealthProbe(mock, "single").Run(context.Background())
		assert.Equal(t, healthyStatus, status.Status)
		assert.Equal(t, 0, status.Details["entry_count"])
	})
}
