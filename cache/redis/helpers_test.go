package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/redisbridge/config"
	"github.com/gaborage/redisbridge/logger"
	testconsts "github.com/gaborage/redisbridge/testing"
	"github.com/gaborage/redisbridge/topology"
)

func testLogger() logger.Logger {
	return logger.New(testconsts.TestLoggerLevelDisabled, false)
}

// resolveT resolves props and fails the test on error.
func resolveT(t *testing.T, props config.Properties) *topology.ClientConfig {
	t.Helper()
	cfg, err := topology.Resolve(props)
	require.NoError(t, err)
	return cfg
}

// connectT connects cfg and closes the handle when the test ends.
func connectT(t *testing.T, cfg *topology.ClientConfig) *Handle {
	t.Helper()
	h, err := Connect(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

// singleHandle starts a miniredis server and connects a single-mode handle to it.
func singleHandle(t *testing.T, mutate ...func(*config.Properties)) (*Handle, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	props := config.Properties{Mode: "single", Address: mr.Addr()}
	for _, m := range mutate {
		m(&props)
	}
	return connectT(t, resolveT(t, props)), mr
}

// stubRoles replaces the ROLE probe with a lookup by host:port.
func stubRoles(t *testing.T, roles map[string]string) {
	t.Helper()
	orig := probeRole
	probeRole = func(_ context.Context, c *redis.Client) (string, error) {
		return roles[c.Options().Addr], nil
	}
	t.Cleanup(func() { probeRole = orig })
}
