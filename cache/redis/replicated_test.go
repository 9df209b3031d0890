package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/redisbridge/cache"
	"github.com/gaborage/redisbridge/config"
)

// roleSwitch reports the master role for a single address that tests can move.
type roleSwitch struct {
	mu     sync.Mutex
	master string
	err    error
}

func (s *roleSwitch) set(master string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.master, s.err = master, err
}

// stubMaster replaces the ROLE probe with a roleSwitch starting at master.
// Install it before connecting so the handle closes before the probe is restored.
func stubMaster(t *testing.T, master string) *roleSwitch {
	t.Helper()
	s := &roleSwitch{master: master}
	orig := probeRole
	probeRole = func(_ context.Context, c *redis.Client) (string, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.err != nil {
			return "", s.err
		}
		if c.Options().Addr == s.master {
			return roleMaster, nil
		}
		return "slave", nil
	}
	t.Cleanup(func() { probeRole = orig })
	return s
}

func writerAddr(t *testing.T, h *Handle) string {
	t.Helper()
	c, ok := h.Client().(*redis.Client)
	require.True(t, ok)
	return c.Options().Addr
}

func TestReplicatedRescanFollowsMaster(t *testing.T) {
	n1 := miniredis.RunT(t)
	n2 := miniredis.RunT(t)
	n3 := miniredis.RunT(t)
	roles := stubMaster(t, n1.Addr())

	h := connectT(t, resolveT(t, config.Properties{
		Mode:          "replicated",
		NodeAddresses: []string{n1.Addr(), n2.Addr(), n3.Addr()},
		ReadMode:      "SLAVE",
	}))
	require.Equal(t, n1.Addr(), writerAddr(t, h))

	previous, err := h.rescanReplicated(context.Background())
	require.NoError(t, err)
	assert.Empty(t, previous, "unchanged master keeps the routing")

	roles.set(n2.Addr(), nil)
	previous, err = h.rescanReplicated(context.Background())
	require.NoError(t, err)
	assert.Equal(t, n1.Addr(), previous)
	assert.Equal(t, n2.Addr(), writerAddr(t, h))

	client, err := NewClient(h, testLogger())
	require.NoError(t, err)
	require.NoError(t, client.Set(context.Background(), testKey1, []byte("after-failover"), 0))
	got, err := n2.Get(testKey1)
	require.NoError(t, err)
	assert.Equal(t, "after-failover", got)
	assert.False(t, n1.Exists(testKey1))

	for range 6 {
		reader, ok := h.Reader().(*redis.Client)
		require.True(t, ok)
		assert.NotEqual(t, n2.Addr(), reader.Options().Addr, "SLAVE reads never hit the new master")
	}
}

func TestReplicatedRescanKeepsRoutingOnFailure(t *testing.T) {
	n1 := miniredis.RunT(t)
	n2 := miniredis.RunT(t)
	roles := stubMaster(t, n1.Addr())

	h := connectT(t, resolveT(t, config.Properties{
		Mode:          "replicated",
		NodeAddresses: []string{n1.Addr(), n2.Addr()},
	}))

	tests := []struct {
		name   string
		master string
		err    error
		want   error
	}{
		{name: "no_master", master: "", want: errNoMaster},
		{name: "role_error", master: n2.Addr(), err: errUnexpectedRole, want: errUnexpectedRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roles.set(tt.master, tt.err)

			previous, err := h.rescanReplicated(context.Background())
			assert.Empty(t, previous)

			var connErr *cache.ConnectionError
			require.ErrorAs(t, err, &connErr)
			assert.Equal(t, "role", connErr.Op)
			assert.True(t, errors.Is(err, tt.want))
			assert.Equal(t, n1.Addr(), writerAddr(t, h))
		})
	}
}

func TestReplicatedMonitorSwapsMaster(t *testing.T) {
	n1 := miniredis.RunT(t)
	n2 := miniredis.RunT(t)
	roles := stubMaster(t, n1.Addr())

	h := connectT(t, resolveT(t, config.Properties{
		Mode:          "replicated",
		NodeAddresses: []string{n1.Addr(), n2.Addr()},
		ScanInterval:  10 * time.Millisecond,
	}))
	require.NotNil(t, h.stopMonitor)
	require.Equal(t, n1.Addr(), writerAddr(t, h))

	roles.set(n2.Addr(), nil)
	assert.Eventually(t, func() bool {
		c, ok := h.Client().(*redis.Client)
		return ok && c.Options().Addr == n2.Addr()
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, h.Close())
	select {
	case <-h.monitorDone:
	default:
		t.Fatal("monitor still running after Close")
	}
}

func TestReplicatedWithoutScanIntervalIsNotMonitored(t *testing.T) {
	n1 := miniredis.RunT(t)
	stubMaster(t, n1.Addr())

	h := connectT(t, resolveT(t, config.Properties{
		Mode:          "replicated",
		NodeAddresses: []string{n1.Addr()},
	}))
	assert.Nil(t, h.stopMonitor)
	assert.Nil(t, h.monitorDone)
}
