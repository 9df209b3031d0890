package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"10.0.0.1:6379", "redis://10.0.0.1:6379"},
		{"redis://10.0.0.1:6379", "redis://10.0.0.1:6379"},
		{"rediss://cache.example.com:6380", "rediss://cache.example.com:6380"},
		{"REDIS://Host:6379", "REDIS://Host:6379"},
		{"  host:6379\t", "redis://host:6379"},
		{"redis-primary:6379", "redis://redis-primary:6379"},
		{"[::1]:6379", "redis://[::1]:6379"},
		{"", "redis://"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeAddress(tt.in))
		})
	}
}

func TestNormalizeAddressIdempotent(t *testing.T) {
	inputs := []string{
		"", " ", "host:1", "redis://host:1", "rediss://host:1", "Redis://h:2",
		"redis:/host:1", "redis", "rediss", " redis://x:1 ", "tcp://host:1", "::::",
	}
	for _, in := range inputs {
		once := NormalizeAddress(in)
		assert.Equal(t, once, NormalizeAddress(once), "input %q", in)
	}
}

func FuzzNormalizeAddress(f *testing.F) {
	for _, seed := range []string{"10.0.0.1:6379", "redis://h:1", "rediss://h:1", "  x ", ""} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, addr string) {
		once := NormalizeAddress(addr)
		if twice := NormalizeAddress(once); twice != once {
			t.Fatalf("NormalizeAddress not idempotent for %q: %q != %q", addr, once, twice)
		}
	})
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("10.0.0.1:6379")
	require.NoError(t, err)
	assert.Equal(t, Address{URL: "redis://10.0.0.1:6379", Host: "10.0.0.1", Port: 6379}, addr)
	assert.Equal(t, "10.0.0.1:6379", addr.HostPort())
	assert.Equal(t, "redis://10.0.0.1:6379", addr.String())

	addr, err = ParseAddress("rediss://cache.example.com:6380")
	require.NoError(t, err)
	assert.True(t, addr.TLS)
	assert.Equal(t, "cache.example.com:6380", addr.HostPort())

	addr, err = ParseAddress("REDISS://[::1]:7000")
	require.NoError(t, err)
	assert.True(t, addr.TLS)
	assert.Equal(t, "[::1]:7000", addr.HostPort())
}

func TestParseAddressMalformed(t *testing.T) {
	for _, in := range []string{"", "redis://", "host", "host:", "host:abc", ":6379", "host:0", "host:70000", "redis://host:6379:1"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseAddress(in)
			assert.Error(t, err)
		})
	}
}
