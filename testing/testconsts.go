package testing

import "time"

// Logger Constants
// These constants define common logger configurations used across test files.
const (
	// TestLoggerLevelDisabled completely disables logging in tests
	TestLoggerLevelDisabled = "disabled"
)

// Cache and Lock Names
// Common key and lock names used across cache, template and lock tests.
const (
	TestCacheKey     = "test:key"
	TestValueDefault = "test-value"
	TestLockName     = "test:lock"
	TestMasterName   = "mymaster"
)

// Time Duration Constants
// Common time durations used in test synchronization and timeouts.
const (
	// TestShortDelay is a short delay for goroutine synchronization (100ms)
	TestShortDelay = 100 * time.Millisecond
	// TestConnectTimeout bounds dials to addresses that are expected to fail (200ms)
	TestConnectTimeout = 200 * time.Millisecond
	// TestPingTimeout bounds the initial health check in failure tests (1 second)
	TestPingTimeout = 1 * time.Second
	// TestEventuallyTimeout is the timeout for require.Eventually assertions (5 seconds)
	TestEventuallyTimeout = 5 * time.Second
	// TestEventuallyTick is the polling interval for require.Eventually (100ms)
	TestEventuallyTick = 100 * time.Millisecond
)

// Addresses
const (
	// TestUnreachableAddr is a local address nothing listens on
	TestUnreachableAddr = "127.0.0.1:1"
)
