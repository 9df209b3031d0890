package cache

import "time"

// Codec operation names carried by CodecError.
const (
	OpEncode = "encode"
	OpDecode = "decode"
)

// Test-Specific Time Durations
//
// These constants are used in test files to express expiration behavior
// without hardcoding magic numbers.

const (
	// TestShortTTL is a very short TTL for testing expiration behavior.
	TestShortTTL = 100 * time.Millisecond

	// TestMediumTTL is a moderate TTL for test data that should persist during test execution.
	TestMediumTTL = 5 * time.Second
)
