// Package testing provides shared constants for redisbridge tests.
//
// The containers subpackage starts real Redis servers through testcontainers-go
// for tests built with the integration tag:
//
//	import (
//		testconsts "github.com/gaborage/redisbridge/testing"
//		"github.com/gaborage/redisbridge/testing/containers"
//	)
package testing
