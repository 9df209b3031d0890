package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gaborage/redisbridge/cache"
)

// AssertCacheHit asserts that key is present in c.
func AssertCacheHit(t *testing.T, c cache.Cache, key string) {
	t.Helper()
	_, err := c.Get(context.Background(), key)
	assert.NoError(t, err, "expected cache hit for key %q", key)
}

// AssertCacheMiss asserts that key is absent from c.
func AssertCacheMiss(t *testing.T, c cache.Cache, key string) {
	t.Helper()
	_, err := c.Get(context.Background(), key)
	assert.True(t, errors.Is(err, cache.ErrNotFound), "expected cache miss for key %q, got %v", key, err)
}

// AssertValue asserts that key holds exactly expected.
func AssertValue(t *testing.T, c cache.Cache, key string, expected []byte) {
	t.Helper()
	got, err := c.Get(context.Background(), key)
	if assert.NoError(t, err, "key %q", key) {
		assert.Equal(t, expected, got, "value of key %q", key)
	}
}

// AssertOperationCount asserts the number of calls of op on mock.
func AssertOperationCount(t *testing.T, mock *MockCache, op string, expected int64) {
	t.Helper()
	assert.Equal(t, expected, mock.OperationCount(op), "operation count for %s", op)
}

// AssertKeyExists asserts that key is stored in mock, without counting a Get.
func AssertKeyExists(t *testing.T, mock *MockCache, key string) {
	t.Helper()
	_, ok := mock.Raw(key)
	assert.True(t, ok, "expected key %q to exist; keys: %v", key, mock.Keys())
}

// AssertKeyNotExists asserts that key is not stored in mock, without counting a Get.
func AssertKeyNotExists(t *testing.T, mock *MockCache, key string) {
	t.Helper()
	_, ok := mock.Raw(key)
	assert.False(t, ok, "expected key %q to be absent", key)
}
