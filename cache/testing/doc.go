// Package testing provides an in-memory cache.Cache and assertion helpers for unit tests
// of code that sits on top of the shared Redis handle, such as cache.Template.
//
// # Basic Usage
//
//	mock := testing.NewMockCache()
//	tmpl := cache.NewTemplate[User](mock, keyCodec, valueCodec)
//	_ = tmpl.Put(ctx, "user:1", User{Name: "Alice"}, time.Minute)
//	AssertKeyExists(t, mock, "user:1")
//
// # Simulating Failures
//
//	mock := testing.NewMockCache().WithFailure(OpGet, errors.New("connection reset"))
//
// For tests that need real Redis behavior use miniredis with the cache/redis package,
// or testing/containers for integration tests.
package testing
