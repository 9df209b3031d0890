package observability

import (
	"context"
	"fmt"
	"time"
)

// DefaultShutdownTimeout bounds the final metric flush.
const DefaultShutdownTimeout = 10 * time.Second

// Shutdown stops provider within timeout, flushing what it still holds.
// A nil provider is a no-op; a non-positive timeout means DefaultShutdownTimeout.
func Shutdown(provider Provider, timeout time.Duration) error {
	if provider == nil {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("observability shutdown failed: %w", err)
	}
	return nil
}
