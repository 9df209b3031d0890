//go:build integration

// Package containers starts disposable Redis servers for integration tests.
package containers

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	defaultImageTag       = "7-alpine"
	defaultStartupTimeout = 60 * time.Second
	redisPort             = "6379/tcp"
)

// RedisConfig describes the server to start.
type RedisConfig struct {
	// ImageTag selects the redis image, "7-alpine" by default.
	ImageTag string
	// Password, when set, is passed to the server as requirepass.
	Password       string
	StartupTimeout time.Duration
}

// DefaultRedisConfig returns a password-less redis:7-alpine with a one minute startup budget.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{ImageTag: defaultImageTag, StartupTimeout: defaultStartupTimeout}
}

// Redis is a running container and the endpoint it is reachable on.
type Redis struct {
	container *redis.RedisContainer
	host      string
	port      int
	password  string
}

// StartRedis starts a container described by cfg, nil meaning DefaultRedisConfig.
// The test is skipped when no Docker daemon is reachable.
func StartRedis(ctx context.Context, t *testing.T, cfg *RedisConfig) (*Redis, error) {
	t.Helper()

	if cfg == nil {
		cfg = DefaultRedisConfig()
	}
	if cfg.ImageTag == "" {
		cfg.ImageTag = defaultImageTag
	}
	if cfg.StartupTimeout == 0 {
		cfg.StartupTimeout = defaultStartupTimeout
	}

	if !dockerAvailable(ctx) {
		t.Skip("Docker is not available - skipping integration test")
		return nil, nil
	}

	opts := []testcontainers.ContainerCustomizer{
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(cfg.StartupTimeout),
		),
	}
	if cfg.Password != "" {
		opts = append(opts, testcontainers.WithCmd("redis-server", "--requirepass", cfg.Password))
	}

	c, err := redis.Run(ctx, fmt.Sprintf("redis:%s", cfg.ImageTag), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start redis container: %w", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get redis host: %w", err)
	}
	port, err := c.MappedPort(ctx, redisPort)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get redis port: %w", err)
	}

	t.Logf("redis container listening on %s:%d", host, port.Int())
	return &Redis{container: c, host: host, port: port.Int(), password: cfg.Password}, nil
}

// MustStartRedis is StartRedis that fails the test on error and terminates the
// container when the test ends.
func MustStartRedis(ctx context.Context, t *testing.T, cfg *RedisConfig) *Redis {
	t.Helper()

	r, err := StartRedis(ctx, t, cfg)
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := r.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})
	return r
}

// Address returns the redis:// URL of the container, ready for node address properties.
func (r *Redis) Address() string {
	return fmt.Sprintf("redis://%s", net.JoinHostPort(r.host, strconv.Itoa(r.port)))
}

// Password returns the requirepass value the server was started with.
func (r *Redis) Password() string { return r.password }

func (r *Redis) Terminate(ctx context.Context) error {
	if r == nil || r.container == nil {
		return nil
	}
	return r.container.Terminate(ctx)
}

func dockerAvailable(ctx context.Context) bool {
	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	defer provider.Close()

	_, err = provider.DaemonHost(ctx)
	return err == nil
}
