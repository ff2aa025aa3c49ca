package testcontainers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 30 * time.Second

// TestContext owns the Redis container and client for one test, and tears
// both down in Cleanup.
type TestContext struct {
	t *testing.T

	ctx        context.Context
	cancelFunc context.CancelFunc
	cleanup    []func()

	redisContainer *RedisContainer

	// Redis is a client connected to the container, for direct assertions
	// on stored keys.
	Redis *redis.Client
}

// NewTestContext starts the Redis container and connects a client. It fails
// the test if the container cannot start.
func NewTestContext(t *testing.T) *TestContext {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	tc := &TestContext{
		t:          t,
		ctx:        ctx,
		cancelFunc: cancel,
		cleanup:    make([]func(), 0),
	}

	if err := tc.initRedis(); err != nil {
		t.Fatalf("Failed to initialize Redis: %v", err)
	}

	return tc
}

// WithTestContext runs fn with a test context and cleans up afterwards.
func WithTestContext(t *testing.T, fn func(*TestContext)) {
	t.Helper()

	ctx := NewTestContext(t)
	defer ctx.Cleanup()

	fn(ctx)
}

// Context returns the container lifecycle context.
func (tc *TestContext) Context() context.Context {
	return tc.ctx
}

// Addr returns the container address in host:port form.
func (tc *TestContext) Addr() string {
	return tc.redisContainer.GetAddress()
}

// Host returns the container host.
func (tc *TestContext) Host() string {
	return tc.redisContainer.Host
}

// Port returns the mapped Redis port.
func (tc *TestContext) Port() int {
	return tc.redisContainer.Port
}

// Cleanup tears down resources in reverse order of creation.
func (tc *TestContext) Cleanup() {
	for i := len(tc.cleanup) - 1; i >= 0; i-- {
		tc.cleanup[i]()
	}

	tc.cancelFunc()
}

func (tc *TestContext) addCleanup(fn func()) {
	tc.cleanup = append(tc.cleanup, fn)
}

func (tc *TestContext) initRedis() error {
	container, err := NewRedisContainer(tc.ctx)
	if err != nil {
		return fmt.Errorf("failed to create Redis container: %w", err)
	}

	tc.redisContainer = container
	tc.addCleanup(func() {
		if err := container.Terminate(tc.ctx); err != nil {
			tc.t.Errorf("Failed to terminate Redis container: %v", err)
		}
	})

	tc.Redis = redis.NewClient(&redis.Options{
		Addr: container.GetAddress(),
		DB:   0,
	})
	tc.addCleanup(func() {
		if err := tc.Redis.Close(); err != nil {
			tc.t.Errorf("Failed to close Redis client: %v", err)
		}
	})

	return nil
}
