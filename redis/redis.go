// Package redis provides the process-wide Redis handles: the expiring
// key-value store all integration state lives in, plus the asynq client and
// server used for background tasks.
package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Vector/vector-integration-hub/redis/config"
)

// Store wraps a go-redis client behind the expiring key-value contract the
// integrations layer depends on. It is opened once at startup and closed at
// process exit; the underlying client is safe for concurrent use.
type Store struct {
	client *goredis.Client
}

// NewStore connects to Redis and verifies the connection with a ping.
func NewStore(ctx context.Context, cfg *config.RedisConfig) (*Store, error) {
	opts := &goredis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := goredis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client}, nil
}

// Get returns the value for key; the second return is false on a miss.
// Expiry is enforced by Redis itself, so an expired key is simply absent.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}

	return value, true, nil
}

// Set writes the value. A zero ttl stores the key without expiration.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

// Delete removes the key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}

	return nil
}

// Exists reports whether the key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", key, err)
	}

	return n > 0, nil
}

// IsHealthy checks if the Redis connection is healthy.
func (s *Store) IsHealthy(ctx context.Context) bool {
	return s.client.Ping(ctx).Err() == nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis store: %w", err)
	}

	return nil
}
