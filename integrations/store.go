package integrations

import (
	"context"
	"time"
)

// KeyValueStore is the expiring key-value surface the hub stores everything
// in. The Redis-backed implementation lives in the redis package; tests use
// an in-memory one. Implementations must be safe for concurrent use and must
// enforce TTL expiry at the storage layer, so a Get never returns an expired
// value.
type KeyValueStore interface {
	// Get returns the value for key. The second return is false on a miss.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes the value. A zero ttl means the key does not expire.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether the key is present.
	Exists(ctx context.Context, key string) (bool, error)
}
