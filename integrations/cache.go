package integrations

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// DefaultCacheTTL is how long fetched integration data stays cached.
const DefaultCacheTTL = time.Hour

// Encoder serializes a cache payload. The default is encoding/json, which
// picks up the MarshalJSON hook on domain types like Item.
type Encoder func(v any) ([]byte, error)

// Decoder deserializes a cache payload into a generic JSON value.
type Decoder func(data []byte, v any) error

// Cache is the per-(integration, credentials) data cache. Every operation is
// total over the failure domain: store or codec errors are logged and
// reported as a miss or a false return, never raised. Caching is a strict
// optimization and must never fail the primary request path.
type Cache struct {
	store  KeyValueStore
	logger *zap.Logger
	encode Encoder
	decode Decoder
	ttl    time.Duration
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCacheTTL overrides the default expiration for cached payloads.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithEncoder replaces the payload encoder.
func WithEncoder(enc Encoder) CacheOption {
	return func(c *Cache) {
		c.encode = enc
	}
}

// WithDecoder replaces the payload decoder.
func WithDecoder(dec Decoder) CacheOption {
	return func(c *Cache) {
		c.decode = dec
	}
}

// NewCache creates a data cache on top of the given store.
func NewCache(store KeyValueStore, logger *zap.Logger, opts ...CacheOption) *Cache {
	c := &Cache{
		store:  store,
		logger: logger,
		encode: json.Marshal,
		decode: json.Unmarshal,
		ttl:    DefaultCacheTTL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the cached payload for the integration type and credentials,
// decoded into a generic JSON value. The second return is false on a miss,
// on a decode failure or on any store error.
func (c *Cache) Get(ctx context.Context, integrationType string, credentials map[string]any) (any, bool) {
	key, err := DeriveKey(KeyData, integrationType, "", "", "", credentials)
	if err != nil {
		c.logger.Warn("cache get: key derivation failed", zap.Error(err))

		return nil, false
	}

	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache get failed",
			zap.String("integration", integrationType),
			zap.String("reason", "store"),
			zap.Error(err))

		return nil, false
	}

	if !found {
		return nil, false
	}

	var value any
	if err := c.decode([]byte(raw), &value); err != nil {
		c.logger.Warn("cache get failed",
			zap.String("integration", integrationType),
			zap.String("reason", "corrupt"),
			zap.Error(err))

		return nil, false
	}

	return value, true
}

// Set stores the payload under the derived data key. A non-positive ttl
// falls back to the cache default (one hour). It returns false on encode or
// store failure.
func (c *Cache) Set(ctx context.Context, integrationType string, credentials map[string]any, value any, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = c.ttl
	}

	key, err := DeriveKey(KeyData, integrationType, "", "", "", credentials)
	if err != nil {
		c.logger.Warn("cache set: key derivation failed", zap.Error(err))

		return false
	}

	encoded, err := c.encode(value)
	if err != nil {
		c.logger.Warn("cache set failed",
			zap.String("integration", integrationType),
			zap.String("reason", "encode"),
			zap.Error(err))

		return false
	}

	if err := c.store.Set(ctx, key, string(encoded), ttl); err != nil {
		c.logger.Warn("cache set failed",
			zap.String("integration", integrationType),
			zap.String("reason", "store"),
			zap.Error(err))

		return false
	}

	return true
}

// Delete removes the cached payload. It returns false on store failure.
func (c *Cache) Delete(ctx context.Context, integrationType string, credentials map[string]any) bool {
	key, err := DeriveKey(KeyData, integrationType, "", "", "", credentials)
	if err != nil {
		c.logger.Warn("cache delete: key derivation failed", zap.Error(err))

		return false
	}

	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn("cache delete failed",
			zap.String("integration", integrationType),
			zap.String("reason", "store"),
			zap.Error(err))

		return false
	}

	return true
}
