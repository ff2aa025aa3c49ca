package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ConnectionInfo is derived metadata describing connection state. It is
// distinct from the credentials themselves: either record may be purged
// independently, so readers treat the two as eventually consistent.
type ConnectionInfo struct {
	Integration string         `json:"integration"`
	Connected   bool           `json:"connected"`
	ConnectedAt string         `json:"connected_at,omitempty"`
	ExpiresAt   string         `json:"expires_at,omitempty"`
	Credentials map[string]any `json:"credentials,omitempty"`
}

// Cipher seals token payloads before they hit the store. The AES-GCM
// implementation lives in pkg/encryption; a nil cipher stores plaintext.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// CredentialStore persists OAuth token bundles and connection metadata,
// keyed per (integration, org, user). One logical "current" credential per
// tuple; a new write overwrites, no history is kept.
type CredentialStore struct {
	store  KeyValueStore
	logger *zap.Logger
	cipher Cipher
	now    func() time.Time
}

// CredentialStoreOption configures a CredentialStore.
type CredentialStoreOption func(*CredentialStore)

// WithCipher enables at-rest encryption of stored token payloads.
func WithCipher(c Cipher) CredentialStoreOption {
	return func(s *CredentialStore) {
		s.cipher = c
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) CredentialStoreOption {
	return func(s *CredentialStore) {
		s.now = now
	}
}

// NewCredentialStore creates a credential store on top of the given store.
func NewCredentialStore(store KeyValueStore, logger *zap.Logger, opts ...CredentialStoreOption) *CredentialStore {
	s := &CredentialStore{
		store:  store,
		logger: logger,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// PutCredentials overwrites the stored token payload for the tuple. No TTL:
// token lifetime is governed by the provider's own refresh semantics, not by
// the store.
func (s *CredentialStore) PutCredentials(ctx context.Context, integration, org, user string, raw map[string]any) error {
	key, err := DeriveKey(KeyCredentials, integration, org, user, "", nil)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	value := string(encoded)

	if s.cipher != nil {
		if value, err = s.cipher.Encrypt(value); err != nil {
			return fmt.Errorf("failed to encrypt credentials: %w", err)
		}
	}

	return s.store.Set(ctx, key, value, 0)
}

// GetCredentials reads the token payload without consuming it. It returns
// ErrNotFound when nothing is stored.
func (s *CredentialStore) GetCredentials(ctx context.Context, integration, org, user string) (map[string]any, error) {
	key, err := DeriveKey(KeyCredentials, integration, org, user, "", nil)
	if err != nil {
		return nil, err
	}

	raw, found, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	if !found {
		return nil, ErrNotFound
	}

	return s.decodeCredentials(raw)
}

// TakeCredentials reads and deletes the token payload in one logical step.
// Consume-once semantics: the callback handler takes the freshly stored
// credentials exactly once, a replay read fails with ErrNotFound.
func (s *CredentialStore) TakeCredentials(ctx context.Context, integration, org, user string) (map[string]any, error) {
	creds, err := s.GetCredentials(ctx, integration, org, user)
	if err != nil {
		return nil, err
	}

	key, err := DeriveKey(KeyCredentials, integration, org, user, "", nil)
	if err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to consume credentials: %w", err)
	}

	return creds, nil
}

func (s *CredentialStore) decodeCredentials(raw string) (map[string]any, error) {
	if s.cipher != nil {
		// Records written before encryption was enabled stay readable:
		// fall back to the raw value when the seal does not open.
		if plain, err := s.cipher.Decrypt(raw); err == nil {
			raw = plain
		}
	}

	var creds map[string]any
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return nil, fmt.Errorf("stored credentials are corrupt: %w", err)
	}

	if len(creds) == 0 {
		return nil, ErrNotFound
	}

	return creds, nil
}

// PutConnectionInfo persists the connection metadata record for the tuple.
func (s *CredentialStore) PutConnectionInfo(ctx context.Context, org, user string, info ConnectionInfo) error {
	key, err := DeriveKey(KeyConnection, info.Integration, org, user, "", nil)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode connection info: %w", err)
	}

	return s.store.Set(ctx, key, string(encoded), 0)
}

// GetConnectionInfo returns the connection metadata for the tuple. When no
// explicit record exists but credentials do, a minimal record is derived from
// them, persisted for future reads and returned. With neither present the
// result is a disconnected record, not an error.
func (s *CredentialStore) GetConnectionInfo(ctx context.Context, integration, org, user string) (ConnectionInfo, error) {
	disconnected := ConnectionInfo{Integration: integration, Connected: false}

	key, err := DeriveKey(KeyConnection, integration, org, user, "", nil)
	if err != nil {
		return disconnected, err
	}

	raw, found, err := s.store.Get(ctx, key)
	if err != nil {
		return disconnected, fmt.Errorf("failed to read connection info: %w", err)
	}

	if found {
		var info ConnectionInfo
		if err := json.Unmarshal([]byte(raw), &info); err == nil {
			return info, nil
		}

		s.logger.Warn("connection info record is corrupt, rebuilding from credentials",
			zap.String("integration", integration))
	}

	creds, err := s.GetCredentials(ctx, integration, org, user)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return disconnected, nil
		}

		return disconnected, err
	}

	info := ConnectionInfo{
		Integration: integration,
		Connected:   true,
		ConnectedAt: s.now().UTC().Format(time.RFC3339),
		Credentials: creds,
	}

	if err := s.PutConnectionInfo(ctx, org, user, info); err != nil {
		// Best effort: the derived record is still valid for this read.
		s.logger.Warn("failed to persist derived connection info",
			zap.String("integration", integration),
			zap.Error(err))
	}

	return info, nil
}

// PurgeAll deletes every key family for the tuple: state token, credentials,
// connection info and the derived data-cache entry. Deletes are issued for
// all families with no ordering between them; per-key failures are logged,
// never aborted on. Success is reported only when every key is confirmed
// absent afterwards, which makes the operation idempotent.
func (s *CredentialStore) PurgeAll(ctx context.Context, integration, org, user string) error {
	keys, err := s.purgeKeys(integration, org, user)
	if err != nil {
		return err
	}

	var g errgroup.Group

	deleteErrs := make([]error, len(keys))

	for i, key := range keys {
		g.Go(func() error {
			deleteErrs[i] = s.store.Delete(ctx, key)

			return nil
		})
	}

	_ = g.Wait()

	if combined := multierr.Combine(deleteErrs...); combined != nil {
		s.logger.Warn("purge: some deletes failed",
			zap.String("integration", integration),
			zap.Error(combined))
	}

	var verifyErr error

	for _, key := range keys {
		present, err := s.store.Exists(ctx, key)
		if err != nil {
			verifyErr = multierr.Append(verifyErr, fmt.Errorf("could not verify deletion of %s: %w", key, err))

			continue
		}

		if present {
			verifyErr = multierr.Append(verifyErr, fmt.Errorf("key %s still present after purge", key))
		}
	}

	return verifyErr
}

func (s *CredentialStore) purgeKeys(integration, org, user string) ([]string, error) {
	keys := make([]string, 0, 4)

	for _, kind := range []KeyKind{KeyState, KeyCredentials, KeyConnection} {
		key, err := DeriveKey(kind, integration, org, user, "", nil)
		if err != nil {
			return nil, err
		}

		keys = append(keys, key)
	}

	// The data cache key derived from the tuple placeholder credentials,
	// mirroring what the disconnect contract clears.
	dataKey, err := DeriveKey(KeyData, integration, "", "", "", map[string]any{
		"user_id": user,
		"org_id":  org,
	})
	if err != nil {
		return nil, err
	}

	return append(keys, dataKey), nil
}
