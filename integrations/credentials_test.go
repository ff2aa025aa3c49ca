package integrations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Vector/vector-integration-hub/pkg/encryption"
)

func TestCredentialsPutGetTake(t *testing.T) {
	store := newMemStore()
	creds := NewCredentialStore(store, zap.NewNop())
	token := map[string]any{"access_token": "tok", "refresh_token": "ref"}

	require.NoError(t, creds.PutCredentials(context.Background(), "hubspot", "org1", "user1", token))

	t.Run("get does not consume", func(t *testing.T) {
		got, err := creds.GetCredentials(context.Background(), "hubspot", "org1", "user1")
		require.NoError(t, err)
		assert.Equal(t, "tok", got["access_token"])

		_, err = creds.GetCredentials(context.Background(), "hubspot", "org1", "user1")
		assert.NoError(t, err)
	})

	t.Run("take consumes", func(t *testing.T) {
		got, err := creds.TakeCredentials(context.Background(), "hubspot", "org1", "user1")
		require.NoError(t, err)
		assert.Equal(t, "ref", got["refresh_token"])

		_, err = creds.TakeCredentials(context.Background(), "hubspot", "org1", "user1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("overwrite keeps one current bundle", func(t *testing.T) {
		require.NoError(t, creds.PutCredentials(context.Background(), "hubspot", "org1", "user1", map[string]any{"access_token": "old"}))
		require.NoError(t, creds.PutCredentials(context.Background(), "hubspot", "org1", "user1", map[string]any{"access_token": "new"}))

		got, err := creds.GetCredentials(context.Background(), "hubspot", "org1", "user1")
		require.NoError(t, err)
		assert.Equal(t, "new", got["access_token"])
	})

	t.Run("nothing stored", func(t *testing.T) {
		_, err := creds.GetCredentials(context.Background(), "notion", "org1", "user1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCredentialsEncryptedAtRest(t *testing.T) {
	cipher, err := encryption.New([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	store := newMemStore()
	creds := NewCredentialStore(store, zap.NewNop(), WithCipher(cipher))

	require.NoError(t, creds.PutCredentials(context.Background(), "hubspot", "org1", "user1", map[string]any{"access_token": "secret-token"}))

	raw, ok := store.raw("hubspot_credentials:org1:user1")
	require.True(t, ok)
	assert.NotContains(t, raw, "secret-token")

	got, err := creds.GetCredentials(context.Background(), "hubspot", "org1", "user1")
	require.NoError(t, err)
	assert.Equal(t, "secret-token", got["access_token"])

	t.Run("plaintext records stay readable", func(t *testing.T) {
		require.NoError(t, store.Set(context.Background(), "notion_credentials:org1:user1", `{"access_token":"legacy"}`, 0))

		got, err := creds.GetCredentials(context.Background(), "notion", "org1", "user1")
		require.NoError(t, err)
		assert.Equal(t, "legacy", got["access_token"])
	})
}

func TestConnectionInfo(t *testing.T) {
	fixed := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	t.Run("explicit record wins", func(t *testing.T) {
		store := newMemStore()
		creds := NewCredentialStore(store, zap.NewNop())

		info := ConnectionInfo{
			Integration: "hubspot",
			Connected:   true,
			ConnectedAt: fixed.Format(time.RFC3339),
			Credentials: map[string]any{"access_token": "tok"},
		}
		require.NoError(t, creds.PutConnectionInfo(context.Background(), "org1", "user1", info))

		got, err := creds.GetConnectionInfo(context.Background(), "hubspot", "org1", "user1")
		require.NoError(t, err)
		assert.True(t, got.Connected)
		assert.Equal(t, info.ConnectedAt, got.ConnectedAt)
	})

	t.Run("derived from credentials and persisted", func(t *testing.T) {
		store := newMemStore()
		creds := NewCredentialStore(store, zap.NewNop(), WithClock(func() time.Time { return fixed }))

		require.NoError(t, creds.PutCredentials(context.Background(), "notion", "org1", "user1", map[string]any{"access_token": "tok"}))

		got, err := creds.GetConnectionInfo(context.Background(), "notion", "org1", "user1")
		require.NoError(t, err)
		assert.True(t, got.Connected)
		assert.Equal(t, "2026-02-03T04:05:06Z", got.ConnectedAt)
		assert.Equal(t, "tok", got.Credentials["access_token"])

		// Reconstruction wrote the record back for the next read.
		_, ok := store.raw("integration_connection:notion:org1:user1")
		assert.True(t, ok)
	})

	t.Run("disconnected when nothing stored", func(t *testing.T) {
		store := newMemStore()
		creds := NewCredentialStore(store, zap.NewNop())

		got, err := creds.GetConnectionInfo(context.Background(), "airtable", "org1", "user1")
		require.NoError(t, err)
		assert.False(t, got.Connected)
		assert.Equal(t, "airtable", got.Integration)
		assert.Empty(t, got.ConnectedAt)
	})
}

func TestPurgeAll(t *testing.T) {
	seed := func(t *testing.T, store *memStore, creds *CredentialStore) {
		t.Helper()

		require.NoError(t, creds.PutCredentials(context.Background(), "hubspot", "org1", "user1", map[string]any{"access_token": "tok"}))
		require.NoError(t, creds.PutConnectionInfo(context.Background(), "org1", "user1", ConnectionInfo{Integration: "hubspot", Connected: true}))
		require.NoError(t, store.Set(context.Background(), "hubspot_state:org1:user1", `{"state":"abc"}`, 0))
	}

	t.Run("removes every key family", func(t *testing.T) {
		store := newMemStore()
		creds := NewCredentialStore(store, zap.NewNop())
		seed(t, store, creds)

		require.NoError(t, creds.PurgeAll(context.Background(), "hubspot", "org1", "user1"))
		assert.Equal(t, 0, store.len())

		info, err := creds.GetConnectionInfo(context.Background(), "hubspot", "org1", "user1")
		require.NoError(t, err)
		assert.False(t, info.Connected)
	})

	t.Run("idempotent on an empty tuple", func(t *testing.T) {
		store := newMemStore()
		creds := NewCredentialStore(store, zap.NewNop())

		assert.NoError(t, creds.PurgeAll(context.Background(), "hubspot", "org1", "user1"))
		assert.NoError(t, creds.PurgeAll(context.Background(), "hubspot", "org1", "user1"))
	})

	t.Run("reports failure when a key survives", func(t *testing.T) {
		store := newMemStore()
		creds := NewCredentialStore(store, zap.NewNop())
		seed(t, store, creds)

		store.failDelete = true

		err := creds.PurgeAll(context.Background(), "hubspot", "org1", "user1")
		assert.Error(t, err)
	})

	t.Run("verification failure is an error", func(t *testing.T) {
		store := newMemStore()
		creds := NewCredentialStore(store, zap.NewNop())

		store.failExists = true

		err := creds.PurgeAll(context.Background(), "hubspot", "org1", "user1")
		assert.Error(t, err)
	})
}
