package integrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKeyFormats(t *testing.T) {
	tests := []struct {
		name string
		kind KeyKind
		want string
	}{
		{"state", KeyState, "hubspot_state:org1:user1"},
		{"credentials", KeyCredentials, "hubspot_credentials:org1:user1"},
		{"connection", KeyConnection, "integration_connection:hubspot:org1:user1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := DeriveKey(tt.kind, "hubspot", "org1", "user1", "", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, key)
		})
	}
}

func TestDeriveKeyValidation(t *testing.T) {
	t.Run("missing integration", func(t *testing.T) {
		_, err := DeriveKey(KeyState, "", "org1", "user1", "", nil)
		assert.Error(t, err)
	})

	t.Run("missing org", func(t *testing.T) {
		_, err := DeriveKey(KeyCredentials, "hubspot", "", "user1", "", nil)
		assert.Error(t, err)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := DeriveKey(KeyCredentials, "hubspot", "org1", "", "", nil)
		assert.Error(t, err)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := DeriveKey(KeyKind(99), "hubspot", "org1", "user1", "", nil)
		assert.Error(t, err)
	})
}

func TestDeriveDataKey(t *testing.T) {
	t.Run("canonical ordering", func(t *testing.T) {
		a, err := DeriveKey(KeyData, "notion", "", "", "", map[string]any{
			"access_token": "tok",
			"workspace_id": "ws1",
		})
		require.NoError(t, err)

		b, err := DeriveKey(KeyData, "notion", "", "", "", map[string]any{
			"workspace_id": "ws1",
			"access_token": "tok",
		})
		require.NoError(t, err)

		assert.Equal(t, a, b)
		assert.Equal(t, `integration:notion:{"access_token":"tok","workspace_id":"ws1"}`, a)
	})

	t.Run("nested maps are canonical too", func(t *testing.T) {
		a, err := DeriveKey(KeyData, "notion", "", "", "", map[string]any{
			"owner": map[string]any{"b": 2, "a": 1},
		})
		require.NoError(t, err)

		b, err := DeriveKey(KeyData, "notion", "", "", "", map[string]any{
			"owner": map[string]any{"a": 1, "b": 2},
		})
		require.NoError(t, err)

		assert.Equal(t, a, b)
	})

	t.Run("sub-type extends the integration type", func(t *testing.T) {
		key, err := DeriveKey(KeyData, "hubspot", "", "", "contacts", map[string]any{"access_token": "tok"})
		require.NoError(t, err)
		assert.Equal(t, `integration:hubspot_contacts:{"access_token":"tok"}`, key)
	})

	t.Run("different credentials different key", func(t *testing.T) {
		a, err := DeriveKey(KeyData, "hubspot", "", "", "", map[string]any{"access_token": "tok1"})
		require.NoError(t, err)

		b, err := DeriveKey(KeyData, "hubspot", "", "", "", map[string]any{"access_token": "tok2"})
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
	})
}
