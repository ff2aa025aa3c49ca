package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateIssueAndConsume(t *testing.T) {
	store := newMemStore()
	mgr := NewStateManager(store)

	encoded, err := mgr.Issue(context.Background(), "hubspot", "user1", "org1", "")
	require.NoError(t, err)

	var rec struct {
		State        string `json:"state"`
		UserID       string `json:"user_id"`
		OrgID        string `json:"org_id"`
		CodeVerifier string `json:"code_verifier"`
	}
	require.NoError(t, json.Unmarshal([]byte(encoded), &rec))
	assert.NotEmpty(t, rec.State)
	assert.Equal(t, "user1", rec.UserID)
	assert.Equal(t, "org1", rec.OrgID)
	assert.Empty(t, rec.CodeVerifier, "verifier must never be embedded in the redirect")

	user, org, verifier, err := mgr.Consume(context.Background(), "hubspot", encoded)
	require.NoError(t, err)
	assert.Equal(t, "user1", user)
	assert.Equal(t, "org1", org)
	assert.Empty(t, verifier)

	t.Run("single use", func(t *testing.T) {
		_, _, _, err := mgr.Consume(context.Background(), "hubspot", encoded)
		assert.ErrorIs(t, err, ErrStateMismatch)
	})
}

func TestStateCarriesVerifier(t *testing.T) {
	store := newMemStore()
	mgr := NewStateManager(store)

	encoded, err := mgr.Issue(context.Background(), "airtable", "user1", "org1", "pkce-verifier")
	require.NoError(t, err)
	assert.NotContains(t, encoded, "pkce-verifier")

	_, _, verifier, err := mgr.Consume(context.Background(), "airtable", encoded)
	require.NoError(t, err)
	assert.Equal(t, "pkce-verifier", verifier)
}

func TestStateConsumeRejections(t *testing.T) {
	store := newMemStore()
	mgr := NewStateManager(store)

	encoded, err := mgr.Issue(context.Background(), "hubspot", "user1", "org1", "")
	require.NoError(t, err)

	tests := []struct {
		name  string
		state string
	}{
		{"garbage state", "{not json"},
		{"unknown tuple", `{"state":"abc","user_id":"nobody","org_id":"nowhere"}`},
		{"token value differs", `{"state":"forged","user_id":"user1","org_id":"org1"}`},
		{"empty state value", `{"state":"","user_id":"user1","org_id":"org1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := mgr.Consume(context.Background(), "hubspot", tt.state)
			assert.ErrorIs(t, err, ErrStateMismatch)
		})
	}

	t.Run("valid state still works after rejections", func(t *testing.T) {
		_, _, _, err := mgr.Consume(context.Background(), "hubspot", encoded)
		assert.NoError(t, err)
	})
}

func TestStateExpires(t *testing.T) {
	now := time.Now()
	store := newMemStore()
	store.now = func() time.Time { return now }

	mgr := NewStateManager(store)

	encoded, err := mgr.Issue(context.Background(), "hubspot", "user1", "org1", "")
	require.NoError(t, err)

	now = now.Add(StateTTL + time.Second)

	_, _, _, err = mgr.Consume(context.Background(), "hubspot", encoded)
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestStateStoreFailure(t *testing.T) {
	store := newMemStore()
	mgr := NewStateManager(store)

	encoded, err := mgr.Issue(context.Background(), "hubspot", "user1", "org1", "")
	require.NoError(t, err)

	store.failGet = true

	_, _, _, err = mgr.Consume(context.Background(), "hubspot", encoded)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrStateMismatch), "store failures are not mismatches")
}
