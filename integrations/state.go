package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StateTTL bounds how long an authorization attempt stays valid.
const StateTTL = 10 * time.Minute

// stateRecord is the CSRF token issued per authorization attempt. The JSON
// shape is shared with the frontend, which round-trips it through the
// provider's state query parameter. CodeVerifier is only set for PKCE
// providers and never leaves the store.
type stateRecord struct {
	State        string `json:"state"`
	UserID       string `json:"user_id"`
	OrgID        string `json:"org_id"`
	CodeVerifier string `json:"code_verifier,omitempty"`
}

// StateManager issues and consumes per-attempt state tokens.
type StateManager struct {
	store KeyValueStore
}

// NewStateManager creates a state manager on top of the given store.
func NewStateManager(store KeyValueStore) *StateManager {
	return &StateManager{store: store}
}

// Issue generates a state token for the tuple, stores it with a 600s TTL and
// returns the encoded state to embed in the authorization URL. verifier, when
// non-empty, is the PKCE code verifier to keep alongside the token.
func (m *StateManager) Issue(ctx context.Context, integration, user, org, verifier string) (string, error) {
	key, err := DeriveKey(KeyState, integration, org, user, "", nil)
	if err != nil {
		return "", err
	}

	rec := stateRecord{
		State:  uuid.New().String(),
		UserID: user,
		OrgID:  org,
	}

	embedded, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to encode state: %w", err)
	}

	rec.CodeVerifier = verifier

	stored, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to encode state: %w", err)
	}

	if err := m.store.Set(ctx, key, string(stored), StateTTL); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}

	return string(embedded), nil
}

// Consume validates the encoded state from the callback against the stored
// token and deletes it, enforcing single use. It returns the tuple the
// authorization attempt was issued for, plus the stored PKCE verifier if any.
// A missing, expired or non-matching token yields ErrStateMismatch.
func (m *StateManager) Consume(ctx context.Context, integration, encodedState string) (user, org, verifier string, err error) {
	var claimed stateRecord
	if err := json.Unmarshal([]byte(encodedState), &claimed); err != nil {
		return "", "", "", ErrStateMismatch
	}

	key, err := DeriveKey(KeyState, integration, claimed.OrgID, claimed.UserID, "", nil)
	if err != nil {
		return "", "", "", ErrStateMismatch
	}

	raw, found, err := m.store.Get(ctx, key)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to read state: %w", err)
	}

	if !found {
		return "", "", "", ErrStateMismatch
	}

	var stored stateRecord
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return "", "", "", ErrStateMismatch
	}

	if stored.State == "" || stored.State != claimed.State {
		return "", "", "", ErrStateMismatch
	}

	if err := m.store.Delete(ctx, key); err != nil {
		return "", "", "", fmt.Errorf("failed to delete state: %w", err)
	}

	return stored.UserID, stored.OrgID, stored.CodeVerifier, nil
}
