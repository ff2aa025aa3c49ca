package airtable

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestAuthCodeURL(t *testing.T) {
	adapter := New(Config{ClientID: "client-id"})
	verifier := oauth2.GenerateVerifier()

	rawURL := adapter.AuthCodeURL(`{"state":"abc"}`, verifier)

	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	assert.Equal(t, "S256", u.Query().Get("code_challenge_method"))
	assert.NotEmpty(t, u.Query().Get("code_challenge"))
	assert.NotContains(t, rawURL, verifier, "the verifier itself must not appear in the URL")
	assert.Contains(t, u.Query().Get("scope"), "schema.bases:read")
}

func TestExchange(t *testing.T) {
	t.Run("replays the verifier", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
			assert.Equal(t, "the-verifier", r.PostForm.Get("code_verifier"))

			user, pass, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "client-id", user)
			assert.Equal(t, "client-secret", pass)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"tok123","token_type":"Bearer"}`))
		}))
		defer srv.Close()

		adapter := New(Config{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			TokenURL:     srv.URL,
		})

		token, err := adapter.Exchange(context.Background(), "the-code", "the-verifier")
		require.NoError(t, err)
		assert.Equal(t, "tok123", token["access_token"])
	})

	t.Run("public client skips basic auth", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _, ok := r.BasicAuth()
			assert.False(t, ok)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"tok123"}`))
		}))
		defer srv.Close()

		adapter := New(Config{ClientID: "client-id", TokenURL: srv.URL})

		_, err := adapter.Exchange(context.Background(), "the-code", "the-verifier")
		assert.NoError(t, err)
	})
}

func TestFetchItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/meta/bases", r.URL.Path)
		assert.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"bases": [
				{"id": "appAAA", "name": "Product Catalog", "permissionLevel": "create"},
				{"id": "appBBB", "name": "CRM", "permissionLevel": "read"}
			]
		}`))
	}))
	defer srv.Close()

	adapter := New(Config{APIBaseURL: srv.URL})

	items, err := adapter.FetchItems(context.Background(), map[string]any{"access_token": "tok123"}, "")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "appAAA", items[0].ID)
	assert.Equal(t, "base", items[0].Type)
	assert.Equal(t, "Product Catalog", items[0].Name)
}

func TestAdapterMetadata(t *testing.T) {
	adapter := New(Config{})

	assert.Equal(t, "airtable", adapter.Name())
	assert.True(t, adapter.UsesPKCE())
	assert.Empty(t, adapter.SubTypes())
}
