// Package airtable implements the Airtable integration adapter.
package airtable

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/Vector/vector-integration-hub/integrations"
)

const (
	Name = "airtable"

	defaultAuthURL    = "https://airtable.com/oauth2/v1/authorize"
	defaultTokenURL   = "https://airtable.com/oauth2/v1/token"
	defaultAPIBaseURL = "https://api.airtable.com"
)

// Config carries the OAuth application settings. Zero-value URLs fall back
// to the production Airtable endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	APIBaseURL   string
}

// Adapter is the Airtable implementation of integrations.Adapter. Airtable
// mandates PKCE on the authorization-code flow.
type Adapter struct {
	oauth      oauth2.Config
	apiBaseURL string
	httpClient *http.Client
}

// New creates an Airtable adapter.
func New(cfg Config) *Adapter {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}

	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}

	return &Adapter{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"data.records:read", "schema.bases:read"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		apiBaseURL: cfg.APIBaseURL,
	}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) UsesPKCE() bool { return true }

// SubTypes is empty: the adapter exposes the base catalog as its single
// collection.
func (a *Adapter) SubTypes() []string { return nil }

func (a *Adapter) AuthCodeURL(state, verifier string) string {
	return a.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades the authorization code for tokens, replaying the PKCE
// verifier stored with the state token.
func (a *Adapter) Exchange(ctx context.Context, code, verifier string) (map[string]any, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {a.oauth.RedirectURL},
		"client_id":     {a.oauth.ClientID},
		"code_verifier": {verifier},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.oauth.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if a.oauth.ClientSecret != "" {
		req.SetBasicAuth(a.oauth.ClientID, a.oauth.ClientSecret)
	}

	var token map[string]any
	if err := integrations.DoProviderJSON(a.httpClient, req, &token); err != nil {
		return nil, err
	}

	return token, nil
}

type basesResponse struct {
	Bases []base `json:"bases"`
}

type base struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FetchItems lists the bases the connected account can reach.
func (a *Adapter) FetchItems(ctx context.Context, credentials map[string]any, _ string) ([]integrations.Item, error) {
	token, err := integrations.AccessToken(credentials)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiBaseURL+"/v0/meta/bases", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build bases request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)

	var resp basesResponse
	if err := integrations.DoProviderJSON(a.httpClient, req, &resp); err != nil {
		return nil, err
	}

	items := make([]integrations.Item, 0, len(resp.Bases))

	for _, b := range resp.Bases {
		items = append(items, integrations.Item{
			ID:   b.ID,
			Type: "base",
			Name: b.Name,
		})
	}

	return items, nil
}
