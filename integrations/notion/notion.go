// Package notion implements the Notion workspace integration adapter.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/Vector/vector-integration-hub/integrations"
)

const (
	Name = "notion"

	defaultAuthURL    = "https://api.notion.com/v1/oauth/authorize"
	defaultTokenURL   = "https://api.notion.com/v1/oauth/token"
	defaultAPIBaseURL = "https://api.notion.com"

	notionVersion = "2022-06-28"
)

// Config carries the OAuth application settings. Zero-value URLs fall back
// to the production Notion endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	APIBaseURL   string
}

// Adapter is the Notion implementation of integrations.Adapter.
type Adapter struct {
	oauth      oauth2.Config
	apiBaseURL string
	httpClient *http.Client
}

// New creates a Notion adapter.
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

func (a *Adapter) UsesPKCE() bool { return false }

// SubTypes is empty: Notion exposes a single search collection.
func (a *Adapter) SubTypes() []string { return nil }

func (a *Adapter) AuthCodeURL(state, _ string) string {
	return a.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("owner", "user"),
		oauth2.SetAuthURLParam("response_type", "code"))
}

// Exchange trades the authorization code for tokens. Notion wants a JSON
// body and the client credentials as HTTP basic auth.
func (a *Adapter) Exchange(ctx context.Context, code, _ string) (map[string]any, error) {
	body, err := json.Marshal(map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"redirect_uri": a.oauth.RedirectURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.oauth.Endpoint.TokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}

	req.SetBasicAuth(a.oauth.ClientID, a.oauth.ClientSecret)
	req.Header.Set("Content-Type", "application/json")

	var token map[string]any
	if err := integrations.DoProviderJSON(a.httpClient, req, &token); err != nil {
		return nil, err
	}

	return token, nil
}

type searchResponse struct {
	Results []json.RawMessage `json:"results"`
}

type object struct {
	ID             string          `json:"id"`
	Object         string          `json:"object"`
	CreatedTime    string          `json:"created_time"`
	LastEditedTime string          `json:"last_edited_time"`
	Parent         map[string]any  `json:"parent"`
	Properties     json.RawMessage `json:"properties"`
}

// FetchItems aggregates all objects visible to the connected workspace via
// the search endpoint.
func (a *Adapter) FetchItems(ctx context.Context, credentials map[string]any, _ string) ([]integrations.Item, error) {
	token, err := integrations.AccessToken(credentials)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBaseURL+"/v1/search", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Notion-Version", notionVersion)

	var search searchResponse
	if err := integrations.DoProviderJSON(a.httpClient, req, &search); err != nil {
		return nil, err
	}

	items := make([]integrations.Item, 0, len(search.Results))

	for _, raw := range search.Results {
		var obj object
		if err := json.Unmarshal(raw, &obj); err != nil {
			continue
		}

		items = append(items, mapObject(raw, obj))
	}

	return items, nil
}

// mapObject normalizes a search result. Notion buries the human-readable
// title arbitrarily deep inside the properties, so the name is located with
// a depth-first search for the first "content" field.
func mapObject(raw json.RawMessage, obj object) integrations.Item {
	name := stringValue(findKey(obj.Properties, "content"))
	if name == "" {
		name = stringValue(findKey(raw, "content"))
	}

	if name == "" {
		name = "multi_select"
	}

	return integrations.Item{
		ID:               obj.ID,
		Type:             obj.Object,
		Name:             obj.Object + " " + name,
		CreationTime:     obj.CreatedTime,
		LastModifiedTime: obj.LastEditedTime,
		ParentID:         parentID(obj.Parent),
	}
}

// parentID resolves the weak parent reference. Workspace-level objects have
// no parent.
func parentID(parent map[string]any) string {
	parentType, _ := parent["type"].(string)
	if parentType == "" || parentType == "workspace" {
		return ""
	}

	id, _ := parent[parentType].(string)

	return id
}

func stringValue(raw json.RawMessage, found bool) string {
	if !found {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}

	return s
}
