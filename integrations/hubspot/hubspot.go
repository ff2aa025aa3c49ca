// Package hubspot implements the HubSpot CRM integration adapter.
package hubspot

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
	Name = "hubspot"

	defaultAuthURL    = "https://app-na2.hubspot.com/oauth/authorize"
	defaultTokenURL   = "https://api.hubapi.com/oauth/v1/token"
	defaultAPIBaseURL = "https://api.hubapi.com"

	pageLimit = "100"
)

// resource describes one of HubSpot's CRM object collections.
type resource struct {
	endpoint   string
	itemType   string
	properties []string
	nameProps  []string
}

// subTypes is ordered; SubTypes() exposes it as the enumerated resource
// kinds a load request may ask for.
var subTypes = []string{"contacts", "companies", "deals", "tickets"}

var resources = map[string]resource{
	"contacts": {
		endpoint:   "/crm/v3/objects/contacts",
		itemType:   "contact",
		properties: []string{"firstname", "lastname", "email", "phone"},
		nameProps:  []string{"firstname", "lastname"},
	},
	"companies": {
		endpoint:   "/crm/v3/objects/companies",
		itemType:   "company",
		properties: []string{"name", "domain", "industry"},
		nameProps:  []string{"name"},
	},
	"deals": {
		endpoint:   "/crm/v3/objects/deals",
		itemType:   "deal",
		properties: []string{"dealname", "amount", "dealstage"},
		nameProps:  []string{"dealname"},
	},
	"tickets": {
		endpoint:   "/crm/v3/objects/tickets",
		itemType:   "ticket",
		properties: []string{"subject", "content", "status"},
		nameProps:  []string{"subject"},
	},
}

// Config carries the OAuth application settings. Zero-value URLs fall back
// to the production HubSpot endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	APIBaseURL   string
}

// Adapter is the HubSpot implementation of integrations.Adapter.
type Adapter struct {
	oauth      oauth2.Config
	apiBaseURL string
	httpClient *http.Client
}

// New creates a HubSpot adapter.
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
			Scopes:       []string{"oauth"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBaseURL: cfg.APIBaseURL,
	}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) UsesPKCE() bool { return false }

func (a *Adapter) SubTypes() []string { return subTypes }

func (a *Adapter) AuthCodeURL(state, _ string) string {
	return a.oauth.AuthCodeURL(state)
}

// Exchange trades the authorization code for tokens. HubSpot wants the
// client credentials in the form body.
func (a *Adapter) Exchange(ctx context.Context, code, _ string) (map[string]any, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {a.oauth.RedirectURL},
		"client_id":     {a.oauth.ClientID},
		"client_secret": {a.oauth.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.oauth.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token map[string]any
	if err := integrations.DoProviderJSON(a.httpClient, req, &token); err != nil {
		return nil, err
	}

	return token, nil
}

type listResponse struct {
	Results []object `json:"results"`
	Total   int      `json:"total"`
}

type object struct {
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties"`
	CreatedAt  string         `json:"createdAt"`
	UpdatedAt  string         `json:"updatedAt"`
}

// FetchItems lists the requested CRM collection and maps each object into a
// normalized item.
func (a *Adapter) FetchItems(ctx context.Context, credentials map[string]any, subType string) ([]integrations.Item, error) {
	res, ok := resources[subType]
	if !ok {
		return nil, &integrations.UnsupportedSubTypeError{Integration: Name, SubType: subType}
	}

	token, err := integrations.AccessToken(credentials)
	if err != nil {
		return nil, err
	}

	query := url.Values{"limit": {pageLimit}}
	for _, p := range res.properties {
		query.Add("properties", p)
	}

	endpoint := fmt.Sprintf("%s%s?%s", a.apiBaseURL, res.endpoint, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build list request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	var list listResponse
	if err := integrations.DoProviderJSON(a.httpClient, req, &list); err != nil {
		return nil, err
	}

	items := make([]integrations.Item, 0, len(list.Results))

	for _, obj := range list.Results {
		items = append(items, integrations.Item{
			ID:               obj.ID,
			Type:             res.itemType,
			Name:             displayName(obj.Properties, res.nameProps),
			CreationTime:     obj.CreatedAt,
			LastModifiedTime: obj.UpdatedAt,
		})
	}

	return items, nil
}

// displayName joins the first non-empty naming properties of the object.
func displayName(props map[string]any, nameProps []string) string {
	parts := make([]string, 0, len(nameProps))

	for _, p := range nameProps {
		if v, ok := props[p].(string); ok && v != "" {
			parts = append(parts, v)
		}
	}

	return strings.Join(parts, " ")
}
