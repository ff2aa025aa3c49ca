package integrations

import (
	"context"
	"fmt"
	"sort"
)

// Adapter is the provider seam: one implementation per SaaS integration.
// Adapters own the provider-specific endpoints and record mapping; all
// orchestration (state tokens, credential persistence, caching) lives in the
// Service.
type Adapter interface {
	// Name returns the enumerated integration name, e.g. "hubspot".
	Name() string

	// UsesPKCE reports whether the provider requires a PKCE code verifier.
	UsesPKCE() bool

	// AuthCodeURL returns the provider authorization URL embedding the
	// encoded state. verifier is empty unless UsesPKCE.
	AuthCodeURL(state, verifier string) string

	// Exchange trades an authorization code for the raw provider token
	// payload. Upstream failures surface as *ProviderError.
	Exchange(ctx context.Context, code, verifier string) (map[string]any, error)

	// FetchItems calls the provider data API and maps native records into
	// normalized Items. subType is empty for single-collection providers.
	FetchItems(ctx context.Context, credentials map[string]any, subType string) ([]Item, error)

	// SubTypes enumerates the provider's resource kinds. A non-empty list
	// means a sub-type is required on every fetch.
	SubTypes() []string
}

// Registry is the single lookup table from integration name to adapter.
// Callers never branch on provider strings themselves.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}

	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}

	return r
}

// Get returns the adapter for the integration name.
func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIntegration, name)
	}

	return a, nil
}

// Names returns the registered integration names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))

	for name := range r.adapters {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
