package integrations

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/Vector/vector-integration-hub/tlmt"
)

// TaskEnqueuer hands background work to the task queue. All enqueues are
// best effort; the service logs and continues on failure.
type TaskEnqueuer interface {
	EnqueueWarm(ctx context.Context, integration string, credentials map[string]any, subType string) error
	EnqueuePurge(ctx context.Context, integration, user, org string) error
}

// Service orchestrates the OAuth connection lifecycle and cached data loads
// across the registered integration adapters. It is constructed once at
// startup and shared by all request handlers; it holds no mutable state of
// its own beyond the store clients, which are safe for concurrent use.
type Service struct {
	registry    *Registry
	credentials *CredentialStore
	cache       *Cache
	state       *StateManager
	logger      *zap.Logger
	telemetry   tlmt.Telemetry
	enqueuer    TaskEnqueuer
	now         func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTelemetry attaches an event sink for connect/disconnect/load events.
func WithTelemetry(t tlmt.Telemetry) ServiceOption {
	return func(s *Service) {
		s.telemetry = t
	}
}

// WithTaskEnqueuer enables background cache warming and purge sweeps.
func WithTaskEnqueuer(e TaskEnqueuer) ServiceOption {
	return func(s *Service) {
		s.enqueuer = e
	}
}

// WithServiceClock overrides the time source, used by tests.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService wires the orchestration layer.
func NewService(registry *Registry, credentials *CredentialStore, cache *Cache, state *StateManager, logger *zap.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		registry:    registry,
		credentials: credentials,
		cache:       cache,
		state:       state,
		logger:      logger,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Authorize starts an authorization attempt: it issues and stores a state
// token for the tuple and returns the provider redirect URL embedding it.
func (s *Service) Authorize(ctx context.Context, integration, user, org string) (string, error) {
	if err := requireTuple(user, org); err != nil {
		return "", err
	}

	adapter, err := s.registry.Get(integration)
	if err != nil {
		return "", err
	}

	var verifier string
	if adapter.UsesPKCE() {
		verifier = oauth2.GenerateVerifier()
	}

	state, err := s.state.Issue(ctx, integration, user, org, verifier)
	if err != nil {
		return "", err
	}

	return adapter.AuthCodeURL(state, verifier), nil
}

// CompleteAuthorization finishes the OAuth callback: it validates and
// consumes the state token, exchanges the authorization code, stores the
// credentials and composes+stores the derived connection info.
func (s *Service) CompleteAuthorization(ctx context.Context, integration string, params url.Values) (map[string]any, error) {
	adapter, err := s.registry.Get(integration)
	if err != nil {
		return nil, err
	}

	if errParam := params.Get("error"); errParam != "" {
		return nil, NewProviderError(http.StatusBadRequest, []byte(errParam))
	}

	code := params.Get("code")
	if code == "" {
		return nil, ErrMissingCode
	}

	user, org, verifier, err := s.state.Consume(ctx, integration, params.Get("state"))
	if err != nil {
		return nil, err
	}

	token, err := adapter.Exchange(ctx, code, verifier)
	if err != nil {
		return nil, err
	}

	if err := s.credentials.PutCredentials(ctx, integration, org, user, token); err != nil {
		return nil, err
	}

	// Post-processing step composing connection metadata from the raw token
	// response. This is where the connection becomes observable.
	info := s.composeConnectionInfo(integration, token)
	if err := s.credentials.PutConnectionInfo(ctx, org, user, info); err != nil {
		return nil, err
	}

	s.emit(ctx, "integration_connected", map[string]any{"integration": integration})
	s.warm(ctx, adapter, token)

	s.logger.Info("integration connected",
		zap.String("integration", integration),
		zap.String("org_id", org),
		zap.String("user_id", user))

	return token, nil
}

// composeConnectionInfo derives connection metadata from a raw token
// payload.
func (s *Service) composeConnectionInfo(integration string, token map[string]any) ConnectionInfo {
	now := s.now().UTC()

	info := ConnectionInfo{
		Integration: integration,
		Connected:   true,
		ConnectedAt: now.Format(time.RFC3339),
		Credentials: token,
	}

	if expiresIn, ok := token["expires_in"].(float64); ok && expiresIn > 0 {
		info.ExpiresAt = now.Add(time.Duration(expiresIn) * time.Second).Format(time.RFC3339)
	}

	return info
}

// GetCredentials hands the stored token payload to the caller with
// consume-once semantics.
func (s *Service) GetCredentials(ctx context.Context, integration, user, org string) (map[string]any, error) {
	if err := requireTuple(user, org); err != nil {
		return nil, err
	}

	if _, err := s.registry.Get(integration); err != nil {
		return nil, err
	}

	return s.credentials.TakeCredentials(ctx, integration, org, user)
}

// LoadData returns integration data, cache-first. On a miss or with force
// set it fetches from the provider and writes the result back. A cache
// failure in either direction never fails the request.
func (s *Service) LoadData(ctx context.Context, integration string, credentials map[string]any, force bool, subType string) (any, error) {
	adapter, err := s.registry.Get(integration)
	if err != nil {
		return nil, err
	}

	if err := validateSubType(adapter, subType); err != nil {
		return nil, err
	}

	cacheType := integrationType(integration, subType)

	if !force {
		if cached, ok := s.cache.Get(ctx, cacheType, credentials); ok {
			return cached, nil
		}
	}

	items, err := adapter.FetchItems(ctx, credentials, subType)
	if err != nil {
		return nil, err
	}

	result := NewItemList(items, subType)

	s.cache.Set(ctx, cacheType, credentials, result, 0)
	s.emit(ctx, "data_loaded", map[string]any{
		"integration": integration,
		"sub_type":    subType,
		"items":       len(items),
	})

	return result, nil
}

// Disconnect purges every key family for the tuple. It is idempotent and
// reports success even when the tuple was never connected, as long as all
// keys are confirmed absent.
func (s *Service) Disconnect(ctx context.Context, integration, user, org string) error {
	if err := requireTuple(user, org); err != nil {
		return err
	}

	if _, err := s.registry.Get(integration); err != nil {
		return err
	}

	if err := s.credentials.PurgeAll(ctx, integration, org, user); err != nil {
		return err
	}

	s.emit(ctx, "integration_disconnected", map[string]any{"integration": integration})

	if s.enqueuer != nil {
		// Delayed sweep re-running the purge to catch writes that raced the
		// disconnect. PurgeAll is idempotent, so the sweep is safe.
		if err := s.enqueuer.EnqueuePurge(ctx, integration, user, org); err != nil {
			s.logger.Warn("failed to enqueue purge sweep",
				zap.String("integration", integration),
				zap.Error(err))
		}
	}

	return nil
}

// ConnectionInfo reports the connection state for the tuple.
func (s *Service) ConnectionInfo(ctx context.Context, integration, user, org string) (ConnectionInfo, error) {
	if err := requireTuple(user, org); err != nil {
		return ConnectionInfo{}, err
	}

	if _, err := s.registry.Get(integration); err != nil {
		return ConnectionInfo{}, err
	}

	return s.credentials.GetConnectionInfo(ctx, integration, org, user)
}

func (s *Service) warm(ctx context.Context, adapter Adapter, token map[string]any) {
	if s.enqueuer == nil {
		return
	}

	subTypes := adapter.SubTypes()
	if len(subTypes) == 0 {
		subTypes = []string{""}
	}

	for _, subType := range subTypes {
		if err := s.enqueuer.EnqueueWarm(ctx, adapter.Name(), token, subType); err != nil {
			s.logger.Warn("failed to enqueue cache warm",
				zap.String("integration", adapter.Name()),
				zap.String("sub_type", subType),
				zap.Error(err))
		}
	}
}

func (s *Service) emit(ctx context.Context, name string, props map[string]any) {
	if s.telemetry == nil {
		return
	}

	if err := s.telemetry.Send(ctx, tlmt.NewEvent(name, props)); err != nil {
		s.logger.Debug("telemetry send failed", zap.Error(err))
	}
}

func validateSubType(adapter Adapter, subType string) error {
	subTypes := adapter.SubTypes()

	if subType == "" {
		if len(subTypes) > 0 {
			return fmt.Errorf("%w: %s", ErrMissingSubType, adapter.Name())
		}

		return nil
	}

	if !slices.Contains(subTypes, subType) {
		return &UnsupportedSubTypeError{Integration: adapter.Name(), SubType: subType}
	}

	return nil
}

func requireTuple(user, org string) error {
	if user == "" {
		return newInputError("user_id", "must not be empty")
	}

	if org == "" {
		return newInputError("org_id", "must not be empty")
	}

	return nil
}
