// Package handlers exposes the integration hub HTTP surface.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Vector/vector-integration-hub/integrations"
)

// IntegrationHandler serves the OAuth connection lifecycle and data loads.
type IntegrationHandler struct {
	service *integrations.Service
	logger  *zap.Logger
}

// NewIntegrationHandler creates the handler set.
func NewIntegrationHandler(service *integrations.Service, logger *zap.Logger) *IntegrationHandler {
	return &IntegrationHandler{
		service: service,
		logger:  logger,
	}
}

// Register wires the handler routes onto the router.
func (h *IntegrationHandler) Register(r *mux.Router) {
	r.HandleFunc("/integrations/connection-info/{provider}", h.ConnectionInfo).Methods(http.MethodGet)
	r.HandleFunc("/integrations/disconnect/{provider}", h.Disconnect).Methods(http.MethodPost)
	r.HandleFunc("/integrations/{provider}/authorize", h.Authorize).Methods(http.MethodPost)
	r.HandleFunc("/integrations/{provider}/oauth2callback", h.OAuthCallback).Methods(http.MethodGet)
	r.HandleFunc("/integrations/{provider}/credentials", h.Credentials).Methods(http.MethodPost)
	r.HandleFunc("/integrations/{provider}/load", h.Load).Methods(http.MethodPost)
}

// Authorize starts an authorization attempt and returns the provider
// redirect URL for the frontend to open.
func (h *IntegrationHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]
	userID, orgID := r.FormValue("user_id"), r.FormValue("org_id")

	redirectURL, err := h.service.Authorize(r.Context(), provider, userID, orgID)
	if err != nil {
		h.renderServiceError(w, r, err)

		return
	}

	renderJSON(w, http.StatusOK, redirectURL)
}

// OAuthCallback finishes the provider redirect. The response is a small HTML
// page that notifies the opener window and closes itself.
func (h *IntegrationHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]

	if _, err := h.service.CompleteAuthorization(r.Context(), provider, r.URL.Query()); err != nil {
		h.logger.Warn("authorization callback failed",
			zap.String("integration", provider),
			zap.Error(err))
		renderCloseWindow(w, provider, false)

		return
	}

	renderCloseWindow(w, provider, true)
}

// Credentials hands the stored token payload to the frontend once.
func (h *IntegrationHandler) Credentials(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]
	userID, orgID := r.FormValue("user_id"), r.FormValue("org_id")

	creds, err := h.service.GetCredentials(r.Context(), provider, userID, orgID)
	if err != nil {
		h.renderServiceError(w, r, err)

		return
	}

	renderJSON(w, http.StatusOK, creds)
}

type loadRequest struct {
	Credentials map[string]any `json:"credentials"`
}

// Load returns integration data, cached when possible. Query parameters:
// force=true bypasses the cache, api_type selects the resource kind for
// multi-collection providers.
func (h *IntegrationHandler) Load(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]

	var req loadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())

		return
	}

	force := r.URL.Query().Get("force") == "true"
	subType := r.URL.Query().Get("api_type")

	data, err := h.service.LoadData(r.Context(), provider, req.Credentials, force, subType)
	if err != nil {
		h.renderServiceError(w, r, err)

		return
	}

	renderJSON(w, http.StatusOK, data)
}

// Disconnect purges everything stored for the tuple. Idempotent: repeating
// the call reports success again.
func (h *IntegrationHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]
	userID := r.URL.Query().Get("user_id")
	orgID := r.URL.Query().Get("org_id")

	if err := h.service.Disconnect(r.Context(), provider, userID, orgID); err != nil {
		h.renderServiceError(w, r, err)

		return
	}

	renderJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Disconnected %s successfully", provider),
	})
}

// ConnectionInfo reports whether the tuple is connected and since when.
func (h *IntegrationHandler) ConnectionInfo(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]
	userID := r.URL.Query().Get("user_id")
	orgID := r.URL.Query().Get("org_id")

	info, err := h.service.ConnectionInfo(r.Context(), provider, userID, orgID)
	if err != nil {
		h.renderServiceError(w, r, err)

		return
	}

	renderJSON(w, http.StatusOK, info)
}

// renderServiceError maps the service error taxonomy onto HTTP statuses.
// Only client-input, state, provider and not-found errors reach this point;
// cache failures were already absorbed below.
func (h *IntegrationHandler) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	var inputErr *integrations.InputError

	var subTypeErr *integrations.UnsupportedSubTypeError

	var providerErr *integrations.ProviderError

	switch {
	case errors.As(err, &inputErr),
		errors.As(err, &subTypeErr),
		errors.Is(err, integrations.ErrMissingSubType),
		errors.Is(err, integrations.ErrMissingCode),
		errors.Is(err, integrations.ErrUnknownIntegration),
		errors.Is(err, integrations.ErrStateMismatch),
		errors.Is(err, integrations.ErrNotFound):
		status = http.StatusBadRequest
	case errors.As(err, &providerErr):
		status = http.StatusBadGateway
		if providerErr.Status >= http.StatusBadRequest {
			status = providerErr.Status
		}
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}

	renderError(w, status, err.Error())
}

// Health responds once the process is serving.
func (h *IntegrationHandler) Health(w http.ResponseWriter, _ *http.Request) {
	renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

const closeWindowPage = `<html>
  <body>
    <script>
      window.opener.postMessage('%s', '*');
      window.close();
    </script>
    <p>%s</p>
  </body>
</html>`

// renderCloseWindow tells the opener window about the outcome and closes
// the popup.
func renderCloseWindow(w http.ResponseWriter, provider string, connected bool) {
	message := provider + "_error"
	text := "Connection failed! You can close this window."

	if connected {
		message = provider + "_connected"
		text = "Connection successful! You can close this window."
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, closeWindowPage, message, text)
}
