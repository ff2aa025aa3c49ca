package integrations

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// DoProviderJSON executes a provider API request and decodes the JSON
// response into out. Non-2xx statuses and malformed bodies surface as
// *ProviderError carrying the upstream status and a body excerpt.
func DoProviderJSON(client *http.Client, req *http.Request, out any) error {
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return NewProviderError(resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return NewProviderError(resp.StatusCode, body)
	}

	return nil
}

// AccessToken extracts the bearer token from a raw credentials payload.
func AccessToken(credentials map[string]any) (string, error) {
	token, ok := credentials["access_token"].(string)
	if !ok || token == "" {
		return "", &InputError{Field: "credentials", Reason: "access_token is required"}
	}

	return token, nil
}
