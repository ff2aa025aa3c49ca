package integrations

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a consuming credential read finds nothing
	// stored for the requested tuple.
	ErrNotFound = errors.New("not found")

	// ErrStateMismatch is returned when the OAuth callback state does not
	// match the stored token, or no token was ever issued.
	ErrStateMismatch = errors.New("state does not match")

	// ErrMissingCode is returned when the provider callback carries no
	// authorization code.
	ErrMissingCode = errors.New("authorization code missing")

	// ErrMissingSubType is returned when a provider requires a resource
	// sub-type and none was given.
	ErrMissingSubType = errors.New("sub-type is required for this integration")

	ErrUnknownIntegration = errors.New("unsupported integration type")
)

// InputError marks invalid caller input (missing user_id, org_id and the
// like). Handlers translate it to a 4xx response.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Field, e.Reason)
}

func newInputError(field, reason string) error {
	return &InputError{Field: field, Reason: reason}
}

// UnsupportedSubTypeError reports a sub-type outside the provider's
// enumerated resource kinds.
type UnsupportedSubTypeError struct {
	Integration string
	SubType     string
}

func (e *UnsupportedSubTypeError) Error() string {
	return fmt.Sprintf("unsupported %s sub-type: %s", e.Integration, e.SubType)
}

// ProviderError carries an upstream non-2xx status and a body excerpt.
type ProviderError struct {
	Status int
	Body   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.Status, e.Body)
}

const providerBodyExcerptLen = 512

// NewProviderError builds a ProviderError, trimming the body to an excerpt.
func NewProviderError(status int, body []byte) *ProviderError {
	if len(body) > providerBodyExcerptLen {
		body = body[:providerBodyExcerptLen]
	}

	return &ProviderError{Status: status, Body: string(body)}
}
