package integrations

import (
	"encoding/json"
	"fmt"
)

// KeyKind identifies one of the storage key families.
type KeyKind int

const (
	KeyState KeyKind = iota + 1
	KeyCredentials
	KeyConnection
	KeyData
)

// DeriveKey builds the storage key for the given family. The formats are a
// wire contract shared with other services and must not change:
//
//	state:       <integration>_state:<org>:<user>
//	credentials: <integration>_credentials:<org>:<user>
//	connection:  integration_connection:<integration>:<org>:<user>
//	data:        integration:<integrationType>:<canonical-json-of-credentials>
//
// For KeyData the credentials payload is serialized with deterministic key
// ordering, so two logically equal credential maps derive the same key no
// matter how they were constructed. When subType is non-empty the data key
// uses `<integration>_<subType>` as the integration type.
func DeriveKey(kind KeyKind, integration, org, user, subType string, payload map[string]any) (string, error) {
	if integration == "" {
		return "", newInputError("integration", "must not be empty")
	}

	if kind == KeyData {
		return dataKey(integrationType(integration, subType), payload)
	}

	if org == "" {
		return "", newInputError("org_id", "must not be empty")
	}

	if user == "" {
		return "", newInputError("user_id", "must not be empty")
	}

	switch kind {
	case KeyState:
		return fmt.Sprintf("%s_state:%s:%s", integration, org, user), nil
	case KeyCredentials:
		return fmt.Sprintf("%s_credentials:%s:%s", integration, org, user), nil
	case KeyConnection:
		return fmt.Sprintf("integration_connection:%s:%s:%s", integration, org, user), nil
	default:
		return "", fmt.Errorf("unknown key kind: %d", kind)
	}
}

func integrationType(integration, subType string) string {
	if subType == "" {
		return integration
	}

	return integration + "_" + subType
}

func dataKey(integrationType string, credentials map[string]any) (string, error) {
	// encoding/json sorts map keys at every nesting level, which gives the
	// canonical form the key contract requires.
	encoded, err := json.Marshal(credentials)
	if err != nil {
		return "", fmt.Errorf("failed to serialize credentials for key: %w", err)
	}

	return fmt.Sprintf("integration:%s:%s", integrationType, string(encoded)), nil
}
