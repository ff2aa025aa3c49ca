package tasks

// Task types
const (
	TypeWarmIntegration  = "integration:warm"
	TypePurgeIntegration = "integration:purge"
	TypeHealthCheck      = "health:check"
)

// TaskPriority defines priority levels for tasks
const (
	PriorityLow      = "low"
	PriorityDefault  = "default"
	PriorityCritical = "critical"
)

// WarmPayload asks the worker to pre-fetch provider data into the
// connection cache, bypassing any cached entry.
type WarmPayload struct {
	Integration string         `json:"integration"`
	Credentials map[string]any `json:"credentials"`
	SubType     string         `json:"sub_type,omitempty"`
}

// PurgePayload asks the worker to re-run the disconnect purge for a tuple.
// The purge is idempotent, so the sweep is safe to repeat.
type PurgePayload struct {
	Integration string `json:"integration"`
	UserID      string `json:"user_id"`
	OrgID       string `json:"org_id"`
}
