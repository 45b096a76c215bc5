package model

// Call status values pushed by the server.
const (
	StatusRinging    = "ringing"
	StatusInProgress = "in_progress"
	StatusOnHold     = "on_hold"
	StatusEscalated  = "escalated"
	StatusCompleted  = "completed"
)

// IsActiveStatus returns true if the status means the call is in flight.
func IsActiveStatus(status string) bool {
	switch status {
	case StatusRinging, StatusInProgress, StatusOnHold, StatusEscalated:
		return true
	}
	return false
}

// Escalation status values.
const (
	EscalationNone      = ""
	EscalationTriggered = "triggered"
	EscalationResolved  = "resolved"
)

// CallRecord is a cached live call. Created on the first call.started event or
// initial bulk load; ended calls stay cached with StatusCompleted until evicted.
type CallRecord struct {
	ID               string // Primary key
	Status           string // One of the Status* constants
	Sentiment        string // e.g. "positive", "neutral", "negative"
	QAScore          float64
	EscalationStatus string // One of the Escalation* constants
	AssignedAgent    string // Agent identifier, empty if unassigned
	StartedAt        int64  // Call start (µs since epoch)
	UpdatedAt        int64  // Last merge (µs since epoch, never moves backward)
}

// Interaction is a single utterance or note within a call.
// Interactions are append-only; the push channel never edits them in place.
type Interaction struct {
	ID        string
	CallID    string
	Speaker   string // "agent", "caller", "system"
	Content   string
	CreatedAt int64 // µs since epoch
}

// Notification is a background-task notification shown on the dashboard.
// The sync core only signals that the list is stale; the list itself is
// fetched through the bulk API.
type Notification struct {
	ID        string
	Kind      string // e.g. "task_completed", "export_ready"
	Message   string
	Read      bool
	CreatedAt int64 // µs since epoch
}
