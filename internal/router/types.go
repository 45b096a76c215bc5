package router

// EventType identifies a push event. The set is closed: the dispatch table in
// NewRouter covers exactly these values and anything else is counted and
// dropped.
type EventType string

const (
	EventCallStarted         EventType = "call.started"
	EventCallUpdated         EventType = "call.updated"
	EventCallEnded           EventType = "call.ended"
	EventInteractionAdded    EventType = "interaction.added"
	EventQAScoreUpdated      EventType = "qa.score.updated"
	EventSentimentChanged    EventType = "sentiment.changed"
	EventEscalationTriggered EventType = "escalation.triggered"
	EventEscalationCompleted EventType = "escalation.completed"
	EventNotificationCreated EventType = "notification.created"
)

// RouterConfig holds configuration for the Event Router.
type RouterConfig struct {
	// PendingInteractionsPerCall bounds the buffer holding interactions
	// that arrived before their call record. Oldest entries are dropped
	// when full.
	PendingInteractionsPerCall int
}

// DefaultRouterConfig returns sensible defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		PendingInteractionsPerCall: 50,
	}
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	EventsReceived      int64
	EventsApplied       int64
	ParseErrors         int64
	UnknownEvents       int64
	PendingInteractions int
	PendingDropped      int64
}

// messageEnvelope extracts just the type tag for dispatch.
type messageEnvelope struct {
	Type EventType `json:"type"`
}

// callPayload carries the call fields of call.started/call.updated events.
// Pointer fields distinguish "absent" from zero so partial updates merge
// field by field.
type callPayload struct {
	ID               string   `json:"id"`
	Status           *string  `json:"status"`
	Sentiment        *string  `json:"sentiment"`
	QAScore          *float64 `json:"qa_score"`
	EscalationStatus *string  `json:"escalation_status"`
	AssignedAgent    *string  `json:"assigned_agent"`
	StartedAt        *int64   `json:"started_at"`
	UpdatedAt        int64    `json:"updated_at"`
}

// callEventWire is the envelope of events carrying a full call object.
type callEventWire struct {
	Type EventType   `json:"type"`
	Call callPayload `json:"call"`
}

// callEndedWire is the envelope of call.ended, which carries only the ID.
type callEndedWire struct {
	Type      EventType `json:"type"`
	CallID    string    `json:"call_id"`
	UpdatedAt int64     `json:"updated_at"`
}

// interactionWire is the envelope of interaction.added.
type interactionWire struct {
	Type        EventType `json:"type"`
	Interaction struct {
		ID        string `json:"id"`
		CallID    string `json:"call_id"`
		Speaker   string `json:"speaker"`
		Content   string `json:"content"`
		CreatedAt int64  `json:"created_at"`
	} `json:"interaction"`
}

// scalarEventWire is the envelope of the single-field update events
// (qa.score.updated, sentiment.changed, escalation.*).
type scalarEventWire struct {
	Type      EventType `json:"type"`
	CallID    string    `json:"call_id"`
	QAScore   *float64  `json:"qa_score"`
	Sentiment *string   `json:"sentiment"`
	UpdatedAt int64     `json:"updated_at"`
}
