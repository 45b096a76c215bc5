package api

// CallsResponse from GET /calls
type CallsResponse struct {
	Calls  []APICall `json:"calls"`
	Cursor string    `json:"cursor"`
}

// APICall represents a call from the Calldeck API.
type APICall struct {
	ID               string  `json:"id"`
	Status           string  `json:"status"`
	Sentiment        string  `json:"sentiment"`
	QAScore          float64 `json:"qa_score"`
	EscalationStatus string  `json:"escalation_status"`
	AssignedAgent    string  `json:"assigned_agent"`

	// Timestamps (ISO 8601)
	StartedAt string `json:"started_at"`
	UpdatedAt string `json:"updated_at"`
}

// SingleCallResponse from GET /calls/{id}
type SingleCallResponse struct {
	Call APICall `json:"call"`
}

// InteractionsResponse from GET /calls/{id}/interactions
type InteractionsResponse struct {
	Interactions []APIInteraction `json:"interactions"`
	Cursor       string           `json:"cursor"`
}

// APIInteraction represents an interaction from the Calldeck API.
type APIInteraction struct {
	ID        string `json:"id"`
	CallID    string `json:"call_id"`
	Speaker   string `json:"speaker"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// NotificationsResponse from GET /notifications
type NotificationsResponse struct {
	Notifications []APINotification `json:"notifications"`
	Cursor        string            `json:"cursor"`
}

// APINotification represents a notification from the Calldeck API.
type APINotification struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}

// GetCallsOptions configures a GetCalls request.
type GetCallsOptions struct {
	Limit  int
	Cursor string
	Status string
	Agent  string
	Active bool
}

// GetNotificationsOptions configures a GetNotifications request.
type GetNotificationsOptions struct {
	Limit  int
	Cursor string
	Unread bool
}
