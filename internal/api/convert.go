package api

import (
	"time"

	"github.com/calldeck/calldeck/internal/model"
)

// ParseTimestamp parses an ISO 8601 timestamp to microseconds since epoch.
// Returns 0 for empty or invalid input.
func ParseTimestamp(iso string) int64 {
	if iso == "" {
		return 0
	}

	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		// Try without timezone
		t, err = time.Parse("2006-01-02T15:04:05", iso)
		if err != nil {
			return 0
		}
	}

	return t.UnixMicro()
}

// NowMicro returns the current time in microseconds since epoch.
func NowMicro() int64 {
	return time.Now().UnixMicro()
}

// ToModel converts an APICall to model.CallRecord.
func (c *APICall) ToModel() model.CallRecord {
	updatedAt := ParseTimestamp(c.UpdatedAt)
	if updatedAt == 0 {
		updatedAt = NowMicro()
	}

	return model.CallRecord{
		ID:               c.ID,
		Status:           c.Status,
		Sentiment:        c.Sentiment,
		QAScore:          c.QAScore,
		EscalationStatus: c.EscalationStatus,
		AssignedAgent:    c.AssignedAgent,
		StartedAt:        ParseTimestamp(c.StartedAt),
		UpdatedAt:        updatedAt,
	}
}

// ToModel converts an APIInteraction to model.Interaction.
func (i *APIInteraction) ToModel() model.Interaction {
	return model.Interaction{
		ID:        i.ID,
		CallID:    i.CallID,
		Speaker:   i.Speaker,
		Content:   i.Content,
		CreatedAt: ParseTimestamp(i.CreatedAt),
	}
}

// ToModel converts an APINotification to model.Notification.
func (n *APINotification) ToModel() model.Notification {
	return model.Notification{
		ID:        n.ID,
		Kind:      n.Kind,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: ParseTimestamp(n.CreatedAt),
	}
}
