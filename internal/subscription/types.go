package subscription

import "encoding/json"

// TopicKind identifies a class of server-push interest.
type TopicKind string

const (
	TopicCall          TopicKind = "call"
	TopicAllCalls      TopicKind = "all_calls"
	TopicNotifications TopicKind = "notifications"
)

// Descriptor identifies one topic. Uniqueness is the (Kind, ID) pair;
// ID is empty for all_calls and notifications.
type Descriptor struct {
	Kind TopicKind
	ID   string
}

// Frame is the wire shape of a subscribe/unsubscribe command.
type Frame struct {
	Action string    `json:"action"` // "subscribe" or "unsubscribe"
	Topic  TopicKind `json:"topic"`
	ID     string    `json:"id,omitempty"`
}

// Frame actions.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// Encode marshals the frame for the transport.
func (f Frame) Encode() []byte {
	data, _ := json.Marshal(f)
	return data
}

// SubscribeFrame builds the subscribe frame for a descriptor.
func SubscribeFrame(d Descriptor) Frame {
	return Frame{Action: ActionSubscribe, Topic: d.Kind, ID: d.ID}
}

// UnsubscribeFrame builds the unsubscribe frame for a descriptor.
func UnsubscribeFrame(d Descriptor) Frame {
	return Frame{Action: ActionUnsubscribe, Topic: d.Kind, ID: d.ID}
}

// Sender is the transport surface the Registry emits frames through.
// Satisfied by the Connection Supervisor.
type Sender interface {
	Send(data []byte) error
	IsConnected() bool
}
