package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "CHAT_ANSWERED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent carries the common event fields.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewChatAnswered describes a completed question/answer exchange for
// the audit stream. Answer text stays out of the payload.
func NewChatAnswered(exchangeID, employeeID, intent string, answerLength int) Event {
	return BaseEvent{
		Type: "chat_answered",
		Data: map[string]interface{}{
			"exchange_id":   exchangeID,
			"employee_id":   employeeID,
			"intent":        intent,
			"answer_length": answerLength,
		},
		OccurredAt: time.Now(),
	}
}
