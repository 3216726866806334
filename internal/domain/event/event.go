package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is something that happened to a draft report
type Event struct {
	ID        string                 `json:"id"`
	Type      Type                   `json:"type"`
	ReportID  string                 `json:"report_id"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// New creates an event for reportID with a fresh id and timestamp
func New(eventType Type, reportID string, payload map[string]interface{}) *Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ReportID:  reportID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// WithPayload returns a copy of the event with key set; the receiver is not modified
func (e *Event) WithPayload(key string, value interface{}) *Event {
	payload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		payload[k] = v
	}
	payload[key] = value

	c := *e
	c.Payload = payload
	return &c
}

// String retrieves a string value from the payload
func (e *Event) String(key string) string {
	if s, ok := e.Payload[key].(string); ok {
		return s
	}
	return ""
}

// Int retrieves an integer value from the payload
func (e *Event) Int(key string) int {
	switch v := e.Payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Float retrieves a float64 value from the payload
func (e *Event) Float(key string) float64 {
	switch v := e.Payload[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
