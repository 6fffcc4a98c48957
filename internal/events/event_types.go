package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/dashboard-gate/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventProvisionRequested   EventType = "provision.requested"
	EventProvisionSucceeded   EventType = "provision.succeeded"
	EventProvisionFailed      EventType = "provision.failed"
	EventProvisionClaimed     EventType = "provision.claimed"
	EventSessionAuthenticated EventType = "session.authenticated"
	EventSessionRejected      EventType = "session.rejected"
)

// Event represents something that happened to a session or a provisioned resource.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Subject   string      `json:"subject"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, subject string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// ProvisionPayload payload.
type ProvisionPayload struct {
	Status     domain.ProvisionStatus `json:"status"`
	Attempt    int                    `json:"attempt"`
	HTTPStatus int                    `json:"http_status,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// SessionPayload payload. Credentials never travel in events.
type SessionPayload struct {
	Username string `json:"username,omitempty"`
	Reason   string `json:"reason,omitempty"`
}
