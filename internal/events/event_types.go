package events

import (
	"time"

	"github.com/opsdeck/ticket-triage/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated  EventType = "ticket.created"
	EventTicketAssigned EventType = "ticket.assigned"
	EventTriageFailed   EventType = "triage.failed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title           string `json:"title"`
	CreatedBy       string `json:"created_by"`
	TriageScheduled bool   `json:"triage_scheduled"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID     string                `json:"assignee_id"`
	Priority       domain.TicketPriority `json:"priority"`
	RequiredSkills []string              `json:"required_skills,omitempty"`
}

// TriageFailedPayload payload.
type TriageFailedPayload struct {
	Reason string `json:"reason"`
}
