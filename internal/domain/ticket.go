package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates triage lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen         TicketStatus = "OPEN"
	TicketStatusInTriage     TicketStatus = "IN_TRIAGE"
	TicketStatusAssigned     TicketStatus = "ASSIGNED"
	TicketStatusTriageFailed TicketStatus = "TRIAGE_FAILED"
)

// Terminal reports whether no further automatic transition applies.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusAssigned || s == TicketStatusTriageFailed
}

// TicketPriority enumerates SLA urgency assigned during triage.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// ParsePriority maps free-form provider output onto a known priority.
func ParsePriority(raw string) (TicketPriority, bool) {
	switch TicketPriority(strings.ToUpper(strings.TrimSpace(raw))) {
	case TicketPriorityLow:
		return TicketPriorityLow, true
	case TicketPriorityMedium:
		return TicketPriorityMedium, true
	case TicketPriorityHigh:
		return TicketPriorityHigh, true
	case TicketPriorityUrgent:
		return TicketPriorityUrgent, true
	}
	return "", false
}

// Ticket is the aggregate for support requests. Priority, required skills,
// guidance notes, failure reason and assignee are written only by the triage
// pipeline and stay unset while the ticket is OPEN or IN_TRIAGE.
type Ticket struct {
	ID             string
	Title          string
	Description    string
	Status         TicketStatus
	Priority       *TicketPriority
	RequiredSkills []string
	GuidanceNotes  *string
	FailureReason  *string
	CreatedBy      string
	AssignedTo     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	TriagedAt      *time.Time
}
