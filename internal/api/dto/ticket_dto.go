package dto

import (
	"time"

	"github.com/opsdeck/ticket-triage/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateTicketResponse reports the created ticket and whether triage was
// durably scheduled. A false flag means the queue was down and the ticket
// needs an operator retry.
type CreateTicketResponse struct {
	Ticket          TicketSummary `json:"ticket"`
	TriageScheduled bool          `json:"triage_scheduled"`
}

// TicketSummary response.
type TicketSummary struct {
	ID         string                 `json:"id"`
	Title      string                 `json:"title"`
	Status     domain.TicketStatus    `json:"status"`
	Priority   *domain.TicketPriority `json:"priority,omitempty"`
	CreatedBy  string                 `json:"created_by"`
	AssignedTo *string                `json:"assigned_to,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// TicketDetail provides full ticket info including triage output.
type TicketDetail struct {
	ID             string                 `json:"id"`
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	Status         domain.TicketStatus    `json:"status"`
	Priority       *domain.TicketPriority `json:"priority,omitempty"`
	RequiredSkills []string               `json:"required_skills,omitempty"`
	GuidanceNotes  *string                `json:"guidance_notes,omitempty"`
	FailureReason  *string                `json:"failure_reason,omitempty"`
	CreatedBy      string                 `json:"created_by"`
	AssignedTo     *string                `json:"assigned_to,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	TriagedAt      *time.Time             `json:"triaged_at,omitempty"`
}

// NewTicketSummary maps a domain ticket.
func NewTicketSummary(ticket *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:         ticket.ID,
		Title:      ticket.Title,
		Status:     ticket.Status,
		Priority:   ticket.Priority,
		CreatedBy:  ticket.CreatedBy,
		AssignedTo: ticket.AssignedTo,
		CreatedAt:  ticket.CreatedAt,
		UpdatedAt:  ticket.UpdatedAt,
	}
}

// NewTicketDetail maps a domain ticket. Failure reasons are staff-facing and
// omitted for plain users.
func NewTicketDetail(ticket *domain.Ticket, includeFailureReason bool) TicketDetail {
	detail := TicketDetail{
		ID:             ticket.ID,
		Title:          ticket.Title,
		Description:    ticket.Description,
		Status:         ticket.Status,
		Priority:       ticket.Priority,
		RequiredSkills: ticket.RequiredSkills,
		GuidanceNotes:  ticket.GuidanceNotes,
		CreatedBy:      ticket.CreatedBy,
		AssignedTo:     ticket.AssignedTo,
		CreatedAt:      ticket.CreatedAt,
		TriagedAt:      ticket.TriagedAt,
	}
	if includeFailureReason {
		detail.FailureReason = ticket.FailureReason
	}
	return detail
}
