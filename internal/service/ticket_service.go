package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/opsdeck/ticket-triage/internal/domain"
	"github.com/opsdeck/ticket-triage/internal/events"
	"github.com/opsdeck/ticket-triage/internal/observability"
	"github.com/opsdeck/ticket-triage/internal/queue"
	"github.com/opsdeck/ticket-triage/internal/repository"
	apperrors "github.com/opsdeck/ticket-triage/pkg/util"
)

// TriagePublisher is the intake side of the triage queue.
type TriagePublisher interface {
	Enqueue(ctx context.Context, event queue.TriageEvent) error
}

// TicketService coordinates ticket workflows on the request path: creation
// with durable handoff to triage, reads, and operator retries.
type TicketService struct {
	tickets    repository.TicketRepository
	publisher  TriagePublisher
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Publisher  TriagePublisher
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		publisher:  deps.Publisher,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// CreateTicket persists the ticket, then hands it to the triage pipeline.
// When the queue is unavailable the ticket is still created and stays OPEN;
// the returned flag tells the caller triage is not guaranteed.
func (s *TicketService) CreateTicket(ctx context.Context, userID string, input TicketCreateInput) (*domain.Ticket, bool, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, false, apperrors.NewValidationError("title and description are required", nil)
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusOpen,
		CreatedBy:   userID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, false, apperrors.MapError(err)
	}

	scheduled := true
	err := s.publisher.Enqueue(ctx, queue.TriageEvent{
		TicketID:    ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		CreatedBy:   ticket.CreatedBy,
	})
	if err != nil {
		if !errors.Is(err, queue.ErrQueueUnavailable) {
			return nil, false, apperrors.MapError(err)
		}
		// Degraded success: the row exists, triage will need an operator
		// retry once the queue is back.
		scheduled = false
		s.metrics.QueuePublishFailure()
		s.logger.Error("triage enqueue failed, ticket left open",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Title:           ticket.Title,
			CreatedBy:       ticket.CreatedBy,
			TriageScheduled: scheduled,
		},
	})
	return ticket, scheduled, nil
}

// GetTicketForUser fetches a ticket. Plain users only see their own tickets;
// moderators and admins see everything.
func (s *TicketService) GetTicketForUser(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if actor.Role == domain.UserRoleUser && ticket.CreatedBy != actor.ID {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// ListTickets returns tickets visible to the actor, newest first.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, limit, offset int) ([]domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	filter := repository.TicketFilter{Limit: limit, Offset: offset}
	if actor.Role == domain.UserRoleUser {
		filter.CreatedBy = &actor.ID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListOwnTickets returns tickets created by the actor regardless of role.
func (s *TicketService) ListOwnTickets(ctx context.Context, actor *domain.User, limit, offset int) ([]domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		CreatedBy: &actor.ID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// RetryTriage re-enqueues a failed ticket. Operator action: resets
// TRIAGE_FAILED back to OPEN and publishes a fresh intake event.
func (s *TicketService) RetryTriage(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if actor == nil || !actor.EligibleAssignee() {
		return nil, apperrors.NewForbidden("moderator or admin role required")
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.Status != domain.TicketStatusTriageFailed {
		return nil, apperrors.NewConflict("only failed triage can be retried", map[string]any{
			"ticket_id": ticketID,
			"status":    ticket.Status,
		})
	}

	if err := s.tickets.ReopenForTriage(ctx, ticket.ID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperrors.NewConflict("ticket state changed, retry aborted", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	err = s.publisher.Enqueue(ctx, queue.TriageEvent{
		TicketID:    ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		CreatedBy:   ticket.CreatedBy,
	})
	if err != nil {
		// The retry is an explicit operator action, so unlike creation this
		// failure is surfaced directly.
		s.metrics.QueuePublishFailure()
		return nil, apperrors.NewQueueUnavailable(err)
	}

	s.logger.Info("triage retry enqueued",
		zap.String("ticket_id", ticket.ID),
		zap.String("actor_id", actor.ID))

	ticket.Status = domain.TicketStatusOpen
	ticket.FailureReason = nil
	ticket.TriagedAt = nil
	return ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
