package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/opsdeck/ticket-triage/internal/analysis"
	"github.com/opsdeck/ticket-triage/internal/config"
	"github.com/opsdeck/ticket-triage/internal/domain"
	"github.com/opsdeck/ticket-triage/internal/events"
	"github.com/opsdeck/ticket-triage/internal/observability"
	"github.com/opsdeck/ticket-triage/internal/queue"
	"github.com/opsdeck/ticket-triage/internal/repository"
)

// Failure reasons recorded on the ticket for operator visibility.
const (
	ReasonNoEligibleAssignee = "NO_ELIGIBLE_ASSIGNEE"
	reasonAnalysisFailed     = "ANALYSIS_FAILED"
)

// TriageService is the orchestrator consuming triage events. It sequences
// analysis, assignment and persistence, and guarantees every delivered event
// leaves the ticket in a terminal state or pending for redelivery.
type TriageService struct {
	tickets    repository.TicketRepository
	staff      repository.UserRepository
	analyzer   analysis.Analyzer
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.AnalysisConfig
}

// TriageDependencies bundles collaborators.
type TriageDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Analyzer   analysis.Analyzer
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewTriageService constructs the orchestrator.
func NewTriageService(cfg config.AnalysisConfig, deps TriageDependencies) *TriageService {
	return &TriageService{
		tickets:    deps.TicketRepo,
		staff:      deps.UserRepo,
		analyzer:   deps.Analyzer,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		cfg:        cfg,
	}
}

// ProcessEvent runs the triage state machine for one delivered event.
// Returning nil acknowledges the event (including recorded terminal
// failures); returning an error leaves it pending for redelivery. Duplicate
// and racing deliveries resolve through the conditional status writes: the
// loser of any race discards its attempt.
func (s *TriageService) ProcessEvent(ctx context.Context, event queue.TriageEvent) error {
	start := time.Now()

	ticket, err := s.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("triage event references unknown ticket, dropping",
				zap.String("ticket_id", event.TicketID))
			s.metrics.EventConsumed(observability.OutcomeDropped)
			return nil
		}
		return err
	}
	if ticket.Status.Terminal() {
		s.logger.Debug("duplicate triage event for terminal ticket, dropping",
			zap.String("ticket_id", ticket.ID),
			zap.String("status", string(ticket.Status)))
		s.metrics.EventConsumed(observability.OutcomeDuplicate)
		return nil
	}

	if err := s.tickets.BeginTriage(ctx, ticket.ID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.metrics.EventConsumed(observability.OutcomeDuplicate)
			return nil
		}
		return err
	}

	result, err := s.runAnalysis(ctx, event)
	if err != nil {
		s.logger.Warn("analysis exhausted",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
		return s.failTriage(ctx, ticket.ID, reasonAnalysisFailed+": "+err.Error(), start)
	}

	// The HTTP client normalizes, but the Analyzer contract does not
	// guarantee it; the matcher and the stored row both need clean tags.
	result.RequiredSkills = domain.NormalizeSkills(result.RequiredSkills)

	if err := s.tickets.SetAnalysisResult(ctx, ticket.ID, result.Priority, result.RequiredSkills, result.GuidanceNotes); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.metrics.EventConsumed(observability.OutcomeDuplicate)
			return nil
		}
		return err
	}

	staffList, err := s.staff.ListEligibleStaff(ctx)
	if err != nil {
		return err
	}

	assignee := Match(result.RequiredSkills, staffList)
	if assignee == nil {
		s.logger.Warn("no eligible staff in directory",
			zap.String("ticket_id", ticket.ID),
			zap.Strings("required_skills", result.RequiredSkills))
		return s.failTriage(ctx, ticket.ID, ReasonNoEligibleAssignee, start)
	}

	if err := s.tickets.CompleteTriage(ctx, ticket.ID, domain.TicketStatusAssigned, &assignee.ID, nil); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Another worker finished first; its state is authoritative.
			s.metrics.EventConsumed(observability.OutcomeDuplicate)
			return nil
		}
		return err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Payload: events.TicketAssignedPayload{
			AssigneeID:     assignee.ID,
			Priority:       result.Priority,
			RequiredSkills: result.RequiredSkills,
		},
	})
	s.metrics.EventConsumed(observability.OutcomeAssigned)
	s.metrics.ObserveTriageDuration(time.Since(start))
	s.logger.Info("ticket assigned",
		zap.String("ticket_id", ticket.ID),
		zap.String("assignee_id", assignee.ID),
		zap.String("priority", string(result.Priority)))
	return nil
}

// runAnalysis calls the provider with bounded exponential backoff. Each
// attempt carries its own deadline; permanent provider errors stop the loop
// immediately.
func (s *TriageService) runAnalysis(ctx context.Context, event queue.TriageEvent) (*analysis.Result, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.RetryInitialDelay()
	policy.MaxInterval = s.cfg.RetryMaxDelay()

	var result *analysis.Result
	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout())
		defer cancel()

		r, err := s.analyzer.Analyze(attemptCtx, event.Title, event.Description)
		if err != nil {
			if analysis.IsTransient(err) {
				s.metrics.AnalysisAttempt("transient_error")
				return err
			}
			s.metrics.AnalysisAttempt("permanent_error")
			return backoff.Permanent(err)
		}
		s.metrics.AnalysisAttempt("ok")
		result = r
		return nil
	}

	retries := uint64(s.cfg.MaxAttempts - 1)
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx)); err != nil {
		return nil, err
	}
	return result, nil
}

// failTriage records a terminal failure on the ticket itself; nothing is
// silently dropped.
func (s *TriageService) failTriage(ctx context.Context, ticketID, reason string, start time.Time) error {
	if err := s.tickets.CompleteTriage(ctx, ticketID, domain.TicketStatusTriageFailed, nil, &reason); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.metrics.EventConsumed(observability.OutcomeDuplicate)
			return nil
		}
		return err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTriageFailed,
		TicketID: ticketID,
		Payload:  events.TriageFailedPayload{Reason: reason},
	})
	s.metrics.EventConsumed(observability.OutcomeFailed)
	s.metrics.ObserveTriageDuration(time.Since(start))
	return nil
}

func (s *TriageService) publish(ctx context.Context, event events.Event) {
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
