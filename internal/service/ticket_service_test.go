package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/opsdeck/ticket-triage/internal/domain"
	"github.com/opsdeck/ticket-triage/internal/events"
	"github.com/opsdeck/ticket-triage/internal/queue"
	apperrors "github.com/opsdeck/ticket-triage/pkg/util"
	"go.uber.org/zap"
)

type memPublisher struct {
	mu       sync.Mutex
	events   []queue.TriageEvent
	failWith error
}

func (p *memPublisher) Enqueue(ctx context.Context, event queue.TriageEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	p.events = append(p.events, event)
	return nil
}

func (p *memPublisher) enqueued() []queue.TriageEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.TriageEvent{}, p.events...)
}

func newTicketFixture(publisher *memPublisher) (*TicketService, *memTicketRepo, *capturedEvents) {
	tickets := newMemTicketRepo()
	dispatcher, captured := captureDispatcher()
	svc := NewTicketService(TicketDependencies{
		TicketRepo: tickets,
		Publisher:  publisher,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
	return svc, tickets, captured
}

func TestCreateTicketEnqueuesTriage(t *testing.T) {
	publisher := &memPublisher{}
	svc, _, captured := newTicketFixture(publisher)

	ticket, scheduled, err := svc.CreateTicket(context.Background(), "u-1", TicketCreateInput{
		Title:       "  VPN down  ",
		Description: "Cannot reach the office network",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !scheduled {
		t.Fatal("expected triage to be scheduled")
	}
	if ticket.Title != "VPN down" {
		t.Fatalf("expected trimmed title, got %q", ticket.Title)
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Fatalf("expected OPEN, got %s", ticket.Status)
	}

	enqueued := publisher.enqueued()
	if len(enqueued) != 1 {
		t.Fatalf("expected 1 enqueued event, got %d", len(enqueued))
	}
	if enqueued[0].TicketID != ticket.ID {
		t.Fatalf("enqueued event references %s, want %s", enqueued[0].TicketID, ticket.ID)
	}
	created := captured.ofType(events.EventTicketCreated)
	if len(created) != 1 {
		t.Fatalf("expected 1 created event, got %d", len(created))
	}
	payload, ok := created[0].Payload.(events.TicketCreatedPayload)
	if !ok || !payload.TriageScheduled {
		t.Fatalf("expected created payload with triage scheduled, got %+v", created[0].Payload)
	}
}

func TestCreateTicketSurvivesQueueOutage(t *testing.T) {
	publisher := &memPublisher{failWith: queue.ErrQueueUnavailable}
	svc, tickets, captured := newTicketFixture(publisher)

	ticket, scheduled, err := svc.CreateTicket(context.Background(), "u-1", TicketCreateInput{
		Title:       "Printer jam",
		Description: "Third floor printer stuck",
	})
	if err != nil {
		t.Fatalf("queue outage must not fail creation: %v", err)
	}
	if scheduled {
		t.Fatal("expected triage not scheduled during outage")
	}

	stored := tickets.mustGet(t, ticket.ID)
	if stored.Status != domain.TicketStatusOpen {
		t.Fatalf("expected ticket to stay OPEN, got %s", stored.Status)
	}
	created := captured.ofType(events.EventTicketCreated)
	if len(created) != 1 {
		t.Fatalf("expected created event even during outage, got %d", len(created))
	}
	payload := created[0].Payload.(events.TicketCreatedPayload)
	if payload.TriageScheduled {
		t.Fatal("created payload should report triage not scheduled")
	}
}

func TestCreateTicketValidatesInput(t *testing.T) {
	svc, _, _ := newTicketFixture(&memPublisher{})

	cases := []TicketCreateInput{
		{Title: "", Description: "something"},
		{Title: "something", Description: ""},
		{Title: "   ", Description: "   "},
	}
	for _, input := range cases {
		_, _, err := svc.CreateTicket(context.Background(), "u-1", input)
		var derr *apperrors.DomainError
		if !errors.As(err, &derr) || derr.Code != "VALIDATION_FAILED" {
			t.Fatalf("input %+v: expected validation error, got %v", input, err)
		}
	}
}

func TestGetTicketForUserScopesToOwner(t *testing.T) {
	svc, tickets, _ := newTicketFixture(&memPublisher{})
	ticket := openTicket(t, tickets, "Laptop battery", "Drains in an hour")

	owner := &domain.User{ID: "u-1", Role: domain.UserRoleUser}
	if _, err := svc.GetTicketForUser(context.Background(), owner, ticket.ID); err != nil {
		t.Fatalf("owner read: %v", err)
	}

	stranger := &domain.User{ID: "u-2", Role: domain.UserRoleUser}
	_, err := svc.GetTicketForUser(context.Background(), stranger, ticket.ID)
	var derr *apperrors.DomainError
	if !errors.As(err, &derr) || derr.Code != "NOT_FOUND" {
		t.Fatalf("expected not found for stranger, got %v", err)
	}

	moderator := &domain.User{ID: "m-1", Role: domain.UserRoleModerator}
	if _, err := svc.GetTicketForUser(context.Background(), moderator, ticket.ID); err != nil {
		t.Fatalf("moderator read: %v", err)
	}
}

func TestListTicketsFiltersForPlainUsers(t *testing.T) {
	svc, tickets, _ := newTicketFixture(&memPublisher{})
	mine := openTicket(t, tickets, "Mine", "created by u-1")
	other := &domain.Ticket{
		Title:       "Theirs",
		Description: "created by u-2",
		Status:      domain.TicketStatusOpen,
		CreatedBy:   "u-2",
	}
	if err := tickets.Create(context.Background(), other); err != nil {
		t.Fatalf("create: %v", err)
	}

	user := &domain.User{ID: "u-1", Role: domain.UserRoleUser}
	visible, err := svc.ListTickets(context.Background(), user, 20, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != mine.ID {
		t.Fatalf("expected only own ticket, got %+v", visible)
	}

	admin := &domain.User{ID: "a-1", Role: domain.UserRoleAdmin}
	all, err := svc.ListTickets(context.Background(), admin, 20, 0)
	if err != nil {
		t.Fatalf("list as admin: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected admin to see both tickets, got %d", len(all))
	}
}

func failTicket(t *testing.T, tickets *memTicketRepo, id, reason string) {
	t.Helper()
	ctx := context.Background()
	if err := tickets.BeginTriage(ctx, id); err != nil {
		t.Fatalf("begin triage: %v", err)
	}
	if err := tickets.CompleteTriage(ctx, id, domain.TicketStatusTriageFailed, nil, &reason); err != nil {
		t.Fatalf("fail triage: %v", err)
	}
}

func TestRetryTriageReopensAndEnqueues(t *testing.T) {
	publisher := &memPublisher{}
	svc, tickets, _ := newTicketFixture(publisher)
	ticket := openTicket(t, tickets, "Mail outage", "Nothing delivered since noon")
	failTicket(t, tickets, ticket.ID, ReasonNoEligibleAssignee)

	moderator := &domain.User{ID: "m-1", Role: domain.UserRoleModerator}
	retried, err := svc.RetryTriage(context.Background(), moderator, ticket.ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried.Status != domain.TicketStatusOpen {
		t.Fatalf("expected OPEN after retry, got %s", retried.Status)
	}
	if retried.FailureReason != nil {
		t.Fatalf("expected failure reason cleared, got %v", retried.FailureReason)
	}

	stored := tickets.mustGet(t, ticket.ID)
	if stored.Status != domain.TicketStatusOpen || stored.FailureReason != nil {
		t.Fatalf("stored ticket not reopened: %+v", stored)
	}
	if enqueued := publisher.enqueued(); len(enqueued) != 1 || enqueued[0].TicketID != ticket.ID {
		t.Fatalf("expected fresh intake event, got %+v", enqueued)
	}
}

func TestRetryTriageRejectsPlainUsers(t *testing.T) {
	svc, tickets, _ := newTicketFixture(&memPublisher{})
	ticket := openTicket(t, tickets, "Mail outage", "Nothing delivered since noon")
	failTicket(t, tickets, ticket.ID, ReasonNoEligibleAssignee)

	user := &domain.User{ID: "u-1", Role: domain.UserRoleUser}
	_, err := svc.RetryTriage(context.Background(), user, ticket.ID)
	var derr *apperrors.DomainError
	if !errors.As(err, &derr) || derr.Code != "FORBIDDEN" {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRetryTriageRequiresFailedStatus(t *testing.T) {
	svc, tickets, _ := newTicketFixture(&memPublisher{})
	ticket := openTicket(t, tickets, "Still open", "Nothing failed here")

	admin := &domain.User{ID: "a-1", Role: domain.UserRoleAdmin}
	_, err := svc.RetryTriage(context.Background(), admin, ticket.ID)
	var derr *apperrors.DomainError
	if !errors.As(err, &derr) || derr.Code != "CONFLICT" {
		t.Fatalf("expected conflict for non-failed ticket, got %v", err)
	}
}

func TestRetryTriageSurfacesQueueOutage(t *testing.T) {
	publisher := &memPublisher{failWith: queue.ErrQueueUnavailable}
	svc, tickets, _ := newTicketFixture(publisher)
	ticket := openTicket(t, tickets, "Mail outage", "Nothing delivered since noon")
	failTicket(t, tickets, ticket.ID, ReasonNoEligibleAssignee)

	admin := &domain.User{ID: "a-1", Role: domain.UserRoleAdmin}
	_, err := svc.RetryTriage(context.Background(), admin, ticket.ID)
	var derr *apperrors.DomainError
	if !errors.As(err, &derr) || derr.Code != "QUEUE_UNAVAILABLE" {
		t.Fatalf("expected queue unavailable, got %v", err)
	}
}
