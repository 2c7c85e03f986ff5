package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdeck/ticket-triage/internal/domain"
)

// ErrConflict is returned when a conditional status update finds the ticket
// in a state other than the expected one. The winning writer's state is
// authoritative; callers discard their attempt.
var ErrConflict = errors.New("ticket status conflict")

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CreatedBy *string
	Statuses  []domain.TicketStatus
	Limit     int
	Offset    int
}

// TicketRepository encapsulates ticket persistence. The triage mutations are
// conditional writes keyed on the current status so concurrent workers cannot
// double-assign a ticket.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)

	// BeginTriage moves OPEN or IN_TRIAGE to IN_TRIAGE. Re-entry from
	// IN_TRIAGE is deliberate: it lets a redelivered event resume a ticket
	// abandoned by a crashed worker.
	BeginTriage(ctx context.Context, id string) error
	// SetAnalysisResult persists the classification output while the ticket
	// is still IN_TRIAGE.
	SetAnalysisResult(ctx context.Context, id string, priority domain.TicketPriority, skills []string, notes string) error
	// CompleteTriage moves IN_TRIAGE to a terminal status.
	CompleteTriage(ctx context.Context, id string, status domain.TicketStatus, assignedTo *string, failureReason *string) error
	// ReopenForTriage moves TRIAGE_FAILED back to OPEN for an operator retry.
	ReopenForTriage(ctx context.Context, id string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, status, priority, required_skills, guidance_notes,
               failure_reason, created_by, assigned_to, created_at, updated_at, triaged_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status, created_by)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.CreatedBy,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.RequiredSkills,
		&ticket.GuidanceNotes,
		&ticket.FailureReason,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.TriagedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) BeginTriage(ctx context.Context, id string) error {
	const query = `
        UPDATE tickets SET status=$2, updated_at=NOW()
        WHERE id=$1 AND status IN ($2,$3)`
	cmd, err := r.pool.Exec(ctx, query, id, domain.TicketStatusInTriage, domain.TicketStatusOpen)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (r *ticketRepository) SetAnalysisResult(ctx context.Context, id string, priority domain.TicketPriority, skills []string, notes string) error {
	const query = `
        UPDATE tickets SET priority=$2, required_skills=$3, guidance_notes=$4, updated_at=NOW()
        WHERE id=$1 AND status=$5`
	cmd, err := r.pool.Exec(ctx, query, id, priority, skills, notes, domain.TicketStatusInTriage)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (r *ticketRepository) CompleteTriage(ctx context.Context, id string, status domain.TicketStatus, assignedTo *string, failureReason *string) error {
	if !status.Terminal() {
		return fmt.Errorf("complete triage with non-terminal status %q", status)
	}
	const query = `
        UPDATE tickets SET status=$2, assigned_to=$3, failure_reason=$4, triaged_at=NOW(), updated_at=NOW()
        WHERE id=$1 AND status=$5`
	cmd, err := r.pool.Exec(ctx, query, id, status, assignedTo, failureReason, domain.TicketStatusInTriage)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (r *ticketRepository) ReopenForTriage(ctx context.Context, id string) error {
	const query = `
        UPDATE tickets SET status=$2, failure_reason=NULL, triaged_at=NULL, updated_at=NOW()
        WHERE id=$1 AND status=$3`
	cmd, err := r.pool.Exec(ctx, query, id, domain.TicketStatusOpen, domain.TicketStatusTriageFailed)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Status,
			&ticket.Priority,
			&ticket.RequiredSkills,
			&ticket.GuidanceNotes,
			&ticket.FailureReason,
			&ticket.CreatedBy,
			&ticket.AssignedTo,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.TriagedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
