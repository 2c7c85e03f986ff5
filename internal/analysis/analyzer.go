package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/opsdeck/ticket-triage/internal/domain"
)

// Result is the structured triage output of the classification provider,
// already normalized for downstream use.
type Result struct {
	Priority       domain.TicketPriority
	RequiredSkills []string
	GuidanceNotes  string
}

// Analyzer classifies a ticket's text. Implementations are treated as
// untrusted, possibly slow external capabilities; callers bound every
// invocation with a context deadline.
type Analyzer interface {
	Analyze(ctx context.Context, title, description string) (*Result, error)
}

// Error reports a failed analysis call. Transient failures (timeouts,
// provider 5xx, transport errors) are retried by the orchestrator; permanent
// ones are not.
type Error struct {
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("analysis failed (%s): %v", kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient reports whether the error is worth retrying.
func IsTransient(err error) bool {
	var analysisErr *Error
	if errors.As(err, &analysisErr) {
		return analysisErr.Transient
	}
	return false
}
