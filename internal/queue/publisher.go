package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/opsdeck/ticket-triage/internal/config"
)

// ErrQueueUnavailable reports that the durable handoff failed. The ticket
// stays OPEN; the caller surfaces a degraded-success response instead of
// rolling back the created row.
var ErrQueueUnavailable = errors.New("triage queue unavailable")

// Publisher appends triage events to the Redis stream. It is the Event
// Intake side of the pipeline and runs on the synchronous request path, so
// every enqueue is bounded by a short timeout.
type Publisher struct {
	client  *redis.Client
	stream  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewPublisher constructs the intake publisher.
func NewPublisher(client *redis.Client, cfg config.QueueConfig, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:  client,
		stream:  cfg.Stream,
		timeout: cfg.EnqueueTimeout(),
		logger:  logger,
	}
}

// Enqueue durably hands the event to the triage workers.
func (p *Publisher) Enqueue(ctx context.Context, event TriageEvent) error {
	if event.EnqueuedAt.IsZero() {
		event.EnqueuedAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: event.values(),
	}).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	p.logger.Debug("triage event enqueued",
		zap.String("ticket_id", event.TicketID),
		zap.String("stream_id", id))
	return nil
}
