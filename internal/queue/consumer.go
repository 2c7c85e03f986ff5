package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/opsdeck/ticket-triage/internal/config"
)

// Handler processes one delivered triage event. A nil return acknowledges
// the entry; that covers both success and recorded terminal failure. A
// non-nil return leaves the entry pending for redelivery.
type Handler func(ctx context.Context, event TriageEvent) error

// Consumer reads the triage stream through a consumer group, giving
// at-least-once delivery across any number of worker processes. A claim loop
// takes over entries whose consumer died mid-flight.
type Consumer struct {
	client  *redis.Client
	cfg     config.QueueConfig
	handler Handler
	logger  *zap.Logger
}

// NewConsumer constructs a consumer bound to one handler.
func NewConsumer(client *redis.Client, cfg config.QueueConfig, handler Handler, logger *zap.Logger) *Consumer {
	return &Consumer{
		client:  client,
		cfg:     cfg,
		handler: handler,
		logger:  logger,
	}
}

// Run blocks until ctx is cancelled, reading and processing events with the
// configured concurrency.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Concurrency; i++ {
		name := fmt.Sprintf("%s-%d", c.cfg.ConsumerName, i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.readLoop(ctx, name)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.claimLoop(ctx)
	}()

	wg.Wait()
	return nil
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

func (c *Consumer) readLoop(ctx context.Context, consumer string) {
	for {
		if ctx.Err() != nil {
			return
		}
		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: consumer,
			Streams:  []string{c.cfg.Stream, ">"},
			Count:    1,
			Block:    c.cfg.BlockTimeout(),
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("read triage stream", zap.Error(err), zap.String("consumer", consumer))
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				c.process(ctx, consumer, msg)
			}
		}
	}
}

// claimLoop periodically takes over entries another consumer left pending
// past the visibility timeout, and drops entries that keep failing.
func (c *Consumer) claimLoop(ctx context.Context) {
	claimer := c.cfg.ConsumerName + "-claim"
	ticker := time.NewTicker(c.cfg.ClaimInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
			Stream: c.cfg.Stream,
			Group:  c.cfg.Group,
			Idle:   c.cfg.VisibilityTimeout(),
			Start:  "-",
			End:    "+",
			Count:  64,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Error("scan pending triage events", zap.Error(err))
			}
			continue
		}

		for _, entry := range pending {
			if c.cfg.MaxDeliveries > 0 && entry.RetryCount > int64(c.cfg.MaxDeliveries) {
				// Poison entry: record it loudly and get it out of the way
				// so the pending list cannot wedge.
				c.logger.Error("dropping triage event after max deliveries",
					zap.String("stream_id", entry.ID),
					zap.Int64("deliveries", entry.RetryCount))
				c.ack(ctx, entry.ID)
				continue
			}

			msgs, err := c.client.XClaim(ctx, &redis.XClaimArgs{
				Stream:   c.cfg.Stream,
				Group:    c.cfg.Group,
				Consumer: claimer,
				MinIdle:  c.cfg.VisibilityTimeout(),
				Messages: []string{entry.ID},
			}).Result()
			if err != nil {
				if ctx.Err() == nil {
					c.logger.Error("claim triage event", zap.Error(err), zap.String("stream_id", entry.ID))
				}
				continue
			}
			for _, msg := range msgs {
				c.process(ctx, claimer, msg)
			}
		}
	}
}

func (c *Consumer) process(ctx context.Context, consumer string, msg redis.XMessage) {
	event, err := eventFromMessage(msg)
	if err != nil {
		c.logger.Error("malformed triage event, dropping",
			zap.Error(err),
			zap.String("stream_id", msg.ID))
		c.ack(ctx, msg.ID)
		return
	}

	if err := c.handler(ctx, event); err != nil {
		// Left pending; redelivered via the claim loop.
		c.logger.Error("triage event processing failed",
			zap.Error(err),
			zap.String("ticket_id", event.TicketID),
			zap.String("consumer", consumer))
		return
	}
	c.ack(ctx, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, id).Err(); err != nil && ctx.Err() == nil {
		c.logger.Error("ack triage event", zap.Error(err), zap.String("stream_id", id))
	}
}
