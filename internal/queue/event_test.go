package queue

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestEventValuesRoundTrip(t *testing.T) {
	enqueued := time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)
	event := TriageEvent{
		TicketID:    "t-42",
		Title:       "VPN down",
		Description: "Cannot connect to office VPN",
		CreatedBy:   "u-1",
		EnqueuedAt:  enqueued,
	}

	values := map[string]interface{}{}
	for k, v := range event.values() {
		values[k] = v
	}
	decoded, err := eventFromMessage(redis.XMessage{ID: "1-0", Values: values})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.TicketID != event.TicketID ||
		decoded.Title != event.Title ||
		decoded.Description != event.Description ||
		decoded.CreatedBy != event.CreatedBy {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
	if !decoded.EnqueuedAt.Equal(enqueued) {
		t.Fatalf("expected enqueued_at %v, got %v", enqueued, decoded.EnqueuedAt)
	}
}

func TestEventFromMessageRequiresTicketID(t *testing.T) {
	_, err := eventFromMessage(redis.XMessage{
		ID:     "1-0",
		Values: map[string]interface{}{"title": "orphan"},
	})
	if err == nil {
		t.Fatal("expected error for missing ticket_id")
	}
}

func TestEventFromMessageToleratesBadTimestamp(t *testing.T) {
	decoded, err := eventFromMessage(redis.XMessage{
		ID: "1-0",
		Values: map[string]interface{}{
			"ticket_id":   "t-1",
			"enqueued_at": "yesterday",
		},
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.EnqueuedAt.IsZero() {
		t.Fatalf("expected zero time for unparseable timestamp, got %v", decoded.EnqueuedAt)
	}
}
