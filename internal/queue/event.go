package queue

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TriageEvent is the durable handoff from the request path to the triage
// worker. It carries the ticket text so the worker can call analysis without
// re-reading the row.
type TriageEvent struct {
	TicketID    string
	Title       string
	Description string
	CreatedBy   string
	EnqueuedAt  time.Time
}

func (e TriageEvent) values() map[string]interface{} {
	return map[string]interface{}{
		"ticket_id":   e.TicketID,
		"title":       e.Title,
		"description": e.Description,
		"created_by":  e.CreatedBy,
		"enqueued_at": e.EnqueuedAt.UTC().Format(time.RFC3339Nano),
	}
}

func eventFromMessage(msg redis.XMessage) (TriageEvent, error) {
	event := TriageEvent{
		TicketID:    stringValue(msg, "ticket_id"),
		Title:       stringValue(msg, "title"),
		Description: stringValue(msg, "description"),
		CreatedBy:   stringValue(msg, "created_by"),
	}
	if event.TicketID == "" {
		return TriageEvent{}, fmt.Errorf("stream entry %s has no ticket_id", msg.ID)
	}
	if raw := stringValue(msg, "enqueued_at"); raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			event.EnqueuedAt = ts
		}
	}
	return event, nil
}

func stringValue(msg redis.XMessage, key string) string {
	val, ok := msg.Values[key]
	if !ok {
		return ""
	}
	str, ok := val.(string)
	if !ok {
		return ""
	}
	return str
}
