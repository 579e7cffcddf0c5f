// Package notify delivers booking lifecycle events to downstream
// consumers (email, webhooks, calendars). Delivery is best effort and
// happens after the transaction that caused the event has committed.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Shivanand-hulikatti/resource-booking/internal/model"
)

// Event types.
const (
	BookingCreated     = "booking.created"
	BookingConfirmed   = "booking.confirmed"
	BookingDeclined    = "booking.declined"
	BookingCancelled   = "booking.cancelled"
	BookingCompleted   = "booking.completed"
	BookingRescheduled = "booking.rescheduled"
)

// DefaultChannel is the Redis pub/sub channel events are published on.
const DefaultChannel = "booking-events"

// Event is one lifecycle change of a booking.
type Event struct {
	Type        string              `json:"type"`
	BookingID   string              `json:"bookingId"`
	UID         string              `json:"uid"`
	Status      model.BookingStatus `json:"status"`
	ResourceIDs []string            `json:"resourceIds"`
	Start       int64               `json:"start"`
	End         int64               `json:"end"`
	BookerEmail string              `json:"bookerEmail,omitempty"`
	Reason      string              `json:"reason,omitempty"`
	ActorID     string              `json:"actorId,omitempty"`
	PreviousID  string              `json:"previousId,omitempty"`
	OccurredAt  time.Time           `json:"occurredAt"`
}

// NewEvent builds the event of type typ for b.
func NewEvent(typ string, b *model.Booking, actorID, reason string, at time.Time) Event {
	ids := []string{b.ResourceID}
	for _, it := range b.Items {
		if it.ResourceID != b.ResourceID {
			ids = append(ids, it.ResourceID)
		}
	}
	return Event{
		Type:        typ,
		BookingID:   b.ID,
		UID:         b.UID,
		Status:      b.Status,
		ResourceIDs: ids,
		Start:       b.Start,
		End:         b.End,
		BookerEmail: b.BookerEmail,
		Reason:      reason,
		ActorID:     actorID,
		PreviousID:  b.RescheduledFrom,
		OccurredAt:  at,
	}
}

// Dispatcher delivers events.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
}

// RedisPublisher publishes events as JSON on a Redis channel.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisPublisher constructs a RedisPublisher.
func NewRedisPublisher(client redis.UniversalClient, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Dispatch(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// LogDispatcher writes events to a logger. It is the fallback when no
// broker is configured.
type LogDispatcher struct {
	log *slog.Logger
}

// NewLogDispatcher constructs a LogDispatcher.
func NewLogDispatcher(log *slog.Logger) *LogDispatcher {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, ev Event) error {
	d.log.InfoContext(ctx, "booking event",
		"type", ev.Type,
		"booking_id", ev.BookingID,
		"status", ev.Status,
		"resources", ev.ResourceIDs,
	)
	return nil
}
