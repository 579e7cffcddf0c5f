package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Shivanand-hulikatti/resource-booking/internal/model"
)

func TestNewEventListsEveryResourceOnce(t *testing.T) {
	b := &model.Booking{
		ID: "b1", UID: "u1", ResourceID: "room-1", Status: model.StatusConfirmed,
		Items: []model.BookingItem{
			{ResourceID: "room-1", Quantity: 1},
			{ResourceID: "projector", Quantity: 2},
		},
		RescheduledFrom: "b0",
	}
	at := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	ev := NewEvent(BookingRescheduled, b, "admin", "moved", at)

	if len(ev.ResourceIDs) != 2 || ev.ResourceIDs[0] != "room-1" || ev.ResourceIDs[1] != "projector" {
		t.Errorf("ResourceIDs = %v, want [room-1 projector]", ev.ResourceIDs)
	}
	if ev.PreviousID != "b0" || ev.Reason != "moved" || ev.ActorID != "admin" {
		t.Errorf("event = %+v", ev)
	}
	if !ev.OccurredAt.Equal(at) {
		t.Errorf("OccurredAt = %v, want %v", ev.OccurredAt, at)
	}
}

func TestRedisPublisherPublishesJSON(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, DefaultChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	b := &model.Booking{ID: "b1", UID: "u1", ResourceID: "room-1", Status: model.StatusConfirmed, Start: 1000, End: 2000}
	at := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	if err := NewRedisPublisher(client, "").Dispatch(ctx, NewEvent(BookingConfirmed, b, "admin", "", at)); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	if msg.Channel != DefaultChannel {
		t.Errorf("channel = %q, want %q", msg.Channel, DefaultChannel)
	}
	var got Event
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.Type != BookingConfirmed || got.BookingID != "b1" || got.Status != model.StatusConfirmed || got.ActorID != "admin" {
		t.Errorf("event = %+v", got)
	}
	if !got.OccurredAt.Equal(at) || got.Start != 1000 || got.End != 2000 {
		t.Errorf("event timing = %+v", got)
	}
}

func TestRedisPublisherReportsBrokerFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	b := &model.Booking{ID: "b1", ResourceID: "room-1"}
	err := NewRedisPublisher(client, "events").Dispatch(context.Background(), NewEvent(BookingCreated, b, "", "", time.Now()))
	if err == nil {
		t.Fatalf("Dispatch to a closed broker succeeded")
	}
}
