// Package presence implements soft slot holds. Clients heartbeat the
// slots they are looking at; records expire Timeout after the last
// heartbeat unless renewed. Presence is advisory: the booking transaction
// never trusts it for correctness.
package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/Shivanand-hulikatti/resource-booking/internal/clock"
	"github.com/Shivanand-hulikatti/resource-booking/internal/model"
	"github.com/Shivanand-hulikatti/resource-booking/internal/slot"
)

// DefaultTimeout is how long a record survives without a heartbeat.
const DefaultTimeout = 10 * time.Second

// cleanupDeadline bounds one scheduled cleanup against the store.
const cleanupDeadline = 5 * time.Second

// ErrInvalidRequest is returned for an empty resource, user or slot.
var ErrInvalidRequest = errors.New("invalid presence request")

// Event types published to a Broadcaster.
const (
	EventHeartbeat = "heartbeat"
	EventLeave     = "leave"
	EventExpired   = "expired"
)

// Event describes a presence change on one resource.
type Event struct {
	Type       string    `json:"type"`
	ResourceID string    `json:"resourceId"`
	User       string    `json:"user"`
	Slots      []string  `json:"slots"`
	Updated    time.Time `json:"updated,omitempty"`
}

// Broadcaster fans presence events out to live subscribers.
type Broadcaster interface {
	Broadcast(ev Event)
}

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	Clock       clock.Clock
	Timeout     time.Duration
	Logger      *slog.Logger
	Broadcaster Broadcaster
}

// Engine runs the heartbeat / cleanup / leave protocol over a Store.
type Engine struct {
	store       Store
	clock       clock.Clock
	timeout     time.Duration
	log         *slog.Logger
	broadcaster Broadcaster
}

// NewEngine constructs an Engine.
func NewEngine(store Store, opts Options) *Engine {
	e := &Engine{
		store:       store,
		clock:       opts.Clock,
		timeout:     opts.Timeout,
		log:         opts.Logger,
		broadcaster: opts.Broadcaster,
	}
	if e.clock == nil {
		e.clock = clock.Real()
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.log == nil {
		e.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e
}

// Timeout returns the configured record lifetime.
func (e *Engine) Timeout() time.Duration { return e.timeout }

// SetBroadcaster installs b. It must be called before the engine serves
// requests.
func (e *Engine) SetBroadcaster(b Broadcaster) { e.broadcaster = b }

// Heartbeat asserts that user is present on slots. All records of the
// batch share one updated timestamp, and either all are written or none.
// A cleanup is scheduled for each holder-slot pair seen for the first
// time; renewals reuse the pending cleanup. An empty batch is
// acknowledged without touching the store.
func (e *Engine) Heartbeat(ctx context.Context, resourceID string, slots []string, user string, data json.RawMessage) (time.Time, error) {
	updated := e.clock.Now().UTC()
	if len(slots) == 0 {
		if err := validateIDs(resourceID, user); err != nil {
			return time.Time{}, err
		}
		return updated, nil
	}
	claimed, err := e.store.Upsert(ctx, resourceID, slots, user, updated, data)
	if err != nil {
		return time.Time{}, fmt.Errorf("presence heartbeat: %w", err)
	}
	for sl, token := range claimed {
		e.schedule(resourceID, sl, user, token, e.timeout)
	}
	e.publish(Event{Type: EventHeartbeat, ResourceID: resourceID, User: user, Slots: slots, Updated: updated})
	return updated, nil
}

// Cleanup is the scheduled job for one holder-slot pair. It removes the
// record when it has gone stale and re-arms itself for the remaining
// time when a newer heartbeat arrived. A superseded token is a no-op.
func (e *Engine) Cleanup(ctx context.Context, resourceID, sl, user, token string) error {
	removed, left, err := e.store.Expire(ctx, resourceID, sl, user, token, e.timeout, e.clock.Now())
	if err != nil {
		return fmt.Errorf("presence cleanup: %w", err)
	}
	if left > 0 {
		e.schedule(resourceID, sl, user, token, left)
		return nil
	}
	if !removed {
		return nil
	}
	e.publish(Event{Type: EventExpired, ResourceID: resourceID, User: user, Slots: []string{sl}})
	return nil
}

// Leave removes user's records on slots. Pending cleanups are left to
// fire; they find their handle gone and do nothing.
func (e *Engine) Leave(ctx context.Context, resourceID string, slots []string, user string) error {
	if len(slots) == 0 {
		return validateIDs(resourceID, user)
	}
	if err := validate(resourceID, slots, user); err != nil {
		return err
	}
	if err := e.store.Remove(ctx, resourceID, slots, user); err != nil {
		return fmt.Errorf("presence leave: %w", err)
	}
	e.publish(Event{Type: EventLeave, ResourceID: resourceID, User: user, Slots: slots})
	return nil
}

// DatePresence returns every record of resourceID on a UTC date.
func (e *Engine) DatePresence(ctx context.Context, resourceID, date string) ([]model.PresenceRecord, error) {
	if _, err := slot.ParseDate(date); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	recs, err := e.store.ListDate(ctx, resourceID, date)
	if err != nil {
		return nil, fmt.Errorf("presence list: %w", err)
	}
	return recs, nil
}

// Held reports whether a live record of someone other than self covers
// [start, end) on resourceID. Records older than the timeout that have
// not been cleaned up yet are ignored.
func (e *Engine) Held(ctx context.Context, resourceID string, start, end int64, self string) (bool, error) {
	now := e.clock.Now()
	for _, date := range slot.Dates(slot.RequiredSlots(start, end)) {
		recs, err := e.store.ListDate(ctx, resourceID, date)
		if err != nil {
			return false, fmt.Errorf("presence list: %w", err)
		}
		live := recs[:0]
		for _, r := range recs {
			if now.Sub(r.Updated) < e.timeout {
				live = append(live, r)
			}
		}
		if heldBetween(live, self, start, end) {
			return true, nil
		}
	}
	return false, nil
}

// HeldByOthers reports whether any record not owned by self covers one of
// the slots of [start, start+durationMinutes). Slots are matched by their
// canonical start timestamp.
func HeldByOthers(records []model.PresenceRecord, self string, start int64, durationMinutes int) bool {
	if durationMinutes <= 0 {
		return false
	}
	return heldBetween(records, self, start, start+int64(durationMinutes)*60_000)
}

func heldBetween(records []model.PresenceRecord, self string, start, end int64) bool {
	wanted := make(map[string]struct{})
	for date, slots := range slot.RequiredSlots(start, end) {
		for _, s := range slots {
			ts, err := slot.SlotToTimestamp(date, s)
			if err != nil {
				continue
			}
			wanted[ts] = struct{}{}
		}
	}
	for _, r := range records {
		if r.User == self {
			continue
		}
		if _, ok := wanted[r.Slot]; ok {
			return true
		}
	}
	return false
}

func (e *Engine) schedule(resourceID, sl, user, token string, after time.Duration) {
	e.clock.AfterFunc(after, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupDeadline)
		defer cancel()
		if err := e.Cleanup(ctx, resourceID, sl, user, token); err != nil {
			e.log.Error("presence cleanup failed",
				"resource_id", resourceID, "slot", sl, "user", user, "error", err)
		}
	})
}

func (e *Engine) publish(ev Event) {
	if e.broadcaster != nil {
		e.broadcaster.Broadcast(ev)
	}
}

func validateIDs(resourceID, user string) error {
	if resourceID == "" || user == "" {
		return ErrInvalidRequest
	}
	return nil
}

func validate(resourceID string, slots []string, user string) error {
	if err := validateIDs(resourceID, user); err != nil {
		return err
	}
	if len(slots) == 0 {
		return ErrInvalidRequest
	}
	for i, s := range slots {
		if s == "" {
			return fmt.Errorf("%w: slot %d is empty", ErrInvalidRequest, i)
		}
	}
	return nil
}

func sortRecords(recs []model.PresenceRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Slot != recs[j].Slot {
			return recs[i].Slot < recs[j].Slot
		}
		return recs[i].User < recs[j].User
	})
}
