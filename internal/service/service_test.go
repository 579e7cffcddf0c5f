package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Shivanand-hulikatti/resource-booking/internal/clock"
	"github.com/Shivanand-hulikatti/resource-booking/internal/model"
	"github.com/Shivanand-hulikatti/resource-booking/internal/notify"
	"github.com/Shivanand-hulikatti/resource-booking/internal/repository"
	"github.com/Shivanand-hulikatti/resource-booking/internal/slot"
)

var now = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func at(day, hour, minute int) int64 {
	return time.Date(2025, 6, day, hour, minute, 0, 0, time.UTC).UnixMilli()
}

type dispatchRecorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *dispatchRecorder) Dispatch(_ context.Context, ev notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *dispatchRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	store    *repository.MemoryStore
	clock    *clock.FakeClock
	registry *RegistryService
	avail    *AvailabilityService
	bookings *BookingService
	events   *dispatchRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  repository.NewMemoryStore(),
		clock:  clock.Fake(now),
		events: &dispatchRecorder{},
	}
	f.registry = NewRegistryService(f.store, f.clock, nil)
	f.avail = NewAvailabilityService(f.store, f.clock, slot.DefaultWindow)
	f.bookings = NewBookingService(f.store, BookingOptions{
		Clock:     f.clock,
		Notifier:  f.events,
		TokenCost: bcrypt.MinCost,
	})
	return f
}

func (f *fixture) resource(t *testing.T, id string, quantity int, fungible bool) *model.Resource {
	t.Helper()
	r, err := f.registry.CreateResource(context.Background(), model.ResourceInput{
		ID:             id,
		OrganizationID: "org-1",
		Name:           id,
		Quantity:       quantity,
		IsFungible:     fungible,
	})
	if err != nil {
		t.Fatalf("CreateResource(%s): %v", id, err)
	}
	return r
}

func (f *fixture) eventType(t *testing.T, in model.EventTypeInput, linked ...string) *model.EventType {
	t.Helper()
	ctx := context.Background()
	if in.OrganizationID == "" {
		in.OrganizationID = "org-1"
	}
	if in.Slug == "" {
		in.Slug = "consult"
	}
	if in.Title == "" {
		in.Title = "Consultation"
	}
	if in.LengthInMinutes == 0 {
		in.LengthInMinutes = 60
	}
	et, err := f.registry.CreateEventType(ctx, in)
	if err != nil {
		t.Fatalf("CreateEventType: %v", err)
	}
	for _, rid := range linked {
		if err := f.registry.LinkEventType(ctx, rid, et.ID); err != nil {
			t.Fatalf("LinkEventType(%s): %v", rid, err)
		}
	}
	return et
}

func (f *fixture) busy(t *testing.T, resourceID, date string) []int {
	t.Helper()
	rec, err := f.store.GetDailyAvailability(context.Background(), resourceID, date)
	if err != nil {
		t.Fatalf("GetDailyAvailability: %v", err)
	}
	return rec.BusySlots
}

func (f *fixture) counts(t *testing.T, resourceID, date string) [slot.SlotsPerDay]int {
	t.Helper()
	rec, err := f.store.GetQuantityAvailability(context.Background(), resourceID, date)
	if err != nil {
		t.Fatalf("GetQuantityAvailability: %v", err)
	}
	return rec.Slots
}

func booker() model.Booker {
	return model.Booker{Name: "Ada", Email: "ada@example.com"}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
