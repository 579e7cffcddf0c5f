package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/resource-booking/internal/model"
	"github.com/Shivanand-hulikatti/resource-booking/internal/notify"
	"github.com/Shivanand-hulikatti/resource-booking/internal/repository"
)

func TestReservationMarksExactSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.resource(t, "studio-a", 1, false)

	id, err := f.bookings.CreateReservation(ctx, "studio-a", "u1", at(17, 14, 0), at(17, 15, 0))
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if got := f.busy(t, "studio-a", "2025-06-17"); !equalInts(got, []int{56, 57, 58, 59}) {
		t.Fatalf("busy = %v, want [56 57 58 59]", got)
	}
	if ok, _ := f.avail.GetAvailability(ctx, "studio-a", at(17, 14, 0), at(17, 15, 0)); ok {
		t.Errorf("booked interval reported available")
	}
	if ok, _ := f.avail.GetAvailability(ctx, "studio-a", at(17, 13, 0), at(17, 14, 0)); !ok {
		t.Errorf("adjacent interval reported unavailable")
	}

	b, err := f.bookings.GetBooking(ctx, id)
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if b.Status != model.StatusConfirmed || b.OrganizationID != "org-1" || b.ActorID != "u1" {
		t.Errorf("booking = %+v", b)
	}
}

func TestCancelReleasesSlotsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.resource(t, "studio-a", 1, false)

	id, err := f.bookings.CreateReservation(ctx, "studio-a", "u1", at(17, 14, 0), at(17, 15, 0))
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	other, err := f.bookings.CreateReservation(ctx, "studio-a", "u2", at(17, 9, 0), at(17, 9, 30))
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}

	b, err := f.bookings.CancelBooking(ctx, id, "plans changed", "u1")
	if err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	if b.Status != model.StatusCancelled || b.CancelledAt == nil || b.CancellationReason != "plans changed" {
		t.Errorf("cancelled booking = %+v", b)
	}
	if got := f.busy(t, "studio-a", "2025-06-17"); !equalInts(got, []int{36, 37}) {
		t.Fatalf("busy after cancel = %v, want the other booking's [36 37]", got)
	}
	if ok, _ := f.avail.GetAvailability(ctx, "studio-a", at(17, 14, 0), at(17, 15, 0)); !ok {
		t.Errorf("cancelled interval still unavailable")
	}

	if _, err := f.bookings.CancelBooking(ctx, id, "again", "u1"); err != nil {
		t.Fatalf("second CancelBooking: %v", err)
	}
	if got := f.busy(t, "studio-a", "2025-06-17"); !equalInts(got, []int{36, 37}) {
		t.Errorf("second cancel changed busy slots: %v", got)
	}
	h, err := f.bookings.ListHistory(ctx, id)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(h) != 2 || h[1].FromStatus != model.StatusConfirmed || h[1].ToStatus != model.StatusCancelled {
		t.Errorf("history = %+v, want create then one cancel", h)
	}
	if _, err := f.bookings.GetBooking(ctx, other); err != nil {
		t.Errorf("other booking: %v", err)
	}
}

func TestReservationAcrossMidnight(t *testing.T) {
	f := newFixture(t)
	f.resource(t, "studio-a", 1, false)

	if _, err := f.bookings.CreateReservation(context.Background(), "studio-a", "u1", at(17, 23, 45), at(18, 0, 30)); err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if got := f.busy(t, "studio-a", "2025-06-17"); !equalInts(got, []int{95}) {
		t.Errorf("06-17 busy = %v, want [95]", got)
	}
	if got := f.busy(t, "studio-a", "2025-06-18"); !equalInts(got, []int{0, 1}) {
		t.Errorf("06-18 busy = %v, want [0 1]", got)
	}
}

func TestConcurrentReservationsOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.resource(t, "studio-a", 1, false)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every attempt overlaps 14:30-15:00.
			start := at(17, 14, 0) + int64(i%2)*30*60_000
			_, err := f.bookings.CreateReservation(ctx, "studio-a", "u", start, start+60*60_000)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, repository.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 || conflicts != n-1 {
		t.Fatalf("wins = %d, conflicts = %d", wins, conflicts)
	}
	got := f.busy(t, "studio-a", "2025-06-17")
	if !equalInts(got, []int{56, 57, 58, 59}) && !equalInts(got, []int{58, 59, 60, 61}) {
		t.Errorf("busy = %v, want exactly the winner's slots", got)
	}
}

func TestReservationErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.resource(t, "studio-a", 1, false)

	if _, err := f.bookings.CreateReservation(ctx, "studio-a", "u1", at(17, 15, 0), at(17, 15, 0)); !errors.Is(err, ErrValidation) {
		t.Errorf("zero-length error = %v, want ErrValidation", err)
	}
	yearsLater := time.Date(2028, 6, 17, 15, 0, 0, 0, time.UTC).UnixMilli()
	if _, err := f.bookings.CreateReservation(ctx, "studio-a", "u1", at(17, 15, 0), yearsLater); !errors.Is(err, ErrValidation) {
		t.Errorf("multi-year span error = %v, want ErrValidation", err)
	}
	if got := f.busy(t, "studio-a", "2025-06-17"); len(got) != 0 {
		t.Errorf("busy after rejected span = %v, want none", got)
	}
	if _, err := f.bookings.CreateReservation(ctx, "nope", "u1", at(17, 15, 0), at(17, 16, 0)); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unknown resource error = %v, want ErrNotFound", err)
	}
	if _, err := f.bookings.CreateReservation(ctx, "studio-a", "u1", at(17, 15, 0), at(17, 16, 0)); err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	_, err := f.bookings.CreateReservation(ctx, "studio-a", "u1", at(17, 15, 30), at(17, 16, 30))
	var ce *repository.ConflictError
	if !errors.As(err, &ce) || len(ce.Resources) != 1 || ce.Resources[0] != "studio-a" {
		t.Fatalf("overlap error = %v, want ConflictError naming studio-a", err)
	}
	if !equalInts(ce.Slots["2025-06-17"], []int{62, 63}) {
		t.Errorf("conflicting slots = %v, want [62 63]", ce.Slots)
	}
}

func TestCreateBookingStatusFollowsEventType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.resource(t, "studio-a", 1, false)
	open := f.eventType(t, model.EventTypeInput{Slug: "open", Title: "Open", Description: "walk in", Timezone: "Europe/Berlin"}, "studio-a")
	gated := f.eventType(t, model.EventTypeInput{Slug: "gated", RequiresConfirmation: true}, "studio-a")

	b, err := f.bookings.CreateBooking(ctx, model.CreateBookingRequest{
		EventTypeID: open.ID, ResourceID: "studio-a",
		Start: at(17, 9, 0), End: at(17, 10, 0), Booker: booker(),
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if b.Status != model.StatusConfirmed || b.Title != "Open" || b.Description != "walk in" || b.Timezone != "Europe/Berlin" {
		t.Errorf("booking = %+v", b)
	}
	if len(b.UID) != 32 || b.ManagementToken == "" || b.ManagementTokenHash == "" {
		t.Errorf("uid = %q token = %q", b.UID, b.ManagementToken)
	}

	p, err := f.bookings.CreateBooking(ctx, model.CreateBookingRequest{
		EventTypeID: gated.ID, ResourceID: "studio-a",
		Start: at(17, 11, 0), End: at(17, 12, 0), Booker: booker(),
	})
	if err != nil {
		t.Fatalf("CreateBooking gated: %v", err)
	}
	if p.Status != model.StatusPending {
		t.Fatalf("status = %s, want pending", p.Status)
	}
	if ok, _ := f.avail.GetAvailability(ctx, "studio-a", at(17, 11, 0), at(17, 12, 0)); ok {
		t.Errorf("pending booking does not hold its slots")
	}

	if _, err := f.bookings.CompleteBooking(ctx, p.ID, "admin"); !errors.Is(err, repository.ErrInvalidState) {
		t.Errorf("complete pending error = %v, want ErrInvalidState", err)
	}
	c, err := f.bookings.ConfirmBooking(ctx, p.ID, "admin")
	if err != nil || c.Status != model.StatusConfirmed {
		t.Fatalf("ConfirmBooking = %v, %v", c, err)
	}
	if _, err := f.bookings.CompleteBooking(ctx, p.ID, "admin"); err != nil {
		t.Fatalf("CompleteBooking: %v", err)
	}
	if ok, _ := f.avail.GetAvailability(ctx, "studio-a", at(17, 11, 0), at(17, 12, 0)); ok {
		t.Errorf("completed booking released its slots")
	}
	if _, err := f.bookings.CancelBooking(ctx, p.ID, "", "admin"); !errors.Is(err, repository.ErrInvalidState) {
		t.Errorf("cancel completed error = %v, want ErrInvalidState", err)
	}

	want := []string{notify.BookingCreated, notify.BookingCreated, notify.BookingConfirmed, notify.BookingCompleted}
	got := f.events.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestDeclineReleasesSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.resource(t, "studio-a", 1, false)
	et := f.eventType(t, model.EventTypeInput{RequiresConfirmation: true}, "studio-a")

	b, err := f.bookings.CreateBooking(ctx, model.CreateBookingRequest{
		EventTypeID: et.ID, ResourceID: "studio-a",
		Start: at(17, 9, 0), End: at(17, 10, 0), Booker: booker(),
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	d, err := f.bookings.DeclineBooking(ctx, b.ID, "fully booked", "admin")
	if err != nil {
		t.Fatalf("DeclineBooking: %v", err)
	}
	if d.Status != model.StatusDeclined || d.CancellationReason != "fully booked" {
		t.Errorf("declined = %+v", d)
	}
	if got := f.busy(t, "studio-a", "2025-06-17"); len(got) != 0 {
		t.Errorf("busy after decline = %v", got)
	}
}

func TestCreateBookingRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.resource(t, "studio-a", 1, false)
	f.resource(t, "studio-b", 1, false)
	et := f.eventType(t, model.EventTypeInput{
		LengthInMinutes:        60,
		LengthInMinutesOptions: []int{30},
		MinNoticeMinutes:       60,
		MaxFutureMinutes:       30 * 24 * 60,
		BufferAfter:            15,
	}, "studio-a")

	req := func(mod func(*model.CreateBookingRequest)) model.CreateBookingRequest {
		r := model.CreateBookingRequest{
			EventTypeID: et.ID, ResourceID: "studio-a",
			Start: at(17, 14, 0), End: at(17, 15, 0), Booker: booker(),
		}
		mod(&r)
		return r
	}
	cases := []struct {
		name string
		req  model.CreateBookingRequest
		want error
	}{
		{"unknown event type", req(func(r *model.CreateBookingRequest) { r.EventTypeID = "missing" }), repository.ErrNotFound},
		{"unlinked resource", req(func(r *model.CreateBookingRequest) { r.ResourceID = "studio-b" }), ErrValidation},
		{"length not offered", req(func(r *model.CreateBookingRequest) { r.End = at(17, 14, 45) }), ErrValidation},
		{"inside notice", req(func(r *model.CreateBookingRequest) { r.Start, r.End = at(1, 8, 30), at(1, 9, 30) }), ErrValidation},
		{"beyond horizon", req(func(r *model.CreateBookingRequest) { r.Start, r.End = at(30, 14, 0)+24*3600_000, at(30, 15, 0)+24*3600_000 }), ErrValidation},
		{"bad email", req(func(r *model.CreateBookingRequest) { r.Booker.Email = "nope" }), ErrValidation},
		{"bad timezone", req(func(r *model.CreateBookingRequest) { r.Timezone = "Mars/Olympus" }), ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.bookings.CreateBooking(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
		})
	}

	// A 30 minute option is accepted.
	if _, err := f.bookings.CreateBooking(ctx, req(func(r *model.CreateBookingRequest) { r.End = at(17, 14, 30) })); err != nil {
		t.Fatalf("30 minute booking: %v", err)
	}
	// 16:00 is taken, so a 15:00-16:00 booking has no room for its buffer.
	if _, err := f.bookings.CreateReservation(ctx, "studio-a", "u1", at(17, 16, 0), at(17, 17, 0)); err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	_, err := f.bookings.CreateBooking(ctx, req(func(r *model.CreateBookingRequest) { r.Start, r.End = at(17, 15, 0), at(17, 16, 0) }))
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("buffer clash error = %v, want ErrConflict", err)
	}
	if got := f.busy(t, "studio-a", "2025-06-17"); !equalInts(got, []int{56, 57, 64, 65, 66, 67}) {
		t.Errorf("busy = %v", got)
	}

	if _, err := f.registry.UpdateEventType(ctx, et.ID, model.EventTypeInput{
		OrganizationID: "org-1", Slug: "consult", Title: "Consultation", LengthInMinutes: 60, IsActive: new(bool),
	}); err != nil {
		t.Fatalf("UpdateEventType: %v", err)
	}
	if _, err := f.bookings.CreateBooking(ctx, req(func(r *model.CreateBookingRequest) {})); !errors.Is(err, repository.ErrInvalidState) {
		t.Errorf("inactive event type error = %v, want ErrInvalidState", err)
	}
}

func TestRescheduleKeepsOriginalOnConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.resource(t, "studio-a", 1, false)
	et := f.eventType(t, model.EventTypeInput{}, "studio-a")

	b, err := f.bookings.CreateBooking(ctx, model.CreateBookingRequest{
		EventTypeID: et.ID, ResourceID: "studio-a",
		Start: at(17, 9, 0), End: at(17, 10, 0), Booker: booker(),
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if _, err := f.bookings.CreateReservation(ctx, "studio-a", "u2", at(17, 13, 0), at(17, 14, 0)); err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}

	if _, err := f.bookings.RescheduleBooking(ctx, b.ID, model.RescheduleRequest{Start: at(17, 13, 0), End: at(17, 14, 0)}, "u1"); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("reschedule onto taken slot error = %v, want ErrConflict", err)
	}
	if got := f.busy(t, "studio-a", "2025-06-17"); !equalInts(got, []int{36, 37, 38, 39, 52, 53, 54, 55}) {
		t.Fatalf("busy after failed reschedule = %v", got)
	}
	if cur, _ := f.bookings.GetBooking(ctx, b.ID); cur.Status != model.StatusConfirmed {
		t.Fatalf("original status = %s after failed reschedule", cur.Status)
	}

	// Overlapping its own interval is fine: the old slots are released first.
	next, err := f.bookings.RescheduleBooking(ctx, b.ID, model.RescheduleRequest{Start: at(17, 9, 30), End: at(17, 10, 30)}, "u1")
	if err != nil {
		t.Fatalf("RescheduleBooking: %v", err)
	}
	if next.RescheduledFrom != b.ID || next.Status != model.StatusConfirmed || next.UID == b.UID || next.ManagementToken == "" {
		t.Errorf("new booking = %+v", next)
	}
	if got := f.busy(t, "studio-a", "2025-06-17"); !equalInts(got, []int{38, 39, 40, 41, 52, 53, 54, 55}) {
		t.Errorf("busy after reschedule = %v", got)
	}
	old, _ := f.bookings.GetBooking(ctx, b.ID)
	if old.Status != model.StatusCancelled || old.CancellationReason != "rescheduled" {
		t.Errorf("old booking = %+v", old)
	}
	if _, err := f.bookings.RescheduleBooking(ctx, b.ID, model.RescheduleRequest{Start: at(17, 15, 0), End: at(17, 16, 0)}, "u1"); !errors.Is(err, repository.ErrInvalidState) {
		t.Errorf("reschedule of cancelled booking error = %v, want ErrInvalidState", err)
	}
}

func TestManagementToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.resource(t, "studio-a", 1, false)
	et := f.eventType(t, model.EventTypeInput{}, "studio-a")

	b, err := f.bookings.CreateBooking(ctx, model.CreateBookingRequest{
		EventTypeID: et.ID, ResourceID: "studio-a",
		Start: at(17, 9, 0), End: at(17, 10, 0), Booker: booker(),
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	stored, _ := f.bookings.GetBooking(ctx, b.ID)
	if stored.ManagementToken != "" {
		t.Fatalf("plain token stored")
	}

	if _, err := f.bookings.CancelWithToken(ctx, b.UID, "wrong", ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("wrong token error = %v, want ErrForbidden", err)
	}
	next, err := f.bookings.RescheduleWithToken(ctx, b.UID, b.ManagementToken, model.RescheduleRequest{Start: at(17, 11, 0), End: at(17, 12, 0)})
	if err != nil {
		t.Fatalf("RescheduleWithToken: %v", err)
	}
	// The replaced booking is already cancelled, so this is a no-op.
	if _, err := f.bookings.CancelWithToken(ctx, b.UID, b.ManagementToken, ""); err != nil {
		t.Fatalf("cancelling the replaced booking: %v", err)
	}

	f.clock.Advance(DefaultTokenTTL + time.Hour)
	if _, err := f.bookings.CancelWithToken(ctx, next.UID, next.ManagementToken, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expired token error = %v, want ErrForbidden", err)
	}
}

type holdStub struct {
	held bool
	err  error
}

func (h holdStub) Held(context.Context, string, int64, int64, string) (bool, error) {
	return h.held, h.err
}

func TestPresenceGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.resource(t, "studio-a", 1, false)
	et := f.eventType(t, model.EventTypeInput{}, "studio-a")
	req := model.CreateBookingRequest{
		EventTypeID: et.ID, ResourceID: "studio-a",
		Start: at(17, 9, 0), End: at(17, 10, 0), Booker: booker(), SessionID: "s1",
	}

	guarded := NewBookingService(f.store, BookingOptions{Clock: f.clock, Holds: holdStub{held: true}, TokenCost: 4})
	if _, err := guarded.CreateBooking(ctx, req); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("held slot error = %v, want ErrConflict", err)
	}

	failing := NewBookingService(f.store, BookingOptions{Clock: f.clock, Holds: holdStub{err: errors.New("redis down")}, TokenCost: 4})
	if _, err := failing.CreateBooking(ctx, req); err != nil {
		t.Fatalf("booking with failing presence backend: %v", err)
	}
}

// sessionHolds maps a resource to the session holding it.
type sessionHolds map[string]string

func (h sessionHolds) Held(_ context.Context, resourceID string, _, _ int64, self string) (bool, error) {
	holder, ok := h[resourceID]
	return ok && holder != self, nil
}

func TestPresenceGuardOnMultiResourceBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.resource(t, "room-a", 1, false)
	f.resource(t, "projector", 1, false)
	et := f.eventType(t, model.EventTypeInput{}, "room-a", "projector")

	guarded := NewBookingService(f.store, BookingOptions{Clock: f.clock, Holds: sessionHolds{"projector": "s2"}, TokenCost: 4})
	req := multiRequest(et.ID, model.ResourceRequest{ResourceID: "room-a"}, model.ResourceRequest{ResourceID: "projector"})
	req.SessionID = "s1"

	_, err := guarded.CreateMultiResourceBooking(ctx, req)
	var ce *repository.ConflictError
	if !errors.As(err, &ce) || len(ce.Resources) != 1 || ce.Resources[0] != "projector" {
		t.Fatalf("held projector error = %v, want ConflictError naming projector", err)
	}
	if got := f.busy(t, "room-a", "2025-06-17"); len(got) != 0 {
		t.Errorf("rejected bundle left busy slots: %v", got)
	}

	req.SessionID = "s2"
	if _, err := guarded.CreateMultiResourceBooking(ctx, req); err != nil {
		t.Fatalf("holder's own bundle: %v", err)
	}
}

func TestPresenceGuardOnReschedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.resource(t, "studio-a", 1, false)
	et := f.eventType(t, model.EventTypeInput{}, "studio-a")

	b, err := f.bookings.CreateBooking(ctx, model.CreateBookingRequest{
		EventTypeID: et.ID, ResourceID: "studio-a",
		Start: at(17, 9, 0), End: at(17, 10, 0), Booker: booker(),
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	guarded := NewBookingService(f.store, BookingOptions{Clock: f.clock, Holds: sessionHolds{"studio-a": "s2"}, TokenCost: 4})
	move := model.RescheduleRequest{Start: at(17, 13, 0), End: at(17, 14, 0), SessionID: "s1"}
	if _, err := guarded.RescheduleBooking(ctx, b.ID, move, "u1"); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("reschedule onto held slots error = %v, want ErrConflict", err)
	}
	if cur, _ := f.bookings.GetBooking(ctx, b.ID); cur.Status != model.StatusConfirmed {
		t.Fatalf("original status = %s after guarded reschedule", cur.Status)
	}
	if _, err := guarded.RescheduleWithToken(ctx, b.UID, b.ManagementToken, move); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("self-service reschedule onto held slots error = %v, want ErrConflict", err)
	}

	move.SessionID = "s2"
	if _, err := guarded.RescheduleBooking(ctx, b.ID, move, "u1"); err != nil {
		t.Fatalf("holder's own reschedule: %v", err)
	}
	if _, err := guarded.RescheduleBooking(ctx, "missing", move, "u1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unknown booking error = %v, want ErrNotFound", err)
	}
}

func TestListBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.resource(t, "studio-a", 1, false)
	for _, h := range []int{15, 9, 12} {
		if _, err := f.bookings.CreateReservation(ctx, "studio-a", "u1", at(17, h, 0), at(17, h+1, 0)); err != nil {
			t.Fatalf("CreateReservation: %v", err)
		}
	}
	got, err := f.bookings.ListBookings(ctx, model.BookingFilter{ResourceID: "studio-a", From: at(17, 10, 0)})
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if len(got) != 2 || got[0].Start != at(17, 12, 0) || got[1].Start != at(17, 15, 0) {
		t.Errorf("bookings = %+v, want 12:00 and 15:00", got)
	}
	if _, err := f.bookings.ListBookings(ctx, model.BookingFilter{Status: "archived"}); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown status error = %v, want ErrValidation", err)
	}
}
