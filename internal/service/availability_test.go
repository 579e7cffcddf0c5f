package service

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/Shivanand-hulikatti/resource-booking/internal/model"
	"github.com/Shivanand-hulikatti/resource-booking/internal/repository"
)

func TestDaySlotsOnEmptyDay(t *testing.T) {
	f := newFixture(t)
	f.resource(t, "studio-a", 1, false)

	slots, err := f.avail.GetDaySlots(context.Background(), "studio-a", "2025-06-17", 30, 0)
	if err != nil {
		t.Fatalf("GetDaySlots: %v", err)
	}
	// 30 minute runs starting 09:00 through 16:30.
	if len(slots) != 31 {
		t.Fatalf("slots = %d, want 31", len(slots))
	}
	if slots[0].Time != "2025-06-17T09:00:00.000Z" {
		t.Errorf("first slot = %s", slots[0].Time)
	}
	if last := slots[len(slots)-1].Time; last != "2025-06-17T16:30:00.000Z" {
		t.Errorf("last slot = %s, want 16:30", last)
	}
}

func TestDaySlotsSkipBusyRuns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.resource(t, "studio-a", 1, false)
	if _, err := f.bookings.CreateReservation(ctx, "studio-a", "u1", at(17, 10, 0), at(17, 11, 0)); err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}

	slots, err := f.avail.GetDaySlots(ctx, "studio-a", "2025-06-17", 60, 60)
	if err != nil {
		t.Fatalf("GetDaySlots: %v", err)
	}
	var got []string
	for _, s := range slots {
		got = append(got, s.Time[11:16])
	}
	want := []string{"09:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00"}
	if len(got) != len(want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slots = %v, want %v", got, want)
		}
	}
}

func TestDaySlotsFollowSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc, err := f.registry.CreateSchedule(ctx, model.ScheduleInput{
		OrganizationID: "org-1",
		Name:           "mornings",
		Timezone:       "UTC",
		Weekly:         []model.WeeklyHours{{Day: 2, Start: "10:00", End: "12:00"}},
		Overrides:      []model.ScheduleOverride{{Date: "2025-06-24", Unavailable: true}},
	})
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if _, err := f.registry.CreateResource(ctx, model.ResourceInput{
		ID: "studio-a", OrganizationID: "org-1", Name: "A", ScheduleID: sc.ID,
	}); err != nil {
		t.Fatalf("CreateResource: %v", err)
	}

	// 2025-06-17 is a Tuesday.
	slots, err := f.avail.GetDaySlots(ctx, "studio-a", "2025-06-17", 60, 30)
	if err != nil {
		t.Fatalf("GetDaySlots: %v", err)
	}
	if len(slots) != 3 || slots[0].Time != "2025-06-17T10:00:00.000Z" || slots[2].Time != "2025-06-17T11:00:00.000Z" {
		t.Errorf("tuesday slots = %+v, want 10:00, 10:30, 11:00", slots)
	}

	month, err := f.avail.GetMonthAvailability(ctx, "studio-a", "2025-06-16", "2025-06-24", 60, 0)
	if err != nil {
		t.Fatalf("GetMonthAvailability: %v", err)
	}
	if len(month) != 9 {
		t.Fatalf("month entries = %d, want 9", len(month))
	}
	if !month["2025-06-17"] {
		t.Errorf("tuesday reported unavailable")
	}
	if month["2025-06-16"] {
		t.Errorf("monday without hours reported available")
	}
	if month["2025-06-24"] {
		t.Errorf("overridden tuesday reported available")
	}
}

func TestDaySlotsIncludeHoursFromPreviousLocalDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc, err := f.registry.CreateSchedule(ctx, model.ScheduleInput{
		OrganizationID: "org-1",
		Name:           "pacific",
		Timezone:       "America/Los_Angeles",
		Weekly: []model.WeeklyHours{
			{Day: 1, Start: "09:00", End: "20:00"},
			{Day: 2, Start: "09:00", End: "20:00"},
		},
	})
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if _, err := f.registry.CreateResource(ctx, model.ResourceInput{
		ID: "studio-a", OrganizationID: "org-1", Name: "A", ScheduleID: sc.ID,
	}); err != nil {
		t.Fatalf("CreateResource: %v", err)
	}

	// Monday 17:00-20:00 PDT is 00:00-03:00 UTC on Tuesday.
	slots, err := f.avail.GetDaySlots(ctx, "studio-a", "2025-06-17", 60, 60)
	if err != nil {
		t.Fatalf("GetDaySlots: %v", err)
	}
	var times []string
	for _, s := range slots {
		times = append(times, s.Time)
	}
	want := []string{
		"2025-06-17T00:00:00.000Z", "2025-06-17T01:00:00.000Z", "2025-06-17T02:00:00.000Z",
		"2025-06-17T16:00:00.000Z", "2025-06-17T17:00:00.000Z", "2025-06-17T18:00:00.000Z",
		"2025-06-17T19:00:00.000Z", "2025-06-17T20:00:00.000Z", "2025-06-17T21:00:00.000Z",
		"2025-06-17T22:00:00.000Z", "2025-06-17T23:00:00.000Z",
	}
	if len(times) != len(want) {
		t.Fatalf("slots = %v, want %v", times, want)
	}
	for i := range want {
		if times[i] != want[i] {
			t.Fatalf("slots = %v, want %v", times, want)
		}
	}

	// Only the spill-over from Monday opens Tuesday's early UTC hours, so
	// booking them out leaves the evening window.
	if _, err := f.bookings.CreateReservation(ctx, "studio-a", "u1", at(17, 16, 0), at(18, 0, 0)); err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	month, err := f.avail.GetMonthAvailability(ctx, "studio-a", "2025-06-17", "2025-06-17", 60, 0)
	if err != nil {
		t.Fatalf("GetMonthAvailability: %v", err)
	}
	if !month["2025-06-17"] {
		t.Errorf("tuesday with free spill-over hours reported unavailable")
	}
}

func TestMonthAvailabilityMarksFullDays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.resource(t, "studio-a", 1, false)
	if _, err := f.bookings.CreateReservation(ctx, "studio-a", "u1", at(17, 9, 0), at(17, 17, 0)); err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}

	month, err := f.avail.GetMonthAvailability(ctx, "studio-a", "2025-06-16", "2025-06-18", 30, 0)
	if err != nil {
		t.Fatalf("GetMonthAvailability: %v", err)
	}
	if !month["2025-06-16"] || month["2025-06-17"] || !month["2025-06-18"] {
		t.Errorf("month = %v, want only 06-17 unavailable", month)
	}
}

func TestMonthAvailabilityRejectsLongRanges(t *testing.T) {
	f := newFixture(t)
	f.resource(t, "studio-a", 1, false)
	_, err := f.avail.GetMonthAvailability(context.Background(), "studio-a", "2025-01-01", "2025-06-30", 30, 0)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestPooledAvailabilityNeedsOneFreeUnit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.resource(t, "desk-pool", 2, true)
	for i := 0; i < 2; i++ {
		if _, err := f.bookings.CreateReservation(ctx, "desk-pool", "u1", at(17, 14, 0), at(17, 15, 0)); err != nil {
			t.Fatalf("CreateReservation %d: %v", i, err)
		}
	}
	ok, err := f.avail.GetAvailability(ctx, "desk-pool", at(17, 14, 0), at(17, 14, 30))
	if err != nil || ok {
		t.Fatalf("GetAvailability at capacity = %v, %v; want false", ok, err)
	}
	ok, err = f.avail.GetAvailability(ctx, "desk-pool", at(17, 15, 0), at(17, 16, 0))
	if err != nil || !ok {
		t.Fatalf("GetAvailability after = %v, %v; want true", ok, err)
	}
}

func TestAvailabilityErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.avail.GetAvailability(ctx, "missing", at(17, 9, 0), at(17, 10, 0)); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unknown resource error = %v, want ErrNotFound", err)
	}
	f.resource(t, "studio-a", 1, false)
	if _, err := f.avail.GetAvailability(ctx, "studio-a", at(17, 10, 0), at(17, 9, 0)); !errors.Is(err, ErrValidation) {
		t.Errorf("inverted interval error = %v, want ErrValidation", err)
	}
	if _, err := f.avail.GetAvailability(ctx, "studio-a", at(1, 0, 0), at(1, 0, 0)+63*24*60*60*1000); !errors.Is(err, ErrValidation) {
		t.Errorf("63 day interval error = %v, want ErrValidation", err)
	}
	if _, err := f.avail.GetAvailability(ctx, "studio-a", at(1, 0, 0), at(1, 0, 0)+62*24*60*60*1000); err != nil {
		t.Errorf("62 day interval: %v", err)
	}
	if _, err := f.avail.GetDaySlots(ctx, "studio-a", "17-06-2025", 30, 0); !errors.Is(err, ErrValidation) {
		t.Errorf("bad date error = %v, want ErrValidation", err)
	}
}

func TestEventTypeSlotsApplyRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.resource(t, "studio-a", 1, false)
	f.resource(t, "studio-b", 1, false)
	et := f.eventType(t, model.EventTypeInput{
		LengthInMinutes:  60,
		SlotInterval:     60,
		BufferAfter:      15,
		MinNoticeMinutes: 2 * 60,
	}, "studio-a")

	// 12:00-13:00 is busy. With a 15 minute buffer after each run the
	// 11:00 start is out, and the notice period drops 09:00.
	if _, err := f.bookings.CreateReservation(ctx, "studio-a", "u1", at(17, 12, 0), at(17, 13, 0)); err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	f.clock.Advance(16*24*time.Hour - 30*time.Minute)

	slots, err := f.avail.GetEventTypeSlots(ctx, et.ID, "studio-a", "2025-06-17", 0)
	if err != nil {
		t.Fatalf("GetEventTypeSlots: %v", err)
	}
	var got []string
	for _, s := range slots {
		got = append(got, s.Time[11:16])
	}
	want := []string{"10:00", "13:00", "14:00", "15:00", "16:00"}
	if len(got) != len(want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slots = %v, want %v", got, want)
		}
	}

	if _, err := f.avail.GetEventTypeSlots(ctx, et.ID, "studio-b", "2025-06-17", 0); !errors.Is(err, ErrValidation) {
		t.Errorf("unlinked resource error = %v, want ErrValidation", err)
	}
	if _, err := f.avail.GetEventTypeSlots(ctx, et.ID, "studio-a", "2025-06-17", 45); !errors.Is(err, ErrValidation) {
		t.Errorf("unoffered length error = %v, want ErrValidation", err)
	}
}
