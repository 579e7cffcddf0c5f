package model

import (
	"testing"
	_ "time/tzdata"

	"github.com/Shivanand-hulikatti/resource-booking/internal/slot"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to BookingStatus
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusDeclined, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusConfirmed, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusDeclined, StatusConfirmed, false},
		{StatusRescheduled, StatusCancelled, false},
		{StatusConfirmed, StatusPending, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestStatusHoldsSlots(t *testing.T) {
	for _, s := range []BookingStatus{StatusPending, StatusConfirmed, StatusCompleted} {
		if !s.HoldsSlots() {
			t.Errorf("%s should hold slots", s)
		}
	}
	for _, s := range []BookingStatus{StatusCancelled, StatusDeclined, StatusRescheduled} {
		if s.HoldsSlots() {
			t.Errorf("%s should not hold slots", s)
		}
	}
	if BookingStatus("archived").Valid() {
		t.Errorf("unknown status reported valid")
	}
}

func TestScheduleWindowsOn(t *testing.T) {
	cases := []struct {
		name string
		sc   Schedule
		date string
		want []slot.Window
	}{
		{
			name: "utc weekday",
			sc:   Schedule{Weekly: []WeeklyHours{{Day: 2, Start: "09:00", End: "17:00"}}},
			date: "2025-06-17",
			want: []slot.Window{{Start: 36, End: 68}},
		},
		{
			name: "no hours that weekday",
			sc:   Schedule{Weekly: []WeeklyHours{{Day: 1, Start: "09:00", End: "17:00"}}},
			date: "2025-06-17",
		},
		{
			name: "new york shifts later",
			sc:   Schedule{Timezone: "America/New_York", Weekly: []WeeklyHours{{Day: 2, Start: "09:00", End: "17:00"}}},
			date: "2025-06-17",
			want: []slot.Window{{Start: 52, End: 84}},
		},
		{
			name: "tokyo starts at midnight utc",
			sc:   Schedule{Timezone: "Asia/Tokyo", Weekly: []WeeklyHours{{Day: 2, Start: "09:00", End: "17:00"}}},
			date: "2025-06-17",
			want: []slot.Window{{Start: 0, End: 32}},
		},
		{
			name: "los angeles evening spills into the next utc day",
			sc: Schedule{Timezone: "America/Los_Angeles", Weekly: []WeeklyHours{
				{Day: 1, Start: "09:00", End: "20:00"},
				{Day: 2, Start: "09:00", End: "20:00"},
			}},
			date: "2025-06-17",
			want: []slot.Window{{Start: 0, End: 12}, {Start: 64, End: 96}},
		},
		{
			name: "spill-over from a day closed by override",
			sc: Schedule{
				Timezone:  "America/Los_Angeles",
				Weekly:    []WeeklyHours{{Day: 1, Start: "09:00", End: "20:00"}, {Day: 2, Start: "09:00", End: "20:00"}},
				Overrides: []ScheduleOverride{{Date: "2025-06-16", Unavailable: true}},
			},
			date: "2025-06-17",
			want: []slot.Window{{Start: 64, End: 96}},
		},
		{
			name: "touching windows of adjacent local days merge",
			sc: Schedule{Timezone: "America/Los_Angeles", Weekly: []WeeklyHours{
				{Day: 1, Start: "17:00", End: "24:00"},
				{Day: 2, Start: "00:00", End: "09:00"},
			}},
			date: "2025-06-17",
			want: []slot.Window{{Start: 0, End: 64}},
		},
		{
			name: "split day",
			sc: Schedule{Weekly: []WeeklyHours{
				{Day: 2, Start: "13:00", End: "17:00"},
				{Day: 2, Start: "08:30", End: "12:00"},
			}},
			date: "2025-06-17",
			want: []slot.Window{{Start: 34, End: 48}, {Start: 52, End: 68}},
		},
		{
			name: "partial edge slots dropped",
			sc:   Schedule{Weekly: []WeeklyHours{{Day: 2, Start: "09:10", End: "10:05"}}},
			date: "2025-06-17",
			want: []slot.Window{{Start: 37, End: 40}},
		},
		{
			name: "override replaces hours",
			sc: Schedule{
				Weekly:    []WeeklyHours{{Day: 2, Start: "09:00", End: "17:00"}},
				Overrides: []ScheduleOverride{{Date: "2025-06-17", Start: "12:00", End: "13:00"}},
			},
			date: "2025-06-17",
			want: []slot.Window{{Start: 48, End: 52}},
		},
		{
			name: "override closes the day",
			sc: Schedule{
				Weekly:    []WeeklyHours{{Day: 2, Start: "09:00", End: "17:00"}},
				Overrides: []ScheduleOverride{{Date: "2025-06-17", Unavailable: true}},
			},
			date: "2025-06-17",
		},
		{
			name: "until midnight",
			sc:   Schedule{Weekly: []WeeklyHours{{Day: 2, Start: "20:00", End: "24:00"}}},
			date: "2025-06-17",
			want: []slot.Window{{Start: 80, End: 96}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.sc.WindowsOn(tc.date)
			if err != nil {
				t.Fatalf("WindowsOn: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("WindowsOn(%s) = %+v, want %+v", tc.date, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("WindowsOn(%s) = %+v, want %+v", tc.date, got, tc.want)
					break
				}
			}
		})
	}
}

func TestScheduleValidate(t *testing.T) {
	bad := []Schedule{
		{Timezone: "Mars/Olympus"},
		{Weekly: []WeeklyHours{{Day: 7, Start: "09:00", End: "10:00"}}},
		{Weekly: []WeeklyHours{{Day: 1, Start: "10:00", End: "10:00"}}},
		{Weekly: []WeeklyHours{{Day: 1, Start: "9am", End: "10:00"}}},
		{Overrides: []ScheduleOverride{{Date: "17/06/2025", Unavailable: true}}},
		{Overrides: []ScheduleOverride{{Date: "2025-06-17", Start: "12:00"}}},
	}
	for i, sc := range bad {
		if err := sc.Validate(); err == nil {
			t.Errorf("schedule %d: Validate accepted %+v", i, sc)
		}
	}
	ok := Schedule{
		Timezone:  "Europe/Berlin",
		Weekly:    []WeeklyHours{{Day: 1, Start: "08:30", End: "12:00"}, {Day: 1, Start: "13:00", End: "24:00"}},
		Overrides: []ScheduleOverride{{Date: "2025-12-25", Unavailable: true}},
	}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestQuantityShortfall(t *testing.T) {
	var q QuantityAvailability
	q.Slots[40] = 3
	q.Slots[41] = 5

	conflicts, free := q.Shortfall([]int{39, 40}, 2, 5)
	if len(conflicts) != 0 || free != 2 {
		t.Errorf("Shortfall(39-40, 2) = %v, %d; want none, 2", conflicts, free)
	}
	conflicts, free = q.Shortfall([]int{40, 41}, 1, 5)
	if len(conflicts) != 1 || conflicts[0] != 41 || free != 0 {
		t.Errorf("Shortfall(40-41, 1) = %v, %d; want [41], 0", conflicts, free)
	}
	conflicts, _ = q.Shortfall([]int{40}, 3, 5)
	if len(conflicts) != 1 {
		t.Errorf("Shortfall(40, 3) = %v, want [40]", conflicts)
	}

	if full := q.FullSlots(5); len(full) != 1 || full[0] != 41 {
		t.Errorf("FullSlots = %v, want [41]", full)
	}
}

func TestEventTypeLengths(t *testing.T) {
	et := EventType{LengthInMinutes: 60, LengthInMinutesOptions: []int{30, 90}}
	if got := et.EffectiveSlotInterval(); got != 30 {
		t.Errorf("EffectiveSlotInterval = %d, want shortest option 30", got)
	}
	et.SlotInterval = 15
	if got := et.EffectiveSlotInterval(); got != 15 {
		t.Errorf("EffectiveSlotInterval = %d, want explicit 15", got)
	}
	for _, l := range []int{30, 60, 90} {
		if !et.AllowsLength(l) {
			t.Errorf("AllowsLength(%d) = false", l)
		}
	}
	if et.AllowsLength(45) {
		t.Errorf("AllowsLength(45) = true")
	}
}

func TestResourcePooled(t *testing.T) {
	cases := []struct {
		r    Resource
		want bool
	}{
		{Resource{Quantity: 1, IsFungible: true}, false},
		{Resource{Quantity: 4, IsFungible: false}, false},
		{Resource{Quantity: 4, IsFungible: true}, true},
	}
	for _, tc := range cases {
		if got := tc.r.Pooled(); got != tc.want {
			t.Errorf("Pooled(%+v) = %v, want %v", tc.r, got, tc.want)
		}
	}
}
