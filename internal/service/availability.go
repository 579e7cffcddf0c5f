package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/resource-booking/internal/clock"
	"github.com/Shivanand-hulikatti/resource-booking/internal/model"
	"github.com/Shivanand-hulikatti/resource-booking/internal/repository"
	"github.com/Shivanand-hulikatti/resource-booking/internal/slot"
)

// AvailabilityService answers read-only availability queries. Every
// query reads at most one availability record per day it covers.
type AvailabilityService struct {
	store  repository.Store
	clock  clock.Clock
	window slot.Window
}

// NewAvailabilityService constructs an AvailabilityService. window is the
// business window used for resources without a schedule.
func NewAvailabilityService(store repository.Store, clk clock.Clock, window slot.Window) *AvailabilityService {
	if clk == nil {
		clk = clock.Real()
	}
	if window.Empty() {
		window = slot.DefaultWindow
	}
	return &AvailabilityService{store: store, clock: clk, window: window}
}

// GetAvailability reports whether [start, end) is free on resourceID.
// For a pooled resource one free unit is enough.
func (s *AvailabilityService) GetAvailability(ctx context.Context, resourceID string, start, end int64) (bool, error) {
	if resourceID == "" {
		return false, invalid("resource id is required")
	}
	if err := validateInterval(start, end); err != nil {
		return false, err
	}
	r, err := s.store.GetResource(ctx, resourceID)
	if err != nil {
		return false, fmt.Errorf("resource %s: %w", resourceID, err)
	}
	res, err := check(ctx, s.store, claim{resource: r, quantity: 1}, slot.RequiredSlots(start, end))
	if err != nil {
		return false, err
	}
	return res.Available, nil
}

// GetMonthAvailability reports, per date in [dateFrom, dateTo], whether
// at least one eventLength run fits in the day's window.
func (s *AvailabilityService) GetMonthAvailability(ctx context.Context, resourceID, dateFrom, dateTo string, eventLength, slotInterval int) (map[string]bool, error) {
	if eventLength <= 0 {
		return nil, invalid("eventLength must be positive")
	}
	dates, err := slot.DatesBetween(dateFrom, dateTo)
	if err != nil {
		return nil, invalid("%v", err)
	}
	if len(dates) > maxQueryDays {
		return nil, invalid("date range spans %d days, at most %d allowed", len(dates), maxQueryDays)
	}

	r, sched, err := s.loadResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(dates))
	for _, date := range dates {
		windows, err := s.windowsOn(sched, date)
		if err != nil {
			return nil, err
		}
		out[date] = false
		if len(windows) == 0 {
			continue
		}
		busy, err := s.busyOn(ctx, r, date)
		if err != nil {
			return nil, err
		}
		for _, w := range windows {
			if slot.IsWindowAvailable(eventLength, busy, slotInterval, w) {
				out[date] = true
				break
			}
		}
	}
	return out, nil
}

// GetDaySlots lists the free start times of an eventLength run on date.
func (s *AvailabilityService) GetDaySlots(ctx context.Context, resourceID, date string, eventLength, slotInterval int) ([]model.TimeSlot, error) {
	if eventLength <= 0 {
		return nil, invalid("eventLength must be positive")
	}
	if _, err := slot.ParseDate(date); err != nil {
		return nil, invalid("%v", err)
	}
	r, sched, err := s.loadResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.candidatesOn(sched, date, eventLength, slotInterval)
	if err != nil {
		return nil, err
	}
	out := []model.TimeSlot{}
	if len(candidates) == 0 {
		return out, nil
	}
	busy, err := s.busyOn(ctx, r, date)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		if slot.AreSlotsAvailable(c.Slots, busy) {
			out = append(out, model.TimeSlot{Time: c.Start})
		}
	}
	return out, nil
}

// GetEventTypeSlots is GetDaySlots under an event type's rules: the
// resource must be linked, starts step by the effective slot interval,
// starts inside the notice period or beyond the booking horizon are
// dropped, and the buffers around a run must be free too. Buffers are
// only checked against the same day. A length of 0 selects the event
// type's default.
func (s *AvailabilityService) GetEventTypeSlots(ctx context.Context, eventTypeID, resourceID, date string, length int) ([]model.TimeSlot, error) {
	if _, err := slot.ParseDate(date); err != nil {
		return nil, invalid("%v", err)
	}
	et, err := s.store.GetEventType(ctx, eventTypeID)
	if err != nil {
		return nil, fmt.Errorf("event type %s: %w", eventTypeID, err)
	}
	if !et.IsActive {
		return nil, fmt.Errorf("event type %s is inactive: %w", eventTypeID, repository.ErrInvalidState)
	}
	if length == 0 {
		length = et.LengthInMinutes
	}
	if !et.AllowsLength(length) {
		return nil, invalid("length %d is not offered by event type %s", length, eventTypeID)
	}
	linked, err := s.store.IsLinked(ctx, resourceID, eventTypeID)
	if err != nil {
		return nil, err
	}
	if !linked {
		return nil, invalid("resource %s is not linked to event type %s", resourceID, eventTypeID)
	}

	r, sched, err := s.loadResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.candidatesOn(sched, date, length, et.EffectiveSlotInterval())
	if err != nil {
		return nil, err
	}
	out := []model.TimeSlot{}
	if len(candidates) == 0 {
		return out, nil
	}
	busy, err := s.busyOn(ctx, r, date)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	earliest := now.Add(time.Duration(et.MinNoticeMinutes) * time.Minute)
	var latest time.Time
	if et.MaxFutureMinutes > 0 {
		latest = now.Add(time.Duration(et.MaxFutureMinutes) * time.Minute)
	}
	for _, c := range candidates {
		at, err := slot.SlotStart(date, c.Slots[0])
		if err != nil {
			return nil, err
		}
		if at.Before(earliest) || (!latest.IsZero() && at.After(latest)) {
			continue
		}
		startMs := at.UnixMilli()
		endMs := startMs + int64(length)*60_000
		needed := slot.Merge(c.Slots, bufferSlots(startMs, endMs, et.BufferBefore, et.BufferAfter)[date])
		if slot.AreSlotsAvailable(needed, busy) {
			out = append(out, model.TimeSlot{Time: c.Start})
		}
	}
	return out, nil
}

func (s *AvailabilityService) loadResource(ctx context.Context, resourceID string) (*model.Resource, *model.Schedule, error) {
	r, err := s.store.GetResource(ctx, resourceID)
	if err != nil {
		return nil, nil, fmt.Errorf("resource %s: %w", resourceID, err)
	}
	if r.ScheduleID == "" {
		return r, nil, nil
	}
	sched, err := s.store.GetSchedule(ctx, r.ScheduleID)
	if err != nil {
		return nil, nil, fmt.Errorf("schedule %s: %w", r.ScheduleID, err)
	}
	return r, sched, nil
}

func (s *AvailabilityService) windowsOn(sched *model.Schedule, date string) ([]slot.Window, error) {
	if sched == nil {
		return []slot.Window{s.window}, nil
	}
	return sched.WindowsOn(date)
}

// candidatesOn enumerates the candidate runs of every window of date in
// start order.
func (s *AvailabilityService) candidatesOn(sched *model.Schedule, date string, length, interval int) ([]slot.Candidate, error) {
	windows, err := s.windowsOn(sched, date)
	if err != nil {
		return nil, err
	}
	var out []slot.Candidate
	for _, w := range windows {
		c, err := slot.GenerateWindowSlots(date, length, interval, w)
		if err != nil {
			return nil, invalid("%v", err)
		}
		out = append(out, c...)
	}
	return out, nil
}

// busyOn returns the slots of date that cannot take one more unit.
func (s *AvailabilityService) busyOn(ctx context.Context, r *model.Resource, date string) ([]int, error) {
	if r.Pooled() {
		rec, err := s.store.GetQuantityAvailability(ctx, r.ID, date)
		if err != nil {
			return nil, fmt.Errorf("load quantity availability: %w", err)
		}
		return rec.FullSlots(r.Quantity), nil
	}
	rec, err := s.store.GetDailyAvailability(ctx, r.ID, date)
	if err != nil {
		return nil, fmt.Errorf("load daily availability: %w", err)
	}
	return rec.BusySlots, nil
}
