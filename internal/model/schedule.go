package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/Shivanand-hulikatti/resource-booking/internal/slot"
)

// Schedule describes the hours a resource can be booked. Times are
// wall-clock "HH:MM" in Timezone.
type Schedule struct {
	ID             string             `json:"id"`
	OrganizationID string             `json:"organizationId"`
	Name           string             `json:"name"`
	Timezone       string             `json:"timezone"`
	Weekly         []WeeklyHours      `json:"weekly"`
	Overrides      []ScheduleOverride `json:"overrides,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// WeeklyHours opens a window on one weekday (0 = Sunday).
type WeeklyHours struct {
	Day   int    `json:"day" validate:"gte=0,lte=6"`
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// ScheduleOverride replaces the weekly window on one date.
type ScheduleOverride struct {
	Date        string `json:"date" validate:"required"`
	Start       string `json:"start,omitempty"`
	End         string `json:"end,omitempty"`
	Unavailable bool   `json:"unavailable,omitempty"`
}

// WindowsOn returns the bookable slot windows of a UTC date, ordered and
// merged where they touch. The local hours of the calendar dates on
// either side of date are included too, since the timezone offset can
// move them onto it. A date with no hours yields no windows.
func (s *Schedule) WindowsOn(date string) ([]slot.Window, error) {
	day, err := slot.ParseDate(date)
	if err != nil {
		return nil, err
	}
	loc := time.UTC
	if s.Timezone != "" {
		if loc, err = time.LoadLocation(s.Timezone); err != nil {
			return nil, fmt.Errorf("schedule %s timezone: %w", s.ID, err)
		}
	}

	var out []slot.Window
	for offset := -1; offset <= 1; offset++ {
		local := day.AddDate(0, 0, offset)
		for _, h := range s.hoursOn(local.Format(time.DateOnly), local.Weekday()) {
			from, err := wallClock(local, h.start, loc)
			if err != nil {
				return nil, err
			}
			to, err := wallClock(local, h.end, loc)
			if err != nil {
				return nil, err
			}
			if w := clipToDay(day, from, to); !w.Empty() {
				out = append(out, w)
			}
		}
	}
	return mergeWindows(out), nil
}

type hours struct{ start, end string }

// hoursOn returns the local opening hours of a calendar date. Overrides
// for the date replace the weekly hours; an unavailable override closes
// the date.
func (s *Schedule) hoursOn(date string, weekday time.Weekday) []hours {
	var out []hours
	overridden := false
	for _, o := range s.Overrides {
		if o.Date != date {
			continue
		}
		if o.Unavailable || o.Start == "" || o.End == "" {
			return nil
		}
		overridden = true
		out = append(out, hours{o.Start, o.End})
	}
	if overridden {
		return out
	}
	for _, w := range s.Weekly {
		if time.Weekday(w.Day) == weekday {
			out = append(out, hours{w.Start, w.End})
		}
	}
	return out
}

func mergeWindows(ws []slot.Window) []slot.Window {
	sort.Slice(ws, func(i, j int) bool { return ws[i].Start < ws[j].Start })
	var out []slot.Window
	for _, w := range ws {
		if n := len(out); n > 0 && w.Start <= out[n-1].End {
			out[n-1].End = max(out[n-1].End, w.End)
			continue
		}
		out = append(out, w)
	}
	return out
}

// Validate checks that every window parses and is non-inverted.
func (s *Schedule) Validate() error {
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("timezone %q: %w", s.Timezone, err)
		}
	}
	check := func(start, end string) error {
		a, err := minutesOf(start)
		if err != nil {
			return err
		}
		b, err := minutesOf(end)
		if err != nil {
			return err
		}
		if b <= a {
			return fmt.Errorf("window %s-%s is empty", start, end)
		}
		return nil
	}
	for _, w := range s.Weekly {
		if w.Day < 0 || w.Day > 6 {
			return fmt.Errorf("weekday %d out of range", w.Day)
		}
		if err := check(w.Start, w.End); err != nil {
			return err
		}
	}
	for _, o := range s.Overrides {
		if _, err := slot.ParseDate(o.Date); err != nil {
			return err
		}
		if o.Unavailable {
			continue
		}
		if err := check(o.Start, o.End); err != nil {
			return err
		}
	}
	return nil
}

func minutesOf(hhmm string) (int, error) {
	if hhmm == "24:00" {
		return 24 * 60, nil
	}
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", hhmm)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func wallClock(day time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	m, err := minutesOf(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	local := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	return local.Add(time.Duration(m) * time.Minute), nil
}

func clipToDay(day, from, to time.Time) slot.Window {
	next := day.AddDate(0, 0, 1)
	if from.Before(day) {
		from = day
	}
	if to.After(next) {
		to = next
	}
	if !to.After(from) {
		return slot.Window{}
	}
	q := slot.QuantumMinutes * time.Minute
	// Partial slots at either edge are not offered.
	start := int((from.Sub(day) + q - 1) / q)
	end := int(to.Sub(day) / q)
	if end < start {
		end = start
	}
	return slot.Window{Start: start, End: end}
}
