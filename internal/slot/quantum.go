// Package slot implements the 15-minute time grid every availability
// record is indexed by. A day has 96 slots anchored at UTC midnight; slot i
// covers [i*15min, (i+1)*15min).
//
// The functions here are pure and touch no storage. Persisted
// availability data depends on this exact indexing scheme, so changing
// QuantumMinutes or the UTC anchoring invalidates existing records.
package slot

import (
	"fmt"
	"sort"
	"time"
)

const (
	// QuantumMinutes is the width of one slot.
	QuantumMinutes = 15
	// SlotsPerDay is the number of slots in a UTC calendar day.
	SlotsPerDay = 24 * 60 / QuantumMinutes

	// DateLayout is the ISO calendar date format used as record keys.
	DateLayout = "2006-01-02"
	// TimestampLayout is the ISO format returned for slot start times.
	TimestampLayout = "2006-01-02T15:04:05.000Z"

	quantum   = QuantumMinutes * time.Minute
	quantumMs = int64(quantum / time.Millisecond)
)

// Position identifies one slot on the grid.
type Position struct {
	Date string `json:"date"`
	Slot int    `json:"slot"`
}

// TimestampToSlot maps an epoch-millisecond instant to the slot that
// contains it. Times inside a slot floor to its start, so 14:07 is slot
// 56 (14:00).
func TimestampToSlot(ms int64) Position {
	t := time.UnixMilli(ms).UTC()
	return Position{
		Date: t.Format(DateLayout),
		Slot: (t.Hour()*60 + t.Minute()) / QuantumMinutes,
	}
}

// SlotStart returns the instant a slot begins.
func SlotStart(date string, slot int) (time.Time, error) {
	if slot < 0 || slot >= SlotsPerDay {
		return time.Time{}, fmt.Errorf("slot %d out of range [0,%d)", slot, SlotsPerDay)
	}
	day, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(slot) * quantum), nil
}

// SlotToTimestamp is the inverse of TimestampToSlot for slot starts.
func SlotToTimestamp(date string, slot int) (string, error) {
	t, err := SlotStart(date, slot)
	if err != nil {
		return "", err
	}
	return t.Format(TimestampLayout), nil
}

// ParseDate parses an ISO calendar date as UTC midnight.
func ParseDate(date string) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return day, nil
}

// RequiredSlots returns, per UTC date, the sorted slot indices touched by
// the half-open interval [start, end). The walk is aligned to slot
// boundaries rather than to start, so a 14:07–14:20 interval covers slot
// 56 only. A zero-length or inverted interval yields an empty map.
func RequiredSlots(start, end int64) map[string][]int {
	out := make(map[string][]int)
	if end <= start {
		return out
	}
	cursor := floorToQuantum(start)
	for cursor < end {
		pos := TimestampToSlot(cursor)
		out[pos.Date] = append(out[pos.Date], pos.Slot)
		cursor += quantumMs
	}
	return out
}

// Dates returns the keys of a RequiredSlots result in calendar order.
func Dates(required map[string][]int) []string {
	dates := make([]string, 0, len(required))
	for d := range required {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// DatesBetween lists every calendar date from..to inclusive.
func DatesBetween(from, to string) ([]string, error) {
	first, err := ParseDate(from)
	if err != nil {
		return nil, err
	}
	last, err := ParseDate(to)
	if err != nil {
		return nil, err
	}
	if last.Before(first) {
		return nil, fmt.Errorf("date range %s..%s is inverted", from, to)
	}
	var dates []string
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateLayout))
	}
	return dates, nil
}

// SlotsFor returns how many slots a duration occupies, rounding up.
func SlotsFor(minutes int) int {
	if minutes <= 0 {
		return 0
	}
	return (minutes + QuantumMinutes - 1) / QuantumMinutes
}

func floorToQuantum(ms int64) int64 {
	rem := ms % quantumMs
	if rem < 0 {
		rem += quantumMs
	}
	return ms - rem
}
