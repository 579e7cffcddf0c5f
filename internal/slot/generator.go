package slot

import "fmt"

// Window bounds the slots a day offers for booking: [Start, End).
type Window struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// DefaultWindow is 09:00–17:00 UTC.
var DefaultWindow = Window{Start: 36, End: 68}

// Validate reports whether the window lies within one day.
func (w Window) Validate() error {
	if w.Start < 0 || w.End > SlotsPerDay || w.Start > w.End {
		return fmt.Errorf("window [%d,%d) outside [0,%d]", w.Start, w.End, SlotsPerDay)
	}
	return nil
}

// Empty reports whether the window offers no slots.
func (w Window) Empty() bool { return w.End <= w.Start }

// Candidate is one possible start time and the slots it would occupy.
type Candidate struct {
	Start string `json:"start"`
	Slots []int  `json:"slots"`
}

// GenerateDaySlots enumerates candidate starts inside DefaultWindow.
func GenerateDaySlots(date string, durationMinutes, intervalMinutes int) ([]Candidate, error) {
	return GenerateWindowSlots(date, durationMinutes, intervalMinutes, DefaultWindow)
}

// GenerateWindowSlots enumerates every start slot inside w, stepping by
// the interval rounded up to whole slots, whose full run of
// ceil(duration/15) slots ends by w.End. An interval <= 0 means 15 minutes.
func GenerateWindowSlots(date string, durationMinutes, intervalMinutes int, w Window) ([]Candidate, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}
	n := SlotsFor(durationMinutes)
	if n == 0 {
		return nil, nil
	}
	step := stepFor(intervalMinutes)

	var out []Candidate
	for s := w.Start; s+n <= w.End; s += step {
		start, err := SlotToTimestamp(date, s)
		if err != nil {
			return nil, err
		}
		run := make([]int, n)
		for i := range run {
			run[i] = s + i
		}
		out = append(out, Candidate{Start: start, Slots: run})
	}
	return out, nil
}

// AreSlotsAvailable reports whether required and busy are disjoint.
func AreSlotsAvailable(required, busy []int) bool {
	if len(required) == 0 || len(busy) == 0 {
		return true
	}
	set := toSet(busy)
	for _, s := range required {
		if set.has(s) {
			return false
		}
	}
	return true
}

// IsDayAvailable reports whether DefaultWindow has at least one free run.
func IsDayAvailable(durationMinutes int, busy []int, intervalMinutes int) bool {
	return IsWindowAvailable(durationMinutes, busy, intervalMinutes, DefaultWindow)
}

// IsWindowAvailable walks the same candidates as GenerateWindowSlots and
// returns on the first run that is clear of busy, without materializing
// the candidates.
func IsWindowAvailable(durationMinutes int, busy []int, intervalMinutes int, w Window) bool {
	n := SlotsFor(durationMinutes)
	if n == 0 {
		return false
	}
	set := toSet(busy)
	step := stepFor(intervalMinutes)
	for s := w.Start; s+n <= w.End; s += step {
		if set.runFree(s, n) {
			return true
		}
	}
	return false
}

func stepFor(intervalMinutes int) int {
	if intervalMinutes <= 0 {
		return 1
	}
	return SlotsFor(intervalMinutes)
}
