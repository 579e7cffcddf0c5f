package slot

import "sort"

// daySet is a busy bitmap for one day.
type daySet [SlotsPerDay]bool

func toSet(slots []int) *daySet {
	var set daySet
	for _, s := range slots {
		if s >= 0 && s < SlotsPerDay {
			set[s] = true
		}
	}
	return &set
}

func (d *daySet) has(s int) bool {
	return s >= 0 && s < SlotsPerDay && d[s]
}

func (d *daySet) runFree(start, n int) bool {
	for i := start; i < start+n; i++ {
		if d.has(i) {
			return false
		}
	}
	return true
}

// Merge returns the sorted union of busy and add with no duplicates.
func Merge(busy, add []int) []int {
	set := toSet(busy)
	for _, s := range add {
		if s >= 0 && s < SlotsPerDay {
			set[s] = true
		}
	}
	return set.list()
}

// Remove returns busy without the indices in remove. Slots not listed in
// remove are kept even if another booking put them there.
func Remove(busy, remove []int) []int {
	set := toSet(busy)
	for _, s := range remove {
		if s >= 0 && s < SlotsPerDay {
			set[s] = false
		}
	}
	return set.list()
}

// Intersect returns the sorted slots present in both lists.
func Intersect(required, busy []int) []int {
	set := toSet(busy)
	var out []int
	for _, s := range required {
		if set.has(s) {
			out = append(out, s)
		}
	}
	sort.Ints(out)
	return out
}

func (d *daySet) list() []int {
	out := []int{}
	for i, busy := range d {
		if busy {
			out = append(out, i)
		}
	}
	return out
}
