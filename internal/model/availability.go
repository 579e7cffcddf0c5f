package model

import "github.com/Shivanand-hulikatti/resource-booking/internal/slot"

// DailyAvailability is the busy bitmap of a singular resource for one
// UTC date. BusySlots is sorted and unique.
type DailyAvailability struct {
	ResourceID string `json:"resourceId"`
	Date       string `json:"date"`
	BusySlots  []int  `json:"busySlots"`
}

// QuantityAvailability counts booked units per slot for a pooled resource.
type QuantityAvailability struct {
	ResourceID string                `json:"resourceId"`
	Date       string                `json:"date"`
	Slots      [slot.SlotsPerDay]int `json:"slotQuantities"`
}

// FullSlots returns the slots where no unit of capacity remains.
func (q *QuantityAvailability) FullSlots(capacity int) []int {
	out := []int{}
	for i, booked := range q.Slots {
		if booked >= capacity {
			out = append(out, i)
		}
	}
	return out
}

// Shortfall returns the slots in required that cannot take requested
// more units, and the smallest number of units still free across
// required.
func (q *QuantityAvailability) Shortfall(required []int, requested, capacity int) (conflicts []int, free int) {
	free = capacity
	for _, s := range required {
		left := capacity - q.Slots[s]
		if left < free {
			free = left
		}
		if q.Slots[s]+requested > capacity {
			conflicts = append(conflicts, s)
		}
	}
	if free < 0 {
		free = 0
	}
	return conflicts, free
}

// ResourceRequest names one resource of a multi-resource request.
type ResourceRequest struct {
	ResourceID string `json:"resourceId" validate:"required"`
	Quantity   int    `json:"quantity,omitempty" validate:"gte=0"`
}

// ResourceAvailability is the per-resource detail of a multi-resource check.
type ResourceAvailability struct {
	ResourceID        string           `json:"resourceId"`
	Available         bool             `json:"available"`
	RequestedQuantity int              `json:"requestedQuantity"`
	AvailableQuantity int              `json:"availableQuantity"`
	ConflictingSlots  map[string][]int `json:"conflictingSlots,omitempty"`
}

// MultiAvailability is the result of a multi-resource check.
type MultiAvailability struct {
	Available bool                   `json:"available"`
	Resources []ResourceAvailability `json:"resources"`
}
