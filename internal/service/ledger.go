package service

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/resource-booking/internal/model"
	"github.com/Shivanand-hulikatti/resource-booking/internal/repository"
	"github.com/Shivanand-hulikatti/resource-booking/internal/slot"
)

// claim is one resource's share of a booking.
type claim struct {
	resource *model.Resource
	quantity int
}

// newClaim resolves a requested quantity against the resource kind.
// Singular resources only take one unit; pooled ones take 1..Quantity.
func newClaim(r *model.Resource, quantity int) (claim, error) {
	if quantity <= 0 {
		quantity = 1
	}
	if !r.Pooled() && quantity != 1 {
		return claim{}, invalid("resource %s is not pooled and cannot take quantity %d", r.ID, quantity)
	}
	return claim{resource: r, quantity: quantity}, nil
}

// check reports whether c fits into the slots of required given the
// records visible to r. It never writes.
func check(ctx context.Context, r repository.AvailabilityReader, c claim, required map[string][]int) (model.ResourceAvailability, error) {
	res := model.ResourceAvailability{
		ResourceID:        c.resource.ID,
		Available:         true,
		RequestedQuantity: c.quantity,
	}
	conflicts := make(map[string][]int)

	if c.resource.Pooled() {
		free := c.resource.Quantity
		for _, date := range slot.Dates(required) {
			rec, err := r.GetQuantityAvailability(ctx, c.resource.ID, date)
			if err != nil {
				return res, fmt.Errorf("load quantity availability: %w", err)
			}
			short, left := rec.Shortfall(required[date], c.quantity, c.resource.Quantity)
			if left < free {
				free = left
			}
			if len(short) > 0 {
				conflicts[date] = short
			}
		}
		res.AvailableQuantity = free
	} else {
		for _, date := range slot.Dates(required) {
			rec, err := r.GetDailyAvailability(ctx, c.resource.ID, date)
			if err != nil {
				return res, fmt.Errorf("load daily availability: %w", err)
			}
			if busy := slot.Intersect(required[date], rec.BusySlots); len(busy) > 0 {
				conflicts[date] = busy
			}
		}
		if len(conflicts) == 0 {
			res.AvailableQuantity = 1
		}
	}

	if len(conflicts) > 0 {
		res.Available = false
		res.ConflictingSlots = conflicts
	}
	return res, nil
}

// apply marks required busy for c. Each date's record is re-verified
// right before it is written.
func apply(ctx context.Context, tx repository.Tx, c claim, required map[string][]int) error {
	id := c.resource.ID
	for _, date := range slot.Dates(required) {
		slots := required[date]
		if c.resource.Pooled() {
			rec, err := tx.GetQuantityAvailability(ctx, id, date)
			if err != nil {
				return fmt.Errorf("load quantity availability: %w", err)
			}
			if short, _ := rec.Shortfall(slots, c.quantity, c.resource.Quantity); len(short) > 0 {
				return &repository.ConflictError{Resources: []string{id}, Slots: map[string][]int{date: short}}
			}
			for _, s := range slots {
				rec.Slots[s] += c.quantity
			}
			if err := tx.PutQuantityAvailability(ctx, rec); err != nil {
				return err
			}
			continue
		}

		rec, err := tx.GetDailyAvailability(ctx, id, date)
		if err != nil {
			return fmt.Errorf("load daily availability: %w", err)
		}
		if busy := slot.Intersect(slots, rec.BusySlots); len(busy) > 0 {
			return &repository.ConflictError{Resources: []string{id}, Slots: map[string][]int{date: busy}}
		}
		rec.BusySlots = slot.Merge(rec.BusySlots, slots)
		if err := tx.PutDailyAvailability(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// release frees exactly the slots of required that c holds, leaving
// other bookings' slots on the same day untouched.
func release(ctx context.Context, tx repository.Tx, c claim, required map[string][]int) error {
	id := c.resource.ID
	for _, date := range slot.Dates(required) {
		slots := required[date]
		if c.resource.Pooled() {
			rec, err := tx.GetQuantityAvailability(ctx, id, date)
			if err != nil {
				return fmt.Errorf("load quantity availability: %w", err)
			}
			for _, s := range slots {
				rec.Slots[s] -= c.quantity
				if rec.Slots[s] < 0 {
					rec.Slots[s] = 0
				}
			}
			if err := tx.PutQuantityAvailability(ctx, rec); err != nil {
				return err
			}
			continue
		}

		rec, err := tx.GetDailyAvailability(ctx, id, date)
		if err != nil {
			return fmt.Errorf("load daily availability: %w", err)
		}
		rec.BusySlots = slot.Remove(rec.BusySlots, slots)
		if err := tx.PutDailyAvailability(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// reserve is the all-or-nothing core of every booking write. Phase 1
// checks every claim against required plus the buffer slots and fails on
// the first conflict. Phase 2 marks required busy for every claim.
func reserve(ctx context.Context, tx repository.Tx, claims []claim, required, buffers map[string][]int) error {
	checked := unionSlots(required, buffers)
	for _, c := range claims {
		res, err := check(ctx, tx, c, checked)
		if err != nil {
			return err
		}
		if !res.Available {
			return &repository.ConflictError{Resources: []string{c.resource.ID}, Slots: res.ConflictingSlots}
		}
	}
	for _, c := range claims {
		if err := apply(ctx, tx, c, required); err != nil {
			return err
		}
	}
	return nil
}

// claimsOf rebuilds the claims a stored booking holds.
func claimsOf(ctx context.Context, tx repository.Tx, b *model.Booking) ([]claim, error) {
	if len(b.Items) == 0 {
		r, err := tx.GetResource(ctx, b.ResourceID)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", b.ResourceID, err)
		}
		return []claim{{resource: r, quantity: 1}}, nil
	}
	claims := make([]claim, 0, len(b.Items))
	for _, it := range b.Items {
		r, err := tx.GetResource(ctx, it.ResourceID)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", it.ResourceID, err)
		}
		claims = append(claims, claim{resource: r, quantity: it.Quantity})
	}
	return claims, nil
}

// bufferSlots returns the slots of the gaps an event type keeps free
// before and after [start, end).
func bufferSlots(start, end int64, beforeMinutes, afterMinutes int) map[string][]int {
	out := map[string][]int{}
	if beforeMinutes > 0 {
		out = unionSlots(out, slot.RequiredSlots(start-int64(beforeMinutes)*60_000, start))
	}
	if afterMinutes > 0 {
		out = unionSlots(out, slot.RequiredSlots(end, end+int64(afterMinutes)*60_000))
	}
	return out
}

func unionSlots(a, b map[string][]int) map[string][]int {
	out := make(map[string][]int, len(a)+len(b))
	for date, slots := range a {
		out[date] = slot.Merge(out[date], slots)
	}
	for date, slots := range b {
		out[date] = slot.Merge(out[date], slots)
	}
	return out
}
