package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/resource-booking/internal/model"
	"github.com/Shivanand-hulikatti/resource-booking/internal/notify"
	"github.com/Shivanand-hulikatti/resource-booking/internal/repository"
	"github.com/Shivanand-hulikatti/resource-booking/internal/slot"
)

// CheckMultiResourceAvailability reports, per requested resource, whether
// [start, end) can take the requested quantity. Available is true only
// when every resource can.
func (s *BookingService) CheckMultiResourceAvailability(ctx context.Context, req model.CheckMultiResourceRequest) (*model.MultiAvailability, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := validateInterval(req.Start, req.End); err != nil {
		return nil, err
	}
	if err := uniqueResources(req.Resources); err != nil {
		return nil, err
	}

	required := slot.RequiredSlots(req.Start, req.End)
	out := &model.MultiAvailability{Available: true, Resources: make([]model.ResourceAvailability, 0, len(req.Resources))}
	for _, rr := range req.Resources {
		r, err := s.store.GetResource(ctx, rr.ResourceID)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", rr.ResourceID, err)
		}
		c, err := newClaim(r, rr.Quantity)
		if err != nil {
			return nil, err
		}
		res, err := check(ctx, s.store, c, required)
		if err != nil {
			return nil, err
		}
		if !r.IsActive {
			res.Available = false
			res.AvailableQuantity = 0
		}
		out.Resources = append(out.Resources, res)
		out.Available = out.Available && res.Available
	}
	return out, nil
}

// CreateMultiResourceBooking books several resources for one interval.
// Every resource is checked before any is written; the first conflict
// aborts the whole booking and names its resource. The first resource is
// the booking's primary resource and every resource gets an item.
func (s *BookingService) CreateMultiResourceBooking(ctx context.Context, req model.CreateMultiResourceBookingRequest) (*model.Booking, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := validateInterval(req.Start, req.End); err != nil {
		return nil, err
	}
	if err := validateTimezone(req.Timezone); err != nil {
		return nil, err
	}
	if err := uniqueResources(req.Resources); err != nil {
		return nil, err
	}
	ids := make([]string, len(req.Resources))
	for i, rr := range req.Resources {
		ids[i] = rr.ResourceID
	}
	if err := s.checkHolds(ctx, ids, req.Start, req.End, req.SessionID); err != nil {
		return nil, err
	}
	token, hash, err := s.issueToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	required := slot.RequiredSlots(req.Start, req.End)
	var b *model.Booking

	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		et, err := bookableEventType(ctx, tx, req.EventTypeID, req.Start, req.End, now)
		if err != nil {
			return err
		}
		claims := make([]claim, 0, len(req.Resources))
		for i, rr := range req.Resources {
			r, err := linkedResource(ctx, tx, rr.ResourceID, et.ID)
			if err != nil {
				return err
			}
			if i == 0 && !r.IsStandalone {
				return invalid("resource %s cannot be the primary resource", r.ID)
			}
			c, err := newClaim(r, rr.Quantity)
			if err != nil {
				return err
			}
			claims = append(claims, c)
		}

		buffers := bufferSlots(req.Start, req.End, et.BufferBefore, et.BufferAfter)
		if err := reserve(ctx, tx, claims, required, buffers); err != nil {
			return err
		}

		b = s.newEventBooking(et, claims[0].resource.ID, req.Start, req.End, req.Timezone, req.Booker, req.Location, req.ActorID, hash, now)
		for _, c := range claims {
			b.Items = append(b.Items, model.BookingItem{
				ID:         uuid.NewString(),
				BookingID:  b.ID,
				ResourceID: c.resource.ID,
				Quantity:   c.quantity,
			})
		}
		return s.insert(ctx, tx, b, req.ActorID, "")
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "multi-resource booking created",
		"booking_id", b.ID, "resources", len(b.Items), "status", b.Status)
	s.dispatch(ctx, notify.BookingCreated, b, req.ActorID, "")
	b.ManagementToken = token
	return b, nil
}

func uniqueResources(reqs []model.ResourceRequest) error {
	seen := make(map[string]struct{}, len(reqs))
	for _, rr := range reqs {
		if _, ok := seen[rr.ResourceID]; ok {
			return invalid("resource %s is requested twice", rr.ResourceID)
		}
		seen[rr.ResourceID] = struct{}{}
	}
	return nil
}
