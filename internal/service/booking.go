package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Shivanand-hulikatti/resource-booking/internal/clock"
	"github.com/Shivanand-hulikatti/resource-booking/internal/model"
	"github.com/Shivanand-hulikatti/resource-booking/internal/notify"
	"github.com/Shivanand-hulikatti/resource-booking/internal/repository"
	"github.com/Shivanand-hulikatti/resource-booking/internal/slot"
)

// DefaultTokenTTL is how long a management token stays valid.
const DefaultTokenTTL = 30 * 24 * time.Hour

// notifyTimeout bounds one notification dispatch.
const notifyTimeout = 5 * time.Second

// rescheduledReason is the cancellation reason stored on a booking that
// was replaced by a reschedule.
const rescheduledReason = "rescheduled"

// defaultListLimit and maxListLimit bound ListBookings.
const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// HoldChecker reports whether someone other than self holds part of
// [start, end) on a resource. The presence engine implements it.
type HoldChecker interface {
	Held(ctx context.Context, resourceID string, start, end int64, self string) (bool, error)
}

// BookingOptions configures a BookingService. Zero values select the
// defaults.
type BookingOptions struct {
	Clock    clock.Clock
	Logger   *slog.Logger
	Notifier notify.Dispatcher
	// Holds enables the presence guard: bookings whose interval another
	// session holds are rejected with a conflict before the transaction.
	Holds     HoldChecker
	TokenTTL  time.Duration
	TokenCost int
}

// BookingService owns every write to bookings and availability records.
// Each operation runs its read-check-write sequence in one store
// transaction.
type BookingService struct {
	store     repository.Store
	clock     clock.Clock
	log       *slog.Logger
	notifier  notify.Dispatcher
	holds     HoldChecker
	tokenTTL  time.Duration
	tokenCost int
}

// NewBookingService constructs a BookingService.
func NewBookingService(store repository.Store, opts BookingOptions) *BookingService {
	s := &BookingService{
		store:     store,
		clock:     opts.Clock,
		log:       opts.Logger,
		notifier:  opts.Notifier,
		holds:     opts.Holds,
		tokenTTL:  opts.TokenTTL,
		tokenCost: opts.TokenCost,
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.log == nil {
		s.log = discardLogger()
	}
	if s.tokenTTL <= 0 {
		s.tokenTTL = DefaultTokenTTL
	}
	if s.tokenCost == 0 {
		s.tokenCost = bcrypt.DefaultCost
	}
	return s
}

// CreateReservation books [start, end) on resourceID without an event
// type. The reservation is confirmed immediately and its id is returned.
func (s *BookingService) CreateReservation(ctx context.Context, resourceID, actorID string, start, end int64) (string, error) {
	if resourceID == "" {
		return "", invalid("resource id is required")
	}
	if err := validateInterval(start, end); err != nil {
		return "", err
	}

	now := s.clock.Now().UTC()
	b := &model.Booking{
		ID:         uuid.NewString(),
		UID:        newUID(),
		ResourceID: resourceID,
		Start:      start,
		End:        end,
		Timezone:   "UTC",
		Status:     model.StatusConfirmed,
		ActorID:    actorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	required := slot.RequiredSlots(start, end)

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		r, err := activeResource(ctx, tx, resourceID)
		if err != nil {
			return err
		}
		b.OrganizationID = r.OrganizationID
		if err := reserve(ctx, tx, []claim{{resource: r, quantity: 1}}, required, nil); err != nil {
			return err
		}
		return s.insert(ctx, tx, b, actorID, "")
	})
	if err != nil {
		return "", err
	}

	s.log.InfoContext(ctx, "reservation created", "booking_id", b.ID, "resource_id", resourceID)
	s.dispatch(ctx, notify.BookingCreated, b, actorID, "")
	return b.ID, nil
}

// CreateBooking books an event type on one resource. The booking starts
// pending when the event type requires confirmation and confirmed
// otherwise. The returned booking carries the plain management token;
// only its hash is stored.
func (s *BookingService) CreateBooking(ctx context.Context, req model.CreateBookingRequest) (*model.Booking, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := validateInterval(req.Start, req.End); err != nil {
		return nil, err
	}
	if err := validateTimezone(req.Timezone); err != nil {
		return nil, err
	}
	if err := s.checkHolds(ctx, []string{req.ResourceID}, req.Start, req.End, req.SessionID); err != nil {
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
		r, err := linkedResource(ctx, tx, req.ResourceID, et.ID)
		if err != nil {
			return err
		}
		if !r.IsStandalone {
			return invalid("resource %s cannot be booked on its own", r.ID)
		}

		b = s.newEventBooking(et, r.ID, req.Start, req.End, req.Timezone, req.Booker, req.Location, req.ActorID, hash, now)
		buffers := bufferSlots(req.Start, req.End, et.BufferBefore, et.BufferAfter)
		if err := reserve(ctx, tx, []claim{{resource: r, quantity: 1}}, required, buffers); err != nil {
			return err
		}
		return s.insert(ctx, tx, b, req.ActorID, "")
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "booking created",
		"booking_id", b.ID, "resource_id", b.ResourceID, "event_type_id", b.EventTypeID, "status", b.Status)
	s.dispatch(ctx, notify.BookingCreated, b, req.ActorID, "")
	b.ManagementToken = token
	return b, nil
}

// CancelBooking cancels a booking and frees exactly the slots it holds.
// Cancelling a cancelled booking is a no-op.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, reason, actorID string) (*model.Booking, error) {
	return s.transition(ctx, bookingID, model.StatusCancelled, reason, actorID)
}

// ConfirmBooking moves a pending booking to confirmed.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID, actorID string) (*model.Booking, error) {
	return s.transition(ctx, bookingID, model.StatusConfirmed, "", actorID)
}

// DeclineBooking rejects a non-terminal booking and frees its slots.
func (s *BookingService) DeclineBooking(ctx context.Context, bookingID, reason, actorID string) (*model.Booking, error) {
	return s.transition(ctx, bookingID, model.StatusDeclined, reason, actorID)
}

// CompleteBooking marks a confirmed booking as held. Its slots stay busy.
func (s *BookingService) CompleteBooking(ctx context.Context, bookingID, actorID string) (*model.Booking, error) {
	return s.transition(ctx, bookingID, model.StatusCompleted, "", actorID)
}

func (s *BookingService) transition(ctx context.Context, bookingID string, to model.BookingStatus, reason, actorID string) (*model.Booking, error) {
	if bookingID == "" {
		return nil, invalid("booking id is required")
	}
	if err := validateStruct(model.TransitionRequest{Reason: reason}); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	var (
		b       *model.Booking
		changed bool
	)
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		changed = false
		b, err = tx.GetBooking(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("booking %s: %w", bookingID, err)
		}
		if b.Status == to && to == model.StatusCancelled {
			return nil
		}
		if !model.CanTransition(b.Status, to) {
			return fmt.Errorf("booking %s is %s and cannot become %s: %w", bookingID, b.Status, to, repository.ErrInvalidState)
		}
		if b.Status.HoldsSlots() && !to.HoldsSlots() {
			if err := releaseBooking(ctx, tx, b); err != nil {
				return err
			}
		}

		from := b.Status
		b.Status = to
		b.UpdatedAt = now
		if to == model.StatusCancelled || to == model.StatusDeclined {
			b.CancellationReason = reason
		}
		if to == model.StatusCancelled {
			b.CancelledAt = &now
		}
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return err
		}
		changed = true
		return tx.AppendHistory(ctx, &model.BookingHistory{
			ID:         uuid.NewString(),
			BookingID:  b.ID,
			FromStatus: from,
			ToStatus:   to,
			ChangedBy:  actorID,
			Reason:     reason,
			Timestamp:  now,
		})
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return b, nil
	}

	s.log.InfoContext(ctx, "booking status changed", "booking_id", b.ID, "status", to)
	s.dispatch(ctx, eventFor(to), b, actorID, reason)
	return b, nil
}

// RescheduleBooking moves a pending or confirmed booking to [start, end).
// In one transaction the old booking's slots are released, the new
// interval is reserved, the old booking is cancelled and a new booking
// pointing back at it is inserted. When the new interval is taken the
// original booking keeps its slots. With the presence guard enabled the
// new interval must not be held by a session other than req.SessionID on
// any of the booking's resources.
func (s *BookingService) RescheduleBooking(ctx context.Context, bookingID string, req model.RescheduleRequest, actorID string) (*model.Booking, error) {
	if bookingID == "" {
		return nil, invalid("booking id is required")
	}
	start, end, reason := req.Start, req.End, req.Reason
	if err := validateInterval(start, end); err != nil {
		return nil, err
	}
	if s.holds != nil {
		cur, err := s.store.GetBooking(ctx, bookingID)
		if err != nil {
			return nil, fmt.Errorf("booking %s: %w", bookingID, err)
		}
		if err := s.checkHolds(ctx, bookedResources(cur), start, end, req.SessionID); err != nil {
			return nil, err
		}
	}
	token, hash, err := s.issueToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	if reason == "" {
		reason = rescheduledReason
	}
	var next *model.Booking

	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		old, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("booking %s: %w", bookingID, err)
		}
		if old.Status != model.StatusPending && old.Status != model.StatusConfirmed {
			return fmt.Errorf("booking %s is %s and cannot be rescheduled: %w", bookingID, old.Status, repository.ErrInvalidState)
		}

		var buffers map[string][]int
		if old.EventTypeID != "" {
			et, err := bookableEventType(ctx, tx, old.EventTypeID, start, end, now)
			if err != nil {
				return err
			}
			buffers = bufferSlots(start, end, et.BufferBefore, et.BufferAfter)
		}

		claims, err := claimsOf(ctx, tx, old)
		if err != nil {
			return err
		}
		prev := slot.RequiredSlots(old.Start, old.End)
		for _, c := range claims {
			if err := release(ctx, tx, c, prev); err != nil {
				return err
			}
		}
		if err := reserve(ctx, tx, claims, slot.RequiredSlots(start, end), buffers); err != nil {
			return err
		}

		next = rescheduled(old, start, end, hash, now, s.tokenTTL)
		if err := s.insert(ctx, tx, next, actorID, "rescheduled from "+old.ID); err != nil {
			return err
		}

		from := old.Status
		old.Status = model.StatusCancelled
		old.CancellationReason = rescheduledReason
		old.CancelledAt = &now
		old.UpdatedAt = now
		if err := tx.UpdateBooking(ctx, old); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, &model.BookingHistory{
			ID:         uuid.NewString(),
			BookingID:  old.ID,
			FromStatus: from,
			ToStatus:   model.StatusCancelled,
			ChangedBy:  actorID,
			Reason:     reason,
			Timestamp:  now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "booking rescheduled", "booking_id", next.ID, "previous_id", bookingID)
	s.dispatch(ctx, notify.BookingRescheduled, next, actorID, reason)
	next.ManagementToken = token
	return next, nil
}

// ManageBooking returns the booking behind a management link after
// checking its token.
func (s *BookingService) ManageBooking(ctx context.Context, uid, token string) (*model.Booking, error) {
	b, err := s.store.GetBookingByUID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", uid, err)
	}
	if err := s.authorize(b, token); err != nil {
		return nil, err
	}
	return b, nil
}

// CancelWithToken is the booker's self-service cancellation.
func (s *BookingService) CancelWithToken(ctx context.Context, uid, token, reason string) (*model.Booking, error) {
	b, err := s.ManageBooking(ctx, uid, token)
	if err != nil {
		return nil, err
	}
	return s.CancelBooking(ctx, b.ID, reason, b.BookerEmail)
}

// RescheduleWithToken is the booker's self-service reschedule. The new
// booking gets a fresh management token.
func (s *BookingService) RescheduleWithToken(ctx context.Context, uid, token string, req model.RescheduleRequest) (*model.Booking, error) {
	b, err := s.ManageBooking(ctx, uid, token)
	if err != nil {
		return nil, err
	}
	return s.RescheduleBooking(ctx, b.ID, req, b.BookerEmail)
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", id, err)
	}
	return b, nil
}

func (s *BookingService) GetBookingByUID(ctx context.Context, uid string) (*model.Booking, error) {
	b, err := s.store.GetBookingByUID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", uid, err)
	}
	return b, nil
}

// ListBookings returns bookings matching f, ordered by start.
func (s *BookingService) ListBookings(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid("unknown status %q", f.Status)
	}
	if f.From != 0 && f.To != 0 && f.To <= f.From {
		return nil, invalid("to must be after from")
	}
	switch {
	case f.Limit <= 0:
		f.Limit = defaultListLimit
	case f.Limit > maxListLimit:
		f.Limit = maxListLimit
	}
	out, err := s.store.ListBookings(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Booking{}
	}
	return out, nil
}

// ListHistory returns the status changes of a booking, oldest first.
func (s *BookingService) ListHistory(ctx context.Context, bookingID string) ([]model.BookingHistory, error) {
	h, err := s.store.ListHistory(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, err)
	}
	if h == nil {
		h = []model.BookingHistory{}
	}
	return h, nil
}

// insert stores b and its creation history row.
func (s *BookingService) insert(ctx context.Context, tx repository.Tx, b *model.Booking, actorID, reason string) error {
	if err := tx.InsertBooking(ctx, b); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return tx.AppendHistory(ctx, &model.BookingHistory{
		ID:        uuid.NewString(),
		BookingID: b.ID,
		ToStatus:  b.Status,
		ChangedBy: actorID,
		Reason:    reason,
		Timestamp: b.CreatedAt,
	})
}

func (s *BookingService) newEventBooking(et *model.EventType, resourceID string, start, end int64, tz string, booker model.Booker, location, actorID, tokenHash string, now time.Time) *model.Booking {
	if et.LockTimeZoneToggle || tz == "" {
		tz = et.Timezone
	}
	if tz == "" {
		tz = "UTC"
	}
	status := model.StatusConfirmed
	if et.RequiresConfirmation {
		status = model.StatusPending
	}
	return &model.Booking{
		ID:                       uuid.NewString(),
		UID:                      newUID(),
		ResourceID:               resourceID,
		EventTypeID:              et.ID,
		OrganizationID:           et.OrganizationID,
		Start:                    start,
		End:                      end,
		Timezone:                 tz,
		Status:                   status,
		BookerName:               booker.Name,
		BookerEmail:              booker.Email,
		BookerPhone:              booker.Phone,
		BookerNotes:              booker.Notes,
		Title:                    et.Title,
		Description:              et.Description,
		Location:                 location,
		ActorID:                  actorID,
		ManagementTokenHash:      tokenHash,
		ManagementTokenExpiresAt: now.Add(s.tokenTTL),
		CreatedAt:                now,
		UpdatedAt:                now,
	}
}

// issueToken returns a management token and its bcrypt hash.
func (s *BookingService) issueToken() (string, string, error) {
	token, err := newToken()
	if err != nil {
		return "", "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), s.tokenCost)
	if err != nil {
		return "", "", fmt.Errorf("hash token: %w", err)
	}
	return token, string(hash), nil
}

func (s *BookingService) authorize(b *model.Booking, token string) error {
	if token == "" || b.ManagementTokenHash == "" {
		return ErrForbidden
	}
	if !b.ManagementTokenExpiresAt.IsZero() && s.clock.Now().After(b.ManagementTokenExpiresAt) {
		return ErrForbidden
	}
	if err := bcrypt.CompareHashAndPassword([]byte(b.ManagementTokenHash), []byte(token)); err != nil {
		return ErrForbidden
	}
	return nil
}

// checkHolds applies the presence guard when it is enabled. The first
// resource held by another session fails the request. Presence is
// advisory, so a failing presence backend never blocks a booking.
func (s *BookingService) checkHolds(ctx context.Context, resourceIDs []string, start, end int64, session string) error {
	if s.holds == nil {
		return nil
	}
	for _, rid := range resourceIDs {
		held, err := s.holds.Held(ctx, rid, start, end, session)
		if err != nil {
			s.log.WarnContext(ctx, "presence guard skipped", "resource_id", rid, "error", err)
			continue
		}
		if held {
			return fmt.Errorf("held by another session: %w", &repository.ConflictError{Resources: []string{rid}})
		}
	}
	return nil
}

// bookedResources lists the primary resource followed by every other
// item resource of b.
func bookedResources(b *model.Booking) []string {
	ids := []string{b.ResourceID}
	for _, it := range b.Items {
		if it.ResourceID != b.ResourceID {
			ids = append(ids, it.ResourceID)
		}
	}
	return ids
}

// dispatch delivers an event after commit. Failures are logged only.
func (s *BookingService) dispatch(ctx context.Context, typ string, b *model.Booking, actorID, reason string) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.notifier.Dispatch(ctx, notify.NewEvent(typ, b, actorID, reason, s.clock.Now().UTC())); err != nil {
		s.log.WarnContext(ctx, "notification failed", "type", typ, "booking_id", b.ID, "error", err)
	}
}

func eventFor(status model.BookingStatus) string {
	switch status {
	case model.StatusConfirmed:
		return notify.BookingConfirmed
	case model.StatusDeclined:
		return notify.BookingDeclined
	case model.StatusCompleted:
		return notify.BookingCompleted
	default:
		return notify.BookingCancelled
	}
}

// releaseBooking frees every slot a booking holds.
func releaseBooking(ctx context.Context, tx repository.Tx, b *model.Booking) error {
	claims, err := claimsOf(ctx, tx, b)
	if err != nil {
		return err
	}
	required := slot.RequiredSlots(b.Start, b.End)
	for _, c := range claims {
		if err := release(ctx, tx, c, required); err != nil {
			return err
		}
	}
	return nil
}

// rescheduled copies old onto [start, end) as a new booking.
func rescheduled(old *model.Booking, start, end int64, tokenHash string, now time.Time, ttl time.Duration) *model.Booking {
	next := *old
	next.ID = uuid.NewString()
	next.UID = newUID()
	next.Start = start
	next.End = end
	next.RescheduledFrom = old.ID
	next.CancellationReason = ""
	next.CancelledAt = nil
	next.ManagementTokenHash = tokenHash
	next.ManagementTokenExpiresAt = now.Add(ttl)
	next.ManagementToken = ""
	next.CreatedAt = now
	next.UpdatedAt = now
	next.Items = nil
	for _, it := range old.Items {
		next.Items = append(next.Items, model.BookingItem{
			ID:         uuid.NewString(),
			BookingID:  next.ID,
			ResourceID: it.ResourceID,
			Quantity:   it.Quantity,
		})
	}
	return &next
}

func activeResource(ctx context.Context, tx repository.Tx, id string) (*model.Resource, error) {
	r, err := tx.GetResource(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", id, err)
	}
	if !r.IsActive {
		return nil, fmt.Errorf("resource %s is inactive: %w", id, repository.ErrInvalidState)
	}
	return r, nil
}

// linkedResource loads an active resource that is linked to eventTypeID.
func linkedResource(ctx context.Context, tx repository.Tx, id, eventTypeID string) (*model.Resource, error) {
	r, err := activeResource(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	linked, err := tx.IsLinked(ctx, id, eventTypeID)
	if err != nil {
		return nil, err
	}
	if !linked {
		return nil, invalid("resource %s is not linked to event type %s", id, eventTypeID)
	}
	return r, nil
}

// bookableEventType loads an active event type and checks [start, end)
// against its length options, notice period and horizon.
func bookableEventType(ctx context.Context, tx repository.Tx, id string, start, end int64, now time.Time) (*model.EventType, error) {
	et, err := tx.GetEventType(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("event type %s: %w", id, err)
	}
	if !et.IsActive {
		return nil, fmt.Errorf("event type %s is inactive: %w", id, repository.ErrInvalidState)
	}
	span := end - start
	if span%60_000 != 0 || !et.AllowsLength(int(span/60_000)) {
		return nil, invalid("duration of %d minutes is not offered by event type %s", span/60_000, id)
	}
	at := time.UnixMilli(start)
	if at.Before(now.Add(time.Duration(et.MinNoticeMinutes) * time.Minute)) {
		return nil, invalid("start is inside the %d minute notice period", et.MinNoticeMinutes)
	}
	if et.MaxFutureMinutes > 0 && at.After(now.Add(time.Duration(et.MaxFutureMinutes)*time.Minute)) {
		return nil, invalid("start is more than %d minutes ahead", et.MaxFutureMinutes)
	}
	return et, nil
}
