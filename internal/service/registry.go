package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/resource-booking/internal/clock"
	"github.com/Shivanand-hulikatti/resource-booking/internal/model"
	"github.com/Shivanand-hulikatti/resource-booking/internal/repository"
)

// RegistryService manages the admin-owned configuration: resources,
// event types, schedules and the links between resources and event types.
type RegistryService struct {
	store repository.Store
	clock clock.Clock
	log   *slog.Logger
}

func NewRegistryService(store repository.Store, clk clock.Clock, log *slog.Logger) *RegistryService {
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = discardLogger()
	}
	return &RegistryService{store: store, clock: clk, log: log}
}

// ─── Resources ───────────────────────────────────────────────────────────────

func (s *RegistryService) CreateResource(ctx context.Context, in model.ResourceInput) (*model.Resource, error) {
	if err := s.checkResource(ctx, &in); err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	r := &model.Resource{CreatedAt: now}
	applyResource(r, in, now)
	if err := s.store.CreateResource(ctx, r); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "resource created", "resource_id", r.ID, "pooled", r.Pooled())
	return r, nil
}

// UpdateResource replaces a resource's settings. Switching between pooled
// and singular tracking is refused while future bookings hold slots on
// the resource, since their slots live in the other kind of record.
func (s *RegistryService) UpdateResource(ctx context.Context, id string, in model.ResourceInput) (*model.Resource, error) {
	in.ID = id
	if err := s.checkResource(ctx, &in); err != nil {
		return nil, err
	}
	r, err := s.store.GetResource(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", id, err)
	}
	wasPooled := r.Pooled()
	now := s.clock.Now().UTC()
	applyResource(r, in, now)

	if wasPooled != r.Pooled() {
		held, err := s.hasFutureBookings(ctx, id, now.UnixMilli())
		if err != nil {
			return nil, err
		}
		if held {
			return nil, fmt.Errorf("resource %s has upcoming bookings: %w", id, repository.ErrInUse)
		}
	}
	if err := s.store.UpdateResource(ctx, r); err != nil {
		return nil, fmt.Errorf("resource %s: %w", id, err)
	}
	return r, nil
}

func (s *RegistryService) DeleteResource(ctx context.Context, id string) error {
	if err := s.store.DeleteResource(ctx, id); err != nil {
		return fmt.Errorf("resource %s: %w", id, err)
	}
	s.log.InfoContext(ctx, "resource deleted", "resource_id", id)
	return nil
}

func (s *RegistryService) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	r, err := s.store.GetResource(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", id, err)
	}
	return r, nil
}

func (s *RegistryService) ListResources(ctx context.Context, organizationID string) ([]model.Resource, error) {
	out, err := s.store.ListResources(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Resource{}
	}
	return out, nil
}

func (s *RegistryService) checkResource(ctx context.Context, in *model.ResourceInput) error {
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if err := validateStruct(in); err != nil {
		return err
	}
	if err := validateTimezone(in.Timezone); err != nil {
		return err
	}
	if in.ScheduleID != "" {
		if _, err := s.store.GetSchedule(ctx, in.ScheduleID); err != nil {
			return invalid("schedule %s: %v", in.ScheduleID, err)
		}
	}
	return nil
}

func (s *RegistryService) hasFutureBookings(ctx context.Context, resourceID string, from int64) (bool, error) {
	bookings, err := s.store.ListBookings(ctx, model.BookingFilter{ResourceID: resourceID, From: from})
	if err != nil {
		return false, err
	}
	for _, b := range bookings {
		if b.Status.HoldsSlots() {
			return true, nil
		}
	}
	return false, nil
}

func applyResource(r *model.Resource, in model.ResourceInput, now time.Time) {
	r.ID = in.ID
	r.OrganizationID = in.OrganizationID
	r.Name = in.Name
	r.Type = in.Type
	r.Timezone = in.Timezone
	r.Quantity = in.Quantity
	r.IsFungible = in.IsFungible
	r.IsStandalone = boolOr(in.IsStandalone, true)
	r.IsActive = boolOr(in.IsActive, true)
	r.ScheduleID = in.ScheduleID
	r.UpdatedAt = now
}

// ─── Event types ─────────────────────────────────────────────────────────────

func (s *RegistryService) CreateEventType(ctx context.Context, in model.EventTypeInput) (*model.EventType, error) {
	if err := checkEventType(in); err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	e := &model.EventType{ID: uuid.NewString(), CreatedAt: now}
	applyEventType(e, in, now)
	if err := s.store.CreateEventType(ctx, e); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "event type created", "event_type_id", e.ID, "slug", e.Slug)
	return e, nil
}

// UpdateEventType replaces an event type's settings. Existing bookings
// keep the title and description they were created with.
func (s *RegistryService) UpdateEventType(ctx context.Context, id string, in model.EventTypeInput) (*model.EventType, error) {
	if err := checkEventType(in); err != nil {
		return nil, err
	}
	e, err := s.store.GetEventType(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("event type %s: %w", id, err)
	}
	applyEventType(e, in, s.clock.Now().UTC())
	if err := s.store.UpdateEventType(ctx, e); err != nil {
		return nil, fmt.Errorf("event type %s: %w", id, err)
	}
	return e, nil
}

// DeleteEventType removes an event type and its links. Event types with
// bookings must be deactivated instead.
func (s *RegistryService) DeleteEventType(ctx context.Context, id string) error {
	if err := s.store.DeleteEventType(ctx, id); err != nil {
		return fmt.Errorf("event type %s: %w", id, err)
	}
	s.log.InfoContext(ctx, "event type deleted", "event_type_id", id)
	return nil
}

func (s *RegistryService) GetEventType(ctx context.Context, id string) (*model.EventType, error) {
	e, err := s.store.GetEventType(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("event type %s: %w", id, err)
	}
	return e, nil
}

func (s *RegistryService) ListEventTypes(ctx context.Context, organizationID string) ([]model.EventType, error) {
	out, err := s.store.ListEventTypes(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.EventType{}
	}
	return out, nil
}

func checkEventType(in model.EventTypeInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	return validateTimezone(in.Timezone)
}

func applyEventType(e *model.EventType, in model.EventTypeInput, now time.Time) {
	e.OrganizationID = in.OrganizationID
	e.Slug = in.Slug
	e.Title = in.Title
	e.Description = in.Description
	e.LengthInMinutes = in.LengthInMinutes
	e.LengthInMinutesOptions = in.LengthInMinutesOptions
	e.SlotInterval = in.SlotInterval
	e.Timezone = in.Timezone
	e.LockTimeZoneToggle = in.LockTimeZoneToggle
	e.Locations = in.Locations
	if e.Locations == nil {
		e.Locations = []model.Location{}
	}
	e.BufferBefore = in.BufferBefore
	e.BufferAfter = in.BufferAfter
	e.MinNoticeMinutes = in.MinNoticeMinutes
	e.MaxFutureMinutes = in.MaxFutureMinutes
	e.RequiresConfirmation = in.RequiresConfirmation
	e.IsActive = boolOr(in.IsActive, true)
	e.UpdatedAt = now
}

// ─── Schedules ───────────────────────────────────────────────────────────────

func (s *RegistryService) CreateSchedule(ctx context.Context, in model.ScheduleInput) (*model.Schedule, error) {
	now := s.clock.Now().UTC()
	sc := &model.Schedule{ID: uuid.NewString(), CreatedAt: now}
	if err := applySchedule(sc, in, now); err != nil {
		return nil, err
	}
	if err := s.store.CreateSchedule(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *RegistryService) UpdateSchedule(ctx context.Context, id string, in model.ScheduleInput) (*model.Schedule, error) {
	sc, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("schedule %s: %w", id, err)
	}
	if err := applySchedule(sc, in, s.clock.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateSchedule(ctx, sc); err != nil {
		return nil, fmt.Errorf("schedule %s: %w", id, err)
	}
	return sc, nil
}

func (s *RegistryService) DeleteSchedule(ctx context.Context, id string) error {
	if err := s.store.DeleteSchedule(ctx, id); err != nil {
		return fmt.Errorf("schedule %s: %w", id, err)
	}
	return nil
}

func (s *RegistryService) ListSchedules(ctx context.Context, organizationID string) ([]model.Schedule, error) {
	out, err := s.store.ListSchedules(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Schedule{}
	}
	return out, nil
}

func applySchedule(sc *model.Schedule, in model.ScheduleInput, now time.Time) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	sc.OrganizationID = in.OrganizationID
	sc.Name = in.Name
	sc.Timezone = in.Timezone
	sc.Weekly = in.Weekly
	sc.Overrides = in.Overrides
	sc.UpdatedAt = now
	if err := sc.Validate(); err != nil {
		return invalid("%v", err)
	}
	return nil
}

// ─── Links ───────────────────────────────────────────────────────────────────

func (s *RegistryService) LinkEventType(ctx context.Context, resourceID, eventTypeID string) error {
	if resourceID == "" || eventTypeID == "" {
		return invalid("resource id and event type id are required")
	}
	return s.store.LinkEventType(ctx, resourceID, eventTypeID)
}

func (s *RegistryService) UnlinkEventType(ctx context.Context, resourceID, eventTypeID string) error {
	if err := s.store.UnlinkEventType(ctx, resourceID, eventTypeID); err != nil {
		return fmt.Errorf("link %s/%s: %w", resourceID, eventTypeID, err)
	}
	return nil
}

func (s *RegistryService) LinkedResources(ctx context.Context, eventTypeID string) ([]string, error) {
	out, err := s.store.LinkedResources(ctx, eventTypeID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
