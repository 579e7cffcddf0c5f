// Package repository persists resources, event types, schedules, bookings
// and the per-day availability records the booking engine maintains.
//
// Two implementations share one contract: PostgresStore (pgx, production)
// and MemoryStore (single process, tests and local development). Both run
// WithTx bodies as serializable units: either every write of the body
// commits or none does.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/resource-booking/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when the requested interval or quantity is no
// longer available.
var ErrConflict = errors.New("requested time is no longer available")

// ErrInvalidState is returned for operations the current state forbids.
var ErrInvalidState = errors.New("invalid state")

// ErrInUse is returned when deleting a record that bookings or links
// still reference. Deactivate it instead.
var ErrInUse = fmt.Errorf("%w: record is still referenced", ErrInvalidState)

// ErrDuplicate is returned when a unique key is already taken.
var ErrDuplicate = errors.New("already exists")

// ConflictError names the resources and slots that caused a conflict.
// errors.Is(err, ErrConflict) holds for every ConflictError.
type ConflictError struct {
	Resources []string
	Slots     map[string][]int
}

func (e *ConflictError) Error() string {
	if len(e.Resources) == 0 {
		return ErrConflict.Error()
	}
	return fmt.Sprintf("%s: %s", ErrConflict, strings.Join(e.Resources, ", "))
}

// Is makes ConflictError match ErrConflict.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// AvailabilityReader reads what the availability engine consults. Both
// Store and Tx implement it, so the same checks run inside and outside
// transactions.
type AvailabilityReader interface {
	GetResource(ctx context.Context, id string) (*model.Resource, error)
	GetSchedule(ctx context.Context, id string) (*model.Schedule, error)
	// GetDailyAvailability returns an empty record when none exists.
	GetDailyAvailability(ctx context.Context, resourceID, date string) (*model.DailyAvailability, error)
	// GetQuantityAvailability returns a zeroed record when none exists.
	GetQuantityAvailability(ctx context.Context, resourceID, date string) (*model.QuantityAvailability, error)
}

// Tx is the view of the store inside a transaction.
type Tx interface {
	AvailabilityReader
	GetEventType(ctx context.Context, id string) (*model.EventType, error)
	IsLinked(ctx context.Context, resourceID, eventTypeID string) (bool, error)
	// GetBooking loads a booking with its items.
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	PutDailyAvailability(ctx context.Context, rec *model.DailyAvailability) error
	PutQuantityAvailability(ctx context.Context, rec *model.QuantityAvailability) error
	// InsertBooking stores b and b.Items.
	InsertBooking(ctx context.Context, b *model.Booking) error
	// UpdateBooking stores the mutable fields of b: status, cancellation
	// fields and UpdatedAt.
	UpdateBooking(ctx context.Context, b *model.Booking) error
	AppendHistory(ctx context.Context, h *model.BookingHistory) error
}

// BookingReader reads committed bookings.
type BookingReader interface {
	GetEventType(ctx context.Context, id string) (*model.EventType, error)
	IsLinked(ctx context.Context, resourceID, eventTypeID string) (bool, error)
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	GetBookingByUID(ctx context.Context, uid string) (*model.Booking, error)
	ListBookings(ctx context.Context, f model.BookingFilter) ([]model.Booking, error)
	ListHistory(ctx context.Context, bookingID string) ([]model.BookingHistory, error)
}

// Registry is the admin-owned configuration data.
type Registry interface {
	CreateResource(ctx context.Context, r *model.Resource) error
	UpdateResource(ctx context.Context, r *model.Resource) error
	DeleteResource(ctx context.Context, id string) error
	ListResources(ctx context.Context, organizationID string) ([]model.Resource, error)

	CreateEventType(ctx context.Context, e *model.EventType) error
	UpdateEventType(ctx context.Context, e *model.EventType) error
	DeleteEventType(ctx context.Context, id string) error
	ListEventTypes(ctx context.Context, organizationID string) ([]model.EventType, error)

	CreateSchedule(ctx context.Context, s *model.Schedule) error
	UpdateSchedule(ctx context.Context, s *model.Schedule) error
	DeleteSchedule(ctx context.Context, id string) error
	ListSchedules(ctx context.Context, organizationID string) ([]model.Schedule, error)

	LinkEventType(ctx context.Context, resourceID, eventTypeID string) error
	UnlinkEventType(ctx context.Context, resourceID, eventTypeID string) error
	LinkedResources(ctx context.Context, eventTypeID string) ([]string, error)
}

// Store is the full persistence contract.
type Store interface {
	AvailabilityReader
	BookingReader
	Registry

	// WithTx runs fn in one serializable transaction. An error from fn
	// aborts every write fn made. fn may be invoked more than once when
	// the backend asks for a retry, so it must not keep state across
	// calls other than through its return value.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Close()
}
