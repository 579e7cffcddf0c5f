package model

import "encoding/json"

// Booker is the contact snapshot stored on a booking.
type Booker struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Notes string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// CreateReservationRequest is the payload of a bare reservation.
type CreateReservationRequest struct {
	ResourceID string `json:"resourceId" validate:"required"`
	ActorID    string `json:"actorId"`
	Start      int64  `json:"start" validate:"required"`
	End        int64  `json:"end" validate:"required"`
}

// CreateBookingRequest is the payload for booking an event type.
type CreateBookingRequest struct {
	EventTypeID string `json:"eventTypeId" validate:"required"`
	ResourceID  string `json:"resourceId" validate:"required"`
	Start       int64  `json:"start" validate:"required"`
	End         int64  `json:"end" validate:"required"`
	Timezone    string `json:"timezone"`
	Booker      Booker `json:"booker"`
	Location    string `json:"location,omitempty"`
	ActorID     string `json:"-"`
	// SessionID is the caller's presence session. It is only consulted
	// when the presence guard is enabled.
	SessionID string `json:"sessionId,omitempty"`
}

// CreateMultiResourceBookingRequest books several resources at once.
// The first resource becomes the booking's primary resource.
type CreateMultiResourceBookingRequest struct {
	EventTypeID string            `json:"eventTypeId" validate:"required"`
	Resources   []ResourceRequest `json:"resources" validate:"required,min=1,dive"`
	Start       int64             `json:"start" validate:"required"`
	End         int64             `json:"end" validate:"required"`
	Timezone    string            `json:"timezone"`
	Booker      Booker            `json:"booker"`
	Location    string            `json:"location,omitempty"`
	ActorID     string            `json:"-"`
	// SessionID is the caller's presence session; its own holds never
	// block it.
	SessionID string `json:"sessionId,omitempty"`
}

// CheckMultiResourceRequest asks whether a bundle is free.
type CheckMultiResourceRequest struct {
	Resources []ResourceRequest `json:"resources" validate:"required,min=1,dive"`
	Start     int64             `json:"start" validate:"required"`
	End       int64             `json:"end" validate:"required"`
}

// TransitionRequest carries the optional reason of a status change.
type TransitionRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=1000"`
}

// RescheduleRequest moves a booking to a new interval.
type RescheduleRequest struct {
	Start  int64  `json:"start" validate:"required"`
	End    int64  `json:"end" validate:"required"`
	Reason string `json:"reason,omitempty"`
	// SessionID is the caller's presence session.
	SessionID string `json:"sessionId,omitempty"`
}

// HeartbeatRequest asserts presence on slots.
type HeartbeatRequest struct {
	Slots []string        `json:"slots" validate:"dive,required"`
	User  string          `json:"user" validate:"required"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// LeaveRequest releases presence on slots.
type LeaveRequest struct {
	Slots []string `json:"slots" validate:"dive,required"`
	User  string   `json:"user" validate:"required"`
}

// ResourceInput creates or updates a resource.
type ResourceInput struct {
	ID             string `json:"id" validate:"required,max=100"`
	OrganizationID string `json:"organizationId" validate:"required"`
	Name           string `json:"name" validate:"required,max=200"`
	Type           string `json:"type" validate:"max=50"`
	Timezone       string `json:"timezone"`
	Quantity       int    `json:"quantity" validate:"gte=0"`
	IsFungible     bool   `json:"isFungible"`
	IsStandalone   *bool  `json:"isStandalone,omitempty"`
	IsActive       *bool  `json:"isActive,omitempty"`
	ScheduleID     string `json:"scheduleId,omitempty"`
}

// EventTypeInput creates or updates an event type.
type EventTypeInput struct {
	OrganizationID         string     `json:"organizationId" validate:"required"`
	Slug                   string     `json:"slug" validate:"required,max=100"`
	Title                  string     `json:"title" validate:"required,max=200"`
	Description            string     `json:"description"`
	LengthInMinutes        int        `json:"lengthInMinutes" validate:"required,gt=0,lte=1440"`
	LengthInMinutesOptions []int      `json:"lengthInMinutesOptions,omitempty" validate:"dive,gt=0,lte=1440"`
	SlotInterval           int        `json:"slotInterval,omitempty" validate:"gte=0,lte=1440"`
	Timezone               string     `json:"timezone"`
	LockTimeZoneToggle     bool       `json:"lockTimeZoneToggle"`
	Locations              []Location `json:"locations" validate:"dive"`
	BufferBefore           int        `json:"bufferBefore" validate:"gte=0"`
	BufferAfter            int        `json:"bufferAfter" validate:"gte=0"`
	MinNoticeMinutes       int        `json:"minNoticeMinutes" validate:"gte=0"`
	MaxFutureMinutes       int        `json:"maxFutureMinutes" validate:"gte=0"`
	RequiresConfirmation   bool       `json:"requiresConfirmation"`
	IsActive               *bool      `json:"isActive,omitempty"`
}

// ScheduleInput creates or updates a schedule.
type ScheduleInput struct {
	OrganizationID string             `json:"organizationId" validate:"required"`
	Name           string             `json:"name" validate:"required"`
	Timezone       string             `json:"timezone"`
	Weekly         []WeeklyHours      `json:"weekly" validate:"dive"`
	Overrides      []ScheduleOverride `json:"overrides,omitempty" validate:"dive"`
}
