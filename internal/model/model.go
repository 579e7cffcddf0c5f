// Package model defines the core domain types for the resource booking system.
package model

import (
	"encoding/json"
	"time"
)

// Resource is a bookable entity such as a room or a piece of equipment.
// ID is chosen by the caller.
type Resource struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	Timezone       string    `json:"timezone"`
	Quantity       int       `json:"quantity"`
	IsFungible     bool      `json:"isFungible"`
	IsStandalone   bool      `json:"isStandalone"`
	IsActive       bool      `json:"isActive"`
	ScheduleID     string    `json:"scheduleId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Pooled reports whether the resource is tracked by per-slot counts
// instead of a busy bitmap.
func (r *Resource) Pooled() bool {
	return r.IsFungible && r.Quantity > 1
}

// Location is where an event type takes place.
type Location struct {
	Type    string `json:"type" validate:"required"`
	Address string `json:"address,omitempty"`
	Public  *bool  `json:"public,omitempty"`
}

// EventType is a bookable meeting template.
type EventType struct {
	ID                     string     `json:"id"`
	OrganizationID         string     `json:"organizationId"`
	Slug                   string     `json:"slug"`
	Title                  string     `json:"title"`
	Description            string     `json:"description"`
	LengthInMinutes        int        `json:"lengthInMinutes"`
	LengthInMinutesOptions []int      `json:"lengthInMinutesOptions,omitempty"`
	SlotInterval           int        `json:"slotInterval,omitempty"`
	Timezone               string     `json:"timezone"`
	LockTimeZoneToggle     bool       `json:"lockTimeZoneToggle"`
	Locations              []Location `json:"locations"`
	BufferBefore           int        `json:"bufferBefore"`
	BufferAfter            int        `json:"bufferAfter"`
	MinNoticeMinutes       int        `json:"minNoticeMinutes"`
	MaxFutureMinutes       int        `json:"maxFutureMinutes"`
	RequiresConfirmation   bool       `json:"requiresConfirmation"`
	IsActive               bool       `json:"isActive"`
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt"`
}

// EffectiveSlotInterval is SlotInterval when set, otherwise the shortest
// duration a booker can pick.
func (e *EventType) EffectiveSlotInterval() int {
	if e.SlotInterval > 0 {
		return e.SlotInterval
	}
	shortest := e.LengthInMinutes
	for _, l := range e.LengthInMinutesOptions {
		if l > 0 && (shortest <= 0 || l < shortest) {
			shortest = l
		}
	}
	return shortest
}

// AllowsLength reports whether minutes is the default length or one of
// the options.
func (e *EventType) AllowsLength(minutes int) bool {
	if minutes == e.LengthInMinutes {
		return true
	}
	for _, l := range e.LengthInMinutesOptions {
		if l == minutes {
			return true
		}
	}
	return false
}

// Booking is a reservation of a time interval against one or more
// resources. Start and End are epoch milliseconds, half-open.
type Booking struct {
	ID                       string        `json:"id"`
	UID                      string        `json:"uid"`
	ResourceID               string        `json:"resourceId"`
	EventTypeID              string        `json:"eventTypeId,omitempty"`
	OrganizationID           string        `json:"organizationId"`
	Start                    int64         `json:"start"`
	End                      int64         `json:"end"`
	Timezone                 string        `json:"timezone"`
	Status                   BookingStatus `json:"status"`
	BookerName               string        `json:"bookerName,omitempty"`
	BookerEmail              string        `json:"bookerEmail,omitempty"`
	BookerPhone              string        `json:"bookerPhone,omitempty"`
	BookerNotes              string        `json:"bookerNotes,omitempty"`
	Title                    string        `json:"title,omitempty"`
	Description              string        `json:"description,omitempty"`
	Location                 string        `json:"location,omitempty"`
	ActorID                  string        `json:"actorId,omitempty"`
	ManagementTokenHash      string        `json:"-"`
	ManagementTokenExpiresAt time.Time     `json:"managementTokenExpiresAt"`
	CancellationReason       string        `json:"cancellationReason,omitempty"`
	CancelledAt              *time.Time    `json:"cancelledAt,omitempty"`
	RescheduledFrom          string        `json:"rescheduledFrom,omitempty"`
	CreatedAt                time.Time     `json:"createdAt"`
	UpdatedAt                time.Time     `json:"updatedAt"`
	Items                    []BookingItem `json:"items,omitempty"`

	// ManagementToken is only populated on the response that created the
	// booking. Only its hash is stored.
	ManagementToken string `json:"managementToken,omitempty"`
}

// BookingItem is one resource of a multi-resource booking.
type BookingItem struct {
	ID         string `json:"id"`
	BookingID  string `json:"bookingId"`
	ResourceID string `json:"resourceId"`
	Quantity   int    `json:"quantity"`
}

// BookingHistory is an append-only record of a status transition.
type BookingHistory struct {
	ID         string        `json:"id"`
	BookingID  string        `json:"bookingId"`
	FromStatus BookingStatus `json:"fromStatus,omitempty"`
	ToStatus   BookingStatus `json:"toStatus"`
	ChangedBy  string        `json:"changedBy,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}

// BookingFilter narrows ListBookings.
type BookingFilter struct {
	ResourceID     string
	OrganizationID string
	Status         BookingStatus
	From, To       int64
	Limit          int
}

// TimeSlot is a free start time returned by day-level queries.
type TimeSlot struct {
	Time string `json:"time"`
}

// PresenceRecord is one holder's soft lock on one slot.
type PresenceRecord struct {
	ResourceID string          `json:"resourceId" cbor:"r"`
	Slot       string          `json:"slot" cbor:"s"`
	User       string          `json:"user" cbor:"u"`
	Updated    time.Time       `json:"updated" cbor:"t"`
	Data       json.RawMessage `json:"data,omitempty" cbor:"d,omitempty"`
}

// Identity is the authenticated caller.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the caller may use admin operations.
func (i Identity) IsAdmin() bool { return i.Role == "admin" || i.Role == "owner" }

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error     string   `json:"error"`
	Code      string   `json:"code,omitempty"`
	Resources []string `json:"resources,omitempty"`
}
