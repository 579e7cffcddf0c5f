package model

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending     BookingStatus = "pending"
	StatusConfirmed   BookingStatus = "confirmed"
	StatusCancelled   BookingStatus = "cancelled"
	StatusCompleted   BookingStatus = "completed"
	StatusDeclined    BookingStatus = "declined"
	StatusRescheduled BookingStatus = "rescheduled"
)

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusDeclined, StatusRescheduled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s BookingStatus) Terminal() bool {
	switch s {
	case StatusCancelled, StatusCompleted, StatusDeclined, StatusRescheduled:
		return true
	}
	return false
}

// HoldsSlots reports whether a booking in this state occupies its
// interval in the availability records.
func (s BookingStatus) HoldsSlots() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusCompleted
}

// CanTransition reports whether from -> to is an edge of the booking
// state machine.
func CanTransition(from, to BookingStatus) bool {
	switch to {
	case StatusConfirmed:
		return from == StatusPending
	case StatusCompleted:
		return from == StatusConfirmed
	case StatusCancelled, StatusDeclined:
		return !from.Terminal()
	}
	return false
}
