package model

import (
	"time"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/slot"
)

// BookingStatus is the lifecycle state of a booking request.
type BookingStatus string

const (
	StatusPendingConfirmation BookingStatus = "pending_confirmation"
	StatusConfirmed           BookingStatus = "confirmed"
	StatusDeclined            BookingStatus = "declined"
	StatusCancelled           BookingStatus = "cancelled"
	StatusExpired             BookingStatus = "expired"
)

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPendingConfirmation, StatusConfirmed, StatusDeclined, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Live reports whether a booking in this status occupies its slots.
func (s BookingStatus) Live() bool {
	return s == StatusPendingConfirmation || s == StatusConfirmed
}

// Terminal reports whether no further transition is expected.  Only
// pending_confirmation is non-terminal.
func (s BookingStatus) Terminal() bool {
	return s != StatusPendingConfirmation
}

// Booking mirrors a row of the booking_requests table.
//
// Fields:
//
//	ID           – primary key.
//	Date         – appointment date (YYYY-MM-DD).
//	Time         – first slot of the appointment.
//	EndTime      – exclusive end of the span; nil for a single slot.
//	Services     – requested service names, stored as JSON.
//	AdminNotes   – staff notes, overwritten by transitions.
//	Status       – lifecycle state.
//	CreatedAt    – creation time; reset by ExtendHold to restart the pending clock.
type Booking struct {
	ID           uint64        `json:"id"`
	Date         string        `json:"date"`
	Time         slot.Clock    `json:"time"`
	EndTime      *slot.Clock   `json:"end_time,omitempty"`
	CustomerName string        `json:"customer_name"`
	Phone        string        `json:"phone"`
	Email        string        `json:"email"`
	DogName      *string       `json:"dog_name,omitempty"`
	DogNotes     *string       `json:"dog_notes,omitempty"`
	Services     []string      `json:"services"`
	AdminNotes   *string       `json:"admin_notes,omitempty"`
	Status       BookingStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Slots returns the slot-times this booking occupies.
func (b Booking) Slots(step time.Duration) []slot.Clock {
	return slot.Expand(b.Time, b.EndTime, step)
}

// Stale reports whether a pending booking has outlived the expiry window.
// A zero window disables expiry.
func (b Booking) Stale(now time.Time, window time.Duration) bool {
	if b.Status != StatusPendingConfirmation || window <= 0 {
		return false
	}
	return b.CreatedAt.Before(now.Add(-window))
}

// BookingStats summarises the booking ledger for the staff dashboard.
type BookingStats struct {
	NewRequests         int `json:"new_requests"`
	PendingConfirmation int `json:"pending_confirmation"`
	ConfirmedToday      int `json:"confirmed_today"`
	ConfirmedWeek       int `json:"confirmed_week"`
}
