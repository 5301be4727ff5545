package model

import (
	"time"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/slot"
)

// Hold represents a temporary, token-addressed claim on one slot while a
// customer fills in the booking form.  Holds are never updated: they are
// deleted when redeemed into a booking or reaped after ExpiresAt.
//
// Fields:
//
//	ID        – booking_holds.id
//	Date      – date of the held slot (YYYY-MM-DD).
//	Time      – the held slot.
//	Token     – 128-bit random value, hex encoded, returned to the client.
//	ExpiresAt – instant after which the hold no longer counts.
//	CreatedAt – creation timestamp.
type Hold struct {
	ID        uint64     `json:"id"`
	Date      string     `json:"date"`
	Time      slot.Clock `json:"time"`
	Token     string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// Live reports whether the hold still claims its slot at now.
func (h Hold) Live(now time.Time) bool {
	return h.ExpiresAt.After(now)
}
