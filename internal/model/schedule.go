package model

import (
	"time"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/slot"
)

// SlotTemplate is the list of bookable start times for one weekday
// (0 = Sunday … 6 = Saturday).
type SlotTemplate struct {
	Weekday   int          `json:"weekday"`
	Times     []slot.Clock `json:"times"`
	Enabled   bool         `json:"is_enabled"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// DateOverride replaces the weekday template for one calendar date.  A
// closed override yields no slots at all.
type DateOverride struct {
	ID     uint64       `json:"id"`
	Date   string       `json:"date"`
	Closed bool         `json:"is_closed"`
	Times  []slot.Clock `json:"times"`
}
