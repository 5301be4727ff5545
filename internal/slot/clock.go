// Package slot holds the time-of-day arithmetic shared by availability,
// holds and bookings.  Every place that needs to know which slots a span
// occupies goes through Expand so the rule cannot drift between callers.
package slot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// EndOfDay is the largest Clock value accepted as a span end (24:00:00).
const EndOfDay Clock = 24 * 60 * 60

// ErrInvalidClock is returned when a time-of-day string cannot be parsed.
var ErrInvalidClock = errors.New("invalid time of day")

// ErrInvalidDate is returned when a calendar date string cannot be parsed.
var ErrInvalidDate = errors.New("invalid date")

// Clock is a time of day expressed in whole seconds after midnight.
type Clock int

// ParseClock accepts "HH:MM" or "HH:MM:SS" (as stored in MySQL TIME columns).
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	var vals [3]int
	for i, p := range parts {
		if len(p) == 0 || len(p) > 2 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
		vals[i] = n
	}
	h, m, sec := vals[0], vals[1], vals[2]
	if m > 59 || sec > 59 || h > 24 || (h == 24 && (m > 0 || sec > 0)) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return Clock(h*3600 + m*60 + sec), nil
}

// MustParseClock is ParseClock for literals; it panics on bad input.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String renders the clock as HH:MM:SS.
func (c Clock) String() string {
	h := int(c) / 3600
	m := (int(c) % 3600) / 60
	s := int(c) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Label renders the clock for humans, e.g. "9:00 AM".
func (c Clock) Label() string {
	t := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(c) * time.Second)
	return t.Format("3:04 PM")
}

// Add returns c shifted by d.  The result is not wrapped at midnight.
func (c Clock) Add(d time.Duration) Clock {
	return c + Clock(d/time.Second)
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseDate validates a YYYY-MM-DD date and returns it at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}
