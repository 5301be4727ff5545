package slot

import (
	"sort"
	"strings"
	"time"
)

// DefaultStep is the slot granularity used when none is configured.
const DefaultStep = 30 * time.Minute

// Expand returns the ordered slot boundaries {start, start+step, ...}
// strictly before end.  When end is nil or not after start the result is
// just {start}.
func Expand(start Clock, end *Clock, step time.Duration) []Clock {
	out := []Clock{start}
	if end == nil || *end <= start || step <= 0 {
		return out
	}
	for cur := start.Add(step); cur < *end; cur = cur.Add(step) {
		out = append(out, cur)
	}
	return out
}

// EndFor computes the end of a span of blocks slots starting at start.
// blocks below one count as one.
func EndFor(start Clock, blocks int, step time.Duration) Clock {
	if blocks < 1 {
		blocks = 1
	}
	return start.Add(time.Duration(blocks) * step)
}

// MaxBlocks is the largest block count whose span starting at start still
// ends by EndOfDay.
func MaxBlocks(start Clock, step time.Duration) int {
	secs := Clock(step / time.Second)
	if secs <= 0 || start >= EndOfDay {
		return 0
	}
	return int((EndOfDay - start) / secs)
}

// Set is an unordered collection of occupied slot-times.
type Set map[Clock]struct{}

// Add inserts every clock in cs.
func (s Set) Add(cs ...Clock) {
	for _, c := range cs {
		s[c] = struct{}{}
	}
}

// Has reports whether c is in the set.
func (s Set) Has(c Clock) bool {
	_, ok := s[c]
	return ok
}

// Intersects reports whether any clock in cs is in the set.
func (s Set) Intersects(cs []Clock) bool {
	for _, c := range cs {
		if s.Has(c) {
			return true
		}
	}
	return false
}

// Conflicts reports whether two expanded spans share a slot.
func Conflicts(a, b []Clock) bool {
	set := make(Set, len(a))
	set.Add(a...)
	return set.Intersects(b)
}

// Normalize sorts clocks ascending and drops duplicates.
func Normalize(cs []Clock) []Clock {
	if len(cs) == 0 {
		return []Clock{}
	}
	cp := append([]Clock(nil), cs...)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })
	out := cp[:1]
	for _, c := range cp[1:] {
		if c != out[len(out)-1] {
			out = append(out, c)
		}
	}
	return out
}

// ParseList parses a list of time strings, ignoring blanks, and returns
// them normalized.
func ParseList(raw []string) ([]Clock, error) {
	out := make([]Clock, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		c, err := ParseClock(r)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return Normalize(out), nil
}

// Strings renders clocks as HH:MM:SS strings.
func Strings(cs []Clock) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}
