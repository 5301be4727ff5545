package service

import (
	"context"
	"time"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/model"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/repository"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/slot"
)

// occupancy is the set of slot-times claimed on one date, split by source.
type occupancy struct {
	booked slot.Set
	held   slot.Set
}

func (o occupancy) all() slot.Set {
	out := make(slot.Set, len(o.booked)+len(o.held))
	for c := range o.booked {
		out.Add(c)
	}
	for c := range o.held {
		out.Add(c)
	}
	return out
}

// spanQuery describes one occupancy read.
type spanQuery struct {
	date   string
	now    time.Time
	window time.Duration // pending bookings older than this do not count; 0 = never stale
	step   time.Duration
	// exceptToken excludes the hold being redeemed.
	exceptToken string
}

// loadOccupancy reads live bookings and holds for q.date through repos.
// Whether the reads are locked depends only on the caller's transaction.
func loadOccupancy(ctx context.Context, repos repository.Repositories, q spanQuery) (occupancy, error) {
	occ := occupancy{booked: slot.Set{}, held: slot.Set{}}

	bookings, err := repos.Bookings.ListActive(ctx, q.date)
	if err != nil {
		return occ, err
	}
	for _, b := range bookings {
		if !b.Status.Live() || b.Stale(q.now, q.window) {
			continue
		}
		occ.booked.Add(b.Slots(q.step)...)
	}

	holds, err := repos.Holds.ListLive(ctx, q.date, q.now)
	if err != nil {
		return occ, err
	}
	for _, h := range holds {
		if !h.Live(q.now) || (q.exceptToken != "" && h.Token == q.exceptToken) {
			continue
		}
		occ.held.Add(h.Time)
	}
	return occ, nil
}

// checkSpan fails when any slot of span is taken.  It backs both the
// unlocked pre-check and the recheck under the day lock.
func checkSpan(ctx context.Context, repos repository.Repositories, q spanQuery, span []slot.Clock) error {
	occ, err := loadOccupancy(ctx, repos, q)
	if err != nil {
		return err
	}
	if occ.booked.Intersects(span) {
		return newError(KindSlotUnavailable, "slot already booked")
	}
	if occ.held.Intersects(span) {
		return newError(KindSlotHeld, "slot currently held")
	}
	return nil
}

func queryFor(date string, now time.Time, cfg model.ScheduleSettings, step time.Duration) spanQuery {
	return spanQuery{date: date, now: now, window: cfg.PendingWindow(), step: step}
}
