package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/model"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/repository"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/slot"
)

// OverrideListLimit caps the staff override listing.
const OverrideListLimit = 90

// Availability is one free start time.
type Availability struct {
	Time  slot.Clock `json:"time"`
	Label string     `json:"label"`
}

// Calendar resolves bookable times from weekday templates and date
// overrides and subtracts the engine's occupancy.
type Calendar struct {
	engine *Engine
}

func NewCalendar(engine *Engine) *Calendar {
	return &Calendar{engine: engine}
}

// TimesForDate returns the scheduled start times on date before occupancy
// is removed.  A closed override yields none; an override otherwise
// replaces the weekday template.
func (c *Calendar) TimesForDate(ctx context.Context, date time.Time) ([]slot.Clock, error) {
	const op = "service.calendar.TimesForDate"

	repos := c.engine.repos
	key := date.Format(slot.DateLayout)

	o, err := repos.Overrides.GetByDate(ctx, key)
	switch {
	case err == nil:
		if o.Closed {
			return []slot.Clock{}, nil
		}
		return slot.Normalize(o.Times), nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	t, err := repos.Templates.Get(ctx, int(date.Weekday()))
	if errors.Is(err, repository.ErrNotFound) {
		return []slot.Clock{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !t.Enabled {
		return []slot.Clock{}, nil
	}
	return slot.Normalize(t.Times), nil
}

// AvailabilityForDate returns the free start times on rawDate, ascending.
// Stale pending bookings are swept first so they never block a slot.
func (c *Calendar) AvailabilityForDate(ctx context.Context, rawDate string) ([]Availability, error) {
	const op = "service.calendar.AvailabilityForDate"

	if rawDate == "" {
		return nil, validationf("date required")
	}
	date, err := slot.ParseDate(rawDate)
	if err != nil {
		return nil, validationf("invalid date %q", rawDate)
	}

	times, err := c.TimesForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return []Availability{}, nil
	}

	e := c.engine
	now := e.now()
	if _, err := e.SweepExpired(ctx, now); err != nil {
		e.log.Warn("sweep before availability failed", zap.Error(err))
	}
	cfg, err := e.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	occ, err := loadOccupancy(ctx, e.repos, queryFor(date.Format(slot.DateLayout), now, cfg, e.step))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	taken := occ.all()

	out := make([]Availability, 0, len(times))
	for _, t := range times {
		if taken.Has(t) {
			continue
		}
		out = append(out, Availability{Time: t, Label: t.Label()})
	}
	return out, nil
}

// Templates lists all weekday templates.
func (c *Calendar) Templates(ctx context.Context) ([]model.SlotTemplate, error) {
	out, err := c.engine.repos.Templates.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.calendar.Templates: %w", err)
	}
	return out, nil
}

// Hours lists the enabled weekday templates for public display.
func (c *Calendar) Hours(ctx context.Context) ([]model.SlotTemplate, error) {
	all, err := c.Templates(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.SlotTemplate, 0, len(all))
	for _, t := range all {
		if t.Enabled && len(t.Times) > 0 {
			out = append(out, t)
		}
	}
	return out, nil
}

// TemplateInput replaces one weekday template.  Times are trimmed,
// de-duplicated and sorted; Enabled defaults to true.
type TemplateInput struct {
	Weekday int      `json:"weekday"`
	Times   []string `json:"times"`
	Enabled *bool    `json:"is_enabled"`
}

func (c *Calendar) SaveTemplate(ctx context.Context, in TemplateInput) (*model.SlotTemplate, error) {
	const op = "service.calendar.SaveTemplate"

	if in.Weekday < 0 || in.Weekday > 6 {
		return nil, validationf("weekday must be 0-6")
	}
	times, err := slot.ParseList(in.Times)
	if err != nil {
		return nil, validationf("invalid times: %v", err)
	}
	enabled := true
	if in.Enabled != nil {
		enabled = *in.Enabled
	}
	t := model.SlotTemplate{Weekday: in.Weekday, Times: times, Enabled: enabled}
	if err := c.engine.repos.Templates.Upsert(ctx, t, c.engine.now()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	saved, err := c.engine.repos.Templates.Get(ctx, in.Weekday)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return saved, nil
}

// Overrides lists upcoming overrides from today, ordered by date.
func (c *Calendar) Overrides(ctx context.Context) ([]model.DateOverride, error) {
	from := c.engine.today().Format(slot.DateLayout)
	out, err := c.engine.repos.Overrides.ListFrom(ctx, from, OverrideListLimit)
	if err != nil {
		return nil, fmt.Errorf("service.calendar.Overrides: %w", err)
	}
	return out, nil
}

// OverrideInput replaces the schedule of one date.
type OverrideInput struct {
	Date   string
	Closed bool
	Times  []string
}

func (c *Calendar) SaveOverride(ctx context.Context, in OverrideInput) (*model.DateOverride, error) {
	const op = "service.calendar.SaveOverride"

	d, err := slot.ParseDate(in.Date)
	if err != nil {
		return nil, validationf("invalid date %q", in.Date)
	}
	times, err := slot.ParseList(in.Times)
	if err != nil {
		return nil, validationf("invalid times: %v", err)
	}
	o := model.DateOverride{Date: d.Format(slot.DateLayout), Closed: in.Closed, Times: times}
	id, err := c.engine.repos.Overrides.Upsert(ctx, o, c.engine.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	o.ID = id
	return &o, nil
}

func (c *Calendar) DeleteOverride(ctx context.Context, id uint64) error {
	err := c.engine.repos.Overrides.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return newError(KindNotFound, "override %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("service.calendar.DeleteOverride: %w", err)
	}
	return nil
}
