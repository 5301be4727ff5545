package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/model"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/slot"
)

func TestAvailabilityFromTemplate(t *testing.T) {
	h := newHarness()

	av, err := h.calendar.AvailabilityForDate(context.Background(), monday)
	require.NoError(t, err)
	require.Len(t, av, 5)
	assert.Equal(t, "09:00:00", av[0].Time.String())
	assert.Equal(t, "9:00 AM", av[0].Label)
	assert.Equal(t, "11:00 AM", av[4].Label)
}

func TestAvailabilityWithoutTemplate(t *testing.T) {
	h := newHarness()

	// 2025-06-03 is a Tuesday with no template.
	av, err := h.calendar.AvailabilityForDate(context.Background(), "2025-06-03")
	require.NoError(t, err)
	assert.Empty(t, av)

	tpl := h.store.templates[1]
	tpl.Enabled = false
	h.store.templates[1] = tpl
	av, err = h.calendar.AvailabilityForDate(context.Background(), monday)
	require.NoError(t, err)
	assert.Empty(t, av)
}

func TestAvailabilityClosedOverride(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.calendar.SaveOverride(ctx, OverrideInput{Date: monday, Closed: true, Times: []string{"09:00"}})
	require.NoError(t, err)

	av, err := h.calendar.AvailabilityForDate(ctx, monday)
	require.NoError(t, err)
	assert.NotNil(t, av)
	assert.Empty(t, av)
}

func TestAvailabilityOverrideReplacesTemplate(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	saved, err := h.calendar.SaveOverride(ctx, OverrideInput{Date: monday, Times: []string{"14:00", " 13:00", "14:00", ""}})
	require.NoError(t, err)
	assert.Equal(t, []string{"13:00:00", "14:00:00"}, slot.Strings(saved.Times))

	_, err = h.engine.CreateHold(ctx, HoldRequest{Date: monday, Time: "13:00"})
	require.NoError(t, err)

	assert.Equal(t, []string{"14:00:00"}, availableTimes(t, h, monday))
}

func TestAvailabilityValidation(t *testing.T) {
	h := newHarness()
	for _, raw := range []string{"", "06/02/2025", "2025-02-30"} {
		_, err := h.calendar.AvailabilityForDate(context.Background(), raw)
		assert.ErrorIs(t, err, ErrValidation, raw)
	}
}

func TestSaveTemplate(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	off := false
	saved, err := h.calendar.SaveTemplate(ctx, TemplateInput{Weekday: 6, Times: []string{"10:00", "09:00", "10:00"}, Enabled: &off})
	require.NoError(t, err)
	assert.Equal(t, 6, saved.Weekday)
	assert.False(t, saved.Enabled)
	assert.Equal(t, []string{"09:00:00", "10:00:00"}, slot.Strings(saved.Times))
	assert.Equal(t, epoch, saved.UpdatedAt)

	saved, err = h.calendar.SaveTemplate(ctx, TemplateInput{Weekday: 0, Times: []string{"12:00"}})
	require.NoError(t, err)
	assert.True(t, saved.Enabled)

	_, err = h.calendar.SaveTemplate(ctx, TemplateInput{Weekday: 7})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = h.calendar.SaveTemplate(ctx, TemplateInput{Weekday: 2, Times: []string{"9 o'clock"}})
	assert.ErrorIs(t, err, ErrValidation)

	all, err := h.calendar.Templates(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	hours, err := h.calendar.Hours(ctx)
	require.NoError(t, err)
	require.Len(t, hours, 2)
	assert.Equal(t, 0, hours[0].Weekday)
	assert.Equal(t, 1, hours[1].Weekday)
}

func TestOverrides(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	first, err := h.calendar.SaveOverride(ctx, OverrideInput{Date: "2025-07-04", Closed: true})
	require.NoError(t, err)
	_, err = h.calendar.SaveOverride(ctx, OverrideInput{Date: "2025-05-01", Closed: true})
	require.NoError(t, err)
	_, err = h.calendar.SaveOverride(ctx, OverrideInput{Date: monday, Times: []string{"08:00"}})
	require.NoError(t, err)

	again, err := h.calendar.SaveOverride(ctx, OverrideInput{Date: "2025-07-04", Times: []string{"10:00"}})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.False(t, again.Closed)

	list, err := h.calendar.Overrides(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, monday, list[0].Date)
	assert.Equal(t, "2025-07-04", list[1].Date)

	require.NoError(t, h.calendar.DeleteOverride(ctx, first.ID))
	err = h.calendar.DeleteOverride(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.calendar.SaveOverride(ctx, OverrideInput{Date: "tomorrow"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTimesForDate(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	d, err := slot.ParseDate(monday)
	require.NoError(t, err)
	times, err := h.calendar.TimesForDate(ctx, d)
	require.NoError(t, err)
	assert.Len(t, times, 5)

	h.store.overrides[99] = model.DateOverride{ID: 99, Date: monday, Times: []slot.Clock{slot.MustParseClock("15:00")}}
	times, err = h.calendar.TimesForDate(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, []string{"15:00:00"}, slot.Strings(times))
}
