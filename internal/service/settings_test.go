package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/model"
)

func TestSettingsDefaults(t *testing.T) {
	h := newHarness()

	got, err := h.settings.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultScheduleSettings(), got)
}

func TestSettingsSaveClamps(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	got, err := h.settings.Save(ctx, map[string]int{
		model.SettingHoldMinutes:        99999,
		model.SettingPendingExpireHours: -5,
		"site_title":                    3,
	})
	require.NoError(t, err)
	assert.Equal(t, 1440, got.HoldMinutes)
	assert.Equal(t, 0, got.PendingExpireHours)

	assert.Equal(t, 1440, h.store.settings[model.SettingHoldMinutes])
	assert.Equal(t, 0, h.store.settings[model.SettingPendingExpireHours])
	assert.NotContains(t, h.store.settings, "site_title")

	got, err = h.settings.Save(ctx, map[string]int{model.SettingHoldMinutes: 1})
	require.NoError(t, err)
	assert.Equal(t, model.MinHoldMinutes, got.HoldMinutes)
	assert.Equal(t, 0, got.PendingExpireHours)
}

func TestSettingsClampOnRead(t *testing.T) {
	h := newHarness()
	h.store.settings[model.SettingPendingExpireHours] = 500

	got, err := h.settings.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.MaxPendingExpireHours, got.PendingExpireHours)
	assert.Equal(t, model.DefaultHoldMinutes, got.HoldMinutes)
}

func TestSettingsCacheDroppedOnSave(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.settings.Get(ctx)
	require.NoError(t, err)

	// Writes behind the service's back are not seen until the next Save.
	h.store.settings[model.SettingHoldMinutes] = 30
	got, err := h.settings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultHoldMinutes, got.HoldMinutes)

	got, err = h.settings.Save(ctx, map[string]int{model.SettingPendingExpireHours: 12})
	require.NoError(t, err)
	assert.Equal(t, 30, got.HoldMinutes)
	assert.Equal(t, 12, got.PendingExpireHours)

	res, err := h.engine.CreateHold(ctx, HoldRequest{Date: monday, Time: "09:00"})
	require.NoError(t, err)
	assert.Equal(t, 30, res.ExpiresInMinutes)
}
