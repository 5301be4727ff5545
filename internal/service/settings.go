package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/model"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/repository"
)

// SettingsService reads the schedule tunables and caches them until the
// next Save on this instance.
type SettingsService struct {
	repo repository.SettingsRepository
	now  func() time.Time

	mu     sync.Mutex
	cached *model.ScheduleSettings
}

func NewSettingsService(repo repository.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo, now: time.Now}
}

// Get returns the stored settings, falling back to defaults for missing
// keys.  Stored values are clamped to their bounds on read as well.
func (s *SettingsService) Get(ctx context.Context) (model.ScheduleSettings, error) {
	const op = "service.settings.Get"

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return *s.cached, nil
	}

	vals, err := s.repo.GetInts(ctx, model.SettingHoldMinutes, model.SettingPendingExpireHours)
	if err != nil {
		return model.ScheduleSettings{}, fmt.Errorf("%s: %w", op, err)
	}
	out := model.DefaultScheduleSettings()
	if v, ok := vals[model.SettingHoldMinutes]; ok {
		out.HoldMinutes, _ = model.ClampSetting(model.SettingHoldMinutes, v)
	}
	if v, ok := vals[model.SettingPendingExpireHours]; ok {
		out.PendingExpireHours, _ = model.ClampSetting(model.SettingPendingExpireHours, v)
	}
	s.cached = &out
	return out, nil
}

// Save clamps and stores every known key in values; unknown keys are
// ignored.  The cache is dropped and the fresh settings returned.
func (s *SettingsService) Save(ctx context.Context, values map[string]int) (model.ScheduleSettings, error) {
	const op = "service.settings.Save"

	s.mu.Lock()
	now := s.now()
	for key, raw := range values {
		v, ok := model.ClampSetting(key, raw)
		if !ok {
			continue
		}
		if err := s.repo.SetInt(ctx, key, v, now); err != nil {
			s.cached = nil
			s.mu.Unlock()
			return model.ScheduleSettings{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	s.cached = nil
	s.mu.Unlock()

	return s.Get(ctx)
}
