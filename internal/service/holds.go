package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/model"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/repository"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/slot"
)

// HoldRequest asks for a temporary claim on one slot.  Minutes <= 0 uses
// the configured hold duration.
type HoldRequest struct {
	Date    string `json:"date"`
	Time    string `json:"time"`
	Minutes int    `json:"-"`
}

// HoldResult is returned to the customer; the token is the only way to
// redeem the hold.
type HoldResult struct {
	Token            string    `json:"hold_token"`
	ExpiresAt        time.Time `json:"expires_at"`
	ExpiresInMinutes int       `json:"expires_in_minutes"`
}

// CreateHold claims one slot for a limited time.  It fails with
// slot_held when another live hold covers the slot and slot_unavailable
// when a live booking does.
func (e *Engine) CreateHold(ctx context.Context, req HoldRequest) (*HoldResult, error) {
	const op = "service.engine.CreateHold"

	date, start, err := parseSlotRef(req.Date, req.Time)
	if err != nil {
		return nil, err
	}
	cfg, err := e.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	life := cfg.HoldDuration()
	if req.Minutes > 0 {
		life = time.Duration(req.Minutes) * time.Minute
	}
	if life < time.Minute {
		life = time.Minute
	}

	var hold model.Hold
	err = e.inTx(ctx, op, func(ctx context.Context, repos repository.Repositories) error {
		now := e.now()
		if _, err := repos.Holds.DeleteExpired(ctx, now); err != nil {
			return err
		}
		if err := repos.DayLocks.Lock(ctx, date); err != nil {
			return err
		}
		if _, err := repos.Holds.FindLiveAt(ctx, date, start, now); err == nil {
			return newError(KindSlotHeld, "slot already on hold")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err := checkSpan(ctx, repos, queryFor(date, now, cfg, e.step), []slot.Clock{start}); err != nil {
			return err
		}

		token, err := repository.NewHoldToken()
		if err != nil {
			return err
		}
		hold = model.Hold{
			Date:      date,
			Time:      start,
			Token:     token,
			ExpiresAt: now.Add(life),
			CreatedAt: now,
		}
		return repos.Holds.Create(ctx, &hold)
	})
	if err != nil {
		return nil, wrapOp(op, err)
	}

	e.log.Info("hold created",
		zap.String("date", date),
		zap.String("time", start.String()),
		zap.Time("expires_at", hold.ExpiresAt))
	return &HoldResult{Token: hold.Token, ExpiresAt: hold.ExpiresAt, ExpiresInMinutes: int(life / time.Minute)}, nil
}

// parseSlotRef validates a date and a start time.  The start must be a
// time of day strictly before midnight.
func parseSlotRef(rawDate, rawTime string) (string, slot.Clock, error) {
	rawDate = strings.TrimSpace(rawDate)
	rawTime = strings.TrimSpace(rawTime)
	if rawDate == "" || rawTime == "" {
		return "", 0, validationf("date and time required")
	}
	d, err := slot.ParseDate(rawDate)
	if err != nil {
		return "", 0, validationf("invalid date %q", rawDate)
	}
	start, err := slot.ParseClock(rawTime)
	if err != nil || start >= slot.EndOfDay {
		return "", 0, validationf("invalid time %q", rawTime)
	}
	return d.Format(slot.DateLayout), start, nil
}

// wrapOp prefixes infrastructure errors with op and leaves service errors
// untouched so handlers see their message directly.
func wrapOp(op string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
