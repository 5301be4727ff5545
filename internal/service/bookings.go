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

// MaxListLimit caps ListBookings.
const MaxListLimit = 200

// Audit entity name for booking actions.
const bookingEntity = "booking_requests"

// BookingRequest is a booking submission.  EndTime wins over
// DurationBlocks; with neither the booking spans one slot.
type BookingRequest struct {
	Date           string   `json:"date"`
	Time           string   `json:"time"`
	EndTime        string   `json:"end_time"`
	DurationBlocks int      `json:"duration_blocks"`
	HoldToken      string   `json:"hold_token"`
	CustomerName   string   `json:"customer_name"`
	Phone          string   `json:"phone"`
	Email          string   `json:"email"`
	DogName        *string  `json:"dog_name"`
	DogNotes       *string  `json:"dog_notes"`
	Services       []string `json:"services"`
	AdminNotes     *string  `json:"admin_notes"`

	// Staff-only fields, never bound from public input.
	AutoConfirm bool   `json:"-"`
	ActorID     uint64 `json:"-"`
}

var transitions = map[string]model.BookingStatus{
	"confirm": model.StatusConfirmed,
	"decline": model.StatusDeclined,
	"cancel":  model.StatusCancelled,
}

// CreateBooking validates req, checks the whole span against live
// bookings and holds and inserts a pending booking.  A hold token, when
// given, must belong to a live hold on the requested slot; it is consumed
// by the booking.
func (e *Engine) CreateBooking(ctx context.Context, req BookingRequest) (*model.Booking, error) {
	const op = "service.engine.CreateBooking"

	e.sweepFirstUse(ctx)

	date, start, end, err := e.parseSpan(req)
	if err != nil {
		return nil, err
	}
	if err := validateCustomer(&req); err != nil {
		return nil, err
	}
	cfg, err := e.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	span := slot.Expand(start, &end, e.step)
	token := strings.TrimSpace(req.HoldToken)

	if token != "" {
		if _, err := redeemable(ctx, e.repos, token, date, start, e.now()); err != nil {
			return nil, wrapOp(op, err)
		}
	}
	pre := queryFor(date, e.now(), cfg, e.step)
	pre.exceptToken = token
	if err := checkSpan(ctx, e.repos, pre, span); err != nil {
		return nil, wrapOp(op, err)
	}

	status := model.StatusPendingConfirmation
	if req.AutoConfirm {
		status = model.StatusConfirmed
	}

	var booking *model.Booking
	err = e.inTx(ctx, op, func(ctx context.Context, repos repository.Repositories) error {
		now := e.now()
		if _, err := repos.Holds.DeleteExpiredAt(ctx, date, start, now); err != nil {
			return err
		}
		if err := repos.DayLocks.Lock(ctx, date); err != nil {
			return err
		}
		if window := cfg.PendingWindow(); window > 0 {
			if _, err := repos.Bookings.ExpirePendingOn(ctx, date, now.Add(-window), now); err != nil {
				return err
			}
		}

		var redeemed *model.Hold
		if token != "" {
			h, err := redeemable(ctx, repos, token, date, start, now)
			if err != nil {
				return err
			}
			redeemed = h
		} else {
			_, err := repos.Holds.FindLiveAt(ctx, date, start, now)
			if err == nil {
				return newError(KindSlotHeld, "slot currently held")
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		}

		q := queryFor(date, now, cfg, e.step)
		q.exceptToken = token
		if err := checkSpan(ctx, repos, q, span); err != nil {
			return err
		}

		endCopy := end
		b := &model.Booking{
			Date:         date,
			Time:         start,
			EndTime:      &endCopy,
			CustomerName: req.CustomerName,
			Phone:        req.Phone,
			Email:        req.Email,
			DogName:      req.DogName,
			DogNotes:     req.DogNotes,
			Services:     cleanServices(req.Services),
			AdminNotes:   req.AdminNotes,
			Status:       status,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		id, err := repos.Bookings.Create(ctx, b)
		if err != nil {
			return err
		}
		if redeemed != nil {
			if err := repos.Holds.Delete(ctx, redeemed.ID); err != nil {
				return err
			}
		}
		booking, err = repos.Bookings.GetByID(ctx, id, false)
		return err
	})
	if err != nil {
		return nil, wrapOp(op, err)
	}

	e.log.Info("booking created",
		zap.Uint64("booking_id", booking.ID),
		zap.String("date", booking.Date),
		zap.String("time", booking.Time.String()),
		zap.String("status", string(booking.Status)),
		zap.Bool("redeemed_hold", token != ""))

	if req.ActorID != 0 {
		e.record(ctx, model.AuditEntry{ActorID: req.ActorID, Action: "booking_create", Entity: bookingEntity, EntityID: booking.ID})
	}
	e.notifyCreated(ctx, *booking)
	return booking, nil
}

// Transition applies a staff action (confirm, decline, cancel) to a
// booking and overwrites its admin notes.  A pending booking past the
// expiry window is expired first.  Moving a booking back into a live
// status requires its slots to be free.
func (e *Engine) Transition(ctx context.Context, id uint64, action string, notes *string, actorID uint64) (*model.Booking, error) {
	const op = "service.engine.Transition"

	e.sweepFirstUse(ctx)

	next, ok := transitions[strings.ToLower(strings.TrimSpace(action))]
	if !ok {
		return nil, newError(KindUnknownAction, "unknown action %q", action)
	}
	cfg, err := e.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		before, after *model.Booking
		lapsed        bool
	)
	err = e.inTx(ctx, op, func(ctx context.Context, repos repository.Repositories) error {
		lapsed = false
		now := e.now()
		b, expired, err := e.lockBooking(ctx, repos, id, cfg.PendingWindow(), now)
		if err != nil {
			return err
		}
		if expired && e.policy == GuardedTransitions {
			lapsed = true
			return nil
		}
		if e.policy == GuardedTransitions && b.Status.Terminal() {
			return newError(KindInvalidState, "booking is already %s", b.Status)
		}
		if next.Live() && !b.Status.Live() {
			if err := checkSpan(ctx, repos, queryFor(b.Date, now, cfg, e.step), b.Slots(e.step)); err != nil {
				return err
			}
		}
		if err := repos.Bookings.UpdateStatus(ctx, id, next, notes, now); err != nil {
			return err
		}
		before = b
		after, err = repos.Bookings.GetByID(ctx, id, false)
		return err
	})
	if err != nil {
		return nil, wrapOp(op, err)
	}
	if lapsed {
		return nil, newError(KindInvalidState, "booking %d has expired", id)
	}

	e.log.Info("booking transitioned",
		zap.Uint64("booking_id", id),
		zap.String("from", string(before.Status)),
		zap.String("to", string(after.Status)),
		zap.Uint64("actor_id", actorID))
	e.record(ctx, model.AuditEntry{
		ActorID:      actorID,
		Action:       "booking_" + strings.ToLower(strings.TrimSpace(action)),
		Entity:       bookingEntity,
		EntityID:     id,
		BeforeStatus: before.Status,
	})
	if next == model.StatusConfirmed {
		e.notifyConfirmed(ctx, *after)
	}
	return after, nil
}

// ExtendHold restarts the pending clock of a pending booking.
func (e *Engine) ExtendHold(ctx context.Context, id uint64, actorID uint64) (*model.Booking, error) {
	const op = "service.engine.ExtendHold"

	after, err := e.changePending(ctx, op, id, "extended", func(ctx context.Context, repos repository.Repositories, b *model.Booking, now time.Time) error {
		return repos.Bookings.ResetCreatedAt(ctx, b.ID, now)
	})
	if err != nil {
		return nil, err
	}
	e.record(ctx, model.AuditEntry{
		ActorID: actorID, Action: "booking_extend", Entity: bookingEntity, EntityID: id,
		BeforeStatus: model.StatusPendingConfirmation,
	})
	return after, nil
}

// ReleaseHold cancels a pending booking, freeing its slots.
func (e *Engine) ReleaseHold(ctx context.Context, id uint64, notes *string, actorID uint64) (*model.Booking, error) {
	const op = "service.engine.ReleaseHold"

	after, err := e.changePending(ctx, op, id, "released", func(ctx context.Context, repos repository.Repositories, b *model.Booking, now time.Time) error {
		return repos.Bookings.UpdateStatus(ctx, b.ID, model.StatusCancelled, notes, now)
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("pending booking released", zap.Uint64("booking_id", id), zap.Uint64("actor_id", actorID))
	e.record(ctx, model.AuditEntry{
		ActorID: actorID, Action: "booking_release", Entity: bookingEntity, EntityID: id,
		BeforeStatus: model.StatusPendingConfirmation,
	})
	return after, nil
}

// changePending runs apply on a locked pending booking and returns the
// booking as stored afterwards.  A booking that lapsed past the expiry
// window is committed as expired and reported as invalid_state.
func (e *Engine) changePending(ctx context.Context, op string, id uint64, verb string,
	apply func(ctx context.Context, repos repository.Repositories, b *model.Booking, now time.Time) error) (*model.Booking, error) {
	cfg, err := e.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		after  *model.Booking
		lapsed bool
	)
	err = e.inTx(ctx, op, func(ctx context.Context, repos repository.Repositories) error {
		lapsed = false
		now := e.now()
		b, expired, err := e.lockBooking(ctx, repos, id, cfg.PendingWindow(), now)
		if err != nil {
			return err
		}
		if expired {
			lapsed = true
			return nil
		}
		if b.Status != model.StatusPendingConfirmation {
			return newError(KindInvalidState, "only pending bookings can be %s", verb)
		}
		if err := apply(ctx, repos, b, now); err != nil {
			return err
		}
		after, err = repos.Bookings.GetByID(ctx, id, false)
		return err
	})
	if err != nil {
		return nil, wrapOp(op, err)
	}
	if lapsed {
		return nil, newError(KindInvalidState, "booking %d has expired", id)
	}
	return after, nil
}

// lockBooking takes the day lock of booking id, then its row lock, in the
// same order as CreateBooking.  A pending booking past window is expired
// on the spot, together with any other stale pending booking that day;
// expired reports that.
func (e *Engine) lockBooking(ctx context.Context, repos repository.Repositories, id uint64, window time.Duration, now time.Time) (b *model.Booking, expired bool, err error) {
	peek, err := repos.Bookings.GetByID(ctx, id, false)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, newError(KindNotFound, "booking %d not found", id)
	}
	if err != nil {
		return nil, false, err
	}
	if err := repos.DayLocks.Lock(ctx, peek.Date); err != nil {
		return nil, false, err
	}
	b, err = repos.Bookings.GetByID(ctx, id, true)
	if err != nil {
		return nil, false, err
	}
	if !b.Stale(now, window) {
		return b, false, nil
	}
	if _, err := repos.Bookings.ExpirePendingOn(ctx, b.Date, now.Add(-window), now); err != nil {
		return nil, false, err
	}
	b.Status, b.UpdatedAt = model.StatusExpired, now
	e.log.Info("stale pending booking expired", zap.Uint64("booking_id", id))
	return b, true, nil
}

// GetBooking returns one booking or not_found.
func (e *Engine) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := e.repos.Bookings.GetByID(ctx, id, false)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(KindNotFound, "booking %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("service.engine.GetBooking: %w", err)
	}
	return b, nil
}

// ListBookings returns bookings newest first.  status may be empty;
// limit is clamped to [1, MaxListLimit] with zero meaning the maximum.
func (e *Engine) ListBookings(ctx context.Context, status string, limit int) ([]model.Booking, error) {
	const op = "service.engine.ListBookings"

	st := model.BookingStatus(strings.TrimSpace(status))
	if st != "" && !st.Valid() {
		return nil, validationf("unknown status %q", status)
	}
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	if _, err := e.SweepExpired(ctx, e.now()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := e.repos.Bookings.List(ctx, st, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// Stats summarises the ledger: pending requests, confirmed bookings today
// and confirmed bookings from Monday of the current week onwards.
func (e *Engine) Stats(ctx context.Context) (model.BookingStats, error) {
	const op = "service.engine.Stats"

	if _, err := e.SweepExpired(ctx, e.now()); err != nil {
		return model.BookingStats{}, fmt.Errorf("%s: %w", op, err)
	}
	today := e.today()
	offset := (int(today.Weekday()) + 6) % 7
	weekStart := today.AddDate(0, 0, -offset)
	s, err := e.repos.Bookings.Stats(ctx, today.Format(slot.DateLayout), weekStart.Format(slot.DateLayout))
	if err != nil {
		return s, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

// parseSpan resolves the date, first slot and exclusive end of req.
func (e *Engine) parseSpan(req BookingRequest) (string, slot.Clock, slot.Clock, error) {
	date, start, err := parseSlotRef(req.Date, req.Time)
	if err != nil {
		return "", 0, 0, err
	}
	var end slot.Clock
	if raw := strings.TrimSpace(req.EndTime); raw != "" {
		end, err = slot.ParseClock(raw)
		if err != nil {
			return "", 0, 0, validationf("invalid end_time %q", req.EndTime)
		}
	} else {
		if limit := slot.MaxBlocks(start, e.step); req.DurationBlocks > limit {
			return "", 0, 0, validationf("duration_blocks must be at most %d from %s", limit, start.Label())
		}
		end = slot.EndFor(start, req.DurationBlocks, e.step)
		if end <= start {
			return "", 0, 0, validationf("invalid duration_blocks %d", req.DurationBlocks)
		}
	}
	if end > slot.EndOfDay {
		return "", 0, 0, validationf("appointment must end by midnight")
	}
	return date, start, end, nil
}

// redeemable returns the live hold behind token.  A missing or expired
// hold is hold_expired; a hold on another slot is a validation error.
func redeemable(ctx context.Context, repos repository.Repositories, token, date string, start slot.Clock, now time.Time) (*model.Hold, error) {
	h, err := repos.Holds.FindLiveByToken(ctx, token, now)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(KindHoldExpired, "hold expired")
	}
	if err != nil {
		return nil, err
	}
	if h.Date != date || h.Time != start {
		return nil, validationf("hold token is for %s %s", h.Date, h.Time.Label())
	}
	return h, nil
}

func validateCustomer(req *BookingRequest) error {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	for _, f := range []struct{ name, v string }{
		{"customer_name", req.CustomerName},
		{"phone", req.Phone},
		{"email", req.Email},
	} {
		if f.v == "" {
			return validationf("missing field: %s", f.name)
		}
	}
	if !strings.Contains(req.Email, "@") {
		return validationf("invalid email")
	}
	return nil
}

func cleanServices(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (e *Engine) notifyCreated(ctx context.Context, b model.Booking) {
	e.notify(ctx, model.Notification{
		Event:    model.EventBookingRequested,
		Audience: model.AudienceStaff,
		Subject:  "New booking request",
		Booking:  b,
	})
	if e.receipts && b.Status == model.StatusPendingConfirmation {
		e.notify(ctx, model.Notification{
			Event:          model.EventBookingRequested,
			Audience:       model.AudienceCustomer,
			RecipientEmail: b.Email,
			RecipientName:  b.CustomerName,
			Subject:        "We received your request",
			Booking:        b,
		})
	}
	if b.Status == model.StatusConfirmed {
		e.notifyConfirmed(ctx, b)
	}
}

func (e *Engine) notifyConfirmed(ctx context.Context, b model.Booking) {
	e.notify(ctx, model.Notification{
		Event:          model.EventBookingConfirmed,
		Audience:       model.AudienceCustomer,
		RecipientEmail: b.Email,
		RecipientName:  b.CustomerName,
		Subject:        "Booking confirmed",
		Booking:        b,
	})
}
