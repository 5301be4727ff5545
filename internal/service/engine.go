package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/model"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/repository"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/slot"
)

// Notifier delivers booking notifications.  Failures never affect the
// booking that triggered them.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// AuditSink records staff actions on bookings.
type AuditSink interface {
	Record(ctx context.Context, e model.AuditEntry) error
}

// SettingsProvider returns the current schedule settings.
type SettingsProvider interface {
	Get(ctx context.Context) (model.ScheduleSettings, error)
}

// TransitionPolicy decides whether bookings in a terminal status may be
// transitioned again.
type TransitionPolicy int

const (
	// GuardedTransitions rejects transitions out of terminal statuses.
	GuardedTransitions TransitionPolicy = iota
	// PermissiveTransitions applies every known action unconditionally.
	PermissiveTransitions
)

// ParseTransitionPolicy accepts "guarded" or "permissive".
func ParseTransitionPolicy(s string) (TransitionPolicy, error) {
	switch s {
	case "", "guarded":
		return GuardedTransitions, nil
	case "permissive":
		return PermissiveTransitions, nil
	}
	return GuardedTransitions, fmt.Errorf("unknown transition policy %q", s)
}

// Engine is the reservation engine: it turns requests into hold and
// booking claims, arbitrates them under the per-date lock and drives the
// booking lifecycle.
type Engine struct {
	repos    repository.Repositories
	tx       repository.TxManager
	settings SettingsProvider
	log      *zap.Logger

	notifier Notifier
	audit    AuditSink
	step     time.Duration
	now      func() time.Time
	loc      *time.Location
	policy   TransitionPolicy
	receipts bool

	sweepOnce sync.Once
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func WithNotifier(n Notifier) EngineOption {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

func WithAuditSink(a AuditSink) EngineOption {
	return func(e *Engine) {
		if a != nil {
			e.audit = a
		}
	}
}

// WithSlotStep sets the slot granularity.  Non-positive values are ignored.
func WithSlotStep(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.step = d
		}
	}
}

// WithLocation sets the business time zone used for "today".
func WithLocation(loc *time.Location) EngineOption {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func WithTransitionPolicy(p TransitionPolicy) EngineOption {
	return func(e *Engine) { e.policy = p }
}

// WithCustomerReceipts toggles the customer receipt sent when a request
// is submitted.  Staff notices are always sent.
func WithCustomerReceipts(on bool) EngineOption {
	return func(e *Engine) { e.receipts = on }
}

// NewEngine builds an engine over repos (bound to the connection pool) and
// tx for the transactional steps.
func NewEngine(repos repository.Repositories, tx repository.TxManager, settings SettingsProvider, log *zap.Logger, opts ...EngineOption) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		repos:    repos,
		tx:       tx,
		settings: settings,
		log:      log,
		notifier: nopNotifier{},
		audit:    nopAudit{},
		step:     slot.DefaultStep,
		now:      time.Now,
		loc:      time.UTC,
		receipts: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SlotStep returns the configured slot granularity.
func (e *Engine) SlotStep() time.Duration { return e.step }

// SweepExpired moves pending bookings older than the expiry window to
// expired and returns how many changed.  Running it twice with the same
// now changes nothing the second time.
func (e *Engine) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	const op = "service.engine.SweepExpired"

	cfg, err := e.settings.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	window := cfg.PendingWindow()
	if window <= 0 {
		return 0, nil
	}
	n, err := e.repos.Bookings.ExpirePending(ctx, now.Add(-window), now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		e.log.Info("expired stale pending bookings", zap.Int64("count", n))
	}
	return n, nil
}

// CollectHolds deletes every expired hold.
func (e *Engine) CollectHolds(ctx context.Context, now time.Time) (int64, error) {
	n, err := e.repos.Holds.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("service.engine.CollectHolds: %w", err)
	}
	return n, nil
}

// sweepFirstUse runs the stale-pending sweep once per engine.
func (e *Engine) sweepFirstUse(ctx context.Context) {
	e.sweepOnce.Do(func() {
		if _, err := e.SweepExpired(ctx, e.now()); err != nil {
			e.log.Warn("initial sweep failed", zap.Error(err))
		}
	})
}

// inTx runs fn in a transaction, retrying once when the store reports a
// lock-wait timeout or deadlock.  A second transient failure is reported
// as slot_unavailable.
func (e *Engine) inTx(ctx context.Context, op string, fn func(ctx context.Context, repos repository.Repositories) error) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = e.tx.WithTx(ctx, fn)
		if err == nil || !repository.IsTransient(err) {
			return err
		}
		e.log.Warn("transient transaction failure", zap.String("op", op), zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return &Error{Kind: KindSlotUnavailable, Message: "slot is busy, try again", Err: err}
}

func (e *Engine) today() time.Time {
	n := e.now().In(e.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

func (e *Engine) notify(ctx context.Context, n model.Notification) {
	if err := e.notifier.Notify(ctx, n); err != nil {
		e.log.Warn("notification failed",
			zap.String("event", n.Event),
			zap.String("audience", n.Audience),
			zap.Uint64("booking_id", n.Booking.ID),
			zap.Error(err))
	}
}

func (e *Engine) record(ctx context.Context, entry model.AuditEntry) {
	if err := e.audit.Record(ctx, entry); err != nil {
		e.log.Warn("audit record failed",
			zap.String("action", entry.Action),
			zap.Uint64("entity_id", entry.EntityID),
			zap.Error(err))
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, model.Notification) error { return nil }

type nopAudit struct{}

func (nopAudit) Record(context.Context, model.AuditEntry) error { return nil }

// RepositoryAuditSink stores audit entries through an AuditRepository.
type RepositoryAuditSink struct {
	repo repository.AuditRepository
	now  func() time.Time
}

func NewRepositoryAuditSink(repo repository.AuditRepository) *RepositoryAuditSink {
	return &RepositoryAuditSink{repo: repo, now: time.Now}
}

func (s *RepositoryAuditSink) Record(ctx context.Context, e model.AuditEntry) error {
	return s.repo.Insert(ctx, e, s.now())
}
