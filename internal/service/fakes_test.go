package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/model"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/repository"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/slot"
)

// memStore is an in-memory stand-in for MySQL.  Transactions are fully
// serialised by txMu, which is stricter than the per-date lock but gives
// the same guarantee for a single date.  A failed transaction restores
// the snapshot taken at its start.
type memStore struct {
	txMu sync.Mutex

	mu        sync.Mutex
	nextID    uint64
	templates map[int]model.SlotTemplate
	overrides map[uint64]model.DateOverride
	settings  map[string]int
	holds     map[uint64]model.Hold
	bookings  map[uint64]model.Booking
	audit     []model.AuditRecord

	transientFailures int
	lockedDates       []string
}

func newMemStore() *memStore {
	return &memStore{
		templates: map[int]model.SlotTemplate{},
		overrides: map[uint64]model.DateOverride{},
		settings:  map[string]int{},
		holds:     map[uint64]model.Hold{},
		bookings:  map[uint64]model.Booking{},
	}
}

func (s *memStore) repos() repository.Repositories {
	return repository.Repositories{
		Templates: memTemplates{s},
		Overrides: memOverrides{s},
		Settings:  memSettings{s},
		Holds:     memHolds{s},
		Bookings:  memBookings{s},
		DayLocks:  memDayLocks{s},
		Audit:     memAudit{s},
	}
}

func (s *memStore) WithTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	if s.transientFailures > 0 {
		s.transientFailures--
		s.mu.Unlock()
		return fmt.Errorf("%w: Deadlock found when trying to get lock", repository.ErrTransient)
	}
	holds := cloneMap(s.holds)
	bookings := cloneMap(s.bookings)
	s.mu.Unlock()

	if err := fn(ctx, s.repos()); err != nil {
		s.mu.Lock()
		s.holds, s.bookings = holds, bookings
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) booking(id uint64) model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings[id]
}

func (s *memStore) holdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.holds)
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type memTemplates struct{ s *memStore }

func (r memTemplates) List(context.Context) ([]model.SlotTemplate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.SlotTemplate, 0, len(r.s.templates))
	for _, t := range r.s.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Weekday < out[j].Weekday })
	return out, nil
}

func (r memTemplates) Get(_ context.Context, weekday int) (*model.SlotTemplate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.templates[weekday]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r memTemplates) Upsert(_ context.Context, t model.SlotTemplate, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.UpdatedAt = now
	r.s.templates[t.Weekday] = t
	return nil
}

type memOverrides struct{ s *memStore }

func (r memOverrides) GetByDate(_ context.Context, date string) (*model.DateOverride, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.overrides {
		if o.Date == date {
			return &o, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memOverrides) ListFrom(_ context.Context, from string, limit int) ([]model.DateOverride, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.DateOverride, 0)
	for _, o := range r.s.overrides {
		if o.Date >= from {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memOverrides) Upsert(_ context.Context, o model.DateOverride, _ time.Time) (uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, cur := range r.s.overrides {
		if cur.Date == o.Date {
			o.ID = id
			r.s.overrides[id] = o
			return id, nil
		}
	}
	o.ID = r.s.id()
	r.s.overrides[o.ID] = o
	return o.ID, nil
}

func (r memOverrides) Delete(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.overrides[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.overrides, id)
	return nil
}

type memSettings struct{ s *memStore }

func (r memSettings) GetInts(_ context.Context, keys ...string) (map[string]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[string]int{}
	for _, k := range keys {
		if v, ok := r.s.settings[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (r memSettings) SetInt(_ context.Context, key string, value int, _ time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.settings[key] = value
	return nil
}

type memHolds struct{ s *memStore }

func (r memHolds) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, h := range r.s.holds {
		if !h.Live(now) {
			delete(r.s.holds, id)
			n++
		}
	}
	return n, nil
}

func (r memHolds) DeleteExpiredAt(_ context.Context, date string, at slot.Clock, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, h := range r.s.holds {
		if h.Date == date && h.Time == at && !h.Live(now) {
			delete(r.s.holds, id)
			n++
		}
	}
	return n, nil
}

func (r memHolds) ListLive(_ context.Context, date string, now time.Time) ([]model.Hold, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Hold, 0)
	for _, h := range r.s.holds {
		if h.Date == date && h.Live(now) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r memHolds) FindLiveAt(_ context.Context, date string, at slot.Clock, now time.Time) (*model.Hold, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, h := range r.s.holds {
		if h.Date == date && h.Time == at && h.Live(now) {
			return &h, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memHolds) FindLiveByToken(_ context.Context, token string, now time.Time) (*model.Hold, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, h := range r.s.holds {
		if h.Token == token && h.Live(now) {
			return &h, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memHolds) Create(_ context.Context, h *model.Hold) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h.ID = r.s.id()
	r.s.holds[h.ID] = *h
	return nil
}

func (r memHolds) Delete(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.holds, id)
	return nil
}

type memBookings struct{ s *memStore }

func (r memBookings) Create(_ context.Context, b *model.Booking) (uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *b
	cp.ID = r.s.id()
	r.s.bookings[cp.ID] = cp
	return cp.ID, nil
}

func (r memBookings) GetByID(_ context.Context, id uint64, _ bool) (*model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (r memBookings) ListActive(_ context.Context, date string) ([]model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Booking, 0)
	for _, b := range r.s.bookings {
		if b.Date == date && b.Status.Live() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r memBookings) List(_ context.Context, status model.BookingStatus, limit int) ([]model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Booking, 0)
	for _, b := range r.s.bookings {
		if status == "" || b.Status == status {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memBookings) UpdateStatus(_ context.Context, id uint64, status model.BookingStatus, notes *string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.Status, b.AdminNotes, b.UpdatedAt = status, notes, now
	r.s.bookings[id] = b
	return nil
}

func (r memBookings) ResetCreatedAt(_ context.Context, id uint64, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.CreatedAt, b.UpdatedAt = now, now
	r.s.bookings[id] = b
	return nil
}

func (r memBookings) ExpirePending(_ context.Context, cutoff, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, b := range r.s.bookings {
		if b.Status == model.StatusPendingConfirmation && b.CreatedAt.Before(cutoff) {
			b.Status, b.UpdatedAt = model.StatusExpired, now
			r.s.bookings[id] = b
			n++
		}
	}
	return n, nil
}

func (r memBookings) ExpirePendingOn(_ context.Context, date string, cutoff, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, b := range r.s.bookings {
		if b.Date == date && b.Status == model.StatusPendingConfirmation && b.CreatedAt.Before(cutoff) {
			b.Status, b.UpdatedAt = model.StatusExpired, now
			r.s.bookings[id] = b
			n++
		}
	}
	return n, nil
}

func (r memBookings) Stats(_ context.Context, today, weekStart string) (model.BookingStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var s model.BookingStats
	for _, b := range r.s.bookings {
		switch {
		case b.Status == model.StatusPendingConfirmation:
			s.PendingConfirmation++
		case b.Status == model.StatusConfirmed:
			if b.Date == today {
				s.ConfirmedToday++
			}
			if b.Date >= weekStart {
				s.ConfirmedWeek++
			}
		}
	}
	s.NewRequests = s.PendingConfirmation
	return s, nil
}

type memDayLocks struct{ s *memStore }

func (r memDayLocks) Lock(_ context.Context, date string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.lockedDates = append(r.s.lockedDates, date)
	return nil
}

type memAudit struct{ s *memStore }

func (r memAudit) Insert(_ context.Context, e model.AuditEntry, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit = append(r.s.audit, model.AuditRecord{ID: r.s.id(), AuditEntry: e, CreatedAt: at})
	return nil
}

func (r memAudit) Recent(_ context.Context, limit int) ([]model.AuditRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.AuditRecord, 0, len(r.s.audit))
	for i := len(r.s.audit) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.s.audit[i])
	}
	return out, nil
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recordingNotifier collects notifications and optionally fails.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg model.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *recordingNotifier) all() []model.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.Notification(nil), n.sent...)
}

// harness wires an engine and calendar over a memStore.
type harness struct {
	store    *memStore
	clock    *fakeClock
	notifier *recordingNotifier
	settings *SettingsService
	engine   *Engine
	calendar *Calendar
}

// monday is the date most tests book on; the clock starts the day before.
const monday = "2025-06-02"

var epoch = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func newHarness(opts ...EngineOption) *harness {
	store := newMemStore()
	clock := &fakeClock{t: epoch}
	notifier := &recordingNotifier{}
	settings := NewSettingsService(store.repos().Settings)
	settings.now = clock.Now

	all := append([]EngineOption{
		WithClock(clock.Now),
		WithNotifier(notifier),
		WithAuditSink(&RepositoryAuditSink{repo: store.repos().Audit, now: clock.Now}),
	}, opts...)
	engine := NewEngine(store.repos(), store, settings, zap.NewNop(), all...)

	store.templates[1] = model.SlotTemplate{
		Weekday: 1,
		Enabled: true,
		Times: []slot.Clock{
			slot.MustParseClock("09:00"), slot.MustParseClock("09:30"),
			slot.MustParseClock("10:00"), slot.MustParseClock("10:30"),
			slot.MustParseClock("11:00"),
		},
	}
	return &harness{
		store:    store,
		clock:    clock,
		notifier: notifier,
		settings: settings,
		engine:   engine,
		calendar: NewCalendar(engine),
	}
}

func bookingAt(date, at string) BookingRequest {
	return BookingRequest{
		Date:         date,
		Time:         at,
		CustomerName: "Ana Lima",
		Phone:        "336-555-0101",
		Email:        "ana@example.com",
		Services:     []string{"bath", " ", "nails"},
	}
}
