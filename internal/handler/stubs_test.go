package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/model"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/service"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/slot"
)

type stubEngine struct {
	holdReq    service.HoldRequest
	bookingReq service.BookingRequest
	action     string
	notes      *string
	actor      uint64
	id         uint64
	status     string
	limit      int
	err        error
}

func (s *stubEngine) CreateHold(_ context.Context, req service.HoldRequest) (*service.HoldResult, error) {
	s.holdReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &service.HoldResult{
		Token:            "abc123",
		ExpiresAt:        time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		ExpiresInMinutes: 60,
	}, nil
}

func (s *stubEngine) booking(id uint64, st model.BookingStatus) *model.Booking {
	return &model.Booking{ID: id, Date: "2025-06-02", Time: slot.MustParseClock("09:00"), Status: st, Services: []string{}}
}

func (s *stubEngine) CreateBooking(_ context.Context, req service.BookingRequest) (*model.Booking, error) {
	s.bookingReq = req
	if s.err != nil {
		return nil, s.err
	}
	st := model.StatusPendingConfirmation
	if req.AutoConfirm {
		st = model.StatusConfirmed
	}
	return s.booking(1, st), nil
}

func (s *stubEngine) Transition(_ context.Context, id uint64, action string, notes *string, actorID uint64) (*model.Booking, error) {
	s.id, s.action, s.notes, s.actor = id, action, notes, actorID
	if s.err != nil {
		return nil, s.err
	}
	return s.booking(id, model.StatusConfirmed), nil
}

func (s *stubEngine) ExtendHold(_ context.Context, id uint64, actorID uint64) (*model.Booking, error) {
	s.id, s.actor = id, actorID
	if s.err != nil {
		return nil, s.err
	}
	return s.booking(id, model.StatusPendingConfirmation), nil
}

func (s *stubEngine) ReleaseHold(_ context.Context, id uint64, notes *string, actorID uint64) (*model.Booking, error) {
	s.id, s.notes, s.actor = id, notes, actorID
	if s.err != nil {
		return nil, s.err
	}
	return s.booking(id, model.StatusCancelled), nil
}

func (s *stubEngine) GetBooking(_ context.Context, id uint64) (*model.Booking, error) {
	s.id = id
	if s.err != nil {
		return nil, s.err
	}
	return s.booking(id, model.StatusPendingConfirmation), nil
}

func (s *stubEngine) ListBookings(_ context.Context, status string, limit int) ([]model.Booking, error) {
	s.status, s.limit = status, limit
	if s.err != nil {
		return nil, s.err
	}
	return []model.Booking{*s.booking(2, model.StatusConfirmed), *s.booking(1, model.StatusPendingConfirmation)}, nil
}

func (s *stubEngine) Stats(context.Context) (model.BookingStats, error) {
	return model.BookingStats{NewRequests: 1, PendingConfirmation: 1, ConfirmedToday: 0, ConfirmedWeek: 1}, nil
}

func (s *stubEngine) SlotStep() time.Duration { return 30 * time.Minute }

type stubCalendar struct {
	template service.TemplateInput
	override service.OverrideInput
	deleted  uint64
	err      error
}

func (s *stubCalendar) AvailabilityForDate(_ context.Context, rawDate string) ([]service.Availability, error) {
	if s.err != nil {
		return nil, s.err
	}
	c := slot.MustParseClock("09:00")
	return []service.Availability{{Time: c, Label: c.Label()}}, nil
}

func (s *stubCalendar) Hours(context.Context) ([]model.SlotTemplate, error) {
	return []model.SlotTemplate{{Weekday: 1, Enabled: true, Times: []slot.Clock{slot.MustParseClock("09:00")}}}, nil
}

func (s *stubCalendar) Templates(ctx context.Context) ([]model.SlotTemplate, error) {
	return s.Hours(ctx)
}

func (s *stubCalendar) SaveTemplate(_ context.Context, in service.TemplateInput) (*model.SlotTemplate, error) {
	s.template = in
	if s.err != nil {
		return nil, s.err
	}
	times, _ := slot.ParseList(in.Times)
	return &model.SlotTemplate{Weekday: in.Weekday, Times: times, Enabled: true}, nil
}

func (s *stubCalendar) Overrides(context.Context) ([]model.DateOverride, error) {
	return []model.DateOverride{}, nil
}

func (s *stubCalendar) SaveOverride(_ context.Context, in service.OverrideInput) (*model.DateOverride, error) {
	s.override = in
	if s.err != nil {
		return nil, s.err
	}
	times, _ := slot.ParseList(in.Times)
	return &model.DateOverride{ID: 4, Date: in.Date, Closed: in.Closed, Times: times}, nil
}

func (s *stubCalendar) DeleteOverride(_ context.Context, id uint64) error {
	s.deleted = id
	return s.err
}

type stubSettings struct {
	saved map[string]int
}

func (s *stubSettings) Get(context.Context) (model.ScheduleSettings, error) {
	return model.DefaultScheduleSettings(), nil
}

func (s *stubSettings) Save(_ context.Context, values map[string]int) (model.ScheduleSettings, error) {
	s.saved = values
	return model.ScheduleSettings{HoldMinutes: 60, PendingExpireHours: 12}, nil
}

type stubAudit struct{}

func (stubAudit) Recent(context.Context, int) ([]model.AuditRecord, error) {
	return []model.AuditRecord{{ID: 1, AuditEntry: model.AuditEntry{ActorID: 5, Action: "booking_confirm", Entity: "booking_requests", EntityID: 1}}}, nil
}

// asStaff stands in for JWTAuth on test routes.
func asStaff(id uint64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", id)
			c.Set("role", model.RoleStaff)
			return next(c)
		}
	}
}

func newJSONRequest(method, path, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return req
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	return serve(e, newJSONRequest(method, path, body))
}
