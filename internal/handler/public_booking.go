package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/model"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/service"
)

// BookingEngine is the part of the reservation engine the handlers use.
type BookingEngine interface {
	CreateHold(ctx context.Context, req service.HoldRequest) (*service.HoldResult, error)
	CreateBooking(ctx context.Context, req service.BookingRequest) (*model.Booking, error)
	Transition(ctx context.Context, id uint64, action string, notes *string, actorID uint64) (*model.Booking, error)
	ExtendHold(ctx context.Context, id uint64, actorID uint64) (*model.Booking, error)
	ReleaseHold(ctx context.Context, id uint64, notes *string, actorID uint64) (*model.Booking, error)
	GetBooking(ctx context.Context, id uint64) (*model.Booking, error)
	ListBookings(ctx context.Context, status string, limit int) ([]model.Booking, error)
	Stats(ctx context.Context) (model.BookingStats, error)
	SlotStep() time.Duration
}

// ScheduleCalendar is the part of the slot calendar the handlers use.
type ScheduleCalendar interface {
	AvailabilityForDate(ctx context.Context, rawDate string) ([]service.Availability, error)
	Hours(ctx context.Context) ([]model.SlotTemplate, error)
	Templates(ctx context.Context) ([]model.SlotTemplate, error)
	SaveTemplate(ctx context.Context, in service.TemplateInput) (*model.SlotTemplate, error)
	Overrides(ctx context.Context) ([]model.DateOverride, error)
	SaveOverride(ctx context.Context, in service.OverrideInput) (*model.DateOverride, error)
	DeleteOverride(ctx context.Context, id uint64) error
}

// PublicHandler serves the unauthenticated booking flow: availability,
// holds, booking requests and opening hours.
type PublicHandler struct {
	Engine   BookingEngine
	Calendar ScheduleCalendar
	Log      *zap.Logger
}

func NewPublicHandler(engine BookingEngine, calendar ScheduleCalendar, log *zap.Logger) *PublicHandler {
	if engine == nil || calendar == nil {
		panic("nil dependency passed to NewPublicHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PublicHandler{Engine: engine, Calendar: calendar, Log: log}
}

// Availability handles GET /v1/availability?date=YYYY-MM-DD.
func (h *PublicHandler) Availability(c echo.Context) error {
	date := strings.TrimSpace(c.QueryParam("date"))

	ctx, cancel := requestCtx(c)
	defer cancel()

	av, err := h.Calendar.AvailabilityForDate(ctx, date)
	if err != nil {
		return serviceError(c, h.Log, err, "slot_unavailable")
	}
	return c.JSON(http.StatusOK, echo.Map{"date": date, "availability": av})
}

// CreateHold handles POST /v1/holds {date, time}.
func (h *PublicHandler) CreateHold(c echo.Context) error {
	var req service.HoldRequest
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	res, err := h.Engine.CreateHold(ctx, req)
	if err != nil {
		return serviceError(c, h.Log, err, "hold_conflict")
	}
	return c.JSON(http.StatusCreated, res)
}

// CreateBooking handles POST /v1/bookings.  Staff-only fields of the
// request are never bound from public input.
func (h *PublicHandler) CreateBooking(c echo.Context) error {
	var req service.BookingRequest
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	req.AutoConfirm, req.ActorID, req.AdminNotes = false, 0, nil

	ctx, cancel := requestCtx(c)
	defer cancel()

	b, err := h.Engine.CreateBooking(ctx, req)
	if err != nil {
		return serviceError(c, h.Log, err, "booking_unavailable")
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking": b, "status": b.Status})
}

// Hours handles GET /v1/schedule/hours.  It returns weekday templates only,
// never occupancy, so the response is safe to cache.
func (h *PublicHandler) Hours(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	hours, err := h.Calendar.Hours(ctx)
	if err != nil {
		return serviceError(c, h.Log, err, "slot_unavailable")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"hours":        hours,
		"slot_minutes": int(h.Engine.SlotStep() / time.Minute),
	})
}
