package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/middleware"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/model"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/service"
)

// AuditReader lists recent audit records.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]model.AuditRecord, error)
}

// auditListLimit caps GET /v1/admin/audit.
const auditListLimit = 100

// StaffHandler serves the staff booking dashboard.  Every route sits
// behind JWTAuth, so the acting staff id is always available.
type StaffHandler struct {
	Engine BookingEngine
	Audit  AuditReader
	Log    *zap.Logger
}

func NewStaffHandler(engine BookingEngine, audit AuditReader, log *zap.Logger) *StaffHandler {
	if engine == nil || audit == nil {
		panic("nil dependency passed to NewStaffHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &StaffHandler{Engine: engine, Audit: audit, Log: log}
}

// ----- DTOs -----

type staffBookingReq struct {
	service.BookingRequest
	AutoConfirm bool `json:"auto_confirm"`
}

type notesReq struct {
	Notes *string `json:"notes"`
}

type transitionReq struct {
	Action string  `json:"action"`
	Notes  *string `json:"notes"`
}

// ListBookings handles GET /v1/admin/bookings?status=&limit=.
func (h *StaffHandler) ListBookings(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return apiError(c, http.StatusUnprocessableEntity, "validation_error", "limit must be a positive integer")
		}
		limit = n
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	items, err := h.Engine.ListBookings(ctx, c.QueryParam("status"), limit)
	if err != nil {
		return serviceError(c, h.Log, err, "booking_unavailable")
	}
	stats, err := h.Engine.Stats(ctx)
	if err != nil {
		return serviceError(c, h.Log, err, "booking_unavailable")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "stats": stats})
}

// GetBooking handles GET /v1/admin/bookings/:id.
func (h *StaffHandler) GetBooking(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return apiError(c, http.StatusUnprocessableEntity, "validation_error", "invalid booking id")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	b, err := h.Engine.GetBooking(ctx, id)
	if err != nil {
		return serviceError(c, h.Log, err, "booking_unavailable")
	}
	return c.JSON(http.StatusOK, b)
}

// CreateBooking handles POST /v1/admin/bookings.  Staff may confirm the
// booking immediately with auto_confirm and may set admin notes.
func (h *StaffHandler) CreateBooking(c echo.Context) error {
	actor, ok := middleware.UserID(c)
	if !ok {
		return apiError(c, http.StatusUnauthorized, "unauthorized", "unauthorized")
	}
	var req staffBookingReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	in := req.BookingRequest
	in.AutoConfirm = req.AutoConfirm
	in.ActorID = actor

	ctx, cancel := requestCtx(c)
	defer cancel()

	b, err := h.Engine.CreateBooking(ctx, in)
	if err != nil {
		return serviceError(c, h.Log, err, "booking_unavailable")
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking": b, "status": b.Status})
}

// Transition handles POST /v1/admin/bookings/:id/transition {action, notes}.
func (h *StaffHandler) Transition(c echo.Context) error {
	actor, id, ok := h.target(c)
	if !ok {
		return nil
	}
	var req transitionReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if req.Action == "" {
		return apiError(c, http.StatusUnprocessableEntity, "validation_error", "action required")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	b, err := h.Engine.Transition(ctx, id, req.Action, req.Notes, actor)
	if err != nil {
		return serviceError(c, h.Log, err, "booking_unavailable")
	}
	return c.JSON(http.StatusOK, b)
}

// ExtendHold handles POST /v1/admin/bookings/:id/extend.
func (h *StaffHandler) ExtendHold(c echo.Context) error {
	actor, id, ok := h.target(c)
	if !ok {
		return nil
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	b, err := h.Engine.ExtendHold(ctx, id, actor)
	if err != nil {
		return serviceError(c, h.Log, err, "booking_unavailable")
	}
	return c.JSON(http.StatusOK, b)
}

// ReleaseHold handles POST /v1/admin/bookings/:id/release {notes}.
func (h *StaffHandler) ReleaseHold(c echo.Context) error {
	actor, id, ok := h.target(c)
	if !ok {
		return nil
	}
	var req notesReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	b, err := h.Engine.ReleaseHold(ctx, id, req.Notes, actor)
	if err != nil {
		return serviceError(c, h.Log, err, "booking_unavailable")
	}
	return c.JSON(http.StatusOK, b)
}

// AuditLog handles GET /v1/admin/audit.
func (h *StaffHandler) AuditLog(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	items, err := h.Audit.Recent(ctx, auditListLimit)
	if err != nil {
		return serviceError(c, h.Log, err, "")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// target resolves the acting staff id and the :id booking.  When ok is
// false the error response has already been written.
func (h *StaffHandler) target(c echo.Context) (actor, id uint64, ok bool) {
	actor, ok = middleware.UserID(c)
	if !ok {
		_ = apiError(c, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return 0, 0, false
	}
	id, ok = pathID(c)
	if !ok {
		_ = apiError(c, http.StatusUnprocessableEntity, "validation_error", "invalid booking id")
		return 0, 0, false
	}
	return actor, id, true
}
