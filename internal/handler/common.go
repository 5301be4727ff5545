// Package handler exposes the HTTP handlers for the public booking flow,
// the staff dashboard and staff authentication.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/service"
)

// requestTimeout bounds the store work of one request.
const requestTimeout = 5 * time.Second

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// apiError writes {"error":{"code","message"}}.
func apiError(c echo.Context, status int, code, message string) error {
	return c.JSON(status, echo.Map{"error": echo.Map{"code": code, "message": message}})
}

// serviceError maps a service failure to its HTTP status and error code.
// conflictCode names the 409 returned when a slot is held or booked, which
// differs between the hold and booking endpoints.
func serviceError(c echo.Context, log *zap.Logger, err error, conflictCode string) error {
	var se *service.Error
	if errors.As(err, &se) {
		msg := se.Message
		if msg == "" {
			msg = string(se.Kind)
		}
		switch se.Kind {
		case service.KindValidation:
			return apiError(c, http.StatusUnprocessableEntity, "validation_error", msg)
		case service.KindSlotHeld, service.KindSlotUnavailable:
			return apiError(c, http.StatusConflict, conflictCode, msg)
		case service.KindHoldExpired:
			return apiError(c, http.StatusGone, "hold_expired", msg)
		case service.KindInvalidState:
			return apiError(c, http.StatusConflict, "invalid_state", msg)
		case service.KindUnknownAction:
			return apiError(c, http.StatusUnprocessableEntity, "unknown_action", msg)
		case service.KindNotFound:
			return apiError(c, http.StatusNotFound, "not_found", msg)
		}
	}
	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return apiError(c, http.StatusInternalServerError, "server_error", "internal error")
}

func badBody(c echo.Context) error {
	return apiError(c, http.StatusBadRequest, "invalid_body", "invalid request body")
}

// pathID parses the :id path parameter.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}
