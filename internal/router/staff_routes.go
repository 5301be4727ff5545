package router

import (
	"github.com/labstack/echo/v4"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/handler"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/middleware"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/model"
)

// RegisterStaff registers the staff dashboard under /v1/admin.  Every
// route requires a valid access token with the ADMIN or STAFF role;
// changing the schedule settings requires ADMIN.
func RegisterStaff(e *echo.Echo, b *handler.StaffHandler, s *handler.ScheduleHandler, jwtSecret string) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleStaff),
	)

	g.GET("/bookings", b.ListBookings)
	g.POST("/bookings", b.CreateBooking)
	g.GET("/bookings/:id", b.GetBooking)
	g.POST("/bookings/:id/transition", b.Transition)
	g.POST("/bookings/:id/extend", b.ExtendHold)
	g.POST("/bookings/:id/release", b.ReleaseHold)
	g.GET("/audit", b.AuditLog)

	g.GET("/schedule/templates", s.Templates)
	g.PUT("/schedule/templates", s.SaveTemplates)
	g.GET("/schedule/overrides", s.Overrides)
	g.PUT("/schedule/overrides", s.SaveOverride)
	g.DELETE("/schedule/overrides/:id", s.DeleteOverride)
	g.GET("/schedule/settings", s.GetSettings)
	g.PUT("/schedule/settings", s.SaveSettings, middleware.RequireRole(model.RoleAdmin))
}
