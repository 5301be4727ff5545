// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/handler"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/middleware"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/model"
)

// RegisterRoutes registers the unauthenticated health check.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	e.GET("/healthz", health)
}

// RegisterAuth registers staff login, token refresh and logout under
// /v1/auth, and the protected GET /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout accepts either a refresh token in the body or a bearer token,
	// so it stays outside the JWT group.
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleStaff))
}

// RegisterPublic registers the customer booking flow.  limiter guards the
// claim endpoints; cache is mounted on the hours endpoint only, since every
// other public response depends on live occupancy.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, limiter, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.GET("/availability", p.Availability)
	g.POST("/holds", p.CreateHold, limiter)
	g.POST("/bookings", p.CreateBooking, limiter)
	g.GET("/schedule/hours", p.Hours, cache)
}
