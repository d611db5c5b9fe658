package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-queue/internal/handler"
	"github.com/iliyamo/clinic-queue/internal/middleware"
	"github.com/iliyamo/clinic-queue/internal/model"
)

// RegisterRoutes registers routes that need no authentication and carry no
// domain data.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers account endpoints.  Register and login are open;
// /v1/me needs a valid access token of any role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RolePatient),
	)
}

// RegisterPublic registers the browse endpoints.  Responses are sanitized:
// they expose taken token numbers but never patient identities.
func RegisterPublic(e *echo.Echo, s *handler.SessionHandler) {
	e.GET("/v1/sessions", s.ListSessions)
	e.GET("/v1/sessions/:id", s.GetSession)
	e.GET("/v1/sessions/:id/availability", s.Availability)
}

// RegisterAdmin registers session management under /v1/admin for the ADMIN
// role.
func RegisterAdmin(e *echo.Echo, s *handler.SessionHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("/sessions", s.CreateSession)
	g.GET("/sessions", s.AdminListSessions)
	g.GET("/sessions/:id", s.AdminGetSession)
}

// RegisterPatient registers booking endpoints for the PATIENT role.  The
// booking patient is always the token's subject.
func RegisterPatient(e *echo.Echo, b *handler.BookingHandler, jwtSecret string) {
	mw := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RolePatient),
	}
	e.POST("/v1/sessions/:id/bookings", b.CommitBooking, mw...)
	e.GET("/v1/my-bookings", b.MyBookings, mw...)
}
