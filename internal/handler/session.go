package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-queue/internal/model"
	"github.com/iliyamo/clinic-queue/internal/service"
)

// SessionHandler serves session endpoints.  Admin routes see full
// bookings; public routes only see token availability.
type SessionHandler struct {
	Registry *service.Registry
	Query    *service.QueryService
	Log      *zap.Logger
}

func NewSessionHandler(r *service.Registry, q *service.QueryService, log *zap.Logger) *SessionHandler {
	return &SessionHandler{Registry: r, Query: q, Log: log}
}

// publicSession is the sanitized session view: no patient identities.
type publicSession struct {
	ID           string    `json:"id"`
	ProviderName string    `json:"provider_name"`
	Specialty    string    `json:"specialty"`
	StartTime    time.Time `json:"start_time"`
	Capacity     int       `json:"capacity"`
	Fee          float64   `json:"fee"`
	Taken        []int     `json:"taken"`
	Available    int       `json:"available"`
	Full         bool      `json:"full"`
}

func toPublicSession(s model.Session) publicSession {
	a := service.AvailabilityOf(s)
	return publicSession{
		ID:           s.ID,
		ProviderName: s.ProviderName,
		Specialty:    s.Specialty,
		StartTime:    s.StartTime,
		Capacity:     s.Capacity,
		Fee:          s.Fee(),
		Taken:        a.Taken,
		Available:    a.Available,
		Full:         a.Full,
	}
}

// CreateSession: POST /v1/admin/sessions
func (h *SessionHandler) CreateSession(c echo.Context) error {
	var req service.CreateSessionInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Registry.CreateSession(ctx, req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// AdminListSessions: GET /v1/admin/sessions
func (h *SessionHandler) AdminListSessions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sessions, err := h.Query.ListSessions(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, sessions)
}

// AdminGetSession: GET /v1/admin/sessions/:id
func (h *SessionHandler) AdminGetSession(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Query.GetSession(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, s)
}

// ListSessions: GET /v1/sessions
func (h *SessionHandler) ListSessions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sessions, err := h.Query.ListSessions(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	out := make([]publicSession, len(sessions))
	for i, s := range sessions {
		out[i] = toPublicSession(s)
	}
	return c.JSON(http.StatusOK, out)
}

// GetSession: GET /v1/sessions/:id
func (h *SessionHandler) GetSession(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Query.GetSession(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toPublicSession(s))
}

// Availability: GET /v1/sessions/:id/availability
func (h *SessionHandler) Availability(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Query.Availability(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	// Availability changes with every commit; clients poll.
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, a)
}
