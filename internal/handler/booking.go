package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-queue/internal/middleware"
	"github.com/iliyamo/clinic-queue/internal/service"
)

// BookingHandler serves the patient booking endpoints.
type BookingHandler struct {
	Bookings *service.BookingService
	Query    *service.QueryService
	Log      *zap.Logger
}

func NewBookingHandler(b *service.BookingService, q *service.QueryService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{Bookings: b, Query: q, Log: log}
}

// tokenLabel accepts a token number written either as 3 or "3".
type tokenLabel int

func (t *tokenLabel) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return fmt.Errorf("token %s is not a number", b)
	}
	*t = tokenLabel(n)
	return nil
}

type commitReq struct {
	Tokens []tokenLabel `json:"tokens"`
}

// CommitBooking: POST /v1/sessions/:id/bookings
// The patient is always the authenticated user.
func (h *BookingHandler) CommitBooking(c echo.Context) error {
	var req commitReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	tokens := make([]int, len(req.Tokens))
	for i, t := range req.Tokens {
		tokens[i] = int(t)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Bookings.CommitBooking(ctx, c.Param("id"), tokens, middleware.UserID(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if !res.Success {
		return respondError(c, h.Log, res.Err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "booking": res.Booking})
}

// MyBookings: GET /v1/my-bookings
func (h *BookingHandler) MyBookings(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Query.PatientBookings(ctx, middleware.UserID(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}
