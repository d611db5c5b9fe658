package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-queue/internal/repository"
	"github.com/iliyamo/clinic-queue/internal/service"
)

// respondError maps service failures onto HTTP responses.  Conflict and
// capacity failures carry "refresh": true: the client's view of the
// session is stale and must be reloaded before retrying.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	var (
		ve *service.ValidationError
		te *service.TokenError
	)
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": ve.Fields})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	case errors.Is(err, service.ErrInvalidToken):
		body := echo.Map{"error": "token outside session range"}
		if errors.As(err, &te) {
			body["tokens"] = te.Tokens
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, service.ErrLimitExceeded):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		body := echo.Map{"error": "token already booked", "refresh": true}
		if errors.As(err, &te) {
			body["taken"] = te.Tokens
		}
		return c.JSON(http.StatusConflict, body)
	case errors.Is(err, service.ErrCapacityExceeded):
		return c.JSON(http.StatusConflict, echo.Map{"error": "session capacity exceeded", "refresh": true})
	case errors.Is(err, service.ErrBusy):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "session busy, retry shortly"})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, service.ErrEmailTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, repository.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	default:
		log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
