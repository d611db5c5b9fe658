package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-queue/internal/middleware"
	"github.com/iliyamo/clinic-queue/internal/model"
	"github.com/iliyamo/clinic-queue/internal/service"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth *service.AuthService
	Log  *zap.Logger
}

func NewAuthHandler(a *service.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Auth: a, Log: log}
}

// ----- DTOs -----

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type authResp struct {
	User   userPart  `json:"user"`
	Access tokenPart `json:"access"`
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, Email: u.Email, Role: u.Role}
}

// Register creates a patient account.  Any role in the body is ignored.
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.Credentials
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Auth.Register(ctx, req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": toUserPart(u)})
}

// Login verifies credentials and returns an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req service.Credentials
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	at, u, err := h.Auth.Login(ctx, req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, authResp{
		User:   toUserPart(u),
		Access: tokenPart{Token: at.Token, Expires: at.Exp},
	})
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Auth.User(ctx, middleware.UserID(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}
