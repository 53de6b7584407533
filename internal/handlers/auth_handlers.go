package handlers

import (
	"errors"
	"net/http"
	"strings"

	"tenantcore/internal/common"
	"tenantcore/internal/models"
	"tenantcore/internal/services"

	"github.com/labstack/echo/v4"
)

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	sessionSvc services.SessionService
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(sessionSvc services.SessionService) *AuthHandlers {
	return &AuthHandlers{sessionSvc: sessionSvc}
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Login handles tenant user login with email and password
func (h *AuthHandlers) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Email and password are required")
	}

	resp, err := h.sessionSvc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return loginError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// MasterLogin handles platform operator login
func (h *AuthHandlers) MasterLogin(c echo.Context) error {
	ctx := c.Request().Context()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Email and password are required")
	}

	resp, err := h.sessionSvc.LoginAsMaster(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrNotAMasterAccount) {
			// Indistinguishable from a wrong password on purpose.
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
		}
		return loginError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout tears down the caller's session. Always succeeds for absent or
// already ended sessions.
func (h *AuthHandlers) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	tokenString := bearerToken(c)
	if tokenString == "" {
		return c.JSON(http.StatusOK, map[string]string{"status": "logged_out"})
	}
	if err := h.sessionSvc.Logout(ctx, tokenString); err != nil {
		return common.SendServerError(c, "Failed to end session")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "logged_out"})
}

// CurrentSession returns the authenticated principal for the presented
// token, restoring the session from durable storage when needed.
func (h *AuthHandlers) CurrentSession(c echo.Context) error {
	ctx := c.Request().Context()

	tokenString := bearerToken(c)
	if tokenString == "" {
		return common.SendUnauthorizedError(c)
	}

	session, err := h.sessionSvc.RestoreSession(ctx, tokenString)
	if err != nil {
		if errors.Is(err, models.ErrSessionCorrupted) {
			return common.SendSecurityNotice(c)
		}
		return common.SendUnauthorizedError(c)
	}
	return c.JSON(http.StatusOK, session)
}

func loginError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrRateLimited):
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many login attempts")
	case errors.Is(err, models.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	default:
		return common.SendServerError(c, "Login failed")
	}
}

func bearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return ""
	}
	return token
}
