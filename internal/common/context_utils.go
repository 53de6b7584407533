package common

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"tenantcore/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	PrincipalKey    contextKey = "principal"
	SessionTokenKey contextKey = "session_token"
	TenantKey       contextKey = "tenant"
)

// WithPrincipal attaches the authenticated principal to a request context.
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// GetPrincipalFromContext extracts the authenticated principal.
func GetPrincipalFromContext(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(*models.Principal)
	return p, ok && p != nil
}

// WithSessionToken attaches the opaque session token to a request context.
func WithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, SessionTokenKey, token)
}

// GetSessionTokenFromContext extracts the session token.
func GetSessionTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(SessionTokenKey).(string)
	return token, ok && token != ""
}

// WithTenant attaches the resolved tenant to a request context.
func WithTenant(ctx context.Context, t *models.Tenant) context.Context {
	return context.WithValue(ctx, TenantKey, t)
}

// GetTenantFromContext extracts the resolved tenant.
func GetTenantFromContext(ctx context.Context) (*models.Tenant, bool) {
	t, ok := ctx.Value(TenantKey).(*models.Tenant)
	return t, ok && t != nil
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendClientError sends a client error response
func SendClientError(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("CLIENT_ERROR", message, nil))
}

// SendServerError sends a server error response
func SendServerError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, CreateErrorResponse("SERVER_ERROR", message, nil))
}

// SendNotFoundError sends a not found error response
func SendNotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, CreateErrorResponse("NOT_FOUND", fmt.Sprintf("%s not found", resource), nil))
}

// SendUnauthorizedError sends an unauthorized error response
func SendUnauthorizedError(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, CreateErrorResponse("UNAUTHORIZED", "Unauthorized access", nil))
}

// SendAccessDenied sends the generic refusal shown for denied operations.
// The denial reason stays in the audit log, never in the response body.
func SendAccessDenied(c echo.Context) error {
	return c.JSON(http.StatusForbidden, CreateErrorResponse("ACCESS_DENIED", "Access denied", nil))
}

// SendSecurityNotice ends a request after a forced session termination with
// a visible security notice and no internal detail.
func SendSecurityNotice(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, CreateErrorResponse("SESSION_TERMINATED",
		"Your session was terminated for security reasons. Please sign in again.", nil))
}

// ValidateUUID validates UUID format
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		return uuid.Nil, fmt.Errorf("%s is required", fieldName)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s is not a valid UUID: %v", fieldName, err)
	}
	return id, nil
}
