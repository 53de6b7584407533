package middleware

import (
	"net/http"
	"strings"

	"tenantcore/internal/common"
	"tenantcore/internal/services"

	"github.com/labstack/echo/v4"
)

// SessionMiddleware authenticates the request from its Bearer token and
// injects the live principal and token id into the request context. It does
// not judge the principal; structural and isolation checks belong to the
// security middleware behind it.
func SessionMiddleware(sessionSvc services.SessionService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token format")
			}

			principal, tokenID, err := sessionSvc.CurrentPrincipal(c.Request().Context(), tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired session")
			}

			ctx := common.WithPrincipal(c.Request().Context(), principal)
			ctx = common.WithSessionToken(ctx, tokenID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
