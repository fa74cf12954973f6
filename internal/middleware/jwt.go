package middleware // reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/safepath/safepath-server/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the authenticated user's ID into the request context. The provided
// secret must match the one used when issuing access tokens. Protected routes
// read the identity via `c.Get("user_id").(uint64)`.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			userID, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set("user_id", userID)
			return next(c)
		}
	}
}

// OptionalAuth resolves the user ID when a valid Bearer token is present but
// lets anonymous requests through. Used on routes like incident reporting
// where identity is attached when available.
func OptionalAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearerToken(c); ok {
				if userID, err := utils.ParseAccessToken(secret, raw); err == nil {
					c.Set("user_id", userID)
				}
			}
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(auth, "Bearer "), true
}

// UserID reads the authenticated user's ID from the context, 0 when the
// request is anonymous.
func UserID(c echo.Context) uint64 {
	if v, ok := c.Get("user_id").(uint64); ok {
		return v
	}
	return 0
}
