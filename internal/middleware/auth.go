package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// AdminAPIKeyAuth validates the X-API-Key header against adminKey.
// Used for operational endpoints. Returns 401 if authentication fails.
func AdminAPIKeyAuth(adminKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if adminKey == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "ADMIN_API_KEY not configured")
			}

			key := c.Request().Header.Get("X-API-Key")
			if key == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing admin API key")
			}

			if !ValidateAdminKey(adminKey, key) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid admin API key")
			}

			return next(c)
		}
	}
}

// ValidateAdminKey compares key with adminKey in constant time.
func ValidateAdminKey(adminKey, key string) bool {
	if adminKey == "" {
		return false
	}
	return constantEqual(adminKey, key)
}

// constantEqual provides constant-time string equality to avoid timing attacks.
func constantEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
