package middleware

import (
	"github.com/labstack/echo/v4"

	"castypos.com/posserver/internal/logging"
	"castypos.com/posserver/internal/version"
)

const VersionHeader = "X-Posserver-Version"

// RequestContext attaches the request id assigned by echo's RequestID middleware
// to the request context so every log line for the request carries it.
func RequestContext(log *logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			if id == "" {
				id = c.Request().Header.Get(echo.HeaderXRequestID)
			}
			if id != "" {
				ctx := log.WithRequestID(c.Request().Context(), id)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}

// Version advertises the server version on every response.
func Version() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set(VersionHeader, version.Version)
			return next(c)
		}
	}
}
