package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"castypos.com/posserver/internal/logging"
	"castypos.com/posserver/internal/metrics"
)

// Allower decides whether a request in scope may proceed.
type Allower interface {
	Allow(ctx context.Context, scope string) (bool, error)
}

// RateLimit rejects requests beyond the limiter's window with 429. Scopes are the
// route path and the client IP. Limiter errors let the request through.
func RateLimit(limiter Allower, m *metrics.API, log *logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter == nil {
				return next(c)
			}

			ctx := c.Request().Context()
			scope := c.Path() + ":" + c.RealIP()
			allowed, err := limiter.Allow(ctx, scope)
			if err != nil {
				log.Warn(ctx, "rate limiter unavailable", err)
				return next(c)
			}
			if !allowed {
				m.IncRateLimited(c.Path())
				return c.JSON(http.StatusTooManyRequests, map[string]any{
					"ok":      false,
					"reason":  "RATE_LIMITED",
					"message": "too many requests",
				})
			}
			return next(c)
		}
	}
}
