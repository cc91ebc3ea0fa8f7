package middleware

import (
	"context"

	"github.com/labstack/echo/v4"
	mwecho "github.com/labstack/echo/v4/middleware"

	"castypos.com/posserver/internal/logging"
)

// RequestLogger writes one structured line per request.
func RequestLogger(log *logging.Logger) echo.MiddlewareFunc {
	return mwecho.RequestLoggerWithConfig(mwecho.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v mwecho.RequestLoggerValues) error {
			ctx := log.WithFields(c.Request().Context(), map[string]any{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"remote_ip":  v.RemoteIP,
			})
			logRequest(ctx, log, v)
			return nil
		},
	})
}

func logRequest(ctx context.Context, log *logging.Logger, v mwecho.RequestLoggerValues) {
	switch {
	case v.Error != nil || v.Status >= 500:
		log.Error(ctx, "request failed", v.Error)
	case v.Status >= 400:
		log.Warn(ctx, "request rejected", nil)
	default:
		log.Info(ctx, "request")
	}
}
