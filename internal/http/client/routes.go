package client

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires the POS client endpoints under the given Echo group.
// The mw middlewares (rate limiting) apply to every client endpoint.
func RegisterRoutes(g *echo.Group, h *Handler, mw ...echo.MiddlewareFunc) {
	g.POST("/licenses/verify", h.Verify, mw...)
	g.POST("/devices/bind", h.Bind, mw...)
	g.POST("/devices/heartbeat", h.Heartbeat, mw...)
}
