package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	mwecho "github.com/labstack/echo/v4/middleware"
	mwsvc "castypos.com/posserver/internal/middleware"

	"castypos.com/posserver/internal/config"
	"castypos.com/posserver/internal/demodata"
	"castypos.com/posserver/internal/logging"
	"castypos.com/posserver/internal/metrics"
	"castypos.com/posserver/internal/ratelimit"

	clienthttp "castypos.com/posserver/internal/http/client"
)

type Server struct {
	*Services

	Echo     *echo.Echo
	HTTP     *http.Server
	Registry *prometheus.Registry
	Limiter  *ratelimit.Limiter
}

func Build(ctx context.Context, cfg *config.Config, log *logging.Logger) (*Server, error) {
	//
	// Database and domain services
	//
	svc, err := OpenServices(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	// Load demo data if requested and database is new
	if cfg.DemoMode && svc.IsNew {
		lic, err := demodata.Load(ctx, svc.DB, svc.Licenses)
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("failed to load demo data: %w", err)
		}
		log.Info(log.WithLicenseKey(ctx, lic.LicenseKey), "demo data loaded")
	}

	//
	// Metrics and rate limiting
	//
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	apiMetrics := metrics.NewAPI(registry)

	var limiter *ratelimit.Limiter
	if cfg.RateLimitEnabled() {
		limiter, err = ratelimit.New(ctx, cfg.RedisURL, cfg.RateLimit, cfg.RateWindow)
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		log.Info(log.WithFields(ctx, map[string]any{
			"limit":  cfg.RateLimit,
			"window": cfg.RateWindow.String(),
		}), "client API rate limiting enabled")
	}

	e := newEcho(cfg, log, svc, limiter, registry, apiMetrics)

	//
	// HTTP server
	//
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      e,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		Services: svc,
		Echo:     e,
		HTTP:     srv,
		Registry: registry,
		Limiter:  limiter,
	}, nil
}

// Routes returns the route table without opening the database or dialing Redis.
func Routes(cfg *config.Config, log *logging.Logger) []*echo.Route {
	registry := prometheus.NewRegistry()
	e := newEcho(cfg, log, &Services{}, nil, registry, metrics.NewAPI(registry))
	return e.Routes()
}

// newEcho builds the router. limiter may be nil when rate limiting is off.
func newEcho(cfg *config.Config, log *logging.Logger, svc *Services, limiter *ratelimit.Limiter, registry *prometheus.Registry, apiMetrics *metrics.API) *echo.Echo {
	var allower mwsvc.Allower
	if limiter != nil {
		allower = limiter
	}
	clientHandler := clienthttp.NewHandler(svc.Verifier, svc.Activation, apiMetrics, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Health endpoints
	e.GET("/livez", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	e.GET("/readyz", func(c echo.Context) error {
		if err := svc.DB.PingContext(c.Request().Context()); err != nil {
			return c.String(http.StatusServiceUnavailable, "DB not ready")
		}
		if limiter != nil {
			if err := limiter.Ping(c.Request().Context()); err != nil {
				return c.String(http.StatusServiceUnavailable, "Redis not ready")
			}
		}
		return c.String(http.StatusOK, "Ready")
	})

	// Middleware
	e.Use(mwecho.RequestID())
	e.Use(mwsvc.RequestContext(log))
	e.Use(mwsvc.RequestLogger(log))
	e.Use(mwecho.Recover())
	e.Use(mwsvc.Version())

	// Operational endpoints
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(registry)), mwsvc.AdminAPIKeyAuth(cfg.AdminAPIKey))

	// Client API
	clientGroup := e.Group("/api/v1")
	clienthttp.RegisterRoutes(clientGroup, clientHandler, mwsvc.RateLimit(allower, apiMetrics, log))

	return e
}

// Close releases the database and the Redis connection.
func (s *Server) Close() error {
	var err error
	if s.Limiter != nil {
		err = s.Limiter.Close()
	}
	return multierr.Append(err, s.Services.Close())
}
