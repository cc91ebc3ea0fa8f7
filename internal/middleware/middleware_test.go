package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	mwecho "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"castypos.com/posserver/internal/logging"
	"castypos.com/posserver/internal/metrics"
	"castypos.com/posserver/internal/middleware"
	"castypos.com/posserver/internal/version"
)

type stubLimiter struct {
	allow  bool
	err    error
	scopes []string
}

func (s *stubLimiter) Allow(ctx context.Context, scope string) (bool, error) {
	s.scopes = append(s.scopes, scope)
	return s.allow, s.err
}

func TestRateLimit(t *testing.T) {
	m := metrics.NewAPI(prometheus.NewRegistry())

	t.Run("passes when allowed", func(t *testing.T) {
		lim := &stubLimiter{allow: true}
		c, rec := newContext(http.MethodPost, "/api/v1/licenses/verify")
		c.SetPath("/api/v1/licenses/verify")

		if err := middleware.RateLimit(lim, m, logging.Nop())(okHandler)(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if len(lim.scopes) != 1 || !strings.HasPrefix(lim.scopes[0], "/api/v1/licenses/verify:") {
			t.Errorf("unexpected scope %v", lim.scopes)
		}
	})

	t.Run("rejects when over limit", func(t *testing.T) {
		c, rec := newContext(http.MethodPost, "/api/v1/licenses/verify")
		if err := middleware.RateLimit(&stubLimiter{}, m, logging.Nop())(okHandler)(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("expected 429, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"ok":false`) {
			t.Errorf("expected failure body, got %s", rec.Body.String())
		}
	})

	t.Run("fails open on limiter error", func(t *testing.T) {
		c, rec := newContext(http.MethodPost, "/api/v1/licenses/verify")
		lim := &stubLimiter{err: errors.New("redis down")}
		if err := middleware.RateLimit(lim, m, logging.Nop())(okHandler)(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("nil limiter disables limiting", func(t *testing.T) {
		c, rec := newContext(http.MethodPost, "/api/v1/licenses/verify")
		if err := middleware.RateLimit(nil, m, logging.Nop())(okHandler)(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}

func TestRequestContextAndLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logging.New(logging.Options{ServiceName: "posserver", Output: buf})

	e := echo.New()
	e.Use(mwecho.RequestID())
	e.Use(middleware.RequestContext(log))
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.Version())
	e.GET("/livez", func(c echo.Context) error {
		log.Info(c.Request().Context(), "inside handler")
		return c.String(http.StatusOK, "OK")
	})

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-42")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get(middleware.VersionHeader); got != version.Version {
		t.Errorf("expected version header %q, got %q", version.Version, got)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected handler and request log lines, got %d:\n%s", len(lines), buf.String())
	}
	for _, line := range lines {
		if !strings.Contains(line, `"request_id":"req-42"`) {
			t.Errorf("expected request id in %s", line)
		}
	}
	if !strings.Contains(lines[1], `"status":200`) {
		t.Errorf("expected status in request line, got %s", lines[1])
	}
}
