// Package metrics exports outcome counters for the POS client API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "posserver"

// API counts verify, bind and heartbeat outcomes.
type API struct {
	verify      *prometheus.CounterVec
	bind        *prometheus.CounterVec
	heartbeat   *prometheus.CounterVec
	rateLimited *prometheus.CounterVec
	failures    *prometheus.CounterVec
}

// NewAPI registers the API metrics on reg. A nil registerer yields a no-op recorder.
func NewAPI(reg prometheus.Registerer) *API {
	if reg == nil {
		return &API{}
	}
	verify := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "license_verify_total",
		Help:      "License verifications by outcome.",
	}, []string{"outcome"})
	bind := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "device_bind_total",
		Help:      "Device bind attempts by outcome.",
	}, []string{"outcome"})
	heartbeat := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "device_heartbeat_total",
		Help:      "Device heartbeats by outcome.",
	}, []string{"outcome"})
	rateLimited := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	}, []string{"route"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "internal_errors_total",
		Help:      "Requests that failed with an infrastructure error.",
	}, []string{"route"})
	reg.MustRegister(verify, bind, heartbeat, rateLimited, failures)
	return &API{
		verify:      verify,
		bind:        bind,
		heartbeat:   heartbeat,
		rateLimited: rateLimited,
		failures:    failures,
	}
}

func (a *API) ObserveVerify(outcome string) {
	if a == nil || a.verify == nil {
		return
	}
	a.verify.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (a *API) ObserveBind(outcome string) {
	if a == nil || a.bind == nil {
		return
	}
	a.bind.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (a *API) ObserveHeartbeat(outcome string) {
	if a == nil || a.heartbeat == nil {
		return
	}
	a.heartbeat.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (a *API) IncRateLimited(route string) {
	if a == nil || a.rateLimited == nil {
		return
	}
	a.rateLimited.WithLabelValues(normalizeLabel(route)).Inc()
}

func (a *API) IncInternalError(route string) {
	if a == nil || a.failures == nil {
		return
	}
	a.failures.WithLabelValues(normalizeLabel(route)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// empty outcomes are successes
func normalizeLabel(v string) string {
	if v == "" {
		return "ok"
	}
	return v
}
