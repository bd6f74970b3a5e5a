// Package metrics exposes Prometheus collectors for the HTTP gateway and
// the claim outcomes, and the middleware that records them.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/patric-chuzhbe/partyplanner/internal/models"
	"github.com/patric-chuzhbe/partyplanner/internal/service"
)

const namespace = "partyplanner"

// Claim outcomes used as the "outcome" label of the claims counter.
const (
	ClaimOutcomeClaimed  = "claimed"
	ClaimOutcomeConflict = "conflict"
	ClaimOutcomeRejected = "rejected"
	ClaimOutcomeError    = "error"
)

// ClaimOutcome classifies the result of a claim call.
func ClaimOutcome(err error) string {
	switch {
	case err == nil:
		return ClaimOutcomeClaimed
	case errors.Is(err, models.ErrSelectionAlreadyClaimed):
		return ClaimOutcomeConflict
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, models.ErrPartyNotFound):
		return ClaimOutcomeRejected
	default:
		return ClaimOutcomeError
	}
}

// Metrics owns a private registry so that several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	claims       *prometheus.CounterVec
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "inflight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			[]string{"method", "route"},
		),
		claims: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "parties",
				Name:      "claims_total",
				Help:      "Claim attempts by outcome.",
			},
			[]string{"outcome"},
		),
	}

	m.registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.claims,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	return m
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry gives tests access to the collected values.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordClaim counts one claim attempt.
func (m *Metrics) RecordClaim(outcome string) {
	m.claims.WithLabelValues(outcome).Inc()
}

// InstrumentHandler is a middleware that records request counts and
// durations labelled with the chi route pattern, so that party IDs do not
// end up in label values.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
			if pattern := routeCtx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		method := strings.ToUpper(r.Method)

		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}
