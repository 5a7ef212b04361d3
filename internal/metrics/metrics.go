// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes Prometheus instruments for the HTTP surface, the
// aggregation pipeline and the individual provider calls.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/openresources/pkg/types"
)

const namespace = "openresources"

// Metrics groups every instrument. A nil *Metrics is valid and records
// nothing, so components can run without instrumentation.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RateLimitedTotal    prometheus.Counter

	SearchRequestsTotal   *prometheus.CounterVec
	SearchRequestDuration prometheus.Histogram
	SearchResultsTotal    prometheus.Histogram

	ProviderRequestsTotal   *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the instruments with reg. Pass prometheus.NewRegistry() in
// tests to keep them isolated; a nil reg uses the default registry.
func New(reg prometheus.Registerer) *Metrics {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	f := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
		RateLimitedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the per-client rate limiter",
			},
		),
		SearchRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_requests_total",
				Help:      "Search requests by type filter and outcome",
			},
			[]string{"type", "outcome"},
		),
		SearchRequestDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_request_duration_seconds",
				Help:      "End-to-end aggregation time in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 6, 8, 10},
			},
		),
		SearchResultsTotal: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_results",
				Help:      "Merged results per search before pagination",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		ProviderRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Provider calls by source and terminal status",
			},
			[]string{"source", "status"},
		),
		ProviderRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Provider call duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 6, 8},
			},
			[]string{"source"},
		),
		gatherer: gatherer,
	}
}

// ObserveProvider records one adapter outcome.
func (m *Metrics) ObserveProvider(o types.AdapterOutcome) {
	if m == nil {
		return
	}
	m.ProviderRequestsTotal.WithLabelValues(o.Source, string(o.Status)).Inc()
	m.ProviderRequestDuration.WithLabelValues(o.Source).Observe(float64(o.ElapsedMs) / 1000)
}

// ObserveSearch records one search request. outcome is "ok",
// "invalid" or "error".
func (m *Metrics) ObserveSearch(filter, outcome string, elapsed time.Duration, total int) {
	if m == nil {
		return
	}
	m.SearchRequestsTotal.WithLabelValues(filter, outcome).Inc()
	if outcome == "ok" {
		m.SearchRequestDuration.Observe(elapsed.Seconds())
		m.SearchResultsTotal.Observe(float64(total))
	}
}

// RateLimited counts one rejected request.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedTotal.Inc()
}

// Handler serves the registry the instruments were registered with.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records HTTP request duration and count, labelled by the chi
// route pattern to keep cardinality bounded.
func (m *Metrics) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			path := "unknown"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				path = rc.RoutePattern()
			}
			status := strconv.Itoa(ww.status)

			m.HTTPRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
			m.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		})
	}
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b)
}
