// Package metrics provides Prometheus metrics for the verse service.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FocuswithJustin/BirthdayVerse/core/errors"
	"github.com/FocuswithJustin/BirthdayVerse/core/verse"
)

// Lookup outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback"
	OutcomeFailed   = "failed"
	OutcomeIdle     = "idle"
)

// Source fetch statuses.
const (
	FetchFound    = "found"
	FetchNotFound = "not_found"
	FetchError    = "error"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Lookup metrics
	LookupsTotal *prometheus.CounterVec

	// Verse source metrics
	SourceFetchTotal    *prometheus.CounterVec
	SourceFetchDuration *prometheus.HistogramVec

	// WebSocket metrics
	WebSocketSessions prometheus.Gauge

	StartTime time.Time
}

// New creates the metrics on a fresh registry, including Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{registry: reg, StartTime: time.Now()}
	factory := promauto.With(reg)

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "birthdayverse_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "birthdayverse_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	m.HTTPRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "birthdayverse_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	m.LookupsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "birthdayverse_lookups_total",
			Help: "Total number of birthday verse lookups by outcome",
		},
		[]string{"outcome"},
	)

	m.SourceFetchTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "birthdayverse_source_fetch_total",
			Help: "Total number of chapter fetches by verse source and status",
		},
		[]string{"source", "status"},
	)

	m.SourceFetchDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "birthdayverse_source_fetch_duration_seconds",
			Help:    "Duration of chapter fetches in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	m.WebSocketSessions = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "birthdayverse_websocket_sessions",
			Help: "Number of open WebSocket lookup sessions",
		},
	)

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "birthdayverse_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.StartTime).Seconds() },
	)

	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records one HTTP request.
func (m *Metrics) RecordHTTPRequest(route string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordLookup records the outcome of one lookup.
func (m *Metrics) RecordLookup(outcome string) {
	m.LookupsTotal.WithLabelValues(outcome).Inc()
}

// RecordFetch records one verse source fetch.
func (m *Metrics) RecordFetch(source, status string, duration time.Duration) {
	m.SourceFetchTotal.WithLabelValues(source, status).Inc()
	m.SourceFetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// FetchStatus classifies a FetchChapter error.
func FetchStatus(err error) string {
	switch {
	case err == nil:
		return FetchFound
	case errors.Is(err, errors.ErrNotFound):
		return FetchNotFound
	default:
		return FetchError
	}
}

// InstrumentLookup wraps l so that every fetch is recorded under source.
func (m *Metrics) InstrumentLookup(source string, l verse.Lookup) verse.Lookup {
	return verse.LookupFunc(func(ctx context.Context, book string, chapter int) ([]verse.Verse, error) {
		start := time.Now()
		verses, err := l.FetchChapter(ctx, book, chapter)
		m.RecordFetch(source, FetchStatus(err), time.Since(start))
		return verses, err
	})
}
