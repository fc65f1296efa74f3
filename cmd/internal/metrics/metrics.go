// Package metrics exposes Prometheus metrics for the auth service.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/audit"
)

const namespace = "talenthub"

// Metrics holds the service collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	reg prometheus.Gatherer

	AuthEvents      *prometheus.CounterVec
	Lockdowns       prometheus.Counter
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	SweepDeleted    prometheus.Counter
	LimiterFailures prometheus.Counter
}

// New registers the collectors on reg. A nil reg uses a fresh registry with
// the Go and process collectors.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &Metrics{
		reg: reg,
		AuthEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "events_total",
				Help:      "Authentication events by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		Lockdowns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "reuse_lockdowns_total",
			Help:      "Identities locked down after renewal credential reuse",
		}),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		SweepDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "sweep_deleted_total",
			Help:      "Renewal records deleted by the retention sweep",
		}),
		LimiterFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "backend_errors_total",
			Help:      "Rate limiter backend errors (requests were allowed)",
		}),
	}

	reg.MustRegister(
		m.AuthEvents,
		m.Lockdowns,
		m.HTTPRequests,
		m.HTTPDuration,
		m.SweepDeleted,
		m.LimiterFailures,
	)
	return m
}

// Record implements audit.Sink so auth events are counted alongside the
// audit trail.
func (m *Metrics) Record(_ context.Context, ev audit.Event) {
	if m == nil {
		return
	}
	m.AuthEvents.WithLabelValues(ev.Action, string(ev.Outcome)).Inc()
	if ev.Outcome == audit.OutcomeLockdown {
		m.Lockdowns.Inc()
	}
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(route string, status int, took time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(took.Seconds())
}

// AddSwept counts records removed by a sweep.
func (m *Metrics) AddSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SweepDeleted.Add(float64(n))
}

// LimiterError counts a rate limiter backend failure.
func (m *Metrics) LimiterError() {
	if m == nil {
		return
	}
	m.LimiterFailures.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
