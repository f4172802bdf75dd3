// Package metrics exposes Prometheus instruments for planning runs and the
// HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warp/task-planner/planning"
)

// Metrics owns a registry so tests and multiple servers don't collide on
// the global one.
type Metrics struct {
	registry *prometheus.Registry

	PlanRuns        *prometheus.CounterVec
	PlanDuration    prometheus.Histogram
	InfeasibleTasks prometheus.Gauge
	ScheduledHours  prometheus.Gauge
	UnplacedHours   prometheus.Gauge

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers every instrument plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		PlanRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planner",
			Name:      "plan_runs_total",
			Help:      "Planning runs by outcome (ok, invalid, error).",
		}, []string{"outcome"}),
		PlanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "planner",
			Name:      "plan_duration_seconds",
			Help:      "Wall time of a planning run.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		InfeasibleTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "planner",
			Name:      "infeasible_tasks",
			Help:      "Tasks left partially or fully unscheduled by the last run.",
		}),
		ScheduledHours: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "planner",
			Name:      "scheduled_hours",
			Help:      "Hours placed by the last run.",
		}),
		UnplacedHours: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "planner",
			Name:      "unplaced_hours",
			Help:      "Requested hours the last run could not place.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planner",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "endpoint", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "planner",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint", "status"}),
	}

	reg.MustRegister(
		m.PlanRuns, m.PlanDuration, m.InfeasibleTasks, m.ScheduledHours, m.UnplacedHours,
		m.RequestsTotal, m.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry for scraping in tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObservePlan records one planning run. result is nil when the run failed.
func (m *Metrics) ObservePlan(elapsed time.Duration, result *planning.Result, err error) {
	m.PlanDuration.Observe(elapsed.Seconds())
	switch {
	case planning.IsValidation(err):
		m.PlanRuns.WithLabelValues("invalid").Inc()
		return
	case err != nil:
		m.PlanRuns.WithLabelValues("error").Inc()
		return
	}
	m.PlanRuns.WithLabelValues("ok").Inc()

	s := result.Summary()
	m.InfeasibleTasks.Set(float64(s.Infeasible))
	m.ScheduledHours.Set(s.ScheduledHours.InexactFloat64())
	m.UnplacedHours.Set(s.UnplacedHours.InexactFloat64())
}

// =============================================================================
// HTTP MIDDLEWARE
// =============================================================================

// statusWriter captures the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Middleware counts and times requests by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		endpoint := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			endpoint = rc.RoutePattern()
		}
		status := strconv.Itoa(sw.status)
		m.RequestDuration.WithLabelValues(r.Method, endpoint, status).Observe(time.Since(start).Seconds())
		m.RequestsTotal.WithLabelValues(r.Method, endpoint, status).Inc()
	})
}
