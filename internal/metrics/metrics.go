// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultOK         = "ok"
	ResultError      = "error"
	ResultSuperseded = "superseded"
)

type Metrics struct {
	registry *prometheus.Registry

	StoreOps        *prometheus.CounterVec
	StoreLoad       prometheus.Histogram
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	ActiveSessions  prometheus.Gauge
	RateLimited     *prometheus.CounterVec
	OutcomesDropped prometheus.Counter
	Replays         *prometheus.CounterVec
}

// New creates collectors on a private registry, so tests can build as many
// as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		StoreOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "novoape",
			Name:      "store_operations_total",
			Help:      "Document store operations by collection, operation and result.",
		}, []string{"collection", "op", "result"}),
		StoreLoad: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "novoape",
			Name:      "store_load_seconds",
			Help:      "Time to load a full project from the document store.",
			Buckets:   prometheus.DefBuckets,
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "novoape",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "novoape",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "novoape",
			Name:      "active_sessions",
			Help:      "Signed-in sessions held in memory.",
		}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "novoape",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter, by scope.",
		}, []string{"scope"}),
		OutcomesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "novoape",
			Name:      "failed_write_publish_errors_total",
			Help:      "Failed writes that could not be handed to the outcome sink.",
		}),
		Replays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "novoape",
			Name:      "replays_total",
			Help:      "Failed writes replayed by the worker, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.StoreOps, m.StoreLoad, m.HTTPRequests, m.HTTPDuration,
		m.ActiveSessions, m.RateLimited, m.OutcomesDropped, m.Replays,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStore counts one store operation. Safe on a nil receiver.
func (m *Metrics) ObserveStore(collection, op string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.StoreOps.WithLabelValues(collection, op, result).Inc()
}

// ObserveLoad records a load duration. Safe on a nil receiver.
func (m *Metrics) ObserveLoad(d time.Duration) {
	if m == nil {
		return
	}
	m.StoreLoad.Observe(d.Seconds())
}

// ObserveHTTP records one finished request. Safe on a nil receiver.
func (m *Metrics) ObserveHTTP(method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(method).Observe(d.Seconds())
}

// SetActiveSessions sets the session gauge. Safe on a nil receiver.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

// IncRateLimited counts one rejected request of scope. Safe on a nil
// receiver.
func (m *Metrics) IncRateLimited(scope string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(scope).Inc()
}

// IncOutcomeDropped counts a failed write the sink rejected. Safe on a nil receiver.
func (m *Metrics) IncOutcomeDropped() {
	if m == nil {
		return
	}
	m.OutcomesDropped.Inc()
}

// ObserveReplay counts one replay attempt. Safe on a nil receiver.
func (m *Metrics) ObserveReplay(err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.Replays.WithLabelValues(result).Inc()
}

// ObserveSupersededReplay counts a failed write skipped because the
// document changed after it. Safe on a nil receiver.
func (m *Metrics) ObserveSupersededReplay() {
	if m == nil {
		return
	}
	m.Replays.WithLabelValues(ResultSuperseded).Inc()
}
