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

// Metrics groups the application collectors around one registry so tests
// can build isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	changes         *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	rateLimited     prometheus.Counter
	suspicious      *prometheus.CounterVec
	published       *prometheus.CounterVec
	workerProcessed *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roora",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "roora",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roora",
			Name:      "records_changed_total",
			Help:      "Planner records created, updated or deleted.",
		}, []string{"entity", "op"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roora",
			Name:      "cache_lookups_total",
			Help:      "Read-model cache lookups by result.",
		}, []string{"cache", "result"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roora",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		suspicious: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roora",
			Name:      "suspicious_requests_total",
			Help:      "Requests flagged by the security detector.",
		}, []string{"reason"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roora",
			Name:      "amqp_published_total",
			Help:      "Change messages published, by outcome.",
		}, []string{"outcome"}),
		workerProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roora",
			Name:      "worker_messages_total",
			Help:      "Change messages handled by the worker, by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.changes, m.cacheLookups,
		m.rateLimited, m.suspicious, m.published, m.workerProcessed,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) RecordChange(entity, op string) {
	m.changes.WithLabelValues(entity, op).Inc()
}

func (m *Metrics) CacheHit(name string)  { m.cacheLookups.WithLabelValues(name, "hit").Inc() }
func (m *Metrics) CacheMiss(name string) { m.cacheLookups.WithLabelValues(name, "miss").Inc() }

func (m *Metrics) RateLimited() { m.rateLimited.Inc() }

func (m *Metrics) Suspicious(reason string) { m.suspicious.WithLabelValues(reason).Inc() }

func (m *Metrics) Published(ok bool) { m.published.WithLabelValues(outcome(ok)).Inc() }

func (m *Metrics) WorkerProcessed(ok bool) { m.workerProcessed.WithLabelValues(outcome(ok)).Inc() }

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
