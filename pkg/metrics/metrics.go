// Package metrics exports query store and HTTP metrics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-notehub/cache"
	"github.com/goliatone/go-notehub/note"
	"github.com/goliatone/go-notehub/query"
)

const namespace = "notehub"

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	cacheHits     *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	discarded     *prometheus.CounterVec
	hydrated      *prometheus.CounterVec
	evicted       *prometheus.CounterVec
	requests      *prometheus.CounterVec
	reqDuration   *prometheus.HistogramVec
}

var _ query.Observer = (*Metrics)(nil)

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "query", Name: "cache_hits_total",
			Help: "Reads served from the query store without fetching.",
		}, []string{"kind"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "query", Name: "fetches_total",
			Help: "Settled query fetches by outcome.",
		}, []string{"kind", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "query", Name: "fetch_duration_seconds",
			Help:    "Query fetch latency, retries included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "query", Name: "stale_results_total",
			Help: "Fetch results dropped because a newer fetch started.",
		}, []string{"kind"}),
		hydrated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "query", Name: "hydrated_total",
			Help: "Snapshot entries offered to a store, by whether they were adopted.",
		}, []string{"kind", "adopted"}),
		evicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "query", Name: "evicted_total",
			Help: "Entries collected after their GC window.",
		}, []string{"kind"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cacheHits, m.fetches, m.fetchDuration, m.discarded,
		m.hydrated, m.evicted, m.requests, m.reqDuration,
	)
	return m
}

// Registry exposes the registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) CacheHit(key cache.Key) {
	m.cacheHits.WithLabelValues(string(key.Kind)).Inc()
}

func (m *Metrics) FetchStarted(cache.Key) {}

func (m *Metrics) FetchSettled(key cache.Key, err error, elapsed time.Duration, applied bool) {
	kind := string(key.Kind)
	m.fetches.WithLabelValues(kind, outcome(err)).Inc()
	m.fetchDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if !applied {
		m.discarded.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Hydrated(key cache.Key, adopted bool) {
	m.hydrated.WithLabelValues(string(key.Kind), strconv.FormatBool(adopted)).Inc()
}

func (m *Metrics) Evicted(key cache.Key) {
	m.evicted.WithLabelValues(string(key.Kind)).Inc()
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.reqDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case note.IsNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}
