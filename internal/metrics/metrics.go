package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records transport and cache activity. A nil *Collector is valid
// and records nothing, so callers never need to guard their calls.
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec

	dedupHits *prometheus.CounterVec

	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	cacheEntries  prometheus.Gauge
	staleDiscards *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the sporthub metrics on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the metrics on reg. gatherer backs Handler and may
// be nil when the caller exposes the registry on its own.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sporthub_requests_total",
				Help: "Total number of API requests by method, endpoint and status code",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sporthub_request_duration_seconds",
				Help:    "Duration of API requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sporthub_request_errors_total",
				Help: "Normalized request failures by kind",
			},
			[]string{"method", "endpoint", "kind"},
		),
		dedupHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sporthub_dedup_hits_total",
				Help: "Requests served by joining an identical in-flight request",
			},
			[]string{"endpoint"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sporthub_query_cache_hits_total",
				Help: "Query activations served from a fresh cache entry",
			},
			[]string{"key"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sporthub_query_cache_misses_total",
				Help: "Query activations that needed a transport round-trip",
			},
			[]string{"key"},
		),
		cacheEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sporthub_query_cache_entries",
				Help: "Number of entries held by the query cache",
			},
		),
		staleDiscards: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sporthub_query_superseded_total",
				Help: "Query completions discarded because a newer fetch started",
			},
			[]string{"key"},
		),
		gatherer: gatherer,
	}
}

// ObserveRequest records a completed round-trip. status is 0 when no response
// was received.
func (c *Collector) ObserveRequest(method, endpoint string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.requestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

// RequestError counts a normalized failure.
func (c *Collector) RequestError(method, endpoint, kind string) {
	if c == nil {
		return
	}
	c.errorsTotal.WithLabelValues(method, endpoint, kind).Inc()
}

// DedupHit counts a request that shared another caller's round-trip.
func (c *Collector) DedupHit(endpoint string) {
	if c == nil {
		return
	}
	c.dedupHits.WithLabelValues(endpoint).Inc()
}

// CacheHit counts an activation answered from cache.
func (c *Collector) CacheHit(key string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(key).Inc()
}

// CacheMiss counts an activation that triggered a fetch.
func (c *Collector) CacheMiss(key string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(key).Inc()
}

// SetCacheEntries reports the current cache size.
func (c *Collector) SetCacheEntries(n int) {
	if c == nil {
		return
	}
	c.cacheEntries.Set(float64(n))
}

// Superseded counts a completion dropped by the last-started-wins rule.
func (c *Collector) Superseded(key string) {
	if c == nil {
		return
	}
	c.staleDiscards.WithLabelValues(key).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
