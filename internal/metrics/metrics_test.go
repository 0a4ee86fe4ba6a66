package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveRequest("GET", "/health", 200, time.Millisecond)
		c.RequestError("GET", "/health", "network")
		c.DedupHit("/health")
		c.CacheHit("api-test/health")
		c.CacheMiss("api-test/health")
		c.SetCacheEntries(3)
		c.Superseded("api-test/health")
	})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCollector_CountsRequestsAndCache(t *testing.T) {
	c := New()

	c.ObserveRequest("GET", "/health", 200, 20*time.Millisecond)
	c.ObserveRequest("GET", "/health", 200, 30*time.Millisecond)
	c.ObserveRequest("GET", "/health", 503, 10*time.Millisecond)
	c.RequestError("GET", "/health", "http")
	c.CacheHit("api-test/health")
	c.CacheMiss("api-test/health")
	c.CacheMiss("api-test/health")
	c.SetCacheEntries(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requestsTotal.WithLabelValues("GET", "/health", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requestsTotal.WithLabelValues("GET", "/health", "503")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.errorsTotal.WithLabelValues("GET", "/health", "http")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheHits.WithLabelValues("api-test/health")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheMisses.WithLabelValues("api-test/health")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheEntries))
}

func TestCollector_HandlerServesRegistry(t *testing.T) {
	c := New()
	c.DedupHit("/classification")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "sporthub_dedup_hits_total"),
		"metrics output missing dedup counter:\n%s", rec.Body.String())
}
