package timing

import (
	"context"
	"encoding/json"

	"github.com/five82/sporthub/internal/api"
	"github.com/five82/sporthub/internal/query"
)

const (
	// HealthPath is the liveness endpoint.
	HealthPath = "/health"
	// ClassificationPath serves the live standings.
	ClassificationPath = "/classification"

	probeKeyPrefix = "api-test"
)

// Endpoint is one entry on the tester board.
type Endpoint struct {
	Path        string `toml:"path"`
	Title       string `toml:"title"`
	Description string `toml:"description"`
}

// DefaultEndpoints returns the endpoints shown when configuration lists none.
func DefaultEndpoints() []Endpoint {
	return []Endpoint{
		{
			Path:        ClassificationPath,
			Title:       "Classification Endpoint",
			Description: "Test the classification endpoint of the API",
		},
		{
			Path:        HealthPath,
			Title:       "Health Endpoint",
			Description: "Check that the API is reachable",
		},
	}
}

// ProbeKey is the cache key for a tester probe of path.
func ProbeKey(path string) query.Key {
	return query.Key{probeKeyPrefix, path}
}

// ProbePrefix matches every probe key.
func ProbePrefix() query.Key {
	return query.Key{probeKeyPrefix}
}

// HealthKey is the cache key used by the background health poller.
func HealthKey() query.Key {
	return query.Key{"health"}
}

// FetchHealth calls /health.
func FetchHealth(ctx context.Context, r api.Requester) (api.Envelope[HealthResponse], error) {
	return api.Get[HealthResponse](ctx, r, HealthPath)
}

// FetchClassification calls /classification.
func FetchClassification(ctx context.Context, r api.Requester) (api.Envelope[ClassificationTable], error) {
	return api.Get[ClassificationTable](ctx, r, ClassificationPath)
}

// Probe issues a GET against path and keeps the payload undecoded.
func Probe(ctx context.Context, r api.Requester, path string) (api.Envelope[json.RawMessage], error) {
	return api.Get[json.RawMessage](ctx, r, path)
}

// ProbeFetcher adapts Probe for a query.
func ProbeFetcher(r api.Requester, path string) query.Fetcher[json.RawMessage] {
	return func(ctx context.Context) (api.Envelope[json.RawMessage], error) {
		return Probe(ctx, r, path)
	}
}

// HealthFetcher adapts FetchHealth for a query.
func HealthFetcher(r api.Requester) query.Fetcher[HealthResponse] {
	return func(ctx context.Context) (api.Envelope[HealthResponse], error) {
		return FetchHealth(ctx, r)
	}
}
