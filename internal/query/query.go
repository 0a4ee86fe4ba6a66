package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/five82/sporthub/internal/api"
)

const (
	// DefaultStaleTime is how long a successful result is served without a
	// new round-trip.
	DefaultStaleTime = 5 * time.Minute
	// DefaultCacheTime is how long an unobserved entry survives.
	DefaultCacheTime = 10 * time.Minute
)

// Fetcher performs one round-trip for a query.
type Fetcher[T any] func(ctx context.Context) (api.Envelope[T], error)

// State is what a consumer sees for its key.
type State[T any] struct {
	Status Status
	// Data is the last successful envelope. It is kept while a refetch is
	// pending and cleared by a failure.
	Data *api.Envelope[T]
	// Err is the last failure. It is cleared by a success.
	Err *api.Error
	// IsLoading is true while the entry is pending.
	IsLoading bool
	// IsFetching is true while any execution for the key is in flight.
	IsFetching   bool
	UpdatedAt    time.Time
	FailureCount int
	// Stale reports a success older than the stale time or invalidated.
	Stale bool
}

// Option configures a Query.
type Option func(*settings)

type settings struct {
	enabled   bool
	staleTime time.Duration
	cacheTime time.Duration
	retry     RetryPolicy
}

// WithEnabled controls automatic execution. Disabled queries only run on
// Refetch.
func WithEnabled(enabled bool) Option {
	return func(s *settings) { s.enabled = enabled }
}

// WithStaleTime sets how long a success is reused. Negative values are
// ignored.
func WithStaleTime(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.staleTime = d
		}
	}
}

// WithCacheTime sets how long the entry survives once unobserved. Negative
// values are ignored.
func WithCacheTime(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.cacheTime = d
		}
	}
}

// WithRetry sets the retry policy for each execution.
func WithRetry(p RetryPolicy) Option {
	return func(s *settings) {
		if p.MaxRetries < 0 {
			p.MaxRetries = 0
		}
		s.retry = p
	}
}

// Query is one consumer of a cache key. Queries sharing a key share state
// and in-flight executions.
type Query[T any] struct {
	cache *Cache
	key   Key
	hash  string
	fetch Fetcher[T]

	mu       sync.Mutex
	settings settings
	mounted  bool
}

// New builds a Query for key on cache. Nothing runs until Mount, SetEnabled
// or Refetch.
func New[T any](cache *Cache, key Key, fetch Fetcher[T], opts ...Option) *Query[T] {
	s := settings{
		enabled:   true,
		staleTime: DefaultStaleTime,
		cacheTime: DefaultCacheTime,
		retry:     DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if cache == nil {
		cache = NewCache()
	}
	k := key.clone()
	return &Query[T]{
		cache:    cache,
		key:      k,
		hash:     k.hash(),
		fetch:    fetch,
		settings: s,
	}
}

// Key returns the query's key.
func (q *Query[T]) Key() Key {
	return q.key.clone()
}

// Enabled reports whether automatic execution is allowed.
func (q *Query[T]) Enabled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.settings.enabled
}

// Mount registers the query as an observer of its key and, when enabled,
// executes it unless a fresh result or an in-flight execution exists.
func (q *Query[T]) Mount(ctx context.Context) {
	q.mu.Lock()
	if q.mounted {
		q.mu.Unlock()
		return
	}
	q.mounted = true
	s := q.settings
	q.mu.Unlock()

	q.cache.attach(q.hash, s.cacheTime)
	if s.enabled {
		q.activate(ctx, false, s)
	}
}

// Unmount removes the observer. When no observers remain the entry is
// evicted after the cache time.
func (q *Query[T]) Unmount() {
	q.mu.Lock()
	if !q.mounted {
		q.mu.Unlock()
		return
	}
	q.mounted = false
	q.mu.Unlock()

	q.cache.detach(q.hash)
}

// SetEnabled toggles automatic execution. Enabling a mounted query executes
// it at most once, and only when no valid cached result exists.
func (q *Query[T]) SetEnabled(ctx context.Context, enabled bool) {
	q.mu.Lock()
	was := q.settings.enabled
	q.settings.enabled = enabled
	mounted := q.mounted
	s := q.settings
	q.mu.Unlock()

	if enabled && !was && mounted {
		q.activate(ctx, false, s)
	}
}

// Refetch starts a new execution regardless of enabled state or staleness.
// An execution already in flight for the key is superseded and its result
// dropped.
func (q *Query[T]) Refetch(ctx context.Context) {
	q.mu.Lock()
	s := q.settings
	q.mu.Unlock()
	q.activate(ctx, true, s)
}

// Wait blocks until no execution is in flight for the key, or ctx ends, and
// returns the state at that point.
func (q *Query[T]) Wait(ctx context.Context) State[T] {
	q.cache.wait(ctx, q.hash)
	return q.State()
}

// Fetch is Refetch followed by Wait.
func (q *Query[T]) Fetch(ctx context.Context) State[T] {
	q.Refetch(ctx)
	return q.Wait(ctx)
}

// State returns the current state for the key.
func (q *Query[T]) State() State[T] {
	v, ok := q.cache.view(q.hash)
	if !ok {
		return State[T]{Status: StatusIdle}
	}
	q.mu.Lock()
	staleTime := q.settings.staleTime
	q.mu.Unlock()

	st := State[T]{
		Status:       v.status,
		Err:          v.err,
		IsLoading:    v.status == StatusPending,
		IsFetching:   v.fetching,
		UpdatedAt:    v.updatedAt,
		FailureCount: v.failureCount,
	}
	if env, ok := v.data.(api.Envelope[T]); ok {
		st.Data = &env
	}
	if st.Data != nil && !v.updatedAt.IsZero() {
		st.Stale = v.invalidated || v.now.Sub(v.updatedAt) >= staleTime
	}
	return st
}

func (q *Query[T]) activate(ctx context.Context, force bool, s settings) {
	if ctx == nil {
		ctx = context.Background()
	}
	q.cache.start(ctx, q.key, q.hash, force, s.staleTime, s.cacheTime, func(ctx context.Context) (any, *api.Error) {
		return s.retry.run(ctx, q.runOnce)
	})
}

func (q *Query[T]) runOnce(ctx context.Context) (v any, err error) {
	if q.fetch == nil {
		return nil, fmt.Errorf("query %s has no fetcher", q.key)
	}
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("query %s fetcher panicked: %v", q.key, r)
		}
	}()
	env, err := q.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return env, nil
}
