package query

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/sporthub/internal/api"
	"github.com/five82/sporthub/internal/metrics"
)

// Status is the lifecycle position of a cache entry.
type Status int

const (
	// StatusIdle: no fetch has run for the key yet.
	StatusIdle Status = iota
	// StatusPending: a fetch is in flight.
	StatusPending
	// StatusSuccess: the last settled fetch returned data.
	StatusSuccess
	// StatusFailure: the last settled fetch returned an error.
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	default:
		return "idle"
	}
}

// Cache holds query results by key. It is owned by the application and
// shared by every Query built on it. Safe for concurrent use.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	observers map[string]int

	now     func() time.Time
	notify  func(Key)
	logger  *slog.Logger
	metrics *metrics.Collector
}

type entry struct {
	key  Key
	hash string

	status       Status
	data         any
	err          *api.Error
	updatedAt    time.Time
	failureCount int
	invalidated  bool
	// invalidatedAt is the newest token started before the last
	// invalidation. Only a later execution may clear invalidated.
	invalidatedAt uint64

	// token identifies the newest execution; completions carrying an older
	// token are dropped.
	token  uint64
	flight *flight

	cacheTime  time.Duration
	releasedAt time.Time
	gcTimer    *time.Timer
	gcGen      uint64
}

type flight struct {
	token uint64
	done  chan struct{}
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock replaces time.Now for staleness and eviction decisions.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithNotify registers fn to be called after any entry changes. fn runs
// outside the cache lock and must not block for long.
func WithNotify(fn func(Key)) CacheOption {
	return func(c *Cache) { c.notify = fn }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records cache hits, misses and size on m.
func WithMetrics(m *metrics.Collector) CacheOption {
	return func(c *Cache) { c.metrics = m }
}

// NewCache returns an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries:   make(map[string]*entry),
		observers: make(map[string]int),
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Len returns the number of entries held.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the keys of all entries.
func (c *Cache) Keys() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]Key, 0, len(c.entries))
	for _, e := range c.entries {
		keys = append(keys, e.key.clone())
	}
	return keys
}

// Invalidate marks every entry whose key starts with prefix as stale, so the
// next activation refetches. Data is kept. It returns the number of entries
// marked.
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	var touched []Key
	for _, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			e.invalidated = true
			e.invalidatedAt = e.token
			touched = append(touched, e.key)
		}
	}
	c.mu.Unlock()

	if len(touched) > 0 {
		c.logger.Debug("query cache invalidated", "prefix", prefix.String(), "entries", len(touched))
	}
	for _, k := range touched {
		c.fire(k)
	}
	return len(touched)
}

// Remove drops every entry whose key starts with prefix. In-flight fetches
// for removed entries complete without effect.
func (c *Cache) Remove(prefix Key) int {
	c.mu.Lock()
	var removed []Key
	for hash, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			c.deleteLocked(hash, e)
			removed = append(removed, e.key)
		}
	}
	c.mu.Unlock()

	for _, k := range removed {
		c.fire(k)
	}
	return len(removed)
}

// Sweep evicts every unobserved, idle entry whose cache time has elapsed
// since its last observer left. Eviction also happens on timers; Sweep lets
// callers drive it with their own clock.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	now := c.now()
	var evicted []Key
	for hash, e := range c.entries {
		if c.observers[hash] > 0 || e.flight != nil || e.releasedAt.IsZero() {
			continue
		}
		if now.Sub(e.releasedAt) >= e.cacheTime {
			c.deleteLocked(hash, e)
			evicted = append(evicted, e.key)
		}
	}
	c.mu.Unlock()

	for _, k := range evicted {
		c.logger.Debug("query cache entry evicted", "key", k.String())
		c.fire(k)
	}
	return len(evicted)
}

// attach registers one observer of key.
func (c *Cache) attach(hash string, cacheTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers[hash]++
	if e, ok := c.entries[hash]; ok {
		if cacheTime > e.cacheTime {
			e.cacheTime = cacheTime
		}
		if e.gcTimer != nil {
			e.gcTimer.Stop()
			e.gcTimer = nil
		}
		e.releasedAt = time.Time{}
	}
}

// detach removes one observer; the last one out arms eviction.
func (c *Cache) detach(hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.observers[hash] > 0 {
		c.observers[hash]--
	}
	if c.observers[hash] > 0 {
		return
	}
	delete(c.observers, hash)
	if e, ok := c.entries[hash]; ok && e.flight == nil {
		c.armGCLocked(e)
	}
}

// start begins an execution for key unless a fresh result or an in-flight
// execution can serve it. force always starts a new execution and supersedes
// any in-flight one.
func (c *Cache) start(ctx context.Context, key Key, hash string, force bool, staleTime, cacheTime time.Duration, run func(context.Context) (any, *api.Error)) {
	c.mu.Lock()
	e, ok := c.entries[hash]
	if !ok {
		e = &entry{key: key.clone(), hash: hash}
		c.entries[hash] = e
	}
	if cacheTime > e.cacheTime {
		e.cacheTime = cacheTime
	}
	if !force {
		if e.flight != nil {
			c.mu.Unlock()
			return
		}
		if e.freshAt(c.now(), staleTime) {
			c.mu.Unlock()
			c.metrics.CacheHit(key.String())
			return
		}
	}

	e.token++
	f := &flight{token: e.token, done: make(chan struct{})}
	e.flight = f
	e.status = StatusPending
	if e.gcTimer != nil {
		e.gcTimer.Stop()
		e.gcTimer = nil
	}
	size := len(c.entries)
	c.mu.Unlock()

	c.metrics.CacheMiss(key.String())
	c.metrics.SetCacheEntries(size)
	c.logger.Debug("query fetch started", "key", key.String(), "token", f.token, "forced", force)
	c.fire(e.key)

	go c.execute(ctx, e, f, run)
}

func (c *Cache) execute(ctx context.Context, e *entry, f *flight, run func(context.Context) (any, *api.Error)) {
	data, apiErr := run(ctx)

	c.mu.Lock()
	if c.entries[e.hash] != e || e.token != f.token {
		c.mu.Unlock()
		close(f.done)
		c.metrics.Superseded(e.key.String())
		c.logger.Debug("query result discarded", "key", e.key.String(), "token", f.token)
		return
	}
	e.flight = nil
	e.updatedAt = c.now()
	if apiErr != nil {
		e.status = StatusFailure
		e.err = apiErr
		e.data = nil
		e.failureCount++
	} else {
		e.status = StatusSuccess
		e.data = data
		e.err = nil
		e.failureCount = 0
		if f.token > e.invalidatedAt {
			e.invalidated = false
		}
	}
	if c.observers[e.hash] == 0 {
		c.armGCLocked(e)
	}
	c.mu.Unlock()

	c.fire(e.key)
	close(f.done)
}

// wait blocks until key has no execution in flight or ctx ends.
func (c *Cache) wait(ctx context.Context, hash string) {
	for {
		c.mu.Lock()
		e, ok := c.entries[hash]
		if !ok || e.flight == nil {
			c.mu.Unlock()
			return
		}
		done := e.flight.done
		c.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return
		}
	}
}

// view copies an entry's state under the lock.
func (c *Cache) view(hash string) (entryView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[hash]
	if !ok {
		return entryView{}, false
	}
	v := entryView{
		status:       e.status,
		data:         e.data,
		updatedAt:    e.updatedAt,
		failureCount: e.failureCount,
		invalidated:  e.invalidated,
		fetching:     e.flight != nil,
		now:          c.now(),
	}
	if e.err != nil {
		errCopy := *e.err
		v.err = &errCopy
	}
	return v, true
}

type entryView struct {
	status       Status
	data         any
	err          *api.Error
	updatedAt    time.Time
	failureCount int
	invalidated  bool
	fetching     bool
	now          time.Time
}

func (e *entry) freshAt(now time.Time, staleTime time.Duration) bool {
	if e.status != StatusSuccess || e.invalidated {
		return false
	}
	return now.Sub(e.updatedAt) < staleTime
}

func (c *Cache) armGCLocked(e *entry) {
	e.releasedAt = c.now()
	if e.gcTimer != nil {
		e.gcTimer.Stop()
		e.gcTimer = nil
	}
	if e.cacheTime <= 0 {
		c.deleteLocked(e.hash, e)
		return
	}
	e.gcGen++
	gen := e.gcGen
	e.gcTimer = time.AfterFunc(e.cacheTime, func() { c.collect(e, gen) })
}

func (c *Cache) collect(e *entry, gen uint64) {
	c.mu.Lock()
	if c.entries[e.hash] != e || c.observers[e.hash] > 0 || e.flight != nil || e.gcGen != gen {
		c.mu.Unlock()
		return
	}
	c.deleteLocked(e.hash, e)
	c.mu.Unlock()

	c.logger.Debug("query cache entry evicted", "key", e.key.String())
	c.fire(e.key)
}

func (c *Cache) deleteLocked(hash string, e *entry) {
	if e.gcTimer != nil {
		e.gcTimer.Stop()
		e.gcTimer = nil
	}
	delete(c.entries, hash)
	c.metrics.SetCacheEntries(len(c.entries))
}

func (c *Cache) fire(k Key) {
	if c.notify != nil {
		c.notify(k.clone())
	}
}
