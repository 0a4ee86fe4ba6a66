package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/sporthub/internal/api"
	"github.com/five82/sporthub/internal/query"
	"github.com/five82/sporthub/internal/timing"
)

const defaultConcurrency = 4

// Row is one endpoint on the tester board.
type Row struct {
	Endpoint   timing.Endpoint
	Tested     bool
	LastTested time.Time
	State      query.State[json.RawMessage]
}

// Summary decodes the optional message, status and data fields of the
// latest payload.
func (r Row) Summary() (timing.ProbeResponse, bool) {
	if r.State.Data == nil {
		return timing.ProbeResponse{}, false
	}
	return timing.SummarizeProbe(r.State.Data.Payload), true
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Rows                []Row
	Health              timing.HealthResponse
	HasHealth           bool
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive health poll failures
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Failed returns the rows whose last test ended in an error.
func (s Snapshot) Failed() []Row {
	var out []Row
	for _, r := range s.Rows {
		if r.Tested && r.State.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

type probe struct {
	endpoint   timing.Endpoint
	q          *query.Query[json.RawMessage]
	tested     bool
	lastTested time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithQueryOptions applies opts to every probe query.
func WithQueryOptions(opts ...query.Option) Option {
	return func(s *Store) { s.queryOpts = append(s.queryOpts, opts...) }
}

// WithConcurrency bounds how many probes TestAll runs at once.
func WithConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store coordinates the probe queries and the health poll results.
type Store struct {
	cache       *query.Cache
	queryOpts   []query.Option
	concurrency int
	logger      *slog.Logger

	mu     sync.RWMutex
	probes []*probe
	byPath map[string]*probe
	health Snapshot
}

// NewStore builds one disabled probe query per endpoint. Duplicate paths
// are collapsed onto the first occurrence.
func NewStore(cache *query.Cache, r api.Requester, endpoints []timing.Endpoint, opts ...Option) *Store {
	s := &Store{
		cache:       cache,
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
		byPath:      make(map[string]*probe),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, ep := range endpoints {
		if _, dup := s.byPath[ep.Path]; dup {
			continue
		}
		qopts := append([]query.Option{}, s.queryOpts...)
		qopts = append(qopts, query.WithEnabled(false))
		p := &probe{
			endpoint: ep,
			q:        query.New(cache, timing.ProbeKey(ep.Path), timing.ProbeFetcher(r, ep.Path), qopts...),
		}
		s.probes = append(s.probes, p)
		s.byPath[ep.Path] = p
	}
	return s
}

// Cache returns the query cache backing the store.
func (s *Store) Cache() *query.Cache {
	return s.cache
}

// Endpoints lists the board in display order.
func (s *Store) Endpoints() []timing.Endpoint {
	out := make([]timing.Endpoint, len(s.probes))
	for i, p := range s.probes {
		out[i] = p.endpoint
	}
	return out
}

// Mount attaches every probe to the cache. Probes stay idle until tested.
func (s *Store) Mount(ctx context.Context) {
	for _, p := range s.probes {
		p.q.Mount(ctx)
	}
}

// Close detaches every probe so unused entries can be evicted.
func (s *Store) Close() {
	for _, p := range s.probes {
		p.q.Unmount()
	}
}

// Test marks path as tested and fetches it. A fetch already in flight is
// superseded.
func (s *Store) Test(ctx context.Context, path string) error {
	p, err := s.lookup(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	p.tested = true
	p.lastTested = time.Now()
	s.mu.Unlock()

	p.q.Refetch(ctx)
	p.q.SetEnabled(ctx, true)
	s.logger.Debug("endpoint test started", "path", path)
	return nil
}

// Reset hides the result of path and stops automatic fetching. Cached data
// is kept until evicted.
func (s *Store) Reset(path string) error {
	p, err := s.lookup(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	p.tested = false
	s.mu.Unlock()

	p.q.SetEnabled(context.Background(), false)
	return nil
}

// Refetch re-runs path without changing its tested flag.
func (s *Store) Refetch(ctx context.Context, path string) error {
	p, err := s.lookup(path)
	if err != nil {
		return err
	}
	p.q.Refetch(ctx)
	return nil
}

// Wait blocks until path has no fetch in flight.
func (s *Store) Wait(ctx context.Context, path string) (Row, error) {
	p, err := s.lookup(path)
	if err != nil {
		return Row{}, err
	}
	p.q.Wait(ctx)
	return s.row(p), nil
}

// TestAll tests every endpoint and waits for the results. It returns an
// error naming how many endpoints failed.
func (s *Store) TestAll(ctx context.Context) error {
	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed []string
	)
	g.SetLimit(s.concurrency)
	for _, p := range s.probes {
		g.Go(func() error {
			if err := s.Test(ctx, p.endpoint.Path); err != nil {
				return err
			}
			st := p.q.Wait(ctx)
			if st.Err != nil {
				mu.Lock()
				failed = append(failed, p.endpoint.Path)
				mu.Unlock()
			}
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("test endpoints: %w", err)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d endpoints failed: %v", len(failed), len(s.probes), failed)
	}
	return nil
}

// InvalidateAll marks every probe stale and refetches the tested ones.
func (s *Store) InvalidateAll(ctx context.Context) int {
	n := s.cache.Invalidate(timing.ProbePrefix())
	s.mu.RLock()
	var tested []*probe
	for _, p := range s.probes {
		if p.tested {
			tested = append(tested, p)
		}
	}
	s.mu.RUnlock()
	for _, p := range tested {
		p.q.Refetch(ctx)
	}
	return n
}

// RecordHealth stores the outcome of one health poll. When err is non-nil
// the previous payload is kept but the error is recorded for visibility.
func (s *Store) RecordHealth(resp *timing.HealthResponse, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.health.LastUpdated = time.Now()
	if err != nil {
		s.health.LastError = err
		s.health.ConsecutiveFailures++
		return
	}
	if resp != nil {
		s.health.Health = *resp
		s.health.HasHealth = true
	} else {
		s.health.HasHealth = false
	}
	s.health.LastError = nil
	s.health.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current board and health state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	snap := s.health
	if s.health.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.health.LastError)
	}
	s.mu.RUnlock()

	snap.Rows = make([]Row, 0, len(s.probes))
	for _, p := range s.probes {
		snap.Rows = append(snap.Rows, s.row(p))
	}
	return snap
}

func (s *Store) row(p *probe) Row {
	s.mu.RLock()
	r := Row{Endpoint: p.endpoint, Tested: p.tested, LastTested: p.lastTested}
	s.mu.RUnlock()
	r.State = p.q.State()
	return r
}

func (s *Store) lookup(path string) (*probe, error) {
	p, ok := s.byPath[path]
	if !ok {
		return nil, fmt.Errorf("unknown endpoint %q", path)
	}
	return p, nil
}
