package state

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/five82/sporthub/internal/api"
	"github.com/five82/sporthub/internal/query"
	"github.com/five82/sporthub/internal/timing"
)

type fakeRequester struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func newFakeRequester() *fakeRequester {
	return &fakeRequester{calls: make(map[string]int), fail: make(map[string]bool)}
}

func (f *fakeRequester) Do(ctx context.Context, endpoint string, opts api.RequestOptions) (api.Envelope[json.RawMessage], error) {
	f.mu.Lock()
	f.calls[endpoint]++
	fail := f.fail[endpoint]
	f.mu.Unlock()
	if fail {
		return api.Envelope[json.RawMessage]{}, &api.Error{Kind: api.KindHTTP, Message: "HTTP error! status: 500", HTTPStatus: 500}
	}
	return api.Envelope[json.RawMessage]{
		Payload:    json.RawMessage(`{"status":"ok","data":{"path":"` + endpoint + `"}}`),
		StatusCode: 200,
	}, nil
}

func (f *fakeRequester) count(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

func newTestStore(t *testing.T, r api.Requester) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := query.NewCache(query.WithLogger(logger))
	s := NewStore(cache, r, timing.DefaultEndpoints(),
		WithLogger(logger),
		WithQueryOptions(query.WithRetry(query.NoRetry())),
	)
	s.Mount(context.Background())
	t.Cleanup(s.Close)
	return s
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestStore_ProbesStayIdleUntilTested(t *testing.T) {
	r := newFakeRequester()
	s := newTestStore(t, r)

	if n := s.Cache().Len(); n != 0 {
		t.Fatalf("cache entries = %d, want 0 before any test", n)
	}
	snap := s.Snapshot()
	if len(snap.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(snap.Rows))
	}
	for _, row := range snap.Rows {
		if row.Tested || row.State.Status != query.StatusIdle {
			t.Fatalf("row %s = %+v, want untested idle", row.Endpoint.Path, row)
		}
		if _, ok := row.Summary(); ok {
			t.Fatalf("Summary should be empty before a test")
		}
	}
	if r.count(timing.ClassificationPath) != 0 {
		t.Fatalf("no request expected before a test")
	}
}

func TestStore_TestFetchesOnce(t *testing.T) {
	r := newFakeRequester()
	s := newTestStore(t, r)

	if err := s.Test(context.Background(), timing.ClassificationPath); err != nil {
		t.Fatalf("Test: %v", err)
	}
	row, err := s.Wait(waitCtx(t), timing.ClassificationPath)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !row.Tested || row.State.Status != query.StatusSuccess {
		t.Fatalf("row = %+v, want tested success", row)
	}
	if got := r.count(timing.ClassificationPath); got != 1 {
		t.Fatalf("requests = %d, want 1", got)
	}
	sum, ok := row.Summary()
	if !ok || sum.Status != "ok" || !strings.Contains(string(sum.Data), "/classification") {
		t.Fatalf("Summary = %+v, %v", sum, ok)
	}
	if row.LastTested.IsZero() {
		t.Fatalf("LastTested should be set")
	}
}

func TestStore_ResetDisablesButKeepsData(t *testing.T) {
	r := newFakeRequester()
	s := newTestStore(t, r)

	_ = s.Test(context.Background(), timing.HealthPath)
	if _, err := s.Wait(waitCtx(t), timing.HealthPath); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if err := s.Reset(timing.HealthPath); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	row, _ := s.Wait(waitCtx(t), timing.HealthPath)
	if row.Tested {
		t.Fatalf("Tested = true after Reset")
	}
	if row.State.Data == nil {
		t.Fatalf("Reset should not drop cached data")
	}

	_ = s.Test(context.Background(), timing.HealthPath)
	_, _ = s.Wait(waitCtx(t), timing.HealthPath)
	if got := r.count(timing.HealthPath); got != 2 {
		t.Fatalf("requests = %d, want 2 (test always refetches)", got)
	}
}

func TestStore_TestAllReportsFailures(t *testing.T) {
	r := newFakeRequester()
	r.fail[timing.HealthPath] = true
	s := newTestStore(t, r)

	err := s.TestAll(waitCtx(t))
	if err == nil || !strings.Contains(err.Error(), "1 of 2 endpoints failed") {
		t.Fatalf("TestAll err = %v, want 1 of 2 failed", err)
	}
	if r.count(timing.HealthPath) != 1 || r.count(timing.ClassificationPath) != 1 {
		t.Fatalf("each endpoint should be requested once, got %v", r.calls)
	}

	snap := s.Snapshot()
	failed := snap.Failed()
	if len(failed) != 1 || failed[0].Endpoint.Path != timing.HealthPath {
		t.Fatalf("Failed = %+v", failed)
	}
	if failed[0].State.Err.Message != "HTTP error! status: 500" {
		t.Fatalf("error message = %q", failed[0].State.Err.Message)
	}
}

func TestStore_InvalidateAllRefetchesTestedOnly(t *testing.T) {
	r := newFakeRequester()
	s := newTestStore(t, r)

	_ = s.Test(context.Background(), timing.ClassificationPath)
	_, _ = s.Wait(waitCtx(t), timing.ClassificationPath)

	if n := s.InvalidateAll(context.Background()); n != 1 {
		t.Fatalf("InvalidateAll = %d, want 1", n)
	}
	_, _ = s.Wait(waitCtx(t), timing.ClassificationPath)

	if got := r.count(timing.ClassificationPath); got != 2 {
		t.Fatalf("classification requests = %d, want 2", got)
	}
	if got := r.count(timing.HealthPath); got != 0 {
		t.Fatalf("health requests = %d, want 0", got)
	}
}

func TestStore_UnknownEndpoint(t *testing.T) {
	s := newTestStore(t, newFakeRequester())
	if err := s.Test(context.Background(), "/nope"); err == nil {
		t.Fatalf("Test(/nope) should fail")
	}
	if err := s.Reset("/nope"); err == nil {
		t.Fatalf("Reset(/nope) should fail")
	}
}

func TestStore_DuplicatePathsCollapse(t *testing.T) {
	eps := append(timing.DefaultEndpoints(), timing.Endpoint{Path: timing.HealthPath, Title: "again"})
	s := NewStore(query.NewCache(), newFakeRequester(), eps)
	if got := len(s.Endpoints()); got != 2 {
		t.Fatalf("Endpoints = %d, want 2", got)
	}
}

func TestStore_RecordHealthAndSnapshotClone(t *testing.T) {
	s := NewStore(query.NewCache(), newFakeRequester(), nil)

	before := time.Now()
	s.RecordHealth(&timing.HealthResponse{Status: "ok"}, nil)

	snap := s.Snapshot()
	if !snap.HasHealth || snap.Health.Status != "ok" {
		t.Fatalf("snapshot health = %#v, want ok HasHealth=true", snap.Health)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError != nil {
		t.Fatalf("LastError = %v, want nil", snap.LastError)
	}
}

func TestStore_RecordHealthErrorKeepsPreviousData(t *testing.T) {
	s := NewStore(query.NewCache(), newFakeRequester(), nil)

	s.RecordHealth(&timing.HealthResponse{Status: "ok"}, nil)
	prev := s.Snapshot()

	before := time.Now()
	origErr := errors.New("boom")
	s.RecordHealth(nil, origErr)

	snap := s.Snapshot()
	if snap.HasHealth != prev.HasHealth || snap.Health.Status != prev.Health.Status {
		t.Fatalf("health changed on error: got %#v want %#v", snap.Health, prev.Health)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	s := NewStore(query.NewCache(), newFakeRequester(), nil)

	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("fresh store: failures = %d offline = %v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	for i, wantOffline := range []bool{false, true, true} {
		s.RecordHealth(nil, errors.New("fail"))
		snap = s.Snapshot()
		if snap.ConsecutiveFailures != i+1 {
			t.Fatalf("ConsecutiveFailures = %d, want %d", snap.ConsecutiveFailures, i+1)
		}
		if snap.IsOffline() != wantOffline {
			t.Fatalf("IsOffline() = %v after %d failures, want %v", snap.IsOffline(), i+1, wantOffline)
		}
	}

	// Success resets counter
	s.RecordHealth(&timing.HealthResponse{Status: "ok"}, nil)
	snap = s.Snapshot()
	if snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("after success: failures = %d offline = %v", snap.ConsecutiveFailures, snap.IsOffline())
	}
}
