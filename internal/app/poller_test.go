package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/five82/sporthub/internal/config"
)

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"healthy uses poll interval", 0, defaultPollInterval},
		{"negative treated as healthy", -3, defaultPollInterval},
		{"first failure doubles", 1, 10 * time.Second},
		{"second failure", 2, 20 * time.Second},
		{"third failure hits cap", 3, maxBackoff},
		{"large count stays capped", 64, maxBackoff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calculateBackoff(tt.failures, defaultPollInterval); got != tt.want {
				t.Errorf("calculateBackoff(%d) = %v, want %v", tt.failures, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_NeverExceedsCap(t *testing.T) {
	for _, base := range []time.Duration{time.Millisecond, time.Second, 45 * time.Second} {
		for failures := 1; failures <= 40; failures++ {
			if got := calculateBackoff(failures, base); got > maxBackoff {
				t.Fatalf("calculateBackoff(%d, %v) = %v, exceeds %v", failures, base, got, maxBackoff)
			}
		}
	}
}

func TestPollHealth_ReportsOutcome(t *testing.T) {
	var health atomic.Int32
	health.Store(http.StatusOK)
	srv := timingServer(t, &health)

	cfg, err := config.Load(writeConfig(t, srv.URL))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt, err := newRuntime(cfg, logger, nil)
	if err != nil {
		t.Fatalf("newRuntime: %v", err)
	}
	ctx := context.Background()
	hq := rt.healthQuery()
	hq.Mount(ctx)
	defer hq.Unmount()

	if !pollHealth(ctx, rt.store, hq, logger) {
		t.Fatal("pollHealth = false for a 200 response")
	}
	if snap := rt.store.Snapshot(); !snap.HasHealth || snap.ConsecutiveFailures != 0 {
		t.Fatalf("snapshot after success = %+v", snap)
	}

	health.Store(http.StatusServiceUnavailable)
	if pollHealth(ctx, rt.store, hq, logger) {
		t.Fatal("pollHealth = true for a 503 response")
	}
	if got := rt.store.Snapshot().ConsecutiveFailures; got != 1 {
		t.Fatalf("ConsecutiveFailures = %d, want 1", got)
	}
}

func TestPollHealth_CanceledContextIsNotAFailure(t *testing.T) {
	var health atomic.Int32
	health.Store(http.StatusOK)
	srv := timingServer(t, &health)

	cfg, err := config.Load(writeConfig(t, srv.URL))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt, err := newRuntime(cfg, logger, nil)
	if err != nil {
		t.Fatalf("newRuntime: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hq := rt.healthQuery()
	if !pollHealth(ctx, rt.store, hq, logger) {
		t.Fatal("pollHealth = false after cancellation")
	}
	if got := rt.store.Snapshot().ConsecutiveFailures; got != 0 {
		t.Fatalf("ConsecutiveFailures = %d, want 0", got)
	}
}
