package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/five82/sporthub/internal/query"
	"github.com/five82/sporthub/internal/state"
	"github.com/five82/sporthub/internal/timing"
)

const (
	defaultPollInterval = 5 * time.Second
	maxBackoff          = 30 * time.Second
)

// StartPoller launches a background goroutine that refetches the health
// query and records the outcome in the store. After a failure it waits with
// exponential backoff instead of the fixed interval. It returns immediately.
func StartPoller(ctx context.Context, store *state.Store, health *query.Query[timing.HealthResponse], interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	go func() {
		failures := 0
		timer := time.NewTimer(0)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			if pollHealth(ctx, store, health, logger) {
				failures = 0
			} else {
				failures++
			}
			timer.Reset(calculateBackoff(failures, interval))
		}
	}()
}

// pollHealth runs one health fetch and reports whether it succeeded.
func pollHealth(ctx context.Context, store *state.Store, health *query.Query[timing.HealthResponse], logger *slog.Logger) bool {
	st := health.Fetch(ctx)
	if ctx.Err() != nil {
		return true
	}
	if st.Err != nil {
		store.RecordHealth(nil, st.Err)
		logger.Warn("health poll failed", "error", st.Err.Message)
		return false
	}
	if st.Data == nil {
		return true
	}
	resp := st.Data.Payload
	store.RecordHealth(&resp, nil)
	return true
}

// calculateBackoff doubles base for each consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	if failures > 16 {
		return maxBackoff
	}
	d := base << failures
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}
