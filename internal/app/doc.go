// Package app is the composition root of sporthub.
//
// # Overview
//
// This package wires together configuration, logging, the API client, the
// query cache, the probe board and the UI. It also hosts the background
// health poller and the headless check mode.
//
// # Architecture
//
// Run follows a simple initialization pattern:
//
//  1. Load config (TOML file plus SPORTHUB_API_* environment overrides)
//  2. Open the diagnostic log file and install a JSON slog handler
//  3. Build the api.Client (rate limiter, de-duplication, metrics)
//  4. Build the query.Cache with a notify hook that wakes the UI
//  5. Create the state.Store with one disabled probe per endpoint
//  6. Start the metrics server when metrics_addr is set
//  7. Launch the health poller goroutine
//  8. Start the TUI and block until the user exits or the context cancels
//
// Check shares steps 1, 3, 4 and 5, logs as text to stderr, runs
// Store.TestAll and writes a PASS/FAIL report.
//
// # Components
//
//   - app.go: Run, Check and the shared runtime wiring
//   - poller.go: health polling with exponential backoff
//   - report.go: the -check report
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()        Read config + env
//	       ├─────> api.NewClient()      Transport
//	       ├─────> query.NewCache()     Shared result cache
//	       ├─────> state.NewStore()     Probe board
//	       ├─────> serveMetrics()       /metrics (optional)
//	       ├─────> StartPoller()        Health polling
//	       └─────> ui.Run()             Start TUI (blocks)
//
//	Background Poller Loop:
//	┌─────────────────────────────────────────┐
//	│ StartPoller() goroutine                 │
//	│  ├─> health query Fetch (GET /health)   │
//	│  ├─> store.RecordHealth()               │
//	│  └─> wait interval, or backoff on error │
//	└─────────────────────────────────────────┘
//
// # Polling Behavior
//
// The poller fetches /health at poll_interval (default 5 seconds). After a
// failure the wait doubles per consecutive failure and is capped at 30
// seconds; the first success restores the normal interval. Two consecutive
// failures mark the API offline in the header.
//
// # Error Handling
//
// Fatal errors (returned from Run and Check):
//   - Configuration file unreadable or invalid
//   - Log file cannot be created
//   - Malformed api_base_url
//
// Recoverable errors (logged and shown in the UI):
//   - Health poll failures
//   - Endpoint test failures
//
// Check additionally returns an error when any endpoint failed, so the
// process exits non-zero.
package app
