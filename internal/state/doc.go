// Package state holds the tester board shared by the poller, the UI and
// the headless check.
//
// # Overview
//
// A Store owns one probe query per configured endpoint plus the outcome of
// the background health poll. The UI, the poller and the -check mode all
// read it through Snapshot.
//
//	Producers:                        Consumer (UI / Check):
//	┌──────────────────────┐          ┌──────────────────┐
//	│ Test / TestAll       │          │                  │
//	│   → query.Refetch    │          │                  │
//	│ poller               │─────────→│ store.Snapshot() │
//	│   → RecordHealth     │ (mutex + │      ↓           │
//	│                      │  cache)  │  render rows     │
//	└──────────────────────┘          └──────────────────┘
//
// # Probes
//
// Every probe query is created disabled and keyed ["api-test", path]. It does
// nothing until the user tests it:
//
//	store.Test(ctx, "/classification")
//	→ probe.tested = true
//	→ query.Refetch (always a new round-trip)
//	→ query.SetEnabled(true) (joins the in-flight fetch)
//
//	store.Reset("/classification")
//	→ probe.tested = false
//	→ query.SetEnabled(false), cached data kept
//
// TestAll runs Test and waits for each probe on an errgroup bounded by
// WithConcurrency (default 4). It returns an error naming the failed paths;
// the per-row errors stay available in the Snapshot.
//
// # Health
//
// RecordHealth keeps Flyer-style poll bookkeeping:
//
//	// Success case
//	store.RecordHealth(&resp, nil)
//	→ snapshot.Health = resp
//	→ snapshot.LastError = nil
//	→ snapshot.ConsecutiveFailures = 0
//
//	// Error case: keep old data, record error
//	store.RecordHealth(nil, err)
//	→ snapshot.Health = <unchanged>
//	→ snapshot.LastError = err
//	→ snapshot.ConsecutiveFailures++
//
// IsOffline reports two or more consecutive failures.
//
// # Concurrency Model
//
// The Store's own fields sit behind a sync.RWMutex. Query state lives in the
// query.Cache, which has its own lock; Snapshot reads each row through
// query.State and never holds both locks at once. Snapshot errors are
// wrapped copies so the UI cannot alter the stored value.
package state
