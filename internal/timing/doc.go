// Package timing describes the sports-timing API that sporthub exercises.
//
// # Overview
//
// The package holds the payload types of the timing backend and thin typed
// wrappers over the generic api verbs. It does no transport work itself:
// every call goes through an api.Requester, so tests substitute a fake and
// the application passes its *api.Client.
//
// # Endpoints
//
//   - GET /health: liveness, decoded into HealthResponse
//   - GET /classification: live standings, decoded into ClassificationTable
//
// Any other configured path is probed with Probe, which keeps the payload as
// raw JSON. SummarizeProbe pulls the optional message, status and data fields
// out of it for display.
//
// # Cache Keys
//
// Tester probes are cached under ["api-test", path]; the background health
// poller uses ["health"]. ProbePrefix matches every probe, so invalidating it
// refreshes the whole board without touching the poller.
//
// # Standings
//
// Standing carries the raw millisecond fields plus helpers that convert them:
//
//	st.TotalTime()       // time.Duration
//	st.GapLabel()        // "Leader", "+1 lap", "+0:12.345"
//	st.ParsedLastPass()  // time.Time, zero when unparseable
//
// Timestamps are accepted as RFC 3339 or "2006-01-02 15:04:05" local time.
package timing
