// Package query caches API results by key and tracks their fetch lifecycle.
//
// # Overview
//
// A Cache maps keys (ordered string segments such as ["api-test", "/health"])
// to entries holding the last result, the last error and the bookkeeping
// needed to decide when to fetch again. A Query is one consumer of a key:
// UI components mount it, toggle it, refetch it and read its State.
//
// The cache is an explicit object owned by the application, not ambient
// state, so staleness and eviction can be tested without a UI.
//
// # Lifecycle
//
//	idle ──activate──> pending ──ok──> success
//	                      │      └─err─> failure
//	                      └── Refetch from success/failure returns here
//
// Activation happens on Mount of an enabled query, on SetEnabled(true) of a
// mounted one, and on Refetch. Non-forced activations are skipped when the
// entry holds a success younger than the stale time that has not been
// invalidated, and join the in-flight execution when one exists, so any
// number of concurrent consumers cause a single round-trip.
//
// # Ordering
//
// Each execution carries a per-key token. Refetch always starts a new
// execution with a new token; when an older execution completes later its
// result is dropped. Transport calls are never cancelled on supersede, the
// stale answer is simply ignored.
//
// # Staleness and Eviction
//
//   - staleTime (default 5m): how long a success is reused without a new
//     round-trip. Staleness never removes data.
//   - cacheTime (default 10m): how long an entry survives after its last
//     observer unmounts. Eviction runs on timers, or through Sweep with an
//     injected clock.
//
// staleTime greater than cacheTime is allowed; entries then turn stale
// before they could be evicted, which is harmless.
//
// # Retries
//
// Each execution retries failures according to its RetryPolicy (default: one
// immediate retry). A failure that survives the retries stays until the next
// Refetch, enable toggle or re-activation.
//
// # Mutations
//
// Mutation wraps writes. It has no key and no cache; each call settles on
// its own and fires OnSuccess or OnError exactly once. Cache.Invalidate is
// the only link between writes and cached reads, and MutationOptions can
// apply it automatically after a success.
package query
