// Package api provides the typed HTTP client for the sports timing API.
//
// # Overview
//
// Every call made by sporthub goes through this package. It builds requests
// against a configured base address, attaches the static credential header,
// encodes JSON bodies and turns every outcome into one of two shapes:
//
//   - Envelope[T]: decoded payload plus the HTTP status code
//   - *Error: {message, statusCode}, the only failure shape callers ever see
//
// # Architecture
//
//   - client.go: Client, options and the raw round-trip
//   - envelope.go: Envelope, RequestOptions, Requester and the generic verbs
//   - errors.go: Error, ErrorKind and normalization helpers
//
// # Client Usage
//
//	client, err := api.NewClient("https://api.example.com", os.Getenv("SPORTHUB_API_KEY"))
//	if err != nil {
//		log.Fatalf("init client: %v", err)
//	}
//
//	env, err := api.Get[timing.HealthResponse](ctx, client, "/health")
//	if err != nil {
//		apiErr := api.AsError(err)
//		log.Printf("health failed: %s (status %d)", apiErr.Message, apiErr.StatusCode)
//	}
//
// Go methods cannot carry type parameters, so the four verbs are package
// functions taking a Requester. Anything implementing Requester (a fake in
// tests, a recording wrapper) can stand in for *Client.
//
// # URL Construction
//
// The request URL is the base address followed by the endpoint string, with
// no path normalization. "/health" against "https://api.example.com" yields
// "https://api.example.com/health"; callers own the slashes.
//
// # Headers
//
// Each request carries Content-Type and Accept set to application/json, a
// User-Agent, an X-Request-Id (random UUID) and the credential header
// (X-API-Key unless configured otherwise). Headers in RequestOptions replace
// the defaults. When no API key is configured the credential header is left
// out and a warning is logged once, when the client is built.
//
// # Error Normalization
//
// No raw transport error crosses the package boundary:
//
//   - Network failure (DNS, refused, timeout): Error{err.Error(), 0}
//   - Non-2xx response: Error{"HTTP error! status: <code>", 0}
//   - Malformed JSON: Error{decoder message, 0}
//
// For non-2xx responses StatusCode stays 0 by default and the status only
// appears in the message. WithStatusPropagation stores the real status in
// StatusCode. Error.HTTPStatus always carries it for Go callers, and
// Error.Kind tells the causes apart; both are omitted from the JSON form.
//
// # Optional Behavior
//
//   - WithRateLimiter: wait on a golang.org/x/time/rate limiter per request
//   - WithDeduplication: share one round-trip between identical concurrent
//     GETs (golang.org/x/sync/singleflight)
//   - WithMetrics: Prometheus counters and histograms
//   - WithTracer: OpenTelemetry client span per request
package api
