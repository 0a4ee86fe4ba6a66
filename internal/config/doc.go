// Package config loads the sporthub configuration file.
//
// # Overview
//
// sporthub reads a single TOML file describing which timing API to talk to,
// how to authenticate, how long results stay fresh and which endpoints appear
// on the tester board. Every field is optional.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/sporthub/config.toml (default)
//  3. If the config file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing/empty, use defaults
//  5. Apply SPORTHUB_API_BASE_URL and SPORTHUB_API_KEY from the environment
//
// The environment is read once, inside Load. Nothing else in the program
// consults it.
//
// # Default Values
//
//   - api_base_url: http://localhost:8000
//   - credential_header: X-API-Key
//   - timeout: 10s
//   - stale_time: 5m, cache_time: 10m
//   - max_retries: 1, retry_backoff: 0 (immediate)
//   - poll_interval: 5s
//   - log_file: ~/.local/share/sporthub/sporthub.log, log_level: info
//   - endpoints: /classification and /health
//
// # TOML Format
//
//	api_base_url = "https://timing.example.com"
//	api_key = "..."
//	stale_time = "30s"
//	rate_limit = 5.0          # requests per second, 0 disables
//	rate_burst = 2
//	metrics_addr = "127.0.0.1:9464"
//	propagate_status = false  # keep statusCode 0 on HTTP errors
//	dedupe_requests = true    # share identical in-flight GETs
//
//	[[endpoints]]
//	path = "/classification"
//	title = "Classification Endpoint"
//	description = "Test the classification endpoint of the API"
//
// Durations use time.ParseDuration syntax. Endpoint paths gain a leading
// slash when missing; entries without a path are dropped.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors, malformed durations and negative values
//
// A missing API key is not an error here; the client logs a warning and
// sends requests without credentials.
package config
