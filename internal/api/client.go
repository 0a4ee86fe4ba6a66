package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/five82/sporthub/internal/metrics"
)

const (
	defaultCredentialHeader = "X-API-Key"
	defaultUserAgent        = "sporthub/0.1"
	defaultTimeout          = 10 * time.Second
	requestIDHeader         = "X-Request-Id"
	tracerName              = "github.com/five82/sporthub/internal/api"

	// maxBodyBytes bounds how much of a response body is read.
	maxBodyBytes = 16 << 20
)

// Client talks to the timing API. It is safe for concurrent use.
type Client struct {
	baseURL          string
	apiKey           string
	credentialHeader string
	userAgent        string
	http             *http.Client
	logger           *slog.Logger
	tracer           trace.Tracer
	limiter          *rate.Limiter
	metrics          *metrics.Collector
	propagateStatus  bool

	dedupe bool
	flight singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithCredentialHeader changes the header carrying the API key.
func WithCredentialHeader(name string) Option {
	return func(c *Client) {
		if name = strings.TrimSpace(name); name != "" {
			c.credentialHeader = name
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer sets the tracer used for request spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithRateLimiter makes every request wait for a token from limiter.
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) { c.limiter = limiter }
}

// WithMetrics records request metrics on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// WithStatusPropagation reports the real HTTP status in Error.StatusCode for
// non-2xx responses instead of 0.
func WithStatusPropagation() Option {
	return func(c *Client) { c.propagateStatus = true }
}

// WithDeduplication coalesces identical concurrent body-less GET requests
// into one round-trip. The shared round-trip is detached from any single
// caller's cancellation; each caller still stops waiting when its own
// context ends.
func WithDeduplication() Option {
	return func(c *Client) { c.dedupe = true }
}

// NewClient builds a Client for baseURL. An empty apiKey is allowed: a
// warning is logged and requests go out without the credential header.
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	base, defaulted, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:          base,
		apiKey:           strings.TrimSpace(apiKey),
		credentialHeader: defaultCredentialHeader,
		userAgent:        defaultUserAgent,
		http:             &http.Client{Timeout: defaultTimeout},
		logger:           slog.Default(),
		tracer:           otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}

	if defaulted {
		c.logger.Warn("API base URL has no scheme; assuming http",
			"configured", strings.TrimSpace(baseURL),
			"base_url", c.baseURL,
		)
	}
	if c.apiKey == "" {
		c.logger.Warn("API key is not configured; requests will be sent without credentials",
			"base_url", c.baseURL,
			"header", c.credentialHeader,
		)
	} else {
		c.logger.Info("API key loaded", "base_url", c.baseURL, "header", c.credentialHeader)
	}
	return c, nil
}

// BaseURL returns the configured base address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Logger returns the client's diagnostic logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Do issues a request for endpoint, appended verbatim to the base URL, and
// returns the raw JSON payload. Any failure is a *Error.
func (c *Client) Do(ctx context.Context, endpoint string, opts RequestOptions) (Envelope[json.RawMessage], error) {
	if c == nil {
		return Envelope[json.RawMessage]{}, requestError(nil, "client is nil")
	}
	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = http.MethodGet
	}
	if strings.TrimSpace(endpoint) == "" {
		return Envelope[json.RawMessage]{}, c.fail(ctx, method, endpoint, "", requestError(nil, "endpoint is empty"))
	}

	if !c.dedupe || method != http.MethodGet || opts.Body != nil {
		return c.roundTrip(ctx, method, endpoint, opts)
	}

	shared := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(dedupKey(method, endpoint, opts.Header), func() (any, error) {
		return c.roundTrip(shared, method, endpoint, opts)
	})
	select {
	case <-ctx.Done():
		return Envelope[json.RawMessage]{}, c.fail(ctx, method, endpoint, "", networkError(ctx.Err()))
	case res := <-ch:
		if res.Shared {
			c.metrics.DedupHit(endpoint)
		}
		if res.Err != nil {
			return Envelope[json.RawMessage]{}, res.Err
		}
		return res.Val.(Envelope[json.RawMessage]), nil
	}
}

func (c *Client) roundTrip(ctx context.Context, method, endpoint string, opts RequestOptions) (Envelope[json.RawMessage], error) {
	fullURL := c.baseURL + endpoint
	requestID := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", fullURL),
			attribute.String("sporthub.request_id", requestID),
		),
	)
	defer span.End()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Envelope[json.RawMessage]{}, c.fail(ctx, method, endpoint, requestID, networkError(err))
		}
	}

	var body io.Reader
	if opts.Body != nil {
		encoded, err := json.Marshal(opts.Body)
		if err != nil {
			return Envelope[json.RawMessage]{}, c.fail(ctx, method, endpoint, requestID, requestError(err, "encode body"))
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return Envelope[json.RawMessage]{}, c.fail(ctx, method, endpoint, requestID, requestError(err, "create request"))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(requestIDHeader, requestID)
	if c.apiKey != "" {
		req.Header.Set(c.credentialHeader, c.apiKey)
	}
	for name, values := range opts.Header {
		req.Header.Del(name)
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	c.logger.Debug("API request", "method", method, "url", fullURL, "request_id", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(method, endpoint, 0, time.Since(start))
		return Envelope[json.RawMessage]{}, c.fail(ctx, method, endpoint, requestID, networkError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	c.metrics.ObserveRequest(method, endpoint, resp.StatusCode, time.Since(start))
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return Envelope[json.RawMessage]{}, c.fail(ctx, method, endpoint, requestID, httpError(resp.StatusCode, c.propagateStatus))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Envelope[json.RawMessage]{}, c.fail(ctx, method, endpoint, requestID, networkError(fmt.Errorf("read response: %w", err)))
	}
	var payload json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Envelope[json.RawMessage]{}, c.fail(ctx, method, endpoint, requestID, decodeError(err))
	}

	c.logger.Debug("API response",
		"method", method,
		"url", fullURL,
		"request_id", requestID,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return Envelope[json.RawMessage]{Payload: payload, StatusCode: resp.StatusCode}, nil
}

func (c *Client) fail(ctx context.Context, method, endpoint, requestID string, apiErr *Error) *Error {
	span := trace.SpanFromContext(ctx)
	span.RecordError(apiErr)
	span.SetStatus(codes.Error, apiErr.Message)

	c.metrics.RequestError(method, endpoint, string(apiErr.Kind))
	c.logger.Error("API request failed",
		"method", method,
		"url", c.baseURL+endpoint,
		"request_id", requestID,
		"kind", apiErr.Kind,
		"error", apiErr.Message,
	)
	return apiErr
}

func dedupKey(method, endpoint string, header http.Header) string {
	var b strings.Builder
	b.WriteString(method)
	b.WriteByte(' ')
	b.WriteString(endpoint)
	if len(header) > 0 {
		// Header overrides change the request, so they belong in the key.
		_ = header.Write(&b)
	}
	return b.String()
}

// parseBaseURL validates the base address and reports whether an http scheme
// had to be assumed. The path is kept as given since endpoints are appended
// without normalization.
func parseBaseURL(raw string) (string, bool, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false, fmt.Errorf("api base url is empty")
	}
	defaulted := false
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
		defaulted = true
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", false, fmt.Errorf("parse api base url %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("parse api base url %q: missing host", raw)
	}
	return trimmed, defaulted, nil
}
