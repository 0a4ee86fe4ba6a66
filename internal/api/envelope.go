package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope pairs a decoded payload with transport metadata.
type Envelope[T any] struct {
	Payload    T      `json:"payload"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message,omitempty"`
}

// RequestOptions describe a single call. An empty Method means GET. A nil
// Body sends no body; anything else is encoded as JSON. Header values
// replace the client defaults key by key.
type RequestOptions struct {
	Method string
	Body   any
	Header http.Header
}

// Requester issues raw requests. *Client implements it; tests substitute
// their own.
type Requester interface {
	Do(ctx context.Context, endpoint string, opts RequestOptions) (Envelope[json.RawMessage], error)
}

// Ensure Client implements Requester at compile time.
var _ Requester = (*Client)(nil)

// Request runs opts against endpoint and decodes the payload into T. Every
// failure is returned as a *Error.
func Request[T any](ctx context.Context, r Requester, endpoint string, opts RequestOptions) (Envelope[T], error) {
	if r == nil {
		return Envelope[T]{}, requestError(nil, "requester is nil")
	}
	raw, err := r.Do(ctx, endpoint, opts)
	if err != nil {
		return Envelope[T]{}, AsError(err)
	}

	var payload T
	if err := json.Unmarshal(raw.Payload, &payload); err != nil {
		apiErr := decodeError(err)
		loggerFor(r).Error("API response decode failed",
			"endpoint", endpoint,
			"status", raw.StatusCode,
			"error", apiErr.Message,
		)
		return Envelope[T]{}, apiErr
	}
	return Envelope[T]{Payload: payload, StatusCode: raw.StatusCode, Message: raw.Message}, nil
}

// Get issues a GET request.
func Get[T any](ctx context.Context, r Requester, endpoint string) (Envelope[T], error) {
	return Request[T](ctx, r, endpoint, RequestOptions{Method: http.MethodGet})
}

// Post issues a POST request with an optional JSON body.
func Post[T any](ctx context.Context, r Requester, endpoint string, body any) (Envelope[T], error) {
	return Request[T](ctx, r, endpoint, RequestOptions{Method: http.MethodPost, Body: body})
}

// Put issues a PUT request with an optional JSON body.
func Put[T any](ctx context.Context, r Requester, endpoint string, body any) (Envelope[T], error) {
	return Request[T](ctx, r, endpoint, RequestOptions{Method: http.MethodPut, Body: body})
}

// Delete issues a DELETE request.
func Delete[T any](ctx context.Context, r Requester, endpoint string) (Envelope[T], error) {
	return Request[T](ctx, r, endpoint, RequestOptions{Method: http.MethodDelete})
}

func loggerFor(r Requester) *slog.Logger {
	if l, ok := r.(interface{ Logger() *slog.Logger }); ok {
		if logger := l.Logger(); logger != nil {
			return logger
		}
	}
	return slog.Default()
}
