package api

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies the cause behind a normalized Error.
type ErrorKind string

const (
	// KindRequest covers failures before anything was sent: empty endpoint,
	// unencodable body, malformed URL.
	KindRequest ErrorKind = "request"
	// KindNetwork covers DNS, connection, timeout and cancellation failures.
	KindNetwork ErrorKind = "network"
	// KindHTTP is any response outside the 2xx range.
	KindHTTP ErrorKind = "http"
	// KindDecode is a response body that is not valid JSON for the target type.
	KindDecode ErrorKind = "decode"
)

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrRequest = &Error{Kind: KindRequest}
	ErrNetwork = &Error{Kind: KindNetwork}
	ErrHTTP    = &Error{Kind: KindHTTP}
	ErrDecode  = &Error{Kind: KindDecode}
)

const unknownErrorMessage = "Unknown error occurred"

// Error is the single failure shape that leaves the transport layer. Only
// Message and StatusCode are part of the wire form.
type Error struct {
	Message    string    `json:"message"`
	StatusCode int       `json:"statusCode"`
	Kind       ErrorKind `json:"-"`
	// HTTPStatus is the response status for KindHTTP failures. It is kept
	// even when StatusCode reports 0.
	HTTPStatus int `json:"-"`

	cause error
}

// Error implements error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message == "" {
		return unknownErrorMessage
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches another *Error with the same Kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// AsError converts any error into a *Error. A nil error stays nil.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	msg := err.Error()
	if msg == "" {
		msg = unknownErrorMessage
	}
	return &Error{Kind: KindNetwork, Message: msg, cause: err}
}

func requestError(cause error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &Error{Kind: KindRequest, Message: msg, cause: cause}
}

func networkError(cause error) *Error {
	msg := cause.Error()
	switch {
	case errors.Is(cause, context.DeadlineExceeded):
		msg = "request timed out: " + msg
	case errors.Is(cause, context.Canceled):
		msg = "request canceled: " + msg
	}
	return &Error{Kind: KindNetwork, Message: msg, cause: cause}
}

func httpError(status int, propagate bool) *Error {
	e := &Error{
		Kind:       KindHTTP,
		Message:    fmt.Sprintf("HTTP error! status: %d", status),
		HTTPStatus: status,
	}
	if propagate {
		e.StatusCode = status
	}
	return e
}

func decodeError(cause error) *Error {
	return &Error{Kind: KindDecode, Message: cause.Error(), cause: cause}
}
