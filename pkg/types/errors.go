package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures coming out of the ingestion pipeline.
type ErrorKind string

const (
	// KindTransport is a network or timeout failure that survived all retries.
	KindTransport ErrorKind = "transport"
	// KindUpstreamStatus is a non-2xx response (4xx immediately, 5xx after retries).
	KindUpstreamStatus ErrorKind = "upstream_status"
	// KindDataShape is a payload that does not match the expected shape. Never retried.
	KindDataShape ErrorKind = "data_shape"
	// KindNoUsableData is a successful fetch that produced zero usable records.
	KindNoUsableData ErrorKind = "no_usable_data"
)

// APIError is the tagged error returned by the venue clients.
// Callers at the HTTP boundary match on Kind and StatusCode with errors.As.
type APIError struct {
	Kind       ErrorKind
	Venue      string // polymarket or odds_api
	StatusCode int    // upstream status code, only for KindUpstreamStatus
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("status %d: %s", e.StatusCode, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Venue != "" {
		return fmt.Sprintf("%s %s error: %s", e.Venue, e.Kind, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an APIError of the same kind.
// This lets errors.Is(err, types.ErrNoUsableData) work regardless of message.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Venue == "" && t.StatusCode == 0
}

// Sentinels for errors.Is matching by kind.
var (
	ErrTransport      = &APIError{Kind: KindTransport}
	ErrUpstreamStatus = &APIError{Kind: KindUpstreamStatus}
	ErrDataShape      = &APIError{Kind: KindDataShape}
	ErrNoUsableData   = &APIError{Kind: KindNoUsableData}
)

// NewDataShapeError builds a KindDataShape error for a venue.
func NewDataShapeError(venue string, format string, args ...any) *APIError {
	return &APIError{
		Kind:    KindDataShape,
		Venue:   venue,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewNoUsableDataError builds a KindNoUsableData error for a venue.
func NewNoUsableDataError(venue string, format string, args ...any) *APIError {
	return &APIError{
		Kind:    KindNoUsableData,
		Venue:   venue,
		Message: fmt.Sprintf(format, args...),
	}
}

// StatusCodeOf returns the upstream status code carried by err, or 0.
func StatusCodeOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
