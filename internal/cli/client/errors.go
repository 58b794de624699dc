package client

import (
	"errors"
	"fmt"
)

// SessionExpiredMessage is the message carried by every SessionExpiredError.
const SessionExpiredMessage = "Session expired. Please log in again."

// Sentinel errors for use with errors.Is().
var (
	// ErrNetwork is returned when the API cannot be reached at the transport level.
	ErrNetwork = errors.New("network error")

	// ErrSessionExpired is returned when the API answers 401 to an authenticated call.
	ErrSessionExpired = errors.New("session expired")

	// ErrRequestRejected is returned for any other non-2xx response.
	ErrRequestRejected = errors.New("request rejected")

	// ErrSchema is returned when a 2xx body does not match the expected shape.
	ErrSchema = errors.New("schema error")

	// ErrValidation is returned when input is rejected before a call is made,
	// or when the API reports the input as malformed.
	ErrValidation = errors.New("validation error")
)

// NetworkError is returned when the request never produced an HTTP response
// (DNS failure, connection refused, TLS handshake, timeout, cancellation).
type NetworkError struct {
	// Method and URL identify the failed call.
	Method string
	URL    string
	// Cause is the error returned by the HTTP transport.
	Cause error
}

func (e *NetworkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("network error: %s %s: %v", e.Method, e.URL, e.Cause)
	}
	return fmt.Sprintf("network error: %s %s", e.Method, e.URL)
}

// Unwrap returns the transport error.
func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is(err, ErrNetwork).
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// SessionExpiredError is returned when the API answers 401. The stored token
// has already been invalidated by the time the caller sees it.
type SessionExpiredError struct {
	Path string
}

func (e *SessionExpiredError) Error() string {
	return SessionExpiredMessage
}

// Is supports errors.Is(err, ErrSessionExpired).
func (e *SessionExpiredError) Is(target error) bool {
	return target == ErrSessionExpired
}

// RequestError is returned for a non-2xx response other than an expired session.
type RequestError struct {
	// StatusCode is the HTTP status returned by the API.
	StatusCode int
	// Message is the human-readable reason, taken from the "detail" field when present.
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

// Is supports errors.Is(err, ErrRequestRejected).
func (e *RequestError) Is(target error) bool {
	return target == ErrRequestRejected
}

// SchemaError is returned when a successful response cannot be decoded into,
// or does not satisfy, the endpoint's result type.
type SchemaError struct {
	Path string
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("unexpected response from %s: %v", e.Path, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// Is supports errors.Is(err, ErrSchema).
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// ValidationError describes input that is not acceptable, either checked
// locally before sending or reported by the API with a 422.
type ValidationError struct {
	// Field is empty when the message covers the whole input.
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Is supports errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StatusCode returns the HTTP status of a RequestError anywhere in err's
// chain, or 0 if there is none.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}
