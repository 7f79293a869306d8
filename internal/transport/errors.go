package transport

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrTimeout fails a call whose reply did not arrive within its bound.
// A late reply for the same correlation id is dropped silently.
var ErrTimeout = errors.New("call timed out")

// AuthError means the login handshake was rejected. Fatal; never retried.
type AuthError struct {
	Step string
	Raw  json.RawMessage
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth rejected at %s: %s", e.Step, string(e.Raw))
}

// APIError carries a structured error payload returned by the platform for
// a correlated call. Surfaced verbatim.
type APIError struct {
	Method string
	Raw    json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Method, string(e.Raw))
}

// TransportError means the socket errored or closed. Every pending waiter
// is rejected with one; the session must be reopened by the caller.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("socket failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
