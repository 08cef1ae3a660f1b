package relay

import (
	"errors"
	"fmt"
	"time"
)

// TransportError wraps a request-level failure from the completion backend
// (network fault, timeout, malformed response). It aborts the run; the
// history is left exactly as it was before the failed request.
type TransportError struct {
	Op  string // "complete" or "stream"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response from an HTTP backend. Providers return it
// wrapped in a TransportError.
type HTTPError struct {
	Status int
	Body   string
	// RetryAfter is the server's Retry-After hint, when present. Zero when
	// the header was absent or unparseable.
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ErrBudgetExceeded is returned by History.EnforceBudget when the token
// count still exceeds the limit but no evictable turn remains.
var ErrBudgetExceeded = errors.New("token budget exceeded with no evictable turn")

// ErrMaxIterations is returned by a run that hit the iteration cap without
// the backend producing a terminal answer.
var ErrMaxIterations = errors.New("max run iterations reached")
