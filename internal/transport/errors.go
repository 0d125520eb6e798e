package transport

import (
	"fmt"
	"time"
)

// ConnectivityError reports a failed initial connect. Fatal to the page-level
// flow; callers surface a manual retry.
type ConnectivityError struct {
	URL string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.URL, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// NotReadyError reports that a bounded readiness wait ran out of attempts.
// Not fatal: callers continue in a degraded state and retry.
type NotReadyError struct {
	Attempts int
	Interval time.Duration
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("channel not ready after %d attempts at %s intervals", e.Attempts, e.Interval)
}

// ServerRejection wraps the server's generic error event. Always displayed to
// the user, never a crash.
type ServerRejection struct {
	Message string
}

func (e *ServerRejection) Error() string {
	return fmt.Sprintf("server rejected request: %s", e.Message)
}
