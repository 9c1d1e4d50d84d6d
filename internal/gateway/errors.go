package gateway

import "fmt"

// APIError is a server-side rejection: the gateway answered with a non-2xx
// status. The response body text is surfaced verbatim when present; this path
// is never masked by the offline fallback.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s failed (%d)", e.Op, e.StatusCode)
}

// TransportError is a connection-level failure (host unreachable, DNS, reset).
// For operations with a mock fallback the client recovers internally and the
// caller never sees it; only operations without a fallback surface it.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: gateway unreachable: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
