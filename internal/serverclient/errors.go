package serverclient

import "fmt"

// ConnectionError means no HTTP response was received at all: the server is
// unreachable, the connection dropped, or the per-call timeout fired.
// Timeouts are deliberately indistinguishable from any other transport
// failure.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ServerError means the server answered with a status outside [200,300).
// Message carries the response body's error.message when present, else a
// status-derived fallback.
type ServerError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned %d for %s: %s", e.StatusCode, e.Endpoint, e.Message)
}
