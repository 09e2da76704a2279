package snapshot

import "fmt"

// PreconditionError means the capture call was rejected before any network
// round trip: a missing/empty snapshot name or a nil runtime handle.
// Retrying cannot change a fixed input's validity, so outer retry wrappers
// must treat it as terminal.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("invalid snapshot call: %s", e.Reason)
}

// ServerUnavailableError means the health check succeeded at the transport
// level but the server reported itself unhealthy (no cliVersion in the
// body).
type ServerUnavailableError struct {
	Address string
}

func (e *ServerUnavailableError) Error() string {
	return fmt.Sprintf("smartui server at %s is not ready: healthcheck reported no cliVersion", e.Address)
}
