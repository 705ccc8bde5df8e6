package api

import "fmt"

// TransportError wraps any failure to reach or be understood by the
// backend: connectivity, timeout, non-2xx status, undecodable body. The
// core treats all of them the same way, as recoverable.
type TransportError struct {
	Endpoint string
	Status   int // zero when no response arrived
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
