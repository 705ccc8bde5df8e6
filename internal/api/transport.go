// Package api defines the boundary to the Stride backend: the transport
// port the device core talks to and the HTTP adapter implementing it.
package api

import (
	"context"
	"encoding/json"
)

// Endpoint tags name the remote collections and mutation targets. They
// key persisted outbox entries, so renaming one strands queued work.
const (
	EndpointProfile        = "profile"
	EndpointLogs           = "logs"
	EndpointStats          = "stats"
	EndpointVisualizations = "visualizations"
	EndpointSamples        = "samples"
)

// Transport is the remote API seam. The core only needs failure to be
// distinguishable from success; every failure comes back wrapped in a
// *TransportError. Implementations must be safe for concurrent use.
type Transport interface {
	// SendMutation posts one mutation payload. A nil return means the
	// server acknowledged the write.
	SendMutation(ctx context.Context, endpoint string, payload []byte) error

	// FetchCollection retrieves the current server state of a
	// collection as raw JSON documents.
	FetchCollection(ctx context.Context, endpoint string) ([]json.RawMessage, error)
}
