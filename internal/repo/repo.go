// Package repo implements the repository layer: remote-first reads that
// fall back to the local cache, and optimistic writes that queue for
// later delivery when the network is down. One repository exists per
// aggregate; all of them share a single store, outbox, and transport,
// injected at construction.
package repo

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/stridehealth/stride/internal/api"
	"github.com/stridehealth/stride/internal/outbox"
	"github.com/stridehealth/stride/internal/store"
)

// ErrQueuedForSync reports that a mutation could not reach the server
// and was written to the outbox instead. The operation's optimistic
// result is returned alongside it, so callers can render "saved
// locally, will sync later". Match with errors.Is.
var ErrQueuedForSync = errors.New("queued for sync")

// Repos bundles the per-aggregate repositories.
type Repos struct {
	Users          *Users
	Logs           *Logs
	Visualizations *Visualizations
	Samples        *Samples
}

// New wires every repository against the shared dependencies.
func New(s *store.Store, q *outbox.Queue, transport api.Transport, log zerolog.Logger) *Repos {
	return &Repos{
		Users:          NewUsers(s, q, transport, log),
		Logs:           NewLogs(s, q, transport, log),
		Visualizations: NewVisualizations(s, q, transport, log),
		Samples:        NewSamples(q, log),
	}
}

// recoverable reports whether err is a transport failure, the only kind
// a read path is allowed to absorb. Storage failures stay fatal.
func recoverable(err error) bool {
	var terr *api.TransportError
	return errors.As(err, &terr)
}
