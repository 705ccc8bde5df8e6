// Package trigger adapts external wake-up sources to the sync
// coordinator: a jittered interval timer and a server push channel.
// Every adapter invokes the handler and reports its completion exactly
// once per firing; overlap protection lives in the coordinator, so
// concurrent triggers are safe and cheap.
package trigger

import "context"

// Handler runs one sync pass. The returned error is the completion
// status the trigger reports back to its source.
type Handler func(ctx context.Context) error
