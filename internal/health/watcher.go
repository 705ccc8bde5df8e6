// Package health ingests health samples spooled by the platform bridge.
// The bridge drops one JSON batch per file into the spool directory; the
// watcher parses each file, hands the batch to the sink, and deletes the
// file once the batch is safely queued. The bridge de-duplicates samples
// before writing, so replaying a file is the only duplication risk and
// files are removed only after a successful handoff.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/stridehealth/stride/internal/model"
)

// settleDelay is how long a file must sit unchanged before ingestion,
// so half-written batches are not picked up.
const settleDelay = 200 * time.Millisecond

// Sink receives parsed sample batches. *repo.Samples satisfies it.
type Sink interface {
	EnqueueBatch(ctx context.Context, batch model.SampleBatch) error
}

// Watcher tails the spool directory.
type Watcher struct {
	dir     string
	sink    Sink
	log     zerolog.Logger
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher builds a watcher over dir, creating the directory if
// needed.
func NewWatcher(dir string, sink Sink, log zerolog.Logger) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch spool directory: %w", err)
	}

	return &Watcher{
		dir:     dir,
		sink:    sink,
		log:     log.With().Str("component", "health").Logger(),
		watcher: fsw,
		pending: make(map[string]time.Time),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// Start sweeps files already in the spool, then processes new ones as
// the bridge drops them.
func (w *Watcher) Start() {
	go w.run()
}

// Stop ends the loop and releases the directory watch.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
	w.watcher.Close()
}

func (w *Watcher) run() {
	defer close(w.done)

	w.sweep()

	flush := time.NewTicker(100 * time.Millisecond)
	defer flush.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.note(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("spool watch error")
		case <-flush.C:
			w.ingestSettled()
		case <-w.stop:
			return
		}
	}
}

// sweep queues batch files that were spooled while no watcher ran.
func (w *Watcher) sweep() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Warn().Err(err).Msg("failed to scan spool directory")
		return
	}
	ready := time.Now().Add(-settleDelay)
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		w.pending[filepath.Join(w.dir, entry.Name())] = ready
	}
}

func (w *Watcher) note(path string) {
	if filepath.Ext(path) != ".json" {
		return
	}
	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) ingestSettled() {
	w.mu.Lock()
	var ready []string
	for path, at := range w.pending {
		if time.Since(at) >= settleDelay {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	sort.Strings(ready)
	for _, path := range ready {
		w.ingest(path)
	}
}

func (w *Watcher) ingest(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		w.log.Warn().Err(err).Str("file", path).Msg("failed to read batch file")
		return
	}

	var batch model.SampleBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		w.quarantine(path, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.sink.EnqueueBatch(ctx, batch); err != nil {
		// Invalid batches never fix themselves; storage failures
		// might, so those files stay in the queue for the next pass.
		var verr validator.ValidationErrors
		if errors.As(err, &verr) {
			w.quarantine(path, err)
			return
		}
		w.log.Warn().Err(err).Str("file", path).Msg("failed to queue batch, will retry")
		w.mu.Lock()
		w.pending[path] = time.Now()
		w.mu.Unlock()
		return
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		w.log.Warn().Err(err).Str("file", path).Msg("failed to remove ingested batch file")
	}
	w.log.Debug().
		Str("file", filepath.Base(path)).
		Int("samples", len(batch.Samples)).
		Msg("sample batch ingested")
}

// quarantine renames a bad file aside so it is never retried hot.
func (w *Watcher) quarantine(path string, cause error) {
	bad := path + ".bad"
	if err := os.Rename(path, bad); err != nil {
		w.log.Error().Err(err).Str("file", path).Msg("failed to quarantine batch file")
		return
	}
	w.log.Warn().Err(cause).Str("file", filepath.Base(bad)).Msg("quarantined malformed batch file")
}
