package reconcile

import (
	"context"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/oldnordic/magellan-go/internal/backend"
	"github.com/oldnordic/magellan-go/internal/config"
	"github.com/oldnordic/magellan-go/internal/graphops"
	"github.com/oldnordic/magellan-go/internal/query"
)

// NotifyFunc is called once per path the driver successfully applies,
// spec §4.10 step 4's "emit any pub/sub notifications" — the native
// backend's cache-invalidation feed the watcher's MergeNotifications
// consumes elsewhere.
type NotifyFunc func(path string)

// Reconciler hosts the shared dirty set and the worker that drains it,
// applying index_file/delete_file through internal/graphops and resolving
// references/calls against the symbols each index_file pass just committed
// (spec §4.10).
type Reconciler struct {
	backend  backend.Backend
	ops      *graphops.Operations
	queries  *query.Queries
	dirty    *DirtySet
	notify   NotifyFunc
	maxConc  int64
	shutdown atomic.Bool
}

// New builds a Reconciler over b. cfg.Performance.ParallelFileWorkers (or,
// if zero, MaxGoroutines) bounds how many files from one drained batch are
// applied concurrently.
func New(b backend.Backend, ops *graphops.Operations, cfg *config.Config, dirty *DirtySet, notify NotifyFunc) *Reconciler {
	conc := int64(cfg.Performance.ParallelFileWorkers)
	if conc <= 0 {
		conc = int64(cfg.Performance.MaxGoroutines)
	}
	if conc <= 0 {
		conc = 1
	}
	return &Reconciler{
		backend: b,
		ops:     ops,
		queries: query.New(b),
		dirty:   dirty,
		notify:  notify,
		maxConc: conc,
	}
}

// Shutdown requests the loop stop after it finishes the batch currently in
// flight (spec §5: "The reconciler completes its current file before
// honoring shutdown").
func (r *Reconciler) Shutdown() { r.shutdown.Store(true) }

// Run blocks draining r.dirty and applying batches until ctx is canceled or
// Shutdown is called and observed at the top of the loop.
func (r *Reconciler) Run(ctx context.Context) error {
	for {
		if r.shutdown.Load() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.dirty.Wakeup():
		}

		if r.shutdown.Load() {
			return nil
		}

		batch := r.dirty.Drain()
		if len(batch) == 0 {
			continue
		}
		if err := r.applyBatch(ctx, batch); err != nil {
			return err
		}
	}
}

// applyBatch applies every path in batch, dispatched busiest-first (via
// priority.go's estimate) across a bounded worker pool; each individual
// apply is still the same idempotent per-path operation regardless of
// dispatch order, so this concurrency never affects the result, only the
// wall-clock order in which files land (spec.md §5 leaves cross-file
// ordering unguaranteed). The applies themselves run one at a time under
// applyMu, since ingest.Engine is not safe for concurrent IndexFile calls.
func (r *Reconciler) applyBatch(ctx context.Context, batch []string) error {
	priority := make(map[string]int, len(batch))
	for _, path := range batch {
		content, err := os.ReadFile(path)
		if err != nil {
			priority[path] = 0
			continue
		}
		priority[path] = priorityOf(path, content)
	}
	ordered := sortByPriorityDesc(batch, priority)

	sem := semaphore.NewWeighted(r.maxConc)
	g, gctx := errgroup.WithContext(ctx)
	var applyMu sync.Mutex

	for _, path := range ordered {
		path := path
		if err := sem.Acquire(gctx, 1); err != nil {
			return err
		}
		g.Go(func() error {
			defer sem.Release(1)
			applyMu.Lock()
			defer applyMu.Unlock()
			return r.applyPath(path)
		})
	}
	return g.Wait()
}

// applyPath implements spec §4.10 step 3 for one path: read bytes (ENOENT
// means the file was deleted, so delete_file runs instead), apply
// index_file, then resolve references and calls against the symbols
// index_file just committed.
func (r *Reconciler) applyPath(path string) error {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := r.ops.DeleteFile(r.backend, path); err != nil {
			return err
		}
		r.emitNotify(path)
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := r.ops.IndexFile(r.backend, path, content); err != nil {
		return err
	}

	symbols, err := r.queries.SymbolsInFile(path, "")
	if err != nil {
		return err
	}
	if _, _, err := r.ops.IndexReferencesAndCalls(r.backend, path, content, symbols); err != nil {
		return err
	}

	r.emitNotify(path)
	return nil
}

func (r *Reconciler) emitNotify(path string) {
	if r.notify != nil {
		r.notify(path)
	}
}
