// Package reconcile implements the reconciliation driver (spec §4.10): the
// shared dirty-path set, its wakeup channel, and the worker loop that drains
// it and applies index_file/delete_file through internal/graphops.
package reconcile

import "sort"

// DirtySet is the shared dirty-path set S: producers (the watcher, or any
// direct caller) insert paths under lock and signal the wakeup channel
// while still holding the lock, so a producer's insert can never race past
// a consumer that has just drained and is about to park (spec §4.10's
// "Global lock order", step 3). Consumers drain the whole set under lock
// and release before doing any I/O.
type DirtySet struct {
	mu     chan struct{} // 1-buffered binary semaphore; see lock() note below
	paths  map[string]bool
	wakeup chan struct{} // 1-buffered; a pending signal is coalesced, never queued
}

// NewDirtySet builds an empty DirtySet.
func NewDirtySet() *DirtySet {
	d := &DirtySet{
		mu:     make(chan struct{}, 1),
		paths:  make(map[string]bool),
		wakeup: make(chan struct{}, 1),
	}
	d.mu <- struct{}{}
	return d
}

// lock/unlock use a buffered channel rather than sync.Mutex purely so the
// wakeup send below can share the same critical section as a non-blocking
// select without risking a self-deadlock on a plain mutex; semantically
// it's a binary semaphore guarding paths.
func (d *DirtySet) lock()   { <-d.mu }
func (d *DirtySet) unlock() { d.mu <- struct{}{} }

// Wakeup returns the channel a consumer blocks on when S is empty.
func (d *DirtySet) Wakeup() <-chan struct{} { return d.wakeup }

// Insert adds paths to S and signals the wakeup channel before releasing
// the lock, per spec §4.10's mandated ordering (dirty-set lock acquired,
// then wakeup sent while still holding it).
func (d *DirtySet) Insert(paths ...string) {
	if len(paths) == 0 {
		return
	}
	d.lock()
	for _, p := range paths {
		d.paths[p] = true
	}
	select {
	case d.wakeup <- struct{}{}:
	default: // a wakeup is already pending; coalescing is correct, not lossy
	}
	d.unlock()
}

// Drain empties S and returns its contents in lexicographic order (spec
// §5's "paths are processed in lexicographic order" within a single pass).
func (d *DirtySet) Drain() []string {
	d.lock()
	defer d.unlock()

	if len(d.paths) == 0 {
		return nil
	}
	out := make([]string, 0, len(d.paths))
	for p := range d.paths {
		out = append(out, p)
	}
	d.paths = make(map[string]bool)
	sort.Strings(out)
	return out
}
