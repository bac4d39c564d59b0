package watch

// Legacy single-path-per-call compatibility API, grounded on the original
// implementation's legacy_pending_batch/legacy_pending_index state machine.
// Callers that expect one FileEvent per call (rather than a DirtyBatch) can
// drain a batch one path at a time via TryRecvEvent.

// Event is one path drained from a pending legacy batch.
type Event struct {
	Path string
}

// recordLegacyBatch stashes a freshly flushed batch so TryRecvEvent can hand
// its paths out one at a time. A batch already in progress is overwritten:
// the newest flush always wins, matching the original's last-writer-wins
// semantics for this deprecated path.
func (w *Watcher) recordLegacyBatch(batch DirtyBatch) {
	w.legacyMu.Lock()
	defer w.legacyMu.Unlock()
	w.legacyBatch = batch.Paths
	w.legacyIndex = 0
}

// TryRecvEvent returns the next path from the current pending legacy batch,
// or ok=false if the batch is exhausted or none has arrived yet. Deprecated:
// prefer Batches() for new code, which carries the full batch in one value.
func (w *Watcher) TryRecvEvent() (Event, bool) {
	w.legacyMu.Lock()
	defer w.legacyMu.Unlock()

	if w.legacyIndex >= len(w.legacyBatch) {
		w.legacyBatch = nil
		w.legacyIndex = 0
		return Event{}, false
	}

	path := w.legacyBatch[w.legacyIndex]
	w.legacyIndex++
	if w.legacyIndex >= len(w.legacyBatch) {
		w.legacyBatch = nil
		w.legacyIndex = 0
	}
	return Event{Path: path}, true
}
