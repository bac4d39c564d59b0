// Package execlog persists one ExecutionRecord per top-level operation
// (index, query, watch — spec §3's "Execution log rows per tool invocation
// ... written by every top-level operation, not just queries"). It selects
// its storage strategy the same way internal/chunkstore does: a relational
// backend with a dedicated execution_log table is used directly, anything
// else falls back to the execlog: KV namespace from internal/kvindex.
package execlog

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/oldnordic/magellan-go/internal/backend"
	"github.com/oldnordic/magellan-go/internal/kvindex"
	"github.com/oldnordic/magellan-go/internal/types"
)

// Outcome tags for ExecutionRecord.Outcome.
const (
	OutcomeRunning = "running"
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)

// TableBackend is implemented by backends that store execution records in
// a dedicated table (spec §6's relational mode) rather than through the
// generic KV namespace.
type TableBackend interface {
	InsertExecutionRecord(rec types.ExecutionRecord) error
	GetExecutionRecord(execID string) (types.ExecutionRecord, bool, error)
}

// Recorder is the execution-log persistence layer, constructed over
// whatever backend.Backend the calling operation is already using.
type Recorder struct {
	tbl TableBackend // non-nil when the backend supports direct table storage
	kv  backend.Backend
}

// New wraps b, preferring its TableBackend methods when available.
func New(b backend.Backend) *Recorder {
	r := &Recorder{kv: b}
	if tbl, ok := b.(TableBackend); ok {
		r.tbl = tbl
	}
	return r
}

// Start opens a new ExecutionRecord for one tool invocation, persists it
// immediately in the OutcomeRunning state (so a crash mid-run still leaves
// a trace an operator can find), and returns it for the caller to carry
// through to Finish.
func (r *Recorder) Start(toolVersion string, args []string, root, databasePath string) (types.ExecutionRecord, error) {
	rec := types.ExecutionRecord{
		ExecutionID:  uuid.NewString(),
		ToolVersion:  toolVersion,
		Args:         args,
		Root:         root,
		DatabasePath: databasePath,
		StartedAt:    time.Now(),
		Outcome:      OutcomeRunning,
	}
	if err := r.persist(rec); err != nil {
		return types.ExecutionRecord{}, err
	}
	return rec, nil
}

// Finish closes out rec with a terminal outcome, optional error message,
// and the entity counts produced by the run, and persists the final
// record in place of the OutcomeRunning row Start wrote.
func (r *Recorder) Finish(rec types.ExecutionRecord, outcome string, runErr error, fileCount, symbolCount, referenceCount int) error {
	rec.FinishedAt = time.Now()
	rec.Outcome = outcome
	if runErr != nil {
		rec.ErrorMessage = runErr.Error()
	}
	rec.FileCount = fileCount
	rec.SymbolCount = symbolCount
	rec.ReferenceCount = referenceCount
	return r.persist(rec)
}

// Get fetches a previously persisted ExecutionRecord by id, for trace
// lookup (spec's `execlog:{exec_id}` key documentation).
func (r *Recorder) Get(execID string) (types.ExecutionRecord, bool, error) {
	if r.tbl != nil {
		return r.tbl.GetExecutionRecord(execID)
	}
	data, ok, err := r.kv.KVGet(kvindex.ExecutionLog(execID))
	if err != nil || !ok {
		return types.ExecutionRecord{}, false, err
	}
	var rec types.ExecutionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return types.ExecutionRecord{}, false, err
	}
	return rec, true, nil
}

func (r *Recorder) persist(rec types.ExecutionRecord) error {
	if r.tbl != nil {
		return r.tbl.InsertExecutionRecord(rec)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.kv.KVSet(kvindex.ExecutionLog(rec.ExecutionID), data, nil)
}
