package graphops

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/oldnordic/magellan-go/internal/backend"
	"github.com/oldnordic/magellan-go/internal/types"
)

// ValidationCode is the closed set of machine-readable codes validate_graph
// and pre_run_validate can report, grounded on
// original_source/src/graph/validation.rs's ValidationError/ValidationWarning
// code strings.
type ValidationCode string

const (
	CodeOrphanReference    ValidationCode = "ORPHAN_REFERENCE"
	CodeOrphanCallNoCaller ValidationCode = "ORPHAN_CALL_NO_CALLER"
	CodeOrphanCallNoCallee ValidationCode = "ORPHAN_CALL_NO_CALLEE"
	CodeDBParentMissing    ValidationCode = "DB_PARENT_MISSING"
	CodeRootPathMissing    ValidationCode = "ROOT_PATH_MISSING"
	CodeInputPathMissing   ValidationCode = "INPUT_PATH_MISSING"
)

// ValidationIssue is one ValidationError/ValidationWarning: a code, a
// human-readable message, and the entity/detail context that produced it.
type ValidationIssue struct {
	Code     ValidationCode         `json:"code"`
	Message  string                 `json:"message"`
	EntityID string                 `json:"entity_id,omitempty"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// ValidationReport is validate_graph's return shape (spec §6).
type ValidationReport struct {
	Passed   bool              `json:"passed"`
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
}

// TotalIssues mirrors the original's total_issues/is_clean helpers.
func (r ValidationReport) TotalIssues() int { return len(r.Errors) + len(r.Warnings) }
func (r ValidationReport) IsClean() bool    { return r.TotalIssues() == 0 }

// ValidateGraph runs every post-index structural check against b's current
// snapshot (spec §6, §3.2/§3.3's orphan-detection invariants):
// Reference nodes must carry an outgoing REFERENCES edge to a resolved
// symbol, and Call nodes must carry both an incoming CALLER edge (a
// resolved caller symbol) and an outgoing CALLS edge (a resolved callee
// symbol). Matches validate_graph/check_orphan_references/check_orphan_calls.
func ValidateGraph(b backend.Backend) (ValidationReport, error) {
	var errs []ValidationIssue

	refErrs, err := checkOrphanReferences(b)
	if err != nil {
		return ValidationReport{}, err
	}
	errs = append(errs, refErrs...)

	callErrs, err := checkOrphanCalls(b)
	if err != nil {
		return ValidationReport{}, err
	}
	errs = append(errs, callErrs...)

	sort.Slice(errs, func(i, j int) bool {
		if errs[i].Code != errs[j].Code {
			return errs[i].Code < errs[j].Code
		}
		return errs[i].Message < errs[j].Message
	})

	return ValidationReport{Passed: len(errs) == 0, Errors: errs}, nil
}

func checkOrphanReferences(b backend.Backend) ([]ValidationIssue, error) {
	ids, err := b.EntityIDs()
	if err != nil {
		return nil, err
	}
	snap, err := b.SnapshotCurrent()
	if err != nil {
		return nil, err
	}

	referencesEdge := types.EdgeReferences
	var issues []ValidationIssue
	for _, id := range ids {
		rec, err := b.GetNode(snap, id)
		if err != nil || rec.Kind != types.NodeRefer {
			continue
		}
		var ref types.Reference
		if err := json.Unmarshal(rec.Data, &ref); err != nil {
			continue
		}

		neighbors, err := b.Neighbors(snap, id, types.NeighborQuery{Direction: types.Outgoing, EdgeType: &referencesEdge})
		if err != nil {
			return nil, err
		}
		if len(neighbors) > 0 {
			continue
		}

		issues = append(issues, ValidationIssue{
			Code:    CodeOrphanReference,
			Message: "reference at " + ref.FilePath + " has no target symbol",
			Details: map[string]interface{}{
				"file":       ref.FilePath,
				"byte_start": ref.Span.ByteStart,
				"byte_end":   ref.Span.ByteEnd,
				"start_line": ref.Span.StartLine,
				"start_col":  ref.Span.StartCol,
				"end_line":   ref.Span.EndLine,
				"end_col":    ref.Span.EndCol,
			},
		})
	}
	return issues, nil
}

func checkOrphanCalls(b backend.Backend) ([]ValidationIssue, error) {
	ids, err := b.EntityIDs()
	if err != nil {
		return nil, err
	}
	snap, err := b.SnapshotCurrent()
	if err != nil {
		return nil, err
	}

	callerEdge, callsEdge := types.EdgeCaller, types.EdgeCalls
	var issues []ValidationIssue
	for _, id := range ids {
		rec, err := b.GetNode(snap, id)
		if err != nil || rec.Kind != types.NodeCall {
			continue
		}
		var call types.Call
		if err := json.Unmarshal(rec.Data, &call); err != nil {
			continue
		}

		callers, err := b.Neighbors(snap, id, types.NeighborQuery{Direction: types.Incoming, EdgeType: &callerEdge})
		if err != nil {
			return nil, err
		}
		callees, err := b.Neighbors(snap, id, types.NeighborQuery{Direction: types.Outgoing, EdgeType: &callsEdge})
		if err != nil {
			return nil, err
		}

		details := map[string]interface{}{
			"file":   call.FilePath,
			"caller": call.CallerName,
			"callee": call.CalleeName,
		}
		if len(callers) == 0 {
			issues = append(issues, ValidationIssue{
				Code:    CodeOrphanCallNoCaller,
				Message: "call '" + call.CallerName + "' -> '" + call.CalleeName + "' at " + call.FilePath + " has no caller symbol",
				Details: details,
			})
		}
		if len(callees) == 0 {
			issues = append(issues, ValidationIssue{
				Code:    CodeOrphanCallNoCallee,
				Message: "call '" + call.CallerName + "' -> '" + call.CalleeName + "' at " + call.FilePath + " has no callee symbol",
				Details: details,
			})
		}
	}
	return issues, nil
}

// PreRunValidate checks the environment before indexing begins: the
// database's parent directory exists, the project root exists, and every
// explicit input path exists (spec §6, matching pre_run_validate). inputs
// may be empty; Magellan's config selects files by glob rather than an
// explicit path list, so callers normally pass nil.
func PreRunValidate(dbPath, rootPath string, inputs []string) ValidationReport {
	var errs []ValidationIssue

	if dbPath != "" {
		if parent := filepath.Dir(dbPath); parent != "" && parent != "." {
			if _, err := os.Stat(parent); err != nil && os.IsNotExist(err) {
				errs = append(errs, ValidationIssue{
					Code:    CodeDBParentMissing,
					Message: "database parent directory does not exist: " + parent,
					Details: map[string]interface{}{"db_path": dbPath, "parent": parent},
				})
			}
		}
	}

	if rootPath != "" {
		if _, err := os.Stat(rootPath); err != nil && os.IsNotExist(err) {
			errs = append(errs, ValidationIssue{
				Code:    CodeRootPathMissing,
				Message: "root path does not exist: " + rootPath,
				Details: map[string]interface{}{"root_path": rootPath},
			})
		}
	}

	for _, input := range inputs {
		if _, err := os.Stat(input); err != nil && os.IsNotExist(err) {
			errs = append(errs, ValidationIssue{
				Code:    CodeInputPathMissing,
				Message: "input path does not exist: " + input,
				Details: map[string]interface{}{"input_path": input},
			})
		}
	}

	return ValidationReport{Passed: len(errs) == 0, Errors: errs}
}
