package reconcile

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/t14raptor/go-fast/parser"
)

// priorityOf estimates how "busy" a file is, used only to order concurrent
// dispatch within a batch (spec.md §5 leaves cross-file ordering
// unguaranteed; the authoritative per-path application still runs through
// the same idempotent index_file/delete_file calls regardless of this
// order). For .js/.ts files it counts top-level statements with go-fast's
// cheap parser; for everything else it falls back to a byte-size proxy.
// Parse failures (go-fast doesn't cover every ES6/TS construct) just fall
// back too, since this estimate never gates correctness.
func priorityOf(path string, content []byte) int {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".ts", ".jsx", ".tsx", ".mjs", ".cjs":
		if program, err := parser.ParseFile(string(content)); err == nil {
			return len(program.Body)
		}
	}
	return len(content) / 256
}

// sortByPriorityDesc orders paths busiest-first for the worker pool to pick
// up, without disturbing DirtySet.Drain's lexicographic contract: callers
// pass it a copy of a batch already captured, and use the lexicographic
// slice for anything requiring determinism (logging, execution records).
func sortByPriorityDesc(paths []string, priority map[string]int) []string {
	out := append([]string(nil), paths...)
	sort.SliceStable(out, func(i, j int) bool { return priority[out[i]] > priority[out[j]] })
	return out
}
