package algo

import "github.com/oldnordic/magellan-go/internal/types"

// CycleKind classifies a strongly connected component found by Tarjan's
// algorithm (spec §4.8).
type CycleKind string

const (
	SelfLoop        CycleKind = "SelfLoop"
	MutualRecursion CycleKind = "MutualRecursion"
	LargerCycle     CycleKind = "LargerCycle"
)

// Cycle is one strongly connected component of size >= 2, or a size-1
// component with a self-loop.
type Cycle struct {
	Kind      CycleKind
	SymbolIDs []string
}

// CycleReport is detect_cycles's return value.
type CycleReport struct {
	Cycles []Cycle
}

// Supernode is one SCC-condensed vertex of the call graph.
type Supernode struct {
	ID        int
	SymbolIDs []string
}

// CondensedEdge is one edge of the condensed DAG, between supernode ids.
type CondensedEdge struct {
	From, To int
}

// CondensedGraph is condense_call_graph's return value: the resulting graph
// is always a DAG.
type CondensedGraph struct {
	Supernodes      []Supernode
	OriginalToSuper map[string]int // symbol id -> supernode id
	Edges           []CondensedEdge
}

// Path is one traversal from enumerate_paths's start to its end (or to a
// maximal leaf when no end was given).
type Path struct {
	SymbolIDs []string
}

// PathSet is enumerate_paths's return value.
type PathSet struct {
	Paths     []Path
	Truncated bool // true if max_paths was hit before exhausting all paths
}

// Slice is backward_slice/forward_slice's return value.
type Slice struct {
	Symbols             []types.Symbol
	TotalSymbols        int
	DataDependencies    int // always 0 under the call-graph-only fallback
	ControlDependencies int // edge count within the slice
}
