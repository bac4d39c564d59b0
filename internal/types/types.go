// Package types holds the data model shared by every backend, the ingest
// pipeline, the query layer and the algorithms: the closed entity/edge
// vocabulary from spec.md §3 plus the span and identity types derived from
// it.
package types

import "time"

// EntityId is an opaque backend-assigned node identifier. Callers never
// construct one directly; backends hand them out from insert_node/upsert.
type EntityId int64

// NodeKind is the closed vocabulary of graph node kinds (spec §4.2).
type NodeKind string

const (
	NodeFile     NodeKind = "File"
	NodeSymbol   NodeKind = "Symbol"
	NodeRefer    NodeKind = "Reference"
	NodeCall     NodeKind = "Call"
	NodeAst      NodeKind = "AstNode"
	NodeCfgBlock NodeKind = "CfgBlock"
)

// EdgeType is the closed vocabulary of graph edge types (spec §4.2).
type EdgeType string

const (
	EdgeDefines    EdgeType = "DEFINES"
	EdgeReferences EdgeType = "REFERENCES"
	EdgeCaller     EdgeType = "CALLER"
	EdgeCalls      EdgeType = "CALLS"
	EdgeCfgBlock   EdgeType = "CFG_BLOCK"
)

// SymbolKind is the closed, cross-language symbol kind vocabulary (spec §3).
type SymbolKind string

const (
	KindFunction  SymbolKind = "Function"
	KindMethod    SymbolKind = "Method"
	KindClass     SymbolKind = "Class"
	KindInterface SymbolKind = "Interface"
	KindEnum      SymbolKind = "Enum"
	KindModule    SymbolKind = "Module"
	KindUnion     SymbolKind = "Union"
	KindNamespace SymbolKind = "Namespace"
	KindTypeAlias SymbolKind = "TypeAlias"
	KindUnknown   SymbolKind = "Unknown"
)

// Span is a half-open byte range plus line/column coordinates, identified by
// a content-addressed span_id (spec §3, §4.2).
type Span struct {
	SpanID    string `json:"span_id"`
	FilePath  string `json:"file_path"`
	ByteStart uint32 `json:"byte_start"`
	ByteEnd   uint32 `json:"byte_end"`
	StartLine uint32 `json:"start_line"`
	StartCol  uint32 `json:"start_col"`
	EndLine   uint32 `json:"end_line"`
	EndCol    uint32 `json:"end_col"`
}

// File is the node attached to every source file under index (spec §3).
type File struct {
	ID          EntityId  `json:"-"`
	Path        string    `json:"path"`
	ContentHash string    `json:"content_hash"`
	ByteSize    int64     `json:"byte_size"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// Symbol is a named declaration extracted from a file (spec §3).
type Symbol struct {
	ID            EntityId   `json:"-"`
	SymbolID      string     `json:"symbol_id"`
	Name          string     `json:"name"`
	Kind          string     `json:"kind"` // language-native kind string
	NormKind      SymbolKind `json:"norm_kind"`
	Language      string     `json:"language"`
	FilePath      string     `json:"file_path"`
	Span          Span       `json:"span"`
	FQN           string     `json:"fqn"`
	CanonicalFQN  string     `json:"canonical_fqn"`
	DisplayFQN    string     `json:"display_fqn"`
}

// Reference is an occurrence of a name resolving (or failing to resolve) to
// a symbol (spec §3). It carries no kind of its own.
type Reference struct {
	ID               EntityId `json:"-"`
	FilePath         string   `json:"file_path"`
	Span             Span     `json:"span"`
	ReferencedName   string   `json:"referenced_name"`
	TargetSymbolID   string   `json:"target_symbol_id,omitempty"`
}

// Call mediates a CALLER/CALLS edge pair between two symbols (spec §3).
type Call struct {
	ID             EntityId `json:"-"`
	FilePath       string   `json:"file_path"`
	CallerName     string   `json:"caller_name"`
	CalleeName     string   `json:"callee_name"`
	CallerSymbolID string   `json:"caller_symbol_id,omitempty"`
	CalleeSymbolID string   `json:"callee_symbol_id,omitempty"`
	Span           Span     `json:"span"`
}

// AstKind is the cross-language normalized AST node vocabulary (spec §4.4).
type AstKind string

const (
	AstIf       AstKind = "If"
	AstMatch    AstKind = "Match"
	AstWhile    AstKind = "While"
	AstFor      AstKind = "For"
	AstFunction AstKind = "Function"
	AstStruct   AstKind = "Struct"
	AstImpl     AstKind = "Impl"
	AstClass    AstKind = "Class"
	AstBlock    AstKind = "Block"
	AstCall     AstKind = "Call"
)

// AstNode is one structural node in a file's AST tree (spec §3). Leaves such
// as identifiers are never stored.
type AstNode struct {
	ID       EntityId  `json:"-"`
	Kind     string    `json:"kind"`
	Span     Span      `json:"span"`
	ParentID *EntityId `json:"parent_id,omitempty"`
	FileID   EntityId  `json:"-"`
}

// CfgBlockKind is the closed basic-block-kind vocabulary (spec §3).
type CfgBlockKind string

const (
	CfgEntry      CfgBlockKind = "Entry"
	CfgIf         CfgBlockKind = "If"
	CfgElse       CfgBlockKind = "Else"
	CfgLoop       CfgBlockKind = "Loop"
	CfgWhile      CfgBlockKind = "While"
	CfgFor        CfgBlockKind = "For"
	CfgMatchArm   CfgBlockKind = "MatchArm"
	CfgMatchMerge CfgBlockKind = "MatchMerge"
	CfgReturn     CfgBlockKind = "Return"
	CfgBreak      CfgBlockKind = "Break"
	CfgContinue   CfgBlockKind = "Continue"
	CfgBlockKindB CfgBlockKind = "Block"
)

// TerminatorKind is the closed basic-block terminator vocabulary (spec §3).
type TerminatorKind string

const (
	TermFallthrough TerminatorKind = "Fallthrough"
	TermConditional TerminatorKind = "Conditional"
	TermGoto        TerminatorKind = "Goto"
	TermReturn      TerminatorKind = "Return"
	TermBreak       TerminatorKind = "Break"
	TermContinue    TerminatorKind = "Continue"
	TermCall        TerminatorKind = "Call"
	TermPanic       TerminatorKind = "Panic"
)

// CfgBlock is one basic block of a function's control-flow graph (spec §3).
type CfgBlock struct {
	ID         EntityId       `json:"-"`
	FunctionID EntityId       `json:"-"`
	Kind       CfgBlockKind   `json:"kind"`
	Terminator TerminatorKind `json:"terminator"`
	Span       Span           `json:"span"`
}

// CodeChunk is a deduplicated, byte-ranged source slice (spec §3).
type CodeChunk struct {
	FilePath    string    `json:"file_path"`
	ByteStart   uint32    `json:"byte_start"`
	ByteEnd     uint32    `json:"byte_end"`
	Content     []byte    `json:"content"`
	ContentHash string    `json:"content_hash"`
	SymbolName  string    `json:"symbol_name,omitempty"`
	SymbolKind  string    `json:"symbol_kind,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExecutionRecord is one row per tool invocation (spec §3).
type ExecutionRecord struct {
	ExecutionID     string    `json:"execution_id"`
	ToolVersion     string    `json:"tool_version"`
	Args            []string  `json:"args"`
	Root            string    `json:"root"`
	DatabasePath    string    `json:"database_path"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at,omitzero"`
	Outcome         string    `json:"outcome"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	FileCount       int       `json:"file_count"`
	SymbolCount     int       `json:"symbol_count"`
	ReferenceCount  int       `json:"reference_count"`
}

// FileMetrics summarizes one file's size and coupling (spec §3).
type FileMetrics struct {
	Path        string  `json:"path"`
	SymbolCount int     `json:"symbol_count"`
	LOC         int     `json:"loc"`
	FanIn       int     `json:"fan_in"`
	FanOut      int     `json:"fan_out"`
	Complexity  float64 `json:"complexity"`
}

// SymbolMetrics summarizes one symbol's size and coupling (spec §3).
type SymbolMetrics struct {
	SymbolID   string  `json:"symbol_id"`
	Name       string  `json:"name"`
	Kind       string  `json:"kind"`
	FilePath   string  `json:"file_path"`
	LOC        int     `json:"loc"`
	FanIn      int     `json:"fan_in"`
	FanOut     int     `json:"fan_out"`
	Cyclomatic int     `json:"cyclomatic_complexity"`
}

// Direction selects which edges neighbors() follows (spec §4.1).
type Direction int

const (
	Incoming Direction = iota
	Outgoing
	Both
)

// NeighborQuery parameterizes Backend.Neighbors (spec §4.1).
type NeighborQuery struct {
	Direction Direction
	EdgeType  *EdgeType
}

// NodeRecord is the uniform view a backend returns for any node (spec §4.1).
type NodeRecord struct {
	ID       EntityId
	Kind     NodeKind
	Name     string
	FilePath string
	Data     []byte // raw JSON
}

// SnapshotID identifies a consistent read view of a backend (spec §4.1).
type SnapshotID int64
