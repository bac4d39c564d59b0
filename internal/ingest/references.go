package ingest

import (
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/oldnordic/magellan-go/internal/backend"
	"github.com/oldnordic/magellan-go/internal/kvindex"
	"github.com/oldnordic/magellan-go/internal/types"
)

// callNodeKinds are the raw grammar node types this pass treats as call
// sites, independent of the normalized AstCall bucket used for AST storage
// (a superset, since not every call-shaped node is worth persisting as an
// AstNode but every one of them is worth resolving as a Call edge).
var callNodeKinds = map[string]bool{
	"call_expression": true,
	"call":             true,
	"method_invocation": true,
}

// IndexReferencesAndCalls is pass 2 of the ingest pipeline (spec §4.4): for
// every identifier-shaped leaf in a file, resolve it against the symbol
// table built by pass 1 (in-scope first, then cross-file via sym:fqn:) and
// record a Reference; for every call-shaped node, additionally record a
// Call with CALLER/CALLS edges. Must run after every file in a
// reconciliation batch has completed pass 1, so cross-file FQN lookups see
// a complete table (spec §4.4's two-pass ordering). Returns the number of
// references and calls persisted, backing graphops' separately-named
// index_references/index_calls operations, which share this one walk.
func (e *Engine) IndexReferencesAndCalls(b backend.Backend, path string, content []byte, fileSymbols []types.Symbol) (refCount, callCount int, err error) {
	ext := extOf(path)
	cl, ok := e.byExt[ext]
	if !ok {
		return 0, 0, nil
	}

	tree := cl.parser.Parse(content, nil)
	if tree == nil {
		return 0, 0, nil
	}
	defer tree.Close()

	localByName := make(map[string]types.Symbol, len(fileSymbols))
	for _, s := range fileSymbols {
		localByName[s.Name] = s
	}

	fileID, err := fileEntityID(b, path)
	if err != nil {
		return 0, 0, err
	}

	var walk func(node tree_sitter.Node, enclosing *types.Symbol)
	walk = func(node tree_sitter.Node, enclosing *types.Symbol) {
		next := enclosing
		if sym, ok := localByName[enclosingName(node, content)]; ok {
			next = &sym
		}

		if callNodeKinds[node.Kind()] && node.ChildCount() > 0 {
			callee := string(content[node.Child(0).StartByte():node.Child(0).EndByte()])
			calleeSym, calleeResolved := e.resolveName(b, callee, localByName)
			span := spanOf(path, node)
			call := types.Call{
				FilePath: path, CallerName: callerNameOf(next), CalleeName: callee, Span: span,
			}
			if calleeResolved {
				call.CalleeSymbolID = calleeSym.SymbolID
			}
			callerResolved := next != nil
			var callerID types.EntityId
			if callerResolved {
				call.CallerSymbolID = next.SymbolID
				callerID = next.ID
			}
			e.persistCall(b, fileID, call, callerID, calleeSym.ID, callerResolved, calleeResolved)
			callCount++
		} else if node.Kind() == "identifier" && node.ChildCount() == 0 {
			name := string(content[node.StartByte():node.EndByte()])
			if sym, resolved := e.resolveName(b, name, localByName); resolved {
				span := spanOf(path, node)
				ref := types.Reference{FilePath: path, Span: span, ReferencedName: name, TargetSymbolID: sym.SymbolID}
				e.persistReference(b, fileID, ref, sym.ID)
				refCount++
			}
		}

		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child != nil {
				walk(*child, next)
			}
		}
	}
	walk(tree.RootNode(), nil)
	return refCount, callCount, nil
}

func callerNameOf(s *types.Symbol) string {
	if s == nil {
		return ""
	}
	return s.Name
}

// enclosingName reports the name of the function/method this node is
// directly named as (used only when node itself is a def site, to update
// the "current enclosing symbol" as the walk descends — a shallow
// approximation of full scope tracking that is adequate for associating
// calls with their containing function in the common one-level-deep case).
func enclosingName(node tree_sitter.Node, content []byte) string {
	kind, ok := astNodeKinds[node.Kind()]
	if !ok || kind != types.AstFunction {
		return ""
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == "identifier" {
			return string(content[child.StartByte():child.EndByte()])
		}
	}
	return ""
}

func (e *Engine) resolveName(b backend.Backend, name string, local map[string]types.Symbol) (types.Symbol, bool) {
	if sym, ok := local[name]; ok {
		return sym, true
	}
	data, found, err := b.KVGet(kvindex.SymbolByFQN(name))
	if err != nil || !found {
		return types.Symbol{}, false
	}
	id, err := decodeFileID(data)
	if err != nil {
		return types.Symbol{}, false
	}
	snap, err := b.SnapshotCurrent()
	if err != nil {
		return types.Symbol{}, false
	}
	rec, err := b.GetNode(snap, id)
	if err != nil {
		return types.Symbol{}, false
	}
	var sym types.Symbol
	if err := unmarshalSymbol(rec.Data, &sym); err != nil {
		return types.Symbol{}, false
	}
	sym.ID = id
	return sym, true
}

// persistCall upserts a Call node and wires its CALLER/CALLS edges (spec
// §3: `Symbol —CALLER→ Call —CALLS→ Symbol`) instead of attaching the node
// to its file via DEFINES, which spec reserves for File→Symbol. The node is
// still recorded under file:call:{file_id} so DeleteFile can cascade to it
// without a dedicated File→Call edge.
func (e *Engine) persistCall(b backend.Backend, fileID types.EntityId, call types.Call, callerID, calleeID types.EntityId, callerResolved, calleeResolved bool) {
	data, err := marshalCall(call)
	if err != nil {
		return
	}
	key := fmt.Sprintf("%s->%s:%d:%d", call.CallerName, call.CalleeName, call.Span.ByteStart, call.Span.ByteEnd)
	id, err := b.UpsertNodeByKindAndName(types.NodeCall, call.CalleeName, call.FilePath, key, data)
	if err != nil {
		return
	}
	appendFileIndex(b, kvindex.FileCalls(int64(fileID)), id)

	if callerResolved {
		_ = b.InsertEdge(callerID, id, types.EdgeCaller)
	}
	if calleeResolved {
		_ = b.InsertEdge(id, calleeID, types.EdgeCalls)
	}

	if call.CallerSymbolID != "" && call.CalleeSymbolID != "" {
		_ = b.KVSet(kvindex.CallsFrom(call.CallerSymbolID, call.CalleeSymbolID), []byte{1}, nil)
		_ = b.KVSet(kvindex.CallsTo(call.CallerSymbolID, call.CalleeSymbolID), []byte{1}, nil)
	}
}

// persistReference upserts a Reference node, wires its outgoing REFERENCES
// edge to targetID when resolved (spec §3: `Reference —REFERENCES→ Symbol`,
// not File→Reference via DEFINES), and appends it to its target symbol's
// sym:rev: reverse index so internal/query's references_to_symbol(symbol_id)
// can enumerate incoming references without a graph scan (spec §4.7). The
// node is also recorded under file:ref:{file_id} for DeleteFile's cascade.
func (e *Engine) persistReference(b backend.Backend, fileID types.EntityId, ref types.Reference, targetID types.EntityId) {
	data, err := marshalJSONAny(ref)
	if err != nil {
		return
	}
	key := fmt.Sprintf("%s:%d:%d", ref.ReferencedName, ref.Span.ByteStart, ref.Span.ByteEnd)
	id, err := b.UpsertNodeByKindAndName(types.NodeRefer, ref.ReferencedName, ref.FilePath, key, data)
	if err != nil {
		return
	}
	appendFileIndex(b, kvindex.FileReferences(int64(fileID)), id)

	if ref.TargetSymbolID == "" {
		return
	}
	_ = b.InsertEdge(id, targetID, types.EdgeReferences)

	revKey := kvindex.SymbolReverseRefs(ref.TargetSymbolID)
	existing, _, _ := b.KVGet(revKey)
	ids := append(kvindex.DecodeInt64List(existing), int64(id))
	_ = b.KVSet(revKey, kvindex.EncodeInt64List(ids), nil)
}

// appendFileIndex appends id to the encoded int64 list stored at key,
// the shared tail of FileReferences/FileCalls maintenance.
func appendFileIndex(b backend.Backend, key []byte, id types.EntityId) {
	existing, _, _ := b.KVGet(key)
	ids := append(kvindex.DecodeInt64List(existing), int64(id))
	_ = b.KVSet(key, kvindex.EncodeInt64List(ids), nil)
}

func fileEntityID(b backend.Backend, path string) (types.EntityId, error) {
	data, found, err := b.KVGet(kvindex.FileByPath(path))
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return decodeFileID(data)
}

func marshalCall(c types.Call) ([]byte, error) { return marshalJSONAny(c) }

func unmarshalSymbol(data []byte, out *types.Symbol) error { return unmarshalJSONAny(data, out) }
