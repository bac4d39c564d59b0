package ingest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/oldnordic/magellan-go/internal/backend"
	"github.com/oldnordic/magellan-go/internal/chunkstore"
	"github.com/oldnordic/magellan-go/internal/debug"
	"github.com/oldnordic/magellan-go/internal/errors"
	"github.com/oldnordic/magellan-go/internal/ident"
	"github.com/oldnordic/magellan-go/internal/kvindex"
	"github.com/oldnordic/magellan-go/internal/types"
)

type compiledLanguage struct {
	name   string
	parser *tree_sitter.Parser
	query  *tree_sitter.Query
}

// Engine holds one compiled parser+query per supported extension and
// applies them against a Backend (spec §4.4). An Engine is safe to reuse
// across files but not safe for concurrent IndexFile calls on the same
// Backend without external synchronization — the reconciler applies one
// path at a time under a lock (spec §5).
type Engine struct {
	byExt map[string]*compiledLanguage
}

// NewEngine compiles every entry in languageTable. A language whose grammar
// fails to load (tree-sitter's Go binding can return a typed-nil query on
// some platforms) is skipped rather than aborting the whole engine; its
// extensions stay unregistered, so IndexFile treats files in that language
// as an unsupported extension (no symbols, no error).
func NewEngine() *Engine {
	e := &Engine{byExt: make(map[string]*compiledLanguage)}
	for _, spec := range languageTable {
		parser := tree_sitter.NewParser()
		lang := spec.LoadLang()
		if err := parser.SetLanguage(lang); err != nil {
			continue
		}
		query, _ := tree_sitter.NewQuery(lang, spec.QuerySrc)
		if query == nil {
			continue
		}
		cl := &compiledLanguage{name: spec.Name, parser: parser, query: query}
		for _, ext := range spec.Extensions {
			e.byExt[ext] = cl
		}
	}
	return e
}

// LanguageFor returns the language name registered for a file extension
// (including the leading dot), and whether one is registered.
func (e *Engine) LanguageFor(ext string) (string, bool) {
	cl, ok := e.byExt[ext]
	if !ok {
		return "", false
	}
	return cl.name, true
}

// extractedSymbol is the intermediate form produced by the capture walk,
// before it is written through the backend.
type extractedSymbol struct {
	name      string
	kind      types.SymbolKind
	rawKind   string
	node      tree_sitter.Node
}

// IndexFile implements the idempotent per-file ingest pipeline's first pass
// (spec §4.4.2, §3's operation list): hash-check skip, parse, upsert File,
// upsert Symbols/AstNodes/CfgBlocks/CodeChunks. Pass 2 (references/calls)
// is IndexReferencesAndCalls, run after every file in a batch has completed
// pass 1 so cross-file FQN lookups see a complete symbol table.
func (e *Engine) IndexFile(b backend.Backend, chunks *chunkstore.Store, path string, content []byte) ([]types.Symbol, error) {
	ext := extOf(path)
	cl, ok := e.byExt[ext]
	if !ok {
		return nil, nil // unsupported extension: not an error, just not indexed
	}

	contentHash := ident.ContentHash(content)
	fileKey, found, err := b.KVGet(kvindex.FileByPath(path))
	if err == nil && found {
		// Cheap short-circuit: if the stored file node already reports this
		// hash, skip re-parsing entirely (spec §4.4.2 idempotence).
		snap, _ := b.SnapshotCurrent()
		if id, decodeErr := decodeFileID(fileKey); decodeErr == nil {
			if rec, getErr := b.GetNode(snap, id); getErr == nil {
				if storedHash, ok := fileContentHash(rec.Data); ok && storedHash == contentHash {
					debug.LogIngest("skip %s: content hash unchanged", path)
					return nil, nil
				}
			}
		}
	}

	tree := cl.parser.Parse(content, nil)
	if tree == nil {
		return nil, errors.NewParseFailureError(path, cl.name, fmt.Errorf("parser returned nil tree"))
	}
	defer tree.Close()

	fileData, _ := marshalFile(types.File{Path: path, ContentHash: contentHash, ByteSize: int64(len(content)), IndexedAt: time.Now()})
	fileID, err := b.UpsertNodeByKindAndName(types.NodeFile, path, path, path, fileData)
	if err != nil {
		return nil, err
	}
	if err := b.KVSet(kvindex.FileByPath(path), encodeFileID(fileID), nil); err != nil {
		return nil, err
	}

	symbols := e.extractSymbols(cl, tree, content, path)

	var symbolIDs []int64
	var result []types.Symbol
	for _, es := range symbols {
		span := spanOf(path, es.node)
		language := cl.name
		fqn := es.name // intra-file qualification beyond name is grammar-specific; spec treats name as the baseline FQN when no enclosing scope is tracked
		symID := ident.SymbolID(language, fqn, span.SpanID)
		sym := types.Symbol{
			SymbolID: symID, Name: es.name, Kind: es.rawKind, NormKind: es.kind,
			Language: language, FilePath: path, Span: span, FQN: fqn, CanonicalFQN: fqn, DisplayFQN: fqn,
		}
		data, _ := marshalSymbol(sym)
		nameHash := fmt.Sprintf("%s:%s:%d:%d", es.kind, es.name, span.ByteStart, span.ByteEnd)
		entID, err := b.UpsertNodeByKindAndName(types.NodeSymbol, es.name, path, nameHash, data)
		if err != nil {
			return nil, err
		}
		sym.ID = entID
		if err := b.InsertEdge(fileID, entID, types.EdgeDefines); err != nil {
			return nil, err
		}
		if err := b.KVSet(kvindex.SymbolByFQN(fqn), encodeFileID(entID), nil); err != nil {
			return nil, err
		}
		if err := b.KVSet(kvindex.SymbolFQNOf(symID), []byte(fqn), nil); err != nil {
			return nil, err
		}
		if err := b.KVSet(kvindex.SymbolMetadata(symID), data, nil); err != nil {
			return nil, err
		}
		symbolIDs = append(symbolIDs, int64(entID))
		result = append(result, sym)

		if chunks != nil {
			if _, err := chunks.Put(path, span.ByteStart, span.ByteEnd, contentSlice(content, span), es.name, string(es.kind), time.Now()); err != nil {
				return nil, err
			}
		}

		e.emitCFG(b, sym, es.node)
	}
	sort.Slice(symbolIDs, func(i, j int) bool { return symbolIDs[i] < symbolIDs[j] })
	if err := b.KVSet(kvindex.FileSymbols(int64(fileID)), kvindex.EncodeInt64List(symbolIDs), nil); err != nil {
		return nil, err
	}

	e.emitASTNodes(b, fileID, tree.RootNode(), content, path)

	return result, nil
}

// DeleteFile removes a file's node and every entity derived from it,
// matching the relational/native delete-then-reinsert idempotence rule
// (spec §4.4.2): a re-index always starts from a clean slate for that file.
// Symbols (and AstNodes) are still DEFINES-edged to the file and found via
// Neighbors; References and Calls carry their own REFERENCES/CALLER/CALLS
// edges per spec §3 instead, so they are found via the file:ref:/file:call:
// side indexes IndexReferencesAndCalls maintains.
func (e *Engine) DeleteFile(b backend.Backend, path string) error {
	key, ok, err := b.KVGet(kvindex.FileByPath(path))
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	fileID, err := decodeFileID(key)
	if err != nil {
		return err
	}

	snap, err := b.SnapshotCurrent()
	if err != nil {
		return err
	}
	neighbors, err := b.Neighbors(snap, fileID, types.NeighborQuery{Direction: types.Outgoing, EdgeType: edgeTypePtr(types.EdgeDefines)})
	if err != nil {
		return err
	}
	for _, n := range neighbors {
		if err := b.DeleteNode(n.OtherID); err != nil {
			return err
		}
	}

	for _, key := range [][]byte{kvindex.FileReferences(int64(fileID)), kvindex.FileCalls(int64(fileID))} {
		data, found, err := b.KVGet(key)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		for _, id := range kvindex.DecodeInt64List(data) {
			if err := b.DeleteNode(types.EntityId(id)); err != nil {
				return err
			}
		}
	}

	return b.DeleteNode(fileID)
}

func (e *Engine) extractSymbols(cl *compiledLanguage, tree *tree_sitter.Tree, content []byte, path string) []extractedSymbol {
	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()
	matches := qc.Matches(cl.query, tree.RootNode(), content)
	captureNames := cl.query.CaptureNames()

	var symbols []extractedSymbol
	for {
		match := matches.Next()
		if match == nil {
			break
		}

		names := make(map[string]string, 4)
		for _, c := range match.Captures {
			cname := captureNames[c.Index]
			if strings.HasSuffix(cname, ".name") {
				names[cname] = string(content[c.Node.StartByte():c.Node.EndByte()])
			}
		}

		for _, c := range match.Captures {
			cname := captureNames[c.Index]
			kind, ok := captureKind[cname]
			if !ok {
				continue
			}
			name := names[cname+".name"]
			if name == "" {
				name = fmt.Sprintf("<anonymous@%d>", c.Node.StartByte())
			}
			symbols = append(symbols, extractedSymbol{name: name, kind: kind, rawKind: cname, node: c.Node})
		}
	}
	return symbols
}

func (e *Engine) emitASTNodes(b backend.Backend, fileID types.EntityId, root tree_sitter.Node, content []byte, path string) {
	var nodeIDs []int64
	var walk func(node tree_sitter.Node, parentID *types.EntityId)
	walk = func(node tree_sitter.Node, parentID *types.EntityId) {
		normKind, interesting := astNodeKinds[node.Kind()]
		var selfID *types.EntityId
		if interesting {
			span := spanOf(path, node)
			data, _ := marshalAstNode(types.AstNode{Kind: string(normKind), Span: span, ParentID: parentID, FileID: fileID})
			key := fmt.Sprintf("%d:%d:%s", span.ByteStart, span.ByteEnd, normKind)
			id, err := b.UpsertNodeByKindAndName(types.NodeAst, string(normKind), path, key, data)
			if err == nil {
				nodeIDs = append(nodeIDs, int64(id))
				_ = b.InsertEdge(fileID, id, types.EdgeDefines)
				selfID = &id
			}
		}
		next := parentID
		if selfID != nil {
			next = selfID
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child != nil {
				walk(*child, next)
			}
		}
	}
	walk(root, nil)

	sort.Slice(nodeIDs, func(i, j int) bool { return nodeIDs[i] < nodeIDs[j] })
	_ = b.KVSet(kvindex.AstFile(int64(fileID)), kvindex.EncodeInt64List(nodeIDs), nil)
}

// emitCFG builds the basic-block list for one function/method symbol (spec
// §4.4.1): an Entry block plus one block per control-flow construct found
// in the symbol's own body (if/else/loop/while/for/match-arm/return/break/
// continue), overwriting any prior CFG for that symbol id. The walk itself
// is cfgWalker, grounded on cfg_extractor.rs's visit_block/visit_control_flow.
func (e *Engine) emitCFG(b backend.Backend, sym types.Symbol, node tree_sitter.Node) {
	if sym.NormKind != types.KindFunction && sym.NormKind != types.KindMethod {
		return
	}
	w := &cfgWalker{path: sym.FilePath}
	w.walkFunction(node)
	if len(w.blocks) == 0 {
		w.blocks = []types.CfgBlock{{Kind: types.CfgEntry, Terminator: types.TermFallthrough, Span: sym.Span}}
	}
	data, err := marshalCfgBlocks(w.blocks)
	if err != nil {
		return
	}
	_ = b.KVSet(kvindex.CfgFunc(sym.SymbolID), data, nil)
}

func edgeTypePtr(e types.EdgeType) *types.EdgeType { return &e }

func extOf(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return ""
	}
	return path[idx:]
}

func spanOf(path string, node tree_sitter.Node) types.Span {
	start, end := node.StartByte(), node.EndByte()
	startPos, endPos := node.StartPosition(), node.EndPosition()
	return types.Span{
		SpanID:    ident.SpanID(path, uint64(start), uint64(end)),
		FilePath:  path,
		ByteStart: uint32(start),
		ByteEnd:   uint32(end),
		StartLine: uint32(startPos.Row) + 1,
		StartCol:  uint32(startPos.Column),
		EndLine:   uint32(endPos.Row) + 1,
		EndCol:    uint32(endPos.Column),
	}
}

func contentSlice(content []byte, span types.Span) []byte {
	if int(span.ByteEnd) > len(content) {
		return nil
	}
	out := make([]byte, span.ByteEnd-span.ByteStart)
	copy(out, content[span.ByteStart:span.ByteEnd])
	return out
}
