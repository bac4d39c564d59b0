// Package query implements the read-only, snapshot-consistent query layer
// (spec §4.7): symbol/reference/call lookups driven entirely by
// internal/kvindex's side-index keys, plus a fuzzy symbol-name resolver for
// approximate lookups when an exact FQN doesn't match.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oldnordic/magellan-go/internal/backend"
	"github.com/oldnordic/magellan-go/internal/kvindex"
	"github.com/oldnordic/magellan-go/internal/types"
)

// Queries is a thin read-only facade over a Backend's current snapshot.
type Queries struct {
	backend backend.Backend
}

// New builds Queries over b.
func New(b backend.Backend) *Queries {
	return &Queries{backend: b}
}

func (q *Queries) snapshot() (types.SnapshotID, error) {
	return q.backend.SnapshotCurrent()
}

func (q *Queries) fileID(path string) (types.EntityId, bool, error) {
	data, found, err := q.backend.KVGet(kvindex.FileByPath(path))
	if err != nil || !found {
		return 0, found, err
	}
	id, err := decodeEntityID(data)
	return id, true, err
}

func (q *Queries) getSymbol(snap types.SnapshotID, id types.EntityId) (types.Symbol, error) {
	rec, err := q.backend.GetNode(snap, id)
	if err != nil {
		return types.Symbol{}, err
	}
	var sym types.Symbol
	if err := unmarshalJSON(rec.Data, &sym); err != nil {
		return types.Symbol{}, fmt.Errorf("decode symbol %d: %w", id, err)
	}
	return sym, nil
}

// SymbolsInFile enumerates path's Symbol nodes via file:sym:{id}, optionally
// filtered to kindFilter (empty string means no filter).
func (q *Queries) SymbolsInFile(path string, kindFilter types.SymbolKind) ([]types.Symbol, error) {
	fid, found, err := q.fileID(path)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	data, found, err := q.backend.KVGet(kvindex.FileSymbols(int64(fid)))
	if err != nil || !found {
		return nil, err
	}

	snap, err := q.snapshot()
	if err != nil {
		return nil, err
	}

	ids := kvindex.DecodeInt64List(data)
	symbols := make([]types.Symbol, 0, len(ids))
	for _, raw := range ids {
		sym, err := q.getSymbol(snap, types.EntityId(raw))
		if err != nil {
			continue // a symbol removed since this index entry was written
		}
		if kindFilter != "" && sym.NormKind != kindFilter {
			continue
		}
		symbols = append(symbols, sym)
	}
	return symbols, nil
}

// SymbolIDByName returns the symbol_id of the first symbol named name in
// path, used by tests and cross-file FQN resolution.
func (q *Queries) SymbolIDByName(path, name string) (string, bool, error) {
	symbols, err := q.SymbolsInFile(path, "")
	if err != nil {
		return "", false, err
	}
	for _, s := range symbols {
		if s.Name == name {
			return s.SymbolID, true, nil
		}
	}
	return "", false, nil
}

// FileByPath returns path's File node and entity id, used by
// internal/metrics.Computer to key its memoization cache off the file's
// current content hash. found is false when path has never been indexed.
func (q *Queries) FileByPath(path string) (types.File, types.EntityId, bool, error) {
	fid, found, err := q.fileID(path)
	if err != nil || !found {
		return types.File{}, 0, found, err
	}
	snap, err := q.snapshot()
	if err != nil {
		return types.File{}, 0, false, err
	}
	rec, err := q.backend.GetNode(snap, fid)
	if err != nil {
		return types.File{}, 0, false, err
	}
	var f types.File
	if err := unmarshalJSON(rec.Data, &f); err != nil {
		return types.File{}, 0, false, fmt.Errorf("decode file %d: %w", fid, err)
	}
	return f, fid, true, nil
}

// ReferencesToSymbol enumerates every Reference whose TargetSymbolID is
// symbolID, via the sym:rev: reverse index internal/ingest maintains.
func (q *Queries) ReferencesToSymbol(symbolID string) ([]types.Reference, error) {
	data, found, err := q.backend.KVGet(kvindex.SymbolReverseRefs(symbolID))
	if err != nil || !found {
		return nil, err
	}

	snap, err := q.snapshot()
	if err != nil {
		return nil, err
	}

	ids := kvindex.DecodeInt64List(data)
	refs := make([]types.Reference, 0, len(ids))
	for _, raw := range ids {
		rec, err := q.backend.GetNode(snap, types.EntityId(raw))
		if err != nil {
			continue
		}
		var ref types.Reference
		if err := unmarshalJSON(rec.Data, &ref); err != nil {
			continue
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// CallsFromSymbol returns the callee symbol ids symbolID calls directly, via
// the calls:from: prefix namespace.
func (q *Queries) CallsFromSymbol(symbolID string) ([]string, error) {
	return q.scanCallIDs(kvindex.CallsFromPrefix(symbolID))
}

// CallersOfSymbol returns the caller symbol ids that call symbolID directly,
// via the calls:to: prefix namespace.
func (q *Queries) CallersOfSymbol(symbolID string) ([]string, error) {
	return q.scanCallIDs(kvindex.CallsToPrefix(symbolID))
}

func (q *Queries) scanCallIDs(prefix []byte) ([]string, error) {
	snap, err := q.snapshot()
	if err != nil {
		return nil, err
	}
	pairs, err := q.backend.KVPrefixScan(snap, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, string(p.Key[len(prefix):]))
	}
	return out, nil
}

// CallersOfSymbolByName resolves (path, name) to a symbol id and returns its
// callers, a convenience wrapper spec §4.7 names alongside the id-based form.
func (q *Queries) CallersOfSymbolByName(path, name string) ([]string, error) {
	id, found, err := q.SymbolIDByName(path, name)
	if err != nil || !found {
		return nil, err
	}
	return q.CallersOfSymbol(id)
}

// CountFiles, CountSymbols, CountReferences and CountCalls each scan
// EntityIDs once and tally nodes by kind: cheap enough at this system's
// scale (spec §4.7) without a dedicated counter side-index.
func (q *Queries) CountFiles() (int, error)      { return q.countByKind(types.NodeFile) }
func (q *Queries) CountSymbols() (int, error)    { return q.countByKind(types.NodeSymbol) }
func (q *Queries) CountReferences() (int, error) { return q.countByKind(types.NodeRefer) }
func (q *Queries) CountCalls() (int, error)      { return q.countByKind(types.NodeCall) }

func (q *Queries) countByKind(kind types.NodeKind) (int, error) {
	ids, err := q.backend.EntityIDs()
	if err != nil {
		return 0, err
	}
	snap, err := q.snapshot()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		rec, err := q.backend.GetNode(snap, id)
		if err != nil {
			continue
		}
		if rec.Kind == kind {
			n++
		}
	}
	return n, nil
}

// CountChunks enumerates the chunk: namespace directly rather than via
// EntityIDs, since code chunks live in internal/chunkstore's own table
// (relational mode) or KV namespace (native mode) and are never graph
// nodes of their own.
func (q *Queries) CountChunks() (int, error) {
	snap, err := q.snapshot()
	if err != nil {
		return 0, err
	}
	pairs, err := q.backend.KVPrefixScan(snap, []byte("chunk:"))
	if err != nil {
		return 0, err
	}
	return len(pairs), nil
}

// allSymbolNames returns every known symbol's (name, symbol_id) pair, the
// candidate pool ResolveSymbolFuzzy ranks against.
func (q *Queries) allSymbolNames() ([]types.Symbol, error) {
	ids, err := q.backend.EntityIDs()
	if err != nil {
		return nil, err
	}
	snap, err := q.snapshot()
	if err != nil {
		return nil, err
	}
	var out []types.Symbol
	for _, id := range ids {
		rec, err := q.backend.GetNode(snap, id)
		if err != nil || rec.Kind != types.NodeSymbol {
			continue
		}
		var sym types.Symbol
		if err := unmarshalJSON(rec.Data, &sym); err != nil {
			continue
		}
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func normalizeForFuzzy(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
