// Package migrate implements cross-backend migration (spec §4.11): copying
// every entity, edge, side-index entry, and code chunk from one Backend
// into another, fresh one, preserving content byte-for-byte regardless of
// which concrete backend either side is.
package migrate

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/oldnordic/magellan-go/internal/backend"
	"github.com/oldnordic/magellan-go/internal/chunkstore"
	"github.com/oldnordic/magellan-go/internal/kvindex"
	"github.com/oldnordic/magellan-go/internal/types"
)

// Summary counts what Copy moved, for the caller's execution record.
type Summary struct {
	Files      int
	Symbols    int
	References int
	Calls      int
	AstNodes   int
	CfgBlocks  int
	Edges      int
	Chunks     int
}

// Copy walks every live node in src and recreates it in dst, then rebuilds
// dst's KV side-index from the copied nodes rather than byte-copying src's
// KV pairs: the side-index encodes entity ids (spec §4.3's sym:fqn:,
// file:sym: and ast:file: keys), and src's ids are not guaranteed to match
// the ones dst assigns, so every side-index entry is re-derived the same
// way internal/ingest derives it when it first indexes a node, using the
// translated (dst) id. dst is assumed empty: Copy uses InsertNode
// unconditionally rather than the idempotent upsert path.
func Copy(src, dst backend.Backend) (Summary, error) {
	var sum Summary

	snap, err := src.SnapshotCurrent()
	if err != nil {
		return sum, fmt.Errorf("snapshot source: %w", err)
	}

	ids, err := src.EntityIDs()
	if err != nil {
		return sum, fmt.Errorf("list source entities: %w", err)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	idMap := make(map[types.EntityId]types.EntityId, len(ids))
	records := make(map[types.EntityId]types.NodeRecord, len(ids))

	for _, id := range ids {
		rec, err := src.GetNode(snap, id)
		if err != nil {
			return sum, fmt.Errorf("read node %d: %w", id, err)
		}
		newID, err := dst.InsertNode(rec.Kind, rec.Name, rec.FilePath, rec.Data)
		if err != nil {
			return sum, fmt.Errorf("copy node %d: %w", id, err)
		}
		idMap[id] = newID
		records[id] = rec
	}

	if err := copyEdges(src, dst, snap, ids, idMap, &sum); err != nil {
		return sum, err
	}

	fileIDByPath, err := rebuildIndex(dst, ids, records, idMap, &sum)
	if err != nil {
		return sum, err
	}

	if err := copyCfgBlocks(src, dst, snap, &sum); err != nil {
		return sum, err
	}

	if err := copyChunks(src, dst, fileIDByPath, &sum); err != nil {
		return sum, err
	}

	return sum, nil
}

// copyEdges enumerates every outgoing edge from each source id (capturing
// every edge exactly once, since an edge's outgoing listing at its "from"
// endpoint is the canonical one) and recreates it between the translated
// endpoints.
func copyEdges(src, dst backend.Backend, snap types.SnapshotID, ids []types.EntityId, idMap map[types.EntityId]types.EntityId, sum *Summary) error {
	for _, id := range ids {
		neighbors, err := src.Neighbors(snap, id, types.NeighborQuery{Direction: types.Outgoing})
		if err != nil {
			return fmt.Errorf("read edges from %d: %w", id, err)
		}
		for _, n := range neighbors {
			to, ok := idMap[n.OtherID]
			if !ok {
				continue // dangling edge target, shouldn't happen in a consistent store
			}
			if err := dst.InsertEdge(idMap[id], to, n.EdgeType); err != nil {
				return fmt.Errorf("copy edge %d->%d: %w", id, n.OtherID, err)
			}
			sum.Edges++
		}
	}
	return nil
}

// rebuildIndex replays internal/ingest's own side-index writes (File's
// file:path:, Symbol's sym:fqn:/sym:fqn_of:/sym:id:, Reference's sym:rev:,
// Call's calls:from:/calls:to:, and the per-file file:sym:/ast:file:/
// file:ref:/file:call: lists) against dst using the
// translated ids, and returns the path->new-file-id map copyChunks needs.
func rebuildIndex(dst backend.Backend, ids []types.EntityId, records map[types.EntityId]types.NodeRecord, idMap map[types.EntityId]types.EntityId, sum *Summary) (map[string]types.EntityId, error) {
	fileIDByPath := make(map[string]types.EntityId)
	symbolsByFile := make(map[types.EntityId][]int64)
	astByFile := make(map[types.EntityId][]int64)
	revRefs := make(map[string][]int64)
	fileLists := make(map[string][]int64) // file:ref:/file:call: key -> Reference/Call ids

	for _, id := range ids {
		rec := records[id]
		newID := idMap[id]

		switch rec.Kind {
		case types.NodeFile:
			if err := dst.KVSet(kvindex.FileByPath(rec.FilePath), encodeEntityID(newID), nil); err != nil {
				return nil, err
			}
			fileIDByPath[rec.FilePath] = newID
			sum.Files++

		case types.NodeSymbol:
			var sym types.Symbol
			if err := json.Unmarshal(rec.Data, &sym); err != nil {
				return nil, fmt.Errorf("decode symbol %d: %w", id, err)
			}
			if err := dst.KVSet(kvindex.SymbolByFQN(sym.FQN), encodeEntityID(newID), nil); err != nil {
				return nil, err
			}
			if err := dst.KVSet(kvindex.SymbolFQNOf(sym.SymbolID), []byte(sym.FQN), nil); err != nil {
				return nil, err
			}
			if err := dst.KVSet(kvindex.SymbolMetadata(sym.SymbolID), rec.Data, nil); err != nil {
				return nil, err
			}
			sum.Symbols++

		case types.NodeRefer:
			var ref types.Reference
			if err := json.Unmarshal(rec.Data, &ref); err != nil {
				return nil, fmt.Errorf("decode reference %d: %w", id, err)
			}
			if ref.TargetSymbolID != "" {
				revRefs[ref.TargetSymbolID] = append(revRefs[ref.TargetSymbolID], int64(newID))
			}
			sum.References++

		case types.NodeCall:
			var call types.Call
			if err := json.Unmarshal(rec.Data, &call); err != nil {
				return nil, fmt.Errorf("decode call %d: %w", id, err)
			}
			if call.CallerSymbolID != "" && call.CalleeSymbolID != "" {
				if err := dst.KVSet(kvindex.CallsFrom(call.CallerSymbolID, call.CalleeSymbolID), []byte{1}, nil); err != nil {
					return nil, err
				}
				if err := dst.KVSet(kvindex.CallsTo(call.CallerSymbolID, call.CalleeSymbolID), []byte{1}, nil); err != nil {
					return nil, err
				}
			}
			sum.Calls++

		case types.NodeAst:
			sum.AstNodes++
		}
	}

	// A second pass groups Symbol/AstNode/Reference/Call ids by their owning file, which
	// requires the file pass above to have already populated fileIDByPath.
	for _, id := range ids {
		rec := records[id]
		newID := idMap[id]
		fid, ok := fileIDByPath[rec.FilePath]
		if !ok {
			continue
		}
		switch rec.Kind {
		case types.NodeSymbol:
			symbolsByFile[fid] = append(symbolsByFile[fid], int64(newID))
		case types.NodeAst:
			astByFile[fid] = append(astByFile[fid], int64(newID))
		case types.NodeRefer:
			key := string(kvindex.FileReferences(int64(fid)))
			fileLists[key] = append(fileLists[key], int64(newID))
		case types.NodeCall:
			key := string(kvindex.FileCalls(int64(fid)))
			fileLists[key] = append(fileLists[key], int64(newID))
		}
	}

	for fid, symIDs := range symbolsByFile {
		sort.Slice(symIDs, func(i, j int) bool { return symIDs[i] < symIDs[j] })
		if err := dst.KVSet(kvindex.FileSymbols(int64(fid)), kvindex.EncodeInt64List(symIDs), nil); err != nil {
			return nil, err
		}
	}
	for fid, nodeIDs := range astByFile {
		sort.Slice(nodeIDs, func(i, j int) bool { return nodeIDs[i] < nodeIDs[j] })
		if err := dst.KVSet(kvindex.AstFile(int64(fid)), kvindex.EncodeInt64List(nodeIDs), nil); err != nil {
			return nil, err
		}
	}
	for symID, refIDs := range revRefs {
		sort.Slice(refIDs, func(i, j int) bool { return refIDs[i] < refIDs[j] })
		if err := dst.KVSet(kvindex.SymbolReverseRefs(symID), kvindex.EncodeInt64List(refIDs), nil); err != nil {
			return nil, err
		}
	}
	for key, listIDs := range fileLists {
		if err := dst.KVSet([]byte(key), kvindex.EncodeInt64List(listIDs), nil); err != nil {
			return nil, err
		}
	}

	return fileIDByPath, nil
}

// copyCfgBlocks copies cfg:func: entries verbatim: they are keyed and
// valued entirely by symbol_id strings and Span data, with no entity id
// inside to translate, so a byte copy is exact.
func copyCfgBlocks(src, dst backend.Backend, snap types.SnapshotID, sum *Summary) error {
	pairs, err := src.KVPrefixScan(snap, []byte("cfg:func:"))
	if err != nil {
		return fmt.Errorf("scan cfg blocks: %w", err)
	}
	for _, p := range pairs {
		if err := dst.KVSet(p.Key, p.Value, nil); err != nil {
			return fmt.Errorf("copy cfg block %s: %w", p.Key, err)
		}
		sum.CfgBlocks++
	}
	return nil
}

// copyChunks re-stores every chunk for every migrated file path through
// chunkstore.Store on both ends, so a relational-table source lands in a
// native KV destination (or vice versa) without either side's storage
// strategy leaking into this package. Content bytes pass through
// unmodified (spec's UTF-8-byte-identical chunk requirement).
func copyChunks(src, dst backend.Backend, fileIDByPath map[string]types.EntityId, sum *Summary) error {
	srcChunks := chunkstore.New(src)
	dstChunks := chunkstore.New(dst)

	paths := make([]string, 0, len(fileIDByPath))
	for p := range fileIDByPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		chunks, err := srcChunks.ForFile(path)
		if err != nil {
			return fmt.Errorf("read chunks for %s: %w", path, err)
		}
		for _, c := range chunks {
			if _, err := dstChunks.Put(path, c.ByteStart, c.ByteEnd, c.Content, c.SymbolName, c.SymbolKind, c.CreatedAt); err != nil {
				return fmt.Errorf("copy chunk %s[%d:%d]: %w", path, c.ByteStart, c.ByteEnd, err)
			}
			sum.Chunks++
		}
	}
	return nil
}

func encodeEntityID(id types.EntityId) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(id))
	return buf[:]
}

