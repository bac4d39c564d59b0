// Package chunkstore owns chunk byte contents exclusively (spec §4.5): no
// other package reads or writes types.CodeChunk. It selects its storage
// strategy by what the backend exposes — a relational backend with a
// dedicated code_chunks table is used directly; anything else falls back
// to the KV namespace from internal/kvindex.
package chunkstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/oldnordic/magellan-go/internal/backend"
	"github.com/oldnordic/magellan-go/internal/errors"
	"github.com/oldnordic/magellan-go/internal/ident"
	"github.com/oldnordic/magellan-go/internal/kvindex"
	"github.com/oldnordic/magellan-go/internal/types"
)

// TableBackend is implemented by backends that store chunks in a dedicated
// table with indexes on file_path, symbol_name and content_hash (spec
// §4.5's relational mode), rather than through the generic KV namespace.
type TableBackend interface {
	InsertChunk(chunk types.CodeChunk) error
	GetChunk(path string, start, end uint32) (types.CodeChunk, bool, error)
	ChunksForFile(path string) ([]types.CodeChunk, error)
}

// Store is the chunk persistence layer. It is constructed over whatever
// backend.Backend the rest of the system is using, so it never owns a
// connection of its own outside of the shim mode below.
type Store struct {
	tbl TableBackend // non-nil when the backend supports direct table storage
	kv  backend.Backend
}

// New wraps b. If b also implements TableBackend (the relational backend
// does), chunk operations go straight to its code_chunks table; otherwise
// they go through b's KV methods under the chunk: namespace.
func New(b backend.Backend) *Store {
	s := &Store{kv: b}
	if tbl, ok := b.(TableBackend); ok {
		s.tbl = tbl
	}
	return s
}

// NewTempShim opens a throwaway relational backend in a temp file: the shim
// mode spec §4.5 describes for in-memory-style stubs. Native-mode in-memory
// operation has no durable chunk requirement of its own, so rather than
// invent a second in-memory chunk table, the shim always backs onto a real
// (temporary) SQLite file and reuses RelationalBackend's TableBackend path.
func NewTempShim() (*Store, func() error, error) {
	dir, err := os.MkdirTemp("", "magellan-chunkstore-shim-*")
	if err != nil {
		return nil, nil, errors.NewBackendError("chunkstore-shim-mkdir", err)
	}
	rb, err := backend.OpenRelationalBackend(filepath.Join(dir, "chunks.db"))
	if err != nil {
		os.RemoveAll(dir)
		return nil, nil, err
	}
	cleanup := func() error {
		rb.Close()
		return os.RemoveAll(dir)
	}
	return New(rb), cleanup, nil
}

// Put stores content for (path, start, end), computing its content hash and
// creation timestamp. Idempotent: storing the same span twice overwrites in
// place (primary-keyed on file_path+byte_start+byte_end in the relational
// table, and on the full chunk key in the KV namespace).
func (s *Store) Put(path string, start, end uint32, content []byte, symbolName, symbolKind string, createdAt time.Time) (types.CodeChunk, error) {
	chunk := types.CodeChunk{
		FilePath:    path,
		ByteStart:   start,
		ByteEnd:     end,
		Content:     content,
		ContentHash: ident.ContentHash(content),
		SymbolName:  symbolName,
		SymbolKind:  symbolKind,
		CreatedAt:   createdAt,
	}

	if s.tbl != nil {
		if err := s.tbl.InsertChunk(chunk); err != nil {
			return types.CodeChunk{}, err
		}
		return chunk, nil
	}

	data, err := json.Marshal(chunk)
	if err != nil {
		return types.CodeChunk{}, errors.NewSerializationError("chunk", err)
	}
	if err := s.kv.KVSet(kvindex.Chunk(path, start, end), data, nil); err != nil {
		return types.CodeChunk{}, err
	}
	return chunk, nil
}

// Get fetches a chunk by exact span. ok is false if absent.
func (s *Store) Get(path string, start, end uint32) (types.CodeChunk, bool, error) {
	if s.tbl != nil {
		return s.tbl.GetChunk(path, start, end)
	}

	data, ok, err := s.kv.KVGet(kvindex.Chunk(path, start, end))
	if err != nil || !ok {
		return types.CodeChunk{}, ok, err
	}
	var chunk types.CodeChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return types.CodeChunk{}, false, errors.NewSerializationError("chunk", err)
	}
	return chunk, true, nil
}

// ForFile enumerates every stored chunk for path. In native mode this is a
// prefix scan over chunk:{escaped_path}:; in relational mode it's an
// indexed file_path lookup.
func (s *Store) ForFile(path string) ([]types.CodeChunk, error) {
	if s.tbl != nil {
		return s.tbl.ChunksForFile(path)
	}

	snap, err := s.kv.SnapshotCurrent()
	if err != nil {
		return nil, err
	}
	pairs, err := s.kv.KVPrefixScan(snap, kvindex.ChunkFilePrefix(path))
	if err != nil {
		return nil, err
	}
	chunks := make([]types.CodeChunk, 0, len(pairs))
	for _, p := range pairs {
		var chunk types.CodeChunk
		if err := json.Unmarshal(p.Value, &chunk); err != nil {
			return nil, errors.NewSerializationError("chunk", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}
