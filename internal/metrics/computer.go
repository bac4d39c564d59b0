package metrics

import (
	"github.com/oldnordic/magellan-go/internal/backend"
	"github.com/oldnordic/magellan-go/internal/cache"
	"github.com/oldnordic/magellan-go/internal/types"
)

// Computer wraps ComputeSymbolMetrics with a content-hash-keyed memoization
// cache, so re-indexing a file whose content hash hasn't changed skips
// recomputing every symbol's fan-in/fan-out/complexity (spec §4.3).
type Computer struct {
	backend backend.Backend
	cache   *cache.MetricsCache
}

// NewComputer builds a Computer backed by c. A nil cache disables
// memoization and every call recomputes from the graph.
func NewComputer(b backend.Backend, c *cache.MetricsCache) *Computer {
	return &Computer{backend: b, cache: c}
}

// SymbolMetrics returns sym's metrics, serving a cached value if contentHash
// matches an entry already computed for this file or, failing that, if an
// entry exists for the same file id and symbol, whatever its content hash.
func (c *Computer) SymbolMetrics(snap types.SnapshotID, fileID types.EntityId, contentHash string, sym types.Symbol) (types.SymbolMetrics, error) {
	if c.cache != nil {
		if cached := c.cache.Get([]byte(contentHash), int(fileID), sym.SymbolID); cached != nil {
			if sm, ok := cached.(types.SymbolMetrics); ok {
				return sm, nil
			}
		}
	}

	sm, err := ComputeSymbolMetrics(c.backend, snap, sym)
	if err != nil {
		return types.SymbolMetrics{}, err
	}

	if c.cache != nil {
		c.cache.Put([]byte(contentHash), int(fileID), sym.SymbolID, sm)
	}
	return sm, nil
}

// FileMetrics returns file's metrics, serving a cached value if file's own
// content hash matches an entry already computed or, failing that, if an
// entry exists for the same file id and path, whatever its content hash.
func (c *Computer) FileMetrics(snap types.SnapshotID, file types.File, fileID types.EntityId) (types.FileMetrics, error) {
	if c.cache != nil {
		if cached := c.cache.Get([]byte(file.ContentHash), int(fileID), file.Path); cached != nil {
			if fm, ok := cached.(types.FileMetrics); ok {
				return fm, nil
			}
		}
	}

	fm, err := ComputeFileMetrics(c.backend, snap, file, fileID)
	if err != nil {
		return types.FileMetrics{}, err
	}

	if c.cache != nil {
		c.cache.Put([]byte(file.ContentHash), int(fileID), file.Path, fm)
	}
	return fm, nil
}
