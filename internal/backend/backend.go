// Package backend defines the polymorphic storage abstraction (spec §4.1):
// a uniform interface over a relational implementation and a native
// KV+graph implementation. Callers depend only on this interface; the two
// concrete backends are interchangeable.
package backend

import (
	"time"

	"github.com/oldnordic/magellan-go/internal/types"
)

// KVPair is one entry returned by a prefix scan.
type KVPair struct {
	Key   []byte
	Value []byte
}

// NeighborEdge is one edge returned by Neighbors: the edge type and the id
// at the other end.
type NeighborEdge struct {
	EdgeType types.EdgeType
	OtherID  types.EntityId
}

// Backend is the storage contract every component in this repository
// programs against (spec §4.1). Implementations MUST guarantee:
//
//   - Upsert by (kind, file_path, uniqueKey) is idempotent.
//   - DeleteNode removes the node and every edge incident on it.
//   - Neighbors(..., edgeType=non-nil) returns only edges of that type.
//   - EntityIDs enumerates every live node.
//   - A failed write leaves the store in its pre-write state.
type Backend interface {
	// InsertNode creates a new node unconditionally and returns its id.
	InsertNode(kind types.NodeKind, name, filePath string, data []byte) (types.EntityId, error)

	// UpsertNodeByKindAndName returns the existing node's id if one already
	// exists for (kind, filePath, uniqueKey); otherwise it inserts a new one
	// and returns its id. The caller computes uniqueKey per spec §4.4 (e.g.
	// a hash of the symbol name for Symbol nodes, or the path itself for
	// File nodes).
	UpsertNodeByKindAndName(kind types.NodeKind, name, filePath, uniqueKey string, data []byte) (types.EntityId, error)

	// InsertEdge creates an edge. Both endpoints must already exist.
	InsertEdge(from, to types.EntityId, edgeType types.EdgeType) error

	// DeleteNode removes a node and cascades to every incident edge.
	DeleteNode(id types.EntityId) error

	// GetNode fetches a node as of the given snapshot.
	GetNode(snapshot types.SnapshotID, id types.EntityId) (types.NodeRecord, error)

	// Neighbors enumerates edges incident on id as of the given snapshot.
	Neighbors(snapshot types.SnapshotID, id types.EntityId, q types.NeighborQuery) ([]NeighborEdge, error)

	// EntityIDs enumerates every live node id.
	EntityIDs() ([]types.EntityId, error)

	// KVGet fetches a side-index value. ok is false if absent or expired.
	KVGet(key []byte) (value []byte, ok bool, err error)

	// KVSet stores a side-index value, optionally with a TTL. Native-only;
	// relational implementations may route this through a kv table.
	KVSet(key, value []byte, ttl *time.Duration) error

	// KVPrefixScan enumerates every key with the given prefix as of the
	// given snapshot, in key order.
	KVPrefixScan(snapshot types.SnapshotID, prefix []byte) ([]KVPair, error)

	// SnapshotCurrent returns a handle to the current committed state for
	// consistent reads.
	SnapshotCurrent() (types.SnapshotID, error)

	// Close releases any held resources (file handles, connections).
	Close() error
}

// ConnectionSharer is implemented by backends whose underlying connection
// can be shared with a co-resident store (e.g. the chunk store) for
// transactional consistency (spec §4.5's "Connection semantics").
type ConnectionSharer interface {
	SharedConnPath() (path string, ok bool)
}
