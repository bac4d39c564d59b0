package backend

import (
	"sort"
	"sync"
	"time"

	"github.com/oldnordic/magellan-go/internal/errors"
	"github.com/oldnordic/magellan-go/internal/types"
)

type nodeEntry struct {
	kind     types.NodeKind
	name     string
	filePath string
	data     []byte
}

type edgeEntry struct {
	edgeType types.EdgeType
	other    types.EntityId
}

type kvEntry struct {
	value     []byte
	expiresAt time.Time // zero means no TTL
}

// uniqueKey identifies a node for idempotent upsert: (kind, filePath, key).
type uniqueKey struct {
	kind     types.NodeKind
	filePath string
	key      string
}

// NativeBackend is an in-process KV+graph store: the native backend variant
// of spec §4.1. It holds everything in memory behind a single RWMutex —
// there is exactly one writer at a time (the reconciler), so a striped or
// lock-free structure would add complexity without a throughput need this
// repository actually has.
type NativeBackend struct {
	mu sync.RWMutex

	nextID types.EntityId
	nodes  map[types.EntityId]*nodeEntry
	out    map[types.EntityId][]edgeEntry
	in     map[types.EntityId][]edgeEntry
	unique map[uniqueKey]types.EntityId

	kv      map[string]kvEntry
	version int64
}

// NewNativeBackend constructs an empty in-memory backend.
func NewNativeBackend() *NativeBackend {
	return &NativeBackend{
		nodes:  make(map[types.EntityId]*nodeEntry),
		out:    make(map[types.EntityId][]edgeEntry),
		in:     make(map[types.EntityId][]edgeEntry),
		unique: make(map[uniqueKey]types.EntityId),
		kv:     make(map[string]kvEntry),
	}
}

func (b *NativeBackend) InsertNode(kind types.NodeKind, name, filePath string, data []byte) (types.EntityId, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.insertLocked(kind, name, filePath, data), nil
}

func (b *NativeBackend) insertLocked(kind types.NodeKind, name, filePath string, data []byte) types.EntityId {
	b.nextID++
	id := b.nextID
	cp := make([]byte, len(data))
	copy(cp, data)
	b.nodes[id] = &nodeEntry{kind: kind, name: name, filePath: filePath, data: cp}
	b.version++
	return id
}

func (b *NativeBackend) UpsertNodeByKindAndName(kind types.NodeKind, name, filePath, key string, data []byte) (types.EntityId, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	uk := uniqueKey{kind: kind, filePath: filePath, key: key}
	if id, ok := b.unique[uk]; ok {
		if entry, exists := b.nodes[id]; exists {
			cp := make([]byte, len(data))
			copy(cp, data)
			entry.data = cp
			entry.name = name
			b.version++
			return id, nil
		}
	}
	id := b.insertLocked(kind, name, filePath, data)
	b.unique[uk] = id
	return id, nil
}

func (b *NativeBackend) InsertEdge(from, to types.EntityId, edgeType types.EdgeType) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.nodes[from]; !ok {
		return errors.NewNotFoundError("entity", "from-node")
	}
	if _, ok := b.nodes[to]; !ok {
		return errors.NewNotFoundError("entity", "to-node")
	}
	b.out[from] = append(b.out[from], edgeEntry{edgeType: edgeType, other: to})
	b.in[to] = append(b.in[to], edgeEntry{edgeType: edgeType, other: from})
	b.version++
	return nil
}

func (b *NativeBackend) DeleteNode(id types.EntityId) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deleteLocked(id)
}

func (b *NativeBackend) deleteLocked(id types.EntityId) error {
	if _, ok := b.nodes[id]; !ok {
		return errors.NewNotFoundError("entity", "node")
	}

	for _, e := range b.out[id] {
		b.in[e.other] = removeEdge(b.in[e.other], e.edgeType, id)
	}
	for _, e := range b.in[id] {
		b.out[e.other] = removeEdge(b.out[e.other], e.edgeType, id)
	}
	delete(b.out, id)
	delete(b.in, id)
	delete(b.nodes, id)

	for uk, uid := range b.unique {
		if uid == id {
			delete(b.unique, uk)
		}
	}
	b.version++
	return nil
}

func removeEdge(edges []edgeEntry, edgeType types.EdgeType, other types.EntityId) []edgeEntry {
	out := edges[:0]
	for _, e := range edges {
		if e.edgeType == edgeType && e.other == other {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (b *NativeBackend) GetNode(_ types.SnapshotID, id types.EntityId) (types.NodeRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entry, ok := b.nodes[id]
	if !ok {
		return types.NodeRecord{}, errors.NewNotFoundError("entity", "node")
	}
	return types.NodeRecord{ID: id, Kind: entry.kind, Name: entry.name, FilePath: entry.filePath, Data: entry.data}, nil
}

func (b *NativeBackend) Neighbors(_ types.SnapshotID, id types.EntityId, q types.NeighborQuery) ([]NeighborEdge, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, ok := b.nodes[id]; !ok {
		return nil, errors.NewNotFoundError("entity", "node")
	}

	var raw []edgeEntry
	switch q.Direction {
	case types.Outgoing:
		raw = b.out[id]
	case types.Incoming:
		raw = b.in[id]
	default:
		raw = append(append([]edgeEntry{}, b.out[id]...), b.in[id]...)
	}

	result := make([]NeighborEdge, 0, len(raw))
	for _, e := range raw {
		if q.EdgeType != nil && e.edgeType != *q.EdgeType {
			continue
		}
		result = append(result, NeighborEdge{EdgeType: e.edgeType, OtherID: e.other})
	}
	return result, nil
}

func (b *NativeBackend) EntityIDs() ([]types.EntityId, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]types.EntityId, 0, len(b.nodes))
	for id := range b.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (b *NativeBackend) KVGet(key []byte) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entry, ok := b.kv[string(key)]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return nil, false, nil
	}
	cp := make([]byte, len(entry.value))
	copy(cp, entry.value)
	return cp, true, nil
}

func (b *NativeBackend) KVSet(key, value []byte, ttl *time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var expires time.Time
	if ttl != nil {
		expires = time.Now().Add(*ttl)
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	b.kv[string(key)] = kvEntry{value: cp, expiresAt: expires}
	b.version++
	return nil
}

func (b *NativeBackend) KVPrefixScan(_ types.SnapshotID, prefix []byte) ([]KVPair, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p := string(prefix)
	var results []KVPair
	now := time.Now()
	for k, entry := range b.kv {
		if len(k) < len(p) || k[:len(p)] != p {
			continue
		}
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			continue
		}
		cp := make([]byte, len(entry.value))
		copy(cp, entry.value)
		results = append(results, KVPair{Key: []byte(k), Value: cp})
	}
	sort.Slice(results, func(i, j int) bool { return string(results[i].Key) < string(results[j].Key) })
	return results, nil
}

func (b *NativeBackend) SnapshotCurrent() (types.SnapshotID, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return types.SnapshotID(b.version), nil
}

func (b *NativeBackend) Close() error {
	return nil
}
