package backend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oldnordic/magellan-go/internal/types"
)

func TestNativeBackendUpsertIsIdempotent(t *testing.T) {
	b := NewNativeBackend()
	id1, err := b.UpsertNodeByKindAndName(types.NodeFile, "main.go", "main.go", "main.go", []byte(`{}`))
	require.NoError(t, err)
	id2, err := b.UpsertNodeByKindAndName(types.NodeFile, "main.go", "main.go", "main.go", []byte(`{"x":1}`))
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	snap, err := b.SnapshotCurrent()
	require.NoError(t, err)
	rec, err := b.GetNode(snap, id1)
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(rec.Data))
}

func TestNativeBackendDeleteCascadesEdges(t *testing.T) {
	b := NewNativeBackend()
	fileID, err := b.InsertNode(types.NodeFile, "f.go", "f.go", nil)
	require.NoError(t, err)
	symID, err := b.InsertNode(types.NodeSymbol, "Foo", "f.go", nil)
	require.NoError(t, err)
	require.NoError(t, b.InsertEdge(fileID, symID, types.EdgeDefines))

	require.NoError(t, b.DeleteNode(symID))

	snap, _ := b.SnapshotCurrent()
	neighbors, err := b.Neighbors(snap, fileID, types.NeighborQuery{Direction: types.Outgoing})
	require.NoError(t, err)
	assert.Empty(t, neighbors)

	_, err = b.GetNode(snap, symID)
	assert.Error(t, err)
}

func TestNativeBackendNeighborsFiltersByEdgeType(t *testing.T) {
	b := NewNativeBackend()
	a, _ := b.InsertNode(types.NodeSymbol, "A", "f.go", nil)
	c, _ := b.InsertNode(types.NodeSymbol, "C", "f.go", nil)
	require.NoError(t, b.InsertEdge(a, c, types.EdgeCalls))
	require.NoError(t, b.InsertEdge(a, c, types.EdgeReferences))

	snap, _ := b.SnapshotCurrent()
	calls := types.EdgeCalls
	edges, err := b.Neighbors(snap, a, types.NeighborQuery{Direction: types.Outgoing, EdgeType: &calls})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, types.EdgeCalls, edges[0].EdgeType)
}

func TestNativeBackendKVPrefixScanOrdersKeysAndHonorsTTL(t *testing.T) {
	b := NewNativeBackend()
	require.NoError(t, b.KVSet([]byte("sym:fqn:b"), []byte("2"), nil))
	require.NoError(t, b.KVSet([]byte("sym:fqn:a"), []byte("1"), nil))
	expired := -time.Minute
	require.NoError(t, b.KVSet([]byte("sym:fqn:c"), []byte("3"), &expired))

	snap, _ := b.SnapshotCurrent()
	pairs, err := b.KVPrefixScan(snap, []byte("sym:fqn:"))
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "sym:fqn:a", string(pairs[0].Key))
	assert.Equal(t, "sym:fqn:b", string(pairs[1].Key))
}

func TestNativeBackendEntityIDsEnumeratesLiveNodes(t *testing.T) {
	b := NewNativeBackend()
	id1, _ := b.InsertNode(types.NodeFile, "a.go", "a.go", nil)
	id2, _ := b.InsertNode(types.NodeFile, "b.go", "b.go", nil)
	require.NoError(t, b.DeleteNode(id1))

	ids, err := b.EntityIDs()
	require.NoError(t, err)
	assert.Equal(t, []types.EntityId{id2}, ids)
}
