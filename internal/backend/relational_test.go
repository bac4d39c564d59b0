package backend

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oldnordic/magellan-go/internal/types"
)

func openTestRelational(t *testing.T) *RelationalBackend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "magellan.db")
	b, err := OpenRelationalBackend(path)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestRelationalBackendUpsertIsIdempotent(t *testing.T) {
	b := openTestRelational(t)
	id1, err := b.UpsertNodeByKindAndName(types.NodeFile, "main.go", "main.go", "main.go", []byte(`{}`))
	require.NoError(t, err)
	id2, err := b.UpsertNodeByKindAndName(types.NodeFile, "main.go", "main.go", "main.go", []byte(`{"x":1}`))
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	snap, err := b.SnapshotCurrent()
	require.NoError(t, err)
	rec, err := b.GetNode(snap, id1)
	require.NoError(t, err)
	require.Equal(t, `{"x":1}`, string(rec.Data))
}

func TestRelationalBackendDeleteCascadesEdges(t *testing.T) {
	b := openTestRelational(t)
	fileID, err := b.InsertNode(types.NodeFile, "f.go", "f.go", nil)
	require.NoError(t, err)
	symID, err := b.InsertNode(types.NodeSymbol, "Foo", "f.go", nil)
	require.NoError(t, err)
	require.NoError(t, b.InsertEdge(fileID, symID, types.EdgeDefines))

	require.NoError(t, b.DeleteNode(symID))

	snap, _ := b.SnapshotCurrent()
	neighbors, err := b.Neighbors(snap, fileID, types.NeighborQuery{Direction: types.Outgoing})
	require.NoError(t, err)
	require.Empty(t, neighbors)
}

func TestRelationalBackendKVPrefixScan(t *testing.T) {
	b := openTestRelational(t)
	require.NoError(t, b.KVSet([]byte("sym:fqn:b"), []byte("2"), nil))
	require.NoError(t, b.KVSet([]byte("sym:fqn:a"), []byte("1"), nil))

	snap, _ := b.SnapshotCurrent()
	pairs, err := b.KVPrefixScan(snap, []byte("sym:fqn:"))
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	require.Equal(t, "sym:fqn:a", string(pairs[0].Key))
	require.Equal(t, "sym:fqn:b", string(pairs[1].Key))
}
