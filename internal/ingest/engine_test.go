package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oldnordic/magellan-go/internal/backend"
	"github.com/oldnordic/magellan-go/internal/chunkstore"
)

const goSample = `package sample

func Helper() int {
	return 1
}

func Caller() int {
	return Helper()
}
`

func TestIndexFileExtractsGoSymbols(t *testing.T) {
	e := NewEngine()
	b := backend.NewNativeBackend()
	cs := chunkstore.New(b)

	symbols, err := e.IndexFile(b, cs, "sample.go", []byte(goSample))
	require.NoError(t, err)
	require.Len(t, symbols, 2)

	names := map[string]bool{}
	for _, s := range symbols {
		names[s.Name] = true
	}
	require.True(t, names["Helper"])
	require.True(t, names["Caller"])
}

func TestIndexFileIsIdempotentOnUnchangedContent(t *testing.T) {
	e := NewEngine()
	b := backend.NewNativeBackend()
	cs := chunkstore.New(b)

	_, err := e.IndexFile(b, cs, "sample.go", []byte(goSample))
	require.NoError(t, err)
	idsBefore, _ := b.EntityIDs()

	symbols, err := e.IndexFile(b, cs, "sample.go", []byte(goSample))
	require.NoError(t, err)
	require.Nil(t, symbols) // skipped: unchanged hash

	idsAfter, _ := b.EntityIDs()
	require.Equal(t, idsBefore, idsAfter)
}

func TestDeleteFileRemovesDefinedSymbols(t *testing.T) {
	e := NewEngine()
	b := backend.NewNativeBackend()
	cs := chunkstore.New(b)

	_, err := e.IndexFile(b, cs, "sample.go", []byte(goSample))
	require.NoError(t, err)

	require.NoError(t, e.DeleteFile(b, "sample.go"))

	ids, err := b.EntityIDs()
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestIndexReferencesAndCallsRecordsCallEdge(t *testing.T) {
	e := NewEngine()
	b := backend.NewNativeBackend()
	cs := chunkstore.New(b)

	symbols, err := e.IndexFile(b, cs, "sample.go", []byte(goSample))
	require.NoError(t, err)

	refCount, callCount, err := e.IndexReferencesAndCalls(b, "sample.go", []byte(goSample), symbols)
	require.NoError(t, err)
	require.Equal(t, 1, callCount) // Caller()'s Helper() call
	require.GreaterOrEqual(t, refCount, 1)
}
