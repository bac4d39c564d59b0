package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oldnordic/magellan-go/internal/backend"
	"github.com/oldnordic/magellan-go/internal/chunkstore"
	"github.com/oldnordic/magellan-go/internal/ingest"
)

const sampleGo = `package sample

func Helper() int {
	return 1
}

func Caller() int {
	return Helper()
}
`

func setupIndexed(t *testing.T) backend.Backend {
	t.Helper()
	b := backend.NewNativeBackend()
	cs := chunkstore.New(b)
	e := ingest.NewEngine()

	symbols, err := e.IndexFile(b, cs, "sample.go", []byte(sampleGo))
	require.NoError(t, err)
	require.Len(t, symbols, 2)

	_, _, err = e.IndexReferencesAndCalls(b, "sample.go", []byte(sampleGo), symbols)
	require.NoError(t, err)
	return b
}

func TestSymbolsInFile(t *testing.T) {
	b := setupIndexed(t)
	q := New(b)

	symbols, err := q.SymbolsInFile("sample.go", "")
	require.NoError(t, err)
	require.Len(t, symbols, 2)
}

func TestSymbolIDByName(t *testing.T) {
	b := setupIndexed(t)
	q := New(b)

	id, found, err := q.SymbolIDByName("sample.go", "Caller")
	require.NoError(t, err)
	require.True(t, found)
	require.NotEmpty(t, id)
}

func TestCallsFromAndCallersOf(t *testing.T) {
	b := setupIndexed(t)
	q := New(b)

	callerID, found, err := q.SymbolIDByName("sample.go", "Caller")
	require.NoError(t, err)
	require.True(t, found)

	calleeID, found, err := q.SymbolIDByName("sample.go", "Helper")
	require.NoError(t, err)
	require.True(t, found)

	callees, err := q.CallsFromSymbol(callerID)
	require.NoError(t, err)
	require.Contains(t, callees, calleeID)

	callers, err := q.CallersOfSymbol(calleeID)
	require.NoError(t, err)
	require.Contains(t, callers, callerID)
}

func TestCounts(t *testing.T) {
	b := setupIndexed(t)
	q := New(b)

	files, err := q.CountFiles()
	require.NoError(t, err)
	require.Equal(t, 1, files)

	symbols, err := q.CountSymbols()
	require.NoError(t, err)
	require.Equal(t, 2, symbols)

	calls, err := q.CountCalls()
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestResolveSymbolFuzzy(t *testing.T) {
	b := setupIndexed(t)
	q := New(b)

	matches, err := q.ResolveSymbolFuzzy("Helpr", 0.7, 5)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	found := false
	for _, m := range matches {
		if m.Symbol.Name == "Helper" {
			found = true
		}
	}
	require.True(t, found)
}
