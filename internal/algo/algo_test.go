package algo

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oldnordic/magellan-go/internal/backend"
	"github.com/oldnordic/magellan-go/internal/chunkstore"
	"github.com/oldnordic/magellan-go/internal/ident"
	"github.com/oldnordic/magellan-go/internal/ingest"
	"github.com/oldnordic/magellan-go/internal/kvindex"
	"github.com/oldnordic/magellan-go/internal/types"
)

const sampleGo = `package sample

func Helper() int {
	return 1
}

func Caller() int {
	return Helper()
}
`

func buildSimpleGraph(t *testing.T) *Graph {
	t.Helper()
	b := backend.NewNativeBackend()
	cs := chunkstore.New(b)
	e := ingest.NewEngine()

	symbols, err := e.IndexFile(b, cs, "sample.go", []byte(sampleGo))
	require.NoError(t, err)

	_, _, err = e.IndexReferencesAndCalls(b, "sample.go", []byte(sampleGo), symbols)
	require.NoError(t, err)

	g, err := Build(b)
	require.NoError(t, err)
	return g
}

// insertSymbol registers a standalone Symbol node plus its sym:fqn:/sym:id:
// side-index entries, independent of the ingest pipeline, so call-graph
// tests can construct arbitrary cycles without parsing source.
func insertSymbol(t *testing.T, b backend.Backend, name string) types.Symbol {
	t.Helper()
	symID := ident.SymbolID("go", name, ident.SpanID(name+".go", 0, 1))
	sym := types.Symbol{SymbolID: symID, Name: name, FQN: name, CanonicalFQN: name, DisplayFQN: name}
	data, err := json.Marshal(sym)
	require.NoError(t, err)

	id, err := b.UpsertNodeByKindAndName(types.NodeSymbol, name, name+".go", name, data)
	require.NoError(t, err)
	require.NoError(t, b.KVSet(kvindex.SymbolByFQN(name), encodeEntityID(id), nil))
	require.NoError(t, b.KVSet(kvindex.SymbolMetadata(symID), data, nil))
	return sym
}

func linkCall(t *testing.T, b backend.Backend, caller, callee string) {
	t.Helper()
	require.NoError(t, b.KVSet(kvindex.CallsFrom(caller, callee), []byte{1}, nil))
	require.NoError(t, b.KVSet(kvindex.CallsTo(caller, callee), []byte{1}, nil))
}

func encodeEntityID(id types.EntityId) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(id))
	return buf[:]
}

func buildCycleGraph(t *testing.T) *Graph {
	t.Helper()
	b := backend.NewNativeBackend()

	a := insertSymbol(t, b, "A")
	bSym := insertSymbol(t, b, "B")
	c := insertSymbol(t, b, "C")
	linkCall(t, b, a.SymbolID, bSym.SymbolID)
	linkCall(t, b, bSym.SymbolID, c.SymbolID)
	linkCall(t, b, c.SymbolID, a.SymbolID)

	g, err := Build(b)
	require.NoError(t, err)
	return g
}

func TestReachableSymbols(t *testing.T) {
	g := buildSimpleGraph(t)

	reachable, err := g.ReachableSymbols("Caller", 0)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, s := range reachable {
		names[s.Name] = true
	}
	require.True(t, names["Helper"])
}

func TestReachableSymbolsNotFound(t *testing.T) {
	g := buildSimpleGraph(t)
	_, err := g.ReachableSymbols("DoesNotExist", 0)
	require.Error(t, err)
}

func TestDeadSymbols(t *testing.T) {
	g := buildSimpleGraph(t)
	dead, err := g.DeadSymbols("Caller")
	require.NoError(t, err)
	require.Empty(t, dead)
}

func TestDetectCyclesFindsLargerCycle(t *testing.T) {
	g := buildCycleGraph(t)
	report := g.DetectCycles()
	require.Len(t, report.Cycles, 1)
	require.Equal(t, LargerCycle, report.Cycles[0].Kind)
	require.ElementsMatch(t, []string{"A", "B", "C"}, symbolNames(g, report.Cycles[0].SymbolIDs))
}

func TestFindCyclesContaining(t *testing.T) {
	g := buildCycleGraph(t)
	aID := g.byFQN["A"]
	cycles := g.FindCyclesContaining(aID)
	require.Len(t, cycles, 1)
}

func TestCondenseCallGraphCollapsesCycleToOneSupernode(t *testing.T) {
	g := buildCycleGraph(t)
	condensed := g.CondenseCallGraph()
	require.Len(t, condensed.Supernodes, 1)
	require.Empty(t, condensed.Edges)
}

func TestEnumeratePathsRespectsMaxDepthOnCycle(t *testing.T) {
	g := buildCycleGraph(t)
	endFQN := "A"
	result, err := g.EnumeratePaths("A", &endFQN, 10, 10)
	require.NoError(t, err)
	require.NotEmpty(t, result.Paths)
	for _, p := range result.Paths {
		require.LessOrEqual(t, len(p.SymbolIDs), 10)
	}
}

func TestForwardAndBackwardSlice(t *testing.T) {
	g := buildSimpleGraph(t)

	fwd, err := g.ForwardSlice("Caller")
	require.NoError(t, err)
	require.Equal(t, 2, fwd.TotalSymbols)
	require.Equal(t, 1, fwd.ControlDependencies)

	back, err := g.BackwardSlice("Helper")
	require.NoError(t, err)
	require.Equal(t, 2, back.TotalSymbols)
}

func symbolNames(g *Graph, ids []string) []string {
	var out []string
	for _, id := range ids {
		if sym, ok := g.symbol(id); ok {
			out = append(out, sym.Name)
		} else {
			out = append(out, fmt.Sprintf("?%s", id))
		}
	}
	return out
}
