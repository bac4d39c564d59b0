// Package algo implements the graph algorithms spec §4.8 runs over the
// logical call graph (nodes = Symbols, edges induced by the
// Symbol-CALLER-Call-CALLS-Symbol chain internal/ingest persists as
// calls:from:/calls:to: KV markers): reachability, dead-code detection,
// cycle detection via Tarjan's SCC, call-graph condensation, bounded path
// enumeration, and forward/backward slicing.
package algo

import (
	"github.com/oldnordic/magellan-go/internal/backend"
	"github.com/oldnordic/magellan-go/internal/errors"
	"github.com/oldnordic/magellan-go/internal/kvindex"
	"github.com/oldnordic/magellan-go/internal/types"
)

// Graph is an in-memory snapshot of the call graph, built once from a
// Backend and then queried repeatedly. It does not observe later writes;
// callers needing a fresh view rebuild via Build.
type Graph struct {
	bySymbolID map[string]types.Symbol
	byFQN      map[string]string // fqn -> symbol id
	forward    map[string][]string
	reverse    map[string][]string
}

// Build loads every Symbol node and its calls:from:/calls:to: edges from b
// as of the current snapshot.
func Build(b backend.Backend) (*Graph, error) {
	snap, err := b.SnapshotCurrent()
	if err != nil {
		return nil, err
	}
	ids, err := b.EntityIDs()
	if err != nil {
		return nil, err
	}

	g := &Graph{
		bySymbolID: make(map[string]types.Symbol),
		byFQN:      make(map[string]string),
		forward:    make(map[string][]string),
		reverse:    make(map[string][]string),
	}

	for _, id := range ids {
		rec, err := b.GetNode(snap, id)
		if err != nil || rec.Kind != types.NodeSymbol {
			continue
		}
		var sym types.Symbol
		if err := unmarshalSymbol(rec.Data, &sym); err != nil {
			continue
		}
		g.bySymbolID[sym.SymbolID] = sym
		g.byFQN[sym.CanonicalFQN] = sym.SymbolID
	}

	for symID := range g.bySymbolID {
		pairs, err := b.KVPrefixScan(snap, kvindex.CallsFromPrefix(symID))
		if err != nil {
			return nil, err
		}
		prefix := kvindex.CallsFromPrefix(symID)
		for _, p := range pairs {
			callee := string(p.Key[len(prefix):])
			g.forward[symID] = append(g.forward[symID], callee)
			g.reverse[callee] = append(g.reverse[callee], symID)
		}
	}

	return g, nil
}

// resolve returns the symbol id for fqn, or a NotFoundError per spec §4.8's
// contract that every algorithm returns NotFound for an unresolved FQN.
func (g *Graph) resolve(fqn string) (string, error) {
	id, ok := g.byFQN[fqn]
	if !ok {
		return "", errors.NewNotFoundError("fqn", fqn)
	}
	return id, nil
}

// symbol returns the Symbol for a resolved symbol id, zero value if the id
// is an edge endpoint with no corresponding Symbol node (a cross-file call
// whose callee was never indexed).
func (g *Graph) symbol(symID string) (types.Symbol, bool) {
	sym, ok := g.bySymbolID[symID]
	return sym, ok
}

// AllSymbolIDs returns every symbol id in the graph, for callers that need
// the full vertex set (e.g. dead-code detection's complement).
func (g *Graph) AllSymbolIDs() []string {
	ids := make([]string, 0, len(g.bySymbolID))
	for id := range g.bySymbolID {
		ids = append(ids, id)
	}
	return ids
}

func unmarshalSymbol(data []byte, out *types.Symbol) error { return unmarshalJSONAny(data, out) }
