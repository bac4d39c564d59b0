package algo

import "github.com/oldnordic/magellan-go/internal/types"

// ForwardSlice returns every symbol reachable from targetFQN (the symbols
// targetFQN's execution could reach), with statistics per spec §4.8.
func (g *Graph) ForwardSlice(targetFQN string) (Slice, error) {
	return g.sliceInDirection(targetFQN, g.forward)
}

// BackwardSlice returns every symbol that can reach targetFQN (the symbols
// whose execution could reach targetFQN), with statistics per spec §4.8.
func (g *Graph) BackwardSlice(targetFQN string) (Slice, error) {
	return g.sliceInDirection(targetFQN, g.reverse)
}

func (g *Graph) sliceInDirection(targetFQN string, adj map[string][]string) (Slice, error) {
	target, err := g.resolve(targetFQN)
	if err != nil {
		return Slice{}, err
	}

	symbols := g.bfs(target, adj, 0)
	members := map[string]bool{target: true}
	for _, sym := range symbols {
		members[sym.SymbolID] = true
	}
	if targetSym, ok := g.symbol(target); ok {
		symbols = append([]types.Symbol{targetSym}, symbols...)
	}

	edges := 0
	for from, callees := range g.forward {
		if !members[from] {
			continue
		}
		for _, to := range callees {
			if members[to] {
				edges++
			}
		}
	}

	return Slice{
		Symbols:             symbols,
		TotalSymbols:        len(members),
		DataDependencies:    0,
		ControlDependencies: edges,
	}, nil
}
