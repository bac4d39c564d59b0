package algo

import "github.com/oldnordic/magellan-go/internal/types"

// ReachableSymbols returns the forward transitive closure of rootFQN via
// BFS, cycles terminating via a visited set. maxDepth bounds the number of
// hops; 0 means unlimited.
func (g *Graph) ReachableSymbols(rootFQN string, maxDepth int) ([]types.Symbol, error) {
	root, err := g.resolve(rootFQN)
	if err != nil {
		return nil, err
	}
	return g.bfs(root, g.forward, maxDepth), nil
}

// ReverseReachableSymbols is ReachableSymbols's dual in the reverse call
// graph: every symbol that can reach targetFQN.
func (g *Graph) ReverseReachableSymbols(targetFQN string, maxDepth int) ([]types.Symbol, error) {
	target, err := g.resolve(targetFQN)
	if err != nil {
		return nil, err
	}
	return g.bfs(target, g.reverse, maxDepth), nil
}

func (g *Graph) bfs(start string, adj map[string][]string, maxDepth int) []types.Symbol {
	visited := map[string]bool{start: true}
	queue := []string{start}
	depth := 0

	var out []types.Symbol
	for len(queue) > 0 && (maxDepth <= 0 || depth < maxDepth) {
		var next []string
		for _, id := range queue {
			for _, neighbor := range adj[id] {
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				next = append(next, neighbor)
				if sym, ok := g.symbol(neighbor); ok {
					out = append(out, sym)
				}
			}
		}
		queue = next
		depth++
	}
	return out
}

// DeadSymbols returns every Symbol other than the entry itself that is not
// in ReachableSymbols(entryFQN, 0): the set of symbols the entry point's
// call graph never reaches.
func (g *Graph) DeadSymbols(entryFQN string) ([]types.Symbol, error) {
	entry, err := g.resolve(entryFQN)
	if err != nil {
		return nil, err
	}
	reachable := map[string]bool{entry: true}
	for _, sym := range g.bfs(entry, g.forward, 0) {
		reachable[sym.SymbolID] = true
	}

	var dead []types.Symbol
	for id, sym := range g.bySymbolID {
		if !reachable[id] {
			dead = append(dead, sym)
		}
	}
	return dead, nil
}
