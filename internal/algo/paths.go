package algo

// EnumeratePaths performs a depth-first search from startFQN, bounded by
// maxDepth (path length) and maxPaths (result count), returning paths in
// traversal-deterministic order (spec §4.8). If endFQN is nil, every
// maximal path (one that ends at a symbol with no further unvisited
// callees) is enumerated.
func (g *Graph) EnumeratePaths(startFQN string, endFQN *string, maxDepth, maxPaths int) (PathSet, error) {
	start, err := g.resolve(startFQN)
	if err != nil {
		return PathSet{}, err
	}

	var end string
	if endFQN != nil {
		end, err = g.resolve(*endFQN)
		if err != nil {
			return PathSet{}, err
		}
	}

	var result PathSet
	visited := map[string]bool{}
	var current []string

	var dfs func(node string)
	dfs = func(node string) {
		if maxPaths > 0 && len(result.Paths) >= maxPaths {
			result.Truncated = true
			return
		}
		visited[node] = true
		current = append(current, node)
		defer func() {
			current = current[:len(current)-1]
			visited[node] = false
		}()

		if endFQN != nil && node == end {
			result.Paths = append(result.Paths, Path{SymbolIDs: append([]string(nil), current...)})
			return
		}
		if maxDepth > 0 && len(current) >= maxDepth {
			if endFQN == nil {
				result.Paths = append(result.Paths, Path{SymbolIDs: append([]string(nil), current...)})
			}
			return
		}

		callees := g.forward[node]
		if endFQN == nil && len(callees) == 0 {
			result.Paths = append(result.Paths, Path{SymbolIDs: append([]string(nil), current...)})
			return
		}

		explored := false
		for _, callee := range callees {
			if visited[callee] {
				continue
			}
			if maxPaths > 0 && len(result.Paths) >= maxPaths {
				result.Truncated = true
				return
			}
			explored = true
			dfs(callee)
		}
		if endFQN == nil && !explored {
			result.Paths = append(result.Paths, Path{SymbolIDs: append([]string(nil), current...)})
		}
	}

	dfs(start)
	return result, nil
}
