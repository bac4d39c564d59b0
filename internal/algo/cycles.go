package algo

import "sort"

// tarjan runs Tarjan's strongly connected components algorithm over g's
// forward adjacency, iteratively (an explicit stack rather than recursion,
// since the call graphs this operates on can run deep on large codebases).
// It returns each SCC as a slice of symbol ids, in the order components are
// closed off (reverse topological order).
func (g *Graph) tarjan() [][]string {
	index := 0
	indices := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	var sccs [][]string

	type frame struct {
		node     string
		children []string
		ci       int
	}

	var strongConnect func(v string)
	strongConnect = func(v string) {
		var work []frame
		work = append(work, frame{node: v, children: g.forward[v]})
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for len(work) > 0 {
			top := &work[len(work)-1]
			if top.ci < len(top.children) {
				w := top.children[top.ci]
				top.ci++
				if _, seen := indices[w]; !seen {
					indices[w] = index
					lowlink[w] = index
					index++
					stack = append(stack, w)
					onStack[w] = true
					work = append(work, frame{node: w, children: g.forward[w]})
				} else if onStack[w] {
					if indices[w] < lowlink[top.node] {
						lowlink[top.node] = indices[w]
					}
				}
				continue
			}

			// children exhausted: propagate lowlink to parent, then pop
			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := &work[len(work)-1]
				if lowlink[top.node] < lowlink[parent.node] {
					lowlink[parent.node] = lowlink[top.node]
				}
			}
			if lowlink[top.node] == indices[top.node] {
				var scc []string
				for {
					n := len(stack) - 1
					w := stack[n]
					stack = stack[:n]
					onStack[w] = false
					scc = append(scc, w)
					if w == top.node {
						break
					}
				}
				sccs = append(sccs, scc)
			}
		}
	}

	// g.bySymbolID is a map: its iteration order is randomized per run. SCC
	// membership doesn't depend on seed order, but the order components are
	// discovered (and so the order they appear in sccs) does, so the seed
	// ids are sorted for the deterministic component emission spec §5
	// requires.
	seeds := make([]string, 0, len(g.bySymbolID))
	for id := range g.bySymbolID {
		seeds = append(seeds, id)
	}
	sort.Strings(seeds)

	for _, id := range seeds {
		if _, seen := indices[id]; !seen {
			strongConnect(id)
		}
	}
	return sccs
}

func (g *Graph) hasSelfLoop(id string) bool {
	for _, callee := range g.forward[id] {
		if callee == id {
			return true
		}
	}
	return false
}

// DetectCycles runs Tarjan's SCC over the whole call graph and classifies
// every SCC of size >= 2 plus every size-1 SCC with a self-loop as a cycle
// (spec §4.8).
func (g *Graph) DetectCycles() CycleReport {
	var report CycleReport
	for _, scc := range g.tarjan() {
		switch {
		case len(scc) >= 3:
			report.Cycles = append(report.Cycles, Cycle{Kind: LargerCycle, SymbolIDs: scc})
		case len(scc) == 2:
			report.Cycles = append(report.Cycles, Cycle{Kind: MutualRecursion, SymbolIDs: scc})
		case len(scc) == 1 && g.hasSelfLoop(scc[0]):
			report.Cycles = append(report.Cycles, Cycle{Kind: SelfLoop, SymbolIDs: scc})
		}
	}
	return report
}

// FindCyclesContaining filters DetectCycles's result to cycles that include
// symbolID.
func (g *Graph) FindCyclesContaining(symbolID string) []Cycle {
	report := g.DetectCycles()
	var out []Cycle
	for _, c := range report.Cycles {
		for _, id := range c.SymbolIDs {
			if id == symbolID {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// CondenseCallGraph collapses every SCC (including singletons) into one
// supernode, producing a DAG: spec §4.8's condense_call_graph.
func (g *Graph) CondenseCallGraph() CondensedGraph {
	sccs := g.tarjan()
	out := CondensedGraph{OriginalToSuper: make(map[string]int)}

	for i, scc := range sccs {
		out.Supernodes = append(out.Supernodes, Supernode{ID: i, SymbolIDs: scc})
		for _, id := range scc {
			out.OriginalToSuper[id] = i
		}
	}

	seen := make(map[CondensedEdge]bool)
	for from, callees := range g.forward {
		fromSuper, ok := out.OriginalToSuper[from]
		if !ok {
			continue
		}
		for _, to := range callees {
			toSuper, ok := out.OriginalToSuper[to]
			if !ok || toSuper == fromSuper {
				continue
			}
			edge := CondensedEdge{From: fromSuper, To: toSuper}
			if !seen[edge] {
				seen[edge] = true
				out.Edges = append(out.Edges, edge)
			}
		}
	}
	return out
}
