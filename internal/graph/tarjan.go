package graph

import "sort"

// StronglyConnectedComponents runs Tarjan's algorithm over the graph in
// O(V+E). Each returned component is sorted internally; components are
// returned in a deterministic order because nodes are visited in sorted
// order. Single-node components are included (a self-loop is an SCC of
// size 1, which is not treated as a cycle).
func StronglyConnectedComponents(g Graph) [][]string {
	index := 0
	indices := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	var sccs [][]string

	// Iterative Tarjan: an explicit frame stack avoids blowing the Go
	// stack on deep dependency chains.
	type frame struct {
		node string
		deps []string
		next int
	}

	var visit func(root string)
	visit = func(root string) {
		frames := []frame{{node: root, deps: g.Dependencies(root)}}
		indices[root] = index
		lowlink[root] = index
		index++
		stack = append(stack, root)
		onStack[root] = true

		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			advanced := false
			for f.next < len(f.deps) {
				dep := f.deps[f.next]
				f.next++
				if _, seen := indices[dep]; !seen {
					indices[dep] = index
					lowlink[dep] = index
					index++
					stack = append(stack, dep)
					onStack[dep] = true
					frames = append(frames, frame{node: dep, deps: g.Dependencies(dep)})
					advanced = true
					break
				} else if onStack[dep] {
					if indices[dep] < lowlink[f.node] {
						lowlink[f.node] = indices[dep]
					}
				}
			}
			if advanced {
				continue
			}

			// Frame complete: pop an SCC if this node is a root.
			if lowlink[f.node] == indices[f.node] {
				var scc []string
				for {
					top := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[top] = false
					scc = append(scc, top)
					if top == f.node {
						break
					}
				}
				sort.Strings(scc)
				sccs = append(sccs, scc)
			}

			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := &frames[len(frames)-1]
				if lowlink[f.node] < lowlink[parent.node] {
					lowlink[parent.node] = lowlink[f.node]
				}
			}
		}
	}

	for _, node := range g.Nodes() {
		if _, seen := indices[node]; !seen {
			visit(node)
		}
	}
	return sccs
}

// Cycles returns the SCCs of size greater than one. A self-referential
// node (A depends on A) is an SCC of size 1 and is not a cycle by this
// rule.
func Cycles(g Graph) [][]string {
	var cycles [][]string
	for _, scc := range StronglyConnectedComponents(g) {
		if len(scc) > 1 {
			cycles = append(cycles, scc)
		}
	}
	return cycles
}

// BreakCycles removes edges until the graph is acyclic and returns the
// removed edges as [from, to] pairs. Within each cycle the
// lexicographically greatest internal (caller, callee) edge is removed
// first; the rule is stable so unchanged repositories yield identical
// graphs run over run.
func BreakCycles(g Graph) [][2]string {
	var removed [][2]string
	for {
		cycles := Cycles(g)
		if len(cycles) == 0 {
			return removed
		}
		for _, scc := range cycles {
			member := make(map[string]bool, len(scc))
			for _, id := range scc {
				member[id] = true
			}
			var worst [2]string
			for _, from := range scc {
				for _, to := range g.Dependencies(from) {
					if !member[to] {
						continue
					}
					edge := [2]string{from, to}
					if worst[0] == "" || edgeLess(worst, edge) {
						worst = edge
					}
				}
			}
			if worst[0] == "" {
				continue
			}
			g.RemoveEdge(worst[0], worst[1])
			removed = append(removed, worst)
		}
	}
}

// edgeLess orders edges lexicographically by (caller, callee).
func edgeLess(a, b [2]string) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}
