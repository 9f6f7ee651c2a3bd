package graph

import (
	"sort"

	"codewiki/internal/logging"
)

// TopologicalSort runs Kahn's algorithm over the graph, ordering nodes so
// that dependencies come before their dependents. Ties break on node id so
// the order is deterministic. If the sort covers fewer nodes than the
// graph (an undetected cycle), the remaining nodes are appended in sorted
// order with a warning rather than aborting.
func TopologicalSort(g Graph) []string {
	// In-degree here counts dependencies: a node with no remaining
	// unprocessed dependencies is ready.
	pending := make(map[string]int, len(g))
	for _, id := range g.Nodes() {
		pending[id] = len(g[id])
	}

	rev := g.Dependents()

	var ready []string
	for id, n := range pending {
		if n == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		var unlocked []string
		for _, dependent := range rev[id] {
			pending[dependent]--
			if pending[dependent] == 0 {
				unlocked = append(unlocked, dependent)
			}
		}
		if len(unlocked) > 0 {
			ready = append(ready, unlocked...)
			sort.Strings(ready)
		}
	}

	if len(order) < len(g) {
		logging.GraphWarn("topological sort incomplete (%d of %d nodes); falling back to sorted order for the rest",
			len(order), len(g))
		seen := make(map[string]bool, len(order))
		for _, id := range order {
			seen[id] = true
		}
		for _, id := range g.Nodes() {
			if !seen[id] {
				order = append(order, id)
			}
		}
	}
	return order
}
