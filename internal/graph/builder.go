package graph

import (
	"strings"

	"codewiki/internal/logging"
	"codewiki/internal/types"
)

// BuildOptions carries the language facts the leaf filter needs.
type BuildOptions struct {
	// HasGo is true when any Go file was parsed; it widens the permitted
	// leaf kinds with functions and methods.
	HasGo bool

	// GoDominant is true when Go files are the majority of the parsed set;
	// it disables the oversize-prune step.
	GoDominant bool
}

// BuildResult is everything the graph build produces.
type BuildResult struct {
	Graph Graph

	// Leaves is the filtered leaf set handed to the clusterer.
	Leaves []string

	// Order is a dependency-first topological order over the cycle-broken
	// graph.
	Order []string

	// Edges is the deduplicated, resolution-annotated edge set.
	Edges []types.CallEdge

	// Unresolved holds the edges whose callee matched nothing in the
	// registry. Kept for diagnostics; they never populate the graph.
	Unresolved []types.CallEdge

	// CyclesBroken lists the removed [caller, callee] edges.
	CyclesBroken [][2]string
}

// Build assembles the dependency graph from aggregated extractor output.
// Cycles are an expected condition, not an error: they are logged and
// resolved deterministically. The registry is frozen on return.
func Build(registry *types.ComponentRegistry, edges []types.CallEdge, opts BuildOptions) *BuildResult {
	timer := logging.StartTimer(logging.CategoryGraph, "Build")
	defer timer.StopWithInfo()

	deduped := dedupe(edges)
	resolved, unresolved := resolve(registry, deduped)

	// Populate DependsOn from resolved edges.
	for _, e := range resolved {
		if !e.Resolved {
			continue
		}
		if caller := registry.Get(e.Caller); caller != nil {
			caller.AddDependency(e.Callee)
		}
	}

	// Assemble: a node per registered id, an edge per known dependency.
	g := NewGraph()
	for _, id := range registry.IDs() {
		g.AddNode(id)
	}
	for _, id := range registry.IDs() {
		for dep := range registry.Get(id).DependsOn {
			if registry.Has(dep) {
				g.AddEdge(id, dep)
			}
		}
	}

	for _, cycle := range Cycles(g) {
		logging.Graph("cycle detected: %s", strings.Join(cycle, " -> "))
	}
	broken := BreakCycles(g)
	if len(broken) > 0 {
		logging.GraphWarn("%d edges removed to break cycles", len(broken))
	}

	order := TopologicalSort(g)
	leaves := FilterLeaves(registry, g, opts)
	registry.Freeze()

	logging.Graph("graph built: %d nodes, %d edges, %d leaves, %d unresolved",
		len(g), g.EdgeCount(), len(leaves), len(unresolved))

	return &BuildResult{
		Graph:        g,
		Leaves:       leaves,
		Order:        order,
		Edges:        resolved,
		Unresolved:   unresolved,
		CyclesBroken: broken,
	}
}

// dedupe collapses duplicate (caller, callee, kind) triples, keeping the
// first occurrence so ordering stays stable.
func dedupe(edges []types.CallEdge) []types.CallEdge {
	seen := make(map[string]bool, len(edges))
	out := make([]types.CallEdge, 0, len(edges))
	for _, e := range edges {
		if seen[e.Key()] {
			continue
		}
		seen[e.Key()] = true
		out = append(out, e)
	}
	return out
}

// resolve attempts global resolution for every unresolved edge: a direct id
// match first, then a match by unqualified name. Ambiguous name matches
// take the lexicographically first candidate. Edges that match nothing are
// returned separately with Resolved=false.
func resolve(registry *types.ComponentRegistry, edges []types.CallEdge) (resolved, unresolved []types.CallEdge) {
	for _, e := range edges {
		if e.Resolved {
			resolved = append(resolved, e)
			continue
		}
		if registry.Has(e.Callee) {
			e.Resolved = true
			resolved = append(resolved, e)
			continue
		}
		if ids := registry.ResolveName(unqualified(e.Callee)); len(ids) > 0 {
			e.Callee = ids[0]
			e.Resolved = true
			resolved = append(resolved, e)
			continue
		}
		unresolved = append(unresolved, e)
		resolved = append(resolved, e)
	}
	return resolved, unresolved
}

// unqualified trims namespace or attribute qualification from a callee.
func unqualified(name string) string {
	if idx := strings.LastIndexAny(name, ".\\:"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}
