package graph

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codewiki/internal/types"
)

func addComponent(reg *types.ComponentRegistry, id, name string, kind types.Kind) *types.Component {
	c := &types.Component{
		ID: id, Name: name, Kind: kind,
		RelativePath: "src/" + name + ".py",
		StartLine:    1, EndLine: 2,
	}
	reg.Add(c)
	return c
}

func TestSCCDetectsCycle(t *testing.T) {
	g := NewGraph()
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddEdge("C", "A")
	g.AddNode("D")

	cycles := Cycles(g)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"A", "B", "C"}, cycles[0])
}

func TestSelfLoopIsNotACycle(t *testing.T) {
	g := NewGraph()
	g.AddEdge("A", "A")
	assert.Empty(t, Cycles(g), "SCC of size 1 is not a cycle")
	assert.True(t, g.HasEdge("A", "A"), "self edge retained")
}

func TestBreakCyclesIsDeterministic(t *testing.T) {
	build := func() Graph {
		g := NewGraph()
		g.AddEdge("A", "B")
		g.AddEdge("B", "C")
		g.AddEdge("C", "A")
		return g
	}

	g1, g2 := build(), build()
	r1 := BreakCycles(g1)
	r2 := BreakCycles(g2)
	assert.Equal(t, r1, r2, "same input, same removals")
	require.Len(t, r1, 1)
	assert.Equal(t, [2]string{"C", "A"}, r1[0], "lexicographically greatest edge removed")
	assert.Empty(t, Cycles(g1))
}

func TestBreakCyclesYieldsAcyclicGraph(t *testing.T) {
	g := NewGraph()
	// Two interlocking cycles.
	g.AddEdge("A", "B")
	g.AddEdge("B", "A")
	g.AddEdge("B", "C")
	g.AddEdge("C", "D")
	g.AddEdge("D", "B")

	BreakCycles(g)
	assert.Empty(t, Cycles(g))

	order := TopologicalSort(g)
	assert.Len(t, order, 4, "all nodes sorted after resolution")
}

func TestTopologicalSortOrder(t *testing.T) {
	g := NewGraph()
	g.AddEdge("app", "lib")
	g.AddEdge("lib", "base")

	order := TopologicalSort(g)
	pos := make(map[string]int)
	for i, id := range order {
		pos[id] = i
	}
	assert.Less(t, pos["base"], pos["lib"], "dependencies first")
	assert.Less(t, pos["lib"], pos["app"])
}

func TestBuildMinimalPythonScenario(t *testing.T) {
	reg := types.NewComponentRegistry()
	reg.Add(&types.Component{ID: "a.f", Name: "f", Kind: types.KindFunction, RelativePath: "a.py", StartLine: 1, EndLine: 2})
	reg.Add(&types.Component{ID: "b.g", Name: "g", Kind: types.KindFunction, RelativePath: "b.py", StartLine: 1, EndLine: 2})

	edges := []types.CallEdge{{Caller: "a.f", Callee: "g", Kind: types.EdgeCalls}}
	res := Build(reg, edges, BuildOptions{})

	require.Len(t, res.Edges, 1)
	assert.True(t, res.Edges[0].Resolved)
	assert.Equal(t, "b.g", res.Edges[0].Callee)
	assert.True(t, res.Graph.HasEdge("a.f", "b.g"))
	assert.Empty(t, res.Unresolved)

	// No class-like kinds, no Go: functions become documentable, and b.g
	// has an incoming edge so only a.f is a leaf.
	assert.Equal(t, []string{"a.f"}, res.Leaves)
}

func TestBuildDeduplicatesEdges(t *testing.T) {
	reg := types.NewComponentRegistry()
	addComponent(reg, "a.F", "F", types.KindClass)
	addComponent(reg, "b.G", "G", types.KindClass)

	edges := []types.CallEdge{
		{Caller: "a.F", Callee: "b.G", Kind: types.EdgeCalls, Line: 3},
		{Caller: "a.F", Callee: "b.G", Kind: types.EdgeCalls, Line: 9},
		{Caller: "a.F", Callee: "b.G", Kind: types.EdgeReferences},
	}
	res := Build(reg, edges, BuildOptions{})
	assert.Len(t, res.Edges, 2, "duplicate (caller, callee, kind) collapsed")

	seen := make(map[string]bool)
	for _, e := range res.Edges {
		key := e.Key()
		assert.False(t, seen[key], "no duplicate survives")
		seen[key] = true
	}
}

func TestBuildRetainsUnresolved(t *testing.T) {
	reg := types.NewComponentRegistry()
	addComponent(reg, "a.F", "F", types.KindClass)

	edges := []types.CallEdge{{Caller: "a.F", Callee: "ThirdPartyThing", Kind: types.EdgeCalls}}
	res := Build(reg, edges, BuildOptions{})

	require.Len(t, res.Unresolved, 1)
	assert.False(t, res.Unresolved[0].Resolved)
	assert.Empty(t, reg.Get("a.F").DependsOn, "unresolved edges never populate depends_on")
}

func TestBuildCycleScenario(t *testing.T) {
	reg := types.NewComponentRegistry()
	addComponent(reg, "a.A", "A", types.KindClass)
	addComponent(reg, "b.B", "B", types.KindClass)
	addComponent(reg, "c.C", "C", types.KindClass)

	edges := []types.CallEdge{
		{Caller: "a.A", Callee: "b.B", Kind: types.EdgeCalls},
		{Caller: "b.B", Callee: "c.C", Kind: types.EdgeCalls},
		{Caller: "c.C", Callee: "a.A", Kind: types.EdgeCalls},
	}
	res := Build(reg, edges, BuildOptions{})

	assert.Len(t, res.CyclesBroken, 1)
	assert.Empty(t, Cycles(res.Graph), "graph is acyclic after resolution")
	assert.Len(t, res.Order, 3)
}

func TestLeafFiltering(t *testing.T) {
	reg := types.NewComponentRegistry()
	addComponent(reg, "m.Widget", "Widget", types.KindClass)
	addComponent(reg, "m.Helper", "Helper", types.KindClass)
	addComponent(reg, "m.ParseError", "ParseError", types.KindClass)
	addComponent(reg, "m.util", "util", types.KindFunction)

	g := NewGraph()
	for _, id := range reg.IDs() {
		g.AddNode(id)
	}
	g.AddEdge("m.Widget", "m.Helper")

	leaves := FilterLeaves(reg, g, BuildOptions{})
	// Helper has a dependent; ParseError is error-like; util is a function
	// with class-like kinds present and no Go.
	assert.Equal(t, []string{"m.Widget"}, leaves)
}

func TestLeafFilteringGoExtensions(t *testing.T) {
	reg := types.NewComponentRegistry()
	s := &types.Component{ID: "pkg.S", Name: "S", Kind: types.KindStruct, RelativePath: "pkg.go", StartLine: 1, EndLine: 1}
	do := &types.Component{ID: "pkg.S.Do", Name: "Do", Kind: types.KindMethod, EnclosingClass: "S", RelativePath: "pkg.go", StartLine: 2, EndLine: 2}
	do2 := &types.Component{ID: "pkg.S.Do2", Name: "Do2", Kind: types.KindMethod, EnclosingClass: "S", RelativePath: "pkg.go", StartLine: 3, EndLine: 3}
	reg.Add(s)
	reg.Add(do)
	reg.Add(do2)

	g := NewGraph()
	for _, id := range reg.IDs() {
		g.AddNode(id)
	}

	leaves := FilterLeaves(reg, g, BuildOptions{HasGo: true, GoDominant: true})
	assert.Equal(t, []string{"pkg.S", "pkg.S.Do", "pkg.S.Do2"}, leaves)
}

func TestLeafConstructorMerging(t *testing.T) {
	reg := types.NewComponentRegistry()
	reg.Add(&types.Component{ID: "m.C", Name: "C", Kind: types.KindClass, RelativePath: "m.py", StartLine: 1, EndLine: 9})
	reg.Add(&types.Component{ID: "m.C.__init__", Name: "__init__", Kind: types.KindMethod, EnclosingClass: "C", RelativePath: "m.py", StartLine: 2, EndLine: 3})

	g := NewGraph()
	for _, id := range reg.IDs() {
		g.AddNode(id)
	}

	leaves := FilterLeaves(reg, g, BuildOptions{HasGo: true})
	assert.Equal(t, []string{"m.C"}, leaves, "constructor merged into its class")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	reg := types.NewComponentRegistry()
	f := addComponent(reg, "a.F", "F", types.KindClass)
	addComponent(reg, "b.G", "G", types.KindClass)
	f.Docstring = "F does things."
	f.HasDoc = true
	f.Parameters = []string{"x int"}

	edges := []types.CallEdge{{Caller: "a.F", Callee: "b.G", Kind: types.EdgeCalls}}
	res := Build(reg, edges, BuildOptions{})

	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, Save(path, reg, res))

	reg2, g2, leaves2, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, reg.IDs(), reg2.IDs())
	assert.Equal(t, res.Leaves, leaves2)
	if diff := cmp.Diff(res.Graph, g2); diff != "" {
		t.Fatalf("graph mismatch after round trip (-want +got):\n%s", diff)
	}

	orig := reg.Get("a.F")
	loaded := reg2.Get("a.F")
	assert.Equal(t, orig.Docstring, loaded.Docstring)
	assert.Equal(t, orig.Parameters, loaded.Parameters)
	assert.Equal(t, orig.DependsOn, loaded.DependsOn)
}
