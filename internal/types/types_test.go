package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModulePath(t *testing.T) {
	tests := []struct {
		rel  string
		want string
	}{
		{"a.py", "a"},
		{"pkg/util/helpers.go", "pkg.util.helpers"},
		{"src/components/Button.vue", "src.components.Button"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ModulePath(tt.rel))
	}
}

func TestComponentIDs(t *testing.T) {
	assert.Equal(t, "a.f", ComponentID("a.py", "f"))
	assert.Equal(t, "pkg.svc.Server.Start", MemberID("pkg/svc.go", "Server", "Start"))
}

func TestComponentValidate(t *testing.T) {
	c := &Component{ID: "a.f", Name: "f", Kind: KindFunction, RelativePath: "a.py", StartLine: 3, EndLine: 10}
	require.NoError(t, c.Validate())

	bad := &Component{ID: "a.f", RelativePath: "a.py", StartLine: 10, EndLine: 3}
	require.Error(t, bad.Validate())

	escape := &Component{ID: "a.f", RelativePath: "../outside.py", StartLine: 1, EndLine: 1}
	require.Error(t, escape.Validate())
}

func TestComponentAddDependency(t *testing.T) {
	c := &Component{ID: "a.f"}
	c.AddDependency("b.g")
	c.AddDependency("b.g")
	c.AddDependency("a.f") // self-dependency ignored
	c.AddDependency("")
	assert.Len(t, c.DependsOn, 1)
}

func TestRegistry(t *testing.T) {
	r := NewComponentRegistry()
	require.False(t, r.Add(&Component{ID: "a.f", Name: "f"}))
	require.False(t, r.Add(&Component{ID: "b.f", Name: "f"}))
	require.True(t, r.Add(&Component{ID: "a.f", Name: "f"}), "duplicate id reported")

	assert.Equal(t, 2, r.Len())
	assert.True(t, r.Has("a.f"))
	assert.Nil(t, r.Get("missing"))
	assert.Equal(t, []string{"a.f", "b.f"}, r.ResolveName("f"))
	assert.Equal(t, []string{"a.f", "b.f"}, r.IDs())

	r.Freeze()
	assert.True(t, r.Frozen())
	assert.Panics(t, func() { r.Add(&Component{ID: "c.h"}) })
}

func TestModuleNodeTree(t *testing.T) {
	root := NewModuleNode("root", nil)
	core := NewModuleNode("core", []string{"a.f", "b.g"})
	util := NewModuleNode("util", []string{"c.h"})
	require.NoError(t, root.AddChild(core))
	require.NoError(t, root.AddChild(util))
	require.Error(t, root.AddChild(NewModuleNode("core", nil)), "sibling name collision")

	assert.False(t, root.IsLeaf())
	assert.True(t, core.IsLeaf())
	assert.Equal(t, []string{"core", "util"}, root.ChildNames())
	assert.Same(t, core, root.Find("core"))
	assert.Nil(t, root.Find("core/missing"))
	assert.Equal(t, []string{"a.f", "b.g", "c.h"}, root.AllComponents())

	var paths []string
	root.Walk(func(path string, _ *ModuleNode) { paths = append(paths, path) })
	assert.Equal(t, []string{"", "core", "util"}, paths)
}

func TestModuleNodeValidate(t *testing.T) {
	reg := NewComponentRegistry()
	reg.Add(&Component{ID: "a.f", Name: "f"})
	reg.Add(&Component{ID: "b.g", Name: "g"})

	root := NewModuleNode("root", nil)
	require.NoError(t, root.AddChild(NewModuleNode("m1", []string{"a.f"})))
	require.NoError(t, root.AddChild(NewModuleNode("m2", []string{"b.g"})))
	require.NoError(t, root.Validate(reg))

	// Unknown component.
	bad := NewModuleNode("root", []string{"missing.x"})
	require.Error(t, bad.Validate(reg))

	// Double assignment.
	dup := NewModuleNode("root", nil)
	require.NoError(t, dup.AddChild(NewModuleNode("m1", []string{"a.f"})))
	require.NoError(t, dup.AddChild(NewModuleNode("m2", []string{"a.f"})))
	require.Error(t, dup.Validate(reg))
}

func TestSpansMultipleFiles(t *testing.T) {
	reg := NewComponentRegistry()
	reg.Add(&Component{ID: "a.f", Name: "f", RelativePath: "a.py"})
	reg.Add(&Component{ID: "a.g", Name: "g", RelativePath: "a.py"})
	reg.Add(&Component{ID: "b.h", Name: "h", RelativePath: "b.py"})

	single := NewModuleNode("m", []string{"a.f", "a.g"})
	assert.False(t, single.SpansMultipleFiles(reg))

	multi := NewModuleNode("m", []string{"a.f", "b.h"})
	assert.True(t, multi.SpansMultipleFiles(reg))
}

func TestEdgeKey(t *testing.T) {
	e1 := CallEdge{Caller: "a.f", Callee: "b.g", Kind: EdgeCalls}
	e2 := CallEdge{Caller: "a.f", Callee: "b.g", Kind: EdgeCalls, Line: 7}
	e3 := CallEdge{Caller: "a.f", Callee: "b.g", Kind: EdgeReferences}
	assert.Equal(t, e1.Key(), e2.Key(), "line does not participate in dedup")
	assert.NotEqual(t, e1.Key(), e3.Key())
}
