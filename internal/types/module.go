package types

import (
	"fmt"
	"sort"
	"strings"
)

// ModuleNode is one node of the hierarchical partition tree produced by the
// clusterer. A node is a leaf module iff it has no children. The tree is
// read-only once built.
type ModuleNode struct {
	Name       string                 `json:"name"`
	Components []string               `json:"components"`
	Children   map[string]*ModuleNode `json:"children,omitempty"`
}

// NewModuleNode creates a node with the given name and component ids.
func NewModuleNode(name string, components []string) *ModuleNode {
	return &ModuleNode{Name: name, Components: components}
}

// IsLeaf reports whether the node has no children.
func (n *ModuleNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// AddChild attaches a child node. Sibling names must be unique.
func (n *ModuleNode) AddChild(child *ModuleNode) error {
	if n.Children == nil {
		n.Children = make(map[string]*ModuleNode)
	}
	if _, exists := n.Children[child.Name]; exists {
		return fmt.Errorf("duplicate sibling name %q under module %q", child.Name, n.Name)
	}
	n.Children[child.Name] = child
	return nil
}

// ChildNames returns the child names in sorted order.
func (n *ModuleNode) ChildNames() []string {
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Find returns the descendant at the slash-separated path relative to n, or
// nil. An empty path returns n itself.
func (n *ModuleNode) Find(path string) *ModuleNode {
	if path == "" {
		return n
	}
	cur := n
	for _, part := range strings.Split(path, "/") {
		next, ok := cur.Children[part]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// Walk visits the tree depth-first, pre-order, children in sorted name
// order. fn receives each node with its slash-separated path from the root
// ("" for the root itself).
func (n *ModuleNode) Walk(fn func(path string, node *ModuleNode)) {
	n.walk("", fn)
}

func (n *ModuleNode) walk(path string, fn func(string, *ModuleNode)) {
	fn(path, n)
	for _, name := range n.ChildNames() {
		childPath := name
		if path != "" {
			childPath = path + "/" + name
		}
		n.Children[name].walk(childPath, fn)
	}
}

// AllComponents returns every component id mentioned anywhere in the
// subtree, sorted and deduplicated.
func (n *ModuleNode) AllComponents() []string {
	seen := make(map[string]struct{})
	n.Walk(func(_ string, node *ModuleNode) {
		for _, id := range node.Components {
			seen[id] = struct{}{}
		}
	})
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// SpansMultipleFiles reports whether the node's directly assigned components
// live in more than one source file. Complex modules get the sub-agent tool;
// single-file modules do not.
func (n *ModuleNode) SpansMultipleFiles(registry *ComponentRegistry) bool {
	files := make(map[string]struct{})
	for _, id := range n.Components {
		if c := registry.Get(id); c != nil {
			files[c.RelativePath] = struct{}{}
			if len(files) > 1 {
				return true
			}
		}
	}
	return false
}

// Validate checks the partition invariants: unique sibling names (enforced
// by the map shape), every component id known to the registry, and no
// component assigned to two modules.
func (n *ModuleNode) Validate(registry *ComponentRegistry) error {
	owner := make(map[string]string)
	var firstErr error
	n.Walk(func(path string, node *ModuleNode) {
		if firstErr != nil {
			return
		}
		for _, id := range node.Components {
			if !registry.Has(id) {
				firstErr = fmt.Errorf("module %q references unknown component %q", node.Name, id)
				return
			}
			if prev, claimed := owner[id]; claimed {
				firstErr = fmt.Errorf("component %q assigned to both %q and %q", id, prev, path)
				return
			}
			owner[id] = path
		}
	})
	return firstErr
}
