package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"codewiki/internal/types"
)

// componentRecord is the on-disk shape of one component: every Component
// field plus the depends_on set serialized as a sorted array.
type componentRecord struct {
	types.Component
	DependsOn []string `json:"depends_on"`
}

// Document is the single JSON artifact the graph build persists.
type Document struct {
	Components map[string]componentRecord `json:"components"`
	Leaves     []string                   `json:"leaves"`
}

// Save serializes the registry and graph to one JSON file.
func Save(path string, registry *types.ComponentRegistry, result *BuildResult) error {
	doc := Document{
		Components: make(map[string]componentRecord, registry.Len()),
		Leaves:     result.Leaves,
	}
	for _, id := range registry.IDs() {
		comp := registry.Get(id)
		deps := make([]string, 0, len(comp.DependsOn))
		for d := range comp.DependsOn {
			deps = append(deps, d)
		}
		sort.Strings(deps)
		doc.Components[id] = componentRecord{Component: *comp, DependsOn: deps}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal graph document: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write graph document: %w", err)
	}
	return nil
}

// Load reads a previously saved document back into a registry and graph.
// The loaded structure is build-equivalent: component fields preserved, the
// edge set equal as a set.
func Load(path string) (*types.ComponentRegistry, Graph, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read graph document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, nil, fmt.Errorf("parse graph document: %w", err)
	}

	registry := types.NewComponentRegistry()
	g := NewGraph()

	ids := make([]string, 0, len(doc.Components))
	for id := range doc.Components {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		rec := doc.Components[id]
		comp := rec.Component
		for _, d := range rec.DependsOn {
			comp.AddDependency(d)
		}
		registry.Add(&comp)
	}
	for _, id := range ids {
		g.AddNode(id)
		for _, d := range doc.Components[id].DependsOn {
			if _, ok := doc.Components[d]; ok {
				g.AddEdge(id, d)
			}
		}
	}
	return registry, g, doc.Leaves, nil
}

// SaveModuleTree writes the module-tree JSON artifact: recursive
// {name, components, children}.
func SaveModuleTree(path string, root *types.ModuleNode) error {
	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal module tree: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write module tree: %w", err)
	}
	return nil
}
