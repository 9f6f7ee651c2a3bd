// Package types defines the shared data model for the analysis pipeline:
// extracted components, call edges, the component registry, and the
// hierarchical module tree consumed by the documentation agents.
package types

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind classifies an extracted code element.
type Kind string

const (
	KindClass      Kind = "class"
	KindInterface  Kind = "interface"
	KindStruct     Kind = "struct"
	KindEnum       Kind = "enum"
	KindRecord     Kind = "record"
	KindAnnotation Kind = "annotation"
	KindTrait      Kind = "trait"
	KindFunction   Kind = "function"
	KindMethod     Kind = "method"
	KindVariable   Kind = "variable"
	KindTypeAlias  Kind = "type_alias"

	// Vue single-file-component kinds.
	KindVueComponent Kind = "vue_component"
	KindVueProps     Kind = "vue_props"
	KindVueEmits     Kind = "vue_emits"
)

// IsClassLike reports whether the kind declares a type with members.
func (k Kind) IsClassLike() bool {
	switch k {
	case KindClass, KindInterface, KindStruct, KindEnum, KindRecord, KindAnnotation, KindTrait:
		return true
	}
	return false
}

// EdgeKind classifies a relationship between two components.
type EdgeKind string

const (
	EdgeCalls         EdgeKind = "calls"
	EdgeUsesComponent EdgeKind = "uses_component"
	EdgeReferences    EdgeKind = "references"
	EdgeExtends       EdgeKind = "extends"
	EdgeImplements    EdgeKind = "implements"
	EdgeImports       EdgeKind = "imports"
)

// Component is a single extracted code element. IDs are stable within a run:
// "<dotted_module_path>.<name>" for top-level elements and
// "<dotted_module_path>.<class>.<method>" for members, where the dotted
// module path is the repository-relative file path with its extension
// stripped and separators mapped to dots.
type Component struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Kind         Kind     `json:"kind"`
	FilePath     string   `json:"file_path"`
	RelativePath string   `json:"relative_path"`
	StartLine    int      `json:"start_line"`
	EndLine      int      `json:"end_line"`
	SourceCode   string   `json:"source_code,omitempty"`
	Docstring    string   `json:"docstring,omitempty"`
	HasDoc       bool     `json:"has_doc"`
	Parameters   []string `json:"parameters,omitempty"`
	BaseTypes    []string `json:"base_types,omitempty"`

	// EnclosingClass is the short name of the containing class for members.
	EnclosingClass string `json:"enclosing_class,omitempty"`

	// DependsOn holds intra-repository component ids this component uses.
	// Populated by the graph builder from resolved edges.
	DependsOn map[string]struct{} `json:"-"`

	// Attributes carries language-specific extensions (Vue reactivity
	// flavor, macro names, receiver types). Unknown keys round-trip as-is.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Validate checks the structural invariants every component must satisfy.
func (c *Component) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("component has empty id")
	}
	if c.StartLine > c.EndLine {
		return fmt.Errorf("component %s: start_line %d > end_line %d", c.ID, c.StartLine, c.EndLine)
	}
	if strings.HasPrefix(c.RelativePath, "..") || filepath.IsAbs(c.RelativePath) {
		return fmt.Errorf("component %s: relative_path %q escapes repository root", c.ID, c.RelativePath)
	}
	return nil
}

// AddDependency records an intra-repository dependency on target.
func (c *Component) AddDependency(target string) {
	if target == "" || target == c.ID {
		return
	}
	if c.DependsOn == nil {
		c.DependsOn = make(map[string]struct{})
	}
	c.DependsOn[target] = struct{}{}
}

// CallEdge is a typed relationship between two components. Callee may name a
// component that is not in the registry; such edges survive with
// Resolved=false for diagnostics but never populate DependsOn.
type CallEdge struct {
	Caller   string   `json:"caller"`
	Callee   string   `json:"callee"`
	Line     int      `json:"line,omitempty"`
	Kind     EdgeKind `json:"kind"`
	Resolved bool     `json:"resolved"`
}

// Key returns the deduplication key; no two edges may share it after the
// graph build.
func (e CallEdge) Key() string {
	return e.Caller + "\x00" + e.Callee + "\x00" + string(e.Kind)
}

// Repository identifies the code base under analysis for one run.
type Repository struct {
	URL        string `json:"url,omitempty"`
	Root       string `json:"root"`
	AnalysisID string `json:"analysis_id"`
}

// ComponentID derives the dotted id prefix for a file. relPath must be
// repository-relative with forward slashes.
func ComponentID(relPath, name string) string {
	return ModulePath(relPath) + "." + name
}

// MemberID derives the id for a class member.
func MemberID(relPath, class, member string) string {
	return ModulePath(relPath) + "." + class + "." + member
}

// ModulePath converts a repository-relative file path to its dotted module
// path: extension stripped, separators mapped to dots.
func ModulePath(relPath string) string {
	p := filepath.ToSlash(relPath)
	if ext := filepath.Ext(p); ext != "" {
		p = strings.TrimSuffix(p, ext)
	}
	return strings.ReplaceAll(p, "/", ".")
}
