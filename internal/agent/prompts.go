package agent

import (
	"fmt"
	"sort"
	"strings"

	"codewiki/internal/config"
	"codewiki/internal/types"
)

// docTypeParagraphs tailor the system prompt emphasis per documentation
// flavor.
var docTypeParagraphs = map[config.DocType]string{
	config.DocTypeAPI: "Emphasize public interfaces: signatures, parameters, return values, " +
		"error conditions, and usage examples for every exported component.",
	config.DocTypeArchitecture: "Emphasize structure: responsibilities of each component, how they " +
		"collaborate, the data and control flow between them, and the design decisions the code embodies.",
	config.DocTypeUserGuide: "Write for end users of this software: explain what it does, how to get " +
		"started, and how the pieces fit together, avoiding implementation detail.",
	config.DocTypeDeveloper: "Write for contributors: explain how the code is organized, where to make " +
		"common changes, invariants to preserve, and the non-obvious parts of the implementation.",
}

// buildSystemPrompt assembles the agent system prompt: role, tool rules,
// the scope contract, doc-type emphasis, focus modules, and custom
// instructions, in that order.
func buildSystemPrompt(deps *Dependencies, complex bool, artifactPath string) string {
	var b strings.Builder

	b.WriteString("You are a senior engineer writing documentation for one module of a codebase.\n")
	b.WriteString("Use read_code_components to read source before describing it. ")
	b.WriteString("Write the final Markdown artifact with str_replace_editor.\n\n")

	fmt.Fprintf(&b, "Write the documentation to exactly this path: %s\n", artifactPath)
	fmt.Fprintf(&b, "The repository at %s is read-only: only the view command works there. ", deps.RepoRoot)
	fmt.Fprintf(&b, "All writes go under %s.\n\n", deps.DocsDir)

	b.WriteString("Structure the artifact with an overview, per-component sections, and at least one ")
	b.WriteString("mermaid diagram showing component relationships. Diagrams are validated; fix any ")
	b.WriteString("reported mermaid errors before finishing.\n\n")

	if complex {
		b.WriteString("For a child module that is too large to cover inline, call ")
		b.WriteString("generate_sub_module_documentation and link to its artifact instead.\n\n")
	}

	if p, ok := docTypeParagraphs[deps.DocType]; ok {
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	if len(deps.FocusModules) > 0 {
		fmt.Fprintf(&b, "Give extra attention to these modules when relevant: %s.\n\n",
			strings.Join(deps.FocusModules, ", "))
	}
	if deps.CustomInstructions != "" {
		b.WriteString(deps.CustomInstructions)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// buildUserPrompt renders the module's position and component inventory.
func buildUserPrompt(deps *Dependencies, treePath string, node *types.ModuleNode) string {
	var b strings.Builder

	location := treePath
	if location == "" {
		location = "(repository root)"
	}
	fmt.Fprintf(&b, "Module: %s\nLocation in module tree: %s\n\n", node.Name, location)

	if len(node.ChildNames()) > 0 {
		fmt.Fprintf(&b, "Child modules: %s\n\n", strings.Join(node.ChildNames(), ", "))
	}

	byFile := make(map[string][]string)
	for _, id := range node.Components {
		if comp := deps.Registry.Get(id); comp != nil {
			byFile[comp.RelativePath] = append(byFile[comp.RelativePath], id)
		}
	}
	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	b.WriteString("Components to document:\n")
	for _, f := range files {
		fmt.Fprintf(&b, "\nfile: %s\n", f)
		sort.Strings(byFile[f])
		for _, id := range byFile[f] {
			comp := deps.Registry.Get(id)
			fmt.Fprintf(&b, "  - %s (%s %s, lines %d-%d)\n", id, comp.Kind, comp.Name, comp.StartLine, comp.EndLine)
			if comp.HasDoc {
				doc := comp.Docstring
				if len(doc) > 200 {
					doc = doc[:200] + "..."
				}
				fmt.Fprintf(&b, "    doc: %s\n", strings.ReplaceAll(doc, "\n", " "))
			}
		}
	}
	return b.String()
}
