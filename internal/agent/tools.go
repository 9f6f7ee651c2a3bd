package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"codewiki/internal/llm"
	"codewiki/internal/logging"
	"codewiki/internal/types"
)

// tool pairs a wire declaration with its executor. Tool results and tool
// errors are both rendered back to the model; dispatch turns every error
// into a result string.
type tool struct {
	def  llm.ToolDef
	exec func(ctx context.Context, rawArgs string) (string, error)
}

// toolset is the bounded tool collection one agent variant carries.
type toolset struct {
	tools map[string]*tool
	order []string
}

func newToolset(tools ...*tool) *toolset {
	ts := &toolset{tools: make(map[string]*tool)}
	for _, t := range tools {
		ts.tools[t.def.Function.Name] = t
		ts.order = append(ts.order, t.def.Function.Name)
	}
	return ts
}

// defs returns the wire declarations in registration order.
func (ts *toolset) defs() []llm.ToolDef {
	out := make([]llm.ToolDef, 0, len(ts.order))
	for _, name := range ts.order {
		out = append(out, ts.tools[name].def)
	}
	return out
}

// dispatch runs one model-requested tool call. The arguments pass through
// shape repair before decoding. A missing tool or a tool error becomes an
// error string for the model; dispatch itself never fails the run.
func (ts *toolset) dispatch(ctx context.Context, call llm.ToolCall) string {
	t, ok := ts.tools[call.Function.Name]
	if !ok {
		logging.ToolsWarn("model requested unknown tool %q", call.Function.Name)
		return fmt.Sprintf("Error: unknown tool %q", call.Function.Name)
	}

	rawArgs, repaired := llm.RepairToolArguments(call.Function.Arguments)
	if repaired {
		logging.Tools("tool %s: argument shape repaired", call.Function.Name)
	}

	out, err := t.exec(ctx, rawArgs)
	if err != nil {
		logging.ToolsWarn("tool %s failed: %v", call.Function.Name, err)
		return "Error: " + err.Error()
	}
	return out
}

// newReadComponentsTool builds read_code_components: returns the source of
// each known id with path/line headers. Unknown ids produce a per-id error
// marker, not a failure.
func newReadComponentsTool(registry *types.ComponentRegistry) *tool {
	return &tool{
		def: llm.ToolDef{
			Type: "function",
			Function: llm.FunctionDef{
				Name:        "read_code_components",
				Description: "Read the source code of one or more components by id.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"component_ids": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Component ids to read.",
						},
					},
					"required": []string{"component_ids"},
				},
			},
		},
		exec: func(_ context.Context, rawArgs string) (string, error) {
			var args struct {
				ComponentIDs []string `json:"component_ids"`
			}
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				return "", fmt.Errorf("%w: invalid arguments: %v", ErrToolViolation, err)
			}
			if len(args.ComponentIDs) == 0 {
				return "", fmt.Errorf("%w: component_ids must not be empty", ErrToolViolation)
			}

			var b strings.Builder
			for _, id := range args.ComponentIDs {
				comp := registry.Get(id)
				if comp == nil {
					fmt.Fprintf(&b, "[unknown component: %s]\n\n", id)
					continue
				}
				fmt.Fprintf(&b, "// %s (lines %d-%d)\n%s\n\n",
					comp.RelativePath, comp.StartLine, comp.EndLine, comp.SourceCode)
			}
			return b.String(), nil
		},
	}
}

// newEditorTool wraps the Editor as str_replace_editor.
func newEditorTool(editor *Editor) *tool {
	return &tool{
		def: llm.ToolDef{
			Type: "function",
			Function: llm.FunctionDef{
				Name:        "str_replace_editor",
				Description: "View, create, and edit files. The repository is read-only; write only under the documentation directory.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"command": map[string]any{
							"type": "string",
							"enum": []string{"view", "create", "str_replace", "insert", "undo_edit"},
						},
						"path":        map[string]any{"type": "string", "description": "Absolute file or directory path."},
						"file_text":   map[string]any{"type": "string", "description": "Content for create."},
						"old_str":     map[string]any{"type": "string", "description": "Uniquely occurring text to replace."},
						"new_str":     map[string]any{"type": "string", "description": "Replacement or inserted text."},
						"insert_line": map[string]any{"type": "integer", "description": "Line to insert after."},
						"view_start":  map[string]any{"type": "integer"},
						"view_end":    map[string]any{"type": "integer"},
					},
					"required": []string{"command", "path"},
				},
			},
		},
		exec: func(_ context.Context, rawArgs string) (string, error) {
			var args EditorArgs
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				return "", fmt.Errorf("%w: invalid arguments: %v", ErrToolViolation, err)
			}
			return editor.Execute(args)
		},
	}
}

// subModuleInlineMessage is the fixed sentinel returned when a child does
// not qualify for a recursive agent.
const subModuleInlineMessage = "Document this sub-module inline in the current artifact; it does not require a dedicated sub-agent."

// newSubModuleTool builds generate_sub_module_documentation: a recursive
// agent is spawned only when depth remains, the child is a complex module,
// and its combined component tokens exceed the leaf budget.
func newSubModuleTool(r *Runtime, node *types.ModuleNode, treePath string, depth int) *tool {
	return &tool{
		def: llm.ToolDef{
			Type: "function",
			Function: llm.FunctionDef{
				Name:        "generate_sub_module_documentation",
				Description: "Delegate documentation of a large child module to a dedicated sub-agent.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"module_name": map[string]any{
							"type":        "string",
							"description": "Name of the child module to document.",
						},
					},
					"required": []string{"module_name"},
				},
			},
		},
		exec: func(ctx context.Context, rawArgs string) (string, error) {
			var args struct {
				ModuleName string `json:"module_name"`
			}
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				return "", fmt.Errorf("%w: invalid arguments: %v", ErrToolViolation, err)
			}

			child, ok := node.Children[args.ModuleName]
			if !ok {
				known := node.ChildNames()
				sort.Strings(known)
				return "", fmt.Errorf("%w: unknown child module %q (children: %s)",
					ErrToolViolation, args.ModuleName, strings.Join(known, ", "))
			}

			childPath := args.ModuleName
			if treePath != "" {
				childPath = treePath + "/" + args.ModuleName
			}

			if depth >= r.deps.Budgets.MaxRecursionDepth ||
				!child.SpansMultipleFiles(r.deps.Registry) ||
				r.deps.Counter.CountComponents(r.deps.Registry, child.Components) <= r.deps.Budgets.MaxTokensPerLeafModule {
				return subModuleInlineMessage, nil
			}

			logging.Agent("spawning sub-agent for %s at depth %d", childPath, depth+1)
			if err := r.run(ctx, childPath, child, depth+1); err != nil {
				return "", err
			}
			return fmt.Sprintf("Sub-module %q documented at %s.",
				args.ModuleName, ArtifactPath(r.deps.DocsDir, childPath)), nil
		},
	}
}
