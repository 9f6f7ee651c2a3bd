package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"codewiki/internal/llm"
	"codewiki/internal/logging"
	"codewiki/internal/types"
)

// maxAgentIterations bounds one invocation's tool-call loop.
const maxAgentIterations = 24

// Runtime drives a tool-using model agent over a single module and is
// responsible for at-most-once documentation per module. Two agent
// variants exist: complex modules (components spanning multiple files)
// additionally carry the sub-agent tool.
type Runtime struct {
	deps *Dependencies
}

// NewRuntime creates a runtime over the shared dependency context.
func NewRuntime(deps *Dependencies) *Runtime {
	return &Runtime{deps: deps}
}

// Deps exposes the shared context (used by the orchestrator for synthesis
// and metadata).
func (r *Runtime) Deps() *Dependencies { return r.deps }

// Document produces the Markdown artifact for one module node. If the
// artifact already exists the invocation is skipped, which is what makes
// re-runs resume instead of redoing work.
func (r *Runtime) Document(ctx context.Context, treePath string, node *types.ModuleNode) error {
	return r.run(ctx, treePath, node, 0)
}

// run is the depth-aware entry shared by Document and the sub-agent tool.
func (r *Runtime) run(ctx context.Context, treePath string, node *types.ModuleNode, depth int) error {
	artifact := ArtifactPath(r.deps.DocsDir, treePath)
	if _, err := os.Stat(artifact); err == nil {
		logging.Agent("artifact exists, skipping %s", artifact)
		return nil
	}

	isComplex := node.SpansMultipleFiles(r.deps.Registry)
	logging.Agent("documenting %q (path=%q, complex=%v, depth=%d, %d components)",
		node.Name, treePath, isComplex, depth, len(node.Components))

	editor, err := NewEditor(r.deps.DocsDir, r.deps.RepoRoot, r.deps.History)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAgent, node.Name, err)
	}

	tools := []*tool{
		newReadComponentsTool(r.deps.Registry),
		newEditorTool(editor),
	}
	if isComplex {
		tools = append(tools, newSubModuleTool(r, node, treePath, depth))
	}
	ts := newToolset(tools...)

	messages := []llm.Message{
		{Role: "system", Content: buildSystemPrompt(r.deps, isComplex, artifact)},
		{Role: "user", Content: buildUserPrompt(r.deps, treePath, node)},
	}

	var finalText string
	for iter := 0; iter < maxAgentIterations; iter++ {
		resp, err := r.deps.Chain.Chat(ctx, llm.ChatRequest{
			Messages:  messages,
			Tools:     ts.defs(),
			MaxTokens: r.deps.Budgets.MaxOutputTokens,
		})
		if err != nil {
			return fmt.Errorf("%w: module %s: %v", ErrAgent, node.Name, err)
		}
		msg := resp.First()
		if msg == nil {
			return fmt.Errorf("%w: module %s: empty model response", ErrAgent, node.Name)
		}

		if len(msg.ToolCalls) == 0 {
			finalText = msg.Content
			break
		}

		// Tool calls are serialized in the order the model requested them.
		messages = append(messages, *msg)
		for _, call := range msg.ToolCalls {
			result := ts.dispatch(ctx, call)
			messages = append(messages, llm.Message{
				Role:       "tool",
				ToolCallID: call.ID,
				Name:       call.Function.Name,
				Content:    result,
			})
		}
	}

	// The agent normally writes the artifact through the editor. If it
	// answered with text instead, the text becomes the artifact; an empty
	// outcome is an agent give-up.
	if _, err := os.Stat(artifact); os.IsNotExist(err) {
		if finalText == "" {
			return fmt.Errorf("%w: module %s: no artifact produced", ErrAgent, node.Name)
		}
		if err := os.MkdirAll(filepath.Dir(artifact), 0o755); err != nil {
			return fmt.Errorf("%w: module %s: %v", ErrAgent, node.Name, err)
		}
		if err := os.WriteFile(artifact, []byte(finalText), 0o644); err != nil {
			return fmt.Errorf("%w: module %s: %v", ErrAgent, node.Name, err)
		}
		logging.Agent("artifact written from final response: %s", artifact)
	}

	logging.Agent("module %q documented: %s", node.Name, artifact)
	return nil
}
