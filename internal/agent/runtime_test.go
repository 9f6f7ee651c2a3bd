package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codewiki/internal/config"
	"codewiki/internal/llm"
	"codewiki/internal/tokens"
	"codewiki/internal/types"
)

// scriptedChat replays canned responses; tool calls are expressed as
// JSON-encoded ChatResponse bodies.
type scriptedChat struct {
	responses []string
	calls     int
	requests  []llm.ChatRequest
}

func (s *scriptedChat) Complete(_ context.Context, _, _, _ string) (string, error) {
	return "", fmt.Errorf("not used")
}

func (s *scriptedChat) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	s.requests = append(s.requests, req)
	if s.calls >= len(s.responses) {
		return nil, fmt.Errorf("unexpected call %d", s.calls)
	}
	var resp llm.ChatResponse
	if err := json.Unmarshal([]byte(s.responses[s.calls]), &resp); err != nil {
		return nil, err
	}
	s.calls++
	return &resp, nil
}

func textResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": content}}},
	})
	return string(b)
}

func toolCallResponse(id, name, args string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]any{
			"role": "assistant",
			"tool_calls": []map[string]any{{
				"id": id, "type": "function",
				"function": map[string]any{"name": name, "arguments": args},
			}},
		}}},
	})
	return string(b)
}

type runtimeFixture struct {
	runtime *Runtime
	chat    *scriptedChat
	docs    string
	repo    string
	reg     *types.ComponentRegistry
}

func newRuntimeFixture(t *testing.T, responses []string, budgets types.TokenBudgets) *runtimeFixture {
	t.Helper()
	docs := t.TempDir()
	repo := t.TempDir()

	reg := types.NewComponentRegistry()
	reg.Add(&types.Component{
		ID: "a.f", Name: "f", Kind: types.KindFunction, RelativePath: "a.py",
		StartLine: 1, EndLine: 2, SourceCode: "def f():\n    pass",
	})
	reg.Add(&types.Component{
		ID: "b.g", Name: "g", Kind: types.KindFunction, RelativePath: "b.py",
		StartLine: 1, EndLine: 2, SourceCode: "def g():\n    pass",
	})

	chat := &scriptedChat{responses: responses}
	deps := &Dependencies{
		DocsDir:  docs,
		RepoRoot: repo,
		History:  NewEditHistory(),
		Registry: reg,
		Budgets:  budgets,
		Chain:    llm.NewChain(chat, []string{"test-model"}),
		Counter:  tokens.NewCounter(),
		DocType:  config.DocTypeArchitecture,
	}
	return &runtimeFixture{runtime: NewRuntime(deps), chat: chat, docs: docs, repo: repo, reg: reg}
}

func TestRuntimeWritesArtifactViaEditor(t *testing.T) {
	budgets := types.DefaultTokenBudgets()
	node := types.NewModuleNode("core", []string{"a.f", "b.g"})

	f := newRuntimeFixture(t, nil, budgets)
	artifact := ArtifactPath(f.docs, "core")
	createArgs, _ := json.Marshal(map[string]any{
		"command": "create", "path": artifact,
		"file_text": "# core\n\n```mermaid\ngraph TD\n  A --> B\n```\n",
	})
	f.chat.responses = []string{
		toolCallResponse("c1", "read_code_components", `{"component_ids": ["a.f", "b.g"]}`),
		toolCallResponse("c2", "str_replace_editor", string(createArgs)),
		textResponse("Done."),
	}

	require.NoError(t, f.runtime.Document(context.Background(), "core", node))

	data, err := os.ReadFile(artifact)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# core")

	// The complex-module agent carries all three tools.
	require.NotEmpty(t, f.chat.requests)
	var names []string
	for _, d := range f.chat.requests[0].Tools {
		names = append(names, d.Function.Name)
	}
	assert.ElementsMatch(t, []string{"read_code_components", "str_replace_editor", "generate_sub_module_documentation"}, names)
}

func TestRuntimeLeafAgentToolset(t *testing.T) {
	// All components in one file: the leaf variant has no sub-agent tool.
	budgets := types.DefaultTokenBudgets()
	f := newRuntimeFixture(t, []string{textResponse("# doc\n")}, budgets)
	node := types.NewModuleNode("leaf", []string{"a.f"})

	require.NoError(t, f.runtime.Document(context.Background(), "leaf", node))

	var names []string
	for _, d := range f.chat.requests[0].Tools {
		names = append(names, d.Function.Name)
	}
	assert.ElementsMatch(t, []string{"read_code_components", "str_replace_editor"}, names)
}

func TestRuntimeFinalTextBecomesArtifact(t *testing.T) {
	f := newRuntimeFixture(t, []string{textResponse("# fallback artifact\n")}, types.DefaultTokenBudgets())
	node := types.NewModuleNode("leaf", []string{"a.f"})

	require.NoError(t, f.runtime.Document(context.Background(), "leaf", node))
	data, err := os.ReadFile(ArtifactPath(f.docs, "leaf"))
	require.NoError(t, err)
	assert.Equal(t, "# fallback artifact\n", string(data))
}

func TestRuntimeIdempotency(t *testing.T) {
	f := newRuntimeFixture(t, nil, types.DefaultTokenBudgets())
	node := types.NewModuleNode("core", []string{"a.f"})

	artifact := ArtifactPath(f.docs, "core")
	require.NoError(t, os.MkdirAll(filepath.Dir(artifact), 0o755))
	require.NoError(t, os.WriteFile(artifact, []byte("# existing\n"), 0o644))

	require.NoError(t, f.runtime.Document(context.Background(), "core", node))
	assert.Zero(t, f.chat.calls, "existing artifact means zero model invocations")
}

func TestRuntimeModelFatalAborts(t *testing.T) {
	f := newRuntimeFixture(t, nil, types.DefaultTokenBudgets())
	node := types.NewModuleNode("core", []string{"a.f"})

	err := f.runtime.Document(context.Background(), "core", node)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAgent)
	assert.Contains(t, err.Error(), "core", "failure names the module")
}

func TestRuntimeToolErrorReportedBackToAgent(t *testing.T) {
	f := newRuntimeFixture(t, nil, types.DefaultTokenBudgets())
	node := types.NewModuleNode("core", []string{"a.f", "b.g"})

	// Scope violation: a write into the repository root. The run
	// continues; the agent recovers on its next turn.
	badArgs, _ := json.Marshal(map[string]any{
		"command": "str_replace", "path": filepath.Join(f.repo, "a.py"),
		"old_str": "x", "new_str": "y",
	})
	f.chat.responses = []string{
		toolCallResponse("c1", "str_replace_editor", string(badArgs)),
		textResponse("# recovered\n"),
	}

	require.NoError(t, f.runtime.Document(context.Background(), "core", node))

	// The second request carries the tool error back to the model.
	require.Len(t, f.chat.requests, 2)
	last := f.chat.requests[1].Messages[len(f.chat.requests[1].Messages)-1]
	assert.Equal(t, "tool", last.Role)
	assert.Contains(t, last.Content, "Error:")
	assert.Contains(t, last.Content, "read-only")
}

func TestReadComponentsUnknownIDMarker(t *testing.T) {
	reg := types.NewComponentRegistry()
	reg.Add(&types.Component{ID: "a.f", Name: "f", RelativePath: "a.py", StartLine: 1, EndLine: 1, SourceCode: "def f(): pass"})
	tool := newReadComponentsTool(reg)

	out, err := tool.exec(context.Background(), `{"component_ids": ["a.f", "nope.x"]}`)
	require.NoError(t, err)
	assert.Contains(t, out, "def f(): pass")
	assert.Contains(t, out, "[unknown component: nope.x]")
}

func TestReadComponentsShapeRepairedArguments(t *testing.T) {
	reg := types.NewComponentRegistry()
	reg.Add(&types.Component{ID: "a.f", Name: "f", RelativePath: "a.py", StartLine: 1, EndLine: 1, SourceCode: "src"})
	ts := newToolset(newReadComponentsTool(reg))

	// component_ids arrives as a JSON-encoded string, the provider quirk
	// the shape repair handles.
	out := ts.dispatch(context.Background(), llm.ToolCall{
		ID: "c1", Type: "function",
		Function: llm.FunctionCall{Name: "read_code_components", Arguments: `{"component_ids": "[\"a.f\"]"}`},
	})
	assert.Contains(t, out, "src")
	assert.NotContains(t, out, "Error")
}

func TestSubModuleToolRecursionGate(t *testing.T) {
	budgets := types.TokenBudgets{
		MaxTokensPerModule:     100000,
		MaxTokensPerLeafModule: 100,
		MaxOutputTokens:        1000,
		MaxRecursionDepth:      2,
	}
	f := newRuntimeFixture(t, nil, budgets)

	// Oversize, multi-file child.
	big := strings.Repeat("line of source\n", 200)
	f.regAdd(t, "x.Big", "Big", "x.py", big)
	f.regAdd(t, "y.Huge", "Huge", "y.py", big)
	parent := types.NewModuleNode("parent", nil)
	child := types.NewModuleNode("child", []string{"x.Big", "y.Huge"})
	require.NoError(t, parent.AddChild(child))

	// At max depth: the fixed inline sentinel comes back, no recursion.
	atMax := newSubModuleTool(f.runtime, parent, "parent", budgets.MaxRecursionDepth)
	out, err := atMax.exec(context.Background(), `{"module_name": "child"}`)
	require.NoError(t, err)
	assert.Equal(t, subModuleInlineMessage, out)

	// Below max depth: a recursive agent is spawned (the scripted chat
	// writes the child artifact from its final text).
	f.chat.responses = []string{textResponse("# child docs\n")}
	below := newSubModuleTool(f.runtime, parent, "parent", 0)
	out, err = below.exec(context.Background(), `{"module_name": "child"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "documented")
	_, statErr := os.Stat(ArtifactPath(f.docs, "parent/child"))
	assert.NoError(t, statErr, "recursive agent produced the child artifact")
}

func TestSubModuleToolSmallChildInline(t *testing.T) {
	budgets := types.DefaultTokenBudgets()
	f := newRuntimeFixture(t, nil, budgets)

	parent := types.NewModuleNode("parent", nil)
	child := types.NewModuleNode("small", []string{"a.f", "b.g"})
	require.NoError(t, parent.AddChild(child))

	tool := newSubModuleTool(f.runtime, parent, "", 0)
	out, err := tool.exec(context.Background(), `{"module_name": "small"}`)
	require.NoError(t, err)
	assert.Equal(t, subModuleInlineMessage, out, "under-budget child documented inline")
}

func TestSubModuleToolUnknownChild(t *testing.T) {
	f := newRuntimeFixture(t, nil, types.DefaultTokenBudgets())
	parent := types.NewModuleNode("parent", nil)

	tool := newSubModuleTool(f.runtime, parent, "", 0)
	_, err := tool.exec(context.Background(), `{"module_name": "ghost"}`)
	require.ErrorIs(t, err, ErrToolViolation)
}

// regAdd registers an extra component on the fixture registry.
func (f *runtimeFixture) regAdd(t *testing.T, id, name, rel, source string) {
	t.Helper()
	require.False(t, f.reg.Add(&types.Component{
		ID: id, Name: name, Kind: types.KindClass, RelativePath: rel,
		StartLine: 1, EndLine: len(strings.Split(source, "\n")), SourceCode: source,
	}))
}

func TestArtifactPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/docs", "overview.md"), ArtifactPath("/docs", ""))
	assert.Equal(t, filepath.Join("/docs", "core.md"), ArtifactPath("/docs", "core"))
	assert.Equal(t, filepath.Join("/docs", "core", "auth.md"), ArtifactPath("/docs", "core/auth"))
}
