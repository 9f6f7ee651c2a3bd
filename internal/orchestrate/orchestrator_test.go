package orchestrate

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codewiki/internal/agent"
	"codewiki/internal/config"
	"codewiki/internal/llm"
	"codewiki/internal/tokens"
	"codewiki/internal/types"
)

// stubChat answers every agent call with a final text and every synthesis
// call with a canned overview. It records call order for ordering checks.
type stubChat struct {
	mu       sync.Mutex
	sequence []string
	failOn   string
}

func (s *stubChat) record(kind string) {
	s.mu.Lock()
	s.sequence = append(s.sequence, kind)
	s.mu.Unlock()
}

func (s *stubChat) Complete(_ context.Context, _, system, _ string) (string, error) {
	s.record("synthesis")
	if s.failOn == "synthesis" {
		return "", &llm.APIError{Status: 400, Message: "boom"}
	}
	_ = system
	return "# synthesized overview", nil
}

func (s *stubChat) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	s.record("agent")
	if s.failOn == "agent" {
		return nil, &llm.APIError{Status: 400, Message: "boom"}
	}
	var resp llm.ChatResponse
	_ = json.Unmarshal([]byte(`{"choices":[{"message":{"role":"assistant","content":"# module doc"}}]}`), &resp)
	_ = req
	return &resp, nil
}

func fixtureDeps(t *testing.T, chat llm.Client, tree *types.ModuleNode, reg *types.ComponentRegistry) *agent.Dependencies {
	t.Helper()
	return &agent.Dependencies{
		DocsDir:  t.TempDir(),
		RepoRoot: t.TempDir(),
		History:  agent.NewEditHistory(),
		Registry: reg,
		Tree:     tree,
		Budgets:  types.DefaultTokenBudgets(),
		Chain:    llm.NewChain(chat, []string{"main-model"}),
		Counter:  tokens.NewCounter(),
		DocType:  config.DocTypeArchitecture,
	}
}

func fixtureRegistry(ids map[string]string) *types.ComponentRegistry {
	reg := types.NewComponentRegistry()
	for id, rel := range ids {
		reg.Add(&types.Component{
			ID: id, Name: filepath.Ext(id)[1:], Kind: types.KindClass,
			RelativePath: rel, StartLine: 1, EndLine: 3, SourceCode: "class X: pass",
		})
	}
	return reg
}

func TestOrchestratorLeafFirstOrder(t *testing.T) {
	reg := fixtureRegistry(map[string]string{
		"a.A": "a.py",
		"b.B": "b.py",
	})
	root := types.NewModuleNode("repo", nil)
	require.NoError(t, root.AddChild(types.NewModuleNode("core", []string{"a.A"})))
	require.NoError(t, root.AddChild(types.NewModuleNode("util", []string{"b.B"})))

	chat := &stubChat{}
	deps := fixtureDeps(t, chat, root, reg)
	o := New(agent.NewRuntime(deps), RunStats{TotalComponents: 2, MaxDepth: 1, FilesAnalyzed: 2})

	require.NoError(t, o.Run(context.Background()))

	// Per-module artifacts plus the overview exist.
	for _, f := range []string{"core.md", "util.md", "overview.md", "metadata.json"} {
		_, err := os.Stat(filepath.Join(deps.DocsDir, f))
		assert.NoError(t, err, f)
	}

	// The repository overview is strictly last.
	require.NotEmpty(t, chat.sequence)
	assert.Equal(t, "synthesis", chat.sequence[len(chat.sequence)-1])
}

func TestOrchestratorNestedTreeSynthesis(t *testing.T) {
	reg := fixtureRegistry(map[string]string{
		"a.A": "a.py",
		"b.B": "b.py",
	})
	root := types.NewModuleNode("repo", nil)
	core := types.NewModuleNode("core", nil)
	require.NoError(t, core.AddChild(types.NewModuleNode("auth", []string{"a.A"})))
	require.NoError(t, core.AddChild(types.NewModuleNode("data", []string{"b.B"})))
	require.NoError(t, root.AddChild(core))

	chat := &stubChat{}
	deps := fixtureDeps(t, chat, root, reg)
	o := New(agent.NewRuntime(deps), RunStats{})

	require.NoError(t, o.Run(context.Background()))

	for _, f := range []string{
		filepath.Join("core", "auth.md"),
		filepath.Join("core", "data.md"),
		"core.md",
		"overview.md",
	} {
		_, err := os.Stat(filepath.Join(deps.DocsDir, f))
		assert.NoError(t, err, f)
	}

	data, _ := os.ReadFile(filepath.Join(deps.DocsDir, "core.md"))
	assert.Contains(t, string(data), "synthesized", "parent overview is model-synthesized")
}

func TestOrchestratorSingleLeafRepo(t *testing.T) {
	reg := fixtureRegistry(map[string]string{"a.A": "a.py"})
	root := types.NewModuleNode("repo", []string{"a.A"})

	chat := &stubChat{}
	deps := fixtureDeps(t, chat, root, reg)
	o := New(agent.NewRuntime(deps), RunStats{})

	require.NoError(t, o.Run(context.Background()))

	// One module artifact and one overview.
	_, err := os.Stat(filepath.Join(deps.DocsDir, "repo.md"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(deps.DocsDir, "overview.md"))
	assert.NoError(t, err)
}

func TestOrchestratorFailureNamesModule(t *testing.T) {
	reg := fixtureRegistry(map[string]string{"a.A": "a.py"})
	root := types.NewModuleNode("repo", nil)
	require.NoError(t, root.AddChild(types.NewModuleNode("core", []string{"a.A"})))

	chat := &stubChat{failOn: "agent"}
	deps := fixtureDeps(t, chat, root, reg)
	o := New(agent.NewRuntime(deps), RunStats{})

	err := o.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"core"`)
	assert.ErrorIs(t, err, agent.ErrAgent)
}

func TestOrchestratorResumeSkipsExistingArtifacts(t *testing.T) {
	reg := fixtureRegistry(map[string]string{"a.A": "a.py"})
	root := types.NewModuleNode("repo", nil)
	require.NoError(t, root.AddChild(types.NewModuleNode("core", []string{"a.A"})))

	chat := &stubChat{}
	deps := fixtureDeps(t, chat, root, reg)
	o := New(agent.NewRuntime(deps), RunStats{})
	require.NoError(t, o.Run(context.Background()))

	firstRunCalls := len(chat.sequence)
	require.Positive(t, firstRunCalls)

	// Second run over unchanged artifacts: zero agent invocations.
	require.NoError(t, o.Run(context.Background()))
	assert.Equal(t, firstRunCalls, len(chat.sequence), "idempotent second run performs no model calls")
}

func TestMetadataContents(t *testing.T) {
	reg := fixtureRegistry(map[string]string{"a.A": "a.py"})
	root := types.NewModuleNode("repo", []string{"a.A"})

	chat := &stubChat{}
	deps := fixtureDeps(t, chat, root, reg)
	o := New(agent.NewRuntime(deps), RunStats{TotalComponents: 1, MaxDepth: 0, FilesAnalyzed: 1})
	require.NoError(t, o.Run(context.Background()))

	data, err := os.ReadFile(filepath.Join(deps.DocsDir, "metadata.json"))
	require.NoError(t, err)

	var meta Metadata
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.Equal(t, "main-model", meta.PrimaryModel)
	assert.NotEmpty(t, meta.GeneratedAt)
	assert.Equal(t, 1, meta.Stats.TotalComponents)
}

func TestReadCommit(t *testing.T) {
	repo := t.TempDir()
	gitDir := filepath.Join(repo, ".git")
	require.NoError(t, os.MkdirAll(filepath.Join(gitDir, "refs", "heads"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte("ref: refs/heads/main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "refs", "heads", "main"), []byte("abc123\n"), 0o644))

	assert.Equal(t, "abc123", readCommit(repo))
	assert.Empty(t, readCommit(t.TempDir()), "missing git metadata is fine")
}

func TestOrchestratorDegenerateEmptyTree(t *testing.T) {
	// A repository whose exclude globs matched everything: zero leaf
	// modules, a single degenerate overview.
	reg := types.NewComponentRegistry()
	root := types.NewModuleNode("repo", nil)

	chat := &stubChat{}
	deps := fixtureDeps(t, chat, root, reg)
	o := New(agent.NewRuntime(deps), RunStats{})

	require.NoError(t, o.Run(context.Background()))
	_, err := os.Stat(filepath.Join(deps.DocsDir, "overview.md"))
	assert.NoError(t, err)
}

func TestOrchestratorSynthesisFailureAborts(t *testing.T) {
	reg := fixtureRegistry(map[string]string{"a.A": "a.py"})
	root := types.NewModuleNode("repo", nil)
	require.NoError(t, root.AddChild(types.NewModuleNode("core", []string{"a.A"})))

	chat := &stubChat{failOn: "synthesis"}
	deps := fixtureDeps(t, chat, root, reg)
	o := New(agent.NewRuntime(deps), RunStats{})

	err := o.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overview")

	// The already-written module artifact stays for resume.
	_, statErr := os.Stat(filepath.Join(deps.DocsDir, "core.md"))
	assert.NoError(t, statErr)
}

func TestOrchestratorExistingOverviewStillProcessesChildren(t *testing.T) {
	// An existing overview skips synthesis but not the child modules.
	reg := fixtureRegistry(map[string]string{"a.A": "a.py"})
	root := types.NewModuleNode("repo", nil)
	require.NoError(t, root.AddChild(types.NewModuleNode("core", []string{"a.A"})))

	chat := &stubChat{}
	deps := fixtureDeps(t, chat, root, reg)
	o := New(agent.NewRuntime(deps), RunStats{})

	// Pre-create overview.md only; core.md must still be produced first,
	// then synthesis is skipped because overview exists.
	require.NoError(t, os.WriteFile(filepath.Join(deps.DocsDir, "overview.md"), []byte("# stale"), 0o644))
	require.NoError(t, o.Run(context.Background()))

	_, err := os.Stat(filepath.Join(deps.DocsDir, "core.md"))
	assert.NoError(t, err)
}

func TestRunStatsJSONShape(t *testing.T) {
	data, err := json.Marshal(RunStats{TotalComponents: 3, MaxDepth: 2, FilesAnalyzed: 5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_components":3,"max_depth":2,"files_analyzed":5}`, string(data))
}

func TestArtifactLayoutMirrorsTree(t *testing.T) {
	docs := "/docs"
	assert.Equal(t, filepath.Join(docs, "core", "auth.md"), agent.ArtifactPath(docs, "core/auth"))
}
