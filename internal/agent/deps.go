package agent

import (
	"path/filepath"
	"strings"

	"codewiki/internal/config"
	"codewiki/internal/llm"
	"codewiki/internal/tokens"
	"codewiki/internal/types"
)

// Dependencies is the shared context injected into every tool call and
// agent invocation: the two filesystem roots, the run-scoped edit history,
// the read-only registry and module tree, recursion bookkeeping, budgets,
// and prompt shaping inputs.
type Dependencies struct {
	// DocsDir is the absolute documentation output directory (writable).
	DocsDir string

	// RepoRoot is the absolute repository root (view-only).
	RepoRoot string

	// History is the per-run file edit history.
	History *EditHistory

	// Registry is the read-only component registry.
	Registry *types.ComponentRegistry

	// Tree is the full module tree, read-only.
	Tree *types.ModuleNode

	// Budgets holds the process-wide token thresholds.
	Budgets types.TokenBudgets

	// Chain is the model fallback chain for agent calls.
	Chain *llm.Chain

	// Counter estimates component token footprints.
	Counter *tokens.Counter

	// DocType selects the emphasis paragraph for the system prompt.
	DocType config.DocType

	// CustomInstructions is caller-supplied text appended to the system
	// prompt.
	CustomInstructions string

	// FocusModules are module names given prompt priority.
	FocusModules []string
}

// ArtifactPath derives the Markdown artifact location for a module tree
// path. The root maps to overview.md; other nodes mirror the tree.
func ArtifactPath(docsDir, treePath string) string {
	if treePath == "" {
		return filepath.Join(docsDir, "overview.md")
	}
	parts := strings.Split(treePath, "/")
	return filepath.Join(docsDir, filepath.Join(parts...)+".md")
}
