// Package orchestrate walks the module tree leaf-first and produces one
// documentation artifact per node plus the repository overview. Leaves are
// documented by the agent runtime; a parent's overview is synthesized from
// its children's artifacts with a direct model call once every child has
// completed.
package orchestrate

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"codewiki/internal/agent"
	"codewiki/internal/logging"
	"codewiki/internal/types"
)

// maxParallelSubtrees bounds concurrent sibling processing. Siblings are
// independent; the parent-child happens-before relation is strict.
const maxParallelSubtrees = 4

// Orchestrator drives the documentation run.
type Orchestrator struct {
	runtime *agent.Runtime
	deps    *agent.Dependencies

	// Stats feed the metadata artifact at the end of a successful run.
	Stats RunStats
}

// RunStats are the gross statistics recorded in metadata.
type RunStats struct {
	TotalComponents int `json:"total_components"`
	MaxDepth        int `json:"max_depth"`
	FilesAnalyzed   int `json:"files_analyzed"`
}

// New creates an orchestrator over the shared dependency context.
func New(runtime *agent.Runtime, stats RunStats) *Orchestrator {
	return &Orchestrator{runtime: runtime, deps: runtime.Deps(), Stats: stats}
}

// Run documents every module and synthesizes the repository overview last.
// A failure in any per-node agent call aborts the run naming the offending
// module; artifacts already written stay in place for resume.
func (o *Orchestrator) Run(ctx context.Context) error {
	timer := logging.StartTimer(logging.CategoryOrchestrator, "Run")
	defer timer.StopWithInfo()

	root := o.deps.Tree
	var topArtifacts []string

	if root.IsLeaf() {
		// Degenerate tree: one module. Its artifact feeds the overview.
		path := root.Name
		if err := o.runtime.Document(ctx, path, root); err != nil {
			return fmt.Errorf("module %q: %w", path, err)
		}
		topArtifacts = append(topArtifacts, agent.ArtifactPath(o.deps.DocsDir, path))
	} else {
		if err := o.processChildren(ctx, "", root); err != nil {
			return err
		}
		for _, name := range root.ChildNames() {
			topArtifacts = append(topArtifacts, agent.ArtifactPath(o.deps.DocsDir, name))
		}
	}

	if err := o.synthesize(ctx, "", repositoryOverviewPrompt, topArtifacts); err != nil {
		return fmt.Errorf("repository overview: %w", err)
	}

	if err := o.writeMetadata(); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	logging.Orch("run complete: %d top-level modules", len(topArtifacts))
	return nil
}

// process handles one non-root node: leaves go to the agent runtime,
// interior nodes synthesize from their completed children.
func (o *Orchestrator) process(ctx context.Context, treePath string, node *types.ModuleNode) error {
	if node.IsLeaf() {
		if err := o.runtime.Document(ctx, treePath, node); err != nil {
			return fmt.Errorf("module %q: %w", treePath, err)
		}
		return nil
	}

	if err := o.processChildren(ctx, treePath, node); err != nil {
		return err
	}

	var childArtifacts []string
	for _, name := range node.ChildNames() {
		childArtifacts = append(childArtifacts, agent.ArtifactPath(o.deps.DocsDir, treePath+"/"+name))
	}
	if err := o.synthesize(ctx, treePath, moduleOverviewPrompt, childArtifacts); err != nil {
		return fmt.Errorf("module %q: %w", treePath, err)
	}
	return nil
}

// processChildren runs sibling subtrees with bounded parallelism. A parent
// never begins until every child has completed.
func (o *Orchestrator) processChildren(ctx context.Context, treePath string, node *types.ModuleNode) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelSubtrees)
	for _, name := range node.ChildNames() {
		child := node.Children[name]
		childPath := name
		if treePath != "" {
			childPath = treePath + "/" + name
		}
		g.Go(func() error {
			return o.process(gctx, childPath, child)
		})
	}
	return g.Wait()
}

// synthesize writes a parent artifact from its children's concatenated
// artifacts via a direct model call (not an agent). Skipped when the
// artifact already exists, mirroring agent idempotency.
func (o *Orchestrator) synthesize(ctx context.Context, treePath, systemPrompt string, childArtifacts []string) error {
	artifact := agent.ArtifactPath(o.deps.DocsDir, treePath)
	if _, err := os.Stat(artifact); err == nil {
		logging.Orch("overview exists, skipping %s", artifact)
		return nil
	}

	var b strings.Builder
	for _, path := range childArtifacts {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("child artifact missing: %s: %w", path, err)
		}
		fmt.Fprintf(&b, "<!-- %s -->\n%s\n\n", path, data)
	}

	text, err := o.deps.Chain.Complete(ctx, systemPrompt, b.String())
	if err != nil {
		return err
	}
	if err := os.WriteFile(artifact, []byte(text+"\n"), 0o644); err != nil {
		return err
	}
	logging.Orch("overview synthesized: %s", artifact)
	return nil
}
