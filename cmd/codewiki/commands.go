package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codewiki/internal/agent"
	"codewiki/internal/cluster"
	"codewiki/internal/config"
	"codewiki/internal/extract"
	"codewiki/internal/graph"
	"codewiki/internal/llm"
	"codewiki/internal/logging"
	"codewiki/internal/orchestrate"
	"codewiki/internal/tokens"
	"codewiki/internal/types"
)

// analysis bundles the outputs of the shared extraction + graph phase.
type analysis struct {
	repo     types.Repository
	registry *types.ComponentRegistry
	build    *graph.BuildResult
	stats    extract.Stats
}

// newAnalyzeCmd runs extraction and the graph build only, persisting the
// dependency-graph JSON.
func newAnalyzeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Extract components and build the dependency graph",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			defer runTimer("analyze")()

			a, err := runAnalysis(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Printf("analyzed %d files: %d components, %d edges, %d leaves\n",
				a.stats.FilesParsed, a.registry.Len(), len(a.build.Edges), len(a.build.Leaves))
			return nil
		},
	}
}

// newGenerateCmd runs the full pipeline: analysis, clustering, and the
// documentation agents.
func newGenerateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Analyze the repository and generate its documentation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			defer runTimer("generate")()
			return runGenerate(cmd.Context(), cfg)
		},
	}
}

// runAnalysis executes extraction and the graph build, then persists the
// graph artifact.
func runAnalysis(ctx context.Context, cfg *config.Config) (*analysis, error) {
	repo := types.Repository{
		URL:        cfg.Analysis.RepositoryURL,
		Root:       cfg.Analysis.RepositoryRoot,
		AnalysisID: uuid.NewString(),
	}
	logging.Boot("analysis %s over %s", repo.AnalysisID, repo.Root)

	scanner := extract.NewScanner(cfg.Analysis.IncludePatterns, cfg.Analysis.ExcludePatterns)
	result, err := scanner.Scan(ctx, repo.Root)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	registry := types.NewComponentRegistry()
	for _, comp := range result.Components {
		if err := comp.Validate(); err != nil {
			logging.ExtractWarn("invalid component dropped: %v", err)
			continue
		}
		if registry.Add(comp) {
			logging.ExtractWarn("duplicate component id %s, first occurrence kept", comp.ID)
		}
	}

	goFiles := result.Stats.Languages[extract.LangGo]
	build := graph.Build(registry, result.Edges, graph.BuildOptions{
		HasGo:      goFiles > 0,
		GoDominant: result.Stats.FilesParsed > 0 && goFiles*2 > result.Stats.FilesParsed,
	})

	graphPath := filepath.Join(cfg.Analysis.OutputDirectory, "dependency_graph.json")
	if err := graph.Save(graphPath, registry, build); err != nil {
		return nil, fmt.Errorf("persist graph: %w", err)
	}
	logging.Graph("graph artifact written: %s", graphPath)

	return &analysis{repo: repo, registry: registry, build: build, stats: result.Stats}, nil
}

// runGenerate executes the whole pipeline.
func runGenerate(ctx context.Context, cfg *config.Config) error {
	a, err := runAnalysis(ctx, cfg)
	if err != nil {
		return err
	}

	client := llm.NewHTTPClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Timeout)

	clusterer := cluster.New(llm.NewChain(client, cfg.LLM.ClusterChain()), a.registry, cfg.Budgets)
	tree, err := clusterer.BuildTree(ctx, filepath.Base(a.repo.Root), a.build.Leaves)
	if err != nil {
		return fmt.Errorf("cluster: %w", err)
	}

	treePath := filepath.Join(cfg.Analysis.OutputDirectory, "module_tree.json")
	if err := graph.SaveModuleTree(treePath, tree); err != nil {
		return fmt.Errorf("persist module tree: %w", err)
	}

	deps := &agent.Dependencies{
		DocsDir:            cfg.Analysis.OutputDirectory,
		RepoRoot:           a.repo.Root,
		History:            agent.NewEditHistory(),
		Registry:           a.registry,
		Tree:               tree,
		Budgets:            cfg.Budgets,
		Chain:              llm.NewChain(client, cfg.LLM.AgentChain()),
		Counter:            tokens.NewCounter(),
		DocType:            cfg.Analysis.DocType,
		CustomInstructions: cfg.Analysis.CustomInstructions,
		FocusModules:       cfg.Analysis.FocusModules,
	}

	maxDepth := 0
	tree.Walk(func(path string, _ *types.ModuleNode) {
		if path == "" {
			return
		}
		if d := 1 + countSlashes(path); d > maxDepth {
			maxDepth = d
		}
	})

	o := orchestrate.New(agent.NewRuntime(deps), orchestrate.RunStats{
		TotalComponents: a.registry.Len(),
		MaxDepth:        maxDepth,
		FilesAnalyzed:   a.stats.FilesParsed,
	})
	if err := o.Run(ctx); err != nil {
		logging.OrchError("run failed: %v", err)
		return err
	}

	fmt.Printf("documentation generated under %s\n", cfg.Analysis.OutputDirectory)
	return nil
}

func countSlashes(s string) int {
	n := 0
	for _, r := range s {
		if r == '/' {
			n++
		}
	}
	return n
}
