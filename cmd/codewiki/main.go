// codewiki analyzes a source repository, partitions it into modules with a
// language-model clustering step, and drives a documentation agent over
// the resulting module tree.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codewiki/internal/config"
	"codewiki/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "codewiki: %v\n", err)
		logging.CloseAll()
		os.Exit(1)
	}
	logging.CloseAll()
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "codewiki",
		Short:         "Generate module documentation for a source repository",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("repo", "", "absolute path of the repository to analyze")
	flags.String("out", "", "documentation output directory")
	flags.StringSlice("include", nil, "include glob patterns over relative paths")
	flags.StringSlice("exclude", nil, "exclude glob patterns over relative paths")
	flags.StringSlice("focus", nil, "module names to prioritize in prompts")
	flags.String("doc-type", string(config.DocTypeArchitecture), "one of api, architecture, user-guide, developer")
	flags.String("instructions", "", "custom instructions appended to the agent prompt")
	flags.String("main-model", "", "model for documentation agents")
	flags.String("cluster-model", "", "model for the clusterer")
	flags.StringSlice("fallback-models", nil, "fallback chain tried on retryable errors")
	flags.String("base-url", "", "OpenAI-compatible endpoint base URL")
	flags.Duration("timeout", 0, "per-model-call timeout")
	flags.Int("max-output-tokens", 0, "model response cap")
	flags.Int("max-tokens-per-module", 0, "clustering split trigger")
	flags.Int("max-tokens-per-leaf-module", 0, "sub-agent recursion trigger")
	flags.Int("max-depth", -1, "hard cap on recursion depth")
	flags.Bool("debug", false, "enable categorized debug logs")

	cobra.CheckErr(v.BindPFlags(flags))
	v.SetEnvPrefix("CODEWIKI")
	v.AutomaticEnv()

	root.AddCommand(newAnalyzeCmd(v), newGenerateCmd(v))
	return root
}

// loadConfig folds defaults, flags, and environment into one Config.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg := config.Default()

	cfg.Analysis.RepositoryRoot = v.GetString("repo")
	cfg.Analysis.OutputDirectory = v.GetString("out")
	cfg.Analysis.IncludePatterns = v.GetStringSlice("include")
	cfg.Analysis.ExcludePatterns = v.GetStringSlice("exclude")
	cfg.Analysis.FocusModules = v.GetStringSlice("focus")
	cfg.Analysis.DocType = config.DocType(v.GetString("doc-type"))
	cfg.Analysis.CustomInstructions = v.GetString("instructions")
	cfg.Debug = v.GetBool("debug")

	if s := v.GetString("main-model"); s != "" {
		cfg.LLM.MainModel = s
	}
	if s := v.GetString("cluster-model"); s != "" {
		cfg.LLM.ClusterModel = s
	}
	if ms := v.GetStringSlice("fallback-models"); len(ms) > 0 {
		cfg.LLM.FallbackModels = ms
	}
	if s := v.GetString("base-url"); s != "" {
		cfg.LLM.BaseURL = s
	}
	if d := v.GetDuration("timeout"); d > 0 {
		cfg.LLM.Timeout = d
	}
	if n := v.GetInt("max-output-tokens"); n > 0 {
		cfg.Budgets.MaxOutputTokens = n
	}
	if n := v.GetInt("max-tokens-per-module"); n > 0 {
		cfg.Budgets.MaxTokensPerModule = n
	}
	if n := v.GetInt("max-tokens-per-leaf-module"); n > 0 {
		cfg.Budgets.MaxTokensPerLeafModule = n
	}
	if n := v.GetInt("max-depth"); n >= 0 {
		cfg.Budgets.MaxRecursionDepth = n
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := logging.Initialize(cfg.Analysis.OutputDirectory, cfg.Debug); err != nil {
		return nil, err
	}
	logging.Boot("configuration loaded: repo=%s out=%s main_model=%s",
		cfg.Analysis.RepositoryRoot, cfg.Analysis.OutputDirectory, cfg.LLM.MainModel)
	return cfg, nil
}

// runTimer logs total wall time for a command.
func runTimer(name string) func() {
	start := time.Now()
	return func() {
		logging.Boot("%s finished in %v", name, time.Since(start))
	}
}
