// Package config holds the typed configuration for a codewiki run. Each
// concern lives in its own file: analysis inputs in analysis.go, model and
// endpoint settings in llm.go. Defaults come from Default,
// DefaultAnalysisConfig and DefaultLLMConfig; environment overrides are
// applied last.
package config

import (
	"fmt"
	"os"

	"codewiki/internal/types"
)

// Config is the root configuration for one run.
type Config struct {
	Analysis AnalysisConfig     `json:"analysis" mapstructure:"analysis"`
	LLM      LLMConfig          `json:"llm" mapstructure:"llm"`
	Budgets  types.TokenBudgets `json:"budgets" mapstructure:"budgets"`

	// Debug enables categorized file logging.
	Debug bool `json:"debug" mapstructure:"debug"`
}

// Default returns the configuration used when nothing is supplied.
func Default() *Config {
	return &Config{
		Analysis: DefaultAnalysisConfig(),
		LLM:      DefaultLLMConfig(),
		Budgets:  types.DefaultTokenBudgets(),
	}
}

// ApplyEnv applies environment-variable overrides. CODEWIKI_API_KEY and
// CODEWIKI_BASE_URL take precedence over file and flag values so secrets
// stay out of config files.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CODEWIKI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("CODEWIKI_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
}

// Validate checks the configuration for the errors worth failing fast on.
func (c *Config) Validate() error {
	if c.Analysis.RepositoryRoot == "" {
		return fmt.Errorf("repository_root is required")
	}
	if c.Analysis.OutputDirectory == "" {
		return fmt.Errorf("output_directory is required")
	}
	if err := c.Analysis.Validate(); err != nil {
		return err
	}
	if c.Budgets.MaxRecursionDepth < 0 {
		return fmt.Errorf("max_recursion_depth must be non-negative")
	}
	if c.Budgets.MaxTokensPerModule <= 0 || c.Budgets.MaxTokensPerLeafModule <= 0 {
		return fmt.Errorf("token budgets must be positive")
	}
	return nil
}
