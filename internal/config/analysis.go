package config

import (
	"fmt"
	"path/filepath"
)

// DocType selects the emphasis paragraph inserted into the agent system
// prompt.
type DocType string

const (
	DocTypeAPI          DocType = "api"
	DocTypeArchitecture DocType = "architecture"
	DocTypeUserGuide    DocType = "user-guide"
	DocTypeDeveloper    DocType = "developer"
)

// AnalysisConfig controls repository discovery and documentation shaping.
type AnalysisConfig struct {
	// RepositoryRoot is the absolute path of the repository to analyze.
	RepositoryRoot string `json:"repository_root" mapstructure:"repository_root"`

	// RepositoryURL is the optional origin URL, recorded in metadata.
	RepositoryURL string `json:"repository_url,omitempty" mapstructure:"repository_url"`

	// OutputDirectory receives every artifact the run produces.
	OutputDirectory string `json:"output_directory" mapstructure:"output_directory"`

	// IncludePatterns and ExcludePatterns are glob sequences applied over
	// repository-relative paths, after the built-in default-ignore set.
	IncludePatterns []string `json:"include_patterns,omitempty" mapstructure:"include_patterns"`
	ExcludePatterns []string `json:"exclude_patterns,omitempty" mapstructure:"exclude_patterns"`

	// FocusModules are logical module names given prompt priority. They do
	// not change partitioning.
	FocusModules []string `json:"focus_modules,omitempty" mapstructure:"focus_modules"`

	// DocType tailors the agent prompt emphasis.
	DocType DocType `json:"doc_type" mapstructure:"doc_type"`

	// CustomInstructions is free-form text appended to the agent system
	// prompt.
	CustomInstructions string `json:"custom_instructions,omitempty" mapstructure:"custom_instructions"`
}

// DefaultAnalysisConfig returns analysis defaults.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		DocType: DocTypeArchitecture,
	}
}

// Validate checks path and enum constraints.
func (a *AnalysisConfig) Validate() error {
	if a.RepositoryRoot != "" && !filepath.IsAbs(a.RepositoryRoot) {
		return fmt.Errorf("repository_root must be absolute, got %q", a.RepositoryRoot)
	}
	switch a.DocType {
	case "", DocTypeAPI, DocTypeArchitecture, DocTypeUserGuide, DocTypeDeveloper:
	default:
		return fmt.Errorf("unknown doc_type %q", a.DocType)
	}
	return nil
}
