package config

import "time"

// LLMConfig holds endpoint and model selection for every outbound model
// call. The endpoint speaks the OpenAI-compatible chat-completion contract;
// authentication is a bearer token.
type LLMConfig struct {
	APIKey  string        `json:"-" mapstructure:"api_key"`
	BaseURL string        `json:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MainModel drives the documentation agents.
	MainModel string `json:"main_model" mapstructure:"main_model"`

	// ClusterModel drives the hierarchical clusterer.
	ClusterModel string `json:"cluster_model" mapstructure:"cluster_model"`

	// FallbackModels are tried in order when the active model fails with a
	// retryable error. Exhaustion is a hard failure.
	FallbackModels []string `json:"fallback_models,omitempty" mapstructure:"fallback_models"`
}

// DefaultLLMConfig returns endpoint defaults.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		BaseURL:      "https://api.openai.com/v1",
		Timeout:      5 * time.Minute,
		MainModel:    "gpt-4o",
		ClusterModel: "gpt-4o-mini",
	}
}

// AgentChain returns the ordered model chain for agent invocations: the
// main model first, then the fallbacks.
func (l *LLMConfig) AgentChain() []string {
	return append([]string{l.MainModel}, l.FallbackModels...)
}

// ClusterChain returns the ordered model chain for clustering calls.
func (l *LLMConfig) ClusterChain() []string {
	return append([]string{l.ClusterModel}, l.FallbackModels...)
}
