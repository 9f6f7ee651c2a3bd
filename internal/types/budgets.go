package types

// TokenBudgets holds the process-wide thresholds that govern clustering
// splits, sub-agent recursion, and model output caps.
type TokenBudgets struct {
	// MaxTokensPerModule triggers a clustering split when a module's
	// component listing exceeds it.
	MaxTokensPerModule int `json:"max_tokens_per_module"`

	// MaxTokensPerLeafModule triggers sub-agent recursion when a child
	// module's combined component source exceeds it.
	MaxTokensPerLeafModule int `json:"max_tokens_per_leaf_module"`

	// MaxOutputTokens caps a single model response.
	MaxOutputTokens int `json:"max_output_tokens"`

	// MaxRecursionDepth is the hard cap on sub-agent nesting and on
	// clustering depth.
	MaxRecursionDepth int `json:"max_recursion_depth"`
}

// DefaultTokenBudgets returns the budgets used when none are configured.
func DefaultTokenBudgets() TokenBudgets {
	return TokenBudgets{
		MaxTokensPerModule:     36000,
		MaxTokensPerLeafModule: 16000,
		MaxOutputTokens:        8192,
		MaxRecursionDepth:      3,
	}
}
