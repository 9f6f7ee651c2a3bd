// Package tokens provides token estimation for budget management. The
// heuristic is calibrated at ~4 characters per token, which tracks the
// tokenizers used by the chat-completion providers closely enough for
// split/recursion decisions.
package tokens

import (
	"unicode/utf8"

	"codewiki/internal/types"
)

// Counter estimates token counts for budget checks.
type Counter struct {
	charsPerToken float64
}

// NewCounter creates a counter with the default calibration.
func NewCounter() *Counter {
	return &Counter{charsPerToken: 4.0}
}

// CountString estimates tokens in a string.
func (c *Counter) CountString(s string) int {
	if s == "" {
		return 0
	}
	return int(float64(utf8.RuneCountInString(s)) / c.charsPerToken)
}

// CountComponent estimates tokens for a component's source code, falling
// back to its span length when the source was not captured.
func (c *Counter) CountComponent(comp *types.Component) int {
	if comp == nil {
		return 0
	}
	if comp.SourceCode != "" {
		return c.CountString(comp.SourceCode)
	}
	// ~60 chars per line is a workable estimate for code without the text.
	lines := comp.EndLine - comp.StartLine + 1
	if lines < 1 {
		lines = 1
	}
	return int(float64(lines) * 60 / c.charsPerToken)
}

// CountComponents sums CountComponent over the ids found in the registry.
func (c *Counter) CountComponents(registry *types.ComponentRegistry, ids []string) int {
	total := 0
	for _, id := range ids {
		total += c.CountComponent(registry.Get(id))
	}
	return total
}
