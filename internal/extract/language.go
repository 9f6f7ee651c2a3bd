package extract

import (
	"path/filepath"
	"strings"
	"sync"

	"codewiki/internal/logging"
)

// Language tags a supported source language.
type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangJava       Language = "java"
	LangCSharp     Language = "csharp"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangPHP        Language = "php"
	LangGo         Language = "go"
	LangVue        Language = "vue"
)

// extToLanguage maps lowercase file extensions to language tags.
var extToLanguage = map[string]Language{
	".py":   LangPython,
	".pyw":  LangPython,
	".js":   LangJavaScript,
	".jsx":  LangJavaScript,
	".mjs":  LangJavaScript,
	".cjs":  LangJavaScript,
	".ts":   LangTypeScript,
	".tsx":  LangTypeScript,
	".java": LangJava,
	".cs":   LangCSharp,
	".c":    LangC,
	".h":    LangC,
	".cpp":  LangCPP,
	".cc":   LangCPP,
	".cxx":  LangCPP,
	".hpp":  LangCPP,
	".hh":   LangCPP,
	".hxx":  LangCPP,
	".php":  LangPHP,
	".go":   LangGo,
	".vue":  LangVue,
}

// DetectLanguage returns the language tag for a file path, or "" when the
// extension is not supported.
func DetectLanguage(path string) Language {
	return extToLanguage[strings.ToLower(filepath.Ext(path))]
}

// Factory routes parse requests to the strategy registered for a language.
// Strategies are constructed lazily so a grammar that fails to initialize
// degrades that one language instead of the whole run.
type Factory struct {
	mu         sync.Mutex
	strategies map[Language]Strategy
	broken     map[Language]bool
}

// NewFactory creates a factory with all built-in strategies available.
func NewFactory() *Factory {
	return &Factory{
		strategies: make(map[Language]Strategy),
		broken:     make(map[Language]bool),
	}
}

// Get returns the strategy for a language, constructing it on first use.
// Returns nil when the language is unsupported or its parser failed to
// initialize earlier in the run.
func (f *Factory) Get(lang Language) Strategy {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.broken[lang] {
		return nil
	}
	if s, ok := f.strategies[lang]; ok {
		return s
	}

	s, err := newStrategy(lang, f)
	if err != nil {
		logging.ExtractError("parser init failed for %s, language disabled: %v", lang, err)
		f.broken[lang] = true
		return nil
	}
	if s != nil {
		f.strategies[lang] = s
	}
	return s
}

// newStrategy constructs the built-in strategy for a language.
func newStrategy(lang Language, f *Factory) (Strategy, error) {
	switch lang {
	case LangGo:
		return newGoStrategy(), nil
	case LangPython:
		return newPythonStrategy()
	case LangJavaScript:
		return newJavaScriptStrategy()
	case LangTypeScript:
		return newTypeScriptStrategy()
	case LangJava:
		return newJavaStrategy()
	case LangCSharp:
		return newCSharpStrategy()
	case LangC:
		return newCStrategy()
	case LangCPP:
		return newCPPStrategy()
	case LangPHP:
		return newPHPStrategy()
	case LangVue:
		return newVueStrategy(f)
	default:
		return nil, nil
	}
}
