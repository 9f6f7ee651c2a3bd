package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"

	"codewiki/internal/types"
)

// phpTemplateExtensions and phpTemplatePathMarkers identify rendered
// template files that parse as PHP but carry no components worth indexing.
var phpTemplateExtensions = []string{".blade.php", ".phtml", ".twig.php"}
var phpTemplatePathMarkers = []string{"views/", "templates/", "resources/views/"}

// IsTemplatePath reports whether a repository-relative path is a PHP
// template that should be skipped before dispatch.
func IsTemplatePath(relPath string) bool {
	lower := strings.ToLower(relPath)
	for _, ext := range phpTemplateExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	for _, marker := range phpTemplatePathMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// NamespaceResolver converts short PHP names to fully-qualified names using
// the file's namespace declaration and use statements, including grouped
// use. One resolver serves one file.
type NamespaceResolver struct {
	namespace string
	uses      map[string]string // alias (short) -> fully-qualified name
}

// NewNamespaceResolver creates an empty resolver.
func NewNamespaceResolver() *NamespaceResolver {
	return &NamespaceResolver{uses: make(map[string]string)}
}

// SetNamespace records the file's namespace declaration.
func (r *NamespaceResolver) SetNamespace(ns string) {
	r.namespace = strings.Trim(ns, "\\")
}

// AddUse records one use statement. alias may be empty; the last segment of
// fqn is used.
func (r *NamespaceResolver) AddUse(fqn, alias string) {
	fqn = strings.Trim(fqn, "\\")
	if fqn == "" {
		return
	}
	if alias == "" {
		if idx := strings.LastIndex(fqn, "\\"); idx >= 0 {
			alias = fqn[idx+1:]
		} else {
			alias = fqn
		}
	}
	r.uses[alias] = fqn
}

// Resolve converts a name as written at a call/extends site to its
// fully-qualified form.
func (r *NamespaceResolver) Resolve(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "\\") {
		return strings.TrimPrefix(name, "\\")
	}
	head := name
	if idx := strings.Index(name, "\\"); idx >= 0 {
		head = name[:idx]
	}
	if fqn, ok := r.uses[head]; ok {
		if head == name {
			return fqn
		}
		return fqn + name[len(head):]
	}
	if r.namespace != "" {
		return r.namespace + "\\" + name
	}
	return name
}

// ingest walks the parse tree collecting namespace and use declarations.
func (r *NamespaceResolver) ingest(node *sitter.Node, src []byte) {
	text := func(n *sitter.Node) string {
		if n == nil {
			return ""
		}
		return string(src[n.StartByte():n.EndByte()])
	}

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		switch n.Type() {
		case "namespace_definition":
			r.SetNamespace(text(n.ChildByFieldName("name")))
		case "namespace_use_declaration":
			r.ingestUse(n, text)
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(node)
}

// ingestUse handles both plain and grouped use declarations.
func (r *NamespaceResolver) ingestUse(n *sitter.Node, text func(*sitter.Node) string) {
	var prefix string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "namespace_name", "qualified_name":
			// Prefix of a grouped use: use App\Models\{User, Post};
			prefix = strings.Trim(text(child), "\\")
		case "namespace_use_clause":
			fqn, alias := useClauseParts(child, text)
			r.AddUse(fqn, alias)
		case "namespace_use_group":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				clause := child.NamedChild(j)
				fqn, alias := useClauseParts(clause, text)
				if prefix != "" && fqn != "" {
					fqn = prefix + "\\" + fqn
				}
				r.AddUse(fqn, alias)
			}
		}
	}
}

// useClauseParts splits one use clause into its target name and alias.
func useClauseParts(clause *sitter.Node, text func(*sitter.Node) string) (fqn, alias string) {
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		c := clause.NamedChild(i)
		switch c.Type() {
		case "qualified_name", "namespace_name", "name":
			if fqn == "" {
				fqn = strings.Trim(text(c), "\\")
			}
		case "namespace_aliasing_clause":
			alias = strings.TrimSpace(strings.TrimPrefix(text(c), "as"))
		}
	}
	return fqn, alias
}

// newPHPStrategy builds the PHP strategy. A fresh NamespaceResolver is
// built per file before either pass runs, and every emitted callee is
// converted to its fully-qualified form.
func newPHPStrategy() (Strategy, error) {
	return newTreeSitterStrategy(grammarSpec{
		lang:       LangPHP,
		sitterLang: php.GetLanguage(),
		definitions: map[string]definitionSpec{
			"class_declaration": {
				Kind:      types.KindClass,
				NameField: "name",
				BodyField: "body",
			},
			"interface_declaration": {
				Kind:      types.KindInterface,
				NameField: "name",
				BodyField: "body",
			},
			"trait_declaration": {
				Kind:      types.KindTrait,
				NameField: "name",
				BodyField: "body",
			},
			"enum_declaration": {
				Kind:      types.KindEnum,
				NameField: "name",
				BodyField: "body",
			},
			"function_definition": {
				Kind:        types.KindFunction,
				NameField:   "name",
				ParamsField: "parameters",
				BodyField:   "body",
			},
			"method_declaration": {
				Kind:        types.KindMethod,
				NameField:   "name",
				ParamsField: "parameters",
				BodyField:   "body",
			},
		},
		relations: map[string]relationSpec{
			"function_call_expression": {Kind: types.EdgeCalls, TargetField: "function"},
			"member_call_expression":   {Kind: types.EdgeCalls, TargetField: "name"},
			"scoped_call_expression":   {Kind: types.EdgeCalls, TargetField: "name"},
			"object_creation_expression": {Kind: types.EdgeCalls, Target: func(n *sitter.Node, src []byte) string {
				return rightmostIdentifier(n, src)
			}},
			"base_clause": {Kind: types.EdgeExtends, Target: func(n *sitter.Node, src []byte) string {
				return rightmostIdentifier(n, src)
			}},
			"class_interface_clause": {Kind: types.EdgeImplements, Target: func(n *sitter.Node, src []byte) string {
				return rightmostIdentifier(n, src)
			}},
		},
		prepareFile: func(root *sitter.Node, src []byte) func(string) string {
			resolver := NewNamespaceResolver()
			resolver.ingest(root, src)
			return resolver.Resolve
		},
	})
}
