package extract

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"codewiki/internal/types"
)

// newPythonStrategy builds the Python strategy. Decorated definitions are
// lifted so the emitted span includes the decorators.
func newPythonStrategy() (Strategy, error) {
	return newTreeSitterStrategy(grammarSpec{
		lang:       LangPython,
		sitterLang: python.GetLanguage(),
		definitions: map[string]definitionSpec{
			"class_definition": {
				Kind:       types.KindClass,
				NameField:  "name",
				BasesField: "superclasses",
				BodyField:  "body",
			},
			"function_definition": {
				Kind:        types.KindFunction,
				MemberKind:  types.KindMethod,
				NameField:   "name",
				ParamsField: "parameters",
				BodyField:   "body",
			},
		},
		relations: map[string]relationSpec{
			"call": {Kind: types.EdgeCalls, TargetField: "function"},
		},
		wrappers: map[string]bool{
			"decorated_definition": true,
		},
		docstring: func(node *sitter.Node, src []byte) string {
			return pythonDocstring(node.ChildByFieldName("body"), src)
		},
	})
}

// pythonDocstring extracts a leading string-literal docstring from a
// function or class body node. Tree-sitter models it as the first
// expression statement.
func pythonDocstring(body *sitter.Node, src []byte) string {
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return ""
	}
	return string(src[str.StartByte():str.EndByte()])
}
