package extract

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"codewiki/internal/types"
)

// ecmaDefinitions covers the declaration forms JavaScript and TypeScript
// share. Module-level variables are emitted as variables, arrow-function
// initializers included; locals are not.
func ecmaDefinitions() map[string]definitionSpec {
	return map[string]definitionSpec{
		"class_declaration": {
			Kind:      types.KindClass,
			NameField: "name",
			BodyField: "body",
		},
		"function_declaration": {
			Kind:        types.KindFunction,
			NameField:   "name",
			ParamsField: "parameters",
			BodyField:   "body",
		},
		"generator_function_declaration": {
			Kind:        types.KindFunction,
			NameField:   "name",
			ParamsField: "parameters",
			BodyField:   "body",
		},
		"method_definition": {
			Kind:        types.KindFunction,
			MemberKind:  types.KindMethod,
			NameField:   "name",
			ParamsField: "parameters",
			BodyField:   "body",
		},
		"variable_declarator": {
			Kind:         types.KindVariable,
			NameField:    "name",
			TopLevelOnly: true,
			Name:         ecmaVariableName,
		},
	}
}

// ecmaVariableName names a variable declarator, skipping destructuring
// patterns. The kind stays variable; the Vue layer adds a reactivity
// attribute but does not change it.
func ecmaVariableName(node *sitter.Node, src []byte) (string, string) {
	name := node.ChildByFieldName("name")
	if name == nil || name.Type() != "identifier" {
		return "", ""
	}
	return string(src[name.StartByte():name.EndByte()]), ""
}

// ecmaRelations covers calls, constructor invocations, and inheritance
// clauses. The heritage nodes carry no tree-sitter field, so they are
// modeled as relations attributed to the enclosing class.
func ecmaRelations() map[string]relationSpec {
	return map[string]relationSpec{
		"call_expression": {Kind: types.EdgeCalls, TargetField: "function"},
		"new_expression":  {Kind: types.EdgeCalls, TargetField: "constructor"},
		"class_heritage": {Kind: types.EdgeExtends, Target: func(n *sitter.Node, src []byte) string {
			return rightmostIdentifier(n, src)
		}},
	}
}

// newJavaScriptStrategy builds the JavaScript strategy.
func newJavaScriptStrategy() (Strategy, error) {
	return newTreeSitterStrategy(grammarSpec{
		lang:        LangJavaScript,
		sitterLang:  javascript.GetLanguage(),
		definitions: ecmaDefinitions(),
		relations:   ecmaRelations(),
		wrappers: map[string]bool{
			"export_statement":     true,
			"lexical_declaration":  true,
			"variable_declaration": true,
		},
	})
}

// newTypeScriptStrategy builds the TypeScript strategy: the shared ECMA
// forms plus interfaces, enums, and type aliases. Traversal depth is capped
// by the engine; generated TypeScript is where the cap earns its keep.
func newTypeScriptStrategy() (Strategy, error) {
	defs := ecmaDefinitions()
	defs["interface_declaration"] = definitionSpec{
		Kind:      types.KindInterface,
		NameField: "name",
		BodyField: "body",
	}
	defs["enum_declaration"] = definitionSpec{
		Kind:      types.KindEnum,
		NameField: "name",
		BodyField: "body",
	}
	defs["type_alias_declaration"] = definitionSpec{
		Kind:      types.KindTypeAlias,
		NameField: "name",
	}
	defs["abstract_class_declaration"] = definitionSpec{
		Kind:      types.KindClass,
		NameField: "name",
		BodyField: "body",
	}

	rels := ecmaRelations()
	rels["extends_clause"] = relationSpec{Kind: types.EdgeExtends, Target: func(n *sitter.Node, src []byte) string {
		return rightmostIdentifier(n, src)
	}}
	rels["implements_clause"] = relationSpec{Kind: types.EdgeImplements, Target: func(n *sitter.Node, src []byte) string {
		return rightmostIdentifier(n, src)
	}}
	delete(rels, "class_heritage")

	return newTreeSitterStrategy(grammarSpec{
		lang:        LangTypeScript,
		sitterLang:  typescript.GetLanguage(),
		definitions: defs,
		relations:   rels,
		wrappers: map[string]bool{
			"export_statement":     true,
			"lexical_declaration":  true,
			"variable_declaration": true,
			"ambient_declaration":  true,
		},
	})
}
