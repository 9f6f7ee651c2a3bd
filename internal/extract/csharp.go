package extract

import (
	"github.com/smacker/go-tree-sitter/csharp"

	"codewiki/internal/types"
)

// newCSharpStrategy builds the C# strategy. The base_list clause mixes the
// base class and interfaces; the grammar does not distinguish them, so all
// bases are emitted as extends edges.
func newCSharpStrategy() (Strategy, error) {
	return newTreeSitterStrategy(grammarSpec{
		lang:       LangCSharp,
		sitterLang: csharp.GetLanguage(),
		definitions: map[string]definitionSpec{
			"class_declaration": {
				Kind:       types.KindClass,
				NameField:  "name",
				BasesField: "bases",
				BodyField:  "body",
			},
			"interface_declaration": {
				Kind:       types.KindInterface,
				NameField:  "name",
				BasesField: "bases",
				BodyField:  "body",
			},
			"struct_declaration": {
				Kind:       types.KindStruct,
				NameField:  "name",
				BasesField: "bases",
				BodyField:  "body",
			},
			"enum_declaration": {
				Kind:      types.KindEnum,
				NameField: "name",
				BodyField: "body",
			},
			"record_declaration": {
				Kind:        types.KindRecord,
				NameField:   "name",
				ParamsField: "parameters",
				BasesField:  "bases",
				BodyField:   "body",
			},
			"method_declaration": {
				Kind:        types.KindFunction,
				MemberKind:  types.KindMethod,
				NameField:   "name",
				ParamsField: "parameters",
				BodyField:   "body",
			},
			"constructor_declaration": {
				Kind:        types.KindFunction,
				MemberKind:  types.KindMethod,
				NameField:   "name",
				ParamsField: "parameters",
				BodyField:   "body",
			},
			"local_function_statement": {
				Kind:        types.KindFunction,
				NameField:   "name",
				ParamsField: "parameters",
				BodyField:   "body",
			},
		},
		relations: map[string]relationSpec{
			"invocation_expression":      {Kind: types.EdgeCalls, TargetField: "function"},
			"object_creation_expression": {Kind: types.EdgeCalls, TargetField: "type"},
		},
	})
}
