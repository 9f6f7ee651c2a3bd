package extract

import (
	"github.com/smacker/go-tree-sitter/java"

	"codewiki/internal/types"
)

// newJavaStrategy builds the Java strategy. Records and annotations are
// first-class kinds; extends/implements clauses and `new` constructor
// invocations all become edges.
func newJavaStrategy() (Strategy, error) {
	return newTreeSitterStrategy(grammarSpec{
		lang:       LangJava,
		sitterLang: java.GetLanguage(),
		definitions: map[string]definitionSpec{
			"class_declaration": {
				Kind:        types.KindClass,
				NameField:   "name",
				BasesField:  "superclass",
				IfacesField: "interfaces",
				BodyField:   "body",
			},
			"interface_declaration": {
				Kind:      types.KindInterface,
				NameField: "name",
				BodyField: "body",
			},
			"enum_declaration": {
				Kind:        types.KindEnum,
				NameField:   "name",
				IfacesField: "interfaces",
				BodyField:   "body",
			},
			"record_declaration": {
				Kind:        types.KindRecord,
				NameField:   "name",
				ParamsField: "parameters",
				IfacesField: "interfaces",
				BodyField:   "body",
			},
			"annotation_type_declaration": {
				Kind:      types.KindAnnotation,
				NameField: "name",
				BodyField: "body",
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
		},
		relations: map[string]relationSpec{
			"method_invocation":          {Kind: types.EdgeCalls, TargetField: "name"},
			"object_creation_expression": {Kind: types.EdgeCalls, TargetField: "type"},
		},
	})
}
