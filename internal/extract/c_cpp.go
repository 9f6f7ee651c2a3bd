package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"

	"codewiki/internal/types"
)

// declaratorName digs through nested declarators to the function name. C
// declarator grammar nests (pointers, parameter lists), so the identifier
// has to be searched rather than read off a field. For C++ qualified
// definitions (Foo::bar) the qualifier is returned as the enclosing class.
func declaratorName(node *sitter.Node, src []byte) (string, string) {
	decl := node.ChildByFieldName("declarator")
	for decl != nil {
		switch decl.Type() {
		case "identifier", "field_identifier":
			return string(src[decl.StartByte():decl.EndByte()]), ""
		case "qualified_identifier":
			text := string(src[decl.StartByte():decl.EndByte()])
			if idx := strings.LastIndex(text, "::"); idx >= 0 {
				qual := text[:idx]
				// Drop any namespace prefix, keep the immediate class.
				if j := strings.LastIndex(qual, "::"); j >= 0 {
					qual = qual[j+2:]
				}
				return text[idx+2:], qual
			}
			return text, ""
		case "function_declarator", "pointer_declarator", "parenthesized_declarator", "reference_declarator":
			decl = decl.ChildByFieldName("declarator")
		default:
			return "", ""
		}
	}
	return "", ""
}

// newCStrategy builds the C strategy: free functions, structs, and enums.
// Function kinds are first-class because C repositories are behavior-only.
func newCStrategy() (Strategy, error) {
	return newTreeSitterStrategy(grammarSpec{
		lang:       LangC,
		sitterLang: c.GetLanguage(),
		definitions: map[string]definitionSpec{
			"function_definition": {
				Kind: types.KindFunction,
				Name: declaratorName,
			},
			"struct_specifier": {
				Kind:      types.KindStruct,
				NameField: "name",
				BodyField: "body",
			},
			"enum_specifier": {
				Kind:      types.KindEnum,
				NameField: "name",
				BodyField: "body",
			},
		},
		relations: map[string]relationSpec{
			"call_expression": {Kind: types.EdgeCalls, TargetField: "function"},
		},
	})
}

// newCPPStrategy builds the C++ strategy. Member methods are detected
// either lexically (definition inside a class body) or by a qualified
// declarator (Foo::bar); `new X` becomes an edge to X.
func newCPPStrategy() (Strategy, error) {
	return newTreeSitterStrategy(grammarSpec{
		lang:       LangCPP,
		sitterLang: cpp.GetLanguage(),
		definitions: map[string]definitionSpec{
			"function_definition": {
				Kind:       types.KindFunction,
				MemberKind: types.KindMethod,
				Name:       declaratorName,
			},
			"class_specifier": {
				Kind:      types.KindClass,
				NameField: "name",
				BodyField: "body",
			},
			"struct_specifier": {
				Kind:      types.KindStruct,
				NameField: "name",
				BodyField: "body",
			},
			"enum_specifier": {
				Kind:      types.KindEnum,
				NameField: "name",
				BodyField: "body",
			},
		},
		relations: map[string]relationSpec{
			"call_expression": {Kind: types.EdgeCalls, TargetField: "function"},
			"new_expression":  {Kind: types.EdgeCalls, TargetField: "type"},
		},
	})
}
