package extract

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/html"

	"codewiki/internal/logging"
	"codewiki/internal/types"
)

// vueBuiltins are Vue's built-in template tags; they never produce
// uses_component edges. Keys are normalized to lowercase so <Transition>
// and <transition> both match.
var vueBuiltins = map[string]bool{
	"slot":             true,
	"component":        true,
	"transition":       true,
	"transition-group": true,
	"transitiongroup":  true,
	"keep-alive":       true,
	"keepalive":        true,
	"teleport":         true,
	"suspense":         true,
}

// vueReactivityFuncs are the reactivity factories whose call in a variable
// initializer marks the variable reactive.
var vueReactivityFuncs = []string{
	"ref", "reactive", "computed", "readonly",
	"shallowRef", "shallowReactive", "toRef", "toRefs", "customRef",
}

var (
	plainIdentRe    = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
	interpolationRe = regexp.MustCompile(`\{\{\s*([A-Za-z_$][A-Za-z0-9_$]*)\s*\}\}`)
	reactivityRe    = regexp.MustCompile(`=\s*(` + strings.Join(vueReactivityFuncs, "|") + `)\s*\(`)
	macroRe         = regexp.MustCompile(`\b(defineProps|defineEmits|defineExpose)\s*[<(]`)
)

// VueStrategy is the composite single-file-component strategy: the SFC
// envelope is parsed with the HTML grammar, the script block is delegated
// to the TypeScript or JavaScript strategy with line numbers shifted by the
// block's offset, and the template is walked for component usage, event
// handlers, and bindings.
type VueStrategy struct {
	mu      sync.Mutex
	parser  *sitter.Parser
	factory *Factory
}

func newVueStrategy(f *Factory) (Strategy, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(html.GetLanguage())
	return &VueStrategy{parser: parser, factory: f}, nil
}

// Language returns the Vue tag.
func (s *VueStrategy) Language() Language {
	return LangVue
}

// Parse extracts the SFC component, its script-block components, and the
// template's relationship edges.
func (s *VueStrategy) Parse(ctx context.Context, req FileRequest) (*FileResult, error) {
	s.mu.Lock()
	tree, err := s.parser.ParseCtx(ctx, nil, req.Content)
	s.mu.Unlock()
	if err != nil {
		logging.ExtractWarn("vue: parse failed for %s: %v", req.RelPath, err)
		return &FileResult{}, nil
	}
	defer tree.Close()

	lines := strings.Split(string(req.Content), "\n")
	name := strings.TrimSuffix(filepath.Base(req.RelPath), filepath.Ext(req.RelPath))

	sfc := &types.Component{
		ID:           types.ComponentID(req.RelPath, name),
		Name:         name,
		Kind:         types.KindVueComponent,
		FilePath:     req.AbsPath,
		RelativePath: req.RelPath,
		StartLine:    1,
		EndLine:      len(lines),
		SourceCode:   string(req.Content),
	}
	result := &FileResult{Components: []*types.Component{sfc}}

	script, scriptRow, scriptLang := findScriptBlock(tree.RootNode(), req.Content)
	local := make(map[string]*types.Component)
	if script != "" {
		s.parseScript(ctx, req, sfc, script, scriptRow, scriptLang, lines, result, local)
	}

	if template := findTemplateElement(tree.RootNode(), req.Content); template != nil {
		s.walkTemplate(template, req.Content, sfc, local, result)
	}

	logging.ExtractDebug("vue: %s -> %d components, %d edges",
		req.RelPath, len(result.Components), len(result.Edges))
	return result, nil
}

// parseScript delegates the script block to the TS/JS strategy and shifts
// every resulting line number by the block's offset, exactly once.
func (s *VueStrategy) parseScript(ctx context.Context, req FileRequest, sfc *types.Component,
	script string, scriptRow int, lang Language, lines []string, result *FileResult, local map[string]*types.Component) {

	delegate := s.factory.Get(lang)
	if delegate == nil {
		logging.ExtractWarn("vue: no %s strategy for script block of %s", lang, req.RelPath)
		return
	}

	sub, err := delegate.Parse(ctx, FileRequest{
		AbsPath:  req.AbsPath,
		RelPath:  req.RelPath,
		Content:  []byte(script),
		Language: lang,
	})
	if err != nil || sub == nil {
		return
	}

	for _, comp := range sub.Components {
		comp.StartLine += scriptRow
		comp.EndLine += scriptRow
		comp.SourceCode = extractSpan(lines, comp.StartLine, comp.EndLine)
		if comp.Kind == types.KindVariable && reactivityRe.MatchString(comp.SourceCode) {
			if comp.Attributes == nil {
				comp.Attributes = make(map[string]string)
			}
			comp.Attributes["reactivity"] = reactivityRe.FindStringSubmatch(comp.SourceCode)[1]
		}
		result.Components = append(result.Components, comp)
		if _, seen := local[comp.Name]; !seen {
			local[comp.Name] = comp
		}
	}
	for _, edge := range sub.Edges {
		edge.Line += scriptRow
		result.Edges = append(result.Edges, edge)
	}

	s.emitMacros(req, sfc, script, scriptRow, result)
}

// emitMacros annotates compiler-macro invocations: defineProps and
// defineEmits become first-class components, defineExpose is recorded on
// the SFC component.
func (s *VueStrategy) emitMacros(req FileRequest, sfc *types.Component, script string, scriptRow int, result *FileResult) {
	scriptLines := strings.Split(script, "\n")
	for i, line := range scriptLines {
		m := macroRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		fileLine := scriptRow + i + 1
		switch m[1] {
		case "defineProps":
			result.Components = append(result.Components, &types.Component{
				ID:           types.MemberID(req.RelPath, sfc.Name, "props"),
				Name:         "props",
				Kind:         types.KindVueProps,
				FilePath:     req.AbsPath,
				RelativePath: req.RelPath,
				StartLine:    fileLine,
				EndLine:      fileLine,
				SourceCode:   strings.TrimSpace(line),
				EnclosingClass: sfc.Name,
			})
		case "defineEmits":
			result.Components = append(result.Components, &types.Component{
				ID:           types.MemberID(req.RelPath, sfc.Name, "emits"),
				Name:         "emits",
				Kind:         types.KindVueEmits,
				FilePath:     req.AbsPath,
				RelativePath: req.RelPath,
				StartLine:    fileLine,
				EndLine:      fileLine,
				SourceCode:   strings.TrimSpace(line),
				EnclosingClass: sfc.Name,
			})
		case "defineExpose":
			if sfc.Attributes == nil {
				sfc.Attributes = make(map[string]string)
			}
			sfc.Attributes["define_expose"] = "true"
		}
	}
}

// walkTemplate emits uses_component, calls, and references edges from the
// template AST, all attributed to the SFC component.
func (s *VueStrategy) walkTemplate(node *sitter.Node, src []byte, sfc *types.Component, local map[string]*types.Component, result *FileResult) {
	text := func(n *sitter.Node) string {
		return string(src[n.StartByte():n.EndByte()])
	}
	emit := func(kind types.EdgeKind, callee string, line int) {
		edge := types.CallEdge{Caller: sfc.ID, Callee: callee, Line: line, Kind: kind}
		if comp, ok := local[callee]; ok {
			edge.Callee = comp.ID
			edge.Resolved = true
		}
		result.Edges = append(result.Edges, edge)
	}

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		switch n.Type() {
		case "start_tag", "self_closing_tag":
			line := int(n.StartPoint().Row) + 1
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := n.NamedChild(i)
				switch child.Type() {
				case "tag_name":
					tag := text(child)
					if isPascalCase(tag) && !vueBuiltins[normalizeTag(tag)] {
						emit(types.EdgeUsesComponent, tag, line)
					}
				case "attribute":
					s.emitAttributeEdge(child, text, emit)
				}
			}
		case "text":
			for _, m := range interpolationRe.FindAllStringSubmatch(text(n), -1) {
				emit(types.EdgeReferences, m[1], int(n.StartPoint().Row)+1)
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(node)
}

// emitAttributeEdge handles @event="handler" and :prop="binding"
// directives whose value is a plain identifier.
func (s *VueStrategy) emitAttributeEdge(attr *sitter.Node, text func(*sitter.Node) string, emit func(types.EdgeKind, string, int)) {
	var name, value string
	line := int(attr.StartPoint().Row) + 1
	for i := 0; i < int(attr.NamedChildCount()); i++ {
		child := attr.NamedChild(i)
		switch child.Type() {
		case "attribute_name":
			name = text(child)
		case "quoted_attribute_value":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if child.NamedChild(j).Type() == "attribute_value" {
					value = text(child.NamedChild(j))
				}
			}
		case "attribute_value":
			value = text(child)
		}
	}
	if !plainIdentRe.MatchString(value) {
		return
	}
	switch {
	case strings.HasPrefix(name, "@"):
		emit(types.EdgeCalls, value, line)
	case strings.HasPrefix(name, ":"):
		emit(types.EdgeReferences, value, line)
	}
}

// findScriptBlock locates the <script> element and returns its raw text,
// the 0-based row its text starts on, and the delegated language.
func findScriptBlock(root *sitter.Node, src []byte) (script string, row int, lang Language) {
	var found *sitter.Node
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if found != nil {
			return
		}
		if n.Type() == "script_element" {
			found = n
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(root)
	if found == nil {
		return "", 0, LangJavaScript
	}

	lang = LangJavaScript
	for i := 0; i < int(found.NamedChildCount()); i++ {
		child := found.NamedChild(i)
		switch child.Type() {
		case "start_tag":
			if strings.Contains(string(src[child.StartByte():child.EndByte()]), `lang="ts"`) {
				lang = LangTypeScript
			}
		case "raw_text":
			script = string(src[child.StartByte():child.EndByte()])
			row = int(child.StartPoint().Row)
		}
	}
	return script, row, lang
}

// findTemplateElement locates the top-level <template> element.
func findTemplateElement(root *sitter.Node, src []byte) *sitter.Node {
	var found *sitter.Node
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if found != nil {
			return
		}
		if n.Type() == "element" {
			if tag := firstTagName(n, src); tag == "template" {
				found = n
				return
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(root)
	return found
}

// firstTagName returns the tag name of an element node.
func firstTagName(element *sitter.Node, src []byte) string {
	for i := 0; i < int(element.NamedChildCount()); i++ {
		child := element.NamedChild(i)
		if child.Type() == "start_tag" || child.Type() == "self_closing_tag" {
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if child.NamedChild(j).Type() == "tag_name" {
					return string(src[child.NamedChild(j).StartByte():child.NamedChild(j).EndByte()])
				}
			}
		}
	}
	return ""
}

// isPascalCase reports whether a tag starts with an uppercase letter.
func isPascalCase(tag string) bool {
	if tag == "" {
		return false
	}
	return unicode.IsUpper(rune(tag[0]))
}

// normalizeTag lowercases a tag for built-in comparison; dashes are kept.
func normalizeTag(tag string) string {
	return strings.ToLower(tag)
}
