package extract

import (
	"context"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"codewiki/internal/logging"
	"codewiki/internal/types"
)

// maxTraversalDepth bounds AST recursion so pathological trees cannot blow
// the stack (observed in generated TypeScript).
const maxTraversalDepth = 500

// definitionSpec describes how one grammar node type becomes a Component.
type definitionSpec struct {
	Kind types.Kind

	// MemberKind replaces Kind when the definition sits inside a class-like
	// enclosing definition. Empty keeps Kind.
	MemberKind types.Kind

	// NameField is the tree-sitter field holding the identifier.
	NameField string

	// Name optionally overrides identifier extraction for grammars whose
	// declarators nest (C, C++). It may return an enclosing class name for
	// out-of-class member definitions (Foo::bar).
	Name func(node *sitter.Node, src []byte) (name, enclosing string)

	// TopLevelOnly suppresses emission when the definition is nested inside
	// another definition (module-level variables only).
	TopLevelOnly bool

	// ParamsField optionally names the parameter-list field.
	ParamsField string

	// BasesField optionally names the superclass clause; identifiers under
	// it become base types and extends edges.
	BasesField string

	// IfacesField optionally names the implemented-interface clause;
	// identifiers under it become base types and implements edges.
	IfacesField string

	// BodyField optionally names the field to recurse into for members.
	BodyField string
}

// relationSpec describes how one grammar node type becomes a CallEdge.
type relationSpec struct {
	Kind types.EdgeKind

	// TargetField is the tree-sitter field holding the callee expression.
	TargetField string

	// Target optionally overrides callee extraction entirely.
	Target func(node *sitter.Node, src []byte) string
}

// grammarSpec parameterizes the generic traversal engine for one language.
type grammarSpec struct {
	lang        Language
	sitterLang  *sitter.Language
	definitions map[string]definitionSpec
	relations   map[string]relationSpec

	// wrappers are node types whose inner definitions are lifted with the
	// wrapper's span (decorated_definition, export_statement).
	wrappers map[string]bool

	// calleeRewrite post-processes callee names before edges are emitted
	// (PHP namespace qualification).
	calleeRewrite func(name string) string

	// docstring optionally extracts an in-body docstring when no adjacent
	// comment precedes the definition (Python string docstrings).
	docstring func(node *sitter.Node, src []byte) string

	// prepareFile runs once per file before both passes (PHP namespace and
	// use-statement ingestion). It may return a replacement calleeRewrite.
	prepareFile func(root *sitter.Node, src []byte) func(string) string
}

// TreeSitterStrategy is the grammar-driven traversal engine shared by every
// non-Go language. A single engine instance serializes parses; the scanner
// owns concurrency.
type TreeSitterStrategy struct {
	mu     sync.Mutex
	parser *sitter.Parser
	spec   grammarSpec
}

func newTreeSitterStrategy(spec grammarSpec) (*TreeSitterStrategy, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(spec.sitterLang)
	return &TreeSitterStrategy{parser: parser, spec: spec}, nil
}

// Language returns the strategy's language tag.
func (s *TreeSitterStrategy) Language() Language {
	return s.spec.lang
}

// Parse extracts components and edges in two passes: definitions first,
// relationships second. Syntax errors inside the tree are tolerated; the
// walk simply skips what it cannot interpret.
func (s *TreeSitterStrategy) Parse(ctx context.Context, req FileRequest) (*FileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.parser.ParseCtx(ctx, nil, req.Content)
	if err != nil {
		logging.ExtractWarn("%s: parse failed for %s: %v", s.spec.lang, req.RelPath, err)
		return &FileResult{}, nil
	}
	defer tree.Close()

	rewrite := s.spec.calleeRewrite
	if s.spec.prepareFile != nil {
		if r := s.spec.prepareFile(tree.RootNode(), req.Content); r != nil {
			rewrite = r
		}
	}

	w := &walker{
		spec:    s.spec,
		req:     req,
		lines:   strings.Split(string(req.Content), "\n"),
		rewrite: rewrite,
		local:   make(map[string]*types.Component),
	}
	w.walkDefinitions(tree.RootNode(), nil, 0, 0)
	w.walkRelations(tree.RootNode(), nil, 0)

	logging.ExtractDebug("%s: %s -> %d components, %d edges",
		s.spec.lang, req.RelPath, len(w.components), len(w.edges))
	return &FileResult{Components: w.components, Edges: w.edges}, nil
}

// walker carries per-file traversal state.
type walker struct {
	spec    grammarSpec
	req     FileRequest
	lines   []string
	rewrite func(string) string

	components []*types.Component
	edges      []types.CallEdge

	// local maps short names to components defined in this file, for
	// local-scope edge resolution.
	local map[string]*types.Component
}

func (w *walker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(w.req.Content[n.StartByte():n.EndByte()])
}

// walkDefinitions is pass 1: emit a Component for every definition node.
// wrapperStart carries the start row of a wrapper node (decorator, export)
// so the emitted span includes it; zero means none.
func (w *walker) walkDefinitions(node *sitter.Node, enclosing *types.Component, depth, wrapperStart int) {
	if depth > maxTraversalDepth {
		logging.ExtractWarn("%s: traversal depth cap hit in %s", w.spec.lang, w.req.RelPath)
		return
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		nodeType := child.Type()

		if w.spec.wrappers[nodeType] {
			w.walkDefinitions(child, enclosing, depth+1, int(child.StartPoint().Row)+1)
			continue
		}

		def, ok := w.spec.definitions[nodeType]
		if !ok {
			w.walkDefinitions(child, enclosing, depth+1, 0)
			continue
		}
		if def.TopLevelOnly && enclosing != nil {
			w.walkDefinitions(child, enclosing, depth+1, 0)
			continue
		}

		comp := w.emitDefinition(child, def, enclosing, wrapperStart)
		if comp == nil {
			continue
		}

		body := child
		if def.BodyField != "" {
			if b := child.ChildByFieldName(def.BodyField); b != nil {
				body = b
			}
		}
		w.walkDefinitions(body, comp, depth+1, 0)
	}
}

// emitDefinition builds and records one Component from a definition node.
func (w *walker) emitDefinition(node *sitter.Node, def definitionSpec, enclosing *types.Component, wrapperStart int) *types.Component {
	var name, qualifier string
	if def.Name != nil {
		name, qualifier = def.Name(node, w.req.Content)
	} else if nameNode := node.ChildByFieldName(def.NameField); nameNode != nil {
		name = w.text(nameNode)
	}
	if name == "" {
		return nil
	}

	startLine := int(node.StartPoint().Row) + 1
	endLine := int(node.EndPoint().Row) + 1
	if wrapperStart > 0 && wrapperStart < startLine {
		startLine = wrapperStart
	}

	kind := def.Kind
	var id, enclosingClass string
	switch {
	case enclosing != nil && enclosing.Kind.IsClassLike():
		if def.MemberKind != "" {
			kind = def.MemberKind
		}
		id = types.MemberID(w.req.RelPath, enclosing.Name, name)
		enclosingClass = enclosing.Name
	case qualifier != "":
		// Out-of-class member definition (Foo::bar).
		if def.MemberKind != "" {
			kind = def.MemberKind
		}
		id = types.MemberID(w.req.RelPath, qualifier, name)
		enclosingClass = qualifier
	default:
		id = types.ComponentID(w.req.RelPath, name)
	}

	doc := w.docComment(node, startLine)
	if doc == "" && w.spec.docstring != nil {
		doc = w.spec.docstring(node, w.req.Content)
	}
	comp := &types.Component{
		ID:             id,
		Name:           name,
		Kind:           kind,
		FilePath:       w.req.AbsPath,
		RelativePath:   w.req.RelPath,
		StartLine:      startLine,
		EndLine:        endLine,
		SourceCode:     extractSpan(w.lines, startLine, endLine),
		Docstring:      doc,
		HasDoc:         doc != "",
		EnclosingClass: enclosingClass,
	}

	if def.ParamsField != "" {
		comp.Parameters = w.collectParams(node.ChildByFieldName(def.ParamsField))
	}

	if def.BasesField != "" {
		bases := w.collectTypeNames(node.ChildByFieldName(def.BasesField))
		comp.BaseTypes = append(comp.BaseTypes, bases...)
		w.emitBaseEdges(comp, bases, types.EdgeExtends)
	}
	if def.IfacesField != "" {
		ifaces := w.collectTypeNames(node.ChildByFieldName(def.IfacesField))
		comp.BaseTypes = append(comp.BaseTypes, ifaces...)
		w.emitBaseEdges(comp, ifaces, types.EdgeImplements)
	}

	w.components = append(w.components, comp)
	if _, seen := w.local[name]; !seen {
		w.local[name] = comp
	}
	return comp
}

// emitBaseEdges records inheritance/implementation edges for a definition.
func (w *walker) emitBaseEdges(comp *types.Component, bases []string, kind types.EdgeKind) {
	for _, base := range bases {
		callee := base
		if w.rewrite != nil {
			callee = w.rewrite(callee)
		}
		w.edges = append(w.edges, types.CallEdge{
			Caller: comp.ID,
			Callee: callee,
			Line:   comp.StartLine,
			Kind:   kind,
		})
	}
}

// walkRelations is pass 2: emit a CallEdge for every relationship node,
// attributed to the innermost enclosing definition.
func (w *walker) walkRelations(node *sitter.Node, enclosing *types.Component, depth int) {
	if depth > maxTraversalDepth {
		return
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		nodeType := child.Type()

		current := enclosing
		if def, ok := w.spec.definitions[nodeType]; ok {
			var name string
			if def.Name != nil {
				name, _ = def.Name(child, w.req.Content)
			} else if nameNode := child.ChildByFieldName(def.NameField); nameNode != nil {
				name = w.text(nameNode)
			}
			if comp := w.findComponent(name, child); comp != nil {
				current = comp
			}
		}

		if rel, ok := w.spec.relations[nodeType]; ok && current != nil {
			w.emitRelation(child, rel, current)
		}

		w.walkRelations(child, current, depth+1)
	}
}

// findComponent locates the pass-1 component whose span contains the node.
func (w *walker) findComponent(name string, node *sitter.Node) *types.Component {
	line := int(node.StartPoint().Row) + 1
	for _, c := range w.components {
		if c.Name == name && c.StartLine <= line && line <= c.EndLine {
			return c
		}
	}
	return nil
}

// emitRelation records one edge. Callee names found in the file's local
// scope resolve immediately; everything else stays textual for the graph
// builder's global resolution.
func (w *walker) emitRelation(node *sitter.Node, rel relationSpec, caller *types.Component) {
	var callee string
	if rel.Target != nil {
		callee = rel.Target(node, w.req.Content)
	} else {
		target := node.ChildByFieldName(rel.TargetField)
		callee = rightmostIdentifier(target, w.req.Content)
	}
	if callee == "" {
		return
	}
	if w.rewrite != nil {
		callee = w.rewrite(callee)
	}

	edge := types.CallEdge{
		Caller: caller.ID,
		Callee: callee,
		Line:   int(node.StartPoint().Row) + 1,
		Kind:   rel.Kind,
	}
	if local, ok := w.local[shortName(callee)]; ok && local.ID != caller.ID {
		edge.Callee = local.ID
		edge.Resolved = true
	}
	w.edges = append(w.edges, edge)
}

// docComment returns the comment immediately preceding a definition, if it
// ends on the line directly above it.
func (w *walker) docComment(node *sitter.Node, startLine int) string {
	prev := node.PrevNamedSibling()
	if prev == nil || !strings.Contains(prev.Type(), "comment") {
		return ""
	}
	if int(prev.EndPoint().Row)+1 < startLine-1 {
		return ""
	}
	return strings.TrimSpace(w.text(prev))
}

// collectParams flattens a parameter-list node into parameter texts.
func (w *walker) collectParams(params *sitter.Node) []string {
	if params == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		if strings.Contains(p.Type(), "comment") {
			continue
		}
		text := strings.TrimSpace(w.text(p))
		if text != "" {
			out = append(out, text)
		}
	}
	return out
}

// collectTypeNames gathers identifier names under an inheritance clause.
func (w *walker) collectTypeNames(clause *sitter.Node) []string {
	if clause == nil {
		return nil
	}
	var out []string
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		t := n.Type()
		if isIdentifierType(t) {
			out = append(out, w.text(n))
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(clause)
	return out
}

// isIdentifierType reports whether a node type names an identifier across
// the supported grammars.
func isIdentifierType(t string) bool {
	switch t {
	case "identifier", "type_identifier", "name", "qualified_name",
		"scoped_identifier", "scoped_type_identifier", "namespace_name",
		"property_identifier", "field_identifier", "attribute":
		return true
	}
	return false
}

// rightmostIdentifier descends an expression to its rightmost identifier:
// a.b.c resolves to c, new Foo.Bar to Bar, plain f to f.
func rightmostIdentifier(node *sitter.Node, src []byte) string {
	if node == nil {
		return ""
	}
	if node.NamedChildCount() == 0 {
		if isIdentifierType(node.Type()) {
			return string(src[node.StartByte():node.EndByte()])
		}
		return ""
	}
	for i := int(node.NamedChildCount()) - 1; i >= 0; i-- {
		if name := rightmostIdentifier(node.NamedChild(i), src); name != "" {
			return name
		}
	}
	if isIdentifierType(node.Type()) {
		return string(src[node.StartByte():node.EndByte()])
	}
	return ""
}

// shortName trims qualification from a callee for local-scope lookup.
func shortName(name string) string {
	if idx := strings.LastIndexAny(name, ".\\:"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

// extractSpan returns the 1-indexed inclusive line span as text.
func extractSpan(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}
