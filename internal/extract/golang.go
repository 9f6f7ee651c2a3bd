package extract

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"codewiki/internal/logging"
	"codewiki/internal/types"
)

// GoStrategy implements the extraction contract for Go source files using
// the standard go/ast package. Functions and methods are first-class
// components; Go repositories are behavior-centric.
type GoStrategy struct{}

func newGoStrategy() *GoStrategy {
	return &GoStrategy{}
}

// Language returns the Go tag.
func (s *GoStrategy) Language() Language {
	return LangGo
}

// Parse extracts components and edges from one Go file.
func (s *GoStrategy) Parse(_ context.Context, req FileRequest) (*FileResult, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, req.AbsPath, req.Content, parser.ParseComments)
	if err != nil {
		logging.ExtractWarn("go: parse failed for %s: %v", req.RelPath, err)
		if file == nil {
			return &FileResult{}, nil
		}
		// Partial AST; extract what survived.
	}

	lines := strings.Split(string(req.Content), "\n")
	result := &FileResult{}
	local := make(map[string]*types.Component)

	emit := func(c *types.Component) {
		result.Components = append(result.Components, c)
		if _, seen := local[c.Name]; !seen {
			local[c.Name] = c
		}
	}

	// Pass 1: declarations.
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			emit(s.funcComponent(fset, d, req, lines))
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				emit(s.typeComponent(fset, d, ts, req, lines))
			}
		}
	}

	// Pass 2: call sites and type usage, attributed to the enclosing
	// declaration.
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			continue
		}
		caller := s.funcID(req.RelPath, fd)
		ast.Inspect(fd.Body, func(n ast.Node) bool {
			switch expr := n.(type) {
			case *ast.CallExpr:
				if name := calleeName(expr.Fun); name != "" {
					result.Edges = append(result.Edges, s.edge(fset, caller, name, expr.Pos(), types.EdgeCalls, local, req))
				}
			case *ast.CompositeLit:
				if name := calleeName(expr.Type); name != "" {
					result.Edges = append(result.Edges, s.edge(fset, caller, name, expr.Pos(), types.EdgeReferences, local, req))
				}
			}
			return true
		})
	}

	logging.ExtractDebug("go: %s -> %d components, %d edges",
		req.RelPath, len(result.Components), len(result.Edges))
	return result, nil
}

// funcComponent builds the component for a function or method declaration.
func (s *GoStrategy) funcComponent(fset *token.FileSet, d *ast.FuncDecl, req FileRequest, lines []string) *types.Component {
	name := d.Name.Name
	startLine := fset.Position(d.Pos()).Line
	if d.Doc != nil {
		startLine = fset.Position(d.Doc.Pos()).Line
	}
	endLine := fset.Position(d.End()).Line

	comp := &types.Component{
		ID:           s.funcID(req.RelPath, d),
		Name:         name,
		Kind:         types.KindFunction,
		FilePath:     req.AbsPath,
		RelativePath: req.RelPath,
		StartLine:    startLine,
		EndLine:      endLine,
		SourceCode:   extractSpan(lines, startLine, endLine),
	}
	if d.Doc != nil {
		comp.Docstring = strings.TrimSpace(d.Doc.Text())
		comp.HasDoc = true
	}
	if recv := receiverType(d); recv != "" {
		comp.Kind = types.KindMethod
		comp.EnclosingClass = recv
	}
	if d.Type.Params != nil {
		for _, field := range d.Type.Params.List {
			text := fieldText(field)
			if text != "" {
				comp.Parameters = append(comp.Parameters, text)
			}
		}
	}
	return comp
}

// typeComponent builds the component for one type spec.
func (s *GoStrategy) typeComponent(fset *token.FileSet, d *ast.GenDecl, ts *ast.TypeSpec, req FileRequest, lines []string) *types.Component {
	kind := types.KindTypeAlias
	switch ts.Type.(type) {
	case *ast.StructType:
		kind = types.KindStruct
	case *ast.InterfaceType:
		kind = types.KindInterface
	}

	startLine := fset.Position(ts.Pos()).Line
	doc := ts.Doc
	if doc == nil {
		doc = d.Doc
	}
	if doc != nil && fset.Position(doc.Pos()).Line < startLine {
		startLine = fset.Position(doc.Pos()).Line
	}
	endLine := fset.Position(ts.End()).Line

	comp := &types.Component{
		ID:           types.ComponentID(req.RelPath, ts.Name.Name),
		Name:         ts.Name.Name,
		Kind:         kind,
		FilePath:     req.AbsPath,
		RelativePath: req.RelPath,
		StartLine:    startLine,
		EndLine:      endLine,
		SourceCode:   extractSpan(lines, startLine, endLine),
	}
	if doc != nil {
		comp.Docstring = strings.TrimSpace(doc.Text())
		comp.HasDoc = true
	}
	return comp
}

// funcID derives the component id, using Type.method for methods.
func (s *GoStrategy) funcID(relPath string, d *ast.FuncDecl) string {
	if recv := receiverType(d); recv != "" {
		return types.MemberID(relPath, recv, d.Name.Name)
	}
	return types.ComponentID(relPath, d.Name.Name)
}

func (s *GoStrategy) edge(fset *token.FileSet, caller, callee string, pos token.Pos, kind types.EdgeKind, local map[string]*types.Component, req FileRequest) types.CallEdge {
	edge := types.CallEdge{
		Caller: caller,
		Callee: callee,
		Line:   fset.Position(pos).Line,
		Kind:   kind,
	}
	if comp, ok := local[callee]; ok && comp.ID != caller {
		edge.Callee = comp.ID
		edge.Resolved = true
	}
	return edge
}

// receiverType normalizes a method receiver: pointer stripped, generic
// type parameters stripped, so *Store[K,V] and Store both yield "Store".
func receiverType(d *ast.FuncDecl) string {
	if d.Recv == nil || len(d.Recv.List) == 0 {
		return ""
	}
	return baseTypeName(d.Recv.List[0].Type)
}

// baseTypeName unwraps pointers and generic instantiations to the named
// type underneath.
func baseTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return baseTypeName(t.X)
	case *ast.IndexExpr:
		return baseTypeName(t.X)
	case *ast.IndexListExpr:
		return baseTypeName(t.X)
	case *ast.SelectorExpr:
		return t.Sel.Name
	}
	return ""
}

// calleeName extracts the rightmost identifier from a call or type
// expression: pkg.F yields F, plain f yields f.
func calleeName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.SelectorExpr:
		return e.Sel.Name
	case *ast.StarExpr:
		return calleeName(e.X)
	case *ast.IndexExpr:
		return calleeName(e.X)
	case *ast.IndexListExpr:
		return calleeName(e.X)
	case *ast.ParenExpr:
		return calleeName(e.X)
	}
	return ""
}

// fieldText renders a parameter field as "names type".
func fieldText(field *ast.Field) string {
	var names []string
	for _, n := range field.Names {
		names = append(names, n.Name)
	}
	typeName := baseTypeName(field.Type)
	if typeName == "" {
		typeName = "_"
	}
	if len(names) == 0 {
		return typeName
	}
	return strings.Join(names, ", ") + " " + typeName
}
