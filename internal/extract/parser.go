// Package extract turns source files into typed Component records and raw
// CallEdge records. Each supported language has a dedicated strategy behind
// a single contract; non-Go languages share a grammar-driven traversal
// engine built on Tree-sitter, Go uses go/ast, and Vue single-file
// components compose the TypeScript/JavaScript strategy.
package extract

import (
	"context"

	"codewiki/internal/types"
)

// FileRequest is one file handed to a language strategy.
type FileRequest struct {
	// AbsPath is the absolute path of the file on disk.
	AbsPath string

	// RelPath is the repository-relative path with forward slashes.
	RelPath string

	// Content is the raw file bytes.
	Content []byte

	// Language is the tag the dispatcher resolved for this file.
	Language Language
}

// FileResult is the output of parsing one file.
type FileResult struct {
	Components []*types.Component
	Edges      []types.CallEdge
}

// Strategy is the per-language extraction contract. Implementations never
// fail on syntactic errors in the input: they log a warning and return
// whatever they parsed. A strategy whose parser failed to initialize
// returns empty results.
type Strategy interface {
	// Parse extracts components and raw call edges from one file.
	Parse(ctx context.Context, req FileRequest) (*FileResult, error)

	// Language returns the tag this strategy handles.
	Language() Language
}
