package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// scopeGuard enforces the editor's two-root security invariant: under the
// documentation directory every command is permitted; under the repository
// root only view is; everywhere else nothing is. Paths are canonicalized
// and symlink escapes are rejected, so the guard is the single choke point
// for filesystem access from the model.
type scopeGuard struct {
	docsDir  string
	repoRoot string
}

func newScopeGuard(docsDir, repoRoot string) (*scopeGuard, error) {
	docs, err := canonicalize(docsDir)
	if err != nil {
		return nil, fmt.Errorf("resolve docs dir: %w", err)
	}
	repo, err := canonicalize(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve repo root: %w", err)
	}
	return &scopeGuard{docsDir: docs, repoRoot: repo}, nil
}

// checkPath resolves a path and decides what the editor may do with it.
// write=true demands the documentation root; view-only commands also
// accept the repository root.
func (s *scopeGuard) checkPath(path string, write bool) (string, error) {
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: path must be absolute, got %q", ErrToolViolation, path)
	}
	resolved, err := canonicalize(path)
	if err != nil {
		return "", fmt.Errorf("%w: cannot resolve %q: %v", ErrToolViolation, path, err)
	}

	switch {
	case within(s.docsDir, resolved):
		return resolved, nil
	case within(s.repoRoot, resolved):
		if write {
			return "", fmt.Errorf("%w: the repository root is read-only; only view is permitted under %s", ErrScopeViolation, s.repoRoot)
		}
		return resolved, nil
	default:
		return "", fmt.Errorf("%w: %q is outside the permitted roots", ErrScopeViolation, path)
	}
}

// canonicalize makes a path absolute and resolves symlinks through the
// deepest existing ancestor, so a link pointing out of the permitted roots
// cannot smuggle a path past the check.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)

	// Resolve through the deepest ancestor that exists; keep the
	// not-yet-created suffix (create targets don't exist yet).
	existing := abs
	var suffix []string
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		suffix = append([]string{filepath.Base(existing)}, suffix...)
		existing = parent
	}
	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", err
	}
	if len(suffix) > 0 {
		resolved = filepath.Join(append([]string{resolved}, suffix...)...)
	}
	return resolved, nil
}

// within reports whether path is root or lexically inside it.
func within(root, path string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
