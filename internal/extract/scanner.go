package extract

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"codewiki/internal/logging"
	"codewiki/internal/types"
)

// defaultIgnoreDirs are pruned from the walk before any user pattern is
// consulted: version control, build outputs, dependency trees, virtualenvs,
// IDE metadata, and test directories.
var defaultIgnoreDirs = map[string]bool{
	".git": true, ".svn": true, ".hg": true,
	"node_modules": true, "vendor": true, "bower_components": true,
	"dist": true, "build": true, "out": true, "target": true, "obj": true,
	"venv": true, ".venv": true, "virtualenv": true, "__pycache__": true,
	".tox": true, ".mypy_cache": true, ".pytest_cache": true,
	".idea": true, ".vscode": true, ".vs": true,
	".cache": true, "coverage": true, ".next": true, ".nuxt": true,
	"test": true, "tests": true, "__tests__": true, "testdata": true,
}

// Stats summarizes one scan.
type Stats struct {
	FilesSeen    int
	FilesParsed  int
	FilesSkipped int
	Languages    map[Language]int
}

// Result aggregates extractor output across the repository.
type Result struct {
	Components []*types.Component
	Edges      []types.CallEdge
	Stats      Stats
}

// HasLanguage reports whether any parsed file carried the given tag.
func (r *Result) HasLanguage(lang Language) bool {
	return r.Stats.Languages[lang] > 0
}

// Scanner discovers source files under a repository root and runs the
// per-language strategies over them. Per-file parsing is embarrassingly
// parallel; the pool is sized to the CPU count with a fallback of 4.
type Scanner struct {
	factory *Factory

	// IncludePatterns and ExcludePatterns are glob sequences over
	// repository-relative paths, applied after the default-ignore set.
	IncludePatterns []string
	ExcludePatterns []string
}

// NewScanner creates a scanner with a fresh strategy factory.
func NewScanner(include, exclude []string) *Scanner {
	return &Scanner{
		factory:         NewFactory(),
		IncludePatterns: include,
		ExcludePatterns: exclude,
	}
}

// Scan walks the repository and extracts components and edges from every
// eligible file. Per-file failures are isolated: a file that fails to
// parse is skipped with a warning and never aborts the run.
func (s *Scanner) Scan(ctx context.Context, root string) (*Result, error) {
	timer := logging.StartTimer(logging.CategoryScan, "Scan")
	defer timer.StopWithInfo()

	files, err := s.discover(root)
	if err != nil {
		return nil, err
	}
	logging.Scan("discovered %d candidate files under %s", len(files), root)

	result := &Result{Stats: Stats{FilesSeen: len(files), Languages: make(map[Language]int)}}

	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 4
	}

	type fileOutput struct {
		res  *FileResult
		lang Language
	}
	outputs := make([]*fileOutput, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, relPath := range files {
		g.Go(func() error {
			defer func() {
				// A per-file panic must never take down a worker.
				if r := recover(); r != nil {
					logging.ExtractError("panic parsing %s: %v", relPath, r)
				}
			}()

			lang := DetectLanguage(relPath)
			strategy := s.factory.Get(lang)
			if strategy == nil {
				return nil
			}

			absPath := filepath.Join(root, filepath.FromSlash(relPath))
			content, err := os.ReadFile(absPath)
			if err != nil {
				logging.ScanWarn("unreadable file skipped: %s: %v", relPath, err)
				return nil
			}

			res, err := strategy.Parse(gctx, FileRequest{
				AbsPath:  absPath,
				RelPath:  relPath,
				Content:  content,
				Language: lang,
			})
			if err != nil {
				logging.ExtractWarn("parse failed, file skipped: %s: %v", relPath, err)
				return nil
			}
			outputs[i] = &fileOutput{res: res, lang: lang}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge in discovery order so output is deterministic regardless of
	// worker scheduling.
	for _, out := range outputs {
		if out == nil {
			result.Stats.FilesSkipped++
			continue
		}
		result.Stats.FilesParsed++
		result.Stats.Languages[out.lang]++
		result.Components = append(result.Components, out.res.Components...)
		result.Edges = append(result.Edges, out.res.Edges...)
	}

	logging.Scan("scan complete: %d files parsed, %d skipped, %d components, %d edges",
		result.Stats.FilesParsed, result.Stats.FilesSkipped, len(result.Components), len(result.Edges))
	return result, nil
}

// discover walks the tree and returns eligible repository-relative paths in
// sorted order. Symbolic links are never followed.
func (s *Scanner) discover(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.ScanWarn("walk error at %s: %v", path, err)
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && defaultIgnoreDirs[strings.ToLower(d.Name())] {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if DetectLanguage(rel) == "" {
			return nil
		}
		if IsTemplatePath(rel) {
			logging.ScanDebug("template file skipped: %s", rel)
			return nil
		}
		if !s.matchesPatterns(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// matchesPatterns applies the user-supplied include/exclude globs over a
// repository-relative path. Excludes win; an empty include list admits
// everything.
func (s *Scanner) matchesPatterns(rel string) bool {
	for _, pattern := range s.ExcludePatterns {
		if matchGlob(pattern, rel) {
			return false
		}
	}
	if len(s.IncludePatterns) == 0 {
		return true
	}
	for _, pattern := range s.IncludePatterns {
		if matchGlob(pattern, rel) {
			return true
		}
	}
	return false
}

// matchGlob matches a slash-separated glob against a relative path with
// support for the ** segment wildcard.
func matchGlob(pattern, path string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(path, "/"))
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) == 0 {
		return len(path) == 0
	}
	if pattern[0] == "**" {
		// ** matches zero or more path segments.
		for i := 0; i <= len(path); i++ {
			if matchSegments(pattern[1:], path[i:]) {
				return true
			}
		}
		return false
	}
	if len(path) == 0 {
		return false
	}
	ok, err := filepath.Match(pattern[0], path[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pattern[1:], path[1:])
}
