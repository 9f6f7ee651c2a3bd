package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"codewiki/internal/logging"
)

// maxViewLines bounds a single view response.
const maxViewLines = 2000

// Editor implements the str_replace_editor tool: a stateful, scope-guarded
// file editor with single-step undo. All write commands are restricted to
// the documentation directory; the repository root is view-only.
type Editor struct {
	guard   *scopeGuard
	history *EditHistory

	// fileMu serializes edits per run. The orchestrator never schedules
	// concurrent edits to the same target; the mutex is the backstop.
	fileMu sync.Mutex
}

// NewEditor creates an editor over the two permitted roots.
func NewEditor(docsDir, repoRoot string, history *EditHistory) (*Editor, error) {
	guard, err := newScopeGuard(docsDir, repoRoot)
	if err != nil {
		return nil, err
	}
	return &Editor{guard: guard, history: history}, nil
}

// EditorArgs is the decoded argument set for one editor command.
type EditorArgs struct {
	Command    string `json:"command"`
	Path       string `json:"path"`
	FileText   string `json:"file_text"`
	OldStr     string `json:"old_str"`
	NewStr     string `json:"new_str"`
	InsertLine int    `json:"insert_line"`
	ViewStart  int    `json:"view_start"`
	ViewEnd    int    `json:"view_end"`
}

// Execute dispatches one command. Errors are tool-result errors for the
// agent to observe and recover from; they never abort the run by
// themselves.
func (e *Editor) Execute(args EditorArgs) (string, error) {
	logging.ToolsDebug("editor: %s %s", args.Command, args.Path)
	switch args.Command {
	case "view":
		return e.view(args)
	case "create":
		return e.create(args)
	case "str_replace":
		return e.strReplace(args)
	case "insert":
		return e.insert(args)
	case "undo_edit":
		return e.undoEdit(args)
	default:
		return "", fmt.Errorf("%w: unknown command %q", ErrToolViolation, args.Command)
	}
}

// view returns file contents with line numbers, or a two-level directory
// listing.
func (e *Editor) view(args EditorArgs) (string, error) {
	path, err := e.guard.checkPath(args.Path, false)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %q does not exist", ErrToolViolation, args.Path)
	}
	if info.IsDir() {
		return e.listDirectory(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: cannot read %q: %v", ErrToolViolation, args.Path, err)
	}
	lines := strings.Split(string(data), "\n")

	start, end := 1, len(lines)
	if args.ViewStart > 0 {
		start = args.ViewStart
	}
	if args.ViewEnd > 0 && args.ViewEnd < end {
		end = args.ViewEnd
	}
	if start > len(lines) {
		return "", fmt.Errorf("%w: view range starts past end of file (%d lines)", ErrToolViolation, len(lines))
	}
	if end-start+1 > maxViewLines {
		end = start + maxViewLines - 1
	}

	var b strings.Builder
	for i := start; i <= end && i <= len(lines); i++ {
		fmt.Fprintf(&b, "%6d\t%s\n", i, lines[i-1])
	}
	return b.String(), nil
}

// listDirectory renders files and directories up to two levels deep.
func (e *Editor) listDirectory(dir string) (string, error) {
	var entries []string
	walk := func(base string, depth int) error {
		items, err := os.ReadDir(base)
		if err != nil {
			return err
		}
		for _, item := range items {
			rel, _ := filepath.Rel(dir, filepath.Join(base, item.Name()))
			if item.IsDir() {
				entries = append(entries, rel+"/")
				if depth < 2 {
					sub, err := os.ReadDir(filepath.Join(base, item.Name()))
					if err != nil {
						continue
					}
					for _, s := range sub {
						srel := filepath.Join(rel, s.Name())
						if s.IsDir() {
							srel += "/"
						}
						entries = append(entries, srel)
					}
				}
			} else {
				entries = append(entries, rel)
			}
		}
		return nil
	}
	if err := walk(dir, 1); err != nil {
		return "", fmt.Errorf("%w: cannot list %q: %v", ErrToolViolation, dir, err)
	}
	sort.Strings(entries)
	return strings.Join(entries, "\n"), nil
}

// create writes a new file; an existing file is a tool error.
func (e *Editor) create(args EditorArgs) (string, error) {
	path, err := e.guard.checkPath(args.Path, true)
	if err != nil {
		return "", err
	}
	e.fileMu.Lock()
	defer e.fileMu.Unlock()

	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%w: %q already exists; use str_replace to modify it", ErrToolViolation, args.Path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("%w: cannot create parent directory: %v", ErrToolViolation, err)
	}
	if err := os.WriteFile(path, []byte(args.FileText), 0o644); err != nil {
		return "", fmt.Errorf("%w: cannot write %q: %v", ErrToolViolation, args.Path, err)
	}
	if diag := validateMarkdown(path, args.FileText); diag != "" {
		return "", fmt.Errorf("file created, but %s", diag)
	}
	return fmt.Sprintf("File created successfully at %s", args.Path), nil
}

// strReplace replaces a uniquely occurring substring.
func (e *Editor) strReplace(args EditorArgs) (string, error) {
	path, err := e.guard.checkPath(args.Path, true)
	if err != nil {
		return "", err
	}
	e.fileMu.Lock()
	defer e.fileMu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %q does not exist", ErrToolViolation, args.Path)
	}
	content := string(data)

	count := strings.Count(content, args.OldStr)
	switch {
	case args.OldStr == "":
		return "", fmt.Errorf("%w: old_str must not be empty", ErrToolViolation)
	case count == 0:
		return "", fmt.Errorf("%w: old_str not found in %q", ErrToolViolation, args.Path)
	case count > 1:
		return "", fmt.Errorf("%w: old_str occurs %d times in %q, at lines %s; it must occur exactly once",
			ErrToolViolation, count, args.Path, matchLines(content, args.OldStr))
	}

	e.history.Push(path, content)
	updated := strings.Replace(content, args.OldStr, args.NewStr, 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return "", fmt.Errorf("%w: cannot write %q: %v", ErrToolViolation, args.Path, err)
	}
	if diag := validateMarkdown(path, updated); diag != "" {
		return "", fmt.Errorf("edit applied, but %s", diag)
	}
	return fmt.Sprintf("Replaced in %s", args.Path), nil
}

// insert adds text after the given line number (0 prepends).
func (e *Editor) insert(args EditorArgs) (string, error) {
	path, err := e.guard.checkPath(args.Path, true)
	if err != nil {
		return "", err
	}
	e.fileMu.Lock()
	defer e.fileMu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %q does not exist", ErrToolViolation, args.Path)
	}
	content := string(data)
	lines := strings.Split(content, "\n")

	if args.InsertLine < 0 || args.InsertLine > len(lines) {
		return "", fmt.Errorf("%w: insert_line %d out of range (file has %d lines)",
			ErrToolViolation, args.InsertLine, len(lines))
	}

	e.history.Push(path, content)
	inserted := strings.Split(args.NewStr, "\n")
	updated := make([]string, 0, len(lines)+len(inserted))
	updated = append(updated, lines[:args.InsertLine]...)
	updated = append(updated, inserted...)
	updated = append(updated, lines[args.InsertLine:]...)
	joined := strings.Join(updated, "\n")

	if err := os.WriteFile(path, []byte(joined), 0o644); err != nil {
		return "", fmt.Errorf("%w: cannot write %q: %v", ErrToolViolation, args.Path, err)
	}
	if diag := validateMarkdown(path, joined); diag != "" {
		return "", fmt.Errorf("edit applied, but %s", diag)
	}
	return fmt.Sprintf("Inserted %d line(s) after line %d in %s", len(inserted), args.InsertLine, args.Path), nil
}

// undoEdit restores the file's most recent prior content.
func (e *Editor) undoEdit(args EditorArgs) (string, error) {
	path, err := e.guard.checkPath(args.Path, true)
	if err != nil {
		return "", err
	}
	e.fileMu.Lock()
	defer e.fileMu.Unlock()

	content, ok := e.history.Pop(path)
	if !ok {
		return "", fmt.Errorf("%w: no edit history for %q", ErrToolViolation, args.Path)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("%w: cannot restore %q: %v", ErrToolViolation, args.Path, err)
	}
	return fmt.Sprintf("Reverted last edit to %s", args.Path), nil
}

// validateMarkdown runs Mermaid validation on freshly written Markdown and
// renders the diagnostic the agent repairs from. Empty means clean.
func validateMarkdown(path, content string) string {
	if !strings.HasSuffix(strings.ToLower(path), ".md") {
		return ""
	}
	failures := ValidateMermaidBlocks(content)
	if len(failures) == 0 {
		return ""
	}
	var parts []string
	for _, f := range failures {
		parts = append(parts, fmt.Sprintf("diagram %d (starting line %d): %s", f.Index, f.Line, f.Reason))
	}
	return "mermaid validation failed: " + strings.Join(parts, "; ")
}

// matchLines lists the 1-indexed lines where a substring occurs.
func matchLines(content, substr string) string {
	var out []string
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if strings.Contains(line, substr) || (strings.Contains(substr, "\n") && strings.HasPrefix(strings.Join(lines[i:], "\n"), substr)) {
			out = append(out, fmt.Sprint(i+1))
		}
	}
	return strings.Join(out, ", ")
}
