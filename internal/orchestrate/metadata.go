package orchestrate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codewiki/internal/logging"
)

// Metadata is the generation-info artifact written at the end of a
// successful run.
type Metadata struct {
	PrimaryModel string   `json:"primary_model"`
	GeneratedAt  string   `json:"generated_at"`
	Commit       string   `json:"commit,omitempty"`
	Stats        RunStats `json:"stats"`
}

// writeMetadata emits metadata.json into the documentation directory.
func (o *Orchestrator) writeMetadata() error {
	meta := Metadata{
		PrimaryModel: o.deps.Chain.Primary(),
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
		Commit:       readCommit(o.deps.RepoRoot),
		Stats:        o.Stats,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(o.deps.DocsDir, "metadata.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	logging.Orch("metadata written: %s", path)
	return nil
}

// readCommit returns the repository's HEAD commit if one can be resolved;
// unknown is fine and leaves the field empty.
func readCommit(repoRoot string) string {
	head, err := os.ReadFile(filepath.Join(repoRoot, ".git", "HEAD"))
	if err != nil {
		return ""
	}
	ref := strings.TrimSpace(string(head))
	if !strings.HasPrefix(ref, "ref:") {
		return ref
	}
	refPath := strings.TrimSpace(strings.TrimPrefix(ref, "ref:"))
	commit, err := os.ReadFile(filepath.Join(repoRoot, ".git", filepath.FromSlash(refPath)))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(commit))
}
