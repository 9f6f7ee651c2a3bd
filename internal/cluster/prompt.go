package cluster

import (
	"fmt"
	"sort"
	"strings"

	"codewiki/internal/types"
)

// miscellaneousModule collects components the model omits from its
// partition.
const miscellaneousModule = "Miscellaneous"

const clusterSystemPrompt = `You are a software architect organizing a codebase into coherent modules.
You will receive a listing of code components grouped by source file.
Partition ALL of them into named modules of related functionality.

Rules:
- Every component id must appear in exactly one module.
- Use short, human-readable module names (e.g. "Authentication", "Data Access").
- Components from the same file usually belong together.
- Respond with ONLY the partition, wrapped exactly like this:

<partition>
<module name="Module Name">
component.id.one
component.id.two
</module>
<module name="Another Module">
component.id.three
</module>
</partition>`

// clusterUserPrompt renders the clustering request for one module.
func clusterUserPrompt(name, listing string) string {
	return fmt.Sprintf("Module under analysis: %s\n\nComponents:\n\n%s", name, listing)
}

// buildListing renders a compact component listing grouped by file:
// one file header per source file, one line per component.
func buildListing(registry *types.ComponentRegistry, ids []string) string {
	byFile := make(map[string][]string)
	for _, id := range ids {
		comp := registry.Get(id)
		if comp == nil {
			continue
		}
		byFile[comp.RelativePath] = append(byFile[comp.RelativePath], id)
	}

	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "file: %s\n", f)
		sort.Strings(byFile[f])
		for _, id := range byFile[f] {
			comp := registry.Get(id)
			fmt.Fprintf(&b, "  - %s (%s %s)\n", id, comp.Kind, comp.Name)
		}
	}
	return b.String()
}
