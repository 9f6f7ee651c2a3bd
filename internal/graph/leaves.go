package graph

import (
	"sort"
	"strings"

	"codewiki/internal/logging"
	"codewiki/internal/types"
)

// errorLikeKeywords drop utility leaves that exist only to carry failures;
// documenting them adds noise, not architecture.
var errorLikeKeywords = []string{"error", "exception", "failed", "invalid"}

// constructorNames are merged into their enclosing class during leaf
// normalization.
var constructorNames = map[string]bool{
	"__init__":    true,
	"constructor": true,
	"__construct": true,
}

// oversizePruneThreshold triggers the isolated-utility prune on large
// non-Go repositories.
const oversizePruneThreshold = 400

// FilterLeaves identifies the filtered leaf set: components no other
// component depends upon, narrowed to documentable kinds.
func FilterLeaves(registry *types.ComponentRegistry, g Graph, opts BuildOptions) []string {
	rev := g.Dependents()

	permitted := func(k types.Kind) bool {
		if k.IsClassLike() || k == types.KindVueComponent {
			return true
		}
		if opts.HasGo && (k == types.KindFunction || k == types.KindMethod) {
			return true
		}
		return false
	}

	// Pure C-style repositories have no class-like kinds at all; functions
	// become documentable there too.
	if !opts.HasGo && !hasClassLike(registry) {
		inner := permitted
		permitted = func(k types.Kind) bool {
			return inner(k) || k == types.KindFunction
		}
	}

	set := make(map[string]struct{})
	for _, id := range registry.IDs() {
		if len(rev[id]) > 0 {
			continue
		}
		comp := registry.Get(id)
		if comp == nil || !permitted(comp.Kind) {
			continue
		}

		// Constructors collapse into their class.
		if constructorNames[comp.Name] && comp.EnclosingClass != "" {
			classID := types.ComponentID(comp.RelativePath, comp.EnclosingClass)
			if registry.Has(classID) {
				set[classID] = struct{}{}
				continue
			}
		}

		if isErrorLike(comp.Name) {
			continue
		}
		set[id] = struct{}{}
	}

	leaves := make([]string, 0, len(set))
	for id := range set {
		leaves = append(leaves, id)
	}
	sort.Strings(leaves)

	if len(leaves) > oversizePruneThreshold && !opts.GoDominant {
		kept := leaves[:0]
		for _, id := range leaves {
			if comp := registry.Get(id); comp != nil && len(comp.DependsOn) == 0 {
				// Isolated utility: neither used nor using anything.
				continue
			}
			kept = append(kept, id)
		}
		logging.Graph("leaf prune: %d -> %d (isolated utilities dropped)", len(leaves), len(kept))
		leaves = kept
	}

	return leaves
}

// hasClassLike reports whether any registered component declares a type.
func hasClassLike(registry *types.ComponentRegistry) bool {
	for _, id := range registry.IDs() {
		if registry.Get(id).Kind.IsClassLike() {
			return true
		}
	}
	return false
}

// isErrorLike matches names that exist only to carry failures.
func isErrorLike(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range errorLikeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
