// Package cluster partitions the filtered leaf set into a bounded-size
// hierarchy of named modules. Partitioning is driven by an external
// language model; the clusterer owns prompt assembly, response validation,
// and the token-budget recursion that keeps every leaf module within
// budget.
package cluster

import (
	"context"

	"codewiki/internal/llm"
	"codewiki/internal/logging"
	"codewiki/internal/tokens"
	"codewiki/internal/types"
)

// Clusterer builds the module tree. It is stateless across invocations;
// the only shared state is the read-only registry.
type Clusterer struct {
	chain    *llm.Chain
	counter  *tokens.Counter
	registry *types.ComponentRegistry
	budgets  types.TokenBudgets
}

// New creates a clusterer.
func New(chain *llm.Chain, registry *types.ComponentRegistry, budgets types.TokenBudgets) *Clusterer {
	return &Clusterer{
		chain:    chain,
		counter:  tokens.NewCounter(),
		registry: registry,
		budgets:  budgets,
	}
}

// BuildTree partitions the leaf set into a module tree rooted at a node
// named after the repository.
func (c *Clusterer) BuildTree(ctx context.Context, rootName string, leaves []string) (*types.ModuleNode, error) {
	timer := logging.StartTimer(logging.CategoryCluster, "BuildTree")
	defer timer.StopWithInfo()

	root := c.cluster(ctx, rootName, leaves, 0)
	if err := root.Validate(c.registry); err != nil {
		// Validation failures here are programming errors in the
		// partition plumbing, not model misbehavior.
		return nil, err
	}
	return root, nil
}

// cluster partitions one id set, recursing while the listing exceeds the
// module budget and depth remains. Every failure mode degrades to a single
// leaf module; no error escapes.
func (c *Clusterer) cluster(ctx context.Context, name string, ids []string, depth int) *types.ModuleNode {
	listing := buildListing(c.registry, ids)
	promptTokens := c.counter.CountString(listing)

	if promptTokens <= c.budgets.MaxTokensPerModule {
		logging.ClusterDebug("%s: %d components fit budget (%d <= %d tokens), leaf module",
			name, len(ids), promptTokens, c.budgets.MaxTokensPerModule)
		return types.NewModuleNode(name, ids)
	}
	if depth >= c.budgets.MaxRecursionDepth {
		logging.ClusterWarn("%s: over budget (%d tokens) but at max depth %d, emitting oversize leaf",
			name, promptTokens, depth)
		return types.NewModuleNode(name, ids)
	}

	logging.Cluster("%s: %d components, %d tokens > %d, requesting partition (depth %d)",
		name, len(ids), promptTokens, c.budgets.MaxTokensPerModule, depth)

	response, err := c.chain.Complete(ctx, clusterSystemPrompt, clusterUserPrompt(name, listing))
	if err != nil {
		logging.ClusterWarn("%s: clustering call failed, falling back to single leaf: %v", name, err)
		return types.NewModuleNode(name, ids)
	}

	partition, err := parsePartition(response)
	if err != nil {
		logging.ClusterWarn("%s: malformed partition, falling back to single leaf: %v", name, err)
		return types.NewModuleNode(name, ids)
	}

	validated := c.validate(partition, ids)
	if len(validated.order) == 0 {
		logging.ClusterWarn("%s: empty partition after validation, falling back to single leaf", name)
		return types.NewModuleNode(name, ids)
	}

	node := types.NewModuleNode(name, nil)
	for _, childName := range validated.order {
		child := c.cluster(ctx, childName, validated.modules[childName], depth+1)
		if err := node.AddChild(child); err != nil {
			// Duplicate sibling after sanitization; merge instead.
			existing := node.Children[child.Name]
			existing.Components = append(existing.Components, child.Components...)
			continue
		}
	}
	return node
}

// validated holds a model partition after registry checking.
type validated struct {
	order   []string
	modules map[string][]string
}

// validate drops unknown ids, removes duplicates (the model's first
// placement wins), and assigns unplaced components to a synthetic
// Miscellaneous sibling.
func (c *Clusterer) validate(p *partition, input []string) validated {
	inputSet := make(map[string]bool, len(input))
	for _, id := range input {
		inputSet[id] = true
	}

	placed := make(map[string]bool)
	out := validated{modules: make(map[string][]string)}

	for _, name := range p.order {
		var kept []string
		for _, id := range p.modules[name] {
			if !inputSet[id] {
				logging.ClusterWarn("partition names unknown component %q, dropped", id)
				continue
			}
			if placed[id] {
				logging.ClusterDebug("component %q already placed, first placement wins", id)
				continue
			}
			placed[id] = true
			kept = append(kept, id)
		}
		if len(kept) > 0 {
			out.order = append(out.order, name)
			out.modules[name] = kept
		}
	}

	var missing []string
	for _, id := range input {
		if !placed[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		logging.Cluster("%d components missing from partition, assigned to Miscellaneous", len(missing))
		if _, exists := out.modules[miscellaneousModule]; exists {
			out.modules[miscellaneousModule] = append(out.modules[miscellaneousModule], missing...)
		} else {
			out.order = append(out.order, miscellaneousModule)
			out.modules[miscellaneousModule] = missing
		}
	}
	return out
}
