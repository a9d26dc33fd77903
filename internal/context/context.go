// Package context implements the token-budgeted context builder: cache
// lookup, direct semantic candidates, related candidates via link-graph
// BFS, strategy-based scoring, auto-summarization, and greedy budget
// packing.
package context

import (
	"context"
	"sort"

	"github.com/fenwick-labs/memoria/internal/cache"
	"github.com/fenwick-labs/memoria/internal/linkgraph"
	"github.com/fenwick-labs/memoria/internal/search"
	"github.com/fenwick-labs/memoria/internal/storage"
	"github.com/fenwick-labs/memoria/internal/summarize"
	"github.com/fenwick-labs/memoria/internal/tokencount"
	"github.com/fenwick-labs/memoria/internal/types"
)

// summarizeThresholdTokens is the 200-token floor: items at or
// below this size are never summarized.
const summarizeThresholdTokens = 200

// Builder assembles ContextPacks from search, the link graph, and an
// optional semantic cache.
type Builder struct {
	store            storage.Storage
	search           *search.Service
	links            *linkgraph.Service
	cache            *cache.Cache
	tokenBufferRatio float64
	tokenModel       string
}

func New(store storage.Storage, searchSvc *search.Service, links *linkgraph.Service, c *cache.Cache, tokenBufferRatio float64, tokenModel string) *Builder {
	if tokenBufferRatio <= 0 {
		tokenBufferRatio = 0.1
	}
	return &Builder{store: store, search: searchSvc, links: links, cache: c, tokenBufferRatio: tokenBufferRatio, tokenModel: tokenModel}
}

// item is the builder's working representation of one candidate, carrying
// created_at so the
// recency strategy can sort on it directly.
type item struct {
	entry      types.Entry
	tokens     int
	similarity float64
	depth      int
	source     string // "direct" or "related"
	summarized bool
}

// Build runs the full context-assembly pipeline.
func (b *Builder) Build(ctx context.Context, req types.ContextRequest) (*types.ContextPack, error) {
	if req.TokenBudget < 100 || req.TokenBudget > 128000 {
		return nil, types.Validationf("token_budget must be in [100,128000]")
	}
	if req.TopK < 1 || req.TopK > 100 {
		return nil, types.Validationf("top_k must be in [1,100]")
	}
	if req.MaxDepth < 1 || req.MaxDepth > 5 {
		return nil, types.Validationf("max_depth must be in [1,5]")
	}
	if req.MinSimilarity < 0 || req.MinSimilarity > 1 {
		return nil, types.Validationf("min_similarity must be in [0,1]")
	}

	if req.UseCache && b.cache != nil {
		if cached, ok, err := b.cache.Get(ctx, req.Namespace, req.Query); err == nil && ok {
			if pack, ok := cached.Result.(*types.ContextPack); ok {
				hit := *pack
				hit.CacheHit = true
				return &hit, nil
			}
		}
	}

	effectiveBudget := int(float64(req.TokenBudget) * (1 - b.tokenBufferRatio))

	direct, err := b.fetchDirect(ctx, req)
	if err != nil {
		return nil, err
	}

	var related []item
	if req.IncludeRelated && len(direct) > 0 {
		related, err = b.fetchRelated(ctx, direct, req.MaxDepth, req.LinkTypes)
		if err != nil {
			return nil, err
		}
	}

	merged := mergeAndDedup(direct, related)
	sortByStrategy(merged, req.Strategy)

	if req.AutoSummarize {
		summarizeIfNeeded(merged, effectiveBudget, b.tokenModel)
	}

	selected := fitToBudget(merged, effectiveBudget)

	pack := &types.ContextPack{
		Memories:     toContextItems(selected),
		TokenBudget:  req.TokenBudget,
		CacheHit:     false,
	}
	for _, it := range selected {
		pack.TotalTokens += it.tokens
		pack.MemoriesCount++
		if it.source == "related" {
			pack.RelatedCount++
		}
	}
	for _, ci := range pack.Memories {
		if ci.Summarized {
			pack.SummarizedCount++
		}
	}

	if req.UseCache && b.cache != nil {
		_ = b.cache.Put(ctx, req.Namespace, req.Query, pack)
	}
	return pack, nil
}

func (b *Builder) fetchDirect(ctx context.Context, req types.ContextRequest) ([]item, error) {
	results, err := b.search.Search(ctx, req.Query, types.ModeSemantic, req.TopK, types.SearchFilters{
		Namespace: req.Namespace, MinSimilarity: req.MinSimilarity,
	})
	if err != nil {
		return nil, err
	}
	items := make([]item, len(results))
	for i, r := range results {
		items[i] = item{
			entry: r.Entry, tokens: tokencount.Count(r.Entry.Content, b.tokenModel),
			similarity: r.Similarity, depth: 0, source: "direct",
		}
	}
	return items, nil
}

func (b *Builder) fetchRelated(ctx context.Context, direct []item, maxDepth int, linkTypes []types.LinkType) ([]item, error) {
	type best struct {
		id    string
		depth int
	}
	directIDs := map[string]bool{}
	for _, d := range direct {
		directIDs[d.entry.ID] = true
	}

	closest := map[string]int{}
	for _, d := range direct {
		results, err := b.links.Traverse(ctx, d.entry.ID, maxDepth, 50, linkTypes)
		if err != nil {
			if types.IsKind(err, types.KindValidation) {
				continue
			}
			return nil, err
		}
		for _, r := range results {
			if r.Depth == 0 || directIDs[r.MemoryID] {
				continue
			}
			if prev, ok := closest[r.MemoryID]; !ok || r.Depth < prev {
				closest[r.MemoryID] = r.Depth
			}
		}
	}

	var related []item
	for id, depth := range closest {
		e, err := b.store.GetEntry(ctx, id)
		if err != nil || e == nil {
			continue
		}
		related = append(related, item{
			entry: *e, tokens: tokencount.Count(e.Content, b.tokenModel),
			similarity: 0, depth: depth, source: "related",
		})
	}
	return related, nil
}

func mergeAndDedup(direct, related []item) []item {
	seen := map[string]bool{}
	out := make([]item, 0, len(direct)+len(related))
	for _, d := range direct {
		seen[d.entry.ID] = true
		out = append(out, d)
	}
	for _, r := range related {
		if seen[r.entry.ID] {
			continue
		}
		seen[r.entry.ID] = true
		out = append(out, r)
	}
	return out
}

func sortByStrategy(items []item, strategy types.ContextStrategy) {
	switch strategy {
	case types.StrategyRecency:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].entry.CreatedAt.After(items[j].entry.CreatedAt)
		})
	case types.StrategyImportance:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].entry.ImportanceScore > items[j].entry.ImportanceScore
		})
	case types.StrategyGraph:
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].depth != items[j].depth {
				return items[i].depth < items[j].depth
			}
			return items[i].similarity > items[j].similarity
		})
	default: // relevance
		sort.SliceStable(items, func(i, j int) bool {
			return relevanceScore(items[i]) > relevanceScore(items[j])
		})
	}
}

func relevanceScore(it item) float64 {
	if it.source == "direct" {
		return it.similarity
	}
	return 1.0 / float64(it.depth+1)
}

// summarizeIfNeeded mutates items in place, largest-first, replacing
// content with an extractive summary targeting 60% of current tokens
// (never below 10% of the original) until the running total fits budget or
// no more candidates qualify.
func summarizeIfNeeded(items []item, budget int, model string) {
	total := 0
	for _, it := range items {
		total += it.tokens
	}
	if total <= budget {
		return
	}

	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return items[order[a]].tokens > items[order[b]].tokens })

	for _, idx := range order {
		if total <= budget {
			break
		}
		it := &items[idx]
		if it.tokens <= summarizeThresholdTokens {
			continue
		}
		summary := summarize.TargetRatio(it.entry.Content, 0.6, model)
		newTokens := tokencount.Count(summary, model)
		if newTokens >= it.tokens {
			continue
		}
		total -= it.tokens - newTokens
		it.entry.Content = summary
		it.tokens = newTokens
		it.summarized = true
	}
}

func fitToBudget(items []item, budget int) []item {
	var selected []item
	var cumulative int
	for _, it := range items {
		if cumulative+it.tokens > budget {
			break
		}
		selected = append(selected, it)
		cumulative += it.tokens
	}
	return selected
}

func toContextItems(items []item) []types.ContextItem {
	out := make([]types.ContextItem, len(items))
	for i, it := range items {
		out[i] = types.ContextItem{
			EntryID: it.entry.ID, Content: it.entry.Content, Tokens: it.tokens,
			Similarity: it.similarity, Depth: it.depth, Importance: it.entry.ImportanceScore,
			CreatedAt: it.entry.CreatedAt, Summarized: it.summarized,
		}
	}
	return out
}
