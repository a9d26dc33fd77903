// Package dedup implements LSH-accelerated duplicate detection, merge
// strategies, and consolidation into a single summarized entry.
package dedup

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fenwick-labs/memoria/internal/embedding"
	"github.com/fenwick-labs/memoria/internal/importance"
	"github.com/fenwick-labs/memoria/internal/lsh"
	"github.com/fenwick-labs/memoria/internal/storage"
	"github.com/fenwick-labs/memoria/internal/summarize"
	"github.com/fenwick-labs/memoria/internal/types"
)

// lshFallbackThreshold is the namespace size past which a brute-force O(N^2)
// scan is replaced by an LSH-accelerated candidate search.
const lshFallbackThreshold = 500

// Service runs dedup and consolidation over a Storage backend.
type Service struct {
	store    storage.Storage
	embedder embedding.Provider
}

func New(store storage.Storage, embedder embedding.Provider) *Service {
	return &Service{store: store, embedder: embedder}
}

// FindDuplicates fetches up to limit of namespace's most recent entries and
// groups near-duplicates by cosine similarity >= threshold, choosing a
// primary per strategy. With mergeMetadata, the primary absorbs the union
// of tags and a shallow metadata merge from its duplicates.
func (s *Service) FindDuplicates(ctx context.Context, namespace string, limit int, threshold float64, strategy types.MergeStrategy, mergeMetadata bool) ([]types.DuplicateGroup, error) {
	entries, _, err := s.store.ListEntries(ctx, types.ListFilters{Namespace: namespace, Limit: limit})
	if err != nil {
		return nil, types.Storagef(err, "list entries")
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })

	vectors, err := s.store.AllEmbeddings(ctx, namespace)
	if err != nil {
		return nil, types.Storagef(err, "all embeddings")
	}

	byID := map[string]*types.Entry{}
	for _, e := range entries {
		byID[e.ID] = e
	}

	var index *lsh.Index
	useLSH := len(vectors) > lshFallbackThreshold
	if useLSH {
		dims := 0
		for _, v := range vectors {
			dims = len(v)
			break
		}
		index = lsh.New(dims, lsh.RecommendedPlanes(len(vectors)), 1)
		for id, v := range vectors {
			index.Add(id, v)
		}
	}

	processed := map[string]bool{}
	var groups []types.DuplicateGroup

	for _, e := range entries {
		if processed[e.ID] {
			continue
		}
		vec, ok := vectors[e.ID]
		if !ok {
			continue
		}

		var candidateIDs []string
		if useLSH {
			candidateIDs = index.Candidates(vec)
		} else {
			for id := range vectors {
				candidateIDs = append(candidateIDs, id)
			}
		}

		var dupIDs []string
		var similarities []float64
		for _, id := range candidateIDs {
			if id == e.ID || processed[id] {
				continue
			}
			other, ok := byID[id]
			if !ok {
				continue
			}
			sim := cosineSimilarity(vec, vectors[id])
			if sim >= threshold {
				dupIDs = append(dupIDs, other.ID)
				similarities = append(similarities, sim)
			}
		}
		if len(dupIDs) == 0 {
			continue
		}

		groupIDs := append([]string{e.ID}, dupIDs...)
		primary, duplicates := choosePrimary(byID, groupIDs, strategy)

		avg := 0.0
		for _, sim := range similarities {
			avg += sim
		}
		avg /= float64(len(similarities))

		groups = append(groups, types.DuplicateGroup{
			PrimaryID: primary, DuplicateIDs: duplicates, AvgSimilarity: avg,
		})
		for _, id := range groupIDs {
			processed[id] = true
		}

		if mergeMetadata {
			if err := s.absorb(ctx, byID[primary], duplicates, byID); err != nil {
				return nil, err
			}
		}
	}
	return groups, nil
}

func choosePrimary(byID map[string]*types.Entry, ids []string, strategy types.MergeStrategy) (primary string, duplicates []string) {
	best := ids[0]
	for _, id := range ids[1:] {
		a, b := byID[best], byID[id]
		if a == nil || b == nil {
			continue
		}
		switch strategy {
		case types.MergeKeepOldest:
			if b.CreatedAt.Before(a.CreatedAt) {
				best = id
			}
		case types.MergeHighestImportance:
			if b.ImportanceScore > a.ImportanceScore {
				best = id
			}
		default: // keep_newest
			if b.CreatedAt.After(a.CreatedAt) {
				best = id
			}
		}
	}
	for _, id := range ids {
		if id != best {
			duplicates = append(duplicates, id)
		}
	}
	return best, duplicates
}

func (s *Service) absorb(ctx context.Context, primary *types.Entry, duplicateIDs []string, byID map[string]*types.Entry) error {
	if primary == nil {
		return nil
	}
	tags := map[string]bool{}
	for _, t := range primary.Tags {
		tags[t] = true
	}
	metadata := map[string]any{}
	for k, v := range primary.Metadata {
		metadata[k] = v
	}
	for _, id := range duplicateIDs {
		dup := byID[id]
		if dup == nil {
			continue
		}
		for _, t := range dup.Tags {
			tags[t] = true
		}
		for k, v := range dup.Metadata {
			if _, exists := metadata[k]; !exists {
				metadata[k] = v
			}
		}
	}
	mergedTags := make([]string, 0, len(tags))
	for t := range tags {
		mergedTags = append(mergedTags, t)
	}
	sort.Strings(mergedTags)

	return s.store.UpdateEntry(ctx, primary.ID, map[string]any{
		"tags": mergedTags, "metadata": metadata, "updated_at": time.Now().UTC(),
	})
}

// DeleteDuplicates removes every duplicate id in groups, leaving primaries
// in place.
func (s *Service) DeleteDuplicates(ctx context.Context, groups []types.DuplicateGroup) error {
	var ids []string
	for _, g := range groups {
		ids = append(ids, g.DuplicateIDs...)
	}
	if len(ids) == 0 {
		return nil
	}
	_, err := s.store.DeleteEntries(ctx, ids)
	if err != nil {
		return types.Storagef(err, "delete duplicates")
	}
	return nil
}

// Consolidate merges 2..consolidationMax source entries into a single new
// entry whose content is the extractive summary of their concatenated
// content and whose consolidated_from records the inputs.
// keepOriginals controls whether the sources are left in place or deleted.
func (s *Service) Consolidate(ctx context.Context, ids []string, consolidationMin, consolidationMax int, keepOriginals bool, targetTokens int, model string) (*types.Entry, error) {
	if len(ids) < consolidationMin || len(ids) > consolidationMax {
		return nil, types.Validationf("consolidation requires between %d and %d source entries, got %d", consolidationMin, consolidationMax, len(ids))
	}
	entries, err := s.store.GetEntries(ctx, ids)
	if err != nil {
		return nil, types.Storagef(err, "get entries")
	}
	if len(entries) != len(ids) {
		return nil, types.NotFoundf("one or more consolidation source ids not found")
	}

	contents := make([]string, len(entries))
	tags := map[string]bool{}
	metadata := map[string]any{}
	for i, e := range entries {
		contents[i] = e.Content
		for _, t := range e.Tags {
			tags[t] = true
		}
		for k, v := range e.Metadata {
			if _, exists := metadata[k]; !exists {
				metadata[k] = v
			}
		}
	}
	mergedTags := make([]string, 0, len(tags))
	for t := range tags {
		mergedTags = append(mergedTags, t)
	}
	sort.Strings(mergedTags)

	summary := summarize.ByTokenBudget(strings.Join(contents, "\n\n"), targetTokens, 0.1, model)

	now := time.Now().UTC()
	consolidated := &types.Entry{
		ID: uuid.NewString(), Content: summary, ContentType: types.ContentText,
		Tier: types.TierLongTerm, Tags: mergedTags, Metadata: metadata,
		ConsolidatedFrom: ids, Namespace: entries[0].Namespace,
		CreatedAt: now, UpdatedAt: now, Version: 1,
		ImportanceScore: importance.InitialScore(types.TierLongTerm),
	}

	vec, err := s.embedder.Embed(ctx, summary, false)
	if err != nil {
		return nil, types.Dependencyf(err, "embed consolidated content")
	}

	err = s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if err := tx.CreateEntry(ctx, consolidated); err != nil {
			return types.Storagef(err, "create consolidated entry")
		}
		if err := tx.PutEmbedding(ctx, consolidated.ID, vec); err != nil {
			return types.Storagef(err, "put consolidated embedding")
		}
		if !keepOriginals {
			for _, id := range ids {
				if err := tx.DeleteEmbedding(ctx, id); err != nil {
					return types.Storagef(err, "delete source embedding")
				}
				if err := tx.DeleteEntry(ctx, id); err != nil {
					return types.Storagef(err, "delete source entry")
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return consolidated, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / math.Sqrt(na*nb)
}
