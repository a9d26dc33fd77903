// Package search implements the three retrieval modes (semantic, keyword,
// hybrid) and find_similar over the storage substrate.
package search

import (
	"context"
	"sort"
	"time"

	"github.com/fenwick-labs/memoria/internal/embedding"
	"github.com/fenwick-labs/memoria/internal/importance"
	"github.com/fenwick-labs/memoria/internal/storage"
	"github.com/fenwick-labs/memoria/internal/tokenizer"
	"github.com/fenwick-labs/memoria/internal/types"
)

// Service executes search requests against a Storage backend, embedding
// queries with a Provider and tokenizing them with a tokenizer.Provider.
type Service struct {
	store           storage.Storage
	embedder        embedding.Provider
	tokenizer       tokenizer.Provider
	rrfConstant     int
	defaultTopK     int
	accessRateLimit time.Duration
}

// New builds a Service. rrfConstant is the k in RRF's 1/(k+rank) fusion
// formula (default 60); defaultTopK is used when a caller passes k<=0;
// accessRateLimit is the window every search hit's access touch collapses
// repeated hits into, matching memory.Service's Get path.
func New(store storage.Storage, embedder embedding.Provider, tok tokenizer.Provider, rrfConstant, defaultTopK int, accessRateLimit time.Duration) *Service {
	if rrfConstant <= 0 {
		rrfConstant = 60
	}
	if defaultTopK <= 0 {
		defaultTopK = 10
	}
	return &Service{
		store: store, embedder: embedder, tokenizer: tok,
		rrfConstant: rrfConstant, defaultTopK: defaultTopK, accessRateLimit: accessRateLimit,
	}
}

// touchHits rate-limit-logs a search access against every hit entry.
func (s *Service) touchHits(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := importance.RateLimitedTouch(ctx, s.store, id, types.AccessSearch, s.accessRateLimit); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) topK(k int) int {
	if k <= 0 {
		return s.defaultTopK
	}
	return k
}

func (s *Service) listFilters(f types.SearchFilters, k int) types.ListFilters {
	return types.ListFilters{
		Tier: f.Tier, Tags: f.Tags, ContentType: f.ContentType,
		Namespace: f.Namespace, SearchScope: f.SearchScope, Limit: k,
	}
}

// Search runs query against the requested mode and returns results ranked
// per f.Sort.
func (s *Service) Search(ctx context.Context, query string, mode types.SearchMode, k int, f types.SearchFilters) ([]types.SearchResult, error) {
	k = s.topK(k)
	var results []types.SearchResult
	var err error

	switch mode {
	case types.ModeKeyword:
		results, err = s.keywordSearch(ctx, query, k, f)
	case types.ModeHybrid:
		results, err = s.hybridSearch(ctx, query, k, f)
	default:
		results, err = s.semanticSearch(ctx, query, k, f)
	}
	if err != nil {
		return nil, err
	}

	results = filterMinSimilarity(results, f.MinSimilarity)
	sortResults(results, f.Sort, f.ImportanceWeight)
	return results, nil
}

func (s *Service) semanticSearch(ctx context.Context, query string, k int, f types.SearchFilters) ([]types.SearchResult, error) {
	vec, err := s.embedder.Embed(ctx, query, true)
	if err != nil {
		return nil, types.Dependencyf(err, "embed query")
	}
	hits, err := s.store.SemanticKNN(ctx, vec, k, s.listFilters(f, k))
	if err != nil {
		return nil, types.Storagef(err, "semantic knn")
	}
	return s.hydrateVectorHits(ctx, hits, nil)
}

func (s *Service) keywordSearch(ctx context.Context, query string, k int, f types.SearchFilters) ([]types.SearchResult, error) {
	phrase := s.tokenizer.TokenizeQuery(query)
	if phrase == "" {
		return nil, nil
	}
	hits, err := s.store.KeywordSearch(ctx, phrase, k, s.listFilters(f, k))
	if err != nil {
		return nil, types.Storagef(err, "keyword search")
	}
	return s.hydrateKeywordHits(ctx, hits)
}

// hybridSearch runs semantic and keyword search independently and fuses the
// two rankings with Reciprocal Rank Fusion: each result's score is the sum,
// over every list it appears in, of 1/(rrfConstant+rank) (rank is 1-based).
// A result absent from a list contributes nothing for that list.
func (s *Service) hybridSearch(ctx context.Context, query string, k int, f types.SearchFilters) ([]types.SearchResult, error) {
	fanOutK := k * 3
	if fanOutK < k {
		fanOutK = k
	}

	vec, err := s.embedder.Embed(ctx, query, true)
	if err != nil {
		return nil, types.Dependencyf(err, "embed query")
	}
	semHits, err := s.store.SemanticKNN(ctx, vec, fanOutK, s.listFilters(f, fanOutK))
	if err != nil {
		return nil, types.Storagef(err, "semantic knn")
	}

	phrase := s.tokenizer.TokenizeQuery(query)
	var kwHits []storage.KeywordHit
	if phrase != "" {
		kwHits, err = s.store.KeywordSearch(ctx, phrase, fanOutK, s.listFilters(f, fanOutK))
		if err != nil {
			return nil, types.Storagef(err, "keyword search")
		}
	}

	rrf := map[string]float64{}
	similarity := map[string]float64{}
	keywordScore := map[string]float64{}
	for rank, h := range semHits {
		rrf[h.EntryID] += 1.0 / float64(s.rrfConstant+rank+1)
		similarity[h.EntryID] = h.Similarity
	}
	for rank, h := range kwHits {
		rrf[h.EntryID] += 1.0 / float64(s.rrfConstant+rank+1)
		score := h.Rank
		if score < 0 {
			score = -score
		}
		keywordScore[h.EntryID] = score
	}

	ids := make([]string, 0, len(rrf))
	for id := range rrf {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return rrf[ids[i]] > rrf[ids[j]] })
	if len(ids) > k {
		ids = ids[:k]
	}

	entries, err := s.store.GetEntries(ctx, ids)
	if err != nil {
		return nil, types.Storagef(err, "get entries")
	}
	byID := map[string]*types.Entry{}
	for _, e := range entries {
		byID[e.ID] = e
	}

	results := make([]types.SearchResult, 0, len(ids))
	found := make([]string, 0, len(ids))
	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			continue
		}
		results = append(results, types.SearchResult{
			Entry:         *e,
			Similarity:    similarity[id],
			KeywordScore:  keywordScore[id],
			CombinedScore: rrf[id],
		})
		found = append(found, id)
	}
	if err := s.touchHits(ctx, found); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) hydrateVectorHits(ctx context.Context, hits []storage.VectorHit, _ []storage.KeywordHit) ([]types.SearchResult, error) {
	ids := make([]string, len(hits))
	similarity := make(map[string]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.EntryID
		similarity[h.EntryID] = h.Similarity
	}
	entries, err := s.store.GetEntries(ctx, ids)
	if err != nil {
		return nil, types.Storagef(err, "get entries")
	}
	byID := map[string]*types.Entry{}
	for _, e := range entries {
		byID[e.ID] = e
	}
	results := make([]types.SearchResult, 0, len(ids))
	found := make([]string, 0, len(ids))
	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			continue
		}
		results = append(results, types.SearchResult{
			Entry: *e, Similarity: similarity[id], CombinedScore: similarity[id],
		})
		found = append(found, id)
	}
	if err := s.touchHits(ctx, found); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) hydrateKeywordHits(ctx context.Context, hits []storage.KeywordHit) ([]types.SearchResult, error) {
	ids := make([]string, len(hits))
	rankOf := make(map[string]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.EntryID
		rankOf[h.EntryID] = h.Rank
	}
	entries, err := s.store.GetEntries(ctx, ids)
	if err != nil {
		return nil, types.Storagef(err, "get entries")
	}
	byID := map[string]*types.Entry{}
	for _, e := range entries {
		byID[e.ID] = e
	}
	results := make([]types.SearchResult, 0, len(ids))
	found := make([]string, 0, len(ids))
	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			continue
		}
		score := rankOf[id]
		if score < 0 {
			score = -score
		}
		results = append(results, types.SearchResult{
			Entry: *e, KeywordScore: score, CombinedScore: score,
		})
		found = append(found, id)
	}
	if err := s.touchHits(ctx, found); err != nil {
		return nil, err
	}
	return results, nil
}

func filterMinSimilarity(results []types.SearchResult, min float64) []types.SearchResult {
	if min <= 0 {
		return results
	}
	out := results[:0]
	for _, r := range results {
		if r.Similarity >= min {
			out = append(out, r)
		}
	}
	return out
}

// sortResults re-orders results per strategy: "" leaves the mode's native
// ranking, "importance" sorts by the entry's stored importance score,
// "combined" blends the primary signal with importance using
// importanceWeight.
func sortResults(results []types.SearchResult, strategy types.SortStrategy, importanceWeight float64) {
	switch strategy {
	case types.SortImportance:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Entry.ImportanceScore > results[j].Entry.ImportanceScore
		})
	case types.SortCombined:
		if importanceWeight <= 0 {
			importanceWeight = 0.3
		}
		sort.SliceStable(results, func(i, j int) bool {
			bi := (1-importanceWeight)*results[i].CombinedScore + importanceWeight*results[i].Entry.ImportanceScore
			bj := (1-importanceWeight)*results[j].CombinedScore + importanceWeight*results[j].Entry.ImportanceScore
			return bi > bj
		})
	}
}

// FindSimilar returns entries whose embeddings are nearest to id's own
// embedding, excluding id itself.
func (s *Service) FindSimilar(ctx context.Context, id string, k int, f types.SearchFilters) ([]types.SearchResult, error) {
	k = s.topK(k)
	vec, err := s.store.GetEmbedding(ctx, id)
	if err != nil {
		return nil, types.Storagef(err, "get embedding")
	}
	if vec == nil {
		return nil, types.NotFoundf("entry %s has no embedding", id)
	}
	hits, err := s.store.SemanticKNN(ctx, vec, k+1, s.listFilters(f, k+1))
	if err != nil {
		return nil, types.Storagef(err, "semantic knn")
	}
	filtered := hits[:0]
	for _, h := range hits {
		if h.EntryID == id {
			continue
		}
		filtered = append(filtered, h)
	}
	if len(filtered) > k {
		filtered = filtered[:k]
	}
	results, err := s.hydrateVectorHits(ctx, filtered, nil)
	if err != nil {
		return nil, err
	}
	sortResults(results, f.Sort, f.ImportanceWeight)
	return results, nil
}
