package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fenwick-labs/memoria/internal/embedding"
	"github.com/fenwick-labs/memoria/internal/memory"
	"github.com/fenwick-labs/memoria/internal/storage/sqlite"
	"github.com/fenwick-labs/memoria/internal/tokenizer"
	"github.com/fenwick-labs/memoria/internal/types"
)

func newTestFixture(t *testing.T) (*Service, *memory.Service, func()) {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	embedder := embedding.NewDeterministic(32)
	memSvc := memory.New(db, embedder, 0, 0, 0)
	svc := New(db, embedder, tokenizer.New(), 0, 0, 0)
	return svc, memSvc, func() { db.Close() }
}

func TestSearchSemanticFindsExactContentMatch(t *testing.T) {
	svc, memSvc, cleanup := newTestFixture(t)
	defer cleanup()
	ctx := context.Background()

	e, err := memSvc.Store(ctx, types.StoreRequest{Content: "the kitchen sink is leaking"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := memSvc.Store(ctx, types.StoreRequest{Content: "quarterly revenue projections for next year"}); err != nil {
		t.Fatalf("store: %v", err)
	}

	results, err := svc.Search(ctx, "the kitchen sink is leaking", types.ModeSemantic, 5, types.SearchFilters{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) == 0 || results[0].Entry.ID != e.ID {
		t.Fatalf("expected exact-content query to rank its own entry first, got %+v", results)
	}
}

func TestSearchKeywordFindsMatchingWord(t *testing.T) {
	svc, memSvc, cleanup := newTestFixture(t)
	defer cleanup()
	ctx := context.Background()

	e, err := memSvc.Store(ctx, types.StoreRequest{Content: "the invoice needs approval from finance"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	results, err := svc.Search(ctx, "invoice", types.ModeKeyword, 5, types.SearchFilters{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	found := false
	for _, r := range results {
		if r.Entry.ID == e.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected keyword search for 'invoice' to find stored entry, got %+v", results)
	}
}

func TestSearchHybridFusesBothRankings(t *testing.T) {
	svc, memSvc, cleanup := newTestFixture(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := memSvc.Store(ctx, types.StoreRequest{Content: "the server crashed during deployment"}); err != nil {
		t.Fatalf("store: %v", err)
	}

	results, err := svc.Search(ctx, "server crashed", types.ModeHybrid, 5, types.SearchFilters{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected hybrid search to return at least one result")
	}
}

func TestSearchFiltersByMinSimilarity(t *testing.T) {
	svc, memSvc, cleanup := newTestFixture(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := memSvc.Store(ctx, types.StoreRequest{Content: "something completely unrelated"}); err != nil {
		t.Fatalf("store: %v", err)
	}

	results, err := svc.Search(ctx, "totally different query text", types.ModeSemantic, 5, types.SearchFilters{MinSimilarity: 1.01})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results to clear an impossible min-similarity threshold, got %+v", results)
	}
}

func TestFindSimilarExcludesQueryEntryItself(t *testing.T) {
	svc, memSvc, cleanup := newTestFixture(t)
	defer cleanup()
	ctx := context.Background()

	e1, err := memSvc.Store(ctx, types.StoreRequest{Content: "alpha content"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := memSvc.Store(ctx, types.StoreRequest{Content: "beta content"}); err != nil {
		t.Fatalf("store: %v", err)
	}

	results, err := svc.FindSimilar(ctx, e1.ID, 5, types.SearchFilters{})
	if err != nil {
		t.Fatalf("find similar: %v", err)
	}
	for _, r := range results {
		if r.Entry.ID == e1.ID {
			t.Fatal("expected FindSimilar to exclude the queried entry itself")
		}
	}
}

func TestSearchHitsTouchAccessCount(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	embedder := embedding.NewDeterministic(32)
	memSvc := memory.New(db, embedder, 0, 0, 0)
	svc := New(db, embedder, tokenizer.New(), 0, 0, 0)

	e, err := memSvc.Store(ctx, types.StoreRequest{Content: "the kitchen sink is leaking"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	if _, err := svc.Search(ctx, "the kitchen sink is leaking", types.ModeSemantic, 5, types.SearchFilters{}); err != nil {
		t.Fatalf("search: %v", err)
	}

	got, err := db.GetEntry(ctx, e.ID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.AccessCount < 1 {
		t.Fatalf("access_count = %d, want at least 1 after a matching search", got.AccessCount)
	}
}

func TestSortResultsByImportance(t *testing.T) {
	results := []types.SearchResult{
		{Entry: types.Entry{ID: "low", ImportanceScore: 0.1}},
		{Entry: types.Entry{ID: "high", ImportanceScore: 0.9}},
	}
	sortResults(results, types.SortImportance, 0)
	if results[0].Entry.ID != "high" {
		t.Fatalf("expected highest importance first, got %+v", results)
	}
}
