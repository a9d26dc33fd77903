package context

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fenwick-labs/memoria/internal/cache"
	"github.com/fenwick-labs/memoria/internal/embedding"
	"github.com/fenwick-labs/memoria/internal/linkgraph"
	"github.com/fenwick-labs/memoria/internal/memory"
	"github.com/fenwick-labs/memoria/internal/search"
	"github.com/fenwick-labs/memoria/internal/storage/sqlite"
	"github.com/fenwick-labs/memoria/internal/tokenizer"
	"github.com/fenwick-labs/memoria/internal/types"
)

func newTestFixture(t *testing.T) (*Builder, *memory.Service, *linkgraph.Service, func()) {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	embedder := embedding.NewDeterministic(32)
	memSvc := memory.New(db, embedder, 0, 0, 0)
	searchSvc := search.New(db, embedder, tokenizer.New(), 0, 0, 0)
	links := linkgraph.New(db)
	c := cache.New(embedder, 100, time.Minute, 0.95)
	builder := New(db, searchSvc, links, c, 0, "gpt-4")
	return builder, memSvc, links, func() { db.Close() }
}

func baseRequest(query string) types.ContextRequest {
	return types.ContextRequest{
		Query:       query,
		TokenBudget: 2000,
		TopK:        10,
		MaxDepth:    2,
	}
}

func TestBuildRejectsOutOfRangeTokenBudget(t *testing.T) {
	b, _, _, cleanup := newTestFixture(t)
	defer cleanup()

	req := baseRequest("anything")
	req.TokenBudget = 10
	if _, err := b.Build(context.Background(), req); err == nil {
		t.Fatal("expected validation error for too-small token budget")
	}
}

func TestBuildReturnsDirectMatch(t *testing.T) {
	b, memSvc, _, cleanup := newTestFixture(t)
	defer cleanup()
	ctx := context.Background()

	e, err := memSvc.Store(ctx, types.StoreRequest{Content: "the invoice total is due friday"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	pack, err := b.Build(ctx, baseRequest("the invoice total is due friday"))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if pack.MemoriesCount == 0 {
		t.Fatal("expected at least one packed memory")
	}
	found := false
	for _, m := range pack.Memories {
		if m.EntryID == e.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected direct match entry in pack, got %+v", pack.Memories)
	}
}

func TestBuildIncludesRelatedViaLinkGraph(t *testing.T) {
	b, memSvc, links, cleanup := newTestFixture(t)
	defer cleanup()
	ctx := context.Background()

	root, err := memSvc.Store(ctx, types.StoreRequest{Content: "project kickoff meeting notes"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	related, err := memSvc.Store(ctx, types.StoreRequest{Content: "follow-up action items from kickoff"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := links.CreateLink(ctx, types.Link{
		SourceID: root.ID, TargetID: related.ID, LinkType: types.LinkRelated, Strength: 1,
	}, false); err != nil {
		t.Fatalf("create link: %v", err)
	}

	req := baseRequest("project kickoff meeting notes")
	req.IncludeRelated = true
	pack, err := b.Build(ctx, req)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	found := false
	for _, m := range pack.Memories {
		if m.EntryID == related.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected related entry to be included, got %+v", pack.Memories)
	}
	if pack.RelatedCount == 0 {
		t.Error("expected RelatedCount > 0")
	}
}

func TestBuildFitsToBudgetStopsWhenFull(t *testing.T) {
	items := []item{
		{entry: types.Entry{ID: "a"}, tokens: 50},
		{entry: types.Entry{ID: "b"}, tokens: 50},
		{entry: types.Entry{ID: "c"}, tokens: 50},
	}
	selected := fitToBudget(items, 90)
	if len(selected) != 1 {
		t.Fatalf("fitToBudget() selected %d items, want 1 (50 fits, 100 doesn't)", len(selected))
	}
}

func TestMergeAndDedupPrefersDirectOverRelated(t *testing.T) {
	direct := []item{{entry: types.Entry{ID: "shared"}, source: "direct"}}
	related := []item{{entry: types.Entry{ID: "shared"}, source: "related"}, {entry: types.Entry{ID: "other"}, source: "related"}}

	merged := mergeAndDedup(direct, related)
	if len(merged) != 2 {
		t.Fatalf("mergeAndDedup() = %d items, want 2", len(merged))
	}
	for _, m := range merged {
		if m.entry.ID == "shared" && m.source != "direct" {
			t.Errorf("expected shared entry to keep its direct source, got %q", m.source)
		}
	}
}

func TestBuildUsesCacheOnSecondCall(t *testing.T) {
	b, memSvc, _, cleanup := newTestFixture(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := memSvc.Store(ctx, types.StoreRequest{Content: "cache this please"}); err != nil {
		t.Fatalf("store: %v", err)
	}

	req := baseRequest("cache this please")
	req.UseCache = true

	first, err := b.Build(ctx, req)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if first.CacheHit {
		t.Fatal("expected first call to be a cache miss")
	}

	second, err := b.Build(ctx, req)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !second.CacheHit {
		t.Fatal("expected second identical call to be a cache hit")
	}
}
