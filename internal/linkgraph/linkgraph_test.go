package linkgraph

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fenwick-labs/memoria/internal/embedding"
	"github.com/fenwick-labs/memoria/internal/memory"
	"github.com/fenwick-labs/memoria/internal/storage/sqlite"
	"github.com/fenwick-labs/memoria/internal/storage"
	"github.com/fenwick-labs/memoria/internal/types"
)

func newTestFixture(t *testing.T) (*Service, storage.Storage, func()) {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return New(db), db, func() { db.Close() }
}

func mustStore(t *testing.T, store storage.Storage, content string) string {
	t.Helper()
	memSvc := memory.New(store, embedding.NewDeterministic(16), 0, 0, 0)
	e, err := memSvc.Store(context.Background(), types.StoreRequest{Content: content})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return e.ID
}

func TestCreateLinkRejectsSelfLink(t *testing.T) {
	svc, store, cleanup := newTestFixture(t)
	defer cleanup()
	id := mustStore(t, store, "alone")

	err := svc.CreateLink(context.Background(), types.Link{SourceID: id, TargetID: id, LinkType: types.LinkRelated, Strength: 1}, false)
	if err == nil {
		t.Fatal("expected error linking an entry to itself")
	}
}

func TestCreateLinkBidirectionalCreatesReciprocal(t *testing.T) {
	svc, store, cleanup := newTestFixture(t)
	defer cleanup()
	ctx := context.Background()
	a := mustStore(t, store, "parent doc")
	b := mustStore(t, store, "child doc")

	err := svc.CreateLink(ctx, types.Link{SourceID: a, TargetID: b, LinkType: types.LinkParent, Strength: 1}, true)
	if err != nil {
		t.Fatalf("create link: %v", err)
	}

	incoming, err := svc.GetLinks(ctx, b, types.DirectionIncoming)
	if err != nil {
		t.Fatalf("get links: %v", err)
	}
	if len(incoming) != 1 || incoming[0].LinkType != types.LinkParent {
		t.Fatalf("incoming links on b = %+v", incoming)
	}

	outgoing, err := svc.GetLinks(ctx, b, types.DirectionOutgoing)
	if err != nil {
		t.Fatalf("get links: %v", err)
	}
	if len(outgoing) != 1 || outgoing[0].LinkType != types.LinkChild {
		t.Fatalf("reciprocal link from b = %+v, want child", outgoing)
	}
}

func TestTraverseRespectsMaxDepth(t *testing.T) {
	svc, store, cleanup := newTestFixture(t)
	defer cleanup()
	ctx := context.Background()

	a := mustStore(t, store, "a")
	b := mustStore(t, store, "b")
	c := mustStore(t, store, "c")

	if err := svc.CreateLink(ctx, types.Link{SourceID: a, TargetID: b, LinkType: types.LinkRelated, Strength: 1}, false); err != nil {
		t.Fatalf("link a-b: %v", err)
	}
	if err := svc.CreateLink(ctx, types.Link{SourceID: b, TargetID: c, LinkType: types.LinkRelated, Strength: 1}, false); err != nil {
		t.Fatalf("link b-c: %v", err)
	}

	results, err := svc.Traverse(ctx, a, 1, 10, nil)
	if err != nil {
		t.Fatalf("traverse: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("depth-1 traversal from a = %d nodes, want 1 (just b)", len(results))
	}

	results, err = svc.Traverse(ctx, a, 2, 10, nil)
	if err != nil {
		t.Fatalf("traverse: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("depth-2 traversal from a = %d nodes, want 2 (b and c)", len(results))
	}
}

func TestAnalyzeImpactDetectsCascade(t *testing.T) {
	svc, store, cleanup := newTestFixture(t)
	defer cleanup()
	ctx := context.Background()

	base := mustStore(t, store, "base fact")
	dependent := mustStore(t, store, "derived fact")

	l := types.Link{SourceID: base, TargetID: dependent, LinkType: types.LinkDependsOn, Strength: 1, CascadeOnUpdate: true}
	if err := svc.CreateLink(ctx, l, false); err != nil {
		t.Fatalf("create link: %v", err)
	}

	impact, err := svc.AnalyzeImpact(ctx, base, true)
	if err != nil {
		t.Fatalf("analyze impact: %v", err)
	}
	if impact == nil || len(impact.Affected) != 1 || impact.Affected[0].MemoryID != dependent {
		t.Fatalf("impact = %+v, want dependent as the sole affected node", impact)
	}
}

func TestAnalyzeImpactDetectsCyclesLongestFirst(t *testing.T) {
	svc, store, cleanup := newTestFixture(t)
	defer cleanup()
	ctx := context.Background()

	a := mustStore(t, store, "a")
	b := mustStore(t, store, "b")
	c := mustStore(t, store, "c")

	link := func(src, dst string) {
		l := types.Link{SourceID: src, TargetID: dst, LinkType: types.LinkDependsOn, Strength: 1, CascadeOnUpdate: true}
		if err := svc.CreateLink(ctx, l, false); err != nil {
			t.Fatalf("create link %s->%s: %v", src, dst, err)
		}
	}
	// a -> b -> c -> a: a 3-node cascade loop back to the start.
	link(a, b)
	link(b, c)
	link(c, a)

	impact, err := svc.AnalyzeImpact(ctx, a, true)
	if err != nil {
		t.Fatalf("analyze impact: %v", err)
	}
	if !impact.HasCycles {
		t.Fatal("expected HasCycles true for a->b->c->a")
	}
	if len(impact.Cycles) == 0 {
		t.Fatal("expected at least one detected cycle")
	}
	for i := 1; i < len(impact.Cycles); i++ {
		if len(impact.Cycles[i-1]) < len(impact.Cycles[i]) {
			t.Fatalf("Cycles not longest-first: %+v", impact.Cycles)
		}
	}
}
