package memory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fenwick-labs/memoria/internal/embedding"
	"github.com/fenwick-labs/memoria/internal/storage/sqlite"
	"github.com/fenwick-labs/memoria/internal/types"
)

func newTestService(t *testing.T) (*Service, func()) {
	t.Helper()
	return newTestServiceWithLimits(t, 0, 0)
}

func newTestServiceWithLimits(t *testing.T, batchMaxSize int, accessRateLimit time.Duration) (*Service, func()) {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	svc := New(db, embedding.NewDeterministic(32), 0, batchMaxSize, accessRateLimit)
	return svc, func() { db.Close() }
}

func TestStoreAndGet(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	e, err := svc.Store(ctx, types.StoreRequest{Content: "remember the milk"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if e.Namespace != types.DefaultNamespace {
		t.Errorf("namespace = %q, want default", e.Namespace)
	}
	if e.Tier != types.TierLongTerm {
		t.Errorf("tier = %q, want long_term default", e.Tier)
	}

	got, err := svc.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "remember the milk" {
		t.Errorf("content = %q", got.Content)
	}
}

func TestStoreRejectsEmptyContent(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()

	if _, err := svc.Store(context.Background(), types.StoreRequest{Content: ""}); err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestStoreSharedNamespaceRequiresOptIn(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := svc.Store(ctx, types.StoreRequest{Content: "x", Namespace: types.SharedNamespace}); err == nil {
		t.Fatal("expected error writing to shared namespace without allow_shared")
	}
	if _, err := svc.Store(ctx, types.StoreRequest{Content: "x", Namespace: types.SharedNamespace, AllowShared: true}); err != nil {
		t.Fatalf("store with allow_shared: %v", err)
	}
}

func TestUpdateContentReembeds(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	e, err := svc.Store(ctx, types.StoreRequest{Content: "original"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	newContent := "replacement"
	updated, err := svc.Update(ctx, e.ID, types.UpdateRequest{Content: &newContent})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Content != newContent {
		t.Errorf("content = %q, want %q", updated.Content, newContent)
	}
	if updated.Version != 2 {
		t.Errorf("version = %d, want 2", updated.Version)
	}
}

func TestDeleteRemovesEntry(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	e, err := svc.Store(ctx, types.StoreRequest{Content: "gone soon"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := svc.Delete(ctx, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, e.ID); err == nil {
		t.Fatal("expected not-found error after delete")
	}
}

func TestBatchStoreContinuesPastFailures(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	reqs := []types.StoreRequest{
		{Content: "ok one"},
		{Content: ""}, // invalid, should fail
		{Content: "ok two"},
	}
	result := svc.BatchStore(ctx, reqs, types.BatchContinue)
	if len(result.Succeeded) != 2 {
		t.Errorf("succeeded = %d, want 2", len(result.Succeeded))
	}
	if len(result.Failed) != 1 {
		t.Errorf("failed = %d, want 1", len(result.Failed))
	}
	if result.Aborted {
		t.Error("continue mode should never report aborted")
	}
}

func TestBatchStoreRollsBackOnFailure(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	reqs := []types.StoreRequest{
		{Content: "ok one"},
		{Content: ""},
	}
	result := svc.BatchStore(ctx, reqs, types.BatchRollback)
	if !result.Aborted {
		t.Error("expected rollback mode to abort on first failure")
	}
	if len(result.Succeeded) != 0 {
		t.Errorf("succeeded = %d, want 0 after rollback", len(result.Succeeded))
	}

	_, total, err := svc.List(ctx, types.ListFilters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 0 {
		t.Errorf("total after rolled-back batch = %d, want 0", total)
	}
}

func TestBatchStoreRejectsOversizedBatch(t *testing.T) {
	svc, cleanup := newTestServiceWithLimits(t, 2, 0)
	defer cleanup()
	ctx := context.Background()

	reqs := []types.StoreRequest{{Content: "a"}, {Content: "b"}, {Content: "c"}}
	result := svc.BatchStore(ctx, reqs, types.BatchContinue)
	if len(result.Failed) != 1 || len(result.Succeeded) != 0 {
		t.Fatalf("result = %+v, want a single ResourceExhausted failure and no successes", result)
	}
	if !types.IsKind(result.Failed[0].Err, types.KindResourceExhausted) {
		t.Errorf("error = %v, want ResourceExhausted kind", result.Failed[0].Err)
	}
}

func TestGetRateLimitsRepeatedAccessTouch(t *testing.T) {
	svc, cleanup := newTestServiceWithLimits(t, 0, time.Hour)
	defer cleanup()
	ctx := context.Background()

	e, err := svc.Store(ctx, types.StoreRequest{Content: "touch me"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.Get(ctx, e.ID); err != nil {
			t.Fatalf("get #%d: %v", i, err)
		}
	}

	got, err := svc.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("final get: %v", err)
	}
	if got.AccessCount < 1 {
		t.Errorf("access_count = %d, want at least 1 after repeated gets", got.AccessCount)
	}
}

func TestDeleteByTierRemovesOnlyMatchingTier(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	working, err := svc.Store(ctx, types.StoreRequest{Content: "working note", Tier: types.TierWorking})
	if err != nil {
		t.Fatalf("store working: %v", err)
	}
	longTerm, err := svc.Store(ctx, types.StoreRequest{Content: "long term note", Tier: types.TierLongTerm})
	if err != nil {
		t.Fatalf("store long term: %v", err)
	}

	deleted, err := svc.DeleteByTier(ctx, "", types.TierWorking)
	if err != nil {
		t.Fatalf("delete by tier: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != working.ID {
		t.Fatalf("deleted = %v, want only %s", deleted, working.ID)
	}
	if _, err := svc.Get(ctx, longTerm.ID); err != nil {
		t.Fatalf("long term entry should survive: %v", err)
	}
}

func TestDeleteOlderThanRemovesEntriesBeforeCutoff(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	e, err := svc.Store(ctx, types.StoreRequest{Content: "aging note"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	future := time.Now().UTC().Add(time.Hour)
	deleted, err := svc.DeleteOlderThan(ctx, "", future)
	if err != nil {
		t.Fatalf("delete older than: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != e.ID {
		t.Fatalf("deleted = %v, want only %s", deleted, e.ID)
	}
}
