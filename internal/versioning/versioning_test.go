package versioning

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fenwick-labs/memoria/internal/embedding"
	"github.com/fenwick-labs/memoria/internal/memory"
	"github.com/fenwick-labs/memoria/internal/storage"
	"github.com/fenwick-labs/memoria/internal/storage/sqlite"
	"github.com/fenwick-labs/memoria/internal/types"
)

func newTestEntry(t *testing.T, content string) (*memory.Service, storage.Storage, string, func()) {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	memSvc := memory.New(db, embedding.NewDeterministic(16), 0, 0, 0)
	e, err := memSvc.Store(ctx, types.StoreRequest{Content: content, Tags: []string{"v1"}})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return memSvc, db, e.ID, func() { db.Close() }
}

func TestApplyUpdateBumpsVersionAndSnapshots(t *testing.T) {
	memSvc, store, id, cleanup := newTestEntry(t, "version one")
	defer cleanup()
	ctx := context.Background()

	newContent := "version two"
	updated, err := memSvc.Update(ctx, id, types.UpdateRequest{Content: &newContent, ChangeReason: "edit"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("version = %d, want 2", updated.Version)
	}

	hist, err := GetHistory(ctx, store, id, 0)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(hist.Snapshots) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(hist.Snapshots))
	}
	if hist.Snapshots[0].Content != "version one" {
		t.Errorf("snapshot content = %q, want original", hist.Snapshots[0].Content)
	}
}

func TestRollbackRestoresOldContent(t *testing.T) {
	memSvc, store, id, cleanup := newTestEntry(t, "original content")
	defer cleanup()
	ctx := context.Background()

	newContent := "changed content"
	if _, err := memSvc.Update(ctx, id, types.UpdateRequest{Content: &newContent}); err != nil {
		t.Fatalf("update: %v", err)
	}

	restored, err := Rollback(ctx, store, id, 1, "undo")
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if restored.Content != "original content" {
		t.Errorf("rolled-back content = %q, want original", restored.Content)
	}
	if restored.Version != 3 {
		t.Errorf("version after rollback = %d, want 3 (rollback is itself a new version)", restored.Version)
	}
}

func TestRollbackRejectsCurrentVersion(t *testing.T) {
	memSvc, store, id, cleanup := newTestEntry(t, "content")
	defer cleanup()
	ctx := context.Background()
	_ = memSvc

	if _, err := Rollback(ctx, store, id, 1, ""); err == nil {
		t.Fatal("expected error rolling back to the current version")
	}
}

func TestDiffVersionsProducesUnifiedDiff(t *testing.T) {
	memSvc, store, id, cleanup := newTestEntry(t, "line one\nline two")
	defer cleanup()
	ctx := context.Background()

	newContent := "line one\nline changed"
	if _, err := memSvc.Update(ctx, id, types.UpdateRequest{Content: &newContent}); err != nil {
		t.Fatalf("update: %v", err)
	}

	diff, err := DiffVersions(ctx, store, id, 1, 2)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if !strings.Contains(diff.ContentDiff, "line changed") {
		t.Errorf("diff = %q, want it to mention the new line", diff.ContentDiff)
	}
}

func TestDiffVersionsRejectsBackwardsRange(t *testing.T) {
	memSvc, store, id, cleanup := newTestEntry(t, "content")
	defer cleanup()
	_ = memSvc

	if _, err := DiffVersions(context.Background(), store, id, 2, 1); err == nil {
		t.Fatal("expected error for oldVersion >= newVersion")
	}
}
