package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fenwick-labs/memoria/internal/embedding"
	"github.com/fenwick-labs/memoria/internal/memory"
	"github.com/fenwick-labs/memoria/internal/storage/sqlite"
	"github.com/fenwick-labs/memoria/internal/types"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestExportThenImportReplaceRoundTrips(t *testing.T) {
	ctx := context.Background()
	srcDB := newTestDB(t)
	embedder := embedding.NewDeterministic(16)
	memSvc := memory.New(srcDB, embedder, 0, 0, 0)

	e, err := memSvc.Store(ctx, types.StoreRequest{Content: "memory to export"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	base := t.TempDir()
	summary, err := Export(ctx, srcDB, "export.jsonl", base)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if summary.Counts[string(recordMemory)] != 1 {
		t.Fatalf("export counts = %+v, want 1 memory record", summary.Counts)
	}

	destDB := newTestDB(t)
	importSummary, err := Import(ctx, destDB, embedder, "export.jsonl", base, ModeReplace, PolicySkip, false)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if importSummary.Counts[string(recordMemory)] != 1 {
		t.Fatalf("import counts = %+v, want 1 memory record", importSummary.Counts)
	}

	got, err := destDB.GetEntry(ctx, e.ID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got == nil || got.Content != "memory to export" {
		t.Fatalf("imported entry = %+v, want content 'memory to export'", got)
	}
}

func TestImportRejectsArchiveFromNewerSchemaVersion(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	base := t.TempDir()
	path := filepath.Join(base, "future.jsonl")

	if err := os.WriteFile(path, []byte(`{"schema_version":999,"exported_at":"2026-01-01T00:00:00Z","counts":{}}`+"\n"), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	_, err := Import(ctx, db, embedding.NewDeterministic(16), "future.jsonl", base, ModeReplace, PolicySkip, false)
	if err == nil {
		t.Fatal("expected error importing an archive with a newer schema version")
	}
}

func TestImportRejectsInvalidConflictPolicy(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	base := t.TempDir()

	_, err := Import(ctx, db, embedding.NewDeterministic(16), "whatever.jsonl", base, ModeMerge, ConflictPolicy("bogus"), false)
	if err == nil {
		t.Fatal("expected error for invalid conflict policy")
	}
}

func TestImportMergePolicySkipLeavesExistingEntryUntouched(t *testing.T) {
	ctx := context.Background()
	embedder := embedding.NewDeterministic(16)
	srcDB := newTestDB(t)
	memSvc := memory.New(srcDB, embedder, 0, 0, 0)
	e, err := memSvc.Store(ctx, types.StoreRequest{Content: "original content"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	base := t.TempDir()
	if _, err := Export(ctx, srcDB, "export.jsonl", base); err != nil {
		t.Fatalf("export: %v", err)
	}

	destDB := newTestDB(t)
	destMemSvc := memory.New(destDB, embedder, 0, 0, 0)
	if _, err := destMemSvc.Store(ctx, types.StoreRequest{Content: "pre-existing"}); err != nil {
		t.Fatalf("store: %v", err)
	}
	// Force the same ID to collide by importing twice: first import creates it,
	// second import under PolicySkip must not alter it.
	if _, err := Import(ctx, destDB, embedder, "export.jsonl", base, ModeMerge, PolicySkip, false); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := Import(ctx, destDB, embedder, "export.jsonl", base, ModeMerge, PolicySkip, false); err != nil {
		t.Fatalf("second import: %v", err)
	}

	got, err := destDB.GetEntry(ctx, e.ID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.Content != "original content" {
		t.Fatalf("content = %q, want unchanged 'original content'", got.Content)
	}
}

func TestImportMergePolicyErrorRejectsExistingEntry(t *testing.T) {
	ctx := context.Background()
	embedder := embedding.NewDeterministic(16)
	srcDB := newTestDB(t)
	memSvc := memory.New(srcDB, embedder, 0, 0, 0)
	if _, err := memSvc.Store(ctx, types.StoreRequest{Content: "duplicate me"}); err != nil {
		t.Fatalf("store: %v", err)
	}

	base := t.TempDir()
	if _, err := Export(ctx, srcDB, "export.jsonl", base); err != nil {
		t.Fatalf("export: %v", err)
	}

	destDB := newTestDB(t)
	if _, err := Import(ctx, destDB, embedder, "export.jsonl", base, ModeMerge, PolicyError, false); err != nil {
		t.Fatalf("first import: %v", err)
	}
	if _, err := Import(ctx, destDB, embedder, "export.jsonl", base, ModeMerge, PolicyError, false); err == nil {
		t.Fatal("expected conflict error on second import under PolicyError")
	}
}
