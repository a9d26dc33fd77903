package decay

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fenwick-labs/memoria/internal/embedding"
	"github.com/fenwick-labs/memoria/internal/memory"
	"github.com/fenwick-labs/memoria/internal/storage/sqlite"
	"github.com/fenwick-labs/memoria/internal/types"
)

func newTestFixture(t *testing.T) (*Service, *memory.Service, func()) {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return New(db), memory.New(db, embedding.NewDeterministic(16), 0, 0, 0), func() { db.Close() }
}

func TestSetConfigValidatesThreshold(t *testing.T) {
	svc, _, cleanup := newTestFixture(t)
	defer cleanup()

	if err := svc.SetConfig(context.Background(), types.DecayConfig{Threshold: 1.5}); err == nil {
		t.Fatal("expected error for threshold above 1")
	}
}

func TestRunDryRunLeavesEntriesInPlace(t *testing.T) {
	svc, memSvc, cleanup := newTestFixture(t)
	defer cleanup()
	ctx := context.Background()

	e, err := memSvc.Store(ctx, types.StoreRequest{Content: "low importance candidate"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if err := svc.SetConfig(ctx, types.DecayConfig{Enabled: true, Threshold: 1.0, GracePeriodDays: 0, MaxDeletePerRun: 100}); err != nil {
		t.Fatalf("set config: %v", err)
	}

	result, err := svc.Run(ctx, true)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.DryRun {
		t.Error("result.DryRun = false, want true")
	}

	got, err := memSvc.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("get after dry run: %v", err)
	}
	if got == nil {
		t.Fatal("entry was deleted during a dry run")
	}
}

func TestRunDisabledSkipsEntirely(t *testing.T) {
	svc, _, cleanup := newTestFixture(t)
	defer cleanup()
	ctx := context.Background()

	if err := svc.SetConfig(ctx, types.DecayConfig{Enabled: false}); err != nil {
		t.Fatalf("set config: %v", err)
	}
	result, err := svc.Run(ctx, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.DeletedIDs) != 0 || len(result.Candidates) != 0 {
		t.Errorf("disabled run produced output: %+v", result)
	}
}
