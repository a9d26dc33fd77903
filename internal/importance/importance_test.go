package importance

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

func newTestEntry(t *testing.T, content string) (*sqlite.DB, string, func()) {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	memSvc := memory.New(db, embedding.NewDeterministic(16), 0, 0, 0)
	e, err := memSvc.Store(ctx, types.StoreRequest{Content: content})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return db, e.ID, func() { db.Close() }
}

func TestInitialScoreByTier(t *testing.T) {
	if s := InitialScore(types.TierWorking); s != 0.7 {
		t.Errorf("InitialScore(working) = %v, want 0.7", s)
	}
	if s := InitialScore(types.TierShortTerm); s != 0.5 {
		t.Errorf("InitialScore(short_term) = %v, want 0.5", s)
	}
	if s := InitialScore(types.TierLongTerm); s != 0.5 {
		t.Errorf("InitialScore(long_term) = %v, want 0.5", s)
	}
}

func TestScoreIsBoundedBetweenZeroAndOne(t *testing.T) {
	now := time.Now().UTC()
	created := now.Add(-365 * 24 * time.Hour)
	last := now.Add(-100 * 24 * time.Hour)
	s := Score(0, &last, created, now, 100)
	if s < 0 || s > 1 {
		t.Fatalf("Score() = %v, want in [0,1]", s)
	}
}

func TestScoreRewardsFrequentRecentAccess(t *testing.T) {
	now := time.Now().UTC()
	created := now.Add(-30 * 24 * time.Hour)
	recent := now.Add(-1 * time.Hour)
	stale := now.Add(-60 * 24 * time.Hour)

	hot := Score(50, &recent, created, now, 100)
	cold := Score(1, &stale, created, now, 100)
	if hot <= cold {
		t.Fatalf("expected frequently/recently accessed entry to score higher: hot=%v cold=%v", hot, cold)
	}
}

func TestScoreHandlesNilLastAccessed(t *testing.T) {
	now := time.Now().UTC()
	created := now.Add(-10 * 24 * time.Hour)
	s := Score(0, nil, created, now, 100)
	if s < 0 || s > 1 {
		t.Fatalf("Score() with nil last-accessed = %v, want in [0,1]", s)
	}
}

func TestRecomputeWritesBackScore(t *testing.T) {
	db, id, cleanup := newTestEntry(t, "important fact")
	defer cleanup()
	ctx := context.Background()

	score, err := Recompute(ctx, db, id, 100)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	info, err := GetScore(ctx, db, id)
	if err != nil {
		t.Fatalf("get score: %v", err)
	}
	if info.ImportanceScore != score {
		t.Errorf("stored score = %v, want %v", info.ImportanceScore, score)
	}
}

func TestSetScoreRejectsOutOfRangeValues(t *testing.T) {
	db, id, cleanup := newTestEntry(t, "some fact")
	defer cleanup()
	ctx := context.Background()

	if err := SetScore(ctx, db, id, 1.5, ""); err == nil {
		t.Fatal("expected error for score > 1")
	}
	if err := SetScore(ctx, db, id, -0.1, ""); err == nil {
		t.Fatal("expected error for score < 0")
	}
}

func TestSetScorePersistsReasonInMetadata(t *testing.T) {
	db, id, cleanup := newTestEntry(t, "some fact")
	defer cleanup()
	ctx := context.Background()

	if err := SetScore(ctx, db, id, 0.9, "manual override"); err != nil {
		t.Fatalf("set score: %v", err)
	}
	e, err := db.GetEntry(ctx, id)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if e.ImportanceScore != 0.9 {
		t.Errorf("importance score = %v, want 0.9", e.ImportanceScore)
	}
	if e.Metadata["_last_score_reason"] != "manual override" {
		t.Errorf("metadata reason = %v, want %q", e.Metadata["_last_score_reason"], "manual override")
	}
}

func TestRateLimitedTouchBumpsAccessCount(t *testing.T) {
	db, id, cleanup := newTestEntry(t, "touched fact")
	defer cleanup()
	ctx := context.Background()

	if err := RateLimitedTouch(ctx, db, id, types.AccessGet, time.Minute); err != nil {
		t.Fatalf("touch: %v", err)
	}
	e, err := db.GetEntry(ctx, id)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if e.AccessCount != 1 {
		t.Errorf("access count = %d, want 1", e.AccessCount)
	}
}

func TestGetScoreNotFoundReturnsError(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if _, err := GetScore(ctx, db, "does-not-exist"); err == nil {
		t.Fatal("expected not-found error")
	}
}
