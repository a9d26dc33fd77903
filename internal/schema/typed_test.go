package schema

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fenwick-labs/memoria/internal/embedding"
	"github.com/fenwick-labs/memoria/internal/storage/sqlite"
	"github.com/fenwick-labs/memoria/internal/types"
)

func TestStoreTypedRejectsInvalidData(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	s := sampleSchema()
	_, err = StoreTyped(ctx, db, embedding.NewDeterministic(16), &s, "a bug report", map[string]any{}, types.StoreRequest{})
	if err == nil {
		t.Fatal("expected validation error for missing required field")
	}
}

func TestStoreTypedThenSearchTyped(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	s := sampleSchema()
	s.Namespace = types.DefaultNamespace
	embedder := embedding.NewDeterministic(16)

	e1, err := StoreTyped(ctx, db, embedder, &s, "login is broken", map[string]any{"title": "login bug", "severity": "high", "count": float64(3)}, types.StoreRequest{})
	if err != nil {
		t.Fatalf("store typed: %v", err)
	}
	_, err = StoreTyped(ctx, db, embedder, &s, "typo on homepage", map[string]any{"title": "typo", "severity": "low", "count": float64(1)}, types.StoreRequest{})
	if err != nil {
		t.Fatalf("store typed: %v", err)
	}

	schemaID := s.Namespace + "/" + s.Name
	results, err := SearchTyped(ctx, db, types.DefaultNamespace, schemaID, []FieldQuery{
		{Field: "count", Op: OpGTE, Value: 2},
	}, 0)
	if err != nil {
		t.Fatalf("search typed: %v", err)
	}
	if len(results) != 1 || results[0].ID != e1.ID {
		t.Fatalf("results = %+v, want only the high-count entry", results)
	}
}
