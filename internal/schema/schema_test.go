package schema

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fenwick-labs/memoria/internal/storage/sqlite"
	"github.com/fenwick-labs/memoria/internal/types"
)

func newTestService(t *testing.T) (*Service, func()) {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return New(db), func() { db.Close() }
}

func sampleSchema() types.MemorySchema {
	minLen := 1.0
	return types.MemorySchema{
		Name: "bug_report",
		Fields: []types.SchemaField{
			{Name: "title", Type: types.FieldString, Required: true, Validation: &types.FieldValidation{Min: &minLen}},
			{Name: "severity", Type: types.FieldString, Validation: &types.FieldValidation{Enum: []string{"low", "medium", "high"}}},
			{Name: "count", Type: types.FieldNumber},
		},
	}
}

func TestRegisterRejectsInvalidName(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()

	schema := sampleSchema()
	schema.Name = "has a space"
	if err := svc.Register(context.Background(), schema); err == nil {
		t.Fatal("expected error for invalid schema name")
	}
}

func TestRegisterRejectsDuplicateFieldNames(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()

	schema := sampleSchema()
	schema.Fields = append(schema.Fields, types.SchemaField{Name: "title", Type: types.FieldString})
	if err := svc.Register(context.Background(), schema); err == nil {
		t.Fatal("expected error for duplicate field name")
	}
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	if err := svc.Register(ctx, sampleSchema()); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Register(ctx, sampleSchema()); err == nil {
		t.Fatal("expected conflict registering the same schema twice")
	}
}

func TestGetNotFound(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()

	if _, err := svc.Get(context.Background(), "", "missing"); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestValidateRequiredFieldMissing(t *testing.T) {
	schema := sampleSchema()
	ok, errs := Validate(&schema, map[string]any{"severity": "low"})
	if ok {
		t.Fatal("expected validation failure for missing required field")
	}
	if len(errs) != 1 || errs[0].Field != "title" {
		t.Errorf("errs = %+v, want a single error on title", errs)
	}
}

func TestValidateTypeMismatch(t *testing.T) {
	schema := sampleSchema()
	ok, errs := Validate(&schema, map[string]any{"title": "a bug", "count": "not a number"})
	if ok {
		t.Fatal("expected validation failure for type mismatch")
	}
	found := false
	for _, e := range errs {
		if e.Field == "count" {
			found = true
		}
	}
	if !found {
		t.Errorf("errs = %+v, want an error on count", errs)
	}
}

func TestValidateEnumConstraint(t *testing.T) {
	schema := sampleSchema()
	ok, errs := Validate(&schema, map[string]any{"title": "a bug", "severity": "catastrophic"})
	if ok {
		t.Fatal("expected validation failure for value outside enum")
	}
	if len(errs) != 1 || errs[0].Field != "severity" {
		t.Errorf("errs = %+v, want a single error on severity", errs)
	}
}

func TestValidatePasses(t *testing.T) {
	schema := sampleSchema()
	ok, errs := Validate(&schema, map[string]any{"title": "a bug", "severity": "high", "count": 3})
	if !ok {
		t.Fatalf("expected validation to pass, got errors: %+v", errs)
	}
}
