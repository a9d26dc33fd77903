package schema

import (
	"time"

	"github.com/google/uuid"

	"github.com/fenwick-labs/memoria/internal/embedding"
	"github.com/fenwick-labs/memoria/internal/importance"
	"github.com/fenwick-labs/memoria/internal/storage"
	"github.com/fenwick-labs/memoria/internal/types"

	"context"
)

// CompareOp enumerates the comparison operators search_typed accepts
// against structured fields beyond plain equality.
type CompareOp string

const (
	OpGTE CompareOp = "$gte"
	OpLTE CompareOp = "$lte"
	OpGT  CompareOp = "$gt"
	OpLT  CompareOp = "$lt"
)

// FieldQuery is one structured-field predicate: either Eq, or one
// comparison operator against Value.
type FieldQuery struct {
	Field string
	Eq    any
	Op    CompareOp
	Value float64
}

// StoreTyped validates content against the named schema and, on success,
// stores it as a regular entry with StructuredContent and SchemaID set.
func StoreTyped(ctx context.Context, store storage.Storage, embedder embedding.Provider, schema *types.MemorySchema, content string, data map[string]any, req types.StoreRequest) (*types.Entry, error) {
	ok, errs := Validate(schema, data)
	if !ok {
		return nil, types.Validationf("typed data failed schema validation: %v", errs)
	}

	now := time.Now().UTC()
	tier := req.Tier
	if tier == "" {
		tier = types.TierLongTerm
	}
	e := &types.Entry{
		ID: uuid.NewString(), Content: content, ContentType: req.ContentType,
		Tier: tier, Tags: req.Tags, Metadata: req.Metadata, AgentID: req.AgentID,
		CreatedAt: now, UpdatedAt: now, ImportanceScore: importance.InitialScore(tier),
		Namespace: req.Namespace, SchemaID: schema.Namespace + "/" + schema.Name,
		StructuredContent: data, Version: 1,
	}
	if e.ContentType == "" {
		e.ContentType = types.ContentText
	}
	if e.Namespace == "" {
		e.Namespace = types.DefaultNamespace
	}

	vec, err := embedder.Embed(ctx, content, false)
	if err != nil {
		return nil, types.Dependencyf(err, "embed content")
	}
	err = store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if err := tx.CreateEntry(ctx, e); err != nil {
			return types.Storagef(err, "create entry")
		}
		return tx.PutEmbedding(ctx, e.ID, vec)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// SearchTyped lists entries under schemaID in namespace whose structured
// fields satisfy every query (in-process filtering: structured_content is
// opaque JSON to the storage layer).
func SearchTyped(ctx context.Context, store storage.Storage, namespace, schemaID string, queries []FieldQuery, limit int) ([]*types.Entry, error) {
	entries, _, err := store.ListEntries(ctx, types.ListFilters{Namespace: namespace, Limit: 0})
	if err != nil {
		return nil, types.Storagef(err, "list entries")
	}

	var out []*types.Entry
	for _, e := range entries {
		if e.SchemaID != schemaID {
			continue
		}
		if matchesAll(e.StructuredContent, queries) {
			out = append(out, e)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func matchesAll(data map[string]any, queries []FieldQuery) bool {
	for _, q := range queries {
		v, ok := data[q.Field]
		if !ok {
			return false
		}
		if q.Op == "" {
			if !equalValue(v, q.Eq) {
				return false
			}
			continue
		}
		n := asFloat(v)
		switch q.Op {
		case OpGTE:
			if !(n >= q.Value) {
				return false
			}
		case OpLTE:
			if !(n <= q.Value) {
				return false
			}
		case OpGT:
			if !(n > q.Value) {
				return false
			}
		case OpLT:
			if !(n < q.Value) {
				return false
			}
		}
	}
	return true
}

func equalValue(a, b any) bool {
	af, aok := toFloatOK(a)
	bf, bok := toFloatOK(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func toFloatOK(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
