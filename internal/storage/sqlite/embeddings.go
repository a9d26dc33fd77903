package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fenwick-labs/memoria/internal/storage"
	"github.com/fenwick-labs/memoria/internal/types"
)

func (d *DB) PutEmbedding(ctx context.Context, entryID string, vector []float32) error {
	_, err := d.conn().ExecContext(ctx,
		"INSERT INTO embeddings (memory_id, vector, dims) VALUES (?,?,?) ON CONFLICT(memory_id) DO UPDATE SET vector = excluded.vector, dims = excluded.dims",
		entryID, encodeVector(vector), len(vector))
	if err != nil {
		return fmt.Errorf("put embedding: %w", err)
	}
	return nil
}

func (d *DB) GetEmbedding(ctx context.Context, entryID string) ([]float32, error) {
	var blob []byte
	err := d.conn().QueryRowContext(ctx, "SELECT vector FROM embeddings WHERE memory_id = ?", entryID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get embedding: %w", err)
	}
	return decodeVector(blob), nil
}

func (d *DB) DeleteEmbedding(ctx context.Context, entryID string) error {
	_, err := d.conn().ExecContext(ctx, "DELETE FROM embeddings WHERE memory_id = ?", entryID)
	if err != nil {
		return fmt.Errorf("delete embedding: %w", err)
	}
	return nil
}

// SemanticKNN pushes the filter predicate into the join so the LIMIT applies
// after filtering, then ranks by vec_distance_cosine ascending (SPEC_FULL.md
// choice to use a SQL vector function instead of cgo).
func (d *DB) SemanticKNN(ctx context.Context, vector []float32, k int, f types.ListFilters) ([]storage.VectorHit, error) {
	where, args := listFilterSQL(f)
	joinWhere := where
	if joinWhere == "" {
		joinWhere = "WHERE 1=1"
	}
	q := fmt.Sprintf(`
		SELECT e.memory_id, vec_distance_cosine(e.vector, ?) AS dist
		FROM embeddings e JOIN memories m ON m.id = e.memory_id
		%s
		ORDER BY dist ASC
		LIMIT ?`, joinWhere)
	queryArgs := append([]any{encodeVector(vector)}, args...)
	queryArgs = append(queryArgs, k)
	rows, err := d.conn().QueryContext(ctx, q, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("semantic knn: %w", err)
	}
	defer rows.Close()
	var out []storage.VectorHit
	for rows.Next() {
		var id string
		var dist float64
		if err := rows.Scan(&id, &dist); err != nil {
			return nil, err
		}
		out = append(out, storage.VectorHit{EntryID: id, Similarity: 1 - dist})
	}
	return out, rows.Err()
}

func (d *DB) AllEmbeddings(ctx context.Context, namespace string) (map[string][]float32, error) {
	q := `SELECT e.memory_id, e.vector FROM embeddings e JOIN memories m ON m.id = e.memory_id`
	var args []any
	if namespace != "" {
		q += " WHERE m.namespace = ?"
		args = append(args, namespace)
	}
	rows, err := d.conn().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("all embeddings: %w", err)
	}
	defer rows.Close()
	out := map[string][]float32{}
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		out[id] = decodeVector(blob)
	}
	return out, rows.Err()
}
