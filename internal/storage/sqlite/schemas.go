package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fenwick-labs/memoria/internal/types"
)

func (d *DB) PutSchema(ctx context.Context, s *types.MemorySchema) error {
	_, err := d.conn().ExecContext(ctx, `
		INSERT INTO memory_schemas (namespace, name, version, fields) VALUES (?,?,?,?)
		ON CONFLICT(namespace, name) DO UPDATE SET version = excluded.version, fields = excluded.fields`,
		s.Namespace, s.Name, s.Version, marshalJSON(s.Fields))
	if err != nil {
		return fmt.Errorf("put schema: %w", err)
	}
	return nil
}

func scanSchema(row interface{ Scan(...any) error }) (*types.MemorySchema, error) {
	var s types.MemorySchema
	var fields string
	if err := row.Scan(&s.Namespace, &s.Name, &s.Version, &fields); err != nil {
		return nil, err
	}
	json.Unmarshal([]byte(fields), &s.Fields)
	return &s, nil
}

func (d *DB) GetSchema(ctx context.Context, namespace, name string) (*types.MemorySchema, error) {
	row := d.conn().QueryRowContext(ctx,
		"SELECT namespace, name, version, fields FROM memory_schemas WHERE namespace = ? AND name = ?", namespace, name)
	s, err := scanSchema(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schema: %w", err)
	}
	return s, nil
}

func (d *DB) ListSchemas(ctx context.Context, namespace string) ([]*types.MemorySchema, error) {
	rows, err := d.conn().QueryContext(ctx,
		"SELECT namespace, name, version, fields FROM memory_schemas WHERE namespace = ?", namespace)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	defer rows.Close()
	var out []*types.MemorySchema
	for rows.Next() {
		s, err := scanSchema(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (d *DB) DeleteSchema(ctx context.Context, namespace, name string) error {
	_, err := d.conn().ExecContext(ctx, "DELETE FROM memory_schemas WHERE namespace = ? AND name = ?", namespace, name)
	if err != nil {
		return fmt.Errorf("delete schema: %w", err)
	}
	return nil
}
