package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is a single forward-only schema step, run in order.
type migration struct {
	Name string
	Func func(context.Context, *sql.DB) error
}

var migrationsList = []migration{
	{"initial_schema", migrateInitialSchema},
	{"vector_index_rebuild", migrateVectorIndexRebuild},
}

func migrateInitialSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

// migrateVectorIndexRebuild rebuilds the embeddings table so every stored
// vector is covered by the cosine-distance invariant vec_distance_cosine
// relies on: non-empty, fixed dimensionality. There is no ANN index proper
// to rebuild (cosine distance runs as a scalar function over the raw BLOB,
// see vecfunc.go), so "rebuild" here means backup, drop, recreate with
// CHECK(dims > 0), restore, all inside the caller's migration transaction.
func migrateVectorIndexRebuild(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "SELECT memory_id, vector, dims FROM embeddings")
	if err != nil {
		return fmt.Errorf("backup embeddings: %w", err)
	}
	type row struct {
		memoryID string
		vector   []byte
		dims     int
	}
	var backup []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.memoryID, &r.vector, &r.dims); err != nil {
			rows.Close()
			return fmt.Errorf("scan embedding row: %w", err)
		}
		backup = append(backup, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate embedding rows: %w", err)
	}
	rows.Close()

	if _, err := db.ExecContext(ctx, "DROP TABLE embeddings"); err != nil {
		return fmt.Errorf("drop embeddings: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE embeddings (
		memory_id TEXT PRIMARY KEY REFERENCES memories(id) ON DELETE CASCADE,
		vector BLOB NOT NULL,
		dims INTEGER NOT NULL CHECK (dims > 0)
	)`); err != nil {
		return fmt.Errorf("recreate embeddings: %w", err)
	}

	stmt, err := db.PrepareContext(ctx, "INSERT INTO embeddings (memory_id, vector, dims) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare embeddings restore: %w", err)
	}
	defer stmt.Close()
	for _, r := range backup {
		if r.dims <= 0 {
			return fmt.Errorf("embedding %s has invalid dims %d, refusing to restore", r.memoryID, r.dims)
		}
		if _, err := stmt.ExecContext(ctx, r.memoryID, r.vector, r.dims); err != nil {
			return fmt.Errorf("restore embedding %s: %w", r.memoryID, err)
		}
	}
	return nil
}

// RunMigrations brings db forward to the latest schema version, recording
// each applied migration's ordinal in schema_version. Runs inside a single
// exclusive transaction so concurrent process startups cannot race on
// check-then-create DDL (mirrors the startup-migration lock pattern used
// elsewhere in this package).
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys for migrations: %w", err)
	}
	defer db.ExecContext(ctx, "PRAGMA foreign_keys = ON")

	if _, err := db.ExecContext(ctx, "BEGIN EXCLUSIVE"); err != nil {
		return fmt.Errorf("acquire exclusive lock for migrations: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			db.ExecContext(ctx, "ROLLBACK")
		}
	}()

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var applied int
	row := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version")
	if err := row.Scan(&applied); err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}

	for i, m := range migrationsList {
		if i < applied {
			continue
		}
		if err := m.Func(ctx, db); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
		if _, err := db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", i+1); err != nil {
			return fmt.Errorf("record migration %s: %w", m.Name, err)
		}
	}

	if _, err := db.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	committed = true
	return nil
}
