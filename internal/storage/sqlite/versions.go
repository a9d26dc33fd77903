package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fenwick-labs/memoria/internal/types"
)

func (d *DB) CreateVersionSnapshot(ctx context.Context, snap *types.VersionSnapshot) error {
	_, err := d.conn().ExecContext(ctx, `
		INSERT INTO memory_versions (memory_id, version, content, tags, metadata, content_type, change_reason, captured_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		snap.MemoryID, snap.Version, snap.Content, marshalJSON(snap.Tags), marshalJSON(snap.Metadata),
		string(snap.ContentType), snap.ChangeReason, snap.CapturedAt.UTC())
	if err != nil {
		return fmt.Errorf("create version snapshot: %w", err)
	}
	return nil
}

func scanVersion(row interface{ Scan(...any) error }) (*types.VersionSnapshot, error) {
	var v types.VersionSnapshot
	var tags, metadata, contentType string
	var id int64
	if err := row.Scan(&id, &v.MemoryID, &v.Version, &v.Content, &tags, &metadata, &contentType, &v.ChangeReason, &v.CapturedAt); err != nil {
		return nil, err
	}
	v.Tags = unmarshalTags(tags)
	v.Metadata = unmarshalMap(metadata)
	v.ContentType = types.ContentType(contentType)
	return &v, nil
}

const versionColumns = `id, memory_id, version, content, tags, metadata, content_type, change_reason, captured_at`

func (d *DB) GetHistory(ctx context.Context, entryID string) (*types.History, error) {
	rows, err := d.conn().QueryContext(ctx,
		"SELECT "+versionColumns+" FROM memory_versions WHERE memory_id = ? ORDER BY version DESC", entryID)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	defer rows.Close()
	h := &types.History{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		h.Snapshots = append(h.Snapshots, *v)
		if v.Version > h.CurrentVersion {
			h.CurrentVersion = v.Version
		}
	}
	h.TotalVersions = int64(len(h.Snapshots)) + 1
	return h, rows.Err()
}

func (d *DB) GetVersion(ctx context.Context, entryID string, version int64) (*types.VersionSnapshot, error) {
	row := d.conn().QueryRowContext(ctx,
		"SELECT "+versionColumns+" FROM memory_versions WHERE memory_id = ? AND version = ?", entryID, version)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	return v, nil
}

// PruneVersions keeps the newest `keep` snapshots for entryID and deletes the
// rest, returning the count deleted.
func (d *DB) PruneVersions(ctx context.Context, entryID string, keep int) (int, error) {
	res, err := d.conn().ExecContext(ctx, `
		DELETE FROM memory_versions WHERE memory_id = ? AND id NOT IN (
			SELECT id FROM memory_versions WHERE memory_id = ? ORDER BY version DESC LIMIT ?
		)`, entryID, entryID, keep)
	if err != nil {
		return 0, fmt.Errorf("prune versions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
