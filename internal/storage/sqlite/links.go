package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fenwick-labs/memoria/internal/types"
)

func (d *DB) CreateLink(ctx context.Context, l *types.Link) error {
	_, err := d.conn().ExecContext(ctx, `
		INSERT INTO memory_links (source_id, target_id, link_type, metadata, strength, cascade_on_update, cascade_on_delete, created_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(source_id, target_id, link_type) DO UPDATE SET
			metadata = excluded.metadata, strength = excluded.strength,
			cascade_on_update = excluded.cascade_on_update, cascade_on_delete = excluded.cascade_on_delete`,
		l.SourceID, l.TargetID, string(l.LinkType), marshalJSON(l.Metadata), l.Strength,
		l.CascadeOnUpdate, l.CascadeOnDelete, l.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("create link: %w", err)
	}
	return nil
}

func (d *DB) DeleteLink(ctx context.Context, sourceID, targetID string, linkType types.LinkType) error {
	_, err := d.conn().ExecContext(ctx,
		"DELETE FROM memory_links WHERE source_id = ? AND target_id = ? AND link_type = ?",
		sourceID, targetID, string(linkType))
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return nil
}

func scanLink(row interface{ Scan(...any) error }) (*types.Link, error) {
	var l types.Link
	var metadata, linkType string
	var cascadeUpdate, cascadeDelete int
	err := row.Scan(&l.SourceID, &l.TargetID, &linkType, &metadata, &l.Strength, &cascadeUpdate, &cascadeDelete, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	l.LinkType = types.LinkType(linkType)
	l.Metadata = unmarshalMap(metadata)
	l.CascadeOnUpdate = cascadeUpdate != 0
	l.CascadeOnDelete = cascadeDelete != 0
	return &l, nil
}

const linkColumns = `source_id, target_id, link_type, metadata, strength, cascade_on_update, cascade_on_delete, created_at`

func (d *DB) GetLinks(ctx context.Context, entryID string, dir types.LinkDirection) ([]*types.Link, error) {
	var q string
	switch dir {
	case types.DirectionOutgoing:
		q = "SELECT " + linkColumns + " FROM memory_links WHERE source_id = ?"
	case types.DirectionIncoming:
		q = "SELECT " + linkColumns + " FROM memory_links WHERE target_id = ?"
	default:
		q = "SELECT " + linkColumns + " FROM memory_links WHERE source_id = ? OR target_id = ?"
	}
	var rows *sql.Rows
	var err error
	if dir == types.DirectionBoth {
		rows, err = d.conn().QueryContext(ctx, q, entryID, entryID)
	} else {
		rows, err = d.conn().QueryContext(ctx, q, entryID)
	}
	if err != nil {
		return nil, fmt.Errorf("get links: %w", err)
	}
	defer rows.Close()
	var out []*types.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (d *DB) GetAllLinks(ctx context.Context, namespace string) ([]*types.Link, error) {
	q := `SELECT ` + linkColumns + ` FROM memory_links l
		JOIN memories m ON m.id = l.source_id`
	var args []any
	if namespace != "" {
		q += " WHERE m.namespace = ?"
		args = append(args, namespace)
	}
	rows, err := d.conn().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get all links: %w", err)
	}
	defer rows.Close()
	var out []*types.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
