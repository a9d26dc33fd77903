package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fenwick-labs/memoria/internal/types"
)

func (d *DB) CreateNotification(ctx context.Context, n *types.DependencyNotification) error {
	_, err := d.conn().ExecContext(ctx, `
		INSERT INTO dependency_notifications (source_id, target_id, notification_type, metadata, created_at)
		VALUES (?,?,?,?,?)`,
		n.SourceID, n.TargetID, string(n.NotificationType), marshalJSON(n.Metadata), n.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (d *DB) PendingNotifications(ctx context.Context, targetID string) ([]*types.DependencyNotification, error) {
	rows, err := d.conn().QueryContext(ctx, `
		SELECT id, source_id, target_id, notification_type, metadata, created_at, processed_at
		FROM dependency_notifications WHERE target_id = ? AND processed_at IS NULL
		ORDER BY created_at ASC`, targetID)
	if err != nil {
		return nil, fmt.Errorf("pending notifications: %w", err)
	}
	defer rows.Close()
	var out []*types.DependencyNotification
	for rows.Next() {
		var n types.DependencyNotification
		var notificationType, metadata string
		var processedAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.SourceID, &n.TargetID, &notificationType, &metadata, &n.CreatedAt, &processedAt); err != nil {
			return nil, err
		}
		n.NotificationType = types.NotificationType(notificationType)
		n.Metadata = unmarshalMap(metadata)
		if processedAt.Valid {
			t := processedAt.Time
			n.ProcessedAt = &t
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (d *DB) MarkNotificationsProcessed(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		if _, err := d.conn().ExecContext(ctx,
			"UPDATE dependency_notifications SET processed_at = CURRENT_TIMESTAMP WHERE id = ?", id); err != nil {
			return fmt.Errorf("mark notification processed: %w", err)
		}
	}
	return nil
}
