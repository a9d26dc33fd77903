package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fenwick-labs/memoria/internal/types"
)

func (d *DB) GetDecayConfig(ctx context.Context) (*types.DecayConfig, error) {
	row := d.conn().QueryRowContext(ctx,
		"SELECT enabled, threshold, grace_period_days, max_delete_per_run, last_run_at FROM decay_config WHERE id = 1")
	var c types.DecayConfig
	var enabled int
	var lastRun sql.NullTime
	err := row.Scan(&enabled, &c.Threshold, &c.GracePeriodDays, &c.MaxDeletePerRun, &lastRun)
	if err == sql.ErrNoRows {
		return &types.DecayConfig{Enabled: true, Threshold: 0.2, GracePeriodDays: 30, MaxDeletePerRun: 100}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get decay config: %w", err)
	}
	c.Enabled = enabled != 0
	if lastRun.Valid {
		t := lastRun.Time
		c.LastRunAt = &t
	}
	return &c, nil
}

func (d *DB) PutDecayConfig(ctx context.Context, c *types.DecayConfig) error {
	_, err := d.conn().ExecContext(ctx, `
		INSERT INTO decay_config (id, enabled, threshold, grace_period_days, max_delete_per_run, last_run_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			enabled = excluded.enabled, threshold = excluded.threshold,
			grace_period_days = excluded.grace_period_days,
			max_delete_per_run = excluded.max_delete_per_run,
			last_run_at = excluded.last_run_at`,
		c.Enabled, c.Threshold, c.GracePeriodDays, c.MaxDeletePerRun, nullTime(c.LastRunAt))
	if err != nil {
		return fmt.Errorf("put decay config: %w", err)
	}
	return nil
}

func (d *DB) AppendDecayLog(ctx context.Context, l *types.DecayLog) error {
	_, err := d.conn().ExecContext(ctx, `
		INSERT INTO decay_log (run_at, dry_run, deleted_ids, failed_ids) VALUES (?,?,?,?)`,
		l.RunAt.UTC(), l.DryRun, marshalJSON(l.DeletedIDs), marshalJSON(l.FailedIDs))
	if err != nil {
		return fmt.Errorf("append decay log: %w", err)
	}
	return nil
}

// DecayCandidates returns entries whose importance has fallen below the
// configured threshold, which have sat past the grace period since last
// access, and which carry no explicit TTL of their own.
func (d *DB) DecayCandidates(ctx context.Context, cfg *types.DecayConfig, now int64, limit int) ([]*types.Entry, error) {
	cutoff := time.Unix(now, 0).Add(-time.Duration(cfg.GracePeriodDays) * 24 * time.Hour).UTC()
	rows, err := d.conn().QueryContext(ctx, "SELECT "+entryColumns+` FROM memories
		WHERE importance_score < ?
		AND COALESCE(last_accessed_at, created_at) < ?
		AND expires_at IS NULL
		ORDER BY importance_score ASC
		LIMIT ?`, cfg.Threshold, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("decay candidates: %w", err)
	}
	defer rows.Close()
	var out []*types.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
