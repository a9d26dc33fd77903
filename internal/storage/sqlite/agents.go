package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fenwick-labs/memoria/internal/types"
)

func (d *DB) UpsertAgent(ctx context.Context, a *types.Agent) error {
	_, err := d.conn().ExecContext(ctx, `
		INSERT INTO agents (id, name, metadata, created_at, last_seen_at) VALUES (?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, metadata = excluded.metadata, last_seen_at = excluded.last_seen_at`,
		a.ID, a.Name, marshalJSON(a.Metadata), a.CreatedAt.UTC(), nullTime(a.LastSeenAt))
	if err != nil {
		return fmt.Errorf("upsert agent: %w", err)
	}
	return nil
}

func scanAgent(row interface{ Scan(...any) error }) (*types.Agent, error) {
	var a types.Agent
	var metadata string
	var lastSeen sql.NullTime
	if err := row.Scan(&a.ID, &a.Name, &metadata, &a.CreatedAt, &lastSeen); err != nil {
		return nil, err
	}
	a.Metadata = unmarshalMap(metadata)
	if lastSeen.Valid {
		t := lastSeen.Time
		a.LastSeenAt = &t
	}
	return &a, nil
}

func (d *DB) GetAgent(ctx context.Context, id string) (*types.Agent, error) {
	row := d.conn().QueryRowContext(ctx, "SELECT id, name, metadata, created_at, last_seen_at FROM agents WHERE id = ?", id)
	a, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

func (d *DB) ListAgents(ctx context.Context) ([]*types.Agent, error) {
	rows, err := d.conn().QueryContext(ctx, "SELECT id, name, metadata, created_at, last_seen_at FROM agents ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()
	var out []*types.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (d *DB) CreateMessage(ctx context.Context, m *types.Message) error {
	_, err := d.conn().ExecContext(ctx, `
		INSERT INTO messages (id, from_agent, to_agent, content, created_at, read_at) VALUES (?,?,?,?,?,?)`,
		m.ID, m.FromAgent, m.ToAgent, m.Content, m.CreatedAt.UTC(), nullTime(m.ReadAt))
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (d *DB) ListMessages(ctx context.Context, toAgent string, unreadOnly bool, limit int) ([]*types.Message, error) {
	q := "SELECT id, from_agent, to_agent, content, created_at, read_at FROM messages WHERE to_agent = ?"
	if unreadOnly {
		q += " AND read_at IS NULL"
	}
	q += " ORDER BY created_at ASC"
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := d.conn().QueryContext(ctx, q, toAgent)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()
	var out []*types.Message
	for rows.Next() {
		var m types.Message
		var readAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.FromAgent, &m.ToAgent, &m.Content, &m.CreatedAt, &readAt); err != nil {
			return nil, err
		}
		if readAt.Valid {
			t := readAt.Time
			m.ReadAt = &t
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (d *DB) ListAllMessages(ctx context.Context) ([]*types.Message, error) {
	rows, err := d.conn().QueryContext(ctx, "SELECT id, from_agent, to_agent, content, created_at, read_at FROM messages ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("list all messages: %w", err)
	}
	defer rows.Close()
	var out []*types.Message
	for rows.Next() {
		var m types.Message
		var readAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.FromAgent, &m.ToAgent, &m.Content, &m.CreatedAt, &readAt); err != nil {
			return nil, err
		}
		if readAt.Valid {
			t := readAt.Time
			m.ReadAt = &t
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (d *DB) MarkMessagesRead(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := d.conn().ExecContext(ctx, "UPDATE messages SET read_at = CURRENT_TIMESTAMP WHERE id = ?", id); err != nil {
			return fmt.Errorf("mark message read: %w", err)
		}
	}
	return nil
}

func (d *DB) PutSharedContext(ctx context.Context, sc *types.SharedContext) error {
	_, err := d.conn().ExecContext(ctx, `
		INSERT INTO shared_contexts (id, name, namespace, memory_ids, created_at) VALUES (?,?,?,?,?)
		ON CONFLICT(namespace, name) DO UPDATE SET memory_ids = excluded.memory_ids`,
		sc.ID, sc.Name, sc.Namespace, marshalJSON(sc.MemoryIDs), sc.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("put shared context: %w", err)
	}
	return nil
}

func (d *DB) GetSharedContext(ctx context.Context, namespace, name string) (*types.SharedContext, error) {
	row := d.conn().QueryRowContext(ctx,
		"SELECT id, name, namespace, memory_ids, created_at FROM shared_contexts WHERE namespace = ? AND name = ?", namespace, name)
	var sc types.SharedContext
	var memoryIDs string
	err := row.Scan(&sc.ID, &sc.Name, &sc.Namespace, &memoryIDs, &sc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shared context: %w", err)
	}
	sc.MemoryIDs = unmarshalTags(memoryIDs)
	return &sc, nil
}

func (d *DB) ListSharedContexts(ctx context.Context) ([]*types.SharedContext, error) {
	rows, err := d.conn().QueryContext(ctx, "SELECT id, name, namespace, memory_ids, created_at FROM shared_contexts ORDER BY namespace ASC, name ASC")
	if err != nil {
		return nil, fmt.Errorf("list shared contexts: %w", err)
	}
	defer rows.Close()
	var out []*types.SharedContext
	for rows.Next() {
		var sc types.SharedContext
		var memoryIDs string
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.Namespace, &memoryIDs, &sc.CreatedAt); err != nil {
			return nil, err
		}
		sc.MemoryIDs = unmarshalTags(memoryIDs)
		out = append(out, &sc)
	}
	return out, rows.Err()
}
