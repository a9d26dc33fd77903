package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fenwick-labs/memoria/internal/types"
)

func marshalJSON(v any) string {
	if v == nil {
		return "null"
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func unmarshalTags(s string) []string {
	var v []string
	json.Unmarshal([]byte(s), &v)
	return v
}

func unmarshalMap(s string) map[string]any {
	var v map[string]any
	json.Unmarshal([]byte(s), &v)
	return v
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func scanEntry(row interface{ Scan(...any) error }) (*types.Entry, error) {
	var e types.Entry
	var tags, metadata, consolidatedFrom, structuredContent string
	var expiresAt, lastAccessedAt sql.NullTime

	err := row.Scan(
		&e.ID, &e.Content, &e.ContentType, &e.Tier, &tags, &metadata,
		&e.AgentID, &e.CreatedAt, &e.UpdatedAt, &expiresAt,
		&e.ImportanceScore, &e.AccessCount, &lastAccessedAt, &consolidatedFrom,
		&e.Namespace, &e.SchemaID, &structuredContent, &e.Version,
	)
	if err != nil {
		return nil, err
	}
	e.Tags = unmarshalTags(tags)
	e.Metadata = unmarshalMap(metadata)
	e.ConsolidatedFrom = unmarshalTags(consolidatedFrom)
	e.StructuredContent = unmarshalMap(structuredContent)
	if expiresAt.Valid {
		t := expiresAt.Time
		e.ExpiresAt = &t
	}
	if lastAccessedAt.Valid {
		t := lastAccessedAt.Time
		e.LastAccessedAt = &t
	}
	return &e, nil
}

const entryColumns = `id, content, content_type, tier, tags, metadata, agent_id, created_at,
	updated_at, expires_at, importance_score, access_count, last_accessed_at,
	consolidated_from, namespace, schema_id, structured_content, version`

func (d *DB) CreateEntry(ctx context.Context, e *types.Entry) error {
	_, err := d.conn().ExecContext(ctx, `
		INSERT INTO memories (id, content, content_type, tier, tags, metadata, agent_id,
			created_at, updated_at, expires_at, importance_score, access_count,
			last_accessed_at, consolidated_from, namespace, schema_id, structured_content, version)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.Content, string(e.ContentType), string(e.Tier), marshalJSON(e.Tags), marshalJSON(e.Metadata),
		e.AgentID, e.CreatedAt.UTC(), e.UpdatedAt.UTC(), nullTime(e.ExpiresAt),
		e.ImportanceScore, e.AccessCount, nullTime(e.LastAccessedAt), marshalJSON(e.ConsolidatedFrom),
		e.Namespace, e.SchemaID, marshalJSON(e.StructuredContent), e.Version,
	)
	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	return nil
}

func (d *DB) GetEntry(ctx context.Context, id string) (*types.Entry, error) {
	row := d.conn().QueryRowContext(ctx, "SELECT "+entryColumns+" FROM memories WHERE id = ?", id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

func (d *DB) GetEntries(ctx context.Context, ids []string) ([]*types.Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	rows, err := d.conn().QueryContext(ctx, "SELECT "+entryColumns+" FROM memories WHERE id IN ("+strings.Join(placeholders, ",")+")", args...)
	if err != nil {
		return nil, fmt.Errorf("get entries: %w", err)
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

// updatableFields whitelists the columns UpdateEntry accepts, matching the
// UpdateRequest whitelist at the service layer.
var updatableFields = map[string]bool{
	"content": true, "tags": true, "metadata": true, "tier": true,
	"expires_at": true, "importance_score": true, "schema_id": true,
	"structured_content": true, "version": true, "updated_at": true,
	"consolidated_from": true, "access_count": true, "last_accessed_at": true,
}

func (d *DB) UpdateEntry(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	var sets []string
	var args []any
	for k, v := range fields {
		if !updatableFields[k] {
			return fmt.Errorf("update entry: field %q is not updatable", k)
		}
		sets = append(sets, k+" = ?")
		switch k {
		case "tags", "metadata", "consolidated_from", "structured_content":
			args = append(args, marshalJSON(v))
		default:
			args = append(args, v)
		}
	}
	args = append(args, id)
	q := "UPDATE memories SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	res, err := d.conn().ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("update entry: %s not found", id)
	}
	return nil
}

func (d *DB) DeleteEntry(ctx context.Context, id string) error {
	_, err := d.conn().ExecContext(ctx, "DELETE FROM memories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (d *DB) DeleteEntries(ctx context.Context, ids []string) ([]string, error) {
	var deleted []string
	for _, id := range ids {
		if err := d.DeleteEntry(ctx, id); err != nil {
			return deleted, err
		}
		deleted = append(deleted, id)
	}
	return deleted, nil
}

func (d *DB) ListEntries(ctx context.Context, f types.ListFilters) ([]*types.Entry, int, error) {
	where, args := listFilterSQL(f)
	countRow := d.conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM memories "+where, args...)
	var total int
	if err := countRow.Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("list entries count: %w", err)
	}

	q := "SELECT " + entryColumns + " FROM memories " + where + " ORDER BY created_at DESC"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
		if f.Offset > 0 {
			q += fmt.Sprintf(" OFFSET %d", f.Offset)
		}
	}
	rows, err := d.conn().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()
	var out []*types.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// listFilterSQL composes a WHERE clause shared by ListEntries, SemanticKNN
// and KeywordSearch so filter semantics stay identical across search modes.
func listFilterSQL(f types.ListFilters) (string, []any) {
	var clauses []string
	var args []any
	if f.Tier != "" {
		clauses = append(clauses, "tier = ?")
		args = append(args, string(f.Tier))
	}
	if f.ContentType != "" {
		clauses = append(clauses, "content_type = ?")
		args = append(args, string(f.ContentType))
	}
	for _, tag := range f.Tags {
		clauses = append(clauses, "tags LIKE ?")
		args = append(args, "%\""+tag+"\"%")
	}
	switch f.SearchScope {
	case types.ScopeShared:
		clauses = append(clauses, "namespace = ?")
		args = append(args, types.SharedNamespace)
	case types.ScopeAll:
		// no namespace predicate
	default:
		if f.Namespace != "" {
			clauses = append(clauses, "(namespace = ? OR namespace = ?)")
			args = append(args, f.Namespace, types.SharedNamespace)
		}
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func (d *DB) TouchAccess(ctx context.Context, id string, accessType types.AccessType, at int64) error {
	accessedAt := time.Unix(at, 0).UTC()
	_, err := d.conn().ExecContext(ctx,
		"INSERT INTO memory_access_log (memory_id, access_type, accessed_at) VALUES (?,?,?)",
		id, string(accessType), accessedAt)
	if err != nil {
		return fmt.Errorf("touch access: %w", err)
	}
	_, err = d.conn().ExecContext(ctx,
		"UPDATE memories SET access_count = access_count + 1, last_accessed_at = ? WHERE id = ?",
		accessedAt, id)
	if err != nil {
		return fmt.Errorf("touch access count: %w", err)
	}
	return nil
}

func (d *DB) LastAccessLogTime(ctx context.Context, id string, accessType types.AccessType) (int64, bool, error) {
	row := d.conn().QueryRowContext(ctx,
		"SELECT accessed_at FROM memory_access_log WHERE memory_id = ? AND access_type = ? ORDER BY accessed_at DESC LIMIT 1",
		id, string(accessType))
	var t time.Time
	if err := row.Scan(&t); err == sql.ErrNoRows {
		return 0, false, nil
	} else if err != nil {
		return 0, false, fmt.Errorf("last access log time: %w", err)
	}
	return t.Unix(), true, nil
}

func (d *DB) CountEntries(ctx context.Context, namespace string) (int, error) {
	var n int
	var err error
	if namespace == "" {
		err = d.conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM memories").Scan(&n)
	} else {
		err = d.conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM memories WHERE namespace = ?", namespace).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

func (d *DB) AllEntryIDs(ctx context.Context, namespace string, tier types.Tier) ([]string, error) {
	q := "SELECT id FROM memories WHERE 1=1"
	var args []any
	if namespace != "" {
		q += " AND namespace = ?"
		args = append(args, namespace)
	}
	if tier != "" {
		q += " AND tier = ?"
		args = append(args, string(tier))
	}
	rows, err := d.conn().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("all entry ids: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (d *DB) EntryIDsCreatedBefore(ctx context.Context, namespace string, before time.Time) ([]string, error) {
	q := "SELECT id FROM memories WHERE created_at < ?"
	args := []any{before.UTC()}
	if namespace != "" {
		q += " AND namespace = ?"
		args = append(args, namespace)
	}
	rows, err := d.conn().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("entry ids created before: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (d *DB) EntryIDsExpiredBefore(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := d.conn().QueryContext(ctx,
		"SELECT id FROM memories WHERE expires_at IS NOT NULL AND expires_at < ?", before.UTC())
	if err != nil {
		return nil, fmt.Errorf("entry ids expired before: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
