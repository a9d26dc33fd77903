package sqlite

import (
	"fmt"

	"context"

	"github.com/fenwick-labs/memoria/internal/storage"
	"github.com/fenwick-labs/memoria/internal/types"
)

// KeywordSearch ranks by FTS5's bm25() auxiliary function; lower is better,
// matching storage.KeywordHit's documented ordering. The query text is
// expected to already be tokenizer-escaped phrase syntax (internal/tokenizer).
func (d *DB) KeywordSearch(ctx context.Context, phrase string, k int, f types.ListFilters) ([]storage.KeywordHit, error) {
	where, args := listFilterSQL(f)
	joinWhere := where
	if joinWhere == "" {
		joinWhere = "WHERE 1=1"
	}
	q := fmt.Sprintf(`
		SELECT m.id, bm25(memories_fts) AS rank
		FROM memories_fts
		JOIN memories m ON m.rowid = memories_fts.rowid
		%s AND memories_fts MATCH ?
		ORDER BY rank ASC
		LIMIT ?`, joinWhere)
	queryArgs := append(append([]any{}, args...), phrase, k)
	rows, err := d.conn().QueryContext(ctx, q, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()
	var out []storage.KeywordHit
	for rows.Next() {
		var id string
		var rank float64
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, err
		}
		out = append(out, storage.KeywordHit{EntryID: id, Rank: rank})
	}
	return out, rows.Err()
}
