package sqlite

import (
	"context"
	"fmt"

	"github.com/fenwick-labs/memoria/internal/storage"
)

// Wipe clears every main table in one transaction (used by archive import,
// replace mode). Deleting memories and knowledge_documents cascades their
// dependents (embeddings, links, versions, notifications, chunks); the
// remaining tables carry no foreign keys into those two and are cleared
// directly.
func (d *DB) Wipe(ctx context.Context) error {
	return d.RunInTransaction(ctx, func(tx storage.Transaction) error {
		tables := []string{
			"memories", "knowledge_documents", "memory_schemas",
			"agents", "messages", "shared_contexts", "decay_log",
		}
		for _, t := range tables {
			if _, err := d.conn().ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("wipe %s: %w", t, err)
			}
		}
		return nil
	})
}
