package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fenwick-labs/memoria/internal/storage"
	"github.com/fenwick-labs/memoria/internal/types"
)

func (d *DB) CreateDocument(ctx context.Context, doc *types.KnowledgeDocument) error {
	_, err := d.conn().ExecContext(ctx, `
		INSERT INTO knowledge_documents (id, title, source, category, version, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?)`,
		doc.ID, doc.Title, doc.Source, doc.Category, doc.Version, doc.CreatedAt.UTC(), doc.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (d *DB) GetDocument(ctx context.Context, id string) (*types.KnowledgeDocument, error) {
	row := d.conn().QueryRowContext(ctx,
		"SELECT id, title, source, category, version, created_at, updated_at FROM knowledge_documents WHERE id = ?", id)
	var doc types.KnowledgeDocument
	err := row.Scan(&doc.ID, &doc.Title, &doc.Source, &doc.Category, &doc.Version, &doc.CreatedAt, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

func (d *DB) ListDocuments(ctx context.Context) ([]*types.KnowledgeDocument, error) {
	rows, err := d.conn().QueryContext(ctx,
		"SELECT id, title, source, category, version, created_at, updated_at FROM knowledge_documents ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	var out []*types.KnowledgeDocument
	for rows.Next() {
		var doc types.KnowledgeDocument
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Source, &doc.Category, &doc.Version, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &doc)
	}
	return out, rows.Err()
}

func (d *DB) DeleteDocument(ctx context.Context, id string) error {
	_, err := d.conn().ExecContext(ctx, "DELETE FROM knowledge_documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (d *DB) CreateChunks(ctx context.Context, chunks []*types.KnowledgeChunk) error {
	for _, c := range chunks {
		_, err := d.conn().ExecContext(ctx, `
			INSERT INTO knowledge_chunks (id, document_id, content, chunk_index, section_path, has_previous, has_next, created_at)
			VALUES (?,?,?,?,?,?,?,?)`,
			c.ID, c.DocumentID, c.Content, c.ChunkIndex, marshalJSON(c.SectionPath), c.HasPrevious, c.HasNext, c.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("create chunk: %w", err)
		}
	}
	return nil
}

func (d *DB) GetChunks(ctx context.Context, documentID string) ([]*types.KnowledgeChunk, error) {
	rows, err := d.conn().QueryContext(ctx, `
		SELECT id, document_id, content, chunk_index, section_path, has_previous, has_next, created_at
		FROM knowledge_chunks WHERE document_id = ? ORDER BY chunk_index ASC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	defer rows.Close()
	var out []*types.KnowledgeChunk
	for rows.Next() {
		var c types.KnowledgeChunk
		var sectionPath string
		var hasPrevious, hasNext int
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Content, &c.ChunkIndex, &sectionPath, &hasPrevious, &hasNext, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.SectionPath = unmarshalTags(sectionPath)
		c.HasPrevious = hasPrevious != 0
		c.HasNext = hasNext != 0
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (d *DB) PutChunkEmbedding(ctx context.Context, chunkID string, vector []float32) error {
	_, err := d.conn().ExecContext(ctx,
		"INSERT INTO chunk_embeddings (chunk_id, vector, dims) VALUES (?,?,?) ON CONFLICT(chunk_id) DO UPDATE SET vector = excluded.vector, dims = excluded.dims",
		chunkID, encodeVector(vector), len(vector))
	if err != nil {
		return fmt.Errorf("put chunk embedding: %w", err)
	}
	return nil
}

func (d *DB) GetChunkEmbedding(ctx context.Context, chunkID string) ([]float32, error) {
	var blob []byte
	err := d.conn().QueryRowContext(ctx, "SELECT vector FROM chunk_embeddings WHERE chunk_id = ?", chunkID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chunk embedding: %w", err)
	}
	return decodeVector(blob), nil
}

func (d *DB) ChunkSemanticKNN(ctx context.Context, vector []float32, k int, documentID string) ([]storage.ChunkVectorHit, error) {
	q := `SELECT ce.chunk_id, c.document_id, vec_distance_cosine(ce.vector, ?) AS dist
		FROM chunk_embeddings ce JOIN knowledge_chunks c ON c.id = ce.chunk_id`
	args := []any{encodeVector(vector)}
	if documentID != "" {
		q += " WHERE c.document_id = ?"
		args = append(args, documentID)
	}
	q += " ORDER BY dist ASC LIMIT ?"
	args = append(args, k)
	rows, err := d.conn().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("chunk semantic knn: %w", err)
	}
	defer rows.Close()
	var out []storage.ChunkVectorHit
	for rows.Next() {
		var id, docID string
		var dist float64
		if err := rows.Scan(&id, &docID, &dist); err != nil {
			return nil, err
		}
		out = append(out, storage.ChunkVectorHit{ChunkID: id, DocumentID: docID, Similarity: 1 - dist})
	}
	return out, rows.Err()
}
