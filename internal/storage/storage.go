// Package storage defines the interface for memory storage backends.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/fenwick-labs/memoria/internal/types"
)

// ErrNotInitialized is returned when a storage feature is used before Open
// has run migrations to completion.
var ErrNotInitialized = errors.New("storage not initialized")

// VectorHit is one nearest-neighbor result from a vector search, ranked by
// ascending cosine distance (descending similarity).
type VectorHit struct {
	EntryID    string
	Similarity float64
}

// KeywordHit is one BM25 result from the full-text index.
type KeywordHit struct {
	EntryID string
	Rank    float64 // FTS5 bm25(), more negative is a better match
}

// ChunkVectorHit mirrors VectorHit for knowledge_chunks.
type ChunkVectorHit struct {
	ChunkID    string
	DocumentID string
	Similarity float64
}

// Transaction provides atomic multi-operation support within a single
// database transaction.
//
// # Transaction Semantics
//
//   - All operations within the transaction share the same connection
//   - Changes are not visible to other connections until commit
//   - If any operation returns an error, the transaction is rolled back
//   - If the callback panics, the transaction is rolled back
//   - On successful return from the callback, the transaction is committed
//
// # SQLite Specifics
//
//   - Uses BEGIN IMMEDIATE to acquire the write lock early, avoiding the
//     SQLITE_BUSY upgrade race that a deferred transaction risks under
//     concurrent writers
//
// Nested calls to RunInTransaction on a Transaction collapse into the
// existing transaction rather than opening a new one.
type Transaction interface {
	// Entries
	CreateEntry(ctx context.Context, e *types.Entry) error
	GetEntry(ctx context.Context, id string) (*types.Entry, error)
	UpdateEntry(ctx context.Context, id string, fields map[string]any) error
	DeleteEntry(ctx context.Context, id string) error
	TouchAccess(ctx context.Context, id string, accessType types.AccessType, at int64) error

	// Embeddings
	PutEmbedding(ctx context.Context, entryID string, vector []float32) error
	DeleteEmbedding(ctx context.Context, entryID string) error

	// Links
	CreateLink(ctx context.Context, l *types.Link) error
	DeleteLink(ctx context.Context, sourceID, targetID string, linkType types.LinkType) error

	// Versions
	CreateVersionSnapshot(ctx context.Context, snap *types.VersionSnapshot) error

	// Notifications
	CreateNotification(ctx context.Context, n *types.DependencyNotification) error
}

// Storage defines the interface for memory storage backends.
type Storage interface {
	// Entries
	CreateEntry(ctx context.Context, e *types.Entry) error
	GetEntry(ctx context.Context, id string) (*types.Entry, error)
	GetEntries(ctx context.Context, ids []string) ([]*types.Entry, error)
	UpdateEntry(ctx context.Context, id string, fields map[string]any) error
	DeleteEntry(ctx context.Context, id string) error
	DeleteEntries(ctx context.Context, ids []string) ([]string, error)
	ListEntries(ctx context.Context, f types.ListFilters) ([]*types.Entry, int, error)
	TouchAccess(ctx context.Context, id string, accessType types.AccessType, at int64) error
	LastAccessLogTime(ctx context.Context, id string, accessType types.AccessType) (int64, bool, error)
	CountEntries(ctx context.Context, namespace string) (int, error)
	AllEntryIDs(ctx context.Context, namespace string, tier types.Tier) ([]string, error)
	EntryIDsCreatedBefore(ctx context.Context, namespace string, before time.Time) ([]string, error)
	EntryIDsExpiredBefore(ctx context.Context, before time.Time) ([]string, error)

	// Embeddings
	PutEmbedding(ctx context.Context, entryID string, vector []float32) error
	GetEmbedding(ctx context.Context, entryID string) ([]float32, error)
	DeleteEmbedding(ctx context.Context, entryID string) error
	SemanticKNN(ctx context.Context, vector []float32, k int, f types.ListFilters) ([]VectorHit, error)
	AllEmbeddings(ctx context.Context, namespace string) (map[string][]float32, error)

	// Full text
	KeywordSearch(ctx context.Context, phrase string, k int, f types.ListFilters) ([]KeywordHit, error)

	// Links
	CreateLink(ctx context.Context, l *types.Link) error
	DeleteLink(ctx context.Context, sourceID, targetID string, linkType types.LinkType) error
	GetLinks(ctx context.Context, entryID string, dir types.LinkDirection) ([]*types.Link, error)
	GetAllLinks(ctx context.Context, namespace string) ([]*types.Link, error)

	// Notifications
	CreateNotification(ctx context.Context, n *types.DependencyNotification) error
	PendingNotifications(ctx context.Context, targetID string) ([]*types.DependencyNotification, error)
	MarkNotificationsProcessed(ctx context.Context, ids []int64) error

	// Versions
	CreateVersionSnapshot(ctx context.Context, snap *types.VersionSnapshot) error
	GetHistory(ctx context.Context, entryID string) (*types.History, error)
	GetVersion(ctx context.Context, entryID string, version int64) (*types.VersionSnapshot, error)
	PruneVersions(ctx context.Context, entryID string, keep int) (int, error)

	// Schemas
	PutSchema(ctx context.Context, s *types.MemorySchema) error
	GetSchema(ctx context.Context, namespace, name string) (*types.MemorySchema, error)
	ListSchemas(ctx context.Context, namespace string) ([]*types.MemorySchema, error)
	DeleteSchema(ctx context.Context, namespace, name string) error

	// Decay
	GetDecayConfig(ctx context.Context) (*types.DecayConfig, error)
	PutDecayConfig(ctx context.Context, c *types.DecayConfig) error
	AppendDecayLog(ctx context.Context, l *types.DecayLog) error
	DecayCandidates(ctx context.Context, cfg *types.DecayConfig, now int64, limit int) ([]*types.Entry, error)

	// Knowledge
	CreateDocument(ctx context.Context, d *types.KnowledgeDocument) error
	GetDocument(ctx context.Context, id string) (*types.KnowledgeDocument, error)
	ListDocuments(ctx context.Context) ([]*types.KnowledgeDocument, error)
	DeleteDocument(ctx context.Context, id string) error
	CreateChunks(ctx context.Context, chunks []*types.KnowledgeChunk) error
	GetChunks(ctx context.Context, documentID string) ([]*types.KnowledgeChunk, error)
	PutChunkEmbedding(ctx context.Context, chunkID string, vector []float32) error
	GetChunkEmbedding(ctx context.Context, chunkID string) ([]float32, error)
	ChunkSemanticKNN(ctx context.Context, vector []float32, k int, documentID string) ([]ChunkVectorHit, error)

	// Agents / messages / shared contexts 
	UpsertAgent(ctx context.Context, a *types.Agent) error
	GetAgent(ctx context.Context, id string) (*types.Agent, error)
	ListAgents(ctx context.Context) ([]*types.Agent, error)
	CreateMessage(ctx context.Context, m *types.Message) error
	ListMessages(ctx context.Context, toAgent string, unreadOnly bool, limit int) ([]*types.Message, error)
	ListAllMessages(ctx context.Context) ([]*types.Message, error)
	MarkMessagesRead(ctx context.Context, ids []string) error
	PutSharedContext(ctx context.Context, sc *types.SharedContext) error
	GetSharedContext(ctx context.Context, namespace, name string) (*types.SharedContext, error)
	ListSharedContexts(ctx context.Context) ([]*types.SharedContext, error)

	// Transactions
	//
	// RunInTransaction executes fn within a single database transaction.
	// If fn returns nil the transaction commits; if it returns an error or
	// panics the transaction rolls back and the panic is re-raised.
	RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error

	// Wipe clears every main table in one transaction; cascade foreign keys
	// take care of dependents (embeddings, links, versions, chunks). Used by
	// archive import's replace mode.
	Wipe(ctx context.Context) error

	// Lifecycle
	Close() error
	Path() string
}
