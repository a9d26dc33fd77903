package sqlite

import (
	"context"

	"github.com/fenwick-labs/memoria/internal/storage"
	"github.com/fenwick-labs/memoria/internal/types"
)

// txHandle forwards the storage.Transaction subset straight to *DB's own
// methods: those methods already read the in-flight *sql.Tx through conn(),
// so no separate transactional code path is needed here.
var _ storage.Transaction = txHandle{}

func (h txHandle) CreateEntry(ctx context.Context, e *types.Entry) error { return h.d.CreateEntry(ctx, e) }
func (h txHandle) GetEntry(ctx context.Context, id string) (*types.Entry, error) {
	return h.d.GetEntry(ctx, id)
}
func (h txHandle) UpdateEntry(ctx context.Context, id string, fields map[string]any) error {
	return h.d.UpdateEntry(ctx, id, fields)
}
func (h txHandle) DeleteEntry(ctx context.Context, id string) error { return h.d.DeleteEntry(ctx, id) }
func (h txHandle) TouchAccess(ctx context.Context, id string, accessType types.AccessType, at int64) error {
	return h.d.TouchAccess(ctx, id, accessType, at)
}
func (h txHandle) PutEmbedding(ctx context.Context, entryID string, vector []float32) error {
	return h.d.PutEmbedding(ctx, entryID, vector)
}
func (h txHandle) DeleteEmbedding(ctx context.Context, entryID string) error {
	return h.d.DeleteEmbedding(ctx, entryID)
}
func (h txHandle) CreateLink(ctx context.Context, l *types.Link) error { return h.d.CreateLink(ctx, l) }
func (h txHandle) DeleteLink(ctx context.Context, sourceID, targetID string, linkType types.LinkType) error {
	return h.d.DeleteLink(ctx, sourceID, targetID, linkType)
}
func (h txHandle) CreateVersionSnapshot(ctx context.Context, snap *types.VersionSnapshot) error {
	return h.d.CreateVersionSnapshot(ctx, snap)
}
func (h txHandle) CreateNotification(ctx context.Context, n *types.DependencyNotification) error {
	return h.d.CreateNotification(ctx, n)
}
