// Package memory implements the entry lifecycle operations: store, get,
// update, delete, list, and their batch variants, plus namespace resolution
// and the agent/message/shared-context surface.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fenwick-labs/memoria/internal/embedding"
	"github.com/fenwick-labs/memoria/internal/importance"
	"github.com/fenwick-labs/memoria/internal/obslog"
	"github.com/fenwick-labs/memoria/internal/storage"
	"github.com/fenwick-labs/memoria/internal/types"
	"github.com/fenwick-labs/memoria/internal/versioning"
)

// ttlSweeperDrainTimeout bounds how long Close waits for the TTL sweeper
// goroutine to exit, mirroring cache.Cache's shutdown contract.
const ttlSweeperDrainTimeout = 5 * time.Second

// Service orchestrates entry CRUD over a Storage backend and an embedding
// Provider. It holds no state of its own beyond its collaborators, aside
// from the optional background TTL sweeper started by StartTTLSweeper.
type Service struct {
	store            storage.Storage
	embedder         embedding.Provider
	maxContentLength int
	batchMaxSize     int
	accessRateLimit  time.Duration

	sweepCancel context.CancelFunc
	sweepWG     sync.WaitGroup
}

// New builds a Service. maxContentLength enforces the configured
// max_content_length (0 disables it); batchMaxSize caps the size of a
// BatchStore/BatchUpdate call (0 disables it); accessRateLimit is the
// window RateLimitedTouch collapses repeated get/search hits into one
// logged access.
func New(store storage.Storage, embedder embedding.Provider, maxContentLength, batchMaxSize int, accessRateLimit time.Duration) *Service {
	return &Service{
		store:            store,
		embedder:         embedder,
		maxContentLength: maxContentLength,
		batchMaxSize:     batchMaxSize,
		accessRateLimit:  accessRateLimit,
	}
}

// resolveNamespace applies namespace precedence: explicit request namespace,
// else the empty default, with "shared" requiring AllowShared.
func (s *Service) resolveNamespace(req types.StoreRequest) (string, error) {
	ns := req.Namespace
	if ns == "" {
		ns = types.DefaultNamespace
	}
	if ns == types.SharedNamespace && !req.AllowShared {
		return "", types.Validationf("writing to the shared namespace requires allow_shared=true")
	}
	return ns, nil
}

func (s *Service) validateStore(req types.StoreRequest) error {
	if req.Content == "" {
		return types.Validationf("content must not be empty")
	}
	if s.maxContentLength > 0 && len(req.Content) > s.maxContentLength {
		return types.Validationf("content exceeds max_content_length (%d bytes)", s.maxContentLength)
	}
	if req.Tier != "" && !types.ValidTier(req.Tier) {
		return types.Validationf("invalid tier %q", req.Tier)
	}
	if req.ContentType != "" && !types.ValidContentType(req.ContentType) {
		return types.Validationf("invalid content_type %q", req.ContentType)
	}
	return nil
}

// buildEntry assembles a new Entry from req, applying tier/content-type
// defaults and the TTL-to-ExpiresAt conversion. The embedding vector is
// supplied separately so callers can batch-embed across several entries.
func (s *Service) buildEntry(req types.StoreRequest, ns string) *types.Entry {
	now := time.Now().UTC()
	tier := req.Tier
	if tier == "" {
		tier = types.TierLongTerm
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = types.ContentText
	}
	e := &types.Entry{
		ID:              uuid.NewString(),
		Content:         req.Content,
		ContentType:     contentType,
		Tier:            tier,
		Tags:            req.Tags,
		Metadata:        req.Metadata,
		AgentID:         req.AgentID,
		CreatedAt:       now,
		UpdatedAt:       now,
		ImportanceScore: importance.InitialScore(tier),
		Namespace:       ns,
		Version:         1,
	}
	if req.TTLSeconds != nil {
		exp := now.Add(time.Duration(*req.TTLSeconds) * time.Second)
		e.ExpiresAt = &exp
	}
	return e
}

// Store creates a new entry, embeds its content, and persists both in one
// transaction.
func (s *Service) Store(ctx context.Context, req types.StoreRequest) (*types.Entry, error) {
	if err := s.validateStore(req); err != nil {
		return nil, err
	}
	ns, err := s.resolveNamespace(req)
	if err != nil {
		return nil, err
	}
	e := s.buildEntry(req, ns)

	vec, err := s.embedder.Embed(ctx, req.Content, false)
	if err != nil {
		return nil, types.Dependencyf(err, "embed content")
	}

	err = s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if err := tx.CreateEntry(ctx, e); err != nil {
			return types.Storagef(err, "create entry")
		}
		if err := tx.PutEmbedding(ctx, e.ID, vec); err != nil {
			return types.Storagef(err, "put embedding")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Get fetches an entry by ID and rate-limit-logs the access.
func (s *Service) Get(ctx context.Context, id string) (*types.Entry, error) {
	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, types.Storagef(err, "get entry")
	}
	if e == nil {
		return nil, types.NotFoundf("entry %s not found", id)
	}
	if err := importance.RateLimitedTouch(ctx, s.store, id, types.AccessGet, s.accessRateLimit); err != nil {
		return nil, err
	}
	return e, nil
}

// Update applies a whitelisted set of field changes, snapshotting the
// pre-image first. A changed content field
// regenerates the document embedding.
func (s *Service) Update(ctx context.Context, id string, req types.UpdateRequest) (*types.Entry, error) {
	e, err := versioning.ApplyUpdate(ctx, s.store, id, req)
	if err != nil {
		return nil, err
	}
	if req.Content != nil {
		vec, err := s.embedder.Embed(ctx, *req.Content, false)
		if err != nil {
			return nil, types.Dependencyf(err, "re-embed updated content")
		}
		if err := s.store.PutEmbedding(ctx, id, vec); err != nil {
			return nil, types.Storagef(err, "replace embedding")
		}
	}
	return e, nil
}

// Delete removes an entry and its embedding.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if err := tx.DeleteEmbedding(ctx, id); err != nil {
			return types.Storagef(err, "delete embedding")
		}
		if err := tx.DeleteEntry(ctx, id); err != nil {
			return types.Storagef(err, "delete entry")
		}
		return nil
	})
}

// DeleteByTier removes every entry in namespace (all namespaces if empty)
// whose tier matches, returning the deleted ids.
func (s *Service) DeleteByTier(ctx context.Context, namespace string, tier types.Tier) ([]string, error) {
	if !types.ValidTier(tier) {
		return nil, types.Validationf("invalid tier %q", tier)
	}
	ids, err := s.store.AllEntryIDs(ctx, namespace, tier)
	if err != nil {
		return nil, types.Storagef(err, "list entries by tier")
	}
	return s.deleteIDs(ctx, ids)
}

// DeleteOlderThan removes every entry in namespace (all namespaces if
// empty) created before cutoff, returning the deleted ids.
func (s *Service) DeleteOlderThan(ctx context.Context, namespace string, cutoff time.Time) ([]string, error) {
	ids, err := s.store.EntryIDsCreatedBefore(ctx, namespace, cutoff)
	if err != nil {
		return nil, types.Storagef(err, "list entries older than cutoff")
	}
	return s.deleteIDs(ctx, ids)
}

func (s *Service) deleteIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	deleted, err := s.store.DeleteEntries(ctx, ids)
	if err != nil {
		return deleted, types.Storagef(err, "delete entries")
	}
	return deleted, nil
}

// List returns entries matching f along with the total matching count
// (ignoring Limit/Offset), for pagination.
func (s *Service) List(ctx context.Context, f types.ListFilters) ([]*types.Entry, int, error) {
	entries, total, err := s.store.ListEntries(ctx, f)
	if err != nil {
		return nil, 0, types.Storagef(err, "list entries")
	}
	return entries, total, nil
}

// checkBatchSize rejects a batch outright, before anything is attempted,
// once it exceeds the configured batch_max_size.
func (s *Service) checkBatchSize(n int) error {
	if s.batchMaxSize > 0 && n > s.batchMaxSize {
		return types.ResourceExhaustedf("batch of %d items exceeds batch_max_size (%d)", n, s.batchMaxSize)
	}
	return nil
}

// BatchStore stores each request per mode's failure semantics:
// Rollback aborts and undoes everything on the first failure
// (the whole call runs inside one transaction), Continue records every
// failure and keeps going, Stop halts at the first failure but keeps prior
// successes. Content is embedded for the whole batch in a single
// EmbedBatch call before any entry is written.
func (s *Service) BatchStore(ctx context.Context, reqs []types.StoreRequest, mode types.BatchErrorMode) *types.BatchResult {
	result := &types.BatchResult{}
	if err := s.checkBatchSize(len(reqs)); err != nil {
		result.Failed = append(result.Failed, types.BatchItemResult{Err: err})
		return result
	}
	if len(reqs) == 0 {
		return result
	}

	texts := make([]string, len(reqs))
	for i, req := range reqs {
		texts[i] = req.Content
	}
	vecs, err := s.embedder.EmbedBatch(ctx, texts, false)
	if err != nil {
		result.Failed = append(result.Failed, types.BatchItemResult{Err: types.Dependencyf(err, "batch embed content")})
		return result
	}

	if mode == types.BatchRollback {
		err := s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
			for i, req := range reqs {
				e, err := s.storeWithTx(ctx, tx, req, vecs[i])
				if err != nil {
					result.Failed = append(result.Failed, types.BatchItemResult{Index: i, Err: err})
					return err
				}
				result.Succeeded = append(result.Succeeded, *e)
			}
			return nil
		})
		if err != nil {
			result.Aborted = true
			result.Succeeded = nil
		}
		return result
	}

	for i, req := range reqs {
		e, err := s.storeWithVec(ctx, req, vecs[i])
		if err != nil {
			result.Failed = append(result.Failed, types.BatchItemResult{Index: i, Err: err})
			if mode == types.BatchStop {
				break
			}
			continue
		}
		result.Succeeded = append(result.Succeeded, *e)
	}
	return result
}

// storeWithTx is storeWithVec's transactional variant, used inside an
// already-open transaction (BatchRollback mode).
func (s *Service) storeWithTx(ctx context.Context, tx storage.Transaction, req types.StoreRequest, vec []float32) (*types.Entry, error) {
	if err := s.validateStore(req); err != nil {
		return nil, err
	}
	ns, err := s.resolveNamespace(req)
	if err != nil {
		return nil, err
	}
	e := s.buildEntry(req, ns)
	if err := tx.CreateEntry(ctx, e); err != nil {
		return nil, types.Storagef(err, "create entry")
	}
	if err := tx.PutEmbedding(ctx, e.ID, vec); err != nil {
		return nil, types.Storagef(err, "put embedding")
	}
	return e, nil
}

// storeWithVec stores req using a precomputed embedding vector, in its own
// transaction.
func (s *Service) storeWithVec(ctx context.Context, req types.StoreRequest, vec []float32) (*types.Entry, error) {
	if err := s.validateStore(req); err != nil {
		return nil, err
	}
	ns, err := s.resolveNamespace(req)
	if err != nil {
		return nil, err
	}
	e := s.buildEntry(req, ns)
	err = s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if err := tx.CreateEntry(ctx, e); err != nil {
			return types.Storagef(err, "create entry")
		}
		if err := tx.PutEmbedding(ctx, e.ID, vec); err != nil {
			return types.Storagef(err, "put embedding")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// BatchUpdate mirrors BatchStore's error-mode semantics for updates.
func (s *Service) BatchUpdate(ctx context.Context, ids []string, req types.UpdateRequest, mode types.BatchErrorMode) *types.BatchResult {
	result := &types.BatchResult{}
	if err := s.checkBatchSize(len(ids)); err != nil {
		result.Failed = append(result.Failed, types.BatchItemResult{Err: err})
		return result
	}
	if mode == types.BatchRollback {
		err := s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
			for i, id := range ids {
				e, err := s.Update(ctx, id, req)
				if err != nil {
					result.Failed = append(result.Failed, types.BatchItemResult{Index: i, ID: id, Err: err})
					return err
				}
				result.Succeeded = append(result.Succeeded, *e)
			}
			return nil
		})
		if err != nil {
			result.Aborted = true
			result.Succeeded = nil
		}
		return result
	}
	for i, id := range ids {
		e, err := s.Update(ctx, id, req)
		if err != nil {
			result.Failed = append(result.Failed, types.BatchItemResult{Index: i, ID: id, Err: err})
			if mode == types.BatchStop || mode == types.BatchRollback {
				if mode == types.BatchRollback {
					result.Aborted = true
					result.Succeeded = nil
				}
				break
			}
			continue
		}
		result.Succeeded = append(result.Succeeded, *e)
	}
	return result
}

// RegisterAgent upserts an agent record, stamping CreatedAt/LastSeenAt if
// unset.
func (s *Service) RegisterAgent(ctx context.Context, a *types.Agent) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.LastSeenAt = &now
	if err := s.store.UpsertAgent(ctx, a); err != nil {
		return types.Storagef(err, "upsert agent")
	}
	return nil
}

// ListAgents returns every registered agent.
func (s *Service) ListAgents(ctx context.Context) ([]*types.Agent, error) {
	agents, err := s.store.ListAgents(ctx)
	if err != nil {
		return nil, types.Storagef(err, "list agents")
	}
	return agents, nil
}

// SendMessage delivers content into toAgent's inbox.
func (s *Service) SendMessage(ctx context.Context, fromAgent, toAgent, content string) (*types.Message, error) {
	if toAgent == "" {
		return nil, types.Validationf("to-agent must not be empty")
	}
	m := &types.Message{
		ID: uuid.NewString(), FromAgent: fromAgent, ToAgent: toAgent,
		Content: content, CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateMessage(ctx, m); err != nil {
		return nil, types.Storagef(err, "create message")
	}
	return m, nil
}

// ListMessages returns messages addressed to toAgent, optionally filtered
// to unread only, oldest first up to limit.
func (s *Service) ListMessages(ctx context.Context, toAgent string, unreadOnly bool, limit int) ([]*types.Message, error) {
	msgs, err := s.store.ListMessages(ctx, toAgent, unreadOnly, limit)
	if err != nil {
		return nil, types.Storagef(err, "list messages")
	}
	return msgs, nil
}

// MarkMessagesRead stamps read_at on the given message ids.
func (s *Service) MarkMessagesRead(ctx context.Context, ids []string) error {
	if err := s.store.MarkMessagesRead(ctx, ids); err != nil {
		return types.Storagef(err, "mark messages read")
	}
	return nil
}

// SaveSharedContext persists a named set of memory ids for cross-agent
// recall.
func (s *Service) SaveSharedContext(ctx context.Context, namespace, name string, memoryIDs []string) (*types.SharedContext, error) {
	if name == "" {
		return nil, types.Validationf("name must not be empty")
	}
	sc := &types.SharedContext{
		ID: uuid.NewString(), Name: name, Namespace: namespace,
		MemoryIDs: memoryIDs, CreatedAt: time.Now().UTC(),
	}
	if err := s.store.PutSharedContext(ctx, sc); err != nil {
		return nil, types.Storagef(err, "put shared context")
	}
	return sc, nil
}

// LoadSharedContext fetches a named shared context, or nil if absent.
func (s *Service) LoadSharedContext(ctx context.Context, namespace, name string) (*types.SharedContext, error) {
	sc, err := s.store.GetSharedContext(ctx, namespace, name)
	if err != nil {
		return nil, types.Storagef(err, "get shared context")
	}
	return sc, nil
}

// ListSharedContexts returns every saved shared context.
func (s *Service) ListSharedContexts(ctx context.Context) ([]*types.SharedContext, error) {
	contexts, err := s.store.ListSharedContexts(ctx)
	if err != nil {
		return nil, types.Storagef(err, "list shared contexts")
	}
	return contexts, nil
}

// sweepExpired deletes every entry past its ExpiresAt, across all
// namespaces, logging rather than propagating a failure since it runs
// off the ticker with no caller to report to.
func (s *Service) sweepExpired(ctx context.Context) {
	ids, err := s.store.EntryIDsExpiredBefore(ctx, time.Now().UTC())
	if err != nil {
		obslog.L().Warn("ttl sweep: list expired entries", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}
	deleted, err := s.deleteIDs(ctx, ids)
	if err != nil {
		obslog.L().Warn("ttl sweep: delete expired entries", "error", err, "deleted", len(deleted))
		return
	}
	obslog.L().Info("ttl sweep: deleted expired entries", "count", len(deleted))
}

// StartTTLSweeper launches the background expiry sweeper, running every
// interval (falling back to a minute if interval<=0). Call Close to stop
// it. A second call is a no-op, matching cache.Cache.StartSweeper.
func (s *Service) StartTTLSweeper(ctx context.Context, interval time.Duration) {
	if s.sweepCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.sweepCancel = cancel
	if interval <= 0 {
		interval = time.Minute
	}

	s.sweepWG.Add(1)
	go func() {
		defer s.sweepWG.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweepExpired(ctx)
			}
		}
	}()
}

// Close stops the TTL sweeper goroutine and waits up to
// ttlSweeperDrainTimeout for it to exit, logging rather than blocking
// forever on timeout.
func (s *Service) Close() {
	if s.sweepCancel == nil {
		return
	}
	s.sweepCancel()
	done := make(chan struct{})
	go func() {
		s.sweepWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(ttlSweeperDrainTimeout):
		obslog.L().Warn("ttl sweeper did not exit within drain timeout", "timeout", ttlSweeperDrainTimeout)
	}
	s.sweepCancel = nil
}
