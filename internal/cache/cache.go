// Package cache implements the in-memory semantic cache: an exact-key map
// plus an LSH sidecar for near-duplicate query matching, TTL+LRU eviction,
// and a background sweeper goroutine with a cancel-then-wait shutdown.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fenwick-labs/memoria/internal/embedding"
	"github.com/fenwick-labs/memoria/internal/lsh"
	"github.com/fenwick-labs/memoria/internal/obslog"
	"github.com/fenwick-labs/memoria/internal/types"
)

// Cache is a similarity-gated query cache. It is safe for concurrent
// use; all state is guarded by one mutex since the cache is small and every
// operation is cheap.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*types.CacheEntry
	index    *lsh.Index
	embedder embedding.Provider
	dims     int
	numPlanes int

	maxSize             int
	ttl                 time.Duration
	similarityThreshold float64

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// puts collapses concurrent Put calls for the same cache key into one
	// embed-and-insert, so a burst of identical queries doesn't each pay
	// for their own embedding call.
	puts singleflight.Group
}

// New builds a Cache. embedder is used only to embed queries for the LSH
// sidecar lookup on Get/Put, never to re-run a search.
func New(embedder embedding.Provider, maxSize int, ttl time.Duration, similarityThreshold float64) *Cache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if similarityThreshold <= 0 {
		similarityThreshold = 0.95
	}
	dims := embedder.Dimensions()
	numPlanes := lsh.RecommendedPlanes(maxSize)
	return &Cache{
		entries:             map[string]*types.CacheEntry{},
		index:               lsh.New(dims, numPlanes, 1),
		embedder:            embedder,
		dims:                dims,
		numPlanes:           numPlanes,
		maxSize:             maxSize,
		ttl:                 ttl,
		similarityThreshold: similarityThreshold,
	}
}

// Key computes the cache key for a query, namespaced.
func Key(namespace, query string) string {
	h := sha256.New()
	if namespace != "" {
		h.Write([]byte(namespace))
		h.Write([]byte(":"))
	}
	h.Write([]byte(query))
	return hex.EncodeToString(h.Sum(nil))
}

// Get looks up query: an exact-key hit is served if unexpired; otherwise, if
// an LSH sidecar match against the query's embedding clears
// similarityThreshold and is unexpired, that entry is served instead.
// Returns ok=false on a miss.
func (c *Cache) Get(ctx context.Context, namespace, query string) (*types.CacheEntry, bool, error) {
	key := Key(namespace, query)
	now := time.Now().UTC()

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && now.Before(e.ExpiresAt) {
		e.HitCount++
		e.LastAccessed = now
		c.mu.Unlock()
		return e, true, nil
	}
	c.mu.Unlock()

	vec, err := c.embedder.Embed(ctx, query, true)
	if err != nil {
		return nil, false, types.Dependencyf(err, "embed query for cache lookup")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	best := c.bestCandidate(vec, now)
	if best == nil {
		return nil, false, nil
	}
	best.HitCount++
	best.LastAccessed = now
	return best, true, nil
}

func (c *Cache) bestCandidate(vec []float32, now time.Time) *types.CacheEntry {
	var best *types.CacheEntry
	var bestSim float64
	for _, id := range c.index.Candidates(vec) {
		e, ok := c.entries[id]
		if !ok || !now.Before(e.ExpiresAt) {
			continue
		}
		sim := cosineSimilarity(vec, e.QueryEmbedding)
		if sim >= c.similarityThreshold && sim > bestSim {
			best, bestSim = e, sim
		}
	}
	return best
}

// Put inserts result under query, embedding the query for the LSH sidecar
// and evicting the least-recently-used entry if at capacity.
func (c *Cache) Put(ctx context.Context, namespace, query string, result any) error {
	key := Key(namespace, query)
	_, err, _ := c.puts.Do(key, func() (any, error) {
		vec, err := c.embedder.Embed(ctx, query, true)
		if err != nil {
			return nil, types.Dependencyf(err, "embed query for cache insert")
		}
		now := time.Now().UTC()

		c.mu.Lock()
		defer c.mu.Unlock()

		if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
			c.evictLRULocked()
		}
		c.entries[key] = &types.CacheEntry{
			QueryHash: key, Query: query, Namespace: namespace, QueryEmbedding: vec,
			Result: result, CreatedAt: now, ExpiresAt: now.Add(c.ttl), LastAccessed: now,
		}
		c.index.Add(key, vec)
		return nil, nil
	})
	return err
}

func (c *Cache) evictLRULocked() {
	var lruKey string
	var lruTime time.Time
	for k, e := range c.entries {
		if lruKey == "" || e.LastAccessed.Before(lruTime) {
			lruKey, lruTime = k, e.LastAccessed
		}
	}
	if lruKey != "" {
		delete(c.entries, lruKey)
		c.index.Remove(lruKey)
	}
}

// Invalidate removes every entry whose query contains pattern as a
// substring, or every entry if pattern is empty.
func (c *Cache) Invalidate(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pattern == "" {
		n := len(c.entries)
		c.entries = map[string]*types.CacheEntry{}
		c.index = lsh.New(c.dims, c.numPlanes, 1)
		return n
	}
	var removed int
	for k, e := range c.entries {
		if strings.Contains(e.Query, pattern) {
			delete(c.entries, k)
			c.index.Remove(k)
			removed++
		}
	}
	return removed
}

// sweepExpired deletes every entry past its ExpiresAt from both the map and
// the LSH sidecar.
func (c *Cache) sweepExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UTC()
	for k, e := range c.entries {
		if !now.Before(e.ExpiresAt) {
			delete(c.entries, k)
			c.index.Remove(k)
		}
	}
}

// StartSweeper launches the background expiry sweeper, running every
// ttl/2. Call Close to stop it.
func (c *Cache) StartSweeper(ctx context.Context) {
	if c.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	interval := c.ttl / 2
	if interval <= 0 {
		interval = time.Minute
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sweepExpired()
			}
		}
	}()
}

// closeDrainTimeout bounds how long Close waits for the sweeper goroutine to
// exit before giving up, matching the original's asyncio.wait_for(..., 5.0).
const closeDrainTimeout = 5 * time.Second

// Close stops the sweeper goroutine and waits up to closeDrainTimeout for it
// to exit. A timeout is logged rather than blocking the caller forever.
func (c *Cache) Close() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(closeDrainTimeout):
		obslog.L().Warn("cache sweeper did not exit within drain timeout", "timeout", closeDrainTimeout)
	}
	c.cancel = nil
}

// Size returns the number of live (not necessarily unexpired) entries.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
