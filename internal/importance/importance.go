// Package importance implements the rate-limited access logger and the
// score recomputation formula.
package importance

import (
	"context"
	"math"
	"time"

	"github.com/fenwick-labs/memoria/internal/storage"
	"github.com/fenwick-labs/memoria/internal/types"
)

// InitialScore seeds a freshly-stored entry's score by tier: working memory
// starts hottest since it is expected to be read back almost immediately,
// short-term starts middling, long-term starts at the neutral midpoint.
func InitialScore(tier types.Tier) float64 {
	switch tier {
	case types.TierWorking:
		return 0.7
	case types.TierShortTerm:
		return 0.5
	default:
		return 0.5
	}
}

// Score computes the combined importance in [0,1] from access_count,
// last_accessed_at, created_at: log-normalized frequency saturating
// at maxAccesses, an exponential recency decay on days since last access,
// and a mild boost for newer entries.
func Score(accessCount int64, lastAccessedAt *time.Time, createdAt time.Time, now time.Time, maxAccesses int) float64 {
	if maxAccesses <= 0 {
		maxAccesses = 100
	}
	frequency := math.Log1p(float64(accessCount)) / math.Log1p(float64(maxAccesses))
	if frequency > 1 {
		frequency = 1
	}

	recency := 0.0
	if lastAccessedAt != nil {
		days := now.Sub(*lastAccessedAt).Hours() / 24
		if days < 0 {
			days = 0
		}
		recency = math.Exp(-days / 14) // half-life ~10 days
	}

	ageDays := now.Sub(createdAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	ageFactor := math.Exp(-ageDays / 90)

	score := 0.45*frequency + 0.4*recency + 0.15*ageFactor
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}
	return score
}

// RateLimitedTouch logs an access only if the last logged access of the same
// type is older than rateLimit; unconditionally bumps access_count and
// last_accessed_at regardless.
func RateLimitedTouch(ctx context.Context, store storage.Storage, id string, accessType types.AccessType, rateLimit time.Duration) error {
	now := time.Now().UTC()
	last, ok, err := store.LastAccessLogTime(ctx, id, accessType)
	if err != nil {
		return types.Storagef(err, "read last access log time")
	}
	if !ok || now.Sub(time.Unix(last, 0)) >= rateLimit {
		if err := store.TouchAccess(ctx, id, accessType, now.Unix()); err != nil {
			return types.Storagef(err, "touch access")
		}
		return nil
	}
	// Rate-limited: still bump access_count/last_accessed_at without a log row.
	return bumpAccessOnly(ctx, store, id, now)
}

func bumpAccessOnly(ctx context.Context, store storage.Storage, id string, now time.Time) error {
	e, err := store.GetEntry(ctx, id)
	if err != nil {
		return types.Storagef(err, "get entry for access bump")
	}
	if e == nil {
		return types.NotFoundf("entry %s not found", id)
	}
	return store.UpdateEntry(ctx, id, map[string]any{
		"access_count":     e.AccessCount + 1,
		"last_accessed_at": now,
	})
}

// Recompute reads an entry's counters and writes back a freshly computed
// score.
func Recompute(ctx context.Context, store storage.Storage, id string, maxAccesses int) (float64, error) {
	e, err := store.GetEntry(ctx, id)
	if err != nil {
		return 0, types.Storagef(err, "get entry")
	}
	if e == nil {
		return 0, types.NotFoundf("entry %s not found", id)
	}
	score := Score(e.AccessCount, e.LastAccessedAt, e.CreatedAt, time.Now().UTC(), maxAccesses)
	if err := store.UpdateEntry(ctx, id, map[string]any{"importance_score": score}); err != nil {
		return 0, types.Storagef(err, "update importance score")
	}
	return score, nil
}

// SetScore explicitly sets the score, rejecting values outside [0,1]. reason
// is the one audit trail the system keeps for explicit sets; callers
// that want it recorded durably should also write a version snapshot.
func SetScore(ctx context.Context, store storage.Storage, id string, score float64, reason string) error {
	if score < 0 || score > 1 {
		return types.Validationf("score must be in [0,1], got %v", score)
	}
	e, err := store.GetEntry(ctx, id)
	if err != nil {
		return types.Storagef(err, "get entry")
	}
	if e == nil {
		return types.NotFoundf("entry %s not found", id)
	}
	fields := map[string]any{"importance_score": score}
	if reason != "" {
		meta := e.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		meta["_last_score_reason"] = reason
		fields["metadata"] = meta
	}
	if err := store.UpdateEntry(ctx, id, fields); err != nil {
		return types.Storagef(err, "set importance score")
	}
	return nil
}

// GetScore returns the four fields memory_get_score reports.
type ScoreInfo struct {
	ImportanceScore float64
	AccessCount     int64
	LastAccessedAt  *time.Time
	CreatedAt       time.Time
}

func GetScore(ctx context.Context, store storage.Storage, id string) (*ScoreInfo, error) {
	e, err := store.GetEntry(ctx, id)
	if err != nil {
		return nil, types.Storagef(err, "get entry")
	}
	if e == nil {
		return nil, types.NotFoundf("entry %s not found", id)
	}
	return &ScoreInfo{
		ImportanceScore: e.ImportanceScore,
		AccessCount:     e.AccessCount,
		LastAccessedAt:  e.LastAccessedAt,
		CreatedAt:       e.CreatedAt,
	}, nil
}
