// Package decay implements the scheduled decay run: candidate selection,
// per-candidate isolated deletion so one failure doesn't roll back the
// others, and a persisted decay log. The per-item isolated-failure
// pattern is grounded on internal/storage/sqlite/migrations.go's
// per-migration error handling, adapted to per-candidate delete isolation.
package decay

import (
	"context"
	"time"

	"github.com/fenwick-labs/memoria/internal/storage"
	"github.com/fenwick-labs/memoria/internal/types"
)

// Service runs decay over a Storage backend.
type Service struct {
	store storage.Storage
}

func New(store storage.Storage) *Service {
	return &Service{store: store}
}

// Run selects candidates per the stored decay config and, unless dryRun,
// deletes each in its own transaction — so one candidate's failure doesn't
// undo prior successes. When the config is enabled, a decay log row is
// always written and the config's last_run_at is updated; when it is
// disabled, Run returns an empty result and writes nothing.
func (s *Service) Run(ctx context.Context, dryRun bool) (*types.DecayRunResult, error) {
	cfg, err := s.store.GetDecayConfig(ctx)
	if err != nil {
		return nil, types.Storagef(err, "get decay config")
	}
	if !cfg.Enabled {
		return &types.DecayRunResult{}, nil
	}

	now := time.Now().UTC()
	candidates, err := s.store.DecayCandidates(ctx, cfg, now.Unix(), cfg.MaxDeletePerRun)
	if err != nil {
		return nil, types.Storagef(err, "decay candidates")
	}

	ids := make([]string, len(candidates))
	for i, e := range candidates {
		ids[i] = e.ID
	}

	result := &types.DecayRunResult{DryRun: dryRun}
	if dryRun {
		result.Candidates = ids
	} else {
		for _, id := range ids {
			err := s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
				if err := tx.DeleteEmbedding(ctx, id); err != nil {
					return err
				}
				return tx.DeleteEntry(ctx, id)
			})
			if err != nil {
				result.FailedIDs = append(result.FailedIDs, id)
				continue
			}
			result.DeletedIDs = append(result.DeletedIDs, id)
		}
	}

	if err := s.store.AppendDecayLog(ctx, &types.DecayLog{
		RunAt: now, DryRun: dryRun, DeletedIDs: result.DeletedIDs, FailedIDs: result.FailedIDs,
	}); err != nil {
		return nil, types.Storagef(err, "append decay log")
	}
	cfg.LastRunAt = &now
	if err := s.store.PutDecayConfig(ctx, cfg); err != nil {
		return nil, types.Storagef(err, "update decay config")
	}

	return result, nil
}

// GetConfig returns the current decay configuration.
func (s *Service) GetConfig(ctx context.Context) (*types.DecayConfig, error) {
	cfg, err := s.store.GetDecayConfig(ctx)
	if err != nil {
		return nil, types.Storagef(err, "get decay config")
	}
	return cfg, nil
}

// SetConfig persists a new decay configuration.
func (s *Service) SetConfig(ctx context.Context, cfg types.DecayConfig) error {
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return types.Validationf("threshold must be in [0,1]")
	}
	if cfg.GracePeriodDays < 0 {
		return types.Validationf("grace_period_days must be >= 0")
	}
	if cfg.MaxDeletePerRun < 0 {
		return types.Validationf("max_delete_per_run must be >= 0")
	}
	if err := s.store.PutDecayConfig(ctx, &cfg); err != nil {
		return types.Storagef(err, "put decay config")
	}
	return nil
}
