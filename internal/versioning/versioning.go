// Package versioning implements snapshot-before-mutate updates, rollback,
// unified diffs, and history pruning.
package versioning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/fenwick-labs/memoria/internal/storage"
	"github.com/fenwick-labs/memoria/internal/types"
)

const maxDiffLines = 2000

// ApplyUpdate snapshots the current state of id into memory_versions, then
// applies the whitelisted fields in req and bumps version.
func ApplyUpdate(ctx context.Context, store storage.Storage, id string, req types.UpdateRequest) (*types.Entry, error) {
	var updated *types.Entry
	err := store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		e, err := tx.GetEntry(ctx, id)
		if err != nil {
			return types.Storagef(err, "get entry")
		}
		if e == nil {
			return types.NotFoundf("entry %s not found", id)
		}

		snap := &types.VersionSnapshot{
			MemoryID: e.ID, Version: e.Version, Content: e.Content, Tags: e.Tags,
			Metadata: e.Metadata, ContentType: e.ContentType, ChangeReason: req.ChangeReason,
			CapturedAt: time.Now().UTC(),
		}
		if err := tx.CreateVersionSnapshot(ctx, snap); err != nil {
			return types.Storagef(err, "snapshot version")
		}

		fields := map[string]any{
			"updated_at": time.Now().UTC(),
			"version":    e.Version + 1,
		}
		if req.Content != nil {
			fields["content"] = *req.Content
			e.Content = *req.Content
		}
		if req.TagsSet {
			fields["tags"] = req.Tags
			e.Tags = req.Tags
		}
		if req.MetadataSet {
			fields["metadata"] = req.Metadata
			e.Metadata = req.Metadata
		}
		if req.Tier != nil {
			if !types.ValidTier(*req.Tier) {
				return types.Validationf("invalid tier %q", *req.Tier)
			}
			fields["tier"] = string(*req.Tier)
			e.Tier = *req.Tier
		}
		if req.ExpiresAtSet {
			fields["expires_at"] = req.ExpiresAt
			e.ExpiresAt = req.ExpiresAt
		}

		if err := tx.UpdateEntry(ctx, id, fields); err != nil {
			return types.Storagef(err, "update entry")
		}
		e.Version++
		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Rollback restores target_v's content/tags/metadata via ApplyUpdate, so the
// current state is snapshotted first and the rollback itself becomes a new
// version.
func Rollback(ctx context.Context, store storage.Storage, id string, targetVersion int64, reason string) (*types.Entry, error) {
	e, err := store.GetEntry(ctx, id)
	if err != nil {
		return nil, types.Storagef(err, "get entry")
	}
	if e == nil {
		return nil, types.NotFoundf("entry %s not found", id)
	}
	if targetVersion == e.Version {
		return nil, types.Validationf("target version %d is the current version", targetVersion)
	}
	snap, err := store.GetVersion(ctx, id, targetVersion)
	if err != nil {
		return nil, types.Storagef(err, "get version")
	}
	if snap == nil {
		return nil, types.NotFoundf("version %d of entry %s not found", targetVersion, id)
	}

	content := snap.Content
	req := types.UpdateRequest{
		Content: &content, Tags: snap.Tags, TagsSet: true,
		Metadata: snap.Metadata, MetadataSet: true, ChangeReason: reason,
	}
	return ApplyUpdate(ctx, store, id, req)
}

// DiffVersions produces a unified diff over content lines plus tag and
// metadata deltas between two snapshots, old < new.
func DiffVersions(ctx context.Context, store storage.Storage, id string, oldVersion, newVersion int64) (*types.VersionDiff, error) {
	if oldVersion >= newVersion {
		return nil, types.Validationf("old version %d must be less than new version %d", oldVersion, newVersion)
	}
	oldSnap, newContent, newTags, newMeta, err := resolveVersions(ctx, store, id, oldVersion, newVersion)
	if err != nil {
		return nil, err
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldSnap.Content),
		B:        difflib.SplitLines(newContent),
		FromFile: fmt.Sprintf("v%d", oldVersion),
		ToFile:   fmt.Sprintf("v%d", newVersion),
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return nil, types.Wrap(types.KindStorage, "compute diff", err)
	}
	lines := strings.Split(text, "\n")
	if len(lines) > maxDiffLines {
		lines = lines[:maxDiffLines]
	}

	added, removed := tagDelta(oldSnap.Tags, newTags)
	metaDelta := metadataDelta(oldSnap.Metadata, newMeta)

	return &types.VersionDiff{
		OldVersion: oldVersion, NewVersion: newVersion,
		ContentDiff: strings.Join(lines, "\n"),
		TagsAdded:   added, TagsRemoved: removed,
		MetadataDelta: metaDelta,
	}, nil
}

// resolveVersions returns the old snapshot plus the new version's
// content/tags/metadata, pulling the current entry state when newVersion is
// the live version (no snapshot is captured for the current state).
func resolveVersions(ctx context.Context, store storage.Storage, id string, oldVersion, newVersion int64) (*types.VersionSnapshot, string, []string, map[string]any, error) {
	oldSnap, err := store.GetVersion(ctx, id, oldVersion)
	if err != nil {
		return nil, "", nil, nil, types.Storagef(err, "get old version")
	}
	if oldSnap == nil {
		return nil, "", nil, nil, types.NotFoundf("version %d of entry %s not found", oldVersion, id)
	}

	e, err := store.GetEntry(ctx, id)
	if err != nil {
		return nil, "", nil, nil, types.Storagef(err, "get entry")
	}
	if e == nil {
		return nil, "", nil, nil, types.NotFoundf("entry %s not found", id)
	}
	if e.Version == newVersion {
		return oldSnap, e.Content, e.Tags, e.Metadata, nil
	}

	newSnap, err := store.GetVersion(ctx, id, newVersion)
	if err != nil {
		return nil, "", nil, nil, types.Storagef(err, "get new version")
	}
	if newSnap == nil {
		return nil, "", nil, nil, types.NotFoundf("version %d of entry %s not found", newVersion, id)
	}
	return oldSnap, newSnap.Content, newSnap.Tags, newSnap.Metadata, nil
}

func tagDelta(old, new []string) (added, removed []string) {
	oldSet := map[string]bool{}
	for _, t := range old {
		oldSet[t] = true
	}
	newSet := map[string]bool{}
	for _, t := range new {
		newSet[t] = true
		if !oldSet[t] {
			added = append(added, t)
		}
	}
	for _, t := range old {
		if !newSet[t] {
			removed = append(removed, t)
		}
	}
	return added, removed
}

func metadataDelta(old, new map[string]any) map[string]types.MetadataChange {
	delta := map[string]types.MetadataChange{}
	for k, nv := range new {
		if ov, ok := old[k]; !ok || fmt.Sprint(ov) != fmt.Sprint(nv) {
			delta[k] = types.MetadataChange{Old: old[k], New: nv}
		}
	}
	for k, ov := range old {
		if _, ok := new[k]; !ok {
			delta[k] = types.MetadataChange{Old: ov, New: nil}
		}
	}
	return delta
}

// PruneVersions keeps the newest maxKeep snapshots for id.
func PruneVersions(ctx context.Context, store storage.Storage, id string, maxKeep int) (int, error) {
	n, err := store.PruneVersions(ctx, id, maxKeep)
	if err != nil {
		return 0, types.Storagef(err, "prune versions")
	}
	return n, nil
}

// GetHistory returns id's version history, capped to limit snapshots.
func GetHistory(ctx context.Context, store storage.Storage, id string, limit int) (*types.History, error) {
	h, err := store.GetHistory(ctx, id)
	if err != nil {
		return nil, types.Storagef(err, "get history")
	}
	if e, err := store.GetEntry(ctx, id); err != nil {
		return nil, types.Storagef(err, "get entry")
	} else if e != nil {
		h.CurrentVersion = e.Version
	}
	if limit > 0 && len(h.Snapshots) > limit {
		h.Snapshots = h.Snapshots[:limit]
	}
	return h, nil
}
