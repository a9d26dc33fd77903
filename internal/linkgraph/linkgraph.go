// Package linkgraph implements typed link CRUD, undirected BFS traversal,
// cascade-directed dependency impact analysis with cycle detection, and
// change propagation.
package linkgraph

import (
	"context"
	"sort"
	"time"

	"github.com/fenwick-labs/memoria/internal/storage"
	"github.com/fenwick-labs/memoria/internal/types"
)

// Service orchestrates link operations over a Storage backend.
type Service struct {
	store storage.Storage
}

func New(store storage.Storage) *Service {
	return &Service{store: store}
}

// CreateLink validates and inserts the primary link, plus the reciprocal
// link under the mapped type if bidirectional.
func (s *Service) CreateLink(ctx context.Context, l types.Link, bidirectional bool) error {
	if l.SourceID == l.TargetID {
		return types.Validationf("a link's source and target must differ")
	}
	if l.Strength < 0 || l.Strength > 1 {
		return types.Validationf("strength must be in [0,1], got %v", l.Strength)
	}
	if !types.ValidLinkType(l.LinkType) {
		return types.Validationf("invalid link type %q", l.LinkType)
	}
	src, err := s.store.GetEntry(ctx, l.SourceID)
	if err != nil {
		return types.Storagef(err, "get source entry")
	}
	if src == nil {
		return types.NotFoundf("entry %s not found", l.SourceID)
	}
	dst, err := s.store.GetEntry(ctx, l.TargetID)
	if err != nil {
		return types.Storagef(err, "get target entry")
	}
	if dst == nil {
		return types.NotFoundf("entry %s not found", l.TargetID)
	}

	return s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		existing, err := s.store.GetLinks(ctx, l.SourceID, types.DirectionBoth)
		if err != nil {
			return types.Storagef(err, "get links")
		}
		for _, x := range existing {
			if x.SourceID == l.SourceID && x.TargetID == l.TargetID && x.LinkType == l.LinkType {
				return types.Conflictf("link (%s,%s,%s) already exists", l.SourceID, l.TargetID, l.LinkType)
			}
			if bidirectional && x.SourceID == l.TargetID && x.TargetID == l.SourceID && x.LinkType == types.ReciprocalLinkType(l.LinkType) {
				return types.Conflictf("reciprocal link (%s,%s,%s) already exists", x.SourceID, x.TargetID, x.LinkType)
			}
		}
		if err := tx.CreateLink(ctx, &l); err != nil {
			return types.Conflictf("link (%s,%s,%s) already exists", l.SourceID, l.TargetID, l.LinkType)
		}
		if bidirectional {
			reverse := l
			reverse.SourceID, reverse.TargetID = l.TargetID, l.SourceID
			reverse.LinkType = types.ReciprocalLinkType(l.LinkType)
			if err := tx.CreateLink(ctx, &reverse); err != nil {
				return types.Conflictf("reciprocal link (%s,%s,%s) already exists", reverse.SourceID, reverse.TargetID, reverse.LinkType)
			}
		}
		return nil
	})
}

// DeleteLink removes links matching (source,target[,type]) in both
// directions, returning the count deleted.
func (s *Service) DeleteLink(ctx context.Context, sourceID, targetID string, linkType *types.LinkType) (int, error) {
	var deleted int
	err := s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		existing, err := s.store.GetLinks(ctx, sourceID, types.DirectionBoth)
		if err != nil {
			return types.Storagef(err, "get links")
		}
		for _, l := range existing {
			pair := (l.SourceID == sourceID && l.TargetID == targetID) || (l.SourceID == targetID && l.TargetID == sourceID)
			if pair && (linkType == nil || l.LinkType == *linkType) {
				deleted++
			}
		}
		var linkTypes []types.LinkType
		if linkType != nil {
			linkTypes = append(linkTypes, *linkType)
		} else {
			linkTypes = allLinkTypes()
		}
		for _, lt := range linkTypes {
			if err := tx.DeleteLink(ctx, sourceID, targetID, lt); err != nil {
				return types.Storagef(err, "delete link")
			}
			if err := tx.DeleteLink(ctx, targetID, sourceID, lt); err != nil {
				return types.Storagef(err, "delete link")
			}
		}
		return nil
	})
	return deleted, err
}

func allLinkTypes() []types.LinkType {
	return []types.LinkType{
		types.LinkRelated, types.LinkParent, types.LinkChild, types.LinkSimilar,
		types.LinkReference, types.LinkDependsOn, types.LinkDerivedFrom,
	}
}

// GetLinks returns links touching id in the requested direction.
func (s *Service) GetLinks(ctx context.Context, id string, dir types.LinkDirection) ([]*types.Link, error) {
	links, err := s.store.GetLinks(ctx, id, dir)
	if err != nil {
		return nil, types.Storagef(err, "get links")
	}
	return links, nil
}

// Traverse runs breadth-first search from startID, treating every link as
// undirected, optionally restricted to linkTypes, capped at maxDepth and
// maxResults, sorted by depth ascending.
func (s *Service) Traverse(ctx context.Context, startID string, maxDepth, maxResults int, linkTypes []types.LinkType) ([]types.TraversalResult, error) {
	if maxDepth <= 0 {
		return nil, nil
	}
	start, err := s.store.GetEntry(ctx, startID)
	if err != nil {
		return nil, types.Storagef(err, "get start entry")
	}
	if start == nil {
		return nil, types.Validationf("start entry %s not found", startID)
	}

	allowed := toSet(linkTypes)
	visited := map[string]bool{startID: true}
	queue := []types.TraversalResult{{MemoryID: startID, Depth: 0}}
	var results []types.TraversalResult

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if node.Depth > 0 {
			results = append(results, node)
			if maxResults > 0 && len(results) >= maxResults {
				break
			}
		}
		if node.Depth >= maxDepth {
			continue
		}
		links, err := s.store.GetLinks(ctx, node.MemoryID, types.DirectionBoth)
		if err != nil {
			return nil, types.Storagef(err, "get links")
		}
		for _, l := range links {
			if len(allowed) > 0 && !allowed[l.LinkType] {
				continue
			}
			neighbor := l.TargetID
			if neighbor == node.MemoryID {
				neighbor = l.SourceID
			}
			if visited[neighbor] {
				continue
			}
			visited[neighbor] = true
			queue = append(queue, types.TraversalResult{MemoryID: neighbor, Depth: node.Depth + 1})
		}
	}
	return results, nil
}

func toSet(linkTypes []types.LinkType) map[types.LinkType]bool {
	if len(linkTypes) == 0 {
		return nil
	}
	m := make(map[types.LinkType]bool, len(linkTypes))
	for _, t := range linkTypes {
		m[t] = true
	}
	return m
}

// AnalyzeImpact walks only links flagged cascade_on_update (cascadeUpdate
// true) or cascade_on_delete (cascadeUpdate false) from memoryID, detecting
// cycles: a node reappearing in the
// current path records the path suffix from its first occurrence as a
// cycle and stops that branch's expansion.
func (s *Service) AnalyzeImpact(ctx context.Context, memoryID string, cascadeUpdate bool) (*types.ImpactAnalysis, error) {
	result := &types.ImpactAnalysis{}
	visited := map[string]bool{}
	err := s.walkImpact(ctx, memoryID, 0, []string{memoryID}, cascadeUpdate, visited, result)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(result.Cycles, func(i, j int) bool {
		return len(result.Cycles[i]) > len(result.Cycles[j])
	})
	return result, nil
}

func (s *Service) walkImpact(ctx context.Context, nodeID string, depth int, path []string, cascadeUpdate bool, visited map[string]bool, result *types.ImpactAnalysis) error {
	if depth > result.MaxDepthReached {
		result.MaxDepthReached = depth
	}
	visited[nodeID] = true

	links, err := s.store.GetLinks(ctx, nodeID, types.DirectionOutgoing)
	if err != nil {
		return types.Storagef(err, "get links")
	}
	for _, l := range links {
		cascades := l.CascadeOnUpdate
		if !cascadeUpdate {
			cascades = l.CascadeOnDelete
		}
		if !cascades {
			continue
		}

		if idx := indexOf(path, l.TargetID); idx >= 0 {
			result.HasCycles = true
			cycle := append(append([]string{}, path[idx:]...), l.TargetID)
			result.Cycles = append(result.Cycles, cycle)
			continue
		}

		result.Affected = append(result.Affected, types.ImpactedNode{
			MemoryID: l.TargetID, Depth: depth + 1, LinkType: l.LinkType, Strength: l.Strength,
		})

		if visited[l.TargetID] {
			continue
		}
		nextPath := append(append([]string{}, path...), l.TargetID)
		if err := s.walkImpact(ctx, l.TargetID, depth+1, nextPath, cascadeUpdate, visited, result); err != nil {
			return err
		}
	}
	return nil
}

func indexOf(path []string, id string) int {
	for i, p := range path {
		if p == id {
			return i
		}
	}
	return -1
}

// PropagateUpdate runs an impact analysis (on the delete cascade flag for a
// delete notification, the update cascade flag otherwise) and inserts one
// notification per affected node inside a single transaction.
func (s *Service) PropagateUpdate(ctx context.Context, memoryID string, notificationType types.NotificationType, metadata map[string]any) (*types.ImpactAnalysis, error) {
	analysis, err := s.AnalyzeImpact(ctx, memoryID, notificationType != types.NotifyDelete)
	if err != nil {
		return nil, err
	}
	err = s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		for _, n := range analysis.Affected {
			note := &types.DependencyNotification{
				SourceID: memoryID, TargetID: n.MemoryID,
				NotificationType: notificationType, Metadata: metadata,
				CreatedAt: time.Now().UTC(),
			}
			if err := tx.CreateNotification(ctx, note); err != nil {
				return types.Storagef(err, "create notification")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return analysis, nil
}

// PendingNotifications lists unprocessed notifications for targetID,
// oldest-first.
func (s *Service) PendingNotifications(ctx context.Context, targetID string) ([]*types.DependencyNotification, error) {
	ns, err := s.store.PendingNotifications(ctx, targetID)
	if err != nil {
		return nil, types.Storagef(err, "pending notifications")
	}
	return ns, nil
}

// MarkProcessed stamps processed_at on the given notification ids.
func (s *Service) MarkProcessed(ctx context.Context, ids []int64) error {
	if err := s.store.MarkNotificationsProcessed(ctx, ids); err != nil {
		return types.Storagef(err, "mark notifications processed")
	}
	return nil
}
