package types

import "time"

// LinkType enumerates the directed relationship kinds between entries.
type LinkType string

const (
	LinkRelated    LinkType = "related"
	LinkParent     LinkType = "parent"
	LinkChild      LinkType = "child"
	LinkSimilar    LinkType = "similar"
	LinkReference  LinkType = "reference"
	LinkDependsOn  LinkType = "depends_on"
	LinkDerivedFrom LinkType = "derived_from"
)

// ValidLinkType reports whether lt is one of the enumerated link types.
func ValidLinkType(lt LinkType) bool {
	switch lt {
	case LinkRelated, LinkParent, LinkChild, LinkSimilar, LinkReference, LinkDependsOn, LinkDerivedFrom:
		return true
	}
	return false
}

// ReciprocalLinkType maps a link type to its reverse for bidirectional
// creation: parent<->child, everything else maps to itself.
func ReciprocalLinkType(lt LinkType) LinkType {
	switch lt {
	case LinkParent:
		return LinkChild
	case LinkChild:
		return LinkParent
	default:
		return lt
	}
}

// Link is a directed edge between two entries.
type Link struct {
	SourceID        string
	TargetID        string
	LinkType        LinkType
	Metadata        map[string]any
	Strength        float64
	CascadeOnUpdate bool
	CascadeOnDelete bool
	CreatedAt       time.Time
}

// LinkDirection controls which side of a link get_links filters on.
type LinkDirection string

const (
	DirectionOutgoing LinkDirection = "outgoing"
	DirectionIncoming LinkDirection = "incoming"
	DirectionBoth     LinkDirection = "both"
)

// AccessType enumerates the two kinds of memory access the log records.
type AccessType string

const (
	AccessGet    AccessType = "get"
	AccessSearch AccessType = "search"
)

// AccessLogEntry records a rate-limited access event.
type AccessLogEntry struct {
	MemoryID   string
	AccessType AccessType
	AccessedAt time.Time
}

// NotificationType enumerates dependency-notification kinds.
type NotificationType string

const (
	NotifyUpdate NotificationType = "update"
	NotifyDelete NotificationType = "delete"
	NotifyStale  NotificationType = "stale"
)

// DependencyNotification records a propagated change for an affected entry.
type DependencyNotification struct {
	ID               int64
	SourceID         string
	TargetID         string
	NotificationType NotificationType
	Metadata         map[string]any
	CreatedAt        time.Time
	ProcessedAt      *time.Time
}

// ImpactedNode is one result of dependency impact analysis.
type ImpactedNode struct {
	MemoryID string
	Depth    int
	LinkType LinkType
	Strength float64
}

// ImpactAnalysis is the full result of analyze_impact.
type ImpactAnalysis struct {
	Affected       []ImpactedNode
	MaxDepthReached int
	HasCycles      bool
	Cycles         [][]string // longest first
}

// TraversalResult is one node discovered by BFS link traversal.
type TraversalResult struct {
	MemoryID string
	Depth    int
}
