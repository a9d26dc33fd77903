package types

import (
	"math"
	"time"
)

// ContentType enumerates the supported entry content kinds.
type ContentType string

const (
	ContentText     ContentType = "text"
	ContentCode     ContentType = "code"
	ContentJSON     ContentType = "json"
	ContentYAML     ContentType = "yaml"
	ContentImageRef ContentType = "image-ref"
)

// ValidContentType reports whether ct is one of the enumerated content types.
func ValidContentType(ct ContentType) bool {
	switch ct {
	case ContentText, ContentCode, ContentJSON, ContentYAML, ContentImageRef:
		return true
	}
	return false
}

// Tier enumerates the lifecycle bucket an entry belongs to.
type Tier string

const (
	TierShortTerm Tier = "short_term"
	TierLongTerm  Tier = "long_term"
	TierWorking   Tier = "working"
)

// ValidTier reports whether t is one of the enumerated tiers.
func ValidTier(t Tier) bool {
	switch t {
	case TierShortTerm, TierLongTerm, TierWorking:
		return true
	}
	return false
}

// SharedNamespace is the magic cross-namespace bucket; writes to it require
// an explicit opt-in.
const SharedNamespace = "shared"

// DefaultNamespace is used when no namespace is resolved for an entry.
const DefaultNamespace = "default"

// SearchScope controls how a query's namespace predicate is composed.
type SearchScope string

const (
	ScopeCurrent SearchScope = "current"
	ScopeShared  SearchScope = "shared"
	ScopeAll     SearchScope = "all"
)

// Entry is a single memory.
type Entry struct {
	ID                string
	Content           string
	ContentType       ContentType
	Tier              Tier
	Tags              []string
	Metadata          map[string]any
	AgentID           string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ExpiresAt         *time.Time
	ImportanceScore   float64
	AccessCount       int64
	LastAccessedAt    *time.Time
	ConsolidatedFrom  []string
	Namespace         string
	SchemaID          string
	StructuredContent map[string]any
	Version           int64
}

// Embedding is the dense vector paired 1:1 with an Entry.
type Embedding struct {
	EntryID string
	Vector  []float32
}

// CosineSimilarity computes the cosine of the angle between a and b, clamped
// to [-1,1]. Identical vectors map to 1, orthogonal to 0, opposite to -1.
func CosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return cos
}

// CosineDistance is 1 - cosine_similarity, the metric the vector index sorts by.
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}
