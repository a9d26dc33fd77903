package types

import "time"

// ContextStrategy enumerates the context-builder scoring strategies.
type ContextStrategy string

const (
	StrategyRelevance  ContextStrategy = "relevance"
	StrategyRecency    ContextStrategy = "recency"
	StrategyImportance ContextStrategy = "importance"
	StrategyGraph      ContextStrategy = "graph"
)

// ContextRequest configures BuildContext.
type ContextRequest struct {
	Query           string
	TokenBudget     int
	TopK            int
	IncludeRelated  bool
	MaxDepth        int
	AutoSummarize   bool
	MinSimilarity   float64
	Namespace       string
	UseCache        bool
	Strategy        ContextStrategy
	LinkTypes       []LinkType
}

// ContextItem is one packed memory inside a ContextPack.
type ContextItem struct {
	EntryID    string
	Content    string
	Tokens     int
	Similarity float64
	Depth      int // 0 for direct candidates
	Importance float64
	CreatedAt  time.Time
	Summarized bool
}

// ContextPack is the result of BuildContext.
type ContextPack struct {
	Memories        []ContextItem
	TotalTokens      int
	TokenBudget      int
	MemoriesCount    int
	SummarizedCount  int
	RelatedCount     int
	CacheHit         bool
}

// BatchErrorMode controls how batch operations handle per-item failures.
type BatchErrorMode string

const (
	BatchRollback BatchErrorMode = "rollback"
	BatchContinue BatchErrorMode = "continue"
	BatchStop     BatchErrorMode = "stop"
)

// BatchItemResult records the outcome of one item in a batch operation.
type BatchItemResult struct {
	Index int
	ID    string
	Err   error
}

// BatchResult is returned by batch_store/batch_update.
type BatchResult struct {
	Succeeded []Entry
	Failed    []BatchItemResult
	Aborted   bool // true only for BatchRollback on failure
}

// StoreRequest is the input to Store.
type StoreRequest struct {
	Content     string
	Tier        Tier
	Tags        []string
	Metadata    map[string]any
	TTLSeconds  *int64
	AgentID     string
	Namespace   string
	ContentType ContentType
	AllowShared bool // explicit opt-in to write into the "shared" namespace
}

// UpdateRequest is the whitelist-validated field set accepted by Update.
type UpdateRequest struct {
	Content    *string
	Tags       []string
	TagsSet    bool
	Metadata   map[string]any
	MetadataSet bool
	Tier       *Tier
	ExpiresAt  *time.Time
	ExpiresAtSet bool
	ChangeReason string
}

// ListFilters configures List.
type ListFilters struct {
	Tier        Tier
	Tags        []string
	ContentType ContentType
	Namespace   string
	SearchScope SearchScope
	Limit       int
	Offset      int
}
