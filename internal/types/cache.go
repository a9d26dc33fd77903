package types

import "time"

// CacheEntry is one row of the in-memory semantic cache.
type CacheEntry struct {
	QueryHash      string
	Query          string
	Namespace      string
	QueryEmbedding []float32
	Result         any
	CreatedAt      time.Time
	ExpiresAt      time.Time
	HitCount       int64
	LastAccessed   time.Time
}

// Agent is a registered memory-store participant .
type Agent struct {
	ID         string
	Name       string
	Metadata   map[string]any
	CreatedAt  time.Time
	LastSeenAt *time.Time
}

// Message is one entry in an agent's local inbox .
type Message struct {
	ID        string
	FromAgent string
	ToAgent   string
	Content   string
	CreatedAt time.Time
	ReadAt    *time.Time
}

// SharedContext is a named, saved set of memory ids .
type SharedContext struct {
	ID        string
	Name      string
	Namespace string
	MemoryIDs []string
	CreatedAt time.Time
}
