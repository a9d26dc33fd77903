package types

import "time"

// VersionSnapshot is the immutable pre-image captured before a mutating
// update.
type VersionSnapshot struct {
	MemoryID       string
	Version        int64
	Content        string
	Tags           []string
	Metadata       map[string]any
	ContentType    ContentType
	ChangeReason   string
	CapturedAt     time.Time
}

// History is the result of get_history.
type History struct {
	Snapshots      []VersionSnapshot // descending by version
	CurrentVersion int64
	TotalVersions  int64 // len(Snapshots-in-db) + 1
}

// VersionDiff is the result of diff_versions.
type VersionDiff struct {
	OldVersion    int64
	NewVersion    int64
	ContentDiff   string // unified diff, trimmed to 2000 lines
	TagsAdded     []string
	TagsRemoved   []string
	MetadataDelta map[string]MetadataChange
}

// MetadataChange describes a per-key metadata delta between two versions.
type MetadataChange struct {
	Old any
	New any
}
