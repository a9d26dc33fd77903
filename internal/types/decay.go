package types

import "time"

// DecayConfig is the single-row configuration for decay eviction.
type DecayConfig struct {
	Enabled         bool
	Threshold       float64
	GracePeriodDays int
	MaxDeletePerRun int
	LastRunAt       *time.Time
}

// DecayLog records one decay run's outcome.
type DecayLog struct {
	ID         int64
	RunAt      time.Time
	DryRun     bool
	DeletedIDs []string
	FailedIDs  []string
}

// DecayRunResult is returned by a decay run.
type DecayRunResult struct {
	DryRun      bool
	Candidates  []string // in dry-run, the full candidate list
	DeletedIDs  []string
	FailedIDs   []string
}

// DuplicateGroup is one cluster discovered by dedup.
type DuplicateGroup struct {
	PrimaryID     string
	DuplicateIDs  []string
	AvgSimilarity float64 // actual mean across the group
}

// MergeStrategy selects how dedup picks the primary of a duplicate group.
type MergeStrategy string

const (
	MergeKeepNewest       MergeStrategy = "keep_newest"
	MergeKeepOldest       MergeStrategy = "keep_oldest"
	MergeHighestImportance MergeStrategy = "highest_importance"
)
