package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/memoria/internal/versioning"
)

var historyCmd = &cobra.Command{
	Use:     "history <id>",
	GroupID: "memories",
	Short:   "Show the version history of a memory",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		h, err := versioning.GetHistory(cmd.Context(), store, args[0], limit)
		if err != nil {
			fatalErr(err)
		}
		printResult(h, func() {
			fmt.Printf("current version %d, %d versions in total\n", h.CurrentVersion, h.TotalVersions)
			for _, s := range h.Snapshots {
				fmt.Printf("  v%d at %s: %s\n", s.Version, s.CapturedAt.Format("2006-01-02T15:04:05"), s.ChangeReason)
			}
		})
		return nil
	},
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback <id> <version>",
	Short: "Roll a memory back to a prior version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		var version int64
		if _, err := fmt.Sscanf(args[1], "%d", &version); err != nil {
			return fmt.Errorf("parse version: %w", err)
		}
		entry, err := versioning.Rollback(cmd.Context(), store, args[0], version, reason)
		if err != nil {
			fatalErr(err)
		}
		printResult(entry, func() { fmt.Printf("rolled back to v%d, now v%d\n", version, entry.Version) })
		return nil
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff <id> <old-version> <new-version>",
	Short: "Diff two versions of a memory",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var oldV, newV int64
		if _, err := fmt.Sscanf(args[1], "%d", &oldV); err != nil {
			return fmt.Errorf("parse old version: %w", err)
		}
		if _, err := fmt.Sscanf(args[2], "%d", &newV); err != nil {
			return fmt.Errorf("parse new version: %w", err)
		}
		diff, err := versioning.DiffVersions(cmd.Context(), store, args[0], oldV, newV)
		if err != nil {
			fatalErr(err)
		}
		printResult(diff, func() {
			fmt.Println(diff.ContentDiff)
			if len(diff.TagsAdded) > 0 || len(diff.TagsRemoved) > 0 {
				fmt.Println("tags added:", diff.TagsAdded, "removed:", diff.TagsRemoved)
			}
		})
		return nil
	},
}

var pruneVersionsCmd = &cobra.Command{
	Use:   "prune-versions <id>",
	Short: "Prune old version snapshots, keeping the most recent N",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keep, _ := cmd.Flags().GetInt("keep")
		n, err := versioning.PruneVersions(cmd.Context(), store, args[0], keep)
		if err != nil {
			fatalErr(err)
		}
		printResult(map[string]int{"pruned": n}, func() { fmt.Printf("pruned %d snapshot(s)\n", n) })
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 0, "maximum snapshots to return (0 for all)")
	rollbackCmd.Flags().String("reason", "rollback", "reason recorded with the rollback's own version snapshot")
	pruneVersionsCmd.Flags().Int("keep", 10, "number of most recent snapshots to keep")

	for _, c := range []*cobra.Command{historyCmd, rollbackCmd, diffCmd, pruneVersionsCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	}
	rootCmd.AddCommand(historyCmd, rollbackCmd, diffCmd, pruneVersionsCmd)
}
