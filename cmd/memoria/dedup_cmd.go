package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/memoria/internal/types"
)

var dedupCmd = &cobra.Command{
	Use:     "dedup",
	GroupID: "admin",
	Short:   "Find and merge near-duplicate memories",
}

var dedupFindCmd = &cobra.Command{
	Use:   "find",
	Short: "Find duplicate groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		strategy, _ := cmd.Flags().GetString("strategy")
		mergeMeta, _ := cmd.Flags().GetBool("merge-metadata")

		groups, err := dedupSvc.FindDuplicates(cmd.Context(), namespaceFlag, limit, threshold, types.MergeStrategy(strategy), mergeMeta)
		if err != nil {
			fatalErr(err)
		}
		printResult(groups, func() {
			for _, g := range groups {
				fmt.Printf("%s absorbs %v (avg similarity %.3f)\n", g.PrimaryID, g.DuplicateIDs, g.AvgSimilarity)
			}
		})
		return nil
	},
}

var dedupDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Find duplicate groups and delete each group's duplicates, keeping its primary",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		strategy, _ := cmd.Flags().GetString("strategy")
		mergeMeta, _ := cmd.Flags().GetBool("merge-metadata")

		groups, err := dedupSvc.FindDuplicates(cmd.Context(), namespaceFlag, limit, threshold, types.MergeStrategy(strategy), mergeMeta)
		if err != nil {
			fatalErr(err)
		}
		if err := dedupSvc.DeleteDuplicates(cmd.Context(), groups); err != nil {
			fatalErr(err)
		}
		printResult(map[string]int{"groups_merged": len(groups)}, func() { fmt.Printf("merged %d duplicate group(s)\n", len(groups)) })
		return nil
	},
}

var consolidateCmd = &cobra.Command{
	Use:     "consolidate <id...>",
	GroupID: "admin",
	Short:   "Merge several memories into one summarized memory",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		min, _ := cmd.Flags().GetInt("min")
		max, _ := cmd.Flags().GetInt("max")
		keepOriginals, _ := cmd.Flags().GetBool("keep-originals")
		targetTokens, _ := cmd.Flags().GetInt("target-tokens")

		entry, err := dedupSvc.Consolidate(cmd.Context(), args, min, max, keepOriginals, targetTokens, "cl100k_base")
		if err != nil {
			fatalErr(err)
		}
		printResult(entry, func() { fmt.Println("consolidated into", entry.ID) })
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{dedupFindCmd, dedupDeleteCmd} {
		c.Flags().Int("limit", 100, "maximum entries to scan")
		c.Flags().Float64("threshold", 0.95, "minimum similarity to consider a duplicate")
		c.Flags().String("strategy", string(types.MergeKeepNewest), "merge strategy (keep_newest, keep_oldest, highest_importance)")
		c.Flags().Bool("merge-metadata", true, "union metadata and tags from absorbed duplicates")
		c.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	}
	dedupCmd.AddCommand(dedupFindCmd, dedupDeleteCmd)

	consolidateCmd.Flags().Int("min", 2, "minimum memories required to consolidate")
	consolidateCmd.Flags().Int("max", 50, "maximum memories allowed to consolidate")
	consolidateCmd.Flags().Bool("keep-originals", false, "keep the source memories instead of deleting them")
	consolidateCmd.Flags().Int("target-tokens", 500, "target token length of the consolidated summary")
	consolidateCmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")

	rootCmd.AddCommand(dedupCmd, consolidateCmd)
}
