package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/memoria/internal/types"
)

var traverseCmd = &cobra.Command{
	Use:     "traverse <id>",
	GroupID: "graph",
	Short:   "BFS the link graph from a memory",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxDepth, _ := cmd.Flags().GetInt("max-depth")
		maxResults, _ := cmd.Flags().GetInt("max-results")
		typesRaw, _ := cmd.Flags().GetStringSlice("types")
		var linkTypes []types.LinkType
		for _, t := range typesRaw {
			linkTypes = append(linkTypes, types.LinkType(t))
		}
		results, err := linkSvc.Traverse(cmd.Context(), args[0], maxDepth, maxResults, linkTypes)
		if err != nil {
			fatalErr(err)
		}
		printResult(results, func() {
			for _, r := range results {
				fmt.Printf("depth %d: %s\n", r.Depth, r.MemoryID)
			}
		})
		return nil
	},
}

var impactCmd = &cobra.Command{
	Use:     "impact <id>",
	GroupID: "graph",
	Short:   "Analyze which memories would be affected by a change",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cascade, _ := cmd.Flags().GetBool("cascade-update")
		analysis, err := linkSvc.AnalyzeImpact(cmd.Context(), args[0], cascade)
		if err != nil {
			fatalErr(err)
		}
		printResult(analysis, func() {
			fmt.Printf("%d affected, max depth %d, cycles=%v\n", len(analysis.Affected), analysis.MaxDepthReached, analysis.HasCycles)
			for _, n := range analysis.Affected {
				fmt.Printf("  %s (%s, depth %d)\n", n.MemoryID, n.LinkType, n.Depth)
			}
		})
		return nil
	},
}

var propagateCmd = &cobra.Command{
	Use:     "propagate <id>",
	GroupID: "graph",
	Short:   "Propagate a dependency notification across cascade links",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		notifyType, _ := cmd.Flags().GetString("type")
		analysis, err := linkSvc.PropagateUpdate(cmd.Context(), args[0], types.NotificationType(notifyType), nil)
		if err != nil {
			fatalErr(err)
		}
		printResult(analysis, func() { fmt.Printf("notified %d dependents\n", len(analysis.Affected)) })
		return nil
	},
}

func init() {
	traverseCmd.Flags().Int("max-depth", 3, "maximum BFS depth")
	traverseCmd.Flags().Int("max-results", 50, "maximum nodes to return")
	traverseCmd.Flags().StringSlice("types", nil, "restrict to these link types")
	traverseCmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")

	impactCmd.Flags().Bool("cascade-update", false, "only follow links marked cascade_on_update")
	impactCmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")

	propagateCmd.Flags().String("type", string(types.NotifyUpdate), "notification type (update, delete, stale)")
	propagateCmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")

	rootCmd.AddCommand(traverseCmd, impactCmd, propagateCmd)
}
