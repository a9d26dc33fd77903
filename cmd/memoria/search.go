package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/memoria/internal/types"
)

var searchCmd = &cobra.Command{
	Use:     "search <query>",
	GroupID: "search",
	Short:   "Search memories by semantic, keyword, or hybrid mode",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")
		topK, _ := cmd.Flags().GetInt("top-k")
		tier, _ := cmd.Flags().GetString("tier")
		tags, _ := cmd.Flags().GetStringSlice("tags")
		contentType, _ := cmd.Flags().GetString("content-type")
		scope, _ := cmd.Flags().GetString("scope")
		minSim, _ := cmd.Flags().GetFloat64("min-similarity")
		sort, _ := cmd.Flags().GetString("sort")
		importanceWeight, _ := cmd.Flags().GetFloat64("importance-weight")

		f := types.SearchFilters{
			Tier: types.Tier(tier), Tags: tags, ContentType: types.ContentType(contentType),
			Namespace: namespaceFlag, SearchScope: types.SearchScope(scope),
			MinSimilarity: minSim, Sort: types.SortStrategy(sort), ImportanceWeight: importanceWeight,
		}
		results, err := searchSvc.Search(cmd.Context(), args[0], types.SearchMode(mode), topK, f)
		if err != nil {
			fatalErr(err)
		}
		printResult(results, func() {
			for _, r := range results {
				fmt.Printf("%.4f  %s  %.60s\n", r.CombinedScore, r.Entry.ID, r.Entry.Content)
			}
		})
		return nil
	},
}

func init() {
	searchCmd.Flags().String("mode", string(types.ModeHybrid), "search mode (semantic, keyword, hybrid)")
	searchCmd.Flags().Int("top-k", 10, "maximum results")
	searchCmd.Flags().String("tier", "", "filter by tier")
	searchCmd.Flags().StringSlice("tags", nil, "filter by tags (all must match)")
	searchCmd.Flags().String("content-type", "", "filter by content type")
	searchCmd.Flags().String("scope", string(types.ScopeCurrent), "namespace scope (current, shared, all)")
	searchCmd.Flags().Float64("min-similarity", 0, "minimum semantic similarity")
	searchCmd.Flags().String("sort", "", "post-search sort (importance, combined)")
	searchCmd.Flags().Float64("importance-weight", 0, "weight given to importance when sort=combined")
	searchCmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	rootCmd.AddCommand(searchCmd)
}
