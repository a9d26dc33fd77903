package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/memoria/internal/types"
)

var similarCmd = &cobra.Command{
	Use:     "similar <id>",
	GroupID: "search",
	Short:   "Find memories semantically similar to an existing one",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topK, _ := cmd.Flags().GetInt("top-k")
		scope, _ := cmd.Flags().GetString("scope")
		f := types.SearchFilters{Namespace: namespaceFlag, SearchScope: types.SearchScope(scope)}
		results, err := searchSvc.FindSimilar(cmd.Context(), args[0], topK, f)
		if err != nil {
			fatalErr(err)
		}
		printResult(results, func() {
			for _, r := range results {
				fmt.Printf("%.4f  %s  %.60s\n", r.Similarity, r.Entry.ID, r.Entry.Content)
			}
		})
		return nil
	},
}

func init() {
	similarCmd.Flags().Int("top-k", 10, "maximum results")
	similarCmd.Flags().String("scope", string(types.ScopeCurrent), "namespace scope")
	similarCmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	rootCmd.AddCommand(similarCmd)
}
