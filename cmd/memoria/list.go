package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/memoria/internal/types"
)

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "memories",
	Short:   "List memories matching filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		tier, _ := cmd.Flags().GetString("tier")
		tags, _ := cmd.Flags().GetStringSlice("tags")
		contentType, _ := cmd.Flags().GetString("content-type")
		scope, _ := cmd.Flags().GetString("scope")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		f := types.ListFilters{
			Tier:        types.Tier(tier),
			Tags:        tags,
			ContentType: types.ContentType(contentType),
			Namespace:   namespaceFlag,
			SearchScope: types.SearchScope(scope),
			Limit:       limit,
			Offset:      offset,
		}
		entries, total, err := memSvc.List(cmd.Context(), f)
		if err != nil {
			fatalErr(err)
		}
		printResult(map[string]any{"entries": entries, "total": total}, func() {
			for _, e := range entries {
				fmt.Printf("%s [%s] %.40s\n", e.ID, e.Tier, e.Content)
			}
			fmt.Printf("%d of %d\n", len(entries), total)
		})
		return nil
	},
}

func init() {
	listCmd.Flags().String("tier", "", "filter by tier")
	listCmd.Flags().StringSlice("tags", nil, "filter by tags (all must match)")
	listCmd.Flags().String("content-type", "", "filter by content type")
	listCmd.Flags().String("scope", string(types.ScopeCurrent), "namespace scope (current, shared, all)")
	listCmd.Flags().Int("limit", 50, "maximum rows to return")
	listCmd.Flags().Int("offset", 0, "rows to skip")
	listCmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	rootCmd.AddCommand(listCmd)
}
