package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:     "get <id>",
	GroupID: "memories",
	Short:   "Fetch a memory by id",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := memSvc.Get(cmd.Context(), args[0])
		if err != nil {
			fatalErr(err)
		}
		printResult(entry, func() {
			fmt.Printf("%s [%s] (importance %.2f)\n%s\n", entry.ID, entry.Tier, entry.ImportanceScore, entry.Content)
			if len(entry.Tags) > 0 {
				fmt.Println("tags:", entry.Tags)
			}
		})
		return nil
	},
}

func init() {
	getCmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	rootCmd.AddCommand(getCmd)
}
