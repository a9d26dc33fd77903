package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/memoria/internal/types"
)

var deleteCmd = &cobra.Command{
	Use:     "delete [id...]",
	GroupID: "memories",
	Short:   "Delete memories by id, tier, or age",
	RunE: func(cmd *cobra.Command, args []string) error {
		tier, _ := cmd.Flags().GetString("tier")
		olderThan, _ := cmd.Flags().GetString("older-than")

		switch {
		case tier != "":
			ids, err := memSvc.DeleteByTier(cmd.Context(), namespaceFlag, types.Tier(tier))
			if err != nil {
				fatalErr(err)
			}
			printResult(map[string]any{"deleted": ids}, func() {
				fmt.Printf("deleted %d memories in tier %s\n", len(ids), tier)
			})
		case olderThan != "":
			cutoff, err := parseWhenAgo(olderThan)
			if err != nil {
				return fmt.Errorf("parse --older-than: %w", err)
			}
			ids, err := memSvc.DeleteOlderThan(cmd.Context(), namespaceFlag, cutoff)
			if err != nil {
				fatalErr(err)
			}
			printResult(map[string]any{"deleted": ids}, func() {
				fmt.Printf("deleted %d memories older than %s\n", len(ids), cutoff.Format("2006-01-02T15:04:05Z07:00"))
			})
		case len(args) == 1:
			if err := memSvc.Delete(cmd.Context(), args[0]); err != nil {
				fatalErr(err)
			}
			printResult(map[string]string{"deleted": args[0]}, func() { fmt.Println("deleted", args[0]) })
		case len(args) > 1:
			deleted, err := store.DeleteEntries(cmd.Context(), args)
			if err != nil {
				fatalErr(err)
			}
			printResult(map[string]any{"deleted": deleted}, func() {
				fmt.Printf("deleted %d of %d requested\n", len(deleted), len(args))
			})
		default:
			return fmt.Errorf("delete requires one or more ids, or --tier, or --older-than")
		}
		return nil
	},
}

func init() {
	deleteCmd.Flags().String("tier", "", "delete every memory in this tier instead of by id")
	deleteCmd.Flags().String("older-than", "", "delete every memory created before this time, e.g. \"30 days ago\" or a number of seconds (counted into the past)")
	deleteCmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	rootCmd.AddCommand(deleteCmd)
}
