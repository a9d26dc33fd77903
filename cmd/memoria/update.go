package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/memoria/internal/types"
)

var updateCmd = &cobra.Command{
	Use:     "update <id>",
	GroupID: "memories",
	Short:   "Update a memory, capturing a version snapshot of the previous content",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req types.UpdateRequest

		if cmd.Flags().Changed("content") {
			content, _ := cmd.Flags().GetString("content")
			req.Content = &content
		}
		if cmd.Flags().Changed("tags") {
			tags, _ := cmd.Flags().GetStringSlice("tags")
			req.Tags = tags
			req.TagsSet = true
		}
		if cmd.Flags().Changed("metadata") {
			raw, _ := cmd.Flags().GetString("metadata")
			meta, err := parseMetadata(raw)
			if err != nil {
				return err
			}
			req.Metadata = meta
			req.MetadataSet = true
		}
		if cmd.Flags().Changed("tier") {
			tier, _ := cmd.Flags().GetString("tier")
			t := types.Tier(tier)
			req.Tier = &t
		}
		if cmd.Flags().Changed("expires") {
			raw, _ := cmd.Flags().GetString("expires")
			t, err := parseWhen(raw)
			if err != nil {
				return fmt.Errorf("parse --expires: %w", err)
			}
			req.ExpiresAt = &t
			req.ExpiresAtSet = true
		}
		req.ChangeReason, _ = cmd.Flags().GetString("reason")

		entry, err := memSvc.Update(cmd.Context(), args[0], req)
		if err != nil {
			fatalErr(err)
		}
		printResult(entry, func() { fmt.Printf("%s updated to version %d\n", entry.ID, entry.Version) })
		return nil
	},
}

func init() {
	updateCmd.Flags().String("content", "", "new content")
	updateCmd.Flags().StringSlice("tags", nil, "replacement tag set")
	updateCmd.Flags().String("metadata", "", "replacement metadata as a JSON object")
	updateCmd.Flags().String("tier", "", "new tier")
	updateCmd.Flags().String("expires", "", "new expiry, e.g. \"in 1 day\"")
	updateCmd.Flags().String("reason", "", "reason recorded with the version snapshot")
	updateCmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	rootCmd.AddCommand(updateCmd)
}
