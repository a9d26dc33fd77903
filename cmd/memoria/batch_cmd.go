package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/memoria/internal/types"
)

var batchCmd = &cobra.Command{
	Use:     "batch",
	GroupID: "memories",
	Short:   "Store or update many memories in one call",
}

var batchStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Store memories from a JSON array of store requests read from a file or stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		mode, _ := cmd.Flags().GetString("on-error")

		var raw []byte
		var err error
		if file == "" || file == "-" {
			raw, err = io.ReadAll(os.Stdin)
		} else {
			raw, err = os.ReadFile(file)
		}
		if err != nil {
			return fmt.Errorf("read batch input: %w", err)
		}

		var reqs []types.StoreRequest
		if err := json.Unmarshal(raw, &reqs); err != nil {
			return fmt.Errorf("parse batch input: %w", err)
		}
		for i := range reqs {
			if reqs[i].Namespace == "" {
				reqs[i].Namespace = namespaceFlag
			}
		}

		result := memSvc.BatchStore(cmd.Context(), reqs, types.BatchErrorMode(mode))
		printResult(result, func() {
			fmt.Printf("stored %d, failed %d, aborted=%v\n", len(result.Succeeded), len(result.Failed), result.Aborted)
			for _, f := range result.Failed {
				fmt.Printf("  [%d] %v\n", f.Index, f.Err)
			}
		})
		return nil
	},
}

var batchUpdateCmd = &cobra.Command{
	Use:   "update <id...>",
	Short: "Apply the same update to many memories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("on-error")
		var req types.UpdateRequest
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
		req.ChangeReason, _ = cmd.Flags().GetString("reason")

		result := memSvc.BatchUpdate(cmd.Context(), args, req, types.BatchErrorMode(mode))
		printResult(result, func() {
			fmt.Printf("updated %d, failed %d, aborted=%v\n", len(result.Succeeded), len(result.Failed), result.Aborted)
		})
		return nil
	},
}

func init() {
	batchStoreCmd.Flags().String("file", "", "input file, or omit/- for stdin")
	batchStoreCmd.Flags().String("on-error", string(types.BatchContinue), "rollback, continue, or stop")

	batchUpdateCmd.Flags().StringSlice("tags", nil, "replacement tag set")
	batchUpdateCmd.Flags().String("metadata", "", "replacement metadata as a JSON object")
	batchUpdateCmd.Flags().String("tier", "", "new tier")
	batchUpdateCmd.Flags().String("reason", "", "reason recorded with each version snapshot")
	batchUpdateCmd.Flags().String("on-error", string(types.BatchContinue), "rollback, continue, or stop")

	for _, c := range []*cobra.Command{batchStoreCmd, batchUpdateCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	}
	batchCmd.AddCommand(batchStoreCmd, batchUpdateCmd)
	rootCmd.AddCommand(batchCmd)
}
