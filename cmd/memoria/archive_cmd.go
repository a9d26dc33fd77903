package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/memoria/internal/archive"
)

var archiveCmd = &cobra.Command{
	Use:     "archive",
	GroupID: "admin",
	Short:   "Export and import the store as a line-delimited JSON archive",
}

var archiveExportCmd = &cobra.Command{
	Use:   "export <dest-path>",
	Short: "Export every table to a line-delimited JSON archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
		allowDirs, _ := cmd.Flags().GetStringSlice("allow-dir")

		summary, err := archive.Export(cmd.Context(), store, args[0], baseDir, allowDirs...)
		if err != nil {
			fatalErr(err)
		}
		printResult(summary, func() {
			fmt.Println("exported to", args[0])
			for t, n := range summary.Counts {
				fmt.Printf("  %-20s %d\n", t, n)
			}
		})
		return nil
	},
}

var archiveImportCmd = &cobra.Command{
	Use:   "import <src-path>",
	Short: "Import a line-delimited JSON archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")
		policy, _ := cmd.Flags().GetString("on-conflict")
		regen, _ := cmd.Flags().GetBool("regenerate-embeddings")
		allowDirs, _ := cmd.Flags().GetStringSlice("allow-dir")

		baseDir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}

		summary, err := archive.Import(cmd.Context(), store, embedder, args[0], baseDir,
			archive.Mode(mode), archive.ConflictPolicy(policy), regen, allowDirs...)
		if err != nil {
			fatalErr(err)
		}
		printResult(summary, func() {
			fmt.Println("imported from", args[0])
			for t, n := range summary.Counts {
				fmt.Printf("  %-20s %d\n", t, n)
			}
		})
		return nil
	},
}

func init() {
	archiveExportCmd.Flags().StringSlice("allow-dir", nil, "additional directories the destination path may resolve into")
	archiveImportCmd.Flags().String("mode", string(archive.ModeMerge), "replace or merge")
	archiveImportCmd.Flags().String("on-conflict", string(archive.PolicySkip), "skip, update, or error on an existing row")
	archiveImportCmd.Flags().Bool("regenerate-embeddings", false, "recompute embeddings from content instead of trusting the archive")
	archiveImportCmd.Flags().StringSlice("allow-dir", nil, "additional directories the source path may resolve into")

	for _, c := range []*cobra.Command{archiveExportCmd, archiveImportCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	}
	archiveCmd.AddCommand(archiveExportCmd, archiveImportCmd)
	rootCmd.AddCommand(archiveCmd)
}
