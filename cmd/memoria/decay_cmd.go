package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var decayCmd = &cobra.Command{
	Use:     "decay",
	GroupID: "admin",
	Short:   "Run and configure importance-based decay eviction",
}

var decayRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Evict memories below the decay threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		result, err := decaySvc.Run(cmd.Context(), dryRun)
		if err != nil {
			fatalErr(err)
		}
		printResult(result, func() {
			if result.DryRun {
				fmt.Printf("%d candidate(s) would be deleted\n", len(result.Candidates))
				return
			}
			fmt.Printf("deleted %d, failed %d\n", len(result.DeletedIDs), len(result.FailedIDs))
		})
		return nil
	},
}

var decayConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update the decay configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("enabled") && !cmd.Flags().Changed("threshold") &&
			!cmd.Flags().Changed("grace-period-days") && !cmd.Flags().Changed("max-delete-per-run") {
			cfg, err := decaySvc.GetConfig(cmd.Context())
			if err != nil {
				fatalErr(err)
			}
			printResult(cfg, func() {
				fmt.Printf("enabled=%v threshold=%.3f grace_period_days=%d max_delete_per_run=%d\n",
					cfg.Enabled, cfg.Threshold, cfg.GracePeriodDays, cfg.MaxDeletePerRun)
			})
			return nil
		}

		cfg, err := decaySvc.GetConfig(cmd.Context())
		if err != nil {
			fatalErr(err)
		}
		if cmd.Flags().Changed("enabled") {
			cfg.Enabled, _ = cmd.Flags().GetBool("enabled")
		}
		if cmd.Flags().Changed("threshold") {
			cfg.Threshold, _ = cmd.Flags().GetFloat64("threshold")
		}
		if cmd.Flags().Changed("grace-period-days") {
			cfg.GracePeriodDays, _ = cmd.Flags().GetInt("grace-period-days")
		}
		if cmd.Flags().Changed("max-delete-per-run") {
			cfg.MaxDeletePerRun, _ = cmd.Flags().GetInt("max-delete-per-run")
		}
		if err := decaySvc.SetConfig(cmd.Context(), *cfg); err != nil {
			fatalErr(err)
		}
		printResult(cfg, func() { fmt.Println("decay config updated") })
		return nil
	},
}

func init() {
	decayRunCmd.Flags().Bool("dry-run", false, "list candidates without deleting")
	decayRunCmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")

	decayConfigCmd.Flags().Bool("enabled", false, "enable decay eviction")
	decayConfigCmd.Flags().Float64("threshold", 0, "importance score below which a memory is a candidate")
	decayConfigCmd.Flags().Int("grace-period-days", 0, "days since creation before a memory is eligible")
	decayConfigCmd.Flags().Int("max-delete-per-run", 0, "cap on deletions per run")
	decayConfigCmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")

	decayCmd.AddCommand(decayRunCmd, decayConfigCmd)
	rootCmd.AddCommand(decayCmd)
}
