package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:     "cache",
	GroupID: "admin",
	Short:   "Inspect and invalidate the semantic query cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the number of live cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		size := semCache.Size()
		printResult(map[string]int{"size": size}, func() { fmt.Println("cache size:", size) })
		return nil
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate [pattern]",
	Short: "Invalidate cache entries matching a query substring, or all entries if omitted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern := ""
		if len(args) == 1 {
			pattern = args[0]
		}
		n := semCache.Invalidate(pattern)
		printResult(map[string]int{"removed": n}, func() { fmt.Printf("invalidated %d entries\n", n) })
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{cacheStatsCmd, cacheInvalidateCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	}
	cacheCmd.AddCommand(cacheStatsCmd, cacheInvalidateCmd)
	rootCmd.AddCommand(cacheCmd)
}
