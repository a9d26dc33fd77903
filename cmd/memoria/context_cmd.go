package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/memoria/internal/types"
)

var contextCmd = &cobra.Command{
	Use:     "context <query>",
	GroupID: "search",
	Short:   "Assemble a token-budgeted context pack for a query",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		budget, _ := cmd.Flags().GetInt("token-budget")
		topK, _ := cmd.Flags().GetInt("top-k")
		related, _ := cmd.Flags().GetBool("include-related")
		maxDepth, _ := cmd.Flags().GetInt("max-depth")
		autoSum, _ := cmd.Flags().GetBool("auto-summarize")
		minSim, _ := cmd.Flags().GetFloat64("min-similarity")
		useCache, _ := cmd.Flags().GetBool("use-cache")
		strategy, _ := cmd.Flags().GetString("strategy")

		req := types.ContextRequest{
			Query: args[0], TokenBudget: budget, TopK: topK, IncludeRelated: related,
			MaxDepth: maxDepth, AutoSummarize: autoSum, MinSimilarity: minSim,
			Namespace: namespaceFlag, UseCache: useCache, Strategy: types.ContextStrategy(strategy),
		}
		pack, err := ctxBuilder.Build(cmd.Context(), req)
		if err != nil {
			fatalErr(err)
		}
		printResult(pack, func() {
			fmt.Printf("%d memories, %d/%d tokens, cache_hit=%v\n", pack.MemoriesCount, pack.TotalTokens, pack.TokenBudget, pack.CacheHit)
			for _, it := range pack.Memories {
				fmt.Printf("  %s (%d tok) %.60s\n", it.EntryID, it.Tokens, it.Content)
			}
		})
		return nil
	},
}

func init() {
	contextCmd.Flags().Int("token-budget", 4000, "token budget for the assembled pack")
	contextCmd.Flags().Int("top-k", 10, "direct candidates to fetch before graph expansion")
	contextCmd.Flags().Bool("include-related", true, "expand via the link graph")
	contextCmd.Flags().Int("max-depth", 2, "maximum link-graph BFS depth")
	contextCmd.Flags().Bool("auto-summarize", true, "summarize oversized items to fit budget")
	contextCmd.Flags().Float64("min-similarity", 0, "minimum semantic similarity for direct candidates")
	contextCmd.Flags().Bool("use-cache", true, "serve and populate the semantic cache")
	contextCmd.Flags().String("strategy", string(types.StrategyRelevance), "ranking strategy (relevance, recency, importance, graph)")
	contextCmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	rootCmd.AddCommand(contextCmd)
}
