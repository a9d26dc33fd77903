package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/memoria/internal/types"
)

var storeCmd = &cobra.Command{
	Use:     "store <content>",
	GroupID: "memories",
	Short:   "Store a new memory",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tier, _ := cmd.Flags().GetString("tier")
		tags, _ := cmd.Flags().GetStringSlice("tags")
		metaRaw, _ := cmd.Flags().GetString("metadata")
		ttl, _ := cmd.Flags().GetString("ttl")
		agentID, _ := cmd.Flags().GetString("agent")
		contentType, _ := cmd.Flags().GetString("content-type")
		allowShared, _ := cmd.Flags().GetBool("allow-shared")

		meta, err := parseMetadata(metaRaw)
		if err != nil {
			return err
		}

		req := types.StoreRequest{
			Content:     args[0],
			Tier:        types.Tier(tier),
			Tags:        tags,
			Metadata:    meta,
			AgentID:     agentID,
			Namespace:   namespaceFlag,
			ContentType: types.ContentType(contentType),
			AllowShared: allowShared,
		}
		if ttl != "" {
			t, err := parseWhen(ttl)
			if err != nil {
				return fmt.Errorf("parse --ttl: %w", err)
			}
			secs := int64(time.Until(t).Seconds())
			req.TTLSeconds = &secs
		}

		entry, err := memSvc.Store(cmd.Context(), req)
		if err != nil {
			fatalErr(err)
		}
		printResult(entry, func() { fmt.Println(entry.ID) })
		return nil
	},
}

// parseMetadata decodes a JSON object string into a map, treating an empty
// string as no metadata rather than an error.
func parseMetadata(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("parse --metadata: %w", err)
	}
	return m, nil
}

func init() {
	storeCmd.Flags().String("tier", string(types.TierShortTerm), "memory tier (short_term, long_term, working)")
	storeCmd.Flags().StringSlice("tags", nil, "comma-separated tags")
	storeCmd.Flags().String("metadata", "", "metadata as a JSON object")
	storeCmd.Flags().String("ttl", "", "time to live, e.g. \"2h\", \"in 3 days\", or a number of seconds")
	storeCmd.Flags().String("agent", "", "agent id recorded as the author")
	storeCmd.Flags().String("content-type", string(types.ContentText), "content type (text, code, json, yaml, image-ref)")
	storeCmd.Flags().Bool("allow-shared", false, "opt in to writing into the shared namespace")
	storeCmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	rootCmd.AddCommand(storeCmd)
}
