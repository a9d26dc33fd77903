package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/memoria/internal/types"
)

var linkCmd = &cobra.Command{
	Use:     "link",
	GroupID: "graph",
	Short:   "Manage typed links between memories",
}

var linkAddCmd = &cobra.Command{
	Use:   "add <source-id> <target-id>",
	Short: "Create a typed link between two memories",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		linkType, _ := cmd.Flags().GetString("type")
		strength, _ := cmd.Flags().GetFloat64("strength")
		bidirectional, _ := cmd.Flags().GetBool("bidirectional")
		cascadeUpdate, _ := cmd.Flags().GetBool("cascade-update")
		cascadeDelete, _ := cmd.Flags().GetBool("cascade-delete")

		l := types.Link{
			SourceID: args[0], TargetID: args[1], LinkType: types.LinkType(linkType),
			Strength: strength, CascadeOnUpdate: cascadeUpdate, CascadeOnDelete: cascadeDelete,
		}
		if err := linkSvc.CreateLink(cmd.Context(), l, bidirectional); err != nil {
			fatalErr(err)
		}
		printResult(map[string]string{"status": "linked"}, func() { fmt.Println("linked", args[0], "->", args[1]) })
		return nil
	},
}

var linkRemoveCmd = &cobra.Command{
	Use:   "rm <source-id> <target-id>",
	Short: "Remove a link between two memories",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		linkTypeRaw, _ := cmd.Flags().GetString("type")
		var lt *types.LinkType
		if linkTypeRaw != "" {
			t := types.LinkType(linkTypeRaw)
			lt = &t
		}
		n, err := linkSvc.DeleteLink(cmd.Context(), args[0], args[1], lt)
		if err != nil {
			fatalErr(err)
		}
		printResult(map[string]int{"removed": n}, func() { fmt.Printf("removed %d link(s)\n", n) })
		return nil
	},
}

var linkListCmd = &cobra.Command{
	Use:   "ls <id>",
	Short: "List links touching a memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("direction")
		links, err := linkSvc.GetLinks(cmd.Context(), args[0], types.LinkDirection(dir))
		if err != nil {
			fatalErr(err)
		}
		printResult(links, func() {
			for _, l := range links {
				fmt.Printf("%s -[%s]-> %s (strength %.2f)\n", l.SourceID, l.LinkType, l.TargetID, l.Strength)
			}
		})
		return nil
	},
}

func init() {
	linkAddCmd.Flags().String("type", string(types.LinkRelated), "link type")
	linkAddCmd.Flags().Float64("strength", 1.0, "link strength in [0,1]")
	linkAddCmd.Flags().Bool("bidirectional", false, "also create the reciprocal link")
	linkAddCmd.Flags().Bool("cascade-update", false, "propagate update notifications across this link")
	linkAddCmd.Flags().Bool("cascade-delete", false, "propagate delete notifications across this link")
	linkAddCmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")

	linkRemoveCmd.Flags().String("type", "", "link type to remove (all types if omitted)")
	linkRemoveCmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")

	linkListCmd.Flags().String("direction", string(types.DirectionBoth), "outgoing, incoming, or both")
	linkListCmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")

	linkCmd.AddCommand(linkAddCmd, linkRemoveCmd, linkListCmd)
	rootCmd.AddCommand(linkCmd)
}
