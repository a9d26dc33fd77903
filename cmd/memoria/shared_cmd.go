package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sharedCmd = &cobra.Command{
	Use:     "shared",
	GroupID: "agents",
	Short:   "Save and recall named sets of memory ids shared across agents",
}

var sharedPutCmd = &cobra.Command{
	Use:   "put <name> <memory-id...>",
	Short: "Save a named set of memory ids",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := memSvc.SaveSharedContext(cmd.Context(), namespaceFlag, args[0], args[1:])
		if err != nil {
			fatalErr(err)
		}
		printResult(sc, func() { fmt.Println(sc.ID) })
		return nil
	},
}

var sharedGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Fetch a named shared context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := memSvc.LoadSharedContext(cmd.Context(), namespaceFlag, args[0])
		if err != nil {
			fatalErr(err)
		}
		if sc == nil {
			fatalf("shared context %q not found in namespace %q", args[0], namespaceFlag)
		}
		printResult(sc, func() { fmt.Println(sc.MemoryIDs) })
		return nil
	},
}

var sharedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved shared contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		contexts, err := memSvc.ListSharedContexts(cmd.Context())
		if err != nil {
			fatalErr(err)
		}
		printResult(contexts, func() {
			for _, sc := range contexts {
				fmt.Printf("%s/%s  %d memories\n", sc.Namespace, sc.Name, len(sc.MemoryIDs))
			}
		})
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{sharedPutCmd, sharedGetCmd, sharedListCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	}
	sharedCmd.AddCommand(sharedPutCmd, sharedGetCmd, sharedListCmd)
	rootCmd.AddCommand(sharedCmd)
}
