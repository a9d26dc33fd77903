package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/memoria/internal/schema"
	"github.com/fenwick-labs/memoria/internal/types"
)

var schemaCmd = &cobra.Command{
	Use:     "schema",
	GroupID: "admin",
	Short:   "Manage typed-content schemas",
}

var schemaRegisterCmd = &cobra.Command{
	Use:   "register <name>",
	Short: "Register a schema from a JSON field-list file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fieldsRaw, _ := cmd.Flags().GetString("fields")
		var fields []types.SchemaField
		if err := json.Unmarshal([]byte(fieldsRaw), &fields); err != nil {
			return fmt.Errorf("parse --fields: %w", err)
		}
		s := types.MemorySchema{Name: args[0], Namespace: namespaceFlag, Fields: fields}
		if err := schemaSvc.Register(cmd.Context(), s); err != nil {
			fatalErr(err)
		}
		printResult(map[string]string{"status": "registered"}, func() { fmt.Println("registered schema", args[0]) })
		return nil
	},
}

var schemaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		schemas, err := schemaSvc.List(cmd.Context(), namespaceFlag)
		if err != nil {
			fatalErr(err)
		}
		printResult(schemas, func() {
			for _, s := range schemas {
				fmt.Printf("%s v%d (%d fields)\n", s.Name, s.Version, len(s.Fields))
			}
		})
		return nil
	},
}

var schemaDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := schemaSvc.Delete(cmd.Context(), namespaceFlag, args[0]); err != nil {
			fatalErr(err)
		}
		printResult(map[string]string{"status": "deleted"}, func() { fmt.Println("deleted schema", args[0]) })
		return nil
	},
}

var typedStoreCmd = &cobra.Command{
	Use:   "typed-store <schema-name> <content>",
	Short: "Store a memory with schema-validated structured content",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataRaw, _ := cmd.Flags().GetString("data")
		var data map[string]any
		if err := json.Unmarshal([]byte(dataRaw), &data); err != nil {
			return fmt.Errorf("parse --data: %w", err)
		}
		s, err := schemaSvc.Get(cmd.Context(), namespaceFlag, args[0])
		if err != nil {
			fatalErr(err)
		}
		if s == nil {
			fatalf("schema %q not found in namespace %q", args[0], namespaceFlag)
		}
		entry, err := schema.StoreTyped(cmd.Context(), store, embedder, s, args[1], data, types.StoreRequest{Namespace: namespaceFlag})
		if err != nil {
			fatalErr(err)
		}
		printResult(entry, func() { fmt.Println(entry.ID) })
		return nil
	},
}

func init() {
	schemaRegisterCmd.Flags().String("fields", "[]", "fields as a JSON array of {name,type,required,indexed,validation}")
	for _, c := range []*cobra.Command{schemaRegisterCmd, schemaListCmd, schemaDeleteCmd, typedStoreCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	}
	typedStoreCmd.Flags().String("data", "{}", "structured content as a JSON object")

	schemaCmd.AddCommand(schemaRegisterCmd, schemaListCmd, schemaDeleteCmd)
	rootCmd.AddCommand(schemaCmd, typedStoreCmd)
}
