package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/memoria/internal/types"
)

var knowledgeCmd = &cobra.Command{
	Use:     "knowledge",
	GroupID: "knowledge",
	Short:   "Import and search chunked knowledge documents",
}

var knowledgeImportCmd = &cobra.Command{
	Use:   "import <title>",
	Short: "Chunk and import a document from a file or stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		source, _ := cmd.Flags().GetString("source")
		category, _ := cmd.Flags().GetString("category")
		strategy, _ := cmd.Flags().GetString("strategy")
		chunkSize, _ := cmd.Flags().GetInt("chunk-size")
		overlap, _ := cmd.Flags().GetInt("overlap")

		var content []byte
		var err error
		if file == "" || file == "-" {
			content, err = io.ReadAll(os.Stdin)
		} else {
			content, err = os.ReadFile(file)
		}
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}

		doc, chunks, err := knowSvc.Import(cmd.Context(), args[0], source, category, string(content), types.ChunkStrategy(strategy), chunkSize, overlap)
		if err != nil {
			fatalErr(err)
		}
		printResult(map[string]any{"document": doc, "chunk_count": len(chunks)}, func() {
			fmt.Printf("imported %s as %d chunks\n", doc.ID, len(chunks))
		})
		return nil
	},
}

var knowledgeGetCmd = &cobra.Command{
	Use:   "get <document-id>",
	Short: "Fetch a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, chunks, err := knowSvc.Get(cmd.Context(), args[0])
		if err != nil {
			fatalErr(err)
		}
		printResult(map[string]any{"document": doc, "chunks": chunks}, func() {
			fmt.Printf("%s (%d chunks)\n", doc.Title, len(chunks))
		})
		return nil
	},
}

var knowledgeDeleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := knowSvc.Delete(cmd.Context(), args[0]); err != nil {
			fatalErr(err)
		}
		printResult(map[string]string{"status": "deleted"}, func() { fmt.Println("deleted", args[0]) })
		return nil
	},
}

var knowledgeSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantic search over knowledge chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		k, _ := cmd.Flags().GetInt("top-k")
		documentID, _ := cmd.Flags().GetString("document")
		results, err := knowSvc.Search(cmd.Context(), args[0], k, documentID)
		if err != nil {
			fatalErr(err)
		}
		printResult(results, func() {
			for _, r := range results {
				fmt.Printf("%.4f  %s [%v]  %.60s\n", r.Similarity, r.Document.Title, r.Chunk.SectionPath, r.Chunk.Content)
			}
		})
		return nil
	},
}

func init() {
	knowledgeImportCmd.Flags().String("file", "", "source file path, or omit/- for stdin")
	knowledgeImportCmd.Flags().String("source", "", "origin of the document (url, path, etc.)")
	knowledgeImportCmd.Flags().String("category", "", "document category")
	knowledgeImportCmd.Flags().String("strategy", string(types.StrategySentence), "chunk strategy (sentence, paragraph, semantic)")
	knowledgeImportCmd.Flags().Int("chunk-size", 1000, "target chunk size in characters")
	knowledgeImportCmd.Flags().Int("overlap", 100, "characters of overlap carried into the next chunk")

	knowledgeSearchCmd.Flags().Int("top-k", 10, "maximum results")
	knowledgeSearchCmd.Flags().String("document", "", "restrict search to one document id")

	for _, c := range []*cobra.Command{knowledgeImportCmd, knowledgeGetCmd, knowledgeDeleteCmd, knowledgeSearchCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	}

	knowledgeCmd.AddCommand(knowledgeImportCmd, knowledgeGetCmd, knowledgeDeleteCmd, knowledgeSearchCmd)
	rootCmd.AddCommand(knowledgeCmd)
}
