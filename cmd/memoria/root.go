package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/memoria/internal/cache"
	memctx "github.com/fenwick-labs/memoria/internal/context"
	"github.com/fenwick-labs/memoria/internal/config"
	"github.com/fenwick-labs/memoria/internal/decay"
	"github.com/fenwick-labs/memoria/internal/dedup"
	"github.com/fenwick-labs/memoria/internal/embedding"
	"github.com/fenwick-labs/memoria/internal/knowledge"
	"github.com/fenwick-labs/memoria/internal/linkgraph"
	"github.com/fenwick-labs/memoria/internal/memory"
	"github.com/fenwick-labs/memoria/internal/obslog"
	"github.com/fenwick-labs/memoria/internal/schema"
	"github.com/fenwick-labs/memoria/internal/search"
	"github.com/fenwick-labs/memoria/internal/storage"
	"github.com/fenwick-labs/memoria/internal/storage/sqlite"
	"github.com/fenwick-labs/memoria/internal/tokenizer"
)

// Shared state wired up in PersistentPreRunE and used by every leaf command
// in this package.
var (
	db       *sqlite.DB
	store    storage.Storage
	embedder embedding.Provider

	memSvc     *memory.Service
	searchSvc  *search.Service
	dedupSvc   *dedup.Service
	decaySvc   *decay.Service
	linkSvc    *linkgraph.Service
	schemaSvc  *schema.Service
	ctxBuilder *memctx.Builder
	semCache   *cache.Cache
	knowSvc    *knowledge.Service

	dbPath        string
	namespaceFlag string
	jsonOutput    bool
)

var rootCmd = &cobra.Command{
	Use:           "memoria",
	Short:         "An embedded memory store for agents: hybrid search, links, decay, and context assembly",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		obslog.Init(obslog.Options{Path: config.GetString("log_path")})

		if dbPath == "" {
			dbPath = config.GetString("database_path")
		}

		var err error
		db, err = sqlite.Open(cmd.Context(), dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		store = db

		embedder = embedding.NewDeterministic(config.GetInt("embedding_dimensions"))

		accessRateLimit := time.Duration(config.GetInt("access_log_rate_limit_seconds")) * time.Second
		memSvc = memory.New(store, embedder, config.GetInt("max_content_length"), config.GetInt("batch_max_size"), accessRateLimit)
		tok := tokenizer.New()
		searchSvc = search.New(store, embedder, tok, config.GetInt("rrf_constant"), config.GetInt("search_default_top_k"), accessRateLimit)
		dedupSvc = dedup.New(store, embedder)
		decaySvc = decay.New(store)
		linkSvc = linkgraph.New(store)
		schemaSvc = schema.New(store)
		knowSvc = knowledge.New(store, embedder)

		semCache = cache.New(embedder, config.GetInt("cache_max_size"), time.Duration(config.GetInt("cache_ttl_seconds"))*time.Second, config.GetFloat64("cache_similarity_threshold"))
		semCache.StartSweeper(cmd.Context())

		cleanupInterval := time.Duration(config.GetInt("cleanup_interval_seconds")) * time.Second
		memSvc.StartTTLSweeper(cmd.Context(), cleanupInterval)

		ctxBuilder = memctx.New(store, searchSvc, linkSvc, semCache, config.GetFloat64("token_buffer_ratio"), "cl100k_base")

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if memSvc != nil {
			memSvc.Close()
		}
		if semCache != nil {
			semCache.Close()
		}
		if db != nil {
			return db.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the memoria database (overrides config)")
	rootCmd.PersistentFlags().StringVar(&namespaceFlag, "namespace", "", "namespace to operate in (empty is the default namespace)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "memories", Title: "Memories:"},
		&cobra.Group{ID: "search", Title: "Search & Context:"},
		&cobra.Group{ID: "graph", Title: "Links & Graph:"},
		&cobra.Group{ID: "knowledge", Title: "Knowledge Base:"},
		&cobra.Group{ID: "agents", Title: "Agents & Messaging:"},
		&cobra.Group{ID: "admin", Title: "Administration:"},
	)
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
