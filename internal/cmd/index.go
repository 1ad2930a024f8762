package cmd

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zolll23/ragdoll/internal/indexer"
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index <project>",
	Short: "Index a project",
	Long: `Walk the project root, extract entities from .py and .php files and
enrich them through the configured LLM provider.

Indexing is resumable: interrupting with Ctrl-C records the last fully
indexed file, and --resume continues from there. Files whose content
hash is unchanged are skipped either way.

Entities whose semantic analysis keeps failing after retries get a
fallback record and are counted; 'ragdoll reindex --only-failed'
retries just those later.

Examples:
  ragdoll index shop             # Index the project named shop
  ragdoll index shop --resume    # Continue an interrupted run`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

// reindexCmd represents the reindex command
var reindexCmd = &cobra.Command{
	Use:   "reindex <project>",
	Short: "Re-run indexing for a project",
	Long: `Re-run indexing over an already indexed project.

By default every file is re-checked against its content hash, so only
changed files are re-extracted and re-analyzed.

Examples:
  ragdoll reindex shop                      # Re-check all files
  ragdoll reindex shop --only-failed        # Retry failed analyses only
  ragdoll reindex shop --file src/cart.php  # Force one file`,
	Args: cobra.ExactArgs(1),
	RunE: runReindex,
}

var (
	indexResume       bool
	reindexOnlyFailed bool
	reindexFile       string
)

func init() {
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(reindexCmd)

	indexCmd.Flags().BoolVar(&indexResume, "resume", false, "Resume from the last indexed file")
	reindexCmd.Flags().BoolVar(&reindexOnlyFailed, "only-failed", false, "Retry only entities whose analysis failed")
	reindexCmd.Flags().StringVar(&reindexFile, "file", "", "Reindex a single file (project-relative path)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ix, projectID, cleanup, err := setupIndexer(args[0])
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ix.Run(ctx, projectID, indexResume); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Indexing complete.")
	return nil
}

func runReindex(cmd *cobra.Command, args []string) error {
	ix, projectID, cleanup, err := setupIndexer(args[0])
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case reindexOnlyFailed:
		if err := ix.ReindexFailed(ctx, projectID); err != nil {
			return fmt.Errorf("reindex failed entities: %w", err)
		}
	case reindexFile != "":
		if err := ix.ReindexFile(ctx, projectID, reindexFile); err != nil {
			return fmt.Errorf("reindex file %s: %w", reindexFile, err)
		}
	default:
		if err := ix.Run(ctx, projectID, false); err != nil {
			return fmt.Errorf("reindexing failed: %w", err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Reindexing complete.")
	return nil
}

// setupIndexer wires the indexer from config and the stores. The
// analyzer and embedder degrade to nil with a warning when their
// credentials or endpoints are missing.
func setupIndexer(nameOrID string) (*indexer.Indexer, int64, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, 0, nil, err
	}

	st, err := openStore()
	if err != nil {
		return nil, 0, nil, err
	}

	project, err := resolveProject(st, nameOrID)
	if err != nil {
		st.Close()
		return nil, 0, nil, err
	}

	vectors, err := openVectors()
	if err != nil {
		slog.Warn("vector store unavailable, skipping embeddings", "error", err)
		vectors = nil
	}

	analyzer, err := buildAnalyzer(cfg)
	if err != nil {
		slog.Warn("semantic analysis disabled", "error", err)
		analyzer = nil
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		slog.Warn("embeddings disabled", "error", err)
		embedder = nil
	}

	ix := indexer.New(st, vectors, analyzer, embedder, slog.Default(), indexer.Options{
		MaxAttempts: cfg.Indexer.MaxAttempts,
		Locale:      cfg.Indexer.Locale,
		Exclude:     cfg.Indexer.Exclude,
	})

	cleanup := func() {
		if vectors != nil {
			vectors.Close()
		}
		st.Close()
	}
	return ix, project.ID, cleanup, nil
}
