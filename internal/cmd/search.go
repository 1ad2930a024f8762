package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/zolll23/ragdoll/internal/llm"
	"github.com/zolll23/ragdoll/internal/search"
	"github.com/zolll23/ragdoll/internal/store"
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed code by natural-language query",
	Long: `Search for code entities using a natural-language query in English
or Russian.

The query is parsed for structural intent (entity type, MVC/DDD role,
complexity class, SOLID principle, design pattern, testability) and the
engine combines several stages:
  keyword     full-text match over names, descriptions and keywords
  structured  filters parsed from the query
  dependency  entities that depend on the keyword matches
  semantic    vector similarity fill when fewer than limit results

Results carry a relevance score and the stage that produced them;
entities found by several stages are marked hybrid.

Examples:
  ragdoll search "payment controllers"
  ragdoll search "методы отправки сообщений"
  ragdoll search "methods with o(n^2) complexity or higher"
  ragdoll search "srp violations" --project shop
  ragdoll search "order statuses" --limit 20
  ragdoll search "repositories" --refine   # Let the LLM add filters`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var (
	searchProject string
	searchLimit   int
	searchRefine  bool
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchProject, "project", "", "Project name or id (default: the only registered project)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum results (default from config)")
	searchCmd.Flags().BoolVar(&searchRefine, "refine", false, "Ask the LLM provider to refine query interpretation")
}

// searchRow is the per-result output shape.
type searchRow struct {
	ID          int64   `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	FQN         string  `json:"fqn,omitempty" yaml:"fqn,omitempty"`
	Type        string  `json:"type" yaml:"type"`
	Location    string  `json:"location" yaml:"location"`
	Score       float64 `json:"score" yaml:"score"`
	MatchType   string  `json:"match_type" yaml:"match_type"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	project, err := pickProject(st, searchProject)
	if err != nil {
		return err
	}

	vectors, err := openVectors()
	if err != nil {
		slog.Warn("vector store unavailable, semantic stage disabled", "error", err)
		vectors = nil
	} else {
		defer vectors.Close()
	}

	var embedder search.Embedder
	if vectors != nil {
		if e, err := buildEmbedder(cfg); err == nil {
			embedder = e
		} else {
			slog.Warn("embedder unavailable, semantic stage disabled", "error", err)
		}
	}

	var refiner llm.QueryRefiner
	if searchRefine {
		if refiner = buildRefiner(cfg); refiner == nil {
			slog.Warn("query refinement requested but no llm provider is configured")
		}
	}

	engine := search.New(st, vectors, embedder, refiner, slog.Default())

	limit := searchLimit
	if limit <= 0 {
		limit = cfg.Search.DefaultLimit
	}

	results, err := engine.Search(cmd.Context(), query, project.ID, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No results found for: %s\n", query)
		return nil
	}

	rows := make([]searchRow, 0, len(results))
	for _, r := range results {
		row := searchRow{
			ID:        r.Entity.ID,
			Name:      r.Entity.Name,
			FQN:       r.Entity.FQN,
			Type:      r.Entity.EntityType,
			Location:  fmt.Sprintf("%s:%d-%d", r.FilePath, r.Entity.StartLine, r.Entity.EndLine),
			Score:     r.Score,
			MatchType: r.MatchType,
		}
		if r.Analysis != nil {
			row.Description = r.Analysis.Description
		}
		rows = append(rows, row)
	}
	return render(cmd.OutOrStdout(), rows)
}

// pickProject resolves the --project flag, falling back to the only
// registered project.
func pickProject(st *store.Store, nameOrID string) (*store.Project, error) {
	if nameOrID != "" {
		return resolveProject(st, nameOrID)
	}

	projects, err := st.ListProjects()
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	switch len(projects) {
	case 0:
		return nil, fmt.Errorf("no projects registered: run 'ragdoll project add'")
	case 1:
		return projects[0], nil
	default:
		return nil, fmt.Errorf("multiple projects registered: pass --project")
	}
}
