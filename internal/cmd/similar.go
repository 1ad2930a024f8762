package cmd

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/zolll23/ragdoll/internal/search"
)

// similarCmd represents the similar command
var similarCmd = &cobra.Command{
	Use:   "similar <entity-id>",
	Short: "Find entities with similar code",
	Long: `Find entities whose code fingerprint is similar to the given entity.

Similarity is a sequence ratio over normalized fingerprints (lowercased,
whitespace stripped, variable names unified), so renamed copies of the
same logic still score near 1.0. Candidates are drawn from the same
project and entity type.

Examples:
  ragdoll similar 42
  ragdoll similar 42 --min 0.8 --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

// duplicatesCmd represents the duplicates command
var duplicatesCmd = &cobra.Command{
	Use:   "duplicates <project>",
	Short: "Scan a project for duplicated code fragments",
	Long: `Compare code fragments across all entities of a project and report
near-duplicate pairs.

Fragments are sliding windows and control-structure blocks of 3 to 25
lines. Each fragment appears in at most one reported pair; pairs are
ordered by similarity.

Examples:
  ragdoll duplicates shop
  ragdoll duplicates shop --type method --min 0.85
  ragdoll duplicates shop --limit 20`,
	Args: cobra.ExactArgs(1),
	RunE: runDuplicates,
}

var (
	similarMin   float64
	similarLimit int

	duplicatesType  string
	duplicatesMin   float64
	duplicatesLimit int
)

func init() {
	rootCmd.AddCommand(similarCmd)
	rootCmd.AddCommand(duplicatesCmd)

	similarCmd.Flags().Float64Var(&similarMin, "min", 0, "Minimum similarity (default from config)")
	similarCmd.Flags().IntVar(&similarLimit, "limit", 10, "Maximum results")

	duplicatesCmd.Flags().StringVar(&duplicatesType, "type", "", "Restrict to one entity type (class, method, function)")
	duplicatesCmd.Flags().Float64Var(&duplicatesMin, "min", 0, "Minimum similarity (default from config)")
	duplicatesCmd.Flags().IntVar(&duplicatesLimit, "limit", 100, "Maximum pairs")
}

// similarRow is the per-result output shape.
type similarRow struct {
	ID         int64   `json:"id" yaml:"id"`
	Name       string  `json:"name" yaml:"name"`
	Type       string  `json:"type" yaml:"type"`
	Location   string  `json:"location" yaml:"location"`
	Similarity float64 `json:"similarity" yaml:"similarity"`
}

func runSimilar(cmd *cobra.Command, args []string) error {
	entityID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid entity id: %s", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	min := similarMin
	if min <= 0 {
		min = cfg.Search.MinSimilarity
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	engine := search.New(st, nil, nil, nil, slog.Default())

	results, err := engine.FindSimilar(entityID, min, similarLimit)
	if err != nil {
		return fmt.Errorf("similarity search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No similar entities found.")
		return nil
	}

	rows := make([]similarRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, similarRow{
			ID:         r.Entity.ID,
			Name:       r.Entity.Name,
			Type:       r.Entity.EntityType,
			Location:   fmt.Sprintf("%s:%d-%d", r.FilePath, r.Entity.StartLine, r.Entity.EndLine),
			Similarity: r.Similarity,
		})
	}
	return render(cmd.OutOrStdout(), rows)
}

// pairSideRow describes one half of a duplicate pair.
type pairSideRow struct {
	ID       int64  `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Location string `json:"location" yaml:"location"`
	Code     string `json:"code" yaml:"code"`
}

// pairRow is the per-pair output shape.
type pairRow struct {
	Similarity float64     `json:"similarity" yaml:"similarity"`
	Left       pairSideRow `json:"left" yaml:"left"`
	Right      pairSideRow `json:"right" yaml:"right"`
}

func runDuplicates(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	min := duplicatesMin
	if min <= 0 {
		min = cfg.Search.MinSimilarity
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	project, err := resolveProject(st, args[0])
	if err != nil {
		return err
	}

	engine := search.New(st, nil, nil, nil, slog.Default())

	pairs, err := engine.SearchSimilarPairs(cmd.Context(), project.ID, duplicatesType, min, duplicatesLimit)
	if err != nil {
		return fmt.Errorf("duplicate scan failed: %w", err)
	}

	if len(pairs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No duplicated fragments found.")
		return nil
	}

	rows := make([]pairRow, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, pairRow{
			Similarity: p.Similarity,
			Left:       toPairSideRow(p.Left),
			Right:      toPairSideRow(p.Right),
		})
	}
	return render(cmd.OutOrStdout(), rows)
}

func toPairSideRow(s search.PairSide) pairSideRow {
	return pairSideRow{
		ID:       s.Entity.ID,
		Name:     s.Entity.Name,
		Location: fmt.Sprintf("%s:%d-%d", s.FilePath, s.StartLine, s.EndLine),
		Code:     s.Code,
	}
}
