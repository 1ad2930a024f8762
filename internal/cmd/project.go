package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/zolll23/ragdoll/internal/store"
)

// projectCmd groups project management subcommands
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage indexed projects",
	Long: `Register, list and remove projects.

A project is one codebase rooted at a directory. Indexing walks the
project root for .py and .php files; search and duplicate scanning are
always scoped to one project.

Examples:
  ragdoll project add shop ~/src/shop
  ragdoll project add shop ~/src/shop --locale ru
  ragdoll project list
  ragdoll project remove shop`,
}

var projectAddCmd = &cobra.Command{
	Use:   "add <name> <path>",
	Short: "Register a project",
	Args:  cobra.ExactArgs(2),
	RunE:  runProjectAdd,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered projects",
	Args:  cobra.NoArgs,
	RunE:  runProjectList,
}

var projectRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a project and its index",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectRemove,
}

var projectLocale string

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectRemoveCmd)

	projectAddCmd.Flags().StringVar(&projectLocale, "locale", "", "Analysis locale for this project (en|ru, default from config)")
}

func runProjectAdd(cmd *cobra.Command, args []string) error {
	name, path := args[0], args[1]

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving project path: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	locale := projectLocale
	if locale == "" {
		locale = cfg.Indexer.Locale
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := st.GetProjectByName(name); err == nil {
		return fmt.Errorf("project already exists: %s", name)
	}

	project := &store.Project{
		Name:           name,
		Path:           absPath,
		Locale:         locale,
		IndexingStatus: store.StatusIdle,
	}
	if err := st.CreateProject(project); err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Added project %s (id %d) at %s\n", project.Name, project.ID, project.Path)
	return nil
}

// projectRow is the list output shape.
type projectRow struct {
	ID       int64  `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Path     string `json:"path" yaml:"path"`
	Status   string `json:"status" yaml:"status"`
	Files    int    `json:"files" yaml:"files"`
	Entities int    `json:"entities" yaml:"entities"`
	Tokens   int64  `json:"tokens_used" yaml:"tokens_used"`
}

func runProjectList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	projects, err := st.ListProjects()
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	if len(projects) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No projects registered. Run 'ragdoll project add <name> <path>'.")
		return nil
	}

	rows := make([]projectRow, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, projectRow{
			ID:       p.ID,
			Name:     p.Name,
			Path:     p.Path,
			Status:   p.IndexingStatus,
			Files:    p.TotalFiles,
			Entities: p.TotalEntities,
			Tokens:   p.TokensUsed,
		})
	}
	return render(cmd.OutOrStdout(), rows)
}

func runProjectRemove(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	project, err := resolveProject(st, args[0])
	if err != nil {
		return err
	}

	// Vector rows do not cascade from the relational store; drop them
	// first, best effort.
	if ids, err := st.DeleteEntities(store.EntitySelector{ProjectID: project.ID}); err == nil {
		if vectors, verr := openVectors(); verr == nil {
			for _, id := range ids {
				vectors.DeleteByEntity(id)
			}
			vectors.Close()
		}
	}

	if err := st.DeleteProject(project.ID); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed project %s\n", project.Name)
	return nil
}
