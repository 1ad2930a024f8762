package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zolll23/ragdoll/internal/store"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status [project]",
	Short: "Show indexing status",
	Long: `Show indexing progress and counters for one project, or a summary of
every registered project.

Examples:
  ragdoll status         # All projects
  ragdoll status shop    # One project, with failure counters`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// statusView is the per-project status output shape.
type statusView struct {
	Name          string `json:"name" yaml:"name"`
	Status        string `json:"status" yaml:"status"`
	StatusMessage string `json:"status_message,omitempty" yaml:"status_message,omitempty"`
	CurrentFile   string `json:"current_file,omitempty" yaml:"current_file,omitempty"`
	LastIndexed   string `json:"last_indexed_file,omitempty" yaml:"last_indexed_file,omitempty"`

	TotalFiles    int   `json:"total_files" yaml:"total_files"`
	IndexedFiles  int   `json:"indexed_files" yaml:"indexed_files"`
	TotalEntities int   `json:"total_entities" yaml:"total_entities"`
	TokensUsed    int64 `json:"tokens_used" yaml:"tokens_used"`

	FailedAnalyses int `json:"failed_analyses" yaml:"failed_analyses"`
	Vectors        int `json:"vectors" yaml:"vectors"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var projects []*store.Project
	if len(args) == 1 {
		project, err := resolveProject(st, args[0])
		if err != nil {
			return err
		}
		projects = []*store.Project{project}
	} else {
		projects, err = st.ListProjects()
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
	}

	if len(projects) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No projects registered.")
		return nil
	}

	vectors, _ := openVectors()
	if vectors != nil {
		defer vectors.Close()
	}

	views := make([]statusView, 0, len(projects))
	for _, p := range projects {
		v := statusView{
			Name:          p.Name,
			Status:        p.IndexingStatus,
			StatusMessage: p.StatusMessage,
			CurrentFile:   p.CurrentFilePath,
			LastIndexed:   p.LastIndexedFilePath,
			TotalFiles:    p.TotalFiles,
			IndexedFiles:  p.IndexedFiles,
			TotalEntities: p.TotalEntities,
			TokensUsed:    p.TokensUsed,
		}
		if failed, err := st.CountFailedAnalyses(p.ID); err == nil {
			v.FailedAnalyses = failed
		}
		if vectors != nil {
			if n, err := vectors.Count(p.ID); err == nil {
				v.Vectors = n
			}
		}
		views = append(views, v)
	}

	if len(views) == 1 {
		return render(cmd.OutOrStdout(), views[0])
	}
	return render(cmd.OutOrStdout(), views)
}
