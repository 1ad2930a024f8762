package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/zolll23/ragdoll/internal/store"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <entity-id|fqn>",
	Short: "Show detailed information about an entity",
	Long: `Show one entity with its analysis record and dependency edges.

The argument is a numeric entity id (as printed by search) or a fully
qualified name. FQN lookup needs --project when more than one project
is registered.

Examples:
  ragdoll show 42
  ragdoll show "App\Service\OrderService::place" --project shop
  ragdoll show OrderService.place --code`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

var (
	showProject string
	showCode    bool
)

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVar(&showProject, "project", "", "Project name or id for FQN lookup")
	showCmd.Flags().BoolVar(&showCode, "code", false, "Include the entity's source code")
}

// depRow is one dependency edge in show output.
type depRow struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	EntityID *int64 `json:"entity_id,omitempty" yaml:"entity_id,omitempty"`
}

// showView is the show output shape.
type showView struct {
	ID         int64  `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	FQN        string `json:"fqn" yaml:"fqn"`
	Type       string `json:"type" yaml:"type"`
	Visibility string `json:"visibility,omitempty" yaml:"visibility,omitempty"`
	Language   string `json:"language" yaml:"language"`
	Location   string `json:"location" yaml:"location"`
	Comment    string `json:"comment,omitempty" yaml:"comment,omitempty"`
	Code       string `json:"code,omitempty" yaml:"code,omitempty"`

	Analysis  *store.Analysis `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	DependsOn []depRow        `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	UsedBy    []depRow        `json:"used_by,omitempty" yaml:"used_by,omitempty"`
}

func runShow(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	entity, err := lookupEntity(st, args[0])
	if err != nil {
		return err
	}

	view := showView{
		ID:         entity.ID,
		Name:       entity.Name,
		FQN:        entity.FQN,
		Type:       entity.EntityType,
		Visibility: entity.Visibility,
		Language:   entity.Language,
		Comment:    entity.Comment,
	}
	if showCode {
		view.Code = entity.Code
	}

	view.Location = entityLocation(st, entity)

	if analysis, err := st.GetAnalysis(entity.ID); err == nil {
		view.Analysis = analysis
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("load analysis: %w", err)
	}

	if deps, err := st.GetDependenciesOf(entity.ID); err == nil {
		for _, d := range deps {
			view.DependsOn = append(view.DependsOn, depRow{Name: d.DependsOnName, Type: d.DepType, EntityID: d.DependsOnID})
		}
	}
	if dependents, err := st.GetDependentsOf(entity.ID); err == nil {
		for _, d := range dependents {
			name := d.DependsOnName
			if source, err := st.GetEntity(d.EntityID); err == nil {
				name = source.FQN
			}
			id := d.EntityID
			view.UsedBy = append(view.UsedBy, depRow{Name: name, Type: d.DepType, EntityID: &id})
		}
	}

	return render(cmd.OutOrStdout(), view)
}

// lookupEntity resolves a numeric id or an FQN to an entity.
func lookupEntity(st *store.Store, arg string) (*store.Entity, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		entity, err := st.GetEntity(id)
		if err != nil {
			return nil, fmt.Errorf("entity not found: %d", id)
		}
		return entity, nil
	}

	project, err := pickProject(st, showProject)
	if err != nil {
		return nil, err
	}
	entity, err := st.GetEntityByFQN(project.ID, arg)
	if err != nil {
		return nil, fmt.Errorf("entity not found: %q", arg)
	}
	return entity, nil
}

// entityLocation formats file:start-end for an entity.
func entityLocation(st *store.Store, e *store.Entity) string {
	path := ""
	if files, err := st.ListFiles(e.ProjectID); err == nil {
		for _, f := range files {
			if f.ID == e.FileID {
				path = f.Path
				break
			}
		}
	}
	if path == "" {
		return fmt.Sprintf("%d-%d", e.StartLine, e.EndLine)
	}
	return fmt.Sprintf("%s:%d-%d", path, e.StartLine, e.EndLine)
}
