package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/zolll23/ragdoll/internal/store"
)

// registerSearchTool registers the ragdoll_search tool
func (s *Server) registerSearchTool() error {
	tool := mcp.NewTool("ragdoll_search",
		mcp.WithDescription("Search indexed code by natural-language query (English or Russian). Combines keyword, structured, dependency and semantic stages."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural-language search query"),
		),
		mcp.WithString("project",
			mcp.Description("Project name (default: the only registered project)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results (default: 10)"),
		),
	)

	s.mcpServer.AddTool(tool, s.handleSearch)
	return nil
}

// registerShowTool registers the ragdoll_show tool
func (s *Server) registerShowTool() error {
	tool := mcp.NewTool("ragdoll_show",
		mcp.WithDescription("Show one entity with its analysis record and dependency edges."),
		mcp.WithNumber("entity_id",
			mcp.Required(),
			mcp.Description("Entity id as returned by ragdoll_search"),
		),
		mcp.WithBoolean("include_code",
			mcp.Description("Include the entity's source code"),
		),
	)

	s.mcpServer.AddTool(tool, s.handleShow)
	return nil
}

// registerSimilarTool registers the ragdoll_similar tool
func (s *Server) registerSimilarTool() error {
	tool := mcp.NewTool("ragdoll_similar",
		mcp.WithDescription("Find entities whose code fingerprint is similar to the given entity."),
		mcp.WithNumber("entity_id",
			mcp.Required(),
			mcp.Description("Entity id to compare against"),
		),
		mcp.WithNumber("min_similarity",
			mcp.Description("Similarity floor 0..1 (default: 0.7)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results (default: 10)"),
		),
	)

	s.mcpServer.AddTool(tool, s.handleSimilar)
	return nil
}

// registerStatusTool registers the ragdoll_status tool
func (s *Server) registerStatusTool() error {
	tool := mcp.NewTool("ragdoll_status",
		mcp.WithDescription("Show indexing progress and counters for a project."),
		mcp.WithString("project",
			mcp.Description("Project name (default: all projects)"),
		),
	)

	s.mcpServer.AddTool(tool, s.handleStatus)
	return nil
}

// registerProjectsTool registers the ragdoll_projects tool
func (s *Server) registerProjectsTool() error {
	tool := mcp.NewTool("ragdoll_projects",
		mcp.WithDescription("List registered projects with their indexing state."),
	)

	s.mcpServer.AddTool(tool, s.handleProjects)
	return nil
}

// Tool handlers

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	args := req.GetArguments()
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return mcp.NewToolResultError("query parameter is required"), nil
	}
	project, _ := args["project"].(string)
	limit := 0
	if l, ok := args["limit"].(float64); ok {
		limit = int(l)
	}

	result, err := s.executeSearch(ctx, query, project, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	args := req.GetArguments()
	id, ok := args["entity_id"].(float64)
	if !ok {
		return mcp.NewToolResultError("entity_id parameter is required"), nil
	}
	includeCode, _ := args["include_code"].(bool)

	result, err := s.executeShow(int64(id), includeCode)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleSimilar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	args := req.GetArguments()
	id, ok := args["entity_id"].(float64)
	if !ok {
		return mcp.NewToolResultError("entity_id parameter is required"), nil
	}
	min := 0.0
	if m, ok := args["min_similarity"].(float64); ok {
		min = m
	}
	limit := 0
	if l, ok := args["limit"].(float64); ok {
		limit = int(l)
	}

	result, err := s.executeSimilar(int64(id), min, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	args := req.GetArguments()
	project, _ := args["project"].(string)

	result, err := s.executeStatus(project)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	result, err := s.executeProjects()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(result), nil
}

// Execute functions, shared by MCP handlers and CallTool dispatch.

// searchResultItem is the per-result search output shape.
type searchResultItem struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	FQN         string  `json:"fqn,omitempty"`
	Type        string  `json:"type"`
	FilePath    string  `json:"file_path"`
	StartLine   int     `json:"start_line"`
	EndLine     int     `json:"end_line"`
	Score       float64 `json:"score"`
	MatchType   string  `json:"match_type"`
	Description string  `json:"description,omitempty"`
}

func (s *Server) executeSearch(ctx context.Context, query, projectName string, limit int) (string, error) {
	project, err := s.resolveProject(projectName)
	if err != nil {
		return "", err
	}
	if limit <= 0 {
		limit = s.searchLimit
	}

	results, err := s.engine.Search(ctx, query, project.ID, limit)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}

	items := make([]searchResultItem, 0, len(results))
	for _, r := range results {
		item := searchResultItem{
			ID:        r.Entity.ID,
			Name:      r.Entity.Name,
			FQN:       r.Entity.FQN,
			Type:      r.Entity.EntityType,
			FilePath:  r.FilePath,
			StartLine: r.Entity.StartLine,
			EndLine:   r.Entity.EndLine,
			Score:     r.Score,
			MatchType: r.MatchType,
		}
		if r.Analysis != nil {
			item.Description = r.Analysis.Description
		}
		items = append(items, item)
	}

	return toJSON(map[string]interface{}{
		"query":   query,
		"project": project.Name,
		"count":   len(items),
		"results": items,
	})
}

// entityView is the show output shape.
type entityView struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	FQN        string `json:"fqn"`
	Type       string `json:"type"`
	Visibility string `json:"visibility,omitempty"`
	Language   string `json:"language"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	Comment    string `json:"comment,omitempty"`
	Code       string `json:"code,omitempty"`

	Analysis  *store.Analysis `json:"analysis,omitempty"`
	DependsOn []depEdge       `json:"depends_on,omitempty"`
	UsedBy    []depEdge       `json:"used_by,omitempty"`
}

type depEdge struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	EntityID *int64 `json:"entity_id,omitempty"`
}

func (s *Server) executeShow(entityID int64, includeCode bool) (string, error) {
	entity, err := s.store.GetEntity(entityID)
	if err != nil {
		return "", fmt.Errorf("entity not found: %d", entityID)
	}

	view := entityView{
		ID:         entity.ID,
		Name:       entity.Name,
		FQN:        entity.FQN,
		Type:       entity.EntityType,
		Visibility: entity.Visibility,
		Language:   entity.Language,
		StartLine:  entity.StartLine,
		EndLine:    entity.EndLine,
		Comment:    entity.Comment,
	}
	if includeCode {
		view.Code = entity.Code
	}

	if analysis, err := s.store.GetAnalysis(entity.ID); err == nil {
		view.Analysis = analysis
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("load analysis: %w", err)
	}

	if deps, err := s.store.GetDependenciesOf(entity.ID); err == nil {
		for _, d := range deps {
			view.DependsOn = append(view.DependsOn, depEdge{Name: d.DependsOnName, Type: d.DepType, EntityID: d.DependsOnID})
		}
	}
	if dependents, err := s.store.GetDependentsOf(entity.ID); err == nil {
		for _, d := range dependents {
			name := d.DependsOnName
			if source, err := s.store.GetEntity(d.EntityID); err == nil {
				name = source.FQN
			}
			id := d.EntityID
			view.UsedBy = append(view.UsedBy, depEdge{Name: name, Type: d.DepType, EntityID: &id})
		}
	}

	return toJSON(view)
}

// similarItem is the per-result similarity output shape.
type similarItem struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	FilePath   string  `json:"file_path"`
	StartLine  int     `json:"start_line"`
	EndLine    int     `json:"end_line"`
	Similarity float64 `json:"similarity"`
}

func (s *Server) executeSimilar(entityID int64, minSimilarity float64, limit int) (string, error) {
	results, err := s.engine.FindSimilar(entityID, minSimilarity, limit)
	if err != nil {
		return "", fmt.Errorf("similarity search failed: %w", err)
	}

	items := make([]similarItem, 0, len(results))
	for _, r := range results {
		items = append(items, similarItem{
			ID:         r.Entity.ID,
			Name:       r.Entity.Name,
			Type:       r.Entity.EntityType,
			FilePath:   r.FilePath,
			StartLine:  r.Entity.StartLine,
			EndLine:    r.Entity.EndLine,
			Similarity: r.Similarity,
		})
	}

	return toJSON(map[string]interface{}{
		"entity_id": entityID,
		"count":     len(items),
		"results":   items,
	})
}

// projectStatus is the per-project status output shape.
type projectStatus struct {
	Name           string `json:"name"`
	Status         string `json:"status"`
	StatusMessage  string `json:"status_message,omitempty"`
	CurrentFile    string `json:"current_file,omitempty"`
	TotalFiles     int    `json:"total_files"`
	IndexedFiles   int    `json:"indexed_files"`
	TotalEntities  int    `json:"total_entities"`
	TokensUsed     int64  `json:"tokens_used"`
	FailedAnalyses int    `json:"failed_analyses"`
}

func (s *Server) executeStatus(projectName string) (string, error) {
	var projects []*store.Project
	if projectName != "" {
		project, err := s.resolveProject(projectName)
		if err != nil {
			return "", err
		}
		projects = []*store.Project{project}
	} else {
		var err error
		projects, err = s.store.ListProjects()
		if err != nil {
			return "", fmt.Errorf("list projects: %w", err)
		}
	}

	statuses := make([]projectStatus, 0, len(projects))
	for _, p := range projects {
		st := projectStatus{
			Name:          p.Name,
			Status:        p.IndexingStatus,
			StatusMessage: p.StatusMessage,
			CurrentFile:   p.CurrentFilePath,
			TotalFiles:    p.TotalFiles,
			IndexedFiles:  p.IndexedFiles,
			TotalEntities: p.TotalEntities,
			TokensUsed:    p.TokensUsed,
		}
		if failed, err := s.store.CountFailedAnalyses(p.ID); err == nil {
			st.FailedAnalyses = failed
		}
		statuses = append(statuses, st)
	}

	return toJSON(map[string]interface{}{"projects": statuses})
}

func (s *Server) executeProjects() (string, error) {
	projects, err := s.store.ListProjects()
	if err != nil {
		return "", fmt.Errorf("list projects: %w", err)
	}

	type item struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		Path     string `json:"path"`
		Status   string `json:"status"`
		Entities int    `json:"entities"`
	}
	items := make([]item, 0, len(projects))
	for _, p := range projects {
		items = append(items, item{ID: p.ID, Name: p.Name, Path: p.Path, Status: p.IndexingStatus, Entities: p.TotalEntities})
	}
	return toJSON(map[string]interface{}{"projects": items})
}

// resolveProject finds a project by name, falling back to the only
// registered one.
func (s *Server) resolveProject(name string) (*store.Project, error) {
	if name != "" {
		project, err := s.store.GetProjectByName(name)
		if err != nil {
			return nil, fmt.Errorf("project not found: %s", name)
		}
		return project, nil
	}

	projects, err := s.store.ListProjects()
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	switch len(projects) {
	case 0:
		return nil, fmt.Errorf("no projects registered")
	case 1:
		return projects[0], nil
	default:
		return nil, fmt.Errorf("multiple projects registered: pass the project parameter")
	}
}
