// Package mcp provides an MCP (Model Context Protocol) server for ragdoll.
// This allows AI agents to query the code index through MCP tools instead of CLI commands.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/zolll23/ragdoll/internal/search"
	"github.com/zolll23/ragdoll/internal/store"
)

// Server wraps the MCP server with ragdoll-specific functionality
type Server struct {
	mcpServer    *server.MCPServer
	store        *store.Store
	vectors      *store.VectorStore
	engine       *search.Engine
	tools        map[string]bool
	lastActivity time.Time
	timeout      time.Duration
	searchLimit  int
	mu           sync.RWMutex
}

// Config holds server configuration
type Config struct {
	Tools       []string      // Which tools to expose (empty = all)
	Timeout     time.Duration // Inactivity timeout (0 = no timeout)
	SearchLimit int           // Default result cap for ragdoll_search
}

// AllTools lists all available tools
var AllTools = []string{"ragdoll_search", "ragdoll_show", "ragdoll_similar", "ragdoll_status", "ragdoll_projects"}

// New creates a new MCP server over an open store. The vector store and
// engine collaborators may be nil-backed; the corresponding search
// stages just stay off.
func New(st *store.Store, vectors *store.VectorStore, engine *search.Engine, cfg Config) (*Server, error) {
	if engine == nil {
		engine = search.New(st, vectors, nil, nil, slog.Default())
	}

	mcpServer := server.NewMCPServer(
		"ragdoll",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	searchLimit := cfg.SearchLimit
	if searchLimit <= 0 {
		searchLimit = 10
	}

	s := &Server{
		mcpServer:    mcpServer,
		store:        st,
		vectors:      vectors,
		engine:       engine,
		tools:        make(map[string]bool),
		lastActivity: time.Now(),
		timeout:      cfg.Timeout,
		searchLimit:  searchLimit,
	}

	toolsToRegister := cfg.Tools
	if len(toolsToRegister) == 0 {
		toolsToRegister = AllTools
	}

	for _, toolName := range toolsToRegister {
		if err := s.registerTool(toolName); err != nil {
			return nil, fmt.Errorf("failed to register tool %s: %w", toolName, err)
		}
		s.tools[toolName] = true
	}

	return s, nil
}

// registerTool registers a single tool with the MCP server
func (s *Server) registerTool(name string) error {
	switch name {
	case "ragdoll_search":
		return s.registerSearchTool()
	case "ragdoll_show":
		return s.registerShowTool()
	case "ragdoll_similar":
		return s.registerSimilarTool()
	case "ragdoll_status":
		return s.registerStatusTool()
	case "ragdoll_projects":
		return s.registerProjectsTool()
	default:
		return fmt.Errorf("unknown tool: %s", name)
	}
}

// ServeStdio starts the server using stdio transport
func (s *Server) ServeStdio() error {
	if s.timeout > 0 {
		go s.timeoutChecker()
	}

	return server.ServeStdio(s.mcpServer)
}

// timeoutChecker monitors for inactivity and exits if timeout exceeded
func (s *Server) timeoutChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.RLock()
		elapsed := time.Since(s.lastActivity)
		s.mu.RUnlock()

		if elapsed > s.timeout {
			fmt.Fprintf(os.Stderr, "ragdoll serve: timeout after %v of inactivity\n", s.timeout)
			os.Exit(0)
		}
	}
}

// updateActivity updates the last activity timestamp
func (s *Server) updateActivity() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// Close closes the server's stores.
func (s *Server) Close() error {
	if s.vectors != nil {
		s.vectors.Close()
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// ListTools returns the list of registered tools
func (s *Server) ListTools() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]string, 0, len(s.tools))
	for t := range s.tools {
		tools = append(tools, t)
	}
	return tools
}

// ToolSchema describes a tool's name, description, and parameters.
type ToolSchema struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Parameters  []ParameterSchema `json:"parameters" yaml:"parameters"`
}

// ParameterSchema describes a single tool parameter.
type ParameterSchema struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
	Required    bool   `json:"required" yaml:"required"`
}

// toolSchemaRegistry holds the schema definitions for all tools.
// These mirror the mcp.NewTool() definitions in the register*Tool() functions.
var toolSchemaRegistry = map[string]ToolSchema{
	"ragdoll_search": {
		Name:        "ragdoll_search",
		Description: "Search indexed code by natural-language query (English or Russian). Combines keyword, structured, dependency and semantic stages.",
		Parameters: []ParameterSchema{
			{Name: "query", Type: "string", Description: "Natural-language search query", Required: true},
			{Name: "project", Type: "string", Description: "Project name (default: the only registered project)"},
			{Name: "limit", Type: "number", Description: "Maximum results (default: 10)"},
		},
	},
	"ragdoll_show": {
		Name:        "ragdoll_show",
		Description: "Show one entity with its analysis record and dependency edges.",
		Parameters: []ParameterSchema{
			{Name: "entity_id", Type: "number", Description: "Entity id as returned by ragdoll_search", Required: true},
			{Name: "include_code", Type: "boolean", Description: "Include the entity's source code"},
		},
	},
	"ragdoll_similar": {
		Name:        "ragdoll_similar",
		Description: "Find entities whose code fingerprint is similar to the given entity.",
		Parameters: []ParameterSchema{
			{Name: "entity_id", Type: "number", Description: "Entity id to compare against", Required: true},
			{Name: "min_similarity", Type: "number", Description: "Similarity floor 0..1 (default: 0.7)"},
			{Name: "limit", Type: "number", Description: "Maximum results (default: 10)"},
		},
	},
	"ragdoll_status": {
		Name:        "ragdoll_status",
		Description: "Show indexing progress and counters for a project.",
		Parameters: []ParameterSchema{
			{Name: "project", Type: "string", Description: "Project name (default: all projects)"},
		},
	},
	"ragdoll_projects": {
		Name:        "ragdoll_projects",
		Description: "List registered projects with their indexing state.",
		Parameters:  []ParameterSchema{},
	},
}

// GetToolSchemas returns schemas for all registered tools.
func (s *Server) GetToolSchemas() []ToolSchema {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schemas := make([]ToolSchema, 0, len(s.tools))
	for name := range s.tools {
		if schema, ok := toolSchemaRegistry[name]; ok {
			schemas = append(schemas, schema)
		}
	}
	return schemas
}

// CallTool dispatches a tool call by name with the given arguments.
// Returns the JSON result string or an error.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	s.mu.RLock()
	registered := s.tools[name]
	s.mu.RUnlock()

	if !registered {
		return "", fmt.Errorf("unknown tool: %s", name)
	}

	switch name {
	case "ragdoll_search":
		query, _ := args["query"].(string)
		if query == "" {
			return "", fmt.Errorf("query parameter is required")
		}
		project, _ := args["project"].(string)
		limit := 0
		if l, ok := args["limit"].(float64); ok {
			limit = int(l)
		}
		return s.executeSearch(ctx, query, project, limit)

	case "ragdoll_show":
		id, ok := args["entity_id"].(float64)
		if !ok {
			return "", fmt.Errorf("entity_id parameter is required")
		}
		includeCode, _ := args["include_code"].(bool)
		return s.executeShow(int64(id), includeCode)

	case "ragdoll_similar":
		id, ok := args["entity_id"].(float64)
		if !ok {
			return "", fmt.Errorf("entity_id parameter is required")
		}
		min := 0.0
		if m, ok := args["min_similarity"].(float64); ok {
			min = m
		}
		limit := 0
		if l, ok := args["limit"].(float64); ok {
			limit = int(l)
		}
		return s.executeSimilar(int64(id), min, limit)

	case "ragdoll_status":
		project, _ := args["project"].(string)
		return s.executeStatus(project)

	case "ragdoll_projects":
		return s.executeProjects()

	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

func toJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(data), nil
}
