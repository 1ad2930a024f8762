package mcp

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/zolll23/ragdoll/internal/store"
)

func TestToolSchemaRegistry(t *testing.T) {
	for _, name := range AllTools {
		schema, ok := toolSchemaRegistry[name]
		if !ok {
			t.Errorf("toolSchemaRegistry missing tool: %s", name)
			continue
		}
		if schema.Name != name {
			t.Errorf("schema name mismatch: got %q, want %q", schema.Name, name)
		}
		if schema.Description == "" {
			t.Errorf("tool %s has empty description", name)
		}
	}

	if len(toolSchemaRegistry) != len(AllTools) {
		t.Errorf("toolSchemaRegistry has %d tools, AllTools has %d", len(toolSchemaRegistry), len(AllTools))
	}
}

func TestToolSchemaRequiredParameters(t *testing.T) {
	tests := []struct {
		tool          string
		requiredParam string
	}{
		{"ragdoll_search", "query"},
		{"ragdoll_show", "entity_id"},
		{"ragdoll_similar", "entity_id"},
	}

	for _, tt := range tests {
		schema, ok := toolSchemaRegistry[tt.tool]
		if !ok {
			t.Fatalf("missing tool: %s", tt.tool)
		}

		found := false
		for _, p := range schema.Parameters {
			if p.Name == tt.requiredParam {
				found = true
				if !p.Required {
					t.Errorf("tool %s param %s should be required", tt.tool, tt.requiredParam)
				}
			}
		}
		if !found {
			t.Errorf("tool %s missing parameter %s", tt.tool, tt.requiredParam)
		}
	}
}

func TestToolSchemaNoRequiredParams(t *testing.T) {
	noRequired := []string{"ragdoll_status", "ragdoll_projects"}

	for _, name := range noRequired {
		schema := toolSchemaRegistry[name]
		for _, p := range schema.Parameters {
			if p.Required {
				t.Errorf("tool %s param %s is marked required but should not be", name, p.Name)
			}
		}
	}
}

func testServer(t *testing.T) (*Server, *store.Store, func()) {
	t.Helper()

	dir, err := os.MkdirTemp("", "ragdoll-mcp-test-*")
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}

	st, err := store.Open(dir)
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("open store: %v", err)
	}

	srv, err := New(st, nil, nil, Config{})
	if err != nil {
		st.Close()
		os.RemoveAll(dir)
		t.Fatalf("new server: %v", err)
	}

	cleanup := func() {
		st.Close()
		os.RemoveAll(dir)
	}
	return srv, st, cleanup
}

func TestNewRegistersAllTools(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	registered := srv.ListTools()
	sort.Strings(registered)

	expected := make([]string, len(AllTools))
	copy(expected, AllTools)
	sort.Strings(expected)

	if len(registered) != len(expected) {
		t.Fatalf("registered %d tools, want %d", len(registered), len(expected))
	}
	for i := range expected {
		if registered[i] != expected[i] {
			t.Errorf("tool mismatch at %d: got %s, want %s", i, registered[i], expected[i])
		}
	}
}

func TestCallToolUnknown(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	_, err := srv.CallTool(context.Background(), "ragdoll_nope", nil)
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestCallToolProjectsAndStatus(t *testing.T) {
	srv, st, cleanup := testServer(t)
	defer cleanup()

	project := &store.Project{Name: "shop", Path: "/tmp/shop", IndexingStatus: store.StatusCompleted}
	if err := st.CreateProject(project); err != nil {
		t.Fatalf("create project: %v", err)
	}

	out, err := srv.CallTool(context.Background(), "ragdoll_projects", map[string]interface{}{})
	if err != nil {
		t.Fatalf("ragdoll_projects: %v", err)
	}
	var projects struct {
		Projects []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"projects"`
	}
	if err := json.Unmarshal([]byte(out), &projects); err != nil {
		t.Fatalf("unmarshal projects: %v", err)
	}
	if len(projects.Projects) != 1 || projects.Projects[0].Name != "shop" {
		t.Fatalf("unexpected projects output: %s", out)
	}
	if projects.Projects[0].Status != store.StatusCompleted {
		t.Errorf("expected status %s, got %s", store.StatusCompleted, projects.Projects[0].Status)
	}

	out, err = srv.CallTool(context.Background(), "ragdoll_status", map[string]interface{}{"project": "shop"})
	if err != nil {
		t.Fatalf("ragdoll_status: %v", err)
	}
	if !strings.Contains(out, `"shop"`) {
		t.Errorf("status output missing project name: %s", out)
	}

	_, err = srv.CallTool(context.Background(), "ragdoll_status", map[string]interface{}{"project": "missing"})
	if err == nil {
		t.Error("expected error for unknown project")
	}
}

func TestCallToolSearchRequiresQuery(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	_, err := srv.CallTool(context.Background(), "ragdoll_search", map[string]interface{}{})
	if err == nil {
		t.Fatal("expected error for missing query")
	}
}

func TestCallToolShow(t *testing.T) {
	srv, st, cleanup := testServer(t)
	defer cleanup()

	project := &store.Project{Name: "shop", Path: "/tmp/shop", IndexingStatus: store.StatusCompleted}
	if err := st.CreateProject(project); err != nil {
		t.Fatalf("create project: %v", err)
	}
	file := &store.File{ProjectID: project.ID, Path: "src/cart.php", ContentHash: "h1", Language: "php"}
	if err := st.UpsertFile(file); err != nil {
		t.Fatalf("upsert file: %v", err)
	}
	entity := &store.Entity{
		ProjectID:  project.ID,
		FileID:     file.ID,
		Name:       "add_to_cart",
		FQN:        `App\Cart::add_to_cart`,
		EntityType: "method",
		Language:   "php",
		StartLine:  10,
		EndLine:    20,
		Code:       "function add_to_cart($item) { return true; }",
	}
	if err := st.CreateEntity(entity); err != nil {
		t.Fatalf("create entity: %v", err)
	}

	out, err := srv.CallTool(context.Background(), "ragdoll_show", map[string]interface{}{
		"entity_id": float64(entity.ID),
	})
	if err != nil {
		t.Fatalf("ragdoll_show: %v", err)
	}
	if !strings.Contains(out, "add_to_cart") {
		t.Errorf("show output missing entity name: %s", out)
	}
	if strings.Contains(out, "function add_to_cart") {
		t.Errorf("show output should omit code by default: %s", out)
	}

	out, err = srv.CallTool(context.Background(), "ragdoll_show", map[string]interface{}{
		"entity_id":    float64(entity.ID),
		"include_code": true,
	})
	if err != nil {
		t.Fatalf("ragdoll_show with code: %v", err)
	}
	if !strings.Contains(out, "function add_to_cart") {
		t.Errorf("show output missing code: %s", out)
	}
}
