package store

import (
	"os"
	"path/filepath"
	"testing"
)

// testStore creates a temporary store for testing.
func testStore(t *testing.T) (*Store, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "ragdoll-store-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}

	store, err := Open(tmpDir)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("open store: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}

	return store, cleanup
}

func seedProject(t *testing.T, s *Store, name string) *Project {
	t.Helper()
	p := &Project{Name: name, Path: "/src/" + name, Locale: "en", IndexingStatus: StatusIdle}
	if err := s.CreateProject(p); err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func seedFile(t *testing.T, s *Store, projectID int64, path string) *File {
	t.Helper()
	f := &File{ProjectID: projectID, Path: path, ContentHash: "hash-" + path, Language: "python"}
	if err := s.UpsertFile(f); err != nil {
		t.Fatalf("upsert file: %v", err)
	}
	return f
}

func seedEntity(t *testing.T, s *Store, projectID, fileID int64, name, fqn, entityType string) *Entity {
	t.Helper()
	e := &Entity{
		ProjectID:  projectID,
		FileID:     fileID,
		Name:       name,
		FQN:        fqn,
		EntityType: entityType,
		Visibility: "public",
		Language:   "python",
		StartLine:  1,
		EndLine:    10,
		Code:       "def " + name + "():\n    pass",
	}
	if err := s.CreateEntity(e); err != nil {
		t.Fatalf("create entity: %v", err)
	}
	return e
}

func TestOpen(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "ragdoll-store-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	ragdollDir := filepath.Join(tmpDir, ".ragdoll")

	store, err := Open(ragdollDir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(ragdollDir); os.IsNotExist(err) {
		t.Error("expected .ragdoll directory to be created")
	}

	dbPath := filepath.Join(ragdollDir, "ragdoll")
	info, err := os.Stat(dbPath)
	if os.IsNotExist(err) {
		t.Error("expected ragdoll database directory to be created")
	} else if err == nil && !info.IsDir() {
		t.Error("expected ragdoll to be a directory (Dolt repo)")
	}
}

func TestProjectCRUD(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	p := seedProject(t, store, "shop")
	if p.ID == 0 {
		t.Fatal("expected project ID to be assigned")
	}

	got, err := store.GetProject(p.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got.Name != "shop" || got.Locale != "en" {
		t.Errorf("unexpected project: %+v", got)
	}
	if got.IndexingStatus != StatusIdle {
		t.Errorf("expected status %q, got %q", StatusIdle, got.IndexingStatus)
	}

	byName, err := store.GetProjectByName("shop")
	if err != nil {
		t.Fatalf("get project by name: %v", err)
	}
	if byName.ID != p.ID {
		t.Errorf("expected ID %d, got %d", p.ID, byName.ID)
	}

	got.IndexingStatus = StatusIndexing
	got.IsIndexing = true
	got.LastIndexedFilePath = "src/models.py"
	got.TotalFiles = 12
	got.IndexedFiles = 3
	if err := store.UpdateProject(got); err != nil {
		t.Fatalf("update project: %v", err)
	}

	updated, err := store.GetProject(p.ID)
	if err != nil {
		t.Fatalf("get project after update: %v", err)
	}
	if updated.IndexingStatus != StatusIndexing || !updated.IsIndexing {
		t.Errorf("expected indexing state to persist, got %+v", updated)
	}
	if updated.LastIndexedFilePath != "src/models.py" {
		t.Errorf("expected checkpoint path, got %q", updated.LastIndexedFilePath)
	}

	if err := store.AddTokensUsed(p.ID, 150); err != nil {
		t.Fatalf("add tokens: %v", err)
	}
	if err := store.AddTokensUsed(p.ID, 50); err != nil {
		t.Fatalf("add tokens: %v", err)
	}
	withTokens, _ := store.GetProject(p.ID)
	if withTokens.TokensUsed != 200 {
		t.Errorf("expected 200 tokens used, got %d", withTokens.TokensUsed)
	}

	if err := store.DeleteProject(p.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	if _, err := store.GetProject(p.ID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteProject(p.ID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestRecountProject(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	p := seedProject(t, store, "shop")
	f := seedFile(t, store, p.ID, "src/orders.py")
	e := seedEntity(t, store, p.ID, f.ID, "a", "orders.a", "function")
	seedEntity(t, store, p.ID, f.ID, "b", "orders.b", "function")

	failed := &Analysis{EntityID: e.ID, Description: FallbackDescription, Complexity: "O(n)", ComplexityNumeric: 3, CodeFingerprint: "x"}
	if err := store.UpsertAnalysis(failed); err != nil {
		t.Fatalf("upsert analysis: %v", err)
	}

	// Simulate drift left by an interrupted run.
	p.TotalEntities = 99
	p.IndexedFiles = 0
	p.FailedEntitiesCount = 0
	if err := store.UpdateProject(p); err != nil {
		t.Fatalf("update project: %v", err)
	}

	got, err := store.RecountProject(p.ID)
	if err != nil {
		t.Fatalf("recount project: %v", err)
	}
	if got.TotalEntities != 2 {
		t.Errorf("TotalEntities = %d, want 2", got.TotalEntities)
	}
	if got.IndexedFiles != 1 {
		t.Errorf("IndexedFiles = %d, want 1", got.IndexedFiles)
	}
	if got.FailedEntitiesCount != 1 {
		t.Errorf("FailedEntitiesCount = %d, want 1", got.FailedEntitiesCount)
	}

	// The corrected counters are persisted, not just returned.
	reloaded, err := store.GetProject(p.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if reloaded.TotalEntities != 2 || reloaded.IndexedFiles != 1 {
		t.Errorf("persisted counters not rebuilt: %+v", reloaded)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	if _, err := store.GetProject(9999); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetProjectByName("missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertFile(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	p := seedProject(t, store, "shop")
	f := seedFile(t, store, p.ID, "src/orders.py")
	if f.ID == 0 {
		t.Fatal("expected file ID to be assigned")
	}

	// Same path upserts in place.
	again := &File{ProjectID: p.ID, Path: "src/orders.py", ContentHash: "changed", Language: "python"}
	if err := store.UpsertFile(again); err != nil {
		t.Fatalf("upsert existing file: %v", err)
	}
	if again.ID != f.ID {
		t.Errorf("expected upsert to reuse ID %d, got %d", f.ID, again.ID)
	}

	got, err := store.GetFileByPath(p.ID, "src/orders.py")
	if err != nil {
		t.Fatalf("get file by path: %v", err)
	}
	if got.ContentHash != "changed" {
		t.Errorf("expected updated hash, got %q", got.ContentHash)
	}
}

func TestListFilesOrderedByPath(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	p := seedProject(t, store, "shop")
	seedFile(t, store, p.ID, "src/zeta.py")
	seedFile(t, store, p.ID, "src/alpha.py")
	seedFile(t, store, p.ID, "app/main.py")

	files, err := store.ListFiles(p.ID)
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(files))
	}
	want := []string{"app/main.py", "src/alpha.py", "src/zeta.py"}
	for i, f := range files {
		if f.Path != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], f.Path)
		}
	}
}

func TestDeleteMissingFiles(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	p := seedProject(t, store, "shop")
	seedFile(t, store, p.ID, "src/kept.py")
	seedFile(t, store, p.ID, "src/gone.py")

	removed, err := store.DeleteMissingFiles(p.ID, map[string]bool{"src/kept.py": true})
	if err != nil {
		t.Fatalf("delete missing files: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed file, got %d", removed)
	}
	if _, err := store.GetFileByPath(p.ID, "src/gone.py"); err != ErrNotFound {
		t.Errorf("expected stale file to be gone, got %v", err)
	}
	if _, err := store.GetFileByPath(p.ID, "src/kept.py"); err != nil {
		t.Errorf("expected kept file to survive, got %v", err)
	}
}

func TestCreateEntitiesBulk(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	p := seedProject(t, store, "shop")
	f := seedFile(t, store, p.ID, "src/orders.py")

	entities := []*Entity{
		{ProjectID: p.ID, FileID: f.ID, Name: "OrderService", FQN: "orders.OrderService", EntityType: "class", Visibility: "public", Language: "python", StartLine: 30, EndLine: 80},
		{ProjectID: p.ID, FileID: f.ID, Name: "place_order", FQN: "orders.OrderService.place_order", EntityType: "method", Visibility: "public", Language: "python", StartLine: 40, EndLine: 60},
		{ProjectID: p.ID, FileID: f.ID, Name: "MAX_ITEMS", FQN: "orders.MAX_ITEMS", EntityType: "constant", Visibility: "public", Language: "python", StartLine: 5, EndLine: 5},
	}
	if err := store.CreateEntitiesBulk(entities); err != nil {
		t.Fatalf("create entities bulk: %v", err)
	}
	for i, e := range entities {
		if e.ID == 0 {
			t.Errorf("entity %d: expected ID to be assigned", i)
		}
	}

	count, err := store.CountEntities(p.ID)
	if err != nil {
		t.Fatalf("count entities: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 entities, got %d", count)
	}

	// File listing is in source order.
	byFile, err := store.ListEntitiesByFile(f.ID)
	if err != nil {
		t.Fatalf("list entities by file: %v", err)
	}
	if len(byFile) != 3 || byFile[0].Name != "MAX_ITEMS" || byFile[2].Name != "place_order" {
		t.Errorf("unexpected file order: %v", entityNames(byFile))
	}
}

func entityNames(entities []*Entity) []string {
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name
	}
	return names
}

func TestGetEntityByFQN(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	p := seedProject(t, store, "shop")
	f := seedFile(t, store, p.ID, "src/orders.py")
	e := seedEntity(t, store, p.ID, f.ID, "OrderService", "orders.OrderService", "class")

	got, err := store.GetEntityByFQN(p.ID, "orders.OrderService")
	if err != nil {
		t.Fatalf("get entity by fqn: %v", err)
	}
	if got.ID != e.ID || got.EntityType != "class" {
		t.Errorf("unexpected entity: %+v", got)
	}

	if _, err := store.GetEntityByFQN(p.ID, "orders.Missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteEntitiesFileScoped(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	p := seedProject(t, store, "shop")
	f := seedFile(t, store, p.ID, "src/orders.py")
	other := seedFile(t, store, p.ID, "src/users.py")
	a := seedEntity(t, store, p.ID, f.ID, "a", "orders.a", "function")
	b := seedEntity(t, store, p.ID, f.ID, "b", "orders.b", "function")
	seedEntity(t, store, p.ID, other.ID, "c", "users.c", "function")

	ids, err := store.DeleteEntities(EntitySelector{FileID: f.ID})
	if err != nil {
		t.Fatalf("delete entities by file: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 deleted ids, got %v", ids)
	}
	deleted := map[int64]bool{ids[0]: true, ids[1]: true}
	if !deleted[a.ID] || !deleted[b.ID] {
		t.Errorf("expected ids %d and %d, got %v", a.ID, b.ID, ids)
	}

	count, _ := store.CountEntities(p.ID)
	if count != 1 {
		t.Errorf("expected 1 entity to survive, got %d", count)
	}
}

func TestDeleteEntitiesSelectors(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	p := seedProject(t, store, "shop")
	f := seedFile(t, store, p.ID, "src/orders.py")
	a := seedEntity(t, store, p.ID, f.ID, "a", "orders.a", "function")
	seedEntity(t, store, p.ID, f.ID, "b", "orders.b", "function")

	q := seedProject(t, store, "crm")
	qf := seedFile(t, store, q.ID, "src/leads.py")
	seedEntity(t, store, q.ID, qf.ID, "c", "leads.c", "function")

	// Explicit ids win over the broader selectors.
	ids, err := store.DeleteEntities(EntitySelector{ProjectID: p.ID, EntityIDs: []int64{a.ID}})
	if err != nil {
		t.Fatalf("delete by ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != a.ID {
		t.Fatalf("expected [%d], got %v", a.ID, ids)
	}

	ids, err = store.DeleteEntities(EntitySelector{ProjectID: p.ID})
	if err != nil {
		t.Fatalf("delete by project: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 remaining project entity deleted, got %v", ids)
	}
	if n, _ := store.CountEntities(q.ID); n != 1 {
		t.Errorf("other project must be untouched, got %d entities", n)
	}

	if _, err := store.DeleteEntities(EntitySelector{}); err == nil {
		t.Error("empty selector should return an error")
	}

	ids, err = store.DeleteEntities(EntitySelector{All: true})
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected the last entity deleted, got %v", ids)
	}
	if n, _ := store.CountEntities(q.ID); n != 0 {
		t.Errorf("expected empty store, got %d entities", n)
	}
}

func TestUpsertAnalysisRoundTrip(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	p := seedProject(t, store, "shop")
	f := seedFile(t, store, p.ID, "src/orders.py")
	e := seedEntity(t, store, p.ID, f.ID, "place_order", "orders.place_order", "function")

	a := &Analysis{
		EntityID:              e.ID,
		Description:           "Places an order and reserves stock",
		Complexity:            "O(n)",
		ComplexityNumeric:     3,
		ComplexityExplanation: "iterates order items once",
		SOLIDViolations:       []string{"SRP"},
		DesignPatterns:        []string{"Repository"},
		DDDRole:               "service",
		MVCRole:               "model",
		IsTestable:            true,
		TestabilityScore:      0.8,
		TestabilityIssues:     []string{"depends on clock"},
		CodeFingerprint:       "def place_order(): pass",
		Keywords:              "order, place, stock",
		LinesOfCode:           12,
		CyclomaticComplexity:  4,
		CognitiveComplexity:   6,
		MaxNestingDepth:       2,
		ParameterCount:        3,
		CouplingScore:         0.5,
		CohesionScore:         1.0,
		SpaceComplexity:       "O(1)",
	}
	if err := store.UpsertAnalysis(a); err != nil {
		t.Fatalf("upsert analysis: %v", err)
	}

	got, err := store.GetAnalysis(e.ID)
	if err != nil {
		t.Fatalf("get analysis: %v", err)
	}
	if got.Description != a.Description || got.ComplexityNumeric != 3 {
		t.Errorf("unexpected analysis: %+v", got)
	}
	if len(got.SOLIDViolations) != 1 || got.SOLIDViolations[0] != "SRP" {
		t.Errorf("expected SOLID violations to round-trip, got %v", got.SOLIDViolations)
	}
	if len(got.TestabilityIssues) != 1 || got.TestabilityIssues[0] != "depends on clock" {
		t.Errorf("expected testability issues to round-trip, got %v", got.TestabilityIssues)
	}
	if !got.IsTestable || got.TestabilityScore != 0.8 {
		t.Errorf("expected testability to round-trip, got %+v", got)
	}

	// Second upsert for the same entity replaces, not duplicates.
	a.Description = "Places an order"
	a.ComplexityNumeric = 4
	if err := store.UpsertAnalysis(a); err != nil {
		t.Fatalf("upsert analysis again: %v", err)
	}
	updated, _ := store.GetAnalysis(e.ID)
	if updated.Description != "Places an order" || updated.ComplexityNumeric != 4 {
		t.Errorf("expected upsert to replace fields, got %+v", updated)
	}
}

func TestGetAnalysis_NotFound(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	if _, err := store.GetAnalysis(9999); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFingerprintBackfillQueries(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	p := seedProject(t, store, "shop")
	f := seedFile(t, store, p.ID, "src/orders.py")
	withFP := seedEntity(t, store, p.ID, f.ID, "a", "orders.a", "function")
	withoutFP := seedEntity(t, store, p.ID, f.ID, "b", "orders.b", "function")

	if err := store.UpsertAnalysis(&Analysis{EntityID: withFP.ID, Description: "done", Complexity: "O(1)", ComplexityNumeric: 1, CodeFingerprint: "fp", SpaceComplexity: "O(1)"}); err != nil {
		t.Fatalf("upsert analysis: %v", err)
	}
	if err := store.UpsertAnalysis(&Analysis{EntityID: withoutFP.ID, Description: "pending", Complexity: "O(1)", ComplexityNumeric: 1, SpaceComplexity: "O(1)"}); err != nil {
		t.Fatalf("upsert analysis: %v", err)
	}

	missing, err := store.ListEntitiesWithoutFingerprint(p.ID)
	if err != nil {
		t.Fatalf("list entities without fingerprint: %v", err)
	}
	if len(missing) != 1 || missing[0].ID != withoutFP.ID {
		t.Errorf("expected only entity %d, got %v", withoutFP.ID, entityNames(missing))
	}

	if err := store.SetFingerprint(withoutFP.ID, "def b(): pass"); err != nil {
		t.Fatalf("set fingerprint: %v", err)
	}
	missing, _ = store.ListEntitiesWithoutFingerprint(p.ID)
	if len(missing) != 0 {
		t.Errorf("expected no entities after backfill, got %d", len(missing))
	}
}

func TestCountFailedAnalyses(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	p := seedProject(t, store, "shop")
	f := seedFile(t, store, p.ID, "src/orders.py")
	ok := seedEntity(t, store, p.ID, f.ID, "a", "orders.a", "function")
	failed := seedEntity(t, store, p.ID, f.ID, "b", "orders.b", "function")

	store.UpsertAnalysis(&Analysis{EntityID: ok.ID, Description: "fine", Complexity: "O(1)", ComplexityNumeric: 1, SpaceComplexity: "O(1)"})
	store.UpsertAnalysis(&Analysis{EntityID: failed.ID, Description: FallbackDescription, Complexity: "O(n)", ComplexityNumeric: 3, SpaceComplexity: "O(1)"})

	n, err := store.CountFailedAnalyses(p.ID)
	if err != nil {
		t.Fatalf("count failed analyses: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 failed analysis, got %d", n)
	}
}

func TestDependencies(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	p := seedProject(t, store, "shop")
	f := seedFile(t, store, p.ID, "src/orders.py")
	svc := seedEntity(t, store, p.ID, f.ID, "OrderService", "orders.OrderService", "class")
	repo := seedEntity(t, store, p.ID, f.ID, "OrderRepository", "orders.OrderRepository", "class")

	repoID := repo.ID
	deps := []*Dependency{
		{EntityID: svc.ID, DependsOnID: &repoID, DependsOnName: "OrderRepository", DepType: "call"},
		{EntityID: svc.ID, DependsOnName: "logging", DepType: "import"},
	}
	if err := store.CreateDependenciesBulk(deps); err != nil {
		t.Fatalf("create dependencies bulk: %v", err)
	}

	out, err := store.GetDependenciesOf(svc.ID)
	if err != nil {
		t.Fatalf("get dependencies: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 dependencies, got %d", len(out))
	}

	in, err := store.GetDependentsOf(repo.ID)
	if err != nil {
		t.Fatalf("get dependents: %v", err)
	}
	if len(in) != 1 || in[0].EntityID != svc.ID {
		t.Errorf("expected one dependent edge from %d, got %v", svc.ID, in)
	}

	n, err := store.CountDependentsOf(repo.ID)
	if err != nil {
		t.Fatalf("count dependents: %v", err)
	}
	if n != 1 {
		t.Errorf("expected afferent coupling 1, got %d", n)
	}
}

func TestFindDependents(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	p := seedProject(t, store, "shop")
	f := seedFile(t, store, p.ID, "src/orders.py")
	repo := seedEntity(t, store, p.ID, f.ID, "OrderRepository", "orders.OrderRepository", "class")
	svc := seedEntity(t, store, p.ID, f.ID, "place_order", "orders.place_order", "method")
	helper := seedEntity(t, store, p.ID, f.ID, "audit_log", "orders.audit_log", "function")
	seedEntity(t, store, p.ID, f.ID, "unrelated", "orders.unrelated", "method")

	repoID := repo.ID
	deps := []*Dependency{
		{EntityID: svc.ID, DependsOnID: &repoID, DependsOnName: "OrderRepository", DepType: "call"},
		{EntityID: helper.ID, DependsOnName: "db.query", DepType: "call"},
	}
	if err := store.CreateDependenciesBulk(deps); err != nil {
		t.Fatalf("create dependencies bulk: %v", err)
	}

	byID, err := store.FindDependents(p.ID, []int64{repo.ID}, nil, nil, 10)
	if err != nil {
		t.Fatalf("find dependents by id: %v", err)
	}
	if len(byID) != 1 || byID[0].Entity.ID != svc.ID {
		t.Errorf("expected only %q as dependent, got %v", svc.Name, recordNames(byID))
	}

	byPattern, err := store.FindDependents(p.ID, nil, []string{"db.query"}, nil, 10)
	if err != nil {
		t.Fatalf("find dependents by pattern: %v", err)
	}
	if len(byPattern) != 1 || byPattern[0].Entity.ID != helper.ID {
		t.Errorf("expected only %q as pattern dependent, got %v", helper.Name, recordNames(byPattern))
	}

	typed, err := store.FindDependents(p.ID, []int64{repo.ID}, []string{"db.query"}, []string{"method"}, 10)
	if err != nil {
		t.Fatalf("find dependents typed: %v", err)
	}
	if len(typed) != 1 || typed[0].Entity.ID != svc.ID {
		t.Errorf("expected entity type filter to drop the function, got %v", recordNames(typed))
	}

	none, err := store.FindDependents(p.ID, nil, nil, nil, 10)
	if err != nil {
		t.Fatalf("find dependents without selectors: %v", err)
	}
	if none != nil {
		t.Errorf("expected nil without selectors, got %v", recordNames(none))
	}
}

func recordNames(records []*Record) []string {
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Entity.Name
	}
	return names
}

func TestResolveDependency(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	p := seedProject(t, store, "shop")
	f := seedFile(t, store, p.ID, "src/orders.py")
	class := seedEntity(t, store, p.ID, f.ID, "Order", "App\\Models\\Order", "class")
	fn := seedEntity(t, store, p.ID, f.ID, "validate", "orders.validate", "function")

	// Exact FQN wins.
	got, err := store.ResolveDependency(p.ID, "App\\Models\\Order")
	if err != nil {
		t.Fatalf("resolve by fqn: %v", err)
	}
	if got.ID != class.ID {
		t.Errorf("expected class %d, got %d", class.ID, got.ID)
	}

	// Bare name.
	got, err = store.ResolveDependency(p.ID, "validate")
	if err != nil {
		t.Fatalf("resolve by name: %v", err)
	}
	if got.ID != fn.ID {
		t.Errorf("expected function %d, got %d", fn.ID, got.ID)
	}

	// Qualified call resolves to the trailing segment.
	got, err = store.ResolveDependency(p.ID, "helpers.validate")
	if err != nil {
		t.Fatalf("resolve by trailing segment: %v", err)
	}
	if got.ID != fn.ID {
		t.Errorf("expected function %d, got %d", fn.ID, got.ID)
	}

	if _, err := store.ResolveDependency(p.ID, "Nonexistent"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveDependencyPrefersClass(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	p := seedProject(t, store, "shop")
	f := seedFile(t, store, p.ID, "src/orders.py")
	seedEntity(t, store, p.ID, f.ID, "Payment", "orders.pay.Payment", "function")
	class := seedEntity(t, store, p.ID, f.ID, "Payment", "billing.Payment", "class")

	got, err := store.ResolveDependency(p.ID, "Payment")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != class.ID {
		t.Errorf("expected class %d to win over function, got %d", class.ID, got.ID)
	}
}

func TestResolveAllDependencies(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	p := seedProject(t, store, "shop")
	f := seedFile(t, store, p.ID, "src/orders.py")
	svc := seedEntity(t, store, p.ID, f.ID, "OrderService", "orders.OrderService", "class")
	repo := seedEntity(t, store, p.ID, f.ID, "OrderRepository", "orders.OrderRepository", "class")

	deps := []*Dependency{
		{EntityID: svc.ID, DependsOnName: "OrderRepository", DepType: "call"},
		{EntityID: svc.ID, DependsOnName: "requests", DepType: "import"},
	}
	if err := store.CreateDependenciesBulk(deps); err != nil {
		t.Fatalf("create dependencies bulk: %v", err)
	}

	resolved, err := store.ResolveAllDependencies(p.ID)
	if err != nil {
		t.Fatalf("resolve all: %v", err)
	}
	if resolved != 1 {
		t.Errorf("expected 1 resolved edge, got %d", resolved)
	}

	out, _ := store.GetDependenciesOf(svc.ID)
	for _, d := range out {
		switch d.DependsOnName {
		case "OrderRepository":
			if d.DependsOnID == nil || *d.DependsOnID != repo.ID {
				t.Errorf("expected edge linked to %d, got %v", repo.ID, d.DependsOnID)
			}
		case "requests":
			if d.DependsOnID != nil {
				t.Errorf("expected external import to stay unresolved, got %v", *d.DependsOnID)
			}
		}
	}
}

func TestQueryRecords(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	p := seedProject(t, store, "shop")
	f := seedFile(t, store, p.ID, "src/orders.py")
	class := seedEntity(t, store, p.ID, f.ID, "OrderController", "http.OrderController", "class")
	fn := seedEntity(t, store, p.ID, f.ID, "sort_orders", "orders.sort_orders", "function")
	failed := seedEntity(t, store, p.ID, f.ID, "broken", "orders.broken", "function")

	store.UpsertAnalysis(&Analysis{EntityID: class.ID, Description: "Handles order endpoints", Complexity: "O(1)", ComplexityNumeric: 1, MVCRole: "controller", DDDRole: "service", TestabilityScore: 0.9, IsTestable: true, SpaceComplexity: "O(1)"})
	store.UpsertAnalysis(&Analysis{EntityID: fn.ID, Description: "Sorts orders by date", Complexity: "O(n log n)", ComplexityNumeric: 4, MVCRole: "model", SOLIDViolations: []string{"SRP"}, TestabilityScore: 0.4, SpaceComplexity: "O(n)"})
	store.UpsertAnalysis(&Analysis{EntityID: failed.ID, Description: FallbackDescription, Complexity: "O(n)", ComplexityNumeric: 3, SpaceComplexity: "O(1)"})

	// By entity type.
	records, err := store.QueryRecords(RecordFilter{ProjectID: p.ID, EntityTypes: []string{"class"}})
	if err != nil {
		t.Fatalf("query by type: %v", err)
	}
	if len(records) != 1 || records[0].Entity.ID != class.ID {
		t.Errorf("expected only the class, got %d records", len(records))
	}
	if records[0].Analysis == nil || records[0].Analysis.MVCRole != "controller" {
		t.Errorf("expected joined analysis, got %+v", records[0].Analysis)
	}

	// MVC role.
	records, err = store.QueryRecords(RecordFilter{ProjectID: p.ID, MVCRoles: []string{"controller"}})
	if err != nil {
		t.Fatalf("query by mvc role: %v", err)
	}
	if len(records) != 1 || records[0].Entity.ID != class.ID {
		t.Errorf("expected controller record, got %d records", len(records))
	}

	// Complexity floor: rank 4 and above.
	records, err = store.QueryRecords(RecordFilter{ProjectID: p.ID, MinComplexityRank: 4})
	if err != nil {
		t.Fatalf("query by complexity: %v", err)
	}
	if len(records) != 1 || records[0].Entity.ID != fn.ID {
		t.Errorf("expected the O(n log n) record, got %d records", len(records))
	}

	// SOLID violation substring.
	records, err = store.QueryRecords(RecordFilter{ProjectID: p.ID, SOLIDViolation: "SRP"})
	if err != nil {
		t.Fatalf("query by solid: %v", err)
	}
	if len(records) != 1 || records[0].Entity.ID != fn.ID {
		t.Errorf("expected SRP violator, got %d records", len(records))
	}

	// Testability floor.
	records, err = store.QueryRecords(RecordFilter{ProjectID: p.ID, MinTestability: 0.5})
	if err != nil {
		t.Fatalf("query by testability: %v", err)
	}
	if len(records) != 1 || records[0].Entity.ID != class.ID {
		t.Errorf("expected testable record, got %d records", len(records))
	}

	// Failed-only.
	records, err = store.QueryRecords(RecordFilter{ProjectID: p.ID, OnlyFailed: true})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 1 || records[0].Entity.ID != failed.ID {
		t.Errorf("expected failed record, got %d records", len(records))
	}

	// Limit.
	records, err = store.QueryRecords(RecordFilter{ProjectID: p.ID, Limit: 2})
	if err != nil {
		t.Fatalf("query with limit: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
}

func TestQueryRecordsWithoutAnalysis(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	p := seedProject(t, store, "shop")
	f := seedFile(t, store, p.ID, "src/orders.py")
	seedEntity(t, store, p.ID, f.ID, "bare", "orders.bare", "function")

	records, err := store.QueryRecords(RecordFilter{ProjectID: p.ID})
	if err != nil {
		t.Fatalf("query records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Analysis != nil {
		t.Errorf("expected nil analysis for unenriched entity, got %+v", records[0].Analysis)
	}
}

func TestRecordFilterEmpty(t *testing.T) {
	if !(RecordFilter{ProjectID: 1}).Empty() {
		t.Error("project-only filter should be empty")
	}
	if (RecordFilter{ProjectID: 1, EntityTypes: []string{"class"}}).Empty() {
		t.Error("type filter should not be empty")
	}
	if (RecordFilter{ProjectID: 1, MinTestability: 0.5}).Empty() {
		t.Error("testability filter should not be empty")
	}
}
