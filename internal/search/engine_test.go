package search

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/zolll23/ragdoll/internal/store"
)

func testEngine(t *testing.T) (*Engine, *store.Store, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "ragdoll-search-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}

	st, err := store.Open(tmpDir)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("open store: %v", err)
	}

	cleanup := func() {
		st.Close()
		os.RemoveAll(tmpDir)
	}
	return New(st, nil, nil, nil, nil), st, cleanup
}

func seedProject(t *testing.T, st *store.Store, name string) *store.Project {
	t.Helper()
	p := &store.Project{Name: name, Path: "/src/" + name, Locale: "en", IndexingStatus: store.StatusIdle}
	if err := st.CreateProject(p); err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func seedFile(t *testing.T, st *store.Store, projectID int64, path string) *store.File {
	t.Helper()
	f := &store.File{ProjectID: projectID, Path: path, ContentHash: "hash-" + path, Language: "php"}
	if err := st.UpsertFile(f); err != nil {
		t.Fatalf("upsert file: %v", err)
	}
	return f
}

func seedEntity(t *testing.T, st *store.Store, projectID, fileID int64, name, fqn, entityType string, startLine int) *store.Entity {
	t.Helper()
	e := &store.Entity{
		ProjectID:  projectID,
		FileID:     fileID,
		Name:       name,
		FQN:        fqn,
		EntityType: entityType,
		Visibility: "public",
		Language:   "php",
		StartLine:  startLine,
		EndLine:    startLine + 9,
		Code:       "function " + name + "() {}",
	}
	if err := st.CreateEntity(e); err != nil {
		t.Fatalf("create entity %s: %v", name, err)
	}
	return e
}

func seedEntityWithCode(t *testing.T, st *store.Store, projectID, fileID int64, name, entityType string, startLine int, code string) *store.Entity {
	t.Helper()
	e := &store.Entity{
		ProjectID:  projectID,
		FileID:     fileID,
		Name:       name,
		FQN:        name,
		EntityType: entityType,
		Language:   "php",
		StartLine:  startLine,
		EndLine:    startLine + strings.Count(code, "\n"),
		Code:       code,
	}
	if err := st.CreateEntity(e); err != nil {
		t.Fatalf("create entity %s: %v", name, err)
	}
	return e
}

func seedAnalysis(t *testing.T, st *store.Store, a *store.Analysis) {
	t.Helper()
	if a.Complexity == "" {
		a.Complexity = "O(n)"
		a.ComplexityNumeric = 3
	}
	if a.CodeFingerprint == "" {
		a.CodeFingerprint = "fp-" + a.Description
	}
	if err := st.UpsertAnalysis(a); err != nil {
		t.Fatalf("upsert analysis for entity %d: %v", a.EntityID, err)
	}
}

func resultNames(results []Result) []string {
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Entity.Name
	}
	return names
}

func findResult(results []Result, name string) (Result, bool) {
	for _, r := range results {
		if r.Entity.Name == name {
			return r, true
		}
	}
	return Result{}, false
}

func TestSearchWithoutProject(t *testing.T) {
	engine, _, cleanup := testEngine(t)
	defer cleanup()

	results, err := engine.Search(context.Background(), "anything", 0, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if results != nil {
		t.Errorf("expected empty result without a project, got %v", resultNames(results))
	}
}

func TestSearchKeywordStageScoped(t *testing.T) {
	engine, st, cleanup := testEngine(t)
	defer cleanup()

	p := seedProject(t, st, "shop")
	f := seedFile(t, st, p.ID, "src/mail.php")
	send := seedEntity(t, st, p.ID, f.ID, "send_email", "Mail::send_email", "method", 10)
	seedAnalysis(t, st, &store.Analysis{
		EntityID:    send.ID,
		Description: "Sends an email message to the customer",
		Keywords:    "send, email, message, customer",
	})
	cart := seedEntity(t, st, p.ID, f.ID, "add_to_cart", "Cart::add_to_cart", "method", 40)
	seedAnalysis(t, st, &store.Analysis{
		EntityID:    cart.ID,
		Description: "Adds a product to the shopping cart",
		Keywords:    "cart, product, shopping",
	})

	other := seedProject(t, st, "blog")
	of := seedFile(t, st, other.ID, "src/mail.php")
	osend := seedEntity(t, st, other.ID, of.ID, "send_email", "Blog::send_email", "method", 10)
	seedAnalysis(t, st, &store.Analysis{
		EntityID:    osend.ID,
		Description: "Sends an email message to the subscriber",
		Keywords:    "send, email, message",
	})

	results, err := engine.Search(context.Background(), "send message", p.ID, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected keyword results")
	}

	top, ok := findResult(results, "send_email")
	if !ok {
		t.Fatalf("expected send_email in results, got %v", resultNames(results))
	}
	if top.MatchType != "keyword" {
		t.Errorf("expected keyword match, got %q", top.MatchType)
	}
	if top.Score < minKeywordScore {
		t.Errorf("score %v below the keyword floor", top.Score)
	}
	if top.FilePath != "src/mail.php" {
		t.Errorf("expected file path to be attached, got %q", top.FilePath)
	}

	for _, r := range results {
		if r.Entity.ProjectID != p.ID {
			t.Errorf("result %q leaked from project %d", r.Entity.Name, r.Entity.ProjectID)
		}
	}
}

func TestSearchEntityTypeFilter(t *testing.T) {
	engine, st, cleanup := testEngine(t)
	defer cleanup()

	p := seedProject(t, st, "shop")
	f := seedFile(t, st, p.ID, "src/mail.php")
	client := seedEntity(t, st, p.ID, f.ID, "EmailClient", "Mail::EmailClient", "class", 1)
	seedAnalysis(t, st, &store.Analysis{
		EntityID:    client.ID,
		Description: "Client for sending email messages",
		Keywords:    "send, email, message",
	})
	send := seedEntity(t, st, p.ID, f.ID, "send_email", "Mail::EmailClient::send_email", "method", 12)
	seedAnalysis(t, st, &store.Analysis{
		EntityID:    send.ID,
		Description: "Sends one email message",
		Keywords:    "send, email, message",
	})

	results, err := engine.Search(context.Background(), "methods that send a message", p.ID, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	for _, r := range results {
		if r.Entity.EntityType != "method" {
			t.Errorf("entity type filter leaked %q (%s)", r.Entity.Name, r.Entity.EntityType)
		}
	}
}

func TestSearchStatusEnumFlow(t *testing.T) {
	engine, st, cleanup := testEngine(t)
	defer cleanup()

	p := seedProject(t, st, "shop")
	f := seedFile(t, st, p.ID, "src/status.php")
	status := seedEntity(t, st, p.ID, f.ID, "OrderStatus", "App\\OrderStatus", "class", 1)
	seedAnalysis(t, st, &store.Analysis{
		EntityID:    status.ID,
		Description: "Enumerates order lifecycle states",
		Keywords:    "order, status, state",
	})
	seedEntity(t, st, p.ID, f.ID, "PENDING", "App\\OrderStatus::PENDING", "constant", 3)
	seedEntity(t, st, p.ID, f.ID, "SHIPPED", "App\\OrderStatus::SHIPPED", "constant", 4)

	results, err := engine.Search(context.Background(), "order status values", p.ID, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	pending, ok := findResult(results, "PENDING")
	if !ok {
		t.Fatalf("expected enum case PENDING, got %v", resultNames(results))
	}
	if pending.Score != 0.9 {
		t.Errorf("enum case score = %v, want 0.9", pending.Score)
	}
	if _, ok := findResult(results, "SHIPPED"); !ok {
		t.Errorf("expected enum case SHIPPED, got %v", resultNames(results))
	}

	// The status class itself outranks its members.
	if results[0].Entity.Name != "OrderStatus" {
		t.Errorf("expected OrderStatus first, got %v", resultNames(results))
	}
}

func TestSearchStructuredComplexity(t *testing.T) {
	engine, st, cleanup := testEngine(t)
	defer cleanup()

	p := seedProject(t, st, "shop")
	f := seedFile(t, st, p.ID, "src/report.php")
	slow := seedEntity(t, st, p.ID, f.ID, "pair_report", "Report::pair_report", "method", 1)
	seedAnalysis(t, st, &store.Analysis{
		EntityID:          slow.ID,
		Description:       "Compares every pair of orders",
		Complexity:        "O(n^2)",
		ComplexityNumeric: 5,
	})
	fast := seedEntity(t, st, p.ID, f.ID, "get_total", "Report::get_total", "method", 30)
	seedAnalysis(t, st, &store.Analysis{
		EntityID:          fast.ID,
		Description:       "Returns the cached total",
		Complexity:        "O(1)",
		ComplexityNumeric: 1,
	})

	results, err := engine.Search(context.Background(), "methods with o(n^2) complexity", p.ID, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected only the quadratic method, got %v", resultNames(results))
	}
	if results[0].Entity.ID != slow.ID {
		t.Errorf("expected %q, got %q", slow.Name, results[0].Entity.Name)
	}
	if results[0].MatchType != "structured" || results[0].Score != 1.0 {
		t.Errorf("expected structured hit with score 1.0, got %q %v",
			results[0].MatchType, results[0].Score)
	}
}

func TestSearchSOLIDFallback(t *testing.T) {
	engine, st, cleanup := testEngine(t)
	defer cleanup()

	p := seedProject(t, st, "shop")
	f := seedFile(t, st, p.ID, "src/orders.php")
	mixed := seedEntity(t, st, p.ID, f.ID, "process_order", "Orders::process_order", "method", 1)
	seedAnalysis(t, st, &store.Analysis{
		EntityID:    mixed.ID,
		Description: "Mixes parsing and persistence. Breaks the Single Responsibility Principle.",
	})
	clean := seedEntity(t, st, p.ID, f.ID, "get_order", "Orders::get_order", "method", 40)
	seedAnalysis(t, st, &store.Analysis{
		EntityID:    clean.ID,
		Description: "Loads one order by id",
	})

	results, err := engine.Search(context.Background(), "srp violations", p.ID, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	hit, ok := findResult(results, "process_order")
	if !ok {
		t.Fatalf("expected the SRP offender via fallback, got %v", resultNames(results))
	}
	if hit.Score != 0.8 || hit.MatchType != "structured" {
		t.Errorf("expected fallback score 0.8 structured, got %v %q", hit.Score, hit.MatchType)
	}
	if _, ok := findResult(results, "get_order"); ok {
		t.Error("clean method should not match the SOLID fallback")
	}
}

func TestSearchDependencyStage(t *testing.T) {
	engine, st, cleanup := testEngine(t)
	defer cleanup()

	p := seedProject(t, st, "shop")
	f := seedFile(t, st, p.ID, "src/mail.php")
	client := seedEntity(t, st, p.ID, f.ID, "EmailClient", "Mail::EmailClient", "class", 1)
	seedAnalysis(t, st, &store.Analysis{
		EntityID:    client.ID,
		Description: "Wraps the SMTP transport",
		Keywords:    "email, client, smtp",
	})
	notify := seedEntity(t, st, p.ID, f.ID, "notify_all", "Jobs::notify_all", "method", 50)
	seedAnalysis(t, st, &store.Analysis{
		EntityID:    notify.ID,
		Description: "Delivers a batch of notifications",
	})

	clientID := client.ID
	deps := []*store.Dependency{
		{EntityID: notify.ID, DependsOnID: &clientID, DependsOnName: "EmailClient", DepType: "call"},
	}
	if err := st.CreateDependenciesBulk(deps); err != nil {
		t.Fatalf("create dependencies: %v", err)
	}

	results, err := engine.Search(context.Background(), "what uses EmailClient", p.ID, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	hit, ok := findResult(results, "notify_all")
	if !ok {
		t.Fatalf("expected the dependent method, got %v", resultNames(results))
	}
	if hit.MatchType != "dependency" {
		t.Errorf("expected dependency match, got %q", hit.MatchType)
	}
	if hit.Score < 0.5 {
		t.Errorf("dependency base score should be at least 0.5, got %v", hit.Score)
	}
}

type fakeEmbedder struct {
	vec []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, nil
}

func TestSearchSemanticFill(t *testing.T) {
	engine, st, cleanup := testEngine(t)
	defer cleanup()

	vectors, err := store.OpenVectors(t.TempDir())
	if err != nil {
		t.Fatalf("open vectors: %v", err)
	}
	defer vectors.Close()
	engine.vectors = vectors
	engine.embed = &fakeEmbedder{vec: []float32{1, 0, 0}}

	p := seedProject(t, st, "shop")
	f := seedFile(t, st, p.ID, "src/widgets.php")
	widget := seedEntity(t, st, p.ID, f.ID, "render_widget", "Widgets::render_widget", "method", 1)
	seedAnalysis(t, st, &store.Analysis{
		EntityID:    widget.ID,
		Description: "Draws a dashboard panel",
	})
	if err := vectors.Upsert("v1", p.ID, widget.ID, "fake-model", []float32{1, 0, 0}); err != nil {
		t.Fatalf("upsert vector: %v", err)
	}

	results, err := engine.Search(context.Background(), "frobnicate gizmos", p.ID, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	hit, ok := findResult(results, "render_widget")
	if !ok {
		t.Fatalf("expected a semantic fill result, got %v", resultNames(results))
	}
	if hit.MatchType != "semantic" {
		t.Errorf("expected semantic match, got %q", hit.MatchType)
	}
	if hit.Score < minSemanticScore {
		t.Errorf("semantic score %v below floor", hit.Score)
	}
}

func TestSearchSemanticUpgradesToHybrid(t *testing.T) {
	engine, st, cleanup := testEngine(t)
	defer cleanup()

	vectors, err := store.OpenVectors(t.TempDir())
	if err != nil {
		t.Fatalf("open vectors: %v", err)
	}
	defer vectors.Close()
	engine.vectors = vectors
	engine.embed = &fakeEmbedder{vec: []float32{1, 0, 0}}

	p := seedProject(t, st, "shop")
	f := seedFile(t, st, p.ID, "src/mail.php")
	send := seedEntity(t, st, p.ID, f.ID, "send_email", "Mail::send_email", "method", 1)
	seedAnalysis(t, st, &store.Analysis{
		EntityID:    send.ID,
		Description: "Sends an email message",
		Keywords:    "send, email, message",
	})
	if err := vectors.Upsert("v1", p.ID, send.ID, "fake-model", []float32{1, 0, 0}); err != nil {
		t.Fatalf("upsert vector: %v", err)
	}

	results, err := engine.Search(context.Background(), "send message", p.ID, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	hit, ok := findResult(results, "send_email")
	if !ok {
		t.Fatalf("expected send_email, got %v", resultNames(results))
	}
	if hit.MatchType != "hybrid" {
		t.Errorf("keyword+semantic hit should report hybrid, got %q", hit.MatchType)
	}
}

func TestFindSimilar(t *testing.T) {
	engine, st, cleanup := testEngine(t)
	defer cleanup()

	p := seedProject(t, st, "shop")
	f := seedFile(t, st, p.ID, "src/mail.php")

	a := seedEntity(t, st, p.ID, f.ID, "send_invoice", "Mail::send_invoice", "method", 1)
	seedAnalysis(t, st, &store.Analysis{
		EntityID:        a.ID,
		Description:     "Sends an invoice",
		CodeFingerprint: "function send($to) { $mailer->deliver($to); return true; }",
	})
	b := seedEntity(t, st, p.ID, f.ID, "send_receipt", "Mail::send_receipt", "method", 20)
	seedAnalysis(t, st, &store.Analysis{
		EntityID:        b.ID,
		Description:     "Sends a receipt",
		CodeFingerprint: "function send($dest) { $mailer->deliver($dest); return true; }",
	})
	c := seedEntity(t, st, p.ID, f.ID, "count_rows", "Db::count_rows", "method", 40)
	seedAnalysis(t, st, &store.Analysis{
		EntityID:        c.ID,
		Description:     "Counts table rows",
		CodeFingerprint: "for ($i = 0; $i < $n; $i++) { $total += $rows[$i]; }",
	})

	similar, err := engine.FindSimilar(a.ID, 0.7, 10)
	if err != nil {
		t.Fatalf("find similar: %v", err)
	}
	if len(similar) != 1 {
		t.Fatalf("expected one similar entity, got %d", len(similar))
	}
	if similar[0].Entity.ID != b.ID {
		t.Errorf("expected %q, got %q", b.Name, similar[0].Entity.Name)
	}
	if similar[0].Similarity < 0.99 {
		t.Errorf("renamed-variable copy should score near 1, got %v", similar[0].Similarity)
	}
}

func TestSearchSimilarPairs(t *testing.T) {
	engine, st, cleanup := testEngine(t)
	defer cleanup()

	p := seedProject(t, st, "shop")
	f := seedFile(t, st, p.ID, "src/orders.php")

	left := seedEntityWithCode(t, st, p.ID, f.ID, "close_order", "method", 10,
		"$order = load_order($id);\nif ($order->total > 100) {\n    apply_discount($order, 10);\n}\nnotify($order);")
	right := seedEntityWithCode(t, st, p.ID, f.ID, "close_invoice", "method", 50,
		"$invoice = load_order($key);\nif ($invoice->total > 150) {\n    apply_discount($invoice, 15);\n}\narchive($invoice);")

	pairs, err := engine.SearchSimilarPairs(context.Background(), p.ID, "method", 0.7, 100)
	if err != nil {
		t.Fatalf("search similar pairs: %v", err)
	}
	if len(pairs) == 0 {
		t.Fatal("expected at least one duplicated fragment pair")
	}

	top := pairs[0]
	if top.Similarity < 0.7 {
		t.Errorf("pair similarity %v below threshold", top.Similarity)
	}
	if top.Left.Entity.ID == top.Right.Entity.ID {
		t.Error("pair must span two entities")
	}
	if top.Left.StartLine < left.StartLine || top.Right.StartLine < right.StartLine {
		t.Errorf("fragment lines should map into the source file, got %d and %d",
			top.Left.StartLine, top.Right.StartLine)
	}
}

func TestDeduplicate(t *testing.T) {
	base := store.Entity{ID: 1, FileID: 7, Name: "send_email", EntityType: "method", StartLine: 10, EndLine: 20}
	reindexed := base
	reindexed.ID = 9

	results := []Result{
		{Entity: base, Score: 0.6, MatchType: "keyword"},
		{Entity: reindexed, Score: 0.9, MatchType: "structured"},
		{Entity: base, Score: 0.9, MatchType: "semantic"},
	}

	out := deduplicate(results)
	if len(out) != 1 {
		t.Fatalf("expected one deduplicated result, got %d", len(out))
	}
	// 0.9 structured replaced 0.6; the equal-score semantic hit has a
	// lower id and wins, keeping its own match type.
	if out[0].Entity.ID != 1 || out[0].Score != 0.9 {
		t.Errorf("unexpected winner: %+v", out[0])
	}

	constant := store.Entity{ID: 2, FileID: 7, Name: "MAX", EntityType: "constant", StartLine: 1, EndLine: 1}
	moved := constant
	moved.ID = 3
	moved.StartLine, moved.EndLine = 5, 5

	out = deduplicate([]Result{
		{Entity: constant, Score: 0.5, MatchType: "keyword"},
		{Entity: moved, Score: 0.4, MatchType: "semantic"},
	})
	if len(out) != 1 {
		t.Fatalf("constants dedup by name and file, got %d results", len(out))
	}
	if out[0].MatchType != "hybrid" {
		t.Errorf("semantic duplicate should upgrade to hybrid, got %q", out[0].MatchType)
	}

	// A class and a method sharing a name and line span are different
	// logical units.
	cls := store.Entity{ID: 4, FileID: 7, Name: "process", EntityType: "class", StartLine: 30, EndLine: 60}
	method := store.Entity{ID: 5, FileID: 7, Name: "process", EntityType: "method", StartLine: 30, EndLine: 60}

	out = deduplicate([]Result{
		{Entity: cls, Score: 0.5, MatchType: "keyword"},
		{Entity: method, Score: 0.5, MatchType: "keyword"},
	})
	if len(out) != 2 {
		t.Fatalf("different kinds must not collapse, got %d results", len(out))
	}
}

func TestRankBoostsExactNameMatch(t *testing.T) {
	results := []Result{
		{Entity: store.Entity{ID: 1, Name: "helper"}, Score: 0.6, MatchType: "keyword"},
		{Entity: store.Entity{ID: 2, Name: "send_email_helper"}, Score: 0.6, MatchType: "keyword"},
	}
	rank(results, "send_email")
	if results[0].Entity.ID != 2 {
		t.Errorf("expected the name match first, got %v", resultNames(results))
	}
}

func TestRankPenalizesSaturatedStructured(t *testing.T) {
	results := []Result{
		{Entity: store.Entity{ID: 1, Name: "a"}, Score: 1.0, MatchType: "structured"},
		{Entity: store.Entity{ID: 2, Name: "b"}, Score: 1.0, MatchType: "keyword"},
	}
	rank(results, "unrelated query")
	if results[0].Entity.ID != 2 {
		t.Errorf("saturated structured hit should rank below the keyword hit, got %v", resultNames(results))
	}
}
