package metrics

import (
	"math"
	"strings"
	"testing"

	"github.com/zolll23/ragdoll/internal/extract"
	"github.com/zolll23/ragdoll/internal/parser"
)

func TestCyclomaticNestedIfs(t *testing.T) {
	code := "if a:\n    if b:\n        if c:\n            pass\n"
	got := cyclomaticComplexity(code, parser.Python)
	if got != 4 {
		t.Errorf("cyclomatic = %d, want 4", got)
	}
}

func TestCognitiveWeightsNesting(t *testing.T) {
	code := "if a:\n    if b:\n        if c:\n            pass\n"
	got := cognitiveComplexity(code, parser.Python)
	if got != 6 {
		t.Errorf("cognitive = %d, want 6", got)
	}
	if d := maxNestingDepth(code, parser.Python); d != 3 {
		t.Errorf("nesting = %d, want 3", d)
	}
}

func TestCyclomaticBooleanOperators(t *testing.T) {
	code := "if a and b or c:\n    pass\n"
	if got := cyclomaticComplexity(code, parser.Python); got != 4 {
		t.Errorf("cyclomatic = %d, want 4", got)
	}
}

func TestPHPComplexity(t *testing.T) {
	code := `function f($a, $xs) {
    if ($a && $b) {
        foreach ($xs as $x) {
            echo $x;
        }
    }
}`
	if got := cyclomaticComplexity(code, parser.PHP); got != 4 {
		t.Errorf("cyclomatic = %d, want 4", got)
	}
	if d := maxNestingDepth(code, parser.PHP); d != 3 {
		t.Errorf("nesting = %d, want 3", d)
	}
	// fallback formula: cyclomatic + (nesting-1)*2
	if got := cognitiveComplexity(code, parser.PHP); got != 8 {
		t.Errorf("cognitive = %d, want 8", got)
	}
}

func TestParameterCount(t *testing.T) {
	tests := []struct {
		code string
		lang parser.Language
		want int
	}{
		{"def handle(self, a, b=1, *args, **kwargs):\n    pass", parser.Python, 4},
		{"def nop():\n    pass", parser.Python, 0},
		{"def typed(self, items: dict[str, int], limit: int = 10):\n    pass", parser.Python, 2},
		{"function get(int $id, string $name = 'x') {}", parser.PHP, 2},
		{"MAX = 5", parser.Python, 0},
	}
	for _, tt := range tests {
		if got := parameterCount(tt.code, tt.lang); got != tt.want {
			t.Errorf("parameterCount(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestLongParameterList(t *testing.T) {
	code := "def build(self, a, b, c, d, e, f):\n    pass"
	r := Analyze(code, parser.Python, extract.MethodEntity, nil)
	if !r.LongParameterList {
		t.Errorf("expected long parameter list for %d params", r.ParameterCount)
	}
}

func TestConstantsSkipControlFlowMetrics(t *testing.T) {
	r := Analyze("MAX_RETRIES = 5", parser.Python, extract.ConstEntity, nil)
	if r.CyclomaticComplexity != 1 {
		t.Errorf("cyclomatic = %d, want 1", r.CyclomaticComplexity)
	}
	if r.CognitiveComplexity != 0 {
		t.Errorf("cognitive = %d, want 0", r.CognitiveComplexity)
	}
	if r.LongParameterList || r.ParameterCount != 0 {
		t.Error("constants must never report parameters")
	}
}

func TestGodObjectByMethodCount(t *testing.T) {
	var b strings.Builder
	b.WriteString("class Big:\n")
	for i := 0; i < 25; i++ {
		b.WriteString("    def method")
		b.WriteByte(byte('a' + i%26))
		b.WriteString("(self):\n        return 1\n")
	}
	r := Analyze(b.String(), parser.Python, extract.ClassEntity, nil)
	if !r.IsGodObject {
		t.Error("25 methods should flag a god object")
	}

	small := "class Small:\n    def one(self):\n        return 1\n"
	r = Analyze(small, parser.Python, extract.ClassEntity, nil)
	if r.IsGodObject {
		t.Error("small class flagged as god object")
	}
}

func TestNPlusOneInLoop(t *testing.T) {
	code := "for user in users:\n    row = db.execute(query)\n"
	findings := nPlusOneQueries(code, parser.Python)
	if len(findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(findings))
	}
	if findings[0].Line != 1 {
		t.Errorf("finding line = %d, want 1", findings[0].Line)
	}

	flat := "row = db.execute(query)\nfor user in users:\n    total += user.age\n"
	if got := nPlusOneQueries(flat, parser.Python); len(got) != 0 {
		t.Errorf("query outside loop flagged: %v", got)
	}
}

func TestSpaceComplexity(t *testing.T) {
	grow := "for x in xs:\n    out.append(x)\n"
	if got := spaceComplexity(grow, parser.Python); got != "O(n)" {
		t.Errorf("space = %s, want O(n)", got)
	}
	flat := "for x in xs:\n    total += x\n"
	if got := spaceComplexity(flat, parser.Python); got != "O(1)" {
		t.Errorf("space = %s, want O(1)", got)
	}
}

func TestCouplingScore(t *testing.T) {
	code := "def run(self):\n    repo.save(self.order)\n"
	got := couplingScore(code, []string{"repo.save", "missing_helper"})
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("coupling = %f, want 0.5", got)
	}
	if got := couplingScore(code, nil); got != 0 {
		t.Errorf("coupling with no deps = %f, want 0", got)
	}
}

func TestCohesionScore(t *testing.T) {
	pure := "x = 1\ny = 2\n"
	if got := cohesionScore(pure); got != 1.0 {
		t.Errorf("single-category cohesion = %f, want 1.0", got)
	}
	mixed := "import os\nx = 1\nif x:\n    pass\n"
	if got := cohesionScore(mixed); got != 0.0 {
		t.Errorf("three-category cohesion = %f, want 0.0", got)
	}
}

func TestFeatureEnvy(t *testing.T) {
	code := "def sync(self):\n    self.check()\n    order.save()\n    repo.load()\n"
	got := featureEnvyScore(code, parser.Python)
	if math.Abs(got-2.0/3.0) > 1e-9 {
		t.Errorf("feature envy = %f, want 2/3", got)
	}
}

func TestSQLInjectionDetection(t *testing.T) {
	code := `cursor.execute("SELECT * FROM users WHERE id = " + user_id)`
	issues := securityIssues(code, parser.Python)
	if len(issues) != 1 || issues[0].Type != "sql_injection" {
		t.Fatalf("issues = %+v, want one sql_injection", issues)
	}

	safe := `cursor.execute("SELECT * FROM users WHERE id = %s", (user_id,))`
	for _, issue := range securityIssues(safe, parser.Python) {
		if issue.Type == "sql_injection" {
			t.Errorf("parameterized query flagged: %+v", issue)
		}
	}
}

func TestPHPXSSDetection(t *testing.T) {
	code := `echo "Hello " . $_GET['name'];`
	issues := securityIssues(code, parser.PHP)
	if len(issues) != 1 || issues[0].Type != "xss" {
		t.Fatalf("issues = %+v, want one xss", issues)
	}
}

func TestHardcodedSecretsRecordLocationOnly(t *testing.T) {
	code := "API_KEY = \"sk-abcdef1234567890\"\npassword = \"hunter22\"\n"
	findings := hardcodedSecrets(code)
	if len(findings) != 2 {
		t.Fatalf("findings = %d, want 2", len(findings))
	}
	if findings[0].Kind != "api_key" || findings[0].Line != 1 {
		t.Errorf("first finding = %+v", findings[0])
	}
	if findings[1].Kind != "password" || findings[1].Line != 2 {
		t.Errorf("second finding = %+v", findings[1])
	}
}

func TestDataClumps(t *testing.T) {
	code := `class Report:
    def daily(self, start, end, fmt):
        pass

    def weekly(self, start, end, fmt):
        pass
`
	findings := dataClumps(code, parser.Python)
	if len(findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(findings))
	}
	if !strings.Contains(findings[0].Description, "start,end,fmt") {
		t.Errorf("description = %q", findings[0].Description)
	}
}
