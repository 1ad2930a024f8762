// Package metrics computes deterministic static metrics for extracted
// entities. All numbers here come from the source text alone so repeated
// runs over the same code produce identical results.
package metrics

import (
	"strings"

	"github.com/zolll23/ragdoll/internal/extract"
	"github.com/zolll23/ragdoll/internal/parser"
)

// Finding describes a single performance or structural issue located in
// the analyzed code.
type Finding struct {
	Line        int    `json:"line"`
	Description string `json:"description"`
}

// SecurityIssue is a pattern-matched vulnerability candidate.
type SecurityIssue struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Line        int    `json:"line"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
}

// SecretFinding records the location of a suspected hardcoded credential.
// The matched value is deliberately never stored.
type SecretFinding struct {
	Kind string `json:"kind"`
	Line int    `json:"line"`
}

// Result holds every static metric for one entity.
type Result struct {
	LinesOfCode          int             `json:"lines_of_code"`
	CyclomaticComplexity int             `json:"cyclomatic_complexity"`
	CognitiveComplexity  int             `json:"cognitive_complexity"`
	MaxNestingDepth      int             `json:"max_nesting_depth"`
	ParameterCount       int             `json:"parameter_count"`
	CouplingScore        float64         `json:"coupling_score"`
	CohesionScore        float64         `json:"cohesion_score"`
	EfferentCoupling     int             `json:"efferent_coupling"`
	NPlusOneQueries      []Finding       `json:"n_plus_one_queries,omitempty"`
	SpaceComplexity      string          `json:"space_complexity"`
	SecurityIssues       []SecurityIssue `json:"security_issues,omitempty"`
	HardcodedSecrets     []SecretFinding `json:"hardcoded_secrets,omitempty"`
	IsGodObject          bool            `json:"is_god_object"`
	FeatureEnvyScore     float64         `json:"feature_envy_score"`
	DataClumps           []Finding       `json:"data_clumps,omitempty"`
	LongParameterList    bool            `json:"long_parameter_list"`
}

// Analyze computes the full metric set for an entity's source code.
// depNames are the dependency names extracted for the same entity and
// feed the coupling score.
func Analyze(code string, lang parser.Language, kind extract.EntityKind, depNames []string) Result {
	r := Result{
		LinesOfCode:      countLines(code),
		EfferentCoupling: len(depNames),
		SpaceComplexity:  spaceComplexity(code, lang),
		SecurityIssues:   securityIssues(code, lang),
		HardcodedSecrets: hardcodedSecrets(code),
	}

	if kind == extract.ConstEntity {
		// Constants and enum cases carry no control flow.
		r.CyclomaticComplexity = 1
		r.CognitiveComplexity = 0
		r.CohesionScore = 1.0
		return r
	}

	r.CyclomaticComplexity = cyclomaticComplexity(code, lang)
	r.CognitiveComplexity = cognitiveComplexity(code, lang)
	r.MaxNestingDepth = maxNestingDepth(code, lang)
	r.ParameterCount = parameterCount(code, lang)
	r.LongParameterList = r.ParameterCount > 5
	r.CouplingScore = couplingScore(code, depNames)
	r.CohesionScore = cohesionScore(code)
	r.NPlusOneQueries = nPlusOneQueries(code, lang)
	r.FeatureEnvyScore = featureEnvyScore(code, lang)

	if kind == extract.ClassEntity {
		methods := methodCount(code, lang)
		r.IsGodObject = methods > 20 || r.CyclomaticComplexity > 50 || r.LinesOfCode > 500
		r.DataClumps = dataClumps(code, lang)
	}
	return r
}

func countLines(code string) int {
	n := 0
	for _, line := range strings.Split(code, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
