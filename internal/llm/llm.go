// Package llm adapts remote language-model providers to the analysis
// contract the indexing pipeline consumes. Providers return free-form
// text; this package turns it into structured analysis records,
// repairing almost-JSON output when a model drifts from the format.
package llm

import (
	"context"

	"github.com/zolll23/ragdoll/internal/extract"
	"github.com/zolll23/ragdoll/internal/parser"
)

// Analysis is the structured result of a semantic analysis call. Fields
// the model omits stay at their zero values; the pipeline fills the
// deterministic ones itself.
type Analysis struct {
	Description           string   `json:"description"`
	Complexity            string   `json:"complexity"`
	ComplexityExplanation string   `json:"complexity_explanation"`
	SOLIDViolations       []string `json:"solid_violations"`
	DesignPatterns        []string `json:"design_patterns"`
	DDDRole               string   `json:"ddd_role"`
	MVCRole               string   `json:"mvc_role"`
	IsTestable            bool     `json:"is_testable"`
	TestabilityScore      float64  `json:"testability_score"`
	TestabilityIssues     []string `json:"testability_issues"`
	CodeFingerprint       string   `json:"code_fingerprint"`
	Keywords              []string `json:"keywords"`
	Dependencies          []string `json:"dependencies"`
}

// Request carries one entity to the analysis provider.
type Request struct {
	Name      string
	FQN       string
	Kind      extract.EntityKind
	Language  parser.Language
	Code      string
	Context   string
	Locale    string
	KnownDeps []string
}

// Result pairs the parsed analysis with its cost and how cleanly the
// provider's output decoded.
type Result struct {
	Analysis   Analysis
	Outcome    ParseOutcome
	TokensUsed int
}

// Analyzer is the semantic analysis collaborator.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
}

// Refinement is the optional search-time query interpretation a model
// can contribute. It may only add filters, never override the
// deterministic rule table.
type Refinement struct {
	EntityTypes []string `json:"entity_types"`
	MVCRoles    []string `json:"mvc_roles"`
	DDDRoles    []string `json:"ddd_roles"`
}

// QueryRefiner interprets a natural-language search query.
type QueryRefiner interface {
	RefineQuery(ctx context.Context, query string) (*Refinement, error)
}
