package llm

import (
	"fmt"
	"strings"
)

const analysisSystemPrompt = `You are a static analysis assistant for a code intelligence index.
Given one source entity you return a single JSON object and nothing else.
Fields: description (one concise paragraph), complexity (big-O such as "O(n)"),
complexity_explanation, solid_violations (list of principle names),
design_patterns (list), ddd_role (entity|value_object|aggregate|repository|service|factory|domain_event or empty),
mvc_role (model|view|controller or empty), is_testable (bool),
testability_score (0..1), testability_issues (list), keywords (list of search terms),
dependencies (list of names this code relies on).
Do not wrap the JSON in markdown fences.`

const refineSystemPrompt = `You classify code search queries for a retrieval engine.
Return one JSON object with optional fields: entity_types (class|method|function|constant),
mvc_roles (model|view|controller), ddd_roles. Only include a field when the
query clearly implies it. No other text.`

// buildAnalysisPrompt renders the user message for one entity.
func buildAnalysisPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this %s %s named %q", req.Language, req.Kind, req.Name)
	if req.FQN != "" && req.FQN != req.Name {
		fmt.Fprintf(&b, " (%s)", req.FQN)
	}
	b.WriteString(".\n")
	if req.Locale != "" && req.Locale != "en" {
		fmt.Fprintf(&b, "Write the description in locale %q.\n", req.Locale)
	}
	if len(req.KnownDeps) > 0 {
		fmt.Fprintf(&b, "Known project symbols it may depend on: %s.\n", strings.Join(req.KnownDeps, ", "))
	}
	if req.Context != "" {
		b.WriteString("Surrounding context:\n")
		b.WriteString(req.Context)
		b.WriteString("\n")
	}
	b.WriteString("Source:\n")
	b.WriteString(req.Code)
	return b.String()
}
