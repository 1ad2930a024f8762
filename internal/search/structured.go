package search

import (
	"strings"

	"github.com/zolll23/ragdoll/internal/store"
)

// structuredStage applies the intent's filters as exact predicates.
// It only runs when at least one specific filter is present; a bare
// entity type would return the whole corpus.
func (e *Engine) structuredStage(projectID int64, intent Intent, paths map[int64]string, limit int) ([]Result, error) {
	if !intent.HasSpecificFilter() {
		return nil, nil
	}

	filter := store.RecordFilter{
		ProjectID: projectID,
		Limit:     limit * 2,
	}
	if intent.MVCRole != "" {
		filter.MVCRoles = []string{intent.MVCRole}
	}
	if intent.DDDRole != "" {
		filter.DDDRoles = []string{intent.DDDRole}
	}
	if cf := intent.Complexity; cf != nil {
		filter.MinComplexityRank = cf.Min
		filter.MaxComplexityRank = cf.Max
	}
	if intent.MinTestability > 0 {
		filter.MinTestability = intent.MinTestability
	}
	if intent.SOLID != nil && intent.SOLID.Principle != "" {
		filter.SOLIDViolation = intent.SOLID.Principle
	}
	if intent.Pattern != "" {
		filter.DesignPattern = intent.Pattern
	}
	if intent.EntityType != "" {
		if intent.EntityType == "enum" {
			filter.EntityTypes = []string{"constant"}
			filter.FQNLike = "%::%"
		} else {
			filter.EntityTypes = []string{intent.EntityType}
		}
	}

	records, err := e.store.QueryRecords(filter)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, r := range records {
		if intent.SOLID != nil && !matchesSOLID(r.Analysis, intent.SOLID.Principle) {
			continue
		}
		if intent.Pattern != "" && !hasPattern(r.Analysis, intent.Pattern) {
			continue
		}
		results = append(results, e.toResult(r, paths, 1.0, "structured"))
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// solidFallbackStage widens an empty structured result for SOLID
// queries: entities whose description or keywords talk about the
// principle still count, just scored lower.
func (e *Engine) solidFallbackStage(projectID int64, intent Intent, paths map[int64]string) ([]Result, error) {
	records, err := e.store.QueryRecords(store.RecordFilter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}

	cues := []string{"solid"}
	if intent.SOLID.Principle != "" {
		cues = append(cues, strings.ToLower(intent.SOLID.Principle))
	}

	var results []Result
	for _, r := range records {
		if r.Analysis == nil {
			continue
		}
		text := strings.ToLower(r.Analysis.Description + " " + r.Analysis.Keywords)
		if !matchesAny(text, cues) {
			continue
		}
		results = append(results, e.toResult(r, paths, 0.8, "structured"))
		if len(results) >= 10 {
			break
		}
	}
	return results, nil
}

// matchesSOLID checks the recorded violations against a principle.
// Empty principle matches any recorded violation.
func matchesSOLID(a *store.Analysis, principle string) bool {
	if a == nil || len(a.SOLIDViolations) == 0 {
		return false
	}
	if principle == "" {
		return true
	}
	for _, v := range a.SOLIDViolations {
		if strings.Contains(v, principle) {
			return true
		}
	}
	return false
}

func hasPattern(a *store.Analysis, pattern string) bool {
	if a == nil {
		return false
	}
	for _, p := range a.DesignPatterns {
		if p == pattern {
			return true
		}
	}
	return false
}
