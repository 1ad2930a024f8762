package search

import (
	"strings"

	"github.com/zolll23/ragdoll/internal/store"
)

const minKeywordScore = 0.3

// keywordStage scores full-text candidates by term coverage across
// name, description, qualified name and synthesized keywords. Hits
// below the floor are noise and dropped.
func (e *Engine) keywordStage(projectID int64, query string, terms []string, intent Intent, paths map[int64]string, limit int) ([]Result, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	candidates, err := e.store.KeywordCandidates(projectID, query, limit*2)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, c := range candidates {
		if intent.EntityType != "" && !matchesEntityType(&c.Record.Entity, intent.EntityType) {
			continue
		}
		score := scoreKeywordMatch(c.Record, terms)
		if score < minKeywordScore {
			continue
		}
		results = append(results, e.toResult(c.Record, paths, score, "keyword"))
	}

	sortByScore(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// scoreKeywordMatch rates a record by the fraction of query terms it
// contains, with bonuses for name hits, keyword-field hits and full
// coverage. Capped at 1.
func scoreKeywordMatch(r *store.Record, terms []string) float64 {
	var description, keywords string
	if r.Analysis != nil {
		description = r.Analysis.Description
		keywords = r.Analysis.Keywords
	}
	haystack := strings.ToLower(r.Entity.Name + " " + description + " " + r.Entity.FQN + " " + keywords)

	matched := countMatches(haystack, terms)
	if matched == 0 {
		return 0
	}
	score := float64(matched) / float64(len(terms))

	if nameHits := countMatches(strings.ToLower(r.Entity.Name), terms); nameHits > 0 {
		score += 0.3 * float64(nameHits) / float64(len(terms))
	}
	if keywords != "" {
		if kwHits := countMatches(strings.ToLower(keywords), terms); kwHits > 0 {
			score += 0.2 * float64(kwHits) / float64(len(terms))
		}
	}
	if matched == len(terms) {
		score += 0.2
	}

	if score > 1 {
		score = 1
	}
	return score
}

func countMatches(haystack string, terms []string) int {
	n := 0
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			n++
		}
	}
	return n
}

// statusEnumStage expands status-intent queries into enum members:
// enum-like classes already surfaced get their cases attached, and when
// the keyword stage found none, status/enum classes are looked up
// directly.
func (e *Engine) statusEnumStage(projectID int64, keyword []Result, paths map[int64]string) ([]Result, error) {
	var enumClasses []Result
	for _, r := range keyword {
		if r.Entity.EntityType != "class" {
			continue
		}
		name := strings.ToLower(r.Entity.Name)
		if strings.Contains(name, "status") || strings.Contains(name, "enum") {
			enumClasses = append(enumClasses, r)
		}
	}

	var results []Result
	if len(enumClasses) > 0 {
		for _, class := range enumClasses {
			cases, err := e.enumCases(projectID, class.Entity.Name, paths)
			if err != nil {
				return nil, err
			}
			results = append(results, cases...)
		}
		return results, nil
	}

	// Nothing enum-like in the keyword results; try the class names
	// directly.
	for _, pattern := range []string{"%Status%", "%Enum%"} {
		classes, err := e.store.QueryRecords(store.RecordFilter{
			ProjectID:   projectID,
			EntityTypes: []string{"class"},
			NameLike:    pattern,
			Limit:       5,
		})
		if err != nil {
			return nil, err
		}
		for _, class := range classes {
			results = append(results, e.toResult(class, paths, 0.7, "keyword"))
			cases, err := e.enumCases(projectID, class.Entity.Name, paths)
			if err != nil {
				return nil, err
			}
			results = append(results, cases...)
		}
	}
	return results, nil
}

func (e *Engine) enumCases(projectID int64, className string, paths map[int64]string) ([]Result, error) {
	records, err := e.store.QueryRecords(store.RecordFilter{
		ProjectID:   projectID,
		EntityTypes: []string{"constant"},
		FQNLike:     "%" + className + "::%",
		Limit:       10,
	})
	if err != nil {
		return nil, err
	}
	var results []Result
	for _, r := range records {
		results = append(results, e.toResult(r, paths, 0.9, "keyword"))
	}
	return results, nil
}
