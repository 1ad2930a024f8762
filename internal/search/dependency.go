package search

import (
	"strings"
)

// Database access patterns expanded when the query names an ORM or a
// query-builder call directly.
var ormPatterns = []string{
	"db.query", "db.add", "db.commit", "db.flush", "db.delete",
	"db.rollback", "db.refresh", "db.close", "Session", "session",
}

// dependencyStage finds entities whose dependency edges point at the
// classes the keyword stage surfaced, or at call patterns named in the
// query itself. Graph hits rank below direct matches.
func (e *Engine) dependencyStage(projectID int64, query string, terms []string, keyword []Result, intent Intent, paths map[int64]string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 1
	}

	var targetIDs []int64
	var patterns []string
	for _, r := range keyword {
		if r.Entity.EntityType != "class" {
			continue
		}
		targetIDs = append(targetIDs, r.Entity.ID)
		patterns = append(patterns, r.Entity.Name)
		if r.Entity.FQN != "" {
			patterns = append(patterns, r.Entity.FQN)
		}
	}

	if intent.DependencyCue {
		q := strings.ToLower(query)
		if strings.Contains(q, "sqlalchemy") || strings.Contains(q, "db.") {
			patterns = append(patterns, ormPatterns...)
		}
		patterns = append(patterns, terms...)
	}

	if len(targetIDs) == 0 && len(patterns) == 0 {
		return nil, nil
	}

	var entityTypes []string
	enumOnly := false
	switch intent.EntityType {
	case "":
	case "enum":
		entityTypes = []string{"constant"}
		enumOnly = true
	default:
		entityTypes = []string{intent.EntityType}
	}

	records, err := e.store.FindDependents(projectID, targetIDs, patterns, entityTypes, limit)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, r := range records {
		if enumOnly && !strings.Contains(r.Entity.FQN, "::") {
			continue
		}
		score := 0.5
		if r.Analysis != nil && r.Analysis.Description != "" && len(terms) > 0 {
			descHits := countMatches(strings.ToLower(r.Analysis.Description), terms)
			if descHits > 0 {
				score += 0.2 * float64(descHits) / float64(len(terms))
			}
		}
		results = append(results, e.toResult(r, paths, score, "dependency"))
	}
	return results, nil
}
