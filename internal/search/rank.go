package search

import (
	"sort"
	"strings"
)

type shapeKey struct {
	name      string
	fileID    int64
	startLine int
	endLine   int
	kind      string
}

// resultShape identifies a logical code unit independent of entity id,
// since re-indexing can mint new ids for the same unit. Constants are
// keyed without lines because their line placement drifts.
func resultShape(r Result) shapeKey {
	if r.Entity.EntityType == "constant" {
		return shapeKey{name: r.Entity.Name, fileID: r.Entity.FileID, kind: r.Entity.EntityType}
	}
	return shapeKey{
		name:      r.Entity.Name,
		fileID:    r.Entity.FileID,
		startLine: r.Entity.StartLine,
		endLine:   r.Entity.EndLine,
		kind:      r.Entity.EntityType,
	}
}

// deduplicate collapses results sharing a shape key. The higher score
// wins; on a tie the lower entity id does. A semantic hit folding into
// a lexical one upgrades the match type to hybrid.
func deduplicate(results []Result) []Result {
	seen := map[shapeKey]int{}
	var out []Result

	for _, r := range results {
		key := resultShape(r)
		idx, ok := seen[key]
		if !ok {
			seen[key] = len(out)
			out = append(out, r)
			continue
		}

		existing := &out[idx]
		switch {
		case r.Score > existing.Score:
			*existing = r
		case r.Score == existing.Score && r.Entity.ID < existing.Entity.ID:
			*existing = r
		default:
			if r.MatchType == "semantic" && existing.MatchType != "hybrid" {
				existing.MatchType = "hybrid"
			}
		}
	}
	return out
}

// rank orders results by stage score adjusted with intent heuristics:
// exact name hits and status-related entities on status queries move
// up, results whose description ignores the query move down, and
// saturated structured-only hits lose a little to leave room for
// lexical matches.
func rank(results []Result, query string) {
	q := strings.ToLower(query)

	var keyTerms []string
	if strings.Contains(q, "отправк") || strings.Contains(q, "send") ||
		strings.Contains(q, "сообщени") || strings.Contains(q, "message") {
		keyTerms = append(keyTerms, "отправк", "send", "сообщени", "message")
	}
	if strings.Contains(q, "метод") || strings.Contains(q, "method") {
		keyTerms = append(keyTerms, "метод", "method")
	}
	statusQuery := strings.Contains(q, "статус") || strings.Contains(q, "status")
	if statusQuery {
		keyTerms = append(keyTerms, "статус", "status")
	}

	adjusted := func(r Result) float64 {
		score := r.Score
		name := strings.ToLower(r.Entity.Name)

		if strings.Contains(name, q) {
			score += 0.3
		}

		statusName := strings.Contains(name, "status") || strings.Contains(name, "статус")
		if statusQuery {
			if statusName {
				score += 0.4
			}
			if r.Entity.EntityType == "class" && strings.Contains(name, "status") {
				score += 0.3
			}
		}

		if r.Analysis != nil && r.Analysis.Description != "" {
			desc := strings.ToLower(r.Analysis.Description)
			hits := countMatches(desc, keyTerms)
			switch {
			case hits > 0:
				score += 0.3 * float64(hits) / float64(len(keyTerms))
			case strings.Contains(desc, q):
				score += 0.2
			case !statusName:
				score -= 0.1
			}
		}

		if r.MatchType == "structured" && r.Score == 1.0 {
			score -= 0.1
		}
		return score
	}

	sort.SliceStable(results, func(i, j int) bool {
		return adjusted(results[i]) > adjusted(results[j])
	})
}
