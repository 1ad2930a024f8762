package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// FTSCandidate is one full-text match, a starting point for the search
// engine's own scoring.
type FTSCandidate struct {
	Record   *Record `json:"record"`
	FTSScore float64 `json:"fts_score"` // normalized to roughly 0..1
}

// KeywordCandidates runs MySQL FULLTEXT matching over entity names,
// qualified names and comments plus analysis descriptions and keywords.
// Dolt only supports NATURAL LANGUAGE MODE, which is what a keyword
// stage wants anyway.
func (s *Store) KeywordCandidates(projectID int64, query string, limit int) ([]*FTSCandidate, error) {
	if query == "" {
		return nil, fmt.Errorf("search query is required")
	}
	if limit <= 0 {
		limit = 50
	}

	ftsQuery := buildFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}

	sqlQuery := `SELECT ` + prefixColumns("e", entityColumns) + `, ` + prefixColumns("a", analysisColumns) + `,
			MATCH(e.name, e.fqn, e.comment) AGAINST(? IN NATURAL LANGUAGE MODE) +
			COALESCE(MATCH(a.description, a.keywords) AGAINST(? IN NATURAL LANGUAGE MODE), 0) AS fts_score
		FROM entities e
		LEFT JOIN analysis a ON a.entity_id = e.id
		WHERE e.project_id = ?
		AND (MATCH(e.name, e.fqn, e.comment) AGAINST(? IN NATURAL LANGUAGE MODE)
			OR MATCH(a.description, a.keywords) AGAINST(? IN NATURAL LANGUAGE MODE))
		ORDER BY fts_score DESC
		LIMIT ?`

	rows, err := s.db.Query(sqlQuery, ftsQuery, ftsQuery, projectID, ftsQuery, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*FTSCandidate
	for rows.Next() {
		var e Entity
		var code, comment sql.NullString
		var n nullAnalysis
		var raw float64

		dest := []any{
			&e.ID, &e.ProjectID, &e.FileID, &e.Name, &e.FQN, &e.EntityType, &e.Visibility,
			&e.Language, &e.StartLine, &e.EndLine, &code, &comment, &e.CreatedAt, &e.UpdatedAt,
		}
		dest = append(dest, n.fields()...)
		dest = append(dest, &raw)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan keyword candidate: %w", err)
		}
		e.Code = code.String
		e.Comment = comment.String

		candidates = append(candidates, &FTSCandidate{
			Record:   &Record{Entity: e, Analysis: n.toAnalysis()},
			FTSScore: normalizeBM25Score(raw),
		})
	}
	return candidates, rows.Err()
}

// codeStopWords are generic terms that add noise in code search
// contexts.
var codeStopWords = map[string]bool{
	"code":      true,
	"source":    true,
	"file":      true,
	"function":  true,
	"method":    true,
	"class":     true,
	"implement": true,
	"feature":   true,
	"new":       true,
	"existing":  true,
	"current":   true,
	"project":   true,
	"codebase":  true,
	"logic":     true,
	"system":    true,
	"module":    true,
	"component": true,
}

// buildFTSQuery converts a user query into clean keywords for NATURAL
// LANGUAGE MODE, dropping code-generic stopwords.
func buildFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}

	words := strings.Fields(query)
	var parts []string
	for _, word := range words {
		word = strings.TrimSpace(cleanFTSWord(word))
		if word == "" || codeStopWords[strings.ToLower(word)] {
			continue
		}
		parts = append(parts, word)
	}

	// If every word was a stopword, fall back to the first clean one.
	if len(parts) == 0 {
		for _, word := range words {
			if word = strings.TrimSpace(cleanFTSWord(word)); word != "" {
				return word
			}
		}
		return query
	}
	return strings.Join(parts, " ")
}

// cleanFTSWord removes characters that interfere with FULLTEXT queries.
func cleanFTSWord(s string) string {
	replacer := strings.NewReplacer(
		`"`, ``,
		`'`, ``,
		`(`, ``,
		`)`, ``,
		`*`, ``,
		`+`, ``,
		`-`, ``,
		`@`, ``,
		`<`, ``,
		`>`, ``,
		`~`, ``,
	)
	return replacer.Replace(s)
}

// normalizeBM25Score squashes a BM25-style relevance score into the
// 0..1 range; scores above 10 are considered excellent.
func normalizeBM25Score(score float64) float64 {
	if score <= 0 {
		return 0
	}
	return score / (score + 5.0)
}
