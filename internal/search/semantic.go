package search

import (
	"context"

	"github.com/zolll23/ragdoll/internal/store"
)

// Vector hits below this similarity are more likely noise than signal.
const minSemanticScore = 0.5

// semanticStage embeds the query and pulls nearest entities from the
// vector store, re-applying the structured filters in memory since the
// vector index knows nothing about analysis fields.
func (e *Engine) semanticStage(ctx context.Context, projectID int64, query string, intent Intent, paths map[int64]string, limit int) ([]Result, error) {
	vec, err := e.embed.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := e.vectors.Search(projectID, vec, limit*2)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, m := range matches {
		if m.Similarity < minSemanticScore {
			continue
		}
		record, err := e.store.GetRecord(m.EntityID)
		if err == store.ErrNotFound {
			// Entity deleted after its vector; skip.
			continue
		}
		if err != nil {
			return nil, err
		}
		if !matchesIntent(record, intent) {
			continue
		}
		results = append(results, e.toResult(record, paths, m.Similarity, "semantic"))
	}
	return results, nil
}
