// Package search implements the hybrid query engine: deterministic
// intent rules, full-text keyword matching, structured filters,
// dependency-graph expansion and vector-similarity fill, merged and
// ranked into one result list.
package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/zolll23/ragdoll/internal/llm"
	"github.com/zolll23/ragdoll/internal/store"
)

const defaultLimit = 10

// Result is one ranked search hit.
type Result struct {
	Entity    store.Entity    `json:"entity"`
	Analysis  *store.Analysis `json:"analysis,omitempty"`
	FilePath  string          `json:"file_path"`
	Score     float64         `json:"score"`
	MatchType string          `json:"match_type"` // keyword, structured, dependency, semantic, hybrid
}

// Embedder is the slice of the embedding collaborator the engine needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Engine runs searches over one store. Safe for concurrent use; every
// call reflects whatever is committed at query time.
type Engine struct {
	store   *store.Store
	vectors *store.VectorStore
	embed   Embedder
	refiner llm.QueryRefiner
	log     *slog.Logger
}

// New builds an Engine. vectors, embed and refiner may be nil; the
// corresponding stages are skipped.
func New(st *store.Store, vectors *store.VectorStore, embed Embedder, refiner llm.QueryRefiner, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: st, vectors: vectors, embed: embed, refiner: refiner, log: log}
}

// Search runs the staged pipeline. A zero project id yields an empty
// result; searches never cross projects.
func (e *Engine) Search(ctx context.Context, query string, projectID int64, limit int) ([]Result, error) {
	if projectID == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	intent := AnalyzeQuery(query)
	if e.refiner != nil {
		refinement, err := e.refiner.RefineQuery(ctx, query)
		if err != nil {
			e.log.Warn("query refinement failed, using rule table only", "error", err)
		} else {
			intent.ApplyRefinement(refinement)
		}
	}

	paths, err := e.filePaths(projectID)
	if err != nil {
		return nil, err
	}

	terms := QueryTerms(query)
	var results []Result
	seen := map[int64]bool{}

	add := func(batch []Result) {
		for _, r := range batch {
			if seen[r.Entity.ID] {
				continue
			}
			seen[r.Entity.ID] = true
			results = append(results, r)
		}
	}

	keyword, err := e.keywordStage(projectID, query, terms, intent, paths, limit)
	if err != nil {
		return nil, err
	}
	add(keyword)

	if intent.WantsStatuses {
		enums, err := e.statusEnumStage(projectID, keyword, paths)
		if err != nil {
			return nil, err
		}
		add(enums)
	}

	structured, err := e.structuredStage(projectID, intent, paths, limit)
	if err != nil {
		return nil, err
	}
	add(structured)

	if intent.SOLID != nil && len(structured) == 0 {
		fallback, err := e.solidFallbackStage(projectID, intent, paths)
		if err != nil {
			return nil, err
		}
		add(fallback)
	}

	if hasClassResults(keyword) || intent.DependencyCue {
		deps, err := e.dependencyStage(projectID, query, terms, keyword, intent, paths, limit/2)
		if err != nil {
			return nil, err
		}
		add(deps)
	}

	if len(results) < limit && e.embed != nil && e.vectors != nil {
		semantic, err := e.semanticStage(ctx, projectID, query, intent, paths, limit)
		if err != nil {
			e.log.Warn("semantic stage failed, returning lexical results", "error", err)
		} else {
			// Semantic hits for already-seen entities still merge in
			// deduplication to upgrade the match type.
			results = append(results, semantic...)
		}
	}

	results = deduplicate(results)
	rank(results, query)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (e *Engine) filePaths(projectID int64) (map[int64]string, error) {
	files, err := e.store.ListFiles(projectID)
	if err != nil {
		return nil, err
	}
	paths := make(map[int64]string, len(files))
	for _, f := range files {
		paths[f.ID] = f.Path
	}
	return paths, nil
}

func (e *Engine) toResult(r *store.Record, paths map[int64]string, score float64, matchType string) Result {
	return Result{
		Entity:    r.Entity,
		Analysis:  r.Analysis,
		FilePath:  paths[r.Entity.FileID],
		Score:     score,
		MatchType: matchType,
	}
}

func hasClassResults(results []Result) bool {
	for _, r := range results {
		if r.Entity.EntityType == "class" {
			return true
		}
	}
	return false
}

// matchesIntent re-applies structured filters in memory, used by the
// stages that fetch candidates by other means.
func matchesIntent(r *store.Record, intent Intent) bool {
	if intent.EntityType != "" && !matchesEntityType(&r.Entity, intent.EntityType) {
		return false
	}
	if r.Analysis == nil {
		return intent.MVCRole == "" && intent.DDDRole == "" && intent.Complexity == nil
	}
	if intent.MVCRole != "" && r.Analysis.MVCRole != intent.MVCRole {
		return false
	}
	if intent.DDDRole != "" && r.Analysis.DDDRole != intent.DDDRole {
		return false
	}
	if cf := intent.Complexity; cf != nil {
		rank := r.Analysis.ComplexityNumeric
		if cf.Min > 0 && rank < cf.Min {
			return false
		}
		if cf.Max > 0 && rank > cf.Max {
			return false
		}
	}
	return true
}

// matchesEntityType treats "enum" as a constant with a case-qualified
// name, the shape enum members are stored in.
func matchesEntityType(e *store.Entity, entityType string) bool {
	if entityType == "enum" {
		return e.EntityType == "constant" && strings.Contains(e.FQN, "::")
	}
	return e.EntityType == entityType
}

func sortByScore(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
