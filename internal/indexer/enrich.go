package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/zolll23/ragdoll/internal/embeddings"
	"github.com/zolll23/ragdoll/internal/extract"
	"github.com/zolll23/ragdoll/internal/llm"
	"github.com/zolll23/ragdoll/internal/metrics"
	"github.com/zolll23/ragdoll/internal/parser"
	"github.com/zolll23/ragdoll/internal/store"
)

// rateLimitFloor is the minimum wait after a rate-limit response,
// regardless of where the backoff schedule is.
const rateLimitFloor = 30 * time.Second

// processEntity runs one entity through dependency extraction, static
// metrics, semantic analysis with retries, and persistence. Collaborator
// failures degrade to a fallback record; only store errors propagate.
func (ix *Indexer) processEntity(ctx context.Context, project *store.Project, row *store.Entity, entity extract.Entity) error {
	deps := extract.Dependencies(entity.Code, entity.Language)
	depNames := make([]string, len(deps))
	for i, d := range deps {
		depNames[i] = d.Name
	}

	static := metrics.Analyze(entity.Code, entity.Language, entity.Kind, depNames)

	var analysis *store.Analysis
	result, err := ix.analyzeWithRetry(ctx, llm.Request{
		Name:      entity.Name,
		FQN:       entity.FQN,
		Kind:      entity.Kind,
		Language:  entity.Language,
		Code:      entity.Code,
		Context:   ix.entityContext(project.ID, deps),
		Locale:    ix.locale,
		KnownDeps: depNames,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ix.log.Warn("semantic analysis failed, writing fallback record",
			"entity", entity.FQN, "error", err)
		analysis = fallbackAnalysis(row.ID, entity, static)
	} else {
		analysis = mergeAnalysis(row.ID, entity, static, &result.Analysis)
		if result.TokensUsed > 0 {
			if err := ix.store.AddTokensUsed(project.ID, result.TokensUsed); err != nil {
				return err
			}
		}
	}

	if err := ix.store.UpsertAnalysis(analysis); err != nil {
		return err
	}
	if err := ix.persistDependencies(project.ID, row.ID, deps); err != nil {
		return err
	}
	ix.embedEntity(ctx, project.ID, row.ID, entity, analysis)
	return nil
}

// analyzeWithRetry calls the analysis provider with bounded retries.
// Rate limits and upstream unavailability retry on an exponential
// schedule (with a 30s floor for rate limits); malformed output and
// auth failures abort immediately.
func (ix *Indexer) analyzeWithRetry(ctx context.Context, req llm.Request) (*llm.Result, error) {
	if ix.analyzer == nil {
		return nil, fmt.Errorf("no analysis provider configured")
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Second
	policy.Multiplier = 2
	policy.MaxElapsedTime = 0

	var lastErr error
	for attempt := 0; attempt < ix.maxAttempts; attempt++ {
		result, err := ix.analyzer.Analyze(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !llm.Retryable(err) {
			return nil, err
		}
		if attempt+1 == ix.maxAttempts {
			break
		}

		delay := policy.NextBackOff()
		if llm.RateLimited(err) && delay < rateLimitFloor {
			delay = rateLimitFloor
		}
		ix.log.Warn("analysis attempt failed, retrying",
			"entity", req.FQN, "attempt", attempt+1, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// entityContext fetches the finished analysis of the entity's
// superclass, if the extends edge resolves within the project. Classes
// are enriched in inheritance order so the parent record exists by the
// time its subclasses run.
func (ix *Indexer) entityContext(projectID int64, deps []extract.Dependency) string {
	for _, d := range deps {
		if d.Relation != extract.RelationExtends {
			continue
		}
		parent, err := ix.store.ResolveDependency(projectID, d.Name)
		if err != nil {
			continue
		}
		analysis, err := ix.store.GetAnalysis(parent.ID)
		if err != nil || analysis.Description == "" {
			continue
		}
		return fmt.Sprintf("Superclass %s: %s", parent.FQN, analysis.Description)
	}
	return ""
}

// persistDependencies replaces the entity's edge set in full; edges are
// never incrementally patched.
func (ix *Indexer) persistDependencies(projectID, entityID int64, deps []extract.Dependency) error {
	if err := ix.store.DeleteDependenciesOf(entityID); err != nil {
		return err
	}
	if len(deps) == 0 {
		return nil
	}
	rows := make([]*store.Dependency, len(deps))
	for i, d := range deps {
		row := &store.Dependency{
			EntityID:      entityID,
			DependsOnName: d.Name,
			DepType:       string(d.Relation),
		}
		if target, err := ix.store.ResolveDependency(projectID, d.Name); err == nil && target.ID != entityID {
			id := target.ID
			row.DependsOnID = &id
		}
		rows[i] = row
	}
	return ix.store.CreateDependenciesBulk(rows)
}

// embedEntity issues the embedding request and records the vector
// handle. Embedding failures are logged and skipped; the analysis
// record stays valid without a vector.
func (ix *Indexer) embedEntity(ctx context.Context, projectID, entityID int64, entity extract.Entity, analysis *store.Analysis) {
	if ix.embedder == nil || ix.vectors == nil {
		return
	}

	content := embeddings.PrepareEntityContent(entity.Name, analysis.Description, splitKeywords(analysis.Keywords), entity.FQN)
	vector, err := ix.embedder.Embed(ctx, content)
	if err != nil {
		ix.log.Warn("embedding failed", "entity", entity.FQN, "error", err)
		return
	}

	// One vector per entity: re-enrichment replaces the prior row so a
	// stale fallback-era vector never stays searchable.
	if err := ix.vectors.DeleteByEntity(entityID); err != nil {
		ix.log.Warn("stale vector delete failed", "entity", entity.FQN, "error", err)
	}

	id := uuid.NewString()
	if err := ix.vectors.Upsert(id, projectID, entityID, ix.embedder.ModelVersion(), vector); err != nil {
		ix.log.Warn("vector upsert failed", "entity", entity.FQN, "error", err)
		return
	}
	if err := ix.store.SetEmbeddingID(entityID, id); err != nil {
		ix.log.Warn("embedding id update failed", "entity", entity.FQN, "error", err)
	}
}

// mergeAnalysis combines the provider's judgment with the deterministic
// metrics into one record. The fingerprint is backfilled from the code
// when the provider returned none, and the complexity rank always
// follows the fixed total order.
func mergeAnalysis(entityID int64, entity extract.Entity, static metrics.Result, a *llm.Analysis) *store.Analysis {
	complexity, rank := NormalizeComplexity(entity.Kind, a.Complexity)

	fingerprint := strings.TrimSpace(a.CodeFingerprint)
	if fingerprint == "" {
		fingerprint = Fingerprint(entity.Code)
	}

	keywords := SynthesizeKeywords(entity.Name, entity.FQN, a.Description, entity.Code)
	keywords = appendKeywords(keywords, a.Keywords)

	rec := newAnalysisRecord(entityID, static)
	rec.Description = a.Description
	rec.Complexity = complexity
	rec.ComplexityNumeric = rank
	rec.ComplexityExplanation = a.ComplexityExplanation
	rec.SOLIDViolations = a.SOLIDViolations
	rec.DesignPatterns = a.DesignPatterns
	rec.DDDRole = store.NormalizeDDDRole(a.DDDRole)
	rec.MVCRole = store.NormalizeMVCRole(a.MVCRole)
	rec.IsTestable = a.IsTestable
	rec.TestabilityScore = clampScore(a.TestabilityScore)
	rec.TestabilityIssues = a.TestabilityIssues
	rec.CodeFingerprint = fingerprint
	rec.Keywords = keywords
	return rec
}

// fallbackAnalysis builds the record used when the provider fails every
// attempt: full deterministic metrics, the failure sentinel description
// and a fingerprint derived from the code itself.
func fallbackAnalysis(entityID int64, entity extract.Entity, static metrics.Result) *store.Analysis {
	complexity, rank := NormalizeComplexity(entity.Kind, "O(n)")

	rec := newAnalysisRecord(entityID, static)
	rec.Description = store.FallbackDescription
	rec.Complexity = complexity
	rec.ComplexityNumeric = rank
	rec.IsTestable = false
	rec.TestabilityScore = 0
	rec.CodeFingerprint = Fingerprint(entity.Code)
	rec.Keywords = SynthesizeKeywords(entity.Name, entity.FQN, "", entity.Code)
	return rec
}

func newAnalysisRecord(entityID int64, static metrics.Result) *store.Analysis {
	return &store.Analysis{
		EntityID:             entityID,
		LinesOfCode:          static.LinesOfCode,
		CyclomaticComplexity: static.CyclomaticComplexity,
		CognitiveComplexity:  static.CognitiveComplexity,
		MaxNestingDepth:      static.MaxNestingDepth,
		ParameterCount:       static.ParameterCount,
		CouplingScore:        static.CouplingScore,
		CohesionScore:        static.CohesionScore,
		EfferentCoupling:     static.EfferentCoupling,
		NPlusOneQueries:      toJSON(static.NPlusOneQueries),
		SpaceComplexity:      static.SpaceComplexity,
		SecurityIssues:       toJSON(static.SecurityIssues),
		HardcodedSecrets:     toJSON(static.HardcodedSecrets),
		IsGodObject:          static.IsGodObject,
		FeatureEnvyScore:     static.FeatureEnvyScore,
		DataClumps:           toJSON(static.DataClumps),
		LongParameterList:    static.LongParameterList,
	}
}

func toJSON(v any) string {
	switch val := v.(type) {
	case []metrics.Finding:
		if len(val) == 0 {
			return ""
		}
	case []metrics.SecurityIssue:
		if len(val) == 0 {
			return ""
		}
	case []metrics.SecretFinding:
		if len(val) == 0 {
			return ""
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

func splitKeywords(joined string) []string {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// appendKeywords folds provider-suggested keywords into the synthesized
// list, keeping the overall cap.
func appendKeywords(joined string, extra []string) string {
	if len(extra) == 0 {
		return joined
	}
	existing := splitKeywords(joined)
	seen := make(map[string]bool, len(existing))
	for _, kw := range existing {
		seen[kw] = true
	}
	for _, kw := range extra {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] || len(existing) >= maxKeywords {
			continue
		}
		seen[kw] = true
		existing = append(existing, kw)
	}
	return strings.Join(existing, ", ")
}

// languageOf maps a stored language name back to the parser enum.
func languageOf(name string) parser.Language {
	return parser.LanguageFromName(name)
}
