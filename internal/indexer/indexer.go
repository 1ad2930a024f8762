// Package indexer runs the enrichment pipeline that turns a project's
// source tree into persisted entity, analysis and dependency records.
//
// Indexing is resumable: files are processed in lexicographic order and
// the project record keeps a pointer to the last fully committed file.
// A stopped or crashed run picks up at the next file. One logical
// worker runs per project, guarded by the project's is_indexing flag;
// separate projects index independently.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/zolll23/ragdoll/internal/embeddings"
	"github.com/zolll23/ragdoll/internal/extract"
	"github.com/zolll23/ragdoll/internal/llm"
	"github.com/zolll23/ragdoll/internal/parser"
	"github.com/zolll23/ragdoll/internal/store"
)

// ErrAlreadyIndexing is returned when a run is requested for a project
// whose indexing flag is already set.
var ErrAlreadyIndexing = errors.New("project is already indexing")

// Options tune one Indexer instance.
type Options struct {
	// MaxAttempts caps semantic analysis retries per entity.
	MaxAttempts int
	// Locale is passed through to the analysis provider.
	Locale string
	// Exclude names extra directories to skip during discovery.
	Exclude []string
}

// Indexer orchestrates extraction, static metrics, semantic enrichment
// and persistence for whole projects.
type Indexer struct {
	store    *store.Store
	vectors  *store.VectorStore
	analyzer llm.Analyzer
	embedder embeddings.Embedder
	log      *slog.Logger

	maxAttempts int
	locale      string
	exclude     []string

	mu    sync.Mutex
	stops map[int64]bool
}

// New wires an Indexer from its collaborators. The analyzer and
// embedder may be nil; entities then get fallback analysis records and
// no embeddings.
func New(st *store.Store, vectors *store.VectorStore, analyzer llm.Analyzer, embedder embeddings.Embedder, log *slog.Logger, opts Options) *Indexer {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{
		store:       st,
		vectors:     vectors,
		analyzer:    analyzer,
		embedder:    embedder,
		log:         log,
		maxAttempts: opts.MaxAttempts,
		locale:      opts.Locale,
		exclude:     opts.Exclude,
		stops:       make(map[int64]bool),
	}
}

// Stop requests a cooperative stop of a running project index. The
// pipeline checks between entities; the entity in flight still commits.
func (ix *Indexer) Stop(projectID int64) {
	ix.mu.Lock()
	ix.stops[projectID] = true
	ix.mu.Unlock()
}

func (ix *Indexer) stopRequested(projectID int64) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.stops[projectID]
}

func (ix *Indexer) clearStop(projectID int64) {
	ix.mu.Lock()
	delete(ix.stops, projectID)
	ix.mu.Unlock()
}

// Run indexes one project. With resume set, processing starts at the
// file after the project's last committed file path; otherwise every
// file is visited (unchanged ones are skipped by content hash).
func (ix *Indexer) Run(ctx context.Context, projectID int64, resume bool) error {
	project, err := ix.store.GetProject(projectID)
	if err != nil {
		return err
	}
	if project.IsIndexing {
		return ErrAlreadyIndexing
	}

	ix.clearStop(projectID)
	project.IsIndexing = true
	project.IndexingStatus = store.StatusIndexing
	project.StatusMessage = ""
	if !resume {
		project.LastIndexedFilePath = ""
		project.IndexedFiles = 0
	}
	if err := ix.store.UpdateProject(project); err != nil {
		return err
	}

	runErr := ix.runFiles(ctx, project, resume)

	project, getErr := ix.store.GetProject(projectID)
	if getErr != nil {
		return getErr
	}
	project.IsIndexing = false
	project.CurrentFilePath = ""
	switch {
	case runErr != nil:
		project.IndexingStatus = store.StatusFailed
		project.StatusMessage = runErr.Error()
	case ix.stopRequested(projectID):
		project.IndexingStatus = store.StatusStopped
	default:
		project.IndexingStatus = store.StatusCompleted
	}
	if err := ix.store.UpdateProject(project); err != nil {
		return err
	}
	ix.clearStop(projectID)

	if runErr != nil {
		return runErr
	}
	return ix.finishRun(project)
}

func (ix *Indexer) runFiles(ctx context.Context, project *store.Project, resume bool) error {
	files, err := DiscoverFiles(project.Path, ix.exclude...)
	if err != nil {
		return fmt.Errorf("discover files: %w", err)
	}

	existing := make(map[string]bool, len(files))
	for _, f := range files {
		existing[f] = true
	}
	if _, err := ix.store.DeleteMissingFiles(project.ID, existing); err != nil {
		return fmt.Errorf("prune deleted files: %w", err)
	}

	project.TotalFiles = len(files)
	if err := ix.store.UpdateProject(project); err != nil {
		return err
	}

	for _, rel := range files {
		// Resume starts at the file after the checkpoint, never the
		// checkpoint itself.
		if resume && project.LastIndexedFilePath != "" && rel <= project.LastIndexedFilePath {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if ix.stopRequested(project.ID) {
			ix.log.Info("indexing stopped", "project", project.Name, "file", rel)
			return nil
		}

		project.CurrentFilePath = rel
		if err := ix.store.UpdateProject(project); err != nil {
			return err
		}

		if err := ix.indexFile(ctx, project, rel); err != nil {
			// Store failures halt the run; anything local to the file
			// was already degraded inside indexFile.
			return fmt.Errorf("index %s: %w", rel, err)
		}

		project.IndexedFiles++
		project.LastIndexedFilePath = rel
		if err := ix.store.UpdateProject(project); err != nil {
			return err
		}
	}
	return nil
}

// finishRun resolves dependency edges project-wide, backfills afferent
// coupling counts and any missing fingerprints, then rebuilds the
// project counters from the persisted rows.
func (ix *Indexer) finishRun(project *store.Project) error {
	resolved, err := ix.store.ResolveAllDependencies(project.ID)
	if err != nil {
		return fmt.Errorf("resolve dependencies: %w", err)
	}
	ix.log.Info("dependency edges resolved", "project", project.Name, "count", resolved)

	entities, err := ix.store.ListEntities(project.ID)
	if err != nil {
		return err
	}
	for _, e := range entities {
		n, err := ix.store.CountDependentsOf(e.ID)
		if err != nil {
			return err
		}
		if err := ix.store.SetAfferentCoupling(e.ID, n); err != nil && err != store.ErrNotFound {
			return err
		}
	}

	missing, err := ix.store.ListEntitiesWithoutFingerprint(project.ID)
	if err != nil {
		return err
	}
	for _, e := range missing {
		if err := ix.store.SetFingerprint(e.ID, Fingerprint(e.Code)); err != nil {
			return err
		}
	}

	// Running counters are incremented per file; the authoritative
	// values come from the committed rows.
	if _, err := ix.store.RecountProject(project.ID); err != nil {
		return fmt.Errorf("recount project: %w", err)
	}
	return nil
}

// indexFile processes one file end to end: change detection, entity
// re-extraction and per-entity enrichment. Parse failures degrade to
// the regex fallback inside extraction and never abort the run.
func (ix *Indexer) indexFile(ctx context.Context, project *store.Project, rel string) error {
	absPath := filepath.Join(project.Path, rel)
	hash, source, err := HashFile(absPath)
	if err != nil {
		ix.log.Warn("skipping unreadable file", "file", rel, "error", err)
		return nil
	}

	lang := parser.LanguageFromExtension(filepath.Ext(rel))
	prior, err := ix.store.GetFileByPath(project.ID, rel)
	if err == nil && prior.ContentHash == hash {
		// Unchanged content keeps its committed entities.
		return nil
	}
	if err != nil && err != store.ErrNotFound {
		return err
	}

	file := &store.File{ProjectID: project.ID, Path: rel, ContentHash: hash, Language: string(lang)}
	if err := ix.store.UpsertFile(file); err != nil {
		return err
	}
	if prior != nil {
		removed, err := ix.deleteFileEntities(prior.ID)
		if err != nil {
			return err
		}
		project.TotalEntities -= removed
		if project.TotalEntities < 0 {
			project.TotalEntities = 0
		}
	}

	entities, err := extract.File(source, lang, rel)
	if err != nil {
		ix.log.Warn("extraction failed", "file", rel, "error", err)
		return nil
	}
	entities = OrderEntities(entities)

	rows := make([]*store.Entity, len(entities))
	for i, e := range entities {
		rows[i] = &store.Entity{
			ProjectID:  project.ID,
			FileID:     file.ID,
			Name:       e.Name,
			FQN:        e.FQN,
			EntityType: string(e.Kind),
			Visibility: string(e.Visibility),
			Language:   string(e.Language),
			StartLine:  e.StartLine,
			EndLine:    e.EndLine,
			Code:       e.Code,
			Comment:    e.Comment,
		}
	}
	if err := ix.store.CreateEntitiesBulk(rows); err != nil {
		return err
	}
	project.TotalEntities += len(rows)

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ix.stopRequested(project.ID) {
			return nil
		}
		if err := ix.processEntity(ctx, project, row, entities[i]); err != nil {
			return err
		}
	}
	return nil
}

// deleteFileEntities removes a file's entities along with their vector
// store entries. Vector deletion is best-effort; the relational delete
// is the source of truth.
func (ix *Indexer) deleteFileEntities(fileID int64) (int, error) {
	ids, err := ix.store.DeleteEntities(store.EntitySelector{FileID: fileID})
	if err != nil {
		return 0, err
	}
	if ix.vectors != nil {
		for _, id := range ids {
			if err := ix.vectors.DeleteByEntity(id); err != nil {
				ix.log.Warn("vector cleanup failed", "entity", id, "error", err)
			}
		}
	}
	return len(ids), nil
}
