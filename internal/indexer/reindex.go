package indexer

import (
	"context"
	"fmt"

	"github.com/zolll23/ragdoll/internal/extract"
	"github.com/zolll23/ragdoll/internal/store"
)

// ReindexFailed reprocesses only the entities whose analysis carries
// the failure sentinel or is missing entirely, without touching
// successfully enriched entities. Progress runs on its own counters so
// a UI can distinguish it from a full index.
func (ix *Indexer) ReindexFailed(ctx context.Context, projectID int64) error {
	project, err := ix.store.GetProject(projectID)
	if err != nil {
		return err
	}
	if project.IsIndexing {
		return ErrAlreadyIndexing
	}

	records, err := ix.store.QueryRecords(store.RecordFilter{ProjectID: projectID, OnlyFailed: true})
	if err != nil {
		return err
	}
	records = dedupRecords(records)

	ix.clearStop(projectID)
	project.IsReindexingFailed = true
	project.FailedEntitiesCount = len(records)
	project.ReindexedFailedCount = 0
	project.ReindexingFailedStatus = store.StatusIndexing
	if err := ix.store.UpdateProject(project); err != nil {
		return err
	}

	runErr := ix.reindexRecords(ctx, project, records)

	project.IsReindexingFailed = false
	switch {
	case runErr != nil:
		project.ReindexingFailedStatus = store.StatusFailed
		project.StatusMessage = runErr.Error()
	case ix.stopRequested(projectID):
		project.ReindexingFailedStatus = store.StatusStopped
	default:
		project.ReindexingFailedStatus = store.StatusCompleted
	}
	if err := ix.store.UpdateProject(project); err != nil {
		return err
	}
	ix.clearStop(projectID)
	return runErr
}

func (ix *Indexer) reindexRecords(ctx context.Context, project *store.Project, records []*store.Record) error {
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ix.stopRequested(project.ID) {
			return nil
		}

		row := rec.Entity
		if err := ix.processEntity(ctx, project, &row, storedEntity(&row)); err != nil {
			return fmt.Errorf("reindex entity %s: %w", row.FQN, err)
		}

		project.ReindexedFailedCount++
		if err := ix.store.UpdateProject(project); err != nil {
			return err
		}
	}
	return nil
}

// ReindexFile re-extracts and re-enriches one file regardless of its
// content hash.
func (ix *Indexer) ReindexFile(ctx context.Context, projectID int64, path string) error {
	project, err := ix.store.GetProject(projectID)
	if err != nil {
		return err
	}
	if project.IsIndexing {
		return ErrAlreadyIndexing
	}

	if file, err := ix.store.GetFileByPath(projectID, path); err == nil {
		// Force the change path by invalidating the stored hash.
		file.ContentHash = ""
		if err := ix.store.UpsertFile(file); err != nil {
			return err
		}
	} else if err != store.ErrNotFound {
		return err
	}
	return ix.indexFile(ctx, project, path)
}

// storedEntity rebuilds the extractor view of a persisted entity row so
// the enrichment path can run on it unchanged.
func storedEntity(row *store.Entity) extract.Entity {
	return extract.Entity{
		Kind:       extract.EntityKind(row.EntityType),
		Name:       row.Name,
		FQN:        row.FQN,
		StartLine:  row.StartLine,
		EndLine:    row.EndLine,
		Visibility: extract.Visibility(row.Visibility),
		Code:       row.Code,
		Comment:    row.Comment,
		Language:   languageOf(row.Language),
	}
}

// dedupRecords drops rows that share a content-shape key, which can
// happen when interrupted runs re-created a logical entity under a new
// id. The first (lowest-id) row wins.
func dedupRecords(records []*store.Record) []*store.Record {
	seen := make(map[string]bool, len(records))
	var out []*store.Record
	for _, rec := range records {
		key := shapeKey(&rec.Entity)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rec)
	}
	return out
}

func shapeKey(e *store.Entity) string {
	if e.EntityType == string(extract.ConstEntity) {
		return fmt.Sprintf("%s|%d|%s", e.Name, e.FileID, e.EntityType)
	}
	return fmt.Sprintf("%s|%d|%d|%d|%s", e.Name, e.FileID, e.StartLine, e.EndLine, e.EntityType)
}
