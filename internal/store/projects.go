package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const projectColumns = `id, name, path, locale, is_indexing, indexing_task_id,
	last_indexed_file_path, current_file_path, indexing_status, status_message,
	total_files, indexed_files, total_entities, tokens_used,
	is_reindexing_failed, failed_entities_count, reindexed_failed_count,
	reindexing_failed_status, created_at, updated_at`

// CreateProject inserts a project and fills its ID.
func (s *Store) CreateProject(p *Project) error {
	if p.Locale == "" {
		p.Locale = "en"
	}
	if p.IndexingStatus == "" {
		p.IndexingStatus = StatusIdle
	}
	now := time.Now().UTC()
	res, err := s.db.Exec(`
		INSERT INTO projects (name, path, locale, indexing_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name, p.Path, p.Locale, p.IndexingStatus, now, now)
	if err != nil {
		return fmt.Errorf("create project %s: %w", p.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("project insert id: %w", err)
	}
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// GetProject retrieves a project by ID.
func (s *Store) GetProject(id int64) (*Project, error) {
	row := s.db.QueryRow(`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

// GetProjectByName retrieves a project by its unique name.
func (s *Store) GetProjectByName(name string) (*Project, error) {
	row := s.db.QueryRow(`SELECT `+projectColumns+` FROM projects WHERE name = ?`, name)
	return scanProject(row)
}

// ListProjects returns all projects ordered by name.
func (s *Store) ListProjects() ([]*Project, error) {
	rows, err := s.db.Query(`SELECT ` + projectColumns + ` FROM projects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProject persists the mutable project fields.
func (s *Store) UpdateProject(p *Project) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		UPDATE projects SET
			path = ?, locale = ?, is_indexing = ?, indexing_task_id = ?,
			last_indexed_file_path = ?, current_file_path = ?, indexing_status = ?,
			status_message = ?, total_files = ?, indexed_files = ?, total_entities = ?,
			tokens_used = ?, is_reindexing_failed = ?, failed_entities_count = ?,
			reindexed_failed_count = ?, reindexing_failed_status = ?, updated_at = ?
		WHERE id = ?`,
		p.Path, p.Locale, p.IsIndexing, p.IndexingTaskID,
		p.LastIndexedFilePath, p.CurrentFilePath, p.IndexingStatus,
		p.StatusMessage, p.TotalFiles, p.IndexedFiles, p.TotalEntities,
		p.TokensUsed, p.IsReindexingFailed, p.FailedEntitiesCount,
		p.ReindexedFailedCount, p.ReindexingFailedStatus, now,
		p.ID)
	if err != nil {
		return fmt.Errorf("update project %d: %w", p.ID, err)
	}
	p.UpdatedAt = now
	return nil
}

// RecountProject rebuilds a project's derived counters from the
// persisted file, entity and analysis rows, repairing drift left by an
// interrupted run. Returns the corrected project.
func (s *Store) RecountProject(id int64) (*Project, error) {
	p, err := s.GetProject(id)
	if err != nil {
		return nil, err
	}

	entities, err := s.CountEntities(id)
	if err != nil {
		return nil, err
	}
	var files int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM files WHERE project_id = ?`, id).Scan(&files); err != nil {
		return nil, fmt.Errorf("count files for project %d: %w", id, err)
	}
	failed, err := s.CountFailedAnalyses(id)
	if err != nil {
		return nil, err
	}

	p.TotalEntities = entities
	p.IndexedFiles = files
	p.FailedEntitiesCount = failed
	if p.TotalFiles < files {
		p.TotalFiles = files
	}
	if err := s.UpdateProject(p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProject removes a project; files, entities, analysis and
// dependency rows cascade.
func (s *Store) DeleteProject(id int64) error {
	res, err := s.db.Exec(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddTokensUsed adds to the project's running token counter.
func (s *Store) AddTokensUsed(projectID int64, tokens int) error {
	_, err := s.db.Exec(`
		UPDATE projects SET tokens_used = tokens_used + ?, updated_at = ? WHERE id = ?`,
		tokens, time.Now().UTC(), projectID)
	if err != nil {
		return fmt.Errorf("add tokens for project %d: %w", projectID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	var p Project
	var statusMessage sql.NullString
	err := row.Scan(
		&p.ID, &p.Name, &p.Path, &p.Locale, &p.IsIndexing, &p.IndexingTaskID,
		&p.LastIndexedFilePath, &p.CurrentFilePath, &p.IndexingStatus, &statusMessage,
		&p.TotalFiles, &p.IndexedFiles, &p.TotalEntities, &p.TokensUsed,
		&p.IsReindexingFailed, &p.FailedEntitiesCount, &p.ReindexedFailedCount,
		&p.ReindexingFailedStatus, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}
	p.StatusMessage = statusMessage.String
	return &p, nil
}
