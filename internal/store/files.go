package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertFile inserts the file or refreshes its hash, returning the row
// with its ID filled.
func (s *Store) UpsertFile(f *File) error {
	now := time.Now().UTC()
	existing, err := s.GetFileByPath(f.ProjectID, f.Path)
	switch {
	case errors.Is(err, ErrNotFound):
		res, err := s.db.Exec(`
			INSERT INTO files (project_id, path, content_hash, language, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			f.ProjectID, f.Path, f.ContentHash, f.Language, now, now)
		if err != nil {
			return fmt.Errorf("insert file %s: %w", f.Path, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("file insert id: %w", err)
		}
		f.ID = id
		f.CreatedAt = now
	case err != nil:
		return err
	default:
		_, err := s.db.Exec(`
			UPDATE files SET content_hash = ?, language = ?, updated_at = ? WHERE id = ?`,
			f.ContentHash, f.Language, now, existing.ID)
		if err != nil {
			return fmt.Errorf("update file %s: %w", f.Path, err)
		}
		f.ID = existing.ID
		f.CreatedAt = existing.CreatedAt
	}
	f.UpdatedAt = now
	return nil
}

// GetFileByPath retrieves a file row by project and path.
func (s *Store) GetFileByPath(projectID int64, path string) (*File, error) {
	var f File
	err := s.db.QueryRow(`
		SELECT id, project_id, path, content_hash, language, created_at, updated_at
		FROM files WHERE project_id = ? AND path = ?`, projectID, path).Scan(
		&f.ID, &f.ProjectID, &f.Path, &f.ContentHash, &f.Language, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", path, err)
	}
	return &f, nil
}

// ListFiles returns the project's files ordered by path, the order the
// pipeline indexes them in.
func (s *Store) ListFiles(projectID int64) ([]*File, error) {
	rows, err := s.db.Query(`
		SELECT id, project_id, path, content_hash, language, created_at, updated_at
		FROM files WHERE project_id = ? ORDER BY path`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []*File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Path, &f.ContentHash, &f.Language,
			&f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, &f)
	}
	return files, rows.Err()
}

// DeleteFile removes a file row; its entities cascade away with it.
func (s *Store) DeleteFile(id int64) error {
	_, err := s.db.Exec(`DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete file %d: %w", id, err)
	}
	return nil
}

// DeleteMissingFiles removes file rows whose paths are no longer on
// disk, returning how many were dropped.
func (s *Store) DeleteMissingFiles(projectID int64, existing map[string]bool) (int, error) {
	files, err := s.ListFiles(projectID)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, f := range files {
		if existing[f.Path] {
			continue
		}
		if err := s.DeleteFile(f.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
