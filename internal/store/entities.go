package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const entityColumns = `id, project_id, file_id, name, fqn, entity_type, visibility,
	language, start_line, end_line, code, comment, created_at, updated_at`

// CreateEntity inserts a single entity and fills its ID.
func (s *Store) CreateEntity(e *Entity) error {
	if e.Visibility == "" {
		e.Visibility = "public"
	}
	now := time.Now().UTC()
	res, err := s.db.Exec(`
		INSERT INTO entities (project_id, file_id, name, fqn, entity_type, visibility,
			language, start_line, end_line, code, comment, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ProjectID, e.FileID, e.Name, e.FQN, e.EntityType, e.Visibility,
		e.Language, e.StartLine, e.EndLine, e.Code, e.Comment, now, now)
	if err != nil {
		return fmt.Errorf("create entity %s: %w", e.FQN, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("entity insert id: %w", err)
	}
	e.ID = id
	e.CreatedAt = now
	e.UpdatedAt = now
	return nil
}

// CreateEntitiesBulk inserts entities in a single transaction, filling
// each ID. Much faster than calling CreateEntity repeatedly.
func (s *Store) CreateEntitiesBulk(entities []*Entity) error {
	if len(entities) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO entities (project_id, file_id, name, fqn, entity_type, visibility,
			language, start_line, end_line, code, comment, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare statement: %w", err)
	}

	now := time.Now().UTC()
	for i, e := range entities {
		if e.Visibility == "" {
			e.Visibility = "public"
		}
		res, err := stmt.Exec(
			e.ProjectID, e.FileID, e.Name, e.FQN, e.EntityType, e.Visibility,
			e.Language, e.StartLine, e.EndLine, e.Code, e.Comment, now, now)
		if err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("insert entity %d (%s): %w", i, e.FQN, err)
		}
		if id, err := res.LastInsertId(); err == nil {
			e.ID = id
		}
		e.CreatedAt = now
		e.UpdatedAt = now
	}

	stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction (%d entities): %w", len(entities), err)
	}
	return nil
}

// GetEntity retrieves an entity by ID.
func (s *Store) GetEntity(id int64) (*Entity, error) {
	row := s.db.QueryRow(`SELECT `+entityColumns+` FROM entities WHERE id = ?`, id)
	return scanEntity(row)
}

// GetEntityByFQN retrieves the entity with an exact fully qualified
// name inside a project.
func (s *Store) GetEntityByFQN(projectID int64, fqn string) (*Entity, error) {
	row := s.db.QueryRow(`SELECT `+entityColumns+` FROM entities
		WHERE project_id = ? AND fqn = ? LIMIT 1`, projectID, fqn)
	return scanEntity(row)
}

// FindEntitiesByName returns all entities with the given short name in
// a project.
func (s *Store) FindEntitiesByName(projectID int64, name string) ([]*Entity, error) {
	rows, err := s.db.Query(`SELECT `+entityColumns+` FROM entities
		WHERE project_id = ? AND name = ? ORDER BY id`, projectID, name)
	if err != nil {
		return nil, fmt.Errorf("find entities by name: %w", err)
	}
	defer rows.Close()
	return collectEntities(rows)
}

// ListEntitiesByFile returns a file's entities in source order.
func (s *Store) ListEntitiesByFile(fileID int64) ([]*Entity, error) {
	rows, err := s.db.Query(`SELECT `+entityColumns+` FROM entities
		WHERE file_id = ? ORDER BY start_line, id`, fileID)
	if err != nil {
		return nil, fmt.Errorf("list entities by file: %w", err)
	}
	defer rows.Close()
	return collectEntities(rows)
}

// ListEntities returns all entities in a project ordered by FQN.
func (s *Store) ListEntities(projectID int64) ([]*Entity, error) {
	rows, err := s.db.Query(`SELECT `+entityColumns+` FROM entities
		WHERE project_id = ? ORDER BY fqn, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()
	return collectEntities(rows)
}

// EntitySelector chooses which entities DeleteEntities removes. The
// most specific populated field wins: explicit ids, then file, then
// project; All selects every entity in the store.
type EntitySelector struct {
	ProjectID int64
	FileID    int64
	EntityIDs []int64
	All       bool
}

// DeleteEntities removes the selected entities and returns the ids of
// the deleted rows, so vector cleanup can follow best-effort. Analysis
// and dependency rows cascade.
func (s *Store) DeleteEntities(sel EntitySelector) ([]int64, error) {
	var where string
	var args []interface{}
	switch {
	case len(sel.EntityIDs) > 0:
		where = `id IN (` + strings.TrimSuffix(strings.Repeat("?,", len(sel.EntityIDs)), ",") + `)`
		for _, id := range sel.EntityIDs {
			args = append(args, id)
		}
	case sel.FileID > 0:
		where = `file_id = ?`
		args = append(args, sel.FileID)
	case sel.ProjectID > 0:
		where = `project_id = ?`
		args = append(args, sel.ProjectID)
	case sel.All:
		where = `1 = 1`
	default:
		return nil, fmt.Errorf("delete entities: empty selector")
	}

	rows, err := s.db.Query(`SELECT id FROM entities WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("select entities for delete: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if _, err := s.db.Exec(`DELETE FROM entities WHERE `+where, args...); err != nil {
		return nil, fmt.Errorf("delete entities: %w", err)
	}
	return ids, nil
}

// CountEntities returns the number of entities in a project.
func (s *Store) CountEntities(projectID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM entities WHERE project_id = ?`, projectID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count entities: %w", err)
	}
	return n, nil
}

// QueryRecords runs a structured query over entities joined with their
// analysis.
func (s *Store) QueryRecords(f RecordFilter) ([]*Record, error) {
	query := `SELECT ` + prefixColumns("e", entityColumns) + `, ` + prefixColumns("a", analysisColumns) + `
		FROM entities e
		LEFT JOIN analysis a ON a.entity_id = e.id
		WHERE e.project_id = ?`
	args := []any{f.ProjectID}

	if len(f.EntityTypes) > 0 {
		query += " AND e.entity_type IN (" + placeholders(len(f.EntityTypes)) + ")"
		for _, t := range f.EntityTypes {
			args = append(args, t)
		}
	}
	if len(f.MVCRoles) > 0 {
		query += " AND a.mvc_role IN (" + placeholders(len(f.MVCRoles)) + ")"
		for _, r := range f.MVCRoles {
			args = append(args, r)
		}
	}
	if len(f.DDDRoles) > 0 {
		query += " AND a.ddd_role IN (" + placeholders(len(f.DDDRoles)) + ")"
		for _, r := range f.DDDRoles {
			args = append(args, r)
		}
	}
	if f.MinComplexityRank > 0 {
		query += " AND a.complexity_numeric >= ?"
		args = append(args, f.MinComplexityRank)
	}
	if f.MaxComplexityRank > 0 {
		query += " AND a.complexity_numeric <= ?"
		args = append(args, f.MaxComplexityRank)
	}
	if f.SOLIDViolation != "" {
		query += " AND a.solid_violations LIKE ?"
		args = append(args, "%"+f.SOLIDViolation+"%")
	}
	if f.MinTestability > 0 {
		query += " AND a.testability_score >= ?"
		args = append(args, f.MinTestability)
	}
	if f.DesignPattern != "" {
		query += " AND a.design_patterns LIKE ?"
		args = append(args, "%"+f.DesignPattern+"%")
	}
	if f.NameLike != "" {
		query += " AND e.name LIKE ?"
		args = append(args, f.NameLike)
	}
	if f.FQNLike != "" {
		query += " AND e.fqn LIKE ?"
		args = append(args, f.FQNLike)
	}
	if f.OnlyFailed {
		// Failed means the fallback sentinel or no analysis at all.
		query += " AND (a.description = ? OR a.id IS NULL)"
		args = append(args, FallbackDescription)
	}

	query += " ORDER BY e.id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetRecord returns one entity with its analysis.
func (s *Store) GetRecord(entityID int64) (*Record, error) {
	row := s.db.QueryRow(`SELECT `+prefixColumns("e", entityColumns)+`, `+
		prefixColumns("a", analysisColumns)+`
		FROM entities e
		LEFT JOIN analysis a ON a.entity_id = e.id
		WHERE e.id = ?`, entityID)
	return scanRecord(row)
}

func scanEntity(row rowScanner) (*Entity, error) {
	var e Entity
	var code, comment sql.NullString
	err := row.Scan(
		&e.ID, &e.ProjectID, &e.FileID, &e.Name, &e.FQN, &e.EntityType, &e.Visibility,
		&e.Language, &e.StartLine, &e.EndLine, &code, &comment, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan entity: %w", err)
	}
	e.Code = code.String
	e.Comment = comment.String
	return &e, nil
}

func collectEntities(rows *sql.Rows) ([]*Entity, error) {
	var entities []*Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// prefixColumns rewrites "a, b" into "t.a, t.b" for joined selects.
func prefixColumns(table, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = table + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
