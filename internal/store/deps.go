package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// CreateDependenciesBulk inserts dependency edges in one transaction.
func (s *Store) CreateDependenciesBulk(deps []*Dependency) error {
	if len(deps) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO dependencies (entity_id, depends_on_entity_id, depends_on_name, dep_type, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare statement: %w", err)
	}

	now := time.Now().UTC()
	for i, d := range deps {
		if _, err := stmt.Exec(d.EntityID, d.DependsOnID, d.DependsOnName, d.DepType, now); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("insert dependency %d (%s): %w", i, d.DependsOnName, err)
		}
	}

	stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction (%d dependencies): %w", len(deps), err)
	}
	return nil
}

// GetDependenciesOf returns an entity's outgoing edges.
func (s *Store) GetDependenciesOf(entityID int64) ([]*Dependency, error) {
	rows, err := s.db.Query(`
		SELECT id, entity_id, depends_on_entity_id, depends_on_name, dep_type, created_at
		FROM dependencies WHERE entity_id = ? ORDER BY id`, entityID)
	if err != nil {
		return nil, fmt.Errorf("get dependencies of %d: %w", entityID, err)
	}
	defer rows.Close()
	return collectDependencies(rows)
}

// GetDependentsOf returns edges pointing at an entity.
func (s *Store) GetDependentsOf(entityID int64) ([]*Dependency, error) {
	rows, err := s.db.Query(`
		SELECT id, entity_id, depends_on_entity_id, depends_on_name, dep_type, created_at
		FROM dependencies WHERE depends_on_entity_id = ? ORDER BY id`, entityID)
	if err != nil {
		return nil, fmt.Errorf("get dependents of %d: %w", entityID, err)
	}
	defer rows.Close()
	return collectDependencies(rows)
}

// CountDependentsOf counts resolved incoming edges, the afferent
// coupling of an entity.
func (s *Store) CountDependentsOf(entityID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM dependencies WHERE depends_on_entity_id = ?`, entityID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count dependents of %d: %w", entityID, err)
	}
	return n, nil
}

// DeleteDependenciesOf removes every outgoing edge of an entity.
func (s *Store) DeleteDependenciesOf(entityID int64) error {
	if _, err := s.db.Exec(`DELETE FROM dependencies WHERE entity_id = ?`, entityID); err != nil {
		return fmt.Errorf("delete dependencies of %d: %w", entityID, err)
	}
	return nil
}

// FindDependents returns entities in a project that carry a dependency
// edge onto any of the target entity ids or any name pattern. Pattern
// matching is a LIKE over the stored dependency name.
func (s *Store) FindDependents(projectID int64, targetIDs []int64, namePatterns []string, entityTypes []string, limit int) ([]*Record, error) {
	if len(targetIDs) == 0 && len(namePatterns) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT DISTINCT ` + prefixColumns("e", entityColumns) + `, ` + prefixColumns("a", analysisColumns) + `
		FROM entities e
		JOIN dependencies d ON d.entity_id = e.id
		LEFT JOIN analysis a ON a.entity_id = e.id
		WHERE e.project_id = ?`
	args := []any{projectID}

	if len(entityTypes) > 0 {
		query += " AND e.entity_type IN (" + placeholders(len(entityTypes)) + ")"
		for _, t := range entityTypes {
			args = append(args, t)
		}
	}

	var conds []string
	if len(targetIDs) > 0 {
		conds = append(conds, "d.depends_on_entity_id IN ("+placeholders(len(targetIDs))+")")
		for _, id := range targetIDs {
			args = append(args, id)
		}
	}
	for _, pattern := range namePatterns {
		conds = append(conds, "d.depends_on_name LIKE ?")
		args = append(args, "%"+pattern+"%")
	}
	query += " AND (" + strings.Join(conds, " OR ") + ")"
	query += fmt.Sprintf(" ORDER BY e.id LIMIT %d", limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("find dependents: %w", err)
	}
	defer rows.Close()

	var records []*Record
	seen := map[int64]bool{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if seen[r.Entity.ID] {
			continue
		}
		seen[r.Entity.ID] = true
		records = append(records, r)
	}
	return records, rows.Err()
}

// ResolveDependency finds the entity a recorded name points at inside
// a project. Resolution prefers an exact FQN match, then a name match
// on classes, then any entity with the name. The method-name tail of a
// qualified call is tried when the full name resolves nothing.
func (s *Store) ResolveDependency(projectID int64, name string) (*Entity, error) {
	if e, err := s.GetEntityByFQN(projectID, name); err == nil {
		return e, nil
	} else if err != ErrNotFound {
		return nil, err
	}

	candidates := []string{name}
	if i := strings.LastIndexAny(name, ".\\"); i >= 0 && i+1 < len(name) {
		candidates = append(candidates, name[i+1:])
	}

	for _, candidate := range candidates {
		entities, err := s.FindEntitiesByName(projectID, candidate)
		if err != nil {
			return nil, err
		}
		if len(entities) == 0 {
			continue
		}
		for _, e := range entities {
			if e.EntityType == "class" {
				return e, nil
			}
		}
		return entities[0], nil
	}
	return nil, ErrNotFound
}

// ResolveAllDependencies links every unresolved edge in a project whose
// name matches a known entity. Returns how many edges were linked.
func (s *Store) ResolveAllDependencies(projectID int64) (int, error) {
	rows, err := s.db.Query(`
		SELECT d.id, d.depends_on_name
		FROM dependencies d
		JOIN entities e ON e.id = d.entity_id
		WHERE e.project_id = ? AND d.depends_on_entity_id IS NULL`, projectID)
	if err != nil {
		return 0, fmt.Errorf("list unresolved dependencies: %w", err)
	}

	type edge struct {
		id   int64
		name string
	}
	var unresolved []edge
	for rows.Next() {
		var e edge
		if err := rows.Scan(&e.id, &e.name); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan unresolved dependency: %w", err)
		}
		unresolved = append(unresolved, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	resolved := 0
	for _, edge := range unresolved {
		target, err := s.ResolveDependency(projectID, edge.name)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return resolved, err
		}
		if _, err := s.db.Exec(`
			UPDATE dependencies SET depends_on_entity_id = ? WHERE id = ?`,
			target.ID, edge.id); err != nil {
			return resolved, fmt.Errorf("link dependency %d: %w", edge.id, err)
		}
		resolved++
	}
	return resolved, nil
}

func collectDependencies(rows *sql.Rows) ([]*Dependency, error) {
	var deps []*Dependency
	for rows.Next() {
		var d Dependency
		var target sql.NullInt64
		if err := rows.Scan(&d.ID, &d.EntityID, &target, &d.DependsOnName, &d.DepType, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		if target.Valid {
			v := target.Int64
			d.DependsOnID = &v
		}
		deps = append(deps, &d)
	}
	return deps, rows.Err()
}
