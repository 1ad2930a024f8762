package store

// schemaStatements defines the MySQL-dialect schema for the ragdoll
// database. Deleting a project cascades to its files, deleting a file
// cascades to its entities, and deleting an entity cascades to its
// analysis and outgoing dependencies. Incoming dependency edges fall
// back to the recorded name when their target entity disappears.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id INT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		path VARCHAR(1024) NOT NULL,
		locale VARCHAR(8) NOT NULL DEFAULT 'en',
		is_indexing BOOLEAN NOT NULL DEFAULT FALSE,
		indexing_task_id VARCHAR(64) NOT NULL DEFAULT '',
		last_indexed_file_path VARCHAR(1024) NOT NULL DEFAULT '',
		current_file_path VARCHAR(1024) NOT NULL DEFAULT '',
		indexing_status VARCHAR(32) NOT NULL DEFAULT 'idle',
		status_message TEXT,
		total_files INT NOT NULL DEFAULT 0,
		indexed_files INT NOT NULL DEFAULT 0,
		total_entities INT NOT NULL DEFAULT 0,
		tokens_used BIGINT NOT NULL DEFAULT 0,
		is_reindexing_failed BOOLEAN NOT NULL DEFAULT FALSE,
		failed_entities_count INT NOT NULL DEFAULT 0,
		reindexed_failed_count INT NOT NULL DEFAULT 0,
		reindexing_failed_status VARCHAR(32) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS files (
		id INT AUTO_INCREMENT PRIMARY KEY,
		project_id INT NOT NULL,
		path VARCHAR(1024) NOT NULL,
		content_hash CHAR(64) NOT NULL,
		language VARCHAR(16) NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE KEY uniq_project_path (project_id, path(255)),
		CONSTRAINT fk_files_project FOREIGN KEY (project_id)
			REFERENCES projects(id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS entities (
		id INT AUTO_INCREMENT PRIMARY KEY,
		project_id INT NOT NULL,
		file_id INT NOT NULL,
		name VARCHAR(255) NOT NULL,
		fqn VARCHAR(512) NOT NULL,
		entity_type VARCHAR(16) NOT NULL,
		visibility VARCHAR(16) NOT NULL DEFAULT 'public',
		language VARCHAR(16) NOT NULL,
		start_line INT NOT NULL,
		end_line INT NOT NULL,
		code LONGTEXT,
		comment TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		KEY idx_entities_project (project_id),
		KEY idx_entities_file (file_id),
		KEY idx_entities_name (name),
		KEY idx_entities_fqn (fqn),
		KEY idx_entities_type (entity_type),
		FULLTEXT KEY fts_entities (name, fqn, comment),
		CONSTRAINT fk_entities_file FOREIGN KEY (file_id)
			REFERENCES files(id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS analysis (
		id INT AUTO_INCREMENT PRIMARY KEY,
		entity_id INT NOT NULL UNIQUE,
		description TEXT,
		complexity VARCHAR(16) NOT NULL DEFAULT 'O(1)',
		complexity_numeric INT NOT NULL DEFAULT 1,
		complexity_explanation TEXT,
		solid_violations TEXT,
		design_patterns TEXT,
		ddd_role VARCHAR(32) NOT NULL DEFAULT '',
		mvc_role VARCHAR(32) NOT NULL DEFAULT '',
		is_testable BOOLEAN NOT NULL DEFAULT TRUE,
		testability_score DOUBLE NOT NULL DEFAULT 0,
		testability_issues TEXT,
		code_fingerprint LONGTEXT,
		embedding_id VARCHAR(64) NOT NULL DEFAULT '',
		keywords TEXT,
		lines_of_code INT NOT NULL DEFAULT 0,
		cyclomatic_complexity INT NOT NULL DEFAULT 1,
		cognitive_complexity INT NOT NULL DEFAULT 0,
		max_nesting_depth INT NOT NULL DEFAULT 0,
		parameter_count INT NOT NULL DEFAULT 0,
		coupling_score DOUBLE NOT NULL DEFAULT 0,
		cohesion_score DOUBLE NOT NULL DEFAULT 0,
		afferent_coupling INT NOT NULL DEFAULT 0,
		efferent_coupling INT NOT NULL DEFAULT 0,
		n_plus_one_queries TEXT,
		space_complexity VARCHAR(16) NOT NULL DEFAULT 'O(1)',
		hot_path_detected BOOLEAN NOT NULL DEFAULT FALSE,
		security_issues TEXT,
		hardcoded_secrets TEXT,
		insecure_dependencies TEXT,
		is_god_object BOOLEAN NOT NULL DEFAULT FALSE,
		feature_envy_score DOUBLE NOT NULL DEFAULT 0,
		data_clumps TEXT,
		long_parameter_list BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		KEY idx_analysis_mvc (mvc_role),
		KEY idx_analysis_ddd (ddd_role),
		KEY idx_analysis_complexity (complexity_numeric),
		FULLTEXT KEY fts_analysis (description, keywords),
		CONSTRAINT fk_analysis_entity FOREIGN KEY (entity_id)
			REFERENCES entities(id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS dependencies (
		id INT AUTO_INCREMENT PRIMARY KEY,
		entity_id INT NOT NULL,
		depends_on_entity_id INT,
		depends_on_name VARCHAR(512) NOT NULL,
		dep_type VARCHAR(16) NOT NULL,
		created_at DATETIME NOT NULL,
		KEY idx_deps_entity (entity_id),
		KEY idx_deps_target (depends_on_entity_id),
		KEY idx_deps_name (depends_on_name),
		CONSTRAINT fk_deps_entity FOREIGN KEY (entity_id)
			REFERENCES entities(id) ON DELETE CASCADE,
		CONSTRAINT fk_deps_target FOREIGN KEY (depends_on_entity_id)
			REFERENCES entities(id) ON DELETE SET NULL
	)`,
}

func (s *Store) initSchema() error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
