package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const analysisColumns = `id, entity_id, description, complexity, complexity_numeric,
	complexity_explanation, solid_violations, design_patterns, ddd_role, mvc_role,
	is_testable, testability_score, testability_issues, code_fingerprint, embedding_id,
	keywords, lines_of_code, cyclomatic_complexity, cognitive_complexity,
	max_nesting_depth, parameter_count, coupling_score, cohesion_score,
	afferent_coupling, efferent_coupling, n_plus_one_queries, space_complexity,
	hot_path_detected, security_issues, hardcoded_secrets, insecure_dependencies,
	is_god_object, feature_envy_score, data_clumps, long_parameter_list,
	created_at, updated_at`

// UpsertAnalysis writes the analysis record for an entity, replacing
// any previous one.
func (s *Store) UpsertAnalysis(a *Analysis) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO analysis (entity_id, description, complexity, complexity_numeric,
			complexity_explanation, solid_violations, design_patterns, ddd_role, mvc_role,
			is_testable, testability_score, testability_issues, code_fingerprint, embedding_id,
			keywords, lines_of_code, cyclomatic_complexity, cognitive_complexity,
			max_nesting_depth, parameter_count, coupling_score, cohesion_score,
			afferent_coupling, efferent_coupling, n_plus_one_queries, space_complexity,
			hot_path_detected, security_issues, hardcoded_secrets, insecure_dependencies,
			is_god_object, feature_envy_score, data_clumps, long_parameter_list,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			description = VALUES(description),
			complexity = VALUES(complexity),
			complexity_numeric = VALUES(complexity_numeric),
			complexity_explanation = VALUES(complexity_explanation),
			solid_violations = VALUES(solid_violations),
			design_patterns = VALUES(design_patterns),
			ddd_role = VALUES(ddd_role),
			mvc_role = VALUES(mvc_role),
			is_testable = VALUES(is_testable),
			testability_score = VALUES(testability_score),
			testability_issues = VALUES(testability_issues),
			code_fingerprint = VALUES(code_fingerprint),
			embedding_id = VALUES(embedding_id),
			keywords = VALUES(keywords),
			lines_of_code = VALUES(lines_of_code),
			cyclomatic_complexity = VALUES(cyclomatic_complexity),
			cognitive_complexity = VALUES(cognitive_complexity),
			max_nesting_depth = VALUES(max_nesting_depth),
			parameter_count = VALUES(parameter_count),
			coupling_score = VALUES(coupling_score),
			cohesion_score = VALUES(cohesion_score),
			afferent_coupling = VALUES(afferent_coupling),
			efferent_coupling = VALUES(efferent_coupling),
			n_plus_one_queries = VALUES(n_plus_one_queries),
			space_complexity = VALUES(space_complexity),
			hot_path_detected = VALUES(hot_path_detected),
			security_issues = VALUES(security_issues),
			hardcoded_secrets = VALUES(hardcoded_secrets),
			insecure_dependencies = VALUES(insecure_dependencies),
			is_god_object = VALUES(is_god_object),
			feature_envy_score = VALUES(feature_envy_score),
			data_clumps = VALUES(data_clumps),
			long_parameter_list = VALUES(long_parameter_list),
			updated_at = VALUES(updated_at)`,
		a.EntityID, a.Description, a.Complexity, a.ComplexityNumeric,
		a.ComplexityExplanation, toJSONList(a.SOLIDViolations), toJSONList(a.DesignPatterns),
		a.DDDRole, a.MVCRole,
		a.IsTestable, a.TestabilityScore, toJSONList(a.TestabilityIssues),
		a.CodeFingerprint, a.EmbeddingID,
		a.Keywords, a.LinesOfCode, a.CyclomaticComplexity, a.CognitiveComplexity,
		a.MaxNestingDepth, a.ParameterCount, a.CouplingScore, a.CohesionScore,
		a.AfferentCoupling, a.EfferentCoupling, a.NPlusOneQueries, a.SpaceComplexity,
		a.HotPathDetected, a.SecurityIssues, a.HardcodedSecrets, a.InsecureDependencies,
		a.IsGodObject, a.FeatureEnvyScore, a.DataClumps, a.LongParameterList,
		now, now)
	if err != nil {
		return fmt.Errorf("upsert analysis for entity %d: %w", a.EntityID, err)
	}
	a.UpdatedAt = now
	return nil
}

// GetAnalysis retrieves the analysis record for an entity.
func (s *Store) GetAnalysis(entityID int64) (*Analysis, error) {
	row := s.db.QueryRow(`SELECT `+analysisColumns+` FROM analysis WHERE entity_id = ?`, entityID)
	a, ok, err := scanAnalysis(row)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

// SetEmbeddingID records the vector-store id for an entity's analysis.
func (s *Store) SetEmbeddingID(entityID int64, embeddingID string) error {
	_, err := s.db.Exec(`
		UPDATE analysis SET embedding_id = ?, updated_at = ? WHERE entity_id = ?`,
		embeddingID, time.Now().UTC(), entityID)
	if err != nil {
		return fmt.Errorf("set embedding id for entity %d: %w", entityID, err)
	}
	return nil
}

// SetFingerprint backfills the normalized fingerprint for an entity.
func (s *Store) SetFingerprint(entityID int64, fingerprint string) error {
	_, err := s.db.Exec(`
		UPDATE analysis SET code_fingerprint = ?, updated_at = ? WHERE entity_id = ?`,
		fingerprint, time.Now().UTC(), entityID)
	if err != nil {
		return fmt.Errorf("set fingerprint for entity %d: %w", entityID, err)
	}
	return nil
}

// SetAfferentCoupling updates the incoming-edge count once dependency
// resolution for the project has settled.
func (s *Store) SetAfferentCoupling(entityID int64, count int) error {
	_, err := s.db.Exec(`
		UPDATE analysis SET afferent_coupling = ?, updated_at = ? WHERE entity_id = ?`,
		count, time.Now().UTC(), entityID)
	if err != nil {
		return fmt.Errorf("set afferent coupling for entity %d: %w", entityID, err)
	}
	return nil
}

// ListEntitiesWithoutFingerprint returns entities whose analysis lacks
// a fingerprint, for the backfill pass.
func (s *Store) ListEntitiesWithoutFingerprint(projectID int64) ([]*Entity, error) {
	rows, err := s.db.Query(`SELECT `+prefixColumns("e", entityColumns)+`
		FROM entities e
		JOIN analysis a ON a.entity_id = e.id
		WHERE e.project_id = ? AND (a.code_fingerprint IS NULL OR a.code_fingerprint = '')
		ORDER BY e.id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list entities without fingerprint: %w", err)
	}
	defer rows.Close()
	return collectEntities(rows)
}

// CountFailedAnalyses counts fallback records in a project.
func (s *Store) CountFailedAnalyses(projectID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM analysis a
		JOIN entities e ON e.id = a.entity_id
		WHERE e.project_id = ? AND a.description = ?`, projectID, FallbackDescription).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count failed analyses: %w", err)
	}
	return n, nil
}

// nullAnalysis holds the LEFT JOIN shape of the analysis columns.
type nullAnalysis struct {
	id                    sql.NullInt64
	entityID              sql.NullInt64
	description           sql.NullString
	complexity            sql.NullString
	complexityNumeric     sql.NullInt64
	complexityExplanation sql.NullString
	solidViolations       sql.NullString
	designPatterns        sql.NullString
	dddRole               sql.NullString
	mvcRole               sql.NullString
	isTestable            sql.NullBool
	testabilityScore      sql.NullFloat64
	testabilityIssues     sql.NullString
	codeFingerprint       sql.NullString
	embeddingID           sql.NullString
	keywords              sql.NullString
	linesOfCode           sql.NullInt64
	cyclomatic            sql.NullInt64
	cognitive             sql.NullInt64
	maxNesting            sql.NullInt64
	parameterCount        sql.NullInt64
	couplingScore         sql.NullFloat64
	cohesionScore         sql.NullFloat64
	afferentCoupling      sql.NullInt64
	efferentCoupling      sql.NullInt64
	nPlusOne              sql.NullString
	spaceComplexity       sql.NullString
	hotPath               sql.NullBool
	securityIssues        sql.NullString
	hardcodedSecrets      sql.NullString
	insecureDeps          sql.NullString
	isGodObject           sql.NullBool
	featureEnvy           sql.NullFloat64
	dataClumps            sql.NullString
	longParameterList     sql.NullBool
	createdAt             sql.NullTime
	updatedAt             sql.NullTime
}

func (n *nullAnalysis) fields() []any {
	return []any{
		&n.id, &n.entityID, &n.description, &n.complexity, &n.complexityNumeric,
		&n.complexityExplanation, &n.solidViolations, &n.designPatterns, &n.dddRole, &n.mvcRole,
		&n.isTestable, &n.testabilityScore, &n.testabilityIssues, &n.codeFingerprint, &n.embeddingID,
		&n.keywords, &n.linesOfCode, &n.cyclomatic, &n.cognitive,
		&n.maxNesting, &n.parameterCount, &n.couplingScore, &n.cohesionScore,
		&n.afferentCoupling, &n.efferentCoupling, &n.nPlusOne, &n.spaceComplexity,
		&n.hotPath, &n.securityIssues, &n.hardcodedSecrets, &n.insecureDeps,
		&n.isGodObject, &n.featureEnvy, &n.dataClumps, &n.longParameterList,
		&n.createdAt, &n.updatedAt,
	}
}

func (n *nullAnalysis) toAnalysis() *Analysis {
	if !n.id.Valid {
		return nil
	}
	return &Analysis{
		ID:                    n.id.Int64,
		EntityID:              n.entityID.Int64,
		Description:           n.description.String,
		Complexity:            n.complexity.String,
		ComplexityNumeric:     int(n.complexityNumeric.Int64),
		ComplexityExplanation: n.complexityExplanation.String,
		SOLIDViolations:       fromJSONList(n.solidViolations.String),
		DesignPatterns:        fromJSONList(n.designPatterns.String),
		DDDRole:               n.dddRole.String,
		MVCRole:               n.mvcRole.String,
		IsTestable:            n.isTestable.Bool,
		TestabilityScore:      n.testabilityScore.Float64,
		TestabilityIssues:     fromJSONList(n.testabilityIssues.String),
		CodeFingerprint:       n.codeFingerprint.String,
		EmbeddingID:           n.embeddingID.String,
		Keywords:              n.keywords.String,
		LinesOfCode:           int(n.linesOfCode.Int64),
		CyclomaticComplexity:  int(n.cyclomatic.Int64),
		CognitiveComplexity:   int(n.cognitive.Int64),
		MaxNestingDepth:       int(n.maxNesting.Int64),
		ParameterCount:        int(n.parameterCount.Int64),
		CouplingScore:         n.couplingScore.Float64,
		CohesionScore:         n.cohesionScore.Float64,
		AfferentCoupling:      int(n.afferentCoupling.Int64),
		EfferentCoupling:      int(n.efferentCoupling.Int64),
		NPlusOneQueries:       n.nPlusOne.String,
		SpaceComplexity:       n.spaceComplexity.String,
		HotPathDetected:       n.hotPath.Bool,
		SecurityIssues:        n.securityIssues.String,
		HardcodedSecrets:      n.hardcodedSecrets.String,
		InsecureDependencies:  n.insecureDeps.String,
		IsGodObject:           n.isGodObject.Bool,
		FeatureEnvyScore:      n.featureEnvy.Float64,
		DataClumps:            n.dataClumps.String,
		LongParameterList:     n.longParameterList.Bool,
		CreatedAt:             n.createdAt.Time,
		UpdatedAt:             n.updatedAt.Time,
	}
}

func scanAnalysis(row rowScanner) (*Analysis, bool, error) {
	var n nullAnalysis
	err := row.Scan(n.fields()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("scan analysis: %w", err)
	}
	a := n.toAnalysis()
	return a, a != nil, nil
}

func scanRecord(row rowScanner) (*Record, error) {
	var e Entity
	var code, comment sql.NullString
	var n nullAnalysis

	dest := []any{
		&e.ID, &e.ProjectID, &e.FileID, &e.Name, &e.FQN, &e.EntityType, &e.Visibility,
		&e.Language, &e.StartLine, &e.EndLine, &code, &comment, &e.CreatedAt, &e.UpdatedAt,
	}
	dest = append(dest, n.fields()...)

	err := row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}
	e.Code = code.String
	e.Comment = comment.String
	return &Record{Entity: e, Analysis: n.toAnalysis()}, nil
}

func toJSONList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func fromJSONList(text string) []string {
	if text == "" || text == "[]" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil
	}
	return items
}
