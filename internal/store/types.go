package store

import "time"

// Indexing state machine values for Project.IndexingStatus.
const (
	StatusIdle      = "idle"
	StatusIndexing  = "indexing"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusStopped   = "stopped"
)

// FallbackDescription marks analysis records produced without the
// semantic provider, after retries were exhausted.
const FallbackDescription = "Analysis failed"

// Project is one indexed codebase.
type Project struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Path   string `json:"path"`
	Locale string `json:"locale"`

	IsIndexing          bool   `json:"is_indexing"`
	IndexingTaskID      string `json:"indexing_task_id,omitempty"`
	LastIndexedFilePath string `json:"last_indexed_file_path,omitempty"`
	CurrentFilePath     string `json:"current_file_path,omitempty"`
	IndexingStatus      string `json:"indexing_status"`
	StatusMessage       string `json:"status_message,omitempty"`

	TotalFiles    int   `json:"total_files"`
	IndexedFiles  int   `json:"indexed_files"`
	TotalEntities int   `json:"total_entities"`
	TokensUsed    int64 `json:"tokens_used"`

	IsReindexingFailed     bool   `json:"is_reindexing_failed"`
	FailedEntitiesCount    int    `json:"failed_entities_count"`
	ReindexedFailedCount   int    `json:"reindexed_failed_count"`
	ReindexingFailedStatus string `json:"reindexing_failed_status,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// File is one indexed source file.
type File struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	Path        string    `json:"path"`
	ContentHash string    `json:"content_hash"`
	Language    string    `json:"language"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Entity is one extracted code entity.
type Entity struct {
	ID         int64     `json:"id"`
	ProjectID  int64     `json:"project_id"`
	FileID     int64     `json:"file_id"`
	Name       string    `json:"name"`
	FQN        string    `json:"fqn"`
	EntityType string    `json:"entity_type"` // class, method, function, constant
	Visibility string    `json:"visibility"`
	Language   string    `json:"language"`
	StartLine  int       `json:"start_line"`
	EndLine    int       `json:"end_line"`
	Code       string    `json:"code,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Analysis is the enrichment record for one entity. List-valued fields
// are stored as JSON text columns.
type Analysis struct {
	ID       int64 `json:"id"`
	EntityID int64 `json:"entity_id"`

	Description           string   `json:"description,omitempty"`
	Complexity            string   `json:"complexity"`
	ComplexityNumeric     int      `json:"complexity_numeric"`
	ComplexityExplanation string   `json:"complexity_explanation,omitempty"`
	SOLIDViolations       []string `json:"solid_violations,omitempty"`
	DesignPatterns        []string `json:"design_patterns,omitempty"`
	DDDRole               string   `json:"ddd_role,omitempty"`
	MVCRole               string   `json:"mvc_role,omitempty"`
	IsTestable            bool     `json:"is_testable"`
	TestabilityScore      float64  `json:"testability_score"`
	TestabilityIssues     []string `json:"testability_issues,omitempty"`
	CodeFingerprint       string   `json:"code_fingerprint,omitempty"`
	EmbeddingID           string   `json:"embedding_id,omitempty"`
	Keywords              string   `json:"keywords,omitempty"` // comma-joined

	LinesOfCode          int     `json:"lines_of_code"`
	CyclomaticComplexity int     `json:"cyclomatic_complexity"`
	CognitiveComplexity  int     `json:"cognitive_complexity"`
	MaxNestingDepth      int     `json:"max_nesting_depth"`
	ParameterCount       int     `json:"parameter_count"`
	CouplingScore        float64 `json:"coupling_score"`
	CohesionScore        float64 `json:"cohesion_score"`
	AfferentCoupling     int     `json:"afferent_coupling"`
	EfferentCoupling     int     `json:"efferent_coupling"`
	NPlusOneQueries      string  `json:"n_plus_one_queries,omitempty"` // JSON findings
	SpaceComplexity      string  `json:"space_complexity"`
	HotPathDetected      bool    `json:"hot_path_detected"`
	SecurityIssues       string  `json:"security_issues,omitempty"`   // JSON findings
	HardcodedSecrets     string  `json:"hardcoded_secrets,omitempty"` // JSON findings
	InsecureDependencies string  `json:"insecure_dependencies,omitempty"`
	IsGodObject          bool    `json:"is_god_object"`
	FeatureEnvyScore     float64 `json:"feature_envy_score"`
	DataClumps           string  `json:"data_clumps,omitempty"`
	LongParameterList    bool    `json:"long_parameter_list"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Dependency is one edge out of an entity. DependsOnEntityID is nil
// while the edge is unresolved or the target was deleted; the name is
// always retained.
type Dependency struct {
	ID            int64     `json:"id"`
	EntityID      int64     `json:"entity_id"`
	DependsOnID   *int64    `json:"depends_on_entity_id,omitempty"`
	DependsOnName string    `json:"depends_on_name"`
	DepType       string    `json:"dep_type"` // import, extends, implements, call
	CreatedAt     time.Time `json:"created_at"`
}

// Record bundles an entity with its analysis for search and display.
// Analysis is nil for entities not yet enriched.
type Record struct {
	Entity   Entity    `json:"entity"`
	Analysis *Analysis `json:"analysis,omitempty"`
}

// RecordFilter describes a structured query over entities joined with
// their analysis.
type RecordFilter struct {
	ProjectID         int64
	EntityTypes       []string
	MVCRoles          []string
	DDDRoles          []string
	MinComplexityRank int
	MaxComplexityRank int
	SOLIDViolation    string
	MinTestability    float64
	DesignPattern     string
	NameLike          string
	FQNLike           string
	OnlyFailed        bool
	Limit             int
}

// Empty reports whether the filter carries no constraints besides the
// project.
func (f RecordFilter) Empty() bool {
	return len(f.EntityTypes) == 0 && len(f.MVCRoles) == 0 && len(f.DDDRoles) == 0 &&
		f.MinComplexityRank == 0 && f.MaxComplexityRank == 0 && f.SOLIDViolation == "" &&
		f.MinTestability == 0 && f.DesignPattern == "" && f.NameLike == "" &&
		f.FQNLike == "" && !f.OnlyFailed
}
