package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"
)

// VectorStore keeps entity embeddings in .ragdoll/vectors.db (SQLite).
// Similarity queries are a brute-force cosine scan, which is plenty for
// per-project collections of tens of thousands of vectors.
type VectorStore struct {
	db     *sql.DB
	dbPath string
}

// OpenVectors opens or creates the vector database under the given
// .ragdoll directory.
func OpenVectors(ragdollDir string) (*VectorStore, error) {
	dbPath := filepath.Join(ragdollDir, "vectors.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open vector db: %w", err)
	}

	// WAL mode for concurrent reads during indexing.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	vs := &VectorStore{db: db, dbPath: dbPath}
	if err := vs.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init vector schema: %w", err)
	}
	return vs, nil
}

func (v *VectorStore) initSchema() error {
	_, err := v.db.Exec(`
		CREATE TABLE IF NOT EXISTS vectors (
			id TEXT PRIMARY KEY,
			project_id INTEGER NOT NULL,
			entity_id INTEGER NOT NULL,
			model TEXT NOT NULL,
			embedding BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_vectors_project ON vectors(project_id);
		CREATE INDEX IF NOT EXISTS idx_vectors_entity ON vectors(entity_id);`)
	return err
}

// Close closes the database connection.
func (v *VectorStore) Close() error {
	if v.db == nil {
		return nil
	}
	return v.db.Close()
}

// Path returns the database file path.
func (v *VectorStore) Path() string {
	return v.dbPath
}

// Upsert stores or replaces one embedding under its vector id.
func (v *VectorStore) Upsert(id string, projectID, entityID int64, model string, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("empty embedding for %s", id)
	}
	_, err := v.db.Exec(`
		INSERT INTO vectors (id, project_id, entity_id, model, embedding)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			entity_id = excluded.entity_id,
			model = excluded.model,
			embedding = excluded.embedding`,
		id, projectID, entityID, model, encodeVector(embedding))
	if err != nil {
		return fmt.Errorf("upsert vector %s: %w", id, err)
	}
	return nil
}

// Delete removes a vector. Deleting a missing id is a no-op.
func (v *VectorStore) Delete(id string) error {
	if _, err := v.db.Exec(`DELETE FROM vectors WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete vector %s: %w", id, err)
	}
	return nil
}

// DeleteByEntity removes all vectors belonging to an entity.
func (v *VectorStore) DeleteByEntity(entityID int64) error {
	if _, err := v.db.Exec(`DELETE FROM vectors WHERE entity_id = ?`, entityID); err != nil {
		return fmt.Errorf("delete vectors for entity %d: %w", entityID, err)
	}
	return nil
}

// VectorMatch is one nearest-neighbor result.
type VectorMatch struct {
	ID         string  `json:"id"`
	EntityID   int64   `json:"entity_id"`
	Similarity float64 `json:"similarity"` // cosine, -1..1
}

// Search returns the project's vectors nearest to the query embedding,
// best first.
func (v *VectorStore) Search(projectID int64, query []float32, limit int) ([]VectorMatch, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := v.db.Query(`
		SELECT id, entity_id, embedding FROM vectors WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, fmt.Errorf("scan vectors: %w", err)
	}
	defer rows.Close()

	var matches []VectorMatch
	for rows.Next() {
		var id string
		var entityID int64
		var blob []byte
		if err := rows.Scan(&id, &entityID, &blob); err != nil {
			return nil, fmt.Errorf("scan vector row: %w", err)
		}
		embedding := decodeVector(blob)
		if len(embedding) != len(query) {
			continue
		}
		matches = append(matches, VectorMatch{
			ID:         id,
			EntityID:   entityID,
			Similarity: cosineSimilarity(query, embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].EntityID < matches[j].EntityID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Count returns the number of stored vectors for a project.
func (v *VectorStore) Count(projectID int64) (int, error) {
	var n int
	err := v.db.QueryRow(`SELECT COUNT(*) FROM vectors WHERE project_id = ?`, projectID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return n, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
