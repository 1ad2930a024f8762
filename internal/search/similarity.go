package search

import (
	"regexp"
	"sort"
	"strings"

	"github.com/zolll23/ragdoll/internal/store"
)

var (
	fingerprintSpaceRe = regexp.MustCompile(`\s+`)
	fingerprintVarRe   = regexp.MustCompile(`\$[a-zA-Z_][a-zA-Z0-9_]*`)
)

// NormalizeFingerprint prepares a fingerprint for comparison: case and
// whitespace removed, variable names generalized so renamed copies
// still align.
func NormalizeFingerprint(fp string) string {
	if fp == "" {
		return ""
	}
	normalized := fingerprintSpaceRe.ReplaceAllString(strings.ToLower(fp), "")
	return fingerprintVarRe.ReplaceAllString(normalized, "$$var")
}

// Ratio is a sequence-alignment similarity in [0,1]: twice the total
// length of matching blocks over the combined length.
func Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return 2 * float64(matchingSize(a, b)) / float64(len(a)+len(b))
}

// matchingSize sums the longest matching blocks, recursing into the
// regions on either side of each block.
func matchingSize(a, b string) int {
	b2j := map[byte][]int{}
	for j := 0; j < len(b); j++ {
		b2j[b[j]] = append(b2j[b[j]], j)
	}

	type region struct{ alo, ahi, blo, bhi int }
	queue := []region{{0, len(a), 0, len(b)}}
	total := 0

	for len(queue) > 0 {
		r := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		i, j, size := longestMatch(a, r.alo, r.ahi, r.blo, r.bhi, b2j)
		if size == 0 {
			continue
		}
		total += size
		queue = append(queue,
			region{r.alo, i, r.blo, j},
			region{i + size, r.ahi, j + size, r.bhi})
	}
	return total
}

func longestMatch(a string, alo, ahi, blo, bhi int, b2j map[byte][]int) (int, int, int) {
	besti, bestj, bestSize := alo, blo, 0
	lengths := map[int]int{}

	for i := alo; i < ahi; i++ {
		next := map[int]int{}
		for _, j := range b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := lengths[j-1] + 1
			next[j] = k
			if k > bestSize {
				besti, bestj, bestSize = i-k+1, j-k+1, k
			}
		}
		lengths = next
	}
	return besti, bestj, bestSize
}

// SimilarResult is one fingerprint-similar entity.
type SimilarResult struct {
	Entity     store.Entity    `json:"entity"`
	Analysis   *store.Analysis `json:"analysis,omitempty"`
	FilePath   string          `json:"file_path"`
	Similarity float64         `json:"similarity"`
}

// FindSimilar returns entities of the same kind whose fingerprint
// aligns with the target's above the threshold. Entities lacking an
// analysis fall back to comparing raw code.
func (e *Engine) FindSimilar(entityID int64, minSimilarity float64, limit int) ([]SimilarResult, error) {
	if minSimilarity <= 0 {
		minSimilarity = 0.7
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	target, err := e.store.GetRecord(entityID)
	if err != nil {
		return nil, err
	}
	targetFP := NormalizeFingerprint(recordFingerprint(target))
	if targetFP == "" {
		return nil, nil
	}

	paths, err := e.filePaths(target.Entity.ProjectID)
	if err != nil {
		return nil, err
	}

	candidates, err := e.store.QueryRecords(store.RecordFilter{
		ProjectID:   target.Entity.ProjectID,
		EntityTypes: []string{target.Entity.EntityType},
	})
	if err != nil {
		return nil, err
	}

	var results []SimilarResult
	for _, c := range candidates {
		if c.Entity.ID == entityID {
			continue
		}
		fp := NormalizeFingerprint(recordFingerprint(c))
		if fp == "" {
			continue
		}
		similarity := Ratio(targetFP, fp)
		if similarity < minSimilarity {
			continue
		}
		results = append(results, SimilarResult{
			Entity:     c.Entity,
			Analysis:   c.Analysis,
			FilePath:   paths[c.Entity.FileID],
			Similarity: similarity,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func recordFingerprint(r *store.Record) string {
	if r.Analysis != nil && r.Analysis.CodeFingerprint != "" {
		return r.Analysis.CodeFingerprint
	}
	return r.Entity.Code
}
