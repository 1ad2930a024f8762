package search

import (
	"context"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/zolll23/ragdoll/internal/store"
)

const (
	fragmentMinLines = 3
	fragmentMaxLines = 25
	// Shorter normalized fragments are boilerplate, not duplication.
	fragmentMinFingerprint = 10
	fragmentMinSignificant = 20
)

var blockKeywords = []string{"if", "else", "for", "foreach", "while", "switch", "try", "catch"}

// Fragment is a slice of an entity's code, line offsets relative to the
// entity start.
type Fragment struct {
	StartLine int
	EndLine   int
	Code      string

	normalized string
}

// ExtractFragments decomposes code into overlapping line windows plus
// control-structure blocks, deduplicated by normalized fingerprint, so
// sub-entity duplication is visible to the pair scan.
func ExtractFragments(code string, minLines, maxLines int) []Fragment {
	if code == "" {
		return nil
	}

	lines := strings.Split(code, "\n")
	var fragments []Fragment
	seen := map[string]bool{}

	appendFragment := func(window []string, start, end int) {
		text := strings.Join(window, "\n")
		if len(strings.TrimSpace(text)) < fragmentMinSignificant {
			return
		}
		normalized := NormalizeFingerprint(text)
		if seen[normalized] {
			return
		}
		seen[normalized] = true
		fragments = append(fragments, Fragment{
			StartLine:  start,
			EndLine:    end,
			Code:       text,
			normalized: normalized,
		})
	}

	upper := maxLines
	if len(lines) < upper {
		upper = len(lines)
	}
	for size := minLines; size <= upper; size++ {
		for i := 0; i+size <= len(lines); i++ {
			appendFragment(lines[i:i+size], i, i+size-1)
		}
	}

	// Control-structure blocks catch logical units the fixed windows
	// straddle.
	var block []string
	blockStart := 0
	braceLevel := 0
	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		braceLevel += strings.Count(stripped, "{") - strings.Count(stripped, "}")

		switch {
		case startsControlBlock(stripped):
			if len(block) >= minLines {
				appendFragment(block, blockStart, i-1)
			}
			block = []string{line}
			blockStart = i
		case stripped != "" && braceLevel == 0 && len(block) > 0:
			block = append(block, line)
			if len(block) >= minLines {
				appendFragment(block, blockStart, i)
			}
			block = nil
		case len(block) > 0 || stripped != "":
			block = append(block, line)
		}
	}
	if len(block) >= minLines {
		appendFragment(block, blockStart, len(lines)-1)
	}

	return fragments
}

func startsControlBlock(stripped string) bool {
	for _, kw := range blockKeywords {
		if strings.HasPrefix(stripped, kw) {
			return true
		}
	}
	return false
}

// PairSide is one half of a duplicated-code pair, with line numbers
// mapped back into the source file.
type PairSide struct {
	Entity    store.Entity    `json:"entity"`
	Analysis  *store.Analysis `json:"analysis,omitempty"`
	FilePath  string          `json:"file_path"`
	StartLine int             `json:"start_line"`
	EndLine   int             `json:"end_line"`
	Code      string          `json:"code"`
}

// Pair is two similar fragments from different entities.
type Pair struct {
	Left       PairSide `json:"left"`
	Right      PairSide `json:"right"`
	Similarity float64  `json:"similarity"`
}

// SearchSimilarPairs scans a project for duplicated fragments across
// entities. Comparison fans out across CPUs; dedup runs in a fixed
// order afterwards so output is deterministic.
func (e *Engine) SearchSimilarPairs(ctx context.Context, projectID int64, entityType string, minSimilarity float64, limit int) ([]Pair, error) {
	if minSimilarity <= 0 {
		minSimilarity = 0.7
	}
	if limit <= 0 {
		limit = 100
	}

	filter := store.RecordFilter{ProjectID: projectID}
	if entityType != "" {
		filter.EntityTypes = []string{entityType}
	}
	records, err := e.store.QueryRecords(filter)
	if err != nil {
		return nil, err
	}

	var ordered []*store.Record
	for _, r := range records {
		if r.Entity.Code != "" {
			ordered = append(ordered, r)
		}
	}
	if len(ordered) < 2 {
		return nil, nil
	}

	paths, err := e.filePaths(projectID)
	if err != nil {
		return nil, err
	}

	fragments := make([][]Fragment, len(ordered))
	for i, r := range ordered {
		var usable []Fragment
		for _, f := range ExtractFragments(r.Entity.Code, fragmentMinLines, fragmentMaxLines) {
			if len(f.normalized) >= fragmentMinFingerprint {
				usable = append(usable, f)
			}
		}
		fragments[i] = usable
	}

	type candidate struct {
		left, right         int // indices into ordered
		leftFrag, rightFrag Fragment
		similarity          float64
	}
	found := make([][]candidate, len(ordered))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range ordered {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var local []candidate
			for _, f1 := range fragments[i] {
				for j := i + 1; j < len(ordered); j++ {
					if sameUnit(ordered[i], ordered[j]) {
						continue
					}
					for _, f2 := range fragments[j] {
						if f1.normalized == f2.normalized {
							continue
						}
						similarity := Ratio(f1.normalized, f2.normalized)
						if similarity >= minSimilarity {
							local = append(local, candidate{i, j, f1, f2, similarity})
						}
					}
				}
			}
			found[i] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Pair- and fragment-level dedup: a fragment appears in at most
	// one reported pair, and a pair is never reported twice or in
	// reversed order.
	seenFragments := map[string]bool{}
	var pairs []Pair
	for _, local := range found {
		for _, c := range local {
			if seenFragments[c.leftFrag.normalized] || seenFragments[c.rightFrag.normalized] {
				continue
			}
			seenFragments[c.leftFrag.normalized] = true
			seenFragments[c.rightFrag.normalized] = true
			pairs = append(pairs, Pair{
				Left:       pairSide(ordered[c.left], paths, c.leftFrag),
				Right:      pairSide(ordered[c.right], paths, c.rightFrag),
				Similarity: c.similarity,
			})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].Similarity != pairs[j].Similarity {
			return pairs[i].Similarity > pairs[j].Similarity
		}
		return len(pairs[i].Left.Code) > len(pairs[j].Left.Code)
	})
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs, nil
}

// sameUnit guards against re-indexed copies of one entity comparing
// against themselves.
func sameUnit(a, b *store.Record) bool {
	return a.Entity.FileID == b.Entity.FileID &&
		a.Entity.Name == b.Entity.Name &&
		a.Entity.StartLine == b.Entity.StartLine &&
		a.Entity.EndLine == b.Entity.EndLine
}

func pairSide(r *store.Record, paths map[int64]string, f Fragment) PairSide {
	return PairSide{
		Entity:    r.Entity,
		Analysis:  r.Analysis,
		FilePath:  paths[r.Entity.FileID],
		StartLine: r.Entity.StartLine + f.StartLine,
		EndLine:   r.Entity.StartLine + f.EndLine,
		Code:      f.Code,
	}
}
