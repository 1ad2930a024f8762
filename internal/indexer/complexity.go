package indexer

import (
	"strings"

	"github.com/zolll23/ragdoll/internal/extract"
)

// complexityRanks is the fixed total order over asymptotic complexity
// classes. Rank 1 is the floor; unknown classes default to linear.
var complexityRanks = map[string]int{
	"O(1)":       1,
	"O(log n)":   2,
	"O(n)":       3,
	"O(n log n)": 4,
	"O(n^2)":     5,
	"O(n^3)":     6,
	"O(2^n)":     7,
	"O(n!)":      8,
}

// complexityAliases maps the spellings models actually emit onto the
// canonical class names.
var complexityAliases = map[string]string{
	"o(1)":        "O(1)",
	"constant":    "O(1)",
	"o(log n)":    "O(log n)",
	"o(logn)":     "O(log n)",
	"logarithmic": "O(log n)",
	"o(n)":        "O(n)",
	"linear":      "O(n)",
	"o(n log n)":  "O(n log n)",
	"o(nlogn)":    "O(n log n)",
	"o(n*log n)":  "O(n log n)",
	"o(n^2)":      "O(n^2)",
	"o(n2)":       "O(n^2)",
	"o(n²)":       "O(n^2)",
	"quadratic":   "O(n^2)",
	"o(n^3)":      "O(n^3)",
	"o(n³)":       "O(n^3)",
	"cubic":       "O(n^3)",
	"o(2^n)":      "O(2^n)",
	"exponential": "O(2^n)",
	"o(n!)":       "O(n!)",
	"factorial":   "O(n!)",
}

// NormalizeComplexity canonicalizes a reported complexity class and
// returns it with its numeric rank. Constants always resolve to the
// lowest rank regardless of what the provider reported.
func NormalizeComplexity(kind extract.EntityKind, reported string) (string, int) {
	if kind == extract.ConstEntity {
		return "O(1)", 1
	}

	key := strings.ToLower(strings.TrimSpace(reported))
	if canonical, ok := complexityAliases[key]; ok {
		return canonical, complexityRanks[canonical]
	}
	return "O(n)", complexityRanks["O(n)"]
}

// ComplexityRank returns the numeric rank of a canonical complexity
// class, or 0 when the class is unknown.
func ComplexityRank(class string) int {
	return complexityRanks[class]
}
