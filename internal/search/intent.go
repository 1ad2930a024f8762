package search

import (
	"regexp"
	"strings"

	"github.com/zolll23/ragdoll/internal/llm"
	"github.com/zolll23/ragdoll/internal/store"
)

// ComplexityRange bounds the analysis complexity rank. Zero means
// unbounded on that side.
type ComplexityRange struct {
	Min int
	Max int
}

// SOLIDFilter selects entities with recorded SOLID violations.
// Principle empty means any violation matches.
type SOLIDFilter struct {
	Principle string
}

// Intent is the structured interpretation of a free-text query,
// derived deterministically from keyword rules. An optional model
// refinement may add fields the rules missed but never replaces one
// they set.
type Intent struct {
	EntityType     string // method, class, function, enum, constant
	MVCRole        string
	DDDRole        string
	Complexity     *ComplexityRange
	SOLID          *SOLIDFilter
	MinTestability float64
	Pattern        string

	WantsStatuses bool
	DependencyCue bool
}

// HasSpecificFilter reports whether the intent carries a filter precise
// enough to drive a structured search. A bare entity type is too broad
// on its own.
func (in Intent) HasSpecificFilter() bool {
	return in.Complexity != nil || in.SOLID != nil || in.MinTestability > 0 ||
		in.Pattern != "" || in.MVCRole != "" || in.DDDRole != ""
}

// keywordRule maps any of its cues to a value. Rules within a table are
// tried in order and the first hit wins.
type keywordRule struct {
	value string
	cues  []string
}

var entityTypeRules = []keywordRule{
	{"method", []string{"метод", "method"}},
	{"class", []string{"класс", "class"}},
	{"function", []string{"функция", "function"}},
	{"enum", []string{"enum", "перечислен"}},
	{"constant", []string{"констант", "constant"}},
}

var mvcRules = []keywordRule{
	{"Controller", []string{"контроллер", "controller"}},
	{"Model", []string{"модель", "модели", "model"}},
	{"View", []string{"представлени", "view"}},
	{"Service", []string{"сервис", "service"}},
	{"Repository", []string{"репозитори", "repository", "repositories"}},
}

var dddRules = []keywordRule{
	{"Entity", []string{"сущност", "entity", "entities"}},
	{"ValueObject", []string{"объект-значение", "value object", "объекты-значения"}},
	{"Aggregate", []string{"агрегат", "aggregate"}},
	{"Service", []string{"сервис", "service"}},
	{"Repository", []string{"репозитори", "repository", "repositories"}},
	{"Factory", []string{"фабрик", "factory", "factories"}},
}

// complexityRule pins a query phrasing to a rank range. Checked most
// specific first so "o(n log n)" is not swallowed by "o(n)".
type complexityRule struct {
	cues []string
	rng  ComplexityRange
}

var complexityRules = []complexityRule{
	{[]string{"o(n!)", "factorial", "факториальн"}, ComplexityRange{Min: 8, Max: 8}},
	{[]string{"o(2^n)", "o(2^", "exponential", "экспоненциальн"}, ComplexityRange{Min: 7, Max: 7}},
	{[]string{"o(n^3)", "o(n3)", "cubic", "кубическ"}, ComplexityRange{Min: 6, Max: 6}},
	{[]string{"o(n^2)", "o(n2)", "quadratic", "квадратичн"}, ComplexityRange{Min: 5, Max: 5}},
	{[]string{"o(n log n)", "o(n*log", "linearithmic", "линеарифмическ"}, ComplexityRange{Min: 4, Max: 4}},
}

var solidRules = []struct {
	cues      []string
	principle string
}{
	{[]string{"liskov", "lsp", "лисков"}, "Liskov Substitution Principle"},
	{[]string{"single responsibility", "srp", "единичн"}, "Single Responsibility Principle"},
	{[]string{"open/closed", "ocp", "открыт/закрыт"}, "Open/Closed Principle"},
	{[]string{"interface segregation", "isp", "сегрегации интерфейса"}, "Interface Segregation Principle"},
	{[]string{"dependency inversion", "dip", "инверсии зависимостей"}, "Dependency Inversion Principle"},
}

var patternRules = []keywordRule{
	{"Factory", []string{"factory"}},
	{"Strategy", []string{"strategy"}},
	{"Observer", []string{"observer"}},
}

// Russian "со сложностью O(...)" phrasings, handled when no direct
// notation matched.
var complexityPhraseRe = regexp.MustCompile(`сложностью\s+(o\([^)]*\)|np)`)

var complexityPhraseRanks = map[string]int{
	"o(n!)":      8,
	"np":         8,
	"o(2^n)":     7,
	"o(n^3)":     6,
	"o(n^2)":     5,
	"o(n log n)": 4,
	"o(n)":       3,
	"o(log n)":   2,
	"o(1)":       1,
}

var dependencyCues = []string{
	"sqlalchemy", "db.query", "зависимост", "dependency",
	"использует", "uses", "вызывает", "calls",
}

// AnalyzeQuery derives an Intent from the query text alone. Every rule
// is a plain substring table so behavior stays inspectable and
// deterministic.
func AnalyzeQuery(query string) Intent {
	q := strings.ToLower(query)
	var in Intent

	for _, rule := range entityTypeRules {
		if matchesAny(q, rule.cues) {
			in.EntityType = rule.value
			break
		}
	}
	for _, rule := range mvcRules {
		if matchesAny(q, rule.cues) {
			in.MVCRole = rule.value
			break
		}
	}
	for _, rule := range dddRules {
		if matchesAny(q, rule.cues) {
			in.DDDRole = rule.value
			break
		}
	}

	in.Complexity = analyzeComplexity(q)

	for _, rule := range solidRules {
		if matchesAny(q, rule.cues) {
			in.SOLID = &SOLIDFilter{Principle: rule.principle}
			break
		}
	}
	if in.SOLID == nil && strings.Contains(q, "solid") &&
		(strings.Contains(q, "нарушен") || strings.Contains(q, "violation")) {
		in.SOLID = &SOLIDFilter{} // any principle
	}

	if strings.Contains(q, "testable") || strings.Contains(q, "unit test") {
		in.MinTestability = 0.5
	}

	for _, rule := range patternRules {
		if matchesAny(q, rule.cues) {
			in.Pattern = rule.value
			break
		}
	}

	in.WantsStatuses = strings.Contains(q, "статус") || strings.Contains(q, "status") ||
		strings.Contains(q, "enum") || strings.Contains(q, "перечислен")
	in.DependencyCue = matchesAny(q, dependencyCues)
	return in
}

func analyzeComplexity(q string) *ComplexityRange {
	for _, rule := range complexityRules {
		if matchesAny(q, rule.cues) {
			rng := rule.rng
			return &rng
		}
	}

	if strings.Contains(q, "o(n)") && !strings.Contains(q, "log") {
		switch {
		case strings.Contains(q, "или выше") || strings.Contains(q, "or higher") ||
			strings.Contains(q, "or above") || strings.Contains(q, "и выше"):
			return &ComplexityRange{Min: 3}
		case strings.Contains(q, "больше") || strings.Contains(q, "more than") ||
			strings.Contains(q, "выше"):
			// Strictly greater than O(n) starts at O(n log n).
			return &ComplexityRange{Min: 4}
		default:
			return &ComplexityRange{Min: 3, Max: 3}
		}
	}
	if strings.Contains(q, "o(log n)") || strings.Contains(q, "логарифмическ") {
		return &ComplexityRange{Min: 2, Max: 2}
	}
	if strings.Contains(q, "o(1)") || strings.Contains(q, "константн") || strings.Contains(q, "constant") {
		return &ComplexityRange{Min: 1, Max: 1}
	}

	if strings.Contains(q, "сложност") {
		if m := complexityPhraseRe.FindStringSubmatch(q); m != nil {
			notation := strings.Join(strings.Fields(m[1]), " ")
			if rank, ok := complexityPhraseRanks[notation]; ok {
				return &ComplexityRange{Min: rank, Max: rank}
			}
		}
	}
	return nil
}

// ApplyRefinement folds a model's query interpretation into the
// intent. Refinement only fills fields the rule table left empty.
func (in *Intent) ApplyRefinement(r *llm.Refinement) {
	if r == nil {
		return
	}
	if in.EntityType == "" && len(r.EntityTypes) > 0 {
		in.EntityType = r.EntityTypes[0]
	}
	if in.MVCRole == "" && len(r.MVCRoles) > 0 {
		in.MVCRole = store.NormalizeMVCRole(r.MVCRoles[0])
	}
	if in.DDDRole == "" && len(r.DDDRoles) > 0 {
		in.DDDRole = store.NormalizeDDDRole(r.DDDRoles[0])
	}
}

func matchesAny(q string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(q, cue) {
			return true
		}
	}
	return false
}
