package metrics

import (
	"regexp"
	"strings"

	"github.com/zolll23/ragdoll/internal/parser"
)

var (
	pyLoopRe  = regexp.MustCompile(`^\s*(for|while)\b`)
	phpLoopRe = regexp.MustCompile(`\b(for|foreach|while)\s*\(`)

	queryCallRe = regexp.MustCompile(`(?i)(\bquery\s*\(|\bexecute\s*\(|\bfetch\w*\s*\(|->find\w*\s*\(|\.get\s*\(|\bselect\b.*\bfrom\b)`)

	pyGrowRe  = regexp.MustCompile(`(\.append\s*\(|\.extend\s*\(|\.insert\s*\(|\+=\s*\[|\.add\s*\()`)
	phpGrowRe = regexp.MustCompile(`(array_push\s*\(|\[\]\s*=|array_merge\s*\()`)

	pySelfCallRe   = regexp.MustCompile(`\b(?:self|cls)\.\w+\s*\(`)
	pyOtherCallRe  = regexp.MustCompile(`\b([a-z_]\w*)\.\w+\s*\(`)
	phpSelfCallRe  = regexp.MustCompile(`(\$this->\w+\s*\(|\b(?:self|static|parent)::\w+\s*\()`)
	phpOtherCallRe = regexp.MustCompile(`\$([a-z_]\w*)->\w+\s*\(`)

	pyParamsClumpRe  = regexp.MustCompile(`def\s+\w+\s*\(([^)]*)\)`)
	phpParamsClumpRe = regexp.MustCompile(`function\s+\w+\s*\(([^)]*)\)`)

	controlFlowLineRe = regexp.MustCompile(`^(if|elif|else|for|foreach|while|try|except|catch|switch|case)\b`)
	pyMethodDefRe     = regexp.MustCompile(`(?m)^\s*(?:async\s+)?def\s+\w+`)
	phpMethodDefRe    = regexp.MustCompile(`\bfunction\s+\w+\s*\(`)
)

// couplingScore is the fraction of extracted dependencies whose name
// actually appears in the code body. A high score means the entity
// exercises most of what it pulls in.
func couplingScore(code string, depNames []string) float64 {
	if len(depNames) == 0 {
		return 0
	}
	lower := strings.ToLower(code)
	used := 0
	for _, dep := range depNames {
		name := dep
		if i := strings.LastIndexAny(name, ".\\"); i >= 0 {
			name = name[i+1:]
		}
		if name != "" && strings.Contains(lower, strings.ToLower(name)) {
			used++
		}
	}
	return float64(used) / float64(len(depNames))
}

// cohesionScore drops as the entity mixes more statement categories.
// One category scores 1.0, two 0.5, three 0.0.
func cohesionScore(code string) float64 {
	categories := map[string]bool{}
	for _, raw := range strings.Split(code, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
		case controlFlowLineRe.MatchString(line):
			categories["control_flow"] = true
		case strings.HasPrefix(line, "import ") || strings.HasPrefix(line, "from ") ||
			strings.HasPrefix(line, "use ") || strings.HasPrefix(line, "require") || strings.HasPrefix(line, "include"):
			categories["import"] = true
		case strings.Contains(line, "=") && !strings.Contains(line, "==") && !strings.Contains(line, "!="):
			categories["assignment"] = true
		}
	}
	diversity := len(categories) - 1
	if diversity < 0 {
		diversity = 0
	}
	score := 1.0 - float64(diversity)*0.5
	if score < 0 {
		return 0
	}
	return score
}

// nPlusOneQueries flags loops whose body issues database calls.
func nPlusOneQueries(code string, lang parser.Language) []Finding {
	loopRe := pyLoopRe
	if lang == parser.PHP {
		loopRe = phpLoopRe
	}
	lines := strings.Split(code, "\n")
	var findings []Finding
	for i, line := range lines {
		if !loopRe.MatchString(line) {
			continue
		}
		for _, body := range loopBody(lines, i, lang) {
			if queryCallRe.MatchString(body) {
				findings = append(findings, Finding{
					Line:        i + 1,
					Description: "query executed inside a loop",
				})
				break
			}
		}
	}
	return findings
}

// loopBody returns the lines belonging to the loop that starts at index
// start. Python bodies end where indentation returns to the loop level;
// PHP bodies end at the matching closing brace.
func loopBody(lines []string, start int, lang parser.Language) []string {
	if lang == parser.PHP {
		depth := 0
		opened := false
		var body []string
		for i := start; i < len(lines); i++ {
			for _, c := range lines[i] {
				switch c {
				case '{':
					depth++
					opened = true
				case '}':
					depth--
				}
			}
			if i > start {
				body = append(body, lines[i])
			}
			if opened && depth <= 0 {
				return body
			}
		}
		return body
	}

	base := indentWidth(lines[start])
	var body []string
	for i := start + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		if indentWidth(lines[i]) <= base {
			break
		}
		body = append(body, lines[i])
	}
	return body
}

// spaceComplexity is O(n) when a collection grows inside a loop,
// otherwise O(1).
func spaceComplexity(code string, lang parser.Language) string {
	loopRe, growRe := pyLoopRe, pyGrowRe
	if lang == parser.PHP {
		loopRe, growRe = phpLoopRe, phpGrowRe
	}
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		if !loopRe.MatchString(line) {
			continue
		}
		for _, body := range loopBody(lines, i, lang) {
			if growRe.MatchString(body) {
				return "O(n)"
			}
		}
	}
	return "O(1)"
}

// featureEnvyScore is the share of method calls that target objects
// other than the receiver.
func featureEnvyScore(code string, lang parser.Language) float64 {
	var self, other int
	if lang == parser.PHP {
		self = len(phpSelfCallRe.FindAllString(code, -1))
		for _, m := range phpOtherCallRe.FindAllStringSubmatch(code, -1) {
			if m[1] != "this" {
				other++
			}
		}
	} else {
		self = len(pySelfCallRe.FindAllString(code, -1))
		for _, m := range pyOtherCallRe.FindAllStringSubmatch(code, -1) {
			if m[1] != "self" && m[1] != "cls" {
				other++
			}
		}
	}
	total := self + other
	if total == 0 {
		return 0
	}
	return float64(other) / float64(total)
}

func methodCount(code string, lang parser.Language) int {
	if lang == parser.PHP {
		return len(phpMethodDefRe.FindAllString(code, -1))
	}
	return len(pyMethodDefRe.FindAllString(code, -1))
}

// dataClumps reports groups of three or more parameter names repeated
// across different methods of the same class.
func dataClumps(code string, lang parser.Language) []Finding {
	re := pyParamsClumpRe
	if lang == parser.PHP {
		re = phpParamsClumpRe
	}
	seen := map[string]int{}
	var findings []Finding
	for _, m := range re.FindAllStringSubmatch(code, -1) {
		names := paramNames(m[1], lang)
		if len(names) < 3 {
			continue
		}
		key := strings.Join(names, ",")
		seen[key]++
		if seen[key] == 2 {
			findings = append(findings, Finding{
				Description: "parameter group repeated across methods: " + key,
			})
		}
	}
	return findings
}

func paramNames(raw string, lang parser.Language) []string {
	var names []string
	for _, p := range splitTopLevel(raw) {
		p = strings.TrimSpace(p)
		if i := strings.IndexAny(p, "=:"); i >= 0 {
			p = strings.TrimSpace(p[:i])
		}
		if lang == parser.PHP {
			if i := strings.Index(p, "$"); i >= 0 {
				p = p[i+1:]
			} else {
				continue
			}
		}
		if p == "" || p == "self" || p == "cls" {
			continue
		}
		fields := strings.Fields(p)
		names = append(names, fields[len(fields)-1])
	}
	return names
}
