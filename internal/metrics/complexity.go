package metrics

import (
	"regexp"
	"strings"

	"github.com/zolll23/ragdoll/internal/parser"
)

var (
	pyBranchWordRe  = regexp.MustCompile(`\b(if|elif|for|while|except|with)\b`)
	pyBoolOpRe      = regexp.MustCompile(`\b(and|or)\b`)
	phpBranchWordRe = regexp.MustCompile(`\b(if|elseif|for|foreach|while|case|catch)\b`)
	phpBoolOpRe     = regexp.MustCompile(`&&|\|\||\b(and|or)\b`)

	pyNestOpenRe  = regexp.MustCompile(`^(if|for|while|try)\b`)
	pyNestFlatRe  = regexp.MustCompile(`^(elif|else|except|finally)\b`)
	pyBlockRe     = regexp.MustCompile(`^(def|class|if|elif|else|for|while|try|except|finally|with)\b`)
	pyDefParamsRe = regexp.MustCompile(`(?s)def\s+\w+\s*\((.*?)\)`)
	phpFnParamsRe = regexp.MustCompile(`(?s)function\s+\w*\s*\((.*?)\)`)
)

// cyclomaticComplexity counts decision points plus one. Each branch
// keyword and each boolean operator adds a path.
func cyclomaticComplexity(code string, lang parser.Language) int {
	n := 1
	for _, line := range codeLines(code, lang) {
		if lang == parser.PHP {
			n += len(phpBranchWordRe.FindAllString(line, -1))
			n += len(phpBoolOpRe.FindAllString(line, -1))
			continue
		}
		n += len(pyBranchWordRe.FindAllString(line, -1))
		n += len(pyBoolOpRe.FindAllString(line, -1))
	}
	return n
}

// cognitiveComplexity weights branches by how deeply they nest. For
// Python the nesting level is recovered from indentation; for PHP it is
// approximated from the cyclomatic count and the brace depth.
func cognitiveComplexity(code string, lang parser.Language) int {
	if lang == parser.PHP {
		extra := maxNestingDepth(code, lang) - 1
		if extra < 0 {
			extra = 0
		}
		return cyclomaticComplexity(code, lang) + extra*2
	}

	total := 0
	var open []int // indents of enclosing branch constructs
	for _, raw := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		indent := indentWidth(raw)
		for len(open) > 0 && open[len(open)-1] >= indent {
			open = open[:len(open)-1]
		}
		switch {
		case pyNestOpenRe.MatchString(trimmed):
			total += 1 + len(open)
			open = append(open, indent)
		case pyNestFlatRe.MatchString(trimmed):
			total++
		}
		total += len(pyBoolOpRe.FindAllString(trimmed, -1))
	}
	return total
}

func maxNestingDepth(code string, lang parser.Language) int {
	if lang == parser.PHP {
		depth, max := 0, 0
		for _, c := range code {
			switch c {
			case '{':
				depth++
				if depth > max {
					max = depth
				}
			case '}':
				if depth > 0 {
					depth--
				}
			}
		}
		return max
	}

	max := 0
	var open []int
	for _, raw := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		indent := indentWidth(raw)
		for len(open) > 0 && open[len(open)-1] >= indent {
			open = open[:len(open)-1]
		}
		if pyBlockRe.MatchString(trimmed) {
			open = append(open, indent)
			if len(open) > max {
				max = len(open)
			}
		}
	}
	return max
}

func parameterCount(code string, lang parser.Language) int {
	var re *regexp.Regexp
	if lang == parser.PHP {
		re = phpFnParamsRe
	} else {
		re = pyDefParamsRe
	}
	m := re.FindStringSubmatch(code)
	if m == nil {
		return 0
	}
	n := 0
	for _, p := range splitTopLevel(m[1]) {
		p = strings.TrimSpace(p)
		if p == "" || p == "self" || p == "cls" {
			continue
		}
		n++
	}
	return n
}

// splitTopLevel splits a parameter list on commas that are not inside
// brackets or string literals.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	var quote rune
	start := 0
	for i, c := range s {
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func indentWidth(line string) int {
	w := 0
	for _, c := range line {
		switch c {
		case ' ':
			w++
		case '\t':
			w += 4
		default:
			return w
		}
	}
	return w
}

// codeLines returns the non-blank lines of code with comment-only lines
// removed.
func codeLines(code string, lang parser.Language) []string {
	var out []string
	for _, raw := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if lang == parser.PHP {
			if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "/*") {
				continue
			}
		} else if strings.HasPrefix(trimmed, "#") {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
