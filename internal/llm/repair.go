package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParseOutcome tags how an analysis record was recovered from provider
// output.
type ParseOutcome int

const (
	ParsedClean ParseOutcome = iota
	ParsedRepaired
	ParseFailed
)

func (o ParseOutcome) String() string {
	switch o {
	case ParsedClean:
		return "clean"
	case ParsedRepaired:
		return "repaired"
	default:
		return "failed"
	}
}

// repairs are applied cumulatively, mildest first. Each transform is
// idempotent so re-running the pipeline on already-repaired text is
// harmless.
var repairs = []func(string) string{
	fixInvalidEscapes,
	closeUnterminated,
	insertMissingCommas,
}

// ParseAnalysis decodes the provider's raw text into an Analysis. It
// first tries a straight decode of the JSON object embedded in the
// text, then walks the repair pipeline. The outcome records whether
// repairs were needed.
func ParseAnalysis(raw string) (Analysis, ParseOutcome, error) {
	candidate := extractObject(stripFences(raw))
	if candidate == "" {
		return Analysis{}, ParseFailed, &MalformedResponseError{Reason: "no JSON object in response", Raw: raw}
	}

	if a, ok := decodeAnalysis(candidate); ok {
		return a, ParsedClean, nil
	}

	current := candidate
	for _, repair := range repairs {
		current = repair(current)
		if a, ok := decodeAnalysis(current); ok {
			return a, ParsedRepaired, nil
		}
	}
	return Analysis{}, ParseFailed, &MalformedResponseError{Reason: "undecodable after repair", Raw: raw}
}

// decodeAnalysis is deliberately duck-typed: models return strings
// where lists belong and numbers where booleans belong, so every field
// is coerced individually instead of trusting the declared types.
func decodeAnalysis(text string) (Analysis, bool) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return Analysis{}, false
	}
	a := Analysis{
		Description:           asString(fields["description"]),
		Complexity:            asString(fields["complexity"]),
		ComplexityExplanation: asString(fields["complexity_explanation"]),
		SOLIDViolations:       asStringList(fields["solid_violations"]),
		DesignPatterns:        asStringList(fields["design_patterns"]),
		DDDRole:               asString(fields["ddd_role"]),
		MVCRole:               asString(fields["mvc_role"]),
		IsTestable:            asBool(fields["is_testable"]),
		TestabilityScore:      asFloat(fields["testability_score"]),
		TestabilityIssues:     asStringList(fields["testability_issues"]),
		CodeFingerprint:       asString(fields["code_fingerprint"]),
		Keywords:              asStringList(fields["keywords"]),
		Dependencies:          asStringList(fields["dependencies"]),
	}
	return a, true
}

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*(?:```|$)")

func stripFences(raw string) string {
	if !strings.Contains(raw, "```") {
		return raw
	}
	if m := fenceRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return raw
}

// extractObject returns the first balanced JSON object in the text.
// When braces never balance the tail is returned anyway so the
// string-closing repair gets a chance at it.
func extractObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return text[start:]
}

var escapeRe = regexp.MustCompile(`\\.|\\$`)

// fixInvalidEscapes doubles backslashes that do not start a valid JSON
// escape sequence, a common artifact of models quoting source code.
// Valid escapes are consumed as pairs so the transform is idempotent.
func fixInvalidEscapes(text string) string {
	return escapeRe.ReplaceAllStringFunc(text, func(m string) string {
		if len(m) < 2 {
			return `\\`
		}
		switch m[1] {
		case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
			return m
		}
		return `\` + m
	})
}

// closeUnterminated closes a trailing open string and balances any
// unclosed braces and brackets.
func closeUnterminated(text string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			stack = append(stack, '}')
		case c == '[':
			stack = append(stack, ']')
		case c == '}' || c == ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(text, " \t\n,"))
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}

var missingCommaRe = regexp.MustCompile(`(["\d}\]]|true|false|null)(\s*\n\s*)"`)

// insertMissingCommas adds the comma between a value and the key that
// follows it on the next line.
func insertMissingCommas(text string) string {
	return missingCommaRe.ReplaceAllString(text, `$1,$2"`)
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func asStringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		var out []string
		for _, item := range t {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	default:
		return nil
	}
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "yes" || s == "1"
	case float64:
		return t != 0
	default:
		return false
	}
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
