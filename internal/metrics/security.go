package metrics

import (
	"regexp"
	"strings"

	"github.com/zolll23/ragdoll/internal/parser"
)

var (
	sqlKeywordRe = regexp.MustCompile(`(?i)\b(select|insert|update|delete)\b`)

	pySQLConcatRe  = regexp.MustCompile(`(["'].*?["']\s*\+|%\s*\(|\.format\s*\(|f["'])`)
	phpSQLInterpRe = regexp.MustCompile(`("(?:[^"\\]|\\.)*\$\w|['"]\s*\.\s*\$)`)

	phpXSSRe = regexp.MustCompile(`(?i)(echo|print)\s+.*\$_(GET|POST|REQUEST|COOKIE)`)
	pyXSSRe  = regexp.MustCompile(`(render_template_string\s*\(|\|\s*safe\b|Markup\s*\()`)

	secretPatterns = []struct {
		kind string
		re   *regexp.Regexp
	}{
		{"password", regexp.MustCompile(`(?i)\b(password|passwd|pwd)\s*[=:]\s*['"][^'"]{4,}['"]`)},
		{"api_key", regexp.MustCompile(`(?i)\b(api[_-]?key|apikey)\s*[=:]\s*['"][^'"]{8,}['"]`)},
		{"secret", regexp.MustCompile(`(?i)\b(secret|secret[_-]?key)\s*[=:]\s*['"][^'"]{8,}['"]`)},
		{"token", regexp.MustCompile(`(?i)\b(token|auth[_-]?token|access[_-]?token)\s*[=:]\s*['"][^'"]{20,}['"]`)},
		{"private_key", regexp.MustCompile(`-----BEGIN\s+(RSA\s+|EC\s+)?PRIVATE KEY-----`)},
	}
)

// securityIssues pattern-matches the code for injection and XSS
// candidates. These are heuristics for the analyst to confirm, not
// verdicts.
func securityIssues(code string, lang parser.Language) []SecurityIssue {
	var issues []SecurityIssue
	for i, line := range strings.Split(code, "\n") {
		if sqlKeywordRe.MatchString(line) {
			interpRe := pySQLConcatRe
			if lang == parser.PHP {
				interpRe = phpSQLInterpRe
			}
			if interpRe.MatchString(line) {
				issues = append(issues, SecurityIssue{
					Type:        "sql_injection",
					Severity:    "high",
					Line:        i + 1,
					Description: "SQL statement built from string interpolation",
					Suggestion:  "use parameterized queries",
				})
			}
		}
		xssRe := pyXSSRe
		if lang == parser.PHP {
			xssRe = phpXSSRe
		}
		if xssRe.MatchString(line) {
			issues = append(issues, SecurityIssue{
				Type:        "xss",
				Severity:    "medium",
				Line:        i + 1,
				Description: "unescaped output of user-controlled data",
				Suggestion:  "escape output before rendering",
			})
		}
	}
	return issues
}

// hardcodedSecrets reports where credential-shaped literals appear.
// Only the kind and line are recorded so the value never leaves the
// source file.
func hardcodedSecrets(code string) []SecretFinding {
	var findings []SecretFinding
	for i, line := range strings.Split(code, "\n") {
		for _, p := range secretPatterns {
			if p.re.MatchString(line) {
				findings = append(findings, SecretFinding{Kind: p.kind, Line: i + 1})
				break
			}
		}
	}
	return findings
}
