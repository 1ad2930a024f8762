package extract

import (
	"regexp"
	"strings"

	"github.com/zolll23/ragdoll/internal/parser"
)

// Fallback extraction: line-oriented scanners used when tree-sitter reports
// a broken parse. They recover classes, functions/methods and constants with
// block ends detected by indentation (Python) or brace counting (PHP).

var (
	pyClassPattern  = regexp.MustCompile(`^(\s*)class\s+(\w+)`)
	pyDefPattern    = regexp.MustCompile(`^(\s*)(?:async\s+)?def\s+(\w+)`)
	pyConstPattern  = regexp.MustCompile(`^([A-Z][A-Z0-9_]*)\s*=`)
	pyImportPattern = regexp.MustCompile(`(?m)^import\s+(\S+)`)
	pyFromPattern   = regexp.MustCompile(`(?m)^from\s+(\S+)\s+import`)
	pyBasesPattern  = regexp.MustCompile(`class\s+\w+\s*\(([^)]+)\)`)

	phpClassLinePattern = regexp.MustCompile(`^\s*(?:abstract\s+|final\s+)?(?:class|interface|trait|enum)\s+(\w+)`)
	phpFuncLinePattern  = regexp.MustCompile(`^\s*(?:(public|protected|private)\s+)?(?:static\s+)?function\s+(\w+)`)
	phpConstLinePattern = regexp.MustCompile(`^\s*(?:(?:public|protected|private)\s+)?const\s+(\w+)\s*=`)
)

// fallbackExtract recovers what it can from source that failed structural
// parsing. Entities produced here have the same shape as parsed ones; only
// fidelity (exact block ends, comments) is reduced.
func fallbackExtract(source string, lang parser.Language, path string) []Entity {
	switch lang {
	case parser.Python:
		return fallbackPython(source, path)
	case parser.PHP:
		return fallbackPHP(source, path)
	default:
		return nil
	}
}

func fallbackPython(source, path string) []Entity {
	lines := strings.Split(source, "\n")
	var entities []Entity

	var currentClass string
	var classIndent int

	for i, line := range lines {
		if m := pyClassPattern.FindStringSubmatch(line); m != nil {
			indent := len(m[1])
			name := m[2]
			end := pythonBlockEnd(lines, i, indent)
			entities = append(entities, Entity{
				Kind:       ClassEntity,
				Name:       name,
				FQN:        name,
				File:       path,
				StartLine:  i + 1,
				EndLine:    end + 1,
				Visibility: pythonVisibility(name),
				Code:       strings.Join(lines[i:end+1], "\n"),
				Language:   parser.Python,
			})
			if indent == 0 {
				currentClass = name
				classIndent = indent
			}
			continue
		}

		if m := pyDefPattern.FindStringSubmatch(line); m != nil {
			indent := len(m[1])
			name := m[2]
			end := pythonBlockEnd(lines, i, indent)

			kind := FunctionEntity
			fqn := name
			if currentClass != "" && indent > classIndent {
				kind = MethodEntity
				fqn = currentClass + "." + name
			}

			entities = append(entities, Entity{
				Kind:       kind,
				Name:       name,
				FQN:        fqn,
				File:       path,
				StartLine:  i + 1,
				EndLine:    end + 1,
				Visibility: pythonVisibility(name),
				Code:       strings.Join(lines[i:end+1], "\n"),
				Language:   parser.Python,
			})
			continue
		}

		if m := pyConstPattern.FindStringSubmatch(line); m != nil {
			entities = append(entities, Entity{
				Kind:       ConstEntity,
				Name:       m[1],
				FQN:        m[1],
				File:       path,
				StartLine:  i + 1,
				EndLine:    i + 1,
				Visibility: VisibilityPublic,
				Code:       line,
				Language:   parser.Python,
			})
		}

		// A non-blank line at column zero ends the enclosing class scope.
		if currentClass != "" && strings.TrimSpace(line) != "" {
			indent := len(line) - len(strings.TrimLeft(line, " \t"))
			if indent == 0 && !pyClassPattern.MatchString(line) {
				currentClass = ""
			}
		}
	}

	return entities
}

// pythonBlockEnd finds the last line of an indentation-delimited block
// starting at line start with the given header indent.
func pythonBlockEnd(lines []string, start, indent int) int {
	end := start
	for i := start + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		lineIndent := len(lines[i]) - len(strings.TrimLeft(lines[i], " \t"))
		if lineIndent <= indent {
			break
		}
		end = i
	}
	return end
}

func fallbackPHP(source, path string) []Entity {
	lines := strings.Split(source, "\n")
	var entities []Entity

	var currentClass string
	var classEnd int

	for i, line := range lines {
		if m := phpClassLinePattern.FindStringSubmatch(line); m != nil {
			name := m[1]
			end := phpBlockEnd(lines, i)
			entities = append(entities, Entity{
				Kind:       ClassEntity,
				Name:       name,
				FQN:        name,
				File:       path,
				StartLine:  i + 1,
				EndLine:    end + 1,
				Visibility: VisibilityPublic,
				Code:       strings.Join(lines[i:end+1], "\n"),
				Language:   parser.PHP,
			})
			currentClass = name
			classEnd = end
			continue
		}

		if m := phpFuncLinePattern.FindStringSubmatch(line); m != nil {
			name := m[2]
			end := phpBlockEnd(lines, i)

			kind := FunctionEntity
			fqn := name
			visibility := VisibilityPublic
			if currentClass != "" && i <= classEnd {
				kind = MethodEntity
				fqn = currentClass + "::" + name
				switch m[1] {
				case "private":
					visibility = VisibilityPrivate
				case "protected":
					visibility = VisibilityProtected
				}
			}

			entities = append(entities, Entity{
				Kind:       kind,
				Name:       name,
				FQN:        fqn,
				File:       path,
				StartLine:  i + 1,
				EndLine:    end + 1,
				Visibility: visibility,
				Code:       strings.Join(lines[i:end+1], "\n"),
				Language:   parser.PHP,
			})
			continue
		}

		if m := phpConstLinePattern.FindStringSubmatch(line); m != nil {
			fqn := m[1]
			if currentClass != "" && i <= classEnd {
				fqn = currentClass + "::" + m[1]
			}
			entities = append(entities, Entity{
				Kind:       ConstEntity,
				Name:       m[1],
				FQN:        fqn,
				File:       path,
				StartLine:  i + 1,
				EndLine:    i + 1,
				Visibility: VisibilityPublic,
				Code:       line,
				Language:   parser.PHP,
			})
		}
	}

	return entities
}

// phpBlockEnd finds the last line of a brace-delimited block starting at
// line start. Returns start if no opening brace follows.
func phpBlockEnd(lines []string, start int) int {
	depth := 0
	opened := false
	for i := start; i < len(lines); i++ {
		for _, ch := range lines[i] {
			switch ch {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
				if opened && depth == 0 {
					return i
				}
			}
		}
		// Abstract/interface methods end at the semicolon before any brace.
		if !opened && strings.Contains(lines[i], ";") {
			return i
		}
	}
	return start
}

// pythonRegexDependencies is the fallback dependency scanner used when the
// code fragment has syntax errors: imports and base classes only.
func pythonRegexDependencies(code string) []Dependency {
	set := newDepSet()

	for _, m := range pyImportPattern.FindAllStringSubmatch(code, -1) {
		set.add(m[1], RelationImport)
	}
	for _, m := range pyFromPattern.FindAllStringSubmatch(code, -1) {
		set.add(m[1], RelationImport)
	}
	for _, m := range pyBasesPattern.FindAllStringSubmatch(code, -1) {
		for _, base := range strings.Split(m[1], ",") {
			base = strings.TrimSpace(base)
			if base != "" && base != "object" {
				set.add(base, RelationExtends)
			}
		}
	}

	return set.deps
}
