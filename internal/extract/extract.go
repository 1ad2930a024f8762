package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/zolll23/ragdoll/internal/parser"
)

// File extracts all entities from source code in the given language.
// On a structural parse failure it falls back to the regex extractor rather
// than returning an error; a single unparseable file never aborts a run.
func File(source []byte, lang parser.Language, path string) ([]Entity, error) {
	p, err := parser.NewParser(lang)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	result, err := p.Parse(source)
	if err != nil {
		return fallbackExtract(string(source), lang, path), nil
	}
	defer result.Close()

	result.FilePath = path

	var entities []Entity
	switch lang {
	case parser.Python:
		entities = NewPythonExtractor(result).ExtractAll()
	case parser.PHP:
		entities = NewPHPExtractor(result).ExtractAll()
	}

	if len(entities) == 0 && result.HasErrors() {
		return fallbackExtract(string(source), lang, path), nil
	}
	return entities, nil
}

// Dependencies extracts dependency edges from one entity's code.
// Python uses an AST walk with a regex fallback on syntax errors; PHP uses
// pattern scanning throughout. The result is duplicate-free per
// (name, relation) pair.
func Dependencies(code string, lang parser.Language) []Dependency {
	switch lang {
	case parser.Python:
		return pythonDependencies(code)
	case parser.PHP:
		return phpDependencies(code)
	default:
		return nil
	}
}

// findChildByType finds the first child node of the given type.
func findChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child.Type() == nodeType {
			return child
		}
	}
	return nil
}

// findChildrenByType finds all direct child nodes of the given type.
func findChildrenByType(node *sitter.Node, nodeType string) []*sitter.Node {
	var children []*sitter.Node
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child.Type() == nodeType {
			children = append(children, child)
		}
	}
	return children
}

// getLineRange returns the start and end line numbers for a node.
func getLineRange(node *sitter.Node) (int, int) {
	// tree-sitter lines are 0-based, we want 1-based
	start := int(node.StartPoint().Row) + 1
	end := int(node.EndPoint().Row) + 1
	return start, end
}

// ancestorOfType returns the nearest ancestor with the given node type.
func ancestorOfType(node *sitter.Node, nodeType string) *sitter.Node {
	for n := node.Parent(); n != nil; n = n.Parent() {
		if n.Type() == nodeType {
			return n
		}
	}
	return nil
}

// precedingComment collects the comment block immediately above a node.
// Consecutive comment siblings are joined top-down; a blank line or any
// non-comment sibling ends the block.
func precedingComment(node *sitter.Node, src []byte) string {
	var lines []string
	prev := node.PrevNamedSibling()
	expectedRow := node.StartPoint().Row
	for prev != nil && prev.Type() == "comment" {
		if prev.EndPoint().Row+1 < expectedRow {
			break
		}
		text := strings.TrimSpace(prev.Content(src))
		lines = append([]string{text}, lines...)
		expectedRow = prev.StartPoint().Row
		prev = prev.PrevNamedSibling()
	}
	return strings.Join(lines, "\n")
}

// dedent strips the common leading indentation from a code fragment.
// Entity code extracted from a class body keeps its original indentation,
// which would be a syntax error if re-parsed standalone.
func dedent(code string) string {
	lines := strings.Split(code, "\n")
	if len(lines) == 0 {
		return code
	}
	first := lines[0]
	if first == "" || (first[0] != ' ' && first[0] != '\t') {
		return code
	}

	minIndent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if minIndent < 0 || indent < minIndent {
			minIndent = indent
		}
	}
	if minIndent <= 0 {
		return code
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		if len(line) > minIndent {
			out[i] = line[minIndent:]
		} else {
			out[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(out, "\n")
}
