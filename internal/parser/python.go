package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// newPythonParser builds a tree-sitter parser with the Python grammar.
// Covers .py and .pyi sources; the extract package walks the resulting
// tree by node type (class_definition, function_definition, assignment).
func newPythonParser() (*sitter.Parser, error) {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return p, nil
}
