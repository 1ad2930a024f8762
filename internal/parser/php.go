package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"
)

// newPHPParser builds a tree-sitter parser with the PHP grammar. The
// grammar expects a leading <?php tag; sources without one parse as
// inline HTML and yield no entities.
func newPHPParser() (*sitter.Parser, error) {
	p := sitter.NewParser()
	p.SetLanguage(php.GetLanguage())
	return p, nil
}
