// Package extract provides code entity and dependency extraction from parsed
// AST trees.
//
// Entities are the structural units ragdoll indexes: classes, methods,
// functions and constants (including enum cases). Each language has its own
// extractor built on the tree-sitter AST, with a regex fallback for source
// that fails structural parsing.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zolll23/ragdoll/internal/parser"
)

// EntityKind represents the type of code entity.
type EntityKind string

const (
	// ClassEntity represents a class, interface, trait or enum declaration.
	ClassEntity EntityKind = "class"
	// MethodEntity represents a function defined inside a class.
	MethodEntity EntityKind = "method"
	// FunctionEntity represents a module-level function.
	FunctionEntity EntityKind = "function"
	// ConstEntity represents a module or class constant, or an enum case.
	ConstEntity EntityKind = "constant"
)

// Visibility represents the visibility level of an entity.
type Visibility string

const (
	// VisibilityPublic is visible outside the declaring scope.
	VisibilityPublic Visibility = "public"
	// VisibilityProtected is visible to the declaring class and subclasses.
	VisibilityProtected Visibility = "protected"
	// VisibilityPrivate is visible only to the declaring scope.
	VisibilityPrivate Visibility = "private"
)

// Entity represents an extracted code entity.
type Entity struct {
	// Kind is the type of entity (class, method, function, constant).
	Kind EntityKind
	// Name is the bare entity name.
	Name string
	// FQN is the fully qualified name. Methods and class constants encode
	// their owner: "Owner.name" for Python, "Ns\Owner::name" for PHP.
	FQN string
	// File is the source file path.
	File string
	// StartLine is the starting line number (1-based, inclusive).
	StartLine int
	// EndLine is the ending line number (1-based, inclusive).
	EndLine int
	// Visibility is public, protected or private.
	Visibility Visibility
	// Code is the raw source text of the entity.
	Code string
	// Comment is the comment block immediately preceding the entity, if any.
	Comment string
	// Language is the source language.
	Language parser.Language
}

// DedupKey returns the content-shape key used to deduplicate entities across
// re-indexing runs. Constants dedup on (name, file, kind) because their line
// positions shift freely; everything else includes the line range.
func (e *Entity) DedupKey() string {
	if e.Kind == ConstEntity {
		return fmt.Sprintf("%s|%s|%s", e.Name, e.File, e.Kind)
	}
	return fmt.Sprintf("%s|%s|%d|%d|%s", e.Name, e.File, e.StartLine, e.EndLine, e.Kind)
}

// Relation describes how one entity depends on a named target.
type Relation string

const (
	// RelationImport is an import/use statement or an instantiation.
	RelationImport Relation = "import"
	// RelationExtends is base-class inheritance.
	RelationExtends Relation = "extends"
	// RelationImplements is interface implementation.
	RelationImplements Relation = "implements"
	// RelationCalls is a function or method call.
	RelationCalls Relation = "calls"
)

// Dependency is a directed edge from an entity to a named target.
type Dependency struct {
	// Name is the target name, possibly qualified ("obj.method", "Cls::m").
	Name string
	// Relation is the kind of dependency.
	Relation Relation
}

// depSet collects dependencies while dropping (name, relation) duplicates.
type depSet struct {
	deps []Dependency
	seen map[Dependency]bool
}

func newDepSet() *depSet {
	return &depSet{seen: make(map[Dependency]bool)}
}

func (s *depSet) add(name string, rel Relation) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	d := Dependency{Name: name, Relation: rel}
	if s.seen[d] {
		return
	}
	s.seen[d] = true
	s.deps = append(s.deps, d)
}

// upperConstPattern matches conventional constant names (UPPER_SNAKE_CASE).
var upperConstPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// IsConstantName reports whether a name follows the constant naming
// convention used to recognize constant assignments.
func IsConstantName(name string) bool {
	return upperConstPattern.MatchString(name)
}
