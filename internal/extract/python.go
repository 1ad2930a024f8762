package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/zolll23/ragdoll/internal/parser"
)

// PythonExtractor extracts code entities from a parsed Python AST.
type PythonExtractor struct {
	result *parser.ParseResult
}

// NewPythonExtractor creates an extractor for the given parse result.
func NewPythonExtractor(result *parser.ParseResult) *PythonExtractor {
	return &PythonExtractor{result: result}
}

// ExtractAll extracts classes, methods, module functions and constants.
func (e *PythonExtractor) ExtractAll() []Entity {
	var entities []Entity

	classNodes := e.result.FindNodesByType("class_definition")
	for _, node := range classNodes {
		class := e.extractClass(node)
		if class == nil {
			continue
		}
		entities = append(entities, *class)
		entities = append(entities, e.extractClassMembers(node, class.Name)...)
	}

	funcNodes := e.result.FindNodesByType("function_definition")
	for _, node := range funcNodes {
		if ancestorOfType(node, "class_definition") != nil {
			continue
		}
		fn := e.extractFunction(node, "", FunctionEntity)
		if fn != nil {
			entities = append(entities, *fn)
		}
	}

	entities = append(entities, e.extractModuleConstants()...)

	return entities
}

// extractClass extracts a class definition.
func (e *PythonExtractor) extractClass(node *sitter.Node) *Entity {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := e.result.NodeText(nameNode)

	// A decorated class spans from its first decorator.
	span := node
	if parent := node.Parent(); parent != nil && parent.Type() == "decorated_definition" {
		span = parent
	}
	start, end := getLineRange(span)

	return &Entity{
		Kind:       ClassEntity,
		Name:       name,
		FQN:        name,
		File:       e.result.FilePath,
		StartLine:  start,
		EndLine:    end,
		Visibility: pythonVisibility(name),
		Code:       e.result.NodeText(span),
		Comment:    precedingComment(span, e.result.Source),
		Language:   parser.Python,
	}
}

// extractClassMembers extracts methods and class-level constants from a
// class body. Nested classes contribute their own entities via the top-level
// class scan; their members are attributed to the nested class, not owner.
func (e *PythonExtractor) extractClassMembers(classNode *sitter.Node, owner string) []Entity {
	var entities []Entity

	body := classNode.ChildByFieldName("body")
	if body == nil {
		return nil
	}

	for i := uint32(0); i < body.NamedChildCount(); i++ {
		stmt := body.NamedChild(int(i))
		switch stmt.Type() {
		case "function_definition":
			if m := e.extractFunction(stmt, owner, MethodEntity); m != nil {
				entities = append(entities, *m)
			}
		case "decorated_definition":
			if fn := findChildByType(stmt, "function_definition"); fn != nil {
				if m := e.extractFunction(fn, owner, MethodEntity); m != nil {
					m.StartLine, m.EndLine = getLineRange(stmt)
					m.Code = e.result.NodeText(stmt)
					entities = append(entities, *m)
				}
			}
		case "expression_statement":
			entities = append(entities, e.extractConstants(stmt, owner)...)
		}
	}

	return entities
}

// extractFunction extracts a function or method definition.
func (e *PythonExtractor) extractFunction(node *sitter.Node, owner string, kind EntityKind) *Entity {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := e.result.NodeText(nameNode)

	fqn := name
	if owner != "" {
		fqn = owner + "." + name
	}

	span := node
	if parent := node.Parent(); parent != nil && parent.Type() == "decorated_definition" {
		span = parent
	}
	start, end := getLineRange(span)

	return &Entity{
		Kind:       kind,
		Name:       name,
		FQN:        fqn,
		File:       e.result.FilePath,
		StartLine:  start,
		EndLine:    end,
		Visibility: pythonVisibility(name),
		Code:       e.result.NodeText(span),
		Comment:    precedingComment(span, e.result.Source),
		Language:   parser.Python,
	}
}

// extractModuleConstants extracts UPPER_CASE assignments at module level.
func (e *PythonExtractor) extractModuleConstants() []Entity {
	var entities []Entity

	for _, node := range e.result.FindNodesByType("expression_statement") {
		if ancestorOfType(node, "class_definition") != nil ||
			ancestorOfType(node, "function_definition") != nil {
			continue
		}
		entities = append(entities, e.extractConstants(node, "")...)
	}

	return entities
}

// extractConstants extracts constant entities from an expression statement
// holding an assignment. Multi-line values (dicts, lists, parenthesized
// expressions) are covered by the assignment node's own span.
func (e *PythonExtractor) extractConstants(stmt *sitter.Node, owner string) []Entity {
	var entities []Entity

	for i := uint32(0); i < stmt.NamedChildCount(); i++ {
		assign := stmt.NamedChild(int(i))
		if assign.Type() != "assignment" {
			continue
		}
		left := assign.ChildByFieldName("left")
		if left == nil || left.Type() != "identifier" {
			continue
		}
		name := e.result.NodeText(left)
		if !IsConstantName(name) {
			continue
		}

		fqn := name
		if owner != "" {
			fqn = owner + "." + name
		}
		start, end := getLineRange(assign)

		entities = append(entities, Entity{
			Kind:       ConstEntity,
			Name:       name,
			FQN:        fqn,
			File:       e.result.FilePath,
			StartLine:  start,
			EndLine:    end,
			Visibility: VisibilityPublic,
			Code:       e.result.NodeText(assign),
			Comment:    precedingComment(stmt, e.result.Source),
			Language:   parser.Python,
		})
	}

	return entities
}

// pythonVisibility derives visibility from the Python naming convention:
// a double-underscore prefix is private, a single underscore protected.
func pythonVisibility(name string) Visibility {
	if strings.HasPrefix(name, "__") && !strings.HasSuffix(name, "__") {
		return VisibilityPrivate
	}
	if strings.HasPrefix(name, "_") {
		return VisibilityProtected
	}
	return VisibilityPublic
}

// pythonBuiltins is the call blocklist: built-in functions that carry no
// dependency information.
var pythonBuiltins = map[string]bool{
	"print": true, "len": true, "str": true, "int": true, "float": true,
	"bool": true, "list": true, "dict": true, "set": true, "tuple": true,
}

// pythonDependencies extracts dependency edges from Python code using a
// tree-sitter walk, falling back to regex scanning on syntax errors.
func pythonDependencies(code string) []Dependency {
	code = dedent(code)

	p, err := parser.NewParser(parser.Python)
	if err != nil {
		return pythonRegexDependencies(code)
	}
	defer p.Close()

	result, err := p.Parse([]byte(code))
	if err != nil {
		return pythonRegexDependencies(code)
	}
	defer result.Close()

	if result.HasErrors() {
		return pythonRegexDependencies(code)
	}

	set := newDepSet()
	src := result.Source

	result.WalkNodes(func(node *sitter.Node) bool {
		switch node.Type() {
		case "import_statement":
			for _, name := range findChildrenByType(node, "dotted_name") {
				set.add(rootModule(name.Content(src)), RelationImport)
			}
			for _, alias := range findChildrenByType(node, "aliased_import") {
				if name := alias.ChildByFieldName("name"); name != nil {
					set.add(rootModule(name.Content(src)), RelationImport)
				}
			}

		case "import_from_statement":
			module := node.ChildByFieldName("module_name")
			if module == nil {
				return true
			}
			moduleName := module.Content(src)
			set.add(rootModule(moduleName), RelationImport)
			for _, name := range findChildrenByType(node, "dotted_name") {
				if name == module {
					continue
				}
				set.add(moduleName+"."+name.Content(src), RelationImport)
			}

		case "class_definition":
			if args := node.ChildByFieldName("superclasses"); args != nil {
				for i := uint32(0); i < args.NamedChildCount(); i++ {
					base := args.NamedChild(int(i))
					switch base.Type() {
					case "identifier", "attribute":
						name := base.Content(src)
						if name != "object" {
							set.add(name, RelationExtends)
						}
					}
				}
			}

		case "call":
			fn := node.ChildByFieldName("function")
			if fn == nil {
				return true
			}
			switch fn.Type() {
			case "identifier":
				name := fn.Content(src)
				if !pythonBuiltins[name] {
					set.add(name, RelationCalls)
				}
			case "attribute":
				obj := fn.ChildByFieldName("object")
				attr := fn.ChildByFieldName("attribute")
				if obj == nil || attr == nil {
					return true
				}
				receiver := obj.Content(src)
				root := rootModule(receiver)
				if root == "self" || root == "cls" || root == "super" ||
					strings.HasPrefix(receiver, "super(") {
					return true
				}
				set.add(receiver+"."+attr.Content(src), RelationCalls)
			}
		}
		return true
	})

	return set.deps
}

// rootModule returns the first segment of a dotted module path.
func rootModule(path string) string {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i]
	}
	return path
}
