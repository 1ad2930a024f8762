package extract

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/zolll23/ragdoll/internal/parser"
)

// PHPExtractor extracts code entities from a parsed PHP AST.
type PHPExtractor struct {
	result    *parser.ParseResult
	namespace string
}

// NewPHPExtractor creates an extractor for the given parse result.
func NewPHPExtractor(result *parser.ParseResult) *PHPExtractor {
	return &PHPExtractor{result: result}
}

// classLikeTypes are declarations treated as class entities.
var classLikeTypes = []string{
	"class_declaration",
	"interface_declaration",
	"trait_declaration",
}

// ExtractAll extracts classes, interfaces, traits, enums, methods, functions
// and constants. Enum declarations produce a class entity plus one constant
// entity per case.
func (e *PHPExtractor) ExtractAll() []Entity {
	e.namespace = e.findNamespace()

	var entities []Entity

	for _, nodeType := range classLikeTypes {
		for _, node := range e.result.FindNodesByType(nodeType) {
			class := e.extractClass(node)
			if class == nil {
				continue
			}
			entities = append(entities, *class)
			entities = append(entities, e.extractClassMembers(node, class.Name)...)
		}
	}

	for _, node := range e.result.FindNodesByType("enum_declaration") {
		enum := e.extractClass(node)
		if enum == nil {
			continue
		}
		entities = append(entities, *enum)
		entities = append(entities, e.extractEnumCases(node, enum.Name)...)
		entities = append(entities, e.extractClassMembers(node, enum.Name)...)
	}

	for _, node := range e.result.FindNodesByType("function_definition") {
		fn := e.extractFunction(node)
		if fn != nil {
			entities = append(entities, *fn)
		}
	}

	for _, node := range e.result.FindNodesByType("const_declaration") {
		if e.ownerOf(node) != "" {
			continue // class constants handled via extractClassMembers
		}
		entities = append(entities, e.extractConstDeclaration(node, "")...)
	}

	return entities
}

// findNamespace returns the file's namespace, or empty string.
func (e *PHPExtractor) findNamespace() string {
	nodes := e.result.FindNodesByType("namespace_definition")
	if len(nodes) == 0 {
		return ""
	}
	if name := nodes[0].ChildByFieldName("name"); name != nil {
		return e.result.NodeText(name)
	}
	return ""
}

// qualify prepends the namespace to a class name.
func (e *PHPExtractor) qualify(name string) string {
	if e.namespace == "" {
		return name
	}
	return e.namespace + `\` + name
}

// ownerOf returns the name of the class-like declaration enclosing a node,
// or empty string for top-level nodes.
func (e *PHPExtractor) ownerOf(node *sitter.Node) string {
	for n := node.Parent(); n != nil; n = n.Parent() {
		switch n.Type() {
		case "class_declaration", "interface_declaration", "trait_declaration", "enum_declaration":
			if name := n.ChildByFieldName("name"); name != nil {
				return e.result.NodeText(name)
			}
		}
	}
	return ""
}

// extractClass extracts a class-like declaration (class, interface, trait,
// enum) as a class entity.
func (e *PHPExtractor) extractClass(node *sitter.Node) *Entity {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := e.result.NodeText(nameNode)
	start, end := getLineRange(node)

	return &Entity{
		Kind:       ClassEntity,
		Name:       name,
		FQN:        e.qualify(name),
		File:       e.result.FilePath,
		StartLine:  start,
		EndLine:    end,
		Visibility: VisibilityPublic,
		Code:       e.result.NodeText(node),
		Comment:    precedingComment(node, e.result.Source),
		Language:   parser.PHP,
	}
}

// extractClassMembers extracts methods and constants declared in a class body.
func (e *PHPExtractor) extractClassMembers(classNode *sitter.Node, owner string) []Entity {
	var entities []Entity

	body := classNode.ChildByFieldName("body")
	if body == nil {
		return nil
	}

	for i := uint32(0); i < body.NamedChildCount(); i++ {
		member := body.NamedChild(int(i))
		switch member.Type() {
		case "method_declaration":
			if m := e.extractMethod(member, owner); m != nil {
				entities = append(entities, *m)
			}
		case "const_declaration":
			entities = append(entities, e.extractConstDeclaration(member, owner)...)
		}
	}

	return entities
}

// extractMethod extracts a method declaration.
func (e *PHPExtractor) extractMethod(node *sitter.Node, owner string) *Entity {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := e.result.NodeText(nameNode)
	start, end := getLineRange(node)

	return &Entity{
		Kind:       MethodEntity,
		Name:       name,
		FQN:        e.qualify(owner) + "::" + name,
		File:       e.result.FilePath,
		StartLine:  start,
		EndLine:    end,
		Visibility: phpVisibility(node, e.result.Source),
		Code:       e.result.NodeText(node),
		Comment:    precedingComment(node, e.result.Source),
		Language:   parser.PHP,
	}
}

// extractFunction extracts a top-level function definition.
func (e *PHPExtractor) extractFunction(node *sitter.Node) *Entity {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := e.result.NodeText(nameNode)
	start, end := getLineRange(node)

	return &Entity{
		Kind:       FunctionEntity,
		Name:       name,
		FQN:        name,
		File:       e.result.FilePath,
		StartLine:  start,
		EndLine:    end,
		Visibility: VisibilityPublic,
		Code:       e.result.NodeText(node),
		Comment:    precedingComment(node, e.result.Source),
		Language:   parser.PHP,
	}
}

// extractConstDeclaration extracts the constants in a const declaration.
// Class constants carry an owner-qualified FQN; top-level ones do not.
func (e *PHPExtractor) extractConstDeclaration(node *sitter.Node, owner string) []Entity {
	var entities []Entity

	comment := precedingComment(node, e.result.Source)
	start, end := getLineRange(node)

	for _, element := range findChildrenByType(node, "const_element") {
		nameNode := element.NamedChild(0)
		if nameNode == nil {
			continue
		}
		name := e.result.NodeText(nameNode)

		fqn := name
		if owner != "" {
			fqn = e.qualify(owner) + "::" + name
		}

		entities = append(entities, Entity{
			Kind:       ConstEntity,
			Name:       name,
			FQN:        fqn,
			File:       e.result.FilePath,
			StartLine:  start,
			EndLine:    end,
			Visibility: VisibilityPublic,
			Code:       e.result.NodeText(node),
			Comment:    comment,
			Language:   parser.PHP,
		})
	}

	return entities
}

// extractEnumCases extracts enum cases as constant entities with FQN
// "Enum::CASE", matching how class constants are qualified.
func (e *PHPExtractor) extractEnumCases(enumNode *sitter.Node, owner string) []Entity {
	var entities []Entity

	body := enumNode.ChildByFieldName("body")
	if body == nil {
		return nil
	}

	for i := uint32(0); i < body.NamedChildCount(); i++ {
		member := body.NamedChild(int(i))
		if member.Type() != "enum_case" {
			continue
		}
		nameNode := member.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := e.result.NodeText(nameNode)
		start, end := getLineRange(member)

		entities = append(entities, Entity{
			Kind:       ConstEntity,
			Name:       name,
			FQN:        e.qualify(owner) + "::" + name,
			File:       e.result.FilePath,
			StartLine:  start,
			EndLine:    end,
			Visibility: VisibilityPublic,
			Code:       e.result.NodeText(member),
			Comment:    precedingComment(member, e.result.Source),
			Language:   parser.PHP,
		})
	}

	return entities
}

// phpVisibility reads the visibility modifier from a declaration node.
// PHP members without an explicit modifier are public.
func phpVisibility(node *sitter.Node, src []byte) Visibility {
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child.Type() != "visibility_modifier" {
			continue
		}
		switch child.Content(src) {
		case "private":
			return VisibilityPrivate
		case "protected":
			return VisibilityProtected
		}
		return VisibilityPublic
	}
	return VisibilityPublic
}

// PHP dependency patterns. PHP extraction is pattern-based throughout:
// entity code fragments are rarely parseable standalone (no <?php prefix,
// no class wrapper), so a syntactic scan is the reliable path.
var (
	phpUsePattern        = regexp.MustCompile(`use\s+([^;]+);`)
	phpExtendsPattern    = regexp.MustCompile(`extends\s+([^\s{]+)`)
	phpImplementsPattern = regexp.MustCompile(`implements\s+([^{]+)`)
	phpObjectCallPattern = regexp.MustCompile(`\$(\w+)->(\w+)\s*\(`)
	phpStaticCallPattern = regexp.MustCompile(`([A-Z]\w*(?:\\[A-Z]\w*)*)::(\w+)\s*\(`)
	phpSelfCallPattern   = regexp.MustCompile(`(?:self|static|parent)::(\w+)\s*\(`)
	phpNewPattern        = regexp.MustCompile(`new\s+([A-Z]\w*(?:\\[A-Z]\w*)*)\s*\(`)
)

// phpDependencies extracts dependency edges from PHP code.
func phpDependencies(code string) []Dependency {
	set := newDepSet()

	for _, m := range phpUsePattern.FindAllStringSubmatch(code, -1) {
		use := strings.TrimSpace(m[1])
		if idx := strings.Index(use, " as "); idx >= 0 {
			use = strings.TrimSpace(use[:idx])
		}
		set.add(use, RelationImport)
	}

	for _, m := range phpExtendsPattern.FindAllStringSubmatch(code, -1) {
		set.add(m[1], RelationExtends)
	}

	for _, m := range phpImplementsPattern.FindAllStringSubmatch(code, -1) {
		for _, iface := range strings.Split(m[1], ",") {
			set.add(iface, RelationImplements)
		}
	}

	for _, m := range phpObjectCallPattern.FindAllStringSubmatch(code, -1) {
		set.add(m[2], RelationCalls)
	}

	for _, m := range phpStaticCallPattern.FindAllStringSubmatch(code, -1) {
		set.add(m[1]+"::"+m[2], RelationCalls)
	}

	for _, m := range phpSelfCallPattern.FindAllStringSubmatch(code, -1) {
		set.add(m[1], RelationCalls)
	}

	for _, m := range phpNewPattern.FindAllStringSubmatch(code, -1) {
		set.add(m[1], RelationImport)
	}

	return set.deps
}
