package analyzer

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/helmcode/codescribe/pkg/model"
)

type pyExtractor struct {
	src []byte
	out *structure
}

func extractPython(root *sitter.Node, src []byte, out *structure) {
	e := &pyExtractor{src: src, out: out}
	e.walk(root, -1)
	e.collectExports(root)
}

func (e *pyExtractor) text(n *sitter.Node) string {
	return content(n, e.src)
}

// walk visits n. owner is the index of the class whose body directly
// contains n, or -1.
func (e *pyExtractor) walk(n *sitter.Node, owner int) {
	switch n.Type() {
	case "class_definition":
		idx := e.addClass(n)
		if body := n.ChildByFieldName("body"); body != nil {
			for i := 0; i < int(body.NamedChildCount()); i++ {
				e.walk(body.NamedChild(i), idx)
			}
		}
		return
	case "decorated_definition":
		def := n.ChildByFieldName("definition")
		if def == nil {
			break
		}
		if def.Type() == "function_definition" {
			e.addDefinition(def, owner, e.decorators(n))
			e.walkChildren(def)
			return
		}
		e.walk(def, owner)
		return
	case "function_definition":
		e.addDefinition(n, owner, nil)
		e.walkChildren(n)
		return
	case "lambda":
		e.out.functions = append(e.out.functions, model.FunctionInfo{
			Name:      anonymous,
			Params:    countParams(n.ChildByFieldName("parameters")),
			Anonymous: true,
			StartLine: line(n),
			EndLine:   endLine(n),
		})
	case "import_statement":
		e.addImport(n)
	case "import_from_statement":
		e.addFromImport(n)
	}
	e.walkChildren(n)
}

func (e *pyExtractor) walkChildren(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		e.walk(n.NamedChild(i), -1)
	}
}

func (e *pyExtractor) addClass(n *sitter.Node) int {
	e.out.classes = append(e.out.classes, model.ClassInfo{
		Name:      e.text(n.ChildByFieldName("name")),
		Methods:   []model.MethodInfo{},
		StartLine: line(n),
		EndLine:   endLine(n),
	})
	return len(e.out.classes) - 1
}

// decorators returns decorator names without the leading @ or call
// arguments, e.g. "property" or "value.setter".
func (e *pyExtractor) decorators(n *sitter.Node) []string {
	var names []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "decorator" {
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(e.text(c), "@"))
		if idx := strings.Index(name, "("); idx >= 0 {
			name = name[:idx]
		}
		names = append(names, name)
	}
	return names
}

func (e *pyExtractor) addDefinition(def *sitter.Node, owner int, decorators []string) {
	name := e.text(def.ChildByFieldName("name"))
	params := def.ChildByFieldName("parameters")
	count := countParams(params)
	async := hasToken(def, "async")

	if owner < 0 {
		e.out.functions = append(e.out.functions, model.FunctionInfo{
			Name:      name,
			Params:    count,
			Async:     async,
			Generator: containsYield(def.ChildByFieldName("body")),
			StartLine: line(def),
			EndLine:   endLine(def),
		})
		return
	}

	if params != nil && params.NamedChildCount() > 0 {
		if first := params.NamedChild(0); first.Type() == "identifier" {
			if s := e.text(first); s == "self" || s == "cls" {
				count--
			}
		}
	}

	kind := model.MethodInstance
	static := false
	switch {
	case name == "__init__":
		kind = model.MethodConstructor
	case hasDecorator(decorators, "property"):
		kind = model.MethodGetter
	case hasDecoratorSuffix(decorators, ".setter"):
		kind = model.MethodSetter
	case hasDecorator(decorators, "staticmethod") || hasDecorator(decorators, "classmethod"):
		kind = model.MethodStatic
		static = true
	case async:
		kind = model.MethodAsync
	}

	c := &e.out.classes[owner]
	c.Methods = append(c.Methods, model.MethodInfo{
		Name:      name,
		Kind:      kind,
		Params:    count,
		Async:     async,
		Static:    static,
		StartLine: line(def),
		EndLine:   endLine(def),
	})
}

func hasDecorator(decorators []string, name string) bool {
	for _, d := range decorators {
		if d == name {
			return true
		}
	}
	return false
}

func hasDecoratorSuffix(decorators []string, suffix string) bool {
	for _, d := range decorators {
		if strings.HasSuffix(d, suffix) {
			return true
		}
	}
	return false
}

// containsYield reports whether body yields, not counting nested functions
// or classes.
func containsYield(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "yield":
		return true
	case "function_definition", "lambda", "class_definition":
		return false
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if containsYield(n.NamedChild(i)) {
			return true
		}
	}
	return false
}

func (e *pyExtractor) addImport(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "dotted_name":
			name := e.text(c)
			e.out.imports = append(e.out.imports, model.ImportInfo{Source: name, Names: []string{name}})
		case "aliased_import":
			e.out.imports = append(e.out.imports, model.ImportInfo{
				Source: e.text(c.ChildByFieldName("name")),
				Names:  []string{e.text(c.ChildByFieldName("alias"))},
			})
		}
	}
}

func (e *pyExtractor) addFromImport(n *sitter.Node) {
	module := n.ChildByFieldName("module_name")
	if module == nil {
		return
	}
	info := model.ImportInfo{Source: e.text(module), Names: []string{}}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.StartByte() == module.StartByte() && c.EndByte() == module.EndByte() {
			continue
		}
		switch c.Type() {
		case "dotted_name":
			info.Names = append(info.Names, e.text(c))
		case "aliased_import":
			info.Names = append(info.Names, e.text(c.ChildByFieldName("name")))
		case "wildcard_import":
			info.Names = append(info.Names, "*")
		}
	}
	e.out.imports = append(e.out.imports, info)
}

// collectExports uses __all__ when the module defines it, else every public
// top-level function and class.
func (e *pyExtractor) collectExports(root *sitter.Node) {
	if names, ok := e.dunderAll(root); ok {
		for _, name := range names {
			e.out.addExport(name)
		}
		return
	}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		c := root.NamedChild(i)
		if c.Type() == "decorated_definition" {
			c = c.ChildByFieldName("definition")
			if c == nil {
				continue
			}
		}
		if c.Type() != "function_definition" && c.Type() != "class_definition" {
			continue
		}
		if name := e.text(c.ChildByFieldName("name")); name != "" && !strings.HasPrefix(name, "_") {
			e.out.addExport(name)
		}
	}
}

func (e *pyExtractor) dunderAll(root *sitter.Node) ([]string, bool) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
			continue
		}
		assign := stmt.NamedChild(0)
		if assign.Type() != "assignment" {
			continue
		}
		left := assign.ChildByFieldName("left")
		right := assign.ChildByFieldName("right")
		if left == nil || right == nil || e.text(left) != "__all__" {
			continue
		}
		if right.Type() != "list" && right.Type() != "tuple" {
			continue
		}
		var names []string
		for j := 0; j < int(right.NamedChildCount()); j++ {
			if s := right.NamedChild(j); s.Type() == "string" {
				names = append(names, nameOf(s, e.src))
			}
		}
		return names, true
	}
	return nil, false
}
