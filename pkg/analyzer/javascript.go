package analyzer

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/helmcode/codescribe/pkg/model"
)

const anonymous = "anonymous"

var jsFunctionTypes = map[string]bool{
	"function_declaration":           true,
	"generator_function_declaration": true,
	"function_expression":            true,
	"function":                       true,
	"generator_function":             true,
	"arrow_function":                 true,
}

var jsClassTypes = map[string]bool{
	"class_declaration":          true,
	"abstract_class_declaration": true,
	"class":                      true,
}

// jsExtractor walks JavaScript and TypeScript trees; the two grammars share
// node names for everything extracted here.
type jsExtractor struct {
	src []byte
	out *structure
}

func extractJavaScript(root *sitter.Node, src []byte, out *structure) {
	e := &jsExtractor{src: src, out: out}
	e.walk(root, -1)
}

func (e *jsExtractor) text(n *sitter.Node) string {
	return content(n, e.src)
}

// walk visits n and its named descendants. class is the index of the
// innermost enclosing class, or -1.
func (e *jsExtractor) walk(n *sitter.Node, class int) {
	t := n.Type()
	switch {
	case jsClassTypes[t]:
		class = e.addClass(n)
	case t == "method_definition":
		if p := n.Parent(); p != nil && p.Type() == "class_body" && class >= 0 {
			e.addMethod(class, n)
		} else {
			e.addFunction(n)
		}
	case jsFunctionTypes[t]:
		e.addFunction(n)
	case t == "import_statement":
		e.addImport(n)
	case t == "export_statement":
		e.addExport(n)
	case t == "call_expression":
		e.addRequire(n)
	case t == "assignment_expression":
		e.addCommonJSExport(n)
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		e.walk(n.NamedChild(i), class)
	}
}

func (e *jsExtractor) addFunction(n *sitter.Node) {
	name, anon := e.bindingName(n)
	params := countParams(n.ChildByFieldName("parameters"))
	if params == 0 && n.ChildByFieldName("parameter") != nil {
		// x => x
		params = 1
	}
	e.out.functions = append(e.out.functions, model.FunctionInfo{
		Name:      name,
		Params:    params,
		Async:     hasToken(n, "async"),
		Generator: n.Type() == "generator_function_declaration" || n.Type() == "generator_function" || hasToken(n, "*"),
		Anonymous: anon,
		StartLine: line(n),
		EndLine:   endLine(n),
	})
}

func (e *jsExtractor) addClass(n *sitter.Node) int {
	name, anon := e.bindingName(n)
	e.out.classes = append(e.out.classes, model.ClassInfo{
		Name:      name,
		Methods:   []model.MethodInfo{},
		Anonymous: anon,
		StartLine: line(n),
		EndLine:   endLine(n),
	})
	return len(e.out.classes) - 1
}

func (e *jsExtractor) addMethod(class int, n *sitter.Node) {
	name := e.text(n.ChildByFieldName("name"))
	static := hasToken(n, "static")
	async := hasToken(n, "async")

	kind := model.MethodInstance
	switch {
	case name == "constructor":
		kind = model.MethodConstructor
	case hasToken(n, "get"):
		kind = model.MethodGetter
	case hasToken(n, "set"):
		kind = model.MethodSetter
	case static:
		kind = model.MethodStatic
	case async:
		kind = model.MethodAsync
	}

	c := &e.out.classes[class]
	c.Methods = append(c.Methods, model.MethodInfo{
		Name:      name,
		Kind:      kind,
		Params:    countParams(n.ChildByFieldName("parameters")),
		Async:     async,
		Static:    static,
		StartLine: line(n),
		EndLine:   endLine(n),
	})
}

// bindingName resolves the name of a function or class: its own name, else
// the variable, property or field it is assigned to.
func (e *jsExtractor) bindingName(n *sitter.Node) (string, bool) {
	if name := n.ChildByFieldName("name"); name != nil {
		return e.text(name), false
	}

	p := n.Parent()
	for p != nil && p.Type() == "parenthesized_expression" {
		p = p.Parent()
	}
	if p == nil {
		return anonymous, true
	}

	switch p.Type() {
	case "variable_declarator":
		if name := p.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
			return e.text(name), false
		}
	case "pair":
		if key := p.ChildByFieldName("key"); key != nil {
			return nameOf(key, e.src), false
		}
	case "assignment_expression":
		if left := p.ChildByFieldName("left"); left != nil {
			switch left.Type() {
			case "identifier":
				return e.text(left), false
			case "member_expression":
				if prop := left.ChildByFieldName("property"); prop != nil {
					return e.text(prop), false
				}
			}
		}
	case "field_definition", "public_field_definition":
		for _, field := range []string{"property", "name"} {
			if name := p.ChildByFieldName(field); name != nil {
				return e.text(name), false
			}
		}
	}
	return anonymous, true
}

func (e *jsExtractor) addImport(n *sitter.Node) {
	source := n.ChildByFieldName("source")
	if source == nil {
		return
	}
	info := model.ImportInfo{Source: nameOf(source, e.src), Names: []string{}}

	if clause := firstNamedChild(n, "import_clause"); clause != nil {
		for i := 0; i < int(clause.NamedChildCount()); i++ {
			c := clause.NamedChild(i)
			switch c.Type() {
			case "identifier":
				info.Names = append(info.Names, e.text(c))
			case "namespace_import":
				if id := firstNamedChild(c, "identifier"); id != nil {
					info.Names = append(info.Names, e.text(id))
				}
			case "named_imports":
				for j := 0; j < int(c.NamedChildCount()); j++ {
					spec := c.NamedChild(j)
					if spec.Type() != "import_specifier" {
						continue
					}
					if name := spec.ChildByFieldName("name"); name != nil {
						info.Names = append(info.Names, nameOf(name, e.src))
					}
				}
			}
		}
	}
	e.out.imports = append(e.out.imports, info)
}

// addRequire records CommonJS require("x") calls as imports.
func (e *jsExtractor) addRequire(n *sitter.Node) {
	fn := n.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" || e.text(fn) != "require" {
		return
	}
	args := n.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return
	}
	first := args.NamedChild(0)
	if first.Type() != "string" {
		return
	}
	info := model.ImportInfo{Source: nameOf(first, e.src), Names: []string{}}

	if p := n.Parent(); p != nil && p.Type() == "variable_declarator" {
		if name := p.ChildByFieldName("name"); name != nil {
			switch name.Type() {
			case "identifier":
				info.Names = append(info.Names, e.text(name))
			case "object_pattern":
				for i := 0; i < int(name.NamedChildCount()); i++ {
					c := name.NamedChild(i)
					switch c.Type() {
					case "shorthand_property_identifier_pattern":
						info.Names = append(info.Names, e.text(c))
					case "pair_pattern":
						if key := c.ChildByFieldName("key"); key != nil {
							info.Names = append(info.Names, nameOf(key, e.src))
						}
					}
				}
			}
		}
	}
	e.out.imports = append(e.out.imports, info)
}

func (e *jsExtractor) addExport(n *sitter.Node) {
	if decl := n.ChildByFieldName("declaration"); decl != nil {
		switch decl.Type() {
		case "lexical_declaration", "variable_declaration":
			for i := 0; i < int(decl.NamedChildCount()); i++ {
				d := decl.NamedChild(i)
				if d.Type() != "variable_declarator" {
					continue
				}
				if name := d.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
					e.out.addExport(e.text(name))
				}
			}
			return
		}
		if name := decl.ChildByFieldName("name"); name != nil {
			e.out.addExport(e.text(name))
			return
		}
		if hasToken(n, "default") {
			e.out.addExport("default")
		}
		return
	}

	if clause := firstNamedChild(n, "export_clause"); clause != nil {
		for i := 0; i < int(clause.NamedChildCount()); i++ {
			spec := clause.NamedChild(i)
			if spec.Type() != "export_specifier" {
				continue
			}
			if alias := spec.ChildByFieldName("alias"); alias != nil {
				e.out.addExport(nameOf(alias, e.src))
			} else if name := spec.ChildByFieldName("name"); name != nil {
				e.out.addExport(nameOf(name, e.src))
			}
		}
		return
	}

	if value := n.ChildByFieldName("value"); value != nil {
		e.out.addExport(e.valueName(value))
		return
	}

	if ns := firstNamedChild(n, "namespace_export"); ns != nil {
		if id := firstNamedChild(ns, "identifier", "string"); id != nil {
			e.out.addExport(nameOf(id, e.src))
			return
		}
	}
	if hasToken(n, "*") {
		e.out.addExport("*")
	}
}

// valueName labels an exported expression by the identifier it declares or
// refers to, falling back to "default".
func (e *jsExtractor) valueName(v *sitter.Node) string {
	for v.Type() == "parenthesized_expression" && v.NamedChildCount() > 0 {
		v = v.NamedChild(0)
	}
	switch v.Type() {
	case "identifier":
		return e.text(v)
	case "new_expression":
		if ctor := v.ChildByFieldName("constructor"); ctor != nil && ctor.Type() == "identifier" {
			return e.text(ctor)
		}
	}
	if name := v.ChildByFieldName("name"); name != nil {
		return e.text(name)
	}
	return "default"
}

// addCommonJSExport handles module.exports = ... and exports.name = ...
func (e *jsExtractor) addCommonJSExport(n *sitter.Node) {
	left := n.ChildByFieldName("left")
	if left == nil || left.Type() != "member_expression" {
		return
	}
	right := n.ChildByFieldName("right")

	if e.text(left) == "module.exports" {
		if right == nil {
			return
		}
		if right.Type() == "object" {
			for i := 0; i < int(right.NamedChildCount()); i++ {
				c := right.NamedChild(i)
				switch c.Type() {
				case "pair":
					if key := c.ChildByFieldName("key"); key != nil {
						e.out.addExport(nameOf(key, e.src))
					}
				case "shorthand_property_identifier":
					e.out.addExport(e.text(c))
				case "method_definition":
					e.out.addExport(e.text(c.ChildByFieldName("name")))
				}
			}
			return
		}
		e.out.addExport(e.valueName(right))
		return
	}

	object := left.ChildByFieldName("object")
	prop := left.ChildByFieldName("property")
	if object == nil || prop == nil {
		return
	}
	if o := e.text(object); o == "exports" || o == "module.exports" {
		e.out.addExport(e.text(prop))
	}
}
