package analyzer

import (
	"path"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/helmcode/codescribe/pkg/model"
)

// goExtractor treats struct and interface types as classes and attaches
// methods to them through their receiver type.
type goExtractor struct {
	src   []byte
	out   *structure
	types map[string]int
}

func extractGo(root *sitter.Node, src []byte, out *structure) {
	e := &goExtractor{src: src, out: out, types: make(map[string]int)}
	e.walk(root)
}

func (e *goExtractor) text(n *sitter.Node) string {
	return content(n, e.src)
}

func (e *goExtractor) walk(n *sitter.Node) {
	switch n.Type() {
	case "function_declaration":
		name := e.text(n.ChildByFieldName("name"))
		e.out.functions = append(e.out.functions, model.FunctionInfo{
			Name:      name,
			Params:    goParams(n.ChildByFieldName("parameters")),
			StartLine: line(n),
			EndLine:   endLine(n),
		})
		if exported(name) {
			e.out.addExport(name)
		}
	case "method_declaration":
		e.addMethod(n)
	case "func_literal":
		e.out.functions = append(e.out.functions, model.FunctionInfo{
			Name:      anonymous,
			Params:    goParams(n.ChildByFieldName("parameters")),
			Anonymous: true,
			StartLine: line(n),
			EndLine:   endLine(n),
		})
	case "type_spec":
		e.addType(n)
	case "import_spec":
		e.addImport(n)
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		e.walk(n.NamedChild(i))
	}
}

func (e *goExtractor) addType(n *sitter.Node) {
	typ := n.ChildByFieldName("type")
	if typ == nil || (typ.Type() != "struct_type" && typ.Type() != "interface_type") {
		return
	}
	name := e.text(n.ChildByFieldName("name"))
	idx := e.class(name)
	c := &e.out.classes[idx]
	c.StartLine = line(n)
	c.EndLine = endLine(n)
	if exported(name) {
		e.out.addExport(name)
	}
}

// class returns the index of the class named name, creating it when a
// method is seen before its type declaration.
func (e *goExtractor) class(name string) int {
	if idx, ok := e.types[name]; ok {
		return idx
	}
	e.out.classes = append(e.out.classes, model.ClassInfo{Name: name, Methods: []model.MethodInfo{}})
	idx := len(e.out.classes) - 1
	e.types[name] = idx
	return idx
}

func (e *goExtractor) addMethod(n *sitter.Node) {
	receiver := receiverType(n.ChildByFieldName("receiver"))
	if receiver == nil {
		return
	}
	idx := e.class(e.text(receiver))
	c := &e.out.classes[idx]
	c.Methods = append(c.Methods, model.MethodInfo{
		Name:      e.text(n.ChildByFieldName("name")),
		Kind:      model.MethodInstance,
		Params:    goParams(n.ChildByFieldName("parameters")),
		StartLine: line(n),
		EndLine:   endLine(n),
	})
}

// receiverType finds the type_identifier inside a receiver list, looking
// through pointers and type arguments.
func receiverType(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "type_identifier" {
		return n
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if found := receiverType(n.NamedChild(i)); found != nil {
			return found
		}
	}
	return nil
}

// goParams counts declared parameters; "a, b int" is two.
func goParams(list *sitter.Node) int {
	if list == nil {
		return 0
	}
	count := 0
	for i := 0; i < int(list.NamedChildCount()); i++ {
		decl := list.NamedChild(i)
		switch decl.Type() {
		case "parameter_declaration":
			names := 0
			for j := 0; j < int(decl.NamedChildCount()); j++ {
				if decl.NamedChild(j).Type() == "identifier" {
					names++
				}
			}
			if names == 0 {
				names = 1
			}
			count += names
		case "variadic_parameter_declaration":
			count++
		}
	}
	return count
}

func (e *goExtractor) addImport(n *sitter.Node) {
	p := nameOf(n.ChildByFieldName("path"), e.src)
	name := path.Base(p)
	if alias := n.ChildByFieldName("name"); alias != nil {
		name = e.text(alias)
	}
	e.out.imports = append(e.out.imports, model.ImportInfo{Source: p, Names: []string{name}})
}

func exported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
