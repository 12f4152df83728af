package analyzer

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/helmcode/codescribe/pkg/model"
)

var javaClassTypes = map[string]bool{
	"class_declaration":     true,
	"interface_declaration": true,
	"enum_declaration":      true,
	"record_declaration":    true,
}

type javaExtractor struct {
	src []byte
	out *structure
}

func extractJava(root *sitter.Node, src []byte, out *structure) {
	e := &javaExtractor{src: src, out: out}
	e.walk(root, -1)
}

func (e *javaExtractor) text(n *sitter.Node) string {
	return content(n, e.src)
}

func (e *javaExtractor) walk(n *sitter.Node, class int) {
	switch t := n.Type(); {
	case javaClassTypes[t]:
		name := e.text(n.ChildByFieldName("name"))
		e.out.classes = append(e.out.classes, model.ClassInfo{
			Name:      name,
			Methods:   []model.MethodInfo{},
			StartLine: line(n),
			EndLine:   endLine(n),
		})
		class = len(e.out.classes) - 1
		if e.modifier(n, "public") {
			e.out.addExport(name)
		}
	case t == "method_declaration" || t == "constructor_declaration":
		if class >= 0 {
			e.addMethod(class, n)
		}
	case t == "lambda_expression":
		params := n.ChildByFieldName("parameters")
		count := 1
		if params != nil && params.Type() != "identifier" {
			count = countParams(params)
		}
		e.out.functions = append(e.out.functions, model.FunctionInfo{
			Name:      anonymous,
			Params:    count,
			Anonymous: true,
			StartLine: line(n),
			EndLine:   endLine(n),
		})
	case t == "import_declaration":
		e.addImport(n)
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		e.walk(n.NamedChild(i), class)
	}
}

func (e *javaExtractor) addMethod(class int, n *sitter.Node) {
	static := e.modifier(n, "static")
	kind := model.MethodInstance
	switch {
	case n.Type() == "constructor_declaration":
		kind = model.MethodConstructor
	case static:
		kind = model.MethodStatic
	}
	c := &e.out.classes[class]
	c.Methods = append(c.Methods, model.MethodInfo{
		Name:      e.text(n.ChildByFieldName("name")),
		Kind:      kind,
		Params:    countParams(n.ChildByFieldName("parameters")),
		Static:    static,
		StartLine: line(n),
		EndLine:   endLine(n),
	})
}

func (e *javaExtractor) modifier(n *sitter.Node, keyword string) bool {
	mods := firstNamedChild(n, "modifiers")
	return mods != nil && hasToken(mods, keyword)
}

func (e *javaExtractor) addImport(n *sitter.Node) {
	id := firstNamedChild(n, "scoped_identifier", "identifier")
	if id == nil {
		return
	}
	source := e.text(id)
	name := source
	if id.Type() == "scoped_identifier" {
		name = e.text(id.ChildByFieldName("name"))
	}
	if firstNamedChild(n, "asterisk") != nil {
		name = "*"
	}
	e.out.imports = append(e.out.imports, model.ImportInfo{Source: source, Names: []string{name}})
}
