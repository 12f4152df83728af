// Package analyzer extracts structural facts and metrics from source code.
//
// Structural extraction is tree-sitter based and available for a subset of
// languages. Every other accepted language, and any input whose syntax tree
// has errors, falls back to line metrics only and is marked Degraded.
package analyzer

import (
	"context"
	"fmt"
	"math"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"k8s.io/klog/v2"

	"github.com/helmcode/codescribe/pkg/model"
)

// structure collects what the language extractors find in one syntax tree.
type structure struct {
	functions []model.FunctionInfo
	classes   []model.ClassInfo
	exports   []string
	imports   []model.ImportInfo

	exported map[string]bool
}

func (s *structure) addExport(name string) {
	if name == "" {
		return
	}
	if s.exported == nil {
		s.exported = make(map[string]bool)
	}
	if s.exported[name] {
		return
	}
	s.exported[name] = true
	s.exports = append(s.exports, name)
}

// Analyze inspects code written in language. It never fails: unparseable or
// unsupported input yields a degraded analysis with line metrics only. The
// result depends on the inputs alone.
func Analyze(code, language string) model.Analysis {
	name, _ := NormalizeLanguage(language)
	spec := specFor(name)

	result := model.Analysis{
		Language:  spec.name,
		Functions: []model.FunctionInfo{},
		Classes:   []model.ClassInfo{},
		Exports:   []string{},
		Imports:   []model.ImportInfo{},
	}
	countLines(code, spec.comments, &result.Metrics)

	cyclomatic := 1
	st, paths, depth, ok := parseStructure(code, spec)
	if ok {
		if st.functions != nil {
			result.Functions = st.functions
		}
		if st.classes != nil {
			result.Classes = st.classes
		}
		if st.exports != nil {
			result.Exports = st.exports
		}
		if st.imports != nil {
			result.Imports = st.imports
		}
		cyclomatic += paths
		result.Metrics.MaxNestingDepth = depth
	} else {
		result.Degraded = true
	}
	result.CyclomaticComplexity = cyclomatic

	finalize(&result)
	return result
}

// parseStructure runs the language extractor over a fresh syntax tree. Any
// panic from the binding or an extractor is reported as a failed parse.
func parseStructure(code string, spec *languageSpec) (st structure, paths, depth int, ok bool) {
	if !spec.structural() {
		return structure{}, 0, 0, false
	}
	defer func() {
		if r := recover(); r != nil {
			klog.V(2).InfoS("Structural analysis panicked", "language", spec.name, "panic", r)
			st, paths, depth, ok = structure{}, 0, 0, false
		}
	}()

	src := []byte(code)
	for _, grammar := range spec.grammars {
		tree, err := parse(src, grammar())
		if err != nil {
			klog.V(2).InfoS("Parse failed", "language", spec.name, "err", err)
			continue
		}
		root := tree.RootNode()
		if root.HasError() {
			tree.Close()
			continue
		}
		spec.extract(root, src, &st)
		paths, depth = measure(root, spec, 0)
		tree.Close()
		return st, paths, depth, true
	}
	return structure{}, 0, 0, false
}

func parse(src []byte, lang *sitter.Language) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)
	return parser.ParseCtx(context.Background(), nil, src)
}

// measure counts decision points and the deepest block nesting below node.
func measure(node *sitter.Node, spec *languageSpec, depth int) (paths, maxDepth int) {
	t := node.Type()
	// Java labels both case and default as switch_label.
	if spec.decisions[t] && (t != "switch_label" || hasToken(node, "case")) {
		paths++
	}
	if t == "binary_expression" && len(spec.logicalOps) > 0 {
		if op := node.ChildByFieldName("operator"); op != nil && spec.logicalOps[op.Type()] {
			paths++
		}
	}
	if spec.blocks[t] {
		depth++
	}
	maxDepth = depth

	for i := 0; i < int(node.NamedChildCount()); i++ {
		p, d := measure(node.NamedChild(i), spec, depth)
		paths += p
		if d > maxDepth {
			maxDepth = d
		}
	}
	return paths, maxDepth
}

// finalize derives ratios, the maintainability index and the complexity
// bucket from the raw counts already in a.
func finalize(a *model.Analysis) {
	m := &a.Metrics
	if total := m.CodeLines + m.CommentLines; total > 0 {
		m.CommentRatio = round(float64(m.CommentLines)/float64(total), 4)
	}

	var units, lines, params int
	for _, f := range a.Functions {
		units++
		lines += f.EndLine - f.StartLine + 1
		params += f.Params
	}
	for _, c := range a.Classes {
		for _, meth := range c.Methods {
			units++
			lines += meth.EndLine - meth.StartLine + 1
			params += meth.Params
		}
	}
	if units > 0 {
		m.AvgFunctionLength = round(float64(lines)/float64(units), 2)
		m.AvgParams = round(float64(params)/float64(units), 2)
	}

	m.MaintainabilityIndex = maintainabilityIndex(a.CyclomaticComplexity, m.CodeLines, m.CommentRatio)
	m.MaintainabilityIndexText = fmt.Sprintf("%.1f", m.MaintainabilityIndex)

	a.Complexity = classify(a)
}

// maintainabilityIndex uses the SEI variant with the comment term, clamped
// to [0, 171].
func maintainabilityIndex(cyclomatic, codeLines int, commentRatio float64) float64 {
	loc := math.Max(float64(codeLines), 1)
	mi := 171 - 0.23*float64(cyclomatic) - 16.2*math.Log(loc) + 50*math.Sin(math.Sqrt(2.4*commentRatio))
	mi = math.Max(0, math.Min(171, mi))
	return round(mi, 1)
}

func classify(a *model.Analysis) model.Complexity {
	if a.Degraded {
		return model.ComplexitySimple
	}
	units := len(a.Functions) + a.MethodCount()
	switch {
	case a.CyclomaticComplexity > 20 || a.Metrics.CodeLines > 300 || units > 20:
		return model.ComplexityComplex
	case a.CyclomaticComplexity > 5 || a.Metrics.CodeLines > 50 || units > 5:
		return model.ComplexityMedium
	default:
		return model.ComplexitySimple
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Node helpers shared by the language extractors.

func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func endLine(n *sitter.Node) int {
	return int(n.EndPoint().Row) + 1
}

func content(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(src)
}

// hasToken reports whether an anonymous keyword or punctuation token is a
// direct child of n.
func hasToken(n *sitter.Node, token string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !c.IsNamed() && c.Type() == token {
			return true
		}
	}
	return false
}

func firstNamedChild(n *sitter.Node, types ...string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		for _, t := range types {
			if c.Type() == t {
				return c
			}
		}
	}
	return nil
}

// countParams counts the named children of a parameter list, ignoring
// comments.
func countParams(params *sitter.Node) int {
	if params == nil {
		return 0
	}
	n := 0
	for i := 0; i < int(params.NamedChildCount()); i++ {
		if params.NamedChild(i).Type() != "comment" {
			n++
		}
	}
	return n
}

// nameOf returns the name held by an identifier or string node. Only
// string nodes are unquoted.
func nameOf(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	if n.Type() == "string" || n.Type() == "interpreted_string_literal" || n.Type() == "raw_string_literal" {
		return unquote(n.Content(src))
	}
	return n.Content(src)
}

// unquote strips the quotes of a string literal, including a Python string
// prefix such as r or b.
func unquote(s string) string {
	if p := strings.TrimLeft(s, "rbuRBUfF"); p != s && p != "" && strings.ContainsRune(`"'`, rune(p[0])) {
		s = p
	}
	for _, q := range []string{`"""`, `'''`, `"`, `'`, "`"} {
		if len(s) >= 2*len(q) && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}
