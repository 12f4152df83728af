package analyzer

import (
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// commentSyntax describes how a language marks comments, for line counting.
type commentSyntax struct {
	line       []string
	blockOpen  string
	blockClose string
	docstrings bool
}

var (
	cStyle      = commentSyntax{line: []string{"//"}, blockOpen: "/*", blockClose: "*/"}
	phpStyle    = commentSyntax{line: []string{"//", "#"}, blockOpen: "/*", blockClose: "*/"}
	rubyStyle   = commentSyntax{line: []string{"#"}, blockOpen: "=begin", blockClose: "=end"}
	pythonStyle = commentSyntax{line: []string{"#"}, docstrings: true}
)

// languageSpec binds a language to its comment syntax and, for languages with
// structural support, to tree-sitter grammars and the node types that count
// as decision points and blocks.
type languageSpec struct {
	name     string
	comments commentSyntax
	// grammars are tried in order; the first tree without errors wins.
	grammars  []func() *sitter.Language
	extract   func(root *sitter.Node, src []byte, out *structure)
	decisions map[string]bool
	// logicalOps are operator tokens that add a path when found on a
	// binary_expression.
	logicalOps map[string]bool
	blocks     map[string]bool
}

func (s *languageSpec) structural() bool {
	return len(s.grammars) > 0 && s.extract != nil
}

var jsDecisions = map[string]bool{
	"if_statement":       true,
	"for_statement":      true,
	"for_in_statement":   true,
	"while_statement":    true,
	"do_statement":       true,
	"switch_case":        true,
	"catch_clause":       true,
	"ternary_expression": true,
}

var languages = map[string]*languageSpec{
	"javascript": {
		name:       "javascript",
		comments:   cStyle,
		grammars:   []func() *sitter.Language{javascript.GetLanguage},
		extract:    extractJavaScript,
		decisions:  jsDecisions,
		logicalOps: map[string]bool{"&&": true, "||": true},
		blocks:     map[string]bool{"statement_block": true},
	},
	"typescript": {
		name:       "typescript",
		comments:   cStyle,
		grammars:   []func() *sitter.Language{typescript.GetLanguage, tsx.GetLanguage},
		extract:    extractJavaScript,
		decisions:  jsDecisions,
		logicalOps: map[string]bool{"&&": true, "||": true},
		blocks:     map[string]bool{"statement_block": true},
	},
	"python": {
		name:     "python",
		comments: pythonStyle,
		grammars: []func() *sitter.Language{python.GetLanguage},
		extract:  extractPython,
		decisions: map[string]bool{
			"if_statement":           true,
			"elif_clause":            true,
			"for_statement":          true,
			"while_statement":        true,
			"except_clause":          true,
			"boolean_operator":       true,
			"conditional_expression": true,
			"case_clause":            true,
			"for_in_clause":          true,
			"if_clause":              true,
		},
		blocks: map[string]bool{"block": true},
	},
	"go": {
		name:     "go",
		comments: cStyle,
		grammars: []func() *sitter.Language{golang.GetLanguage},
		extract:  extractGo,
		decisions: map[string]bool{
			"if_statement":       true,
			"for_statement":      true,
			"expression_case":    true,
			"type_case":          true,
			"communication_case": true,
		},
		logicalOps: map[string]bool{"&&": true, "||": true},
		blocks:     map[string]bool{"block": true},
	},
	"java": {
		name:     "java",
		comments: cStyle,
		grammars: []func() *sitter.Language{java.GetLanguage},
		extract:  extractJava,
		decisions: map[string]bool{
			"if_statement":           true,
			"for_statement":          true,
			"enhanced_for_statement": true,
			"while_statement":        true,
			"do_statement":           true,
			"switch_label":           true,
			"catch_clause":           true,
			"ternary_expression":     true,
		},
		logicalOps: map[string]bool{"&&": true, "||": true},
		blocks:     map[string]bool{"block": true},
	},
	"c":      {name: "c", comments: cStyle},
	"cpp":    {name: "cpp", comments: cStyle},
	"csharp": {name: "csharp", comments: cStyle},
	"rust":   {name: "rust", comments: cStyle},
	"kotlin": {name: "kotlin", comments: cStyle},
	"swift":  {name: "swift", comments: cStyle},
	"php":    {name: "php", comments: phpStyle},
	"ruby":   {name: "ruby", comments: rubyStyle},
}

var languageAliases = map[string]string{
	"js":       "javascript",
	"jsx":      "javascript",
	"node":     "javascript",
	"mjs":      "javascript",
	"cjs":      "javascript",
	"ts":       "typescript",
	"tsx":      "typescript",
	"py":       "python",
	"python3":  "python",
	"python 2": "python",
	"golang":   "go",
	"c++":      "cpp",
	"cxx":      "cpp",
	"c#":       "csharp",
	"cs":       "csharp",
	"rs":       "rust",
	"rb":       "ruby",
	"kt":       "kotlin",
}

// NormalizeLanguage maps a language name or alias to its canonical name.
// The second result reports whether the language is accepted at all.
func NormalizeLanguage(language string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(language))
	if alias, ok := languageAliases[name]; ok {
		name = alias
	}
	_, ok := languages[name]
	return name, ok
}

// SupportedLanguages returns the canonical names of all accepted languages.
func SupportedLanguages() []string {
	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasStructuralSupport reports whether functions and classes are extracted
// for the language, as opposed to line metrics only.
func HasStructuralSupport(language string) bool {
	name, ok := NormalizeLanguage(language)
	return ok && languages[name].structural()
}

func specFor(name string) *languageSpec {
	if spec, ok := languages[name]; ok {
		return spec
	}
	return &languageSpec{name: name, comments: cStyle}
}
