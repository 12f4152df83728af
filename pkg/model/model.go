package model

// Complexity is the coarse size/complexity bucket of analyzed code.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// MethodKind tags a class method.
type MethodKind string

const (
	MethodConstructor MethodKind = "constructor"
	MethodGetter      MethodKind = "getter"
	MethodSetter      MethodKind = "setter"
	MethodStatic      MethodKind = "static"
	MethodAsync       MethodKind = "async"
	MethodInstance    MethodKind = "instance"
)

type Analysis struct {
	Language             string         `json:"language" yaml:"language"`
	Functions            []FunctionInfo `json:"functions" yaml:"functions"`
	Classes              []ClassInfo    `json:"classes" yaml:"classes"`
	Exports              []string       `json:"exports" yaml:"exports"`
	Imports              []ImportInfo   `json:"imports" yaml:"imports"`
	Complexity           Complexity     `json:"complexity" yaml:"complexity"`
	CyclomaticComplexity int            `json:"cyclomaticComplexity" yaml:"cyclomaticComplexity"`
	Metrics              Metrics        `json:"metrics" yaml:"metrics"`
	Degraded             bool           `json:"degraded" yaml:"degraded"`
}

type FunctionInfo struct {
	Name      string `json:"name" yaml:"name"`
	Params    int    `json:"params" yaml:"params"`
	Async     bool   `json:"async" yaml:"async"`
	Generator bool   `json:"generator" yaml:"generator"`
	Anonymous bool   `json:"anonymous" yaml:"anonymous"`
	StartLine int    `json:"startLine" yaml:"startLine"`
	EndLine   int    `json:"endLine" yaml:"endLine"`
}

type ClassInfo struct {
	Name      string       `json:"name" yaml:"name"`
	Methods   []MethodInfo `json:"methods" yaml:"methods"`
	Anonymous bool         `json:"anonymous" yaml:"anonymous"`
	StartLine int          `json:"startLine" yaml:"startLine"`
	EndLine   int          `json:"endLine" yaml:"endLine"`
}

type MethodInfo struct {
	Name      string     `json:"name" yaml:"name"`
	Kind      MethodKind `json:"kind" yaml:"kind"`
	Params    int        `json:"params" yaml:"params"`
	Async     bool       `json:"async" yaml:"async"`
	Static    bool       `json:"static" yaml:"static"`
	StartLine int        `json:"startLine" yaml:"startLine"`
	EndLine   int        `json:"endLine" yaml:"endLine"`
}

type ImportInfo struct {
	Source string   `json:"source" yaml:"source"`
	Names  []string `json:"names" yaml:"names"`
}

type Metrics struct {
	TotalLines               int     `json:"totalLines" yaml:"totalLines"`
	CodeLines                int     `json:"codeLines" yaml:"codeLines"`
	CommentLines             int     `json:"commentLines" yaml:"commentLines"`
	BlankLines               int     `json:"blankLines" yaml:"blankLines"`
	CommentRatio             float64 `json:"commentRatio" yaml:"commentRatio"`
	AvgFunctionLength        float64 `json:"avgFunctionLength" yaml:"avgFunctionLength"`
	AvgParams                float64 `json:"avgParams" yaml:"avgParams"`
	MaxNestingDepth          int     `json:"maxNestingDepth" yaml:"maxNestingDepth"`
	MaintainabilityIndex     float64 `json:"maintainabilityIndex" yaml:"maintainabilityIndex"`
	MaintainabilityIndexText string  `json:"maintainabilityIndexText" yaml:"maintainabilityIndexText"`
}

// MethodCount returns the number of methods across all classes.
func (a *Analysis) MethodCount() int {
	n := 0
	for _, c := range a.Classes {
		n += len(c.Methods)
	}
	return n
}

// DocumentableNames returns the named functions and classes, deduplicated, in
// source order.
func (a *Analysis) DocumentableNames() []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}
	for _, f := range a.Functions {
		if !f.Anonymous {
			add(f.Name)
		}
	}
	for _, c := range a.Classes {
		if !c.Anonymous {
			add(c.Name)
		}
	}
	return names
}
