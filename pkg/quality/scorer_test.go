package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmcode/codescribe/pkg/analyzer"
	"github.com/helmcode/codescribe/pkg/model"
)

const completeReadme = "# Calculator\n\n" +
	"## Overview\n\nSmall arithmetic helpers for the browser.\n\n" +
	"## Installation\n\n```bash\nnpm install calc\n```\n\n" +
	"## Usage\n\n```js\nconst c = new Calculator();\nadd(1, 2);\n```\n\n" +
	"## API\n\n" +
	"- `add(a, b)` returns the sum\n" +
	"- `Calculator` keeps a running total\n" +
	"- every function is pure\n"

func calculatorAnalysis() model.Analysis {
	return model.Analysis{
		Functions: []model.FunctionInfo{{Name: "add", Params: 2}, {Name: "anonymous", Anonymous: true}},
		Classes:   []model.ClassInfo{{Name: "Calculator"}},
	}
}

func TestScoreComplete(t *testing.T) {
	s := Score(completeReadme, calculatorAnalysis())

	assert.Equal(t, 100, s.Score)
	assert.Equal(t, model.GradeA, s.Grade)
	assert.Empty(t, s.Suggestions)
	assert.NotNil(t, s.Suggestions)
	assert.Equal(t, 20, s.Breakdown.Overview.Points)
	assert.Equal(t, 15, s.Breakdown.Installation.Points)
	assert.Equal(t, 20, s.Breakdown.Usage.Points)
	assert.Equal(t, 25, s.Breakdown.APICoverage.Points)
	assert.Equal(t, 20, s.Breakdown.Structure.Points)
	assert.Contains(t, s.Summary, "covers every criterion")
}

func TestScoreEmpty(t *testing.T) {
	a := analyzer.Analyze("function add(a,b){return a+b;}", "javascript")
	require.Len(t, a.Functions, 1)
	require.Equal(t, 1, a.CyclomaticComplexity)

	for _, doc := range []string{"", "   \n\t\n"} {
		s := Score(doc, a)
		assert.Equal(t, 0, s.Score)
		assert.Equal(t, model.GradeF, s.Grade)
		assert.Equal(t, "Documentation is empty", s.Summary)
		require.Len(t, s.Suggestions, 5)
		assert.Contains(t, strings.ToLower(s.Suggestions[0]), "add an overview")
		assert.Equal(t, 25, s.Breakdown.APICoverage.MaxPoints)
	}
}

func TestScorePartial(t *testing.T) {
	doc := "This library adds two numbers together and returns the sum quickly.\n\nCall add(1, 2) to use it.\n"
	s := Score(doc, calculatorAnalysis())

	assert.Equal(t, 10, s.Breakdown.Overview.Points)
	assert.Equal(t, 0, s.Breakdown.Installation.Points)
	assert.Equal(t, 0, s.Breakdown.Usage.Points)
	// add is mentioned, Calculator is not: round(25 * 0.5).
	assert.Equal(t, 13, s.Breakdown.APICoverage.Points)
	assert.Equal(t, 0, s.Breakdown.Structure.Points)
	assert.Equal(t, 23, s.Score)
	assert.Equal(t, model.GradeF, s.Grade)
	assert.Equal(t, []string{suggestOverview, suggestInstallation, suggestUsage, suggestAPI, suggestStructure}, s.Suggestions)
}

func TestSuggestionsOnlyForWeakCriteria(t *testing.T) {
	doc := "# Overview\n\nAdds numbers.\n\n# Setup\n\nRun it.\n\n# Examples\n\n```js\nadd(1, 2)\n```\n"
	s := Score(doc, model.Analysis{Functions: []model.FunctionInfo{{Name: "add"}}})

	assert.Equal(t, 20, s.Breakdown.Overview.Points)
	assert.Equal(t, 15, s.Breakdown.Installation.Points)
	assert.Equal(t, 20, s.Breakdown.Usage.Points)
	assert.Equal(t, 25, s.Breakdown.APICoverage.Points)
	assert.Equal(t, 7, s.Breakdown.Structure.Points)
	assert.Equal(t, 87, s.Score)
	assert.Equal(t, model.GradeB, s.Grade)
	assert.Equal(t, []string{suggestStructure}, s.Suggestions)
	assert.Contains(t, s.Summary, "1 area needs work")
}

func TestOverviewSynonyms(t *testing.T) {
	for _, header := range []string{"# Overview", "## introduction", "### About this module", "#### DESCRIPTION", "## Summary"} {
		s := Score(header+"\n\ntext\n", model.Analysis{})
		assert.Equal(t, 20, s.Breakdown.Overview.Points, header)
	}
	s := Score("short\n", model.Analysis{})
	assert.Equal(t, 0, s.Breakdown.Overview.Points)
}

func TestInstallCommandWithoutSection(t *testing.T) {
	for _, cmd := range []string{"npm install widget", "$ pip install widget", "go get example.com/widget", "brew install widget"} {
		s := Score("```\n"+cmd+"\n```\n", model.Analysis{})
		assert.Equal(t, 10, s.Breakdown.Installation.Points, cmd)
	}
}

func TestUsageTiers(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want int
	}{
		{"two blocks", "```\na\n```\n\n~~~\nb\n~~~\n", 20},
		{"header and block", "## Usage\n\n```\na\n```\n", 20},
		{"one block", "```\na\n```\n", 14},
		{"header only", "## Examples\n\nSee below.\n", 6},
		{"nothing", "plain text\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Score(tt.doc, model.Analysis{})
			assert.Equal(t, tt.want, s.Breakdown.Usage.Points)
		})
	}
}

func TestHeadersInsideCodeBlocksIgnored(t *testing.T) {
	doc := "```bash\n# Overview\n# install deps\n- not a list\n```\n"
	s := Score(doc, model.Analysis{})
	assert.Equal(t, 0, s.Breakdown.Overview.Points)
	assert.Equal(t, 0, s.Breakdown.Structure.Points)
}

func TestAPICoverageWholeWord(t *testing.T) {
	a := model.Analysis{Functions: []model.FunctionInfo{{Name: "get"}, {Name: "parse"}}}

	s := Score("Use getter and parser helpers.", a)
	assert.Equal(t, 0, s.Breakdown.APICoverage.Points)

	s = Score("Call `get` then parse().", a)
	assert.Equal(t, 25, s.Breakdown.APICoverage.Points)
	assert.Equal(t, "2 of 2 functions and classes mentioned", s.Breakdown.APICoverage.Detail)
}

func TestScoreDeterministic(t *testing.T) {
	a := calculatorAnalysis()
	assert.Equal(t, Score(completeReadme, a), Score(completeReadme, a))
}

func TestGrade(t *testing.T) {
	tests := map[int]model.Grade{100: model.GradeA, 90: model.GradeA, 89: model.GradeB, 80: model.GradeB, 79: model.GradeC, 70: model.GradeC, 60: model.GradeD, 59: model.GradeF, 0: model.GradeF}
	for score, want := range tests {
		assert.Equal(t, want, Grade(score), "score %d", score)
	}
}

func TestAPICoverageUsesAnalyzedNames(t *testing.T) {
	analysis := analyzer.Analyze("const api = { fetchUser: function () {}, render: function () {} };\n", "javascript")
	require.ElementsMatch(t, []string{"fetchUser", "render"}, analysis.DocumentableNames())

	s := Score("# Overview\n\nThe fetchUser and render functions load and draw a profile.\n", analysis)
	assert.Equal(t, 25, s.Breakdown.APICoverage.Points)
}
