package formatter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/helmcode/codescribe/pkg/generator"
	"github.com/helmcode/codescribe/pkg/model"
)

func init() {
	color.NoColor = true
}

func sampleResult() *model.GenerationResult {
	return &model.GenerationResult{
		Documentation: "# add\n\nAdds two numbers.",
		QualityScore: model.QualityScore{
			Score: 45,
			Grade: model.GradeF,
			Breakdown: model.Breakdown{
				Overview:     model.CriterionScore{Points: 10, MaxPoints: 20, Detail: "introductory paragraph"},
				Installation: model.CriterionScore{MaxPoints: 15},
				Usage:        model.CriterionScore{MaxPoints: 20},
				APICoverage:  model.CriterionScore{Points: 25, MaxPoints: 25},
				Structure:    model.CriterionScore{Points: 10, MaxPoints: 20},
			},
			Suggestions: []string{"Add an overview section."},
			Summary:     "Score 45 (F): 1 area needs work",
		},
		Analysis: model.Analysis{
			Language:   "javascript",
			Functions:  []model.FunctionInfo{{Name: "add", Params: 2, StartLine: 1, EndLine: 1}},
			Exports:    []string{"add"},
			Complexity: model.ComplexitySimple,
		},
		Metadata: model.Metadata{RequestID: "req-1", Provider: "claude", Model: "claude-sonnet-4-20250514", DocType: "README", Attempts: 1},
	}
}

func TestDisplayResultFormats(t *testing.T) {
	res := sampleResult()

	var buf bytes.Buffer
	require.NoError(t, DisplayResult(&buf, res, FormatJSON))
	var decoded model.GenerationResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, res.Documentation, decoded.Documentation)
	assert.Equal(t, "req-1", decoded.Metadata.RequestID)

	buf.Reset()
	require.NoError(t, DisplayResult(&buf, res, FormatYAML))
	assert.Contains(t, buf.String(), "requestId: req-1")
	var fromYAML model.GenerationResult
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, 45, fromYAML.QualityScore.Score)

	buf.Reset()
	require.NoError(t, DisplayResult(&buf, res, FormatMarkdown))
	assert.Equal(t, res.Documentation+"\n", buf.String())

	buf.Reset()
	require.NoError(t, DisplayResult(&buf, res, FormatHuman))
	out := buf.String()
	assert.Contains(t, out, "README DOCUMENTATION")
	assert.Contains(t, out, "Adds two numbers.")
	assert.Contains(t, out, "QUALITY SCORE: 45/100 (F)")
	assert.Contains(t, out, "1. Add an overview section.")
	assert.Contains(t, out, "claude/claude-sonnet-4-20250514")
}

func TestDisplayScoreMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DisplayScore(&buf, sampleResult().QualityScore, FormatMarkdown))
	out := buf.String()
	assert.Contains(t, out, "## Quality score: 45/100 (F)")
	assert.Contains(t, out, "| API coverage | 25/25 |  |")
	assert.Contains(t, out, "- Add an overview section.")
}

func TestDisplayAnalysis(t *testing.T) {
	a := sampleResult().Analysis
	a.Degraded = true

	var buf bytes.Buffer
	require.NoError(t, DisplayAnalysis(&buf, a, FormatHuman))
	out := buf.String()
	assert.Contains(t, out, "ANALYSIS (javascript)")
	assert.Contains(t, out, "line metrics only")
	assert.Contains(t, out, "add(2)")
	assert.Contains(t, out, "Exports: add")

	buf.Reset()
	require.NoError(t, DisplayAnalysis(&buf, a, FormatMarkdown))
	assert.Contains(t, buf.String(), "- `add` (2 params)")
}

func TestDisplayDocTypes(t *testing.T) {
	infos := []generator.DocTypeInfo{{Name: "OPENAPI", Config: model.DocTypeConfig{Provider: "openai", Model: "gpt-4o", Temperature: 0.2, MaxTokens: 8000}}}

	var buf bytes.Buffer
	require.NoError(t, DisplayDocTypes(&buf, infos, FormatHuman))
	assert.True(t, strings.HasPrefix(buf.String(), "OPENAPI"))
	assert.Contains(t, buf.String(), "temperature=0.2 max_tokens=8000")
}

func TestValidateFormat(t *testing.T) {
	for _, f := range []string{"human", "json", "yaml", "markdown"} {
		assert.NoError(t, ValidateFormat(f))
	}
	assert.Error(t, ValidateFormat("xml"))
}

func TestWrapText(t *testing.T) {
	wrapped := wrapText("one two three four", 10, "  ")
	assert.Equal(t, "  one two\n  three\n  four", wrapped)
}
