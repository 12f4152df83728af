package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/helmcode/codescribe/pkg/generator"
	"github.com/helmcode/codescribe/pkg/model"
)

const (
	FormatHuman    = "human"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "markdown"
)

// ValidateFormat rejects unknown output formats.
func ValidateFormat(format string) error {
	switch format {
	case FormatHuman, FormatJSON, FormatYAML, FormatMarkdown:
		return nil
	}
	return fmt.Errorf("unknown output format %q (supported: human, json, yaml, markdown)", format)
}

// DisplayResult writes a generation result. Markdown writes the
// documentation alone so it can be redirected to a file.
func DisplayResult(w io.Writer, res *model.GenerationResult, format string) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, res)
	case FormatYAML:
		return writeYAML(w, res)
	case FormatMarkdown:
		_, err := fmt.Fprintln(w, res.Documentation)
		return err
	default:
		displayResultHuman(w, res)
		return nil
	}
}

// DisplayAnalysis writes a code analysis.
func DisplayAnalysis(w io.Writer, a model.Analysis, format string) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, a)
	case FormatYAML:
		return writeYAML(w, a)
	case FormatMarkdown:
		displayAnalysisMarkdown(w, a)
	default:
		displayAnalysisHuman(w, a)
	}
	return nil
}

// DisplayScore writes a quality score.
func DisplayScore(w io.Writer, s model.QualityScore, format string) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, s)
	case FormatYAML:
		return writeYAML(w, s)
	case FormatMarkdown:
		displayScoreMarkdown(w, s)
	default:
		displayScoreHuman(w, s)
	}
	return nil
}

// DisplayDocTypes writes the available doc types and their providers.
func DisplayDocTypes(w io.Writer, infos []generator.DocTypeInfo, format string) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, infos)
	case FormatYAML:
		return writeYAML(w, infos)
	}
	for _, info := range infos {
		fmt.Fprintf(w, "%-14s %-8s %-28s temperature=%.1f max_tokens=%d\n",
			info.Name, info.Config.Provider, info.Config.Model, info.Config.Temperature, info.Config.MaxTokens)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

func writeYAML(w io.Writer, v any) error {
	output, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, string(output))
	return err
}

func displayResultHuman(w io.Writer, res *model.GenerationResult) {
	white := color.New(color.FgWhite, color.Bold)

	fmt.Fprintln(w)
	white.Fprintf(w, "📄 %s DOCUMENTATION:\n\n", res.Metadata.DocType)
	fmt.Fprintln(w, res.Documentation)
	fmt.Fprintln(w)

	displayScoreHuman(w, res.QualityScore)

	md := res.Metadata
	fmt.Fprintln(w, strings.Repeat("─", 80))
	fmt.Fprintln(w, color.HiBlackString("%s/%s · prompt %s · %d attempt(s) · %d ms · %d in / %d out tokens · request %s",
		md.Provider, md.Model, md.PromptVersion, md.Attempts, md.DurationMs, md.Usage.InputTokens, md.Usage.OutputTokens, md.RequestID))
	fmt.Fprintf(w, "💡 %s\n", color.HiBlackString("Run with -o markdown to write the documentation alone"))
}

func displayScoreHuman(w io.Writer, s model.QualityScore) {
	cyan := color.New(color.FgCyan, color.Bold)

	gradeColor(s.Grade).Fprintf(w, "📊 QUALITY SCORE: %d/100 (%s)\n", s.Score, s.Grade)
	fmt.Fprintf(w, "   %s\n\n", s.Summary)

	for _, c := range criteria(s.Breakdown) {
		fmt.Fprintf(w, "   %-14s %s %2d/%-2d  %s\n", c.name, bar(c.score), c.score.Points, c.score.MaxPoints, color.HiBlackString("%s", c.score.Detail))
	}
	fmt.Fprintln(w)

	if len(s.Suggestions) > 0 {
		cyan.Fprintln(w, "💡 SUGGESTIONS:")
		for i, suggestion := range s.Suggestions {
			fmt.Fprintf(w, "%s\n", wrapText(fmt.Sprintf("%d. %s", i+1, suggestion), 80, "   "))
		}
		fmt.Fprintln(w)
	}
}

func displayScoreMarkdown(w io.Writer, s model.QualityScore) {
	fmt.Fprintf(w, "## Quality score: %d/100 (%s)\n\n%s\n\n", s.Score, s.Grade, s.Summary)
	fmt.Fprintln(w, "| Criterion | Points | Detail |")
	fmt.Fprintln(w, "|---|---|---|")
	for _, c := range criteria(s.Breakdown) {
		fmt.Fprintf(w, "| %s | %d/%d | %s |\n", c.name, c.score.Points, c.score.MaxPoints, c.score.Detail)
	}
	if len(s.Suggestions) > 0 {
		fmt.Fprintln(w, "\n### Suggestions")
		fmt.Fprintln(w)
		for _, suggestion := range s.Suggestions {
			fmt.Fprintf(w, "- %s\n", suggestion)
		}
	}
}

func displayAnalysisHuman(w io.Writer, a model.Analysis) {
	white := color.New(color.FgWhite, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)

	fmt.Fprintln(w)
	white.Fprintf(w, "🔍 ANALYSIS (%s):\n", a.Language)
	if a.Degraded {
		yellow.Fprintln(w, "   ⚠️  structure not extracted, line metrics only")
	}
	m := a.Metrics
	fmt.Fprintf(w, "   Complexity: %s (cyclomatic %d, max nesting %d)\n", complexityColor(a.Complexity).Sprint(a.Complexity), a.CyclomaticComplexity, m.MaxNestingDepth)
	fmt.Fprintf(w, "   Maintainability: %.1f (%s)\n", m.MaintainabilityIndex, m.MaintainabilityIndexText)
	fmt.Fprintf(w, "   Lines: %d total, %d code, %d comment, %d blank\n", m.TotalLines, m.CodeLines, m.CommentLines, m.BlankLines)
	fmt.Fprintln(w)

	if len(a.Functions) > 0 {
		white.Fprintf(w, "   Functions (%d):\n", len(a.Functions))
		for _, f := range a.Functions {
			fmt.Fprintf(w, "     • %s(%d) %s\n", f.Name, f.Params, color.HiBlackString("lines %d-%d", f.StartLine, f.EndLine))
		}
	}
	if len(a.Classes) > 0 {
		white.Fprintf(w, "   Classes (%d):\n", len(a.Classes))
		for _, c := range a.Classes {
			fmt.Fprintf(w, "     • %s %s\n", c.Name, color.HiBlackString("%d methods", len(c.Methods)))
			for _, m := range c.Methods {
				fmt.Fprintf(w, "         %s %s\n", m.Name, color.HiBlackString("%s", m.Kind))
			}
		}
	}
	if len(a.Exports) > 0 {
		fmt.Fprintf(w, "   Exports: %s\n", strings.Join(a.Exports, ", "))
	}
	if len(a.Imports) > 0 {
		sources := make([]string, 0, len(a.Imports))
		for _, imp := range a.Imports {
			sources = append(sources, imp.Source)
		}
		fmt.Fprintf(w, "   Imports: %s\n", strings.Join(sources, ", "))
	}
}

func displayAnalysisMarkdown(w io.Writer, a model.Analysis) {
	m := a.Metrics
	fmt.Fprintf(w, "## Analysis (%s)\n\n", a.Language)
	fmt.Fprintf(w, "- Complexity: %s\n- Cyclomatic complexity: %d\n- Maintainability index: %.1f (%s)\n- Lines: %d\n",
		a.Complexity, a.CyclomaticComplexity, m.MaintainabilityIndex, m.MaintainabilityIndexText, m.TotalLines)
	if len(a.Functions) > 0 {
		fmt.Fprintln(w, "\n### Functions")
		fmt.Fprintln(w)
		for _, f := range a.Functions {
			fmt.Fprintf(w, "- `%s` (%d params)\n", f.Name, f.Params)
		}
	}
	if len(a.Classes) > 0 {
		fmt.Fprintln(w, "\n### Classes")
		fmt.Fprintln(w)
		for _, c := range a.Classes {
			fmt.Fprintf(w, "- `%s` (%d methods)\n", c.Name, len(c.Methods))
		}
	}
}

type criterion struct {
	name  string
	score model.CriterionScore
}

func criteria(b model.Breakdown) []criterion {
	return []criterion{
		{"Overview", b.Overview},
		{"Installation", b.Installation},
		{"Usage", b.Usage},
		{"API coverage", b.APICoverage},
		{"Structure", b.Structure},
	}
}

func bar(c model.CriterionScore) string {
	const width = 10
	filled := 0
	if c.MaxPoints > 0 {
		filled = c.Points * width / c.MaxPoints
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func gradeColor(grade model.Grade) *color.Color {
	switch grade {
	case model.GradeA:
		return color.New(color.FgGreen, color.Bold)
	case model.GradeB:
		return color.New(color.FgGreen)
	case model.GradeC:
		return color.New(color.FgYellow)
	case model.GradeD:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func complexityColor(c model.Complexity) *color.Color {
	switch c {
	case model.ComplexitySimple:
		return color.New(color.FgGreen)
	case model.ComplexityMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func wrapText(text string, width int, indent string) string {
	var result strings.Builder
	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			result.WriteString("\n")
			continue
		}

		currentLine := indent
		for _, word := range words {
			switch {
			case currentLine == indent:
				currentLine += word
			case len(currentLine)+len(word)+1 > width:
				result.WriteString(currentLine + "\n")
				currentLine = indent + word
			default:
				currentLine += " " + word
			}
		}
		result.WriteString(currentLine + "\n")
	}
	return strings.TrimSuffix(result.String(), "\n")
}
