// Package quality grades generated documentation against a fixed rubric.
package quality

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/helmcode/codescribe/pkg/model"
)

const (
	maxOverview     = 20
	maxInstallation = 15
	maxUsage        = 20
	maxAPICoverage  = 25
	maxStructure    = 20

	// A criterion below this share of its maximum gets a suggestion.
	suggestionThreshold = 0.7
)

const (
	suggestOverview     = "Add an overview section that explains what the code does and who it is for."
	suggestInstallation = "Add installation or setup instructions with the commands to run."
	suggestUsage        = "Add usage examples in fenced code blocks."
	suggestAPI          = "Document the public API: mention every exported function and class by name."
	suggestStructure    = "Improve structure with section headers and bullet lists."
)

var (
	headerRe         = regexp.MustCompile(`(?m)^ {0,3}#{1,6}\s+(.+?)\s*#*\s*$`)
	fenceRe          = regexp.MustCompile("(?m)^ {0,3}(```|~~~)")
	listItemRe       = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+[.)])\s+\S`)
	overviewRe       = regexp.MustCompile(`(?i)\b(overview|introduction|about|description|summary)\b`)
	installationRe   = regexp.MustCompile(`(?i)\b(installation|install|setup|set up|getting started|prerequisites|requirements)\b`)
	usageHeaderRe    = regexp.MustCompile(`(?i)\b(usage|examples?|how to use|quick ?start)\b`)
	installCommandRe = regexp.MustCompile(`(?im)^\s*(?:\$\s*)?(?:npm (?:i|install)|yarn add|pnpm add|pip3? install|go (?:get|install)|cargo (?:add|install)|gem install|composer require|brew install)\b`)
)

// Score grades documentation for the analyzed code. It is deterministic and
// never fails; empty documentation gets the lowest score.
func Score(documentation string, analysis model.Analysis) model.QualityScore {
	if strings.TrimSpace(documentation) == "" {
		return emptyScore()
	}

	d := newDocument(documentation)
	b := model.Breakdown{
		Overview:     scoreOverview(d),
		Installation: scoreInstallation(d),
		Usage:        scoreUsage(d),
		APICoverage:  scoreAPICoverage(d, analysis),
		Structure:    scoreStructure(d),
	}

	score := min(100, max(0, b.Total()))
	var suggestions []string
	for _, c := range []struct {
		criterion  model.CriterionScore
		suggestion string
	}{
		{b.Overview, suggestOverview},
		{b.Installation, suggestInstallation},
		{b.Usage, suggestUsage},
		{b.APICoverage, suggestAPI},
		{b.Structure, suggestStructure},
	} {
		if float64(c.criterion.Points) < suggestionThreshold*float64(c.criterion.MaxPoints) {
			suggestions = append(suggestions, c.suggestion)
		}
	}
	if suggestions == nil {
		suggestions = []string{}
	}

	grade := Grade(score)
	return model.QualityScore{
		Score:       score,
		Grade:       grade,
		Breakdown:   b,
		Suggestions: suggestions,
		Summary:     summary(score, grade, len(suggestions)),
	}
}

// Grade maps a 0-100 score to a letter.
func Grade(score int) model.Grade {
	switch {
	case score >= 90:
		return model.GradeA
	case score >= 80:
		return model.GradeB
	case score >= 70:
		return model.GradeC
	case score >= 60:
		return model.GradeD
	default:
		return model.GradeF
	}
}

func emptyScore() model.QualityScore {
	criterion := func(maxPoints int) model.CriterionScore {
		return model.CriterionScore{MaxPoints: maxPoints, Detail: "no documentation"}
	}
	return model.QualityScore{
		Score: 0,
		Grade: model.GradeF,
		Breakdown: model.Breakdown{
			Overview:     criterion(maxOverview),
			Installation: criterion(maxInstallation),
			Usage:        criterion(maxUsage),
			APICoverage:  criterion(maxAPICoverage),
			Structure:    criterion(maxStructure),
		},
		Suggestions: []string{suggestOverview, suggestInstallation, suggestUsage, suggestAPI, suggestStructure},
		Summary:     "Documentation is empty",
	}
}

func summary(score int, grade model.Grade, open int) string {
	switch {
	case open == 0:
		return fmt.Sprintf("Score %d (%s): documentation covers every criterion", score, grade)
	case open == 1:
		return fmt.Sprintf("Score %d (%s): 1 area needs work", score, grade)
	default:
		return fmt.Sprintf("Score %d (%s): %d areas need work", score, grade, open)
	}
}

// document is the parsed view of the text the criteria run on.
type document struct {
	text    string
	headers []string
	// prose is the text with fenced code removed.
	prose  string
	blocks int
	lists  int
	// lead is the prose before the first header.
	lead string
}

func newDocument(text string) document {
	d := document{text: text}

	var prose strings.Builder
	inFence := false
	fence := ""
	for _, line := range strings.Split(text, "\n") {
		if m := fenceRe.FindStringSubmatch(line); m != nil {
			switch {
			case !inFence:
				inFence, fence = true, m[1]
				d.blocks++
				continue
			case m[1] == fence:
				inFence = false
				continue
			}
		}
		if !inFence {
			prose.WriteString(line)
			prose.WriteByte('\n')
		}
	}
	d.prose = prose.String()

	for _, m := range headerRe.FindAllStringSubmatch(d.prose, -1) {
		d.headers = append(d.headers, m[1])
	}
	d.lists = len(listItemRe.FindAllString(d.prose, -1))

	if loc := headerRe.FindStringIndex(d.prose); loc != nil {
		d.lead = d.prose[:loc[0]]
	} else {
		d.lead = d.prose
	}
	return d
}

func (d document) hasHeader(re *regexp.Regexp) bool {
	for _, h := range d.headers {
		if re.MatchString(h) {
			return true
		}
	}
	return false
}

func scoreOverview(d document) model.CriterionScore {
	c := model.CriterionScore{MaxPoints: maxOverview}
	switch {
	case d.hasHeader(overviewRe):
		c.Points, c.Detail = maxOverview, "overview section present"
	case len(strings.TrimSpace(d.lead)) >= 40:
		c.Points, c.Detail = 10, "introductory paragraph without an overview section"
	default:
		c.Detail = "no overview"
	}
	return c
}

func scoreInstallation(d document) model.CriterionScore {
	c := model.CriterionScore{MaxPoints: maxInstallation}
	switch {
	case d.hasHeader(installationRe):
		c.Points, c.Detail = maxInstallation, "installation section present"
	case installCommandRe.MatchString(d.text):
		c.Points, c.Detail = 10, "install command without a setup section"
	default:
		c.Detail = "no installation instructions"
	}
	return c
}

func scoreUsage(d document) model.CriterionScore {
	c := model.CriterionScore{MaxPoints: maxUsage}
	usageHeader := d.hasHeader(usageHeaderRe)
	switch {
	case d.blocks >= 2 || (usageHeader && d.blocks >= 1):
		c.Points = maxUsage
	case d.blocks == 1:
		c.Points = 14
	case usageHeader:
		c.Points = 6
	}
	c.Detail = fmt.Sprintf("%d code blocks", d.blocks)
	if usageHeader {
		c.Detail += ", usage section present"
	}
	return c
}

// scoreAPICoverage counts named functions and classes mentioned as whole
// words. Code with nothing to document earns full credit.
func scoreAPICoverage(d document, a model.Analysis) model.CriterionScore {
	c := model.CriterionScore{MaxPoints: maxAPICoverage}
	names := a.DocumentableNames()
	if len(names) == 0 {
		c.Points, c.Detail = maxAPICoverage, "nothing to document"
		return c
	}

	covered := 0
	for _, name := range names {
		if mentions(d.text, name) {
			covered++
		}
	}
	c.Points = int(math.Round(maxAPICoverage * float64(covered) / float64(len(names))))
	c.Detail = fmt.Sprintf("%d of %d functions and classes mentioned", covered, len(names))
	return c
}

// mentions reports whether name appears in text bounded by non-identifier
// characters.
func mentions(text, name string) bool {
	re := regexp.MustCompile(`(^|[^A-Za-z0-9_$])` + regexp.QuoteMeta(name) + `($|[^A-Za-z0-9_$])`)
	return re.MatchString(text)
}

func scoreStructure(d document) model.CriterionScore {
	c := model.CriterionScore{MaxPoints: maxStructure}
	switch n := len(d.headers); {
	case n >= 5:
		c.Points += 10
	case n >= 3:
		c.Points += 7
	case n >= 1:
		c.Points += 4
	}
	switch {
	case d.lists >= 3:
		c.Points += 10
	case d.lists >= 1:
		c.Points += 5
	}
	c.Detail = fmt.Sprintf("%d headers, %d list items", len(d.headers), d.lists)
	return c
}
