package prompts

import (
	"fmt"
	"strings"

	"github.com/helmcode/codescribe/pkg/model"
)

// Build fills the template for docType with the code, its language and a
// summary of the analysis. Placeholders are replaced literally in a single
// pass, so placeholder-like text inside the code is not expanded. Unknown
// placeholders are left in place.
func Build(reg *Registry, code string, analysis model.Analysis, docType, language string) (model.Prompt, error) {
	tmpl, ok := reg.Lookup(docType)
	if !ok {
		return model.Prompt{}, fmt.Errorf("no prompt template for doc type %q", docType)
	}

	r := strings.NewReplacer(
		"{{language}}", language,
		"{{code}}", FenceCode(code, language),
		"{{baseContext}}", BaseContext(analysis),
	)

	return model.Prompt{
		System:  r.Replace(tmpl.System),
		User:    r.Replace(tmpl.User),
		DocType: strings.ToUpper(strings.TrimSpace(docType)),
		Version: reg.Version(),
	}, nil
}

// BaseContext summarizes an analysis in one line, e.g.
// "Functions: 8, Classes: 1, Exports: AuthService, Complexity: medium, ...".
func BaseContext(a model.Analysis) string {
	exports := "none"
	if len(a.Exports) > 0 {
		exports = strings.Join(a.Exports, ", ")
	}
	return fmt.Sprintf("Functions: %d, Classes: %d, Exports: %s, Complexity: %s, Cyclomatic Complexity: %d, Maintainability Index: %s",
		len(a.Functions), len(a.Classes), exports, a.Complexity, a.CyclomaticComplexity, a.Metrics.MaintainabilityIndexText)
}

// FenceCode wraps code in a markdown fence tagged with language. The fence is
// one backtick longer than the longest backtick run in the code.
func FenceCode(code, language string) string {
	fence := strings.Repeat("`", max(3, longestRun(code, '`')+1))
	var b strings.Builder
	b.WriteString(fence)
	b.WriteString(language)
	b.WriteByte('\n')
	b.WriteString(code)
	if !strings.HasSuffix(code, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(fence)
	return b.String()
}

func longestRun(s string, c byte) int {
	longest, run := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return longest
}
