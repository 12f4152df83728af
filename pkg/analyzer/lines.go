package analyzer

import (
	"strings"

	"github.com/helmcode/codescribe/pkg/model"
)

// countLines classifies every line of code as blank, comment or code. A
// trailing newline does not start a new line, so empty input has zero lines.
func countLines(code string, syntax commentSyntax, m *model.Metrics) {
	code = strings.ReplaceAll(code, "\r\n", "\n")
	if code == "" {
		return
	}
	code = strings.TrimSuffix(code, "\n")

	closer := ""
	for _, raw := range strings.Split(code, "\n") {
		line := strings.TrimSpace(raw)
		m.TotalLines++

		if closer != "" {
			m.CommentLines++
			if strings.Contains(line, closer) {
				closer = ""
			}
			continue
		}

		switch {
		case line == "":
			m.BlankLines++
		case hasAnyPrefix(line, syntax.line):
			m.CommentLines++
		case syntax.blockOpen != "" && strings.HasPrefix(line, syntax.blockOpen):
			m.CommentLines++
			if !strings.Contains(line[len(syntax.blockOpen):], syntax.blockClose) {
				closer = syntax.blockClose
			}
		case syntax.docstrings && (strings.HasPrefix(line, `"""`) || strings.HasPrefix(line, `'''`)):
			m.CommentLines++
			delim := line[:3]
			if !strings.Contains(line[3:], delim) {
				closer = delim
			}
		default:
			m.CodeLines++
		}
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
