package analyzer

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// DetectLanguage guesses the language of code from the file name when one is
// given, then from the content. It returns "" when the guess is not an
// accepted language.
func DetectLanguage(filename, code string) string {
	var lexer chroma.Lexer
	if filename != "" {
		lexer = lexers.Match(filepath.Base(filename))
		if lexer == nil {
			if ext := filepath.Ext(filename); ext != "" {
				lexer = lexers.Match("file" + ext)
			}
		}
	}
	if lexer == nil && strings.TrimSpace(code) != "" {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		return ""
	}

	name, ok := NormalizeLanguage(lexer.Config().Name)
	if !ok {
		for _, alias := range lexer.Config().Aliases {
			if name, ok = NormalizeLanguage(alias); ok {
				break
			}
		}
	}
	if !ok {
		return ""
	}
	return name
}
