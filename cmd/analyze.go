package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/helmcode/codescribe/pkg/formatter"
)

var (
	analyzeLanguage     string
	analyzeOutputFormat string
)

func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Show the structure and complexity metrics of a source file",
		Long: `Extract functions, classes, imports and exports from a source file and compute
cyclomatic complexity and the maintainability index. No LLM is called.

Examples:
  codescribe analyze src/auth.js
  codescribe analyze -o json pkg/server/server.go`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().StringVarP(&analyzeLanguage, "language", "l", "", "Language of the code (detected when omitted)")
	cmd.Flags().StringVarP(&analyzeOutputFormat, "output", "o", formatter.FormatHuman, "Output format (human, json, yaml, markdown)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if err := formatter.ValidateFormat(analyzeOutputFormat); err != nil {
		return err
	}
	code, err := readInput(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gen, err := newOfflineGenerator(cfg)
	if err != nil {
		return err
	}

	filename := ""
	if args[0] != "-" {
		filename = args[0]
	}
	a, err := gen.Analyze(code, analyzeLanguage, filename)
	if err != nil {
		return err
	}
	return formatter.DisplayAnalysis(os.Stdout, a, analyzeOutputFormat)
}
