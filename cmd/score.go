package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/helmcode/codescribe/pkg/formatter"
	"github.com/helmcode/codescribe/pkg/model"
)

var (
	scoreCodeFile     string
	scoreLanguage     string
	scoreOutputFormat string
)

func NewScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score DOCFILE",
		Short: "Grade existing documentation against the quality rubric",
		Long: `Score a documentation file for overview, installation, usage, API coverage
and structure. Pass the source file with --code to measure API coverage.

Examples:
  codescribe score README.md
  codescribe score README.md --code src/index.js`,
		Args: cobra.ExactArgs(1),
		RunE: runScore,
	}

	cmd.Flags().StringVarP(&scoreCodeFile, "code", "c", "", "Source file the documentation describes")
	cmd.Flags().StringVarP(&scoreLanguage, "language", "l", "", "Language of the source file (detected when omitted)")
	cmd.Flags().StringVarP(&scoreOutputFormat, "output", "o", formatter.FormatHuman, "Output format (human, json, yaml, markdown)")

	return cmd
}

func runScore(cmd *cobra.Command, args []string) error {
	if err := formatter.ValidateFormat(scoreOutputFormat); err != nil {
		return err
	}
	doc, err := readInput(args[0])
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

	var analysis model.Analysis
	if scoreCodeFile != "" {
		code, err := readInput(scoreCodeFile)
		if err != nil {
			return err
		}
		if analysis, err = gen.Analyze(code, scoreLanguage, scoreCodeFile); err != nil {
			return err
		}
	}
	return formatter.DisplayScore(os.Stdout, gen.Score(doc, analysis), scoreOutputFormat)
}
