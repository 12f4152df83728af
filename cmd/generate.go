package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/helmcode/codescribe/pkg/doctype"
	"github.com/helmcode/codescribe/pkg/formatter"
	"github.com/helmcode/codescribe/pkg/generator"
	"github.com/helmcode/codescribe/pkg/model"
)

var (
	genDocType      string
	genLanguage     string
	genProvider     string
	genModel        string
	genTemperature  float64
	genMaxTokens    int
	genStream       bool
	genOutputFormat string
	genOutFile      string
)

func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate FILE",
		Short: "Generate documentation for a source file",
		Long: `Analyze a source file, generate documentation with an LLM and grade it.

Examples:
  # README for a JavaScript module
  codescribe generate src/auth.js

  # API reference with OpenAI, streamed as it is written
  codescribe generate -t API --provider openai --stream lib/client.py

  # Write only the documentation to a file
  codescribe generate -t ARCHITECTURE -o markdown -f ARCHITECTURE.md main.go

  # Read code from stdin
  cat util.ts | codescribe generate -l typescript -`,
		Args: cobra.ExactArgs(1),
		RunE: runGenerate,
	}

	cmd.Flags().StringVarP(&genDocType, "type", "t", generator.DefaultDocType, "Documentation type (README, API, JSDOC, ARCHITECTURE, OPENAPI)")
	cmd.Flags().StringVarP(&genLanguage, "language", "l", "", "Language of the code (detected when omitted)")
	cmd.Flags().StringVar(&genProvider, "provider", "", "LLM provider (claude, openai, gemini). Defaults to the doc type's provider")
	cmd.Flags().StringVar(&genModel, "model", "", "LLM model to use (overrides default)")
	cmd.Flags().Float64Var(&genTemperature, "temperature", 0, "Sampling temperature, 0 to 1 (overrides default)")
	cmd.Flags().IntVar(&genMaxTokens, "max-tokens", 0, "Maximum output tokens (overrides default)")
	cmd.Flags().BoolVar(&genStream, "stream", false, "Print the documentation as it is generated")
	cmd.Flags().StringVarP(&genOutputFormat, "output", "o", formatter.FormatHuman, "Output format (human, json, yaml, markdown)")
	cmd.Flags().StringVarP(&genOutFile, "out-file", "f", "", "Also write the documentation to this file")

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if err := formatter.ValidateFormat(genOutputFormat); err != nil {
		return err
	}
	path := args[0]
	code, err := readInput(path)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	overrides := model.Overrides{Provider: genProvider, Model: genModel}
	if cmd.Flags().Changed("temperature") {
		overrides.Temperature = &genTemperature
	}
	if cmd.Flags().Changed("max-tokens") {
		overrides.MaxTokens = &genMaxTokens
	}
	provider := doctype.NewResolver(cfg.DocTypeTable()).Resolve(genDocType).WithOverrides(overrides).Provider

	ctx := cmd.Context()
	gen, _, err := newGenerator(ctx, cfg, provider)
	if err != nil {
		return err
	}

	printHeader("📝 codescribe",
		[2]string{"File", displayName(path)},
		[2]string{"Doc type", strings.ToUpper(genDocType)},
		[2]string{"Provider", provider},
	)

	opts := generator.Options{
		DocType:   genDocType,
		Language:  genLanguage,
		Overrides: overrides,
	}
	if path != "-" {
		opts.Filename = path
	}

	// Streaming prints the text live in human mode; other formats need the
	// complete result.
	liveText := genStream && genOutputFormat == formatter.FormatHuman
	var s *spinner.Spinner
	if genStream {
		opts.Streaming = true
		if liveText {
			opts.StreamCallback = func(chunk string) error {
				_, err := fmt.Fprint(os.Stdout, chunk)
				return err
			}
		}
	} else {
		s = spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Suffix = " Generating documentation..."
		s.Start()
	}

	res, err := gen.GenerateDocumentation(ctx, code, opts)
	if s != nil {
		s.Stop()
	}
	if err != nil {
		return fmt.Errorf("documentation generation failed: %w", err)
	}
	printSuccess(fmt.Sprintf("Generated with %s/%s in %d ms", res.Metadata.Provider, res.Metadata.Model, res.Metadata.DurationMs))

	if genOutFile != "" {
		if err := os.WriteFile(genOutFile, []byte(res.Documentation+"\n"), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", genOutFile, err)
		}
		printSuccess("Wrote " + genOutFile)
	}

	if liveText {
		fmt.Fprintln(os.Stdout)
		fmt.Fprintln(os.Stdout)
		return formatter.DisplayScore(os.Stdout, res.QualityScore, formatter.FormatHuman)
	}
	return formatter.DisplayResult(os.Stdout, res, genOutputFormat)
}
