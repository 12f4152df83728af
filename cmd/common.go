package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/helmcode/codescribe/pkg/config"
	"github.com/helmcode/codescribe/pkg/doctype"
	"github.com/helmcode/codescribe/pkg/generator"
	"github.com/helmcode/codescribe/pkg/llm"
	"github.com/helmcode/codescribe/pkg/prompts"
)

var configPath string

// AddGlobalFlags registers flags shared by every subcommand.
func AddGlobalFlags(flags *pflag.FlagSet) {
	flags.StringVar(&configPath, "config", "", "Path to the config file (default ~/.codescribe/config.yaml)")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRegistry(cfg *config.Config) (*prompts.Registry, error) {
	if cfg.Generation.PromptFile != "" {
		return prompts.LoadFile(cfg.Generation.PromptFile)
	}
	return prompts.LoadDefault()
}

// newGenerator wires the pipeline. Providers in required must have
// credentials; other providers are created when a key is found.
func newGenerator(ctx context.Context, cfg *config.Config, required ...string) (*generator.Generator, *llm.Client, error) {
	creds, err := config.LoadCredentials(cfg.Credentials)
	if err != nil {
		return nil, nil, err
	}
	client, err := llm.NewClient(ctx, cfg.ClientConfig(creds, required))
	if err != nil {
		return nil, nil, err
	}
	reg, err := loadRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}
	resolver := doctype.NewResolver(cfg.DocTypeTable())
	return generator.New(client, reg, resolver, cfg.Generation.MaxCodeLength), client, nil
}

// requiredProviders lists the providers the doc-type table routes to. Long
// running commands refuse to start without their credentials.
func requiredProviders(cfg *config.Config) []string {
	return doctype.NewResolver(cfg.DocTypeTable()).Providers()
}

// newOfflineGenerator is enough for analysis and scoring, which never call a
// provider.
func newOfflineGenerator(cfg *config.Config) (*generator.Generator, error) {
	reg, err := loadRegistry(cfg)
	if err != nil {
		return nil, err
	}
	return generator.New(nil, reg, doctype.NewResolver(cfg.DocTypeTable()), cfg.Generation.MaxCodeLength), nil
}

// readInput reads path, or stdin when path is "-".
func readInput(path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func displayName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return filepath.Base(path)
}

// status lines go to stderr so stdout stays clean for piping.
func printSuccess(msg string) {
	color.New(color.FgGreen).Fprintf(os.Stderr, "✓ %s\n", msg)
}

func printWarning(msg string) {
	color.New(color.FgYellow).Fprintf(os.Stderr, "⚠ %s\n", msg)
}

func printHeader(title string, fields ...[2]string) {
	cyan := color.New(color.FgCyan, color.Bold)
	fmt.Fprintln(os.Stderr)
	cyan.Fprintln(os.Stderr, title)
	for _, f := range fields {
		fmt.Fprintf(os.Stderr, "%s: %s\n", f[0], f[1])
	}
	fmt.Fprintln(os.Stderr)
}
