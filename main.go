package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/helmcode/codescribe/cmd"
)

var (
	version = "v0.1.0" // Overwritten at build time
)

func main() {
	rootCmd := newRootCmd()
	err := rootCmd.ExecuteContext(context.Background())
	klog.Flush()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "codescribe",
		Short: "AI-powered code documentation",
		Long: `codescribe analyzes source code, generates documentation with Claude, OpenAI
or Gemini and grades the result against a documentation quality rubric.`,
		SilenceUsage: true,
	}

	// Disable automatic 'completion' command added by cobra
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(klogFlags)
	cmd.AddGlobalFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		cmd.NewGenerateCmd(),
		cmd.NewAnalyzeCmd(),
		cmd.NewScoreCmd(),
		cmd.NewDocTypesCmd(),
		cmd.NewServeCmd(version),
		cmd.NewMCPCmd(version),
		cmd.NewAuthCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("codescribe version %s\n", version)
		},
	}
}
