package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/helmcode/codescribe/pkg/config"
	"github.com/helmcode/codescribe/pkg/llm"
)

func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider API keys stored in the OS keyring",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set PROVIDER",
			Short: "Store an API key read from stdin",
			Long: `Store a provider API key in the OS keyring. The key is read from stdin.

Example:
  echo "$ANTHROPIC_API_KEY" | codescribe auth set claude`,
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading API key from stdin: %w", err)
				}
				if err := config.StoreAPIKey(args[0], strings.TrimSpace(line)); err != nil {
					return err
				}
				printSuccess("Stored API key for " + args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete PROVIDER",
			Short: "Remove a stored API key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := config.DeleteAPIKey(args[0]); err != nil {
					return err
				}
				printSuccess("Deleted API key for " + args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show which providers have a key and where it comes from",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				creds, err := config.LoadCredentials(cfg.Credentials)
				if err != nil {
					return err
				}
				for _, name := range llm.Providers() {
					if creds.Keys[name] == "" {
						fmt.Printf("%-8s %s\n", name, color.HiBlackString("not configured (%s)", llm.CredentialEnv[name]))
						continue
					}
					fmt.Printf("%-8s %s\n", name, color.GreenString("configured"))
				}
				return nil
			},
		},
	)
	return cmd
}
