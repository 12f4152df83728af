package cmd

import (
	"github.com/spf13/cobra"

	"github.com/helmcode/codescribe/pkg/mcpserver"
)

func NewMCPCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve analyze_code, generate_documentation and score_documentation as MCP tools over stdio",
		Long: `Run an MCP server on stdin/stdout so AI agents can analyze code, generate
documentation and score it.

Example client configuration:
  {"mcpServers": {"codescribe": {"command": "codescribe", "args": ["mcp"]}}}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			gen, _, err := newGenerator(cmd.Context(), cfg, requiredProviders(cfg)...)
			if err != nil {
				return err
			}
			return mcpserver.New(gen, version).ServeStdio()
		},
	}
}
