package cmd

import (
	"fmt"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/helmcode/codescribe/pkg/llm"
	"github.com/helmcode/codescribe/pkg/server"
)

var serveAddr string

func NewServeCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the documentation API over HTTP",
		Long: `Start an HTTP server exposing generation, streaming generation (SSE),
analysis and scoring.

Routes:
  POST /api/generate          generate documentation
  POST /api/generate/stream   generate documentation as server-sent events
  POST /api/analyze           analyze code
  POST /api/score             score documentation
  GET  /api/doc-types         list doc types
  GET  /health                liveness`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = serveAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			gen, client, err := newGenerator(ctx, cfg, requiredProviders(cfg)...)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Providers: %s", strings.Join(client.Available(), ", ")))
			for _, name := range llm.Providers() {
				if !slices.Contains(client.Available(), string(name)) {
					printWarning(fmt.Sprintf("%s is not configured, requests that select it will fail (set %s)", name, llm.CredentialEnv[name]))
				}
			}
			printSuccess("Listening on " + cfg.Server.Addr)

			return server.New(gen, version).ListenAndServe(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (default from config, :8080)")
	return cmd
}
