package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"beltche-mcp/internal/app"
)

// serveDebug enables verbose logging regardless of environment.
var serveDebug bool

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Starts the HTTP server exposing:

  POST /mcp            MCP streamable HTTP endpoint (rate limited)
  GET  /auth/callback  OAuth redirect target
  GET  /health         liveness probe

Configuration is read from the environment, an optional .env file and an
optional AWS Secrets Manager secret (AWS_SECRETS_MANAGER_SECRET_ID). The
server refuses to start when the configuration is invalid.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(serveDebug, envFile, rootCmd.Version)

	application, err := app.NewApplication(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", describeError(err))
	}

	return application.Run(cmd.Context())
}
