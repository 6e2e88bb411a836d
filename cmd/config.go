package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"beltche-mcp/internal/config"
)

var configOutput string

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Validate and print the configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
	show.Flags().StringVarP(&configOutput, "output", "o", string(OutputFormatTable), "Output format (table, json, yaml)")

	cmd.AddCommand(show)
	return cmd
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if err := ValidateOutputFormat(configOutput); err != nil {
		return err
	}

	cfg, err := config.Load(cmd.Context(), config.Options{EnvFile: envFile})
	if err != nil {
		return describeError(err)
	}

	return printConfig(cmd.OutOrStdout(), cfg.Redacted(), OutputFormat(configOutput))
}

func printConfig(w io.Writer, cfg config.Config, format OutputFormat) error {
	switch format {
	case OutputFormatJSON:
		return writeJSON(w, cfg)
	case OutputFormatYAML:
		return writeYAML(w, cfg)
	}

	redis := cfg.TokenStore.RedisURL
	if redis == "" {
		redis = "(in-memory)"
	}
	writeTable(w, "SETTING", []Row{
		{"environment", cfg.Environment},
		{"port", cfg.Port},
		{"log format", cfg.LogFormat},
		{"oauth client id", cfg.OAuth.ClientID},
		{"oauth client secret", cfg.OAuth.ClientSecret},
		{"oauth authorize url", cfg.OAuth.AuthorizeURL},
		{"oauth token url", cfg.OAuth.TokenURL},
		{"oauth redirect uri", cfg.OAuth.RedirectURI},
		{"oauth scope", cfg.OAuth.Scope},
		{"beltche api url", cfg.Beltche.BaseURL},
		{"api max attempts", cfg.Beltche.MaxRetries},
		{"api retry delay", cfg.Beltche.RetryDelay},
		{"token store", redis},
		{"token store max size", cfg.TokenStore.MaxSize},
		{"token default ttl", cfg.TokenStore.DefaultTTL},
		{"rate limit window", cfg.RateLimit.Window},
		{"rate limit max requests", cfg.RateLimit.MaxRequests},
	})
	return nil
}
