package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"beltche-mcp/internal/config"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a failure, including invalid configuration.
	ExitCodeError = 1
)

// envFile overrides the .env file location for every command.
var envFile string

// rootCmd represents the base command for the beltche-mcp application.
var rootCmd = &cobra.Command{
	Use:   "beltche-mcp",
	Short: "MCP server that lets AI agents act on a Beltche account",
	Long: `beltche-mcp exposes the Beltche API to MCP clients as tools.

Agents call the authorize tool to get a link token and a login URL. Once the
user completes the OAuth login in a browser, the agent passes the link token
to get_students and create_gym, and tokens are refreshed automatically.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "beltche-mcp version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	return ExitCodeError
}

// describeError expands configuration errors so every problem is printed on its own line.
func describeError(err error) error {
	var verrs config.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	return fmt.Errorf("invalid configuration:\n%s", strings.Join(verrs.Lines(), "\n"))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a .env file (default $ENV_FILE_PATH or ./.env)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConfigCmd())
}
