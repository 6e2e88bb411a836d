package app

// Config holds the command line settings that shape bootstrap.
type Config struct {
	// Debug forces debug level logging regardless of environment.
	Debug bool

	// EnvFile overrides the .env file location.
	EnvFile string

	// Version is reported by /health and the MCP server info.
	Version string
}

// NewConfig creates a new application configuration.
func NewConfig(debug bool, envFile, version string) *Config {
	if version == "" {
		version = "dev"
	}
	return &Config{
		Debug:   debug,
		EnvFile: envFile,
		Version: version,
	}
}
