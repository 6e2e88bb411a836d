// Package logging provides the structured, subsystem-tagged logger used across
// beltche-mcp.
//
// The logger is a thin layer over Go's slog package. Every entry carries a
// subsystem attribute so that output can be filtered per component:
//
//   - **Bootstrap**: process startup, configuration and shutdown
//   - **OAuth**: authorization URL creation, code exchange and refresh
//   - **TokenStore**: token record persistence and maintenance sweeps
//   - **BeltcheAPI**: outbound calls to the Beltche REST API
//   - **Tools**: MCP tool invocations
//   - **HTTP**: inbound request handling
//
// # Usage
//
//	logging.Init(logging.FormatJSON, logging.LevelInfo, os.Stdout)
//
//	logging.Info("OAuth", "Token exchange successful for %s", logging.MaskHandle(linkToken))
//	logging.Error("TokenStore", err, "Failed to store token record")
//
// Development runs use FormatText at debug level; production runs use
// FormatJSON at info level.
//
// # Sensitive values
//
// Link tokens are capabilities and are only logged through MaskHandle, which
// keeps the first eight characters. Access and refresh tokens are never
// logged; upstream error bodies are shortened with Truncate before logging.
//
// # Library integration
//
// NewLeveledLogger exposes the same logger through the key/value interface
// used by go-retryablehttp, so retry attempts appear under the caller's
// subsystem.
package logging
