// Package app wires the process together and owns its lifecycle.
//
// NewApplication loads configuration, initializes logging and builds every
// component explicitly, in dependency order:
//
//  1. token store (Redis when REDIS_URL is set, in-memory otherwise)
//  2. OAuth service and its callback handler
//  3. Beltche API client
//  4. MCP server with the authorize, get_students and create_gym tools
//  5. HTTP server exposing /mcp, /health and /auth/callback
//
// Run starts the HTTP server and the maintenance loop, reports readiness to
// systemd when running under it, and shuts down gracefully on SIGINT/SIGTERM
// or context cancellation.
package app
