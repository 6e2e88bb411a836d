// Package server exposes the HTTP surface: the MCP endpoint, the OAuth
// callback and a health check.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"beltche-mcp/internal/apperrors"
	"beltche-mcp/internal/config"
	"beltche-mcp/pkg/logging"
)

const (
	// DefaultReadHeaderTimeout is the default timeout for reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultWriteTimeout is the default timeout for writing responses.
	DefaultWriteTimeout = 120 * time.Second
	// DefaultIdleTimeout is the default idle timeout for keepalive connections.
	DefaultIdleTimeout = 120 * time.Second

	// Route paths.
	PathMCP      = "/mcp"
	PathHealth   = "/health"
	PathCallback = "/auth/callback"
)

// Options wire the server to the rest of the process.
type Options struct {
	Port        int
	Version     string
	Environment config.Environment
	RateLimit   config.RateLimitConfig

	MCPServer       *mcpserver.MCPServer
	CallbackHandler http.Handler

	// TrustProxy takes the client address from the last X-Forwarded-For hop.
	TrustProxy bool
	// Now replaces time.Now, used in tests.
	Now func() time.Time
}

// HTTPServer serves every HTTP route on one port.
type HTTPServer struct {
	opts       Options
	limiter    *IPRateLimiter
	httpServer *http.Server
	listener   net.Listener
}

// New creates the server; call Start to begin listening.
func New(opts Options) *HTTPServer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &HTTPServer{
		opts:    opts,
		limiter: NewIPRateLimiter(opts.RateLimit.MaxRequests, opts.RateLimit.Window),
	}
}

func (s *HTTPServer) dev() bool {
	return s.opts.Environment == config.EnvDevelopment
}

// Handler returns the fully wired HTTP handler.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(PathHealth, s.handleHealth)
	mux.Handle(PathCallback, s.opts.CallbackHandler)

	mcpHandler := mcpserver.NewStreamableHTTPServer(s.opts.MCPServer,
		mcpserver.WithEndpointPath(PathMCP),
		mcpserver.WithStateLess(true),
	)
	mux.Handle(PathMCP, s.rateLimit(mcpHandler))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		apperrors.WriteJSON(w, apperrors.NotFound("Route"), s.dev())
	})

	return s.recoverPanics(logRequests(mux))
}

// Limiter exposes the MCP rate limiter so idle clients can be swept.
func (s *HTTPServer) Limiter() *IPRateLimiter { return s.limiter }

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Timestamp   string `json:"timestamp"`
	Environment string `json:"environment"`
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status:      "ok",
		Version:     s.opts.Version,
		Timestamp:   s.opts.Now().UTC().Format(time.RFC3339Nano),
		Environment: string(s.opts.Environment),
	})
}

// Start binds the port and serves in the background.
// Serve errors other than a clean shutdown are sent on the returned channel.
func (s *HTTPServer) Start() (<-chan error, error) {
	addr := fmt.Sprintf(":%d", s.opts.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logging.Info("HTTP", "Beltche MCP server is running on port %d (%s)", s.Port(), s.opts.Environment)
	logging.Info("HTTP", "   MCP endpoint:   http://localhost:%d%s", s.Port(), PathMCP)
	logging.Info("HTTP", "   Health check:   http://localhost:%d%s", s.Port(), PathHealth)
	logging.Info("HTTP", "   OAuth callback: http://localhost:%d%s", s.Port(), PathCallback)
	return errCh, nil
}

// Port returns the bound port, which differs from the configured one when that was 0.
func (s *HTTPServer) Port() int {
	if s.listener != nil {
		if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
			return addr.Port
		}
	}
	return s.opts.Port
}

// Shutdown gracefully shuts down the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
