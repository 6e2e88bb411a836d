package app

import (
	"context"
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"beltche-mcp/internal/beltche"
	"beltche-mcp/internal/config"
	"beltche-mcp/internal/oauth"
	"beltche-mcp/internal/server"
	"beltche-mcp/internal/tokenstore"
	"beltche-mcp/internal/tools"
	"beltche-mcp/pkg/logging"
)

// ServerName identifies this process to MCP clients.
const ServerName = "beltche-mcp"

// Services holds every component built at startup.
type Services struct {
	Store   tokenstore.Store
	OAuth   *oauth.Service
	Beltche *beltche.Client
	MCP     *mcpserver.MCPServer
	HTTP    *server.HTTPServer
}

// InitializeServices builds the component graph from a validated configuration.
func InitializeServices(ctx context.Context, cfg *config.Config, version string) (*Services, error) {
	store, err := tokenstore.New(ctx, cfg.TokenStore)
	if err != nil {
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}
	return buildServices(cfg, store, version), nil
}

func buildServices(cfg *config.Config, store tokenstore.Store, version string) *Services {
	oauthService := oauth.NewService(cfg.OAuth, store)
	callback := oauth.NewHandler(oauthService)

	api := beltche.NewClient(cfg.Beltche.BaseURL, beltche.Options{
		MaxAttempts: cfg.Beltche.MaxRetries,
		RetryDelay:  cfg.Beltche.RetryDelay,
	})

	mcpSrv := mcpserver.NewMCPServer(ServerName, version,
		mcpserver.WithToolCapabilities(false),
	)
	tools.NewHandlers(oauthService, api).Register(mcpSrv)

	httpSrv := server.New(server.Options{
		Port:            cfg.Port,
		Version:         version,
		Environment:     cfg.Environment,
		RateLimit:       cfg.RateLimit,
		MCPServer:       mcpSrv,
		CallbackHandler: callback,
		TrustProxy:      cfg.IsProduction(),
	})

	logging.Debug("Bootstrap", "Services initialized (environment=%s, api=%s)", cfg.Environment, cfg.Beltche.BaseURL)

	return &Services{
		Store:   store,
		OAuth:   oauthService,
		Beltche: api,
		MCP:     mcpSrv,
		HTTP:    httpSrv,
	}
}
