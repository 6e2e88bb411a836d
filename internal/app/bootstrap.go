package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"beltche-mcp/internal/config"
	"beltche-mcp/pkg/logging"
)

// Application is the bootstrapped process: its configuration plus the
// components built from it.
type Application struct {
	config   *config.Config
	services *Services
}

// NewApplication loads configuration, initializes logging and builds all services.
// Configuration problems are returned as config.ValidationErrors.
func NewApplication(ctx context.Context, cfg *Config) (*Application, error) {
	// Bootstrap logging until the configured format is known.
	logging.InitForCLI(logging.LevelInfo, os.Stderr)

	conf, err := config.Load(ctx, config.Options{EnvFile: cfg.EnvFile})
	if err != nil {
		return nil, err
	}

	level := conf.LogLevel()
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logging.Init(conf.LogFormat, level, os.Stdout,
		slog.String("service", ServerName),
		slog.String("version", cfg.Version),
	)

	services, err := InitializeServices(ctx, conf, cfg.Version)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{config: conf, services: services}, nil
}

// Services exposes the built components.
func (a *Application) Services() *Services {
	return a.services
}
