package tokenstore

import (
	"context"

	"beltche-mcp/internal/config"
	"beltche-mcp/pkg/logging"
)

// New selects the backend once at startup: Redis when a URL is configured,
// the in-process store otherwise.
func New(ctx context.Context, cfg config.TokenStoreConfig) (Store, error) {
	if cfg.RedisURL != "" {
		logging.Info("TokenStore", "Using Redis token store")
		return NewRedisStore(ctx, cfg.RedisURL, cfg.DefaultTTL)
	}

	logging.Warn("TokenStore", "Using in-memory token store (tokens will be lost on restart)")
	return NewMemoryStore(cfg.MaxSize, cfg.DefaultTTL), nil
}
