package app

import (
	"context"
	"time"

	"beltche-mcp/internal/server"
	"beltche-mcp/internal/tokenstore"
	"beltche-mcp/pkg/logging"
)

// DefaultMaintenanceInterval is how often expired tokens are swept.
const DefaultMaintenanceInterval = time.Hour

// maintenance periodically removes expired token records and idle rate
// limiter entries. Sweeps run on a single goroutine and never overlap.
type maintenance struct {
	store    tokenstore.Store
	limiter  *server.IPRateLimiter
	interval time.Duration
}

func newMaintenance(s *Services, interval time.Duration) *maintenance {
	m := &maintenance{store: s.Store, interval: interval}
	if s.HTTP != nil {
		m.limiter = s.HTTP.Limiter()
	}
	return m
}

func (m *maintenance) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *maintenance) sweep(ctx context.Context) {
	removed, err := m.store.ClearExpired(ctx)
	if err != nil {
		logging.Error("Maintenance", err, "Failed to clear expired tokens")
	} else if removed > 0 {
		logging.Info("Maintenance", "Cleared %d expired tokens", removed)
	}

	if m.limiter != nil {
		if n := m.limiter.Cleanup(); n > 0 {
			logging.Debug("Maintenance", "Dropped %d idle rate limiter entries", n)
		}
	}
}
