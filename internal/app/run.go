package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"beltche-mcp/pkg/logging"
)

// ShutdownTimeout bounds how long in-flight requests get to finish.
const ShutdownTimeout = 10 * time.Second

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts down.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh, err := a.services.HTTP.Start()
	if err != nil {
		return err
	}
	notifySystemd(daemon.SdNotifyReady)

	maintenanceDone := make(chan struct{})
	go func() {
		defer close(maintenanceDone)
		if a.config.IsDevelopment() {
			logging.Debug("Maintenance", "Token cleanup disabled in development")
			return
		}
		newMaintenance(a.services, DefaultMaintenanceInterval).run(ctx)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info("Lifecycle", "Shutdown signal received, shutting down gracefully...")
	case serveErr = <-errCh:
		logging.Error("Lifecycle", serveErr, "HTTP server stopped unexpectedly")
		stop()
	}
	notifySystemd(daemon.SdNotifyStopping)

	return errors.Join(serveErr, a.shutdown(maintenanceDone))
}

func (a *Application) shutdown(maintenanceDone <-chan struct{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.services.HTTP.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	<-maintenanceDone
	if err := a.services.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing token store: %w", err))
	}

	if len(errs) == 0 {
		logging.Info("Lifecycle", "Server stopped")
	}
	return errors.Join(errs...)
}

func notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logging.Warn("Lifecycle", "systemd notification %q failed: %v", state, err)
		return
	}
	if sent {
		logging.Debug("Lifecycle", "Notified systemd: %s", state)
	}
}
