// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/financas, cmd/financas-worker, and cmd/recurring-worker.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"financas/internal/backend"
	"financas/internal/config"
	applog "financas/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// SetupLogger builds the process logger from the configured level and
// format and installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadSettings reads the household settings file, exiting on failure.
func LoadSettings(logger *applog.Logger, path string) config.Settings {
	settings, err := config.LoadSettings(path)
	if err != nil {
		logger.Error("Failed to load settings", applog.FieldError, err, "path", path)
		os.Exit(1)
	}
	if path != "" {
		logger.Info("Settings loaded", "path", path, "fixed_charges", len(settings.FixedCharges))
	}
	return settings
}

// OpenBackend opens the configured store and event client, exiting on
// failure. With requireEvents an unreachable broker is fatal.
func OpenBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config, requireEvents bool) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	bcfg.RequireEvents = requireEvents

	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentStorage).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to open backend", applog.FieldError, err, "backend", bcfg.Type)
		os.Exit(1)
	}
	return res
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when cleanup has finished.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
