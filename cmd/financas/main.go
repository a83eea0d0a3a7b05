package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"financas/internal/archive"
	"financas/internal/cli"
	apphttp "financas/internal/http"
	"financas/internal/ingest"
	applog "financas/internal/log"
	"financas/internal/services"
	"financas/internal/sheets"
	gsheet "financas/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)
	settings := cli.LoadSettings(logger, cfg.SettingsFile)

	ctx := context.Background()
	be := cli.OpenBackend(ctx, logger, cfg, false)
	defer be.Close()

	var archiver archive.Archiver = archive.Nop{}
	if cfg.ArchiveBucket != "" {
		gcs, err := archive.NewGCS(ctx, cfg.ArchiveBucket)
		if err != nil {
			logger.Warn("Upload archive disabled", applog.FieldError, err, "bucket", cfg.ArchiveBucket)
		} else {
			defer gcs.Close()
			archiver = gcs
			logger.Info("Archiving uploads", "bucket", cfg.ArchiveBucket)
		}
	}

	var reader sheets.RowReader
	if cfg.GoogleEnabled() {
		client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, gsheet.Credentials{
			JSON: cfg.GoogleServiceAccountJSON,
			File: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		reader = client
		logger.Info("Google Sheets import enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	publisher := be.Publisher()
	deps := apphttp.Deps{
		Ledger:    services.NewLedgerService(be.Store, ingest.NewValidator(settings.Categories), archiver, reader, publisher),
		Summary:   services.NewSummaryService(be.Store, settings.Shares),
		Register:  services.NewRegisterService(be.Store, publisher),
		Recurring: services.NewRecurringService(be.Store, settings.FixedCharges, settings.Reminders, publisher),
		Ready:     be.Store.Ping,
	}
	srv := apphttp.NewServer(":"+cfg.Port, deps, cfg.MaxUploadBytes, logger)
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Starting financas server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", publisher != nil,
		"time_zone", cfg.TimeZone)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
