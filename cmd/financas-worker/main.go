package main

import (
	"os"
	"time"

	"financas/internal/cli"
	applog "financas/internal/log"
	"financas/internal/services"
	"financas/internal/sheets"
	gsheet "financas/internal/sheets/google"
	"financas/internal/sheets/memory"
	"financas/internal/worker"
)

// exportMonths is how far back the periodic pass re-exports settlements.
const exportMonths = 3

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)
	settings := cli.LoadSettings(logger, cfg.SettingsFile)

	logger.Info("Starting financas-worker")

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	be := cli.OpenBackend(ctx, logger, cfg, cfg.AMQPURL != "")
	defer be.Close()

	var exporter sheets.SettlementExporter
	if cfg.GoogleEnabled() {
		client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, gsheet.Credentials{
			JSON: cfg.GoogleServiceAccountJSON,
			File: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Exporting settlements to Google Sheets", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		exporter = memory.New()
		logger.Info("Google Sheets disabled - settlements are computed but kept in memory")
	}

	summaries := services.NewSummaryService(be.Store, settings.Shares)
	w := worker.NewExportWorker(summaries, exporter, cfg.Location(), exportMonths)

	var consumer worker.EventConsumer
	if be.Events != nil {
		consumer = be.Events
	}

	logger.Info("Export worker configured",
		"interval", cfg.ExportInterval,
		"months", exportMonths,
		"events", consumer != nil)
	if err := w.Run(ctx, consumer, cfg.ExportInterval); err != nil {
		logger.Error("Export worker stopped", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
