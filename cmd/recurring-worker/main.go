package main

import (
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"financas/internal/cli"
	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentRecurring)
	settings := cli.LoadSettings(logger, cfg.SettingsFile)

	logger.Info("Starting recurring-worker")

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	be := cli.OpenBackend(ctx, logger, cfg, false)
	defer be.Close()

	recurring := services.NewRecurringService(be.Store, settings.FixedCharges, settings.Reminders, be.Publisher())
	loc := cfg.Location()

	ensure := func() {
		month := core.CurrentMonth(loc)
		count, err := recurring.EnsureRecurring(ctx, month)
		if err != nil {
			logger.Error("Fixed charge processing failed", applog.FieldError, err, applog.FieldMonth, month)
			return
		}
		logger.Info("Fixed charge processing complete", applog.FieldMonth, month, "records_created", count)
	}

	logger.Info("Running initial fixed charge processing...")
	ensure()

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(cfg.RecurringSchedule, ensure); err != nil {
		logger.Error("Invalid recurring schedule", applog.FieldError, err, "schedule", cfg.RecurringSchedule)
		os.Exit(1)
	}
	c.Start()
	logger.Info("Fixed charge schedule configured",
		"schedule", cfg.RecurringSchedule,
		"time_zone", loc.String(),
		"charges", len(settings.FixedCharges))

	cli.WaitForShutdown(ctx, done)

	stopped := c.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(10 * time.Second):
		logger.Warn("Timed out waiting for a running job")
	}
	logger.Info("Recurring-worker shutdown complete")
}
