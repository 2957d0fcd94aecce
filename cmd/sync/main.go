package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nospicy/possync/internal/bootstrap"
	"github.com/nospicy/possync/internal/runlog"
	"github.com/nospicy/possync/pkg/config"
	"github.com/nospicy/possync/pkg/logger"
)

const serviceName = "sync"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	services, err := bootstrap.Build(ctx, cfg, logg, bootstrap.Options{})
	if err != nil {
		logg.Error(ctx, "failed to build sync pipeline", err)
		os.Exit(1)
	}

	res, runErr := services.Pipeline.Run(ctx, runlog.TriggerFromEnv())
	if err := services.Close(); err != nil {
		logg.Error(ctx, "error closing clients", err)
	}
	if runErr != nil {
		logg.Error(logg.WithField(ctx, "run_id", res.RunID), "sync failed", runErr)
		os.Exit(1)
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"run_id":         res.RunID,
		"skipped":        res.Skipped,
		"attempts":       res.Attempts,
		"sales_rows":     res.SalesRows,
		"inventory_rows": res.InventoryRows,
	}), "sync finished")
}
