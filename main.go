// Package main implements a Cloud Run service that registers seminar
// reminders for SMS subscribers and schedules the reminder campaigns that
// deliver them.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"cloud.google.com/go/storage"
	"github.com/benbjohnson/clock"

	"seminar-notifier/config"
	"seminar-notifier/migrate"
	"seminar-notifier/pinpoint"
	"seminar-notifier/reminder"
	"seminar-notifier/schedule"
	"seminar-notifier/server"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		logger.Error("Failed to initialize Storage client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := storageClient.Close(); err != nil {
			logger.Warn("Failed to close storage client", "error", err)
		}
	}()

	clk := clock.New()
	api := pinpoint.New(cfg.APIBaseURL, cfg.APIKey, cfg.ProjectID, logger)
	scheduler := schedule.New(api, schedule.Defaults(), cfg.TemplateVersion, clk, logger)
	reminders := reminder.New(api, scheduler, clk, logger)

	exports := migrate.NewGCSBucket(storageClient, cfg.ExportBucket)
	migrator := migrate.New(api, exports, scheduler, clk, logger, cfg.ExportBucket, cfg.ExportRoleArn)

	srv := server.New(api, reminders, migrator, clk, logger, cfg.ConfirmTemplate, cfg.TemplateVersion)

	logger.Info("Starting HTTP server", "port", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, srv.Router()); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
