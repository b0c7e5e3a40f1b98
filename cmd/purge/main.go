// Command purge permanently removes chapters soft-deleted longer ago than the
// configured retention period, across every book. It is meant to be run by
// an external cron job when tocd's in-process sweeper is not used.
//
// Exit codes: 0 = success, 1 = error, 2 = some books could not be purged.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/frankbria/auto-author/internal/app"
	"github.com/frankbria/auto-author/internal/config"
)

func main() {
	days := flag.Int("days", -1, "retention period in days (overrides retention.days)")
	timeout := flag.Duration("timeout", 30*time.Minute, "abort the sweep after this long")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *days >= 0 {
		cfg.Retention.Days = *days
	}

	logger := app.NewLogger(cfg.Log, "purge")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rt, err := app.Build(ctx, *cfg, logger)
	if err != nil {
		logger.Error("build runtime", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer rt.Close(context.Background()) //nolint:errcheck

	report, err := rt.Retention.Sweep(ctx)
	if err != nil {
		logger.Error("purge failed",
			slog.String("error", err.Error()),
			slog.Int("retention_days", cfg.Retention.Days),
		)
		rt.Close(context.Background()) //nolint:errcheck
		os.Exit(1)
	}

	logger.Info("purge completed",
		slog.Int("retention_days", cfg.Retention.Days),
		slog.Int("books_scanned", report.BooksScanned),
		slog.Int("chapters_purged", report.ChaptersPurged),
		slog.Int("failures", len(report.Failures)),
	)
	if len(report.Failures) > 0 {
		rt.Close(context.Background()) //nolint:errcheck
		os.Exit(2)
	}
}
