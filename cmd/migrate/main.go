// Command migrate applies or rolls back the embedded PostgreSQL migrations.
//
//	migrate [-dsn DSN] up|down|status|version
//
// The DSN defaults to database.dsn from the regular configuration.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/pressly/goose/v3"

	"github.com/frankbria/auto-author/internal/app"
	"github.com/frankbria/auto-author/internal/config"
	"github.com/frankbria/auto-author/migrations"
)

func main() {
	dsn := flag.String("dsn", "", "PostgreSQL DSN (defaults to database.dsn)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg.Log, "migrate")

	if *dsn == "" {
		*dsn = cfg.Database.DSN
	}
	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := run(ctx, logger, *dsn, command); err != nil {
		logger.Error("migrate failed", slog.String("command", command), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, dsn, command string) error {
	if dsn == "" {
		return fmt.Errorf("database dsn is required")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		for _, r := range results {
			logger.Info("migration applied", slog.String("source", r.Source.Path), slog.Duration("duration", r.Duration))
		}
		return err
	case "down":
		r, err := provider.Down(ctx)
		if r != nil {
			logger.Info("migration rolled back", slog.String("source", r.Source.Path))
		}
		return err
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			logger.Info("migration", slog.String("source", s.Source.Path), slog.String("state", string(s.State)))
		}
		return nil
	case "version":
		v, err := provider.GetDBVersion(ctx)
		if err != nil {
			return err
		}
		logger.Info("database version", slog.Int64("version", v))
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
