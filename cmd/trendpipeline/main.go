package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"

	"TrendPipeline/internal/app"
	"TrendPipeline/internal/config"
	"TrendPipeline/internal/infrastructure/storage"
	"TrendPipeline/internal/logging"
)

const usage = `usage: trendpipeline <command>

commands:
  serve           run the HTTP API and the cron schedule
  sync            run one ingestion and opportunity sync cycle
  migrate up      apply all pending migrations
  migrate down N  roll back N migrations`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	if err := run(ctx, cfg, logger, os.Args[1:]); err != nil {
		logger.Error("trendpipeline stopped", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		gin.SetMode(gin.ReleaseMode)
		application, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer application.Close()
		return application.Serve(ctx)

	case "sync":
		application, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer application.Close()
		res, err := application.RunOnce(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)

	case "migrate":
		return migrate(ctx, cfg, logger, args)

	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func migrate(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	direction := fs.Arg(0)
	if direction == "" {
		direction = "up"
	}

	db, err := app.OpenDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	switch direction {
	case "up":
		return storage.Migrate(db, logger)
	case "down":
		steps := 1
		if raw := fs.Arg(1); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				return fmt.Errorf("invalid step count %q", raw)
			}
			steps = n
		}
		return storage.MigrateDown(db, steps, logger)
	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown migrate direction %q", direction)
	}
}
