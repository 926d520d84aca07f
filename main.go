package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"keyword-popularity/config"
	"keyword-popularity/consumer"
	"keyword-popularity/logging"
	"keyword-popularity/report"
	"keyword-popularity/scheduler"
	"keyword-popularity/storage"
)

// Each fatal failure stage has its own exit code.
const (
	exitConfig        = 1
	exitRemovePriorDB = 2
	exitInitDB        = 3
	exitSourceMissing = 10
	exitReadFailure   = 11
)

func main() {
	logging.Init(slog.LevelInfo)

	configPath := config.GetConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(exitConfig)
	}

	logging.Init(logging.ParseLevel(cfg.LogLevel))
	slog.SetDefault(slog.Default().With("run_id", uuid.NewString()))

	slog.Info("starting keyword popularity consumer",
		"config", configPath,
		"live_data_file", cfg.LiveDataFile,
		"interval_seconds", cfg.MessageIntervalSeconds)

	// Counts from a prior run must not leak into this one
	dbPath := cfg.DBPath()
	if err := os.Remove(dbPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to remove prior database", "path", dbPath, "error", err)
		os.Exit(exitRemovePriorDB)
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "path", dbPath, "error", err)
		os.Exit(exitInitDB)
	}
	defer db.Close()

	if err := db.Reset(context.Background()); err != nil {
		slog.Error("failed to initialize database", "path", dbPath, "error", err)
		os.Exit(exitInitDB)
	}
	slog.Info("database initialized", "path", dbPath)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if cfg.ReportTime != "" {
		sched, err := scheduler.New(cfg.Timezone)
		if err != nil {
			slog.Error("failed to initialize scheduler", "timezone", cfg.Timezone, "error", err)
			os.Exit(exitConfig)
		}

		rep := report.New(db)
		if err := sched.ScheduleDaily(cfg.ReportTime, func() {
			if err := rep.Run(context.Background()); err != nil {
				slog.Warn("keyword report failed", "error", err)
			}
		}); err != nil {
			slog.Error("failed to schedule report", "error", err)
			os.Exit(exitConfig)
		}
		sched.Start()
		defer sched.Stop()
		slog.Info("report scheduled", "time", cfg.ReportTime, "timezone", cfg.Timezone)
	}

	cons := consumer.New(cfg.LiveDataFile, db,
		consumer.WithMaxLinesPerCycle(cfg.MaxLinesPerCycle))

	slog.Info("starting consumer loop", "run_once", cfg.RunOnce)
	err = runConsumer(ctx, cfg, cons)

	switch {
	case err == nil:
		slog.Info("consumer finished", "offset", cons.Offset())
	case errors.Is(err, context.Canceled):
		slog.Info("consumer interrupted, shutting down", "offset", cons.Offset())
	case errors.Is(err, consumer.ErrSourceMissing):
		slog.Error("live data file not found", "path", cfg.LiveDataFile, "error", err)
		os.Exit(exitSourceMissing)
	default:
		slog.Error("failed to read live data file", "path", cfg.LiveDataFile, "error", err)
		os.Exit(exitReadFailure)
	}
}

// runConsumer runs either a single pass over the live data file or the
// polling loop, depending on configuration.
func runConsumer(ctx context.Context, cfg *config.Config, cons *consumer.Consumer) error {
	if cfg.RunOnce {
		stats, err := cons.RunCycle(ctx)
		if err != nil {
			return err
		}
		slog.Info("single pass complete",
			"lines", stats.Lines,
			"applied", stats.Applied,
			"skipped", stats.Skipped,
			"failed", stats.Failed,
			"offset", stats.Offset)
		return nil
	}

	interval := time.Duration(cfg.MessageIntervalSeconds) * time.Second
	return cons.Run(ctx, interval)
}
