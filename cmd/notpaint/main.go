package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/wbrown/pixelbot/internal/bot"
	"github.com/wbrown/pixelbot/internal/config"
	"github.com/wbrown/pixelbot/internal/logging"
)

func main() {
	configFile := flag.String("config", "",
		"Path to the config file (default: ./config.yaml or ~/.pixelbot/config.yaml)")
	repaint := flag.Bool("repaint", true,
		"Repaint each account's template after claiming rewards")
	once := flag.Bool("once", false,
		"Run a single cycle and exit")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "repaint" {
			cfg.Repaint.Enabled = *repaint
		}
	})

	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		NoColor:    cfg.Log.NoColor,
	})
	if err != nil {
		fmt.Printf("Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger, *once); err != nil {
		logger.Error("Bot stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger, once bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, err := bot.New(cfg, bot.WithLogger(logger))
	if err != nil {
		return err
	}

	cycle := func() {
		if _, err := runner.RunCycle(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Cycle failed", zap.Error(err))
		}
	}

	logger.Info("Starting bot",
		zap.Bool("repaint", cfg.Repaint.Enabled),
		zap.Duration("interval", cfg.Run.Interval),
		zap.Int("concurrency", cfg.Run.Concurrency))
	cycle()
	if once || ctx.Err() != nil {
		return nil
	}

	cronLog := logging.CronLogger(logger)
	c := cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.SkipIfStillRunning(cronLog)))
	if _, err := c.AddFunc("@every "+cfg.Run.Interval.String(), cycle); err != nil {
		return fmt.Errorf("invalid run interval %s: %w", cfg.Run.Interval, err)
	}
	c.Start()
	logger.Info("Next cycle scheduled", zap.Time("at", c.Entries()[0].Next))

	<-ctx.Done()
	logger.Info("Shutting down, waiting for the running cycle")
	<-c.Stop().Done()
	return nil
}
