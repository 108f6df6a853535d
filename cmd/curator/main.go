package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/leokuzmin/telegram-curator/internal/app"
	"github.com/leokuzmin/telegram-curator/internal/platform/config"
	"github.com/leokuzmin/telegram-curator/internal/state"
)

func main() {
	mode := flag.String("mode", "monitor", "Service mode (monitor, batch)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := state.Open(cfg.StateDBPath, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open state store")
	}
	defer store.Close()

	application := app.New(cfg, store, &logger)

	// Start health server in background
	go func() {
		if err := application.StartHealthServer(ctx); err != nil {
			logger.Error().Err(err).Msg("health check server error")
		}
	}()

	if err := runMode(ctx, application, *mode); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func runMode(ctx context.Context, application *app.App, mode string) error {
	switch mode {
	case "monitor":
		return application.RunMonitor(ctx)
	case "batch":
		return application.RunBatch(ctx)
	default:
		log.Fatalf("Usage: %s --mode=[monitor|batch]", os.Args[0])

		return nil
	}
}
