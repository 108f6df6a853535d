// Package app provides the application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods to run
// the two operational modes:
//
//   - Monitor mode: MTProto client that watches the chat in real time and
//     processes new links as they arrive
//   - Batch mode: one-shot replay of a recent history window
//
// Both modes share the same enrichment pipeline and processed-message store.
package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/leokuzmin/telegram-curator/internal/batch"
	"github.com/leokuzmin/telegram-curator/internal/fetch"
	"github.com/leokuzmin/telegram-curator/internal/images"
	"github.com/leokuzmin/telegram-curator/internal/llm"
	"github.com/leokuzmin/telegram-curator/internal/monitor"
	"github.com/leokuzmin/telegram-curator/internal/pipeline"
	"github.com/leokuzmin/telegram-curator/internal/platform/config"
	"github.com/leokuzmin/telegram-curator/internal/platform/observability"
	"github.com/leokuzmin/telegram-curator/internal/publish"
	"github.com/leokuzmin/telegram-curator/internal/state"
	"github.com/leokuzmin/telegram-curator/internal/stream"
)

// App holds the application dependencies and provides methods to run the
// operational modes.
type App struct {
	cfg    *config.Config
	store  *state.Store
	logger *zerolog.Logger
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, store *state.Store, logger *zerolog.Logger) *App {
	return &App{
		cfg:    cfg,
		store:  store,
		logger: logger,
	}
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	return observability.NewServer(a.store, a.cfg.HealthPort, a.logger).Start(ctx)
}

// RunMonitor connects to Telegram and watches the chat until ctx is
// canceled.
func (a *App) RunMonitor(ctx context.Context) error {
	orch := a.newOrchestrator()

	client := stream.New(a.cfg, a.logger)

	return client.Run(ctx, func(ctx context.Context, s *stream.Session) error {
		return monitor.New(a.cfg, s, a.store, orch, a.logger).Run(ctx)
	})
}

// RunBatch replays a recent history window once and exits.
func (a *App) RunBatch(ctx context.Context) error {
	orch := a.newOrchestrator()

	client := stream.New(a.cfg, a.logger)

	return client.Run(ctx, func(ctx context.Context, s *stream.Session) error {
		return batch.New(a.cfg, s, orch, a.logger).Run(ctx)
	})
}

func (a *App) newOrchestrator() *pipeline.Orchestrator {
	fetcher := fetch.NewService(a.cfg.WebFetchRPS, a.cfg.WebFetchTimeout, a.cfg.MaxContentLength, a.logger)
	summarizer := llm.NewSummarizer(a.cfg.OpenAIAPIKey, a.cfg.OpenAIModel, a.cfg.LLMRateLimitRPS, a.logger)
	imageSvc := images.NewService(a.cfg.OpenAIAPIKey, a.cfg.OpenAIImageModel, a.logger)
	publisher := publish.NewClient(a.cfg.APIBaseURL, a.cfg.APITimeout, a.logger)

	return pipeline.NewOrchestrator(fetcher, summarizer, imageSvc, publisher, a.cfg.GenerateImages, a.logger)
}
