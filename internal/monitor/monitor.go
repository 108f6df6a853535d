// Package monitor runs the real-time mode: it subscribes to the chat
// stream, enqueues unseen links and drives the enrichment pipeline from a
// single background worker.
package monitor

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/leokuzmin/telegram-curator/internal/linkextract"
	"github.com/leokuzmin/telegram-curator/internal/pipeline"
	"github.com/leokuzmin/telegram-curator/internal/platform/config"
	"github.com/leokuzmin/telegram-curator/internal/platform/observability"
	"github.com/leokuzmin/telegram-curator/internal/queue"
	"github.com/leokuzmin/telegram-curator/internal/state"
	"github.com/leokuzmin/telegram-curator/internal/stream"
)

// Source delivers chat messages until the context is canceled.
type Source interface {
	Subscribe(ctx context.Context, onMessage stream.OnMessage) error
}

// Store is the processed-message ledger the monitor consults and updates.
type Store interface {
	IsProcessed(ctx context.Context, messageID int64) (bool, error)
	MarkProcessed(ctx context.Context, messageID int64, chatID, url, status, errorMessage string) error
	Prune(ctx context.Context, maxAge time.Duration) (int64, error)
	Stats(ctx context.Context) (state.Stats, error)
}

// Processor runs the enrichment pipeline for one link.
type Processor interface {
	Process(ctx context.Context, item pipeline.Item) pipeline.Outcome
}

type Monitor struct {
	cfg    *config.Config
	source Source
	store  Store
	proc   Processor
	queue  *queue.Queue
	logger *zerolog.Logger

	// stats is written only by the worker goroutine and read after the
	// worker has exited.
	stats pipeline.SessionStats
}

func New(cfg *config.Config, source Source, store Store, proc Processor, logger *zerolog.Logger) *Monitor {
	return &Monitor{
		cfg:    cfg,
		source: source,
		store:  store,
		proc:   proc,
		queue:  queue.New(),
		logger: logger,
	}
}

// Run subscribes to the chat and processes links until ctx is canceled.
// Shutdown stops the subscription immediately and lets the worker finish
// only the item it is currently processing; seeds still queued are dropped,
// and since they were never recorded a later history window picks them up
// again.
func (m *Monitor) Run(ctx context.Context) error {
	m.pruneRetention(ctx)

	done := make(chan struct{})

	go func() {
		defer close(done)

		m.worker(ctx)
	}()

	err := m.source.Subscribe(ctx, func(msg stream.Message) {
		m.handleMessage(ctx, msg)
	})

	m.queue.Close()
	<-done

	if dropped := m.queue.Len(); dropped > 0 {
		m.logger.Info().Int("dropped", dropped).Msg("unrecorded queued links left for the next history window")
	}

	m.logShutdownStats(context.WithoutCancel(ctx))

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

func (m *Monitor) pruneRetention(ctx context.Context) {
	if m.cfg.RetentionDays <= 0 {
		return
	}

	maxAge := time.Duration(m.cfg.RetentionDays) * 24 * time.Hour

	pruned, err := m.store.Prune(ctx, maxAge)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to prune old records")

		return
	}

	if pruned > 0 {
		m.logger.Info().Int64("pruned", pruned).Int("retention_days", m.cfg.RetentionDays).Msg("pruned old records")
	}
}

// handleMessage is the producer side: it only extracts, dedupes and
// enqueues, so the stream callback never waits on the pipeline. Session
// stats stay untouched here; skips surface through the metrics counter and
// the store aggregates.
func (m *Monitor) handleMessage(ctx context.Context, msg stream.Message) {
	observability.MessagesSeen.Inc()

	links := linkextract.ExtractURLs(msg.Text)
	if len(links) == 0 {
		return
	}

	logger := m.logger.With().Int64("message_id", msg.ID).Logger()

	processed, err := m.store.IsProcessed(ctx, msg.ID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to check processed state")

		return
	}

	if processed {
		observability.LinksSkipped.Inc()
		logger.Debug().Msg("message already processed, skipping")

		return
	}

	// Each link is its own queued item. The ledger is keyed by message ID,
	// so with several links the outcome of whichever finishes last stands
	// as the message's record.
	for _, url := range links {
		if !m.queue.Enqueue(queue.Seed{
			MessageID: msg.ID,
			ChatID:    strconv.FormatInt(msg.ChatID, 10),
			URL:       url,
			Enqueued:  time.Now(),
		}) {
			logger.Warn().Str("url", url).Msg("queue closed, dropping link")

			return
		}

		observability.LinksEnqueued.Inc()
		logger.Info().Str("url", url).Msg("link enqueued")
	}

	observability.QueueDepth.Set(float64(m.queue.Len()))
}

// worker drains the queue until ctx is canceled or the queue is closed. The
// item in flight when ctx is canceled still finishes, bounded by each
// collaborator's own timeout; items dequeued after that point would extend
// shutdown without bound, so the loop exits instead.
func (m *Monitor) worker(ctx context.Context) {
	procCtx := context.WithoutCancel(ctx)

	for {
		if ctx.Err() != nil {
			return
		}

		seed, err := m.queue.Dequeue(ctx)
		if err != nil {
			if !errors.Is(err, queue.ErrClosed) && !errors.Is(err, context.Canceled) {
				m.logger.Error().Err(err).Msg("worker stopped")
			}

			return
		}

		observability.QueueDepth.Set(float64(m.queue.Len()))

		m.processSeed(procCtx, seed)
	}
}

func (m *Monitor) processSeed(ctx context.Context, seed queue.Seed) {
	logger := m.logger.With().Int64("message_id", seed.MessageID).Str("url", seed.URL).Logger()

	// No second dedup check here: sibling links from one message are
	// distinct queued items and each one runs. Delivery is at-least-once;
	// the producer-side check keeps re-delivered messages out.
	outcome := m.proc.Process(ctx, pipeline.NewItem(seed.MessageID, seed.ChatID, seed.URL))

	status := state.StatusProcessed

	errMsg := ""
	if !outcome.Done {
		status = state.StatusFailed
		errMsg = outcome.Err
	}

	if err := m.store.MarkProcessed(ctx, seed.MessageID, seed.ChatID, seed.URL, status, errMsg); err != nil {
		logger.Error().Err(err).Msg("failed to record outcome")
	}

	m.stats.Record(outcome)
}

func (m *Monitor) logShutdownStats(ctx context.Context) {
	m.stats.Log(m.logger, "monitor session finished")

	totals, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to read store totals")

		return
	}

	m.logger.Info().
		Int("total", totals.Total).
		Int("processed", totals.Processed).
		Int("failed", totals.Failed).
		Int("skipped", totals.Skipped).
		Msg("store totals")
}
