// Package batch runs the replay mode: a bounded window of recent chat
// history is scanned once, its links deduplicated and pushed through the
// pipeline sequentially. Replay is stateless on purpose: it does not
// consult or update the processed-message ledger, so a re-run reprocesses
// the same window.
package batch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/leokuzmin/telegram-curator/internal/linkextract"
	"github.com/leokuzmin/telegram-curator/internal/pipeline"
	"github.com/leokuzmin/telegram-curator/internal/platform/config"
	"github.com/leokuzmin/telegram-curator/internal/platform/observability"
	"github.com/leokuzmin/telegram-curator/internal/stream"
)

// Source provides the history window to replay.
type Source interface {
	FetchRecent(ctx context.Context, limit int) ([]stream.Message, error)
}

// Processor runs the enrichment pipeline for one link.
type Processor interface {
	Process(ctx context.Context, item pipeline.Item) pipeline.Outcome
}

type candidate struct {
	messageID int64
	chatID    int64
	url       string
}

type result struct {
	url     string
	outcome pipeline.Outcome
}

type Runner struct {
	cfg    *config.Config
	source Source
	proc   Processor
	logger *zerolog.Logger
}

func New(cfg *config.Config, source Source, proc Processor, logger *zerolog.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		source: source,
		proc:   proc,
		logger: logger,
	}
}

// Run replays one history window and returns after every selected link has
// been attempted.
func (r *Runner) Run(ctx context.Context) error {
	started := time.Now()

	msgs, err := r.source.FetchRecent(ctx, r.cfg.MaxMessages)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	r.logger.Info().Int("messages", len(msgs)).Msg("fetched history window")

	candidates := r.collect(msgs)

	if len(candidates) > r.cfg.MaxURLs {
		// Links beyond the cap are left untouched for a later run, not
		// counted as failures.
		r.logger.Info().
			Int("found", len(candidates)).
			Int("cap", r.cfg.MaxURLs).
			Msg("more links than the run cap, truncating")

		candidates = candidates[:r.cfg.MaxURLs]
	}

	var (
		stats   pipeline.SessionStats
		results []result
	)

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}

		logger := r.logger.With().Int64("message_id", c.messageID).Str("url", c.url).Logger()

		outcome := r.proc.Process(ctx, pipeline.NewItem(c.messageID, strconv.FormatInt(c.chatID, 10), c.url))
		if !outcome.Done {
			logger.Warn().Str("stage", string(outcome.FailedStage)).Str("error", outcome.Err).Msg("link failed")
		}

		stats.Record(outcome)

		results = append(results, result{url: c.url, outcome: outcome})
	}

	r.logSummary(results, stats)

	r.logger.Info().Dur("elapsed", time.Since(started)).Msg("batch run complete")

	return nil
}

// collect extracts links from the window, keeping the first occurrence of
// each unique URL.
func (r *Runner) collect(msgs []stream.Message) []candidate {
	seen := make(map[string]struct{})

	var out []candidate

	for _, msg := range msgs {
		observability.MessagesSeen.Inc()

		for _, url := range linkextract.ExtractURLs(msg.Text) {
			if _, ok := seen[url]; ok {
				continue
			}

			seen[url] = struct{}{}

			out = append(out, candidate{messageID: msg.ID, chatID: msg.ChatID, url: url})
		}
	}

	return out
}

func (r *Runner) logSummary(results []result, stats pipeline.SessionStats) {
	for _, res := range results {
		if res.outcome.Done {
			r.logger.Info().Str("url", res.url).Int64("post_id", res.outcome.PostID).Msg("published for review")

			continue
		}

		r.logger.Info().
			Str("url", res.url).
			Str("stage", string(res.outcome.FailedStage)).
			Str("error", res.outcome.Err).
			Msg("not published")
	}

	stats.Log(r.logger, "batch run finished")
}
