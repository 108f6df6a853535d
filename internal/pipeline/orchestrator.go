package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/leokuzmin/telegram-curator/internal/platform/observability"
)

const (
	imagePromptMaxLen  = 400
	imageSummaryMaxLen = 100
	releaseDateLayout  = "2006-01-02"
	defaultContentType = "Article"
)

// Orchestrator runs items through the stage sequence.
type Orchestrator struct {
	fetcher        ContentFetcher
	summarizer     Summarizer
	images         ImageService
	publisher      Publisher
	generateImages bool
	logger         *zerolog.Logger
}

func NewOrchestrator(
	fetcher ContentFetcher,
	summarizer Summarizer,
	images ImageService,
	publisher Publisher,
	generateImages bool,
	logger *zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		fetcher:        fetcher,
		summarizer:     summarizer,
		images:         images,
		publisher:      publisher,
		generateImages: generateImages,
		logger:         logger,
	}
}

// Process runs item through fetch, summarize, resolve-image and publish.
// The first stage error is terminal: no later collaborator is invoked once
// an earlier stage has failed. A missing image is not a failure.
func (o *Orchestrator) Process(ctx context.Context, item Item) Outcome {
	logger := o.logger.With().Str("item_id", item.ID).Str("url", item.URL).Logger()

	fetched, err := o.runFetch(ctx, &logger, item.URL)
	if err != nil {
		return o.fail(&logger, StageFetch, err)
	}

	item.Fetched = fetched

	summary, err := o.runSummarize(ctx, &logger, item)
	if err != nil {
		return o.fail(&logger, StageSummarize, err)
	}

	item.Summary = summary

	// Image resolution never fails the item; the worst case is no image.
	item.ImageURL = o.resolveImage(ctx, &logger, item)

	postID, err := o.runPublish(ctx, &logger, item)
	if err != nil {
		return o.fail(&logger, StagePublish, err)
	}

	observability.PipelineOutcomes.WithLabelValues("done", "").Inc()
	logger.Info().Int64("post_id", postID).Msg("pipeline item published")

	return Outcome{Done: true, PostID: postID}
}

func (o *Orchestrator) runFetch(ctx context.Context, logger *zerolog.Logger, url string) (*FetchResult, error) {
	start := time.Now()

	fetched, err := o.fetcher.Fetch(ctx, url)

	observability.StageDuration.WithLabelValues(string(StageFetch)).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, fmt.Errorf("fetch content: %w", err)
	}

	logger.Debug().Str("title", fetched.Title).Int("text_len", len(fetched.Text)).Msg("content fetched")

	return fetched, nil
}

func (o *Orchestrator) runSummarize(ctx context.Context, logger *zerolog.Logger, item Item) (*Summary, error) {
	start := time.Now()

	summary, err := o.summarizer.Summarize(ctx, item.URL, item.Fetched.Title, item.Fetched.Description, item.Fetched.Text)

	observability.StageDuration.WithLabelValues(string(StageSummarize)).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, fmt.Errorf("summarize content: %w", err)
	}

	logger.Debug().Str("provider", summary.Provider).Msg("content summarized")

	return summary, nil
}

func (o *Orchestrator) resolveImage(ctx context.Context, logger *zerolog.Logger, item Item) string {
	start := time.Now()
	defer func() {
		observability.StageDuration.WithLabelValues(string(StageImage)).Observe(time.Since(start).Seconds())
	}()

	if candidate := item.Fetched.ImageURL; candidate != "" {
		if o.images.Validate(ctx, candidate) {
			logger.Debug().Str("image_url", candidate).Msg("using page image")

			return candidate
		}

		logger.Debug().Str("image_url", candidate).Msg("candidate image failed validation")
	}

	if !o.generateImages {
		return ""
	}

	prompt := imagePrompt(item.Fetched.Title, item.Summary.Summary)

	generated, err := o.images.Generate(ctx, prompt)
	if err != nil {
		logger.Warn().Err(err).Msg("image generation failed, continuing without image")

		return ""
	}

	logger.Debug().Msg("image generated")

	return generated
}

func (o *Orchestrator) runPublish(ctx context.Context, logger *zerolog.Logger, item Item) (int64, error) {
	start := time.Now()

	postID, err := o.publisher.CreatePendingItem(ctx, PendingItem{
		Title:       item.Fetched.Title,
		Summary:     item.Summary.Summary,
		SourceURL:   item.URL,
		ImageURL:    item.ImageURL,
		Provider:    item.Summary.Provider,
		ContentType: coalesce(item.Summary.ContentType, defaultContentType),
		ReleaseDate: time.Now().Format(releaseDateLayout),
	})

	observability.StageDuration.WithLabelValues(string(StagePublish)).Observe(time.Since(start).Seconds())

	if err != nil {
		return 0, fmt.Errorf("create pending item: %w", err)
	}

	return postID, nil
}

func (o *Orchestrator) fail(logger *zerolog.Logger, stage Stage, err error) Outcome {
	observability.PipelineOutcomes.WithLabelValues("failed", string(stage)).Inc()
	logger.Warn().Str("stage", string(stage)).Err(err).Msg("pipeline item failed")

	return Outcome{FailedStage: stage, Err: err.Error()}
}

// imagePrompt builds the generation prompt from the cleaned title and a
// truncated summary.
func imagePrompt(title, summary string) string {
	title = strings.TrimSpace(title)
	summary = truncateRunes(strings.TrimSpace(summary), imageSummaryMaxLen)

	prompt := fmt.Sprintf("A professional, modern illustration representing: %s. %s", title, summary)

	return truncateRunes(prompt, imagePromptMaxLen)
}

// truncateRunes cuts s to at most max runes, never splitting a multi-byte
// character.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	return string([]rune(s)[:max])
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
