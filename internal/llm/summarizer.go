// Package llm summarizes fetched articles with the OpenAI chat API.
package llm

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/leokuzmin/telegram-curator/internal/linkextract"
	"github.com/leokuzmin/telegram-curator/internal/pipeline"
)

const (
	summaryMaxTokens   = 150
	summaryTemperature = 0.7
	contentMaxChars    = 1500
	rateLimiterBurst   = 5

	systemPrompt = "You are an assistant that writes concise article summaries. " +
		"Reply with a summary of 2-3 lines at most."

	defaultContentType = "Article"
	noDescription      = "No description available."
)

// Summarizer produces short summaries plus provider classification. A broken
// or unreachable LLM degrades to a trivial summary instead of failing the
// item; only cancellation propagates as an error.
type Summarizer struct {
	client      *openai.Client
	model       string
	rateLimiter *rate.Limiter
	logger      *zerolog.Logger
}

func NewSummarizer(apiKey, model string, rps int, logger *zerolog.Logger) *Summarizer {
	return NewSummarizerWithClient(openai.NewClient(apiKey), model, rps, logger)
}

// NewSummarizerWithClient allows injecting a preconfigured OpenAI client.
func NewSummarizerWithClient(client *openai.Client, model string, rps int, logger *zerolog.Logger) *Summarizer {
	if rps <= 0 {
		rps = 1
	}

	return &Summarizer{
		client:      client,
		model:       model,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rps)), rateLimiterBurst),
		logger:      logger,
	}
}

// Summarize builds the pipeline summary for one fetched page.
//
// Absence of extractable text is not a failure: the page description (or a
// stock line) stands in for the summary. An LLM call error falls back to a
// title-based summary. Context cancellation is the only propagated error.
func (s *Summarizer) Summarize(ctx context.Context, url, title, description, text string) (*pipeline.Summary, error) {
	result := &pipeline.Summary{
		Provider:    linkextract.Provider(url),
		ContentType: defaultContentType,
	}

	if text == "" {
		if description != "" {
			result.Summary = description
		} else {
			result.Summary = noDescription
		}

		return result, nil
	}

	summary, err := s.generate(ctx, title, text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("summarize: %w", ctx.Err())
		}

		s.logger.Warn().Err(err).Str("url", url).Msg("summary generation failed, using fallback")

		result.Summary = fmt.Sprintf("%s. Content available at the link.", title)

		return result, nil
	}

	result.Summary = summary

	return result, nil
}

func (s *Summarizer) generate(ctx context.Context, title, text string) (string, error) {
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	// Rune-based cut so a multi-byte character is never split.
	if utf8.RuneCountInString(text) > contentMaxChars {
		text = string([]rune(text)[:contentMaxChars])
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   summaryMaxTokens,
		Temperature: summaryTemperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Summarize this article in 2-3 lines:\n\nTitle: %s\n\nContent: %s", title, text),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}

	return resp.Choices[0].Message.Content, nil
}
