// Package images validates candidate page images and generates fallback
// illustrations with DALL-E.
package images

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

const (
	validateTimeout = 5 * time.Second
	imageSize       = "1024x1024"
)

// Service implements the pipeline's image collaborator.
type Service struct {
	client     *openai.Client
	httpClient *http.Client
	model      string
	logger     *zerolog.Logger
}

func NewService(apiKey, model string, logger *zerolog.Logger) *Service {
	return NewServiceWithClient(openai.NewClient(apiKey), model, logger)
}

// NewServiceWithClient allows injecting a preconfigured OpenAI client.
func NewServiceWithClient(client *openai.Client, model string, logger *zerolog.Logger) *Service {
	return &Service{
		client:     client,
		httpClient: &http.Client{Timeout: validateTimeout},
		model:      model,
		logger:     logger,
	}
}

// Validate probes ref with a HEAD request and reports whether it serves an
// image. Any error means invalid; the caller falls back to generation or to
// no image at all.
func (s *Service) Validate(ctx context.Context, ref string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, ref, nil)
	if err != nil {
		return false
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")

	return resp.StatusCode == http.StatusOK && strings.Contains(contentType, "image")
}

// Generate creates an illustration for prompt and returns its URL.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateImage(ctx, openai.ImageRequest{
		Model:          s.model,
		Prompt:         prompt,
		Size:           imageSize,
		Quality:        openai.CreateImageQualityStandard,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}

	if len(resp.Data) == 0 {
		return "", fmt.Errorf("create image: empty response")
	}

	s.logger.Debug().Msg("generated fallback image")

	return resp.Data[0].URL, nil
}
