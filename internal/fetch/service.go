package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/leokuzmin/telegram-curator/internal/pipeline"
)

// ErrFetchTimeout indicates the page took too long to load.
var ErrFetchTimeout = errors.New("page load timed out")

const untitled = "Untitled"

// Service implements the pipeline's content-extraction stage.
type Service struct {
	fetcher *WebFetcher
	maxLen  int
	logger  *zerolog.Logger
}

func NewService(rps float64, timeout time.Duration, maxLen int, logger *zerolog.Logger) *Service {
	return &Service{
		fetcher: NewWebFetcher(rps, timeout),
		maxLen:  maxLen,
		logger:  logger,
	}
}

// Fetch downloads the page at url and extracts title, text and a candidate
// image reference.
func (s *Service) Fetch(ctx context.Context, url string) (*pipeline.FetchResult, error) {
	body, err := s.fetcher.FetchBody(ctx, url)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s", ErrFetchTimeout, url)
		}

		return nil, err
	}

	content := ExtractContent(body, url, s.maxLen)

	title := content.Title
	if title == "" {
		title = untitled
	}

	s.logger.Debug().
		Str("url", url).
		Str("title", title).
		Int("words", content.WordCount).
		Msg("page content extracted")

	return &pipeline.FetchResult{
		Title:       title,
		Description: content.Description,
		Text:        content.Text,
		ImageURL:    content.ImageURL,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}
