// Package publish submits enriched items to the moderation backend's
// pending-posts API.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/leokuzmin/telegram-curator/internal/pipeline"
)

// ErrPublishRejected indicates the backend refused the item. A non-2xx
// status and a false success flag in the body are treated identically.
var ErrPublishRejected = errors.New("pending post rejected")

const pendingPostsPath = "/api/pending-posts"

// Client talks to the moderation backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type pendingPostRequest struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	SourceURL   string `json:"source_url"`
	ImageURL    string `json:"image_url,omitempty"`
	Provider    string `json:"provider,omitempty"`
	Type        string `json:"type,omitempty"`
	ReleaseDate string `json:"release_date"`
}

type pendingPostResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		ID int64 `json:"id"`
	} `json:"data"`
}

// CreatePendingItem posts item for moderation and returns the created post
// ID.
func (c *Client) CreatePendingItem(ctx context.Context, item pipeline.PendingItem) (int64, error) {
	payload, err := json.Marshal(pendingPostRequest{
		Title:       item.Title,
		Summary:     item.Summary,
		SourceURL:   item.SourceURL,
		ImageURL:    item.ImageURL,
		Provider:    item.Provider,
		Type:        item.ContentType,
		ReleaseDate: item.ReleaseDate,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal pending post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pendingPostsPath, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post pending item: %w", err)
	}
	defer resp.Body.Close()

	// Status first: an error page body is often not JSON at all.
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var body pendingPostResponse

		reason := fmt.Sprintf("status %d", resp.StatusCode)
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
			reason = fmt.Sprintf("%s: %s", reason, body.Error)
		}

		return 0, fmt.Errorf("%w: %s", ErrPublishRejected, reason)
	}

	var body pendingPostResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}

	if !body.Success {
		reason := body.Error
		if reason == "" {
			reason = "success flag not set"
		}

		return 0, fmt.Errorf("%w: %s", ErrPublishRejected, reason)
	}

	c.logger.Debug().Int64("post_id", body.Data.ID).Str("title", item.Title).Msg("pending post created")

	return body.Data.ID, nil
}
