// Package pipeline drives one extracted link through the enrichment stages:
// fetch content, summarize, resolve an image, publish for moderation.
//
// Exactly one item is in flight at a time. Stages run in a fixed order and
// the first failure short-circuits the rest; there are no retries.
package pipeline

import (
	"context"

	"github.com/google/uuid"
)

// Stage identifies one step of the pipeline.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageSummarize Stage = "summarize"
	StageImage     Stage = "image"
	StagePublish   Stage = "publish"
)

// FetchResult is the output of the content-extraction stage.
type FetchResult struct {
	Title       string
	Description string
	Text        string
	ImageURL    string
}

// Summary is the output of the summarization stage.
type Summary struct {
	Summary     string
	Provider    string
	ContentType string
}

// PendingItem is the payload published to the moderation backend.
type PendingItem struct {
	Title       string
	Summary     string
	SourceURL   string
	ImageURL    string
	Provider    string
	ContentType string
	ReleaseDate string
}

// Item is the transient unit of work for a single link. It is owned
// exclusively by the worker or batch loop executing it and is discarded
// once its outcome is recorded.
type Item struct {
	ID        string
	MessageID int64
	ChatID    string
	URL       string

	Fetched  *FetchResult
	Summary  *Summary
	ImageURL string
}

// NewItem creates an item for one link of one inbound message.
func NewItem(messageID int64, chatID, url string) Item {
	return Item{
		ID:        uuid.NewString(),
		MessageID: messageID,
		ChatID:    chatID,
		URL:       url,
	}
}

// Outcome is the terminal result of processing an item.
type Outcome struct {
	Done        bool
	FailedStage Stage
	Err         string
	PostID      int64
}

// ContentFetcher renders a page and extracts title, text and a candidate
// image reference.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// Summarizer produces a short summary plus provider/content-type
// classification. Implementations absorb generation failures by falling back
// to a trivial summary; a returned error means the collaborator call itself
// failed outright.
type Summarizer interface {
	Summarize(ctx context.Context, url, title, description, text string) (*Summary, error)
}

// ImageService validates candidate image references and generates fallback
// illustrations.
type ImageService interface {
	Validate(ctx context.Context, ref string) bool
	Generate(ctx context.Context, prompt string) (string, error)
}

// Publisher submits a fully enriched item to the moderation backend.
type Publisher interface {
	CreatePendingItem(ctx context.Context, item PendingItem) (int64, error)
}
