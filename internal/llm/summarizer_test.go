package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

func newTestSummarizer(t *testing.T, handler http.HandlerFunc) *Summarizer {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"

	logger := zerolog.Nop()

	return NewSummarizerWithClient(openai.NewClientWithConfig(cfg), "gpt-4o-mini", 100, &logger)
}

const chatCompletionResponse = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"model": "gpt-4o-mini",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "A crisp two-line summary."}, "finish_reason": "stop"}]
}`

func TestSummarize_WithText(t *testing.T) {
	s := newTestSummarizer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionResponse))
	})

	summary, err := s.Summarize(context.Background(), "https://www.example.com/post", "Title", "desc", "article body text")
	require.NoError(t, err)
	require.Equal(t, "A crisp two-line summary.", summary.Summary)
	require.Equal(t, "Example", summary.Provider)
	require.Equal(t, "Article", summary.ContentType)
}

func TestSummarize_EmptyTextUsesDescription(t *testing.T) {
	s := newTestSummarizer(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("LLM must not be called when there is no text")
	})

	summary, err := s.Summarize(context.Background(), "https://example.com/x", "Title", "the page description", "")
	require.NoError(t, err)
	require.Equal(t, "the page description", summary.Summary)
}

func TestSummarize_EmptyTextNoDescription(t *testing.T) {
	s := newTestSummarizer(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("LLM must not be called when there is no text")
	})

	summary, err := s.Summarize(context.Background(), "https://example.com/x", "Title", "", "")
	require.NoError(t, err)
	require.Equal(t, noDescription, summary.Summary)
}

func TestSummarize_LongMultiByteTextStaysValidUTF8(t *testing.T) {
	var got openai.ChatCompletionRequest

	s := newTestSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionResponse))
	})

	// Cyrillic body longer than the content cap puts a multi-byte
	// character on the cut boundary.
	text := strings.Repeat("ю", contentMaxChars+200)

	_, err := s.Summarize(context.Background(), "https://example.com/x", "Title", "", text)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	require.True(t, utf8.ValidString(got.Messages[1].Content), "truncation must not split a character")
}

func TestSummarize_APIErrorFallsBack(t *testing.T) {
	s := newTestSummarizer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	summary, err := s.Summarize(context.Background(), "https://example.com/x", "Big News", "", "article body")
	require.NoError(t, err, "LLM failure must degrade, not fail the item")
	require.Equal(t, "Big News. Content available at the link.", summary.Summary)
}

func TestSummarize_ContextCanceledPropagates(t *testing.T) {
	s := newTestSummarizer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionResponse))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Summarize(ctx, "https://example.com/x", "Title", "", "text")
	require.Error(t, err, "cancellation is not absorbed by the fallback")
}
