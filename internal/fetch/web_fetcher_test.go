package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testHTMLBody = "<html><body>Test content</body></html>"

func TestNewWebFetcher_Defaults(t *testing.T) {
	fetcher := NewWebFetcher(2.0, 0)

	require.NotNil(t, fetcher.client)
	require.NotNil(t, fetcher.globalLimiter)
	require.NotNil(t, fetcher.domainLimiters)
	require.NotEmpty(t, fetcher.userAgent)
	require.Equal(t, time.Duration(defaultFetchTimeoutSeconds)*time.Second, fetcher.client.Timeout)
}

func TestFetchBody_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get("User-Agent"))

		_, _ = w.Write([]byte(testHTMLBody))
	}))
	defer srv.Close()

	fetcher := NewWebFetcher(10, 5*time.Second)

	body, err := fetcher.FetchBody(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, testHTMLBody, string(body))
}

func TestFetchBody_NotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	fetcher := NewWebFetcher(10, 5*time.Second)

	_, err := fetcher.FetchBody(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrHTTPStatusNotOK)
}

func TestFetchBody_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(testHTMLBody))
	}))
	defer srv.Close()

	fetcher := NewWebFetcher(10, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fetcher.FetchBody(ctx, srv.URL)
	require.Error(t, err)
}

func TestGetDomainLimiter_Reuse(t *testing.T) {
	fetcher := NewWebFetcher(1, time.Second)

	first := fetcher.getDomainLimiter("example.com")
	second := fetcher.getDomainLimiter("example.com")
	other := fetcher.getDomainLimiter("other.com")

	require.Same(t, first, second)
	require.NotSame(t, first, other)
}
