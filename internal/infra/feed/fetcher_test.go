package feed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"mouldwire/internal/domain/entity"
	"mouldwire/internal/infra/feed"
	"mouldwire/internal/resilience/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastFetchConfig() feed.FetchConfig {
	cfg := feed.DefaultFetchConfig()
	cfg.Timeout = 2 * time.Second
	cfg.PerHostRPS = 1000
	cfg.PerHostBurst = 100
	cfg.FailureThreshold = 2
	cfg.Retry = retry.Config{
		MaxAttempts:    3,
		InitialDelay:   time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0,
	}
	return cfg
}

func sourceFor(t *testing.T, url string) *entity.FeedSource {
	t.Helper()
	src, err := entity.NewFeedSource(url, "Test Feed", "science", entity.FormatRSS)
	require.NoError(t, err)
	return src
}

func TestFetchSuccessRecordsConditionalState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Last-Modified", "Mon, 02 Mar 2026 10:00:00 GMT")
		_, _ = w.Write([]byte("<rss/>"))
	}))
	defer server.Close()

	src := sourceFor(t, server.URL)
	fetcher := feed.NewFetcher(server.Client(), fastFetchConfig())

	payload, contentType, err := fetcher.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []byte("<rss/>"), payload)
	assert.Equal(t, "application/rss+xml", contentType)
	assert.Equal(t, 0, src.ConsecutiveFailures())
	assert.False(t, src.LastFetchedAt().IsZero())

	etag, lastModified := src.Conditional()
	assert.Equal(t, `"v1"`, etag)
	assert.Equal(t, "Mon, 02 Mar 2026 10:00:00 GMT", lastModified)
}

func TestFetchSendsConditionalHeadersAndHandles304(t *testing.T) {
	var gotETag atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if etag := r.Header.Get("If-None-Match"); etag != "" {
			gotETag.Store(etag)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte("<rss/>"))
	}))
	defer server.Close()

	src := sourceFor(t, server.URL)
	fetcher := feed.NewFetcher(server.Client(), fastFetchConfig())

	_, _, err := fetcher.Fetch(context.Background(), src)
	require.NoError(t, err)

	_, _, err = fetcher.Fetch(context.Background(), src)
	assert.ErrorIs(t, err, entity.ErrNotModified)
	assert.Equal(t, `"v1"`, gotETag.Load())
	// A 304 counts as successful contact.
	assert.Equal(t, 0, src.ConsecutiveFailures())
}

func TestFetchNotModifiedVolumeKeepsBreakerClosed(t *testing.T) {
	unchanged := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer unchanged.Close()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte("<rss/>"))
	}))
	defer healthy.Close()

	fetcher := feed.NewFetcher(nil, fastFetchConfig())

	// In conditional-GET steady state most of the registry answers 304 every
	// cycle. Enough of them to cross the breaker's minimum request count must
	// still leave it closed.
	quiet := sourceFor(t, unchanged.URL)
	for i := 0; i < 12; i++ {
		_, _, err := fetcher.Fetch(context.Background(), quiet)
		require.ErrorIs(t, err, entity.ErrNotModified)
	}
	assert.Equal(t, 0, quiet.ConsecutiveFailures())

	src := sourceFor(t, healthy.URL)
	payload, _, err := fetcher.Fetch(context.Background(), src)
	require.NoError(t, err, "an unchanged registry must not block a changed feed")
	assert.Equal(t, []byte("<rss/>"), payload)
	assert.Equal(t, 0, src.ConsecutiveFailures())
}

func TestFetchPermanentErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	src := sourceFor(t, server.URL)
	fetcher := feed.NewFetcher(server.Client(), fastFetchConfig())

	_, _, err := fetcher.Fetch(context.Background(), src)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx must fail immediately")
	assert.Equal(t, 1, src.ConsecutiveFailures())
}

func TestFetchTransientErrorRetriedThenRecovers(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("<rss/>"))
	}))
	defer server.Close()

	src := sourceFor(t, server.URL)
	fetcher := feed.NewFetcher(server.Client(), fastFetchConfig())

	payload, _, err := fetcher.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []byte("<rss/>"), payload)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchExhaustedRetriesDisablesAboveThreshold(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	src := sourceFor(t, server.URL)
	cfg := fastFetchConfig() // FailureThreshold = 2
	fetcher := feed.NewFetcher(server.Client(), cfg)

	for i := 0; i < 3; i++ {
		_, _, err := fetcher.Fetch(context.Background(), src)
		require.Error(t, err)
	}

	assert.True(t, src.Disabled())

	// Once disabled, the fetcher refuses the source without touching the network.
	_, _, err := fetcher.Fetch(context.Background(), src)
	assert.ErrorIs(t, err, entity.ErrFeedDisabled)
}

func TestFetchBodySizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer server.Close()

	src := sourceFor(t, server.URL)
	cfg := fastFetchConfig()
	cfg.MaxBodyBytes = 1024
	fetcher := feed.NewFetcher(server.Client(), cfg)

	_, _, err := fetcher.Fetch(context.Background(), src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size limit")
}
