// Package feed retrieves and parses RSS/Atom payloads. Fetching and parsing
// are split so the parser can be tested against raw payloads and the fetcher
// against HTTP behavior independently.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"mouldwire/internal/domain/entity"
	"mouldwire/internal/resilience/circuitbreaker"
	"mouldwire/internal/resilience/retry"
)

// FetchConfig holds the operational knobs for feed retrieval.
type FetchConfig struct {
	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// MaxBodyBytes caps the feed payload size read into memory.
	MaxBodyBytes int64

	// FailureThreshold is the consecutive-failure count after which a source
	// is flagged disabled.
	FailureThreshold int

	// PerHostRPS and PerHostBurst throttle requests against a single origin.
	PerHostRPS   float64
	PerHostBurst int

	UserAgent string

	// Retry controls backoff between transient-failure attempts.
	Retry retry.Config
}

// DefaultFetchConfig returns the production defaults.
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		Timeout:          20 * time.Second,
		MaxBodyBytes:     10 << 20, // 10 MiB
		FailureThreshold: 10,
		PerHostRPS:       1,
		PerHostBurst:     2,
		UserAgent:        "MouldwireBot/1.0 (+https://news.planetmould.com)",
		Retry:            retry.FeedFetchConfig(),
	}
}

// fetchResult carries a payload through the circuit breaker. A 304 answer
// sets notModified instead of an error so the breaker counts it as a success;
// an unchanged registry in conditional-GET steady state must not trip it.
type fetchResult struct {
	payload     []byte
	contentType string
	notModified bool
}

// Fetcher performs conditional HTTP retrieval of feed endpoints with retry,
// circuit breaking and per-host rate limiting. It records fetch outcomes on
// the FeedSource it is given.
type Fetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	limiter        *hostLimiter
	config         FetchConfig
}

// NewFetcher creates a Fetcher around the given HTTP client. A nil client
// gets a default one with the configured timeout.
func NewFetcher(client *http.Client, cfg FetchConfig) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.FeedFetchConfig()
	}
	return &Fetcher{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    cfg.Retry,
		limiter:        newHostLimiter(cfg.PerHostRPS, cfg.PerHostBurst),
		config:         cfg,
	}
}

// Fetch retrieves the raw payload of one feed endpoint.
//
// Outcomes:
//   - (payload, contentType, nil) on success; the source's failure counter is
//     reset and its conditional GET validators updated.
//   - (nil, "", entity.ErrNotModified) when the endpoint answered 304; counts
//     as a successful contact.
//   - (nil, "", entity.ErrFeedDisabled) when the source is disabled.
//   - (nil, "", err) after exhausted retries or a permanent failure; the
//     source's consecutive-failure counter is incremented.
func (f *Fetcher) Fetch(ctx context.Context, src *entity.FeedSource) ([]byte, string, error) {
	if src.Disabled() {
		return nil, "", fmt.Errorf("%w: %s", entity.ErrFeedDisabled, src.URL)
	}

	if err := f.limiter.Wait(ctx, src.URL); err != nil {
		return nil, "", fmt.Errorf("rate limit wait: %w", err)
	}

	var result fetchResult

	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		cbResult, err := f.circuitBreaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, src)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("url", src.URL),
					slog.String("state", f.circuitBreaker.State().String()))
			}
			return err
		}
		result = cbResult.(fetchResult)
		return nil
	})

	if retryErr != nil {
		failures := src.RecordFailure(f.config.FailureThreshold)
		if src.Disabled() {
			slog.Warn("feed disabled after consecutive failures",
				slog.String("url", src.URL),
				slog.Int("consecutive_failures", failures))
		}
		return nil, "", retryErr
	}

	if result.notModified {
		// 304 means the endpoint is alive and unchanged.
		src.RecordSuccess("", "", time.Now())
		return nil, "", entity.ErrNotModified
	}

	return result.payload, result.contentType, nil
}

// doFetch performs one HTTP attempt without retry or circuit breaker.
func (f *Fetcher) doFetch(ctx context.Context, src *entity.FeedSource) (fetchResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, src.URL, nil)
	if err != nil {
		return fetchResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml;q=0.9, */*;q=0.8")

	if etag, lastModified := src.Conditional(); etag != "" || lastModified != "" {
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}
		if lastModified != "" {
			req.Header.Set("If-Modified-Since", lastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fetchResult{}, fmt.Errorf("fetch %s: %w", src.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotModified {
		return fetchResult{notModified: true}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return fetchResult{}, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("fetch %s", src.URL),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodyBytes+1))
	if err != nil {
		return fetchResult{}, fmt.Errorf("read body %s: %w", src.URL, err)
	}
	if int64(len(body)) > f.config.MaxBodyBytes {
		return fetchResult{}, fmt.Errorf("feed %s exceeds size limit of %d bytes", src.URL, f.config.MaxBodyBytes)
	}

	src.RecordSuccess(resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), time.Now())

	return fetchResult{
		payload:     body,
		contentType: resp.Header.Get("Content-Type"),
	}, nil
}
