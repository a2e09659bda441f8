package enrich

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"mouldwire/internal/resilience/circuitbreaker"
	"mouldwire/internal/resilience/retry"
	"mouldwire/internal/utils/text"
)

// Fetcher fetches an item's linked page and extracts an abstract for it.
// Extraction prefers the page's meta description (which on journal pages
// carries the actual abstract) and falls back to Readability article text.
//
// Thread safety: Fetcher is safe for concurrent use.
type Fetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	config         Config
}

// NewFetcher creates a Fetcher with the given configuration. Redirect
// targets are re-validated so a safe initial URL cannot bounce into a
// private network.
func NewFetcher(config Config) *Fetcher {
	f := &Fetcher{
		circuitBreaker: circuitbreaker.New(circuitbreaker.EnrichConfig()),
		retryConfig:    retry.EnrichConfig(),
		config:         config,
	}

	f.client = &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= f.config.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			if err := validateURL(req.URL.String(), f.config.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target validation failed: %w", err)
			}
			return nil
		},
	}

	return f
}

// FetchAbstract fetches the page behind urlStr and returns its abstract,
// truncated to the configured limit.
func (f *Fetcher) FetchAbstract(ctx context.Context, urlStr string) (string, error) {
	if err := validateURL(urlStr, f.config.DenyPrivateIPs); err != nil {
		return "", err
	}

	var result string
	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		cbResult, err := f.circuitBreaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, urlStr)
		})
		if err != nil {
			return err
		}
		result = cbResult.(string)
		return nil
	})
	if retryErr != nil {
		return "", fmt.Errorf("fetch abstract %s: %w", urlStr, retryErr)
	}

	return text.TruncateRunes(result, f.config.MaxAbstractChars), nil
}

// doFetch performs one HTTP request and extraction attempt.
func (f *Fetcher) doFetch(ctx context.Context, urlStr string) (interface{}, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", "MouldwireBot/1.0 (+https://news.planetmould.com)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		if urlErr, ok := err.(*url.Error); ok && urlErr.Err != nil {
			return "", urlErr.Err
		}
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &retry.HTTPError{StatusCode: resp.StatusCode, Message: urlStr}
	}

	limitedReader := io.LimitReader(resp.Body, f.config.MaxBodySize+1)
	htmlBytes, err := io.ReadAll(limitedReader)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(htmlBytes)) > f.config.MaxBodySize {
		return "", fmt.Errorf("%w: exceeds %d bytes", ErrBodyTooLarge, f.config.MaxBodySize)
	}

	finalURL := resp.Request.URL

	// Journal landing pages carry the abstract in a meta tag more reliably
	// than in extractable article text.
	if abstract := metaAbstract(htmlBytes); abstract != "" {
		return abstract, nil
	}

	article, err := readability.FromReader(bytes.NewReader(htmlBytes), finalURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoContent, err)
	}
	content := strings.TrimSpace(article.TextContent)
	if content == "" {
		slog.Debug("readability produced no text content", slog.String("url", urlStr))
		return "", ErrNoContent
	}

	return content, nil
}

// metaAbstract pulls an abstract out of the page's meta tags, trying the
// citation-specific names before the generic description.
func metaAbstract(html []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ""
	}

	selectors := []string{
		`meta[name="citation_abstract"]`,
		`meta[name="dc.description"]`,
		`meta[property="og:description"]`,
		`meta[name="description"]`,
	}
	for _, sel := range selectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			content = strings.TrimSpace(content)
			// Short meta descriptions are teasers, not abstracts.
			if text.CountRunes(content) >= 100 {
				return content
			}
		}
	}
	return ""
}
