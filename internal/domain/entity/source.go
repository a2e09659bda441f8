package entity

import (
	"fmt"
	"net/url"
	"sync"
	"time"
)

// Feed format hints. The registry only hints at the format; the parser detects
// the actual dialect from the payload since some endpoints are misconfigured.
const (
	FormatRSS     = "rss"
	FormatAtom    = "atom"
	FormatUnknown = "unknown"
)

// FeedSource is one registered feed endpoint. It is created from the static
// registry at startup and mutated by the fetcher after each attempt; sources
// are never removed during a run, only flagged disabled.
type FeedSource struct {
	URL        string
	Name       string
	Category   string
	FormatHint string

	mu sync.Mutex

	// Conditional GET state from the last successful fetch.
	lastETag     string
	lastModified string

	lastFetchedAt       time.Time
	consecutiveFailures int
	disabled            bool
}

// NewFeedSource builds a FeedSource after validating the URL.
func NewFeedSource(rawURL, name, category, formatHint string) (*FeedSource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse feed url %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("feed url %q: unsupported scheme %q", rawURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("feed url %q: missing host", rawURL)
	}

	switch formatHint {
	case FormatRSS, FormatAtom:
	default:
		formatHint = FormatUnknown
	}

	if name == "" {
		name = u.Host
	}

	return &FeedSource{
		URL:        rawURL,
		Name:       name,
		Category:   category,
		FormatHint: formatHint,
	}, nil
}

// RecordSuccess resets the failure counter and stores the conditional GET
// validators for the next cycle.
func (s *FeedSource) RecordSuccess(etag, lastModified string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveFailures = 0
	s.lastFetchedAt = at
	if etag != "" {
		s.lastETag = etag
	}
	if lastModified != "" {
		s.lastModified = lastModified
	}
}

// RecordFailure increments the consecutive failure counter and returns the new
// count. Once the count exceeds threshold the source is flagged disabled.
// Disabling is observable, never implicit removal.
func (s *FeedSource) RecordFailure(threshold int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveFailures++
	if threshold > 0 && s.consecutiveFailures > threshold {
		s.disabled = true
	}
	return s.consecutiveFailures
}

// Conditional returns the validators to send as If-None-Match and
// If-Modified-Since headers.
func (s *FeedSource) Conditional() (etag, lastModified string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastETag, s.lastModified
}

// Disabled reports whether the source crossed the failure threshold.
func (s *FeedSource) Disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabled
}

// ConsecutiveFailures returns the current failure streak.
func (s *FeedSource) ConsecutiveFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecutiveFailures
}

// LastFetchedAt returns the timestamp of the last successful fetch, zero if
// the source has never been fetched.
func (s *FeedSource) LastFetchedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFetchedAt
}
