// Package entity defines the core domain entities and validation logic for the
// pipeline. It contains the fundamental business objects such as RawItem,
// PublishedItem and FeedSource, along with their validation rules and
// domain-specific errors.
package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// RawItem is the feed-native representation of a single entry, produced by the
// parser and consumed immediately by the downstream filters. It is never
// persisted as-is.
type RawItem struct {
	Title string
	Link  string
	// Description is the original summary text with any embedded markup
	// preserved, used for the summarization payload.
	Description string
	// CleanText is the markup-stripped, lowercased concatenation of title and
	// description used for keyword matching.
	CleanText string
	// PublishedAt is nil when the feed omitted the timestamp or it could not
	// be parsed. Downstream ordering falls back to FetchedAt.
	PublishedAt *time.Time
	FetchedAt   time.Time
	Source      *FeedSource
}

// trackerParams are query parameters stripped during link normalization.
// Publishers append these to the same article served through different feeds.
var trackerParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"fbclid":       true,
	"gclid":        true,
}

// Fingerprint returns a stable content-derived identifier for the item.
// When a link is present the fingerprint is derived from the normalized link,
// so the same announcement re-served by overlapping feeds collides on purpose.
// Link-less items fall back to a hash of normalized title, source URL and the
// published date truncated to the day.
func (r *RawItem) Fingerprint() string {
	if key := normalizeLink(r.Link); key != "" {
		return hashKey(key)
	}

	day := ""
	if r.PublishedAt != nil {
		day = r.PublishedAt.UTC().Format("2006-01-02")
	}
	sourceURL := ""
	if r.Source != nil {
		sourceURL = r.Source.URL
	}
	key := fmt.Sprintf("%s|%s|%s", normalizeTitle(r.Title), sourceURL, day)
	return hashKey(key)
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// normalizeLink canonicalizes a URL so that trivially different renderings of
// the same link (case in host, fragments, tracker parameters, trailing slash)
// map to the same fingerprint. Returns "" for empty or unparseable links.
func normalizeLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}

	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return ""
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for param := range trackerParams {
		q.Del(param)
	}
	u.RawQuery = q.Encode()

	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// MatchResult is the relevance verdict for an item. Relevant is true only when
// both Subjects and Contexts are non-empty (co-occurrence policy).
type MatchResult struct {
	Relevant bool
	Subjects []string
	Contexts []string
	Category string
}

// PublishedItem is the durable record created once a RawItem has passed
// deduplication, matching and (attempted) summarization. Immutable after
// creation; owned by the item store.
type PublishedItem struct {
	ID          int64
	Fingerprint string
	Title       string
	Link        string
	SourceName  string
	Category    string
	Subjects    []string
	Contexts    []string
	// Summary may be empty when the summarization call failed; the relevance
	// decision and dedup state are still preserved.
	Summary     string
	PublishedAt time.Time
	CreatedAt   time.Time
}

// Validate checks the invariants the item store relies on.
func (p *PublishedItem) Validate() error {
	if p.Fingerprint == "" {
		return &ValidationError{Field: "fingerprint", Message: "must not be empty"}
	}
	if p.Title == "" {
		return &ValidationError{Field: "title", Message: "must not be empty"}
	}
	return nil
}
