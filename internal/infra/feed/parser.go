package feed

import (
	"bytes"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"mouldwire/internal/domain/entity"
)

// markupPattern matches embedded tags in feed text. Journal feeds routinely
// ship HTML inside <description>, which would defeat keyword matching.
var markupPattern = regexp.MustCompile(`<[^<]+?>`)

// Parser converts raw feed payloads into normalized RawItems. It handles
// RSS 2.0, RSS 1.0 and Atom from the same entry point via gofeed's universal
// parser; the registry's format hint is advisory only since some endpoints
// are misconfigured.
type Parser struct{}

// NewParser creates a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse converts a payload into a sequence of RawItems. A malformed payload
// yields an entity.ParseError carrying the feed identity; an empty but
// well-formed feed yields an empty slice and no error.
func (p *Parser) Parse(payload []byte, src *entity.FeedSource, fetchedAt time.Time) ([]entity.RawItem, error) {
	fp := gofeed.NewParser()
	parsed, err := fp.Parse(bytes.NewReader(payload))
	if err != nil {
		return nil, &entity.ParseError{FeedURL: src.URL, Err: err}
	}

	items := make([]entity.RawItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		items = append(items, p.normalizeItem(it, src, fetchedAt))
	}
	return items, nil
}

// normalizeItem maps one gofeed entry to the uniform item model.
// RSS <pubDate> and Atom <updated> both land in the parsed timestamps;
// missing or malformed dates leave PublishedAt nil rather than dropping the
// item, and downstream ordering falls back to FetchedAt.
func (p *Parser) normalizeItem(it *gofeed.Item, src *entity.FeedSource, fetchedAt time.Time) entity.RawItem {
	var published *time.Time
	if it.PublishedParsed != nil {
		published = it.PublishedParsed
	} else if it.UpdatedParsed != nil {
		published = it.UpdatedParsed
	}

	description := it.Description
	if description == "" {
		description = it.Content
	}

	return entity.RawItem{
		Title:       strings.TrimSpace(stripMarkup(it.Title)),
		Link:        strings.TrimSpace(it.Link),
		Description: description,
		CleanText:   cleanForMatching(it.Title + " " + description),
		PublishedAt: published,
		FetchedAt:   fetchedAt,
		Source:      src,
	}
}

// stripMarkup removes embedded tags and decodes HTML entities.
func stripMarkup(s string) string {
	return html.UnescapeString(markupPattern.ReplaceAllString(s, ""))
}

// cleanForMatching produces the lowercased, markup-free, whitespace-collapsed
// text the keyword matcher runs against. The original description is kept
// separately for the summarization payload.
func cleanForMatching(s string) string {
	s = stripMarkup(s)
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}
