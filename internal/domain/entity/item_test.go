package entity_test

import (
	"testing"
	"time"

	"mouldwire/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintLinkNormalization(t *testing.T) {
	tests := []struct {
		name  string
		a, b  string
		equal bool
	}{
		{
			name:  "identical links",
			a:     "https://example.com/article/1",
			b:     "https://example.com/article/1",
			equal: true,
		},
		{
			name:  "host case and trailing slash",
			a:     "https://Example.COM/article/1/",
			b:     "https://example.com/article/1",
			equal: true,
		},
		{
			name:  "tracker params stripped",
			a:     "https://example.com/article/1?utm_source=rss&utm_medium=feed",
			b:     "https://example.com/article/1",
			equal: true,
		},
		{
			name:  "fragment stripped",
			a:     "https://example.com/article/1#abstract",
			b:     "https://example.com/article/1",
			equal: true,
		},
		{
			name:  "meaningful query preserved",
			a:     "https://example.com/showFeed?jc=123",
			b:     "https://example.com/showFeed?jc=456",
			equal: false,
		},
		{
			name:  "distinct articles",
			a:     "https://example.com/article/1",
			b:     "https://example.com/article/2",
			equal: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fpA := (&entity.RawItem{Link: tt.a}).Fingerprint()
			fpB := (&entity.RawItem{Link: tt.b}).Fingerprint()
			if tt.equal {
				assert.Equal(t, fpA, fpB)
			} else {
				assert.NotEqual(t, fpA, fpB)
			}
		})
	}
}

func TestFingerprintOverlappingFeedsSameLink(t *testing.T) {
	// The same announcement served by two different feeds must collide.
	srcA, err := entity.NewFeedSource("https://journals.example.org/a.rss", "Journal A", "science", entity.FormatRSS)
	require.NoError(t, err)
	srcB, err := entity.NewFeedSource("https://journals.example.org/b.rss", "Journal B", "health", entity.FormatRSS)
	require.NoError(t, err)

	itemA := &entity.RawItem{Title: "Antifungal resistance study", Link: "https://example.com/paper", Source: srcA}
	itemB := &entity.RawItem{Title: "Antifungal resistance study", Link: "https://example.com/paper", Source: srcB}

	assert.Equal(t, itemA.Fingerprint(), itemB.Fingerprint())
}

func TestFingerprintWithoutLink(t *testing.T) {
	src, err := entity.NewFeedSource("https://example.com/feed.rss", "Feed", "science", entity.FormatRSS)
	require.NoError(t, err)

	pub := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	later := pub.Add(4 * time.Hour) // same day, different time

	itemA := &entity.RawItem{Title: "Mould  Growth In\tHomes", PublishedAt: &pub, Source: src}
	itemB := &entity.RawItem{Title: "mould growth in homes", PublishedAt: &later, Source: src}

	// Title normalization plus day-truncated date makes these collide.
	assert.Equal(t, itemA.Fingerprint(), itemB.Fingerprint())

	nextDay := pub.AddDate(0, 0, 1)
	itemC := &entity.RawItem{Title: "mould growth in homes", PublishedAt: &nextDay, Source: src}
	assert.NotEqual(t, itemA.Fingerprint(), itemC.Fingerprint())
}

func TestFingerprintStable(t *testing.T) {
	item := &entity.RawItem{Link: "https://example.com/article/1"}
	assert.Equal(t, item.Fingerprint(), item.Fingerprint())
	assert.Len(t, item.Fingerprint(), 64) // hex sha256
}

func TestPublishedItemValidate(t *testing.T) {
	item := &entity.PublishedItem{Fingerprint: "abc", Title: "t"}
	assert.NoError(t, item.Validate())

	item = &entity.PublishedItem{Title: "t"}
	var vErr *entity.ValidationError
	require.ErrorAs(t, item.Validate(), &vErr)
	assert.Equal(t, "fingerprint", vErr.Field)
}
