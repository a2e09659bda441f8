package feed_test

import (
	"testing"
	"time"

	"mouldwire/internal/domain/entity"
	"mouldwire/internal/infra/feed"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssPayload = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Fungal Biology</title>
    <link>https://example.com</link>
    <item>
      <title>Aspergillus &amp; indoor air quality</title>
      <link>https://example.com/articles/1</link>
      <description>&lt;p&gt;A study of &lt;b&gt;mould&lt;/b&gt; exposure in damp housing.&lt;/p&gt;</description>
      <pubDate>Mon, 02 Mar 2026 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>No date item</title>
      <link>https://example.com/articles/2</link>
      <description>Mycotoxin contamination in stored grain.</description>
    </item>
  </channel>
</rss>`

const atomPayload = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Fungal Biology</title>
  <entry>
    <title>Aspergillus &amp; indoor air quality</title>
    <link href="https://example.com/articles/1"/>
    <summary type="html">&lt;p&gt;A study of &lt;b&gt;mould&lt;/b&gt; exposure in damp housing.&lt;/p&gt;</summary>
    <updated>2026-03-02T10:00:00Z</updated>
    <id>urn:uuid:1</id>
  </entry>
  <entry>
    <title>No date item</title>
    <link href="https://example.com/articles/2"/>
    <summary>Mycotoxin contamination in stored grain.</summary>
    <id>urn:uuid:2</id>
  </entry>
</feed>`

func testSource(t *testing.T) *entity.FeedSource {
	t.Helper()
	src, err := entity.NewFeedSource("https://example.com/feed", "Fungal Biology", "science", entity.FormatUnknown)
	require.NoError(t, err)
	return src
}

func TestParseRSS(t *testing.T) {
	src := testSource(t)
	fetchedAt := time.Now()

	items, err := feed.NewParser().Parse([]byte(rssPayload), src, fetchedAt)
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "Aspergillus & indoor air quality", first.Title)
	assert.Equal(t, "https://example.com/articles/1", first.Link)
	// Original markup preserved for the summary payload.
	assert.Contains(t, first.Description, "<b>mould</b>")
	// Matching text is stripped and lowercased.
	assert.Equal(t, "aspergillus & indoor air quality a study of mould exposure in damp housing.", first.CleanText)
	require.NotNil(t, first.PublishedAt)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), first.PublishedAt.UTC())
	assert.Same(t, src, first.Source)

	// Missing pubDate keeps the item with a nil timestamp.
	assert.Nil(t, items[1].PublishedAt)
	assert.Equal(t, fetchedAt, items[1].FetchedAt)
}

func TestParseFormatTolerance(t *testing.T) {
	// The same content as RSS 2.0 and Atom must yield equivalent items even
	// though the source only hints at the format.
	src := testSource(t)
	fetchedAt := time.Now()

	rssItems, err := feed.NewParser().Parse([]byte(rssPayload), src, fetchedAt)
	require.NoError(t, err)
	atomItems, err := feed.NewParser().Parse([]byte(atomPayload), src, fetchedAt)
	require.NoError(t, err)

	require.Len(t, atomItems, len(rssItems))
	for i := range rssItems {
		assert.Equal(t, rssItems[i].Title, atomItems[i].Title)
		assert.Equal(t, rssItems[i].Link, atomItems[i].Link)
		assert.Empty(t, cmp.Diff(rssItems[i].CleanText, atomItems[i].CleanText))
		if rssItems[i].PublishedAt == nil {
			assert.Nil(t, atomItems[i].PublishedAt)
		} else {
			require.NotNil(t, atomItems[i].PublishedAt)
			assert.True(t, rssItems[i].PublishedAt.Equal(*atomItems[i].PublishedAt))
		}
	}
}

func TestParseMalformedPayload(t *testing.T) {
	src := testSource(t)

	_, err := feed.NewParser().Parse([]byte("this is not xml at all"), src, time.Now())
	require.Error(t, err)

	var parseErr *entity.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, src.URL, parseErr.FeedURL)
}

func TestParseEmptyFeedIsNotAnError(t *testing.T) {
	payload := `<?xml version="1.0"?><rss version="2.0"><channel><title>Empty</title></channel></rss>`
	items, err := feed.NewParser().Parse([]byte(payload), testSource(t), time.Now())
	require.NoError(t, err)
	assert.Empty(t, items)
}
