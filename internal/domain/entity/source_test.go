package entity_test

import (
	"testing"
	"time"

	"mouldwire/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFeedSource(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "valid https", url: "https://www.nature.com/srep.rss"},
		{name: "valid http", url: "http://example.com/feed"},
		{name: "missing scheme", url: "example.com/feed", wantErr: true},
		{name: "file scheme", url: "file:///etc/passwd", wantErr: true},
		{name: "empty", url: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := entity.NewFeedSource(tt.url, "", "science", entity.FormatRSS)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.url, src.URL)
			assert.NotEmpty(t, src.Name) // defaults to host
		})
	}
}

func TestFeedSourceUnknownFormatHint(t *testing.T) {
	src, err := entity.NewFeedSource("https://example.com/feed", "Feed", "media", "weird")
	require.NoError(t, err)
	assert.Equal(t, entity.FormatUnknown, src.FormatHint)
}

func TestFeedSourceFailureThreshold(t *testing.T) {
	src, err := entity.NewFeedSource("https://example.com/feed", "Feed", "science", entity.FormatRSS)
	require.NoError(t, err)

	const threshold = 3
	for i := 0; i < threshold; i++ {
		src.RecordFailure(threshold)
		assert.False(t, src.Disabled(), "should stay enabled below threshold")
	}
	src.RecordFailure(threshold)
	assert.True(t, src.Disabled(), "should disable above threshold")
	assert.Equal(t, threshold+1, src.ConsecutiveFailures())
}

func TestFeedSourceSuccessResetsFailures(t *testing.T) {
	src, err := entity.NewFeedSource("https://example.com/feed", "Feed", "science", entity.FormatRSS)
	require.NoError(t, err)

	src.RecordFailure(10)
	src.RecordFailure(10)

	now := time.Now()
	src.RecordSuccess(`W/"etag-1"`, "Mon, 02 Jan 2006 15:04:05 GMT", now)

	assert.Equal(t, 0, src.ConsecutiveFailures())
	assert.Equal(t, now, src.LastFetchedAt())

	etag, lastModified := src.Conditional()
	assert.Equal(t, `W/"etag-1"`, etag)
	assert.Equal(t, "Mon, 02 Jan 2006 15:04:05 GMT", lastModified)
}
