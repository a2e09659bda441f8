package enrich

import (
	"strings"

	"mouldwire/internal/utils/text"
)

// metadataMarkers are phrases that journal feeds emit instead of a real
// excerpt. ScienceDirect and Springer feeds in particular ship descriptions
// that are nothing but citation boilerplate.
var metadataMarkers = []string{
	"publication date:",
	"author(s):",
	"source:",
	"available online",
}

// IsThinExcerpt reports whether an excerpt is too thin to be worth matching
// or summarizing on its own. An excerpt is thin when it is empty, shorter
// than the threshold, or consists mostly of citation metadata.
func IsThinExcerpt(excerpt string, threshold int) bool {
	trimmed := strings.TrimSpace(excerpt)
	if trimmed == "" {
		return true
	}
	if text.CountRunes(trimmed) < threshold {
		return true
	}

	lower := strings.ToLower(trimmed)
	markerChars := 0
	for _, marker := range metadataMarkers {
		if idx := strings.Index(lower, marker); idx >= 0 {
			// Count the marker line, up to the next line break.
			end := strings.IndexByte(lower[idx:], '\n')
			if end < 0 {
				end = len(lower) - idx
			}
			markerChars += end
		}
	}

	// Mostly boilerplate: over half the excerpt is citation lines.
	return markerChars*2 > len(lower)
}
