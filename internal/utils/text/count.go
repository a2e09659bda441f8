// Package text provides small text processing helpers shared across the
// summarization and enrichment layers.
package text

// CountRunes counts the number of Unicode characters (runes) in the given
// text. Summary length limits are expressed in characters, not bytes, so
// multi-byte characters must count as one.
func CountRunes(text string) int {
	return len([]rune(text))
}

// TruncateRunes cuts text to at most limit runes, appending an ellipsis when
// anything was removed.
func TruncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
