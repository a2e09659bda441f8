package summarizer

import (
	"context"

	"mouldwire/internal/utils/text"
)

// NoOp is a summarizer that falls back to the item's own description. Used
// when no API key is configured and in tests.
type NoOp struct{}

// NewNoOp creates a new NoOp summarizer.
func NewNoOp() *NoOp {
	return &NoOp{}
}

// Summarize returns the item description truncated to the default summary
// length. The title stands in when the feed gave no description at all.
func (n *NoOp) Summarize(_ context.Context, req Request) (string, error) {
	body := req.Description
	if body == "" {
		body = req.Title
	}
	return text.TruncateRunes(body, defaultCharLimit), nil
}
