// Package summarizer provides AI-backed summarization of matched news items.
// It includes adapters for Claude (Anthropic) and OpenAI APIs wrapped in
// retry and circuit breaker logic, plus a NoOp fallback for running without
// an API key.
package summarizer

import (
	"context"
	"fmt"
	"strings"
)

// Request carries everything the summarizer needs about one matched item.
// The matched terms are included so the model can anchor the summary on why
// the item was selected.
type Request struct {
	Title       string
	Description string
	SourceName  string
	Subjects    []string
	Contexts    []string
}

// Summarizer generates a short English summary of a matched item.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (string, error)
}

// buildPrompt constructs the summarization prompt. The instruction asks for
// plain prose so the response can be stored verbatim.
func buildPrompt(req Request, charLimit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the following news item in at most %d characters of plain English prose. ", charLimit)
	b.WriteString("Focus on what is reported about ")
	b.WriteString(strings.Join(req.Subjects, ", "))
	if len(req.Contexts) > 0 {
		b.WriteString(" in the context of ")
		b.WriteString(strings.Join(req.Contexts, ", "))
	}
	b.WriteString(". Do not add opinions or information not present in the text.\n\n")
	fmt.Fprintf(&b, "Source: %s\nTitle: %s\n\n%s", req.SourceName, req.Title, req.Description)
	return b.String()
}
