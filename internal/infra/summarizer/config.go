package summarizer

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

const (
	// minCharLimit is the minimum allowed character limit for summaries.
	minCharLimit = 100

	// maxCharLimit is the maximum allowed character limit for summaries.
	maxCharLimit = 5000

	// defaultCharLimit keeps summaries around two to three sentences.
	defaultCharLimit = 500
)

// ValidateCharacterLimit checks that the limit is within the accepted range.
func ValidateCharacterLimit(limit int) error {
	if limit < minCharLimit {
		return fmt.Errorf("character limit %d is below minimum %d", limit, minCharLimit)
	}
	if limit > maxCharLimit {
		return fmt.Errorf("character limit %d exceeds maximum %d", limit, maxCharLimit)
	}
	return nil
}

// charLimitFromEnv reads SUMMARIZER_CHAR_LIMIT, falling back to the default
// on missing or invalid values. Summarization config fails open because a bad
// limit should not keep the pipeline from running.
func charLimitFromEnv() int {
	envLimit := os.Getenv("SUMMARIZER_CHAR_LIMIT")
	if envLimit == "" {
		return defaultCharLimit
	}

	parsed, err := strconv.Atoi(envLimit)
	if err != nil {
		slog.Warn("Invalid SUMMARIZER_CHAR_LIMIT format, using default",
			slog.String("value", envLimit),
			slog.Int("default", defaultCharLimit))
		return defaultCharLimit
	}
	if err := ValidateCharacterLimit(parsed); err != nil {
		slog.Warn("SUMMARIZER_CHAR_LIMIT out of valid range, using default",
			slog.Int("value", parsed),
			slog.Int("default", defaultCharLimit))
		return defaultCharLimit
	}
	return parsed
}

// FromEnv selects a summarizer implementation from the environment. Claude
// wins when both keys are present; with neither key the NoOp excerpt
// truncation keeps the pipeline functional.
func FromEnv() Summarizer {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return NewClaude(key)
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		s, err := NewOpenAI(key)
		if err != nil {
			slog.Warn("OpenAI summarizer unavailable, falling back to noop",
				slog.String("error", err.Error()))
			return NewNoOp()
		}
		return s
	}
	slog.Info("no summarizer API key configured, using excerpt truncation")
	return NewNoOp()
}
