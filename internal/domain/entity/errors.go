package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrNotModified indicates a conditional fetch returned 304 and the feed
	// payload is unchanged since the last cycle.
	ErrNotModified = errors.New("feed not modified")

	// ErrFeedDisabled indicates the source crossed its consecutive failure
	// threshold and is skipped until restart.
	ErrFeedDisabled = errors.New("feed disabled")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ParseError reports a malformed feed payload. It carries the offending feed
// identity so a single bad feed can be skipped without affecting the cycle.
type ParseError struct {
	FeedURL string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse feed %s: %v", e.FeedURL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
