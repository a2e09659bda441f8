package text_test

import (
	"testing"

	"mouldwire/internal/utils/text"
)

func TestCountRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"ascii", "hello", 5},
		{"empty", "", 0},
		{"accented", "Penicillium café", 16},
		{"emoji", "spore🍄", 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := text.CountRunes(tt.input); got != tt.expected {
				t.Errorf("CountRunes(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := text.TruncateRunes("short", 10); got != "short" {
		t.Errorf("TruncateRunes should leave short text alone, got %q", got)
	}
	if got := text.TruncateRunes("abcdefgh", 4); got != "abcd..." {
		t.Errorf("TruncateRunes = %q, want %q", got, "abcd...")
	}
}
