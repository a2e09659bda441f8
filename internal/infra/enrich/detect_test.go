package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsThinExcerpt(t *testing.T) {
	const threshold = 150

	tests := []struct {
		name    string
		excerpt string
		thin    bool
	}{
		{
			name:    "empty",
			excerpt: "",
			thin:    true,
		},
		{
			name:    "whitespace only",
			excerpt: "   \n\t  ",
			thin:    true,
		},
		{
			name:    "short teaser",
			excerpt: "Read more on our website.",
			thin:    true,
		},
		{
			name: "sciencedirect citation boilerplate",
			excerpt: "Publication date: December 2026\n" +
				"Source: International Journal of Food Microbiology, Volume 412\n" +
				"Author(s): A. Researcher, B. Mycologist, C. Author, D. Collaborator",
			thin: true,
		},
		{
			name: "substantial excerpt",
			excerpt: strings.Repeat("Indoor dampness promotes the growth of toxigenic moulds. ", 5) +
				"This study measured airborne spore concentrations in forty water-damaged homes.",
			thin: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.thin, IsThinExcerpt(tt.excerpt, threshold))
		})
	}
}

func TestIsThinExcerptZeroThreshold(t *testing.T) {
	// With threshold 0 only emptiness and boilerplate count as thin.
	assert.True(t, IsThinExcerpt("", 0))
	assert.False(t, IsThinExcerpt("x", 0))
}
