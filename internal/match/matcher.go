// Package match implements the two-tier keyword relevance check. Single
// keywords are too ambiguous on their own ("mould" appears in casting and
// cheese-making, "humidity" across unrelated climate work), so an item is
// relevant only when a SUBJECT term and a CONTEXT term co-occur in its text.
package match

import (
	"strings"

	"mouldwire/internal/config"
	"mouldwire/internal/domain/entity"
)

// Matcher evaluates item text against the controlled vocabulary. It is
// immutable after construction and Match is a pure function of its inputs,
// so a single Matcher is safe for concurrent use.
type Matcher struct {
	subjects []string
	contexts []string
}

// New builds a Matcher from the vocabulary. Terms are expected lowercase;
// config.Load normalizes them.
func New(vocab config.Vocabulary) *Matcher {
	return &Matcher{
		subjects: append([]string(nil), vocab.Subjects...),
		contexts: append([]string(nil), vocab.Contexts...),
	}
}

// Match returns the relevance verdict for an item. Matched terms are reported
// in vocabulary order for audit, not just the boolean verdict.
func (m *Matcher) Match(item *entity.RawItem) entity.MatchResult {
	text := item.CleanText
	if text == "" {
		text = strings.ToLower(item.Title + " " + item.Description)
	}

	subjects := matchTerms(text, m.subjects)
	contexts := matchTerms(text, m.contexts)

	category := ""
	if item.Source != nil {
		category = item.Source.Category
	}

	return entity.MatchResult{
		Relevant: len(subjects) > 0 && len(contexts) > 0,
		Subjects: subjects,
		Contexts: contexts,
		Category: category,
	}
}

// matchTerms returns the vocabulary terms contained in text, deduplicated,
// preserving vocabulary order.
func matchTerms(text string, terms []string) []string {
	var matched []string
	seen := make(map[string]bool, len(terms))
	for _, term := range terms {
		if term == "" || seen[term] {
			continue
		}
		if strings.Contains(text, term) {
			matched = append(matched, term)
			seen[term] = true
		}
	}
	return matched
}
