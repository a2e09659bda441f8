package poll

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mouldwire/internal/dedup"
	"mouldwire/internal/domain/entity"
	"mouldwire/internal/infra/persistence/memory"
	"mouldwire/internal/infra/summarizer"
	"mouldwire/internal/match"
	"mouldwire/internal/registry"
)

type stubEnricher struct {
	mu       sync.Mutex
	abstract string
	err      error
	calls    int
}

func (e *stubEnricher) FetchAbstract(context.Context, string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return "", e.err
	}
	return e.abstract, nil
}

// recordingSummarizer captures the descriptions it was handed.
type recordingSummarizer struct {
	mu           sync.Mutex
	descriptions []string
}

func (s *recordingSummarizer) Summarize(_ context.Context, req summarizer.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.descriptions = append(s.descriptions, req.Description)
	return "ok", nil
}

func enrichFixture(t *testing.T, item entity.RawItem, enricher *stubEnricher) (*Service, *recordingSummarizer) {
	t.Helper()
	src := item.Source
	summ := &recordingSummarizer{}
	svc := NewService(
		registry.New([]*entity.FeedSource{src}, registry.DefaultFailureThreshold),
		newStubFetcher(),
		&stubParser{items: map[string][]entity.RawItem{src.URL: {item}}},
		dedup.New(memory.NewFingerprintRepo(), dedup.DefaultRetention),
		match.New(testVocabulary()),
		enricher, summ, memory.NewItemRepo(),
		Options{EnrichThreshold: 150},
	)
	return svc, summ
}

func TestRunCycle_ThinExcerptIsEnriched(t *testing.T) {
	src := mustSource(t, "https://feeds.example.com/journal", "Journal Feed")
	item := rawItem("aspergillus outbreak in hospital ward", "https://example.com/paper", src)
	item.Description = "Publication date: June 2026"
	item.CleanText = "aspergillus outbreak in hospital ward publication date: june 2026"

	abstract := strings.Repeat("Aspergillus fumigatus transmission in wards. ", 10)
	enricher := &stubEnricher{abstract: abstract}
	svc, summ := enrichFixture(t, item, enricher)

	report, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.ItemsPublished)
	assert.Equal(t, 1, enricher.calls)

	require.Len(t, summ.descriptions, 1)
	assert.Equal(t, abstract, summ.descriptions[0], "summarizer should see the fetched abstract")
}

func TestRunCycle_EnrichFailureFallsBackToExcerpt(t *testing.T) {
	src := mustSource(t, "https://feeds.example.com/journal", "Journal Feed")
	item := rawItem("mould contamination in hospital housing units", "https://example.com/paper2", src)
	item.Description = "Short note."
	item.CleanText = "mould contamination in hospital housing units short note"

	enricher := &stubEnricher{err: errors.New("page unreachable")}
	svc, summ := enrichFixture(t, item, enricher)

	report, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.ItemsPublished, "enrich failure never blocks publication")
	assert.Equal(t, int64(1), report.EnrichErrors)

	require.Len(t, summ.descriptions, 1)
	assert.Equal(t, "Short note.", summ.descriptions[0])
}

func TestRunCycle_SubstantialExcerptSkipsEnrichment(t *testing.T) {
	src := mustSource(t, "https://feeds.example.com/journal", "Journal Feed")
	long := strings.Repeat("aspergillus spread through the hospital ventilation system ", 5)
	item := rawItem("aspergillus in hospital air handling", "https://example.com/paper3", src)
	item.Description = long
	item.CleanText = strings.ToLower(item.Title + " " + long)

	enricher := &stubEnricher{abstract: "should not be used"}
	svc, _ := enrichFixture(t, item, enricher)

	_, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, enricher.calls, "substantial excerpts are not enriched")
}

func TestRunCycle_PublishedAtFallsBackToFetchedAt(t *testing.T) {
	src := mustSource(t, "https://feeds.example.com/science", "Science Feed")
	fetched := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	item := rawItem("mould growth in damp housing stock", "https://example.com/nodate", src)
	item.FetchedAt = fetched
	item.PublishedAt = nil

	svc, _ := enrichFixture(t, item, &stubEnricher{abstract: strings.Repeat("x", 200)})
	itemRepo := svc.ItemRepo

	_, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	stored, err := itemRepo.ListSince(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, fetched, stored[0].PublishedAt)
}
