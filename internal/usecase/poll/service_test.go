package poll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mouldwire/internal/config"
	"mouldwire/internal/dedup"
	"mouldwire/internal/domain/entity"
	"mouldwire/internal/infra/persistence/memory"
	"mouldwire/internal/infra/summarizer"
	"mouldwire/internal/match"
	"mouldwire/internal/observability/slo"
	"mouldwire/internal/registry"
)

// stubFetcher returns a fixed payload per source URL, or an error.
type stubFetcher struct {
	mu     sync.Mutex
	errs   map[string]error
	delay  time.Duration
	called map[string]int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{errs: map[string]error{}, called: map[string]int{}}
}

func (f *stubFetcher) Fetch(ctx context.Context, src *entity.FeedSource) ([]byte, string, error) {
	f.mu.Lock()
	f.called[src.URL]++
	err := f.errs[src.URL]
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}
	if err != nil {
		return nil, "", err
	}
	return []byte("payload"), "", nil
}

// stubParser hands back canned items per source URL, ignoring the payload.
type stubParser struct {
	items map[string][]entity.RawItem
}

func (p *stubParser) Parse(_ []byte, src *entity.FeedSource, _ time.Time) ([]entity.RawItem, error) {
	return p.items[src.URL], nil
}

// stubSummarizer records calls and fails for titles in failFor.
type stubSummarizer struct {
	mu      sync.Mutex
	calls   int
	failFor map[string]bool
}

func newStubSummarizer() *stubSummarizer {
	return &stubSummarizer{failFor: map[string]bool{}}
}

func (s *stubSummarizer) Summarize(_ context.Context, req summarizer.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failFor[req.Title] {
		return "", errors.New("api unavailable")
	}
	return "summary of " + req.Title, nil
}

// cancelingSummarizer simulates a shutdown signal arriving while a summary
// request is in flight.
type cancelingSummarizer struct {
	cancel context.CancelFunc
}

func (s *cancelingSummarizer) Summarize(context.Context, summarizer.Request) (string, error) {
	s.cancel()
	return "", context.Canceled
}

func testVocabulary() config.Vocabulary {
	return config.Vocabulary{
		Subjects: []string{"mould", "aspergillus"},
		Contexts: []string{"housing", "hospital"},
	}
}

func mustSource(t *testing.T, url, name string) *entity.FeedSource {
	t.Helper()
	src, err := entity.NewFeedSource(url, name, "science", "")
	require.NoError(t, err)
	return src
}

func rawItem(title, link string, src *entity.FeedSource) entity.RawItem {
	now := time.Now().UTC()
	return entity.RawItem{
		Title:       title,
		Link:        link,
		Description: title,
		CleanText:   title,
		FetchedAt:   now,
		Source:      src,
	}
}

type fixture struct {
	svc        *Service
	fetcher    *stubFetcher
	parser     *stubParser
	summarizer *stubSummarizer
	items      *memoryItemRepo
}

// memoryItemRepo aliases the memory adapter for readable assertions.
type memoryItemRepo struct {
	repo interface {
		Create(ctx context.Context, item *entity.PublishedItem) error
		ListSince(ctx context.Context, t time.Time) ([]*entity.PublishedItem, error)
		Count(ctx context.Context) (int64, error)
	}
}

func newFixture(t *testing.T, sources []*entity.FeedSource, parserItems map[string][]entity.RawItem) *fixture {
	t.Helper()
	fetcher := newStubFetcher()
	parser := &stubParser{items: parserItems}
	summ := newStubSummarizer()
	itemRepo := memory.NewItemRepo()
	dedupIndex := dedup.New(memory.NewFingerprintRepo(), dedup.DefaultRetention)
	matcher := match.New(testVocabulary())

	svc := NewService(
		registry.New(sources, registry.DefaultFailureThreshold),
		fetcher, parser, dedupIndex, matcher,
		nil, summ, itemRepo,
		Options{},
	)
	return &fixture{
		svc:        svc,
		fetcher:    fetcher,
		parser:     parser,
		summarizer: summ,
		items:      &memoryItemRepo{repo: itemRepo},
	}
}

func TestRunCycle_PublishesMatchedItems(t *testing.T) {
	src := mustSource(t, "https://feeds.example.com/science", "Science Feed")
	fx := newFixture(t, []*entity.FeedSource{src}, map[string][]entity.RawItem{
		src.URL: {
			rawItem("black mould found in social housing blocks", "https://example.com/housing", src),
			rawItem("blue mould cheese wins award", "https://example.com/cheese", src),
		},
	})

	report, err := fx.svc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.FeedsPolled)
	assert.Equal(t, int64(0), report.FeedsFailed)
	assert.Equal(t, int64(2), report.ItemsFetched)
	assert.Equal(t, int64(1), report.ItemsMatched, "cheese item lacks a context term")
	assert.Equal(t, int64(1), report.ItemsPublished)

	stored, err := fx.items.repo.ListSince(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "black mould found in social housing blocks", stored[0].Title)
	assert.Equal(t, "summary of black mould found in social housing blocks", stored[0].Summary)
	assert.Equal(t, []string{"mould"}, stored[0].Subjects)
	assert.Equal(t, []string{"housing"}, stored[0].Contexts)
	assert.Equal(t, "Science Feed", stored[0].SourceName)
}

func TestRunCycle_SecondCycleIsIdempotent(t *testing.T) {
	src := mustSource(t, "https://feeds.example.com/science", "Science Feed")
	fx := newFixture(t, []*entity.FeedSource{src}, map[string][]entity.RawItem{
		src.URL: {rawItem("aspergillus outbreak in hospital ward", "https://example.com/a", src)},
	})

	first, err := fx.svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ItemsPublished)

	second, err := fx.svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), second.ItemsPublished)
	assert.Equal(t, int64(1), second.ItemsDuplicated)

	n, err := fx.items.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRunCycle_IrrelevantItemsStillFingerprinted(t *testing.T) {
	src := mustSource(t, "https://feeds.example.com/science", "Science Feed")
	fx := newFixture(t, []*entity.FeedSource{src}, map[string][]entity.RawItem{
		src.URL: {rawItem("blue mould cheese wins award", "https://example.com/cheese", src)},
	})

	_, err := fx.svc.RunCycle(context.Background())
	require.NoError(t, err)

	// The irrelevant item's fingerprint was recorded, so a later cycle sees
	// it as a duplicate and never re-evaluates it.
	second, err := fx.svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.ItemsDuplicated)
	assert.Equal(t, int64(0), second.ItemsMatched)
}

func TestRunCycle_FeedFailureIsIsolated(t *testing.T) {
	good := mustSource(t, "https://feeds.example.com/good", "Good Feed")
	bad := mustSource(t, "https://feeds.example.com/bad", "Bad Feed")
	fx := newFixture(t, []*entity.FeedSource{good, bad}, map[string][]entity.RawItem{
		good.URL: {rawItem("mould remediation in flooded housing", "https://example.com/g", good)},
	})
	fx.fetcher.errs[bad.URL] = errors.New("connection refused")

	report, err := fx.svc.RunCycle(context.Background())
	require.NoError(t, err, "one failing feed must not abort the cycle")

	assert.Equal(t, int64(1), report.FeedsFailed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "Bad Feed", report.Errors[0].SourceName)
	assert.Equal(t, int64(1), report.ItemsPublished, "healthy feed still processed")
}

func TestRunCycle_SummarizeFailurePublishesWithoutSummary(t *testing.T) {
	src := mustSource(t, "https://feeds.example.com/science", "Science Feed")
	fx := newFixture(t, []*entity.FeedSource{src}, map[string][]entity.RawItem{
		src.URL: {
			rawItem("aspergillus outbreak in hospital ward", "https://example.com/a", src),
			rawItem("mould damage reported in housing estate", "https://example.com/b", src),
		},
	})
	fx.summarizer.failFor["aspergillus outbreak in hospital ward"] = true

	report, err := fx.svc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), report.ItemsPublished, "failed summary still publishes")
	assert.Equal(t, int64(1), report.SummarizeErrors)
	assert.InDelta(t, 0.5, testutil.ToFloat64(slo.SLOSummaryCompliance), 0.001)

	stored, err := fx.items.repo.ListSince(context.Background(), time.Time{})
	require.NoError(t, err)
	summaries := map[string]string{}
	for _, it := range stored {
		summaries[it.Title] = it.Summary
	}
	assert.Empty(t, summaries["aspergillus outbreak in hospital ward"])
	assert.NotEmpty(t, summaries["mould damage reported in housing estate"])
}

func TestRunCycle_CancelDuringSummarizeStillStoresItem(t *testing.T) {
	src := mustSource(t, "https://feeds.example.com/science", "Science Feed")
	fx := newFixture(t, []*entity.FeedSource{src}, map[string][]entity.RawItem{
		src.URL: {rawItem("aspergillus outbreak in hospital ward", "https://example.com/a", src)},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fx.svc.Summarizer = &cancelingSummarizer{cancel: cancel}

	report, _ := fx.svc.RunCycle(ctx)
	assert.Equal(t, int64(1), report.ItemsPublished, "shutdown must not drop a matched item")
	assert.Equal(t, int64(1), report.SummarizeErrors)

	// The fingerprint was recorded before publication; losing the store write
	// here would leave the item suppressed as a duplicate after restart.
	stored, err := fx.items.repo.ListSince(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "aspergillus outbreak in hospital ward", stored[0].Title)
	assert.Empty(t, stored[0].Summary)
}

func TestRunCycle_NotModifiedFeedIsQuiet(t *testing.T) {
	src := mustSource(t, "https://feeds.example.com/science", "Science Feed")
	fx := newFixture(t, []*entity.FeedSource{src}, map[string][]entity.RawItem{})
	fx.fetcher.errs[src.URL] = entity.ErrNotModified

	report, err := fx.svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.FeedsFailed, "304 is a successful contact")
	assert.Empty(t, report.Errors)
}

func TestTryRunCycle_SkipsOverlappingTick(t *testing.T) {
	sources := make([]*entity.FeedSource, 0, 3)
	items := map[string][]entity.RawItem{}
	for i := 0; i < 3; i++ {
		src := mustSource(t, fmt.Sprintf("https://feeds.example.com/%d", i), fmt.Sprintf("Feed %d", i))
		sources = append(sources, src)
	}
	fx := newFixture(t, sources, items)
	fx.fetcher.delay = 200 * time.Millisecond

	var wg sync.WaitGroup
	wg.Add(1)
	started := make(chan struct{})
	go func() {
		defer wg.Done()
		close(started)
		_, ran, err := fx.svc.TryRunCycle(context.Background())
		assert.True(t, ran)
		assert.NoError(t, err)
	}()

	<-started
	time.Sleep(50 * time.Millisecond) // let the first cycle take the gate

	_, ran, err := fx.svc.TryRunCycle(context.Background())
	assert.False(t, ran, "tick during a running cycle must be skipped")
	assert.NoError(t, err)

	wg.Wait()

	// The gate is released after completion.
	_, ran, err = fx.svc.TryRunCycle(context.Background())
	assert.True(t, ran)
	assert.NoError(t, err)
}

func TestRunCycle_ContextCancellationAborts(t *testing.T) {
	src := mustSource(t, "https://feeds.example.com/science", "Science Feed")
	fx := newFixture(t, []*entity.FeedSource{src}, map[string][]entity.RawItem{})
	fx.fetcher.delay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := fx.svc.RunCycle(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
