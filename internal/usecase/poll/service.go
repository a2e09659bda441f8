// Package poll orchestrates one polling cycle: fan out over the registered
// feeds, normalize and deduplicate the items, apply the relevance vocabulary,
// then enrich, summarize and store the matches.
package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mouldwire/internal/domain/entity"
	"mouldwire/internal/infra/enrich"
	"mouldwire/internal/infra/summarizer"
	"mouldwire/internal/observability/logging"
	"mouldwire/internal/observability/metrics"
	"mouldwire/internal/observability/slo"
	"mouldwire/internal/registry"
	"mouldwire/internal/repository"
)

const (
	defaultFetchParallelism     = 10
	defaultSummarizeParallelism = 5
)

// FeedFetcher retrieves the raw payload for one source. A nil error with the
// payload means fresh content; entity.ErrNotModified means the feed was
// contacted but unchanged.
type FeedFetcher interface {
	Fetch(ctx context.Context, src *entity.FeedSource) ([]byte, string, error)
}

// FeedParser turns a raw payload into normalized items.
type FeedParser interface {
	Parse(payload []byte, src *entity.FeedSource, fetchedAt time.Time) ([]entity.RawItem, error)
}

// DedupIndex is the atomic check-and-record gate in front of matching.
type DedupIndex interface {
	CheckAndRecord(ctx context.Context, fingerprint string) (bool, error)
	Prune(ctx context.Context) error
}

// Matcher applies the relevance vocabulary to one item.
type Matcher interface {
	Match(item *entity.RawItem) entity.MatchResult
}

// AbstractFetcher upgrades thin excerpts before summarization. May be nil
// when enrichment is disabled.
type AbstractFetcher interface {
	FetchAbstract(ctx context.Context, url string) (string, error)
}

// Summarizer generates a short summary for a matched item.
type Summarizer interface {
	Summarize(ctx context.Context, req summarizer.Request) (string, error)
}

// Options tunes the cycle's parallelism and enrichment behavior.
type Options struct {
	// FetchParallelism caps concurrent feed fetches. Default 10.
	FetchParallelism int

	// SummarizeParallelism caps concurrent summarization calls. Default 5.
	SummarizeParallelism int

	// EnrichThreshold is the excerpt length below which enrichment is
	// attempted. Zero disables enrichment regardless of the fetcher.
	EnrichThreshold int
}

// Service runs poll cycles. All dependencies are injected; the zero values
// of Options fall back to defaults in NewService.
type Service struct {
	Registry   *registry.Registry
	Fetcher    FeedFetcher
	Parser     FeedParser
	Dedup      DedupIndex
	Matcher    Matcher
	Enricher   AbstractFetcher
	Summarizer Summarizer
	ItemRepo   repository.ItemRepository

	opts Options

	// running gates TryRunCycle so scheduler ticks never overlap.
	running atomic.Bool

	// completion tracking for the cycle SLO.
	ticksSeen      atomic.Int64
	cyclesComplete atomic.Int64
}

// NewService builds a poll Service.
func NewService(
	reg *registry.Registry,
	fetcher FeedFetcher,
	parser FeedParser,
	dedupIndex DedupIndex,
	matcher Matcher,
	enricher AbstractFetcher,
	summarizerImpl Summarizer,
	itemRepo repository.ItemRepository,
	opts Options,
) *Service {
	if opts.FetchParallelism <= 0 {
		opts.FetchParallelism = defaultFetchParallelism
	}
	if opts.SummarizeParallelism <= 0 {
		opts.SummarizeParallelism = defaultSummarizeParallelism
	}
	return &Service{
		Registry:   reg,
		Fetcher:    fetcher,
		Parser:     parser,
		Dedup:      dedupIndex,
		Matcher:    matcher,
		Enricher:   enricher,
		Summarizer: summarizerImpl,
		ItemRepo:   itemRepo,
		opts:       opts,
	}
}

// CycleError records one per-feed failure without aborting the cycle.
type CycleError struct {
	SourceName string
	SourceURL  string
	Err        error
}

func (e CycleError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.SourceName, e.SourceURL, e.Err)
}

// CycleReport summarizes one completed poll cycle. Counter fields are
// updated atomically while the cycle runs.
type CycleReport struct {
	FeedsPolled     int
	FeedsFailed     int64
	ItemsFetched    int64
	ItemsDuplicated int64
	ItemsMatched    int64
	ItemsPublished  int64
	SummarizeErrors int64
	EnrichErrors    int64
	Errors          []CycleError
	Duration        time.Duration

	mu sync.Mutex // guards Errors
}

func newCycleReport() *CycleReport {
	return &CycleReport{}
}

func (r *CycleReport) addError(e CycleError) {
	r.mu.Lock()
	r.Errors = append(r.Errors, e)
	r.mu.Unlock()
}

// TryRunCycle runs a cycle unless one is already in progress, in which case
// the tick is dropped and reported as skipped. Overlapping cycles would
// double-poll every feed and defeat the per-host pacing.
func (s *Service) TryRunCycle(ctx context.Context) (*CycleReport, bool, error) {
	s.ticksSeen.Add(1)
	if !s.running.CompareAndSwap(false, true) {
		slog.Warn("poll cycle still running, skipping tick")
		metrics.RecordCycleSkipped()
		s.updateCompletionSLO()
		return nil, false, nil
	}
	defer s.running.Store(false)

	report, err := s.RunCycle(ctx)
	if err == nil {
		s.cyclesComplete.Add(1)
	}
	s.updateCompletionSLO()
	return report, true, err
}

func (s *Service) updateCompletionSLO() {
	ticks := s.ticksSeen.Load()
	if ticks > 0 {
		slo.UpdateCycleCompletion(float64(s.cyclesComplete.Load()) / float64(ticks))
	}
}

// RunCycle polls every active feed once and pushes new matched items through
// the pipeline. Per-feed failures are captured in the report; only context
// cancellation aborts the whole cycle.
func (s *Service) RunCycle(ctx context.Context) (*CycleReport, error) {
	start := time.Now()
	cycleID := uuid.New().String()
	logger := logging.WithCycleID(slog.Default(), cycleID)

	report := newCycleReport()
	sources := s.Registry.Active()
	report.FeedsPolled = len(sources)

	logger.Info("poll cycle started",
		slog.Int("feeds", len(sources)),
		slog.Int("disabled", s.Registry.DisabledCount()))

	fetchSem := make(chan struct{}, s.opts.FetchParallelism)
	summarySem := make(chan struct{}, s.opts.SummarizeParallelism)
	eg, egCtx := errgroup.WithContext(ctx)

	for _, src := range sources {
		src := src
		eg.Go(func() error {
			fetchSem <- struct{}{}
			items, err := s.pollSource(egCtx, logger, src)
			<-fetchSem

			if err != nil {
				// Context cancellation aborts the cycle; everything else is
				// isolated to this feed.
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				atomic.AddInt64(&report.FeedsFailed, 1)
				report.addError(CycleError{SourceName: src.Name, SourceURL: src.URL, Err: err})
				return nil
			}

			return s.processItems(egCtx, logger, items, summarySem, report)
		})
	}

	err := eg.Wait()

	report.Duration = time.Since(start)
	metrics.UpdateFeedsDisabled(s.Registry.DisabledCount())
	slo.UpdateFeedAvailability(report.FeedsPolled, int(report.FeedsFailed))
	slo.UpdateSummaryCompliance(
		int(atomic.LoadInt64(&report.ItemsPublished)),
		int(atomic.LoadInt64(&report.SummarizeErrors)))
	s.recordCycleOutcome(report, err)

	if n, countErr := s.ItemRepo.Count(ctx); countErr == nil {
		metrics.UpdateItemsStored(n)
	}
	if pruneErr := s.Dedup.Prune(context.WithoutCancel(ctx)); pruneErr != nil {
		logger.Warn("dedup prune failed", slog.Any("error", pruneErr))
	}

	logger.Info("poll cycle completed",
		slog.Int("feeds_polled", report.FeedsPolled),
		slog.Int64("feeds_failed", atomic.LoadInt64(&report.FeedsFailed)),
		slog.Int64("items_fetched", atomic.LoadInt64(&report.ItemsFetched)),
		slog.Int64("items_duplicated", atomic.LoadInt64(&report.ItemsDuplicated)),
		slog.Int64("items_matched", atomic.LoadInt64(&report.ItemsMatched)),
		slog.Int64("items_published", atomic.LoadInt64(&report.ItemsPublished)),
		slog.Int64("summarize_errors", atomic.LoadInt64(&report.SummarizeErrors)),
		slog.Duration("duration", report.Duration))

	if err != nil {
		return report, fmt.Errorf("poll cycle aborted: %w", err)
	}
	return report, nil
}

func (s *Service) recordCycleOutcome(report *CycleReport, err error) {
	switch {
	case err != nil:
		metrics.RecordCycle("failed", report.Duration)
	case atomic.LoadInt64(&report.FeedsFailed) > 0:
		metrics.RecordCycle("partial", report.Duration)
	default:
		metrics.RecordCycle("success", report.Duration)
	}
}

// pollSource fetches and parses one feed. An unchanged feed (HTTP 304)
// returns no items and no error.
func (s *Service) pollSource(ctx context.Context, logger *slog.Logger, src *entity.FeedSource) ([]entity.RawItem, error) {
	pollStart := time.Now()

	payload, _, err := s.Fetcher.Fetch(ctx, src)
	if err != nil {
		if errors.Is(err, entity.ErrNotModified) {
			logger.Debug("feed not modified", slog.String("source", src.Name))
			metrics.RecordFeedPoll(src.Name, time.Since(pollStart), 0)
			return nil, nil
		}
		metrics.RecordFeedPollError(src.Name, "fetch_failed")
		return nil, fmt.Errorf("fetch: %w", err)
	}

	items, err := s.Parser.Parse(payload, src, time.Now().UTC())
	if err != nil {
		metrics.RecordFeedPollError(src.Name, "parse_failed")
		return nil, fmt.Errorf("parse: %w", err)
	}

	metrics.RecordFeedPoll(src.Name, time.Since(pollStart), len(items))
	return items, nil
}

// processItems runs dedup, match, enrich, summarize and store for the items
// of one feed. Summarization and enrichment failures never block
// publication.
func (s *Service) processItems(
	ctx context.Context,
	logger *slog.Logger,
	items []entity.RawItem,
	summarySem chan struct{},
	report *CycleReport,
) error {
	for i := range items {
		item := items[i]
		atomic.AddInt64(&report.ItemsFetched, 1)

		fingerprint := item.Fingerprint()
		fresh, err := s.Dedup.CheckAndRecord(ctx, fingerprint)
		if err != nil {
			return fmt.Errorf("dedup check: %w", err)
		}
		if !fresh {
			atomic.AddInt64(&report.ItemsDuplicated, 1)
			metrics.RecordItemDeduplicated()
			continue
		}

		result := s.Matcher.Match(&item)
		metrics.RecordItemMatched(result.Relevant)
		if !result.Relevant {
			continue
		}
		atomic.AddInt64(&report.ItemsMatched, 1)

		summarySem <- struct{}{}
		publishErr := s.publishMatch(ctx, logger, item, fingerprint, result, report)
		<-summarySem

		if publishErr != nil {
			return publishErr
		}
	}
	return nil
}

// publishMatch enriches, summarizes and stores one matched item.
func (s *Service) publishMatch(
	ctx context.Context,
	logger *slog.Logger,
	item entity.RawItem,
	fingerprint string,
	result entity.MatchResult,
	report *CycleReport,
) error {
	description := s.enrichDescription(ctx, logger, item, report)

	summary := ""
	summaryStart := time.Now()
	got, err := s.Summarizer.Summarize(ctx, summarizer.Request{
		Title:       item.Title,
		Description: description,
		SourceName:  item.Source.Name,
		Subjects:    result.Subjects,
		Contexts:    result.Contexts,
	})
	summaryDuration := time.Since(summaryStart)

	if err != nil {
		// The fingerprint is already recorded, so the item must be published
		// even when summarization fails or the cycle is cancelled mid-flight;
		// skipping here would leave the dedup index suppressing it forever.
		atomic.AddInt64(&report.SummarizeErrors, 1)
		metrics.RecordItemSummarized(false, summaryDuration)
		logger.Warn("summarization failed, publishing without summary",
			slog.String("source", item.Source.Name),
			slog.String("link", item.Link),
			slog.Any("error", err))
	} else {
		summary = got
		metrics.RecordItemSummarized(true, summaryDuration)
	}

	publishedAt := item.FetchedAt
	if item.PublishedAt != nil {
		publishedAt = *item.PublishedAt
	}

	published := &entity.PublishedItem{
		Fingerprint: fingerprint,
		Title:       item.Title,
		Link:        item.Link,
		SourceName:  item.Source.Name,
		Category:    result.Category,
		Subjects:    result.Subjects,
		Contexts:    result.Contexts,
		Summary:     summary,
		PublishedAt: publishedAt,
		CreatedAt:   time.Now().UTC(),
	}
	// Storage outlives cycle cancellation so a timed-out cycle cannot lose
	// an already summarized item.
	if err := s.ItemRepo.Create(context.WithoutCancel(ctx), published); err != nil {
		return fmt.Errorf("store item: %w", err)
	}
	atomic.AddInt64(&report.ItemsPublished, 1)
	metrics.RecordItemPublished()
	return nil
}

// enrichDescription upgrades a thin excerpt via the abstract fetcher. Any
// failure falls back to the original description.
func (s *Service) enrichDescription(ctx context.Context, logger *slog.Logger, item entity.RawItem, report *CycleReport) string {
	if s.Enricher == nil || s.opts.EnrichThreshold <= 0 {
		return item.Description
	}
	if !enrich.IsThinExcerpt(item.CleanText, s.opts.EnrichThreshold) {
		metrics.RecordEnrichSkipped()
		return item.Description
	}

	fetchStart := time.Now()
	abstract, err := s.Enricher.FetchAbstract(ctx, item.Link)
	fetchDuration := time.Since(fetchStart)

	if err != nil {
		atomic.AddInt64(&report.EnrichErrors, 1)
		metrics.RecordEnrichFailed(fetchDuration)
		logger.Debug("abstract enrichment failed, using feed excerpt",
			slog.String("link", item.Link),
			slog.Any("error", err))
		return item.Description
	}

	metrics.RecordEnrichSuccess(fetchDuration)
	if len(abstract) > len(item.Description) {
		return abstract
	}
	return item.Description
}
