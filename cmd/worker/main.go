// Command worker runs the Mouldwire poll pipeline on a cron cadence. It
// loads the feed registry and matching vocabulary from a YAML file, wires
// the fetch/parse/dedup/match/summarize stages, and exposes Prometheus
// metrics plus health probes for the orchestrator.
package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	appconfig "mouldwire/internal/config"
	"mouldwire/internal/dedup"
	"mouldwire/internal/infra/db"
	"mouldwire/internal/infra/enrich"
	"mouldwire/internal/infra/feed"
	"mouldwire/internal/infra/persistence/postgres"
	"mouldwire/internal/infra/persistence/sqlite"
	"mouldwire/internal/infra/summarizer"
	"mouldwire/internal/infra/worker"
	"mouldwire/internal/match"
	"mouldwire/internal/observability/logging"
	"mouldwire/internal/observability/metrics"
	pkgconfig "mouldwire/internal/pkg/config"
	"mouldwire/internal/registry"
	"mouldwire/internal/repository"
	"mouldwire/internal/usecase/poll"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	workerMetrics := worker.NewWorkerMetrics()
	workerConfig, _ := worker.LoadConfigFromEnv(logger, workerMetrics)
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("cycle_timeout", workerConfig.CycleTimeout))

	configPath := pkgconfig.LoadEnvString("CONFIG_PATH", "config.yaml")
	appCfg, err := appconfig.Load(configPath)
	if err != nil {
		logger.Error("failed to load configuration", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("feed configuration loaded",
		slog.String("path", configPath),
		slog.Int("feeds", len(appCfg.Feeds)),
		slog.Int("subjects", len(appCfg.Vocabulary.Subjects)),
		slog.Int("contexts", len(appCfg.Vocabulary.Contexts)))

	database, driver := db.Open()
	defer func() { _ = database.Close() }()
	if err := db.MigrateUp(database, driver); err != nil {
		logger.Error("migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := buildPollService(logger, appCfg, database, driver)
	if err != nil {
		logger.Error("failed to build poll service", slog.Any("error", err))
		os.Exit(1)
	}

	startMetricsServer(ctx, logger, workerConfig.MetricsPort)

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := worker.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	runCronWorker(ctx, logger, svc, database, workerConfig, workerMetrics, healthServer)
}

// buildPollService wires every pipeline stage behind the poll service.
func buildPollService(logger *slog.Logger, cfg *appconfig.Config, database *sql.DB, driver string) (*poll.Service, error) {
	sources, err := cfg.Sources()
	if err != nil {
		return nil, fmt.Errorf("buildPollService: sources: %w", err)
	}

	fetchConfig := feed.DefaultFetchConfig()
	reg := registry.New(sources, fetchConfig.FailureThreshold)
	fetcher := feed.NewFetcher(newFeedHTTPClient(fetchConfig.Timeout), fetchConfig)
	parser := feed.NewParser()

	var itemRepo repository.ItemRepository
	var fpRepo repository.FingerprintRepository
	switch driver {
	case db.DriverPostgres:
		itemRepo = postgres.NewItemRepo(database)
		fpRepo = postgres.NewFingerprintRepo(database)
	default:
		itemRepo = sqlite.NewItemRepo(database)
		fpRepo = sqlite.NewFingerprintRepo(database)
	}

	retention := pkgconfig.LoadEnvDuration("DEDUP_RETENTION", dedup.DefaultRetention, pkgconfig.ValidatePositiveDuration)
	dedupIndex := dedup.New(fpRepo, retention.Value.(time.Duration))

	matcher := match.New(cfg.Vocabulary)

	var enricher poll.AbstractFetcher
	enrichThreshold := 0
	enrichConfig, err := enrich.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("invalid enrichment configuration, enrichment disabled", slog.Any("error", err))
	} else if enrichConfig.Enabled {
		enricher = enrich.NewFetcher(enrichConfig)
		enrichThreshold = enrichConfig.ThinThreshold
		logger.Info("abstract enrichment enabled",
			slog.Int("thin_threshold", enrichConfig.ThinThreshold),
			slog.Duration("timeout", enrichConfig.Timeout))
	} else {
		logger.Info("abstract enrichment disabled")
	}

	sum := summarizer.FromEnv()

	return poll.NewService(
		reg,
		fetcher,
		parser,
		dedupIndex,
		matcher,
		enricher,
		sum,
		itemRepo,
		poll.Options{EnrichThreshold: enrichThreshold},
	), nil
}

// newFeedHTTPClient builds the shared client for feed polling. TLS 1.2+ is
// enforced and the pool is sized for many small fetches against few hosts.
func newFeedHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// runCronWorker schedules poll cycles and blocks until the context is
// cancelled. An optional immediate cycle runs when POLL_ON_START is true.
func runCronWorker(
	ctx context.Context,
	logger *slog.Logger,
	svc *poll.Service,
	database *sql.DB,
	cfg *worker.WorkerConfig,
	workerMetrics *worker.WorkerMetrics,
	healthServer *worker.HealthServer,
) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cfg.CronSchedule, func() {
		runPollJob(ctx, logger, svc, database, cfg, workerMetrics)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("schedule", cfg.CronSchedule),
		slog.String("timezone", cfg.Timezone))

	if pkgconfig.LoadEnvBool("POLL_ON_START", false).Value.(bool) {
		go runPollJob(ctx, logger, svc, database, cfg, workerMetrics)
	}

	<-ctx.Done()
	healthServer.SetReady(false)

	// Jobs see the cancelled context, so they unwind quickly; the grace
	// period only covers store writes finishing under context.WithoutCancel.
	cronCtx := c.Stop()
	select {
	case <-cronCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("cron jobs did not finish before shutdown deadline")
	}
	logger.Info("worker stopped")
}

// runPollJob executes one poll cycle under the configured timeout.
func runPollJob(
	ctx context.Context,
	logger *slog.Logger,
	svc *poll.Service,
	database *sql.DB,
	cfg *worker.WorkerConfig,
	workerMetrics *worker.WorkerMetrics,
) {
	startTime := time.Now()
	workerMetrics.RecordJobRun("started")
	logger.Info("poll cycle triggered")

	jobCtx, cancel := context.WithTimeout(ctx, cfg.CycleTimeout)
	defer cancel()

	report, ran, err := svc.TryRunCycle(jobCtx)
	workerMetrics.RecordJobDuration(time.Since(startTime).Seconds())

	stats := database.Stats()
	metrics.UpdateDBConnectionStats(stats.InUse, stats.Idle)

	if err != nil {
		logger.Error("poll cycle failed", slog.Any("error", err))
		workerMetrics.RecordJobRun("failure")
		return
	}
	if !ran {
		logger.Warn("poll cycle skipped, previous cycle still running")
		return
	}

	workerMetrics.RecordJobRun("success")
	workerMetrics.RecordFeedsProcessed(report.FeedsPolled)
	workerMetrics.RecordLastSuccess()

	logger.Info("poll cycle completed",
		slog.Int("feeds_polled", report.FeedsPolled),
		slog.Int64("feeds_failed", report.FeedsFailed),
		slog.Int64("items_fetched", report.ItemsFetched),
		slog.Int64("items_duplicated", report.ItemsDuplicated),
		slog.Int64("items_matched", report.ItemsMatched),
		slog.Int64("items_published", report.ItemsPublished),
		slog.Int64("summarize_errors", report.SummarizeErrors),
		slog.Duration("duration", report.Duration),
	)
}
