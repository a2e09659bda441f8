// Package worker holds the scheduling shell around the poll pipeline: cron
// configuration, health probes, and job-level metrics.
package worker

import (
	"fmt"
	"log/slog"
	"time"

	"mouldwire/internal/pkg/config"
)

// WorkerConfig controls the cron cadence and the operational limits of the
// worker process. Every field has a safe default and loading is fail-open:
// an invalid environment value logs a warning and keeps the default so a
// typo in a deploy manifest cannot stop feed polling.
type WorkerConfig struct {
	// CronSchedule is the five-field cron expression for poll cycles.
	// Default runs four times a day at 00:00, 06:00, 12:00 and 18:00.
	CronSchedule string

	// Timezone is the IANA timezone the schedule is evaluated in.
	Timezone string

	// CycleTimeout bounds a single poll cycle. A cycle that overruns is
	// cancelled and reported as failed. Range 1m to 4h.
	CycleTimeout time.Duration

	// HealthPort serves the liveness and readiness probes. Range 1024-65535.
	HealthPort int

	// MetricsPort serves the Prometheus scrape endpoint. Range 1024-65535.
	MetricsPort int
}

// DefaultConfig returns the production defaults: a six-hourly cadence in UTC,
// a two-hour cycle budget, and the conventional exporter ports.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule: "0 0,6,12,18 * * *",
		Timezone:     "UTC",
		CycleTimeout: 2 * time.Hour,
		HealthPort:   9091,
		MetricsPort:  9090,
	}
}

// Validate checks every field and aggregates the failures.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateDuration(c.CycleTimeout, 1*time.Minute, 4*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("cycle timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := config.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads the worker configuration from environment variables
// with per-field validation and fallback to defaults.
//
// Environment variables:
//   - CRON_SCHEDULE: cron expression (default "0 0,6,12,18 * * *")
//   - WORKER_TIMEZONE: IANA timezone name (default "UTC")
//   - CYCLE_TIMEOUT: Go duration, 1m-4h (default 2h)
//   - WORKER_HEALTH_PORT: integer 1024-65535 (default 9091)
//   - METRICS_PORT: integer 1024-65535 (default 9090)
//
// Each fallback is logged and counted on the worker config metrics. The
// returned configuration is always valid; the error is always nil and exists
// only so call sites read like the other loaders.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	warn := func(field string, result config.ConfigLoadResult) {
		if !result.FallbackApplied {
			return
		}
		fallbackApplied = true
		metrics.RecordValidationError(field)
		metrics.RecordFallback(field, "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}

	result := config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = result.Value.(string)
	warn("cron_schedule", result)

	result = config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	warn("timezone", result)

	result = config.LoadEnvDuration("CYCLE_TIMEOUT", cfg.CycleTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Minute, 4*time.Hour)
	})
	cfg.CycleTimeout = result.Value.(time.Duration)
	warn("cycle_timeout", result)

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	warn("health_port", result)

	result = config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.MetricsPort = result.Value.(int)
	warn("metrics_port", result)

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
