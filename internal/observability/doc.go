// Package observability provides production-grade observability infrastructure
// including structured logging and Prometheus metrics.
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics registry and recorders
//   - slo: Service level objective tracking for the polling pipeline
//
// Example usage:
//
//	import (
//	    "mouldwire/internal/observability/logging"
//	    "mouldwire/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("worker started")
//
//	    metrics.RecordItemsFetched("cdc-newsroom", 10)
//	}
package observability
