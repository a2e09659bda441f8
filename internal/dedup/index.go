// Package dedup prevents re-publication of items already seen in prior
// cycles or served by overlapping feeds within one cycle. The index is a thin
// policy layer over a durable fingerprint store; atomicity of the
// check-and-record step is delegated to the store.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mouldwire/internal/repository"
)

// DefaultRetention keeps fingerprints far beyond any realistic re-publication
// window. Never republishing outweighs storage cost at this scale.
const DefaultRetention = 2 * 365 * 24 * time.Hour

// Index answers membership queries against the set of previously published
// fingerprints. Safe for concurrent use when the backing store is.
type Index struct {
	store     repository.FingerprintRepository
	retention time.Duration
}

// New creates an Index over the given store. A retention of 0 falls back to
// DefaultRetention.
func New(store repository.FingerprintRepository, retention time.Duration) *Index {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Index{store: store, retention: retention}
}

// CheckAndRecord atomically records the fingerprint and reports whether it
// was fresh. Two concurrent calls with the same fingerprint yield exactly one
// fresh=true, so the same article carried by two overlapping feeds processed
// in parallel is published once.
func (i *Index) CheckAndRecord(ctx context.Context, fingerprint string) (bool, error) {
	fresh, err := i.store.Record(ctx, fingerprint, time.Now())
	if err != nil {
		return false, fmt.Errorf("record fingerprint: %w", err)
	}
	return fresh, nil
}

// Seen reports membership without recording.
func (i *Index) Seen(ctx context.Context, fingerprint string) (bool, error) {
	seen, err := i.store.Seen(ctx, fingerprint)
	if err != nil {
		return false, fmt.Errorf("check fingerprint: %w", err)
	}
	return seen, nil
}

// Prune drops fingerprints older than the retention horizon.
func (i *Index) Prune(ctx context.Context) error {
	cutoff := time.Now().Add(-i.retention)
	removed, err := i.store.PruneBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune fingerprints: %w", err)
	}
	if removed > 0 {
		slog.Info("pruned old fingerprints",
			slog.Int64("removed", removed),
			slog.Time("cutoff", cutoff))
	}
	return nil
}
