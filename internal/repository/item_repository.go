// Package repository declares the persistence interfaces the pipeline depends
// on. Implementations live under internal/infra/persistence.
package repository

import (
	"context"
	"time"

	"mouldwire/internal/domain/entity"
)

// ItemRepository is the append-only durable record of published items. It
// backstops the dedup index's never-republish guarantee, so writes must be
// individually atomic.
type ItemRepository interface {
	// Create appends one published item. Re-inserting an existing fingerprint
	// is a silent no-op so that interleaved tail work from a previous cycle
	// cannot duplicate records.
	Create(ctx context.Context, item *entity.PublishedItem) error

	// ListSince returns items published at or after t, newest first. This is
	// the surface a downstream publisher consumes.
	ListSince(ctx context.Context, t time.Time) ([]*entity.PublishedItem, error)

	// Count returns the total number of published items.
	Count(ctx context.Context) (int64, error)
}
