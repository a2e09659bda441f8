package repository

import (
	"context"
	"time"
)

// FingerprintRepository is the durable set of item fingerprints seen across
// all prior cycles.
type FingerprintRepository interface {
	// Record inserts the fingerprint and reports whether it was newly
	// recorded. The check-and-record must be atomic per fingerprint: when the
	// same fingerprint is recorded concurrently, exactly one caller sees
	// fresh=true.
	Record(ctx context.Context, fingerprint string, seenAt time.Time) (fresh bool, err error)

	// Seen reports membership without recording.
	Seen(ctx context.Context, fingerprint string) (bool, error)

	// PruneBefore removes fingerprints last seen before t and returns the
	// number removed.
	PruneBefore(ctx context.Context, t time.Time) (int64, error)
}
