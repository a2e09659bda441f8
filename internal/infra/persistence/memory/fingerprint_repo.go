// Package memory provides in-memory repository implementations for tests and
// for running the pipeline without a database.
package memory

import (
	"context"
	"sync"
	"time"

	"mouldwire/internal/repository"
)

// FingerprintRepo is an in-memory fingerprint set. Safe for concurrent use.
type FingerprintRepo struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewFingerprintRepo creates an empty in-memory fingerprint store.
func NewFingerprintRepo() repository.FingerprintRepository {
	return &FingerprintRepo{seen: make(map[string]time.Time)}
}

// Record inserts the fingerprint under a single lock, which makes the
// check-and-record atomic per fingerprint.
func (r *FingerprintRepo) Record(_ context.Context, fingerprint string, seenAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[fingerprint]; ok {
		return false, nil
	}
	r.seen[fingerprint] = seenAt
	return true, nil
}

func (r *FingerprintRepo) Seen(_ context.Context, fingerprint string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seen[fingerprint]
	return ok, nil
}

func (r *FingerprintRepo) PruneBefore(_ context.Context, t time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for fp, seenAt := range r.seen {
		if seenAt.Before(t) {
			delete(r.seen, fp)
			removed++
		}
	}
	return removed, nil
}
