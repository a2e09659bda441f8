package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mouldwire/internal/repository"
)

// FingerprintRepo implements the FingerprintRepository interface using SQLite.
type FingerprintRepo struct{ db *sql.DB }

// NewFingerprintRepo creates a new SQLite-backed fingerprint repository.
func NewFingerprintRepo(db *sql.DB) repository.FingerprintRepository {
	return &FingerprintRepo{db: db}
}

// Record inserts the fingerprint and reports whether it was newly recorded.
// INSERT OR IGNORE plus RowsAffected makes the check-and-record atomic at the
// database level, so concurrent recorders of the same fingerprint see exactly
// one fresh=true.
func (repo *FingerprintRepo) Record(ctx context.Context, fingerprint string, seenAt time.Time) (bool, error) {
	const query = `INSERT OR IGNORE INTO fingerprints (fingerprint, seen_at) VALUES (?, ?)`
	res, err := repo.db.ExecContext(ctx, query, fingerprint, seenAt)
	if err != nil {
		return false, fmt.Errorf("Record: ExecContext: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Record: RowsAffected: %w", err)
	}
	return n > 0, nil
}

func (repo *FingerprintRepo) Seen(ctx context.Context, fingerprint string) (bool, error) {
	const query = `SELECT 1 FROM fingerprints WHERE fingerprint = ? LIMIT 1`
	var flag bool
	err := repo.db.QueryRowContext(ctx, query, fingerprint).Scan(&flag)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("Seen: QueryRowContext: %w", err)
	}
	return true, nil
}

func (repo *FingerprintRepo) PruneBefore(ctx context.Context, t time.Time) (int64, error) {
	const query = `DELETE FROM fingerprints WHERE seen_at < ?`
	res, err := repo.db.ExecContext(ctx, query, t)
	if err != nil {
		return 0, fmt.Errorf("PruneBefore: ExecContext: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("PruneBefore: RowsAffected: %w", err)
	}
	return n, nil
}
