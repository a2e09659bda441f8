// Package sqlite provides SQLite implementations of the repository
// interfaces. Matched term lists are stored as JSON text columns.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"mouldwire/internal/domain/entity"
	"mouldwire/internal/repository"
)

// ItemRepo implements the ItemRepository interface using SQLite.
type ItemRepo struct{ db *sql.DB }

// NewItemRepo creates a new SQLite-backed item repository.
func NewItemRepo(db *sql.DB) repository.ItemRepository {
	return &ItemRepo{db: db}
}

// Create appends one published item. The fingerprint column carries a UNIQUE
// constraint, so re-inserting an existing fingerprint is a silent no-op.
func (repo *ItemRepo) Create(ctx context.Context, item *entity.PublishedItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("Create: validate: %w", err)
	}

	subjects, err := json.Marshal(item.Subjects)
	if err != nil {
		return fmt.Errorf("Create: marshal subjects: %w", err)
	}
	contexts, err := json.Marshal(item.Contexts)
	if err != nil {
		return fmt.Errorf("Create: marshal contexts: %w", err)
	}

	const query = `
INSERT INTO items
(fingerprint, title, link, source_name, category, subjects, contexts, summary, published_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (fingerprint) DO NOTHING
`
	_, err = repo.db.ExecContext(ctx, query,
		item.Fingerprint, item.Title, item.Link,
		item.SourceName, item.Category,
		string(subjects), string(contexts),
		item.Summary, item.PublishedAt, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: ExecContext: %w", err)
	}
	return nil
}

// ListSince retrieves items created at or after t, newest first.
func (repo *ItemRepo) ListSince(ctx context.Context, t time.Time) ([]*entity.PublishedItem, error) {
	const query = `
SELECT id, fingerprint, title, link, source_name, category, subjects, contexts, summary, published_at, created_at
FROM items
WHERE created_at >= ?
ORDER BY created_at DESC, id DESC
`
	rows, err := repo.db.QueryContext(ctx, query, t)
	if err != nil {
		return nil, fmt.Errorf("ListSince: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*entity.PublishedItem, 0, 100)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("ListSince: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListSince: rows.Err: %w", err)
	}

	return items, nil
}

// Count returns the total number of published items.
func (repo *ItemRepo) Count(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM items`
	var n int64
	if err := repo.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("Count: QueryRowContext: %w", err)
	}
	return n, nil
}

func scanItem(rows *sql.Rows) (*entity.PublishedItem, error) {
	var item entity.PublishedItem
	var subjects, contexts string
	err := rows.Scan(&item.ID,
		&item.Fingerprint, &item.Title, &item.Link,
		&item.SourceName, &item.Category,
		&subjects, &contexts,
		&item.Summary, &item.PublishedAt, &item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("Scan: %w", err)
	}
	if err := json.Unmarshal([]byte(subjects), &item.Subjects); err != nil {
		return nil, fmt.Errorf("unmarshal subjects: %w", err)
	}
	if err := json.Unmarshal([]byte(contexts), &item.Contexts); err != nil {
		return nil, fmt.Errorf("unmarshal contexts: %w", err)
	}
	return &item, nil
}
