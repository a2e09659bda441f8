package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"mouldwire/internal/domain/entity"
	"mouldwire/internal/repository"
)

// ItemRepo is an in-memory published item store. Safe for concurrent use.
type ItemRepo struct {
	mu     sync.Mutex
	items  map[string]*entity.PublishedItem
	nextID int64
}

// NewItemRepo creates an empty in-memory item store.
func NewItemRepo() repository.ItemRepository {
	return &ItemRepo{items: make(map[string]*entity.PublishedItem), nextID: 1}
}

func (r *ItemRepo) Create(_ context.Context, item *entity.PublishedItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.Fingerprint]; ok {
		return nil
	}
	stored := *item
	stored.ID = r.nextID
	r.nextID++
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.items[stored.Fingerprint] = &stored
	item.ID = stored.ID
	item.CreatedAt = stored.CreatedAt
	return nil
}

func (r *ItemRepo) ListSince(_ context.Context, t time.Time) ([]*entity.PublishedItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.PublishedItem, 0, len(r.items))
	for _, it := range r.items {
		if it.CreatedAt.Before(t) {
			continue
		}
		copied := *it
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *ItemRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}
