package audit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository persists audit entries. Append and read only; there is no
// update or delete.
type Repository interface {
	// Append stores a new entry and fills in its ID and CreatedAt.
	Append(ctx context.Context, entry *Entry) error

	// List returns entries matching the query, newest first.
	List(ctx context.Context, q Query) ([]Entry, error)
}

// InMemoryRepository is an in-memory implementation of Repository used in
// tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	entries []Entry
}

// NewInMemoryRepository creates a new in-memory audit repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{nextID: 1}
}

// Append stores a new entry.
func (r *InMemoryRepository) Append(_ context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = r.nextID
	r.nextID++
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

// List returns entries matching the query, newest first.
func (r *InMemoryRepository) List(_ context.Context, q Query) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Entry
	for _, e := range r.entries {
		if e.CompanyID != q.CompanyID {
			continue
		}
		if q.ActorUserID != nil && (e.ActorUserID == nil || *e.ActorUserID != *q.ActorUserID) {
			continue
		}
		if q.EventType != nil && e.EventType != *q.EventType {
			continue
		}
		if q.TargetType != nil && e.TargetType != *q.TargetType {
			continue
		}
		if q.TargetID != nil && (e.TargetID == nil || *e.TargetID != *q.TargetID) {
			continue
		}
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Ensure InMemoryRepository implements Repository.
var _ Repository = (*InMemoryRepository)(nil)
