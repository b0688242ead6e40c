package share

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Repository errors.
var (
	ErrShareNotFound = errors.New("share not found")

	// ErrExhausted means the share has no downloads left. The consume
	// step is guarded so two concurrent accesses cannot both take the
	// last download.
	ErrExhausted = errors.New("share downloads exhausted")
)

// Repository defines share persistence.
type Repository interface {
	// Create stores a new share.
	Create(ctx context.Context, s *Share) error

	// Get retrieves a share by ID.
	Get(ctx context.Context, id string) (*Share, error)

	// ListByFile returns a file's shares, tenant-scoped.
	ListByFile(ctx context.Context, companyID, fileID int64) ([]Share, error)

	// Revoke marks a company's share revoked.
	Revoke(ctx context.Context, companyID int64, id string, revokedAt time.Time) error

	// ConsumeDownload atomically decrements the share's remaining
	// downloads, failing with ErrExhausted at zero.
	ConsumeDownload(ctx context.Context, id string) error
}

// InMemoryRepository is an in-memory implementation of Repository used
// in tests.
type InMemoryRepository struct {
	mu     sync.RWMutex
	shares map[string]*Share
}

// NewInMemoryRepository creates a new in-memory share repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{shares: make(map[string]*Share)}
}

// Create stores a new share.
func (r *InMemoryRepository) Create(_ context.Context, s *Share) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	cp := *s
	r.shares[s.ID] = &cp
	return nil
}

// Get retrieves a share by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Share, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.shares[id]
	if !ok {
		return nil, ErrShareNotFound
	}
	cp := *s
	return &cp, nil
}

// ListByFile returns a file's shares.
func (r *InMemoryRepository) ListByFile(_ context.Context, companyID, fileID int64) ([]Share, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Share
	for _, s := range r.shares {
		if s.CompanyID == companyID && s.FileID == fileID {
			out = append(out, *s)
		}
	}
	return out, nil
}

// Revoke marks a company's share revoked.
func (r *InMemoryRepository) Revoke(_ context.Context, companyID int64, id string, revokedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.shares[id]
	if !ok || s.CompanyID != companyID {
		return ErrShareNotFound
	}
	if s.RevokedAt == nil {
		s.RevokedAt = &revokedAt
	}
	return nil
}

// ConsumeDownload atomically decrements remaining downloads.
func (r *InMemoryRepository) ConsumeDownload(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.shares[id]
	if !ok {
		return ErrShareNotFound
	}
	if s.RemainingDownloads <= 0 {
		return ErrExhausted
	}
	s.RemainingDownloads--
	return nil
}

// Ensure InMemoryRepository implements Repository.
var _ Repository = (*InMemoryRepository)(nil)
