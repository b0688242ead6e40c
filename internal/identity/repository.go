package identity

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Repository errors.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrAPIKeyNotFound = errors.New("api key not found")
)

// Repository defines user and API key persistence.
type Repository interface {
	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// CreateUser creates a new user.
	CreateUser(ctx context.Context, u *User) error

	// CreateAPIKey creates a new API key row and fills in its ID.
	CreateAPIKey(ctx context.Context, k *APIKey) error

	// GetAPIKeyByHash retrieves a key by its storage hash.
	GetAPIKeyByHash(ctx context.Context, hash string) (*APIKey, error)

	// ListAPIKeys returns a company's keys, revoked ones included.
	ListAPIKeys(ctx context.Context, companyID int64) ([]APIKey, error)

	// TouchAPIKey updates the key's last-used timestamp.
	TouchAPIKey(ctx context.Context, id int64, usedAt time.Time) error

	// RevokeAPIKey marks a company's key revoked.
	RevokeAPIKey(ctx context.Context, companyID, id int64, revokedAt time.Time) error
}

// InMemoryRepository is an in-memory implementation of Repository used
// in tests.
type InMemoryRepository struct {
	mu        sync.RWMutex
	nextKeyID int64
	users     map[string]*User
	keys      map[int64]*APIKey
}

// NewInMemoryRepository creates a new in-memory identity repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		nextKeyID: 1,
		users:     make(map[string]*User),
		keys:      make(map[int64]*APIKey),
	}
}

// GetUser retrieves a user by ID.
func (r *InMemoryRepository) GetUser(_ context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// GetUserByEmail retrieves a user by email.
func (r *InMemoryRepository) GetUserByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

// CreateUser creates a new user.
func (r *InMemoryRepository) CreateUser(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

// CreateAPIKey creates a new API key row.
func (r *InMemoryRepository) CreateAPIKey(_ context.Context, k *APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k.ID = r.nextKeyID
	r.nextKeyID++
	if k.CreatedAt.IsZero() {
		k.CreatedAt = time.Now()
	}
	cp := *k
	r.keys[k.ID] = &cp
	return nil
}

// GetAPIKeyByHash retrieves a key by its storage hash.
func (r *InMemoryRepository) GetAPIKeyByHash(_ context.Context, hash string) (*APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, k := range r.keys {
		if k.KeyHash == hash {
			cp := *k
			return &cp, nil
		}
	}
	return nil, ErrAPIKeyNotFound
}

// ListAPIKeys returns a company's keys.
func (r *InMemoryRepository) ListAPIKeys(_ context.Context, companyID int64) ([]APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []APIKey
	for _, k := range r.keys {
		if k.CompanyID == companyID {
			out = append(out, *k)
		}
	}
	return out, nil
}

// TouchAPIKey updates the key's last-used timestamp.
func (r *InMemoryRepository) TouchAPIKey(_ context.Context, id int64, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.keys[id]
	if !ok {
		return ErrAPIKeyNotFound
	}
	k.LastUsedAt = &usedAt
	return nil
}

// RevokeAPIKey marks a company's key revoked.
func (r *InMemoryRepository) RevokeAPIKey(_ context.Context, companyID, id int64, revokedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.keys[id]
	if !ok || k.CompanyID != companyID {
		return ErrAPIKeyNotFound
	}
	if k.RevokedAt == nil {
		k.RevokedAt = &revokedAt
	}
	return nil
}

// Ensure InMemoryRepository implements Repository.
var _ Repository = (*InMemoryRepository)(nil)
