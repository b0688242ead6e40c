package folder

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Repository errors.
var (
	ErrFolderNotFound     = errors.New("folder not found")
	ErrPermissionNotFound = errors.New("folder permission not found")
)

// Repository defines folder and overlay-permission persistence.
type Repository interface {
	// Get retrieves a folder by ID.
	Get(ctx context.Context, id int64) (*Folder, error)

	// Create creates a new folder and fills in its ID.
	Create(ctx context.Context, f *Folder) error

	// Delete removes a folder. The caller has already verified emptiness.
	Delete(ctx context.Context, id int64) error

	// ListByCompany returns all folders of a company.
	ListByCompany(ctx context.Context, companyID int64) ([]Folder, error)

	// ListChildren returns the direct subfolders of a folder.
	ListChildren(ctx context.Context, folderID int64) ([]Folder, error)

	// CountChildren returns the number of direct subfolders.
	CountChildren(ctx context.Context, folderID int64) (int64, error)

	// SetContainsPersonalData updates the folder's PII marking.
	SetContainsPersonalData(ctx context.Context, id int64, contains bool) error

	// ListPermissions returns all overlay grants on a folder.
	ListPermissions(ctx context.Context, folderID int64) ([]Permission, error)

	// GetPermission retrieves one overlay grant by ID.
	GetPermission(ctx context.Context, permID int64) (*Permission, error)

	// UpsertPermission replaces the grant for (folderID, subjectType,
	// subjectID) wholesale, creating it if absent, and returns the stored
	// row.
	UpsertPermission(ctx context.Context, p *Permission) error

	// DeletePermission removes one overlay grant.
	DeletePermission(ctx context.Context, permID int64) error
}

// InMemoryRepository is an in-memory implementation of Repository used in
// tests.
type InMemoryRepository struct {
	mu         sync.RWMutex
	nextID     int64
	nextPermID int64
	folders    map[int64]*Folder
	perms      map[int64]*Permission
}

// NewInMemoryRepository creates a new in-memory folder repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		nextID:     1,
		nextPermID: 1,
		folders:    make(map[int64]*Folder),
		perms:      make(map[int64]*Permission),
	}
}

// Get retrieves a folder by ID.
func (r *InMemoryRepository) Get(_ context.Context, id int64) (*Folder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.folders[id]
	if !ok {
		return nil, ErrFolderNotFound
	}
	cp := *f
	return &cp, nil
}

// Create creates a new folder.
func (r *InMemoryRepository) Create(_ context.Context, f *Folder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f.ID = r.nextID
	r.nextID++
	now := time.Now()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	cp := *f
	r.folders[f.ID] = &cp
	return nil
}

// Delete removes a folder.
func (r *InMemoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.folders[id]; !ok {
		return ErrFolderNotFound
	}
	delete(r.folders, id)
	return nil
}

// ListByCompany returns all folders of a company.
func (r *InMemoryRepository) ListByCompany(_ context.Context, companyID int64) ([]Folder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Folder
	for _, f := range r.folders {
		if f.CompanyID == companyID {
			out = append(out, *f)
		}
	}
	return out, nil
}

// ListChildren returns the direct subfolders of a folder.
func (r *InMemoryRepository) ListChildren(_ context.Context, folderID int64) ([]Folder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Folder
	for _, f := range r.folders {
		if f.ParentFolderID != nil && *f.ParentFolderID == folderID {
			out = append(out, *f)
		}
	}
	return out, nil
}

// CountChildren returns the number of direct subfolders.
func (r *InMemoryRepository) CountChildren(ctx context.Context, folderID int64) (int64, error) {
	children, err := r.ListChildren(ctx, folderID)
	if err != nil {
		return 0, err
	}
	return int64(len(children)), nil
}

// SetContainsPersonalData updates the folder's PII marking.
func (r *InMemoryRepository) SetContainsPersonalData(_ context.Context, id int64, contains bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.folders[id]
	if !ok {
		return ErrFolderNotFound
	}
	f.ContainsPersonalData = contains
	f.UpdatedAt = time.Now()
	return nil
}

// ListPermissions returns all overlay grants on a folder.
func (r *InMemoryRepository) ListPermissions(_ context.Context, folderID int64) ([]Permission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Permission
	for _, p := range r.perms {
		if p.FolderID == folderID {
			out = append(out, *p)
		}
	}
	return out, nil
}

// GetPermission retrieves one overlay grant by ID.
func (r *InMemoryRepository) GetPermission(_ context.Context, permID int64) (*Permission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.perms[permID]
	if !ok {
		return nil, ErrPermissionNotFound
	}
	cp := *p
	return &cp, nil
}

// UpsertPermission replaces or creates the grant for the permission's
// (folder, subject) key.
func (r *InMemoryRepository) UpsertPermission(_ context.Context, p *Permission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, existing := range r.perms {
		if existing.FolderID == p.FolderID &&
			existing.SubjectType == p.SubjectType &&
			existing.SubjectID == p.SubjectID {
			existing.CanRead = p.CanRead
			existing.CanWrite = p.CanWrite
			existing.CanShare = p.CanShare
			existing.CanManage = p.CanManage
			existing.UpdatedAt = now
			*p = *existing
			return nil
		}
	}

	p.ID = r.nextPermID
	r.nextPermID++
	p.CreatedAt = now
	p.UpdatedAt = now
	cp := *p
	r.perms[p.ID] = &cp
	return nil
}

// DeletePermission removes one overlay grant.
func (r *InMemoryRepository) DeletePermission(_ context.Context, permID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.perms[permID]; !ok {
		return ErrPermissionNotFound
	}
	delete(r.perms, permID)
	return nil
}

// Ensure InMemoryRepository implements Repository.
var _ Repository = (*InMemoryRepository)(nil)
