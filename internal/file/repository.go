package file

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/filegrid/filegrid/internal/gdpr"
)

// Repository errors.
var (
	ErrFileNotFound = errors.New("file not found")
)

// Repository defines file metadata persistence.
type Repository interface {
	// Get retrieves a file by ID.
	Get(ctx context.Context, id int64) (*File, error)

	// Create creates a new file row and fills in its ID.
	Create(ctx context.Context, f *File) error

	// Rename updates the file's name.
	Rename(ctx context.Context, id int64, name string) error

	// Move reparents the file and records the inherited department scope.
	Move(ctx context.Context, id, folderID int64, departmentID *int64) error

	// SetDeletionStatus updates the lifecycle state.
	SetDeletionStatus(ctx context.Context, id int64, status DeletionStatus) error

	// SetRiskLevel updates the PII classification.
	SetRiskLevel(ctx context.Context, id int64, level gdpr.RiskLevel) error

	// SetMalwareStatus updates the malware scan state.
	SetMalwareStatus(ctx context.Context, id int64, status MalwareStatus) error

	// CountInFolder returns the number of files directly in a folder.
	CountInFolder(ctx context.Context, folderID int64) (int64, error)

	// MarkAllConfirmedPII bulk-sets every file directly in the folder to
	// CONFIRMED_PII and returns the number of rows changed.
	MarkAllConfirmedPII(ctx context.Context, folderID int64) (int64, error)

	// ListIDsInFolder returns the ids of ACTIVE files directly in the
	// folder, tenant-scoped.
	ListIDsInFolder(ctx context.Context, companyID, folderID int64) ([]int64, error)

	// ListByDeletionStatus returns a company's files in the given state.
	ListByDeletionStatus(ctx context.Context, companyID int64, status DeletionStatus) ([]File, error)
}

// InMemoryRepository is an in-memory implementation of Repository used in
// tests.
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	files  map[int64]*File
}

// NewInMemoryRepository creates a new in-memory file repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{nextID: 1, files: make(map[int64]*File)}
}

// Get retrieves a file by ID.
func (r *InMemoryRepository) Get(_ context.Context, id int64) (*File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.files[id]
	if !ok {
		return nil, ErrFileNotFound
	}
	cp := *f
	return &cp, nil
}

// Create creates a new file row.
func (r *InMemoryRepository) Create(_ context.Context, f *File) error {
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
	r.files[f.ID] = &cp
	return nil
}

func (r *InMemoryRepository) update(id int64, fn func(*File)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.files[id]
	if !ok {
		return ErrFileNotFound
	}
	fn(f)
	f.UpdatedAt = time.Now()
	return nil
}

// Rename updates the file's name.
func (r *InMemoryRepository) Rename(_ context.Context, id int64, name string) error {
	return r.update(id, func(f *File) { f.Name = name })
}

// Move reparents the file.
func (r *InMemoryRepository) Move(_ context.Context, id, folderID int64, departmentID *int64) error {
	return r.update(id, func(f *File) {
		f.FolderID = folderID
		f.DepartmentID = departmentID
	})
}

// SetDeletionStatus updates the lifecycle state.
func (r *InMemoryRepository) SetDeletionStatus(_ context.Context, id int64, status DeletionStatus) error {
	return r.update(id, func(f *File) { f.DeletionStatus = status })
}

// SetRiskLevel updates the PII classification.
func (r *InMemoryRepository) SetRiskLevel(_ context.Context, id int64, level gdpr.RiskLevel) error {
	return r.update(id, func(f *File) { f.GdprRiskLevel = level })
}

// SetMalwareStatus updates the malware scan state.
func (r *InMemoryRepository) SetMalwareStatus(_ context.Context, id int64, status MalwareStatus) error {
	return r.update(id, func(f *File) { f.MalwareStatus = status })
}

// SetDeletionProofID links the file to its erasure proof. Not part of the
// Repository interface: only the erasure step's transactional emulation
// may call it.
func (r *InMemoryRepository) SetDeletionProofID(_ context.Context, id, proofID int64) error {
	return r.update(id, func(f *File) { f.DeletionProofID = &proofID })
}

// CountInFolder returns the number of files directly in a folder.
func (r *InMemoryRepository) CountInFolder(_ context.Context, folderID int64) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, f := range r.files {
		if f.FolderID == folderID {
			n++
		}
	}
	return n, nil
}

// MarkAllConfirmedPII bulk-sets folder files to CONFIRMED_PII.
func (r *InMemoryRepository) MarkAllConfirmedPII(_ context.Context, folderID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	now := time.Now()
	for _, f := range r.files {
		if f.FolderID == folderID {
			f.GdprRiskLevel = gdpr.RiskConfirmedPII
			f.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// ListIDsInFolder returns ids of ACTIVE files directly in the folder.
func (r *InMemoryRepository) ListIDsInFolder(_ context.Context, companyID, folderID int64) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []int64
	for _, f := range r.files {
		if f.CompanyID == companyID && f.FolderID == folderID && f.DeletionStatus == DeletionActive {
			out = append(out, f.ID)
		}
	}
	return out, nil
}

// ListByDeletionStatus returns a company's files in the given state.
func (r *InMemoryRepository) ListByDeletionStatus(_ context.Context, companyID int64, status DeletionStatus) ([]File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []File
	for _, f := range r.files {
		if f.CompanyID == companyID && f.DeletionStatus == status {
			out = append(out, *f)
		}
	}
	return out, nil
}

// Ensure InMemoryRepository implements Repository.
var _ Repository = (*InMemoryRepository)(nil)
