package retention

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/filegrid/filegrid/internal/audit"
	"github.com/filegrid/filegrid/internal/file"
)

// Repository errors.
var (
	ErrPolicyNotFound    = errors.New("retention policy not found")
	ErrPolicyInUse       = errors.New("retention policy is assigned to files")
	ErrRetentionNotFound = errors.New("file retention not found")

	// ErrFileNotPending means the erase step found the file no longer in
	// PENDING_ERASURE — typically a concurrent batch got there first.
	ErrFileNotPending = errors.New("file is not pending erasure")
)

// Repository defines policy, assignment, and proof persistence.
type Repository interface {
	// CreatePolicy creates a policy and fills in its ID.
	CreatePolicy(ctx context.Context, p *Policy) error

	// GetPolicy retrieves a policy scoped to a company.
	GetPolicy(ctx context.Context, companyID, id int64) (*Policy, error)

	// ListPolicies returns a company's policies.
	ListPolicies(ctx context.Context, companyID int64) ([]Policy, error)

	// UpdatePolicy persists changed policy fields.
	UpdatePolicy(ctx context.Context, p *Policy) error

	// DeletePolicy removes a policy. Fails with ErrPolicyInUse while any
	// FileRetention row references it.
	DeletePolicy(ctx context.Context, companyID, id int64) error

	// Assign creates a new FileRetention row.
	Assign(ctx context.Context, fr *FileRetention) error

	// ListForFile returns every retention row linked to a file.
	ListForFile(ctx context.Context, fileID int64) ([]FileRetention, error)

	// SetLegalHold flips the legal-hold flag on one retention row.
	SetLegalHold(ctx context.Context, retentionID int64, hold bool) error

	// ListExpired returns ids of ACTIVE files whose newest auto-delete
	// assignment has outlived its policy's duration at the given instant,
	// excluding files with any legal hold.
	ListExpired(ctx context.Context, now time.Time) ([]int64, error)

	// Erase atomically creates the proof, marks the file ERASED with the
	// proof id, and appends the erasure audit entry — all in one unit.
	// Returns ErrFileNotPending without side effects when the file has
	// already left PENDING_ERASURE.
	Erase(ctx context.Context, proof *ErasureProof, entry *audit.Entry) error

	// ListProofs returns a company's erasure proofs, newest first.
	ListProofs(ctx context.Context, companyID int64) ([]ErasureProof, error)
}

// InMemoryRepository is an in-memory implementation of Repository used in
// tests. It cooperates with the in-memory file and audit repositories to
// emulate the transactional erase step.
type InMemoryRepository struct {
	mu         sync.RWMutex
	nextPolicy int64
	nextRet    int64
	nextProof  int64
	policies   map[int64]*Policy
	retentions map[int64]*FileRetention
	proofs     map[int64]*ErasureProof

	files *file.InMemoryRepository
	audit *audit.InMemoryRepository
}

// NewInMemoryRepository creates a new in-memory retention repository
// bound to the given file and audit repositories.
func NewInMemoryRepository(files *file.InMemoryRepository, auditRepo *audit.InMemoryRepository) *InMemoryRepository {
	return &InMemoryRepository{
		nextPolicy: 1,
		nextRet:    1,
		nextProof:  1,
		policies:   make(map[int64]*Policy),
		retentions: make(map[int64]*FileRetention),
		proofs:     make(map[int64]*ErasureProof),
		files:      files,
		audit:      auditRepo,
	}
}

// CreatePolicy creates a policy.
func (r *InMemoryRepository) CreatePolicy(_ context.Context, p *Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p.ID = r.nextPolicy
	r.nextPolicy++
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	cp := *p
	r.policies[p.ID] = &cp
	return nil
}

// GetPolicy retrieves a company's policy.
func (r *InMemoryRepository) GetPolicy(_ context.Context, companyID, id int64) (*Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.policies[id]
	if !ok || p.CompanyID != companyID {
		return nil, ErrPolicyNotFound
	}
	cp := *p
	return &cp, nil
}

// ListPolicies returns a company's policies.
func (r *InMemoryRepository) ListPolicies(_ context.Context, companyID int64) ([]Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Policy
	for _, p := range r.policies {
		if p.CompanyID == companyID {
			out = append(out, *p)
		}
	}
	return out, nil
}

// UpdatePolicy persists changed policy fields.
func (r *InMemoryRepository) UpdatePolicy(_ context.Context, p *Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.policies[p.ID]
	if !ok || existing.CompanyID != p.CompanyID {
		return ErrPolicyNotFound
	}
	p.UpdatedAt = time.Now()
	cp := *p
	r.policies[p.ID] = &cp
	return nil
}

// DeletePolicy removes an unreferenced policy.
func (r *InMemoryRepository) DeletePolicy(_ context.Context, companyID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.policies[id]
	if !ok || p.CompanyID != companyID {
		return ErrPolicyNotFound
	}
	for _, fr := range r.retentions {
		if fr.PolicyID == id {
			return ErrPolicyInUse
		}
	}
	delete(r.policies, id)
	return nil
}

// Assign creates a new FileRetention row.
func (r *InMemoryRepository) Assign(_ context.Context, fr *FileRetention) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fr.ID = r.nextRet
	r.nextRet++
	if fr.AssignedAt.IsZero() {
		fr.AssignedAt = time.Now()
	}
	cp := *fr
	r.retentions[fr.ID] = &cp
	return nil
}

// ListForFile returns every retention row linked to a file.
func (r *InMemoryRepository) ListForFile(_ context.Context, fileID int64) ([]FileRetention, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []FileRetention
	for _, fr := range r.retentions {
		if fr.FileID == fileID {
			out = append(out, *fr)
		}
	}
	return out, nil
}

// SetLegalHold flips the legal-hold flag on one retention row.
func (r *InMemoryRepository) SetLegalHold(_ context.Context, retentionID int64, hold bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fr, ok := r.retentions[retentionID]
	if !ok {
		return ErrRetentionNotFound
	}
	fr.UnderLegalHold = hold
	return nil
}

// ListExpired returns ids of ACTIVE files past their auto-delete window.
func (r *InMemoryRepository) ListExpired(ctx context.Context, now time.Time) ([]int64, error) {
	r.mu.RLock()
	held := make(map[int64]bool)
	due := make(map[int64]bool)
	for _, fr := range r.retentions {
		if fr.UnderLegalHold {
			held[fr.FileID] = true
			continue
		}
		p, ok := r.policies[fr.PolicyID]
		if !ok || !p.AutoDelete || p.DurationDays == nil {
			continue
		}
		deadline := fr.AssignedAt.AddDate(0, 0, *p.DurationDays)
		if now.After(deadline) {
			due[fr.FileID] = true
		}
	}
	r.mu.RUnlock()

	var out []int64
	for id := range due {
		if held[id] {
			continue
		}
		f, err := r.files.Get(ctx, id)
		if err != nil {
			continue
		}
		if f.DeletionStatus == file.DeletionActive {
			out = append(out, id)
		}
	}
	return out, nil
}

// Erase emulates the transactional proof-then-flip step.
func (r *InMemoryRepository) Erase(ctx context.Context, proof *ErasureProof, entry *audit.Entry) error {
	f, err := r.files.Get(ctx, proof.FileID)
	if err != nil {
		return err
	}
	if f.DeletionStatus != file.DeletionPendingErasure {
		return ErrFileNotPending
	}

	r.mu.Lock()
	proof.ID = r.nextProof
	r.nextProof++
	if proof.CreatedAt.IsZero() {
		proof.CreatedAt = proof.ErasedAt
	}
	cp := *proof
	r.proofs[proof.ID] = &cp
	r.mu.Unlock()

	if err := r.files.SetDeletionStatus(ctx, proof.FileID, file.DeletionErased); err != nil {
		return err
	}
	if err := r.files.SetDeletionProofID(ctx, proof.FileID, proof.ID); err != nil {
		return err
	}
	if entry != nil {
		return r.audit.Append(ctx, entry)
	}
	return nil
}

// ListProofs returns a company's erasure proofs, newest first.
func (r *InMemoryRepository) ListProofs(_ context.Context, companyID int64) ([]ErasureProof, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ErasureProof
	for _, p := range r.proofs {
		if p.CompanyID == companyID {
			out = append(out, *p)
		}
	}
	return out, nil
}

// Ensure InMemoryRepository implements Repository.
var _ Repository = (*InMemoryRepository)(nil)
