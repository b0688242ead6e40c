package retention

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/filegrid/filegrid/internal/access"
	"github.com/filegrid/filegrid/internal/audit"
	"github.com/filegrid/filegrid/internal/file"
	"github.com/filegrid/filegrid/internal/folder"
)

// Service errors.
var (
	// ErrForbidden means the actor may not manage retention.
	ErrForbidden = errors.New("forbidden")

	// ErrFileNotActive means a policy was assigned to a file that has
	// already entered the deletion pipeline.
	ErrFileNotActive = errors.New("file is not active")

	// ErrLegalHoldNotAllowed means the retention's policy forbids legal
	// holds.
	ErrLegalHoldNotAllowed = errors.New("policy does not allow legal holds")
)

// erasureMethod is recorded on every proof this service creates.
const erasureMethod = "SECURE_DELETE"

// Storage abstracts the blob store the erasure step reads and deletes
// from.
type Storage interface {
	// Fetch returns the file's bytes.
	Fetch(ctx context.Context, storagePath string) ([]byte, error)

	// Delete removes the file's bytes.
	Delete(ctx context.Context, storagePath string) error
}

// Service provides retention policy management, assignment, and the
// erasure pipeline.
type Service struct {
	repo    Repository
	files   file.Repository
	folders folder.Repository
	storage Storage
	audit   *audit.Recorder
	logger  zerolog.Logger
	now     func() time.Time
}

// NewService creates a new retention service.
func NewService(repo Repository, files file.Repository, folders folder.Repository, storage Storage, recorder *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		files:   files,
		folders: folders,
		storage: storage,
		audit:   recorder,
		logger:  logger,
		now:     time.Now,
	}
}

// PolicyInput carries user-supplied policy fields.
type PolicyInput struct {
	Name             string
	Description      string
	DurationDays     *int
	AutoDelete       bool
	LegalHoldAllowed bool
}

// CreatePolicy creates a retention policy for the actor's company.
func (s *Service) CreatePolicy(ctx context.Context, actor access.Actor, in PolicyInput) (*Policy, error) {
	if !access.CanManagePolicies(actor) {
		return nil, ErrForbidden
	}
	if in.DurationDays != nil && *in.DurationDays <= 0 {
		return nil, fmt.Errorf("duration days must be positive")
	}

	p := &Policy{
		CompanyID:        actor.CompanyID,
		Name:             in.Name,
		Description:      in.Description,
		DurationDays:     in.DurationDays,
		AutoDelete:       in.AutoDelete,
		LegalHoldAllowed: in.LegalHoldAllowed,
	}
	if err := s.repo.CreatePolicy(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPolicy returns one of the actor's company's policies.
func (s *Service) GetPolicy(ctx context.Context, actor access.Actor, id int64) (*Policy, error) {
	if !access.CanManagePolicies(actor) {
		return nil, ErrForbidden
	}
	return s.repo.GetPolicy(ctx, actor.CompanyID, id)
}

// ListPolicies returns the actor's company's policies.
func (s *Service) ListPolicies(ctx context.Context, actor access.Actor) ([]Policy, error) {
	if !access.CanManagePolicies(actor) {
		return nil, ErrForbidden
	}
	return s.repo.ListPolicies(ctx, actor.CompanyID)
}

// UpdatePolicy replaces a policy's fields.
func (s *Service) UpdatePolicy(ctx context.Context, actor access.Actor, id int64, in PolicyInput) (*Policy, error) {
	if !access.CanManagePolicies(actor) {
		return nil, ErrForbidden
	}
	p, err := s.repo.GetPolicy(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, err
	}

	p.Name = in.Name
	p.Description = in.Description
	p.DurationDays = in.DurationDays
	p.AutoDelete = in.AutoDelete
	p.LegalHoldAllowed = in.LegalHoldAllowed
	if err := s.repo.UpdatePolicy(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePolicy removes a policy that no file references.
func (s *Service) DeletePolicy(ctx context.Context, actor access.Actor, id int64) error {
	if !access.CanManagePolicies(actor) {
		return ErrForbidden
	}
	return s.repo.DeletePolicy(ctx, actor.CompanyID, id)
}

// AssignToFile assigns a policy to one ACTIVE file. Policy managers can
// assign anywhere in their company; other actors need write access to
// the file.
func (s *Service) AssignToFile(ctx context.Context, actor access.Actor, fileID, policyID int64) (*FileRetention, error) {
	f, err := s.files.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.CompanyID != actor.CompanyID {
		return nil, file.ErrFileNotFound
	}
	if !access.CanManagePolicies(actor) && !access.CanWriteFile(actor, f.AccessObject()) {
		return nil, ErrForbidden
	}
	if f.DeletionStatus != file.DeletionActive {
		return nil, ErrFileNotActive
	}
	if _, err := s.repo.GetPolicy(ctx, actor.CompanyID, policyID); err != nil {
		return nil, err
	}

	fr := &FileRetention{FileID: fileID, PolicyID: policyID, AssignedAt: s.now()}
	if err := s.repo.Assign(ctx, fr); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		CompanyID:   f.CompanyID,
		ActorUserID: &actor.ID,
		EventType:   audit.EventPolicyAssign,
		TargetType:  audit.TargetFile,
		TargetID:    &f.ID,
		Metadata:    map[string]any{"policyId": policyID, "fileName": f.Name},
	})
	return fr, nil
}

// AssignToFolder assigns a policy to every ACTIVE file directly in a
// folder, or across its whole subtree when recursive. Policy managers
// can assign anywhere in their company; other actors need write access
// to the folder. Returns the number of files assigned.
func (s *Service) AssignToFolder(ctx context.Context, actor access.Actor, folderID, policyID int64, recursive bool) (int, error) {
	root, err := s.folders.Get(ctx, folderID)
	if err != nil {
		return 0, err
	}
	if root.CompanyID != actor.CompanyID {
		return 0, folder.ErrFolderNotFound
	}
	if !access.CanManagePolicies(actor) && !s.canWriteFolder(ctx, actor, root) {
		return 0, ErrForbidden
	}
	if _, err := s.repo.GetPolicy(ctx, actor.CompanyID, policyID); err != nil {
		return 0, err
	}

	assigned := 0
	pending := []int64{root.ID}
	for len(pending) > 0 {
		id := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		fileIDs, err := s.files.ListIDsInFolder(ctx, actor.CompanyID, id)
		if err != nil {
			return assigned, err
		}
		for _, fileID := range fileIDs {
			fr := &FileRetention{FileID: fileID, PolicyID: policyID, AssignedAt: s.now()}
			if err := s.repo.Assign(ctx, fr); err != nil {
				return assigned, err
			}
			assigned++
		}

		if !recursive {
			break
		}
		children, err := s.folders.ListChildren(ctx, id)
		if err != nil {
			return assigned, err
		}
		for _, child := range children {
			pending = append(pending, child.ID)
		}
	}

	s.audit.Record(ctx, audit.Entry{
		CompanyID:   actor.CompanyID,
		ActorUserID: &actor.ID,
		EventType:   audit.EventPolicyAssign,
		TargetType:  audit.TargetFolder,
		TargetID:    &root.ID,
		Metadata:    map[string]any{"policyId": policyID, "filesAssigned": assigned, "recursive": recursive},
	})
	return assigned, nil
}

// canWriteFolder mirrors the folder service's write check: base
// predicate first, overlay grants when the base denies.
func (s *Service) canWriteFolder(ctx context.Context, actor access.Actor, f *folder.Folder) bool {
	if access.CanWriteFolder(actor, f.AccessObject()) {
		return true
	}
	perms, err := s.folders.ListPermissions(ctx, f.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("folder_id", f.ID).
			Msg("failed to load folder permissions, treating as no grants")
		return false
	}
	grants := make([]access.Grant, len(perms))
	for i := range perms {
		grants[i] = perms[i].Grant()
	}
	return access.OverlayAllows(actor, grants, access.ActionWrite)
}

// ListForFile returns a file's retention assignments.
func (s *Service) ListForFile(ctx context.Context, actor access.Actor, fileID int64) ([]FileRetention, error) {
	f, err := s.files.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.CompanyID != actor.CompanyID {
		return nil, file.ErrFileNotFound
	}
	if !access.CanManagePolicies(actor) && !access.CanReadFile(actor, f.AccessObject()) {
		return nil, ErrForbidden
	}
	return s.repo.ListForFile(ctx, fileID)
}

// SetLegalHold places or lifts a legal hold on one retention
// assignment. The assignment's policy must allow legal holds.
func (s *Service) SetLegalHold(ctx context.Context, actor access.Actor, fileID, retentionID int64, hold bool) error {
	if !access.CanManagePolicies(actor) {
		return ErrForbidden
	}
	f, err := s.files.Get(ctx, fileID)
	if err != nil {
		return err
	}
	if f.CompanyID != actor.CompanyID {
		return file.ErrFileNotFound
	}

	rows, err := s.repo.ListForFile(ctx, fileID)
	if err != nil {
		return err
	}
	var target *FileRetention
	for i := range rows {
		if rows[i].ID == retentionID {
			target = &rows[i]
			break
		}
	}
	if target == nil {
		return ErrRetentionNotFound
	}

	if hold {
		p, err := s.repo.GetPolicy(ctx, actor.CompanyID, target.PolicyID)
		if err != nil {
			return err
		}
		if !p.LegalHoldAllowed {
			return ErrLegalHoldNotAllowed
		}
	}
	return s.repo.SetLegalHold(ctx, retentionID, hold)
}

// ListProofs returns the company's erasure proofs.
func (s *Service) ListProofs(ctx context.Context, actor access.Actor) ([]ErasureProof, error) {
	if !access.CanManagePolicies(actor) {
		return nil, ErrForbidden
	}
	return s.repo.ListProofs(ctx, actor.CompanyID)
}

// Sweep moves expired ACTIVE files to PENDING_ERASURE. Files under
// legal hold are never picked up. Returns the number of files queued.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	ids, err := s.repo.ListExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list expired files: %w", err)
	}

	queued := 0
	for _, id := range ids {
		if err := s.files.SetDeletionStatus(ctx, id, file.DeletionPendingErasure); err != nil {
			s.logger.Error().Err(err).Int64("file_id", id).Msg("failed to queue file for erasure")
			continue
		}
		queued++
	}
	if queued > 0 {
		s.logger.Info().Int("queued", queued).Msg("retention sweep queued files for erasure")
	}
	return queued, nil
}

// ProcessErasure erases every PENDING_ERASURE file of the actor's
// company. Files under legal hold are skipped outright and do not
// appear in the results. A failed storage delete marks the file failed
// and leaves it PENDING_ERASURE for the next run; the proof is created
// only once the bytes are gone, in the same transaction that flips the
// file to ERASED.
func (s *Service) ProcessErasure(ctx context.Context, actor access.Actor) (*BatchResult, error) {
	if !access.CanManagePolicies(actor) {
		return nil, ErrForbidden
	}

	pending, err := s.files.ListByDeletionStatus(ctx, actor.CompanyID, file.DeletionPendingErasure)
	if err != nil {
		return nil, fmt.Errorf("list pending files: %w", err)
	}

	result := &BatchResult{Results: []ErasureResult{}}
	for i := range pending {
		f := &pending[i]

		held, err := s.underLegalHold(ctx, f.ID)
		if err != nil {
			result.Failed++
			result.Results = append(result.Results, ErasureResult{FileID: f.ID, Error: err.Error()})
			continue
		}
		if held {
			continue
		}

		if res := s.eraseFile(ctx, actor, f); res != nil {
			if res.OK {
				result.Processed++
			} else {
				result.Failed++
			}
			result.Results = append(result.Results, *res)
		}
	}
	return result, nil
}

func (s *Service) underLegalHold(ctx context.Context, fileID int64) (bool, error) {
	rows, err := s.repo.ListForFile(ctx, fileID)
	if err != nil {
		return false, err
	}
	for _, fr := range rows {
		if fr.UnderLegalHold {
			return true, nil
		}
	}
	return false, nil
}

// eraseFile runs the per-file erasure step. A nil return means the file
// was skipped (already erased by a concurrent run). When the bytes
// cannot be fetched for the pre-erasure hash, the proof is still
// created with a nil hashBeforeDelete: the object may already be gone
// upstream, and refusing to erase would strand the file in
// PENDING_ERASURE forever.
func (s *Service) eraseFile(ctx context.Context, actor access.Actor, f *file.File) *ErasureResult {
	// Hash first so the proof can attest to what was deleted. A fetch
	// failure is tolerated: the bytes may already be gone.
	var hash *string
	if data, err := s.storage.Fetch(ctx, f.StoragePath); err != nil {
		s.logger.Warn().Err(err).Int64("file_id", f.ID).Msg("could not fetch file for pre-erasure hash")
	} else {
		sum := sha256.Sum256(data)
		h := hex.EncodeToString(sum[:])
		hash = &h
	}

	if err := s.storage.Delete(ctx, f.StoragePath); err != nil {
		s.logger.Error().Err(err).Int64("file_id", f.ID).Msg("storage delete failed")
		return &ErasureResult{FileID: f.ID, Error: err.Error()}
	}

	erasedAt := s.now()
	policyID := s.latestPolicyID(ctx, f.ID)
	proof := &ErasureProof{
		CompanyID:            f.CompanyID,
		FileID:               f.ID,
		PolicyID:             policyID,
		ErasedAt:             erasedAt,
		ErasedBySystemUserID: actor.ID,
		Method:               erasureMethod,
		HashBeforeDelete:     hash,
	}
	entry := &audit.Entry{
		CompanyID:   f.CompanyID,
		ActorUserID: &actor.ID,
		EventType:   audit.EventFileErased,
		TargetType:  audit.TargetFile,
		TargetID:    &f.ID,
		Metadata:    map[string]any{"fileName": f.Name, "method": erasureMethod},
		CreatedAt:   erasedAt,
	}

	if err := s.repo.Erase(ctx, proof, entry); err != nil {
		if errors.Is(err, ErrFileNotPending) {
			s.logger.Info().Int64("file_id", f.ID).Msg("file already erased, skipping")
			return nil
		}
		return &ErasureResult{FileID: f.ID, Error: err.Error()}
	}

	s.logger.Info().Int64("file_id", f.ID).Int64("proof_id", proof.ID).Msg("file erased")
	return &ErasureResult{FileID: f.ID, OK: true}
}

// latestPolicyID returns the most recent assignment's policy, nil when
// the file was never assigned one.
func (s *Service) latestPolicyID(ctx context.Context, fileID int64) *int64 {
	rows, err := s.repo.ListForFile(ctx, fileID)
	if err != nil || len(rows) == 0 {
		return nil
	}
	latest := rows[0]
	for _, fr := range rows[1:] {
		if fr.AssignedAt.After(latest.AssignedAt) {
			latest = fr
		}
	}
	id := latest.PolicyID
	return &id
}
