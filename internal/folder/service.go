package folder

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/filegrid/filegrid/internal/access"
	"github.com/filegrid/filegrid/internal/audit"
	"github.com/filegrid/filegrid/internal/gdpr"
)

// Service errors.
var (
	// ErrForbidden means the base predicate and the overlay both denied.
	ErrForbidden = errors.New("forbidden")

	// ErrNotEmpty means the folder still has files or subfolders.
	ErrNotEmpty = errors.New("folder is not empty")

	// ErrInvalidSubject means an overlay grant named an unknown subject.
	ErrInvalidSubject = errors.New("invalid permission subject")
)

// FileStore is the slice of file persistence the folder service needs:
// emptiness checks before delete and the bulk PII cascade.
type FileStore interface {
	// CountInFolder returns the number of files directly in the folder.
	CountInFolder(ctx context.Context, folderID int64) (int64, error)

	// MarkAllConfirmedPII sets every file directly in the folder to
	// CONFIRMED_PII and returns how many rows changed.
	MarkAllConfirmedPII(ctx context.Context, folderID int64) (int64, error)
}

// Service provides folder operations: lifecycle, tree assembly, PII
// marking, and the permission overlay.
type Service struct {
	repo   Repository
	files  FileStore
	gate   *gdpr.Gate
	audit  *audit.Recorder
	logger zerolog.Logger
}

// NewService creates a new folder service.
func NewService(repo Repository, files FileStore, gate *gdpr.Gate, recorder *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{repo: repo, files: files, gate: gate, audit: recorder, logger: logger}
}

// get fetches a folder, hiding cross-tenant rows behind not-found so
// existence never leaks across companies.
func (s *Service) get(ctx context.Context, actor access.Actor, id int64) (*Folder, error) {
	f, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.CompanyID != actor.CompanyID {
		return nil, ErrFolderNotFound
	}
	return f, nil
}

// canRead checks the base predicate, then the overlay if the base denied.
func (s *Service) canRead(ctx context.Context, actor access.Actor, f *Folder) bool {
	if access.CanReadFolder(actor, f.AccessObject()) {
		return true
	}
	return s.overlayAllows(ctx, actor, f.ID, access.ActionRead)
}

// canWrite checks the base predicate, then the overlay if the base denied.
func (s *Service) canWrite(ctx context.Context, actor access.Actor, f *Folder) bool {
	if access.CanWriteFolder(actor, f.AccessObject()) {
		return true
	}
	return s.overlayAllows(ctx, actor, f.ID, access.ActionWrite)
}

func (s *Service) overlayAllows(ctx context.Context, actor access.Actor, folderID int64, action access.Action) bool {
	perms, err := s.repo.ListPermissions(ctx, folderID)
	if err != nil {
		s.logger.Error().Err(err).Int64("folder_id", folderID).
			Msg("failed to load folder permissions, treating as no grants")
		return false
	}
	grants := make([]access.Grant, len(perms))
	for i := range perms {
		grants[i] = perms[i].Grant()
	}
	return access.OverlayAllows(actor, grants, action)
}

// Get returns a folder the actor may read.
func (s *Service) Get(ctx context.Context, actor access.Actor, id int64) (*Folder, error) {
	f, err := s.get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !s.canRead(ctx, actor, f) {
		return nil, ErrForbidden
	}
	return f, nil
}

// GetForWrite returns a folder the actor may write to, consulting the
// overlay after a base denial. Used by collaborators that need a writable
// target folder (uploads, moves).
func (s *Service) GetForWrite(ctx context.Context, actor access.Actor, id int64) (*Folder, error) {
	f, err := s.get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !s.canWrite(ctx, actor, f) {
		return nil, ErrForbidden
	}
	return f, nil
}

// CreateInput describes a new folder.
type CreateInput struct {
	Name           string
	ParentFolderID *int64
	// DepartmentID applies only to root folders; children inherit their
	// parent's department scope.
	DepartmentID     *int64
	IsDepartmentRoot bool
}

// Create creates a folder. Creating under a parent requires write access
// to the parent; creating a root folder is role-gated (company admin or
// higher) because there is no parent to hold an overlay grant.
func (s *Service) Create(ctx context.Context, actor access.Actor, in CreateInput) (*Folder, error) {
	f := &Folder{
		CompanyID:        actor.CompanyID,
		Name:             in.Name,
		CreatedByUserID:  actor.ID,
		IsDepartmentRoot: in.IsDepartmentRoot,
	}

	if in.ParentFolderID != nil {
		parent, err := s.get(ctx, actor, *in.ParentFolderID)
		if err != nil {
			return nil, err
		}
		if !s.canWrite(ctx, actor, parent) {
			return nil, ErrForbidden
		}
		f.ParentFolderID = &parent.ID
		f.DepartmentID = parent.DepartmentID
		f.Path = parent.ChildPath(in.Name)
	} else {
		if actor.Role != access.RoleSuperAdmin && actor.Role != access.RoleCompanyAdmin {
			return nil, ErrForbidden
		}
		f.DepartmentID = in.DepartmentID
		f.Path = "/" + in.Name
	}

	if err := s.repo.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}

	s.audit.Record(ctx, audit.Entry{
		CompanyID:   f.CompanyID,
		ActorUserID: &actor.ID,
		EventType:   audit.EventFolderCreate,
		TargetType:  audit.TargetFolder,
		TargetID:    &f.ID,
		Metadata:    map[string]any{"name": f.Name, "path": f.Path},
	})
	return f, nil
}

// Delete removes a folder. The folder must be empty; PII-marked folders
// pass through the GDPR gate first.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id int64, gdprOverride bool) error {
	f, err := s.get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !s.canWrite(ctx, actor, f) {
		return ErrForbidden
	}

	decision, err := s.gate.CheckFolderDelete(ctx, actor, f.GateTarget(), gdprOverride)
	if err != nil {
		return err
	}

	subfolders, err := s.repo.CountChildren(ctx, id)
	if err != nil {
		return fmt.Errorf("count subfolders: %w", err)
	}
	files, err := s.files.CountInFolder(ctx, id)
	if err != nil {
		return fmt.Errorf("count folder files: %w", err)
	}
	if subfolders > 0 || files > 0 {
		return ErrNotEmpty
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Entry{
		CompanyID:   f.CompanyID,
		ActorUserID: &actor.ID,
		EventType:   audit.EventFolderDelete,
		TargetType:  audit.TargetFolder,
		TargetID:    &f.ID,
		Metadata: gdpr.OverrideMetadata(map[string]any{
			"name": f.Name,
			"path": f.Path,
		}, decision),
	})
	return nil
}

// MarkPersonalData updates the folder's containsPersonalData flag. With
// applyToFiles, every file directly in the folder is bulk-set to
// CONFIRMED_PII; the cascade is one-shot and does not descend into
// subfolders, and files added later are not flagged automatically.
func (s *Service) MarkPersonalData(ctx context.Context, actor access.Actor, id int64, contains, applyToFiles bool) error {
	f, err := s.get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !s.canWrite(ctx, actor, f) {
		return ErrForbidden
	}

	if err := s.repo.SetContainsPersonalData(ctx, id, contains); err != nil {
		return err
	}

	if contains && applyToFiles {
		n, err := s.files.MarkAllConfirmedPII(ctx, id)
		if err != nil {
			return fmt.Errorf("cascade pii marking to files: %w", err)
		}
		s.logger.Info().Int64("folder_id", id).Int64("files", n).
			Msg("marked folder files as confirmed PII")
	}
	return nil
}

// Tree returns the actor's readable slice of the company folder tree.
// Readability here is base-predicate only; overlay grants widen access to
// individual folders, not to tree browsing.
func (s *Service) Tree(ctx context.Context, actor access.Actor) ([]*Node, error) {
	folders, err := s.repo.ListByCompany(ctx, actor.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("list company folders: %w", err)
	}

	visible := folders[:0]
	for _, f := range folders {
		if access.CanReadFolder(actor, f.AccessObject()) {
			visible = append(visible, f)
		}
	}
	return BuildTree(visible), nil
}

// ListPermissions returns the overlay grants on a folder. Managing the
// overlay requires write access, and bootstrap is role-based: overlay
// grants themselves cannot confer the right to edit the overlay unless
// they include write.
func (s *Service) ListPermissions(ctx context.Context, actor access.Actor, folderID int64) ([]Permission, error) {
	f, err := s.get(ctx, actor, folderID)
	if err != nil {
		return nil, err
	}
	if !s.canWrite(ctx, actor, f) {
		return nil, ErrForbidden
	}
	return s.repo.ListPermissions(ctx, folderID)
}

// UpsertPermission creates or wholesale-replaces the grant for the given
// subject on the folder. Absent flags default to read-only.
func (s *Service) UpsertPermission(ctx context.Context, actor access.Actor, folderID int64, subjectType access.SubjectType, subjectID string, flags PermissionFlags) (*Permission, error) {
	if !subjectType.Valid() || subjectID == "" {
		return nil, ErrInvalidSubject
	}

	f, err := s.get(ctx, actor, folderID)
	if err != nil {
		return nil, err
	}
	if !s.canWrite(ctx, actor, f) {
		return nil, ErrForbidden
	}

	p := &Permission{
		FolderID:    folderID,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		CanRead:     boolOr(flags.CanRead, true),
		CanWrite:    boolOr(flags.CanWrite, false),
		CanShare:    boolOr(flags.CanShare, false),
		CanManage:   boolOr(flags.CanManage, false),
	}
	if err := s.repo.UpsertPermission(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// RemovePermission deletes one overlay grant. A missing grant is
// not-found, not a silent success.
func (s *Service) RemovePermission(ctx context.Context, actor access.Actor, permID int64) error {
	p, err := s.repo.GetPermission(ctx, permID)
	if err != nil {
		return err
	}
	f, err := s.get(ctx, actor, p.FolderID)
	if err != nil {
		return err
	}
	if !s.canWrite(ctx, actor, f) {
		return ErrForbidden
	}
	return s.repo.DeletePermission(ctx, permID)
}
