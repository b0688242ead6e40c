package file

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/filegrid/filegrid/internal/access"
	"github.com/filegrid/filegrid/internal/audit"
	"github.com/filegrid/filegrid/internal/folder"
	"github.com/filegrid/filegrid/internal/gdpr"
)

// Service errors.
var (
	// ErrForbidden means the access predicates denied the action.
	ErrForbidden = errors.New("forbidden")

	// ErrUnavailable means the file is in a terminal or pending deletion
	// state and cannot be operated on.
	ErrUnavailable = errors.New("file is not available")

	// ErrSameFolder means a move targeted the file's current folder.
	ErrSameFolder = errors.New("file is already in this folder")
)

// Service provides file metadata operations. Storage I/O happens
// elsewhere; every mutation here runs the access predicates first and the
// GDPR gate where the action is protected.
type Service struct {
	repo    Repository
	folders *folder.Service
	gate    *gdpr.Gate
	audit   *audit.Recorder
	logger  zerolog.Logger
}

// NewService creates a new file service.
func NewService(repo Repository, folders *folder.Service, gate *gdpr.Gate, recorder *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{repo: repo, folders: folders, gate: gate, audit: recorder, logger: logger}
}

// get fetches a file, hiding cross-tenant rows behind not-found.
func (s *Service) get(ctx context.Context, actor access.Actor, id int64) (*File, error) {
	f, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.CompanyID != actor.CompanyID {
		return nil, ErrFileNotFound
	}
	return f, nil
}

// Get returns a file the actor may read.
func (s *Service) Get(ctx context.Context, actor access.Actor, id int64) (*File, error) {
	f, err := s.get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !access.CanReadFile(actor, f.AccessObject()) {
		return nil, ErrForbidden
	}
	return f, nil
}

// UploadInput describes a freshly stored file.
type UploadInput struct {
	FolderID    int64
	Name        string
	SizeBytes   int64
	ContentType string
	StoragePath string
}

// RegisterUpload records a new file in the target folder. The file starts
// ACTIVE with a pending malware scan and unknown PII risk; department
// scope is inherited from the folder.
func (s *Service) RegisterUpload(ctx context.Context, actor access.Actor, in UploadInput) (*File, error) {
	target, err := s.folders.GetForWrite(ctx, actor, in.FolderID)
	if err != nil {
		if errors.Is(err, folder.ErrForbidden) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	f := &File{
		CompanyID:       target.CompanyID,
		DepartmentID:    target.DepartmentID,
		FolderID:        target.ID,
		Name:            in.Name,
		Extension:       strings.ToLower(path.Ext(in.Name)),
		SizeBytes:       in.SizeBytes,
		ContentType:     in.ContentType,
		StoragePath:     in.StoragePath,
		CreatedByUserID: actor.ID,
		GdprRiskLevel:   gdpr.RiskUnknown,
		MalwareStatus:   MalwarePending,
		DeletionStatus:  DeletionActive,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("register upload: %w", err)
	}

	s.audit.Record(ctx, audit.Entry{
		CompanyID:   f.CompanyID,
		ActorUserID: &actor.ID,
		EventType:   audit.EventFileUpload,
		TargetType:  audit.TargetFile,
		TargetID:    &f.ID,
		Metadata:    map[string]any{"fileName": f.Name, "folderId": f.FolderID, "sizeBytes": f.SizeBytes},
	})
	return f, nil
}

// Rename changes a file's display name, preserving its extension.
func (s *Service) Rename(ctx context.Context, actor access.Actor, id int64, newName string) (*File, error) {
	f, err := s.get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !access.CanWriteFile(actor, f.AccessObject()) {
		return nil, ErrForbidden
	}
	if f.DeletionStatus != DeletionActive {
		return nil, ErrUnavailable
	}

	name := f.WithExtension(strings.TrimSpace(newName))
	if err := s.repo.Rename(ctx, id, name); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		CompanyID:   f.CompanyID,
		ActorUserID: &actor.ID,
		EventType:   audit.EventFileRename,
		TargetType:  audit.TargetFile,
		TargetID:    &f.ID,
		Metadata:    map[string]any{"oldName": f.Name, "newName": name},
	})
	f.Name = name
	return f, nil
}

// Move reparents a file into another folder the actor can write to. The
// file inherits the target folder's department scope.
func (s *Service) Move(ctx context.Context, actor access.Actor, id, targetFolderID int64) (*File, error) {
	f, err := s.get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !access.CanWriteFile(actor, f.AccessObject()) {
		return nil, ErrForbidden
	}
	if f.DeletionStatus != DeletionActive {
		return nil, ErrUnavailable
	}
	if f.FolderID == targetFolderID {
		return nil, ErrSameFolder
	}

	target, err := s.folders.GetForWrite(ctx, actor, targetFolderID)
	if err != nil {
		if errors.Is(err, folder.ErrForbidden) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	if err := s.repo.Move(ctx, id, target.ID, target.DepartmentID); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		CompanyID:   f.CompanyID,
		ActorUserID: &actor.ID,
		EventType:   audit.EventFileMove,
		TargetType:  audit.TargetFile,
		TargetID:    &f.ID,
		Metadata: map[string]any{
			"fileName":     f.Name,
			"fromFolderId": f.FolderID,
			"toFolderId":   target.ID,
		},
	})
	f.FolderID = target.ID
	f.DepartmentID = target.DepartmentID
	return f, nil
}

// Delete soft-deletes a file. Confirmed-PII files are blocked by the GDPR
// gate unless an override-capable actor explicitly overrides.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id int64, gdprOverride bool) error {
	f, err := s.get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !access.CanWriteFile(actor, f.AccessObject()) {
		return ErrForbidden
	}
	if f.DeletionStatus != DeletionActive {
		return ErrUnavailable
	}

	decision, err := s.gate.CheckFileDelete(ctx, actor, f.GateTarget(), gdprOverride)
	if err != nil {
		return err
	}

	if err := s.repo.SetDeletionStatus(ctx, id, DeletionSoftDeleted); err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Entry{
		CompanyID:   f.CompanyID,
		ActorUserID: &actor.ID,
		EventType:   audit.EventFileDelete,
		TargetType:  audit.TargetFile,
		TargetID:    &f.ID,
		Metadata:    gdpr.OverrideMetadata(map[string]any{"fileName": f.Name}, decision),
	})
	return nil
}

// SetRiskLevel reclassifies a file's PII risk, typically after a manual
// review. Only NO_PII_DETECTED and CONFIRMED_PII are accepted from users;
// the intermediate states belong to the scan pipeline.
func (s *Service) SetRiskLevel(ctx context.Context, actor access.Actor, id int64, level gdpr.RiskLevel) error {
	if level != gdpr.RiskNoPII && level != gdpr.RiskConfirmedPII {
		return fmt.Errorf("risk level %q cannot be set manually", level)
	}

	f, err := s.get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !access.CanWriteFile(actor, f.AccessObject()) {
		return ErrForbidden
	}
	if f.DeletionStatus != DeletionActive {
		return ErrUnavailable
	}
	return s.repo.SetRiskLevel(ctx, id, level)
}

// RecordDownload audits a successful read of the file's bytes. The actual
// byte transfer happens at the storage layer.
func (s *Service) RecordDownload(ctx context.Context, actor access.Actor, id int64) (*File, error) {
	f, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if f.DeletionStatus != DeletionActive {
		return nil, ErrUnavailable
	}
	if f.MalwareStatus == MalwareInfected {
		return nil, ErrUnavailable
	}

	s.audit.Record(ctx, audit.Entry{
		CompanyID:   f.CompanyID,
		ActorUserID: &actor.ID,
		EventType:   audit.EventFileDownload,
		TargetType:  audit.TargetFile,
		TargetID:    &f.ID,
		Metadata:    map[string]any{"fileName": f.Name},
	})
	return f, nil
}
