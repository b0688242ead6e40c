package share

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/filegrid/filegrid/internal/access"
	"github.com/filegrid/filegrid/internal/audit"
	"github.com/filegrid/filegrid/internal/file"
	"github.com/filegrid/filegrid/internal/gdpr"
)

// Service errors.
var (
	// ErrForbidden means the actor may not share the file.
	ErrForbidden = errors.New("forbidden")

	// ErrSharesDisabled means external sharing is switched off.
	ErrSharesDisabled = errors.New("external shares are disabled")

	// ErrScanRequired means the file has not passed a malware scan and
	// the scan-before-share switch is on.
	ErrScanRequired = errors.New("file has not passed malware scanning")

	// ErrFileUnavailable means the file is not in a shareable state.
	ErrFileUnavailable = errors.New("file is not available")

	// ErrShareGone means the share exists but no longer grants access:
	// revoked, expired, or out of downloads.
	ErrShareGone = errors.New("share is no longer available")

	// ErrInvalidOTP means the presented one-time password is wrong.
	ErrInvalidOTP = errors.New("invalid one-time password")
)

// Flags are the kill switches the share flow consults.
type Flags interface {
	// ExternalSharesDisabled turns off share creation company-wide.
	ExternalSharesDisabled(ctx context.Context) bool

	// RequireMalwareScan blocks sharing files that are not CLEAN.
	RequireMalwareScan(ctx context.Context) bool
}

// Service creates, verifies, and revokes external shares.
type Service struct {
	repo   Repository
	files  file.Repository
	gate   *gdpr.Gate
	flags  Flags
	audit  *audit.Recorder
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a new share service.
func NewService(repo Repository, files file.Repository, gate *gdpr.Gate, flags Flags, recorder *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		files:  files,
		gate:   gate,
		flags:  flags,
		audit:  recorder,
		logger: logger,
		now:    time.Now,
	}
}

// CreateInput carries user-supplied share fields.
type CreateInput struct {
	FileID         int64
	RecipientEmail string
	Expiry         time.Duration
	MaxDownloads   int
	GdprOverride   bool
}

// Create mints a new external share. The OTP is returned exactly once
// for out-of-band delivery; only its bcrypt hash is stored. Files
// classified POSSIBLE_PII or CONFIRMED_PII are blocked by the GDPR gate
// unless an override-capable actor overrides.
func (s *Service) Create(ctx context.Context, actor access.Actor, in CreateInput) (*Share, string, error) {
	if s.flags.ExternalSharesDisabled(ctx) {
		return nil, "", ErrSharesDisabled
	}

	f, err := s.files.Get(ctx, in.FileID)
	if err != nil {
		return nil, "", err
	}
	if f.CompanyID != actor.CompanyID {
		return nil, "", file.ErrFileNotFound
	}
	if !access.CanShareFile(actor, f.AccessObject()) {
		return nil, "", ErrForbidden
	}
	if f.DeletionStatus != file.DeletionActive {
		return nil, "", ErrFileUnavailable
	}
	if s.flags.RequireMalwareScan(ctx) && f.MalwareStatus != file.MalwareClean {
		return nil, "", ErrScanRequired
	}

	decision, err := s.gate.CheckFileShare(ctx, actor, f.GateTarget(), in.GdprOverride)
	if err != nil {
		return nil, "", err
	}

	otp, err := GenerateOTP()
	if err != nil {
		return nil, "", err
	}
	otpHash, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	maxDownloads := in.MaxDownloads
	if maxDownloads <= 0 {
		maxDownloads = 1
	}
	now := s.now()
	sh := &Share{
		ID:                 uuid.NewString(),
		CompanyID:          f.CompanyID,
		FileID:             f.ID,
		CreatedByUserID:    actor.ID,
		RecipientEmail:     in.RecipientEmail,
		OTPHash:            string(otpHash),
		MaxDownloads:       maxDownloads,
		RemainingDownloads: maxDownloads,
		ExpiresAt:          now.Add(ClampExpiry(in.Expiry)),
		CreatedAt:          now,
	}
	if err := s.repo.Create(ctx, sh); err != nil {
		return nil, "", err
	}

	s.audit.Record(ctx, audit.Entry{
		CompanyID:   f.CompanyID,
		ActorUserID: &actor.ID,
		EventType:   audit.EventFileShareCreate,
		TargetType:  audit.TargetShare,
		Metadata: gdpr.OverrideMetadata(map[string]any{
			"shareId":        sh.ID,
			"fileId":         f.ID,
			"fileName":       f.Name,
			"recipientEmail": sh.RecipientEmail,
			"maxDownloads":   sh.MaxDownloads,
		}, decision),
	})
	return sh, otp, nil
}

// ListForFile returns a file's shares to an actor who can share it.
func (s *Service) ListForFile(ctx context.Context, actor access.Actor, fileID int64) ([]Share, error) {
	f, err := s.files.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.CompanyID != actor.CompanyID {
		return nil, file.ErrFileNotFound
	}
	if !access.CanShareFile(actor, f.AccessObject()) {
		return nil, ErrForbidden
	}
	return s.repo.ListByFile(ctx, actor.CompanyID, fileID)
}

// Revoke invalidates a share. The creator may revoke their own shares;
// otherwise share access to the file is required.
func (s *Service) Revoke(ctx context.Context, actor access.Actor, shareID string) error {
	sh, err := s.repo.Get(ctx, shareID)
	if err != nil {
		return err
	}
	if sh.CompanyID != actor.CompanyID {
		return ErrShareNotFound
	}
	if sh.CreatedByUserID != actor.ID {
		f, err := s.files.Get(ctx, sh.FileID)
		if err != nil {
			return err
		}
		if !access.CanShareFile(actor, f.AccessObject()) {
			return ErrForbidden
		}
	}
	return s.repo.Revoke(ctx, actor.CompanyID, shareID, s.now())
}

// VerifyAccess checks the OTP against a usable share and consumes one
// download. The returned file is what the anonymous recipient may
// fetch. Wrong OTPs do not consume downloads.
func (s *Service) VerifyAccess(ctx context.Context, shareID, otp string) (*file.File, error) {
	sh, err := s.repo.Get(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if !sh.Usable(s.now()) {
		return nil, ErrShareGone
	}

	if err := bcrypt.CompareHashAndPassword([]byte(sh.OTPHash), []byte(otp)); err != nil {
		return nil, ErrInvalidOTP
	}

	f, err := s.files.Get(ctx, sh.FileID)
	if err != nil {
		return nil, err
	}
	if f.DeletionStatus != file.DeletionActive || f.MalwareStatus == file.MalwareInfected {
		return nil, ErrShareGone
	}

	if err := s.repo.ConsumeDownload(ctx, shareID); err != nil {
		if errors.Is(err, ErrExhausted) {
			return nil, ErrShareGone
		}
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		CompanyID:  sh.CompanyID,
		EventType:  audit.EventFileShareAccess,
		TargetType: audit.TargetShare,
		Metadata: map[string]any{
			"shareId":            sh.ID,
			"fileId":             f.ID,
			"remainingDownloads": sh.RemainingDownloads - 1,
		},
	})
	return f, nil
}
