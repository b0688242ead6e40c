// Package file manages file records: upload registration, rename/move,
// GDPR-gated deletion, and the scan/classification status fields.
//
// Bytes live on the external CDN; this package only tracks metadata and
// lifecycle state.
package file

import (
	"strings"
	"time"

	"github.com/filegrid/filegrid/internal/access"
	"github.com/filegrid/filegrid/internal/gdpr"
)

// MalwareStatus is the malware scan state of a file.
type MalwareStatus string

const (
	MalwarePending  MalwareStatus = "PENDING"
	MalwareClean    MalwareStatus = "CLEAN"
	MalwareInfected MalwareStatus = "INFECTED"
	MalwareFailed   MalwareStatus = "FAILED"
)

// Valid reports whether m is a known malware status.
func (m MalwareStatus) Valid() bool {
	switch m {
	case MalwarePending, MalwareClean, MalwareInfected, MalwareFailed:
		return true
	}
	return false
}

// DeletionStatus is the lifecycle state of a file.
//
// ACTIVE → SOFT_DELETED on user delete, ACTIVE → PENDING_ERASURE under a
// retention policy's auto-delete rule, PENDING_ERASURE → ERASED only via
// the erasure pipeline, which requires an erasure proof to exist first.
type DeletionStatus string

const (
	DeletionActive         DeletionStatus = "ACTIVE"
	DeletionSoftDeleted    DeletionStatus = "SOFT_DELETED"
	DeletionPendingErasure DeletionStatus = "PENDING_ERASURE"
	DeletionErased         DeletionStatus = "ERASED"
)

// File is one stored file's metadata row. CompanyID always matches the
// owning folder's company; DepartmentID is inherited from the containing
// folder when the file is uploaded or moved (nil means company-wide).
type File struct {
	ID              int64
	CompanyID       int64
	DepartmentID    *int64
	FolderID        int64
	Name            string
	Extension       string
	SizeBytes       int64
	ContentType     string
	StoragePath     string
	CreatedByUserID string
	GdprRiskLevel   gdpr.RiskLevel
	MalwareStatus   MalwareStatus
	DeletionStatus  DeletionStatus
	DeletionProofID *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AccessObject returns the file's authorization view.
func (f *File) AccessObject() access.Object {
	return access.Object{
		CompanyID:       f.CompanyID,
		DepartmentID:    f.DepartmentID,
		CreatedByUserID: f.CreatedByUserID,
	}
}

// GateTarget returns the file's GDPR gate view.
func (f *File) GateTarget() gdpr.FileTarget {
	return gdpr.FileTarget{
		ID:        f.ID,
		CompanyID: f.CompanyID,
		Name:      f.Name,
		Risk:      f.GdprRiskLevel,
	}
}

// WithExtension keeps the file's extension on a rename: "report" becomes
// "report.pdf" when the stored extension is ".pdf" and the new name does
// not already end with it.
func (f *File) WithExtension(name string) string {
	if f.Extension == "" {
		return name
	}
	if strings.HasSuffix(strings.ToLower(name), strings.ToLower(f.Extension)) {
		return name
	}
	return name + f.Extension
}
