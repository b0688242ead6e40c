// Package folder manages the per-company folder tree, folder lifecycle,
// PII marking, and the folder-scoped permission overlay.
package folder

import (
	"strings"
	"time"

	"github.com/filegrid/filegrid/internal/access"
	"github.com/filegrid/filegrid/internal/gdpr"
)

// Folder is one node of a company's folder tree. The tree is rooted at
// ParentFolderID == nil; Path is the materialized slash-joined ancestor
// chain including the folder's own name.
//
// DepartmentID nil means the folder is company-wide, not unassigned.
type Folder struct {
	ID                   int64
	CompanyID            int64
	DepartmentID         *int64
	ParentFolderID       *int64
	Name                 string
	Path                 string
	CreatedByUserID      string
	IsDepartmentRoot     bool
	ContainsPersonalData bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// AccessObject returns the folder's authorization view.
func (f *Folder) AccessObject() access.Object {
	return access.Object{
		CompanyID:       f.CompanyID,
		DepartmentID:    f.DepartmentID,
		CreatedByUserID: f.CreatedByUserID,
	}
}

// GateTarget returns the folder's GDPR gate view.
func (f *Folder) GateTarget() gdpr.FolderTarget {
	return gdpr.FolderTarget{
		ID:                   f.ID,
		CompanyID:            f.CompanyID,
		Name:                 f.Name,
		ContainsPersonalData: f.ContainsPersonalData,
	}
}

// ChildPath derives the materialized path for a child named name.
func (f *Folder) ChildPath(name string) string {
	return strings.TrimSuffix(f.Path, "/") + "/" + name
}

// Permission is one overlay grant on a folder. At most one active grant
// exists per (folder, subjectType, subjectID); a repeated grant replaces
// the flags in place. Grants are exactly-this-folder scoped and never
// cascade to subfolders or contained files.
type Permission struct {
	ID          int64
	FolderID    int64
	SubjectType access.SubjectType
	SubjectID   string
	CanRead     bool
	CanWrite    bool
	CanShare    bool
	CanManage   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Grant returns the permission's overlay-evaluation view.
func (p *Permission) Grant() access.Grant {
	return access.Grant{
		SubjectType: p.SubjectType,
		SubjectID:   p.SubjectID,
		CanRead:     p.CanRead,
		CanWrite:    p.CanWrite,
		CanShare:    p.CanShare,
		CanManage:   p.CanManage,
	}
}

// PermissionFlags is the flag set supplied on upsert. Absent flags follow
// the conservative default: readable, nothing else.
type PermissionFlags struct {
	CanRead   *bool
	CanWrite  *bool
	CanShare  *bool
	CanManage *bool
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
