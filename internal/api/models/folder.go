package models

import (
	"time"

	"github.com/filegrid/filegrid/internal/folder"
)

// Folder is the API view of a folder.
type Folder struct {
	ID                   int64     `json:"id"`
	ParentFolderID       *int64    `json:"parentFolderId,omitempty"`
	DepartmentID         *int64    `json:"departmentId,omitempty"`
	Name                 string    `json:"name"`
	Path                 string    `json:"path"`
	CreatedBy            string    `json:"createdBy"`
	IsDepartmentRoot     bool      `json:"isDepartmentRoot"`
	ContainsPersonalData bool      `json:"containsPersonalData"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// FolderFromDomain converts a domain folder to its API view.
func FolderFromDomain(f *folder.Folder) Folder {
	return Folder{
		ID:                   f.ID,
		ParentFolderID:       f.ParentFolderID,
		DepartmentID:         f.DepartmentID,
		Name:                 f.Name,
		Path:                 f.Path,
		CreatedBy:            f.CreatedByUserID,
		IsDepartmentRoot:     f.IsDepartmentRoot,
		ContainsPersonalData: f.ContainsPersonalData,
		CreatedAt:            f.CreatedAt,
		UpdatedAt:            f.UpdatedAt,
	}
}

// FolderNode is one node of the visible folder tree.
type FolderNode struct {
	Folder
	Children []FolderNode `json:"children"`
}

// FolderTreeFromDomain converts a domain forest to its API view.
func FolderTreeFromDomain(nodes []*folder.Node) []FolderNode {
	out := make([]FolderNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, FolderNode{
			Folder:   FolderFromDomain(&n.Folder),
			Children: FolderTreeFromDomain(n.Children),
		})
	}
	return out
}

// CreateFolderRequest creates a folder. Omitting parentFolderId creates
// a root folder, which is restricted to company admins.
type CreateFolderRequest struct {
	Name             string `json:"name"`
	ParentFolderID   *int64 `json:"parentFolderId,omitempty"`
	DepartmentID     *int64 `json:"departmentId,omitempty"`
	IsDepartmentRoot bool   `json:"isDepartmentRoot,omitempty"`
}

// MarkPersonalDataRequest flips a folder's PII marker.
type MarkPersonalDataRequest struct {
	ContainsPersonalData bool `json:"containsPersonalData"`

	// ApplyToFiles cascades CONFIRMED_PII to files directly in the
	// folder when marking.
	ApplyToFiles bool `json:"applyToFiles,omitempty"`
}

// Permission is the API view of one folder overlay grant.
type Permission struct {
	ID          int64     `json:"id"`
	FolderID    int64     `json:"folderId"`
	SubjectType string    `json:"subjectType"`
	SubjectID   string    `json:"subjectId"`
	CanRead     bool      `json:"canRead"`
	CanWrite    bool      `json:"canWrite"`
	CanShare    bool      `json:"canShare"`
	CanManage   bool      `json:"canManage"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PermissionFromDomain converts a domain permission to its API view.
func PermissionFromDomain(p *folder.Permission) Permission {
	return Permission{
		ID:          p.ID,
		FolderID:    p.FolderID,
		SubjectType: string(p.SubjectType),
		SubjectID:   p.SubjectID,
		CanRead:     p.CanRead,
		CanWrite:    p.CanWrite,
		CanShare:    p.CanShare,
		CanManage:   p.CanManage,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// UpsertPermissionRequest grants or replaces an overlay permission.
// Absent flags default to read-only.
type UpsertPermissionRequest struct {
	SubjectType string `json:"subjectType"`
	SubjectID   string `json:"subjectId"`
	CanRead     *bool  `json:"canRead,omitempty"`
	CanWrite    *bool  `json:"canWrite,omitempty"`
	CanShare    *bool  `json:"canShare,omitempty"`
	CanManage   *bool  `json:"canManage,omitempty"`
}
