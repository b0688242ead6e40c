package models

import (
	"time"

	"github.com/filegrid/filegrid/internal/file"
)

// File is the API view of a file record.
type File struct {
	ID             int64     `json:"id"`
	FolderID       int64     `json:"folderId"`
	DepartmentID   *int64    `json:"departmentId,omitempty"`
	Name           string    `json:"name"`
	Extension      string    `json:"extension,omitempty"`
	SizeBytes      int64     `json:"sizeBytes"`
	ContentType    string    `json:"contentType,omitempty"`
	CreatedBy      string    `json:"createdBy"`
	GdprRiskLevel  string    `json:"gdprRiskLevel"`
	MalwareStatus  string    `json:"malwareStatus"`
	DeletionStatus string    `json:"deletionStatus"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// FileFromDomain converts a domain file to its API view. The storage
// path is deliberately not exposed.
func FileFromDomain(f *file.File) File {
	return File{
		ID:             f.ID,
		FolderID:       f.FolderID,
		DepartmentID:   f.DepartmentID,
		Name:           f.Name,
		Extension:      f.Extension,
		SizeBytes:      f.SizeBytes,
		ContentType:    f.ContentType,
		CreatedBy:      f.CreatedByUserID,
		GdprRiskLevel:  string(f.GdprRiskLevel),
		MalwareStatus:  string(f.MalwareStatus),
		DeletionStatus: string(f.DeletionStatus),
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// RegisterUploadRequest records a file whose bytes have already landed
// on the CDN.
type RegisterUploadRequest struct {
	FolderID    int64  `json:"folderId"`
	Name        string `json:"name"`
	SizeBytes   int64  `json:"sizeBytes"`
	ContentType string `json:"contentType"`
	StoragePath string `json:"storagePath"`
}

// RenameFileRequest renames a file. The stored extension is preserved.
type RenameFileRequest struct {
	Name string `json:"name"`
}

// MoveFileRequest moves a file into another folder.
type MoveFileRequest struct {
	FolderID int64 `json:"folderId"`
}

// ClassifyFileRequest sets a file's PII risk level manually.
type ClassifyFileRequest struct {
	RiskLevel string `json:"riskLevel"`
}
