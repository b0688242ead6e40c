package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/filegrid/filegrid/internal/api/models"
	"github.com/filegrid/filegrid/internal/api/response"
	"github.com/filegrid/filegrid/internal/file"
	"github.com/filegrid/filegrid/internal/gdpr"
)

// BlobStore is the slice of the CDN client the file handler needs for
// downloads.
type BlobStore interface {
	Fetch(ctx context.Context, storagePath string) ([]byte, error)
}

// FileHandler handles file metadata and lifecycle endpoints.
type FileHandler struct {
	files *file.Service
	blobs BlobStore
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(files *file.Service, blobs BlobStore) *FileHandler {
	return &FileHandler{files: files, blobs: blobs}
}

// Get handles GET /v1/files/{fileID}.
func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "fileID")
	if !ok {
		return
	}

	f, err := h.files.Get(r.Context(), Actor(r.Context()), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.FileFromDomain(f))
}

// RegisterUpload handles POST /v1/files.
func (h *FileHandler) RegisterUpload(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterUploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var fieldErrs []models.FieldError
	if req.Name == "" {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "name", Message: "must not be empty", Code: "required"})
	}
	if req.FolderID <= 0 {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "folderId", Message: "must be a valid folder id", Code: "invalid"})
	}
	if req.StoragePath == "" {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "storagePath", Message: "must not be empty", Code: "required"})
	}
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid upload registration", fieldErrs)
		return
	}

	f, err := h.files.RegisterUpload(r.Context(), Actor(r.Context()), file.UploadInput{
		FolderID:    req.FolderID,
		Name:        req.Name,
		SizeBytes:   req.SizeBytes,
		ContentType: req.ContentType,
		StoragePath: req.StoragePath,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	response.Created(w, r, "/v1/files/"+strconv.FormatInt(f.ID, 10), models.FileFromDomain(f))
}

// Rename handles PATCH /v1/files/{fileID}/name.
func (h *FileHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "fileID")
	if !ok {
		return
	}
	var req models.RenameFileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		response.BadRequest(w, r, "name is required", nil)
		return
	}

	f, err := h.files.Rename(r.Context(), Actor(r.Context()), id, req.Name)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.FileFromDomain(f))
}

// Move handles PATCH /v1/files/{fileID}/folder.
func (h *FileHandler) Move(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "fileID")
	if !ok {
		return
	}
	var req models.MoveFileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FolderID <= 0 {
		response.BadRequest(w, r, "folderId is required", nil)
		return
	}

	f, err := h.files.Move(r.Context(), Actor(r.Context()), id, req.FolderID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.FileFromDomain(f))
}

// Delete handles DELETE /v1/files/{fileID}. PII-classified files pass
// through the GDPR gate; ?gdprOverride=true requests an override.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "fileID")
	if !ok {
		return
	}

	err := h.files.Delete(r.Context(), Actor(r.Context()), id, queryBool(r, "gdprOverride"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

// Classify handles PUT /v1/files/{fileID}/risk-level - manual PII
// classification.
func (h *FileHandler) Classify(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "fileID")
	if !ok {
		return
	}
	var req models.ClassifyFileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	level := gdpr.RiskLevel(req.RiskLevel)
	if !level.Valid() {
		response.BadRequest(w, r, "invalid risk level", []models.FieldError{
			{Field: "riskLevel", Message: "must be a known risk level", Code: "invalid"},
		})
		return
	}

	if err := h.files.SetRiskLevel(r.Context(), Actor(r.Context()), id, level); err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

// Download handles GET /v1/files/{fileID}/download. The download is
// audited before the bytes are fetched from the CDN.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "fileID")
	if !ok {
		return
	}

	f, err := h.files.RecordDownload(r.Context(), Actor(r.Context()), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	data, err := h.blobs.Fetch(r.Context(), f.StoragePath)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+f.Name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
