package handler

import (
	"net/http"
	"strconv"

	"github.com/filegrid/filegrid/internal/access"
	"github.com/filegrid/filegrid/internal/api/models"
	"github.com/filegrid/filegrid/internal/api/response"
	"github.com/filegrid/filegrid/internal/folder"
)

// FolderHandler handles folder tree and permission overlay endpoints.
type FolderHandler struct {
	folders *folder.Service
}

// NewFolderHandler creates a new FolderHandler.
func NewFolderHandler(folders *folder.Service) *FolderHandler {
	return &FolderHandler{folders: folders}
}

// Tree handles GET /v1/folders/tree - the actor's visible folder forest.
func (h *FolderHandler) Tree(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.folders.Tree(r.Context(), Actor(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewList(models.FolderTreeFromDomain(nodes)))
}

// Get handles GET /v1/folders/{folderID}.
func (h *FolderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "folderID")
	if !ok {
		return
	}

	f, err := h.folders.Get(r.Context(), Actor(r.Context()), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.FolderFromDomain(f))
}

// Create handles POST /v1/folders.
func (h *FolderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateFolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		response.BadRequest(w, r, "name is required", []models.FieldError{
			{Field: "name", Message: "must not be empty", Code: "required"},
		})
		return
	}

	f, err := h.folders.Create(r.Context(), Actor(r.Context()), folder.CreateInput{
		Name:             req.Name,
		ParentFolderID:   req.ParentFolderID,
		DepartmentID:     req.DepartmentID,
		IsDepartmentRoot: req.IsDepartmentRoot,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	response.Created(w, r, "/v1/folders/"+strconv.FormatInt(f.ID, 10), models.FolderFromDomain(f))
}

// Delete handles DELETE /v1/folders/{folderID}. Only empty folders can
// be deleted; PII-marked folders pass through the GDPR gate.
func (h *FolderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "folderID")
	if !ok {
		return
	}

	err := h.folders.Delete(r.Context(), Actor(r.Context()), id, queryBool(r, "gdprOverride"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

// MarkPersonalData handles PUT /v1/folders/{folderID}/personal-data.
func (h *FolderHandler) MarkPersonalData(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "folderID")
	if !ok {
		return
	}
	var req models.MarkPersonalDataRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.folders.MarkPersonalData(r.Context(), Actor(r.Context()), id, req.ContainsPersonalData, req.ApplyToFiles)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

// ListPermissions handles GET /v1/folders/{folderID}/permissions.
func (h *FolderHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "folderID")
	if !ok {
		return
	}

	perms, err := h.folders.ListPermissions(r.Context(), Actor(r.Context()), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]models.Permission, 0, len(perms))
	for i := range perms {
		out = append(out, models.PermissionFromDomain(&perms[i]))
	}
	response.JSON(w, r, http.StatusOK, models.NewList(out))
}

// UpsertPermission handles PUT /v1/folders/{folderID}/permissions. A
// repeated grant for the same subject replaces the flags in place.
func (h *FolderHandler) UpsertPermission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "folderID")
	if !ok {
		return
	}
	var req models.UpsertPermissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SubjectID == "" {
		response.BadRequest(w, r, "subjectId is required", []models.FieldError{
			{Field: "subjectId", Message: "must not be empty", Code: "required"},
		})
		return
	}

	perm, err := h.folders.UpsertPermission(r.Context(), Actor(r.Context()), id,
		access.SubjectType(req.SubjectType), req.SubjectID, folder.PermissionFlags{
			CanRead:   req.CanRead,
			CanWrite:  req.CanWrite,
			CanShare:  req.CanShare,
			CanManage: req.CanManage,
		})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.PermissionFromDomain(perm))
}

// RemovePermission handles DELETE /v1/folders/permissions/{permissionID}.
func (h *FolderHandler) RemovePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "permissionID")
	if !ok {
		return
	}

	if err := h.folders.RemovePermission(r.Context(), Actor(r.Context()), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.NoContent(w, r)
}
