package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/filegrid/filegrid/internal/api/models"
	"github.com/filegrid/filegrid/internal/api/response"
	"github.com/filegrid/filegrid/internal/share"
)

// ShareHandler handles external share endpoints. Redemption is the one
// unauthenticated surface of the API.
type ShareHandler struct {
	shares *share.Service
	blobs  BlobStore
}

// NewShareHandler creates a new ShareHandler.
func NewShareHandler(shares *share.Service, blobs BlobStore) *ShareHandler {
	return &ShareHandler{shares: shares, blobs: blobs}
}

// Create handles POST /v1/files/{fileID}/shares. The OTP is returned
// once and travels to the recipient out of band.
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	fileID, ok := pathID(w, r, "fileID")
	if !ok {
		return
	}
	var req models.CreateShareRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RecipientEmail == "" {
		response.BadRequest(w, r, "recipientEmail is required", []models.FieldError{
			{Field: "recipientEmail", Message: "must not be empty", Code: "required"},
		})
		return
	}

	s, otp, err := h.shares.Create(r.Context(), Actor(r.Context()), share.CreateInput{
		FileID:         fileID,
		RecipientEmail: req.RecipientEmail,
		Expiry:         time.Duration(req.ExpiresInHours) * time.Hour,
		MaxDownloads:   req.MaxDownloads,
		GdprOverride:   req.GdprOverride,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	response.Created(w, r, "/v1/shares/"+s.ID, models.CreateShareResponse{
		Share: models.ShareFromDomain(s),
		Otp:   otp,
	})
}

// ListForFile handles GET /v1/files/{fileID}/shares.
func (h *ShareHandler) ListForFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := pathID(w, r, "fileID")
	if !ok {
		return
	}

	shares, err := h.shares.ListForFile(r.Context(), Actor(r.Context()), fileID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]models.Share, 0, len(shares))
	for i := range shares {
		out = append(out, models.ShareFromDomain(&shares[i]))
	}
	response.JSON(w, r, http.StatusOK, models.NewList(out))
}

// Revoke handles DELETE /v1/shares/{shareID}.
func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	shareID := chi.URLParam(r, "shareID")
	if shareID == "" {
		response.BadRequest(w, r, "invalid shareID", nil)
		return
	}

	if err := h.shares.Revoke(r.Context(), Actor(r.Context()), shareID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

// Access handles POST /v1/shares/{shareID}/access - public OTP
// redemption. A successful redemption consumes one download.
func (h *ShareHandler) Access(w http.ResponseWriter, r *http.Request) {
	shareID := chi.URLParam(r, "shareID")
	if shareID == "" {
		response.BadRequest(w, r, "invalid shareID", nil)
		return
	}
	var req models.AccessShareRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Otp == "" {
		response.BadRequest(w, r, "otp is required", nil)
		return
	}

	f, err := h.shares.VerifyAccess(r.Context(), shareID, req.Otp)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.AccessShareResponse{
		FileName:    f.Name,
		SizeBytes:   f.SizeBytes,
		ContentType: f.ContentType,
		DownloadURL: "/v1/shares/" + shareID + "/download?otp=" + req.Otp,
	})
}

// Download handles GET /v1/shares/{shareID}/download - public download
// by OTP. Consumes one download like Access does.
func (h *ShareHandler) Download(w http.ResponseWriter, r *http.Request) {
	shareID := chi.URLParam(r, "shareID")
	otp := r.URL.Query().Get("otp")
	if shareID == "" || otp == "" {
		response.BadRequest(w, r, "shareID and otp are required", nil)
		return
	}

	f, err := h.shares.VerifyAccess(r.Context(), shareID, otp)
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
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
