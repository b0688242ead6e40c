package handler

import (
	"net/http"
	"strconv"

	"github.com/filegrid/filegrid/internal/access"
	"github.com/filegrid/filegrid/internal/api/models"
	"github.com/filegrid/filegrid/internal/api/response"
	"github.com/filegrid/filegrid/internal/identity"
)

// APIKeyHandler handles machine credential endpoints.
type APIKeyHandler struct {
	identity *identity.Service
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(svc *identity.Service) *APIKeyHandler {
	return &APIKeyHandler{identity: svc}
}

// Create handles POST /v1/apikeys. The raw key is returned once and
// never stored.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAPIKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var fieldErrs []models.FieldError
	if req.Name == "" {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "name", Message: "must not be empty", Code: "required"})
	}
	if !access.Role(req.Role).Valid() {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "role", Message: "must be a known role", Code: "invalid"})
	}
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid api key request", fieldErrs)
		return
	}

	key, raw, err := h.identity.CreateAPIKey(r.Context(), Actor(r.Context()), identity.APIKeyInput{
		Name:         req.Name,
		Role:         access.Role(req.Role),
		DepartmentID: req.DepartmentID,
		ExpiresAt:    req.ExpiresAt,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	response.Created(w, r, "/v1/apikeys/"+strconv.FormatInt(key.ID, 10), models.CreateAPIKeyResponse{
		APIKey: models.APIKeyFromDomain(key),
		Key:    raw,
	})
}

// List handles GET /v1/apikeys.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.identity.ListAPIKeys(r.Context(), Actor(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]models.APIKey, 0, len(keys))
	for i := range keys {
		out = append(out, models.APIKeyFromDomain(&keys[i]))
	}
	response.JSON(w, r, http.StatusOK, models.NewList(out))
}

// Revoke handles DELETE /v1/apikeys/{keyID}.
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "keyID")
	if !ok {
		return
	}

	if err := h.identity.RevokeAPIKey(r.Context(), Actor(r.Context()), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.NoContent(w, r)
}
