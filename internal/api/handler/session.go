package handler

import (
	"net/http"

	"github.com/filegrid/filegrid/internal/api/models"
	"github.com/filegrid/filegrid/internal/api/response"
	"github.com/filegrid/filegrid/internal/identity"
)

// SessionHandler handles session lifecycle endpoints. SSO authentication
// happens upstream; this API only mints and ends session tokens.
type SessionHandler struct {
	identity *identity.Service
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(svc *identity.Service) *SessionHandler {
	return &SessionHandler{identity: svc}
}

// CreateSession handles POST /v1/sessions.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" {
		response.BadRequest(w, r, "userId is required", []models.FieldError{
			{Field: "userId", Message: "must not be empty", Code: "required"},
		})
		return
	}

	token, expiresAt, err := h.identity.CreateSession(r.Context(), req.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	response.Created(w, r, "", models.SessionResponse{Token: token, ExpiresAt: expiresAt})
}

// EndSession handles DELETE /v1/sessions/current.
func (h *SessionHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	h.identity.EndSession(r.Context(), Actor(r.Context()))
	response.NoContent(w, r)
}
