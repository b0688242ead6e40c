package handler

import (
	"net/http"
	"strconv"

	"github.com/filegrid/filegrid/internal/access"
	"github.com/filegrid/filegrid/internal/api/models"
	"github.com/filegrid/filegrid/internal/api/response"
	"github.com/filegrid/filegrid/internal/audit"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// AuditHandler handles the compliance reporting endpoint.
type AuditHandler struct {
	audit *audit.Recorder
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(recorder *audit.Recorder) *AuditHandler {
	return &AuditHandler{audit: recorder}
}

// List handles GET /v1/audit. Reads are always bounded to the actor's
// company; roles without company-wide audit access are refused.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := Actor(r.Context())
	if !access.CanViewAudit(actor, access.AuditScopeCompany) {
		response.Forbidden(w, r, "audit log access requires a compliance or management role")
		return
	}

	q := audit.Query{CompanyID: actor.CompanyID, Limit: defaultAuditLimit}

	params := r.URL.Query()
	if v := params.Get("actorId"); v != "" {
		q.ActorUserID = &v
	}
	if v := params.Get("eventType"); v != "" {
		et := audit.EventType(v)
		q.EventType = &et
	}
	if v := params.Get("targetType"); v != "" {
		tt := audit.TargetType(v)
		q.TargetType = &tt
	}
	if v := params.Get("targetId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.BadRequest(w, r, "invalid targetId", nil)
			return
		}
		q.TargetID = &id
	}
	if v := params.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 || limit > maxAuditLimit {
			response.BadRequest(w, r, "limit must be between 1 and "+strconv.Itoa(maxAuditLimit), nil)
			return
		}
		q.Limit = limit
	}

	entries, err := h.audit.List(r.Context(), q)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]models.AuditEntry, 0, len(entries))
	for i := range entries {
		out = append(out, models.AuditEntryFromDomain(&entries[i]))
	}
	response.JSON(w, r, http.StatusOK, models.NewList(out))
}
