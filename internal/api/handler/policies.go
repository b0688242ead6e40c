package handler

import (
	"net/http"
	"strconv"

	"github.com/filegrid/filegrid/internal/api/models"
	"github.com/filegrid/filegrid/internal/api/response"
	"github.com/filegrid/filegrid/internal/retention"
)

// RetentionHandler handles retention policy, legal hold, and erasure
// pipeline endpoints.
type RetentionHandler struct {
	retention *retention.Service
}

// NewRetentionHandler creates a new RetentionHandler.
func NewRetentionHandler(svc *retention.Service) *RetentionHandler {
	return &RetentionHandler{retention: svc}
}

func policyInput(req models.RetentionPolicyRequest) retention.PolicyInput {
	return retention.PolicyInput{
		Name:             req.Name,
		Description:      req.Description,
		DurationDays:     req.DurationDays,
		AutoDelete:       req.AutoDelete,
		LegalHoldAllowed: req.LegalHoldAllowed,
	}
}

// CreatePolicy handles POST /v1/retention/policies.
func (h *RetentionHandler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var req models.RetentionPolicyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		response.BadRequest(w, r, "name is required", []models.FieldError{
			{Field: "name", Message: "must not be empty", Code: "required"},
		})
		return
	}

	p, err := h.retention.CreatePolicy(r.Context(), Actor(r.Context()), policyInput(req))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.Created(w, r, "/v1/retention/policies/"+strconv.FormatInt(p.ID, 10), models.PolicyFromDomain(p))
}

// GetPolicy handles GET /v1/retention/policies/{policyID}.
func (h *RetentionHandler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "policyID")
	if !ok {
		return
	}

	p, err := h.retention.GetPolicy(r.Context(), Actor(r.Context()), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.PolicyFromDomain(p))
}

// ListPolicies handles GET /v1/retention/policies.
func (h *RetentionHandler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.retention.ListPolicies(r.Context(), Actor(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]models.RetentionPolicy, 0, len(policies))
	for i := range policies {
		out = append(out, models.PolicyFromDomain(&policies[i]))
	}
	response.JSON(w, r, http.StatusOK, models.NewList(out))
}

// UpdatePolicy handles PUT /v1/retention/policies/{policyID}.
func (h *RetentionHandler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "policyID")
	if !ok {
		return
	}
	var req models.RetentionPolicyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.retention.UpdatePolicy(r.Context(), Actor(r.Context()), id, policyInput(req))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.PolicyFromDomain(p))
}

// DeletePolicy handles DELETE /v1/retention/policies/{policyID}. A
// policy still assigned to files cannot be deleted.
func (h *RetentionHandler) DeletePolicy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "policyID")
	if !ok {
		return
	}

	if err := h.retention.DeletePolicy(r.Context(), Actor(r.Context()), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

// AssignToFile handles POST /v1/files/{fileID}/retentions.
func (h *RetentionHandler) AssignToFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := pathID(w, r, "fileID")
	if !ok {
		return
	}
	var req models.AssignPolicyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PolicyID <= 0 {
		response.BadRequest(w, r, "policyId is required", nil)
		return
	}

	fr, err := h.retention.AssignToFile(r.Context(), Actor(r.Context()), fileID, req.PolicyID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.Created(w, r, "", models.FileRetentionFromDomain(fr))
}

// AssignToFolder handles POST /v1/folders/{folderID}/retentions - bulk
// assignment over the folder's files, recursively when requested.
func (h *RetentionHandler) AssignToFolder(w http.ResponseWriter, r *http.Request) {
	folderID, ok := pathID(w, r, "folderID")
	if !ok {
		return
	}
	var req models.AssignPolicyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PolicyID <= 0 {
		response.BadRequest(w, r, "policyId is required", nil)
		return
	}

	n, err := h.retention.AssignToFolder(r.Context(), Actor(r.Context()), folderID, req.PolicyID, req.Recursive)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.FolderAssignmentResult{FilesAssigned: n})
}

// ListForFile handles GET /v1/files/{fileID}/retentions.
func (h *RetentionHandler) ListForFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := pathID(w, r, "fileID")
	if !ok {
		return
	}

	retentions, err := h.retention.ListForFile(r.Context(), Actor(r.Context()), fileID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]models.FileRetention, 0, len(retentions))
	for i := range retentions {
		out = append(out, models.FileRetentionFromDomain(&retentions[i]))
	}
	response.JSON(w, r, http.StatusOK, models.NewList(out))
}

// SetLegalHold handles PUT /v1/files/{fileID}/retentions/{retentionID}/legal-hold.
func (h *RetentionHandler) SetLegalHold(w http.ResponseWriter, r *http.Request) {
	fileID, ok := pathID(w, r, "fileID")
	if !ok {
		return
	}
	retentionID, ok := pathID(w, r, "retentionID")
	if !ok {
		return
	}
	var req models.LegalHoldRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.retention.SetLegalHold(r.Context(), Actor(r.Context()), fileID, retentionID, req.Hold)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

// ListProofs handles GET /v1/retention/proofs - the company's erasure
// evidence trail.
func (h *RetentionHandler) ListProofs(w http.ResponseWriter, r *http.Request) {
	proofs, err := h.retention.ListProofs(r.Context(), Actor(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]models.ErasureProof, 0, len(proofs))
	for i := range proofs {
		out = append(out, models.ProofFromDomain(&proofs[i]))
	}
	response.JSON(w, r, http.StatusOK, models.NewList(out))
}

// ProcessErasure handles POST /v1/retention/erasures - runs the erasure
// pipeline over the company's PENDING_ERASURE backlog.
func (h *RetentionHandler) ProcessErasure(w http.ResponseWriter, r *http.Request) {
	result, err := h.retention.ProcessErasure(r.Context(), Actor(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}
