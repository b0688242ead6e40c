package handler

import (
	"net/http"
	"time"

	"github.com/filegrid/filegrid/internal/access"
	"github.com/filegrid/filegrid/internal/api/response"
	"github.com/filegrid/filegrid/internal/featureflags"
)

// FeatureFlagsHandler handles the operational kill-switch endpoints.
// Flags are platform-wide, so access is limited to company admins and
// above.
type FeatureFlagsHandler struct {
	service *featureflags.Service
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service *featureflags.Service) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service}
}

func canManageFlags(r *http.Request) bool {
	actor := Actor(r.Context())
	return actor.Role == access.RoleSuperAdmin || actor.Role == access.RoleCompanyAdmin
}

// ListFeatureFlags handles GET /v1/admin/flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	if !canManageFlags(r) {
		response.Forbidden(w, r, "feature flag access requires an admin role")
		return
	}

	flags := h.service.GetAllFlags(r.Context())
	out := make([]*featureflags.Flag, 0, len(flags))
	for _, f := range flags {
		out = append(out, f)
	}
	response.JSON(w, r, http.StatusOK, map[string]interface{}{"flags": out})
}

// SetFlagRequest updates one flag's value.
type SetFlagRequest struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// UpsertFeatureFlag handles PUT /v1/admin/flags.
func (h *FeatureFlagsHandler) UpsertFeatureFlag(w http.ResponseWriter, r *http.Request) {
	if !canManageFlags(r) {
		response.Forbidden(w, r, "feature flag access requires an admin role")
		return
	}

	var req SetFlagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Key == "" {
		response.BadRequest(w, r, "key is required", nil)
		return
	}

	flag := &featureflags.Flag{Key: req.Key, Value: req.Value, UpdatedAt: time.Now()}
	if err := h.service.SetFlag(r.Context(), flag); err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, flag)
}

// InvalidateCache handles POST /v1/admin/flags/invalidate.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	if !canManageFlags(r) {
		response.Forbidden(w, r, "feature flag access requires an admin role")
		return
	}
	h.service.InvalidateCache()
	response.NoContent(w, r)
}
