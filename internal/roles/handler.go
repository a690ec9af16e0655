package roles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-iam/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// Handler manages role management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gate      rbac.Gate
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gate rbac.Gate) *Handler {
	return &Handler{logger: logger, service: service, gate: gate, validator: httpx.NewValidator()}
}

// MountRoutes registers role routes behind their permission guards.
func (h *Handler) MountRoutes(r chi.Router) {
	h.gate.Mount(r, h.Routes())
}

// Routes lists the guarded role endpoints.
func (h *Handler) Routes() []rbac.Route {
	return []rbac.Route{
		{Method: http.MethodGet, Pattern: "/", Permission: shared.PermReadRole, Handler: h.listRoles},
		{Method: http.MethodPost, Pattern: "/", Permission: shared.PermCreateRole, Handler: h.createRole},
		{Method: http.MethodGet, Pattern: "/{id}", Permission: shared.PermReadRole, Handler: h.getRole},
		{Method: http.MethodPatch, Pattern: "/{id}", Permission: shared.PermUpdateRole, Handler: h.updateRole},
		{Method: http.MethodDelete, Pattern: "/{id}", Permission: shared.PermDeleteRole, Handler: h.deleteRole},
		{Method: http.MethodPatch, Pattern: "/{id}/permissions", Permission: shared.PermUpdateRolePermissions, Handler: h.patchPermissions},
	}
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, roles)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var payload rolePayload
	if err := httpx.Bind(r, h.validator, &payload); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	role, err := h.service.CreateRole(r.Context(), payload.Name)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var payload rolePayload
	if err := httpx.Bind(r, h.validator, &payload); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	role, err := h.service.RenameRole(r.Context(), id, payload.Name)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Deleted"})
}

func (h *Handler) patchPermissions(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var patch PermissionPatch
	if err := httpx.Bind(r, h.validator, &patch); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	role, err := h.service.PatchPermissions(r.Context(), id, patch)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}
