package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-iam/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// PermissionsHandler manages the permission catalog endpoints.
type PermissionsHandler struct {
	logger    *slog.Logger
	service   *Service
	gate      Gate
	validator *validator.Validate
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, service *Service, gate Gate) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, service: service, gate: gate, validator: httpx.NewValidator()}
}

// MountRoutes registers permission routes. The caller installs the gate middleware.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	h.gate.Mount(r, h.Routes())
}

// Routes lists the guarded permission endpoints.
func (h *PermissionsHandler) Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Pattern: "/", Permission: shared.PermReadPermission, Handler: h.listPermissions},
		{Method: http.MethodPost, Pattern: "/", Permission: shared.PermCreatePermission, Handler: h.createPermission},
		{Method: http.MethodGet, Pattern: "/{id}", Permission: shared.PermReadPermission, Handler: h.getPermission},
		{Method: http.MethodPatch, Pattern: "/{id}", Permission: shared.PermUpdatePermission, Handler: h.updatePermission},
		{Method: http.MethodDelete, Pattern: "/{id}", Permission: shared.PermDeletePermission, Handler: h.deletePermission},
	}
}

type permissionPayload struct {
	Name        string `json:"name" validate:"required,min=2"`
	Description string `json:"description"`
}

func (p *permissionPayload) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *PermissionsHandler) createPermission(w http.ResponseWriter, r *http.Request) {
	var payload permissionPayload
	if err := httpx.Bind(r, h.validator, &payload); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	perm, err := h.service.CreatePermission(r.Context(), payload.Name, payload.Description)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, perm)
}

func (h *PermissionsHandler) getPermission(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	perm, err := h.service.GetPermission(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perm)
}

func (h *PermissionsHandler) updatePermission(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var payload permissionPayload
	if err := httpx.Bind(r, h.validator, &payload); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	perm, err := h.service.UpdatePermission(r.Context(), id, payload.Name, payload.Description)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perm)
}

func (h *PermissionsHandler) deletePermission(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.DeletePermission(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Deleted"})
}
