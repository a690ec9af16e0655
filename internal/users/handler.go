package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-iam/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// Handler manages user management endpoints.
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

// MountRoutes registers user routes behind their permission guards.
func (h *Handler) MountRoutes(r chi.Router) {
	h.gate.Mount(r, h.Routes())
}

// Routes lists the guarded user endpoints.
func (h *Handler) Routes() []rbac.Route {
	return []rbac.Route{
		{Method: http.MethodGet, Pattern: "/", Permission: shared.PermReadUser, Handler: h.listUsers},
		{Method: http.MethodPost, Pattern: "/", Permission: shared.PermCreateUser, Handler: h.createUser},
		{Method: http.MethodGet, Pattern: "/{id}", Permission: shared.PermReadUser, Handler: h.getUser},
		{Method: http.MethodPatch, Pattern: "/{id}", Permission: shared.PermUpdateUser, Handler: h.updateUser},
		{Method: http.MethodDelete, Pattern: "/{id}", Permission: shared.PermDeleteUser, Handler: h.deleteUser},
		{Method: http.MethodPatch, Pattern: "/{id}/assign-role", Permission: shared.PermAssignRole, Handler: h.assignRole},
		{Method: http.MethodPatch, Pattern: "/{id}/overrides", Permission: shared.PermOverrideUserPermission, Handler: h.patchOverrides},
	}
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var payload createPayload
	if err := httpx.Bind(r, h.validator, &payload); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if payload.RoleID.Invalid {
		httpx.RespondError(w, h.logger, shared.NewValidationError("roleId", "must be a role id"))
		return
	}
	user, err := h.service.CreateUser(r.Context(), CreateInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		RoleID:   payload.RoleID.ID,
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var payload updatePayload
	if err := httpx.Bind(r, h.validator, &payload); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	user, err := h.service.UpdateUser(r.Context(), id, UpdateInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		Role:     payload.RoleID,
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Deleted"})
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var payload assignRolePayload
	if err := httpx.Bind(r, h.validator, &payload); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	switch {
	case !payload.RoleID.Set:
		err = shared.NewValidationError("roleId", "is required")
	case payload.RoleID.Invalid:
		err = shared.NewValidationError("roleId", "must be a role id")
	}
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	user, err := h.service.AssignRole(r.Context(), id, payload.RoleID.ID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) patchOverrides(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var patch OverridePatch
	if err := httpx.Bind(r, h.validator, &patch); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	user, err := h.service.PatchOverrides(r.Context(), id, patch)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
