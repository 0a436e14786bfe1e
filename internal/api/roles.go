package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/portcullis-iam/portcullis/internal/catalog"
	"github.com/portcullis-iam/portcullis/internal/pipeline"
	"github.com/portcullis-iam/portcullis/internal/platform/httpx"
	"github.com/portcullis-iam/portcullis/internal/roles"
)

type rolePermissionPayload struct {
	Group   string   `json:"group" validate:"required"`
	Allowed []string `json:"allowed" validate:"required,min=1,dive,oneof=READ CHANGE DELETE"`
}

type rolePayload struct {
	ID          string                  `json:"id" validate:"required"`
	Permissions []rolePermissionPayload `json:"permissions" validate:"dive"`
}

func (p rolePayload) toRole(tenantID string) roles.Role {
	role := roles.Role{Tenant: tenantID, ID: p.ID}
	for _, perm := range p.Permissions {
		allowed := make([]catalog.Action, 0, len(perm.Allowed))
		for _, a := range perm.Allowed {
			allowed = append(allowed, catalog.Action(a))
		}
		role.Permissions = append(role.Permissions, roles.Permission{GroupID: perm.Group, Allowed: allowed})
	}
	return role
}

// ListCatalogGroups returns the static permission catalog.
func (h *Handler) ListCatalogGroups(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.catalog.Groups())
}

// CreateRole submits a CreateRole command.
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var payload rolePayload
	if !h.decode(w, r, &payload) {
		return
	}
	res := h.pipeline.Execute(r.Context(), scope, pipeline.CreateRole{Role: payload.toRole(scope.ID)})
	h.respondResult(w, res, http.StatusCreated)
}

// ChangeRole submits a ChangeRole command for the role in the path.
func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var payload rolePayload
	if !h.decode(w, r, &payload) {
		return
	}
	payload.ID = chi.URLParam(r, "id")
	res := h.pipeline.Execute(r.Context(), scope, pipeline.ChangeRole{Role: payload.toRole(scope.ID)})
	h.respondResult(w, res, http.StatusOK)
}

// DeleteRole submits a DeleteRole command.
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	res := h.pipeline.Execute(r.Context(), scope, pipeline.DeleteRole{RoleID: chi.URLParam(r, "id")})
	h.respondResult(w, res, http.StatusOK)
}

// GetRole reads one role directly from the store.
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	role, err := h.roles.Get(r.Context(), scope, chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

// ListRoles reads all of the tenant's roles.
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	list, err := h.roles.ListAll(r.Context(), scope)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []roles.Role{}
	}
	httpx.JSON(w, http.StatusOK, list)
}
