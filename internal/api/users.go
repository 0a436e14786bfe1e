package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/portcullis-iam/portcullis/internal/pipeline"
	"github.com/portcullis-iam/portcullis/internal/users"
)

type createUserPayload struct {
	ID       string `json:"id" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	RoleID   string `json:"role_id"`
}

// CreateUser submits a CreateUser command.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var payload createUserPayload
	if !h.decode(w, r, &payload) {
		return
	}
	cmd := pipeline.CreateUser{
		User: users.User{
			Tenant: scope.ID,
			ID:     payload.ID,
			Email:  payload.Email,
			RoleID: payload.RoleID,
			Active: true,
		},
		Password: payload.Password,
	}
	h.respondResult(w, h.pipeline.Execute(r.Context(), scope, cmd), http.StatusCreated)
}

type changePasswordPayload struct {
	Password string `json:"password" validate:"required,min=8"`
}

// ChangeUserPassword submits a ChangeUserPassword command.
func (h *Handler) ChangeUserPassword(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var payload changePasswordPayload
	if !h.decode(w, r, &payload) {
		return
	}
	cmd := pipeline.ChangeUserPassword{
		UserID:   chi.URLParam(r, "id"),
		Password: payload.Password,
	}
	h.respondResult(w, h.pipeline.Execute(r.Context(), scope, cmd), http.StatusOK)
}

type changeRolePayload struct {
	RoleID string `json:"role_id" validate:"required"`
}

// ChangeUserRole submits a ChangeUserRole command.
func (h *Handler) ChangeUserRole(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var payload changeRolePayload
	if !h.decode(w, r, &payload) {
		return
	}
	cmd := pipeline.ChangeUserRole{
		UserID: chi.URLParam(r, "id"),
		RoleID: payload.RoleID,
	}
	h.respondResult(w, h.pipeline.Execute(r.Context(), scope, cmd), http.StatusOK)
}
