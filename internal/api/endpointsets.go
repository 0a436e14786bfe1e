package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/portcullis-iam/portcullis/internal/endpointsets"
	"github.com/portcullis-iam/portcullis/internal/pipeline"
	"github.com/portcullis-iam/portcullis/internal/platform/httpx"
)

type endpointSetPayload struct {
	ID     string   `json:"id" validate:"required"`
	Groups []string `json:"groups"`
}

// CreateEndpointSet submits a CreateEndpointSet command. An empty group list
// is valid: the set exposes nothing.
func (h *Handler) CreateEndpointSet(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var payload endpointSetPayload
	if !h.decode(w, r, &payload) {
		return
	}
	cmd := pipeline.CreateEndpointSet{Set: endpointsets.EndpointSet{
		Tenant: scope.ID,
		ID:     payload.ID,
		Groups: payload.Groups,
	}}
	h.respondResult(w, h.pipeline.Execute(r.Context(), scope, cmd), http.StatusCreated)
}

// GetEndpointSet reads one endpoint set.
func (h *Handler) GetEndpointSet(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	set, err := h.sets.Get(r.Context(), scope, chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, set)
}

// ListEndpointSets reads all of the tenant's endpoint sets.
func (h *Handler) ListEndpointSets(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	list, err := h.sets.ListAll(r.Context(), scope)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []endpointsets.EndpointSet{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

// ChangeApplicationEndpointSet submits a ChangeApplicationCallEndpointSet
// command: full member replacement plus application assignment.
func (h *Handler) ChangeApplicationEndpointSet(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var payload endpointSetPayload
	if !h.decode(w, r, &payload) {
		return
	}
	cmd := pipeline.ChangeApplicationCallEndpointSet{
		ApplicationID: chi.URLParam(r, "app"),
		Set: endpointsets.EndpointSet{
			Tenant: scope.ID,
			ID:     payload.ID,
			Groups: payload.Groups,
		},
	}
	h.respondResult(w, h.pipeline.Execute(r.Context(), scope, cmd), http.StatusOK)
}

// GetApplicationEndpointSet reads the set currently assigned to the application.
func (h *Handler) GetApplicationEndpointSet(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	set, err := h.sets.AssignedSet(r.Context(), scope, chi.URLParam(r, "app"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, set)
}

type enablementPayload struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// SetApplicationPermissionUser submits a SetApplicationPermissionUserEnabled
// command. Repeating the same value re-emits the change event; consumers use
// it for audit, not deduplication.
func (h *Handler) SetApplicationPermissionUser(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var payload enablementPayload
	if !h.decode(w, r, &payload) {
		return
	}
	cmd := pipeline.SetApplicationPermissionUserEnabled{
		ApplicationID: chi.URLParam(r, "app"),
		GroupID:       chi.URLParam(r, "group"),
		UserID:        chi.URLParam(r, "user"),
		Enabled:       *payload.Enabled,
	}
	h.respondResult(w, h.pipeline.Execute(r.Context(), scope, cmd), http.StatusOK)
}
