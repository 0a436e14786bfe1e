// Package api exposes the JSON HTTP surface: catalog reads, command
// submission and authorization decisions. Handlers stay thin; invariants are
// enforced by the command pipeline and the stores.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/portcullis-iam/portcullis/internal/catalog"
	"github.com/portcullis-iam/portcullis/internal/decision"
	"github.com/portcullis-iam/portcullis/internal/endpointsets"
	"github.com/portcullis-iam/portcullis/internal/events"
	"github.com/portcullis-iam/portcullis/internal/pipeline"
	"github.com/portcullis-iam/portcullis/internal/platform/httpx"
	"github.com/portcullis-iam/portcullis/internal/roles"
	"github.com/portcullis-iam/portcullis/internal/shared"
	"github.com/portcullis-iam/portcullis/internal/tenant"
)

// Handler carries the wired core components for all API routes.
type Handler struct {
	logger   *slog.Logger
	catalog  *catalog.Catalog
	pipeline *pipeline.Pipeline
	decider  *decision.Decider
	roles    roles.Repository
	sets     endpointsets.Repository
	validate *validator.Validate
}

// NewHandler constructs the API handler.
func NewHandler(
	logger *slog.Logger,
	cat *catalog.Catalog,
	pipe *pipeline.Pipeline,
	decider *decision.Decider,
	roleRepo roles.Repository,
	setRepo endpointsets.Repository,
) *Handler {
	return &Handler{
		logger:   logger,
		catalog:  cat,
		pipeline: pipe,
		decider:  decider,
		roles:    roleRepo,
		sets:     setRepo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes mounts all API endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/v1/catalog/groups", h.ListCatalogGroups)

	r.Route("/v1/tenants/{tenant}", func(r chi.Router) {
		r.Post("/roles", h.CreateRole)
		r.Get("/roles", h.ListRoles)
		r.Get("/roles/{id}", h.GetRole)
		r.Put("/roles/{id}", h.ChangeRole)
		r.Delete("/roles/{id}", h.DeleteRole)

		r.Post("/endpoint-sets", h.CreateEndpointSet)
		r.Get("/endpoint-sets", h.ListEndpointSets)
		r.Get("/endpoint-sets/{id}", h.GetEndpointSet)

		r.Put("/applications/{app}/endpoint-set", h.ChangeApplicationEndpointSet)
		r.Get("/applications/{app}/endpoint-set", h.GetApplicationEndpointSet)
		r.Put("/applications/{app}/permissions/{group}/users/{user}", h.SetApplicationPermissionUser)

		r.Post("/users", h.CreateUser)
		r.Put("/users/{id}/password", h.ChangeUserPassword)
		r.Put("/users/{id}/role", h.ChangeUserRole)

		r.Post("/decisions", h.Decide)
		r.Post("/decisions/application", h.DecideApplication)
	})
}

// scope extracts and validates the tenant route parameter.
func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (tenant.Scope, bool) {
	scope, err := tenant.NewScope(chi.URLParam(r, "tenant"))
	if err != nil {
		httpx.RespondError(w, err)
		return tenant.Scope{}, false
	}
	return scope, true
}

// decode parses and validates a JSON request body.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed JSON body", shared.ErrValidation))
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return false
	}
	return true
}

// commandResult reports how far a command travelled through the pipeline.
type commandResult struct {
	State   pipeline.State `json:"state"`
	EventID string         `json:"event_id,omitempty"`
	Event   *events.Event  `json:"event,omitempty"`
}

// respondResult maps a pipeline result onto the HTTP response. A publish
// failure reports 202: the mutation is durable, the announcement is retried
// in the background.
func (h *Handler) respondResult(w http.ResponseWriter, res pipeline.Result, successStatus int) {
	switch res.State {
	case pipeline.StatePublished:
		httpx.JSON(w, successStatus, commandResult{State: res.State, EventID: res.Event.ID, Event: &res.Event})
	case pipeline.StatePublishFailed:
		httpx.JSON(w, http.StatusAccepted, commandResult{State: res.State, EventID: res.Event.ID})
	default:
		httpx.RespondError(w, res.Err)
	}
}
