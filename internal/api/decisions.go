package api

import (
	"net/http"

	"github.com/portcullis-iam/portcullis/internal/decision"
	"github.com/portcullis-iam/portcullis/internal/platform/httpx"
)

type decidePayload struct {
	RoleID   string `json:"role_id" validate:"required"`
	Selector string `json:"selector" validate:"required"`
}

// Decide answers an authorization query for a principal's role. Denials are
// 200 responses with allowed=false, never errors.
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var payload decidePayload
	if !h.decode(w, r, &payload) {
		return
	}
	dec, err := h.decider.Decide(r.Context(), scope, decision.Request{
		RoleID:   payload.RoleID,
		Selector: payload.Selector,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dec)
}

type decideApplicationPayload struct {
	ApplicationID string `json:"application_id" validate:"required"`
	UserID        string `json:"user_id" validate:"required"`
	RoleID        string `json:"role_id" validate:"required"`
	Selector      string `json:"selector" validate:"required"`
}

// DecideApplication answers an authorization query for an
// application-originated call on behalf of a user.
func (h *Handler) DecideApplication(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var payload decideApplicationPayload
	if !h.decode(w, r, &payload) {
		return
	}
	dec, err := h.decider.DecideApplication(r.Context(), scope, decision.ApplicationRequest{
		ApplicationID: payload.ApplicationID,
		UserID:        payload.UserID,
		RoleID:        payload.RoleID,
		Selector:      payload.Selector,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dec)
}
