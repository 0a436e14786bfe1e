// Package decision computes allow/deny for a principal's attempt to invoke a
// protected operation. Denials are normal outcomes carrying a reason; only
// infrastructure faults surface as errors.
package decision

import (
	"context"
	"errors"
	"fmt"

	"github.com/portcullis-iam/portcullis/internal/appperms"
	"github.com/portcullis-iam/portcullis/internal/catalog"
	"github.com/portcullis-iam/portcullis/internal/endpointsets"
	"github.com/portcullis-iam/portcullis/internal/roles"
	"github.com/portcullis-iam/portcullis/internal/shared"
	"github.com/portcullis-iam/portcullis/internal/tenant"
)

// Request asks whether the principal's role permits the selector's operation.
type Request struct {
	RoleID   string
	Selector string
}

// ApplicationRequest additionally checks the calling application's endpoint
// set and the acting user's per-application enablement.
type ApplicationRequest struct {
	ApplicationID string
	UserID        string
	RoleID        string
	Selector      string
}

// Decision is the outcome of one authorization check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func deny(format string, args ...any) Decision {
	return Decision{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// Decider resolves authorization requests against the stores. Reads bypass
// the command pipeline and observe the latest committed tenant state.
type Decider struct {
	catalog *catalog.Catalog
	roles   roles.Repository
	sets    endpointsets.Repository
	perms   appperms.Repository
}

// NewDecider wires a decision point.
func NewDecider(cat *catalog.Catalog, roleRepo roles.Repository, setRepo endpointsets.Repository, permRepo appperms.Repository) *Decider {
	return &Decider{catalog: cat, roles: roleRepo, sets: setRepo, perms: permRepo}
}

// Decide resolves the selector through the catalog, loads the role and
// allows iff the role's permission for the selector's group includes the
// selector's action. A vanished role denies, it does not error.
func (d *Decider) Decide(ctx context.Context, scope tenant.Scope, req Request) (Decision, error) {
	groupID, action, err := d.catalog.Resolve(req.Selector)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return deny("selector %q not in catalog", req.Selector), nil
		}
		return Decision{}, err
	}

	role, err := d.roles.Get(ctx, scope, req.RoleID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return deny("role %q not found", req.RoleID), nil
		}
		return Decision{}, err
	}

	perm, ok := role.Permission(groupID)
	if !ok {
		return deny("role %q grants nothing on group %q", req.RoleID, groupID), nil
	}
	if !perm.Allows(action) {
		return deny("role %q does not allow %s on group %q", req.RoleID, action, groupID), nil
	}
	return Decision{Allowed: true}, nil
}

// DecideApplication evaluates an application-originated call: the role check
// of Decide, plus the application's assigned endpoint set must expose the
// group and the acting user must have opted in. A missing enablement row
// reads as deny, never as an error.
func (d *Decider) DecideApplication(ctx context.Context, scope tenant.Scope, req ApplicationRequest) (Decision, error) {
	dec, err := d.Decide(ctx, scope, Request{RoleID: req.RoleID, Selector: req.Selector})
	if err != nil || !dec.Allowed {
		return dec, err
	}

	groupID, _, err := d.catalog.Resolve(req.Selector)
	if err != nil {
		return Decision{}, err
	}

	assigned, err := d.sets.AssignedSet(ctx, scope, req.ApplicationID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return deny("application %q has no endpoint set", req.ApplicationID), nil
		}
		return Decision{}, err
	}
	if !assigned.Contains(groupID) {
		return deny("endpoint set %q does not expose group %q", assigned.ID, groupID), nil
	}

	enabled, err := d.perms.IsEnabled(ctx, scope, req.ApplicationID, groupID, req.UserID)
	if err != nil {
		return Decision{}, err
	}
	if !enabled {
		return deny("user %q has not enabled %q for application %q", req.UserID, groupID, req.ApplicationID), nil
	}
	return Decision{Allowed: true}, nil
}
