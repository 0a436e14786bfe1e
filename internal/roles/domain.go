// Package roles persists per-tenant roles: named lists of permissions over
// permittable groups.
package roles

import (
	"fmt"
	"time"

	"github.com/portcullis-iam/portcullis/internal/catalog"
	"github.com/portcullis-iam/portcullis/internal/shared"
)

// Permission grants a subset of actions on one permittable group. Permissions
// exist only embedded in a Role and are not independently addressable.
type Permission struct {
	GroupID string           `json:"group"`
	Allowed []catalog.Action `json:"allowed"`
}

// Allows reports whether the permission covers the given action.
func (p Permission) Allows(action catalog.Action) bool {
	for _, a := range p.Allowed {
		if a == action {
			return true
		}
	}
	return false
}

// Role is a named, ordered list of permissions, unique per tenant.
type Role struct {
	Tenant      string       `json:"-"`
	ID          string       `json:"id"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Validate enforces the role invariants against the catalog: every referenced
// group must exist and groups must be unique within the role.
func (r Role) Validate(cat *catalog.Catalog) error {
	if r.ID == "" {
		return fmt.Errorf("%w: role identifier required", shared.ErrValidation)
	}
	seen := make(map[string]struct{}, len(r.Permissions))
	for _, p := range r.Permissions {
		if !cat.Has(p.GroupID) {
			return fmt.Errorf("%w: %q", shared.ErrUnknownPermittableGroup, p.GroupID)
		}
		if _, dup := seen[p.GroupID]; dup {
			return fmt.Errorf("%w: duplicate group %q in role %q", shared.ErrValidation, p.GroupID, r.ID)
		}
		seen[p.GroupID] = struct{}{}
		if len(p.Allowed) == 0 {
			return fmt.Errorf("%w: permission for %q allows no actions", shared.ErrValidation, p.GroupID)
		}
		for _, a := range p.Allowed {
			switch a {
			case catalog.ActionRead, catalog.ActionChange, catalog.ActionDelete:
			default:
				return fmt.Errorf("%w: unknown action %q", shared.ErrValidation, a)
			}
		}
	}
	return nil
}

// Permission returns the permission covering the given group, if any.
func (r Role) Permission(groupID string) (Permission, bool) {
	for _, p := range r.Permissions {
		if p.GroupID == groupID {
			return p, true
		}
	}
	return Permission{}, false
}
