// Package endpointsets persists call endpoint sets: named subsets of
// permittable groups an application is allowed to invoke, plus the pointer
// relation assigning at most one set to each application.
package endpointsets

import (
	"fmt"
	"time"

	"github.com/portcullis-iam/portcullis/internal/catalog"
	"github.com/portcullis-iam/portcullis/internal/shared"
)

// EndpointSet names the permittable groups exposed to calling applications.
// An empty member list is valid: the application may call nothing.
type EndpointSet struct {
	Tenant    string    `json:"-"`
	ID        string    `json:"id"`
	Groups    []string  `json:"groups"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks every member group against the catalog.
func (s EndpointSet) Validate(cat *catalog.Catalog) error {
	if s.ID == "" {
		return fmt.Errorf("%w: endpoint set identifier required", shared.ErrValidation)
	}
	for _, g := range s.Groups {
		if !cat.Has(g) {
			return fmt.Errorf("%w: %q", shared.ErrUnknownPermittableGroup, g)
		}
	}
	return nil
}

// Contains reports whether the set exposes the given group.
func (s EndpointSet) Contains(groupID string) bool {
	for _, g := range s.Groups {
		if g == groupID {
			return true
		}
	}
	return false
}
