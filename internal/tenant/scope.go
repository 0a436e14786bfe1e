// Package tenant carries the explicit tenant scope threaded through every
// store and pipeline operation. Nothing in the service reads tenancy from
// ambient state.
package tenant

import (
	"fmt"
	"strings"

	"github.com/portcullis-iam/portcullis/internal/shared"
)

// Scope identifies one tenant's storage partition. Every persisted key,
// lock key and event channel is prefixed with the tenant ID.
type Scope struct {
	ID string
}

// NewScope validates and returns a tenant scope.
func NewScope(id string) (Scope, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Scope{}, fmt.Errorf("%w: tenant id required", shared.ErrValidation)
	}
	return Scope{ID: id}, nil
}

// LockKey builds the redis key serializing commands against one entity.
func (s Scope) LockKey(entityKey string) string {
	return fmt.Sprintf("lock:%s:%s", s.ID, entityKey)
}
