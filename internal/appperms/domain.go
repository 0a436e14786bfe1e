// Package appperms persists per-user opt-ins for an application's use of one
// permittable group on that user's behalf. Rows are created lazily on the
// first enable/disable command; an absent row means disabled.
package appperms

import "time"

// Enablement is keyed by (application, group, user) within a tenant.
type Enablement struct {
	Tenant        string    `json:"-"`
	ApplicationID string    `json:"application_id"`
	GroupID       string    `json:"group_id"`
	UserID        string    `json:"user_id"`
	Enabled       bool      `json:"enabled"`
	UpdatedAt     time.Time `json:"updated_at"`
}
