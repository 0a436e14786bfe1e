// Package pipeline applies typed mutation commands against the tenant's
// stores and announces each applied change as a domain event. A command is
// validated before any write, applied as one atomic unit within the tenant
// partition, and followed by exactly one event.
package pipeline

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/portcullis-iam/portcullis/internal/endpointsets"
	"github.com/portcullis-iam/portcullis/internal/roles"
	"github.com/portcullis-iam/portcullis/internal/users"
)

// Kind enumerates the closed set of command variants.
type Kind string

const (
	KindCreateRole                          Kind = "create-role"
	KindChangeRole                          Kind = "change-role"
	KindDeleteRole                          Kind = "delete-role"
	KindCreateEndpointSet                   Kind = "create-endpoint-set"
	KindChangeApplicationCallEndpointSet    Kind = "change-application-call-endpoint-set"
	KindSetApplicationPermissionUserEnabled Kind = "set-application-permission-user-enabled"
	KindCreateUser                          Kind = "create-user"
	KindChangeUserPassword                  Kind = "change-user-password"
	KindChangeUserRole                      Kind = "change-user-role"
)

// Command is one tagged mutation request. Key identifies the entity the
// command serializes on within its tenant; Selector names the operation the
// emitted event carries; Affected lists the identifiers the event announces.
type Command interface {
	Kind() Kind
	Key() string
	Selector() string
	Affected() []string
}

// NormalizeID trims and NFC-normalizes a caller-supplied identifier so that
// visually identical identifiers share one storage key.
func NormalizeID(id string) string {
	return norm.NFC.String(strings.TrimSpace(id))
}

// CreateRole creates a new role.
type CreateRole struct {
	Role roles.Role
}

func (c CreateRole) Kind() Kind         { return KindCreateRole }
func (c CreateRole) Key() string        { return "role/" + c.Role.ID }
func (c CreateRole) Selector() string   { return "post-role" }
func (c CreateRole) Affected() []string { return []string{c.Role.ID} }

// ChangeRole replaces an existing role's permission list.
type ChangeRole struct {
	Role roles.Role
}

func (c ChangeRole) Kind() Kind         { return KindChangeRole }
func (c ChangeRole) Key() string        { return "role/" + c.Role.ID }
func (c ChangeRole) Selector() string   { return "put-role" }
func (c ChangeRole) Affected() []string { return []string{c.Role.ID} }

// DeleteRole removes a role. Users still assigned to it keep the dangling
// reference; their decisions deny until reassigned.
type DeleteRole struct {
	RoleID string
}

func (c DeleteRole) Kind() Kind         { return KindDeleteRole }
func (c DeleteRole) Key() string        { return "role/" + c.RoleID }
func (c DeleteRole) Selector() string   { return "delete-role" }
func (c DeleteRole) Affected() []string { return []string{c.RoleID} }

// CreateEndpointSet creates a new call endpoint set.
type CreateEndpointSet struct {
	Set endpointsets.EndpointSet
}

func (c CreateEndpointSet) Kind() Kind         { return KindCreateEndpointSet }
func (c CreateEndpointSet) Key() string        { return "endpoint-set/" + c.Set.ID }
func (c CreateEndpointSet) Selector() string   { return "post-endpoint-set" }
func (c CreateEndpointSet) Affected() []string { return []string{c.Set.ID} }

// ChangeApplicationCallEndpointSet atomically replaces the named set's full
// member list and points the application at it.
type ChangeApplicationCallEndpointSet struct {
	ApplicationID string
	Set           endpointsets.EndpointSet
}

func (c ChangeApplicationCallEndpointSet) Kind() Kind {
	return KindChangeApplicationCallEndpointSet
}
func (c ChangeApplicationCallEndpointSet) Key() string { return "endpoint-set/" + c.Set.ID }
func (c ChangeApplicationCallEndpointSet) Selector() string {
	return "put-application-call-endpoint-set"
}
func (c ChangeApplicationCallEndpointSet) Affected() []string {
	return []string{c.ApplicationID, c.Set.ID}
}

// SetApplicationPermissionUserEnabled flips the per-user opt-in for one of
// the application's exposed groups.
type SetApplicationPermissionUserEnabled struct {
	ApplicationID string
	GroupID       string
	UserID        string
	Enabled       bool
}

func (c SetApplicationPermissionUserEnabled) Kind() Kind {
	return KindSetApplicationPermissionUserEnabled
}
func (c SetApplicationPermissionUserEnabled) Key() string {
	return "app-permission/" + c.ApplicationID + "/" + c.GroupID + "/" + c.UserID
}
func (c SetApplicationPermissionUserEnabled) Selector() string {
	return "put-application-permission-user"
}
func (c SetApplicationPermissionUserEnabled) Affected() []string {
	return []string{c.ApplicationID, c.GroupID, c.UserID}
}

// CreateUser creates an account. Password arrives in plain text and is
// hashed during validation, before any store touch.
type CreateUser struct {
	User     users.User
	Password string
}

func (c CreateUser) Kind() Kind         { return KindCreateUser }
func (c CreateUser) Key() string        { return "user/" + c.User.ID }
func (c CreateUser) Selector() string   { return "post-user" }
func (c CreateUser) Affected() []string { return []string{c.User.ID} }

// ChangeUserPassword replaces the stored credential hash.
type ChangeUserPassword struct {
	UserID   string
	Password string
}

func (c ChangeUserPassword) Kind() Kind         { return KindChangeUserPassword }
func (c ChangeUserPassword) Key() string        { return "user/" + c.UserID }
func (c ChangeUserPassword) Selector() string   { return "put-user-password" }
func (c ChangeUserPassword) Affected() []string { return []string{c.UserID} }

// ChangeUserRole reassigns the user's role.
type ChangeUserRole struct {
	UserID string
	RoleID string
}

func (c ChangeUserRole) Kind() Kind         { return KindChangeUserRole }
func (c ChangeUserRole) Key() string        { return "user/" + c.UserID }
func (c ChangeUserRole) Selector() string   { return "put-user-role" }
func (c ChangeUserRole) Affected() []string { return []string{c.UserID, c.RoleID} }
