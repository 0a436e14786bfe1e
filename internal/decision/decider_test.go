package decision

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/portcullis-iam/portcullis/internal/catalog"
	"github.com/portcullis-iam/portcullis/internal/endpointsets"
	"github.com/portcullis-iam/portcullis/internal/roles"
	"github.com/portcullis-iam/portcullis/internal/shared"
	"github.com/portcullis-iam/portcullis/internal/tenant"
)

type fakeRoles struct {
	items map[string]roles.Role
}

func (f *fakeRoles) Create(ctx context.Context, scope tenant.Scope, role roles.Role) error {
	f.items[role.ID] = role
	return nil
}

func (f *fakeRoles) Update(ctx context.Context, scope tenant.Scope, role roles.Role) error {
	f.items[role.ID] = role
	return nil
}

func (f *fakeRoles) Get(ctx context.Context, scope tenant.Scope, id string) (roles.Role, error) {
	role, ok := f.items[id]
	if !ok {
		return roles.Role{}, fmt.Errorf("%w: role %q", shared.ErrNotFound, id)
	}
	return role, nil
}

func (f *fakeRoles) Delete(ctx context.Context, scope tenant.Scope, id string) error {
	delete(f.items, id)
	return nil
}

func (f *fakeRoles) ListAll(ctx context.Context, scope tenant.Scope) ([]roles.Role, error) {
	return nil, nil
}

func (f *fakeRoles) AssignedUserCount(ctx context.Context, scope tenant.Scope, id string) (int, error) {
	return 0, nil
}

type fakeSets struct {
	assigned map[string]endpointsets.EndpointSet
}

func (f *fakeSets) Create(ctx context.Context, scope tenant.Scope, set endpointsets.EndpointSet) error {
	return nil
}

func (f *fakeSets) Get(ctx context.Context, scope tenant.Scope, id string) (endpointsets.EndpointSet, error) {
	return endpointsets.EndpointSet{}, shared.ErrNotFound
}

func (f *fakeSets) ListAll(ctx context.Context, scope tenant.Scope) ([]endpointsets.EndpointSet, error) {
	return nil, nil
}

func (f *fakeSets) ReplaceAndAssign(ctx context.Context, scope tenant.Scope, applicationID string, set endpointsets.EndpointSet) error {
	f.assigned[applicationID] = set
	return nil
}

func (f *fakeSets) AssignedSet(ctx context.Context, scope tenant.Scope, applicationID string) (endpointsets.EndpointSet, error) {
	set, ok := f.assigned[applicationID]
	if !ok {
		return endpointsets.EndpointSet{}, fmt.Errorf("%w: application %q", shared.ErrNotFound, applicationID)
	}
	return set, nil
}

type fakePerms struct {
	enabled map[string]bool
}

func (f *fakePerms) SetEnabled(ctx context.Context, scope tenant.Scope, applicationID, groupID, userID string, enabled bool) error {
	f.enabled[applicationID+"/"+groupID+"/"+userID] = enabled
	return nil
}

func (f *fakePerms) IsEnabled(ctx context.Context, scope tenant.Scope, applicationID, groupID, userID string) (bool, error) {
	return f.enabled[applicationID+"/"+groupID+"/"+userID], nil
}

func newDeciderFixture(t *testing.T) (*Decider, *fakeRoles, *fakeSets, *fakePerms, tenant.Scope) {
	t.Helper()
	scope, err := tenant.NewScope("acme")
	require.NoError(t, err)

	roleRepo := &fakeRoles{items: map[string]roles.Role{
		"teller": {
			ID: "teller",
			Permissions: []roles.Permission{
				{GroupID: "identity__v1__roles", Allowed: []catalog.Action{catalog.ActionRead, catalog.ActionChange}},
			},
		},
	}}
	setRepo := &fakeSets{assigned: map[string]endpointsets.EndpointSet{}}
	permRepo := &fakePerms{enabled: map[string]bool{}}

	return NewDecider(catalog.Default(), roleRepo, setRepo, permRepo), roleRepo, setRepo, permRepo, scope
}

func TestDecideAllowsGrantedAction(t *testing.T) {
	d, _, _, _, scope := newDeciderFixture(t)

	dec, err := d.Decide(context.Background(), scope, Request{RoleID: "teller", Selector: "put-role"})
	require.NoError(t, err)
	require.True(t, dec.Allowed)
	require.Empty(t, dec.Reason)
}

func TestDecideDeniesUngrantedAction(t *testing.T) {
	d, _, _, _, scope := newDeciderFixture(t)

	dec, err := d.Decide(context.Background(), scope, Request{RoleID: "teller", Selector: "delete-role"})
	require.NoError(t, err)
	require.False(t, dec.Allowed)
	require.Contains(t, dec.Reason, "does not allow")
}

func TestDecideDeniesGroupWithoutGrant(t *testing.T) {
	d, _, _, _, scope := newDeciderFixture(t)

	dec, err := d.Decide(context.Background(), scope, Request{RoleID: "teller", Selector: "get-user"})
	require.NoError(t, err)
	require.False(t, dec.Allowed)
	require.Contains(t, dec.Reason, "grants nothing")
}

func TestDecideMissingRoleDeniesWithoutError(t *testing.T) {
	d, _, _, _, scope := newDeciderFixture(t)

	dec, err := d.Decide(context.Background(), scope, Request{RoleID: "deleted", Selector: "put-role"})
	require.NoError(t, err)
	require.False(t, dec.Allowed)
	require.Contains(t, dec.Reason, "not found")
}

func TestDecideUnknownSelectorDenies(t *testing.T) {
	d, _, _, _, scope := newDeciderFixture(t)

	dec, err := d.Decide(context.Background(), scope, Request{RoleID: "teller", Selector: "post-widget"})
	require.NoError(t, err)
	require.False(t, dec.Allowed)
	require.Contains(t, dec.Reason, "not in catalog")
}

func TestDecideApplication(t *testing.T) {
	d, _, setRepo, permRepo, scope := newDeciderFixture(t)
	ctx := context.Background()

	req := ApplicationRequest{
		ApplicationID: "portal",
		UserID:        "u1",
		RoleID:        "teller",
		Selector:      "put-role",
	}

	// No endpoint set assigned yet.
	dec, err := d.DecideApplication(ctx, scope, req)
	require.NoError(t, err)
	require.False(t, dec.Allowed)
	require.Contains(t, dec.Reason, "no endpoint set")

	// Set assigned but the group is not a member.
	setRepo.assigned["portal"] = endpointsets.EndpointSet{ID: "core", Groups: []string{"identity__v1__users"}}
	dec, err = d.DecideApplication(ctx, scope, req)
	require.NoError(t, err)
	require.False(t, dec.Allowed)
	require.Contains(t, dec.Reason, "does not expose")

	// Group exposed but the user has not opted in.
	setRepo.assigned["portal"] = endpointsets.EndpointSet{ID: "core", Groups: []string{"identity__v1__roles"}}
	dec, err = d.DecideApplication(ctx, scope, req)
	require.NoError(t, err)
	require.False(t, dec.Allowed)
	require.Contains(t, dec.Reason, "has not enabled")

	// Everything lines up.
	require.NoError(t, permRepo.SetEnabled(ctx, scope, "portal", "identity__v1__roles", "u1", true))
	dec, err = d.DecideApplication(ctx, scope, req)
	require.NoError(t, err)
	require.True(t, dec.Allowed)
}

func TestDecideApplicationRoleDenialShortCircuits(t *testing.T) {
	d, _, setRepo, permRepo, scope := newDeciderFixture(t)
	ctx := context.Background()

	setRepo.assigned["portal"] = endpointsets.EndpointSet{ID: "core", Groups: []string{"identity__v1__roles"}}
	require.NoError(t, permRepo.SetEnabled(ctx, scope, "portal", "identity__v1__roles", "u1", true))

	dec, err := d.DecideApplication(ctx, scope, ApplicationRequest{
		ApplicationID: "portal",
		UserID:        "u1",
		RoleID:        "teller",
		Selector:      "delete-role",
	})
	require.NoError(t, err)
	require.False(t, dec.Allowed)
	require.Contains(t, dec.Reason, "does not allow")
}
