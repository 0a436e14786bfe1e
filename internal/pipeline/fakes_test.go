package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/portcullis-iam/portcullis/internal/endpointsets"
	"github.com/portcullis-iam/portcullis/internal/events"
	"github.com/portcullis-iam/portcullis/internal/roles"
	"github.com/portcullis-iam/portcullis/internal/shared"
	"github.com/portcullis-iam/portcullis/internal/tenant"
	"github.com/portcullis-iam/portcullis/internal/users"
)

func key(scope tenant.Scope, id string) string {
	return scope.ID + "/" + id
}

type memRoleRepo struct {
	mu       sync.Mutex
	items    map[string]roles.Role
	assigned map[string]int
}

func newMemRoleRepo() *memRoleRepo {
	return &memRoleRepo{items: make(map[string]roles.Role), assigned: make(map[string]int)}
}

func (r *memRoleRepo) Create(ctx context.Context, scope tenant.Scope, role roles.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(scope, role.ID)
	if _, ok := r.items[k]; ok {
		return fmt.Errorf("%w: role %q", shared.ErrAlreadyExists, role.ID)
	}
	r.items[k] = role
	return nil
}

func (r *memRoleRepo) Update(ctx context.Context, scope tenant.Scope, role roles.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(scope, role.ID)
	if _, ok := r.items[k]; !ok {
		return fmt.Errorf("%w: role %q", shared.ErrNotFound, role.ID)
	}
	r.items[k] = role
	return nil
}

func (r *memRoleRepo) Get(ctx context.Context, scope tenant.Scope, id string) (roles.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.items[key(scope, id)]
	if !ok {
		return roles.Role{}, fmt.Errorf("%w: role %q", shared.ErrNotFound, id)
	}
	return role, nil
}

func (r *memRoleRepo) Delete(ctx context.Context, scope tenant.Scope, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(scope, id)
	if _, ok := r.items[k]; !ok {
		return fmt.Errorf("%w: role %q", shared.ErrNotFound, id)
	}
	delete(r.items, k)
	return nil
}

func (r *memRoleRepo) ListAll(ctx context.Context, scope tenant.Scope) ([]roles.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []roles.Role
	for _, role := range r.items {
		out = append(out, role)
	}
	return out, nil
}

func (r *memRoleRepo) AssignedUserCount(ctx context.Context, scope tenant.Scope, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.assigned[key(scope, id)], nil
}

type memSetRepo struct {
	mu          sync.Mutex
	items       map[string]endpointsets.EndpointSet
	assignments map[string]string
}

func newMemSetRepo() *memSetRepo {
	return &memSetRepo{items: make(map[string]endpointsets.EndpointSet), assignments: make(map[string]string)}
}

func (r *memSetRepo) Create(ctx context.Context, scope tenant.Scope, set endpointsets.EndpointSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(scope, set.ID)
	if _, ok := r.items[k]; ok {
		return fmt.Errorf("%w: endpoint set %q", shared.ErrAlreadyExists, set.ID)
	}
	r.items[k] = set
	return nil
}

func (r *memSetRepo) Get(ctx context.Context, scope tenant.Scope, id string) (endpointsets.EndpointSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.items[key(scope, id)]
	if !ok {
		return endpointsets.EndpointSet{}, fmt.Errorf("%w: endpoint set %q", shared.ErrNotFound, id)
	}
	return set, nil
}

func (r *memSetRepo) ListAll(ctx context.Context, scope tenant.Scope) ([]endpointsets.EndpointSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []endpointsets.EndpointSet
	for _, set := range r.items {
		out = append(out, set)
	}
	return out, nil
}

func (r *memSetRepo) ReplaceAndAssign(ctx context.Context, scope tenant.Scope, applicationID string, set endpointsets.EndpointSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[key(scope, set.ID)] = set
	r.assignments[key(scope, applicationID)] = set.ID
	return nil
}

func (r *memSetRepo) AssignedSet(ctx context.Context, scope tenant.Scope, applicationID string) (endpointsets.EndpointSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	setID, ok := r.assignments[key(scope, applicationID)]
	if !ok {
		return endpointsets.EndpointSet{}, fmt.Errorf("%w: no endpoint set assigned to application %q", shared.ErrNotFound, applicationID)
	}
	return r.items[key(scope, setID)], nil
}

type memPermRepo struct {
	mu    sync.Mutex
	items map[string]bool
}

func newMemPermRepo() *memPermRepo {
	return &memPermRepo{items: make(map[string]bool)}
}

func (r *memPermRepo) SetEnabled(ctx context.Context, scope tenant.Scope, applicationID, groupID, userID string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[key(scope, applicationID+"/"+groupID+"/"+userID)] = enabled
	return nil
}

func (r *memPermRepo) IsEnabled(ctx context.Context, scope tenant.Scope, applicationID, groupID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[key(scope, applicationID+"/"+groupID+"/"+userID)], nil
}

type memUserRepo struct {
	mu    sync.Mutex
	items map[string]users.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{items: make(map[string]users.User)}
}

func (r *memUserRepo) Create(ctx context.Context, scope tenant.Scope, user users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(scope, user.ID)
	if _, ok := r.items[k]; ok {
		return fmt.Errorf("%w: user %q", shared.ErrAlreadyExists, user.ID)
	}
	r.items[k] = user
	return nil
}

func (r *memUserRepo) Get(ctx context.Context, scope tenant.Scope, id string) (users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.items[key(scope, id)]
	if !ok {
		return users.User{}, fmt.Errorf("%w: user %q", shared.ErrNotFound, id)
	}
	return user, nil
}

func (r *memUserRepo) SetPassword(ctx context.Context, scope tenant.Scope, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.items[key(scope, id)]
	if !ok {
		return fmt.Errorf("%w: user %q", shared.ErrNotFound, id)
	}
	user.PasswordHash = passwordHash
	r.items[key(scope, id)] = user
	return nil
}

func (r *memUserRepo) SetRole(ctx context.Context, scope tenant.Scope, id, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.items[key(scope, id)]
	if !ok {
		return fmt.Errorf("%w: user %q", shared.ErrNotFound, id)
	}
	user.RoleID = roleID
	r.items[key(scope, id)] = user
	return nil
}

func (r *memUserRepo) Deactivate(ctx context.Context, scope tenant.Scope, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.items[key(scope, id)]
	if !ok {
		return fmt.Errorf("%w: user %q", shared.ErrNotFound, id)
	}
	user.Active = false
	r.items[key(scope, id)] = user
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	fail   bool
}

func (p *recordingPublisher) Publish(ctx context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return fmt.Errorf("broker unreachable")
	}
	p.events = append(p.events, ev)
	return nil
}

type recordingRepublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingRepublisher) Enqueue(ctx context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

// memLocker gives the pipeline real per-key mutual exclusion in tests.
type memLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMemLocker() *memLocker {
	return &memLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *memLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock, nil
}
