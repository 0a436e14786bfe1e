package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/portcullis-iam/portcullis/internal/appperms"
	"github.com/portcullis-iam/portcullis/internal/catalog"
	"github.com/portcullis-iam/portcullis/internal/endpointsets"
	"github.com/portcullis-iam/portcullis/internal/events"
	"github.com/portcullis-iam/portcullis/internal/roles"
	"github.com/portcullis-iam/portcullis/internal/shared"
	"github.com/portcullis-iam/portcullis/internal/tenant"
	"github.com/portcullis-iam/portcullis/internal/users"
)

// State names a terminal (or intermediate) stage of command execution.
type State string

const (
	StateReceived      State = "received"
	StateValidated     State = "validated"
	StateApplied       State = "applied"
	StatePublished     State = "published"
	StateRejected      State = "rejected"
	StatePublishFailed State = "publish_failed"
)

// Result reports where a command ended up. On StatePublishFailed the
// mutation is durable and Event identifies what was (eventually) announced;
// the store is never rolled back once applied.
type Result struct {
	State State
	Event events.Event
	Err   error
}

// Locker provides per-key mutual exclusion so concurrent commands against
// the same entity cannot interleave their validate/apply steps.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// Pipeline validates, applies and publishes commands.
type Pipeline struct {
	catalog     *catalog.Catalog
	roles       roles.Repository
	sets        endpointsets.Repository
	perms       appperms.Repository
	users       users.Repository
	publisher   events.Publisher
	republisher events.Republisher
	locker      Locker
	logger      *slog.Logger
}

// New wires a pipeline. The republisher may be nil, in which case failed
// publications are only logged.
func New(
	cat *catalog.Catalog,
	roleRepo roles.Repository,
	setRepo endpointsets.Repository,
	permRepo appperms.Repository,
	userRepo users.Repository,
	publisher events.Publisher,
	republisher events.Republisher,
	locker Locker,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		catalog:     cat,
		roles:       roleRepo,
		sets:        setRepo,
		perms:       permRepo,
		users:       userRepo,
		publisher:   publisher,
		republisher: republisher,
		locker:      locker,
		logger:      logger,
	}
}

// Execute runs one command through validate, apply and publish. All store
// access happens inside the command's per-key lock within the tenant scope.
func (p *Pipeline) Execute(ctx context.Context, scope tenant.Scope, cmd Command) Result {
	release, err := p.locker.Acquire(ctx, scope.LockKey(cmd.Key()))
	if err != nil {
		return Result{State: StateRejected, Err: fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, err)}
	}
	defer release()

	cmd, err = p.validate(ctx, scope, cmd)
	if err != nil {
		return Result{State: StateRejected, Err: err}
	}

	note, err := p.apply(ctx, scope, cmd)
	if err != nil {
		return Result{State: StateRejected, Err: err}
	}

	ev := events.New(scope.ID, cmd.Selector(), cmd.Affected())
	ev.Note = note
	if err := p.publisher.Publish(ctx, ev); err != nil {
		p.logger.Error("event publish failed",
			slog.String("tenant", scope.ID),
			slog.String("event_id", ev.ID),
			slog.String("selector", ev.Selector),
			slog.Any("error", err),
		)
		if p.republisher != nil {
			if qerr := p.republisher.Enqueue(ctx, ev); qerr != nil {
				p.logger.Error("event republish enqueue failed",
					slog.String("event_id", ev.ID), slog.Any("error", qerr))
			}
		}
		return Result{State: StatePublishFailed, Event: ev, Err: fmt.Errorf("%w: %v", shared.ErrPublishFailed, err)}
	}

	return Result{State: StatePublished, Event: ev}
}

// validate enforces every invariant before the first store write. It may
// return a rewritten command (normalized identifiers, hashed credentials).
func (p *Pipeline) validate(ctx context.Context, scope tenant.Scope, cmd Command) (Command, error) {
	switch c := cmd.(type) {
	case CreateRole:
		c.Role = normalizeRole(c.Role)
		return c, c.Role.Validate(p.catalog)

	case ChangeRole:
		c.Role = normalizeRole(c.Role)
		return c, c.Role.Validate(p.catalog)

	case DeleteRole:
		c.RoleID = NormalizeID(c.RoleID)
		if c.RoleID == "" {
			return nil, fmt.Errorf("%w: role identifier required", shared.ErrValidation)
		}
		return c, nil

	case CreateEndpointSet:
		c.Set = normalizeSet(c.Set)
		return c, c.Set.Validate(p.catalog)

	case ChangeApplicationCallEndpointSet:
		c.ApplicationID = NormalizeID(c.ApplicationID)
		if c.ApplicationID == "" {
			return nil, fmt.Errorf("%w: application identifier required", shared.ErrValidation)
		}
		c.Set = normalizeSet(c.Set)
		return c, c.Set.Validate(p.catalog)

	case SetApplicationPermissionUserEnabled:
		c.ApplicationID = NormalizeID(c.ApplicationID)
		c.GroupID = NormalizeID(c.GroupID)
		c.UserID = NormalizeID(c.UserID)
		if c.ApplicationID == "" || c.GroupID == "" || c.UserID == "" {
			return nil, fmt.Errorf("%w: application, group and user identifiers required", shared.ErrValidation)
		}
		if !p.catalog.Has(c.GroupID) {
			return nil, fmt.Errorf("%w: %q", shared.ErrUnknownPermittableGroup, c.GroupID)
		}
		// The group must be exposed by the application's current endpoint
		// set; an enablement under a since-replaced set does not carry over.
		assigned, err := p.sets.AssignedSet(ctx, scope, c.ApplicationID)
		if err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("%w: application %q has no endpoint set", shared.ErrPermissionNotExposed, c.ApplicationID)
			}
			return nil, err
		}
		if !assigned.Contains(c.GroupID) {
			return nil, fmt.Errorf("%w: group %q not in endpoint set %q", shared.ErrPermissionNotExposed, c.GroupID, assigned.ID)
		}
		return c, nil

	case CreateUser:
		c.User.ID = NormalizeID(c.User.ID)
		c.User.RoleID = NormalizeID(c.User.RoleID)
		if c.User.ID == "" || c.User.Email == "" {
			return nil, fmt.Errorf("%w: user identifier and email required", shared.ErrValidation)
		}
		hash, err := users.HashPassword(c.Password)
		if err != nil {
			return nil, err
		}
		c.User.PasswordHash = hash
		c.Password = ""
		if c.User.RoleID != "" {
			if _, err := p.roles.Get(ctx, scope, c.User.RoleID); err != nil {
				return nil, err
			}
		}
		return c, nil

	case ChangeUserPassword:
		c.UserID = NormalizeID(c.UserID)
		if c.UserID == "" {
			return nil, fmt.Errorf("%w: user identifier required", shared.ErrValidation)
		}
		hash, err := users.HashPassword(c.Password)
		if err != nil {
			return nil, err
		}
		c.Password = hash
		return c, nil

	case ChangeUserRole:
		c.UserID = NormalizeID(c.UserID)
		c.RoleID = NormalizeID(c.RoleID)
		if c.UserID == "" || c.RoleID == "" {
			return nil, fmt.Errorf("%w: user and role identifiers required", shared.ErrValidation)
		}
		if _, err := p.roles.Get(ctx, scope, c.RoleID); err != nil {
			return nil, err
		}
		return c, nil

	default:
		return nil, fmt.Errorf("%w: unknown command kind %q", shared.ErrValidation, cmd.Kind())
	}
}

// apply performs the single store mutation for the command. The returned
// note, when non-empty, rides along on the emitted event.
func (p *Pipeline) apply(ctx context.Context, scope tenant.Scope, cmd Command) (string, error) {
	switch c := cmd.(type) {
	case CreateRole:
		return "", p.roles.Create(ctx, scope, c.Role)

	case ChangeRole:
		return "", p.roles.Update(ctx, scope, c.Role)

	case DeleteRole:
		assigned, err := p.roles.AssignedUserCount(ctx, scope, c.RoleID)
		if err != nil {
			return "", err
		}
		if err := p.roles.Delete(ctx, scope, c.RoleID); err != nil {
			return "", err
		}
		if assigned > 0 {
			p.logger.Warn("deleted role still assigned to users",
				slog.String("tenant", scope.ID),
				slog.String("role", c.RoleID),
				slog.Int("assigned_users", assigned),
			)
			return fmt.Sprintf("role still assigned to %d users", assigned), nil
		}
		return "", nil

	case CreateEndpointSet:
		return "", p.sets.Create(ctx, scope, c.Set)

	case ChangeApplicationCallEndpointSet:
		return "", p.sets.ReplaceAndAssign(ctx, scope, c.ApplicationID, c.Set)

	case SetApplicationPermissionUserEnabled:
		return "", p.perms.SetEnabled(ctx, scope, c.ApplicationID, c.GroupID, c.UserID, c.Enabled)

	case CreateUser:
		return "", p.users.Create(ctx, scope, c.User)

	case ChangeUserPassword:
		return "", p.users.SetPassword(ctx, scope, c.UserID, c.Password)

	case ChangeUserRole:
		return "", p.users.SetRole(ctx, scope, c.UserID, c.RoleID)

	default:
		return "", fmt.Errorf("%w: unknown command kind %q", shared.ErrValidation, cmd.Kind())
	}
}

func normalizeRole(r roles.Role) roles.Role {
	r.ID = NormalizeID(r.ID)
	for i := range r.Permissions {
		r.Permissions[i].GroupID = NormalizeID(r.Permissions[i].GroupID)
	}
	return r
}

func normalizeSet(s endpointsets.EndpointSet) endpointsets.EndpointSet {
	s.ID = NormalizeID(s.ID)
	for i := range s.Groups {
		s.Groups[i] = NormalizeID(s.Groups[i])
	}
	return s
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
