package roles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portcullis-iam/portcullis/internal/shared"
	"github.com/portcullis-iam/portcullis/internal/tenant"
)

// Repository defines persistence operations for the role store. Every method
// operates inside exactly one tenant's partition.
type Repository interface {
	Create(ctx context.Context, scope tenant.Scope, role Role) error
	Update(ctx context.Context, scope tenant.Scope, role Role) error
	Get(ctx context.Context, scope tenant.Scope, id string) (Role, error)
	Delete(ctx context.Context, scope tenant.Scope, id string) error
	ListAll(ctx context.Context, scope tenant.Scope) ([]Role, error)
	// AssignedUserCount reports how many users still reference the role.
	AssignedUserCount(ctx context.Context, scope tenant.Scope, id string) (int, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL role repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, scope tenant.Scope, role Role) error {
	perms, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("roles: marshal permissions: %w", err)
	}
	now := time.Now().UTC()
	_, err = r.db.Exec(ctx,
		`INSERT INTO roles (tenant_id, id, permissions, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
		scope.ID, role.ID, perms, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: role %q", shared.ErrAlreadyExists, role.ID)
		}
		return fmt.Errorf("roles: create: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, scope tenant.Scope, role Role) error {
	perms, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("roles: marshal permissions: %w", err)
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE roles SET permissions = $3, updated_at = $4 WHERE tenant_id = $1 AND id = $2`,
		scope.ID, role.ID, perms, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("roles: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: role %q", shared.ErrNotFound, role.ID)
	}
	return nil
}

func (r *repository) Get(ctx context.Context, scope tenant.Scope, id string) (Role, error) {
	var (
		role  Role
		perms []byte
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, permissions, created_at, updated_at FROM roles WHERE tenant_id = $1 AND id = $2`,
		scope.ID, id,
	).Scan(&role.ID, &perms, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, fmt.Errorf("%w: role %q", shared.ErrNotFound, id)
	}
	if err != nil {
		return Role{}, fmt.Errorf("roles: get: %w", err)
	}
	if err := json.Unmarshal(perms, &role.Permissions); err != nil {
		return Role{}, fmt.Errorf("roles: unmarshal permissions: %w", err)
	}
	role.Tenant = scope.ID
	return role, nil
}

func (r *repository) Delete(ctx context.Context, scope tenant.Scope, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM roles WHERE tenant_id = $1 AND id = $2`, scope.ID, id)
	if err != nil {
		return fmt.Errorf("roles: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: role %q", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) ListAll(ctx context.Context, scope tenant.Scope) ([]Role, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, permissions, created_at, updated_at FROM roles WHERE tenant_id = $1 ORDER BY id`,
		scope.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("roles: list: %w", err)
	}
	defer rows.Close()

	var out []Role
	for rows.Next() {
		var (
			role  Role
			perms []byte
		)
		if err := rows.Scan(&role.ID, &perms, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, fmt.Errorf("roles: scan: %w", err)
		}
		if err := json.Unmarshal(perms, &role.Permissions); err != nil {
			return nil, fmt.Errorf("roles: unmarshal permissions: %w", err)
		}
		role.Tenant = scope.ID
		out = append(out, role)
	}
	return out, rows.Err()
}

func (r *repository) AssignedUserCount(ctx context.Context, scope tenant.Scope, id string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE tenant_id = $1 AND role_id = $2`,
		scope.ID, id,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("roles: assigned user count: %w", err)
	}
	return count, nil
}
