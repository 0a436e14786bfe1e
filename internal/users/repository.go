package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portcullis-iam/portcullis/internal/shared"
	"github.com/portcullis-iam/portcullis/internal/tenant"
)

// Repository defines persistence operations for user accounts.
type Repository interface {
	Create(ctx context.Context, scope tenant.Scope, user User) error
	Get(ctx context.Context, scope tenant.Scope, id string) (User, error)
	SetPassword(ctx context.Context, scope tenant.Scope, id, passwordHash string) error
	SetRole(ctx context.Context, scope tenant.Scope, id, roleID string) error
	Deactivate(ctx context.Context, scope tenant.Scope, id string) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL user repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) Create(ctx context.Context, scope tenant.Scope, user User) error {
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (tenant_id, id, email, password_hash, role_id, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		scope.ID, user.ID, user.Email, user.PasswordHash, user.RoleID, user.Active, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: user %q", shared.ErrAlreadyExists, user.ID)
		}
		return fmt.Errorf("users: create: %w", err)
	}
	return nil
}

func (r *repository) Get(ctx context.Context, scope tenant.Scope, id string) (User, error) {
	var u User
	err := r.db.QueryRow(ctx,
		`SELECT id, email, password_hash, role_id, active, created_at, updated_at
		 FROM users WHERE tenant_id = $1 AND id = $2`,
		scope.ID, id,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.RoleID, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("%w: user %q", shared.ErrNotFound, id)
	}
	if err != nil {
		return User{}, fmt.Errorf("users: get: %w", err)
	}
	u.Tenant = scope.ID
	return u, nil
}

func (r *repository) SetPassword(ctx context.Context, scope tenant.Scope, id, passwordHash string) error {
	return r.set(ctx, scope, id, `UPDATE users SET password_hash = $3, updated_at = $4 WHERE tenant_id = $1 AND id = $2`, passwordHash)
}

func (r *repository) SetRole(ctx context.Context, scope tenant.Scope, id, roleID string) error {
	return r.set(ctx, scope, id, `UPDATE users SET role_id = $3, updated_at = $4 WHERE tenant_id = $1 AND id = $2`, roleID)
}

func (r *repository) Deactivate(ctx context.Context, scope tenant.Scope, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET active = FALSE, updated_at = $3 WHERE tenant_id = $1 AND id = $2`,
		scope.ID, id, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("users: deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %q", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) set(ctx context.Context, scope tenant.Scope, id, query, value string) error {
	tag, err := r.db.Exec(ctx, query, scope.ID, id, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("users: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %q", shared.ErrNotFound, id)
	}
	return nil
}
