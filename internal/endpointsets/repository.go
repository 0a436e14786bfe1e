package endpointsets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portcullis-iam/portcullis/internal/platform/db"
	"github.com/portcullis-iam/portcullis/internal/shared"
	"github.com/portcullis-iam/portcullis/internal/tenant"
)

// Repository defines persistence operations for endpoint sets and their
// application assignments.
type Repository interface {
	Create(ctx context.Context, scope tenant.Scope, set EndpointSet) error
	Get(ctx context.Context, scope tenant.Scope, id string) (EndpointSet, error)
	ListAll(ctx context.Context, scope tenant.Scope) ([]EndpointSet, error)
	// ReplaceAndAssign atomically replaces the set's full member list and
	// points the application at the set. Old membership is discarded, never
	// merged. The set is created if it does not exist yet.
	ReplaceAndAssign(ctx context.Context, scope tenant.Scope, applicationID string, set EndpointSet) error
	// AssignedSet returns the endpoint set currently assigned to the
	// application, or ErrNotFound when no assignment exists.
	AssignedSet(ctx context.Context, scope tenant.Scope, applicationID string) (EndpointSet, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL endpoint set repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) Create(ctx context.Context, scope tenant.Scope, set EndpointSet) error {
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO endpoint_sets (tenant_id, id, member_groups, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
		scope.ID, set.ID, set.Groups, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: endpoint set %q", shared.ErrAlreadyExists, set.ID)
		}
		return fmt.Errorf("endpointsets: create: %w", err)
	}
	return nil
}

func (r *repository) Get(ctx context.Context, scope tenant.Scope, id string) (EndpointSet, error) {
	var set EndpointSet
	err := r.db.QueryRow(ctx,
		`SELECT id, member_groups, created_at, updated_at FROM endpoint_sets WHERE tenant_id = $1 AND id = $2`,
		scope.ID, id,
	).Scan(&set.ID, &set.Groups, &set.CreatedAt, &set.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return EndpointSet{}, fmt.Errorf("%w: endpoint set %q", shared.ErrNotFound, id)
	}
	if err != nil {
		return EndpointSet{}, fmt.Errorf("endpointsets: get: %w", err)
	}
	set.Tenant = scope.ID
	return set, nil
}

func (r *repository) ListAll(ctx context.Context, scope tenant.Scope) ([]EndpointSet, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, member_groups, created_at, updated_at FROM endpoint_sets WHERE tenant_id = $1 ORDER BY id`,
		scope.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("endpointsets: list: %w", err)
	}
	defer rows.Close()

	var out []EndpointSet
	for rows.Next() {
		var set EndpointSet
		if err := rows.Scan(&set.ID, &set.Groups, &set.CreatedAt, &set.UpdatedAt); err != nil {
			return nil, fmt.Errorf("endpointsets: scan: %w", err)
		}
		set.Tenant = scope.ID
		out = append(out, set)
	}
	return out, rows.Err()
}

func (r *repository) ReplaceAndAssign(ctx context.Context, scope tenant.Scope, applicationID string, set EndpointSet) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		_, err := tx.Exec(ctx,
			`INSERT INTO endpoint_sets (tenant_id, id, member_groups, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $4)
			 ON CONFLICT (tenant_id, id) DO UPDATE SET member_groups = EXCLUDED.member_groups, updated_at = EXCLUDED.updated_at`,
			scope.ID, set.ID, set.Groups, now,
		)
		if err != nil {
			return fmt.Errorf("endpointsets: replace members: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO application_endpoint_sets (tenant_id, application_id, endpoint_set_id, updated_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (tenant_id, application_id) DO UPDATE SET endpoint_set_id = EXCLUDED.endpoint_set_id, updated_at = EXCLUDED.updated_at`,
			scope.ID, applicationID, set.ID, now,
		)
		if err != nil {
			return fmt.Errorf("endpointsets: assign application: %w", err)
		}
		return nil
	})
}

func (r *repository) AssignedSet(ctx context.Context, scope tenant.Scope, applicationID string) (EndpointSet, error) {
	var set EndpointSet
	err := r.db.QueryRow(ctx,
		`SELECT s.id, s.member_groups, s.created_at, s.updated_at
		 FROM application_endpoint_sets a
		 JOIN endpoint_sets s ON s.tenant_id = a.tenant_id AND s.id = a.endpoint_set_id
		 WHERE a.tenant_id = $1 AND a.application_id = $2`,
		scope.ID, applicationID,
	).Scan(&set.ID, &set.Groups, &set.CreatedAt, &set.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return EndpointSet{}, fmt.Errorf("%w: no endpoint set assigned to application %q", shared.ErrNotFound, applicationID)
	}
	if err != nil {
		return EndpointSet{}, fmt.Errorf("endpointsets: assigned set: %w", err)
	}
	set.Tenant = scope.ID
	return set, nil
}
