package appperms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portcullis-iam/portcullis/internal/tenant"
)

// Repository defines persistence operations for application permission
// enablements.
type Repository interface {
	// SetEnabled upserts the enablement flag. Writing the value already
	// stored is a no-op at the state layer.
	SetEnabled(ctx context.Context, scope tenant.Scope, applicationID, groupID, userID string, enabled bool) error
	// IsEnabled reports the stored flag; an absent row reads as false.
	IsEnabled(ctx context.Context, scope tenant.Scope, applicationID, groupID, userID string) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL enablement repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) SetEnabled(ctx context.Context, scope tenant.Scope, applicationID, groupID, userID string, enabled bool) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO application_permission_users (tenant_id, application_id, group_id, user_id, enabled, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (tenant_id, application_id, group_id, user_id)
		 DO UPDATE SET enabled = EXCLUDED.enabled, updated_at = EXCLUDED.updated_at`,
		scope.ID, applicationID, groupID, userID, enabled, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("appperms: set enabled: %w", err)
	}
	return nil
}

func (r *repository) IsEnabled(ctx context.Context, scope tenant.Scope, applicationID, groupID, userID string) (bool, error) {
	var enabled bool
	err := r.db.QueryRow(ctx,
		`SELECT enabled FROM application_permission_users
		 WHERE tenant_id = $1 AND application_id = $2 AND group_id = $3 AND user_id = $4`,
		scope.ID, applicationID, groupID, userID,
	).Scan(&enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("appperms: is enabled: %w", err)
	}
	return enabled, nil
}
