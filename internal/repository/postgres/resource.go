package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/firedesk/firedesk/internal/domain/resource"
	ierr "github.com/firedesk/firedesk/internal/errors"
	"github.com/firedesk/firedesk/internal/logger"
	"github.com/firedesk/firedesk/internal/postgres"
	"github.com/firedesk/firedesk/internal/types"
)

type resourceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewResourceRepository(db *postgres.DB, logger *logger.Logger) resource.Repository {
	return &resourceRepository{db: db, logger: logger}
}

// CreateIfUnderLimit performs the count check and the insert as a single
// conditional statement so that two racing registrations observe each
// other. Callers run it inside a serializable transaction.
func (r *resourceRepository) CreateIfUnderLimit(ctx context.Context, res *resource.Resource, limit int) error {
	query := `
		INSERT INTO resources (
			id,
			resource_type,
			building_id,
			registered_at,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		WHERE (
			SELECT COUNT(*) FROM resources
			WHERE tenant_id = $5 AND resource_type = $2 AND status != 'deleted'
		) < $11
	`

	result, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		res.ID,
		res.Type,
		res.BuildingID,
		res.RegisteredAt,
		res.TenantID,
		res.Status,
		res.CreatedAt,
		res.UpdatedAt,
		res.CreatedBy,
		res.UpdatedBy,
		limit,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to register resource").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to register resource").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewErrorf("%s limit reached: %d in use", res.Type, limit).
			WithHintf("Your plan allows %d %ss and all of them are in use", limit, res.Type).
			WithReportableDetails(map[string]any{
				"resource_type": res.Type,
				"limit":         limit,
			}).
			Mark(ierr.ErrQuotaExceeded)
	}
	return nil
}

func (r *resourceRepository) Count(ctx context.Context, tenantID string, resourceType types.ResourceType, asOf time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM resources
		WHERE tenant_id = $1 AND resource_type = $2 AND status != 'deleted'
			AND registered_at <= $3
	`

	var count int
	err := r.db.GetQuerier(ctx).GetContext(ctx, &count, query, tenantID, resourceType, asOf)
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count resources").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *resourceRepository) CountInWindow(ctx context.Context, tenantID string, resourceType types.ResourceType, start, end time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM resources
		WHERE tenant_id = $1 AND resource_type = $2 AND status != 'deleted'
			AND registered_at >= $3 AND registered_at < $4
	`

	var count int
	err := r.db.GetQuerier(ctx).GetContext(ctx, &count, query, tenantID, resourceType, start, end)
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count resources").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *resourceRepository) Get(ctx context.Context, id string) (*resource.Resource, error) {
	query := `SELECT * FROM resources WHERE id = $1 AND status != 'deleted'`

	var res resource.Resource
	err := r.db.GetQuerier(ctx).GetContext(ctx, &res, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewErrorf("resource %s not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get resource").
			Mark(ierr.ErrDatabase)
	}
	return &res, nil
}
