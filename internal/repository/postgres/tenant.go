package postgres

import (
	"context"
	"database/sql"

	"github.com/firedesk/firedesk/internal/domain/tenant"
	ierr "github.com/firedesk/firedesk/internal/errors"
	"github.com/firedesk/firedesk/internal/logger"
	"github.com/firedesk/firedesk/internal/postgres"
)

type tenantRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewTenantRepository(db *postgres.DB, logger *logger.Logger) tenant.Repository {
	return &tenantRepository{db: db, logger: logger}
}

func (r *tenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	r.logger.Debugw("creating tenant", "tenant_id", t.ID, "name", t.Name)

	query := `
		INSERT INTO tenants (
			id,
			name,
			invoice_code,
			client_type,
			billing_model,
			billing_cycle,
			price_per_door,
			price_per_building,
			price_per_inspector,
			tax_rate,
			max_doors,
			max_buildings,
			max_users,
			max_inspectors,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:name,
			:invoice_code,
			:client_type,
			:billing_model,
			:billing_cycle,
			:price_per_door,
			:price_per_building,
			:price_per_inspector,
			:tax_rate,
			:max_doors,
			:max_buildings,
			:max_users,
			:max_inspectors,
			:tenant_id,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create tenant").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *tenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	query := `SELECT * FROM tenants WHERE id = $1 AND status != 'deleted'`

	var t tenant.Tenant
	err := r.db.GetQuerier(ctx).GetContext(ctx, &t, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewErrorf("tenant %s not found", id).
				WithHint("The requested tenant does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get tenant").
			Mark(ierr.ErrDatabase)
	}
	return &t, nil
}

func (r *tenantRepository) List(ctx context.Context) ([]*tenant.Tenant, error) {
	query := `SELECT * FROM tenants WHERE status != 'deleted' ORDER BY created_at ASC`

	var tenants []*tenant.Tenant
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &tenants, query); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list tenants").
			Mark(ierr.ErrDatabase)
	}
	return tenants, nil
}

func (r *tenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	query := `
		UPDATE tenants SET
			name = :name,
			client_type = :client_type,
			billing_model = :billing_model,
			billing_cycle = :billing_cycle,
			price_per_door = :price_per_door,
			price_per_building = :price_per_building,
			price_per_inspector = :price_per_inspector,
			tax_rate = :tax_rate,
			max_doors = :max_doors,
			max_buildings = :max_buildings,
			max_users = :max_users,
			max_inspectors = :max_inspectors,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND status != 'deleted'
	`

	result, err := r.db.NamedExecContext(ctx, query, t)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update tenant").
			Mark(ierr.ErrDatabase)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return ierr.NewErrorf("tenant %s not found", t.ID).
			WithHint("The requested tenant does not exist").
			Mark(ierr.ErrNotFound)
	}
	return nil
}
