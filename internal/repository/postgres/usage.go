package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/lib/pq"

	"github.com/firedesk/firedesk/internal/domain/usage"
	ierr "github.com/firedesk/firedesk/internal/errors"
	"github.com/firedesk/firedesk/internal/logger"
	"github.com/firedesk/firedesk/internal/postgres"
	"github.com/firedesk/firedesk/internal/types"
)

type usageRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewUsageRepository(db *postgres.DB, logger *logger.Logger) usage.Repository {
	return &usageRepository{db: db, logger: logger}
}

// Upsert relies on the unique (tenant_id, period) constraint. The conflict
// branch only fires while invoiced = false, so a billed row is never
// touched; identity and creation audit fields stay with the original row.
func (r *usageRepository) Upsert(ctx context.Context, record *usage.Record) (*usage.Record, error) {
	query := `
		INSERT INTO usage_records (
			id,
			period,
			door_count,
			building_count,
			user_count,
			inspector_count,
			inspection_count,
			calculated_amount,
			details,
			invoiced,
			invoice_id,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, false, NULL, $10, $11, $12, $13, $14, $15
		)
		ON CONFLICT (tenant_id, period) DO UPDATE SET
			door_count = EXCLUDED.door_count,
			building_count = EXCLUDED.building_count,
			user_count = EXCLUDED.user_count,
			inspector_count = EXCLUDED.inspector_count,
			inspection_count = EXCLUDED.inspection_count,
			calculated_amount = EXCLUDED.calculated_amount,
			details = EXCLUDED.details,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by
		WHERE usage_records.invoiced = false
		RETURNING *
	`

	var stored usage.Record
	err := r.db.GetQuerier(ctx).GetContext(
		ctx, &stored, query,
		record.ID,
		record.Period,
		record.DoorCount,
		record.BuildingCount,
		record.UserCount,
		record.InspectorCount,
		record.InspectionCount,
		record.CalculatedAmount,
		record.Details,
		record.TenantID,
		record.Status,
		record.CreatedAt,
		record.UpdatedAt,
		record.CreatedBy,
		record.UpdatedBy,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			// The conflict branch was suppressed, so the stored row is
			// already invoiced.
			return nil, ierr.WithError(usage.ErrPeriodInvoiced).
				WithHint("This billing period has been invoiced and is read-only").
				Mark(ierr.ErrInvalidOperation)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to upsert usage record").
			Mark(ierr.ErrDatabase)
	}
	return &stored, nil
}

func (r *usageRepository) GetByPeriod(ctx context.Context, tenantID string, period time.Time) (*usage.Record, error) {
	query := `SELECT * FROM usage_records WHERE tenant_id = $1 AND period = $2`

	var record usage.Record
	err := r.db.GetQuerier(ctx).GetContext(ctx, &record, query, tenantID, types.MonthStart(period))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.WithError(usage.ErrRecordNotFound).
				WithHintf("No usage record for %s", types.MonthStart(period).Format("2006-01")).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get usage record").
			Mark(ierr.ErrDatabase)
	}
	return &record, nil
}

func (r *usageRepository) ListUnbilled(ctx context.Context, tenantID string, periodStart, periodEnd time.Time) ([]*usage.Record, error) {
	query := `
		SELECT * FROM usage_records
		WHERE tenant_id = $1 AND invoiced = false
			AND period >= $2 AND period <= $3
		ORDER BY period ASC
	`

	var records []*usage.Record
	err := r.db.GetQuerier(ctx).SelectContext(
		ctx, &records, query,
		tenantID, types.MonthStart(periodStart), types.MonthStart(periodEnd),
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list unbilled usage records").
			Mark(ierr.ErrDatabase)
	}
	return records, nil
}

func (r *usageRepository) List(ctx context.Context, tenantID string, filter *types.UsageRecordFilter) ([]*usage.Record, error) {
	query := `SELECT * FROM usage_records WHERE tenant_id = $1`
	args := []interface{}{tenantID}

	if filter != nil {
		if filter.Unbilled {
			query += ` AND invoiced = false`
		}
		if filter.PeriodStart != nil {
			args = append(args, types.MonthStart(*filter.PeriodStart))
			query += ` AND period >= $` + strconv.Itoa(len(args))
		}
		if filter.PeriodEnd != nil {
			args = append(args, types.MonthStart(*filter.PeriodEnd))
			query += ` AND period <= $` + strconv.Itoa(len(args))
		}
	}
	query += ` ORDER BY period ASC`

	var records []*usage.Record
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &records, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list usage records").
			Mark(ierr.ErrDatabase)
	}
	return records, nil
}

func (r *usageRepository) MarkInvoiced(ctx context.Context, recordIDs []string, invoiceID string) error {
	query := `
		UPDATE usage_records
		SET invoiced = true, invoice_id = $1
		WHERE id = ANY($2) AND invoiced = false
	`

	result, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, invoiceID, pq.Array(recordIDs))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to mark usage records as invoiced").
			Mark(ierr.ErrDatabase)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to mark usage records as invoiced").
			Mark(ierr.ErrDatabase)
	}
	if int(rows) != len(recordIDs) {
		return ierr.NewErrorf("marked %d of %d usage records", rows, len(recordIDs)).
			WithHint("Some usage records were missing or already invoiced").
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}

func (r *usageRepository) ListByInvoice(ctx context.Context, invoiceID string) ([]*usage.Record, error) {
	query := `SELECT * FROM usage_records WHERE invoice_id = $1 ORDER BY period ASC`

	var records []*usage.Record
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &records, query, invoiceID); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list usage records for invoice").
			Mark(ierr.ErrDatabase)
	}
	return records, nil
}
