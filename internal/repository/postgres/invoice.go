package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/samber/lo"

	"github.com/firedesk/firedesk/internal/domain/invoice"
	ierr "github.com/firedesk/firedesk/internal/errors"
	"github.com/firedesk/firedesk/internal/logger"
	"github.com/firedesk/firedesk/internal/postgres"
	"github.com/firedesk/firedesk/internal/types"
)

type invoiceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, logger: logger}
}

func (r *invoiceRepository) CreateWithLineItems(ctx context.Context, inv *invoice.Invoice) error {
	r.logger.Debugw("creating invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"line_items", len(inv.LineItems),
	)

	query := `
		INSERT INTO invoices (
			id,
			invoice_number,
			subtotal,
			tax_rate,
			tax_amount,
			amount,
			invoice_status,
			period_start,
			period_end,
			issue_date,
			due_date,
			paid_at,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:invoice_number,
			:subtotal,
			:tax_rate,
			:tax_amount,
			:amount,
			:invoice_status,
			:period_start,
			:period_end,
			:issue_date,
			:due_date,
			:paid_at,
			:tenant_id,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, inv); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create invoice").
			Mark(ierr.ErrDatabase)
	}

	itemQuery := `
		INSERT INTO invoice_line_items (
			id,
			invoice_id,
			usage_record_id,
			line_number,
			period_label,
			description,
			quantity,
			unit_price,
			amount,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:invoice_id,
			:usage_record_id,
			:line_number,
			:period_label,
			:description,
			:quantity,
			:unit_price,
			:amount,
			:tenant_id,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	for _, item := range inv.LineItems {
		if _, err := r.db.NamedExecContext(ctx, itemQuery, item); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to create invoice line item").
				Mark(ierr.ErrDatabase)
		}
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	query := `SELECT * FROM invoices WHERE id = $1`

	var inv invoice.Invoice
	err := r.db.GetQuerier(ctx).GetContext(ctx, &inv, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.WithError(invoice.ErrInvoiceNotFound).
				WithHintf("Invoice %s does not exist", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice").
			Mark(ierr.ErrDatabase)
	}

	itemQuery := `SELECT * FROM invoice_line_items WHERE invoice_id = $1 ORDER BY line_number ASC`
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &inv.LineItems, itemQuery, id); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice line items").
			Mark(ierr.ErrDatabase)
	}
	return &inv, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	query := `
		SELECT * FROM invoices
		WHERE tenant_id = :tenant_id
	`
	params := map[string]interface{}{
		"tenant_id": types.GetTenantID(ctx),
		"limit":     filter.GetLimit(),
		"offset":    0,
	}

	if filter != nil {
		if filter.InvoiceStatus != "" {
			query += " AND invoice_status = :invoice_status"
			params["invoice_status"] = filter.InvoiceStatus
		}
		if filter.PeriodStart != nil {
			query += " AND period_end >= :period_start"
			params["period_start"] = *filter.PeriodStart
		}
		if filter.PeriodEnd != nil {
			query += " AND period_start <= :period_end"
			params["period_end"] = *filter.PeriodEnd
		}
		if filter.Offset > 0 {
			params["offset"] = filter.Offset
		}
	}

	query += " ORDER BY issue_date DESC LIMIT :limit OFFSET :offset"

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoices").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var invoices []*invoice.Invoice
	for rows.Next() {
		var inv invoice.Invoice
		if err := rows.StructScan(&inv); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan invoice").
				Mark(ierr.ErrDatabase)
		}
		invoices = append(invoices, &inv)
	}
	return invoices, nil
}

// UpdateStatus is a compare-and-set: the row only moves when its current
// status is a valid source for the target, so a concurrently paid invoice
// can never be flipped back by the overdue sweep.
func (r *invoiceRepository) UpdateStatus(ctx context.Context, id string, status types.InvoiceStatus, paidAt *time.Time) error {
	sources := lo.Map(invoice.TransitionSources(status), func(s types.InvoiceStatus, _ int) string {
		return string(s)
	})

	query := `
		UPDATE invoices
		SET invoice_status = $1, paid_at = COALESCE($2, paid_at), updated_at = $3
		WHERE id = $4 AND invoice_status = ANY($5)
	`

	result, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, status, paidAt, time.Now().UTC(), id, pq.Array(sources))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update invoice status").
			Mark(ierr.ErrDatabase)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		var current types.InvoiceStatus
		err := r.db.GetQuerier(ctx).GetContext(ctx, &current, `SELECT invoice_status FROM invoices WHERE id = $1`, id)
		if err == sql.ErrNoRows {
			return ierr.WithError(invoice.ErrInvoiceNotFound).
				WithHintf("Invoice %s does not exist", id).
				Mark(ierr.ErrNotFound)
		}
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to update invoice status").
				Mark(ierr.ErrDatabase)
		}
		return ierr.WithError(invoice.ErrInvalidStatusTransition).
			WithHintf("Cannot move a %s invoice to %s", current, status).
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}

func (r *invoiceRepository) ListOverdueCandidates(ctx context.Context, now time.Time) ([]*invoice.Invoice, error) {
	query := `
		SELECT * FROM invoices
		WHERE invoice_status = $1 AND due_date < $2
		ORDER BY due_date ASC
	`

	var invoices []*invoice.Invoice
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &invoices, query, types.InvoiceStatusIssued, now)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list overdue candidates").
			Mark(ierr.ErrDatabase)
	}
	return invoices, nil
}

// NextInvoiceNumber bumps the tenant's sequence row with an upsert that
// returns the new value. The row lock taken by the update serializes
// concurrent allocations for the same tenant.
func (r *invoiceRepository) NextInvoiceNumber(ctx context.Context, tenantID, prefix, tenantCode string) (string, error) {
	query := `
		INSERT INTO invoice_sequences (tenant_id, last_value)
		VALUES ($1, 1)
		ON CONFLICT (tenant_id) DO UPDATE SET last_value = invoice_sequences.last_value + 1
		RETURNING last_value
	`

	var seq int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &seq, query, tenantID); err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to allocate invoice number").
			Mark(ierr.ErrDatabase)
	}
	return fmt.Sprintf("%s-%s-%05d", prefix, tenantCode, seq), nil
}
