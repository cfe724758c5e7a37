package usage

import (
	"context"
	"time"

	"github.com/firedesk/firedesk/internal/types"
)

// Repository defines the interface for usage ledger persistence.
type Repository interface {
	// Upsert inserts the record, or replaces counts, amount and details of
	// the existing record for the same (tenant, period) while preserving
	// invoiced = false. The operation is atomic with respect to the unique
	// constraint on (tenant_id, period). Returns ErrPeriodInvoiced without
	// mutating anything when the stored record is already invoiced.
	Upsert(ctx context.Context, record *Record) (*Record, error)

	// GetByPeriod retrieves the record for a tenant and normalized period.
	// Returns ErrRecordNotFound when absent.
	GetByPeriod(ctx context.Context, tenantID string, period time.Time) (*Record, error)

	// ListUnbilled returns all records with invoiced = false whose period
	// falls in [periodStart, periodEnd], ordered by period ascending.
	ListUnbilled(ctx context.Context, tenantID string, periodStart, periodEnd time.Time) ([]*Record, error)

	// List returns records matching the filter, ordered by period ascending.
	List(ctx context.Context, tenantID string, filter *types.UsageRecordFilter) ([]*Record, error)

	// MarkInvoiced flips invoiced to true and sets the invoice id on every
	// given record. Must be called inside the same transaction that
	// persists the invoice.
	MarkInvoiced(ctx context.Context, recordIDs []string, invoiceID string) error

	// ListByInvoice returns the records consumed by one invoice.
	ListByInvoice(ctx context.Context, invoiceID string) ([]*Record, error)
}
