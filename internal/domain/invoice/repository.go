package invoice

import (
	"context"
	"time"

	"github.com/firedesk/firedesk/internal/types"
)

// Repository defines the interface for invoice persistence operations
type Repository interface {
	// CreateWithLineItems persists the invoice and its line items. Must be
	// called inside the transaction that also marks the consumed usage
	// records as invoiced.
	CreateWithLineItems(ctx context.Context, inv *Invoice) error

	// Get retrieves an invoice with its line items. Returns
	// ErrInvoiceNotFound when absent.
	Get(ctx context.Context, id string) (*Invoice, error)

	// List retrieves invoices for the context tenant matching the filter,
	// ordered by issue date descending.
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)

	// UpdateStatus persists a status transition. paidAt is set only for the
	// transition to paid.
	UpdateStatus(ctx context.Context, id string, status types.InvoiceStatus, paidAt *time.Time) error

	// ListOverdueCandidates returns all issued invoices with due date
	// strictly before now, across all tenants. Used by the overdue sweep.
	ListOverdueCandidates(ctx context.Context, now time.Time) ([]*Invoice, error)

	// NextInvoiceNumber allocates the next number in the tenant-scoped
	// monotonically increasing sequence. Allocation is serialized per
	// tenant: concurrent invoice generation must neither collide nor skip.
	NextInvoiceNumber(ctx context.Context, tenantID, prefix, tenantCode string) (string, error)
}
