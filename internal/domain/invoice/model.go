package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/firedesk/firedesk/internal/types"
)

// Invoice aggregates a batch of unbilled usage records into one billable
// document. Its constituent records are disjoint from every other invoice's;
// the invoiced flag transition on the usage ledger enforces that.
type Invoice struct {
	ID            string `db:"id" json:"id"`
	InvoiceNumber string `db:"invoice_number" json:"invoice_number"`

	Subtotal  decimal.Decimal `db:"subtotal" json:"subtotal"`
	TaxRate   decimal.Decimal `db:"tax_rate" json:"tax_rate"`
	TaxAmount decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`

	InvoiceStatus types.InvoiceStatus `db:"invoice_status" json:"invoice_status"`

	PeriodStart time.Time  `db:"period_start" json:"period_start"`
	PeriodEnd   time.Time  `db:"period_end" json:"period_end"`
	IssueDate   time.Time  `db:"issue_date" json:"issue_date"`
	DueDate     time.Time  `db:"due_date" json:"due_date"`
	PaidAt      *time.Time `db:"paid_at" json:"paid_at,omitempty"`

	LineItems []*LineItem `json:"line_items,omitempty"`

	types.BaseModel
}

// LineItem is one line of an invoice, produced from exactly one usage
// record. Quantity and unit price are consistent with the record's pricing
// breakdown.
type LineItem struct {
	ID            string `db:"id" json:"id"`
	InvoiceID     string `db:"invoice_id" json:"invoice_id"`
	UsageRecordID string `db:"usage_record_id" json:"usage_record_id"`
	// LineNumber is the 1-based position of the item on the invoice and the
	// persistence-level sort key for read-back.
	LineNumber  int    `db:"line_number" json:"line_number"`
	PeriodLabel string `db:"period_label" json:"period_label"`
	Description string `db:"description" json:"description"`
	Quantity    int    `db:"quantity" json:"quantity"`
	// UnitPrice is display only: quantity times unit price may differ from
	// Amount by a rounding remainder. Amount carries the authoritative charge.
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	types.BaseModel
}

// Validate checks the internal consistency of the invoice.
func (i *Invoice) Validate() error {
	if i.Subtotal.IsNegative() {
		return NewValidationError("subtotal", "must be non negative")
	}
	if i.TaxAmount.IsNegative() {
		return NewValidationError("tax_amount", "must be non negative")
	}
	if !i.Subtotal.Add(i.TaxAmount).Equal(i.Amount) {
		return NewValidationError("amount", "must equal subtotal + tax_amount")
	}
	if i.PeriodEnd.Before(i.PeriodStart) {
		return NewValidationError("period_end", "must be after period_start")
	}
	if i.DueDate.Before(i.IssueDate) {
		return NewValidationError("due_date", "must be after issue_date")
	}
	if len(i.LineItems) == 0 {
		return NewValidationError("line_items", "invoice must carry at least one line item")
	}

	sum := decimal.Zero
	for _, item := range i.LineItems {
		if item.Amount.IsNegative() {
			return NewValidationError("line_items", "line item amounts must be non negative")
		}
		sum = sum.Add(item.Amount)
	}
	if !sum.Equal(i.Subtotal) {
		return NewValidationError("subtotal", "must equal the sum of line item amounts")
	}
	return nil
}

// CanTransitionTo reports whether the status transition is allowed.
// issued -> paid, issued -> overdue, overdue -> paid. Paid is terminal.
func (i *Invoice) CanTransitionTo(target types.InvoiceStatus) bool {
	switch i.InvoiceStatus {
	case types.InvoiceStatusIssued:
		return target == types.InvoiceStatusPaid || target == types.InvoiceStatusOverdue
	case types.InvoiceStatusOverdue:
		return target == types.InvoiceStatusPaid
	}
	return false
}

// TransitionSources returns the statuses a transition to target is allowed
// from. Status updates are compare-and-set against this set so a concurrent
// writer can never move a paid invoice.
func TransitionSources(target types.InvoiceStatus) []types.InvoiceStatus {
	switch target {
	case types.InvoiceStatusPaid:
		return []types.InvoiceStatus{types.InvoiceStatusIssued, types.InvoiceStatusOverdue}
	case types.InvoiceStatusOverdue:
		return []types.InvoiceStatus{types.InvoiceStatusIssued}
	}
	return nil
}
