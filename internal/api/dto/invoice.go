package dto

import (
	"time"

	"github.com/firedesk/firedesk/internal/domain/invoice"
	ierr "github.com/firedesk/firedesk/internal/errors"
	"github.com/firedesk/firedesk/internal/validator"
)

// GenerateInvoiceRequest represents the request payload for aggregating a
// tenant's unbilled usage into one invoice
type GenerateInvoiceRequest struct {
	// tenant_id is the tenant to invoice
	TenantID string `json:"tenant_id" validate:"required"`

	// billing_period_start / billing_period_end bound the usage periods to
	// consume, inclusive on both ends
	BillingPeriodStart time.Time `json:"billing_period_start" validate:"required"`
	BillingPeriodEnd   time.Time `json:"billing_period_end" validate:"required"`

	// due_in_days is added to the issue date; defaults to the configured
	// engine-wide value (30)
	DueInDays *int `json:"due_in_days,omitempty"`
}

func (r *GenerateInvoiceRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.BillingPeriodEnd.Before(r.BillingPeriodStart) {
		return ierr.NewError("billing period end before start").
			WithHint("billing_period_end must not be before billing_period_start").
			Mark(ierr.ErrValidation)
	}
	if r.DueInDays != nil && *r.DueInDays <= 0 {
		return ierr.NewError("non-positive due window").
			WithHint("due_in_days must be positive").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// MarkInvoicePaidRequest represents the request payload for recording an
// external payment event
type MarkInvoicePaidRequest struct {
	// paid_at defaults to now
	PaidAt *time.Time `json:"paid_at,omitempty"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	*invoice.Invoice
}

func NewInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	return &InvoiceResponse{Invoice: inv}
}

// ListInvoicesResponse represents an invoice listing
type ListInvoicesResponse struct {
	Items []*InvoiceResponse `json:"items"`
	Total int                `json:"total"`
}

// OverdueSweepResponse reports the outcome of one overdue sweep run
type OverdueSweepResponse struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
}
