package service

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/firedesk/firedesk/internal/api/dto"
	"github.com/firedesk/firedesk/internal/domain/invoice"
	"github.com/firedesk/firedesk/internal/domain/tenant"
	"github.com/firedesk/firedesk/internal/domain/usage"
	ierr "github.com/firedesk/firedesk/internal/errors"
	"github.com/firedesk/firedesk/internal/types"
)

// InvoiceService aggregates unbilled usage records into invoices and drives
// the invoice status lifecycle.
type InvoiceService interface {
	// GenerateInvoice consumes every unbilled usage record in the given
	// period range into one invoice. Persisting the invoice and marking
	// the records invoiced happen in a single transaction.
	GenerateInvoice(ctx context.Context, req dto.GenerateInvoiceRequest) (*dto.InvoiceResponse, error)

	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error)

	// MarkInvoiceAsPaid records an external payment event. Paid invoices
	// are immutable.
	MarkInvoiceAsPaid(ctx context.Context, id string, paidAt time.Time) (*dto.InvoiceResponse, error)

	// CheckOverdueInvoices flips every issued invoice whose due date has
	// elapsed to overdue. Idempotent; safe to run repeatedly.
	CheckOverdueInvoices(ctx context.Context, now time.Time) (*dto.OverdueSweepResponse, error)
}

type invoiceService struct {
	ServiceParams
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{ServiceParams: params}
}

func (s *invoiceService) GenerateInvoice(ctx context.Context, req dto.GenerateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx = types.SetTenantID(ctx, req.TenantID)
	t, err := getTenantCached(ctx, s.ServiceParams, req.TenantID)
	if err != nil {
		return nil, err
	}

	periodStart := types.MonthStart(req.BillingPeriodStart)
	periodEnd := types.MonthStart(req.BillingPeriodEnd)

	dueInDays := s.Config.Billing.DefaultDueInDays
	if req.DueInDays != nil {
		dueInDays = *req.DueInDays
	}

	var resp *dto.InvoiceResponse
	err = s.DB.WithSerializableTx(ctx, func(txCtx context.Context) error {
		records, err := s.UsageRepo.ListUnbilled(txCtx, t.ID, periodStart, periodEnd)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return noUnbilledUsageError(t.ID, periodStart, periodEnd)
		}

		inv := s.buildInvoice(txCtx, t, records, periodStart, periodEnd, dueInDays)

		number, err := s.InvoiceRepo.NextInvoiceNumber(txCtx, t.ID, s.Config.Billing.InvoiceNumberPrefix, t.InvoiceCode)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number

		if err := inv.Validate(); err != nil {
			return ierr.WithError(err).
				WithHint("Generated invoice failed consistency checks").
				Mark(ierr.ErrSystem)
		}

		if err := s.InvoiceRepo.CreateWithLineItems(txCtx, inv); err != nil {
			return err
		}

		recordIDs := lo.Map(records, func(r *usage.Record, _ int) string { return r.ID })
		if err := s.UsageRepo.MarkInvoiced(txCtx, recordIDs, inv.ID); err != nil {
			return err
		}

		resp = dto.NewInvoiceResponse(inv)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("generated invoice",
		"tenant_id", t.ID,
		"invoice_id", resp.ID,
		"invoice_number", resp.InvoiceNumber,
		"line_items", len(resp.LineItems),
		"amount", resp.Amount)
	return resp, nil
}

func (s *invoiceService) buildInvoice(ctx context.Context, t *tenant.Tenant, records []*usage.Record, periodStart, periodEnd time.Time, dueInDays int) *invoice.Invoice {
	now := time.Now().UTC()
	taxRate := t.BillingConfig.EffectiveTaxRate(s.Config.Billing.GetDefaultTaxRate())

	inv := &invoice.Invoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		TaxRate:       taxRate,
		InvoiceStatus: types.InvoiceStatusIssued,
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		IssueDate:     now,
		DueDate:       now.AddDate(0, 0, dueInDays),
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}

	subtotal := decimal.Zero
	for i, record := range records {
		item := buildLineItem(ctx, t.BillingConfig, record)
		item.InvoiceID = inv.ID
		item.LineNumber = i + 1
		inv.LineItems = append(inv.LineItems, item)
		subtotal = subtotal.Add(record.CalculatedAmount)
	}

	inv.Subtotal = subtotal
	inv.TaxAmount = subtotal.Mul(taxRate).Round(2)
	inv.Amount = inv.Subtotal.Add(inv.TaxAmount)
	return inv
}

// buildLineItem derives one invoice line from one usage record, with a
// description and quantity/unit-price pair consistent with the record's
// pricing breakdown.
func buildLineItem(ctx context.Context, cfg tenant.BillingConfig, record *usage.Record) *invoice.LineItem {
	item := &invoice.LineItem{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
		UsageRecordID: record.ID,
		PeriodLabel:   types.PeriodLabel(record.Period),
		Amount:        record.CalculatedAmount,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}

	switch {
	case cfg.ClientType == types.ClientTypeHousingAssociation && cfg.BillingModel == types.BillingModelPerDoor:
		item.Description = fmt.Sprintf("Fire Door Management (%d doors)", record.DoorCount)
		item.Quantity = record.DoorCount
		item.UnitPrice = displayUnitPrice(item.Amount, record.DoorCount)

	case cfg.ClientType == types.ClientTypeHousingAssociation && cfg.BillingModel == types.BillingModelPerBuilding:
		item.Description = fmt.Sprintf("Fire Door Management (%d buildings)", record.BuildingCount)
		item.Quantity = record.BuildingCount
		item.UnitPrice = displayUnitPrice(item.Amount, record.BuildingCount)

	case cfg.ClientType == types.ClientTypeContractor:
		item.Description = fmt.Sprintf("Inspector Licenses (%d) + Door Data Storage (%d doors)",
			record.InspectorCount, record.DoorCount)
		item.Quantity = record.InspectorCount
		item.UnitPrice = cfg.PricePerInspector

	default:
		item.Description = "Unsupported billing configuration"
	}
	return item
}

// displayUnitPrice derives the per-unit rate from the line amount so that
// quantity times unit price never drifts more than a rounding remainder away
// from the charged amount.
func displayUnitPrice(amount decimal.Decimal, quantity int) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	return amount.Div(decimal.NewFromInt(int64(quantity))).Round(2)
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error) {
	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		items[i] = dto.NewInvoiceResponse(inv)
	}
	return &dto.ListInvoicesResponse{Items: items, Total: len(items)}, nil
}

func (s *invoiceService) MarkInvoiceAsPaid(ctx context.Context, id string, paidAt time.Time) (*dto.InvoiceResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if inv.InvoiceStatus == types.InvoiceStatusPaid {
		return nil, ierr.WithError(invoice.ErrInvoiceAlreadyPaid).
			WithHint("This invoice has already been paid").
			Mark(ierr.ErrInvalidOperation)
	}
	if !inv.CanTransitionTo(types.InvoiceStatusPaid) {
		return nil, ierr.WithError(invoice.ErrInvalidStatusTransition).
			WithHintf("Cannot mark a %s invoice as paid", inv.InvoiceStatus).
			Mark(ierr.ErrInvalidOperation)
	}

	paidAt = paidAt.UTC()
	if err := s.InvoiceRepo.UpdateStatus(ctx, id, types.InvoiceStatusPaid, &paidAt); err != nil {
		return nil, err
	}

	inv.InvoiceStatus = types.InvoiceStatusPaid
	inv.PaidAt = &paidAt

	s.Logger.Infow("invoice paid", "invoice_id", id, "paid_at", paidAt)
	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) CheckOverdueInvoices(ctx context.Context, now time.Time) (*dto.OverdueSweepResponse, error) {
	now = now.UTC()

	candidates, err := s.InvoiceRepo.ListOverdueCandidates(ctx, now)
	if err != nil {
		return nil, err
	}

	resp := &dto.OverdueSweepResponse{Checked: len(candidates)}
	for _, inv := range candidates {
		if err := s.InvoiceRepo.UpdateStatus(ctx, inv.ID, types.InvoiceStatusOverdue, nil); err != nil {
			if ierr.IsInvalidOperation(err) {
				// Paid between listing and update; nothing to do
				continue
			}
			s.Logger.Errorw("failed to mark invoice overdue",
				"invoice_id", inv.ID,
				"error", err)
			continue
		}
		resp.Updated++
	}

	s.Logger.Infow("overdue sweep finished", "checked", resp.Checked, "updated", resp.Updated)
	return resp, nil
}

func noUnbilledUsageError(tenantID string, periodStart, periodEnd time.Time) error {
	return ierr.WithError(invoice.ErrNoUnbilledUsage).
		WithHint("There is no unbilled usage in the requested range; nothing to invoice").
		WithReportableDetails(map[string]any{
			"tenant_id":    tenantID,
			"period_start": periodStart.Format("2006-01"),
			"period_end":   periodEnd.Format("2006-01"),
		}).
		Mark(ierr.ErrNotFound)
}
