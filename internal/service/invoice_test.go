package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/firedesk/firedesk/internal/api/dto"
	"github.com/firedesk/firedesk/internal/domain/invoice"
	"github.com/firedesk/firedesk/internal/domain/tenant"
	"github.com/firedesk/firedesk/internal/domain/usage"
	ierr "github.com/firedesk/firedesk/internal/errors"
	"github.com/firedesk/firedesk/internal/testutil"
	"github.com/firedesk/firedesk/internal/types"
)

type InvoiceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service InvoiceService
	tenant  *tenant.Tenant
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	stores := s.GetStores()
	s.service = NewInvoiceService(ServiceParams{
		Logger:       s.GetLogger(),
		Config:       s.GetConfig(),
		DB:           s.GetDB(),
		Cache:        s.GetCache(),
		TenantRepo:   stores.TenantRepo,
		ResourceRepo: stores.ResourceRepo,
		UsageRepo:    stores.UsageRepo,
		InvoiceRepo:  stores.InvoiceRepo,
	})

	s.tenant = &tenant.Tenant{
		ID:          s.GetUUID(),
		Name:        "Harbour View HA",
		InvoiceCode: "HARB7QX2",
		BillingConfig: tenant.BillingConfig{
			ClientType:   types.ClientTypeHousingAssociation,
			BillingModel: types.BillingModelPerDoor,
			PricePerDoor: decimal.RequireFromString("12.00"),
			Quota:        tenant.Quota{MaxDoors: 1000},
		},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.tenant.BaseModel.TenantID = s.tenant.ID
	s.NoError(s.GetStores().TenantRepo.Create(s.GetContext(), s.tenant))
}

// seedUsageRecord stores one uninvoiced usage record for the suite tenant.
func (s *InvoiceServiceSuite) seedUsageRecord(period time.Time, amount string, doors int) *usage.Record {
	ctx := types.SetTenantID(s.GetContext(), s.tenant.ID)
	stored, err := s.GetStores().UsageRepo.Upsert(ctx, &usage.Record{
		ID:               s.GetUUID(),
		Period:           types.MonthStart(period),
		DoorCount:        doors,
		CalculatedAmount: decimal.RequireFromString(amount),
		Details:          usage.Breakdown{DoorCost: decimal.RequireFromString(amount)},
		BaseModel:        types.GetDefaultBaseModel(ctx),
	})
	s.NoError(err)
	return stored
}

func (s *InvoiceServiceSuite) months(back int) time.Time {
	return types.MonthStart(s.GetNow()).AddDate(0, -back, 0)
}

func (s *InvoiceServiceSuite) TestGenerateInvoice() {
	s.seedUsageRecord(s.months(3), "100.00", 100)
	s.seedUsageRecord(s.months(2), "100.00", 100)
	s.seedUsageRecord(s.months(1), "120.00", 120)

	resp, err := s.service.GenerateInvoice(s.GetContext(), dto.GenerateInvoiceRequest{
		TenantID:           s.tenant.ID,
		BillingPeriodStart: s.months(3),
		BillingPeriodEnd:   s.months(1),
	})
	s.NoError(err)

	s.True(decimal.RequireFromString("320.00").Equal(resp.Subtotal))
	s.True(decimal.RequireFromString("64.00").Equal(resp.TaxAmount), "default 0.20 tax on the subtotal")
	s.True(decimal.RequireFromString("384.00").Equal(resp.Amount))
	s.Equal(types.InvoiceStatusIssued, resp.InvoiceStatus)
	s.Equal("INV-HARB7QX2-00001", resp.InvoiceNumber)
	s.Len(resp.LineItems, 3)

	// Line items follow the period order of the consumed records
	s.Equal(types.PeriodLabel(s.months(3)), resp.LineItems[0].PeriodLabel)
	s.Equal("Fire Door Management (100 doors)", resp.LineItems[0].Description)
	s.Equal(100, resp.LineItems[0].Quantity)
	s.True(decimal.RequireFromString("1.00").Equal(resp.LineItems[0].UnitPrice))
	for i, item := range resp.LineItems {
		s.Equal(i+1, item.LineNumber)
	}

	// Due date defaults to 30 days after issue
	s.WithinDuration(resp.IssueDate.AddDate(0, 0, 30), resp.DueDate, time.Second)

	// Every consumed record is now invoiced and points at this invoice
	ctx := types.SetTenantID(s.GetContext(), s.tenant.ID)
	records, err := s.GetStores().UsageRepo.ListByInvoice(ctx, resp.ID)
	s.NoError(err)
	s.Len(records, 3)
	for _, r := range records {
		s.True(r.Invoiced)
	}
}

func (s *InvoiceServiceSuite) TestGenerateInvoiceTenantTaxOverride() {
	zero := decimal.Zero
	s.tenant.TaxRate = &zero
	s.NoError(s.GetStores().TenantRepo.Update(s.GetContext(), s.tenant))

	s.seedUsageRecord(s.months(1), "100.00", 100)

	resp, err := s.service.GenerateInvoice(s.GetContext(), dto.GenerateInvoiceRequest{
		TenantID:           s.tenant.ID,
		BillingPeriodStart: s.months(1),
		BillingPeriodEnd:   s.months(1),
	})
	s.NoError(err)
	s.True(resp.TaxAmount.IsZero())
	s.True(decimal.RequireFromString("100.00").Equal(resp.Amount))
}

func (s *InvoiceServiceSuite) TestGenerateInvoiceNoUnbilledUsage() {
	_, err := s.service.GenerateInvoice(s.GetContext(), dto.GenerateInvoiceRequest{
		TenantID:           s.tenant.ID,
		BillingPeriodStart: s.months(3),
		BillingPeriodEnd:   s.months(1),
	})
	s.Error(err)
	s.True(errors.Is(err, invoice.ErrNoUnbilledUsage))
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestGenerateInvoiceConsumesRecordsExactlyOnce() {
	s.seedUsageRecord(s.months(1), "100.00", 100)

	req := dto.GenerateInvoiceRequest{
		TenantID:           s.tenant.ID,
		BillingPeriodStart: s.months(1),
		BillingPeriodEnd:   s.months(1),
	}

	_, err := s.service.GenerateInvoice(s.GetContext(), req)
	s.NoError(err)

	// The same range invoices nothing the second time
	_, err = s.service.GenerateInvoice(s.GetContext(), req)
	s.Error(err)
	s.True(errors.Is(err, invoice.ErrNoUnbilledUsage))
}

func (s *InvoiceServiceSuite) TestGenerateInvoiceSequentialNumbers() {
	for i := 1; i <= 3; i++ {
		s.seedUsageRecord(s.months(i), "50.00", 50)
		resp, err := s.service.GenerateInvoice(s.GetContext(), dto.GenerateInvoiceRequest{
			TenantID:           s.tenant.ID,
			BillingPeriodStart: s.months(i),
			BillingPeriodEnd:   s.months(i),
		})
		s.NoError(err)
		s.Equal(fmt.Sprintf("INV-HARB7QX2-%05d", i), resp.InvoiceNumber)
	}
}

func (s *InvoiceServiceSuite) TestGenerateInvoiceInvalidRange() {
	_, err := s.service.GenerateInvoice(s.GetContext(), dto.GenerateInvoiceRequest{
		TenantID:           s.tenant.ID,
		BillingPeriodStart: s.months(1),
		BillingPeriodEnd:   s.months(3),
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) generateOne() *dto.InvoiceResponse {
	s.seedUsageRecord(s.months(1), "100.00", 100)
	resp, err := s.service.GenerateInvoice(s.GetContext(), dto.GenerateInvoiceRequest{
		TenantID:           s.tenant.ID,
		BillingPeriodStart: s.months(1),
		BillingPeriodEnd:   s.months(1),
	})
	s.NoError(err)
	return resp
}

func (s *InvoiceServiceSuite) TestGetInvoice() {
	generated := s.generateOne()

	resp, err := s.service.GetInvoice(s.GetContext(), generated.ID)
	s.NoError(err)
	s.Equal(generated.InvoiceNumber, resp.InvoiceNumber)

	_, err = s.service.GetInvoice(s.GetContext(), "inv_missing")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestListInvoices() {
	generated := s.generateOne()

	ctx := types.SetTenantID(s.GetContext(), s.tenant.ID)
	resp, err := s.service.ListInvoices(ctx, &types.InvoiceFilter{})
	s.NoError(err)
	s.Equal(1, resp.Total)
	s.Equal(generated.ID, resp.Items[0].ID)

	// Other tenants see nothing
	resp, err = s.service.ListInvoices(s.GetContext(), &types.InvoiceFilter{})
	s.NoError(err)
	s.Equal(0, resp.Total)
}

func (s *InvoiceServiceSuite) TestMarkInvoiceAsPaid() {
	generated := s.generateOne()
	paidAt := s.GetNow()

	resp, err := s.service.MarkInvoiceAsPaid(s.GetContext(), generated.ID, paidAt)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, resp.InvoiceStatus)
	s.NotNil(resp.PaidAt)
	s.WithinDuration(paidAt, *resp.PaidAt, time.Second)

	// Paid invoices are immutable
	_, err = s.service.MarkInvoiceAsPaid(s.GetContext(), generated.ID, paidAt)
	s.Error(err)
	s.True(errors.Is(err, invoice.ErrInvoiceAlreadyPaid))
	s.True(ierr.IsInvalidOperation(err))
}

// seedOverdueInvoice stores an issued invoice whose due date already passed.
func (s *InvoiceServiceSuite) seedOverdueInvoice(number string, dueDate time.Time) *invoice.Invoice {
	ctx := types.SetTenantID(s.GetContext(), s.tenant.ID)
	inv := &invoice.Invoice{
		ID:            s.GetUUID(),
		InvoiceNumber: number,
		Subtotal:      decimal.RequireFromString("100.00"),
		TaxRate:       decimal.RequireFromString("0.20"),
		TaxAmount:     decimal.RequireFromString("20.00"),
		Amount:        decimal.RequireFromString("120.00"),
		InvoiceStatus: types.InvoiceStatusIssued,
		PeriodStart:   s.months(2),
		PeriodEnd:     s.months(2),
		IssueDate:     dueDate.AddDate(0, 0, -30),
		DueDate:       dueDate,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().InvoiceRepo.CreateWithLineItems(ctx, inv))
	return inv
}

func (s *InvoiceServiceSuite) TestCheckOverdueInvoices() {
	overdue := s.seedOverdueInvoice("INV-HARB7QX2-09999", s.GetNow().AddDate(0, 0, -5))
	current := s.generateOne()

	resp, err := s.service.CheckOverdueInvoices(s.GetContext(), s.GetNow())
	s.NoError(err)
	s.Equal(1, resp.Checked)
	s.Equal(1, resp.Updated)

	flipped, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), overdue.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusOverdue, flipped.InvoiceStatus)

	untouched, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), current.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusIssued, untouched.InvoiceStatus)
}

func (s *InvoiceServiceSuite) TestCheckOverdueInvoicesIdempotent() {
	s.seedOverdueInvoice("INV-HARB7QX2-00001", s.GetNow().AddDate(0, 0, -5))

	first, err := s.service.CheckOverdueInvoices(s.GetContext(), s.GetNow())
	s.NoError(err)
	s.Equal(1, first.Updated)

	second, err := s.service.CheckOverdueInvoices(s.GetContext(), s.GetNow())
	s.NoError(err)
	s.Equal(0, second.Checked)
	s.Equal(0, second.Updated)
}

func (s *InvoiceServiceSuite) TestOverdueSweepCannotFlipPaidInvoice() {
	// A payment landing between the sweep's listing and its status write must
	// win; the write is refused once the invoice is paid.
	seeded := s.seedOverdueInvoice("INV-HARB7QX2-09999", s.GetNow().AddDate(0, 0, -5))

	paid, err := s.service.MarkInvoiceAsPaid(s.GetContext(), seeded.ID, s.GetNow())
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, paid.InvoiceStatus)

	err = s.GetStores().InvoiceRepo.UpdateStatus(s.GetContext(), seeded.ID, types.InvoiceStatusOverdue, nil)
	s.Error(err)
	s.True(errors.Is(err, invoice.ErrInvalidStatusTransition))
	s.True(ierr.IsInvalidOperation(err))

	stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), seeded.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, stored.InvoiceStatus)
	s.NotNil(stored.PaidAt)

	// The sweep itself no longer counts the paid invoice either
	resp, err := s.service.CheckOverdueInvoices(s.GetContext(), s.GetNow())
	s.NoError(err)
	s.Equal(0, resp.Updated)
}

func (s *InvoiceServiceSuite) TestGetInvoiceLineItemsFollowLineNumbers() {
	// Read-back order comes from the assigned line numbers, not from storage
	// order or from the alphabetical sort of month labels.
	ctx := types.SetTenantID(s.GetContext(), s.tenant.ID)
	periods := []time.Time{s.months(3), s.months(2), s.months(1)}

	// Store the items in reverse of their numbers
	shuffled := &invoice.Invoice{
		ID:            s.GetUUID(),
		InvoiceNumber: "INV-HARB7QX2-09998",
		Subtotal:      decimal.RequireFromString("300.00"),
		Amount:        decimal.RequireFromString("300.00"),
		InvoiceStatus: types.InvoiceStatusIssued,
		PeriodStart:   periods[0],
		PeriodEnd:     periods[2],
		IssueDate:     s.GetNow(),
		DueDate:       s.GetNow().AddDate(0, 0, 30),
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	for i := len(periods) - 1; i >= 0; i-- {
		shuffled.LineItems = append(shuffled.LineItems, &invoice.LineItem{
			ID:          s.GetUUID(),
			InvoiceID:   shuffled.ID,
			LineNumber:  i + 1,
			PeriodLabel: types.PeriodLabel(periods[i]),
			Amount:      decimal.RequireFromString("100.00"),
			BaseModel:   types.GetDefaultBaseModel(ctx),
		})
	}
	s.NoError(s.GetStores().InvoiceRepo.CreateWithLineItems(ctx, shuffled))

	fetched, err := s.GetStores().InvoiceRepo.Get(ctx, shuffled.ID)
	s.NoError(err)
	s.Len(fetched.LineItems, 3)
	for i, item := range fetched.LineItems {
		s.Equal(i+1, item.LineNumber)
		s.Equal(types.PeriodLabel(periods[i]), item.PeriodLabel)
	}
}

func (s *InvoiceServiceSuite) TestLineItemUnitPriceFollowsChargedAmount() {
	// 100 doors at 10.00 a year meter to 83.33 for the month. The displayed
	// unit price derives from that amount, never from re-rounding the rate.
	s.tenant.BillingConfig.PricePerDoor = decimal.RequireFromString("10.00")
	s.NoError(s.GetStores().TenantRepo.Update(s.GetContext(), s.tenant))

	s.seedUsageRecord(s.months(1), "83.33", 100)

	resp, err := s.service.GenerateInvoice(s.GetContext(), dto.GenerateInvoiceRequest{
		TenantID:           s.tenant.ID,
		BillingPeriodStart: s.months(1),
		BillingPeriodEnd:   s.months(1),
	})
	s.NoError(err)
	s.Len(resp.LineItems, 1)

	item := resp.LineItems[0]
	s.True(decimal.RequireFromString("83.33").Equal(item.Amount))
	s.True(decimal.RequireFromString("0.83").Equal(item.UnitPrice))
	s.True(item.Amount.Equal(resp.Subtotal), "the charged amount stays authoritative")
}

func (s *InvoiceServiceSuite) TestOverdueInvoiceCanStillBePaid() {
	overdue := s.seedOverdueInvoice("INV-HARB7QX2-00001", s.GetNow().AddDate(0, 0, -5))

	_, err := s.service.CheckOverdueInvoices(s.GetContext(), s.GetNow())
	s.NoError(err)

	resp, err := s.service.MarkInvoiceAsPaid(s.GetContext(), overdue.ID, s.GetNow())
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, resp.InvoiceStatus)
}
