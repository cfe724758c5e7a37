package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/firedesk/firedesk/internal/domain/resource"
	"github.com/firedesk/firedesk/internal/domain/tenant"
	"github.com/firedesk/firedesk/internal/domain/usage"
	ierr "github.com/firedesk/firedesk/internal/errors"
	"github.com/firedesk/firedesk/internal/testutil"
	"github.com/firedesk/firedesk/internal/types"
)

type UsageServiceSuite struct {
	testutil.BaseServiceTestSuite
	service UsageService
}

func TestUsageService(t *testing.T) {
	suite.Run(t, new(UsageServiceSuite))
}

func (s *UsageServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewUsageService(s.params())
}

func (s *UsageServiceSuite) params() ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:       s.GetLogger(),
		Config:       s.GetConfig(),
		DB:           s.GetDB(),
		Cache:        s.GetCache(),
		TenantRepo:   stores.TenantRepo,
		ResourceRepo: stores.ResourceRepo,
		UsageRepo:    stores.UsageRepo,
		InvoiceRepo:  stores.InvoiceRepo,
	}
}

func (s *UsageServiceSuite) createTenant(name string, cfg tenant.BillingConfig) *tenant.Tenant {
	t := &tenant.Tenant{
		ID:            s.GetUUID(),
		Name:          name,
		InvoiceCode:   types.GenerateTenantInvoiceCode(),
		BillingConfig: cfg,
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}
	t.BaseModel.TenantID = t.ID
	s.NoError(s.GetStores().TenantRepo.Create(s.GetContext(), t))
	return t
}

func (s *UsageServiceSuite) seedResource(tenantID string, resourceType types.ResourceType, registeredAt time.Time) {
	ctx := types.SetTenantID(s.GetContext(), tenantID)
	res := &resource.Resource{
		ID:           s.GetUUID(),
		Type:         resourceType,
		RegisteredAt: registeredAt,
		BaseModel:    types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().ResourceRepo.CreateIfUnderLimit(ctx, res, 1<<30))
}

func perDoorConfig(price string) tenant.BillingConfig {
	return tenant.BillingConfig{
		ClientType:   types.ClientTypeHousingAssociation,
		BillingModel: types.BillingModelPerDoor,
		PricePerDoor: decimal.RequireFromString(price),
		Quota:        tenant.Quota{MaxDoors: 1000, MaxBuildings: 100, MaxUsers: 100, MaxInspectors: 100},
	}
}

func (s *UsageServiceSuite) TestSnapshotUsage() {
	t := s.createTenant("Harbour View HA", perDoorConfig("12.00"))
	for i := 0; i < 3; i++ {
		s.seedResource(t.ID, types.ResourceTypeDoor, s.GetNow().Add(-time.Hour))
	}
	s.seedResource(t.ID, types.ResourceTypeBuilding, s.GetNow().Add(-time.Hour))
	s.seedResource(t.ID, types.ResourceTypeInspection, s.GetNow().Add(-time.Minute))

	resp, err := s.service.SnapshotUsage(s.GetContext(), t.ID, s.GetNow())
	s.NoError(err)

	s.Equal(3, resp.DoorCount)
	s.Equal(1, resp.BuildingCount)
	s.Equal(1, resp.InspectionCount)
	s.Equal(types.MonthStart(s.GetNow()), resp.Period)
	s.True(decimal.RequireFromString("3.00").Equal(resp.CalculatedAmount))
	s.True(resp.Details.Total().Equal(resp.CalculatedAmount))
	s.False(resp.Invoiced)
}

func (s *UsageServiceSuite) TestSnapshotUsageIdempotent() {
	t := s.createTenant("Harbour View HA", perDoorConfig("12.00"))
	s.seedResource(t.ID, types.ResourceTypeDoor, s.GetNow().Add(-time.Hour))

	first, err := s.service.SnapshotUsage(s.GetContext(), t.ID, s.GetNow())
	s.NoError(err)
	s.Equal(1, first.DoorCount)

	// Stock changes, the month is re-metered: same record, new numbers
	s.seedResource(t.ID, types.ResourceTypeDoor, s.GetNow().Add(-time.Minute))
	second, err := s.service.SnapshotUsage(s.GetContext(), t.ID, s.GetNow())
	s.NoError(err)

	s.Equal(first.ID, second.ID)
	s.Equal(2, second.DoorCount)
	s.True(decimal.RequireFromString("2.00").Equal(second.CalculatedAmount))

	records, err := s.GetStores().UsageRepo.List(s.GetContext(), t.ID, nil)
	s.NoError(err)
	s.Len(records, 1)
}

func (s *UsageServiceSuite) TestConcurrentSnapshotsKeepOneRecord() {
	const attempts = 10

	t := s.createTenant("Harbour View HA", perDoorConfig("12.00"))
	for i := 0; i < 3; i++ {
		s.seedResource(t.ID, types.ResourceTypeDoor, s.GetNow().Add(-time.Hour))
	}

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.service.SnapshotUsage(s.GetContext(), t.ID, s.GetNow())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		s.NoError(err)
	}

	// Snapshots for the same tenant and period collapse onto one record
	records, err := s.GetStores().UsageRepo.List(s.GetContext(), t.ID, nil)
	s.NoError(err)
	s.Len(records, 1)
	s.Equal(3, records[0].DoorCount)
	s.True(decimal.RequireFromString("3.00").Equal(records[0].CalculatedAmount))
}

func (s *UsageServiceSuite) TestSnapshotUsageInvoicedPeriodRejected() {
	t := s.createTenant("Harbour View HA", perDoorConfig("12.00"))
	s.seedResource(t.ID, types.ResourceTypeDoor, s.GetNow().Add(-time.Hour))

	resp, err := s.service.SnapshotUsage(s.GetContext(), t.ID, s.GetNow())
	s.NoError(err)

	ctx := types.SetTenantID(s.GetContext(), t.ID)
	s.NoError(s.GetStores().UsageRepo.MarkInvoiced(ctx, []string{resp.ID}, s.GetUUID()))

	_, err = s.service.SnapshotUsage(s.GetContext(), t.ID, s.GetNow())
	s.Error(err)
	s.True(errors.Is(err, usage.ErrPeriodInvoiced))
	s.True(ierr.IsInvalidOperation(err))
}

func (s *UsageServiceSuite) TestSnapshotUsagePastMonthCountsAtMonthEnd() {
	t := s.createTenant("Harbour View HA", perDoorConfig("12.00"))
	lastMonth := types.MonthStart(s.GetNow()).AddDate(0, -1, 0)

	// One door existed last month, one only appeared this month
	s.seedResource(t.ID, types.ResourceTypeDoor, lastMonth.Add(24*time.Hour))
	s.seedResource(t.ID, types.ResourceTypeDoor, types.MonthStart(s.GetNow()).Add(time.Hour))

	resp, err := s.service.SnapshotUsage(s.GetContext(), t.ID, lastMonth)
	s.NoError(err)
	s.Equal(1, resp.DoorCount)
	s.Equal(lastMonth, resp.Period)
}

func (s *UsageServiceSuite) TestSnapshotUsageInspectionsWindowedToMonth() {
	t := s.createTenant("Harbour View HA", perDoorConfig("12.00"))
	lastMonth := types.MonthStart(s.GetNow()).AddDate(0, -1, 0)

	s.seedResource(t.ID, types.ResourceTypeInspection, lastMonth.Add(time.Hour))
	s.seedResource(t.ID, types.ResourceTypeInspection, s.GetNow().Add(-time.Minute))

	resp, err := s.service.SnapshotUsage(s.GetContext(), t.ID, s.GetNow())
	s.NoError(err)
	s.Equal(1, resp.InspectionCount, "only this month's inspections count")
}

func (s *UsageServiceSuite) TestSnapshotUsageUnknownTenant() {
	_, err := s.service.SnapshotUsage(s.GetContext(), "tenant_missing", s.GetNow())
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *UsageServiceSuite) TestSnapshotUsageUnsupportedConfigStoresZero() {
	cfg := perDoorConfig("12.00")
	cfg.BillingModel = "flat_fee"
	t := s.createTenant("Misconfigured HA", cfg)
	s.seedResource(t.ID, types.ResourceTypeDoor, s.GetNow().Add(-time.Hour))

	resp, err := s.service.SnapshotUsage(s.GetContext(), t.ID, s.GetNow())
	s.NoError(err)
	s.True(resp.CalculatedAmount.IsZero())
	s.True(resp.Details.Unsupported)
	s.Equal(1, resp.DoorCount, "counts are still recorded")
}

func (s *UsageServiceSuite) TestListUsageRecords() {
	t := s.createTenant("Harbour View HA", perDoorConfig("12.00"))
	thisMonth := types.MonthStart(s.GetNow())
	lastMonth := thisMonth.AddDate(0, -1, 0)

	_, err := s.service.SnapshotUsage(s.GetContext(), t.ID, lastMonth)
	s.NoError(err)
	_, err = s.service.SnapshotUsage(s.GetContext(), t.ID, thisMonth)
	s.NoError(err)

	ctx := types.SetTenantID(s.GetContext(), t.ID)
	resp, err := s.service.ListUsageRecords(ctx, &types.UsageRecordFilter{})
	s.NoError(err)
	s.Equal(2, resp.Total)
	s.Equal(lastMonth, resp.Items[0].Period, "records are ordered by period")

	resp, err = s.service.ListUsageRecords(ctx, &types.UsageRecordFilter{PeriodStart: &thisMonth})
	s.NoError(err)
	s.Equal(1, resp.Total)
}

func (s *UsageServiceSuite) TestRunForAllTenants() {
	period := types.MonthStart(s.GetNow())

	t1 := s.createTenant("Harbour View HA", perDoorConfig("12.00"))
	t2 := s.createTenant("City Contractors", tenant.BillingConfig{
		ClientType:        types.ClientTypeContractor,
		PricePerInspector: decimal.RequireFromString("65.00"),
		PricePerDoor:      decimal.RequireFromString("12.00"),
		Quota:             tenant.Quota{MaxDoors: 1000, MaxInspectors: 100},
	})
	s.seedResource(t1.ID, types.ResourceTypeDoor, s.GetNow().Add(-time.Hour))
	s.seedResource(t2.ID, types.ResourceTypeInspector, s.GetNow().Add(-time.Hour))

	resp, err := s.service.RunForAllTenants(s.GetContext(), period)
	s.NoError(err)
	s.Equal(2, resp.Total)
	s.Equal(2, resp.Success)
	s.Equal(0, resp.Failed)
	s.Equal(period, resp.Period)

	for _, item := range resp.Items {
		s.True(item.Success)
		s.NotNil(item.Record)
	}
}

func (s *UsageServiceSuite) TestRunForAllTenantsIsolatesFailures() {
	period := types.MonthStart(s.GetNow())

	t1 := s.createTenant("Harbour View HA", perDoorConfig("12.00"))
	t2 := s.createTenant("Locked Down HA", perDoorConfig("12.00"))

	// t2's period is already invoiced, so its snapshot must fail
	resp, err := s.service.SnapshotUsage(s.GetContext(), t2.ID, period)
	s.NoError(err)
	ctx := types.SetTenantID(s.GetContext(), t2.ID)
	s.NoError(s.GetStores().UsageRepo.MarkInvoiced(ctx, []string{resp.ID}, s.GetUUID()))

	run, err := s.service.RunForAllTenants(s.GetContext(), period)
	s.NoError(err)
	s.Equal(2, run.Total)
	s.Equal(1, run.Success)
	s.Equal(1, run.Failed)

	for _, item := range run.Items {
		switch item.TenantID {
		case t1.ID:
			s.True(item.Success)
		case t2.ID:
			s.False(item.Success)
			s.NotEmpty(item.Error)
		}
	}
}
