package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/firedesk/firedesk/internal/api/dto"
	"github.com/firedesk/firedesk/internal/domain/resource"
	"github.com/firedesk/firedesk/internal/domain/tenant"
	ierr "github.com/firedesk/firedesk/internal/errors"
	"github.com/firedesk/firedesk/internal/testutil"
	"github.com/firedesk/firedesk/internal/types"
)

type QuotaServiceSuite struct {
	testutil.BaseServiceTestSuite
	service QuotaService
	tenant  *tenant.Tenant
}

func TestQuotaService(t *testing.T) {
	suite.Run(t, new(QuotaServiceSuite))
}

func (s *QuotaServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.setupService()
	s.setupTestData()
}

func (s *QuotaServiceSuite) setupService() {
	stores := s.GetStores()
	s.service = NewQuotaService(ServiceParams{
		Logger:       s.GetLogger(),
		Config:       s.GetConfig(),
		DB:           s.GetDB(),
		Cache:        s.GetCache(),
		TenantRepo:   stores.TenantRepo,
		ResourceRepo: stores.ResourceRepo,
		UsageRepo:    stores.UsageRepo,
		InvoiceRepo:  stores.InvoiceRepo,
	})
}

// setupTestData seeds the context tenant with a small quota so limits are
// easy to hit in tests.
func (s *QuotaServiceSuite) setupTestData() {
	s.tenant = &tenant.Tenant{
		ID:          types.DefaultTenantID,
		Name:        "Northgate Housing",
		InvoiceCode: "NORTH1AB",
		BillingConfig: tenant.BillingConfig{
			ClientType:   types.ClientTypeHousingAssociation,
			BillingModel: types.BillingModelPerDoor,
			PricePerDoor: decimal.RequireFromString("12.00"),
			Quota: tenant.Quota{
				MaxDoors:      5,
				MaxBuildings:  2,
				MaxUsers:      10,
				MaxInspectors: 0,
			},
		},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.tenant.BaseModel.TenantID = s.tenant.ID
	s.NoError(s.GetStores().TenantRepo.Create(s.GetContext(), s.tenant))
}

// seedResources inserts resources directly, bypassing quota enforcement, to
// arrange a starting count.
func (s *QuotaServiceSuite) seedResources(resourceType types.ResourceType, count int) {
	for i := 0; i < count; i++ {
		res := &resource.Resource{
			ID:           s.GetUUID(),
			Type:         resourceType,
			RegisteredAt: s.GetNow().Add(-time.Hour),
			BaseModel:    types.GetDefaultBaseModel(s.GetContext()),
		}
		s.NoError(s.GetStores().ResourceRepo.CreateIfUnderLimit(s.GetContext(), res, count+1))
	}
}

func (s *QuotaServiceSuite) TestCheckLimitUnderLimit() {
	s.seedResources(types.ResourceTypeDoor, 4)
	s.NoError(s.service.CheckLimit(s.GetContext(), types.ResourceTypeDoor))
}

func (s *QuotaServiceSuite) TestCheckLimitAtLimit() {
	s.seedResources(types.ResourceTypeDoor, 5)

	err := s.service.CheckLimit(s.GetContext(), types.ResourceTypeDoor)
	s.Error(err)
	s.True(ierr.IsQuotaExceeded(err))
}

func (s *QuotaServiceSuite) TestCheckLimitZeroMeansDisabled() {
	// MaxInspectors is 0: the resource type is not allowed at all
	err := s.service.CheckLimit(s.GetContext(), types.ResourceTypeInspector)
	s.Error(err)
	s.True(ierr.IsQuotaExceeded(err))
}

func (s *QuotaServiceSuite) TestCheckLimitInspectionsNeverLimited() {
	s.NoError(s.service.CheckLimit(s.GetContext(), types.ResourceTypeInspection))
}

func (s *QuotaServiceSuite) TestGetAllLimits() {
	s.seedResources(types.ResourceTypeDoor, 4)
	s.seedResources(types.ResourceTypeBuilding, 2)

	resp, err := s.service.GetAllLimits(s.GetContext())
	s.NoError(err)

	s.Equal(4, resp.Doors.Current)
	s.Equal(5, resp.Doors.Limit)
	s.Equal(1, resp.Doors.Remaining)
	s.True(resp.Doors.IsNearLimit)
	s.False(resp.Doors.IsAtLimit)

	s.Equal(2, resp.Buildings.Current)
	s.True(resp.Buildings.IsAtLimit)
	s.True(resp.Buildings.IsNearLimit)
	s.Equal(0, resp.Buildings.Remaining)

	s.Equal(0, resp.Users.Current)
	s.False(resp.Users.IsNearLimit)

	// limit 0 with no resources still reads as at limit
	s.True(resp.Inspectors.IsAtLimit)
}

func (s *QuotaServiceSuite) TestGetAllLimitsNearLimitThreshold() {
	// 8 of 10 users is exactly the warning threshold
	s.seedResources(types.ResourceTypeUser, 8)

	resp, err := s.service.GetAllLimits(s.GetContext())
	s.NoError(err)
	s.True(resp.Users.IsNearLimit)
	s.False(resp.Users.IsAtLimit)
	s.InDelta(80.0, resp.Users.Percentage, 0.001)
}

func (s *QuotaServiceSuite) TestRegisterResourceFillsToLimit() {
	for i := 0; i < 5; i++ {
		resp, err := s.service.RegisterResource(s.GetContext(), dto.RegisterResourceRequest{
			ResourceType: types.ResourceTypeDoor,
		})
		s.NoError(err, "registration %d of 5 should succeed", i+1)
		s.NotEmpty(resp.ID)
	}

	// The sixth registration must be refused
	_, err := s.service.RegisterResource(s.GetContext(), dto.RegisterResourceRequest{
		ResourceType: types.ResourceTypeDoor,
	})
	s.Error(err)
	s.True(ierr.IsQuotaExceeded(err))

	count, err := s.GetStores().ResourceRepo.Count(
		s.GetContext(), s.tenant.ID, types.ResourceTypeDoor, s.GetNow().Add(time.Hour))
	s.NoError(err)
	s.Equal(5, count)
}

func (s *QuotaServiceSuite) TestRegisterResourceInvalidType() {
	_, err := s.service.RegisterResource(s.GetContext(), dto.RegisterResourceRequest{
		ResourceType: "vehicle",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *QuotaServiceSuite) TestRegisterInspectionBypassesQuota() {
	for i := 0; i < 20; i++ {
		_, err := s.service.RegisterResource(s.GetContext(), dto.RegisterResourceRequest{
			ResourceType: types.ResourceTypeInspection,
		})
		s.NoError(err)
	}
}

func (s *QuotaServiceSuite) TestConcurrentRegistrationsNeverExceedLimit() {
	const attempts = 20

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.service.RegisterResource(s.GetContext(), dto.RegisterResourceRequest{
				ResourceType: types.ResourceTypeDoor,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			s.True(ierr.IsQuotaExceeded(err), fmt.Sprintf("unexpected error: %v", err))
		}
	}
	s.Equal(5, succeeded)

	count, err := s.GetStores().ResourceRepo.Count(
		s.GetContext(), s.tenant.ID, types.ResourceTypeDoor, s.GetNow().Add(time.Hour))
	s.NoError(err)
	s.Equal(5, count)
}

func (s *QuotaServiceSuite) TestCheckLimitUnknownTenant() {
	ctx := types.SetTenantID(s.GetContext(), "tenant_missing")
	err := s.service.CheckLimit(ctx, types.ResourceTypeDoor)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}
