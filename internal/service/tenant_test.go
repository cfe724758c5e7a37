package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/firedesk/firedesk/internal/api/dto"
	"github.com/firedesk/firedesk/internal/cache"
	"github.com/firedesk/firedesk/internal/domain/tenant"
	ierr "github.com/firedesk/firedesk/internal/errors"
	"github.com/firedesk/firedesk/internal/testutil"
	"github.com/firedesk/firedesk/internal/types"
)

type TenantServiceSuite struct {
	testutil.BaseServiceTestSuite
	service TenantService
}

func TestTenantService(t *testing.T) {
	suite.Run(t, new(TenantServiceSuite))
}

func (s *TenantServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	stores := s.GetStores()
	s.service = NewTenantService(ServiceParams{
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

func validBillingConfig() tenant.BillingConfig {
	return tenant.BillingConfig{
		ClientType:   types.ClientTypeHousingAssociation,
		BillingModel: types.BillingModelPerDoor,
		PricePerDoor: decimal.RequireFromString("12.00"),
		Quota:        tenant.Quota{MaxDoors: 100, MaxBuildings: 10, MaxUsers: 25, MaxInspectors: 5},
	}
}

func (s *TenantServiceSuite) TestCreateTenant() {
	testCases := []struct {
		name          string
		req           dto.CreateTenantRequest
		expectedError bool
	}{
		{
			name: "valid_housing_association",
			req: dto.CreateTenantRequest{
				Name:          "Harbour View HA",
				BillingConfig: validBillingConfig(),
			},
		},
		{
			name: "valid_contractor_without_billing_model",
			req: dto.CreateTenantRequest{
				Name: "City Contractors",
				BillingConfig: tenant.BillingConfig{
					ClientType:        types.ClientTypeContractor,
					PricePerInspector: decimal.RequireFromString("65.00"),
					PricePerDoor:      decimal.RequireFromString("12.00"),
					Quota:             tenant.Quota{MaxDoors: 500, MaxInspectors: 10},
				},
			},
		},
		{
			name:          "missing_name",
			req:           dto.CreateTenantRequest{BillingConfig: validBillingConfig()},
			expectedError: true,
		},
		{
			name: "invalid_client_type",
			req: dto.CreateTenantRequest{
				Name: "Broken",
				BillingConfig: tenant.BillingConfig{
					ClientType: "charity",
				},
			},
			expectedError: true,
		},
		{
			name: "housing_association_requires_billing_model",
			req: dto.CreateTenantRequest{
				Name: "Broken HA",
				BillingConfig: tenant.BillingConfig{
					ClientType:   types.ClientTypeHousingAssociation,
					PricePerDoor: decimal.RequireFromString("12.00"),
				},
			},
			expectedError: true,
		},
		{
			name: "negative_rate",
			req: dto.CreateTenantRequest{
				Name: "Broken HA",
				BillingConfig: tenant.BillingConfig{
					ClientType:   types.ClientTypeHousingAssociation,
					BillingModel: types.BillingModelPerDoor,
					PricePerDoor: decimal.RequireFromString("-1.00"),
				},
			},
			expectedError: true,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			resp, err := s.service.CreateTenant(s.GetContext(), tc.req)
			if tc.expectedError {
				s.Error(err)
				s.True(ierr.IsValidation(err))
				return
			}
			s.NoError(err)
			s.NotEmpty(resp.ID)
			s.NotEmpty(resp.InvoiceCode)
			s.Equal(tc.req.Name, resp.Name)
			// A tenant row is scoped to itself
			s.Equal(resp.ID, resp.TenantID)
		})
	}
}

func (s *TenantServiceSuite) TestGetTenantByID() {
	created, err := s.service.CreateTenant(s.GetContext(), dto.CreateTenantRequest{
		Name:          "Harbour View HA",
		BillingConfig: validBillingConfig(),
	})
	s.NoError(err)

	resp, err := s.service.GetTenantByID(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(created.ID, resp.ID)

	// The lookup populates the cache
	_, found := s.GetCache().Get(s.GetContext(), cache.TenantKey(created.ID))
	s.True(found)

	_, err = s.service.GetTenantByID(s.GetContext(), "tenant_missing")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *TenantServiceSuite) TestGetAllTenants() {
	for _, name := range []string{"Alpha HA", "Beta HA"} {
		_, err := s.service.CreateTenant(s.GetContext(), dto.CreateTenantRequest{
			Name:          name,
			BillingConfig: validBillingConfig(),
		})
		s.NoError(err)
	}

	tenants, err := s.service.GetAllTenants(s.GetContext())
	s.NoError(err)
	s.Len(tenants, 2)
}

func (s *TenantServiceSuite) TestUpdateBillingConfig() {
	created, err := s.service.CreateTenant(s.GetContext(), dto.CreateTenantRequest{
		Name:          "Harbour View HA",
		BillingConfig: validBillingConfig(),
	})
	s.NoError(err)

	// Warm the cache, then change the configuration
	_, err = s.service.GetTenantByID(s.GetContext(), created.ID)
	s.NoError(err)

	updated := validBillingConfig()
	updated.BillingModel = types.BillingModelPerBuilding
	updated.PricePerBuilding = decimal.RequireFromString("600.00")
	updated.MaxDoors = 200

	resp, err := s.service.UpdateBillingConfig(s.GetContext(), created.ID, dto.UpdateBillingConfigRequest{
		BillingConfig: updated,
	})
	s.NoError(err)
	s.Equal(types.BillingModelPerBuilding, resp.BillingModel)
	s.Equal(200, resp.MaxDoors)

	// The stale cache entry is dropped so quota checks see the new limits
	_, found := s.GetCache().Get(s.GetContext(), cache.TenantKey(created.ID))
	s.False(found)

	fetched, err := s.service.GetTenantByID(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(200, fetched.MaxDoors)
}

func (s *TenantServiceSuite) TestUpdateBillingConfigValidation() {
	created, err := s.service.CreateTenant(s.GetContext(), dto.CreateTenantRequest{
		Name:          "Harbour View HA",
		BillingConfig: validBillingConfig(),
	})
	s.NoError(err)

	bad := validBillingConfig()
	bad.MaxUsers = -1

	_, err = s.service.UpdateBillingConfig(s.GetContext(), created.ID, dto.UpdateBillingConfigRequest{
		BillingConfig: bad,
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
