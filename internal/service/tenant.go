package service

import (
	"context"
	"time"

	"github.com/firedesk/firedesk/internal/api/dto"
	"github.com/firedesk/firedesk/internal/cache"
	"github.com/firedesk/firedesk/internal/domain/tenant"
	ierr "github.com/firedesk/firedesk/internal/errors"
)

type TenantService interface {
	CreateTenant(ctx context.Context, req dto.CreateTenantRequest) (*dto.TenantResponse, error)
	GetTenantByID(ctx context.Context, id string) (*dto.TenantResponse, error)
	GetAllTenants(ctx context.Context) ([]*dto.TenantResponse, error)
	UpdateBillingConfig(ctx context.Context, id string, req dto.UpdateBillingConfigRequest) (*dto.TenantResponse, error)
}

type tenantService struct {
	ServiceParams
}

func NewTenantService(params ServiceParams) TenantService {
	return &tenantService{ServiceParams: params}
}

func (s *tenantService) CreateTenant(ctx context.Context, req dto.CreateTenantRequest) (*dto.TenantResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	newTenant := req.ToTenant(ctx)

	if err := s.TenantRepo.Create(ctx, newTenant); err != nil {
		return nil, err
	}

	s.Logger.Infow("created tenant",
		"tenant_id", newTenant.ID,
		"invoice_code", newTenant.InvoiceCode,
		"client_type", newTenant.ClientType)
	return dto.NewTenantResponse(newTenant), nil
}

func (s *tenantService) GetTenantByID(ctx context.Context, id string) (*dto.TenantResponse, error) {
	t, err := getTenantCached(ctx, s.ServiceParams, id)
	if err != nil {
		return nil, err
	}
	return dto.NewTenantResponse(t), nil
}

func (s *tenantService) GetAllTenants(ctx context.Context) ([]*dto.TenantResponse, error) {
	tenants, err := s.TenantRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.TenantResponse, len(tenants))
	for i, t := range tenants {
		responses[i] = dto.NewTenantResponse(t)
	}
	return responses, nil
}

func (s *tenantService) UpdateBillingConfig(ctx context.Context, id string, req dto.UpdateBillingConfigRequest) (*dto.TenantResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	t, err := s.TenantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	t.BillingConfig = req.BillingConfig
	t.UpdatedAt = time.Now().UTC()

	if err := s.TenantRepo.Update(ctx, t); err != nil {
		return nil, err
	}

	// Quota checks read through the cache; drop the stale entry
	if s.Cache != nil {
		s.Cache.Delete(ctx, cache.TenantKey(id))
	}

	return dto.NewTenantResponse(t), nil
}

// getTenantCached resolves a tenant by ID through the cache. A missing
// tenant is fatal for the calling operation.
func getTenantCached(ctx context.Context, params ServiceParams, tenantID string) (*tenant.Tenant, error) {
	if tenantID == "" {
		return nil, ierr.NewError("missing tenant id").
			WithHint("A tenant must be specified for this operation").
			Mark(ierr.ErrValidation)
	}

	if params.Cache != nil {
		if cached, found := params.Cache.Get(ctx, cache.TenantKey(tenantID)); found {
			if t, ok := cached.(*tenant.Tenant); ok {
				return t, nil
			}
		}
	}

	t, err := params.TenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if params.Cache != nil {
		params.Cache.Set(ctx, cache.TenantKey(tenantID), t, cache.DefaultExpiration)
	}
	return t, nil
}
