package service

import (
	"context"
	"time"

	"github.com/firedesk/firedesk/internal/api/dto"
	"github.com/firedesk/firedesk/internal/domain/tenant"
	ierr "github.com/firedesk/firedesk/internal/errors"
	"github.com/firedesk/firedesk/internal/types"
)

// QuotaService enforces per-tenant resource maxima. CheckLimit is the
// read-only precondition used for banners and fast rejections; the actual
// create path goes through RegisterResource, where the count is re-validated
// atomically with the insert so two racing registrations can never both
// commit past the limit.
type QuotaService interface {
	// CheckLimit returns ierr.ErrQuotaExceeded when the tenant's current
	// count of the resource type has reached its configured maximum.
	CheckLimit(ctx context.Context, resourceType types.ResourceType) error

	// GetAllLimits computes a QuotaCheckResult for every quota-enforced
	// resource class. Read-only and side-effect free.
	GetAllLimits(ctx context.Context) (*dto.AllLimitsResponse, error)

	// RegisterResource inserts a resource registry row after an atomic
	// quota re-validation inside the same transaction.
	RegisterResource(ctx context.Context, req dto.RegisterResourceRequest) (*dto.ResourceResponse, error)
}

type quotaService struct {
	ServiceParams
	counter CounterService
}

func NewQuotaService(params ServiceParams) QuotaService {
	return &quotaService{
		ServiceParams: params,
		counter:       NewCounterService(params),
	}
}

func (s *quotaService) CheckLimit(ctx context.Context, resourceType types.ResourceType) error {
	t, err := s.getTenant(ctx)
	if err != nil {
		return err
	}
	if resourceType == types.ResourceTypeInspection {
		// Inspections are metered but never quota limited
		return nil
	}

	limit := t.Quota.Limit(resourceType)
	current, err := s.ResourceRepo.Count(ctx, t.ID, resourceType, time.Now().UTC())
	if err != nil {
		return err
	}

	if current >= limit {
		return limitExceededError(resourceType, current, limit)
	}
	return nil
}

func (s *quotaService) GetAllLimits(ctx context.Context) (*dto.AllLimitsResponse, error) {
	t, err := s.getTenant(ctx)
	if err != nil {
		return nil, err
	}

	counts, err := s.counter.CountResources(ctx, t.ID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	return &dto.AllLimitsResponse{
		Doors:      dto.NewQuotaCheckResult(types.ResourceTypeDoor, counts.Doors, t.Quota.MaxDoors),
		Buildings:  dto.NewQuotaCheckResult(types.ResourceTypeBuilding, counts.Buildings, t.Quota.MaxBuildings),
		Users:      dto.NewQuotaCheckResult(types.ResourceTypeUser, counts.Users, t.Quota.MaxUsers),
		Inspectors: dto.NewQuotaCheckResult(types.ResourceTypeInspector, counts.Inspectors, t.Quota.MaxInspectors),
	}, nil
}

func (s *quotaService) RegisterResource(ctx context.Context, req dto.RegisterResourceRequest) (*dto.ResourceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	t, err := s.getTenant(ctx)
	if err != nil {
		return nil, err
	}

	res := req.ToResource(ctx)

	if req.ResourceType == types.ResourceTypeInspection {
		// Not limited; insert with an effectively open limit so the same
		// conditional write path is exercised.
		if err := s.ResourceRepo.CreateIfUnderLimit(ctx, res, int(^uint(0)>>1)); err != nil {
			return nil, err
		}
		return dto.NewResourceResponse(res), nil
	}

	limit := t.Quota.Limit(req.ResourceType)

	// The repository re-counts inside this transaction and refuses the
	// insert when the limit is already reached, closing the check-then-act
	// race between concurrent registrations.
	err = s.DB.WithSerializableTx(ctx, func(txCtx context.Context) error {
		return s.ResourceRepo.CreateIfUnderLimit(txCtx, res, limit)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("registered resource",
		"tenant_id", t.ID,
		"resource_id", res.ID,
		"resource_type", res.Type)
	return dto.NewResourceResponse(res), nil
}

// getTenant resolves the context tenant through the cache.
func (s *quotaService) getTenant(ctx context.Context) (*tenant.Tenant, error) {
	return getTenantCached(ctx, s.ServiceParams, types.GetTenantID(ctx))
}

func limitExceededError(resourceType types.ResourceType, current, limit int) error {
	return ierr.NewErrorf("%s limit reached: %d of %d in use", resourceType, current, limit).
		WithHintf("Your plan allows %d %ss and all of them are in use. Upgrade your plan or remove unused %ss.", limit, resourceType, resourceType).
		WithReportableDetails(map[string]any{
			"resource_type": resourceType,
			"current":       current,
			"limit":         limit,
		}).
		Mark(ierr.ErrQuotaExceeded)
}
