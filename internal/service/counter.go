package service

import (
	"context"
	"time"

	"github.com/firedesk/firedesk/internal/types"
)

// CounterService reads a tenant's current resource counts. Doors, buildings,
// users and inspectors are totals as of the given instant; inspections are
// windowed to that instant's calendar month. The asymmetry is deliberate:
// a door present in month N keeps being billed in month N+1, while an
// inspection belongs to the month it happened in.
type CounterService interface {
	CountResources(ctx context.Context, tenantID string, asOf time.Time) (types.ResourceCounts, error)
}

type counterService struct {
	ServiceParams
}

func NewCounterService(params ServiceParams) CounterService {
	return &counterService{ServiceParams: params}
}

func (s *counterService) CountResources(ctx context.Context, tenantID string, asOf time.Time) (types.ResourceCounts, error) {
	ctx = types.SetTenantID(ctx, tenantID)
	asOf = asOf.UTC()

	var counts types.ResourceCounts
	var err error

	if counts.Doors, err = s.ResourceRepo.Count(ctx, tenantID, types.ResourceTypeDoor, asOf); err != nil {
		return counts, err
	}
	if counts.Buildings, err = s.ResourceRepo.Count(ctx, tenantID, types.ResourceTypeBuilding, asOf); err != nil {
		return counts, err
	}
	if counts.Users, err = s.ResourceRepo.Count(ctx, tenantID, types.ResourceTypeUser, asOf); err != nil {
		return counts, err
	}
	if counts.Inspectors, err = s.ResourceRepo.Count(ctx, tenantID, types.ResourceTypeInspector, asOf); err != nil {
		return counts, err
	}

	windowStart := types.MonthStart(asOf)
	windowEnd := types.NextMonthStart(asOf)
	if counts.Inspections, err = s.ResourceRepo.CountInWindow(ctx, tenantID, types.ResourceTypeInspection, windowStart, windowEnd); err != nil {
		return counts, err
	}

	return counts, nil
}
