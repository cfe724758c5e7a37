package service

import (
	"github.com/shopspring/decimal"

	"github.com/firedesk/firedesk/internal/domain/tenant"
	"github.com/firedesk/firedesk/internal/domain/usage"
	"github.com/firedesk/firedesk/internal/types"
)

// PricingService maps a tenant's billing configuration and a snapshot of
// resource counts to a monthly monetary amount with a per-resource
// breakdown. It is pure: no I/O, no clock, fixed-point decimals only.
type PricingService interface {
	// Calculate returns the monthly amount and its breakdown. Unsupported
	// configuration combinations yield a zero amount with the breakdown's
	// Unsupported marker set; a charge is never silently dropped.
	Calculate(config tenant.BillingConfig, counts types.ResourceCounts) (decimal.Decimal, usage.Breakdown)
}

type pricingService struct{}

func NewPricingService() PricingService {
	return &pricingService{}
}

var monthsPerYear = decimal.NewFromInt(12)

// monthlyShare amortizes an annual rate over one month at two decimal
// places. Rounding happens here, at the sub-total boundary, so invoice line
// items reconcile exactly with stored amounts across months.
func monthlyShare(annualRate decimal.Decimal, count int) decimal.Decimal {
	return annualRate.Mul(decimal.NewFromInt(int64(count))).Div(monthsPerYear).Round(2)
}

func (s *pricingService) Calculate(config tenant.BillingConfig, counts types.ResourceCounts) (decimal.Decimal, usage.Breakdown) {
	switch {
	case config.ClientType == types.ClientTypeHousingAssociation && config.BillingModel == types.BillingModelPerDoor:
		breakdown := usage.Breakdown{
			DoorCost:      monthlyShare(config.PricePerDoor, counts.Doors),
			BuildingCost:  decimal.Zero,
			InspectorCost: decimal.Zero,
		}
		return breakdown.Total(), breakdown

	case config.ClientType == types.ClientTypeHousingAssociation && config.BillingModel == types.BillingModelPerBuilding:
		breakdown := usage.Breakdown{
			DoorCost:      decimal.Zero,
			BuildingCost:  monthlyShare(config.PricePerBuilding, counts.Buildings),
			InspectorCost: decimal.Zero,
		}
		return breakdown.Total(), breakdown

	case config.ClientType == types.ClientTypeContractor:
		// Inspector licences are a monthly rate; door data storage is an
		// annual rate amortized monthly.
		breakdown := usage.Breakdown{
			DoorCost:      monthlyShare(config.PricePerDoor, counts.Doors),
			BuildingCost:  decimal.Zero,
			InspectorCost: config.PricePerInspector.Mul(decimal.NewFromInt(int64(counts.Inspectors))).Round(2),
		}
		return breakdown.Total(), breakdown
	}

	return decimal.Zero, usage.Breakdown{
		DoorCost:      decimal.Zero,
		BuildingCost:  decimal.Zero,
		InspectorCost: decimal.Zero,
		Unsupported:   true,
		Note:          "unsupported client type / billing model combination: " + string(config.ClientType) + "/" + string(config.BillingModel),
	}
}
