package tenant

import (
	"github.com/shopspring/decimal"

	ierr "github.com/firedesk/firedesk/internal/errors"
	"github.com/firedesk/firedesk/internal/types"
)

// Tenant represents an independent billing and organizational unit. All
// metered resources, usage records and invoices are scoped to exactly one
// tenant.
type Tenant struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	// InvoiceCode is a short upper-case token embedded in every invoice
	// number issued to this tenant, e.g. INV-ACME7QX2-00042.
	InvoiceCode   string `db:"invoice_code" json:"invoice_code"`
	BillingConfig `json:"billing_config"`
	types.BaseModel
}

// BillingConfig is the tenant's pricing and quota configuration. Rates use
// fixed-point decimals; door and building rates are annual, the inspector
// rate is monthly.
type BillingConfig struct {
	ClientType        types.ClientType   `db:"client_type" json:"client_type"`
	BillingModel      types.BillingModel `db:"billing_model" json:"billing_model"`
	BillingCycle      types.BillingCycle `db:"billing_cycle" json:"billing_cycle"`
	PricePerDoor      decimal.Decimal    `db:"price_per_door" json:"price_per_door"`
	PricePerBuilding  decimal.Decimal    `db:"price_per_building" json:"price_per_building"`
	PricePerInspector decimal.Decimal    `db:"price_per_inspector" json:"price_per_inspector"`
	// TaxRate overrides the engine-wide default when non-nil.
	TaxRate *decimal.Decimal `db:"tax_rate" json:"tax_rate,omitempty"`
	Quota   `json:"quota"`
}

// Quota is the per-tenant maximum for each quota-enforced resource class.
// A value of 0 means no resources of that type are allowed, not unlimited.
type Quota struct {
	MaxDoors      int `db:"max_doors" json:"max_doors"`
	MaxBuildings  int `db:"max_buildings" json:"max_buildings"`
	MaxUsers      int `db:"max_users" json:"max_users"`
	MaxInspectors int `db:"max_inspectors" json:"max_inspectors"`
}

// Limit returns the configured maximum for a resource type.
func (q Quota) Limit(resourceType types.ResourceType) int {
	switch resourceType {
	case types.ResourceTypeDoor:
		return q.MaxDoors
	case types.ResourceTypeBuilding:
		return q.MaxBuildings
	case types.ResourceTypeUser:
		return q.MaxUsers
	case types.ResourceTypeInspector:
		return q.MaxInspectors
	}
	return 0
}

// Validate rejects malformed billing configuration eagerly, at configuration
// time, so pricing never fails lazily during invoicing.
func (c BillingConfig) Validate() error {
	if !c.ClientType.Validate() {
		return ierr.NewErrorf("invalid client type: %s", c.ClientType).
			WithHint("Client type must be housing_association or contractor").
			Mark(ierr.ErrValidation)
	}
	if c.ClientType == types.ClientTypeHousingAssociation && !c.BillingModel.Validate() {
		return ierr.NewErrorf("invalid billing model: %s", c.BillingModel).
			WithHint("Housing associations must bill per_door or per_building").
			Mark(ierr.ErrValidation)
	}
	if c.BillingCycle != "" && !c.BillingCycle.Validate() {
		return ierr.NewErrorf("invalid billing cycle: %s", c.BillingCycle).
			WithHint("Billing cycle must be monthly or annual").
			Mark(ierr.ErrValidation)
	}
	for field, rate := range map[string]decimal.Decimal{
		"price_per_door":      c.PricePerDoor,
		"price_per_building":  c.PricePerBuilding,
		"price_per_inspector": c.PricePerInspector,
	} {
		if rate.IsNegative() {
			return ierr.NewErrorf("negative rate for %s", field).
				WithHint("Prices must be non-negative").
				WithReportableDetails(map[string]any{"field": field, "value": rate.String()}).
				Mark(ierr.ErrValidation)
		}
	}
	if c.TaxRate != nil && c.TaxRate.IsNegative() {
		return ierr.NewError("negative tax rate").
			WithHint("Tax rate must be non-negative").
			Mark(ierr.ErrValidation)
	}
	for _, limit := range []int{c.MaxDoors, c.MaxBuildings, c.MaxUsers, c.MaxInspectors} {
		if limit < 0 {
			return ierr.NewError("negative quota limit").
				WithHint("Quota limits must be non-negative; 0 disables the resource type").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// EffectiveTaxRate returns the tenant override or the given default.
func (c BillingConfig) EffectiveTaxRate(defaultRate decimal.Decimal) decimal.Decimal {
	if c.TaxRate != nil {
		return *c.TaxRate
	}
	return defaultRate
}
