package dto

import (
	"context"

	"github.com/firedesk/firedesk/internal/domain/tenant"
	"github.com/firedesk/firedesk/internal/types"
	"github.com/firedesk/firedesk/internal/validator"
)

// CreateTenantRequest represents the request payload for creating a tenant
type CreateTenantRequest struct {
	// name is the display name of the tenant organization
	Name string `json:"name" validate:"required"`

	// billing_config is the tenant's pricing and quota configuration
	BillingConfig tenant.BillingConfig `json:"billing_config" validate:"required"`
}

func (r *CreateTenantRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.BillingConfig.Validate()
}

// ToTenant converts the request to a domain tenant
func (r *CreateTenantRequest) ToTenant(ctx context.Context) *tenant.Tenant {
	t := &tenant.Tenant{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TENANT),
		Name:          r.Name,
		InvoiceCode:   types.GenerateTenantInvoiceCode(),
		BillingConfig: r.BillingConfig,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	// A tenant row is scoped to itself
	t.BaseModel.TenantID = t.ID
	return t
}

// UpdateBillingConfigRequest represents the request payload for replacing a
// tenant's billing configuration
type UpdateBillingConfigRequest struct {
	BillingConfig tenant.BillingConfig `json:"billing_config" validate:"required"`
}

func (r *UpdateBillingConfigRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.BillingConfig.Validate()
}

// TenantResponse represents a tenant in API responses
type TenantResponse struct {
	*tenant.Tenant
}

func NewTenantResponse(t *tenant.Tenant) *TenantResponse {
	return &TenantResponse{Tenant: t}
}
