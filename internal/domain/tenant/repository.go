package tenant

import (
	"context"
)

// Repository defines the interface for tenant persistence operations
type Repository interface {
	// Create creates a new tenant
	Create(ctx context.Context, tenant *Tenant) error

	// GetByID retrieves a tenant by ID
	GetByID(ctx context.Context, id string) (*Tenant, error)

	// List retrieves all tenants
	List(ctx context.Context) ([]*Tenant, error)

	// Update updates an existing tenant
	Update(ctx context.Context, tenant *Tenant) error
}
