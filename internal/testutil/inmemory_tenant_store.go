package testutil

import (
	"context"

	"github.com/firedesk/firedesk/internal/domain/tenant"
	ierr "github.com/firedesk/firedesk/internal/errors"
)

// InMemoryTenantStore implements tenant.Repository
type InMemoryTenantStore struct {
	*InMemoryStore[*tenant.Tenant]
}

// NewInMemoryTenantStore creates a new in-memory tenant store
func NewInMemoryTenantStore() *InMemoryTenantStore {
	return &InMemoryTenantStore{
		InMemoryStore: NewInMemoryStore[*tenant.Tenant](),
	}
}

func copyTenant(t *tenant.Tenant) *tenant.Tenant {
	if t == nil {
		return nil
	}
	c := *t
	if t.TaxRate != nil {
		rate := *t.TaxRate
		c.TaxRate = &rate
	}
	return &c
}

func (s *InMemoryTenantStore) Create(ctx context.Context, t *tenant.Tenant) error {
	if t == nil {
		return ierr.NewError("tenant cannot be nil").Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Create(ctx, t.ID, copyTenant(t)); err != nil {
		return ierr.WithError(err).
			WithHint("Tenant already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryTenantStore) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	t, found := s.InMemoryStore.Get(ctx, id)
	if !found {
		return nil, ierr.NewErrorf("tenant %s not found", id).
			WithHint("The requested tenant does not exist").
			Mark(ierr.ErrNotFound)
	}
	return copyTenant(t), nil
}

func (s *InMemoryTenantStore) List(ctx context.Context) ([]*tenant.Tenant, error) {
	tenants := s.InMemoryStore.List(ctx, nil, func(i, j *tenant.Tenant) bool {
		return i.CreatedAt.Before(j.CreatedAt)
	})
	result := make([]*tenant.Tenant, len(tenants))
	for i, t := range tenants {
		result[i] = copyTenant(t)
	}
	return result, nil
}

func (s *InMemoryTenantStore) Update(ctx context.Context, t *tenant.Tenant) error {
	if err := s.InMemoryStore.Update(ctx, t.ID, copyTenant(t)); err != nil {
		return ierr.WithError(err).
			WithHint("The requested tenant does not exist").
			Mark(ierr.ErrNotFound)
	}
	return nil
}
