package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/firedesk/firedesk/internal/domain/resource"
	ierr "github.com/firedesk/firedesk/internal/errors"
	"github.com/firedesk/firedesk/internal/types"
)

// InMemoryResourceStore implements resource.Repository. The single mutex is
// held across the count and the insert in CreateIfUnderLimit, mirroring the
// conditional-write atomicity of the postgres implementation.
type InMemoryResourceStore struct {
	mu        sync.RWMutex
	resources map[string]*resource.Resource
}

// NewInMemoryResourceStore creates a new in-memory resource store
func NewInMemoryResourceStore() *InMemoryResourceStore {
	return &InMemoryResourceStore{
		resources: make(map[string]*resource.Resource),
	}
}

func copyResource(r *resource.Resource) *resource.Resource {
	if r == nil {
		return nil
	}
	c := *r
	if r.BuildingID != nil {
		id := *r.BuildingID
		c.BuildingID = &id
	}
	return &c
}

func (s *InMemoryResourceStore) CreateIfUnderLimit(ctx context.Context, res *resource.Resource, limit int) error {
	if res == nil {
		return ierr.NewError("resource cannot be nil").Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := 0
	for _, existing := range s.resources {
		if existing.TenantID == res.TenantID && existing.Type == res.Type && existing.Status != types.StatusDeleted {
			current++
		}
	}
	if current >= limit {
		return ierr.NewErrorf("%s limit reached: %d of %d in use", res.Type, current, limit).
			WithHintf("Your plan allows %d %ss and all of them are in use", limit, res.Type).
			WithReportableDetails(map[string]any{
				"resource_type": res.Type,
				"current":       current,
				"limit":         limit,
			}).
			Mark(ierr.ErrQuotaExceeded)
	}

	if _, exists := s.resources[res.ID]; exists {
		return ierr.NewError("resource already exists").Mark(ierr.ErrAlreadyExists)
	}
	s.resources[res.ID] = copyResource(res)
	return nil
}

func (s *InMemoryResourceStore) Count(ctx context.Context, tenantID string, resourceType types.ResourceType, asOf time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, r := range s.resources {
		if r.TenantID == tenantID && r.Type == resourceType &&
			r.Status != types.StatusDeleted && !r.RegisteredAt.After(asOf) {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryResourceStore) CountInWindow(ctx context.Context, tenantID string, resourceType types.ResourceType, start, end time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, r := range s.resources {
		if r.TenantID == tenantID && r.Type == resourceType &&
			r.Status != types.StatusDeleted &&
			!r.RegisteredAt.Before(start) && r.RegisteredAt.Before(end) {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryResourceStore) Get(ctx context.Context, id string) (*resource.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, found := s.resources[id]
	if !found {
		return nil, ierr.NewErrorf("resource %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copyResource(r), nil
}

// Clear removes all resources from the store
func (s *InMemoryResourceStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources = make(map[string]*resource.Resource)
}
