package resource

import (
	"context"
	"time"

	"github.com/firedesk/firedesk/internal/types"
)

// Repository defines the interface for resource registry persistence.
type Repository interface {
	// CreateIfUnderLimit inserts the resource only while the tenant's count
	// of that resource type stays strictly below limit. The count check and
	// the insert are one atomic operation; two racing registrations must
	// never both commit past the limit. Returns ierr.ErrQuotaExceeded when
	// the limit is already reached.
	CreateIfUnderLimit(ctx context.Context, res *Resource, limit int) error

	// Count returns the number of resources of one type registered at or
	// before asOf.
	Count(ctx context.Context, tenantID string, resourceType types.ResourceType, asOf time.Time) (int, error)

	// CountInWindow returns the number of resources of one type registered
	// inside [start, end). Used for windowed inspection counts.
	CountInWindow(ctx context.Context, tenantID string, resourceType types.ResourceType, start, end time.Time) (int, error)

	// Get retrieves a resource by ID
	Get(ctx context.Context, id string) (*Resource, error)
}
