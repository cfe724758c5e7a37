package dto

import (
	"context"

	"github.com/firedesk/firedesk/internal/domain/resource"
	ierr "github.com/firedesk/firedesk/internal/errors"
	"github.com/firedesk/firedesk/internal/types"
	"github.com/firedesk/firedesk/internal/validator"
)

// NearLimitThreshold is the fraction of a quota at which warning banners
// light up.
const NearLimitThreshold = 0.8

// QuotaCheckResult is the transient outcome of one quota computation. It is
// never persisted.
type QuotaCheckResult struct {
	ResourceType types.ResourceType `json:"resource_type"`
	Current      int                `json:"current"`
	Limit        int                `json:"limit"`
	Percentage   float64            `json:"percentage"`
	Remaining    int                `json:"remaining"`
	IsNearLimit  bool               `json:"is_near_limit"`
	IsAtLimit    bool               `json:"is_at_limit"`
}

// NewQuotaCheckResult derives the percentage and threshold flags from a
// current count and a limit. A limit of 0 means the resource type is not
// allowed at all, so any count is at limit.
func NewQuotaCheckResult(resourceType types.ResourceType, current, limit int) *QuotaCheckResult {
	r := &QuotaCheckResult{
		ResourceType: resourceType,
		Current:      current,
		Limit:        limit,
	}
	if limit > 0 {
		r.Percentage = float64(current) / float64(limit) * 100
	} else if current > 0 {
		r.Percentage = 100
	}
	r.Remaining = limit - current
	if r.Remaining < 0 {
		r.Remaining = 0
	}
	r.IsAtLimit = current >= limit
	r.IsNearLimit = r.IsAtLimit || (limit > 0 && float64(current) >= float64(limit)*NearLimitThreshold)
	return r
}

// AllLimitsResponse carries one QuotaCheckResult per quota-enforced resource
// class. Used for warning banners; the computation is read-only.
type AllLimitsResponse struct {
	Doors      *QuotaCheckResult `json:"doors"`
	Buildings  *QuotaCheckResult `json:"buildings"`
	Users      *QuotaCheckResult `json:"users"`
	Inspectors *QuotaCheckResult `json:"inspectors"`
}

// Get returns the result for one resource type.
func (r *AllLimitsResponse) Get(resourceType types.ResourceType) *QuotaCheckResult {
	switch resourceType {
	case types.ResourceTypeDoor:
		return r.Doors
	case types.ResourceTypeBuilding:
		return r.Buildings
	case types.ResourceTypeUser:
		return r.Users
	case types.ResourceTypeInspector:
		return r.Inspectors
	}
	return nil
}

// RegisterResourceRequest represents the request payload for a quota-gated
// resource registration
type RegisterResourceRequest struct {
	// resource_type is the class of resource being registered
	ResourceType types.ResourceType `json:"resource_type" validate:"required"`

	// building_id optionally groups doors and inspections under a building
	BuildingID *string `json:"building_id,omitempty"`
}

func (r *RegisterResourceRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.ResourceType.Validate() {
		return ierr.NewErrorf("invalid resource type: %s", r.ResourceType).
			WithHint("Resource type must be one of door, building, user, inspector, inspection").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ToResource converts the request to a domain resource
func (r *RegisterResourceRequest) ToResource(ctx context.Context) *resource.Resource {
	base := types.GetDefaultBaseModel(ctx)
	return &resource.Resource{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RESOURCE),
		Type:         r.ResourceType,
		BuildingID:   r.BuildingID,
		RegisteredAt: base.CreatedAt,
		BaseModel:    base,
	}
}

// ResourceResponse represents a registered resource in API responses
type ResourceResponse struct {
	*resource.Resource
}

func NewResourceResponse(res *resource.Resource) *ResourceResponse {
	return &ResourceResponse{Resource: res}
}
