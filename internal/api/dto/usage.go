package dto

import (
	"time"

	"github.com/firedesk/firedesk/internal/domain/usage"
	"github.com/firedesk/firedesk/internal/validator"
)

// SnapshotUsageRequest represents the request payload for metering one
// tenant's usage for one period
type SnapshotUsageRequest struct {
	// tenant_id is the tenant to meter
	TenantID string `json:"tenant_id" validate:"required"`

	// period is any instant inside the calendar month to meter; it is
	// normalized to the first instant of that month. Defaults to now.
	Period *time.Time `json:"period,omitempty"`
}

func (r *SnapshotUsageRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// GetPeriod returns the requested period or the fallback.
func (r *SnapshotUsageRequest) GetPeriod(fallback time.Time) time.Time {
	if r.Period != nil {
		return *r.Period
	}
	return fallback
}

// UsageRecordResponse represents a usage record in API responses
type UsageRecordResponse struct {
	*usage.Record
}

func NewUsageRecordResponse(record *usage.Record) *UsageRecordResponse {
	return &UsageRecordResponse{Record: record}
}

// ListUsageRecordsResponse represents a usage record listing
type ListUsageRecordsResponse struct {
	Items []*UsageRecordResponse `json:"items"`
	Total int                    `json:"total"`
}

// MeteringRunRequest represents the request payload for the monthly batch
// run across all tenants
type MeteringRunRequest struct {
	// period defaults to the current month when omitted
	Period *time.Time `json:"period,omitempty"`
}

// GetPeriod returns the requested period or the fallback.
func (r *MeteringRunRequest) GetPeriod(fallback time.Time) time.Time {
	if r != nil && r.Period != nil {
		return *r.Period
	}
	return fallback
}

// MeteringRunResult is the per-tenant outcome of a batch run
type MeteringRunResult struct {
	TenantID string               `json:"tenant_id"`
	Success  bool                 `json:"success"`
	Record   *UsageRecordResponse `json:"record,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// MeteringRunResponse aggregates per-tenant outcomes; a tenant failure never
// aborts the batch, it is reported here so the caller can retry selectively.
type MeteringRunResponse struct {
	Period  time.Time            `json:"period"`
	Items   []*MeteringRunResult `json:"items"`
	Total   int                  `json:"total"`
	Success int                  `json:"success"`
	Failed  int                  `json:"failed"`
}
