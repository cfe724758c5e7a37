package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/firedesk/firedesk/internal/domain/usage"
	ierr "github.com/firedesk/firedesk/internal/errors"
	"github.com/firedesk/firedesk/internal/types"
)

// InMemoryUsageStore implements usage.Repository. Records are keyed by
// (tenant, period) so the uniqueness invariant holds by construction; the
// mutex is held across the whole upsert, matching the transactional
// atomicity of the postgres implementation.
type InMemoryUsageStore struct {
	mu      sync.RWMutex
	records map[string]*usage.Record // key: tenantID + "/" + period
}

// NewInMemoryUsageStore creates a new in-memory usage store
func NewInMemoryUsageStore() *InMemoryUsageStore {
	return &InMemoryUsageStore{
		records: make(map[string]*usage.Record),
	}
}

func usageKey(tenantID string, period time.Time) string {
	return tenantID + "/" + types.MonthStart(period).Format("2006-01")
}

func copyUsageRecord(r *usage.Record) *usage.Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.InvoiceID != nil {
		id := *r.InvoiceID
		c.InvoiceID = &id
	}
	return &c
}

func (s *InMemoryUsageStore) Upsert(ctx context.Context, record *usage.Record) (*usage.Record, error) {
	if record == nil {
		return nil, ierr.NewError("usage record cannot be nil").Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := usageKey(record.TenantID, record.Period)
	existing, found := s.records[key]
	if !found {
		stored := copyUsageRecord(record)
		stored.Invoiced = false
		stored.InvoiceID = nil
		s.records[key] = stored
		return copyUsageRecord(stored), nil
	}

	if existing.Invoiced {
		return nil, ierr.WithError(usage.ErrPeriodInvoiced).
			WithHint("This billing period has been invoiced and is read-only").
			Mark(ierr.ErrInvalidOperation)
	}

	// Replace counts, amount and details in place. Identity and creation
	// audit fields stay with the original row.
	updated := copyUsageRecord(existing)
	updated.DoorCount = record.DoorCount
	updated.BuildingCount = record.BuildingCount
	updated.UserCount = record.UserCount
	updated.InspectorCount = record.InspectorCount
	updated.InspectionCount = record.InspectionCount
	updated.CalculatedAmount = record.CalculatedAmount
	updated.Details = record.Details
	updated.Invoiced = false
	updated.InvoiceID = nil
	updated.UpdatedAt = record.UpdatedAt
	updated.UpdatedBy = record.UpdatedBy

	s.records[key] = updated
	return copyUsageRecord(updated), nil
}

func (s *InMemoryUsageStore) GetByPeriod(ctx context.Context, tenantID string, period time.Time) (*usage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, found := s.records[usageKey(tenantID, period)]
	if !found {
		return nil, ierr.WithError(usage.ErrRecordNotFound).
			WithHintf("No usage record for %s", types.MonthStart(period).Format("2006-01")).
			Mark(ierr.ErrNotFound)
	}
	return copyUsageRecord(record), nil
}

func (s *InMemoryUsageStore) ListUnbilled(ctx context.Context, tenantID string, periodStart, periodEnd time.Time) ([]*usage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	periodStart = types.MonthStart(periodStart)
	periodEnd = types.MonthStart(periodEnd)

	var result []*usage.Record
	for _, r := range s.records {
		if r.TenantID == tenantID && !r.Invoiced &&
			!r.Period.Before(periodStart) && !r.Period.After(periodEnd) {
			result = append(result, copyUsageRecord(r))
		}
	}
	sortRecordsByPeriod(result)
	return result, nil
}

func (s *InMemoryUsageStore) List(ctx context.Context, tenantID string, filter *types.UsageRecordFilter) ([]*usage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*usage.Record
	for _, r := range s.records {
		if r.TenantID != tenantID {
			continue
		}
		if filter != nil {
			if filter.Unbilled && r.Invoiced {
				continue
			}
			if filter.PeriodStart != nil && r.Period.Before(types.MonthStart(*filter.PeriodStart)) {
				continue
			}
			if filter.PeriodEnd != nil && r.Period.After(types.MonthStart(*filter.PeriodEnd)) {
				continue
			}
		}
		result = append(result, copyUsageRecord(r))
	}
	sortRecordsByPeriod(result)
	return result, nil
}

func (s *InMemoryUsageStore) MarkInvoiced(ctx context.Context, recordIDs []string, invoiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := lo.SliceToMap(recordIDs, func(id string) (string, struct{}) { return id, struct{}{} })
	marked := 0
	for key, r := range s.records {
		if _, ok := ids[r.ID]; !ok {
			continue
		}
		if r.Invoiced {
			return ierr.WithError(usage.ErrPeriodInvoiced).
				WithHint("Usage record is already part of an invoice").
				Mark(ierr.ErrInvalidOperation)
		}
		updated := copyUsageRecord(r)
		updated.Invoiced = true
		updated.InvoiceID = &invoiceID
		s.records[key] = updated
		marked++
	}
	if marked != len(recordIDs) {
		return ierr.NewError("some usage records were not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryUsageStore) ListByInvoice(ctx context.Context, invoiceID string) ([]*usage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*usage.Record
	for _, r := range s.records {
		if r.InvoiceID != nil && *r.InvoiceID == invoiceID {
			result = append(result, copyUsageRecord(r))
		}
	}
	sortRecordsByPeriod(result)
	return result, nil
}

// Clear removes all records from the store
func (s *InMemoryUsageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*usage.Record)
}

func sortRecordsByPeriod(records []*usage.Record) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Period.Before(records[j].Period)
	})
}
