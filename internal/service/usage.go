package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sourcegraph/conc/pool"

	"github.com/firedesk/firedesk/internal/api/dto"
	"github.com/firedesk/firedesk/internal/domain/usage"
	ierr "github.com/firedesk/firedesk/internal/errors"
	"github.com/firedesk/firedesk/internal/types"
)

// UsageService is the usage ledger: one snapshot record per tenant and
// calendar month, idempotently upserted, priced at snapshot time.
type UsageService interface {
	// SnapshotUsage meters one tenant for one period. Re-snapshotting an
	// uninvoiced period replaces counts and amount in place; snapshotting
	// an invoiced period is rejected.
	SnapshotUsage(ctx context.Context, tenantID string, period time.Time) (*dto.UsageRecordResponse, error)

	// ListUsageRecords returns the context tenant's records.
	ListUsageRecords(ctx context.Context, filter *types.UsageRecordFilter) (*dto.ListUsageRecordsResponse, error)

	// RunForAllTenants meters every tenant for the period. Per-tenant
	// failures are collected, never propagated: the batch always finishes
	// and reports each outcome so the caller can retry selectively.
	RunForAllTenants(ctx context.Context, period time.Time) (*dto.MeteringRunResponse, error)
}

type usageService struct {
	ServiceParams
	pricing PricingService
	counter CounterService
}

func NewUsageService(params ServiceParams) UsageService {
	return &usageService{
		ServiceParams: params,
		pricing:       NewPricingService(),
		counter:       NewCounterService(params),
	}
}

func (s *usageService) SnapshotUsage(ctx context.Context, tenantID string, period time.Time) (*dto.UsageRecordResponse, error) {
	ctx = types.SetTenantID(ctx, tenantID)
	period = types.MonthStart(period)

	t, err := getTenantCached(ctx, s.ServiceParams, tenantID)
	if err != nil {
		return nil, err
	}

	// Billed history is read-only: reject before doing any work. The
	// repository re-checks under the upsert's transaction as well.
	existing, err := s.UsageRepo.GetByPeriod(ctx, tenantID, period)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	if existing != nil && existing.Invoiced {
		return nil, invoicedPeriodError(tenantID, period)
	}

	counts, err := s.counter.CountResources(ctx, tenantID, snapshotInstant(period))
	if err != nil {
		return nil, err
	}

	amount, breakdown := s.pricing.Calculate(t.BillingConfig, counts)
	if breakdown.Unsupported {
		s.Logger.Warnw("unsupported billing configuration, storing zero amount",
			"tenant_id", tenantID,
			"client_type", t.ClientType,
			"billing_model", t.BillingModel)
	}

	record := &usage.Record{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USAGE_RECORD),
		Period:           period,
		DoorCount:        counts.Doors,
		BuildingCount:    counts.Buildings,
		UserCount:        counts.Users,
		InspectorCount:   counts.Inspectors,
		InspectionCount:  counts.Inspections,
		CalculatedAmount: amount,
		Details:          breakdown,
		Invoiced:         false,
		BaseModel:        types.GetDefaultBaseModel(ctx),
	}

	// The upsert is idempotent on (tenant, period), so transient conflicts
	// from concurrent snapshots are safe to retry.
	var stored *usage.Record
	operation := func() error {
		return s.DB.WithSerializableTx(ctx, func(txCtx context.Context) error {
			var upsertErr error
			stored, upsertErr = s.UsageRepo.Upsert(txCtx, record)
			if upsertErr != nil && !ierr.IsDatabase(upsertErr) {
				return backoff.Permanent(upsertErr)
			}
			return upsertErr
		})
	}
	retryPolicy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(operation, backoff.WithContext(retryPolicy, ctx)); err != nil {
		return nil, err
	}

	s.Logger.Infow("snapshotted usage",
		"tenant_id", tenantID,
		"period", period.Format("2006-01"),
		"amount", stored.CalculatedAmount)
	return dto.NewUsageRecordResponse(stored), nil
}

func (s *usageService) ListUsageRecords(ctx context.Context, filter *types.UsageRecordFilter) (*dto.ListUsageRecordsResponse, error) {
	records, err := s.UsageRepo.List(ctx, types.GetTenantID(ctx), filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.UsageRecordResponse, len(records))
	for i, record := range records {
		items[i] = dto.NewUsageRecordResponse(record)
	}
	return &dto.ListUsageRecordsResponse{Items: items, Total: len(items)}, nil
}

func (s *usageService) RunForAllTenants(ctx context.Context, period time.Time) (*dto.MeteringRunResponse, error) {
	txn, ctx := s.Sentry.StartTransaction(ctx, "metering.run")
	if txn != nil {
		defer txn.Finish()
	}

	period = types.MonthStart(period)

	tenants, err := s.TenantRepo.List(ctx)
	if err != nil {
		s.Sentry.CaptureException(err)
		return nil, err
	}

	workers := s.Config.Billing.MeteringWorkers
	if workers <= 0 {
		workers = 1
	}

	results := make([]*dto.MeteringRunResult, len(tenants))
	p := pool.New().WithMaxGoroutines(workers)
	for i, t := range tenants {
		i, t := i, t
		p.Go(func() {
			record, err := s.SnapshotUsage(ctx, t.ID, period)
			if err != nil {
				s.Logger.Errorw("metering failed for tenant",
					"tenant_id", t.ID,
					"period", period.Format("2006-01"),
					"error", err)
				s.Sentry.CaptureException(err)
				results[i] = &dto.MeteringRunResult{TenantID: t.ID, Success: false, Error: err.Error()}
				return
			}
			results[i] = &dto.MeteringRunResult{TenantID: t.ID, Success: true, Record: record}
		})
	}
	p.Wait()

	resp := &dto.MeteringRunResponse{
		Period: period,
		Items:  results,
		Total:  len(results),
	}
	for _, r := range results {
		if r.Success {
			resp.Success++
		} else {
			resp.Failed++
		}
	}

	s.Logger.Infow("metering run finished",
		"period", period.Format("2006-01"),
		"total", resp.Total,
		"success", resp.Success,
		"failed", resp.Failed)
	return resp, nil
}

// snapshotInstant picks the instant counts are taken at for a period. Past
// months are counted at their last instant; the current month is counted at
// now so quota checks and snapshots agree.
func snapshotInstant(period time.Time) time.Time {
	now := time.Now().UTC()
	end := types.NextMonthStart(period).Add(-time.Nanosecond)
	if end.After(now) {
		return now
	}
	return end
}

func invoicedPeriodError(tenantID string, period time.Time) error {
	return ierr.WithError(usage.ErrPeriodInvoiced).
		WithMessage(tenantID + " " + period.Format("2006-01")).
		WithHint("This billing period has been invoiced and is read-only").
		WithReportableDetails(map[string]any{
			"tenant_id": tenantID,
			"period":    period.Format("2006-01"),
		}).
		Mark(ierr.ErrInvalidOperation)
}
