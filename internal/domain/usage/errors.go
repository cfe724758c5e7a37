package usage

import "errors"

var (
	// ErrRecordNotFound is returned when no usage record exists for the
	// requested tenant and period.
	ErrRecordNotFound = errors.New("usage record not found")

	// ErrPeriodInvoiced is returned when a snapshot targets a period whose
	// record has already been consumed by an invoice. Billed history is
	// read-only; the snapshot is rejected, never silently overwritten.
	ErrPeriodInvoiced = errors.New("usage record already invoiced")
)
