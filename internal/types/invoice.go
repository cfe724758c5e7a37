package types

import "time"

// InvoiceStatus tracks the lifecycle of an issued invoice.
// Allowed transitions: issued -> paid, issued -> overdue, overdue -> paid.
// A paid invoice is immutable.
type InvoiceStatus string

const (
	InvoiceStatusIssued  InvoiceStatus = "issued"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

func (s InvoiceStatus) Validate() bool {
	switch s {
	case InvoiceStatusIssued, InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

// InvoiceFilter narrows invoice listings. Zero values mean "no constraint".
type InvoiceFilter struct {
	InvoiceStatus InvoiceStatus `form:"invoice_status" json:"invoice_status,omitempty"`
	PeriodStart   *time.Time    `form:"period_start" json:"period_start,omitempty"`
	PeriodEnd     *time.Time    `form:"period_end" json:"period_end,omitempty"`
	Limit         int           `form:"limit" json:"limit,omitempty"`
	Offset        int           `form:"offset" json:"offset,omitempty"`
}

const DefaultFilterLimit = 50

func (f *InvoiceFilter) GetLimit() int {
	if f == nil || f.Limit <= 0 {
		return DefaultFilterLimit
	}
	return f.Limit
}

// UsageRecordFilter narrows usage record listings.
type UsageRecordFilter struct {
	PeriodStart *time.Time `form:"period_start" json:"period_start,omitempty"`
	PeriodEnd   *time.Time `form:"period_end" json:"period_end,omitempty"`
	Unbilled    bool       `form:"unbilled" json:"unbilled,omitempty"`
}
