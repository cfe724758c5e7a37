package types

import "time"

// MonthStart normalizes a timestamp to the first instant of its calendar
// month in UTC. This is the canonical metering period key.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NextMonthStart returns the first instant of the month after t.
func NextMonthStart(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, 0)
}

// PeriodLabel renders a metering period for invoice line items, e.g.
// "January 2026".
func PeriodLabel(period time.Time) string {
	return period.UTC().Format("January 2006")
}
