package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonthStart(t *testing.T) {
	testCases := []struct {
		name     string
		input    time.Time
		expected time.Time
	}{
		{
			name:     "mid_month",
			input:    time.Date(2026, 1, 17, 13, 45, 30, 0, time.UTC),
			expected: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "already_month_start",
			input:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			expected: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "non_utc_location_normalized",
			input:    time.Date(2026, 2, 1, 0, 30, 0, 0, time.FixedZone("UTC+2", 2*60*60)),
			expected: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "last_instant_of_month",
			input:    time.Date(2025, 12, 31, 23, 59, 59, 999999999, time.UTC),
			expected: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MonthStart(tc.input))
		})
	}
}

func TestNextMonthStart(t *testing.T) {
	assert.Equal(t,
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		NextMonthStart(time.Date(2026, 1, 17, 13, 45, 30, 0, time.UTC)))

	// Year rollover
	assert.Equal(t,
		time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		NextMonthStart(time.Date(2026, 12, 5, 0, 0, 0, 0, time.UTC)))
}

func TestPeriodLabel(t *testing.T) {
	assert.Equal(t, "January 2026", PeriodLabel(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "December 2025", PeriodLabel(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)))
}
